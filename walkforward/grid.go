package walkforward

import (
	"fmt"

	"github.com/rustyeddy/polypaper/strategies"
)

// ParamRange lists the candidate values of one parameter. Range order is
// significant: the last range varies fastest in Grid.
type ParamRange struct {
	Name   string `json:"name" yaml:"name" binding:"required"`
	Values []any  `json:"values" yaml:"values" binding:"required,min=1"`
}

// Grid returns the Cartesian product of ranges. With no ranges it returns a
// single empty combination.
func Grid(ranges []ParamRange) []strategies.Params {
	out := []strategies.Params{{}}
	for _, r := range ranges {
		next := make([]strategies.Params, 0, len(out)*len(r.Values))
		for _, combo := range out {
			for _, v := range r.Values {
				p := combo.Clone()
				p[r.Name] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}

func validateRanges(ranges []ParamRange) error {
	seen := make(map[string]bool, len(ranges))
	for i, r := range ranges {
		if r.Name == "" {
			return fmt.Errorf("walkforward: range %d has no name", i)
		}
		if len(r.Values) == 0 {
			return fmt.Errorf("walkforward: range %q has no values", r.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("walkforward: duplicate range %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}
