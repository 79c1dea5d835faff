package strategies

import "github.com/rustyeddy/polypaper/market"

// Noop never trades. It is the baseline for engine tests.
type Noop struct{}

func (Noop) Metadata() Metadata {
	return Metadata{
		ID:               "noop",
		Name:             "No-op",
		Description:      "Never trades",
		Version:          "1.0.0",
		SupportedMarkets: []string{"CRYPTO"},
		Parameters:       map[string]ParamSpec{},
	}
}

func (Noop) OnData(market.Bar, []Position) *Signal {
	return nil
}
