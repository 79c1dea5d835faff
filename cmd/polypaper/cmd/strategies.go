package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rustyeddy/polypaper/strategies"
	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the available strategies and their parameters",
	Args:  cobra.NoArgs,
	RunE:  runStrategies,
}

var strategiesVerbose bool

func init() {
	rootCmd.AddCommand(strategiesCmd)
	strategiesCmd.Flags().BoolVarP(&strategiesVerbose, "verbose", "v", false, "show parameter defaults")
}

func runStrategies(cmd *cobra.Command, args []string) error {
	list := strategies.Default().List()
	out := cmd.OutOrStdout()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tMARKETS\tDESCRIPTION")
	for _, m := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Version, strings.Join(m.SupportedMarkets, ","), m.Description)
		if !strategiesVerbose {
			continue
		}
		names := make([]string, 0, len(m.Parameters))
		for n := range m.Parameters {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			ps := m.Parameters[n]
			fmt.Fprintf(tw, "  %s\t%s\t%v\t%s\n", n, ps.Type, ps.Default, ps.Description)
		}
	}
	return tw.Flush()
}
