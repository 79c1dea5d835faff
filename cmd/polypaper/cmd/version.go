package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the polypaper CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "polypaper version %s\n", version)
		fmt.Fprintln(out, "Backtesting, Monte Carlo and walk-forward validation")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
