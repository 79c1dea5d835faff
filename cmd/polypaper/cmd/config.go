package cmd

import (
	"fmt"

	"github.com/rustyeddy/polypaper/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage run configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  polypaper config init -o run.yaml
  polypaper config validate -f run.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings. The format
follows the extension: .json writes JSON, anything else YAML.

Example:
  polypaper config init -o run.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  polypaper config validate -f run.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "polypaper.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	_ = configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if err := c.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  polypaper backtest --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Strategy: %s (%d params)\n", c.Strategy.ID, len(c.Strategy.Params))
	fmt.Fprintf(out, "  Capital: $%.2f (fee %.3f%%, slippage %.3f%%)\n",
		c.Engine.InitialCapital, c.Engine.FeeRate*100, c.Engine.SlippageRate*100)
	fmt.Fprintf(out, "  Data: %s\n", describeData(c.Data))
	fmt.Fprintf(out, "  Journal: %s\n", c.Journal.DBPath)
	return nil
}

func describeData(d config.DataConfig) string {
	switch {
	case d.CSV != "":
		return fmt.Sprintf("%s from %s", d.Symbol, d.CSV)
	case d.DSN != "":
		return fmt.Sprintf("%s from %s table %q", d.Symbol, d.Driver, d.Table)
	}
	return d.Symbol + " (no source set)"
}
