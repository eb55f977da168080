package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/mesgrid/internal/config"
	"github.com/rshade/mesgrid/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger = zerolog.Nop() //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the mesgrid CLI.
// It loads configuration, wires up logging and tracing, and registers the
// grid, kpi and config command groups.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:           "mesgrid",
		Short:         "Track and submit MES grid edits",
		Long:          "mesgrid: record grid edits offline, review the change set, and submit it to the MES GraphQL backend",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			overlay, _ := cmd.Flags().GetString("config")
			cfg, err := config.New(overlay)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			config.SetGlobalConfig(cfg)

			if output, _ := cmd.Flags().GetString("output"); output != "" {
				switch output {
				case config.FormatTable, config.FormatJSON, config.FormatYAML:
				default:
					return fmt.Errorf("--output must be table, json or yaml, got %q", output)
				}
			}

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "YAML file overlaid on top of the config file")
	cmd.PersistentFlags().StringP("output", "o", "", "output format: table, json or yaml (default from config)")
	cmd.AddCommand(newGridCmd(), newKPICmd(), newConfigCmd())

	return cmd
}

const rootCmdExample = `  # Add a BOM row and fill it in
  mesgrid grid add bom --set itemCode=A-100 --set qty=4

  # Edit a persisted production order
  mesgrid grid edit production_orders 1042 --set planQty=500

  # Review pending changes
  mesgrid grid show bom --pending

  # Submit the change set to the backend
  mesgrid grid submit bom

  # Select and delete rows
  mesgrid grid select defects 17 18
  mesgrid grid submit defects --delete

  # Production achievement rate from local drafts
  mesgrid kpi achievement --from-drafts

  # Initialize configuration
  mesgrid config init`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigValidateCmd(), NewConfigShowCmd())
	return cmd
}
