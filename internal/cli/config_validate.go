package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/mesgrid/internal/config"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validates the effective configuration: the config file, any --config
overlay and environment overrides.

This includes:
- Backend endpoint, retry, batch and concurrency limits
- Output format
- Per-grid mutation names, id sources and field types`,
		Example: `  # Validate current configuration
  mesgrid config validate

  # Validate and show detailed information
  mesgrid config validate --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Configuration is valid")
			if verbose {
				_, _ = fmt.Fprintf(out, "\nEndpoint: %s\n", cfg.Backend.Endpoint)
				_, _ = fmt.Fprintf(out, "Batch size: %d, concurrency: %d, retries: %d\n",
					cfg.Backend.BatchSize, cfg.Backend.Concurrency, cfg.Backend.MaxRetries)
				_, _ = fmt.Fprintf(out, "Grids (%d):\n", len(cfg.Grids))
				for _, name := range cfg.GridNames() {
					g := cfg.Grids[name]
					_, _ = fmt.Fprintf(out, "  %s: save=%s delete=%s\n", name, g.SaveMutation, g.DeleteMutation)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")
	return cmd
}

// NewConfigShowCmd creates the config show command.
func NewConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := outputFormat(cmd)
			if format == config.FormatTable {
				format = config.FormatYAML
			}
			return writeStructured(cmd.OutOrStdout(), format, config.GetGlobalConfig())
		},
	}
}
