package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rshade/mesgrid/internal/config"
)

// NewConfigInitCmd creates the config init command for initializing configuration.
func NewConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates ~/.mesgrid/config.yaml (or $MESGRID_CONFIG) with the built-in
defaults: a local GraphQL endpoint and the standard MES grids.`,
		Example: `  # Create configuration
  mesgrid config init

  # Create configuration, overwriting existing
  mesgrid config init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, err := config.Path()
			if err != nil {
				return err
			}

			if !force {
				_, statErr := os.Stat(configPath)
				if statErr == nil {
					return errors.New("configuration file already exists, use --force to overwrite")
				}
				if !os.IsNotExist(statErr) {
					return fmt.Errorf("cannot access config path %s: %w", configPath, statErr)
				}
			}

			if err = config.Default().Save(configPath); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration initialized at %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	return cmd
}
