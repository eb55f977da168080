package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/mesgrid/internal/config"
)

// outputFormat resolves the format for cmd: the --output flag, else the
// configured default. A table default becomes JSON when stdout is a
// non-terminal file such as a pipe.
func outputFormat(cmd *cobra.Command) string {
	if f, _ := cmd.Flags().GetString("output"); f != "" {
		return f
	}
	format := config.GetGlobalConfig().Output.DefaultFormat
	if format == "" {
		format = config.FormatTable
	}
	if format == config.FormatTable {
		if f, ok := cmd.OutOrStdout().(*os.File); ok && !isTerminal(f) {
			return config.FormatJSON
		}
	}
	return format
}

// precision returns the configured display precision.
func precision() int {
	return config.GetGlobalConfig().Output.Precision
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}
}

// render writes table output via table() for the table format and
// structured output of v otherwise.
func render(cmd *cobra.Command, v any, table func() string) error {
	format := outputFormat(cmd)
	if format == config.FormatTable {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), table())
		return nil
	}
	return writeStructured(cmd.OutOrStdout(), format, v)
}
