package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rshade/mesgrid/internal/config"
	"github.com/rshade/mesgrid/internal/grid"
	"github.com/rshade/mesgrid/internal/tui"
)

// newGridCmd creates the grid command group.
func newGridCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Record, review and submit grid edits",
	}
	cmd.AddCommand(
		NewGridListCmd(), NewGridAddCmd(), NewGridEditCmd(), NewGridSelectCmd(),
		NewGridShowCmd(), NewGridPayloadCmd(), NewGridSubmitCmd(),
		NewGridDiscardCmd(), NewGridLoadCmd(),
	)
	return cmd
}

// NewGridAddCmd creates the grid add command.
func NewGridAddCmd() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "add <grid>",
		Short: "Append a new blank row to a grid",
		Long: `Appends a row built from the grid's configured defaults and a fresh
temporary id. The row is pending creation until the grid is submitted.`,
		Example: `  # Add a blank BOM row
  mesgrid grid add bom

  # Add a row and fill in fields
  mesgrid grid add bom --set itemCode=A-100 --set qty=4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(sets)
			if err != nil {
				return err
			}

			s, err := openGrid(args[0])
			if err != nil {
				return err
			}

			row, err := s.tracker.Add()
			if err != nil {
				return err
			}
			if len(fields) > 0 {
				next := row.Clone()
				for k, v := range fields {
					next[k] = v
				}
				if row, err = s.tracker.Edit(next, row); err != nil {
					return err
				}
			}

			if err = s.save(); err != nil {
				return err
			}
			return render(cmd, row, func() string {
				return fmt.Sprintf("Added row %s to %s", grid.IDOf(row), s.name)
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to set on the new row (repeatable)")
	return cmd
}

// NewGridEditCmd creates the grid edit command.
func NewGridEditCmd() *cobra.Command {
	var (
		sets     []string
		fromFile string
	)

	cmd := &cobra.Command{
		Use:   "edit <grid> <id>",
		Short: "Change fields of a row",
		Long: `Records an edit of the row with the given id. New rows stay pending
creation; persisted rows become pending update. Repeated edits of one row
keep only the latest version.`,
		Example: `  # Change the planned quantity of an order
  mesgrid grid edit production_orders 1042 --set planQty=500

  # Replace fields from a file
  mesgrid grid edit bom NEW_01J9ZQ4K6T --file row.yaml`,
		Args: cobra.ExactArgs(2), //nolint:mnd // grid and id
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGridEdit(cmd, args[0], args[1], sets, fromFile)
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to change (repeatable)")
	cmd.Flags().StringVar(&fromFile, "file", "", "JSON or YAML file with fields to change")
	return cmd
}

func runGridEdit(cmd *cobra.Command, name, id string, sets []string, fromFile string) error {
	fields, err := parseAssignments(sets)
	if err != nil {
		return err
	}
	if fromFile != "" {
		fileFields, readErr := readRow(fromFile)
		if readErr != nil {
			return readErr
		}
		for k, v := range fileFields {
			if k == grid.IDField {
				continue
			}
			if _, set := fields[k]; !set {
				fields[k] = v
			}
		}
	}
	if len(fields) == 0 {
		return errors.New("nothing to change: use --set or --file")
	}

	s, err := openGrid(name)
	if err != nil {
		return err
	}

	prev, found := s.tracker.Snapshot().Row(id)
	if !found {
		logger.Warn().Str("grid", name).Str("row_id", id).Msg("row not in grid; recording edit anyway")
		prev = grid.Row{grid.IDField: id}
	}
	next := prev.Clone()
	for k, v := range fields {
		next[k] = v
	}

	if _, err = s.tracker.Edit(next, prev); err != nil {
		return err
	}
	if err = s.save(); err != nil {
		return err
	}

	return render(cmd, next, func() string {
		return fmt.Sprintf("Edited %s in %s\n%s", id, s.name, tui.RenderRowDiff(prev, next, precision()))
	})
}

// NewGridSelectCmd creates the grid select command.
func NewGridSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <grid> [id...]",
		Short: "Replace the row selection used for deletion",
		Example: `  # Select two rows
  mesgrid grid select defects 17 18

  # Clear the selection
  mesgrid grid select defects`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openGrid(args[0])
			if err != nil {
				return err
			}
			s.tracker.Select(args[1:]...)
			if err = s.save(); err != nil {
				return err
			}

			selected := s.tracker.Snapshot().Selected
			if ignored := len(args[1:]) - len(selected); ignored > 0 {
				cmd.PrintErrf("Warning: %d unknown id(s) ignored\n", ignored)
			}
			return render(cmd, selected, func() string {
				return fmt.Sprintf("Selected %d row(s) in %s", len(selected), s.name)
			})
		},
	}
}

// NewGridLoadCmd creates the grid load command.
func NewGridLoadCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "load <grid> <file>",
		Short: "Replace a grid's rows with rows fetched from the backend",
		Long: `Loads a JSON or YAML array of rows as the grid's full row list and clears
pending changes and selection. Refuses to drop pending changes unless --force
is given.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // grid and file
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readRows(args[1])
			if err != nil {
				return err
			}
			s, err := openGrid(args[0])
			if err != nil {
				return err
			}
			if s.tracker.Snapshot().HasPending() && !force {
				return &ExitError{
					Code: ExitCodeConflict,
					Err:  fmt.Errorf("%s has pending changes; submit or discard them, or use --force", s.name),
				}
			}
			if err = s.tracker.Dispatch(grid.LoadRows{Rows: rows}); err != nil {
				return err
			}
			if err = s.save(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d row(s) into %s\n", len(rows), s.name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "drop pending changes")
	return cmd
}

// NewGridDiscardCmd creates the grid discard command.
func NewGridDiscardCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "discard [grid]",
		Short: "Drop a grid's draft, or every draft with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetGlobalConfig()
			if all {
				path, err := cfg.DraftsPath()
				if err != nil {
					return err
				}
				if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("removing drafts: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Discarded all drafts")
				return nil
			}

			store, err := openDraftStore(cfg)
			if err != nil {
				return err
			}
			store.Delete(args[0])
			if err = store.Save(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Discarded draft for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "discard every draft, including a corrupted draft file")
	return cmd
}
