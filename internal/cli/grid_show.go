package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/mesgrid/internal/cli/pagination"
	"github.com/rshade/mesgrid/internal/config"
	"github.com/rshade/mesgrid/internal/grid"
	"github.com/rshade/mesgrid/internal/tui"
)

// gridListing is the structured output of grid show.
type gridListing struct {
	Grid           string                    `json:"grid"            yaml:"grid"`
	Rows           []grid.Row                `json:"rows"            yaml:"rows"`
	PendingNew     []string                  `json:"pending_new"     yaml:"pending_new"`
	PendingUpdated []string                  `json:"pending_updated" yaml:"pending_updated"`
	Selected       []string                  `json:"selected"        yaml:"selected"`
	Pagination     pagination.PaginationMeta `json:"pagination"      yaml:"pagination"`
}

// gridInfo is one entry of grid list.
type gridInfo struct {
	Grid           string `json:"grid"            yaml:"grid"`
	SaveMutation   string `json:"save_mutation"   yaml:"save_mutation"`
	DeleteMutation string `json:"delete_mutation" yaml:"delete_mutation"`
	Rows           int    `json:"rows"            yaml:"rows"`
	PendingNew     int    `json:"pending_new"     yaml:"pending_new"`
	PendingUpdated int    `json:"pending_updated" yaml:"pending_updated"`
	Selected       int    `json:"selected"        yaml:"selected"`
}

// NewGridListCmd creates the grid list command.
func NewGridListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured grids and their pending changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			store, err := openDraftStore(cfg)
			if err != nil {
				return err
			}

			infos := make([]gridInfo, 0, len(cfg.Grids))
			for _, name := range cfg.GridNames() {
				gc := cfg.Grids[name]
				st, _ := store.Get(name)
				infos = append(infos, gridInfo{
					Grid:           name,
					SaveMutation:   gc.SaveMutation,
					DeleteMutation: gc.DeleteMutation,
					Rows:           len(st.Rows),
					PendingNew:     len(st.PendingNew),
					PendingUpdated: len(st.PendingUpdated),
					Selected:       len(st.Selected),
				})
			}

			return render(cmd, infos, func() string {
				var sb strings.Builder
				for i, info := range infos {
					if i > 0 {
						sb.WriteString("\n")
					}
					st, _ := store.Get(info.Grid)
					fmt.Fprintf(&sb, "%-20s %s", info.Grid, tui.RenderSummary(st))
				}
				return sb.String()
			})
		},
	}
}

// NewGridShowCmd creates the grid show command.
func NewGridShowCmd() *cobra.Command {
	var (
		pendingOnly  bool
		selectedOnly bool
		sortExpr     string
		params       = pagination.PaginationParams{}
	)

	cmd := &cobra.Command{
		Use:   "show <grid>",
		Short: "Show a grid's rows with pending and selection markers",
		Example: `  # Show every row
  mesgrid grid show bom

  # Only rows pending save, largest quantity first
  mesgrid grid show bom --pending --sort qty:desc

  # Second page of 20 rows as JSON
  mesgrid grid show production_orders --page 2 --page-size 20 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sortExpr != "" {
				field, order, err := pagination.ParseSortExpression(sortExpr)
				if err != nil {
					return err
				}
				params.SortField, params.SortOrder = field, order
			}

			s, err := openGrid(args[0])
			if err != nil {
				return err
			}
			st := s.tracker.Snapshot()

			rows := st.Rows
			switch {
			case pendingOnly:
				rows = append(append([]grid.Row{}, st.PendingNew...), st.PendingUpdated...)
			case selectedOnly:
				rows = st.SelectedRows()
			}

			page, meta, err := pagination.PageRows(rows, params)
			if err != nil {
				return err
			}

			listing := gridListing{
				Grid:           s.name,
				Rows:           page,
				PendingNew:     grid.IDs(st.PendingNew),
				PendingUpdated: grid.IDs(st.PendingUpdated),
				Selected:       append([]string{}, st.Selected...),
				Pagination:     meta,
			}
			return render(cmd, listing, func() string {
				out := tui.RenderChangeSet(s.name, st, page, precision())
				if meta.TotalPages > 1 {
					out += fmt.Sprintf("\npage %d of %d (%d rows)", meta.CurrentPage, meta.TotalPages, meta.TotalItems)
				}
				return out
			})
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "show only rows pending save")
	cmd.Flags().BoolVar(&selectedOnly, "selected", false, "show only selected rows")
	cmd.MarkFlagsMutuallyExclusive("pending", "selected")
	cmd.Flags().StringVar(&sortExpr, "sort", "", "sort by field[:asc|desc]")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "maximum rows to show (0 = all)")
	cmd.Flags().IntVar(&params.Offset, "offset", 0, "rows to skip")
	cmd.Flags().IntVar(&params.Page, "page", 0, "1-based page number")
	cmd.Flags().IntVar(&params.PageSize, "page-size", 0, "rows per page")
	return cmd
}

// NewGridPayloadCmd creates the grid payload command.
func NewGridPayloadCmd() *cobra.Command {
	var deletion bool

	cmd := &cobra.Command{
		Use:   "payload <grid>",
		Short: "Print the save or delete payload without submitting it",
		Long: `Prints the payload grid submit would send. Save payloads hold createdRows
and updatedRows after the grid's field mappers run. Delete payloads (--delete)
split the selection into newRows, dropped locally, and existingRows, the
persisted ids sent to the backend.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openGrid(args[0])
			if err != nil {
				return err
			}

			format := outputFormat(cmd)
			if format == config.FormatTable {
				format = config.FormatJSON
			}

			if deletion {
				payload, delErr := s.tracker.DeletePayload()
				if delErr != nil {
					return delErr
				}
				return writeStructured(cmd.OutOrStdout(), format, payload)
			}

			payload, err := savePayload(s)
			if err != nil {
				return err
			}
			return writeStructured(cmd.OutOrStdout(), format, payload)
		},
	}

	cmd.Flags().BoolVar(&deletion, "delete", false, "print the delete payload for the selected rows")
	return cmd
}

// savePayload maps the pending sets with the grid's field mappers. Coercion
// failures are reported instead of being sent.
func savePayload(s *gridSession) (grid.SavePayload[grid.Row, grid.Row], error) {
	st := s.tracker.Snapshot()
	create, update := s.grid.CreateMapper(), s.grid.UpdateMapper()
	if err := create.Check(st.PendingNew); err != nil {
		return grid.SavePayload[grid.Row, grid.Row]{}, fmt.Errorf("%s: %w", s.name, err)
	}
	if err := update.Check(st.PendingUpdated); err != nil {
		return grid.SavePayload[grid.Row, grid.Row]{}, fmt.Errorf("%s: %w", s.name, err)
	}
	return s.tracker.SavePayload(create.Map, update.Map), nil
}
