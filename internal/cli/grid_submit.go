package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/mesgrid/internal/config"
	"github.com/rshade/mesgrid/internal/grid"
	"github.com/rshade/mesgrid/internal/logging"
	"github.com/rshade/mesgrid/internal/submit"
)

// submitResult is the structured output of grid submit.
type submitResult struct {
	Grid     string            `json:"grid"               yaml:"grid"`
	Created  int               `json:"created,omitempty"  yaml:"created,omitempty"`
	Updated  int               `json:"updated,omitempty"  yaml:"updated,omitempty"`
	Assigned map[string]string `json:"assigned,omitempty" yaml:"assigned,omitempty"`
	Deleted  []string          `json:"deleted,omitempty"  yaml:"deleted,omitempty"`
	Dropped  []string          `json:"dropped,omitempty"  yaml:"dropped,omitempty"`
}

// NewGridSubmitCmd creates the grid submit command.
func NewGridSubmitCmd() *cobra.Command {
	var deletion bool

	cmd := &cobra.Command{
		Use:   "submit <grid>",
		Short: "Send pending changes, or the selected deletions, to the backend",
		Long: `Sends pending rows to the grid's save mutation in batches: created rows
first, then updated rows. On success the pending sets are cleared and
temporary ids are replaced by the ids the backend assigned.

With --delete, selected rows that were never saved are dropped locally and
persisted rows are deleted through the grid's delete mutation. Rows the
backend confirmed are removed even if another batch failed.`,
		Example: `  # Save pending edits
  mesgrid grid submit bom

  # Delete the selected rows
  mesgrid grid submit defects --delete`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := lockSubmission(args[0])
			if err != nil {
				return err
			}
			defer release()

			s, err := openGrid(args[0])
			if err != nil {
				return err
			}

			client := submit.NewClient(s.cfg.Backend,
				submit.WithClientLogger(logging.ComponentLogger(logger, "graphql")))
			sub := submit.NewSubmitter(client, s.cfg.Backend, submit.WithLogger(logger))

			var res submitResult
			if deletion {
				res, err = submitDelete(cmd, s, sub)
			} else {
				res, err = submitSave(cmd, s, sub)
			}
			if saveErr := s.save(); saveErr != nil {
				return errors.Join(err, saveErr)
			}
			if err != nil {
				return remoteError(err)
			}

			return render(cmd, res, func() string {
				if deletion {
					return fmt.Sprintf("Deleted %d row(s) from %s, dropped %d unsaved row(s)",
						len(res.Deleted), s.name, len(res.Dropped))
				}
				return fmt.Sprintf("Saved %s: %d created, %d updated", s.name, res.Created, res.Updated)
			})
		},
	}

	cmd.Flags().BoolVar(&deletion, "delete", false, "delete the selected rows instead of saving")
	return cmd
}

func submitSave(cmd *cobra.Command, s *gridSession, sub *submit.Submitter) (submitResult, error) {
	res := submitResult{Grid: s.name}

	payload, err := savePayload(s)
	if err != nil {
		return res, err
	}
	if payload.IsEmpty() {
		return res, nil
	}

	st := s.tracker.Snapshot()
	out, err := sub.Save(cmd.Context(), submit.SaveRequest{
		Grid:       s.name,
		Mutation:   s.grid.SaveMutation,
		TempIDs:    grid.IDs(st.PendingNew),
		UpdatedIDs: grid.IDs(st.PendingUpdated),
		Payload:    payload,
	})
	if err != nil {
		if len(out.Assigned) == 0 && len(out.UpdatedIDs) == 0 {
			return res, err
		}
		logger.Warn().Str("grid", s.name).
			Int("created", len(out.Assigned)).
			Int("updated", len(out.UpdatedIDs)).
			Msg("save failed after some batches were committed; keeping only the rest pending")
		ack := grid.SaveAcknowledged{Assigned: out.Assigned, Updated: out.UpdatedIDs}
		return res, errors.Join(err, s.tracker.Dispatch(ack))
	}

	res.Created, res.Updated, res.Assigned = out.Created, out.Updated, out.Assigned
	return res, s.tracker.Dispatch(grid.SaveCompleted{Assigned: out.Assigned})
}

func submitDelete(cmd *cobra.Command, s *gridSession, sub *submit.Submitter) (submitResult, error) {
	res := submitResult{Grid: s.name}

	payload, err := s.tracker.DeletePayload()
	if err != nil {
		return res, err
	}

	res.Dropped = grid.IDs(payload.NewRows)
	deleted, err := sub.Delete(cmd.Context(), submit.DeleteRequest{
		Grid:     s.name,
		Mutation: s.grid.DeleteMutation,
		IDs:      payload.ExistingRows,
	})
	res.Deleted = deleted

	done := append(append([]string{}, res.Dropped...), deleted...)
	if dispatchErr := s.tracker.Dispatch(grid.DeleteCompleted{IDs: done}); dispatchErr != nil {
		return res, errors.Join(err, dispatchErr)
	}
	return res, err
}

// lockSubmission holds the per-grid submit lock next to the draft store, so
// a second mesgrid process cannot submit the same draft concurrently.
func lockSubmission(name string) (func(), error) {
	cfg := config.GetGlobalConfig()
	if _, err := cfg.Grid(name); err != nil {
		return nil, err
	}
	draftsPath, err := cfg.DraftsPath()
	if err != nil {
		return nil, err
	}

	guard := submit.NewGuard(func(key string) string {
		return config.SubmitLockPath(draftsPath, key)
	})
	release, err := guard.TryAcquire(name)
	if err != nil {
		return nil, remoteError(err)
	}
	return release, nil
}

// remoteError maps submit failures to exit codes.
func remoteError(err error) error {
	var gqlErr *submit.GraphQLError
	var httpErr *submit.HTTPError
	switch {
	case errors.Is(err, submit.ErrSubmitInProgress):
		return &ExitError{Code: ExitCodeConflict, Err: err}
	case errors.As(err, &gqlErr), errors.As(err, &httpErr):
		return &ExitError{Code: ExitCodeRemote, Err: err}
	default:
		return err
	}
}
