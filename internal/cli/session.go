package cli

import (
	"fmt"

	"github.com/rshade/mesgrid/internal/config"
	"github.com/rshade/mesgrid/internal/grid"
	"github.com/rshade/mesgrid/internal/logging"
)

// gridSession is one grid's tracker restored from the draft store.
type gridSession struct {
	name    string
	cfg     *config.Config
	grid    config.GridConfig
	store   *config.DraftStore
	tracker *grid.Tracker
}

// openDraftStore loads the draft store named by the global configuration.
func openDraftStore(cfg *config.Config) (*config.DraftStore, error) {
	path, err := cfg.DraftsPath()
	if err != nil {
		return nil, err
	}
	store, err := config.NewDraftStore(path)
	if err != nil {
		return nil, err
	}
	if err = store.Load(); err != nil {
		return nil, fmt.Errorf("%w (run 'mesgrid grid discard --all' to reset)", err)
	}
	return store, nil
}

// openGrid restores the tracker for name from its draft.
func openGrid(name string) (*gridSession, error) {
	cfg := config.GetGlobalConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	gc, err := cfg.Grid(name)
	if err != nil {
		return nil, err
	}
	store, err := openDraftStore(cfg)
	if err != nil {
		return nil, err
	}

	st, _ := store.Get(name)
	tracker := grid.NewTracker(name, gc.Factory(st.Rows),
		grid.WithState(st),
		grid.WithLogger(logging.ComponentLogger(logger, "grid")),
	)

	return &gridSession{name: name, cfg: cfg, grid: gc, store: store, tracker: tracker}, nil
}

// save persists the tracker state back to the draft store.
func (s *gridSession) save() error {
	if err := s.store.Put(s.name, s.tracker.Snapshot()); err != nil {
		return err
	}
	if err := s.store.Save(); err != nil {
		return fmt.Errorf("saving draft for %s: %w", s.name, err)
	}
	return nil
}
