package grid

import (
	"sync"

	"github.com/rs/zerolog"
)

// Tracker owns the change-tracking state of one grid instance. Every
// transition runs through Reduce under a lock, so edits apply in call order.
type Tracker struct {
	name    string
	factory *Factory
	logger  zerolog.Logger

	mu    sync.Mutex
	state State
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithState seeds the tracker, e.g. from a persisted draft.
func WithState(s State) Option {
	return func(t *Tracker) { t.state = s }
}

// WithLogger sets the tracker logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates a tracker for the named grid. A nil factory uses
// NewFactory(nil, nil).
func NewTracker(name string, factory *Factory, opts ...Option) *Tracker {
	if factory == nil {
		factory = NewFactory(nil, nil)
	}
	t := &Tracker{
		name:    name,
		factory: factory,
		logger:  zerolog.Nop(),
		state:   NewState(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With().Str("grid", name).Logger()
	return t
}

// Name returns the grid name.
func (t *Tracker) Name() string {
	return t.name
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Dispatch applies action to the tracked state.
func (t *Tracker) Dispatch(action Action) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, err := Reduce(t.state, action)
	if err != nil {
		t.logger.Debug().Err(err).Str("operation", "dispatch").Msgf("rejected %T", action)
		return err
	}
	t.state = next
	return nil
}

// Edit records next as the new version of prev and returns next unchanged.
func (t *Tracker) Edit(next, prev Row) (Row, error) {
	if err := t.Dispatch(EditRow{Row: next, Previous: prev}); err != nil {
		return nil, err
	}
	t.logger.Debug().
		Str("operation", "edit").
		Str("row_id", IDOf(next)).
		Strs("changed", ChangedFields(prev, next)).
		Msg("row edited")
	return next, nil
}

// Add creates a blank row, appends it to the grid and the Pending-New set,
// and returns it.
func (t *Tracker) Add() (Row, error) {
	r := t.factory.NewRow()
	if err := t.Dispatch(AddRow{Row: r}); err != nil {
		return nil, err
	}
	t.logger.Debug().Str("operation", "add").Str("row_id", IDOf(r)).Msg("row added")
	return r, nil
}

// Select replaces the selection with ids.
func (t *Tracker) Select(ids ...string) {
	// SelectRows never fails.
	_ = t.Dispatch(SelectRows{IDs: ids})
}

// SavePayload formats the pending sets with the given mappers.
func (t *Tracker) SavePayload(mapNew, mapUpdated Mapper[Row]) SavePayload[Row, Row] {
	s := t.Snapshot()
	return FormatSave(s.PendingNew, s.PendingUpdated, mapNew, mapUpdated)
}

// DeletePayload partitions the selected rows for deletion, mapping persisted
// rows to their ids.
func (t *Tracker) DeletePayload() (DeletePayload[string], error) {
	s := t.Snapshot()
	return FormatDelete(s.SelectedRows(), IDOf)
}
