package grid

import (
	"errors"
	"fmt"
)

// State transition errors.
var (
	// ErrNotUnpersisted indicates an added row that does not carry a temporary id.
	ErrNotUnpersisted = errors.New("added row must carry a temporary id")

	// ErrDuplicateID indicates an added row whose id is already in the grid.
	ErrDuplicateID = errors.New("row id already exists")

	// ErrUnknownAction indicates an action type Reduce does not handle.
	ErrUnknownAction = errors.New("unknown grid action")
)

// State is the complete change-tracking state of one grid instance.
// Values are treated as immutable: Reduce never mutates its input.
type State struct {
	// Rows is the full row list shown in the grid.
	Rows []Row `json:"rows"`

	// PendingNew holds unpersisted rows awaiting creation, unique by id.
	PendingNew []Row `json:"pending_new"`

	// PendingUpdated holds persisted rows awaiting modification, unique by id.
	PendingUpdated []Row `json:"pending_updated"`

	// Selected holds the ids of the currently selected rows.
	Selected []string `json:"selected,omitempty"`
}

// NewState returns an empty state with non-nil collections.
func NewState() State {
	return State{
		Rows:           []Row{},
		PendingNew:     []Row{},
		PendingUpdated: []Row{},
	}
}

// HasPending reports whether any row awaits a save.
func (s State) HasPending() bool {
	return len(s.PendingNew) > 0 || len(s.PendingUpdated) > 0
}

// Row returns the row with the given id from the full list.
func (s State) Row(id string) (Row, bool) {
	if i := indexOf(s.Rows, id); i >= 0 {
		return s.Rows[i], true
	}
	return nil, false
}

// SelectedRows returns the selected rows in selection order.
func (s State) SelectedRows() []Row {
	out := make([]Row, 0, len(s.Selected))
	for _, id := range s.Selected {
		if r, ok := s.Row(id); ok {
			out = append(out, r)
		}
	}
	return out
}

// Action is a state transition understood by Reduce.
type Action interface {
	gridAction()
}

// EditRow records a user edit of an existing grid row.
type EditRow struct {
	Row      Row
	Previous Row
}

// AddRow appends a freshly created blank row.
type AddRow struct {
	Row Row
}

// SelectRows replaces the current selection. Unknown ids are ignored.
type SelectRows struct {
	IDs []string
}

// SaveCompleted clears both pending sets after the backend accepted a save.
// Assigned maps temporary ids to the ids the backend created for them.
type SaveCompleted struct {
	Assigned map[string]string
}

// SaveAcknowledged records the part of a failed save the backend committed.
// Assigned rows take their new ids and leave Pending-New; Updated ids leave
// Pending-Updated. Everything else stays pending.
type SaveAcknowledged struct {
	Assigned map[string]string
	Updated  []string
}

// DeleteCompleted removes deleted rows from every collection.
type DeleteCompleted struct {
	IDs []string
}

// LoadRows replaces the full list with freshly fetched rows and clears all
// pending changes and the selection.
type LoadRows struct {
	Rows []Row
}

func (EditRow) gridAction()          {}
func (AddRow) gridAction()           {}
func (SelectRows) gridAction()       {}
func (SaveCompleted) gridAction()    {}
func (SaveAcknowledged) gridAction() {}
func (DeleteCompleted) gridAction()  {}
func (LoadRows) gridAction()         {}

// Reduce applies action to s and returns the resulting state. On error the
// returned state is s unchanged.
func Reduce(s State, action Action) (State, error) {
	switch a := action.(type) {
	case EditRow:
		return reduceEdit(s, a)
	case AddRow:
		return reduceAdd(s, a)
	case SelectRows:
		return reduceSelect(s, a), nil
	case SaveCompleted:
		return reduceSaveCompleted(s, a), nil
	case SaveAcknowledged:
		return reduceSaveAcknowledged(s, a), nil
	case DeleteCompleted:
		return reduceDeleteCompleted(s, a), nil
	case LoadRows:
		return reduceLoad(s, a)
	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
}

func reduceEdit(s State, a EditRow) (State, error) {
	c, err := Classify(a.Row)
	if err != nil {
		return s, err
	}

	stored := a.Row.Clone()
	next := s
	next.Rows = replaceRow(s.Rows, c.ID, stored)
	switch c.Kind {
	case KindNew:
		next.PendingNew = upsertRow(s.PendingNew, c.ID, stored)
	case KindPersisted:
		next.PendingUpdated = upsertRow(s.PendingUpdated, c.ID, stored)
	}
	return next, nil
}

func reduceAdd(s State, a AddRow) (State, error) {
	c, err := Classify(a.Row)
	if err != nil {
		return s, err
	}
	if c.Kind != KindNew {
		return s, fmt.Errorf("%w: %q", ErrNotUnpersisted, c.ID)
	}
	if indexOf(s.Rows, c.ID) >= 0 {
		return s, fmt.Errorf("%w: %q", ErrDuplicateID, c.ID)
	}

	stored := a.Row.Clone()
	next := s
	next.Rows = append(cloneRows(s.Rows), stored)
	next.PendingNew = upsertRow(s.PendingNew, c.ID, stored)
	return next, nil
}

func reduceSelect(s State, a SelectRows) State {
	seen := make(map[string]struct{}, len(a.IDs))
	selected := make([]string, 0, len(a.IDs))
	for _, id := range a.IDs {
		if _, dup := seen[id]; dup {
			continue
		}
		if indexOf(s.Rows, id) < 0 {
			continue
		}
		seen[id] = struct{}{}
		selected = append(selected, id)
	}

	next := s
	next.Selected = selected
	return next
}

func reduceSaveCompleted(s State, a SaveCompleted) State {
	next := renameRows(s, a.Assigned)
	next.PendingNew = []Row{}
	next.PendingUpdated = []Row{}
	return next
}

func reduceSaveAcknowledged(s State, a SaveAcknowledged) State {
	created := make(map[string]struct{}, len(a.Assigned))
	for tempID := range a.Assigned {
		created[tempID] = struct{}{}
	}

	next := renameRows(s, a.Assigned)
	next.PendingNew = removeRows(s.PendingNew, created)
	next.PendingUpdated = removeRows(s.PendingUpdated, idSet(a.Updated))
	return next
}

// renameRows replaces temporary ids in Rows and Selected.
func renameRows(s State, assigned map[string]string) State {
	next := s
	if len(assigned) == 0 {
		return next
	}

	next.Rows = make([]Row, len(s.Rows))
	for i, r := range s.Rows {
		id, _ := r.ID()
		if newID, ok := assigned[id]; ok {
			r = r.Clone()
			r[IDField] = newID
		}
		next.Rows[i] = r
	}

	next.Selected = make([]string, len(s.Selected))
	for i, id := range s.Selected {
		if newID, ok := assigned[id]; ok {
			id = newID
		}
		next.Selected[i] = id
	}
	return next
}

func reduceDeleteCompleted(s State, a DeleteCompleted) State {
	drop := idSet(a.IDs)

	next := s
	next.Rows = removeRows(s.Rows, drop)
	next.PendingNew = removeRows(s.PendingNew, drop)
	next.PendingUpdated = removeRows(s.PendingUpdated, drop)

	selected := make([]string, 0, len(s.Selected))
	for _, id := range s.Selected {
		if _, gone := drop[id]; !gone {
			selected = append(selected, id)
		}
	}
	next.Selected = selected
	return next
}

func reduceLoad(s State, a LoadRows) (State, error) {
	rows := make([]Row, 0, len(a.Rows))
	seen := make(map[string]struct{}, len(a.Rows))
	for i, r := range a.Rows {
		id, err := rowID(r)
		if err != nil {
			return s, fmt.Errorf("row %d: %w", i, err)
		}
		if _, dup := seen[id]; dup {
			return s, fmt.Errorf("row %d: %w: %q", i, ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
		rows = append(rows, r.Clone())
	}

	next := NewState()
	next.Rows = rows
	return next, nil
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows), len(rows)+1)
	copy(out, rows)
	return out
}
