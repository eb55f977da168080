package grid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustReduce(t *testing.T, s State, actions ...Action) State {
	t.Helper()
	for _, a := range actions {
		var err error
		s, err = Reduce(s, a)
		require.NoError(t, err)
	}
	return s
}

func TestReduce_EditReplacesInPlace(t *testing.T) {
	s := mustReduce(t, NewState(),
		AddRow{Row: Row{"id": "NEW_1", "qty": 0}},
		EditRow{Row: Row{"id": "NEW_1", "qty": 5}},
		EditRow{Row: Row{"id": "NEW_1", "qty": 9}},
	)

	want := []Row{{"id": "NEW_1", "qty": 9}}
	if diff := cmp.Diff(want, s.PendingNew); diff != "" {
		t.Errorf("PendingNew mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, s.Rows); diff != "" {
		t.Errorf("Rows mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, s.PendingUpdated)
}

func TestReduce_EditPersistedRow(t *testing.T) {
	s := mustReduce(t, NewState(),
		LoadRows{Rows: []Row{
			{"id": "10", "qty": 1},
			{"id": "11", "qty": 2},
			{"id": "12", "qty": 3},
		}},
		EditRow{Row: Row{"id": "12", "qty": 30}, Previous: Row{"id": "12", "qty": 3}},
		EditRow{Row: Row{"id": "10", "qty": 10}, Previous: Row{"id": "10", "qty": 1}},
		EditRow{Row: Row{"id": "12", "qty": 31}, Previous: Row{"id": "12", "qty": 30}},
	)

	want := []Row{{"id": "12", "qty": 31}, {"id": "10", "qty": 10}}
	if diff := cmp.Diff(want, s.PendingUpdated); diff != "" {
		t.Errorf("PendingUpdated mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, s.PendingNew)
	assert.Equal(t, Row{"id": "11", "qty": 2}, s.Rows[1])
	assert.Equal(t, Row{"id": "12", "qty": 31}, s.Rows[2])
}

func TestReduce_IDInAtMostOnePendingSet(t *testing.T) {
	s := mustReduce(t, NewState(),
		LoadRows{Rows: []Row{{"id": "1"}, {"id": "2"}}},
		AddRow{Row: Row{"id": "NEW_1"}},
		EditRow{Row: Row{"id": "1", "a": 1}},
		EditRow{Row: Row{"id": "NEW_1", "a": 2}},
		EditRow{Row: Row{"id": "2", "a": 3}},
		EditRow{Row: Row{"id": "1", "a": 4}},
	)

	newIDs := IDs(s.PendingNew)
	for _, id := range IDs(s.PendingUpdated) {
		assert.NotContains(t, newIDs, id)
	}
	assert.Equal(t, []string{"NEW_1"}, newIDs)
	assert.Equal(t, []string{"1", "2"}, IDs(s.PendingUpdated))
}

func TestReduce_EditUnknownRowLeavesListUnchanged(t *testing.T) {
	s := mustReduce(t, NewState(),
		LoadRows{Rows: []Row{{"id": "1"}}},
		EditRow{Row: Row{"id": "99", "qty": 1}},
	)

	assert.Equal(t, []Row{{"id": "1"}}, s.Rows)
	assert.Equal(t, []string{"99"}, IDs(s.PendingUpdated))
}

func TestReduce_EditErrorsLeaveStateUntouched(t *testing.T) {
	start := mustReduce(t, NewState(), AddRow{Row: Row{"id": "NEW_1", "qty": 1}})

	got, err := Reduce(start, EditRow{Row: Row{"qty": 2}})
	require.ErrorIs(t, err, ErrMissingID)
	assert.Equal(t, start, got)

	got, err = Reduce(start, EditRow{Row: Row{"id": 5}})
	require.ErrorIs(t, err, ErrInvalidID)
	assert.Equal(t, start, got)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	start := mustReduce(t, NewState(),
		LoadRows{Rows: []Row{{"id": "1", "qty": 1}}},
		EditRow{Row: Row{"id": "1", "qty": 2}},
	)
	snapshot := cmp.Diff(State{}, start)

	_ = mustReduce(t, start,
		EditRow{Row: Row{"id": "1", "qty": 3}},
		AddRow{Row: Row{"id": "NEW_9"}},
	)

	assert.Equal(t, snapshot, cmp.Diff(State{}, start))
	assert.Equal(t, 2, start.PendingUpdated[0]["qty"])
}

func TestReduce_EditStoresCopy(t *testing.T) {
	r := Row{"id": "NEW_1", "qty": 1}
	s := mustReduce(t, NewState(), AddRow{Row: r})
	r["qty"] = 100

	assert.Equal(t, 1, s.Rows[0]["qty"])
	assert.Equal(t, 1, s.PendingNew[0]["qty"])
}

func TestReduce_Add(t *testing.T) {
	t.Run("rejects persisted id", func(t *testing.T) {
		_, err := Reduce(NewState(), AddRow{Row: Row{"id": "42"}})
		assert.ErrorIs(t, err, ErrNotUnpersisted)
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		s := mustReduce(t, NewState(), AddRow{Row: Row{"id": "NEW_1"}})
		_, err := Reduce(s, AddRow{Row: Row{"id": "NEW_1"}})
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("appends to rows and pending new", func(t *testing.T) {
		s := mustReduce(t, NewState(),
			LoadRows{Rows: []Row{{"id": "1"}}},
			AddRow{Row: Row{"id": "NEW_1"}},
			AddRow{Row: Row{"id": "NEW_2"}},
		)
		assert.Equal(t, []string{"1", "NEW_1", "NEW_2"}, IDs(s.Rows))
		assert.Equal(t, []string{"NEW_1", "NEW_2"}, IDs(s.PendingNew))
	})
}

func TestReduce_Select(t *testing.T) {
	s := mustReduce(t, NewState(),
		LoadRows{Rows: []Row{{"id": "1"}, {"id": "2"}, {"id": "3"}}},
		SelectRows{IDs: []string{"3", "missing", "1", "3"}},
	)

	assert.Equal(t, []string{"3", "1"}, s.Selected)
	assert.Equal(t, []string{"3", "1"}, IDs(s.SelectedRows()))
}

func TestReduce_SaveCompleted(t *testing.T) {
	s := mustReduce(t, NewState(),
		LoadRows{Rows: []Row{{"id": "1"}}},
		AddRow{Row: Row{"id": "NEW_1", "qty": 4}},
		EditRow{Row: Row{"id": "1", "qty": 2}},
		SelectRows{IDs: []string{"NEW_1"}},
		SaveCompleted{Assigned: map[string]string{"NEW_1": "77"}},
	)

	assert.Empty(t, s.PendingNew)
	assert.Empty(t, s.PendingUpdated)
	assert.NotNil(t, s.PendingNew)
	assert.Equal(t, []string{"1", "77"}, IDs(s.Rows))
	assert.Equal(t, 4, s.Rows[1]["qty"])
	assert.Equal(t, []string{"77"}, s.Selected)
	assert.False(t, s.HasPending())
}

func TestReduce_SaveAcknowledged(t *testing.T) {
	s := mustReduce(t, NewState(),
		LoadRows{Rows: []Row{{"id": "1"}, {"id": "2"}}},
		AddRow{Row: Row{"id": "NEW_1", "qty": 4}},
		AddRow{Row: Row{"id": "NEW_2", "qty": 5}},
		EditRow{Row: Row{"id": "1", "qty": 2}},
		EditRow{Row: Row{"id": "2", "qty": 3}},
		SelectRows{IDs: []string{"NEW_1", "2"}},
		SaveAcknowledged{
			Assigned: map[string]string{"NEW_1": "77"},
			Updated:  []string{"1"},
		},
	)

	assert.Equal(t, []string{"1", "2", "77", "NEW_2"}, IDs(s.Rows))
	assert.Equal(t, []string{"NEW_2"}, IDs(s.PendingNew))
	assert.Equal(t, []string{"2"}, IDs(s.PendingUpdated))
	assert.Equal(t, []string{"77", "2"}, s.Selected)
	assert.True(t, s.HasPending())

	again := mustReduce(t, s, SaveAcknowledged{})
	if diff := cmp.Diff(s, again); diff != "" {
		t.Errorf("empty acknowledgement changed state (-want +got):\n%s", diff)
	}
}

func TestReduce_DeleteCompleted(t *testing.T) {
	s := mustReduce(t, NewState(),
		LoadRows{Rows: []Row{{"id": "1"}, {"id": "2"}}},
		AddRow{Row: Row{"id": "NEW_1"}},
		EditRow{Row: Row{"id": "2", "qty": 1}},
		SelectRows{IDs: []string{"2", "NEW_1", "1"}},
		DeleteCompleted{IDs: []string{"2", "NEW_1"}},
	)

	assert.Equal(t, []string{"1"}, IDs(s.Rows))
	assert.Empty(t, s.PendingNew)
	assert.Empty(t, s.PendingUpdated)
	assert.Equal(t, []string{"1"}, s.Selected)
}

func TestReduce_Load(t *testing.T) {
	start := mustReduce(t, NewState(), AddRow{Row: Row{"id": "NEW_1"}})

	t.Run("replaces everything", func(t *testing.T) {
		s := mustReduce(t, start, LoadRows{Rows: []Row{{"id": "5"}}})
		assert.Equal(t, []string{"5"}, IDs(s.Rows))
		assert.False(t, s.HasPending())
	})

	t.Run("rejects row without id", func(t *testing.T) {
		got, err := Reduce(start, LoadRows{Rows: []Row{{"id": "5"}, {"qty": 1}}})
		require.ErrorIs(t, err, ErrMissingID)
		assert.Contains(t, err.Error(), "row 1")
		assert.Equal(t, start, got)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := Reduce(start, LoadRows{Rows: []Row{{"id": "5"}, {"id": "5"}}})
		assert.ErrorIs(t, err, ErrDuplicateID)
	})
}

type bogusAction struct{ Action }

func TestReduce_UnknownAction(t *testing.T) {
	_, err := Reduce(NewState(), bogusAction{})
	assert.ErrorIs(t, err, ErrUnknownAction)
}
