package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUnpersisted(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"NEW_1", true},
		{"NEW_01J9ZQ4K6T", true},
		{"NEW_", true},
		{"42", false},
		{"new_1", false},
		{"XNEW_1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnpersisted(tt.id))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("new row", func(t *testing.T) {
		c, err := Classify(Row{"id": "NEW_7", "qty": 1})
		require.NoError(t, err)
		assert.Equal(t, KindNew, c.Kind)
		assert.Equal(t, "NEW_7", c.ID)
	})

	t.Run("persisted row", func(t *testing.T) {
		c, err := Classify(Row{"id": "BOM-0042"})
		require.NoError(t, err)
		assert.Equal(t, KindPersisted, c.Kind)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := Classify(Row{"qty": 1})
		assert.ErrorIs(t, err, ErrMissingID)
	})

	t.Run("non-string id", func(t *testing.T) {
		_, err := Classify(Row{"id": 42})
		assert.ErrorIs(t, err, ErrInvalidID)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := Classify(Row{"id": ""})
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "new", KindNew.String())
	assert.Equal(t, "persisted", KindPersisted.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestChangedFields(t *testing.T) {
	prev := Row{"id": "42", "qty": 5, "unit": "EA", "note": "x"}
	next := Row{"id": "42", "qty": 9, "unit": "EA", "lot": "L1"}

	assert.Equal(t, []string{"lot", "note", "qty"}, ChangedFields(prev, next))
	assert.Empty(t, ChangedFields(prev, prev))
	assert.Equal(t, []string{"id"}, ChangedFields(nil, Row{"id": "1"}))
}

func TestRowClone(t *testing.T) {
	r := Row{"id": "1", "qty": 2}
	c := r.Clone()
	c["qty"] = 3

	assert.Equal(t, 2, r["qty"])
	assert.Nil(t, Row(nil).Clone())
}
