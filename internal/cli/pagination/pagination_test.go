package pagination

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/mesgrid/internal/grid"
)

func TestPaginationParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		params PaginationParams
		errMsg string
	}{
		{name: "valid zero value", params: PaginationParams{}},
		{name: "valid offset mode", params: PaginationParams{Limit: 10, Offset: 20}},
		{name: "valid page mode", params: PaginationParams{Page: 2, PageSize: 10}},
		{name: "negative limit", params: PaginationParams{Limit: -1}, errMsg: "limit cannot be negative"},
		{name: "negative offset", params: PaginationParams{Offset: -1}, errMsg: "offset cannot be negative"},
		{name: "negative page", params: PaginationParams{Page: -1}, errMsg: "page cannot be negative"},
		{name: "mixed modes", params: PaginationParams{Page: 1, PageSize: 5, Offset: 10}, errMsg: "mutually exclusive"},
		{name: "page-size without page", params: PaginationParams{PageSize: 10}, errMsg: "page must be specified"},
		{name: "page without page-size", params: PaginationParams{Page: 2}, errMsg: "page-size must be specified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		input     string
		wantField string
		wantOrder string
		wantErr   error
	}{
		{input: "", wantField: "", wantOrder: "asc"},
		{input: "qty", wantField: "qty", wantOrder: "asc"},
		{input: "qty:DESC", wantField: "qty", wantOrder: "desc"},
		{input: " orderNo : asc ", wantField: "orderNo", wantOrder: "asc"},
		{input: "qty:up", wantErr: ErrInvalidSortOrder},
		{input: ":desc", wantErr: ErrEmptySortField},
		{input: "a:b:c", wantErr: ErrInvalidSortFormat},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			field, order, err := ParseSort(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantField, field)
			assert.Equal(t, tt.wantOrder, order)
		})
	}

	_, _, err := ParseSortExpression("  ")
	assert.EqualError(t, err, "empty sort expression")
}

func TestApply(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name   string
		params PaginationParams
		want   []int
	}{
		{name: "limit only", params: PaginationParams{Limit: 3}, want: []int{1, 2, 3}},
		{name: "offset and limit", params: PaginationParams{Limit: 3, Offset: 5}, want: []int{6, 7}},
		{name: "offset beyond end", params: PaginationParams{Offset: 10}, want: []int{}},
		{name: "no limit", params: PaginationParams{Offset: 4}, want: []int{5, 6, 7}},
		{name: "second page", params: PaginationParams{Page: 2, PageSize: 3}, want: []int{4, 5, 6}},
		{name: "page beyond end caps to last", params: PaginationParams{Page: 9, PageSize: 3}, want: []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.params, items))
		})
	}

	assert.Empty(t, Apply(PaginationParams{Limit: 1}, []string{}))
}

func TestCalculateTotalPages(t *testing.T) {
	assert.Equal(t, 3, PaginationParams{Page: 1, PageSize: 3}.CalculateTotalPages(7))
	assert.Equal(t, 0, PaginationParams{Page: 1, PageSize: 3}.CalculateTotalPages(0))
	assert.Equal(t, 0, PaginationParams{Limit: 3}.CalculateTotalPages(7))
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(PaginationParams{Limit: 10, Offset: 20}, 45)
	assert.Equal(t, PaginationMeta{
		CurrentPage: 3,
		PageSize:    10,
		TotalPages:  5,
		TotalItems:  45,
		HasPrevious: true,
		HasNext:     true,
	}, meta)

	single := NewPaginationMeta(PaginationParams{}, 4)
	assert.Equal(t, 1, single.TotalPages)
	assert.False(t, single.HasNext)
}

func sampleRows() []grid.Row {
	return []grid.Row{
		{"id": "3", "itemCode": "B-200", "qty": 10.0},
		{"id": "1", "itemCode": "A-100", "qty": "9"},
		{"id": "NEW_1", "itemCode": "C-300"},
		{"id": "2", "itemCode": "A-100", "qty": 100},
	}
}

func ids(rows []grid.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = grid.IDOf(r)
	}
	return out
}

func TestRowSorter(t *testing.T) {
	rows := sampleRows()
	s := NewRowSorter(rows)

	assert.Equal(t, []string{"id", "itemCode", "qty"}, s.GetValidFields())
	assert.False(t, s.IsValidField("price"))

	t.Run("numeric ascending with missing last", func(t *testing.T) {
		assert.Equal(t, []string{"1", "3", "2", "NEW_1"}, ids(s.Sort(rows, "qty", SortOrderAsc)))
	})

	t.Run("numeric descending with missing last", func(t *testing.T) {
		assert.Equal(t, []string{"2", "3", "1", "NEW_1"}, ids(s.Sort(rows, "qty", SortOrderDesc)))
	})

	t.Run("string ascending is stable", func(t *testing.T) {
		assert.Equal(t, []string{"1", "2", "3", "NEW_1"}, ids(s.Sort(rows, "itemCode", SortOrderAsc)))
	})

	t.Run("numbers before strings", func(t *testing.T) {
		assert.Equal(t, []string{"1", "2", "3", "NEW_1"}, ids(s.Sort(rows, "id", SortOrderAsc)))
	})

	t.Run("invalid field returns input", func(t *testing.T) {
		assert.Equal(t, ids(rows), ids(s.Sort(rows, "price", SortOrderAsc)))
	})

	assert.Equal(t, "3", grid.IDOf(rows[0]), "input is not reordered")
}

func TestRowSorter_JSONNumbers(t *testing.T) {
	rows := []grid.Row{
		{"id": "a", "qty": json.Number("10")},
		{"id": "b", "qty": 9},
		{"id": "c", "qty": json.Number("9.5")},
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids(NewRowSorter(rows).Sort(rows, "qty", SortOrderAsc)))
}

func TestPageRows(t *testing.T) {
	got, meta, err := PageRows(sampleRows(), PaginationParams{
		Limit:     2,
		SortField: "qty",
		SortOrder: SortOrderDesc,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(got))
	assert.Equal(t, 4, meta.TotalItems)
	assert.True(t, meta.HasNext)

	_, _, err = PageRows(sampleRows(), PaginationParams{SortField: "price", SortOrder: SortOrderAsc})
	require.ErrorIs(t, err, ErrInvalidSortField)
	assert.Contains(t, err.Error(), "valid: id, itemCode, qty")

	_, _, err = PageRows(sampleRows(), PaginationParams{Limit: -1})
	assert.Error(t, err)
}
