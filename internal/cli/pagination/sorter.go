package pagination

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rshade/mesgrid/internal/grid"
)

// Sorter sorts grid rows by a field.
type Sorter interface {
	// Sort returns a sorted copy of rows.
	Sort(rows []grid.Row, field, order string) []grid.Row
	// IsValidField checks if the given field name can be sorted on.
	IsValidField(field string) bool
	// GetValidFields returns the sortable field names.
	GetValidFields() []string
}

// RowSorter implements Sorter for grid rows. Fields are discovered from the
// rows themselves.
type RowSorter struct {
	validFields map[string]bool
}

// NewRowSorter creates a sorter accepting every field present in rows.
func NewRowSorter(rows []grid.Row) *RowSorter {
	fields := map[string]bool{grid.IDField: true}
	for _, r := range rows {
		for k := range r {
			fields[k] = true
		}
	}
	return &RowSorter{validFields: fields}
}

// IsValidField checks if the field is valid for sorting.
func (s *RowSorter) IsValidField(field string) bool {
	return s.validFields[field]
}

// GetValidFields returns all valid sort fields.
func (s *RowSorter) GetValidFields() []string {
	fields := make([]string, 0, len(s.validFields))
	for field := range s.validFields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Sort sorts rows by field and order and returns a new slice.
// If field is invalid, returns the original slice unchanged.
// Numbers sort before strings; rows missing the field sort last.
func (s *RowSorter) Sort(rows []grid.Row, field, order string) []grid.Row {
	if !s.IsValidField(field) {
		return rows
	}

	sorted := make([]grid.Row, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		vi, okI := sorted[i][field]
		vj, okJ := sorted[j][field]
		// Missing values stay last regardless of order.
		if !okI || !okJ {
			return okI && !okJ
		}
		if order == SortOrderDesc {
			vi, vj = vj, vi
		}
		return compareValues(vi, vj) < 0
	})

	return sorted
}

// compareValues orders numbers numerically, numeric strings as numbers, and
// everything else by its string form.
func compareValues(a, b any) int {
	fa, aNum := numeric(a)
	fb, bNum := numeric(b)
	switch {
	case aNum && bNum:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ParseSortExpression parses a sort expression in "field:order" format.
// Supports:
//   - "field" - defaults to asc order
//   - "field:asc" - explicit ascending order
//   - "field:desc" - explicit descending order
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSortExpression(expr string) (field, order string, err error) {
	if strings.TrimSpace(expr) == "" {
		return "", "", errors.New("empty sort expression")
	}
	return ParseSort(expr)
}
