package pagination

import (
	"fmt"
	"strings"

	"github.com/rshade/mesgrid/internal/grid"
)

// PageRows sorts rows by p.SortField (when set) and returns the requested
// page with its metadata.
func PageRows(rows []grid.Row, p PaginationParams) ([]grid.Row, PaginationMeta, error) {
	if err := p.Validate(); err != nil {
		return nil, PaginationMeta{}, err
	}

	if p.SortField != "" {
		sorter := NewRowSorter(rows)
		if !sorter.IsValidField(p.SortField) {
			return nil, PaginationMeta{}, fmt.Errorf("%w: %q (valid: %s)",
				ErrInvalidSortField, p.SortField, strings.Join(sorter.GetValidFields(), ", "))
		}
		rows = sorter.Sort(rows, p.SortField, p.SortOrder)
	}

	return Apply(p, rows), NewPaginationMeta(p, len(rows)), nil
}
