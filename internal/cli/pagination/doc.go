// Package pagination provides sorting and paging for grid row listings.
//
// It contains:
//   - PaginationParams: CLI flag parsing and validation
//   - PaginationMeta: response metadata for paginated results
//   - RowSorter: numeric-aware sorting of grid rows by any field
//
// Every mesgrid command that lists rows (grid show, grid payload) pages
// through this package so --sort, --limit, --offset, --page and --page-size
// behave the same everywhere.
package pagination
