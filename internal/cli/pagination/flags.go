package pagination

import (
	"errors"
	"fmt"
	"strings"
)

// Sort orders accepted by --sort.
const (
	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

// Common validation errors.
var (
	ErrInvalidSortOrder  = errors.New("sort order must be 'asc' or 'desc'")
	ErrInvalidSortFormat = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'qty:desc')")
	ErrEmptySortField    = errors.New("sort field cannot be empty")
	ErrInvalidSortField  = errors.New("invalid sort field")
)

// PaginationParams holds CLI pagination flags and provides validation.
// Supports two pagination modes:
//   - Offset-based: --limit and --offset
//   - Page-based: --page and --page-size
//
// These modes are mutually exclusive.
//
//nolint:revive // PaginationParams is the canonical name for this exported type.
type PaginationParams struct {
	// Limit is the maximum number of results to return (offset-based mode).
	Limit int

	// Offset is the number of results to skip (offset-based mode).
	Offset int

	// Page is the 1-based page number (page-based mode).
	Page int

	// PageSize is the number of results per page (page-based mode).
	PageSize int

	// SortField is the row field to sort by (e.g., "qty", "orderNo").
	SortField string

	// SortOrder is the sort direction: "asc" or "desc".
	SortOrder string
}

// Validate checks if the pagination parameters are valid and consistent (value receiver).
// Returns an error if validation fails.
func (p PaginationParams) Validate() error {
	// Check basic bounds (negative values)
	if p.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if p.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	if p.Page < 0 {
		return errors.New("page cannot be negative")
	}
	if p.PageSize < 0 {
		return errors.New("page-size cannot be negative")
	}

	// Check mutual exclusion of page and offset (before pairing checks)
	if p.Page > 0 && p.Offset > 0 {
		return errors.New("page and offset parameters are mutually exclusive")
	}

	if p.Page == 0 && p.PageSize > 0 {
		return errors.New("page must be specified when using page-size: page must be >= 1")
	}
	if p.PageSize == 0 && p.Page > 0 {
		return errors.New("page-size must be specified when using page: page-size must be > 0")
	}

	return nil
}

// sortPartsMax is the maximum number of parts in a sort string (field:order).
const sortPartsMax = 2

// ParseSort parses a sort string in the format "field" or "field:order".
// Examples: "qty", "planQty:desc", "orderNo:asc"
// Returns the field name and order, or an error if invalid.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSort(sortStr string) (field, order string, err error) {
	if sortStr == "" {
		return "", SortOrderAsc, nil
	}

	parts := strings.Split(sortStr, ":")
	switch len(parts) {
	case 1:
		// Just field name, use default order
		field = strings.TrimSpace(parts[0])
		order = SortOrderAsc
	case sortPartsMax:
		// Field and order specified
		field = strings.TrimSpace(parts[0])
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, sortStr)
	}

	if field == "" {
		return "", "", ErrEmptySortField
	}

	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}

	return field, order, nil
}

// IsPageBased returns true if page-based pagination is active.
func (p PaginationParams) IsPageBased() bool {
	return p.Page > 0
}

// CalculateTotalPages calculates the total number of pages given a total result count.
// Only applicable for page-based mode. Returns 0 for offset-based mode.
func (p PaginationParams) CalculateTotalPages(totalResults int) int {
	if !p.IsPageBased() {
		return 0
	}
	if totalResults == 0 {
		return 0
	}
	pages := totalResults / p.PageSize
	if totalResults%p.PageSize > 0 {
		pages++
	}
	return pages
}

// CalculateOffsetLimit returns the effective offset and limit for pagination.
// Handles both page-based and offset-based pagination modes.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func (p PaginationParams) CalculateOffsetLimit() (offset, limit int) {
	if p.IsPageBased() {
		offset = (p.Page - 1) * p.PageSize
		// Use explicit limit if set, otherwise use page size
		if p.Limit > 0 {
			limit = p.Limit
		} else {
			limit = p.PageSize
		}
	} else {
		offset = p.Offset
		limit = p.Limit
	}

	return offset, limit
}

// Apply returns the page of items selected by p.
// For page-based pagination, a page beyond the end yields the last page.
func Apply[T any](p PaginationParams, items []T) []T {
	if len(items) == 0 {
		return items
	}

	offset, limit := p.CalculateOffsetLimit()

	if p.IsPageBased() && offset >= len(items) {
		pageSize := p.PageSize
		if pageSize <= 0 {
			pageSize = len(items)
		}
		offset = ((len(items) - 1) / pageSize) * pageSize
	}

	if offset >= len(items) {
		return []T{}
	}

	end := offset + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
