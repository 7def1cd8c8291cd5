package shared

import "strings"

// Paging bounds for list queries
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter is the paging and ordering part of a list query. A zero PageSize
// returns every match.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// DefaultFilter lists the first page by ascending due date
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: DefaultPageSize,
		OrderBy:  "due_date",
		OrderDir: "asc",
	}
}

// WithPage returns f moved to page with size rows per page. Non-positive
// values keep the current ones and size is capped at MaxPageSize.
func (f Filter) WithPage(page, size int) Filter {
	if page > 0 {
		f.Page = page
	}
	if size > 0 {
		f.PageSize = min(size, MaxPageSize)
	}
	return f
}

// WithOrder returns f ordered by field in dir; empty values keep the current ones.
// The store decides which fields it can sort by.
func (f Filter) WithOrder(field, dir string) Filter {
	if field = strings.TrimSpace(field); field != "" {
		f.OrderBy = field
	}
	if dir = strings.TrimSpace(dir); dir != "" {
		f.OrderDir = strings.ToLower(dir)
	}
	return f
}

// Descending reports whether the order direction is desc
func (f Filter) Descending() bool {
	return strings.EqualFold(f.OrderDir, "desc")
}

// Offset returns the number of rows before the current page
func (f Filter) Offset() int {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
