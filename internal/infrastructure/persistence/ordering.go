package persistence

import (
	"strings"

	"github.com/backoffice/installments/internal/domain/shared"
)

// sortColumns maps the sort keys a client may ask for onto table columns.
// Anything else falls back, so client input never reaches ORDER BY.
type sortColumns map[string]string

// obligationSortColumns are the sortable obligation columns
var obligationSortColumns = sortColumns{
	"id":               "id",
	"created_at":       "created_at",
	"updated_at":       "updated_at",
	"document_id":      "document_id",
	"sequence_number":  "sequence_number",
	"due_date":         "due_date",
	"principal_amount": "principal_amount",
	"pending_amount":   "pending_amount",
	"status":           "status",
	"currency":         "currency",
}

// column returns the column for key, or fallback when key is not sortable
func (s sortColumns) column(key, fallback string) string {
	if col, ok := s[strings.TrimSpace(key)]; ok {
		return col
	}
	return fallback
}

// orderBy renders the ORDER BY term for filter, "due_date ASC"
func (s sortColumns) orderBy(filter shared.Filter, fallback string) string {
	dir := "ASC"
	if filter.Descending() {
		dir = "DESC"
	}
	return s.column(filter.OrderBy, fallback) + " " + dir
}
