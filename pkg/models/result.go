package models

import "time"

// ColumnInfo describes a single result column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult is the raw outcome of executing one statement. It is
// request-scoped and never persisted.
type QueryResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	Duration time.Duration    `json:"-"`
	// Truncated is set when the row cap cut the result short. A truncated
	// result is marked, never silently passed off as complete.
	Truncated bool `json:"truncated,omitempty"`
}

// Empty reports whether the result carries no rows.
func (r *QueryResult) Empty() bool {
	return r == nil || len(r.Rows) == 0
}
