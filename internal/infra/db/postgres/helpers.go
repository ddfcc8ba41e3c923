package postgres

import (
	"database/sql"
	"strconv"
)

// placeholder renders the n-th positional bind parameter.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// nullString maps empty strings to SQL NULL for nullable columns.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
