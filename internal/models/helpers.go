package models

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so model functions can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isUniqueViolation checks if a SQLite error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && (errContains(err, "UNIQUE constraint failed") || errContains(err, "constraint failed: UNIQUE"))
}

// errContains checks whether an error's message contains the given substring.
func errContains(err error, substr string) bool {
	return err != nil && strings.Contains(err.Error(), substr)
}

// normalizeDate trims any time suffix from a date string (e.g. "2025-01-01T00:00:00Z" → "2025-01-01").
func normalizeDate(d string) string {
	if len(d) >= 10 {
		return d[:10]
	}
	return d
}

// nullString maps the empty string to NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullInt64 maps a nil pointer to NULL.
func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullFloat64(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
