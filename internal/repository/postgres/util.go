package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("not found")

func oneRow(rows pgx.Rows) bool {
	defer rows.Close()
	return rows.Next()
}

// timeOrZero maps a nullable timestamp column to the zero time.
func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
