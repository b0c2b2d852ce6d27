package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned by mutations that target a missing row. Getters
// return nil, nil instead.
var ErrNotFound = errors.New("record not found")

func newDB(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, "sqlite")
}

func newID() string {
	return uuid.NewString()
}

// now returns the creation stamp stored in created_at columns. Nanosecond
// precision keeps newest-first ordering stable for rows created back to back.
func now() int64 {
	return time.Now().UTC().UnixNano()
}

func fromStamp(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
