package store

import (
	"database/sql"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by writes that target a missing or
	// soft-deleted row. Reads return nil, nil instead.
	ErrNotFound = errors.New("not found")
	// ErrNotOwner is returned when the acting user does not own the row.
	ErrNotOwner = errors.New("not owner")
)

type scanner interface{ Scan(...any) error }

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
