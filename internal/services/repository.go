// Package services provides repository interfaces and SQLite implementations
// for the fleet entities. Each repository exclusively owns the rows of its
// table; the tool engine talks to storage only through these interfaces.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ListOptions controls pagination for list queries.
type ListOptions struct {
	Limit  int // Max results (default 50, max 1000).
	Offset int // Number of results to skip.
}

// ListResult wraps a result set with the total number of matching rows.
type ListResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Sentinel errors returned by repositories. Entity-specific not-found errors
// wrap ErrNotFound so callers can match either.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnavailable   = errors.New("storage unavailable")

	ErrDeviceNotFound   = fmt.Errorf("device %w", ErrNotFound)
	ErrSettingsNotFound = fmt.Errorf("device settings %w", ErrNotFound)
	ErrNetworkNotFound  = fmt.Errorf("wifi network %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
)

// MaxListLimit caps every list query.
const MaxListLimit = 1000

func normalizeListOptions(opts ListOptions) ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}

// now is the clock used for last_updated and similar stamps.
var now = func() time.Time { return time.Now().UTC() }

// timeLayout is fixed width so that lexical order on the stored text equals
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	return parseTime(ns.String)
}

// classify maps driver and context failures onto the package sentinels.
// notFound is used for foreign key violations, which in this schema always
// mean the referenced device does not exist.
func classify(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY && notFound != nil:
			return fmt.Errorf("%w: %w", notFound, err)
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
		case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	// Fall back on the message for drivers that report primary codes only.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed") && notFound != nil:
		return fmt.Errorf("%w: %w", notFound, err)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
