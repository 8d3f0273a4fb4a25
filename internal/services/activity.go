package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/devicedesk/internal/store"
	"github.com/HerbHall/devicedesk/pkg/models"
)

// ActivityQuery selects activities whose timestamp lies in [Start, End].
type ActivityQuery struct {
	Start        time.Time
	End          time.Time
	UserID       string // Optional; uses the primary (user_id, timestamp) key.
	ActivityType string // Optional; uses the (activity_type, timestamp) index.
	Limit        int
}

// UserActivityRepository is the append-only activity log. Entries are never
// updated or deleted.
type UserActivityRepository interface {
	// Append stores a new entry. If the timestamp is not later than the
	// user's most recent entry it is moved to one microsecond after it, so
	// timestamps stay strictly increasing per user. The stored timestamp is
	// written back into a.
	Append(ctx context.Context, a *models.UserActivity) error

	// QueryRange returns matching entries in ascending timestamp order.
	QueryRange(ctx context.Context, q ActivityQuery) (*ListResult[models.UserActivity], error)
}

// Compile-time interface guard.
var _ UserActivityRepository = (*SQLiteUserActivityRepository)(nil)

// SQLiteUserActivityRepository implements UserActivityRepository using SQLite.
type SQLiteUserActivityRepository struct {
	db    *sql.DB
	table string
}

// NewSQLiteUserActivityRepository creates a UserActivityRepository.
func NewSQLiteUserActivityRepository(db *sql.DB, table string) *SQLiteUserActivityRepository {
	return &SQLiteUserActivityRepository{db: db, table: table}
}

const activityColumns = `user_id, timestamp, activity_type, description, ip_address, device_id`

func (r *SQLiteUserActivityRepository) Append(ctx context.Context, a *models.UserActivity) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = now()
	}
	ts := a.Timestamp.UTC().Truncate(time.Microsecond)

	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var last sql.NullString
		//nolint:gosec // table name validated at construction
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(timestamp) FROM `+r.table+` WHERE user_id = ?`, a.UserID,
		).Scan(&last); err != nil {
			return fmt.Errorf("latest activity %q: %w", a.UserID, err)
		}
		if last.Valid {
			prev, err := parseTime(last.String)
			if err != nil {
				return err
			}
			if !ts.After(prev) {
				ts = prev.Add(time.Microsecond)
			}
		}

		//nolint:gosec // table name validated at construction
		_, err := tx.ExecContext(ctx, `
			INSERT INTO `+r.table+` (`+activityColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.UserID, formatTime(ts), a.ActivityType, a.Description, a.IPAddress, a.DeviceID,
		)
		if err != nil {
			return fmt.Errorf("append activity %q: %w", a.UserID, err)
		}
		return nil
	})
	if err != nil {
		return classify(err, nil)
	}
	a.Timestamp = ts
	return nil
}

func (r *SQLiteUserActivityRepository) QueryRange(ctx context.Context, q ActivityQuery) (*ListResult[models.UserActivity], error) {
	if q.End.Before(q.Start) {
		return nil, errors.New("query range: end before start")
	}
	opts := normalizeListOptions(ListOptions{Limit: q.Limit})

	where := "timestamp >= ? AND timestamp <= ?"
	args := []any{formatTime(q.Start), formatTime(q.End)}
	// Leading equality columns let SQLite pick the primary key when a user is
	// given and the activity_type index when only a type is.
	if q.ActivityType != "" {
		where = "activity_type = ? AND " + where
		args = append([]any{q.ActivityType}, args...)
	}
	if q.UserID != "" {
		where = "user_id = ? AND " + where
		args = append([]any{q.UserID}, args...)
	}

	var (
		total int
		items []models.UserActivity
	)
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		//nolint:gosec // where uses parameterized placeholders only
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+r.table+" WHERE "+where, args...,
		).Scan(&total); err != nil {
			return fmt.Errorf("count activities: %w", err)
		}

		//nolint:gosec // where uses parameterized placeholders only
		rows, err := tx.QueryContext(ctx,
			"SELECT "+activityColumns+" FROM "+r.table+" WHERE "+where+
				" ORDER BY timestamp ASC, user_id ASC LIMIT ?",
			append(args, opts.Limit)...,
		)
		if err != nil {
			return fmt.Errorf("query activities: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var a models.UserActivity
			var ts string
			if err := rows.Scan(&a.UserID, &ts, &a.ActivityType, &a.Description, &a.IPAddress, &a.DeviceID); err != nil {
				return fmt.Errorf("scan activity: %w", err)
			}
			if a.Timestamp, err = parseTime(ts); err != nil {
				return err
			}
			items = append(items, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify(err, nil)
	}
	if items == nil {
		items = []models.UserActivity{}
	}
	return &ListResult[models.UserActivity]{Items: items, Total: total}, nil
}
