package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/HerbHall/devicedesk/internal/store"
	"github.com/HerbHall/devicedesk/pkg/models"
	"github.com/google/uuid"
)

// UserUpdate carries the mutable user fields. Nil fields are left as is.
type UserUpdate struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Role      *string
	LastLogin *bool // true stamps last_login with the current time
}

// UserRepository provides access to user accounts.
type UserRepository interface {
	// Get returns a single user by ID.
	Get(ctx context.Context, id string) (*models.User, error)

	// GetByUsername returns a user by username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// List returns users ordered by creation time, then ID.
	List(ctx context.Context, opts ListOptions) (*ListResult[models.User], error)

	// Create inserts a new user. If user.ID is empty, a UUID is generated.
	// A taken username yields ErrAlreadyExists.
	Create(ctx context.Context, user *models.User) error

	// Update applies the non-nil fields of upd to an existing user.
	Update(ctx context.Context, id string, upd UserUpdate) (*models.User, error)
}

// Compile-time interface guard.
var _ UserRepository = (*SQLiteUserRepository)(nil)

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db    *sql.DB
	table string
}

// NewSQLiteUserRepository creates a UserRepository over the named table.
func NewSQLiteUserRepository(db *sql.DB, table string) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db, table: table}
}

const userColumns = `user_id, username, email, first_name, last_name, role,
	created_at, last_login`

func (r *SQLiteUserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	//nolint:gosec // table name validated at construction
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM `+r.table+` WHERE user_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %q: %w", id, classify(err, nil))
	}
	return u, nil
}

func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	//nolint:gosec // table name validated at construction
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM `+r.table+` WHERE username = ?`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by username %q: %w", username, classify(err, nil))
	}
	return u, nil
}

func (r *SQLiteUserRepository) List(ctx context.Context, opts ListOptions) (*ListResult[models.User], error) {
	opts = normalizeListOptions(opts)

	var (
		total int
		users []models.User
	)
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		//nolint:gosec // table name validated at construction
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+r.table).Scan(&total); err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		//nolint:gosec // table name validated at construction
		rows, err := tx.QueryContext(ctx,
			`SELECT `+userColumns+` FROM `+r.table+` ORDER BY created_at ASC, user_id ASC LIMIT ? OFFSET ?`,
			opts.Limit, opts.Offset)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, *u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify(err, nil)
	}
	if users == nil {
		users = []models.User{}
	}
	return &ListResult[models.User]{Items: users, Total: total}, nil
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	if user.Role == "" {
		user.Role = "viewer"
	}

	//nolint:gosec // table name validated at construction
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO `+r.table+` (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.FirstName, user.LastName,
		user.Role, formatTime(user.CreatedAt), formatNullTime(user.LastLogin),
	)
	if err != nil {
		return fmt.Errorf("create user %q: %w", user.Username, classify(err, nil))
	}
	return nil
}

func (r *SQLiteUserRepository) Update(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	set := []string{}
	var args []any
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.Role != nil {
		add("role", *upd.Role)
	}
	if upd.LastLogin != nil && *upd.LastLogin {
		add("last_login", formatTime(now()))
	}

	var out *models.User
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if len(set) > 0 {
			//nolint:gosec // column names are fixed above
			res, err := tx.ExecContext(ctx,
				"UPDATE "+r.table+" SET "+strings.Join(set, ", ")+" WHERE user_id = ?",
				append(args, id)...,
			)
			if err != nil {
				return fmt.Errorf("update user %q: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrUserNotFound
			}
		}
		//nolint:gosec // table name validated at construction
		u, err := scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM `+r.table+` WHERE user_id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		out = u
		return err
	})
	if err != nil {
		return nil, classify(err, nil)
	}
	return out, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var createdAt string
	var lastLogin sql.NullString

	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.Role, &createdAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.LastLogin, err = parseNullTime(lastLogin); err != nil {
		return nil, err
	}
	return &u, nil
}
