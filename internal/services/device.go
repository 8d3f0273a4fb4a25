package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/HerbHall/devicedesk/internal/store"
	"github.com/HerbHall/devicedesk/pkg/models"
)

// DeviceFilter controls which devices are returned by List.
type DeviceFilter struct {
	ConnectionStatus models.ConnectionStatus // Empty means any status.
}

// DeviceUpdate carries the mutable device fields. Nil fields are left as is.
// The device ID itself is immutable.
type DeviceUpdate struct {
	Name             *string
	Model            *string
	FirmwareVersion  *string
	ConnectionStatus *models.ConnectionStatus
	IPAddress        *string
	MACAddress       *string
}

// DeviceRepository provides access to the device inventory.
type DeviceRepository interface {
	// Get returns a single device by ID.
	Get(ctx context.Context, id string) (*models.Device, error)

	// List returns devices ordered by ID, optionally filtered by status.
	List(ctx context.Context, filter DeviceFilter, opts ListOptions) (*ListResult[models.Device], error)

	// Create inserts a new device. Duplicate IDs return ErrAlreadyExists.
	Create(ctx context.Context, device *models.Device) error

	// Update applies the non-nil fields of upd to an existing device.
	Update(ctx context.Context, id string, upd DeviceUpdate) (*models.Device, error)
}

// Compile-time interface guard.
var _ DeviceRepository = (*SQLiteDeviceRepository)(nil)

// SQLiteDeviceRepository implements DeviceRepository using SQLite.
type SQLiteDeviceRepository struct {
	db    *sql.DB
	table string
}

// NewSQLiteDeviceRepository creates a DeviceRepository over the named table.
func NewSQLiteDeviceRepository(db *sql.DB, table string) *SQLiteDeviceRepository {
	return &SQLiteDeviceRepository{db: db, table: table}
}

const deviceColumns = `device_id, name, model, firmware_version, connection_status,
	ip_address, mac_address, last_connected`

func (r *SQLiteDeviceRepository) Get(ctx context.Context, id string) (*models.Device, error) {
	//nolint:gosec // table name validated at construction
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM `+r.table+` WHERE device_id = ?`, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("get device %q: %w", id, classify(err, nil))
	}
	return d, nil
}

func (r *SQLiteDeviceRepository) List(ctx context.Context, filter DeviceFilter, opts ListOptions) (*ListResult[models.Device], error) {
	opts = normalizeListOptions(opts)

	where := "1=1"
	var args []any
	if filter.ConnectionStatus != "" {
		where += " AND connection_status = ?"
		args = append(args, string(filter.ConnectionStatus))
	}

	// Count and page inside one read transaction so both see the same snapshot.
	var (
		total   int
		devices []models.Device
	)
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		//nolint:gosec // where uses parameterized placeholders only
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+r.table+" WHERE "+where, args...,
		).Scan(&total); err != nil {
			return fmt.Errorf("count devices: %w", err)
		}

		queryArgs := append(append([]any{}, args...), opts.Limit, opts.Offset)
		//nolint:gosec // where and table are not user input
		rows, err := tx.QueryContext(ctx, fmt.Sprintf(
			"SELECT %s FROM %s WHERE %s ORDER BY device_id ASC LIMIT ? OFFSET ?",
			deviceColumns, r.table, where,
		), queryArgs...)
		if err != nil {
			return fmt.Errorf("list devices: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			d, err := scanDevice(rows)
			if err != nil {
				return err
			}
			devices = append(devices, *d)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate devices: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, nil)
	}
	if devices == nil {
		devices = []models.Device{}
	}

	return &ListResult[models.Device]{Items: devices, Total: total}, nil
}

func (r *SQLiteDeviceRepository) Create(ctx context.Context, device *models.Device) error {
	if device.ConnectionStatus == "" {
		device.ConnectionStatus = models.ConnectionOffline
	}
	//nolint:gosec // table name validated at construction
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO `+r.table+` (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID, device.Name, device.Model, device.FirmwareVersion,
		string(device.ConnectionStatus), device.IPAddress, device.MACAddress,
		formatNullTime(device.LastConnected),
	)
	if err != nil {
		return fmt.Errorf("create device %q: %w", device.ID, classify(err, nil))
	}
	return nil
}

func (r *SQLiteDeviceRepository) Update(ctx context.Context, id string, upd DeviceUpdate) (*models.Device, error) {
	set := []string{}
	var args []any
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Model != nil {
		add("model", *upd.Model)
	}
	if upd.FirmwareVersion != nil {
		add("firmware_version", *upd.FirmwareVersion)
	}
	if upd.ConnectionStatus != nil {
		add("connection_status", string(*upd.ConnectionStatus))
		if *upd.ConnectionStatus == models.ConnectionConnected {
			add("last_connected", formatTime(now()))
		}
	}
	if upd.IPAddress != nil {
		add("ip_address", *upd.IPAddress)
	}
	if upd.MACAddress != nil {
		add("mac_address", *upd.MACAddress)
	}

	var out *models.Device
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if len(set) > 0 {
			//nolint:gosec // column names are fixed above
			res, err := tx.ExecContext(ctx,
				"UPDATE "+r.table+" SET "+strings.Join(set, ", ")+" WHERE device_id = ?",
				append(args, id)...,
			)
			if err != nil {
				return fmt.Errorf("update device %q: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrDeviceNotFound
			}
		}
		//nolint:gosec // table name validated at construction
		d, err := scanDevice(tx.QueryRowContext(ctx,
			`SELECT `+deviceColumns+` FROM `+r.table+` WHERE device_id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDeviceNotFound
		}
		out = d
		return err
	})
	if err != nil {
		return nil, classify(err, nil)
	}
	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var d models.Device
	var status string
	var lastConnected sql.NullString
	err := row.Scan(
		&d.ID, &d.Name, &d.Model, &d.FirmwareVersion, &status,
		&d.IPAddress, &d.MACAddress, &lastConnected,
	)
	if err != nil {
		return nil, err
	}
	d.ConnectionStatus = models.ConnectionStatus(status)
	if d.LastConnected, err = parseNullTime(lastConnected); err != nil {
		return nil, err
	}
	return &d, nil
}
