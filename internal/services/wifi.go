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

// WifiNetworkUpdate carries the mutable network fields. Nil fields are left as is.
type WifiNetworkUpdate struct {
	SSID           *string
	SecurityType   *models.SecurityType
	Enabled        *bool
	Channel        *int
	SignalStrength *int
}

// WifiNetworkRepository provides access to the WiFi networks of each device.
type WifiNetworkRepository interface {
	// List returns the networks of a device ordered by network ID.
	// A missing device yields ErrDeviceNotFound.
	List(ctx context.Context, deviceID string) (*ListResult[models.WifiNetwork], error)

	// Get returns one network by its composite key.
	Get(ctx context.Context, deviceID, networkID string) (*models.WifiNetwork, error)

	// Create inserts a network for an existing device.
	Create(ctx context.Context, network *models.WifiNetwork) error

	// Update applies upd to an existing network and reports the row before
	// and after the write. ErrDeviceNotFound and ErrNetworkNotFound tell the
	// two missing-key cases apart.
	Update(ctx context.Context, deviceID, networkID string, upd WifiNetworkUpdate) (before, after *models.WifiNetwork, err error)
}

// Compile-time interface guard.
var _ WifiNetworkRepository = (*SQLiteWifiNetworkRepository)(nil)

// SQLiteWifiNetworkRepository implements WifiNetworkRepository using SQLite.
type SQLiteWifiNetworkRepository struct {
	db      *sql.DB
	table   string
	devices string
}

// NewSQLiteWifiNetworkRepository creates a WifiNetworkRepository.
func NewSQLiteWifiNetworkRepository(db *sql.DB, table, devices string) *SQLiteWifiNetworkRepository {
	return &SQLiteWifiNetworkRepository{db: db, table: table, devices: devices}
}

const wifiColumns = `device_id, network_id, ssid, security_type, enabled,
	channel, signal_strength, last_updated`

func (r *SQLiteWifiNetworkRepository) List(ctx context.Context, deviceID string) (*ListResult[models.WifiNetwork], error) {
	var networks []models.WifiNetwork
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.deviceExists(ctx, tx, deviceID); err != nil {
			return err
		}
		//nolint:gosec // table name validated at construction
		rows, err := tx.QueryContext(ctx,
			`SELECT `+wifiColumns+` FROM `+r.table+` WHERE device_id = ? ORDER BY network_id ASC`,
			deviceID)
		if err != nil {
			return fmt.Errorf("list wifi networks %q: %w", deviceID, err)
		}
		defer rows.Close()

		for rows.Next() {
			n, err := scanWifiNetwork(rows)
			if err != nil {
				return err
			}
			networks = append(networks, *n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify(err, nil)
	}
	if networks == nil {
		networks = []models.WifiNetwork{}
	}
	return &ListResult[models.WifiNetwork]{Items: networks, Total: len(networks)}, nil
}

func (r *SQLiteWifiNetworkRepository) Get(ctx context.Context, deviceID, networkID string) (*models.WifiNetwork, error) {
	var out *models.WifiNetwork
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		n, err := r.get(ctx, tx, deviceID, networkID)
		out = n
		return err
	})
	if err != nil {
		return nil, classify(err, nil)
	}
	return out, nil
}

func (r *SQLiteWifiNetworkRepository) get(ctx context.Context, tx *sql.Tx, deviceID, networkID string) (*models.WifiNetwork, error) {
	//nolint:gosec // table name validated at construction
	n, err := scanWifiNetwork(tx.QueryRowContext(ctx,
		`SELECT `+wifiColumns+` FROM `+r.table+` WHERE device_id = ? AND network_id = ?`,
		deviceID, networkID))
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get wifi network %s/%s: %w", deviceID, networkID, err)
	}
	if err := r.deviceExists(ctx, tx, deviceID); err != nil {
		return nil, err
	}
	return nil, ErrNetworkNotFound
}

func (r *SQLiteWifiNetworkRepository) deviceExists(ctx context.Context, tx *sql.Tx, deviceID string) error {
	var one int
	//nolint:gosec // table name validated at construction
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM `+r.devices+` WHERE device_id = ?`, deviceID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDeviceNotFound
	}
	if err != nil {
		return fmt.Errorf("check device %q: %w", deviceID, err)
	}
	return nil
}

func (r *SQLiteWifiNetworkRepository) Create(ctx context.Context, n *models.WifiNetwork) error {
	if n.LastUpdated.IsZero() {
		n.LastUpdated = now()
	}
	//nolint:gosec // table name validated at construction
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO `+r.table+` (`+wifiColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.DeviceID, n.NetworkID, n.SSID, string(n.SecurityType), n.Enabled,
		n.Channel, n.SignalStrength, formatTime(n.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("create wifi network %s/%s: %w", n.DeviceID, n.NetworkID, classify(err, ErrDeviceNotFound))
	}
	return nil
}

func (r *SQLiteWifiNetworkRepository) Update(ctx context.Context, deviceID, networkID string, upd WifiNetworkUpdate) (before, after *models.WifiNetwork, err error) {
	set := []string{"last_updated = ?"}
	args := []any{formatTime(now())}
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if upd.SSID != nil {
		add("ssid", *upd.SSID)
	}
	if upd.SecurityType != nil {
		add("security_type", string(*upd.SecurityType))
	}
	if upd.Enabled != nil {
		add("enabled", *upd.Enabled)
	}
	if upd.Channel != nil {
		add("channel", *upd.Channel)
	}
	if upd.SignalStrength != nil {
		add("signal_strength", *upd.SignalStrength)
	}

	err = store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		prev, err := r.get(ctx, tx, deviceID, networkID)
		if err != nil {
			return err
		}

		// The WHERE clause is the existence precondition: a vanished row
		// must not be recreated by the update.
		//nolint:gosec // column names are fixed above
		res, err := tx.ExecContext(ctx,
			"UPDATE "+r.table+" SET "+strings.Join(set, ", ")+" WHERE device_id = ? AND network_id = ?",
			append(args, deviceID, networkID)...,
		)
		if err != nil {
			return fmt.Errorf("update wifi network %s/%s: %w", deviceID, networkID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNetworkNotFound
		}

		cur, err := r.get(ctx, tx, deviceID, networkID)
		if err != nil {
			return err
		}
		before, after = prev, cur
		return nil
	})
	if err != nil {
		return nil, nil, classify(err, nil)
	}
	return before, after, nil
}

func scanWifiNetwork(row rowScanner) (*models.WifiNetwork, error) {
	var n models.WifiNetwork
	var security, lastUpdated string
	err := row.Scan(
		&n.DeviceID, &n.NetworkID, &n.SSID, &security, &n.Enabled,
		&n.Channel, &n.SignalStrength, &lastUpdated,
	)
	if err != nil {
		return nil, err
	}
	n.SecurityType = models.SecurityType(security)
	if n.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return nil, err
	}
	return &n, nil
}
