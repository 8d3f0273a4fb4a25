package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/HerbHall/devicedesk/internal/store"
	"github.com/HerbHall/devicedesk/pkg/models"
)

// DeviceSettingsRepository provides access to per-device configuration maps.
type DeviceSettingsRepository interface {
	// Get returns the settings of a device together with the device's name,
	// model and firmware. A missing device yields ErrDeviceNotFound, a device
	// without settings yields ErrSettingsNotFound.
	Get(ctx context.Context, deviceID string) (*models.DeviceSettings, error)

	// Create stores the initial settings of an existing device.
	Create(ctx context.Context, settings *models.DeviceSettings) error

	// Update merges values into the existing settings map. Keys not present
	// in values are kept. The record must already exist.
	Update(ctx context.Context, deviceID string, values map[string]any) (*models.DeviceSettings, error)
}

// Compile-time interface guard.
var _ DeviceSettingsRepository = (*SQLiteDeviceSettingsRepository)(nil)

// SQLiteDeviceSettingsRepository implements DeviceSettingsRepository using SQLite.
type SQLiteDeviceSettingsRepository struct {
	db      *sql.DB
	table   string
	devices string
}

// NewSQLiteDeviceSettingsRepository creates a DeviceSettingsRepository.
// devices names the table the settings rows reference.
func NewSQLiteDeviceSettingsRepository(db *sql.DB, table, devices string) *SQLiteDeviceSettingsRepository {
	return &SQLiteDeviceSettingsRepository{db: db, table: table, devices: devices}
}

func (r *SQLiteDeviceSettingsRepository) Get(ctx context.Context, deviceID string) (*models.DeviceSettings, error) {
	s, err := r.get(ctx, r.db, deviceID)
	if err != nil {
		return nil, classify(err, nil)
	}
	return s, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteDeviceSettingsRepository) get(ctx context.Context, q queryer, deviceID string) (*models.DeviceSettings, error) {
	var (
		s           models.DeviceSettings
		raw         sql.NullString
		lastUpdated sql.NullString
	)
	//nolint:gosec // table names validated at construction
	err := q.QueryRowContext(ctx, `
		SELECT d.device_id, d.name, d.model, d.firmware_version, s.settings, s.last_updated
		FROM `+r.devices+` d
		LEFT JOIN `+r.table+` s ON s.device_id = d.device_id
		WHERE d.device_id = ?`, deviceID,
	).Scan(&s.DeviceID, &s.Name, &s.Model, &s.FirmwareVersion, &raw, &lastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("get settings %q: %w", deviceID, err)
	}
	if !raw.Valid {
		return nil, ErrSettingsNotFound
	}
	if err := json.Unmarshal([]byte(raw.String), &s.Settings); err != nil {
		return nil, fmt.Errorf("decode settings %q: %w", deviceID, err)
	}
	if s.Settings == nil {
		s.Settings = map[string]any{}
	}
	if s.LastUpdated, err = parseNullTime(lastUpdated); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteDeviceSettingsRepository) Create(ctx context.Context, settings *models.DeviceSettings) error {
	if settings.Settings == nil {
		settings.Settings = map[string]any{}
	}
	raw, err := json.Marshal(settings.Settings)
	if err != nil {
		return fmt.Errorf("encode settings %q: %w", settings.DeviceID, err)
	}
	if settings.LastUpdated.IsZero() {
		settings.LastUpdated = now()
	}
	//nolint:gosec // table name validated at construction
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO `+r.table+` (device_id, settings, last_updated) VALUES (?, ?, ?)`,
		settings.DeviceID, string(raw), formatTime(settings.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("create settings %q: %w", settings.DeviceID, classify(err, ErrDeviceNotFound))
	}
	return nil
}

func (r *SQLiteDeviceSettingsRepository) Update(ctx context.Context, deviceID string, values map[string]any) (*models.DeviceSettings, error) {
	var out *models.DeviceSettings
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, err := r.get(ctx, tx, deviceID)
		if err != nil {
			return err
		}

		merged := make(map[string]any, len(cur.Settings)+len(values))
		maps.Copy(merged, cur.Settings)
		maps.Copy(merged, values)
		raw, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode settings %q: %w", deviceID, err)
		}

		stamp := now()
		//nolint:gosec // table name validated at construction
		res, err := tx.ExecContext(ctx,
			`UPDATE `+r.table+` SET settings = ?, last_updated = ? WHERE device_id = ?`,
			string(raw), formatTime(stamp), deviceID,
		)
		if err != nil {
			return fmt.Errorf("update settings %q: %w", deviceID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrSettingsNotFound
		}

		cur.Settings = merged
		cur.LastUpdated = stamp.Truncate(time.Microsecond)
		out = cur
		return nil
	})
	if err != nil {
		return nil, classify(err, nil)
	}
	return out, nil
}
