package services

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/HerbHall/devicedesk/internal/store"
)

// TableNames holds the physical table names of the five fleet tables.
type TableNames struct {
	Devices        string `mapstructure:"devices"`
	DeviceSettings string `mapstructure:"device_settings"`
	WifiNetworks   string `mapstructure:"wifi_networks"`
	Users          string `mapstructure:"users"`
	UserActivities string `mapstructure:"user_activities"`
}

// DefaultTableNames returns the table names used by the fleet deployment.
func DefaultTableNames() TableNames {
	return TableNames{
		Devices:        "Devices",
		DeviceSettings: "DeviceSettings",
		WifiNetworks:   "WifiNetworks",
		Users:          "Users",
		UserActivities: "UserActivities",
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Validate checks that every name is a plain SQL identifier. Table names are
// interpolated into statements, so nothing else is accepted.
func (n TableNames) Validate() error {
	names := map[string]string{
		"devices":         n.Devices,
		"device_settings": n.DeviceSettings,
		"wifi_networks":   n.WifiNetworks,
		"users":           n.Users,
		"user_activities": n.UserActivities,
	}
	seen := make(map[string]string, len(names))
	for key, name := range names {
		if !identRe.MatchString(name) {
			return fmt.Errorf("table name %s=%q is not a valid identifier", key, name)
		}
		if other, dup := seen[name]; dup {
			return fmt.Errorf("table name %q used for both %s and %s", name, other, key)
		}
		seen[name] = key
	}
	return nil
}

// Migrate creates the fleet tables. Safe to run on every start.
func Migrate(ctx context.Context, s *store.SQLiteStore, names TableNames) error {
	if err := names.Validate(); err != nil {
		return err
	}
	if err := s.Migrate(ctx, "fleet:"+names.Devices, fleetMigrations(names)); err != nil {
		return fmt.Errorf("fleet migrations: %w", err)
	}
	return nil
}

func fleetMigrations(n TableNames) []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create fleet tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
						device_id         TEXT PRIMARY KEY,
						name              TEXT NOT NULL DEFAULT '',
						model             TEXT NOT NULL DEFAULT '',
						firmware_version  TEXT NOT NULL DEFAULT '',
						connection_status TEXT NOT NULL DEFAULT 'Offline'
							CHECK (connection_status IN ('Connected', 'Dormant', 'Offline')),
						ip_address        TEXT NOT NULL DEFAULT '',
						mac_address       TEXT NOT NULL DEFAULT '',
						last_connected    TEXT
					)`, n.Devices),
					fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(connection_status)`, n.Devices, n.Devices),
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
						device_id    TEXT PRIMARY KEY REFERENCES %s(device_id) ON DELETE CASCADE,
						settings     TEXT NOT NULL DEFAULT '{}',
						last_updated TEXT NOT NULL
					)`, n.DeviceSettings, n.Devices),
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
						device_id       TEXT NOT NULL REFERENCES %s(device_id) ON DELETE CASCADE,
						network_id      TEXT NOT NULL,
						ssid            TEXT NOT NULL CHECK (length(ssid) BETWEEN 1 AND 32),
						security_type   TEXT NOT NULL
							CHECK (security_type IN ('WEP', 'WPA', 'WPA2', 'WPA3', 'Open')),
						enabled         INTEGER NOT NULL DEFAULT 1,
						channel         INTEGER NOT NULL DEFAULT 0,
						signal_strength INTEGER NOT NULL DEFAULT 0,
						last_updated    TEXT NOT NULL,
						PRIMARY KEY (device_id, network_id)
					)`, n.WifiNetworks, n.Devices),
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
						user_id    TEXT PRIMARY KEY,
						username   TEXT NOT NULL,
						email      TEXT NOT NULL DEFAULT '',
						first_name TEXT NOT NULL DEFAULT '',
						last_name  TEXT NOT NULL DEFAULT '',
						role       TEXT NOT NULL DEFAULT 'viewer',
						created_at TEXT NOT NULL,
						last_login TEXT
					)`, n.Users),
					fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_username ON %s(username)`, n.Users, n.Users),
					fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_email ON %s(email)`, n.Users, n.Users),
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
						user_id       TEXT NOT NULL,
						timestamp     TEXT NOT NULL,
						activity_type TEXT NOT NULL,
						description   TEXT NOT NULL DEFAULT '',
						ip_address    TEXT NOT NULL DEFAULT '',
						device_id     TEXT NOT NULL DEFAULT '',
						PRIMARY KEY (user_id, timestamp)
					)`, n.UserActivities),
					fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_type_ts ON %s(activity_type, timestamp)`, n.UserActivities, n.UserActivities),
					fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_ts ON %s(timestamp)`, n.UserActivities, n.UserActivities),
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// Repositories bundles one repository per fleet entity.
type Repositories struct {
	Devices    DeviceRepository
	Settings   DeviceSettingsRepository
	Wifi       WifiNetworkRepository
	Users      UserRepository
	Activities UserActivityRepository
}

// NewSQLiteRepositories builds all repositories over db. Migrate must have
// run for the same table names.
func NewSQLiteRepositories(db *sql.DB, names TableNames) *Repositories {
	return &Repositories{
		Devices:    NewSQLiteDeviceRepository(db, names.Devices),
		Settings:   NewSQLiteDeviceSettingsRepository(db, names.DeviceSettings, names.Devices),
		Wifi:       NewSQLiteWifiNetworkRepository(db, names.WifiNetworks, names.Devices),
		Users:      NewSQLiteUserRepository(db, names.Users),
		Activities: NewSQLiteUserActivityRepository(db, names.UserActivities),
	}
}
