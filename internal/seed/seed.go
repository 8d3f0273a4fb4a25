// Package seed loads fleet fixtures from YAML into the repositories.
package seed

import (
	"cmp"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/HerbHall/devicedesk/internal/services"
	"github.com/HerbHall/devicedesk/pkg/models"
)

// Fixtures is the content of a fixture file.
type Fixtures struct {
	Devices        []models.Device         `yaml:"devices"`
	DeviceSettings []models.DeviceSettings `yaml:"device_settings"`
	WifiNetworks   []models.WifiNetwork    `yaml:"wifi_networks"`
	Users          []models.User           `yaml:"users"`
	UserActivities []models.UserActivity   `yaml:"user_activities"`
}

// ErrActivityOutOfOrder is returned by Apply for an activity fixture that is
// not later than the user's entries already in the log.
var ErrActivityOutOfOrder = errors.New("activity fixture out of order")

var latestTimestamp = time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC)

// Counts reports how many rows Apply inserted and skipped.
type Counts struct {
	Inserted int
	Skipped  int
}

//go:embed demo.yaml
var demoRawData []byte

// Demo returns the built-in demo fleet.
func Demo() (*Fixtures, error) {
	return Parse(demoRawData)
}

// LoadFile reads fixtures from a YAML file.
func LoadFile(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(raw)
}

// Parse decodes fixtures and checks enum fields.
func Parse(raw []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, d := range fx.Devices {
		s, ok := models.ParseConnectionStatus(string(d.ConnectionStatus))
		if !ok {
			return nil, fmt.Errorf("devices[%d] %s: invalid connection_status %q", i, d.ID, d.ConnectionStatus)
		}
		fx.Devices[i].ConnectionStatus = s
	}
	for i, n := range fx.WifiNetworks {
		s, ok := models.ParseSecurityType(string(n.SecurityType))
		if !ok {
			return nil, fmt.Errorf("wifi_networks[%d] %s/%s: invalid security_type %q", i, n.DeviceID, n.NetworkID, n.SecurityType)
		}
		fx.WifiNetworks[i].SecurityType = s
	}
	return &fx, nil
}

// Apply inserts fx in dependency order. Rows that already exist are
// skipped, so applying the same fixtures twice is harmless.
func Apply(ctx context.Context, repos *services.Repositories, fx *Fixtures, logger *zap.Logger) (Counts, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var c Counts
	track := func(kind, key string, err error) error {
		switch {
		case err == nil:
			c.Inserted++
			return nil
		case errors.Is(err, services.ErrAlreadyExists):
			c.Skipped++
			logger.Debug("fixture exists", zap.String("kind", kind), zap.String("key", key))
			return nil
		default:
			return fmt.Errorf("seed %s %s: %w", kind, key, err)
		}
	}

	for i := range fx.Devices {
		d := fx.Devices[i]
		if err := track("device", d.ID, repos.Devices.Create(ctx, &d)); err != nil {
			return c, err
		}
	}
	for i := range fx.DeviceSettings {
		s := fx.DeviceSettings[i]
		if err := track("device settings", s.DeviceID, repos.Settings.Create(ctx, &s)); err != nil {
			return c, err
		}
	}
	for i := range fx.WifiNetworks {
		n := fx.WifiNetworks[i]
		if err := track("wifi network", n.DeviceID+"/"+n.NetworkID, repos.Wifi.Create(ctx, &n)); err != nil {
			return c, err
		}
	}
	for i := range fx.Users {
		u := fx.Users[i]
		if err := track("user", u.Username, repos.Users.Create(ctx, &u)); err != nil {
			return c, err
		}
	}
	for _, a := range sortedActivities(fx.UserActivities) {
		key := a.UserID + "@" + a.Timestamp.Format(time.RFC3339Nano)
		exists, err := activityExists(ctx, repos.Activities, a)
		if err != nil {
			return c, fmt.Errorf("seed activity %s: %w", key, err)
		}
		if exists {
			c.Skipped++
			continue
		}
		if err := checkActivityOrder(ctx, repos.Activities, a); err != nil {
			return c, fmt.Errorf("seed activity %s: %w", key, err)
		}
		if err := track("activity", key, repos.Activities.Append(ctx, &a)); err != nil {
			return c, err
		}
	}

	logger.Info("fixtures applied", zap.Int("inserted", c.Inserted), zap.Int("skipped", c.Skipped))
	return c, nil
}

// sortedActivities returns a copy of in ordered by user, then timestamp, with
// timestamps at the microsecond precision the log stores. Entries without a
// timestamp keep their relative order after the dated ones of their user.
func sortedActivities(in []models.UserActivity) []models.UserActivity {
	out := make([]models.UserActivity, len(in))
	for i, a := range in {
		if !a.Timestamp.IsZero() {
			a.Timestamp = a.Timestamp.UTC().Truncate(time.Microsecond)
		}
		out[i] = a
	}
	slices.SortStableFunc(out, func(a, b models.UserActivity) int {
		if c := cmp.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		switch {
		case a.Timestamp.IsZero() && b.Timestamp.IsZero():
			return 0
		case a.Timestamp.IsZero():
			return 1
		case b.Timestamp.IsZero():
			return -1
		}
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// checkActivityOrder fails when the log already holds an entry of a's user
// at or after a's timestamp. Append would move a past that entry, so the
// stored history would no longer match the fixture.
func checkActivityOrder(ctx context.Context, repo services.UserActivityRepository, a models.UserActivity) error {
	if a.Timestamp.IsZero() {
		return nil
	}
	res, err := repo.QueryRange(ctx, services.ActivityQuery{
		Start:  a.Timestamp,
		End:    latestTimestamp,
		UserID: a.UserID,
		Limit:  1,
	})
	if err != nil {
		return err
	}
	if res.Total > 0 {
		return fmt.Errorf("%w: log already has %d entries of %s at or after %s",
			ErrActivityOutOfOrder, res.Total, a.UserID, a.Timestamp.Format(time.RFC3339Nano))
	}
	return nil
}

// activityExists reports whether the log already holds an entry of the same
// user and type at a's timestamp. The log is append-only, so this is the
// only way to keep reseeding from duplicating entries.
func activityExists(ctx context.Context, repo services.UserActivityRepository, a models.UserActivity) (bool, error) {
	if a.Timestamp.IsZero() {
		return false, nil
	}
	res, err := repo.QueryRange(ctx, services.ActivityQuery{
		Start:        a.Timestamp,
		End:          a.Timestamp,
		UserID:       a.UserID,
		ActivityType: a.ActivityType,
		Limit:        1,
	})
	if err != nil {
		return false, err
	}
	return res.Total > 0, nil
}
