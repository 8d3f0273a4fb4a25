package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/devicedesk/internal/services"
	"github.com/HerbHall/devicedesk/pkg/models"
)

// NewDevice returns a Device with sensible defaults, suitable for test fixtures.
func NewDevice(id string, opts ...func(*models.Device)) models.Device {
	d := models.Device{
		ID:               id,
		Name:             "Router " + id,
		Model:            "TransPort WR31",
		FirmwareVersion:  "8.2.0.1",
		ConnectionStatus: models.ConnectionConnected,
		IPAddress:        "192.168.1.100",
		MACAddress:       "00:11:22:33:44:55",
		LastConnected:    time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithStatus sets the device connection status.
func WithStatus(s models.ConnectionStatus) func(*models.Device) {
	return func(d *models.Device) { d.ConnectionStatus = s }
}

// WithName sets the device name.
func WithName(name string) func(*models.Device) {
	return func(d *models.Device) { d.Name = name }
}

// NewNetwork returns a WPA2 network on deviceID with the given SSID.
func NewNetwork(deviceID, networkID, ssid string) models.WifiNetwork {
	return models.WifiNetwork{
		DeviceID:       deviceID,
		NetworkID:      networkID,
		SSID:           ssid,
		SecurityType:   models.SecurityWPA2,
		Enabled:        true,
		Channel:        6,
		SignalStrength: -55,
	}
}

// NewUser returns a User whose ID and username are both username.
func NewUser(username string) models.User {
	return models.User{
		ID:        username,
		Username:  username,
		Email:     username + "@example.com",
		Role:      "operator",
		CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// SeedDevice inserts d, failing the test on error.
func SeedDevice(t *testing.T, repos *services.Repositories, d models.Device) {
	t.Helper()
	if err := repos.Devices.Create(context.Background(), &d); err != nil {
		t.Fatalf("seed device %s: %v", d.ID, err)
	}
}

// SeedNetwork inserts n, failing the test on error.
func SeedNetwork(t *testing.T, repos *services.Repositories, n models.WifiNetwork) {
	t.Helper()
	if err := repos.Wifi.Create(context.Background(), &n); err != nil {
		t.Fatalf("seed network %s/%s: %v", n.DeviceID, n.NetworkID, err)
	}
}

// SeedSettings inserts settings for deviceID, failing the test on error.
func SeedSettings(t *testing.T, repos *services.Repositories, deviceID string, values map[string]any) {
	t.Helper()
	s := models.DeviceSettings{DeviceID: deviceID, Settings: values}
	if err := repos.Settings.Create(context.Background(), &s); err != nil {
		t.Fatalf("seed settings %s: %v", deviceID, err)
	}
}

// SeedActivity appends an activity at ts, failing the test on error.
func SeedActivity(t *testing.T, repos *services.Repositories, userID, activityType string, ts time.Time) models.UserActivity {
	t.Helper()
	a := models.UserActivity{
		UserID:       userID,
		Timestamp:    ts,
		ActivityType: activityType,
		Description:  activityType + " by " + userID,
	}
	if err := repos.Activities.Append(context.Background(), &a); err != nil {
		t.Fatalf("seed activity %s@%s: %v", userID, ts, err)
	}
	return a
}
