package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/HerbHall/devicedesk/internal/services"
	"github.com/HerbHall/devicedesk/internal/testutil"
	"github.com/HerbHall/devicedesk/pkg/models"
)

func TestSQLiteDeviceSettingsRepository_GetIncludesDevice(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	testutil.SeedDevice(t, repos, testutil.NewDevice("DG-1"))
	testutil.SeedSettings(t, repos, "DG-1", map[string]any{"timezone": "UTC", "log_level": "info"})

	got, err := repos.Settings.Get(ctx, "DG-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Model != "TransPort WR31" {
		t.Errorf("Model = %q, want TransPort WR31", got.Model)
	}
	if got.Settings["timezone"] != "UTC" {
		t.Errorf("Settings[timezone] = %v, want UTC", got.Settings["timezone"])
	}
	if got.LastUpdated.IsZero() {
		t.Error("LastUpdated is zero")
	}
}

func TestSQLiteDeviceSettingsRepository_GetMissing(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	if _, err := repos.Settings.Get(ctx, "nope"); !errors.Is(err, services.ErrDeviceNotFound) {
		t.Errorf("Get missing device = %v, want ErrDeviceNotFound", err)
	}

	testutil.SeedDevice(t, repos, testutil.NewDevice("DG-1"))
	_, err := repos.Settings.Get(ctx, "DG-1")
	if !errors.Is(err, services.ErrSettingsNotFound) {
		t.Errorf("Get device without settings = %v, want ErrSettingsNotFound", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Errorf("ErrSettingsNotFound does not wrap ErrNotFound")
	}
}

func TestSQLiteDeviceSettingsRepository_CreateRequiresDevice(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)

	s := models.DeviceSettings{DeviceID: "ghost", Settings: map[string]any{"a": "b"}}
	err := repos.Settings.Create(context.Background(), &s)
	if !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Create for missing device = %v, want ErrNotFound", err)
	}
}

func TestSQLiteDeviceSettingsRepository_UpdateMergesAndReadsBack(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	testutil.SeedDevice(t, repos, testutil.NewDevice("DG-1"))
	testutil.SeedSettings(t, repos, "DG-1", map[string]any{"timezone": "UTC", "log_level": "info"})
	before, err := repos.Settings.Get(ctx, "DG-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if _, err := repos.Settings.Update(ctx, "DG-1", map[string]any{"log_level": "debug"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repos.Settings.Get(ctx, "DG-1")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.Settings["log_level"] != "debug" {
		t.Errorf("log_level = %v, want debug", got.Settings["log_level"])
	}
	if got.Settings["timezone"] != "UTC" {
		t.Errorf("timezone = %v, want unchanged UTC", got.Settings["timezone"])
	}
	if got.LastUpdated.Before(before.LastUpdated) {
		t.Errorf("LastUpdated went backwards: %v < %v", got.LastUpdated, before.LastUpdated)
	}
}

func TestSQLiteDeviceSettingsRepository_UpdateMissing(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	testutil.SeedDevice(t, repos, testutil.NewDevice("DG-1"))
	_, err := repos.Settings.Update(ctx, "DG-1", map[string]any{"x": 1})
	if !errors.Is(err, services.ErrSettingsNotFound) {
		t.Errorf("Update without settings row = %v, want ErrSettingsNotFound", err)
	}
	if _, err := repos.Settings.Get(ctx, "DG-1"); !errors.Is(err, services.ErrSettingsNotFound) {
		t.Errorf("conditional update created a settings row")
	}
}
