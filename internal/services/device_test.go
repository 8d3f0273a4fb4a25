package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/HerbHall/devicedesk/internal/services"
	"github.com/HerbHall/devicedesk/internal/testutil"
	"github.com/HerbHall/devicedesk/pkg/models"
)

func TestSQLiteDeviceRepository_CreateAndGet(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	d := testutil.NewDevice("DG-10016", testutil.WithName("Lobby Router"))
	if err := repos.Devices.Create(ctx, &d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repos.Devices.Get(ctx, "DG-10016")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Lobby Router" {
		t.Errorf("Name = %q, want %q", got.Name, "Lobby Router")
	}
	if got.ConnectionStatus != models.ConnectionConnected {
		t.Errorf("ConnectionStatus = %q, want Connected", got.ConnectionStatus)
	}
	if !got.LastConnected.Equal(d.LastConnected) {
		t.Errorf("LastConnected = %v, want %v", got.LastConnected, d.LastConnected)
	}
}

func TestSQLiteDeviceRepository_CreateDuplicate(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	testutil.SeedDevice(t, repos, testutil.NewDevice("DG-1"))
	d := testutil.NewDevice("DG-1")
	err := repos.Devices.Create(ctx, &d)
	if !errors.Is(err, services.ErrAlreadyExists) {
		t.Errorf("Create duplicate = %v, want ErrAlreadyExists", err)
	}
}

func TestSQLiteDeviceRepository_GetNotFound(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)

	_, err := repos.Devices.Get(context.Background(), "nonexistent-id")
	if !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Get nonexistent = %v, want ErrNotFound", err)
	}
	if !errors.Is(err, services.ErrDeviceNotFound) {
		t.Errorf("Get nonexistent = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteDeviceRepository_ListFilterByStatus(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	fixtures := []struct {
		id     string
		status models.ConnectionStatus
	}{
		{"DG-1", models.ConnectionConnected},
		{"DG-2", models.ConnectionDormant},
		{"DG-3", models.ConnectionOffline},
		{"DG-4", models.ConnectionDormant},
		{"DG-5", models.ConnectionConnected},
		{"DG-6", models.ConnectionDormant},
	}
	want := map[string]bool{}
	for _, f := range fixtures {
		testutil.SeedDevice(t, repos, testutil.NewDevice(f.id, testutil.WithStatus(f.status)))
		if f.status == models.ConnectionDormant {
			want[f.id] = true
		}
	}

	res, err := repos.Devices.List(ctx, services.DeviceFilter{ConnectionStatus: models.ConnectionDormant}, services.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != len(want) || len(res.Items) != len(want) {
		t.Fatalf("List returned %d items (total %d), want %d", len(res.Items), res.Total, len(want))
	}
	for _, d := range res.Items {
		if !want[d.ID] {
			t.Errorf("unexpected device %s with status %s", d.ID, d.ConnectionStatus)
		}
		delete(want, d.ID)
	}
	if len(want) != 0 {
		t.Errorf("missing devices: %v", want)
	}
}

func TestSQLiteDeviceRepository_ListOrderAndLimit(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	for _, id := range []string{"DG-3", "DG-1", "DG-2"} {
		testutil.SeedDevice(t, repos, testutil.NewDevice(id))
	}

	res, err := repos.Devices.List(ctx, services.DeviceFilter{}, services.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("Total = %d, want 3", res.Total)
	}
	if len(res.Items) != 2 || res.Items[0].ID != "DG-1" || res.Items[1].ID != "DG-2" {
		t.Errorf("Items = %+v, want DG-1, DG-2", res.Items)
	}
}

func TestSQLiteDeviceRepository_ListEmpty(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)

	res, err := repos.Devices.List(context.Background(), services.DeviceFilter{}, services.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Items == nil {
		t.Error("Items is nil, want empty slice")
	}
}

func TestSQLiteDeviceRepository_UpdatePartial(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	testutil.SeedDevice(t, repos, testutil.NewDevice("DG-1", testutil.WithName("old")))

	fw := "9.0.0"
	got, err := repos.Devices.Update(ctx, "DG-1", services.DeviceUpdate{FirmwareVersion: &fw})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.FirmwareVersion != "9.0.0" {
		t.Errorf("FirmwareVersion = %q, want 9.0.0", got.FirmwareVersion)
	}
	if got.Name != "old" {
		t.Errorf("Name = %q, want unchanged %q", got.Name, "old")
	}
}

func TestSQLiteDeviceRepository_UpdateNotFound(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	name := "ghost"
	_, err := repos.Devices.Update(ctx, "missing", services.DeviceUpdate{Name: &name})
	if !errors.Is(err, services.ErrDeviceNotFound) {
		t.Fatalf("Update missing = %v, want ErrDeviceNotFound", err)
	}

	// The conditional write must not have created the row.
	if _, err := repos.Devices.Get(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Get after failed update = %v, want ErrNotFound", err)
	}
}
