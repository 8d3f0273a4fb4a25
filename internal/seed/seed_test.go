package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/devicedesk/internal/services"
	"github.com/HerbHall/devicedesk/internal/testutil"
	"github.com/HerbHall/devicedesk/pkg/models"
)

func TestDemo_Parses(t *testing.T) {
	fx, err := Demo()
	require.NoError(t, err)
	assert.Len(t, fx.Devices, 4)
	assert.Len(t, fx.WifiNetworks, 3)
	assert.Equal(t, models.SecurityOpen, fx.WifiNetworks[1].SecurityType)
	assert.Equal(t, true, fx.DeviceSettings[0].Settings["dhcp_enabled"])
}

func TestApply_Demo(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()
	fx, err := Demo()
	require.NoError(t, err)

	c, err := Apply(ctx, repos, fx, testutil.Logger())
	require.NoError(t, err)
	assert.Equal(t, 4+2+3+2+5, c.Inserted)
	assert.Zero(t, c.Skipped)

	n, err := repos.Wifi.Get(ctx, "DG-10016", "WN-1016-1")
	require.NoError(t, err)
	assert.Equal(t, "HomeNetwork", n.SSID)

	res, err := repos.Activities.QueryRange(ctx, services.ActivityQuery{
		Start:  time.Date(2023, 6, 20, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2023, 6, 25, 23, 59, 59, 0, time.UTC),
		UserID: "john.smith",
	})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	// Reapplying skips everything.
	c, err = Apply(ctx, repos, fx, nil)
	require.NoError(t, err)
	assert.Zero(t, c.Inserted)
	assert.Equal(t, 16, c.Skipped)
}

func TestParse_NormalizesEnums(t *testing.T) {
	fx, err := Parse([]byte(`
devices:
  - device_id: DG-1
    connection_status: dormant
wifi_networks:
  - device_id: DG-1
    network_id: WN-1
    ssid: x
    security_type: wpa2
`))
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionDormant, fx.Devices[0].ConnectionStatus)
	assert.Equal(t, models.SecurityWPA2, fx.WifiNetworks[0].SecurityType)
}

func TestParse_RejectsBadEnums(t *testing.T) {
	_, err := Parse([]byte("devices:\n  - device_id: DG-1\n    connection_status: asleep\n"))
	assert.ErrorContains(t, err, "connection_status")

	_, err = Parse([]byte("wifi_networks:\n  - device_id: DG-1\n    network_id: WN-1\n    security_type: wpa3-psk\n"))
	assert.ErrorContains(t, err, "security_type")
}

func TestApply_MissingDevice(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	fx := &Fixtures{WifiNetworks: []models.WifiNetwork{testutil.NewNetwork("DG-404", "WN-1", "x")}}

	_, err := Apply(context.Background(), repos, fx, nil)
	assert.ErrorIs(t, err, services.ErrDeviceNotFound)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users:\n  - username: ops\n    email: ops@example.com\n"), 0o600))

	fx, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, fx.Users, 1)
	assert.Equal(t, "ops", fx.Users[0].Username)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply_UnsortedActivities(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2023, 6, d, 10, 0, 0, 0, time.UTC) }
	fx := &Fixtures{UserActivities: []models.UserActivity{
		{UserID: "john.smith", Timestamp: day(26), ActivityType: "login", Description: "d26"},
		{UserID: "john.smith", Timestamp: day(22), ActivityType: "login", Description: "d22"},
		{UserID: "jane.doe", Timestamp: day(23), ActivityType: "login", Description: "jane"},
		{UserID: "john.smith", Timestamp: day(19), ActivityType: "login", Description: "d19"},
		{UserID: "john.smith", Timestamp: day(25), ActivityType: "login", Description: "d25"},
	}}

	c, err := Apply(ctx, repos, fx, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Inserted)

	all, err := repos.Activities.QueryRange(ctx, services.ActivityQuery{
		Start:  day(1),
		End:    day(30),
		UserID: "john.smith",
	})
	require.NoError(t, err)
	stored := make(map[string]time.Time, len(all.Items))
	for _, a := range all.Items {
		stored[a.Description] = a.Timestamp
	}
	for desc, want := range map[string]time.Time{"d19": day(19), "d22": day(22), "d25": day(25), "d26": day(26)} {
		assert.True(t, stored[desc].Equal(want), "%s stored at %v, want %v", desc, stored[desc], want)
	}

	inRange, err := repos.Activities.QueryRange(ctx, services.ActivityQuery{
		Start:  time.Date(2023, 6, 20, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2023, 6, 25, 23, 59, 59, 999999000, time.UTC),
		UserID: "john.smith",
	})
	require.NoError(t, err)
	require.Len(t, inRange.Items, 2)
	assert.Equal(t, "d22", inRange.Items[0].Description)
	assert.Equal(t, "d25", inRange.Items[1].Description)

	c, err = Apply(ctx, repos, fx, nil)
	require.NoError(t, err)
	assert.Zero(t, c.Inserted)
	assert.Equal(t, 5, c.Skipped)
}

func TestApply_ActivityBeforeExistingLog(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()
	testutil.SeedActivity(t, repos, "john.smith", "login", time.Date(2023, 6, 26, 10, 0, 0, 0, time.UTC))

	fx := &Fixtures{UserActivities: []models.UserActivity{
		{UserID: "john.smith", Timestamp: time.Date(2023, 6, 22, 10, 0, 0, 0, time.UTC), ActivityType: "login"},
	}}
	_, err := Apply(ctx, repos, fx, nil)
	require.ErrorIs(t, err, ErrActivityOutOfOrder)

	all, err := repos.Activities.QueryRange(ctx, services.ActivityQuery{
		Start:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UserID: "john.smith",
	})
	require.NoError(t, err)
	assert.Len(t, all.Items, 1)
}

func TestSortedActivities(t *testing.T) {
	ts := time.Date(2023, 6, 22, 10, 0, 0, 1500, time.FixedZone("CEST", 2*3600))
	got := sortedActivities([]models.UserActivity{
		{UserID: "b", Timestamp: ts},
		{UserID: "a", Description: "undated"},
		{UserID: "a", Timestamp: ts.Add(time.Hour)},
		{UserID: "a", Timestamp: ts},
	})
	require.Len(t, got, 4)
	assert.Equal(t, "a", got[0].UserID)
	assert.True(t, got[0].Timestamp.Equal(ts.Truncate(time.Microsecond)))
	assert.Equal(t, time.UTC, got[0].Timestamp.Location())
	assert.True(t, got[1].Timestamp.After(got[0].Timestamp))
	assert.Equal(t, "undated", got[2].Description)
	assert.Equal(t, "b", got[3].UserID)
}
