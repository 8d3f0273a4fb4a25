package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/devicedesk/internal/services"
	"github.com/HerbHall/devicedesk/internal/testutil"
	"github.com/HerbHall/devicedesk/pkg/models"
)

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestSQLiteUserActivityRepository_QueryRangeInclusive(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	start := day(2023, 6, 20, 0)
	end := day(2023, 6, 25, 0).Add(24*time.Hour - time.Microsecond)

	testutil.SeedActivity(t, repos, "john.smith", "login", day(2023, 6, 19, 23))
	testutil.SeedActivity(t, repos, "john.smith", "login", start)
	testutil.SeedActivity(t, repos, "john.smith", "config_change", day(2023, 6, 22, 10))
	testutil.SeedActivity(t, repos, "john.smith", "logout", end)
	testutil.SeedActivity(t, repos, "john.smith", "login", day(2023, 6, 26, 0))
	testutil.SeedActivity(t, repos, "jane.doe", "login", day(2023, 6, 23, 9))

	res, err := repos.Activities.QueryRange(ctx, services.ActivityQuery{Start: start, End: end, UserID: "john.smith"})
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("QueryRange = %d items, want 3: %+v", len(res.Items), res.Items)
	}
	if !res.Items[0].Timestamp.Equal(start) {
		t.Errorf("first = %v, want start boundary %v", res.Items[0].Timestamp, start)
	}
	if !res.Items[2].Timestamp.Equal(end) {
		t.Errorf("last = %v, want end boundary %v", res.Items[2].Timestamp, end)
	}

	all, err := repos.Activities.QueryRange(ctx, services.ActivityQuery{Start: start, End: end})
	if err != nil {
		t.Fatalf("QueryRange all users: %v", err)
	}
	if all.Total != 4 {
		t.Errorf("all users Total = %d, want 4", all.Total)
	}
}

func TestSQLiteUserActivityRepository_QueryByType(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	testutil.SeedActivity(t, repos, "a", "login", day(2024, 1, 1, 8))
	testutil.SeedActivity(t, repos, "b", "login", day(2024, 1, 2, 8))
	testutil.SeedActivity(t, repos, "a", "wifi_ssid_update", day(2024, 1, 3, 8))

	res, err := repos.Activities.QueryRange(ctx, services.ActivityQuery{
		Start:        day(2024, 1, 1, 0),
		End:          day(2024, 12, 31, 0),
		ActivityType: "login",
	})
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("Total = %d, want 2", res.Total)
	}
	for _, a := range res.Items {
		if a.ActivityType != "login" {
			t.Errorf("unexpected activity type %q", a.ActivityType)
		}
	}
}

func TestSQLiteUserActivityRepository_AppendStrictlyIncreasing(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)
	ctx := context.Background()

	ts := day(2024, 5, 1, 12)
	first := models.UserActivity{UserID: "u", Timestamp: ts, ActivityType: "a"}
	second := models.UserActivity{UserID: "u", Timestamp: ts, ActivityType: "b"}
	older := models.UserActivity{UserID: "u", Timestamp: ts.Add(-time.Hour), ActivityType: "c"}
	other := models.UserActivity{UserID: "v", Timestamp: ts, ActivityType: "d"}

	for _, a := range []*models.UserActivity{&first, &second, &older, &other} {
		if err := repos.Activities.Append(ctx, a); err != nil {
			t.Fatalf("Append %s: %v", a.ActivityType, err)
		}
	}

	if !second.Timestamp.After(first.Timestamp) {
		t.Errorf("second %v not after first %v", second.Timestamp, first.Timestamp)
	}
	if !older.Timestamp.After(second.Timestamp) {
		t.Errorf("older %v not moved after second %v", older.Timestamp, second.Timestamp)
	}
	if !other.Timestamp.Equal(ts) {
		t.Errorf("other user's timestamp adjusted to %v", other.Timestamp)
	}
}

func TestSQLiteUserActivityRepository_QueryRangeRejectsInverted(t *testing.T) {
	repos, _ := testutil.NewRepositories(t)

	_, err := repos.Activities.QueryRange(context.Background(), services.ActivityQuery{
		Start: day(2024, 2, 1, 0),
		End:   day(2024, 1, 1, 0),
	})
	if err == nil {
		t.Error("QueryRange with end before start returned nil error")
	}
}
