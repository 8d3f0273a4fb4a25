package testutil

import (
	"context"
	"testing"

	"github.com/HerbHall/devicedesk/internal/services"
	"github.com/HerbHall/devicedesk/internal/store"
)

// NewStore creates an in-memory SQLiteStore for testing.
// The store is automatically closed when the test completes.
func NewStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(":memory:", 0)
	if err != nil {
		t.Fatalf("testutil.NewStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewRepositories creates an in-memory store with the fleet schema applied
// under the default table names and returns repositories over it.
func NewRepositories(t *testing.T) (*services.Repositories, *store.SQLiteStore) {
	t.Helper()
	s := NewStore(t)
	names := services.DefaultTableNames()
	if err := services.Migrate(context.Background(), s, names); err != nil {
		t.Fatalf("testutil.NewRepositories: %v", err)
	}
	return services.NewSQLiteRepositories(s.DB(), names), s
}
