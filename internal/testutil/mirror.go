package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/HerbHall/devicedesk/pkg/models"
)

// MockMirror is a thread-safe in-memory activity mirror that records every
// published entry for later inspection.
type MockMirror struct {
	mu      sync.Mutex
	entries []models.UserActivity
	fail    bool
}

// NewMockMirror returns a new MockMirror.
func NewMockMirror() *MockMirror {
	return &MockMirror{}
}

// Publish records an entry, or fails when SetFail(true) was called.
func (m *MockMirror) Publish(_ context.Context, a models.UserActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("mock mirror: publish failed")
	}
	m.entries = append(m.entries, a)
	return nil
}

// Close is a no-op.
func (m *MockMirror) Close() {}

// SetFail makes subsequent Publish calls fail.
func (m *MockMirror) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// Entries returns a copy of all recorded entries.
func (m *MockMirror) Entries() []models.UserActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.UserActivity, len(m.entries))
	copy(out, m.entries)
	return out
}

// Reset clears all recorded entries.
func (m *MockMirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}
