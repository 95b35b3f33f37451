// Package jti tracks replay ids embedded in signed tokens. A tracker accepts
// each id at most once.
package jti

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker records replay ids. MarkSeen inserts id if absent and reports
// whether this call was the first to present it. Implementations must make
// the insert atomic so concurrent callers see exactly one first use.
type Tracker interface {
	MarkSeen(ctx context.Context, id string, expiresAt time.Time) (bool, error)
}

// NewID returns a fresh opaque replay id.
func NewID() string {
	return uuid.NewString()
}

var _ Tracker = (*MemoryTracker)(nil)

// MemoryTracker is a process-local tracker
type MemoryTracker struct {
	seen    map[string]time.Time
	mu      sync.Mutex
	nowTime func() time.Time
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		seen:    make(map[string]time.Time),
		nowTime: time.Now,
	}
}

// WithNowTime sets the clock used by Cleanup (primarily for testing)
func (m *MemoryTracker) WithNowTime(nowTime func() time.Time) *MemoryTracker {
	m.nowTime = nowTime
	return m
}

func (m *MemoryTracker) MarkSeen(_ context.Context, id string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.seen[id]; exists {
		return false, nil
	}
	m.seen[id] = expiresAt
	return true, nil
}

// Cleanup forgets ids whose tokens have expired. Expired tokens fail
// verification on their own so their ids no longer need tracking.
func (m *MemoryTracker) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowTime()
	for id, exp := range m.seen {
		if now.After(exp) {
			delete(m.seen, id)
		}
	}
}

// Len returns the number of tracked ids.
func (m *MemoryTracker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
