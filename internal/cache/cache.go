// Package cache provides keyed storage of standings snapshots by date.
//
// Fetching a past date's standings always yields the same result, so a
// snapshot cache never needs expiry for historical dates; only "today" can
// change while a process runs. Caching is an optimization the client layers
// over live fetches, and must be transparent: a hit returns exactly what a
// live fetch would have.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/nstreif/mlb-wins-pool/internal/models"
)

// SnapshotCache stores standings snapshots keyed by calendar date.
type SnapshotCache interface {
	// Get returns the cached snapshot for the date, if any.
	Get(ctx context.Context, day time.Time) (models.Snapshot, bool, error)

	// Set stores the snapshot for the date.
	Set(ctx context.Context, day time.Time, snap models.Snapshot) error

	// Invalidate drops the entry for the date. Only useful for "today",
	// whose standings move intraday.
	Invalidate(ctx context.Context, day time.Time) error
}

// Memory is an in-process SnapshotCache. Entries live for the process
// lifetime; there is no TTL and no eviction.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]models.Snapshot
}

// NewMemory creates an empty in-process snapshot cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]models.Snapshot)}
}

func (m *Memory) Get(_ context.Context, day time.Time) (models.Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.entries[models.FormatDay(day)]
	return snap, ok, nil
}

func (m *Memory) Set(_ context.Context, day time.Time, snap models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[models.FormatDay(day)] = snap
	return nil
}

func (m *Memory) Invalidate(_ context.Context, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, models.FormatDay(day))
	return nil
}

var _ SnapshotCache = (*Memory)(nil)
