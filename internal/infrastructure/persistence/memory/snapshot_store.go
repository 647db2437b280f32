// Package memory implements an in-process snapshot store. State lives
// only as long as the process; meant for development and tests, and
// rejected by config validation in production.
package memory

import (
	"context"
	"sync"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// SnapshotStore keeps the snapshot and projection date in memory.
// It implements snapshot.Store and snapshot.ProjectionDateStore.
type SnapshotStore struct {
	mu   sync.Mutex
	snap *snapshot.Snapshot
	date dateutil.Date
}

// NewSnapshotStore creates an empty in-memory store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Load returns a copy of the stored snapshot, or (nil, nil) when none
// was saved yet.
func (s *SnapshotStore) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, nil
	}
	return s.snap.Clone(), nil
}

// Save stores a copy of the snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	return nil
}

// LoadProjectionDate returns the stored projection date (zero when
// unset).
func (s *SnapshotStore) LoadProjectionDate(ctx context.Context) (dateutil.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date, nil
}

// SaveProjectionDate stores the projection date.
func (s *SnapshotStore) SaveProjectionDate(ctx context.Context, d dateutil.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.date = d
	return nil
}

// Ping always succeeds.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return nil
}
