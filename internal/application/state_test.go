package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// memStore is an in-memory snapshot store for tests.
type memStore struct {
	mu    sync.Mutex
	snap  *snapshot.Snapshot
	date  dateutil.Date
	fail  bool
	saves int
}

func (m *memStore) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("store down")
	}
	if m.snap == nil {
		return nil, nil
	}
	return m.snap.Clone(), nil
}

func (m *memStore) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store down")
	}
	m.snap = snap.Clone()
	m.saves++
	return nil
}

func (m *memStore) LoadProjectionDate(ctx context.Context) (dateutil.Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return dateutil.Date{}, errors.New("store down")
	}
	return m.date, nil
}

func (m *memStore) SaveProjectionDate(ctx context.Context, d dateutil.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store down")
	}
	m.date = d
	return nil
}

func TestLoadStateFallsBackOnFailure(t *testing.T) {
	store := &memStore{fail: true}
	state := LoadState(context.Background(), store, store, nil, nil)

	state.View(func(snap *snapshot.Snapshot, projDate dateutil.Date) {
		assert.Empty(t, snap.Roster)
		assert.Len(t, snap.Classes, 11)
		assert.False(t, projDate.IsZero(), "projection date defaults to today")
	})
}

func TestLoadStateUsesStoredData(t *testing.T) {
	stored := snapshot.New()
	stored.Roster = []roster.Student{{ID: "a", Name: "Ada", DOB: dateutil.MustParse("2022-01-01"), FTE: 1}}
	store := &memStore{snap: stored, date: dateutil.MustParse("2025-06-01")}

	state := LoadState(context.Background(), store, store, nil, nil)

	state.View(func(snap *snapshot.Snapshot, projDate dateutil.Date) {
		require.Len(t, snap.Roster, 1)
		assert.Equal(t, "Ada", snap.Roster[0].Name)
	})
	assert.Equal(t, dateutil.MustParse("2025-06-01"), state.ProjectionDate())
}

func TestUpdateBumpsRevisionAndMarksDirty(t *testing.T) {
	state := NewState(snapshot.New(), dateutil.MustParse("2025-06-01"), nil, nil, nil)
	require.False(t, state.Dirty())

	err := state.Update(func(snap *snapshot.Snapshot) error {
		snap.Roster = append(snap.Roster, roster.Student{ID: "a", Name: "Ada", DOB: dateutil.MustParse("2022-01-01"), FTE: 1})
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), state.Revision())
	assert.True(t, state.Dirty())
}

func TestUpdateErrorLeavesStateUntouched(t *testing.T) {
	state := NewState(snapshot.New(), dateutil.MustParse("2025-06-01"), nil, nil, nil)

	wantErr := errors.New("nope")
	err := state.Update(func(snap *snapshot.Snapshot) error { return wantErr })

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, uint64(0), state.Revision())
	assert.False(t, state.Dirty())
}

func TestMarkSavedClearsDirtyOnlyForCurrentRevision(t *testing.T) {
	state := NewState(snapshot.New(), dateutil.MustParse("2025-06-01"), nil, nil, nil)
	noop := func(snap *snapshot.Snapshot) error { return nil }

	require.NoError(t, state.Update(noop))
	require.NoError(t, state.Update(noop))

	state.markSaved(1)
	assert.True(t, state.Dirty(), "saving an old revision keeps the dirty flag")
	state.markSaved(2)
	assert.False(t, state.Dirty())
}

func TestSetProjectionDatePersists(t *testing.T) {
	store := &memStore{}
	state := NewState(snapshot.New(), dateutil.MustParse("2025-06-01"), nil, store, nil)

	require.NoError(t, state.SetProjectionDate(context.Background(), dateutil.MustParse("2025-09-01")))

	assert.Equal(t, dateutil.MustParse("2025-09-01"), state.ProjectionDate())
	assert.Equal(t, dateutil.MustParse("2025-09-01"), store.date)
}

func TestSetProjectionDateKeepsValueOnStoreFailure(t *testing.T) {
	store := &memStore{fail: true}
	state := NewState(snapshot.New(), dateutil.MustParse("2025-06-01"), nil, store, nil)

	err := state.SetProjectionDate(context.Background(), dateutil.MustParse("2025-09-01"))

	assert.Error(t, err)
	assert.Equal(t, dateutil.MustParse("2025-09-01"), state.ProjectionDate())
}

func TestUpdatePrunesStaleReadiness(t *testing.T) {
	snap := snapshot.New()
	snap.Roster = []roster.Student{{ID: "a", Name: "Ada", DOB: dateutil.MustParse("2023-01-15"), FTE: 1}}
	snap.Readiness["a"] = snapshot.Readiness{FromClass: "Young Infant (0-8m)"}
	// 17 months old: resolves to Younger Toddler, so the flag is stale.
	state := NewState(snap, dateutil.MustParse("2024-06-15"), nil, nil, nil)

	require.NoError(t, state.Update(func(*snapshot.Snapshot) error { return nil }))

	state.View(func(s *snapshot.Snapshot, _ dateutil.Date) {
		assert.Empty(t, s.Readiness)
	})
}
