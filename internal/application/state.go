// Package application holds the single in-memory state root and the
// background persistence machinery. All commands and queries go through
// State: reads take a shared lock, mutations take the exclusive lock,
// and every successful mutation schedules an asynchronous save.
package application

import (
	"context"
	"sync"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/projection"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
	"github.com/littlesteps-hub/enrollment-hub/pkg/logger"
)

// State is the single mutable state root: the snapshot document plus
// the shared projection date.
type State struct {
	mu        sync.RWMutex
	snap      *snapshot.Snapshot
	projDate  dateutil.Date
	dirty     bool
	saver     *Saver
	dateStore snapshot.ProjectionDateStore
	log       *logger.Logger
}

// NewState wraps an already-loaded snapshot.
func NewState(snap *snapshot.Snapshot, projDate dateutil.Date, saver *Saver, dateStore snapshot.ProjectionDateStore, log *logger.Logger) *State {
	if log == nil {
		log = logger.Default()
	}
	snap.Normalize()
	if projDate.IsZero() {
		projDate = dateutil.Today()
	}
	s := &State{
		snap:      snap,
		projDate:  projDate,
		saver:     saver,
		dateStore: dateStore,
		log:       log.With(logger.Component("state")),
	}
	if saver != nil {
		saver.OnSaved = s.markSaved
	}
	return s
}

// LoadState reads the snapshot and projection date from their stores.
// Load failures do not block startup: the state falls back to an empty
// roster with the default catalog, and to today's date.
func LoadState(ctx context.Context, store snapshot.Store, dateStore snapshot.ProjectionDateStore, saver *Saver, log *logger.Logger) *State {
	if log == nil {
		log = logger.Default()
	}

	snap, err := store.Load(ctx)
	if err != nil {
		log.Error("snapshot load failed, starting with empty state", logger.Err(err))
		snap = snapshot.New()
	} else if snap == nil {
		log.Info("no stored snapshot, starting fresh")
		snap = snapshot.New()
	}

	var projDate dateutil.Date
	if dateStore != nil {
		projDate, err = dateStore.LoadProjectionDate(ctx)
		if err != nil {
			log.Warn("projection date load failed, using today", logger.Err(err))
			projDate = dateutil.Date{}
		}
	}

	return NewState(snap, projDate, saver, dateStore, log)
}

// View runs fn with read access to the snapshot and the projection
// date. fn must not mutate or retain the snapshot.
func (s *State) View(fn func(snap *snapshot.Snapshot, projDate dateutil.Date)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.snap, s.projDate)
}

// Update runs fn with exclusive access to the snapshot. When fn
// succeeds the revision is bumped and a background save of a deep copy
// is scheduled; when fn fails the error is returned and nothing is
// persisted. fn must leave the snapshot unchanged on error.
func (s *State) Update(fn func(snap *snapshot.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.snap); err != nil {
		return err
	}
	if removed := projection.PruneStaleReadiness(s.snap, s.projDate); len(removed) > 0 {
		s.log.Debug("stale readiness flags pruned", logger.Int("count", len(removed)))
	}
	s.snap.Revision++
	s.dirty = true
	if s.saver != nil {
		s.saver.Schedule(s.snap.Clone())
	}
	return nil
}

// Engine returns a projection engine over a private copy of the current
// snapshot, safe to use without holding any lock.
func (s *State) Engine() *projection.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return projection.NewEngine(s.snap.Clone())
}

// ProjectionDate returns the shared projection date.
func (s *State) ProjectionDate() dateutil.Date {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projDate
}

// SetProjectionDate updates the shared projection date and persists it.
// The date store failure is logged but does not revert the in-memory
// value.
func (s *State) SetProjectionDate(ctx context.Context, d dateutil.Date) error {
	if d.IsZero() {
		d = dateutil.Today()
	}
	s.mu.Lock()
	s.projDate = d
	if removed := projection.PruneStaleReadiness(s.snap, s.projDate); len(removed) > 0 {
		s.snap.Revision++
		s.dirty = true
		if s.saver != nil {
			s.saver.Schedule(s.snap.Clone())
		}
	}
	s.mu.Unlock()

	if s.dateStore == nil {
		return nil
	}
	if err := s.dateStore.SaveProjectionDate(ctx, d); err != nil {
		s.log.Error("projection date save failed", logger.Err(err), logger.ProjectionOn(d.String()))
		return err
	}
	return nil
}

// Revision returns the current snapshot revision.
func (s *State) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Revision
}

// Dirty reports whether mutations exist that are not yet confirmed
// saved.
func (s *State) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// markSaved clears the dirty flag if no mutation happened after the
// saved revision.
func (s *State) markSaved(revision uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Revision == revision {
		s.dirty = false
	}
}
