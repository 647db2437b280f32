package postgres

import (
	"context"
	"encoding/json"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
	"github.com/littlesteps-hub/enrollment-hub/pkg/logger"
)

// projectionDateKey is the app_settings row holding the shared
// projection date.
const projectionDateKey = "projection_date"

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT STORE
// The whole roster document lives in the single row of roster_snapshots.
// Saves replace the document wholesale, so a write either lands
// completely or not at all.
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotStore persists the roster snapshot as a JSONB document.
// It implements snapshot.Store and snapshot.ProjectionDateStore.
type SnapshotStore struct {
	conn *Connection
	log  *logger.Logger
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Connection, log *logger.Logger) *SnapshotStore {
	if log == nil {
		log = logger.Default()
	}
	return &SnapshotStore{conn: conn, log: log.With(logger.Component("postgres"))}
}

// Load reads the snapshot document. Returns (nil, nil) when no snapshot
// has been saved yet.
func (s *SnapshotStore) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	var doc []byte
	err := s.conn.QueryRow(ctx, `SELECT doc FROM roster_snapshots WHERE id = 1`).Scan(&doc)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, shared.WrapError("snapshot", "Load", shared.ErrPersistence, "failed to read snapshot row", err)
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, shared.WrapError("snapshot", "Load", shared.ErrPersistence, "failed to decode snapshot document", err)
	}

	s.log.Debug("snapshot loaded", logger.Revision(snap.Revision))
	return &snap, nil
}

// Save writes the snapshot document, replacing any previous one.
func (s *SnapshotStore) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return shared.WrapError("snapshot", "Save", shared.ErrPersistence, "failed to encode snapshot document", err)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO roster_snapshots (id, revision, doc, saved_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET revision = EXCLUDED.revision, doc = EXCLUDED.doc, saved_at = NOW()
	`, int64(snap.Revision), doc)
	if err != nil {
		return shared.WrapError("snapshot", "Save", shared.ErrServiceUnavailable, "failed to write snapshot row", err)
	}

	s.log.Debug("snapshot saved", logger.Revision(snap.Revision))
	return nil
}

// LoadProjectionDate reads the shared projection date. Returns the zero
// date when none has been stored.
func (s *SnapshotStore) LoadProjectionDate(ctx context.Context) (dateutil.Date, error) {
	var value string
	err := s.conn.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, projectionDateKey).Scan(&value)
	if err != nil {
		if IsNoRows(err) {
			return dateutil.Date{}, nil
		}
		return dateutil.Date{}, shared.WrapError("snapshot", "LoadProjectionDate", shared.ErrPersistence, "failed to read projection date", err)
	}

	d, err := dateutil.Parse(value)
	if err != nil {
		return dateutil.Date{}, shared.WrapError("snapshot", "LoadProjectionDate", shared.ErrPersistence, "stored projection date is malformed", err)
	}
	return d, nil
}

// SaveProjectionDate writes the shared projection date.
func (s *SnapshotStore) SaveProjectionDate(ctx context.Context, d dateutil.Date) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`, projectionDateKey, d.String())
	if err != nil {
		return shared.WrapError("snapshot", "SaveProjectionDate", shared.ErrServiceUnavailable, "failed to write projection date", err)
	}
	return nil
}
