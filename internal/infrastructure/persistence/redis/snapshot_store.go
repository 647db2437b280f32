// Package redis implements the Redis snapshot store. It is the
// lightweight alternative to PostgreSQL for single-site deployments: the
// roster document and the projection date live under two keys, written
// without a TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
	"github.com/littlesteps-hub/enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS AND KEYS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrConnection is returned when the Redis connection fails.
	ErrConnection = errors.New("redis: connection failed")
)

// Keys for the two persisted values.
const (
	keySnapshot       = "enrollhub:snapshot"
	keyProjectionDate = "enrollhub:projection_date"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT STORE
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotStore persists the roster snapshot as a JSON value.
// It implements snapshot.Store and snapshot.ProjectionDateStore.
type SnapshotStore struct {
	client *redis.Client
	log    *logger.Logger
}

// NewSnapshotStore creates a new SnapshotStore and verifies the
// connection.
func NewSnapshotStore(cfg Config, log *logger.Logger) (*SnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	if log == nil {
		log = logger.Default()
	}
	return &SnapshotStore{client: client, log: log.With(logger.Component("redis"))}, nil
}

// Client returns the underlying Redis client.
func (s *SnapshotStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load reads the snapshot document. Returns (nil, nil) when no snapshot
// has been saved yet.
func (s *SnapshotStore) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	data, err := s.client.Get(ctx, keySnapshot).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, shared.WrapError("snapshot", "Load", shared.ErrPersistence, "failed to read snapshot key", err)
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, shared.WrapError("snapshot", "Load", shared.ErrPersistence, "failed to decode snapshot document", err)
	}

	s.log.Debug("snapshot loaded", logger.Revision(snap.Revision))
	return &snap, nil
}

// Save writes the snapshot document, replacing any previous one. The key
// never expires.
func (s *SnapshotStore) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return shared.WrapError("snapshot", "Save", shared.ErrPersistence, "failed to encode snapshot document", err)
	}

	if err := s.client.Set(ctx, keySnapshot, data, 0).Err(); err != nil {
		return shared.WrapError("snapshot", "Save", shared.ErrServiceUnavailable, "failed to write snapshot key", err)
	}

	s.log.Debug("snapshot saved", logger.Revision(snap.Revision))
	return nil
}

// LoadProjectionDate reads the shared projection date. Returns the zero
// date when none has been stored.
func (s *SnapshotStore) LoadProjectionDate(ctx context.Context) (dateutil.Date, error) {
	value, err := s.client.Get(ctx, keyProjectionDate).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
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
	if err := s.client.Set(ctx, keyProjectionDate, d.String(), 0).Err(); err != nil {
		return shared.WrapError("snapshot", "SaveProjectionDate", shared.ErrServiceUnavailable, "failed to write projection date", err)
	}
	return nil
}
