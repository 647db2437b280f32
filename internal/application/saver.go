package application

import (
	"context"
	"sync"
	"time"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/circuitbreaker"
	"github.com/littlesteps-hub/enrollment-hub/pkg/logger"
	"github.com/littlesteps-hub/enrollment-hub/pkg/retry"
)

// Saver persists snapshots in the background. Saves are fire-and-forget
// from the caller's perspective: Schedule never blocks, and when saves
// queue up only the newest snapshot is written. Failed writes are
// retried with backoff behind a circuit breaker; the in-memory state is
// never rolled back on failure.
type Saver struct {
	store   snapshot.Store
	log     *logger.Logger
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker

	mu      sync.Mutex
	pending *snapshot.Snapshot
	kick    chan struct{}

	// OnSaved is invoked after each successful write with the saved
	// revision. Set before Start.
	OnSaved func(revision uint64)

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithRetrier overrides the default snapshot-store retrier.
func WithRetrier(r *retry.Retrier) SaverOption {
	return func(s *Saver) { s.retrier = r }
}

// WithBreaker overrides the default snapshot-store circuit breaker.
func WithBreaker(b *circuitbreaker.CircuitBreaker) SaverOption {
	return func(s *Saver) { s.breaker = b }
}

// NewSaver creates a Saver writing to the given store.
func NewSaver(store snapshot.Store, log *logger.Logger, opts ...SaverOption) *Saver {
	if log == nil {
		log = logger.Default()
	}
	s := &Saver{
		store: store,
		log:   log.With(logger.Component("saver")),
		kick:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retrier == nil {
		s.retrier = retry.SnapshotStoreRetrier()
	}
	if s.breaker == nil {
		s.breaker = circuitbreaker.SnapshotStoreBreaker(func(name string, from, to circuitbreaker.State) {
			s.log.Warn("circuit state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		})
	}
	return s
}

// Start launches the background worker. Call Close to stop it.
func (s *Saver) Start(ctx context.Context) {
	go s.run(ctx)
}

// Schedule queues a snapshot for saving, replacing any not-yet-written
// one. The snapshot must be a private copy.
func (s *Saver) Schedule(snap *snapshot.Snapshot) {
	s.mu.Lock()
	s.pending = snap
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Close stops the worker after attempting one final write of any
// pending snapshot.
func (s *Saver) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Saver) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-s.kick:
			s.flush(ctx)
		case <-s.stop:
			s.flush(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

// flush writes the latest pending snapshot, if any.
func (s *Saver) flush(ctx context.Context) {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()
	if snap == nil {
		return
	}

	start := time.Now()
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		saveErr := s.breaker.Execute(ctx, func(ctx context.Context) error {
			return s.store.Save(ctx, snap)
		})
		// Open-circuit rejections retry too: the breaker may recover
		// within the backoff window.
		return retry.Retryable(saveErr)
	})
	if err != nil {
		s.log.Error("snapshot save failed, edits remain unsaved",
			logger.Err(err),
			logger.Revision(snap.Revision),
			logger.Latency(time.Since(start)))
		return
	}

	s.log.Info("snapshot saved",
		logger.Revision(snap.Revision),
		logger.Latency(time.Since(start)))
	if s.OnSaved != nil {
		s.OnSaved(snap.Revision)
	}
}
