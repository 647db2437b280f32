// Package main is the entry point for the enrollment hub server.
//
// The architecture follows Clean Architecture and DDD:
//   - Domain: roster, catalog and projection logic with no external deps
//   - Application: the state root, commands, queries and the save loop
//   - Infrastructure: snapshot stores (PostgreSQL, Redis, in-memory)
//   - Interface: the REST API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/littlesteps-hub/enrollment-hub/config"
	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/application/command"
	"github.com/littlesteps-hub/enrollment-hub/internal/application/query"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/internal/infrastructure/persistence/memory"
	"github.com/littlesteps-hub/enrollment-hub/internal/infrastructure/persistence/postgres"
	redisstore "github.com/littlesteps-hub/enrollment-hub/internal/infrastructure/persistence/redis"
	httpserver "github.com/littlesteps-hub/enrollment-hub/internal/interface/http"
	"github.com/littlesteps-hub/enrollment-hub/pkg/circuitbreaker"
	"github.com/littlesteps-hub/enrollment-hub/pkg/logger"
	"github.com/littlesteps-hub/enrollment-hub/pkg/retry"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", logger.Err(err))
	}
}

// snapshotStore is what every backend must provide.
type snapshotStore interface {
	snapshot.Store
	snapshot.ProjectionDateStore
	Ping(ctx context.Context) error
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting enrollment hub",
		logger.String("version", cfg.App.Version),
		logger.String("environment", string(cfg.App.Environment)),
		logger.String("storage", cfg.Storage.Backend))

	// ─────────────────────────────────────────────────────────────────────────
	// Snapshot store
	// ─────────────────────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer closeStore()

	// ─────────────────────────────────────────────────────────────────────────
	// State root and background save loop
	// ─────────────────────────────────────────────────────────────────────────
	saver := application.NewSaver(store, log,
		application.WithRetrier(retry.New(
			retry.WithMaxAttempts(cfg.Save.MaxAttempts),
			retry.WithInitialDelay(cfg.Save.InitialDelay),
			retry.WithMaxDelay(cfg.Save.MaxDelay),
		)),
		application.WithBreaker(circuitbreaker.New("snapshot-store",
			circuitbreaker.WithFailureThreshold(cfg.Save.BreakerThreshold),
			circuitbreaker.WithTimeout(cfg.Save.BreakerTimeout),
			circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()))
			}),
		)),
	)

	state := application.LoadState(ctx, store, store, saver, log)
	saver.Start(ctx)
	defer saver.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	server := httpserver.NewServer(httpserver.Config{
		Host:               cfg.HTTP.Host,
		Port:               cfg.HTTP.Port,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:     1 << 20,
		EnableCORS:         cfg.HTTP.EnableCORS,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
		APIKeyHeader:       "X-API-Key",
		APIKeyHashes:       cfg.HTTP.APIKeyHashes,
	}, httpserver.Dependencies{
		State: state,

		AddStudents:        command.NewAddStudentsHandler(state),
		EditStudent:        command.NewEditStudentHandler(state),
		DeleteStudents:     command.NewDeleteStudentsHandler(state),
		ReassignStudent:    command.NewReassignStudentHandler(state),
		SetTransitionDate:  command.NewSetTransitionDateHandler(state),
		LinkRelationship:   command.NewLinkRelationshipHandler(state),
		MarkReadiness:      command.NewMarkReadinessHandler(state),
		UpdateClassSetting: command.NewUpdateClassSettingsHandler(state),
		ReorderClasses:     command.NewReorderClassesHandler(state),
		SetDateVisibility:  command.NewSetDateVisibilityHandler(state),
		SetColumnOrder:     command.NewSetColumnOrderHandler(state),

		GetDashboard:    query.NewGetDashboardHandler(state),
		GetRoster:       query.NewGetRosterHandler(state),
		GetClassRosters: query.NewGetClassRostersHandler(state),
		GetStudent:      query.NewGetStudentHandler(state),
		FindDuplicates:  query.NewFindDuplicatesHandler(state),

		Logger:      log,
		StorePinger: store,
	})

	errCh := server.StartAsync()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Err(err))
	}

	// Saver.Close (deferred) flushes any pending snapshot before the
	// store is closed.
	return nil
}

// openStore builds the configured snapshot store backend.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (snapshotStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return &pgStore{SnapshotStore: postgres.NewSnapshotStore(conn, log), conn: conn},
			conn.Close, nil

	case config.StorageRedis:
		store, err := redisstore.NewSnapshotStore(redisstore.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   3,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	default:
		log.Warn("using in-memory snapshot store, data is lost on restart")
		return memory.NewSnapshotStore(), func() {}, nil
	}
}

// pgStore pairs the document store with the pool's liveness check.
type pgStore struct {
	*postgres.SnapshotStore
	conn *postgres.Connection
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}
