package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/techtrack/internal/catalog"
	"github.com/starford/techtrack/internal/codec"
	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/session"
	"github.com/starford/techtrack/internal/settings"
	"github.com/starford/techtrack/internal/storage"
	"github.com/starford/techtrack/internal/techservice"
	"github.com/starford/techtrack/internal/tracker"
)

var errConfigRequired = errors.New("config is required")

// environment is everything a command needs: the backend, both stores and
// the service built on them.
type environment struct {
	logger   *slog.Logger
	backend  storage.Backend
	tracker  *tracker.Store
	settings *settings.Store
	gate     *session.Gate
	svc      *techservice.Service
}

func (a *application) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

func openBackend(cfg StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return storage.OpenSQLite(cfg.SQLitePath, cfg.PollInterval)
	case BackendMemory:
		return storage.NewMemory(), nil
	default:
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		return storage.NewFS(cfg.Dir)
	}
}

func newEnvironment(cfg *Config, logger *slog.Logger) (*environment, error) {
	backend, err := openBackend(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var seed []models.Technology
	if cfg.Collection.Seed == SeedDefaults {
		seed = catalog.Defaults()
	}
	loc, err := cfg.Collection.Location()
	if err != nil {
		backend.Close()
		return nil, err
	}
	tr, err := tracker.Open(backend,
		tracker.WithSeed(seed),
		tracker.WithSchemaVersion(cfg.Collection.SchemaVersion),
		tracker.WithLocation(loc),
		tracker.WithLogger(logger))
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("open collection: %w", err)
	}
	st, err := settings.Open(backend, settings.WithLogger(logger))
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("open settings: %w", err)
	}
	cd, err := codec.New(cfg.Import.MaxBytes)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("init codec: %w", err)
	}
	cat := catalog.NewMock(
		catalog.WithLatency(cfg.Catalog.Latency),
		catalog.WithFailureRate(cfg.Catalog.FailureRate),
		catalog.WithLogger(logger))

	return &environment{
		logger:   logger,
		backend:  backend,
		tracker:  tr,
		settings: st,
		gate:     session.New(backend, cfg.Login.Credentials, logger),
		svc:      techservice.NewService(tr, st, cd, cat, logger),
	}, nil
}

// watch routes external changes of the backend to the owning store until
// ctx is cancelled.
func (e *environment) watch(ctx context.Context) error {
	return e.backend.Watch(ctx, e.logger, e.reload)
}

func (e *environment) reload(key string) {
	var (
		changed bool
		err     error
	)
	switch key {
	case tracker.DefaultKey:
		changed, err = e.tracker.Reload()
	case settings.DefaultKey:
		changed, err = e.settings.Reload()
	default:
		return
	}
	if err != nil {
		e.logger.Warn("reload failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if changed {
		e.logger.Info("reloaded external change", slog.String("key", key))
	}
}

func (e *environment) Close() error {
	return e.backend.Close()
}
