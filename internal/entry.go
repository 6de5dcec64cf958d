// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/techtrack/internal/api"
	"github.com/starford/techtrack/internal/mcpserver"
	"github.com/starford/techtrack/internal/sse"
	"github.com/starford/techtrack/internal/techservice"
	"github.com/starford/techtrack/internal/tracker"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_dir", cfg.Storage.Dir),
		slog.String("sqlite_path", cfg.Storage.SQLitePath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	env, err := newEnvironment(cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	// SSE broker, fed by both stores.
	broker := sse.NewBroker(env.tracker.Instance(), cfg.App.HTTP.ChangeThrottle)
	defer broker.Close()
	defer env.tracker.Subscribe(func() { broker.PublishChange(sse.TopicTechnologies) })()
	defer env.settings.Subscribe(func() { broker.PublishChange(sse.TopicSettings) })()

	apiRouter := api.NewRouter(api.Deps{
		Service:     env.svc,
		Session:     env.gate,
		Events:      broker,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Logger:      logger,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := env.backend.Keys(); err != nil {
			logger.Warn("storage not ready", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start storage watcher; other processes sharing the backend show up here.
	g.Go(func() error {
		if err := env.watch(gCtx); err != nil {
			return fmt.Errorf("storage watcher: %w", err)
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stops the watcher.
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	return withEnvironment(opts, func(env *environment) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := env.watch(ctx); err != nil {
				env.logger.Warn("storage watcher stopped", slog.String("error", err.Error()))
			}
		}()
		return mcpserver.New(env.svc).ServeStdio()
	})
}

// Export writes an export document to w.
func Export(ctx context.Context, w io.Writer, opts ...Option) error {
	return withEnvironment(opts, func(env *environment) error {
		data, err := env.svc.Export(ctx)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
}

// Import replaces the stored collection with the document read from r.
func Import(ctx context.Context, r io.Reader, opts ...Option) (techservice.ImportResult, error) {
	var res techservice.ImportResult
	err := withEnvironment(opts, func(env *environment) error {
		var err error
		res, err = env.svc.Import(ctx, r)
		return err
	})
	return res, err
}

// Stats summarises the stored collection.
func Stats(_ context.Context, opts ...Option) (tracker.Statistics, error) {
	var st tracker.Statistics
	err := withEnvironment(opts, func(env *environment) error {
		st = env.tracker.Stats()
		return nil
	})
	return st, err
}

func withEnvironment(opts []Option, fn func(env *environment) error) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	env, err := newEnvironment(app.config, app.logger())
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(env)
}
