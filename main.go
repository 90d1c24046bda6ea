package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"

	"github.com/s1natex/breakdown-api-GO/internal/breakdown"
	"github.com/s1natex/breakdown-api-GO/internal/config"
	"github.com/s1natex/breakdown-api-GO/internal/middleware"
	"github.com/s1natex/breakdown-api-GO/internal/provider"
	"github.com/s1natex/breakdown-api-GO/internal/tasks"
	"github.com/s1natex/breakdown-api-GO/internal/telemetry"
)

func main() {
	cfg, err := config.Read()
	if err != nil {
		slog.Error("config_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg.SlogLevel())
	slog.SetDefault(logger) // for third-party packages that use slog

	if err := run(cfg, logger); err != nil {
		logger.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Tracing.Exporter, os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeRepo() }()

	store, err := tasks.NewStore(ctx, repo, tasks.WithLogger(logger))
	if err != nil {
		return err
	}

	chat := provider.NewChatClient(provider.Config{
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		Timeout: cfg.Provider.Timeout,
		Retries: cfg.Provider.Retries,
	}, repo, logger)
	decomposer := breakdown.NewDecomposer(chat, store, cfg.Breakdown.MaxTasks, logger)

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: newRouter(cfg, store, decomposer, repo, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen",
			slog.String("addr", cfg.HTTP.Addr),
			slog.String("storage", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openRepository builds the configured storage backend and its close func.
func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (tasks.Repository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return tasks.NewInMemoryRepo(), noop, nil
	case config.DriverFile:
		repo, err := tasks.NewFileRepo(cfg.Storage.DataDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, noop, nil
	case config.DriverSQLite:
		dsn, err := tasks.SQLiteFileDSN(cfg.DBPath())
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite dsn: %w", err)
		}
		repo, err := tasks.NewSQLiteRepo(dsn, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := repo.ApplyMigrations(ctx); err != nil {
			_ = repo.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return repo, repo.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// newRouter wires the health endpoint, task routes, and middleware stack
func newRouter(
	cfg *config.Config,
	store *tasks.Store,
	decomposer *breakdown.Decomposer,
	creds breakdown.CredentialStore,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, traces)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Must outlast the provider timeout, or breakdowns get cut off.
	r.Use(chimw.Timeout(cfg.HTTP.Timeout))

	// The UI is a browser app served from elsewhere.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Trace-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger(logger))

	// ---- Routes ----

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	// one model call at a time is enforced by the decomposer; the limiter
	// bounds how often callers can start one
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(
			middleware.NewLimiter(cfg.Breakdown.RPS, cfg.Breakdown.Burst),
		))
		breakdown.RegisterRoutes(r, decomposer)
	})
	breakdown.RegisterCredentialRoutes(r, creds)
	tasks.RegisterRoutes(r, store)

	return r
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}
