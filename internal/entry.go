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

	"github.com/starford/glanxiv/internal/api"
	"github.com/starford/glanxiv/internal/corpus"
	"github.com/starford/glanxiv/internal/index"
	"github.com/starford/glanxiv/internal/mcpserver"
	"github.com/starford/glanxiv/internal/query"
	"github.com/starford/glanxiv/internal/scheduler"
	"github.com/starford/glanxiv/internal/sse"
	"github.com/starford/glanxiv/internal/storage"
	"github.com/starford/glanxiv/internal/taxonomy"
)

func newApplication(defaultOutput io.Writer, opts []Option) (*application, *slog.Logger, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if app.logOutput == nil {
		app.logOutput = defaultOutput
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// stack is the corpus side of the application shared by every entry point.
type stack struct {
	store  *storage.FS
	db     *index.DB // nil in files mode
	sink   index.Sink
	cache  *corpus.Cache
	engine *query.Engine
}

func (s *stack) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// buildStack wires storage, the configured corpus source, the snapshot cache
// and the query engine. onRefresh, if non-nil, is called with every newly
// loaded snapshot.
func buildStack(cfg *Config, logger *slog.Logger, onRefresh func(*corpus.Snapshot)) (*stack, error) {
	tax := taxonomy.Default()
	if cfg.Taxonomy.Path != "" {
		t, err := taxonomy.LoadFile(cfg.Taxonomy.Path)
		if err != nil {
			return nil, fmt.Errorf("load taxonomy: %w", err)
		}
		tax = t
	}

	fallback, err := corpus.ParseIDFallback(cfg.Corpus.IDFallback)
	if err != nil {
		return nil, err
	}

	// Ensure snapshot directory exists; the scraper may not have run yet.
	if err := os.MkdirAll(cfg.Corpus.SnapshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Corpus.SnapshotDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	s := &stack{store: store}
	var src corpus.Source

	switch cfg.Corpus.Source {
	case SourceSQLite:
		db, err := index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		s.db = db
		s.sink = db
		src = db
	default:
		s.sink = index.NewTracker()
		src = corpus.NewFileSource(store, cfg.Corpus.FetchWorkers)
	}

	// Bring the sink in line with the directory before the first load.
	res, err := index.Sync(s.sink, store, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial sync finished",
			slog.Int("applied", res.Applied),
			slog.Int("failed", res.Failed),
			slog.Int("removed", res.Removed),
			slog.Int("unchanged", res.Unchanged))
	}

	s.cache = corpus.NewCache(src,
		corpus.WithTTL(cfg.Corpus.TTL),
		corpus.WithFetchTimeout(cfg.Corpus.FetchTimeout),
		corpus.WithIDFallback(fallback),
		corpus.WithLogger(logger),
		corpus.WithRefreshHook(onRefresh),
	)
	s.engine = query.New(s.cache, tax, logger)
	return s, nil
}

// warm loads the first snapshot so readiness flips without waiting for a
// query.
func (s *stack) warm(ctx context.Context, logger *slog.Logger) {
	if _, err := s.cache.Get(ctx); err != nil {
		logger.Warn("corpus warm-up failed", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(os.Stdout, opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("corpus_source", cfg.Corpus.Source),
		slog.String("snapshot_dir", cfg.Corpus.SnapshotDir),
		slog.Duration("ttl", cfg.Corpus.TTL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(500 * time.Millisecond)
	defer broker.Close()

	st, err := buildStack(cfg, logger, func(s *corpus.Snapshot) {
		broker.Refreshed(sse.RefreshSummary{
			LoadedAt:        s.LoadedAt,
			TotalPapers:     s.Len(),
			PartitionErrors: len(s.SourceErrors),
		})
	})
	if err != nil {
		return err
	}
	defer st.Close()

	apiRouter := api.NewRouter(st.engine, st.store, broker, cfg.Query.DefaultLimit)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", readyHandler(st.cache))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	var sched *scheduler.Scheduler
	if cfg.Corpus.WarmSchedule != "" {
		sched, err = scheduler.New(cfg.Corpus.WarmSchedule, func() {
			if _, err := st.cache.Refresh(ctx); err != nil {
				logger.Warn("scheduled refresh failed", slog.String("error", err.Error()))
			}
		}, logger)
		if err != nil {
			return err
		}
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st.warm(gCtx, logger)
		return nil
	})

	// Start partition watcher; every change expires the snapshot.
	if cfg.Corpus.Watch {
		g.Go(func() error {
			err := index.Watch(gCtx, st.sink, st.store, logger, func(kind, path string) {
				st.cache.Invalidate()
				broker.PartitionChanged(kind, path)
			})
			if err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if sched != nil {
		sched.Start()
		defer sched.Stop()
	}

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

		// Unblock the watcher when shutdown came from a signal.
		return errShutdown
	})

	err = g.Wait()
	st.cache.Wait()
	if err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

func readyHandler(cache *corpus.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		snap := cache.Current()
		switch {
		case snap == nil:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"loading"}`))
		case snap.Unavailable:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}
	}
}

// RunMCP serves the query tools over MCP stdio. Logs go to stderr unless
// WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(os.Stderr, opts)
	if err != nil {
		return err
	}
	cfg := app.config

	st, err := buildStack(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	st.warm(ctx, logger)
	logger.Info("MCP server starting", slog.String("snapshot_dir", cfg.Corpus.SnapshotDir))
	return mcpserver.New(st.engine, cfg.Query.DefaultLimit).ServeStdio()
}

// Import syncs the snapshot directory into the SQLite database and exits.
func Import(_ context.Context, opts ...Option) error {
	app, logger, err := newApplication(os.Stdout, opts)
	if err != nil {
		return err
	}
	cfg := app.config

	store, err := storage.NewFS(cfg.Corpus.SnapshotDir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	start := time.Now()
	res, err := index.Sync(db, store, logger)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	papers, err := db.PaperCount()
	if err != nil {
		return err
	}
	logger.Info("import finished",
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("applied", res.Applied),
		slog.Int("failed", res.Failed),
		slog.Int("removed", res.Removed),
		slog.Int("unchanged", res.Unchanged),
		slog.Int("papers", papers),
		slog.Duration("took", time.Since(start)))
	return nil
}
