// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/starford/librarian/internal/api"
	"github.com/starford/librarian/internal/filer"
	"github.com/starford/librarian/internal/gitops"
	"github.com/starford/librarian/internal/index"
	"github.com/starford/librarian/internal/ledger"
	"github.com/starford/librarian/internal/librarian"
	"github.com/starford/librarian/internal/llm"
	"github.com/starford/librarian/internal/maintenance"
	"github.com/starford/librarian/internal/mcpserver"
	"github.com/starford/librarian/internal/sse"
	"github.com/starford/librarian/internal/storage"
)

// components holds everything a built application needs. close releases
// the index handle.
type components struct {
	cfg      *Config
	logger   *slog.Logger
	store    storage.Provider
	db       *index.DB
	ingestor *librarian.Service
	filer    *filer.Filer
	ledger   *ledger.Ledger
	runner   *maintenance.Runner
	pipeline *librarian.Pipeline
	svc      *api.Service
}

func (c *components) close() {
	if err := c.db.Close(); err != nil {
		c.logger.Warn("index close failed", slog.String("error", err.Error()))
	}
}

// build wires the full pipeline. needModel controls whether a missing
// model is an error: filing, auditing and the registry rebuild work
// without one.
func build(ctx context.Context, app *application, needModel bool) (*components, error) {
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, cfg.Vault.ExcludedDirs, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	model := app.model
	if model == nil && needModel {
		model, err = llm.NewGemini(ctx, cfg.LLM.Gemini())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init model: %w", err)
		}
	}

	ingestor := librarian.New(store, db, model, librarian.Config{
		CaptureDir:   cfg.Vault.CaptureDir,
		ReviewDir:    cfg.Vault.ReviewDir,
		ScanDirs:     cfg.Vault.ScanDirs,
		Sources:      cfg.Vault.Sources(),
		RegistryNote: cfg.Vault.RegistryNote,
	}, logger)

	fl := filer.New(store, cfg.Vault.ReviewDir, logger)

	led := ledger.Load(store, cfg.Maintenance.LedgerPath, logger)
	runner := maintenance.New(store, model, led, ingestor, maintenance.Config{
		ScanDirs:     cfg.Vault.ScanDirs,
		Excluded:     cfg.Vault.ExcludedDirs,
		ReviewDir:    cfg.Vault.ReviewDir,
		CooldownDays: cfg.Maintenance.CooldownDays,
		TopN:         cfg.Maintenance.TopN,
	}, logger)

	var repo *gitops.Repo
	if cfg.Git.Enabled {
		repo, err = gitops.Open(cfg.Vault.Path, cfg.Git.AuthorName, cfg.Git.AuthorEmail, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init git: %w", err)
		}
	}

	pipeline := &librarian.Pipeline{
		Filer:    fl,
		Ingestor: ingestor,
		Git:      repo,
		Push:     cfg.Git.Push,
		Remote:   cfg.Git.Remote,
		Logger:   logger,
	}

	svc := api.NewService(api.Deps{
		Store:       store,
		Index:       db,
		Pipeline:    pipeline,
		Maintenance: runner,
		Ledger:      led,
		ReviewDir:   cfg.Vault.ReviewDir,
	})

	return &components{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		db:       db,
		ingestor: ingestor,
		filer:    fl,
		ledger:   led,
		runner:   runner,
		pipeline: pipeline,
		svc:      svc,
	}, nil
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// RunPipeline executes one full pass: file approved proposals, ingest
// captures, commit the result.
func RunPipeline(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(ctx, app, true)
	if err != nil {
		return err
	}
	defer c.close()

	res, err := c.svc.RunPipeline(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("pipeline finished",
		slog.Int("filed", res.Filed.Filed),
		slog.Int("written", res.Filed.Written),
		slog.Int("ingested", res.Ingested.Ingested),
		slog.Int("failed", res.Filed.Failed+res.Ingested.Failed),
		slog.Bool("committed", res.Committed))
	return nil
}

// RunFiler executes approved proposals only. No model is needed.
func RunFiler(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(ctx, app, false)
	if err != nil {
		return err
	}
	defer c.close()

	res, err := c.svc.RunFiler(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("filing finished",
		slog.Int("filed", res.Filed),
		slog.Int("written", res.Written),
		slog.Int("failed", res.Failed))
	return nil
}

// RunMaintenance executes one maintenance pass.
func RunMaintenance(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(ctx, app, true)
	if err != nil {
		return err
	}
	defer c.close()

	res, err := c.svc.RunMaintenance(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("maintenance finished",
		slog.Int("scanned", res.Scanned),
		slog.Int("cooled", res.Cooled),
		slog.Int("proposed", res.Proposed),
		slog.Int("failed", res.Failed))
	return nil
}

// RunAudit prints the scored candidates without side effects.
func RunAudit(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(ctx, app, false)
	if err != nil {
		return err
	}
	defer c.close()

	candidates, err := c.svc.Audit()
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("vault is clean")
		return nil
	}
	fmt.Printf("%-6s %-60s %s\n", "SCORE", "PATH", "REASONS")
	for _, cand := range candidates {
		reasons := ""
		for i, r := range cand.Reasons {
			if i > 0 {
				reasons += ", "
			}
			reasons += r
		}
		fmt.Printf("%-6d %-60s %s\n", cand.Score, cand.Path, reasons)
	}
	return nil
}

// RunRegistry rebuilds the code-registry note from the index.
func RunRegistry(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(ctx, app, false)
	if err != nil {
		return err
	}
	defer c.close()

	path, err := c.ingestor.WriteRegistryNote()
	if err != nil {
		return err
	}
	c.logger.Info("registry note written", slog.String("path", path))
	return nil
}

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(ctx, app, true)
	if err != nil {
		return err
	}
	defer c.close()

	srv := mcpserver.New(c.store, c.svc)
	c.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

// Run starts serve mode: HTTP API with SSE, a vault watcher that
// triggers debounced pipeline runs, and maintenance on a cron schedule.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(ctx, app, true)
	if err != nil {
		return err
	}
	defer c.close()

	cfg := c.cfg
	logger := c.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker, wired into every pipeline stage.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	c.filer.OnEvent(broker.PublishPipelineEvent)
	c.ingestor.OnEvent(broker.PublishPipelineEvent)
	c.runner.OnEvent(broker.PublishPipelineEvent)

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Cancelled once the HTTP server has shut down, so the watcher and
	// debounce goroutines exit and g.Wait returns.
	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()

	g, gCtx := errgroup.WithContext(serveCtx)

	// Queue events (new captures, proposals flipped in the editor)
	// trigger a debounced pipeline run.
	trigger := make(chan struct{}, 1)

	g.Go(func() error {
		err := index.Watch(gCtx, c.db, c.store, index.WatchConfig{
			Root:      cfg.Vault.Path,
			Excluded:  cfg.Vault.ExcludedDirs,
			QueueDirs: []string{cfg.Vault.CaptureDir, cfg.Vault.ReviewDir},
			Logger:    logger,
			OnChange: func(kind, path string) {
				broker.PublishPipelineEvent(sse.EventNoteIndexed, path)
			},
			OnQueue: func(path string) {
				select {
				case trigger <- struct{}{}:
				default:
				}
			},
		})
		if err != nil && gCtx.Err() == nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		const debounce = 3 * time.Second
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-trigger:
				if timer == nil {
					timer = time.NewTimer(debounce)
					fire = timer.C
				} else {
					if !timer.Stop() {
						select {
						case <-fire:
						default:
						}
					}
					timer.Reset(debounce)
				}
			case <-fire:
				timer = nil
				fire = nil
				if res, err := c.svc.RunPipeline(gCtx); err != nil {
					logger.Error("pipeline run failed", slog.String("error", err.Error()))
				} else {
					logger.Info("pipeline run finished",
						slog.Int("filed", res.Filed.Filed),
						slog.Int("ingested", res.Ingested.Ingested))
				}
			}
		}
	})

	// Maintenance on schedule.
	var sched *cron.Cron
	if cfg.Maintenance.Schedule != "" {
		sched = cron.New()
		_, err := sched.AddFunc(cfg.Maintenance.Schedule, func() {
			if res, err := c.svc.RunMaintenance(gCtx); err != nil {
				logger.Error("scheduled maintenance failed", slog.String("error", err.Error()))
			} else {
				logger.Info("scheduled maintenance finished",
					slog.Int("scanned", res.Scanned),
					slog.Int("proposed", res.Proposed))
			}
		})
		if err != nil {
			return fmt.Errorf("maintenance schedule %q: %w", cfg.Maintenance.Schedule, err)
		}
		sched.Start()
		defer sched.Stop()
	}

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
		stopServe()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
