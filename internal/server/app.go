// Package server initializes and runs the DocVault server: it wires the
// encryption engine, object storage, PostgreSQL repositories, the anchor
// queue worker and the metrics endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/verisafe/docvault/internal/cryptox"
	"github.com/verisafe/docvault/internal/logging"
	"github.com/verisafe/docvault/internal/server/config"
	"github.com/verisafe/docvault/internal/server/ledger"
	"github.com/verisafe/docvault/internal/server/metrics"
	"github.com/verisafe/docvault/internal/server/repositories/repomanager"
	"github.com/verisafe/docvault/internal/server/services"
	"github.com/verisafe/docvault/internal/server/storage"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *prometheus.Registry

	documentService *services.DocumentService
	integrity       *services.IntegrityService
	lifecycle       *services.LifecyclePolicy
	anchorWorker    *services.AnchorWorker
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	// the engine validates the master secret eagerly: a misconfigured
	// secret must stop the server before it accepts a single document
	engine, err := cryptox.NewEngine([]byte(cfg.MasterSecret))
	if err != nil {
		return nil, fmt.Errorf("encryption engine init: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migrations: %w", err)
	}

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		RootUser:     cfg.S3RootUser,
		RootPassword: cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage init: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	ledgerClient := ledger.NewHTTPClient(cfg.LedgerBaseURL, nil)

	integrity := services.NewIntegrityService(db, rm, logger)
	docs := services.NewDocumentService(db, rm, engine, store, integrity, logger)
	lifecycle := services.NewLifecyclePolicy(db, rm, store, logger, m, cfg)
	worker := services.NewAnchorWorker(db, rm, ledgerClient, logger, m, cfg)

	return &App{
		config:          cfg,
		logger:          logger,
		db:              db,
		registry:        registry,
		documentService: docs,
		integrity:       integrity,
		lifecycle:       lifecycle,
		anchorWorker:    worker,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startMetricsServer(ctx context.Context) error {
	srv := &http.Server{
		Addr: app.config.MetricsAddr,
		Handler: promhttp.HandlerFor(app.registry,
			promhttp.HandlerOpts{Registry: app.registry}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "metrics endpoint listening", "addr", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run starts the anchor worker and the metrics endpoint and blocks until
// a signal arrives or a component fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.anchorWorker.Run(ctx)
	})
	g.Go(func() error {
		return app.startMetricsServer(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	app.logger.Info(ctx, "app stopped")
	if closeErr := app.db.Close(); closeErr != nil {
		app.logger.Error(ctx, "db close error", "error", closeErr.Error())
	}
	return err
}

// Documents exposes the upload/download service to transports mounted on
// top of the core.
func (app *App) Documents() *services.DocumentService { return app.documentService }

// Integrity exposes hash verification to transports mounted on top of
// the core.
func (app *App) Integrity() *services.IntegrityService { return app.integrity }

// Lifecycle exposes the deletion policy to transports mounted on top of
// the core.
func (app *App) Lifecycle() *services.LifecyclePolicy { return app.lifecycle }
