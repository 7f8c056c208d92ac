// Package server wires the gophdrop server together: database and
// migrations, session authority, file storage, worker pool, dispatcher and
// listener. It also owns graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophdrop/internal/logging"
	"github.com/dmitrijs2005/gophdrop/internal/server/auth"
	"github.com/dmitrijs2005/gophdrop/internal/server/config"
	"github.com/dmitrijs2005/gophdrop/internal/server/dispatch"
	"github.com/dmitrijs2005/gophdrop/internal/server/listener"
	"github.com/dmitrijs2005/gophdrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophdrop/internal/server/storage"
	"github.com/dmitrijs2005/gophdrop/internal/telemetry"
	"github.com/dmitrijs2005/gophdrop/internal/transport"
	"github.com/dmitrijs2005/gophdrop/internal/workerpool"
)

const serviceName = "gophdrop-server"

// Version is overridden at build time with -ldflags.
var Version = "dev"

var initTelemetry = telemetry.InitTelemetry

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	auth      *auth.Service
	store     storage.Storage
	tlsConfig *tls.Config
}

// NewApp opens the database, applies migrations and prepares the storage
// backend. Nothing listens until Run is called.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewJSON(os.Stdout, logging.ParseLevel(c.LogLevel))
	}

	db, rm, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, rm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	as, err := auth.NewService(db, rm)
	if err != nil {
		return nil, fmt.Errorf("auth init error: %w", err)
	}

	store, err := newStorage(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	var tlsConfig *tls.Config
	if c.TLSEnabled() {
		tlsConfig, err = transport.ServerTLSConfig(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("tls init error: %w", err)
		}
	}

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		auth:      as,
		store:     store,
		tlsConfig: tlsConfig,
	}, nil
}

func newStorage(ctx context.Context, c *config.Config) (storage.Storage, error) {
	switch c.StorageBackend {
	case "", config.StorageLocal:
		return storage.NewLocalStorage(c.StorageRoot)
	case config.StorageS3:
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:       c.S3Bucket,
			Prefix:       c.S3Prefix,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives. It
// then stops accepting, waits for queued and running connections and
// closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)
	return app.serve(ctx, func(l *listener.Server) error { return l.Run(ctx) })
}

func (app *App) serve(ctx context.Context, run func(*listener.Server) error) error {
	shutdownTelemetry, err := initTelemetry(ctx, serviceName, Version, app.logger)
	if err != nil {
		app.logger.Warn(ctx, "telemetry disabled", "error", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	pool := workerpool.New(app.config.Workers, app.logger)
	d := dispatch.New(app.auth, app.store, app.logger, nil)

	opts := []listener.Option{listener.WithIdleTimeout(app.config.IdleTimeout)}
	if app.tlsConfig != nil {
		opts = append(opts, listener.WithTLS(app.tlsConfig))
	}
	l := listener.New(app.config.ListenAddr, pool, d, app.logger, opts...)

	app.logger.Info(ctx, "Starting app...",
		"address", app.config.ListenAddr,
		"workers", app.config.Workers,
		"tls", app.tlsConfig != nil,
		"storage", app.config.StorageBackend,
	)

	runErr := run(l)
	if runErr != nil {
		app.logger.Error(ctx, "listener stopped", "error", runErr)
	}

	app.logger.Info(ctx, "Shutting down, waiting for in-flight connections...")
	pool.Shutdown()

	shutdownCtx := context.WithoutCancel(ctx)
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		app.logger.Warn(shutdownCtx, "telemetry shutdown", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(shutdownCtx, "db close", "error", err)
	}

	app.logger.Info(shutdownCtx, "Stopped")
	return runErr
}
