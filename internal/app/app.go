// Package app wires the service together: local queue storage, the remote
// entry store, blob uploads, the connectivity monitor, the sync engine and
// the HTTP server, with graceful shutdown on SIGINT/SIGTERM.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/betterbench/betterbench/internal/auth"
	"github.com/betterbench/betterbench/internal/blob"
	"github.com/betterbench/betterbench/internal/config"
	"github.com/betterbench/betterbench/internal/kv"
	"github.com/betterbench/betterbench/internal/logging"
	"github.com/betterbench/betterbench/internal/netmon"
	"github.com/betterbench/betterbench/internal/queue"
	"github.com/betterbench/betterbench/internal/remote"
	"github.com/betterbench/betterbench/internal/repository"
	"github.com/betterbench/betterbench/internal/server"
	"github.com/betterbench/betterbench/internal/syncer"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	local   *kv.SQLiteStore
	remote  *remote.PostgresStore
	monitor *netmon.Monitor
	engine  *syncer.Engine
	server  *server.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	local, err := kv.NewSQLiteStore(cfg.LocalStatePath)
	if err != nil {
		return nil, fmt.Errorf("local storage init error: %w", err)
	}

	remoteStore, err := remote.NewPostgresStore(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("remote store init error: %w", err)
	}

	blobStore, err := blob.NewS3Store(ctx, blob.S3Config{
		RootUser:      cfg.S3RootUser,
		RootPassword:  cfg.S3RootPassword,
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		BaseEndpoint:  cfg.S3BaseEndpoint,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	q := queue.NewStore(local, logger)
	resolver := blob.NewResolver(blobStore)
	monitor := netmon.NewMonitor(remoteStore.Ping, cfg.OnlineCheckInterval, cfg.ProbeTimeout, logger)

	engine := syncer.NewEngine(q, remoteStore, resolver, monitor, logger)
	engine.Register()

	repo := repository.New(remoteStore, q, resolver, monitor, logger)
	authService := auth.NewService(cfg.AdminPasswordHash, cfg.SecretKey, cfg.SessionTTL)
	srv := server.New(cfg.HTTPAddr, repo, engine, monitor, authService, logger)

	return &App{
		config:  cfg,
		logger:  logger,
		local:   local,
		remote:  remoteStore,
		monitor: monitor,
		engine:  engine,
		server:  srv,
	}, nil
}

func (app *App) initSignalHandler(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancel()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.logger.Info(ctx, "starting app", "addr", app.config.HTTPAddr)

	app.initSignalHandler(cancel)

	// The service must come up with the remote unreachable; migrations are
	// retried on the next start if this one fails.
	if err := app.remote.RunMigrations(ctx); err != nil {
		app.logger.Warn(ctx, "migrations skipped, remote unreachable", "error", err)
	}

	app.monitor.Start(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(ctx)
	})

	err := g.Wait()

	if cerr := app.local.Close(); cerr != nil {
		app.logger.Error(ctx, "closing local storage", "error", cerr)
	}
	if cerr := app.remote.Close(); cerr != nil {
		app.logger.Error(ctx, "closing remote store", "error", cerr)
	}

	return err
}
