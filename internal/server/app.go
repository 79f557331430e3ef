// Package server initializes and runs the shop server: storage, payment
// gateway, mail, the HTTP API, the gRPC health endpoint and periodic jobs,
// with graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/logging"
	"github.com/dmitrijs2005/comicvault/internal/server/blobs"
	"github.com/dmitrijs2005/comicvault/internal/server/config"
	"github.com/dmitrijs2005/comicvault/internal/server/httpapi"
	"github.com/dmitrijs2005/comicvault/internal/server/metrics"
	"github.com/dmitrijs2005/comicvault/internal/server/notify"
	"github.com/dmitrijs2005/comicvault/internal/server/payments"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/comicvault/internal/server/services"
	"github.com/robfig/cron/v3"

	gs "github.com/dmitrijs2005/comicvault/internal/server/grpc"
)

const (
	shutdownTimeout     = 15 * time.Second
	limiterIdleTTL      = 10 * time.Minute
	limiterCleanupEvery = "@every 5m"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	metrics    *metrics.Metrics
	repos      repomanager.RepositoryManager
	dispatcher *notify.Dispatcher
	limiter    *httpapi.RateLimiter
	accounts   *services.AccountService
	shop       *services.EntitlementService
	health     *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.SlogLevel())

	repos, err := repomanager.New(ctx, c.StorageBackend, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := newBlobStore(ctx, c)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("asset store init error: %w", err)
	}

	sender, err := newNotifier(c, logger)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("mail init error: %w", err)
	}
	dispatcher := notify.NewDispatcher(sender, logger.With("module", "notify"), c.NotifyWorkers, c.NotifyQueueSize)

	mt := metrics.New()
	gateway := payments.NewClient(c.PaystackBaseURL, c.PaystackSecretKey, c.GatewayTimeout)

	return &App{
		config:     c,
		logger:     logger,
		metrics:    mt,
		repos:      repos,
		dispatcher: dispatcher,
		limiter:    httpapi.NewRateLimiter(c.RateLimitRPS, c.RateLimitBurst),
		accounts:   services.NewAccountService(repos, gateway, dispatcher, c, logger, mt),
		shop:       services.NewEntitlementService(repos, store, gateway, c, logger, mt),
		health:     gs.NewGRPCServer(c.GRPCAddr, logger),
	}, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobs.Store, error) {
	switch c.BlobBackend {
	case config.BlobBackendS3:
		return blobs.NewS3Store(ctx, blobs.S3Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
	default:
		return blobs.NewLocalStore(c.AssetDir)
	}
}

func newNotifier(c *config.Config, logger logging.Logger) (notify.Notifier, error) {
	if !c.MailEnabled() {
		return notify.NewLogNotifier(logger.With("module", "mail")), nil
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
	})
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.health.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) router() http.Handler {
	h := httpapi.NewHandler(app.accounts, app.shop, app.logger)
	return httpapi.NewRouter(h, httpapi.RouterOptions{
		AllowedOrigins: app.config.CORSAllowedOrigins,
		Limiter:        app.limiter,
		Metrics:        app.metrics,
	})
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.health.SetServing(false)
		app.logger.Info(ctx, "Stopping HTTP server...")

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startScheduler runs the periodic jobs until ctx is done.
func (app *App) startScheduler(ctx context.Context, cancelFunc context.CancelFunc) {
	c := cron.New()

	_, err := c.AddFunc(app.config.SessionPurgeSchedule, func() {
		n, err := app.accounts.PurgeSessions(ctx)
		if err != nil {
			app.logger.Error(ctx, "session purge failed", "error", err)
			return
		}
		if n > 0 {
			app.logger.Info(ctx, "expired sessions purged", "count", n)
		}
	})
	if err != nil {
		app.logger.Error(ctx, "bad session purge schedule", "schedule", app.config.SessionPurgeSchedule, "error", err)
		cancelFunc()
		return
	}

	if _, err := c.AddFunc(limiterCleanupEvery, func() {
		app.limiter.Cleanup(limiterIdleTTL)
	}); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}

// watchMailFailures counts failed deliveries.
func (app *App) watchMailFailures(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-app.dispatcher.Failures():
			app.metrics.MailFailed()
		}
	}
}

func (app *App) shutdown(ctx context.Context) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := app.dispatcher.Close(sctx); err != nil {
		app.logger.Warn(ctx, "mail queue not drained", "error", err)
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "closing storage", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	for _, run := range []func(context.Context, context.CancelFunc){
		app.startGRPCServer,
		app.startHTTPServer,
		app.startScheduler,
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx, cancelFunc)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.watchMailFailures(ctx)
	}()

	wg.Wait()
	app.shutdown(ctx)
}
