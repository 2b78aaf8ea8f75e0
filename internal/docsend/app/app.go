package app

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

	"github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/docsend/internal/docsend/http"
	"github.com/aussiebroadwan/docsend/internal/docsend/metrics"
	"github.com/aussiebroadwan/docsend/internal/docsend/service"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
	"github.com/aussiebroadwan/docsend/internal/docsend/store/drivers/sqlite"
	"github.com/aussiebroadwan/docsend/pkg/jwtx"
	"github.com/aussiebroadwan/docsend/pkg/ratelimit"
	"github.com/aussiebroadwan/docsend/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	serviceName = "docsend"
)

// Application encapsulates the docsend service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db        store.Store
	redis     *redis.Client // nil without REDIS_ADDR
	limiter   *ratelimit.FixedWindow
	guard     *ratelimit.SlidingLog
	verifier  *jwtx.HS256Verifier
	metrics   *metrics.Metrics
	resources *resources

	// Services
	auditTrail          *service.AuditTrail
	identityService     *service.SenderIdentityService
	documentService     *service.DocumentService
	sendService         *service.SendService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(serviceName),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	verifier, err := jwtx.NewHS256Verifier(cfg.JWTSecret, jwtx.VerifyOptions{
		Issuer:   cfg.JWTIssuer,
		Audience: audience(cfg.JWTAudience),
		Leeway:   30 * time.Second,
	})
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}
	app.verifier = verifier

	if err := app.initRateLimits(); err != nil {
		app.closeBackends()
		return nil, err
	}

	app.resources = newResources(cfg, app.logger)
	app.initServices()
	app.initHTTP()

	return app, nil
}

func audience(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("docsend starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeBackends()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains HTTP, stops housekeeping and releases the PDF engine,
// Redis and the database, in that order.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down docsend...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeBackends(); err != nil {
		return err
	}

	app.logger.Info("docsend stopped")
	return nil
}

func (app *Application) closeBackends() error {
	if app.resources != nil {
		if err := app.resources.Close(); err != nil {
			app.logger.Error("error closing pdf engine", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initRateLimits builds the fixed-window limiter (Redis-backed when
// configured) and the in-process sliding log used for mail-triggering routes.
func (app *Application) initRateLimits() error {
	opts := []ratelimit.FixedWindowOption{
		ratelimit.WithLogger(app.logger),
		ratelimit.WithObserver(app.metrics.ObserveRateLimit),
	}

	if app.cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := app.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// The limiter degrades to memory until Redis answers.
			app.logger.Warn("redis unreachable at startup", "addr", app.cfg.RedisAddr, "error", err)
		}

		counter := ratelimit.NewRedisCounter(app.redis, app.cfg.RedisPrefix, app.cfg.RedisTimeout)
		opts = append(opts, ratelimit.WithDistributed(counter))
		app.logger.Info("rate limits use redis", "addr", app.cfg.RedisAddr)
	} else {
		app.logger.Info("rate limits are in-process only")
	}

	limiter, err := ratelimit.NewFixedWindow(app.cfg.RateLimits, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	app.limiter = limiter

	guard, err := ratelimit.NewSlidingLog(app.cfg.RateLimits, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limit guard: %w", err)
	}
	app.guard = guard
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	platform := service.Platform{
		Name:      app.cfg.PlatformName,
		Email:     app.cfg.PlatformEmail,
		VerifyURL: app.cfg.VerifyURL(),
	}

	app.auditTrail = &service.AuditTrail{Store: app.db}
	app.identityService = &service.SenderIdentityService{
		Store:      app.db,
		Audit:      app.auditTrail,
		Transports: app.resources.Transport,
		Platform:   platform,
		Metrics:    app.metrics,
	}
	app.documentService = &service.DocumentService{
		Store: app.db,
		Audit: app.auditTrail,
	}
	app.sendService = &service.SendService{
		Store:   app.db,
		Limiter: app.limiter,
		Principals: service.TokenPrincipals{
			Verifier: app.verifier,
			Scope:    httpapi.WriteScope,
		},
		Identities: app.identityService,
		Audit:      app.auditTrail,
		Renderers:  app.resources.Renderer,
		Transports: app.resources.Transport,
		Platform:   platform,
		Metrics:    app.metrics,
		Timeout:    app.cfg.SendTimeout,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.TokenRetention,
		app.limiter.Fallback(),
		app.guard,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		app.limiter,
		app.guard,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Metrics = app.metrics
	router.VerifyRedirectBase = app.cfg.VerifyRedirectURL
	if app.redis != nil {
		router.Cache = redisPinger{app.redis}
	}

	router.SendService = app.sendService
	router.DocumentService = app.documentService
	router.SenderIdentityService = app.identityService
	router.AuditTrail = app.auditTrail
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }
