package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	app "github.com/R3E-Network/agent_studio/internal/app"
	"github.com/R3E-Network/agent_studio/internal/app/events"
	"github.com/R3E-Network/agent_studio/internal/app/httpapi"
	"github.com/R3E-Network/agent_studio/internal/app/services/sessions"
	"github.com/R3E-Network/agent_studio/internal/app/storage/postgres"
	"github.com/R3E-Network/agent_studio/internal/authclient"
	"github.com/R3E-Network/agent_studio/internal/config"
	"github.com/R3E-Network/agent_studio/internal/middleware"
	"github.com/R3E-Network/agent_studio/internal/platform/migrations"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

const (
	shutdownTimeout    = 10 * time.Second
	limiterCleanup     = time.Minute
	authBackendTimeout = 5 * time.Second
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	limiter    *middleware.RateLimiter
	audit      *httpapi.FileAuditSink
	db         *sql.DB
	redis      *redis.Client
}

// NewApplication loads configuration and constructs the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return New(cfg, logger.New(cfg.Logging))
}

// New constructs the application from an explicit configuration.
func New(cfg *config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("runtime")
	}
	a := &Application{cfg: cfg, log: log}

	stores, err := a.buildStores()
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	opts := app.Options{
		SessionSecret:   cfg.Auth.JWTSecret,
		SessionTTL:      cfg.Auth.SessionTTL,
		ChatDelay:       &cfg.Chat.StubDelay,
		JanitorSchedule: cfg.Janitor.Schedule,
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warn("AUTH_SECRET not set; sessions will not survive a restart")
	}
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts.SessionCache = sessions.NewRedisCache(a.redis, log.Named("session-cache"))
		opts.SessionCacheTTL = cfg.Redis.CacheTTL
		log.WithField("addr", cfg.Redis.Addr).Info("session cache enabled")
	}
	if cfg.NATS.URL != "" {
		opts.Publisher = events.NewNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log.Named("events"))
	}

	application, err := app.New(stores, log, opts)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("build application: %w", err)
	}
	a.app = application

	if _, err := application.Seed(context.Background()); err != nil {
		a.closeResources()
		return nil, err
	}

	a.audit, err = httpapi.NewFileAuditSink(cfg.Server.AuditLogPath)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log.Named("ratelimit"))
	handlerCfg := httpapi.Config{
		CookieName:     cfg.Server.CookieName,
		SecureCookies:  cfg.Server.SecureCookies,
		TrustProxy:     cfg.Server.TrustProxy,
		AllowedOrigins: cfg.Server.AllowedOrigins(),
		Admins:         cfg.Auth.Admins(),
		Limiter:        a.limiter,
	}
	if a.audit != nil {
		handlerCfg.AuditSink = a.audit
	}
	if cfg.Auth.BackendURL != "" {
		handlerCfg.Remote = authclient.New(cfg.Auth.BackendURL, authBackendTimeout, log.Named("authclient"))
		log.WithField("url", cfg.Auth.BackendURL).Info("delegating session checks to auth backend")
	}

	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           httpapi.NewHandler(application, handlerCfg, log.Named("http")),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       2 * cfg.Server.ReadTimeout,
	}
	return a, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts background services and the HTTP server, and blocks until the
// context is cancelled or a component fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		a.closeResources()
		return fmt.Errorf("start services: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	a.limiter.StartCleanup(gctx, limiterCleanup)
	g.Go(func() error {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(context.Background())
	})
	return g.Wait()
}

// Shutdown gracefully stops the HTTP server, the services and the backing
// connections.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop services: %w", err))
	}
	a.closeResources()
	return errors.Join(errs...)
}

func (a *Application) closeResources() {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.log.WithError(err).Warn("error closing audit log")
		}
		a.audit = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis client")
		}
		a.redis = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
		a.db = nil
	}
}

// buildStores returns Postgres-backed stores when a DSN is configured and
// leaves them nil otherwise, which selects the in-memory implementation.
func (a *Application) buildStores() (app.Stores, error) {
	if a.cfg.Database.DSN == "" {
		return app.Stores{}, nil
	}

	db, err := OpenDatabase(a.cfg.Database)
	if err != nil {
		return app.Stores{}, err
	}
	a.db = db

	if a.cfg.Database.MigrateOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := migrations.Apply(ctx, db); err != nil {
			return app.Stores{}, fmt.Errorf("apply migrations: %w", err)
		}
		a.log.Info("database migrations applied")
	}

	store := postgres.New(db)
	return app.Stores{
		Users:         store,
		Sessions:      store,
		Tools:         store,
		Agents:        store,
		Notifications: store,
		APITokens:     store,
		Onboarding:    store,
	}, nil
}

// OpenDatabase opens and pings the configured database.
func OpenDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("database driver not configured")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn not configured")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
