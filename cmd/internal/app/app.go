// Package app wires the CareLink auth server runtime: config, logging,
// storage, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"carelink/cmd/identity"
	"carelink/cmd/internal/auth"
	authapi "carelink/cmd/internal/auth/api"
	"carelink/cmd/internal/auth/provider"
	"carelink/cmd/internal/auth/provider/google"
	"carelink/cmd/internal/auth/session"
	"carelink/cmd/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow backing resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used when everything is in-memory.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the CareLink server runtime: it owns HTTP server wiring and the
// lifecycle of its storage backends.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	reg *prometheus.Registry

	auth *authapi.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tokens, err := session.NewHMACTokenManager(sessCfg)
	if err != nil {
		return nil, err
	}

	st, dbPool, accounts, err := newAccountStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	sessions, err := newSessionStore(ctx, cfg, log, st)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	st = sessions.store

	if cfg.DevSeed {
		if err := identity.SeedDemoAccounts(ctx, accounts, time.Now()); err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
		log.Info("identity.seed.loaded", "accounts", len(identity.DemoAccounts()))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := auth.NewService(log, auth.LoadConfigFromEnv(), accounts, tokens, sessions.sessions, auth.NewMetrics(reg))

	providers, err := newProviders(ctx, cfg, log)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	handler := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), svc, providers)

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbPool != nil,
		reg:       reg,
		auth:      handler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.reg, a.auth)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newAccountStore decides between the Postgres account store and the
// in-memory dev store.
func newAccountStore(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, identity.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, nil, identity.NewInMemoryStore(), nil
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(log, cfg.DatabaseURL); err != nil {
			return nil, nil, nil, err
		}
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)

	accounts, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	return dbStore{pool: pool}, pool, accounts, nil
}

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// sessionBackend bundles the chosen session store with the combined
// lifecycle handle.
type sessionBackend struct {
	sessions session.Store
	store    Store
}

// newSessionStore decides between the Redis session store and the in-memory
// one, chaining lifecycle onto prev.
func newSessionStore(ctx context.Context, cfg Config, log Logger, prev Store) (sessionBackend, error) {
	if cfg.RedisURL == "" {
		log.Info("sessions.inmemory_store")
		return sessionBackend{sessions: session.NewInMemoryStore(), store: prev}, nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return sessionBackend{}, err
	}

	log.Info("sessions.redis_store")
	return sessionBackend{
		sessions: session.NewRedisStore(client),
		store:    chainStore{prev: prev, client: client},
	}, nil
}

type chainStore struct {
	prev   Store
	client *redis.Client
}

func (s chainStore) Close(ctx context.Context) error {
	var errs []error
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.prev != nil {
		if err := s.prev.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newProviders builds the federated login registry. Google is registered
// when fully configured; dev mode gets a static stand-in so the flow can be
// exercised locally.
func newProviders(ctx context.Context, cfg Config, log Logger) (*provider.Registry, error) {
	var list []provider.Provider

	if cfg.GoogleEnabled() {
		g, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			return nil, err
		}
		list = append(list, g)
		log.Info("providers.google.enabled")
	}

	if cfg.DevSeed && !cfg.GoogleEnabled() {
		list = append(list, &provider.Static{
			ProviderName: "dev",
			CallbackURL:  "/auth/federated/callback",
			Identity: provider.Identity{
				Email:       "dev.user@example.com",
				DisplayName: "Dev User",
			},
		})
		log.Info("providers.dev.enabled")
	}

	return provider.NewRegistry(list...), nil
}
