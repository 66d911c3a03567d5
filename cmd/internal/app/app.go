// Package app wires the warden server runtime: config, logging, storage,
// the auth HTTP surface and its middleware chain.
package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"warden/cmd/identity"
	authapi "warden/cmd/internal/auth/api"
	"warden/cmd/internal/auth/session"
	"warden/cmd/internal/jsonapi"
)

// App is the warden server runtime. It owns the HTTP handler chain and
// the database resources behind it.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool
	db     *sql.DB

	registry *prometheus.Registry
	handler  http.Handler
}

type stores struct {
	identity identity.Store
	sessions session.Store
}

// New constructs a fully wired App. With an empty DatabaseURL the app runs
// on in-memory stores.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg)
	}
	a := &App{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	st, err := a.openStores(context.Background())
	if err != nil {
		return nil, err
	}

	auth, err := a.newAuthHandler(st)
	if err != nil {
		closeDB(a.db, a.dbPool)
		return nil, err
	}

	reporter := jsonapi.NewReporter()
	mux := http.NewServeMux()
	registerHTTP(mux, log, cfg, a.dbPool, a.registry, reporter, auth)

	var h http.Handler = mux
	h = newHTTPMetrics(a.registry).instrument(h, instrumentedRoutes)
	h = WithCORS(h, cfg, log)
	h = WithSecurityHeaders(h)
	h = WithRequestLogging(h, log)
	a.handler = h

	return a, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) openStores(ctx context.Context) (stores, error) {
	if a.cfg.DatabaseURL == "" {
		a.log.Info("db.disabled.inmemory_store")
		return stores{
			identity: identity.NewInMemoryStore(),
			sessions: session.NewInMemoryStore(),
		}, nil
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return stores{}, err
	}
	db, err := openSQL(ctx, pool, a.cfg.DBAutoMigrate)
	if err != nil {
		pool.Close()
		return stores{}, err
	}
	a.dbPool, a.db = pool, db

	ids, err := identity.NewPostgresStore(db)
	if err != nil {
		closeDB(db, pool)
		return stores{}, err
	}
	sess, err := session.NewPostgresStore(db)
	if err != nil {
		closeDB(db, pool)
		return stores{}, err
	}

	a.log.Info("db.enabled.postgres_store", "auto_migrate", a.cfg.DBAutoMigrate)
	return stores{identity: ids, sessions: sess}, nil
}

func (a *App) newAuthHandler(st stores) (*authapi.Handler, error) {
	pw, err := a.cfg.PasswordConfig()
	if err != nil {
		return nil, err
	}
	digest, err := newTokenHasher(a.cfg)
	if err != nil {
		return nil, err
	}
	if !digest.HMACEnabled() {
		a.log.Warn("security.token_hmac.disabled", "hash", "sha256")
	}

	users, err := identity.NewService(st.identity, pw)
	if err != nil {
		return nil, err
	}
	verifier, err := identity.NewVerifier(st.identity, pw)
	if err != nil {
		return nil, err
	}

	sessCfg := a.cfg.SessionConfig()
	codec, err := session.NewTokenCodec(sessCfg)
	if err != nil {
		return nil, err
	}
	mgr, err := session.NewManager(sessCfg, st.sessions, codec, digest, session.WithOwnerStatus(users.Deactivated))
	if err != nil {
		return nil, err
	}

	return authapi.NewHandler(a.log, a.cfg.AuthConfig(pw), users, verifier, mgr,
		authapi.WithMetrics(authapi.NewMetrics(a.registry)),
	)
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbPool != nil)

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
		closeDB(a.db, a.dbPool)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
	}
	closeDB(a.db, a.dbPool)

	a.log.Info("server.stopped")
	return err
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
