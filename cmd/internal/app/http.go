package app

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authapi "warden/cmd/internal/auth/api"
	"warden/cmd/internal/jsonapi"
)

// instrumentedRoutes are the paths that get their own metrics label.
var instrumentedRoutes = map[string]bool{
	"/session": true,
	"/user":    true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	cfg Config,
	dbPool *pgxpool.Pool,
	reg *prometheus.Registry,
	reporter *jsonapi.Reporter,
	auth *authapi.Handler,
) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireDB && dbPool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if dbPool != nil {
			if err := PingDB(r.Context(), dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	auth.Register(mux)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteResponse(w, reporter.NotFound("no route for "+r.URL.Path))
	})
}

// closeDB releases database resources owned by the app.
func closeDB(db *sql.DB, pool *pgxpool.Pool) {
	if db != nil {
		_ = db.Close()
	}
	if pool != nil {
		pool.Close()
	}
}
