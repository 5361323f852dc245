package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteModule is a module exposing admin routes.
type RouteModule interface {
	Routes() http.Handler
}

// NewRouter mounts module routes under their prefixes and serves metrics from
// the given gatherer.
func NewRouter(gatherer prometheus.Gatherer, modules map[string]RouteModule) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	for prefix, module := range modules {
		r.Mount(prefix, module.Routes())
	}
	return r
}

// Router returns the admin router of the application.
func (app *App) Router() http.Handler {
	return NewRouter(app.Registry, map[string]RouteModule{
		"/sync":    app.SyncModule,
		"/reviews": app.TeamMatchingModule,
	})
}
