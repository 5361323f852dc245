package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// Start runs the queue workers and the admin server until ctx is cancelled.
func (app *App) Start(ctx context.Context) error {
	if err := app.SyncModule.Run(ctx); err != nil {
		return fmt.Errorf("failed to start sync workers: %w", err)
	}

	servers := []*http.Server{{
		Addr:              app.Config.Admin.Address,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if addr := app.Config.Observability.MetricsAddress; addr != "" && addr != app.Config.Admin.Address {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
		servers = append(servers, &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			app.Logger.InfoContext(gctx, "HTTP server listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return app.shutdown(servers)
	})
	return g.Wait()
}
