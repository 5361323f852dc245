package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// shutdown drains the HTTP servers, then stops the workers and closes the
// database.
func (app *App) shutdown(servers []*http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	app.Logger.InfoContext(ctx, "Shutting down application")

	var errs []error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := app.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		app.Logger.ErrorContext(ctx, "Shutdown finished with errors", slog.Any("error", err))
		return err
	}
	app.Logger.InfoContext(ctx, "Application shut down gracefully")
	return nil
}
