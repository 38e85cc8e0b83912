package app

import (
	"context"
	"time"
)

const httpShutdownTimeout = 10 * time.Second

// Shutdown stops the application gracefully: first the HTTP API stops taking
// requests, then the scheduler drains in-flight runs, then storage closes.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}
	a.started = false

	a.cancel()

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("HTTP server shutdown failed", err)
		}
	}

	if a.scheduler != nil {
		a.scheduler.Shutdown()
	}

	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Error("Failed to close storage", err)
		}
	}

	a.logger.Info("Application stopped")
	return nil
}
