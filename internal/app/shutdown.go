package app

import "github.com/paradisestayz/staywatch/internal/logger"

// Shutdown stops the scheduler and cancels all background work. It is
// safe to call more than once.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}
	a.started = false

	a.logger.Info("shutting down")

	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil {
			a.logger.Warn("scheduler stop", logger.Field{Key: "error", Value: err.Error()})
		}
	}

	a.cancel()
	a.logger.Info("shutdown complete")
	return nil
}
