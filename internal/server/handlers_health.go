package server

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Micah-S/gw2pao/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

// handleReadiness reports whether the presentation loop still answers.
// Probe failures (game not running, stale telemetry) do not count: the
// daemon is ready even when the game is not.
func (s *Server) handleReadiness(c echo.Context) error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"orchestrator", s.checkOrchestrator},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			return c.JSON(503, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.name,
				"error":        err.Error(),
			})
		}
	}

	return c.JSON(200, map[string]string{"status": "ready"})
}

func (s *Server) checkOrchestrator() error {
	_, err := s.orch.Status()
	return err
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
