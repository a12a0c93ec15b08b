package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Micah-S/gw2pao/internal/overlay"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Root - redirect to the HUD panel
	s.echo.GET("/", func(c echo.Context) error {
		return c.Redirect(302, "/overlay/"+overlay.ChannelHUD)
	})

	// Session API
	s.echo.GET("/api/menu", s.handleMenu)
	s.echo.POST("/api/menu/:id/invoke", s.handleInvokeCommand)
	s.echo.GET("/api/status", s.handleStatus)
	s.echo.POST("/api/features/:feature/open", s.handleOpenFeature)

	// Zone catalog
	s.echo.GET("/api/zones/search", s.handleZoneSearch)
	s.echo.GET("/api/zones/:id", s.handleZoneByID)

	// Overlay panels and their socket
	s.echo.GET("/overlay/:channel", s.handleOverlayPage)
	s.echo.GET("/ws/overlay/:channel", s.handleOverlaySocket)
}
