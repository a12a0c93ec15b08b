package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	apperrors "github.com/Micah-S/gw2pao/internal/errors"
	"github.com/Micah-S/gw2pao/internal/metrics"
	"github.com/Micah-S/gw2pao/internal/overlay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // panels are local pages; the daemon binds loopback by default
	},
}

// renderTemplate renders a template to a buffer first to prevent partial HTML
// from being sent if template execution fails.
func renderTemplate(c echo.Context, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return apperrors.InternalError("render overlay page", err)
	}
	return c.HTMLBlob(200, buf.Bytes())
}

func (s *Server) handleOverlayPage(c echo.Context) error {
	channel := c.Param("channel")
	if !overlay.KnownChannel(channel) {
		return apperrors.NotFoundError("unknown overlay channel").WithContext("channel", channel)
	}

	data := map[string]any{
		"Channel": channel,
		"WSHost":  c.Request().Host,
	}
	return renderTemplate(c, s.overlayTemplate, data)
}

func (s *Server) handleOverlaySocket(c echo.Context) error {
	channel := c.Param("channel")
	if !overlay.KnownChannel(channel) {
		return apperrors.NotFoundError("unknown overlay channel").WithContext("channel", channel)
	}

	ip := c.RealIP()
	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.OverlayConnectionsRejected.WithLabelValues(string(reason)).Inc()
		s.log.Warn("Overlay connection rejected", "channel", channel, "ip", ip, "reason", string(reason))
		return apperrors.UnavailableError("too many overlay connections").
			WithContext("reason", string(reason))
	}
	defer s.limits.Release(ip)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}

	if err := s.hub.Register(channel, conn); err != nil {
		s.log.Warn("Overlay registration failed", "channel", channel, "error", err)
		// Connection already closed by hub, just return
		return nil
	}

	// Read pump (blocks until the panel disconnects)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(channel, conn)

	return nil //nolint:nilerr // ReadMessage err is block-scoped; outer err is nil
}
