package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Micah-S/gw2pao/internal/domain"
	apperrors "github.com/Micah-S/gw2pao/internal/errors"
	"github.com/Micah-S/gw2pao/internal/overlay"
	"github.com/Micah-S/gw2pao/internal/version"
	"github.com/Micah-S/gw2pao/internal/zone"
)

func (s *Server) handleMenu(c echo.Context) error {
	entries, err := s.orch.Menu()
	if err != nil {
		return err
	}
	return c.JSON(200, map[string]any{"commands": entries})
}

type invokeRequest struct {
	Toggle *bool `json:"toggle"`
}

// handleInvokeCommand runs one menu command. A body with a "toggle" field
// writes the toggle state directly instead of flipping it.
func (s *Server) handleInvokeCommand(c echo.Context) error {
	id := c.Param("id")

	var req invokeRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return apperrors.ValidationError("invalid request body").WithContext("command", id)
		}
	}

	var err error
	if req.Toggle != nil {
		err = s.orch.SetToggle(id, *req.Toggle)
	} else {
		err = s.orch.Invoke(id)
	}
	if err != nil {
		return err
	}

	return c.JSON(200, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Features       []domain.FeatureStatus `json:"features"`
	GameRunning    bool                   `json:"game_running"`
	Zone           *zone.ZoneInfo         `json:"zone,omitempty"`
	System         *domain.SystemFacts    `json:"system,omitempty"`
	OverlayClients map[string]int         `json:"overlay_clients"`
	Version        version.Info           `json:"version"`
}

func (s *Server) handleStatus(c echo.Context) error {
	features, err := s.orch.Status()
	if err != nil {
		return err
	}

	resp := statusResponse{
		Features:       features,
		OverlayClients: make(map[string]int, 3),
		Version:        version.Get(),
	}

	for _, channel := range []string{overlay.ChannelEvents, overlay.ChannelZoneAssist, overlay.ChannelHUD} {
		resp.OverlayClients[channel] = s.hub.ClientCount(channel)
	}

	if s.game != nil {
		running, err := s.game.GameRunning()
		if err != nil {
			// Status stays best-effort: a probe failure reads as not running.
			s.log.Warn("Game probe failed during status", "error", err)
		}
		resp.GameRunning = running
	}

	if current := s.display.Current(); current.MapID != 0 {
		resp.Zone = &current
	}

	if s.system != nil {
		facts, err := s.system.Facts()
		if err != nil {
			s.log.Warn("System probe failed during status", "error", err)
		} else {
			resp.System = &facts
		}
	}

	return c.JSON(200, resp)
}

// handleOpenFeature is the HTTP path to DisplayOrFocus: availability is
// checked here, mirroring the enablement check a menu invocation runs.
func (s *Server) handleOpenFeature(c echo.Context) error {
	feature, err := domain.ParseFeature(c.Param("feature"))
	if err != nil {
		return err
	}

	ok, err := s.orch.CanDisplay(feature)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ConflictError("feature is currently unavailable").
			WithContext("feature", string(feature))
	}

	if err := s.orch.DisplayOrFocus(feature); err != nil {
		return err
	}

	channel, err := overlay.FeatureChannel(feature)
	if err != nil {
		return err
	}
	return c.JSON(200, map[string]string{
		"status":      "ok",
		"overlay_url": fmt.Sprintf("/overlay/%s", channel),
	})
}

func (s *Server) handleZoneSearch(c echo.Context) error {
	query := c.QueryParam("q")
	if strings.TrimSpace(query) == "" {
		return apperrors.ValidationError("query parameter q must not be empty")
	}

	zones := s.catalog.Search(query)
	return c.JSON(200, map[string]any{"zones": zones})
}

func (s *Server) handleZoneByID(c echo.Context) error {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return apperrors.ValidationError("map id must be numeric").WithContext("id", idStr)
	}

	z, err := s.catalog.ByID(id)
	if err != nil {
		return err
	}
	return c.JSON(200, z)
}
