package server

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Micah-S/gw2pao/internal/config"
	"github.com/Micah-S/gw2pao/internal/domain"
	apperrors "github.com/Micah-S/gw2pao/internal/errors"
	"github.com/Micah-S/gw2pao/internal/overlay"
	"github.com/Micah-S/gw2pao/internal/zone"
)

// Deps carries the constructed daemon components the server exposes.
// Game and System are optional; the status endpoint degrades without them.
type Deps struct {
	Orchestrator domain.Orchestrator
	Hub          *overlay.Hub
	Catalog      *zone.Catalog
	Display      *zone.NameDisplay
	Game         domain.GameProcessSource
	System       domain.SystemSource
	Log          *slog.Logger
}

type Server struct {
	echo            *echo.Echo
	addr            string
	orch            domain.Orchestrator
	hub             *overlay.Hub
	catalog         *zone.Catalog
	display         *zone.NameDisplay
	game            domain.GameProcessSource
	system          domain.SystemSource
	limits          *ConnectionLimits
	log             *slog.Logger
	startTime       time.Time
	overlayTemplate *template.Template
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("overlay hub is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("zone catalog is required")
	}
	if deps.Display == nil {
		return nil, fmt.Errorf("zone display is required")
	}
	if deps.Log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Parse templates once at startup
	overlayTmpl, err := template.ParseFiles("web/templates/overlay.html")
	if err != nil {
		return nil, fmt.Errorf("parse overlay template: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:    e,
		addr:    cfg.Addr,
		orch:    deps.Orchestrator,
		hub:     deps.Hub,
		catalog: deps.Catalog,
		display: deps.Display,
		game:    deps.Game,
		system:  deps.System,
		limits: NewConnectionLimits(
			cfg.WSMaxClientsGlobal,
			cfg.WSMaxClientsPerIP,
			cfg.WSConnectionsPerSecond,
			cfg.WSConnectionBurst,
		),
		log:             deps.Log,
		startTime:       time.Now(),
		overlayTemplate: overlayTmpl,
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", "addr", s.addr)
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
