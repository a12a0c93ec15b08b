package server

import (
	"html/template"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/Micah-S/gw2pao/internal/domain"
	apperrors "github.com/Micah-S/gw2pao/internal/errors"
	"github.com/Micah-S/gw2pao/internal/overlay"
	"github.com/Micah-S/gw2pao/internal/zone"
)

// --- Mock implementations ---

type mockOrchestrator struct {
	displayFn    func(f domain.Feature) error
	canDisplayFn func(f domain.Feature) (bool, error)
	menuFn       func() ([]domain.MenuEntry, error)
	invokeFn     func(id string) error
	setToggleFn  func(id string, on bool) error
	statusFn     func() ([]domain.FeatureStatus, error)
}

func (m *mockOrchestrator) DisplayOrFocus(f domain.Feature) error {
	if m.displayFn != nil {
		return m.displayFn(f)
	}
	return nil
}

func (m *mockOrchestrator) CanDisplay(f domain.Feature) (bool, error) {
	if m.canDisplayFn != nil {
		return m.canDisplayFn(f)
	}
	return true, nil
}

func (m *mockOrchestrator) Commands() []domain.MenuCommand {
	return nil
}

func (m *mockOrchestrator) Menu() ([]domain.MenuEntry, error) {
	if m.menuFn != nil {
		return m.menuFn()
	}
	return []domain.MenuEntry{
		{ID: "open-events", Label: "Event Tracker", Enabled: true},
		{ID: "open-zone-assist", Label: "Zone Assistant", Enabled: true},
		{ID: "toggle-event-notifications", Label: "Event Notifications", IsToggle: true, Enabled: true, Checked: true},
	}, nil
}

func (m *mockOrchestrator) Invoke(id string) error {
	if m.invokeFn != nil {
		return m.invokeFn(id)
	}
	return nil
}

func (m *mockOrchestrator) SetToggle(id string, on bool) error {
	if m.setToggleFn != nil {
		return m.setToggleFn(id, on)
	}
	return nil
}

func (m *mockOrchestrator) Status() ([]domain.FeatureStatus, error) {
	if m.statusFn != nil {
		return m.statusFn()
	}
	return []domain.FeatureStatus{
		{Feature: domain.FeatureEvents, Available: true},
		{Feature: domain.FeatureZoneAssist, Available: false},
	}, nil
}

type mockGameProbe struct {
	runningFn func() (bool, error)
}

func (m *mockGameProbe) GameRunning() (bool, error) {
	if m.runningFn != nil {
		return m.runningFn()
	}
	return false, nil
}

type mockSystemProbe struct {
	factsFn func() (domain.SystemFacts, error)
}

func (m *mockSystemProbe) Facts() (domain.SystemFacts, error) {
	if m.factsFn != nil {
		return m.factsFn()
	}
	return domain.SystemFacts{Hostname: "gaming-rig", Platform: "linux"}, nil
}

// --- Test helpers ---

func newTestServer(t *testing.T, orch domain.Orchestrator, opts ...func(*Server)) *Server {
	t.Helper()

	overlayTmpl := template.Must(template.New("overlay.html").Parse(`Overlay {{.Channel}} via {{.WSHost}}`))

	e := echo.New()
	// Install error middleware for tests to match production behavior
	e.Use(apperrors.Middleware())

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := overlay.NewHub(8, clockwork.NewRealClock(), log)
	t.Cleanup(hub.Stop)

	srv := &Server{
		echo:            e,
		addr:            "127.0.0.1:0",
		orch:            orch,
		hub:             hub,
		catalog:         zone.NewCatalog(),
		display:         zone.NewNameDisplay(),
		limits:          NewConnectionLimits(8, 4, 100, 100),
		log:             log,
		startTime:       time.Now(),
		overlayTemplate: overlayTmpl,
	}

	for _, opt := range opts {
		opt(srv)
	}

	// Register routes so endpoints are available for testing
	srv.registerRoutes()

	return srv
}

func withGameProbe(game domain.GameProcessSource) func(*Server) {
	return func(s *Server) {
		s.game = game
	}
}

func withSystemProbe(system domain.SystemSource) func(*Server) {
	return func(s *Server) {
		s.system = system
	}
}

func withLimits(limits *ConnectionLimits) func(*Server) {
	return func(s *Server) {
		s.limits = limits
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return apperrors.Middleware()(handler)(c)
}
