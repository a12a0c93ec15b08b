package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"

	"github.com/Micah-S/gw2pao/internal/app"
	"github.com/Micah-S/gw2pao/internal/config"
	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/events"
	"github.com/Micah-S/gw2pao/internal/gate"
	"github.com/Micah-S/gw2pao/internal/logging"
	"github.com/Micah-S/gw2pao/internal/metrics"
	"github.com/Micah-S/gw2pao/internal/notify"
	"github.com/Micah-S/gw2pao/internal/overlay"
	"github.com/Micah-S/gw2pao/internal/probe"
	"github.com/Micah-S/gw2pao/internal/server"
	"github.com/Micah-S/gw2pao/internal/settings"
	"github.com/Micah-S/gw2pao/internal/version"
	"github.com/Micah-S/gw2pao/internal/zone"
)

var (
	flagAddr      = pflag.String("addr", "", "listen address (overrides GW2PAO_ADDR)")
	flagSettings  = pflag.String("settings-dir", "", "settings directory (overrides GW2PAO_SETTINGS_DIR)")
	flagTelemetry = pflag.String("telemetry-file", "", "telemetry link file (overrides GW2PAO_TELEMETRY_FILE)")
	flagProcess   = pflag.String("process-name", "", "game process name (overrides GW2PAO_PROCESS_NAME)")
	flagLogLevel  = pflag.String("log-level", "", "log level: debug, info, warn, error")
	flagVersion   = pflag.Bool("version", false, "print version and exit")
)

// flusher is what a settings handle looks like at shutdown.
type flusher interface {
	Name() string
	Flush() error
}

// daemon groups everything the shutdown path has to unwind, in order.
type daemon struct {
	server      *server.Server
	orch        *app.Orchestrator
	eventsCtrl  *events.Controller
	zoneCtrl    *zone.Controller
	stopBridge  func()
	linkWatcher *probe.LinkWatcher
	hub         *overlay.Hub
	flushers    []flusher
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	if *flagAddr != "" {
		cfg.Addr = *flagAddr
	}
	if *flagSettings != "" {
		cfg.SettingsDir = *flagSettings
	}
	if *flagTelemetry != "" {
		cfg.TelemetryFile = *flagTelemetry
	}
	if *flagProcess != "" {
		cfg.ProcessName = *flagProcess
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func setupSettings(cfg *config.Config, clock clockwork.Clock) (*settings.Handle[domain.EventsSettings], *settings.Handle[domain.ZoneAssistSettings]) {
	store, err := settings.NewStore(cfg.SettingsDir, logging.Logger)
	if err != nil {
		slog.Error("Failed to open settings store", "dir", cfg.SettingsDir, "error", err)
		os.Exit(1)
	}

	eventsHandle := settings.NewHandle(store, domain.EventsSettingsName, domain.DefaultEventsSettings(), clock, logging.Logger)
	zoneHandle := settings.NewHandle(store, domain.ZoneAssistSettingsName, domain.DefaultZoneAssistSettings(), clock, logging.Logger)
	eventsHandle.EnableAutoSave()
	zoneHandle.EnableAutoSave()

	return eventsHandle, zoneHandle
}

func runGracefulShutdown(d *daemon) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		d.orch.Stop()
		d.eventsCtrl.Stop()
		d.zoneCtrl.Stop()
		d.stopBridge()

		if err := d.linkWatcher.Close(); err != nil {
			slog.Error("Link watcher close error", "error", err)
		}

		d.hub.Stop()

		for _, h := range d.flushers {
			if err := h.Flush(); err != nil {
				slog.Error("Settings flush failed", "name", h.Name(), "error", err)
			}
		}

		close(done)
	}()

	return done
}

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Println(version.Get().String())
		return
	}

	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Daemon starting", "addr", cfg.Addr, "version", version.Get().Version)

	info := version.Get()
	metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, info.BuildTime, info.GoVersion).Set(1)

	eventsHandle, zoneHandle := setupSettings(cfg, clock)

	// Probes over the local game
	gameProbe := probe.NewProcessProbe(cfg.ProcessName, cfg.ProbeTTL, clock, logging.Logger)
	linkWatcher, err := probe.NewLinkWatcher(cfg.TelemetryFile, cfg.TelemetryStaleAfter, clock, logging.Logger)
	if err != nil {
		slog.Error("Failed to start link watcher", "file", cfg.TelemetryFile, "error", err)
		os.Exit(1)
	}

	catalog := zone.NewCatalog()
	display := zone.NewNameDisplay()

	// Overlay fan-out and the notification surface on top of it
	hub := overlay.NewHub(cfg.WSMaxClientsPerChannel, clock, logging.Logger)
	notifier := notify.NewToaster(hub, clock, logging.Logger)
	stopBridge := overlay.BindZoneUpdates(hub, display)

	// orch is assigned before any controller starts; controllers raise
	// events only after Start, which runs through the orchestrator.
	var orch *app.Orchestrator
	emit := func(ev domain.FeatureEvent) { orch.OnFeatureNotification(ev) }

	eventsCtrl := events.New(eventsHandle.Get, emit, clock, logging.WithFeature(domain.FeatureEvents))
	zoneCtrl := zone.New(linkWatcher, catalog, display, zoneHandle.Get, emit, clock, logging.WithFeature(domain.FeatureZoneAssist))

	zoneGate := gate.New(
		domain.FeatureZoneAssist,
		[]gate.Fact{
			{Name: "game_running", Check: gameProbe.GameRunning},
			{Name: "valid_map", Check: linkWatcher.HasValidMap},
		},
		gate.NewSuppressionState(),
		notifier,
		gate.Warning{
			Title:   "Zone Assistant unavailable",
			Message: "The game client runs with higher privileges than gw2pao. Restart gw2pao with matching privileges to use the Zone Assistant.",
		},
		logging.Logger,
	)

	factory := overlay.NewFactory(hub, display, cfg.SurfaceGrace, clock, logging.Logger)

	orch, err = app.NewOrchestrator(app.Config{
		Controllers: map[domain.Feature]domain.FeatureController{
			domain.FeatureEvents:     eventsCtrl,
			domain.FeatureZoneAssist: zoneCtrl,
		},
		Gates: map[domain.Feature]domain.AvailabilityGate{
			domain.FeatureZoneAssist: zoneGate,
		},
		Factory:                 factory,
		Notifier:                notifier,
		NotificationsEnabled:    func() bool { return eventsHandle.Get().NotificationsEnabled },
		SetNotificationsEnabled: func(on bool) { eventsHandle.Update(func(s *domain.EventsSettings) { s.NotificationsEnabled = on }) },
		Clock:                   clock,
		Logger:                  logging.Logger,
	})
	if err != nil {
		slog.Error("Failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg, server.Deps{
		Orchestrator: orch,
		Hub:          hub,
		Catalog:      catalog,
		Display:      display,
		Game:         gameProbe,
		System:       probe.SystemProbe{},
		Log:          logging.Logger,
	})
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(&daemon{
		server:      srv,
		orch:        orch,
		eventsCtrl:  eventsCtrl,
		zoneCtrl:    zoneCtrl,
		stopBridge:  stopBridge,
		linkWatcher: linkWatcher,
		hub:         hub,
		flushers:    []flusher{eventsHandle, zoneHandle},
	})

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
