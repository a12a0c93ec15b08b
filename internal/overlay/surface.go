package overlay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/zone"
)

// controlFrame tells an attached panel to present itself.
type controlFrame struct {
	Type    string `json:"type"` // "show" or "focus"
	Feature string `json:"feature"`
}

// zoneFrame carries the current zone to the zone panels.
type zoneFrame struct {
	Type string        `json:"type"` // "zone"
	Zone zone.ZoneInfo `json:"zone"`
}

// Surface is one feature's overlay panel as seen by the orchestrator. The
// panel itself is a browser page attached to the hub; the surface forwards
// show and focus requests to it and tracks whether it still counts as live.
//
// A panel counts as live while a client is attached, or within the grace
// window after Show while the browser is still opening the page. All methods
// run on the orchestrator loop.
type Surface struct {
	feature domain.Feature
	channel string
	hub     *Hub
	display *zone.NameDisplay
	clock   clockwork.Clock
	grace   time.Duration
	shownAt time.Time
}

var _ domain.Surface = (*Surface)(nil)

func (s *Surface) Show() {
	s.shownAt = s.clock.Now()
	s.hub.Broadcast(s.channel, controlFrame{Type: "show", Feature: string(s.feature)})

	// The zone panel is bound to the shared name display: showing it pushes
	// the current zone so the panel never opens blank.
	if s.display != nil {
		s.hub.Broadcast(s.channel, zoneFrame{Type: "zone", Zone: s.display.Current()})
	}
}

func (s *Surface) Focus() {
	s.hub.Broadcast(s.channel, controlFrame{Type: "focus", Feature: string(s.feature)})
}

func (s *Surface) Visible() bool {
	if s.clock.Since(s.shownAt) < s.grace {
		return true
	}
	return s.hub.ClientCount(s.channel) > 0
}

// Factory builds surfaces bound to the hub. The zone assistant surface is
// additionally bound to the shared zone-name display.
type Factory struct {
	hub     *Hub
	display *zone.NameDisplay
	grace   time.Duration
	clock   clockwork.Clock
	log     *slog.Logger
}

var _ domain.SurfaceFactory = (*Factory)(nil)

func NewFactory(hub *Hub, display *zone.NameDisplay, grace time.Duration, clock clockwork.Clock, log *slog.Logger) *Factory {
	return &Factory{
		hub:     hub,
		display: display,
		grace:   grace,
		clock:   clock,
		log:     log,
	}
}

func (f *Factory) Create(feature domain.Feature) (domain.Surface, error) {
	channel, err := FeatureChannel(feature)
	if err != nil {
		return nil, err
	}

	s := &Surface{
		feature: feature,
		channel: channel,
		hub:     f.hub,
		clock:   f.clock,
		grace:   f.grace,
	}
	if feature == domain.FeatureZoneAssist {
		s.display = f.display
	}

	f.log.Debug("overlay surface created", "feature", feature, "channel", channel)
	return s, nil
}

// BindZoneUpdates forwards every change of the shared zone-name display to
// the zone panel and the HUD, independent of surface lifetimes. The returned
// stop function is idempotent and blocks until the bridge goroutine exits.
func BindZoneUpdates(hub *Hub, display *zone.NameDisplay) func() {
	updates, cancel := display.Subscribe()
	stopCh := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case info := <-updates:
				frame := zoneFrame{Type: "zone", Zone: info}
				hub.Broadcast(ChannelZoneAssist, frame)
				hub.Broadcast(ChannelHUD, frame)
			case <-stopCh:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			close(stopCh)
			<-done
		})
	}
}
