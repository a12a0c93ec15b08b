package zone

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/metrics"
)

// Controller polls the player's position and keeps the shared name display
// current. Entering a map raises a zone-entered event; leaving to a loading
// screen clears the display silently. Start and Stop are idempotent, and a
// stopped controller can be started again.
type Controller struct {
	player   domain.PlayerSource
	catalog  *Catalog
	display  *NameDisplay
	settings func() domain.ZoneAssistSettings
	emit     func(domain.FeatureEvent)
	clock    clockwork.Clock
	log      *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

var _ domain.FeatureController = (*Controller)(nil)

// New creates the controller. settings is re-read every poll; emit must not
// block.
func New(player domain.PlayerSource, catalog *Catalog, display *NameDisplay, settings func() domain.ZoneAssistSettings, emit func(domain.FeatureEvent), clock clockwork.Clock, log *slog.Logger) *Controller {
	return &Controller{
		player:   player,
		catalog:  catalog,
		display:  display,
		settings: settings,
		emit:     emit,
		clock:    clock,
		log:      log,
	}
}

func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stopCh, c.done)
	c.log.Info("zone assistant started")
}

func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
	<-c.done
	c.log.Info("zone assistant stopped")
}

func (c *Controller) run(stopCh, done chan struct{}) {
	defer close(done)

	lastMapID := 0
	for {
		interval := c.settings().PollInterval.Std()
		if interval <= 0 {
			interval = time.Second
		}

		select {
		case <-stopCh:
			return
		case <-c.clock.After(interval):
		}

		mapID, err := c.player.CurrentMapID()
		if err != nil {
			c.log.Warn("reading current map failed", "error", err)
			continue
		}
		if mapID == lastMapID {
			continue
		}

		c.onMapChange(mapID)
		lastMapID = mapID
	}
}

func (c *Controller) onMapChange(mapID int) {
	if mapID == 0 {
		c.log.Debug("left map, clearing zone display")
		c.display.Clear()
		return
	}

	info := ZoneInfo{MapID: mapID}
	zone, known := c.catalog.Lookup(mapID)
	switch {
	case !known:
		info.Name = fmt.Sprintf("Unknown zone (%d)", mapID)
	case c.settings().ShowRegion:
		info.Name = zone.Name
		info.Region = zone.Region
	default:
		info.Name = zone.Name
	}
	c.display.Set(info)

	message := "Now entering " + info.Name + "."
	if info.Region != "" {
		message = fmt.Sprintf("Now entering %s (%s).", info.Name, info.Region)
	}
	c.emit(domain.FeatureEvent{
		Feature:  domain.FeatureZoneAssist,
		Kind:     "zone_entered",
		Title:    info.Name,
		Message:  message,
		Severity: domain.SeverityInfo,
		At:       c.clock.Now(),
	})
	metrics.FeatureEventsRaised.WithLabelValues(string(domain.FeatureZoneAssist), "zone_entered").Inc()
	c.log.Info("zone entered", "map_id", mapID, "zone", info.Name)
}
