package events

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/metrics"
)

// rotationRecheckInterval bounds how long an empty rotation sleeps before
// looking for newly configured events.
const rotationRecheckInterval = time.Minute

// Controller raises reminder and spawn events for the configured rotation.
// Start and Stop are idempotent; a stopped controller can be started again
// for a fresh cycle.
type Controller struct {
	settings func() domain.EventsSettings
	emit     func(domain.FeatureEvent)
	clock    clockwork.Clock
	log      *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

var _ domain.FeatureController = (*Controller)(nil)

// New creates the tracker. settings is re-read every cycle, so rotation and
// reminder-lead edits apply without a restart; emit must not block.
func New(settings func() domain.EventsSettings, emit func(domain.FeatureEvent), clock clockwork.Clock, log *slog.Logger) *Controller {
	return &Controller{
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
	c.log.Info("event tracker started")
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
	c.log.Info("event tracker stopped")
}

func (c *Controller) run(stopCh, done chan struct{}) {
	defer close(done)

	for {
		settings := c.settings()
		spawnAt, due := nextSpawn(settings.Rotation, c.clock.Now())
		if len(due) == 0 {
			select {
			case <-stopCh:
				return
			case <-c.clock.After(rotationRecheckInterval):
			}
			continue
		}

		if lead := settings.ReminderLead.Std(); lead > 0 {
			reminderAt := spawnAt.Add(-lead)
			if reminderAt.After(c.clock.Now()) {
				if !c.sleepUntil(stopCh, reminderAt) {
					return
				}
				for _, ev := range due {
					c.raise("reminder", ev, fmt.Sprintf("%s spawns in %s.", ev.Name, humanDuration(lead)))
				}
			}
		}

		if !c.sleepUntil(stopCh, spawnAt) {
			return
		}
		for _, ev := range due {
			message := ev.Name + " is up."
			if ev.Waypoint != "" {
				message = fmt.Sprintf("%s is up. Waypoint: %s", ev.Name, ev.Waypoint)
			}
			c.raise("spawn", ev, message)
		}
	}
}

// sleepUntil blocks until at, reporting false when the controller stops
// first.
func (c *Controller) sleepUntil(stopCh chan struct{}, at time.Time) bool {
	d := at.Sub(c.clock.Now())
	if d <= 0 {
		return true
	}
	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-stopCh:
		return false
	case <-timer.Chan():
		return true
	}
}

func (c *Controller) raise(kind string, ev domain.TrackedEvent, message string) {
	c.emit(domain.FeatureEvent{
		Feature:  domain.FeatureEvents,
		Kind:     kind,
		Title:    ev.Name,
		Message:  message,
		Severity: domain.SeverityInfo,
		At:       c.clock.Now(),
	})
	metrics.FeatureEventsRaised.WithLabelValues(string(domain.FeatureEvents), kind).Inc()
	c.log.Debug("event raised", "kind", kind, "event", ev.Name)
}

// nextOccurrence computes the first spawn of ev strictly after now. The Unix
// epoch starts at midnight UTC, so second arithmetic on it keeps the UTC day
// grid for any period that divides 24h.
func nextOccurrence(ev domain.TrackedEvent, now time.Time) (time.Time, bool) {
	p := int64(ev.Period.Std() / time.Second)
	if p <= 0 {
		return time.Time{}, false
	}
	off := int64(ev.Offset.Std() / time.Second)

	nowS := now.Unix()
	k := (nowS - off) / p
	occ := k*p + off
	if occ <= nowS {
		occ += p
	}
	return time.Unix(occ, 0).UTC(), true
}

// nextSpawn returns the earliest upcoming spawn instant and every event due
// then. Rotations may align several events on the same instant.
func nextSpawn(rotation []domain.TrackedEvent, now time.Time) (time.Time, []domain.TrackedEvent) {
	var at time.Time
	var due []domain.TrackedEvent
	for _, ev := range rotation {
		occ, ok := nextOccurrence(ev, now)
		if !ok {
			continue
		}
		switch {
		case due == nil || occ.Before(at):
			at = occ
			due = []domain.TrackedEvent{ev}
		case occ.Equal(at):
			due = append(due, ev)
		}
	}
	return at, due
}

func humanDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	}
	return d.String()
}
