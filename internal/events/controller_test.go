package events

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Micah-S/gw2pao/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(hour, min int) time.Time {
	return time.Date(2026, 8, 21, hour, min, 0, 0, time.UTC)
}

func tracked(name string, period, offset time.Duration) domain.TrackedEvent {
	return domain.TrackedEvent{Name: name, Period: domain.Duration(period), Offset: domain.Duration(offset)}
}

// --- nextOccurrence tests ---

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name  string
		event domain.TrackedEvent
		now   time.Time
		want  time.Time
	}{
		{
			name:  "between occurrences",
			event: tracked("Fire Elemental", 2*time.Hour, 45*time.Minute),
			now:   at(10, 7),
			want:  at(10, 45),
		},
		{
			name:  "exactly on an occurrence rolls to the next",
			event: tracked("Fire Elemental", 2*time.Hour, 45*time.Minute),
			now:   at(10, 45),
			want:  at(12, 45),
		},
		{
			name:  "just past an occurrence",
			event: tracked("Tequatl", 3*time.Hour, 0),
			now:   at(12, 1),
			want:  at(15, 0),
		},
		{
			name:  "offset later than current time of day",
			event: tracked("Claw of Jormag", 3*time.Hour, 2*time.Hour+30*time.Minute),
			now:   at(0, 10),
			want:  at(2, 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := nextOccurrence(tt.event, tt.now)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextOccurrence_ZeroPeriod(t *testing.T) {
	_, ok := nextOccurrence(tracked("broken", 0, 0), at(10, 0))
	assert.False(t, ok)
}

// --- nextSpawn tests ---

func TestNextSpawn_PicksEarliest(t *testing.T) {
	rotation := []domain.TrackedEvent{
		tracked("The Shatterer", 3*time.Hour, time.Hour),
		tracked("Fire Elemental", 2*time.Hour, 45*time.Minute),
	}

	spawnAt, due := nextSpawn(rotation, at(10, 0))

	assert.Equal(t, at(10, 45), spawnAt)
	require.Len(t, due, 1)
	assert.Equal(t, "Fire Elemental", due[0].Name)
}

func TestNextSpawn_GroupsSimultaneousEvents(t *testing.T) {
	rotation := []domain.TrackedEvent{
		tracked("First", time.Hour, 0),
		tracked("Second", 2*time.Hour, 0),
		tracked("Later", time.Hour, 30*time.Minute),
	}

	spawnAt, due := nextSpawn(rotation, at(11, 40))

	assert.Equal(t, at(12, 0), spawnAt)
	require.Len(t, due, 2)
	assert.Equal(t, "First", due[0].Name)
	assert.Equal(t, "Second", due[1].Name)
}

func TestNextSpawn_EmptyRotation(t *testing.T) {
	_, due := nextSpawn(nil, at(10, 0))
	assert.Empty(t, due)
}

// --- Controller tests ---

type settingsSource struct {
	mu sync.Mutex
	s  domain.EventsSettings
}

func (src *settingsSource) get() domain.EventsSettings {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.s
}

func (src *settingsSource) set(s domain.EventsSettings) {
	src.mu.Lock()
	defer src.mu.Unlock()
	src.s = s
}

func receiveEvent(t *testing.T, ch <-chan domain.FeatureEvent) domain.FeatureEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a feature event")
	}
	return domain.FeatureEvent{}
}

func TestController_RemindsThenSpawns(t *testing.T) {
	clock := clockwork.NewFakeClockAt(at(10, 0))
	events := make(chan domain.FeatureEvent, 8)
	src := &settingsSource{s: domain.EventsSettings{
		ReminderLead: domain.Duration(5 * time.Minute),
		Rotation:     []domain.TrackedEvent{tracked("The Shatterer", time.Hour, 0)},
	}}

	c := New(src.get, func(ev domain.FeatureEvent) { events <- ev }, clock, testLogger())
	c.Start()
	defer c.Stop()

	// Reminder at 10:55.
	clock.BlockUntil(1)
	clock.Advance(55 * time.Minute)

	reminder := receiveEvent(t, events)
	assert.Equal(t, "reminder", reminder.Kind)
	assert.Equal(t, "The Shatterer", reminder.Title)
	assert.Equal(t, domain.FeatureEvents, reminder.Feature)
	assert.Contains(t, reminder.Message, "5m")

	// Spawn at 11:00.
	clock.BlockUntil(1)
	clock.Advance(5 * time.Minute)

	spawn := receiveEvent(t, events)
	assert.Equal(t, "spawn", spawn.Kind)
	assert.Equal(t, "The Shatterer", spawn.Title)
}

func TestController_SpawnCarriesWaypoint(t *testing.T) {
	clock := clockwork.NewFakeClockAt(at(10, 30))
	events := make(chan domain.FeatureEvent, 8)
	rotation := []domain.TrackedEvent{{
		Name:     "Tequatl the Sunless",
		Waypoint: "[&BNABAAA=]",
		Period:   domain.Duration(time.Hour),
	}}
	src := &settingsSource{s: domain.EventsSettings{Rotation: rotation}}

	c := New(src.get, func(ev domain.FeatureEvent) { events <- ev }, clock, testLogger())
	c.Start()
	defer c.Stop()

	clock.BlockUntil(1)
	clock.Advance(30 * time.Minute)

	spawn := receiveEvent(t, events)
	assert.Equal(t, "spawn", spawn.Kind)
	assert.Contains(t, spawn.Message, "[&BNABAAA=]")
}

func TestController_RotationEditsApplyNextCycle(t *testing.T) {
	clock := clockwork.NewFakeClockAt(at(10, 0))
	events := make(chan domain.FeatureEvent, 8)
	src := &settingsSource{s: domain.EventsSettings{
		Rotation: []domain.TrackedEvent{tracked("Old Boss", time.Hour, 0)},
	}}

	c := New(src.get, func(ev domain.FeatureEvent) { events <- ev }, clock, testLogger())
	c.Start()
	defer c.Stop()

	clock.BlockUntil(1)
	src.set(domain.EventsSettings{
		Rotation: []domain.TrackedEvent{tracked("New Boss", time.Hour, 30*time.Minute)},
	})
	clock.Advance(time.Hour)

	first := receiveEvent(t, events)
	assert.Equal(t, "Old Boss", first.Title)

	clock.BlockUntil(1)
	clock.Advance(30 * time.Minute)

	second := receiveEvent(t, events)
	assert.Equal(t, "New Boss", second.Title)
}

func TestController_StartIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(at(10, 0))
	src := &settingsSource{s: domain.DefaultEventsSettings()}

	c := New(src.get, func(domain.FeatureEvent) {}, clock, testLogger())
	c.Start()
	first := c.stopCh
	c.Start()
	assert.Equal(t, first, c.stopCh, "second Start must not spawn a new cycle")
	c.Stop()
}

func TestController_StopIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(at(10, 0))
	src := &settingsSource{s: domain.DefaultEventsSettings()}

	c := New(src.get, func(domain.FeatureEvent) {}, clock, testLogger())
	c.Stop()

	c.Start()
	c.Stop()
	c.Stop()
}

func TestController_Restartable(t *testing.T) {
	clock := clockwork.NewFakeClockAt(at(10, 0))
	events := make(chan domain.FeatureEvent, 8)
	src := &settingsSource{s: domain.EventsSettings{
		Rotation: []domain.TrackedEvent{tracked("Boss", time.Hour, 0)},
	}}

	c := New(src.get, func(ev domain.FeatureEvent) { events <- ev }, clock, testLogger())
	c.Start()
	c.Stop()
	c.Start()
	defer c.Stop()

	clock.BlockUntil(1)
	clock.Advance(time.Hour)

	spawn := receiveEvent(t, events)
	assert.Equal(t, "spawn", spawn.Kind)
}
