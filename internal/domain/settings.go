package domain

import (
	"fmt"
	"time"
)

// SettingsStore abstracts persistence of the user settings aggregates.
// Load reports found == false when the file is missing or unreadable; the
// caller substitutes a default aggregate instead of failing.
type SettingsStore interface {
	Load(name string, out any) (bool, error)
	Save(name string, v any) error
}

// Settings file names, one independent aggregate each.
const (
	EventsSettingsName     = "events"
	ZoneAssistSettingsName = "zone_assist"
)

// Duration marshals as a time.ParseDuration string ("1h45m") so that
// settings files stay hand-editable.
type Duration time.Duration

// Std converts to the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// TrackedEvent is one entry of the world-event rotation: the event repeats
// every Period, offset from midnight UTC by Offset.
type TrackedEvent struct {
	Name     string   `mapstructure:"name" toml:"name"`
	Waypoint string   `mapstructure:"waypoint" toml:"waypoint"`
	Period   Duration `mapstructure:"period" toml:"period"`
	Offset   Duration `mapstructure:"offset" toml:"offset"`
}

// EventsSettings configures the event tracker. NotificationsEnabled also
// gates notification routing for every feature.
type EventsSettings struct {
	NotificationsEnabled bool           `mapstructure:"notifications_enabled" toml:"notifications_enabled"`
	ReminderLead         Duration       `mapstructure:"reminder_lead" toml:"reminder_lead"`
	Rotation             []TrackedEvent `mapstructure:"rotation" toml:"rotation"`
}

// ZoneAssistSettings configures the zone assistant.
type ZoneAssistSettings struct {
	PollInterval Duration `mapstructure:"poll_interval" toml:"poll_interval"`
	ShowRegion   bool     `mapstructure:"show_region" toml:"show_region"`
}

// DefaultEventsSettings returns the aggregate used when no settings file
// exists. The rotation covers the core Tyria world bosses.
func DefaultEventsSettings() EventsSettings {
	return EventsSettings{
		NotificationsEnabled: true,
		ReminderLead:         Duration(10 * time.Minute),
		Rotation: []TrackedEvent{
			{Name: "Shadow Behemoth", Waypoint: "[&BPcAAAA=]", Period: Duration(2 * time.Hour), Offset: Duration(time.Hour + 45*time.Minute)},
			{Name: "Fire Elemental", Waypoint: "[&BEcAAAA=]", Period: Duration(2 * time.Hour), Offset: Duration(45 * time.Minute)},
			{Name: "Svanir Shaman Chief", Waypoint: "[&BMIDAAA=]", Period: Duration(2 * time.Hour), Offset: Duration(15 * time.Minute)},
			{Name: "Great Jungle Wurm", Waypoint: "[&BEEFAAA=]", Period: Duration(2 * time.Hour), Offset: Duration(time.Hour + 15*time.Minute)},
			{Name: "The Shatterer", Waypoint: "[&BE4DAAA=]", Period: Duration(3 * time.Hour), Offset: Duration(time.Hour)},
			{Name: "Tequatl the Sunless", Waypoint: "[&BNABAAA=]", Period: Duration(3 * time.Hour), Offset: 0},
			{Name: "Claw of Jormag", Waypoint: "[&BHoCAAA=]", Period: Duration(3 * time.Hour), Offset: Duration(2*time.Hour + 30*time.Minute)},
		},
	}
}

// DefaultZoneAssistSettings returns the aggregate used when no settings file
// exists.
func DefaultZoneAssistSettings() ZoneAssistSettings {
	return ZoneAssistSettings{
		PollInterval: Duration(2 * time.Second),
		ShowRegion:   true,
	}
}
