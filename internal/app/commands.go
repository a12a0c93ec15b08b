package app

import (
	"fmt"

	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/metrics"
)

// Command IDs, stable across the menu API.
const (
	CommandOpenEvents               = "open-events"
	CommandOpenZoneAssist           = "open-zone-assist"
	CommandToggleEventNotifications = "toggle-event-notifications"
)

// buildCommands constructs the fixed menu list. Order is display order. The
// closures run on the orchestrator loop, reached through Invoke.
func (o *Orchestrator) buildCommands() []domain.MenuCommand {
	return []domain.MenuCommand{
		{
			ID:         CommandOpenEvents,
			Label:      "Event Tracker",
			Action:     func() error { return o.handleDisplay(domain.FeatureEvents) },
			CanExecute: func() bool { return o.commandAvailable(domain.FeatureEvents) },
		},
		{
			ID:         CommandOpenZoneAssist,
			Label:      "Zone Assistant",
			Action:     func() error { return o.handleDisplay(domain.FeatureZoneAssist) },
			CanExecute: func() bool { return o.commandAvailable(domain.FeatureZoneAssist) },
		},
		{
			ID:       CommandToggleEventNotifications,
			Label:    "Event Notifications",
			IsToggle: true,
			Action: func() error {
				o.setNotificationsEnabled(!o.notificationsEnabled())
				return nil
			},
			CanExecute: func() bool { return true },
			GetToggle:  func() bool { return o.notificationsEnabled() },
			SetToggle:  func(on bool) { o.setNotificationsEnabled(on) },
		},
	}
}

// commandAvailable adapts the gate to the bool-only enablement check. An
// unrelated gate failure disables the command and is logged; CanDisplay is
// the propagating path for it.
func (o *Orchestrator) commandAvailable(f domain.Feature) bool {
	ok, err := o.handleCanDisplay(f)
	if err != nil {
		o.log.Error("availability check failed", "feature", f, "error", err)
		return false
	}
	return ok
}

func (o *Orchestrator) handleMenu() []domain.MenuEntry {
	entries := make([]domain.MenuEntry, 0, len(o.commands))
	for _, cmd := range o.commands {
		entry := domain.MenuEntry{
			ID:       cmd.ID,
			Label:    cmd.Label,
			IsToggle: cmd.IsToggle,
			Enabled:  cmd.CanExecute == nil || cmd.CanExecute(),
		}
		if cmd.IsToggle && cmd.GetToggle != nil {
			entry.Checked = cmd.GetToggle()
		}
		entries = append(entries, entry)
	}
	return entries
}

func (o *Orchestrator) findCommand(id string) (*domain.MenuCommand, error) {
	for i := range o.commands {
		if o.commands[i].ID == id {
			return &o.commands[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, id)
}

func (o *Orchestrator) handleInvoke(id string) error {
	cmd, err := o.findCommand(id)
	if err != nil {
		metrics.CommandInvocations.WithLabelValues("unknown", "error").Inc()
		return err
	}

	if cmd.CanExecute != nil && !cmd.CanExecute() {
		metrics.CommandInvocations.WithLabelValues(id, "unavailable").Inc()
		return fmt.Errorf("%w: %s", domain.ErrFeatureUnavailable, id)
	}

	if cmd.Action != nil {
		if err := cmd.Action(); err != nil {
			metrics.CommandInvocations.WithLabelValues(id, "error").Inc()
			return err
		}
	}
	metrics.CommandInvocations.WithLabelValues(id, "ok").Inc()
	o.log.Info("command invoked", "command", id)
	return nil
}

func (o *Orchestrator) handleSetToggle(id string, on bool) error {
	cmd, err := o.findCommand(id)
	if err != nil {
		return err
	}
	if !cmd.IsToggle || cmd.SetToggle == nil {
		return fmt.Errorf("%w: %q", domain.ErrNotToggleCommand, id)
	}

	cmd.SetToggle(on)
	o.log.Info("toggle set", "command", id, "on", on)
	return nil
}
