package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Micah-S/gw2pao/internal/domain"
)

// --- menu tests ---

func TestCommands_FixedOrderOnEveryCall(t *testing.T) {
	f := newTestOrchestrator(t)

	want := []string{CommandOpenEvents, CommandOpenZoneAssist, CommandToggleEventNotifications}

	for range 3 {
		cmds := f.orch.Commands()
		require.Len(t, cmds, 3)
		for i, cmd := range cmds {
			assert.Equal(t, want[i], cmd.ID)
		}
	}
}

func TestCommands_OnlyNotificationsIsAToggle(t *testing.T) {
	f := newTestOrchestrator(t)

	for _, cmd := range f.orch.Commands() {
		if cmd.ID == CommandToggleEventNotifications {
			assert.True(t, cmd.IsToggle)
			require.NotNil(t, cmd.GetToggle)
			require.NotNil(t, cmd.SetToggle)
		} else {
			assert.False(t, cmd.IsToggle)
		}
	}
}

func TestMenu_SnapshotsLabelsAndState(t *testing.T) {
	f := newTestOrchestrator(t)

	entries, err := f.orch.Menu()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Event Tracker", entries[0].Label)
	assert.True(t, entries[0].Enabled)

	assert.Equal(t, "Zone Assistant", entries[1].Label)
	assert.True(t, entries[1].Enabled)

	assert.Equal(t, "Event Notifications", entries[2].Label)
	assert.True(t, entries[2].IsToggle)
	assert.True(t, entries[2].Checked)
}

func TestMenu_ZoneAssistDisabledWhenGateFails(t *testing.T) {
	f := newTestOrchestrator(t)
	f.gate.set(func() (bool, error) { return false, nil })

	entries, err := f.orch.Menu()
	require.NoError(t, err)

	assert.True(t, entries[0].Enabled, "events is not gated")
	assert.False(t, entries[1].Enabled)
}

func TestMenu_GateErrorDisablesEntry(t *testing.T) {
	f := newTestOrchestrator(t)
	f.gate.set(func() (bool, error) { return false, errors.New("proc filesystem gone") })

	entries, err := f.orch.Menu()
	require.NoError(t, err)
	assert.False(t, entries[1].Enabled)
}

func TestMenu_ReflectsToggleChanges(t *testing.T) {
	f := newTestOrchestrator(t)

	entries, err := f.orch.Menu()
	require.NoError(t, err)
	assert.True(t, entries[2].Checked)

	f.flag.set(false)

	entries, err = f.orch.Menu()
	require.NoError(t, err)
	assert.False(t, entries[2].Checked)
}

// --- invoke tests ---

func TestInvoke_OpenCommandDisplaysFeature(t *testing.T) {
	f := newTestOrchestrator(t)

	require.NoError(t, f.orch.Invoke(CommandOpenEvents))

	assert.Equal(t, 1, f.factory.createdCount())
	assert.Equal(t, 1, f.events.startCount())
}

func TestInvoke_UnknownCommand(t *testing.T) {
	f := newTestOrchestrator(t)

	err := f.orch.Invoke("open-dashboard")
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)
}

func TestInvoke_UnavailableCommandRefuses(t *testing.T) {
	f := newTestOrchestrator(t)
	f.gate.set(func() (bool, error) { return false, nil })

	err := f.orch.Invoke(CommandOpenZoneAssist)
	assert.ErrorIs(t, err, domain.ErrFeatureUnavailable)
	assert.Equal(t, 0, f.factory.createdCount())
	assert.Equal(t, 0, f.zone.startCount())
}

func TestInvoke_ToggleFlipsFlag(t *testing.T) {
	f := newTestOrchestrator(t)
	require.True(t, f.flag.get())

	require.NoError(t, f.orch.Invoke(CommandToggleEventNotifications))
	assert.False(t, f.flag.get())

	require.NoError(t, f.orch.Invoke(CommandToggleEventNotifications))
	assert.True(t, f.flag.get())
}

// --- toggle tests ---

func TestSetToggle_WritesThroughAccessor(t *testing.T) {
	f := newTestOrchestrator(t)

	require.NoError(t, f.orch.SetToggle(CommandToggleEventNotifications, false))
	assert.False(t, f.flag.get())

	require.NoError(t, f.orch.SetToggle(CommandToggleEventNotifications, true))
	assert.True(t, f.flag.get())
}

func TestSetToggle_UnknownCommand(t *testing.T) {
	f := newTestOrchestrator(t)

	err := f.orch.SetToggle("open-dashboard", true)
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)
}

func TestSetToggle_RejectsNonToggleCommand(t *testing.T) {
	f := newTestOrchestrator(t)

	err := f.orch.SetToggle(CommandOpenEvents, true)
	assert.ErrorIs(t, err, domain.ErrNotToggleCommand)
}
