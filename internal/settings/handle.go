package settings

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Micah-S/gw2pao/internal/domain"
)

// autosaveDelay coalesces bursts of toggle flips into one write.
const autosaveDelay = 2 * time.Second

// Handle owns one settings aggregate. Reads return copies, writes go through
// Update, and enabled autosave persists a debounced snapshot. Construction
// never fails: an absent or corrupt file leaves the default aggregate in
// place.
type Handle[T any] struct {
	store domain.SettingsStore
	name  string
	clock clockwork.Clock
	log   *slog.Logger

	mu       sync.Mutex
	value    T
	autosave bool
	timer    clockwork.Timer
}

// NewHandle loads the named aggregate, starting from def when the store has
// nothing usable.
func NewHandle[T any](store domain.SettingsStore, name string, def T, clock clockwork.Clock, log *slog.Logger) *Handle[T] {
	value := def
	found, err := store.Load(name, &value)
	if err != nil || !found {
		// Discard anything a partial decode may have left behind.
		value = def
	}
	if err != nil {
		log.Warn("settings load failed, starting from defaults", "name", name, "error", err)
	}

	return &Handle[T]{
		store: store,
		name:  name,
		clock: clock,
		log:   log,
		value: value,
	}
}

// Name returns the aggregate name the handle persists under.
func (h *Handle[T]) Name() string {
	return h.name
}

// Get returns a copy of the current aggregate. Reference fields inside the
// copy must not be mutated; changes go through Update.
func (h *Handle[T]) Get() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value
}

// Update applies fn to the aggregate and schedules a debounced save when
// autosave is enabled.
func (h *Handle[T]) Update(fn func(*T)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fn(&h.value)

	if !h.autosave {
		return
	}
	if h.timer != nil {
		h.timer.Reset(autosaveDelay)
		return
	}
	h.timer = h.clock.AfterFunc(autosaveDelay, func() {
		if err := h.Flush(); err != nil {
			h.log.Error("settings autosave failed", "name", h.name, "error", err)
		}
	})
}

// EnableAutoSave turns on debounced persistence for subsequent updates.
// Loading at startup stays silent: only user-driven changes write back.
func (h *Handle[T]) EnableAutoSave() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.autosave = true
}

// Flush writes the current aggregate immediately and cancels any pending
// autosave.
func (h *Handle[T]) Flush() error {
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
	}
	value := h.value
	h.mu.Unlock()

	return h.store.Save(h.name, value)
}
