package probe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/metrics"
)

// LinkState is one snapshot of the link telemetry file the game-side exporter
// writes: where the character currently is.
type LinkState struct {
	MapID     int    `json:"map_id"`
	Character string `json:"character"`
	WorldID   int    `json:"world_id"`
	Tick      uint32 `json:"tick"`
}

// LinkWatcher follows the telemetry file and keeps the latest snapshot in
// memory. A snapshot older than staleAfter no longer counts as a valid map
// position: the exporter stops writing when the player sits in a loading
// screen or character select.
type LinkWatcher struct {
	path    string
	stale   time.Duration
	clock   clockwork.Clock
	log     *slog.Logger
	watcher *fsnotify.Watcher

	mu       sync.RWMutex
	state    LinkState
	loadedAt time.Time
	loaded   bool

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

var _ domain.PlayerSource = (*LinkWatcher)(nil)

// NewLinkWatcher starts following the telemetry file at path. The file may
// not exist yet: the watcher picks it up on first write.
func NewLinkWatcher(path string, staleAfter time.Duration, clock clockwork.Clock, log *slog.Logger) (*LinkWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create telemetry watcher: %w", err)
	}

	// Watch the parent directory instead of the file: exporters replace the
	// file by rename, which silently drops a watch set on the file itself.
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &LinkWatcher{
		path:    path,
		stale:   staleAfter,
		clock:   clock,
		log:     log,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	w.reload()

	go w.run()
	return w, nil
}

func (w *LinkWatcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("telemetry watcher error", "error", err)
		}
	}
}

func (w *LinkWatcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.log.Warn("telemetry file unreadable", "path", w.path, "error", err)
		}
		metrics.TelemetryReloads.WithLabelValues("missing").Inc()
		w.mu.Lock()
		w.loaded = false
		w.mu.Unlock()
		return
	}

	var state LinkState
	if err := json.Unmarshal(data, &state); err != nil {
		// Torn read of an in-place write: the next event delivers the
		// complete file, so the previous snapshot stays.
		w.log.Debug("telemetry file corrupt, keeping previous snapshot", "path", w.path, "error", err)
		metrics.TelemetryReloads.WithLabelValues("corrupt").Inc()
		return
	}

	metrics.TelemetryReloads.WithLabelValues("success").Inc()
	w.mu.Lock()
	w.state = state
	w.loadedAt = w.clock.Now()
	w.loaded = true
	w.mu.Unlock()
}

// HasValidMap reports whether the character currently stands in a playable
// map: a fresh snapshot with a positive map ID.
func (w *LinkWatcher) HasValidMap() (bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loaded && w.state.MapID > 0 && w.clock.Since(w.loadedAt) <= w.stale, nil
}

// CurrentMapID returns the map the character stands in, or 0 when the
// telemetry is missing or stale.
func (w *LinkWatcher) CurrentMapID() (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.loaded || w.clock.Since(w.loadedAt) > w.stale {
		return 0, nil
	}
	return w.state.MapID, nil
}

// Character returns the last seen character name, if any.
func (w *LinkWatcher) Character() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.loaded {
		return ""
	}
	return w.state.Character
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *LinkWatcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.watcher.Close()
		<-w.done
	})
	return w.closeErr
}
