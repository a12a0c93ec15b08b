package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/singleflight"

	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/metrics"
)

// scanFunc walks the process table and reports whether a process with the
// given image name is running.
type scanFunc func(ctx context.Context, name string) (bool, error)

// ProcessProbe answers "is the game running" with a short result cache, so a
// burst of gate evaluations and menu refreshes does not walk the process
// table once each. Concurrent cache misses collapse into a single scan.
// Scan failures are never cached: while an incident persists, every caller
// sees it.
type ProcessProbe struct {
	name  string
	ttl   time.Duration
	clock clockwork.Clock
	log   *slog.Logger
	scan  scanFunc

	group singleflight.Group

	mu      sync.Mutex
	running bool
	checked time.Time
	valid   bool
}

var _ domain.GameProcessSource = (*ProcessProbe)(nil)

// NewProcessProbe creates a probe for the given process image name, caching
// scan results for ttl.
func NewProcessProbe(name string, ttl time.Duration, clock clockwork.Clock, log *slog.Logger) *ProcessProbe {
	return &ProcessProbe{
		name:  name,
		ttl:   ttl,
		clock: clock,
		log:   log,
		scan:  gopsutilScan,
	}
}

// GameRunning reports whether the game client process is up. It fails with a
// wrapped domain.ErrElevationMismatch when the process exists but runs with
// higher privileges than this one.
func (p *ProcessProbe) GameRunning() (bool, error) {
	p.mu.Lock()
	if p.valid && p.clock.Since(p.checked) < p.ttl {
		running := p.running
		p.mu.Unlock()
		return running, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do("scan", func() (any, error) {
		start := p.clock.Now()
		running, err := p.scan(context.Background(), p.name)
		metrics.ProcessScanDuration.Observe(p.clock.Since(start).Seconds())

		if err != nil {
			result := "error"
			if errors.Is(err, domain.ErrElevationMismatch) {
				result = "elevation_mismatch"
			}
			metrics.ProcessScansTotal.WithLabelValues(result).Inc()
			return false, err
		}

		result := "not_running"
		if running {
			result = "running"
		}
		metrics.ProcessScansTotal.WithLabelValues(result).Inc()

		p.mu.Lock()
		p.running = running
		p.checked = p.clock.Now()
		p.valid = true
		p.mu.Unlock()

		return running, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// gopsutilScan walks the live process table. Finding the game by name is not
// enough: when the game runs elevated, its handle opens but inspection is
// denied, which is exactly the condition the availability gates warn about.
func gopsutilScan(ctx context.Context, name string) (bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}

	for _, proc := range procs {
		procName, err := proc.NameWithContext(ctx)
		if err != nil {
			// Processes vanish mid-scan.
			continue
		}
		if !strings.EqualFold(procName, name) {
			continue
		}

		if _, err := proc.ExeWithContext(ctx); err != nil && errors.Is(err, fs.ErrPermission) {
			return false, fmt.Errorf("inspect %s: %w", name, domain.ErrElevationMismatch)
		}
		return true, nil
	}

	return false, nil
}
