package zone

import "sync"

// ZoneInfo is what the name display currently shows. The zero value means
// "not in a map".
type ZoneInfo struct {
	MapID  int    `json:"map_id"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

// NameDisplay is the shared zone-name state: the controller writes it, the
// assistant panel and the HUD read or subscribe. Safe for concurrent use.
type NameDisplay struct {
	mu      sync.RWMutex
	current ZoneInfo
	subs    []chan ZoneInfo
}

func NewNameDisplay() *NameDisplay {
	return &NameDisplay{}
}

// Current returns the info shown right now.
func (d *NameDisplay) Current() ZoneInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Set replaces the shown info and notifies subscribers. Unchanged info is
// not re-delivered; a subscriber with a full buffer misses the update and
// catches up through Current.
func (d *NameDisplay) Set(info ZoneInfo) {
	d.mu.Lock()
	if d.current == info {
		d.mu.Unlock()
		return
	}
	d.current = info
	subs := make([]chan ZoneInfo, len(d.subs))
	copy(subs, d.subs)
	d.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- info:
		default:
		}
	}
}

// Clear resets the display to "not in a map".
func (d *NameDisplay) Clear() {
	d.Set(ZoneInfo{})
}

// Subscribe returns a channel of updates and a cancel function. Cancel must
// be called when the consumer goes away.
func (d *NameDisplay) Subscribe() (<-chan ZoneInfo, func()) {
	ch := make(chan ZoneInfo, 4)

	d.mu.Lock()
	d.subs = append(d.subs, ch)
	d.mu.Unlock()

	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, sub := range d.subs {
			if sub == ch {
				d.subs = append(d.subs[:i], d.subs[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}
