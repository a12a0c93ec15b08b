package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	bucketSweepEvery = 5 * time.Minute
	bucketIdleAfter  = 10 * time.Minute
)

// LimitReason describes why a connection was rejected.
type LimitReason string

const (
	LimitReasonRate   LimitReason = "rate_limit"
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
)

// ConnectionLimits guards the overlay socket endpoint with a daemon-wide
// cap, a per-IP cap, and a per-IP token bucket on new connections.
type ConnectionLimits struct {
	mu        sync.Mutex
	active    int64
	maxActive int64
	perIP     map[string]int
	maxPerIP  int
	buckets   map[string]*bucketEntry
	rate      rate.Limit
	burst     int
	sweepAt   time.Time
}

type bucketEntry struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func NewConnectionLimits(maxActive int64, maxPerIP int, connectionsPerSecond float64, burst int) *ConnectionLimits {
	return &ConnectionLimits{
		maxActive: maxActive,
		perIP:     make(map[string]int),
		maxPerIP:  maxPerIP,
		buckets:   make(map[string]*bucketEntry),
		rate:      rate.Limit(connectionsPerSecond),
		burst:     burst,
		sweepAt:   time.Now().Add(bucketSweepEvery),
	}
}

// Acquire claims a connection slot for the given IP. The rate bucket is
// consulted first, so a rejected attempt still costs the caller a token.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now := time.Now(); now.After(l.sweepAt) {
		l.sweep(now)
		l.sweepAt = now.Add(bucketSweepEvery)
	}

	if !l.bucketFor(ip).Allow() {
		return false, LimitReasonRate
	}
	if l.active >= l.maxActive {
		return false, LimitReasonGlobal
	}
	if l.perIP[ip] >= l.maxPerIP {
		return false, LimitReasonPerIP
	}

	l.active++
	l.perIP[ip]++
	return true, ""
}

// Release returns the slot claimed by a successful Acquire.
func (l *ConnectionLimits) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active > 0 {
		l.active--
	}
	if count := l.perIP[ip]; count > 1 {
		l.perIP[ip] = count - 1
	} else if count == 1 {
		delete(l.perIP, ip)
	}
}

// Active returns the current number of held slots.
func (l *ConnectionLimits) Active() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// ActiveForIP returns the slots held by one IP.
func (l *ConnectionLimits) ActiveForIP(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

// bucketFor returns the rate bucket for ip, creating it on first sight.
// Must be called with mu held.
func (l *ConnectionLimits) bucketFor(ip string) *rate.Limiter {
	entry, ok := l.buckets[ip]
	if !ok {
		entry = &bucketEntry{bucket: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.bucket
}

// sweep drops rate buckets for IPs not seen recently. Must be called with
// mu held.
func (l *ConnectionLimits) sweep(now time.Time) {
	cutoff := now.Add(-bucketIdleAfter)
	for ip, entry := range l.buckets {
		if entry.lastSeen.Before(cutoff) {
			delete(l.buckets, ip)
		}
	}
}
