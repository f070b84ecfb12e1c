// Package ratelimit implements a sliding-window request limiter keyed by
// client address. State is in-process; a multi-instance deployment would
// need a shared backend.
package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/terralink/portal/internal/clock"
	"github.com/terralink/portal/internal/config"
)

const shardCount = 32

type shard struct {
	mu      sync.Mutex
	clients map[string][]time.Time
}

// Limiter tracks request timestamps per client over a rolling window.
type Limiter struct {
	max    int
	window time.Duration
	clock  clock.Clock
	shards [shardCount]*shard
}

func NewLimiter(cfg config.Config, clk clock.Clock) *Limiter {
	l := &Limiter{
		max:    cfg.RateLimitMax,
		window: cfg.RateLimitWindow,
		clock:  clk,
	}
	for i := range l.shards {
		l.shards[i] = &shard{clients: make(map[string][]time.Time)}
	}
	return l
}

func (l *Limiter) shardFor(clientID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(clientID))
	return l.shards[h.Sum32()%shardCount]
}

// Allow records one request for the client and reports whether it fits
// inside the window. Timestamps older than the window are pruned on the
// way in, so memory stays proportional to recent traffic.
func (l *Limiter) Allow(clientID string) bool {
	now := l.clock.Now()
	cutoff := now.Add(-l.window)

	s := l.shardFor(clientID)
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.clients[clientID]
	kept := history[:0]
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		s.clients[clientID] = kept
		return false
	}

	s.clients[clientID] = append(kept, now)
	return true
}

// Remaining reports how many requests the client has left in the current
// window without consuming one.
func (l *Limiter) Remaining(clientID string) int {
	cutoff := l.clock.Now().Add(-l.window)

	s := l.shardFor(clientID)
	s.mu.Lock()
	defer s.mu.Unlock()

	live := 0
	for _, ts := range s.clients[clientID] {
		if ts.After(cutoff) {
			live++
		}
	}
	if rem := l.max - live; rem > 0 {
		return rem
	}
	return 0
}
