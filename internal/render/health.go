// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render

import (
	"sync"
	"time"

	"github.com/deckport/deckport/pkg/health"
)

// DefaultFailureThreshold and DefaultHealthCooldown govern the circuit
// breaker when configuration does not override them.
const (
	DefaultFailureThreshold = 3
	DefaultHealthCooldown   = 30 * time.Second
)

// HealthTracker keeps the rolling health record for one provider:
// consecutive failures, last probe outcome, and the cool-down window that
// opens once the failure threshold is reached. Inside the window the
// selection engine excludes the provider without probing; once the window
// expires the next selection performs a single trial probe, and a failed
// trial reopens the window for a full cool-down.
//
// State is process-lifetime and in-memory; it resets on restart.
type HealthTracker struct {
	mu        sync.RWMutex
	threshold int
	cooldown  time.Duration

	consecutiveFailures int64
	openedAt            time.Time
	lastProbeAt         time.Time
	lastProbeOK         bool
	probed              bool

	nowFunc func() time.Time // for testing
}

func NewHealthTracker(threshold int, cooldown time.Duration) *HealthTracker {
	if threshold < 1 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultHealthCooldown
	}
	return &HealthTracker{
		threshold: threshold,
		cooldown:  cooldown,
		nowFunc:   time.Now,
	}
}

// InCooldown reports whether the breaker is open right now. Expiry of the
// window makes the provider eligible for one trial probe; the trial's
// outcome either closes the breaker or reopens the window.
func (h *HealthTracker) InCooldown() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inCooldownLocked()
}

func (h *HealthTracker) inCooldownLocked() bool {
	if h.consecutiveFailures < int64(h.threshold) {
		return false
	}
	return h.nowFunc().Sub(h.openedAt) < h.cooldown
}

// RecordSuccess closes the breaker after a successful probe or render.
func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.consecutiveFailures = 0
	h.lastProbeAt = h.nowFunc()
	h.lastProbeOK = true
	h.probed = true
	h.mu.Unlock()
}

// RecordFailure notes a failed probe or render attempt. Crossing the
// threshold (or failing a trial probe after expiry) opens the cool-down
// window from now.
func (h *HealthTracker) RecordFailure() {
	h.mu.Lock()
	h.consecutiveFailures++
	if h.consecutiveFailures >= int64(h.threshold) {
		h.openedAt = h.nowFunc()
	}
	h.lastProbeAt = h.nowFunc()
	h.lastProbeOK = false
	h.probed = true
	h.mu.Unlock()
}

// SetNowFunc overrides the time source (for testing).
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.nowFunc = fn
	h.mu.Unlock()
}

// Metrics returns a point-in-time snapshot safe to serialize.
func (h *HealthTracker) Metrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{
		ConsecutiveFailures: h.consecutiveFailures,
		LastProbeOK:         h.lastProbeOK,
		Available:           !h.inCooldownLocked(),
	}
	if h.probed {
		t := h.lastProbeAt
		m.LastProbeAt = &t
	}
	if h.consecutiveFailures >= int64(h.threshold) {
		until := h.openedAt.Add(h.cooldown)
		m.CooldownUntil = &until
	}
	return m
}

// HealthBoard owns one tracker per provider. The board lock covers only
// map access; each tracker carries its own lock so unrelated providers'
// probes never serialize against each other.
type HealthBoard struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	trackers  map[string]*HealthTracker
	nowFunc   func() time.Time
}

func NewHealthBoard(threshold int, cooldown time.Duration) *HealthBoard {
	return &HealthBoard{
		threshold: threshold,
		cooldown:  cooldown,
		trackers:  make(map[string]*HealthTracker),
		nowFunc:   time.Now,
	}
}

// Tracker returns the tracker for name, creating it on first use.
func (b *HealthBoard) Tracker(name string) *HealthTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.trackers[name]
	if !ok {
		t = NewHealthTracker(b.threshold, b.cooldown)
		t.SetNowFunc(b.nowFunc)
		b.trackers[name] = t
	}
	return t
}

// SetNowFunc overrides the time source for the board and every tracker it
// creates afterwards (for testing).
func (b *HealthBoard) SetNowFunc(fn func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nowFunc = fn
	for _, t := range b.trackers {
		t.SetNowFunc(fn)
	}
}

// Snapshot returns metrics for every tracked provider.
func (b *HealthBoard) Snapshot() map[string]health.Metrics {
	b.mu.Lock()
	names := make([]string, 0, len(b.trackers))
	trackers := make([]*HealthTracker, 0, len(b.trackers))
	for name, t := range b.trackers {
		names = append(names, name)
		trackers = append(trackers, t)
	}
	b.mu.Unlock()

	out := make(map[string]health.Metrics, len(names))
	for i, name := range names {
		out[name] = trackers[i].Metrics()
	}
	return out
}
