// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package health

import "time"

// Metrics exposes the current health state of a render provider for
// monitoring and operator visibility. All fields are point-in-time
// snapshots safe to serialize to JSON.
type Metrics struct {
	ConsecutiveFailures int64      `json:"consecutive_failures"`
	LastProbeAt         *time.Time `json:"last_probe_at,omitempty"`
	LastProbeOK         bool       `json:"last_probe_ok"`
	CooldownUntil       *time.Time `json:"cooldown_until,omitempty"`
	Available           bool       `json:"available"`
}
