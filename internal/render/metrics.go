// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rendersTotal counts render calls per provider, operation, and outcome.
	rendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckport_renders_total",
			Help: "Total number of render calls",
		},
		[]string{"provider", "operation", "outcome"},
	)

	// renderDuration tracks render call latency.
	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deckport_render_duration_seconds",
			Help:    "Render call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	// probesTotal counts liveness probes per provider and result.
	probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckport_probes_total",
			Help: "Total number of provider liveness probes",
		},
		[]string{"provider", "result"},
	)

	// selectionsTotal counts selection outcomes per mode.
	selectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckport_selections_total",
			Help: "Total number of provider selections",
		},
		[]string{"mode", "outcome"},
	)
)

func observeRender(provider string, op Operation, seconds float64, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	rendersTotal.WithLabelValues(provider, string(op), outcome).Inc()
	renderDuration.WithLabelValues(provider, string(op)).Observe(seconds)
}

func observeProbe(provider string, ok bool) {
	result := "healthy"
	if !ok {
		result = "unhealthy"
	}
	probesTotal.WithLabelValues(provider, result).Inc()
}

func observeSelection(mode string, err error) {
	outcome := "bound"
	if err != nil {
		outcome = "failed"
	}
	selectionsTotal.WithLabelValues(mode, outcome).Inc()
}
