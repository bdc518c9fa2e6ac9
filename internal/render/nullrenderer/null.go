// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

// Package nullrenderer is the stub conversion backend. It always reports
// unavailable and exists so selection can return *something* when every
// real backend is absent, and so users have an explicit opt-out value.
package nullrenderer

import (
	"context"

	"github.com/deckport/deckport/internal/config"
	"github.com/deckport/deckport/internal/render"
	deckerr "github.com/deckport/deckport/pkg/errors"
)

const guidance = "no conversion backend is configured: install Microsoft PowerPoint for the ms_office renderer, " +
	"or set http_office.endpoint to a Stirling-PDF or Gotenberg service and enable allow_network"

// Provider is safe for concurrent use; it holds no state.
type Provider struct{}

var _ render.Provider = (*Provider)(nil)

// New is the render.Factory for the stub.
func New(_ *config.Config) (render.Provider, error) {
	return &Provider{}, nil
}

func (*Provider) Name() string { return render.NullProviderName }

func (*Provider) Capabilities() render.Capability {
	return render.Capability{
		Vendor:   "deckport",
		Headless: render.Bool(true),
	}
}

// Probe is unconditionally false; the stub is never "healthy" and is
// excluded from automatic selection.
func (*Provider) Probe(_ context.Context) bool { return false }

func (*Provider) RenderDocument(_ context.Context, job render.Job) (string, error) {
	return "", unavailable(job)
}

func (*Provider) RenderImages(_ context.Context, job render.Job) ([]string, error) {
	return nil, unavailable(job)
}

func unavailable(job render.Job) error {
	return deckerr.New(deckerr.CodeUnavailable, guidance,
		deckerr.FieldProvider(render.NullProviderName),
		deckerr.FieldJobID(job.ID))
}
