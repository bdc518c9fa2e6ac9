// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/deckport/deckport/internal/config"
	"github.com/deckport/deckport/internal/render"
)

// mockProvider is a reusable base implementation of render.Provider for
// use in tests. Set the func fields to override behavior per test.
type mockProvider struct {
	name  string
	caps  render.Capability
	alive bool

	probeFunc  func(ctx context.Context) bool
	docFunc    func(ctx context.Context, job render.Job) (string, error)
	imagesFunc func(ctx context.Context, job render.Job) ([]string, error)

	probeCalls  atomic.Int64
	renderCalls atomic.Int64
}

func newMockProvider(name string, alive bool) *mockProvider {
	return &mockProvider{
		name:  name,
		alive: alive,
		caps: render.Capability{
			Outputs:  []render.OutputKind{render.OutputPDF, render.OutputPNG, render.OutputJPEG},
			Headless: render.Bool(true),
			Vendor:   "test",
		},
	}
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Capabilities() render.Capability { return m.caps }

func (m *mockProvider) Probe(ctx context.Context) bool {
	m.probeCalls.Add(1)
	if m.probeFunc != nil {
		return m.probeFunc(ctx)
	}
	return m.alive
}

func (m *mockProvider) RenderDocument(ctx context.Context, job render.Job) (string, error) {
	m.renderCalls.Add(1)
	if m.docFunc != nil {
		return m.docFunc(ctx, job)
	}
	return "/tmp/" + m.name + ".pdf", nil
}

func (m *mockProvider) RenderImages(ctx context.Context, job render.Job) ([]string, error) {
	m.renderCalls.Add(1)
	if m.imagesFunc != nil {
		return m.imagesFunc(ctx, job)
	}
	return []string{"/tmp/" + m.name + "-01.png"}, nil
}

func factoryFor(p render.Provider) render.Factory {
	return func(*config.Config) (render.Provider, error) {
		return p, nil
	}
}

// testConfig returns a valid configuration with fast timeouts and no
// retries, suitable as a baseline for selector and binding tests.
func testConfig() *config.Config {
	return &config.Config{
		Renderer:      config.RendererAuto,
		ProbeTimeout:  time.Second,
		RenderTimeout: 5 * time.Second,
		Retry:         config.RetryConfig{Attempts: 1, BaseDelay: time.Millisecond},
		Health:        config.HealthConfig{FailureThreshold: 3, Cooldown: 30 * time.Second},
	}
}

// newTestSelector registers the given providers in order and builds a
// selector that sees an interactive display on linux.
func newTestSelector(cfg *config.Config, providers ...render.Provider) (*render.Selector, *render.HealthBoard) {
	registry := render.NewRegistry()
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		_ = registry.Register(render.Entry{
			Name:    p.Name(),
			Source:  "test",
			Factory: factoryFor(p),
		})
		if p.Name() != render.NullProviderName {
			names = append(names, p.Name())
		}
	}

	board := render.NewHealthBoard(cfg.Health.FailureThreshold, cfg.Health.Cooldown)
	selector := render.NewSelector(registry, cfg, board,
		render.WithPriority(names),
		render.WithGOOS("linux"),
		render.WithDisplayCheck(func() bool { return true }),
		render.WithLogger(slog.New(slog.DiscardHandler)),
	)
	return selector, board
}
