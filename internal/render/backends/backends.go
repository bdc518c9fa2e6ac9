// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

// Package backends assembles the provider registry: the built-in
// renderers in their fixed order, then any plugins discovered under the
// configured plugins dir.
package backends

import (
	"log/slog"

	"github.com/deckport/deckport/internal/config"
	"github.com/deckport/deckport/internal/plugin"
	"github.com/deckport/deckport/internal/render"
	"github.com/deckport/deckport/internal/render/httpoffice"
	"github.com/deckport/deckport/internal/render/msoffice"
	"github.com/deckport/deckport/internal/render/nullrenderer"
)

const builtinSource = "built-in"

// Registry builds the full provider registry for one process. A plugin
// whose name collides with a built-in or another plugin is a
// configuration error, not a skip: silently shadowing a renderer would
// change behavior behind the user's back.
func Registry(cfg *config.Config, logger *slog.Logger) (*render.Registry, error) {
	reg := render.NewRegistry()

	builtins := []render.Entry{
		{Name: msoffice.Name, Source: builtinSource, Factory: msoffice.New},
		{Name: httpoffice.Name, Source: builtinSource, Factory: httpoffice.New},
		{Name: render.NullProviderName, Source: builtinSource, Factory: nullrenderer.New},
	}
	for _, e := range builtins {
		if err := reg.Register(e); err != nil {
			return nil, err
		}
	}

	for _, e := range plugin.Discover(cfg.PluginsDir, logger) {
		if err := reg.Register(e); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
