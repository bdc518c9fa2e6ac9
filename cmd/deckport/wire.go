// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package main

import (
	"log/slog"

	"github.com/deckport/deckport/internal/config"
	"github.com/deckport/deckport/internal/render"
	"github.com/deckport/deckport/internal/render/backends"
	"github.com/spf13/viper"
)

// app wires the pieces every subcommand needs: validated configuration,
// the assembled provider registry, and a selector sharing one health
// board for the process.
type app struct {
	cfg      *config.Config
	registry *render.Registry
	selector *render.Selector
	board    *render.HealthBoard
}

func buildApp() (*app, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger := slog.Default()

	registry, err := backends.Registry(cfg, logger)
	if err != nil {
		return nil, err
	}

	board := render.NewHealthBoard(cfg.Health.FailureThreshold, cfg.Health.Cooldown)
	selector := render.NewSelector(registry, cfg, board, render.WithLogger(logger))

	return &app{
		cfg:      cfg,
		registry: registry,
		selector: selector,
		board:    board,
	}, nil
}
