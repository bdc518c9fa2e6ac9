// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/deckport/deckport/internal/plugin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the rendering environment: configuration, display availability, each backend's liveness, and the plugins directory.",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()

	a, err := buildApp()
	if err != nil {
		return err
	}

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Config", checkConfig},
		{"Display", checkDisplay},
		{"Network policy", func() string { return checkNetworkPolicy(a) }},
		{"Plugins", func() string { return checkPlugins(a) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	// One probe per registered backend, stub included so its "always
	// unavailable" posture is visible.
	for _, entry := range a.registry.Entries() {
		provider, err := entry.Factory(a.cfg)
		status := ""
		if err != nil {
			status = fmt.Sprintf("constructor failed: %v", err)
		} else {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.ProbeTimeout)
			if provider.Probe(ctx) {
				status = "healthy"
			} else {
				status = "unavailable"
			}
			cancel()
		}
		if _, err := fmt.Fprintf(w, "%-20s %s\n", "Renderer "+entry.Name+":", status); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("deckport %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkConfig() string {
	cfgFile := viper.ConfigFileUsed()
	if cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkDisplay() string {
	switch runtime.GOOS {
	case "windows", "darwin":
		return "interactive session assumed"
	default:
		if os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != "" {
			return "display server detected"
		}
		return "headless (UI-bound renderers will be excluded)"
	}
}

func checkNetworkPolicy(a *app) string {
	if a.cfg.AllowNetwork {
		return "network-delegating renderers permitted"
	}
	return "network-delegating renderers forbidden (set allow_network to enable)"
}

func checkPlugins(a *app) string {
	if a.cfg.PluginsDir == "" {
		return "no plugins directory configured"
	}
	entries, err := os.ReadDir(a.cfg.PluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("no plugins directory at %s", a.cfg.PluginsDir)
		}
		return fmt.Sprintf("error reading plugins: %s", err)
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() {
			count++
		}
	}
	if count == 0 {
		return fmt.Sprintf("no plugins installed in %s", a.cfg.PluginsDir)
	}
	return fmt.Sprintf("%d plugin dir(s) in %s (manifest: %s)", count, a.cfg.PluginsDir, plugin.ManifestFileName)
}
