// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package plugin

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/deckport/deckport/internal/config"
	"github.com/deckport/deckport/internal/render"
)

// ManifestFileName is the file each plugin directory must contain.
const ManifestFileName = "plugin.yaml"

// Discover scans dir for plugin directories and returns a registry entry
// for each valid one. A broken plugin is logged and skipped; it never
// prevents discovery of the others or startup itself. A missing or empty
// dir yields no entries.
func Discover(dir string, logger *slog.Logger) []render.Entry {
	if dir == "" {
		return nil
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("skipping plugin discovery", "dir", dir, "error", err)
		}
		return nil
	}

	var entries []render.Entry
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}

		pluginDir := filepath.Join(dir, d.Name())
		manifestPath := filepath.Join(pluginDir, ManifestFileName)

		data, err := os.ReadFile(manifestPath)
		if err != nil {
			logger.Warn("skipping plugin without readable manifest",
				"dir", pluginDir, "error", err)
			continue
		}

		m, err := ParseManifest(data)
		if err != nil {
			logger.Warn("skipping plugin with invalid manifest",
				"dir", pluginDir, "error", err)
			continue
		}

		binaryPath := filepath.Join(pluginDir, m.Binary)
		if info, err := os.Stat(binaryPath); err != nil || info.IsDir() {
			logger.Warn("skipping plugin whose binary is missing",
				"provider", m.Name, "binary", binaryPath)
			continue
		}

		entries = append(entries, render.Entry{
			Name:    m.Name,
			Source:  manifestPath,
			Factory: factory(m, binaryPath),
		})
		logger.Debug("discovered renderer plugin",
			"provider", m.Name, "version", m.Version, "binary", binaryPath)
	}
	return entries
}

func factory(m *Manifest, binaryPath string) render.Factory {
	return func(_ *config.Config) (render.Provider, error) {
		return NewClient(m, binaryPath), nil
	}
}
