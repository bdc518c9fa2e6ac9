// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

// Package plugin discovers out-of-tree renderer backends and hosts them
// as subprocesses. A plugin is a directory under the plugins dir holding
// a plugin.yaml manifest and the binary it names; the binary speaks the
// handshake in this package and serves the renderer contract over RPC.
package plugin

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	deckerr "github.com/deckport/deckport/pkg/errors"
	"gopkg.in/yaml.v3"
)

// nameRe mirrors the registry's provider-name grammar so a manifest that
// parses here cannot be rejected later at registration.
var nameRe = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// semverRe matches strict semver (no "v" prefix): MAJOR.MINOR.PATCH with
// optional prerelease and build metadata.
var semverRe = regexp.MustCompile(
	`^(?:0|[1-9]\d*)\.(?:0|[1-9]\d*)\.(?:0|[1-9]\d*)` +
		`(?:-(?:[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?` +
		`(?:\+(?:[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`,
)

// Manifest is the parsed plugin.yaml. Name becomes the provider name in
// the registry; Binary is the plugin executable, relative to the
// manifest's directory.
type Manifest struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Binary  string `yaml:"binary"`
	Vendor  string `yaml:"vendor,omitempty"`
}

// ParseManifest parses YAML data into a Manifest and validates it.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, deckerr.Errorf(deckerr.CodePluginManifestInvalid,
			"manifest parse: %s", err)
	}

	if errs := m.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}

	return &m, nil
}

// Validate checks that the Manifest is well-formed. It returns all
// validation errors found rather than stopping at the first one.
func (m *Manifest) Validate() []error {
	var errs []error

	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, deckerr.Errorf(deckerr.CodePluginManifestInvalid,
			"manifest validation: name must not be empty"))
	} else if !nameRe.MatchString(m.Name) {
		errs = append(errs, deckerr.Errorf(deckerr.CodePluginManifestInvalid,
			"manifest validation: name must be lower_snake_case, got %q", m.Name))
	}

	if strings.TrimSpace(m.Version) == "" {
		errs = append(errs, deckerr.Errorf(deckerr.CodePluginManifestInvalid,
			"manifest validation: version must not be empty"))
	} else if !semverRe.MatchString(m.Version) {
		errs = append(errs, deckerr.Errorf(deckerr.CodePluginManifestInvalid,
			"manifest validation: version must be valid semver (MAJOR.MINOR.PATCH), got %q", m.Version))
	}

	if err := validateBinary(m.Binary); err != nil {
		errs = append(errs, deckerr.Errorf(deckerr.CodePluginManifestInvalid,
			"manifest validation: %s", err))
	}

	return errs
}

// validateBinary confines the plugin executable to the plugin's own
// directory. Absolute paths and parent traversal would let a manifest
// point at arbitrary binaries on the host.
func validateBinary(binary string) error {
	if strings.TrimSpace(binary) == "" {
		return fmt.Errorf("binary must not be empty")
	}
	if filepath.IsAbs(binary) {
		return fmt.Errorf("binary must be relative to the plugin directory, got %q", binary)
	}
	clean := filepath.Clean(binary)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("binary must not escape the plugin directory, got %q", binary)
	}
	return nil
}
