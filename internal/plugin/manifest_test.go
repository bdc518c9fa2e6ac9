// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package plugin_test

import (
	"testing"

	"github.com/deckport/deckport/internal/plugin"
	deckerr "github.com/deckport/deckport/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifestValid(t *testing.T) {
	data := []byte(`
name: acme_render
version: 1.2.3
binary: acme-render
vendor: acme
`)
	m, err := plugin.ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, "acme_render", m.Name)
	assert.Equal(t, "1.2.3", m.Version)
	assert.Equal(t, "acme-render", m.Binary)
	assert.Equal(t, "acme", m.Vendor)
}

func TestParseManifestBadYAML(t *testing.T) {
	_, err := plugin.ParseManifest([]byte("name: [unclosed"))
	require.Error(t, err)
	assert.Equal(t, deckerr.CodePluginManifestInvalid, deckerr.CodeOf(err))
}

func TestManifestValidateCollectsAllErrors(t *testing.T) {
	m := &plugin.Manifest{
		Name:    "Bad-Name",
		Version: "v1.2",
		Binary:  "",
	}

	errs := m.Validate()
	assert.Len(t, errs, 3, "every problem is reported, not just the first")
}

func TestManifestValidateNames(t *testing.T) {
	valid := func(name string) []error {
		m := &plugin.Manifest{Name: name, Version: "1.0.0", Binary: "bin"}
		return m.Validate()
	}

	assert.Empty(t, valid("acme_render"))
	assert.Empty(t, valid("x9"))
	assert.NotEmpty(t, valid(""))
	assert.NotEmpty(t, valid("Has-Caps"))
	assert.NotEmpty(t, valid("trailing_"))
}

func TestManifestValidateVersion(t *testing.T) {
	m := &plugin.Manifest{Name: "ok", Version: "1.0.0-rc.1+build.5", Binary: "bin"}
	assert.Empty(t, m.Validate())

	for _, v := range []string{"", "1.0", "v1.0.0", "01.0.0"} {
		m := &plugin.Manifest{Name: "ok", Version: v, Binary: "bin"}
		assert.NotEmpty(t, m.Validate(), "version %q should be rejected", v)
	}
}

func TestManifestValidateBinaryConfinement(t *testing.T) {
	for _, binary := range []string{"/usr/bin/evil", "../outside", "../../etc/passwd", "sub/../../escape"} {
		m := &plugin.Manifest{Name: "ok", Version: "1.0.0", Binary: binary}
		assert.NotEmpty(t, m.Validate(), "binary %q should be rejected", binary)
	}

	m := &plugin.Manifest{Name: "ok", Version: "1.0.0", Binary: "bin/acme-render"}
	assert.Empty(t, m.Validate())
}
