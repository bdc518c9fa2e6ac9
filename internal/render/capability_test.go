// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render_test

import (
	"testing"

	"github.com/deckport/deckport/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityValidate(t *testing.T) {
	t.Run("contradictory declaration fails", func(t *testing.T) {
		caps := render.Capability{Headless: render.Bool(true), NeedsUI: render.Bool(true)}
		assert.Error(t, caps.Validate())

		caps = render.Capability{Headless: render.Bool(false), NeedsUI: render.Bool(false)}
		assert.Error(t, caps.Validate())
	})

	t.Run("opposite or partial declarations pass", func(t *testing.T) {
		assert.NoError(t, render.Capability{Headless: render.Bool(true), NeedsUI: render.Bool(false)}.Validate())
		assert.NoError(t, render.Capability{Headless: render.Bool(true)}.Validate())
		assert.NoError(t, render.Capability{}.Validate())
	})
}

func TestCapabilityNormalize(t *testing.T) {
	caps := render.Capability{NeedsUI: render.Bool(true)}.Normalize()
	require.NotNil(t, caps.Headless)
	assert.False(t, *caps.Headless)

	caps = render.Capability{Headless: render.Bool(true)}.Normalize()
	require.NotNil(t, caps.NeedsUI)
	assert.False(t, *caps.NeedsUI)

	caps = render.Capability{}.Normalize()
	assert.Nil(t, caps.Headless)
	assert.Nil(t, caps.NeedsUI)
}

func TestCapabilityHeadlessCompatible(t *testing.T) {
	assert.True(t, render.Capability{Headless: render.Bool(true)}.HeadlessCompatible())
	assert.True(t, render.Capability{NeedsUI: render.Bool(false)}.HeadlessCompatible())
	assert.False(t, render.Capability{NeedsUI: render.Bool(true)}.HeadlessCompatible())

	// Both unknown is conservatively incompatible.
	assert.False(t, render.Capability{}.HeadlessCompatible())
}

func TestCapabilitySupportsPlatform(t *testing.T) {
	anywhere := render.Capability{}
	assert.True(t, anywhere.SupportsPlatform("linux"))
	assert.True(t, anywhere.SupportsPlatform("windows"))

	windowsOnly := render.Capability{Platforms: []string{"windows"}}
	assert.True(t, windowsOnly.SupportsPlatform("windows"))
	assert.False(t, windowsOnly.SupportsPlatform("linux"))
}

func TestCapabilitySupportsOperation(t *testing.T) {
	pdfOnly := render.Capability{Outputs: []render.OutputKind{render.OutputPDF}}
	assert.True(t, pdfOnly.SupportsOperation(render.OpDocument, ""))
	assert.False(t, pdfOnly.SupportsOperation(render.OpImages, ""))
	assert.False(t, pdfOnly.SupportsOperation(render.OpImages, render.OutputPNG))

	full := render.Capability{Outputs: []render.OutputKind{
		render.OutputPDF, render.OutputPNG, render.OutputJPEG,
	}}
	assert.True(t, full.SupportsOperation(render.OpImages, ""))
	assert.True(t, full.SupportsOperation(render.OpImages, render.OutputPNG))
	assert.False(t, full.SupportsOperation(render.OpImages, render.OutputTIFF))
}
