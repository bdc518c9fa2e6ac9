// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package msoffice

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/deckport/deckport/internal/config"
	"github.com/deckport/deckport/internal/render"
	deckerr "github.com/deckport/deckport/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesConfiguredShell(t *testing.T) {
	cfg := &config.Config{MSOffice: config.MSOfficeConfig{PowerShell: "pwsh"}}
	p, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "pwsh", p.(*Provider).shell)

	p, err = New(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "powershell", p.(*Provider).shell)
}

func TestCapabilitiesDeclareUIBoundWindowsBackend(t *testing.T) {
	p := &Provider{shell: "powershell", goos: "windows"}
	caps := p.Capabilities()

	require.NoError(t, caps.Validate())
	assert.Equal(t, []string{"windows"}, caps.Platforms)
	assert.False(t, caps.HeadlessCompatible())
	assert.True(t, caps.SupportsNotes)
	assert.True(t, caps.SupportsHandout)
	assert.True(t, caps.SupportsRanges)
	assert.True(t, caps.SupportsOperation(render.OpDocument, ""))
	assert.True(t, caps.SupportsOperation(render.OpImages, render.OutputPNG))
}

func TestProbeFalseOffWindows(t *testing.T) {
	p := &Provider{shell: "powershell", goos: "linux"}
	assert.False(t, p.Probe(context.Background()))
}

func TestProbeFalseWithoutBridgeBinary(t *testing.T) {
	p := &Provider{shell: "definitely-not-a-real-shell-binary", goos: "windows"}
	assert.False(t, p.Probe(context.Background()))
}

func TestRenderDocumentRejectsConflictingLayouts(t *testing.T) {
	p := &Provider{shell: "powershell", goos: "windows"}

	job := render.NewJob("deck.pptx")
	job.Notes = true
	job.Handout = true

	_, err := p.RenderDocument(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, deckerr.CodeConflictingOptions, deckerr.CodeOf(err))
}

func TestImageSelection(t *testing.T) {
	t.Run("explicit slides keep caller order", func(t *testing.T) {
		got, err := imageSelection(render.Job{Slides: []int{3, 1}}, 10)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 1}, got)
	})

	t.Run("range spec expands sorted", func(t *testing.T) {
		got, err := imageSelection(render.Job{RangeSpec: "8-,2"}, 10)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 8, 9, 10}, got)
	})

	t.Run("no filter selects the whole deck", func(t *testing.T) {
		got, err := imageSelection(render.Job{}, 4)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4}, got)
	})

	t.Run("out of bounds list is empty selection", func(t *testing.T) {
		_, err := imageSelection(render.Job{Slides: []int{99}}, 4)
		require.Error(t, err)
		assert.Equal(t, deckerr.CodeEmptySelection, deckerr.CodeOf(err))
	})
}

func TestExportFilter(t *testing.T) {
	assert.Equal(t, "PNG", exportFilter(render.OutputPNG))
	assert.Equal(t, "TIF", exportFilter(render.OutputTIFF))
	assert.Equal(t, "JPG", exportFilter(render.OutputJPEG))
	assert.Equal(t, "JPG", exportFilter(""))
}

func TestJoinInts(t *testing.T) {
	assert.Equal(t, "1,3,5", joinInts([]int{1, 3, 5}, ","))
	assert.Equal(t, "", joinInts(nil, ","))
}

func TestExcerptBoundsOutput(t *testing.T) {
	long := make([]byte, 2048)
	for i := range long {
		long[i] = 'x'
	}
	got := excerpt(long)
	assert.LessOrEqual(t, len(got), 512+3)
	assert.Equal(t, "short", excerpt([]byte("  short \n")))
}

func TestPublishImagesMovesEveryExportedSlide(t *testing.T) {
	outDir := t.TempDir()
	scratch := filepath.Join(outDir, ".export-1")
	require.NoError(t, os.Mkdir(scratch, 0o755))

	names := []string{"deck-01.png", "deck-02.png"}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(scratch, name), []byte("img"), 0o644))
	}

	paths, err := publishImages(scratch, outDir, names, []int{1, 2})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}

func TestPublishImagesUnwindsPartialExport(t *testing.T) {
	outDir := t.TempDir()
	scratch := filepath.Join(outDir, ".export-1")
	require.NoError(t, os.Mkdir(scratch, 0o755))

	// The exporter died after producing two of three slides.
	names := []string{"deck-01.png", "deck-02.png", "deck-03.png"}
	for _, name := range names[:2] {
		require.NoError(t, os.WriteFile(filepath.Join(scratch, name), []byte("img"), 0o644))
	}

	_, err := publishImages(scratch, outDir, names, []int{1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, deckerr.CodeBackendCrashed, deckerr.CodeOf(err))
	assert.Contains(t, err.Error(), "slide 3")

	entries, readErr := os.ReadDir(outDir)
	require.NoError(t, readErr)
	for _, e := range entries {
		assert.True(t, e.IsDir(), "partial output %s left at its final name", e.Name())
	}
}
