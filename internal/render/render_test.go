// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render_test

import (
	"testing"

	"github.com/deckport/deckport/internal/render"
	deckerr "github.com/deckport/deckport/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobValidate(t *testing.T) {
	t.Run("plain document job passes", func(t *testing.T) {
		assert.NoError(t, render.NewJob("deck.pptx").Validate())
	})

	t.Run("missing source fails", func(t *testing.T) {
		err := render.Job{}.Validate()
		require.Error(t, err)
		assert.Equal(t, deckerr.CodeUnsupportedOption, deckerr.CodeOf(err))
	})

	t.Run("notes with handout conflicts", func(t *testing.T) {
		job := render.NewJob("deck.pptx")
		job.Notes = true
		job.Handout = true
		err := job.Validate()
		require.Error(t, err)
		assert.Equal(t, deckerr.CodeConflictingOptions, deckerr.CodeOf(err))
	})

	t.Run("range spec with slide list conflicts", func(t *testing.T) {
		job := render.NewJob("deck.pptx")
		job.RangeSpec = "1-3"
		job.Slides = []int{1}
		err := job.Validate()
		require.Error(t, err)
		assert.Equal(t, deckerr.CodeConflictingOptions, deckerr.CodeOf(err))
	})

	t.Run("pdf is not an image encoding", func(t *testing.T) {
		job := render.NewJob("deck.pptx")
		job.Format = render.OutputPDF
		err := job.Validate()
		require.Error(t, err)
		assert.Equal(t, deckerr.CodeUnsupportedOption, deckerr.CodeOf(err))
	})

	t.Run("negative dpi fails", func(t *testing.T) {
		job := render.NewJob("deck.pptx")
		job.DPI = -50
		assert.Error(t, job.Validate())
	})
}

func TestJobImageFormatDefaultsToJPEG(t *testing.T) {
	assert.Equal(t, render.OutputJPEG, render.Job{}.ImageFormat())

	job := render.Job{Format: render.OutputPNG}
	assert.Equal(t, render.OutputPNG, job.ImageFormat())
}

func TestSlideImageName(t *testing.T) {
	tests := []struct {
		stem   string
		index  int
		total  int
		format render.OutputKind
		want   string
	}{
		{"deck", 1, 9, render.OutputPNG, "deck-01.png"},
		{"deck", 7, 12, render.OutputJPEG, "deck-07.jpg"},
		{"deck", 100, 150, render.OutputTIFF, "deck-100.tiff"},
		{"deck", 5, 1000, render.OutputPNG, "deck-0005.png"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, render.SlideImageName(tt.stem, tt.index, tt.total, tt.format))
	}
}

func TestJobSourceStem(t *testing.T) {
	job := render.NewJob("/data/decks/quarterly review.pptx")
	assert.Equal(t, "quarterly review", job.SourceStem())
}
