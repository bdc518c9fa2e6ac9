// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

// Package render is the core of deckport: the provider contract every
// conversion backend implements, the registry and selection engine that
// pick a healthy backend at runtime, and the resilience layer that
// normalizes backend failures into one stable error taxonomy.
package render

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deckport/deckport/internal/config"
	deckerr "github.com/deckport/deckport/pkg/errors"
	"github.com/google/uuid"
)

// Operation names the two render entry points a caller can ask for.
type Operation string

const (
	OpDocument Operation = "document"
	OpImages   Operation = "images"
)

// OutputKind identifies a supported output encoding.
type OutputKind string

const (
	OutputPDF  OutputKind = "pdf"
	OutputPNG  OutputKind = "png"
	OutputJPEG OutputKind = "jpeg"
	OutputTIFF OutputKind = "tiff"
)

// Provider is the contract every conversion backend implements.
//
// Probe is a cheap, side-effect-free liveness check: it returns false for
// any expected failure (missing install, unreachable host) instead of an
// error, and honors ctx. Render calls return taxonomy errors and must
// never leave a half-written file at the destination path.
type Provider interface {
	Name() string
	Capabilities() Capability
	Probe(ctx context.Context) bool
	RenderDocument(ctx context.Context, job Job) (string, error)
	RenderImages(ctx context.Context, job Job) ([]string, error)
}

// Factory constructs a provider instance from configuration. A failing
// factory degrades that one candidate to "unavailable"; it never aborts
// discovery or selection of the others.
type Factory func(cfg *config.Config) (Provider, error)

// Job is one request to convert a source presentation. It carries no
// identity beyond the call; ID exists only to correlate diagnostics.
type Job struct {
	ID     string
	Source string

	// Document output.
	OutputPath string
	Notes      bool
	Handout    bool
	RangeSpec  string

	// Image output.
	OutputDir string
	Format    OutputKind
	DPI       int
	Slides    []int // explicit 1-based indices, caller order preserved
}

// NewJob returns a Job for source with a fresh correlation ID.
func NewJob(source string) Job {
	return Job{ID: uuid.NewString(), Source: source}
}

// Validate fails fast on option combinations no backend may accept.
// It runs before any backend work begins.
func (j Job) Validate() error {
	if j.Source == "" {
		return deckerr.New(deckerr.CodeUnsupportedOption, "render job has no source file", deckerr.FieldJobID(j.ID))
	}
	if j.Notes && j.Handout {
		return deckerr.New(deckerr.CodeConflictingOptions,
			"notes and handout layouts cannot be combined in one export",
			deckerr.FieldJobID(j.ID))
	}
	if j.RangeSpec != "" && len(j.Slides) > 0 {
		return deckerr.New(deckerr.CodeConflictingOptions,
			"range spec and explicit slide list cannot be combined",
			deckerr.FieldJobID(j.ID))
	}
	if j.DPI < 0 {
		return deckerr.Errorf(deckerr.CodeUnsupportedOption, "dpi must be non-negative, got %d", j.DPI)
	}
	switch j.Format {
	case "", OutputPNG, OutputJPEG, OutputTIFF:
	case OutputPDF:
		return deckerr.New(deckerr.CodeUnsupportedOption, "pdf is not an image encoding")
	default:
		return deckerr.Errorf(deckerr.CodeUnsupportedOption, "unsupported image format %q", j.Format)
	}
	return nil
}

// ImageFormat returns the requested image encoding, defaulting to JPEG
// the way the desktop exporters do.
func (j Job) ImageFormat() OutputKind {
	if j.Format == "" {
		return OutputJPEG
	}
	return j.Format
}

// SlideImageName builds the deterministic file name for one exported
// slide. Sequence numbers are zero-padded wide enough for the deck so
// repeated runs sort and diff cleanly.
func SlideImageName(stem string, index, total int, format OutputKind) string {
	width := len(strconv.Itoa(total))
	if width < 2 {
		width = 2
	}
	return fmt.Sprintf("%s-%0*d.%s", stem, width, index, imageExt(format))
}

// SourceStem returns the source file name without directory or suffix,
// used as the prefix for exported slide images.
func (j Job) SourceStem() string {
	base := filepath.Base(j.Source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func imageExt(format OutputKind) string {
	switch format {
	case OutputPNG:
		return "png"
	case OutputTIFF:
		return "tiff"
	default:
		return "jpg"
	}
}
