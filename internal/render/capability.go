// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render

import (
	"slices"

	deckerr "github.com/deckport/deckport/pkg/errors"
)

// Capability is an immutable snapshot of what a provider supports. It is
// built once when Capabilities() is invoked and never refreshed
// automatically; callers needing live data must re-invoke.
//
// Headless and NeedsUI are tri-state: nil means the provider did not
// declare the fact. When both are unknown the provider is treated as
// incompatible with headless selection, a conservative default for
// backends that may pop a window on a build server.
//
// The numeric bounds mean "backend declares no limit" when nil, not
// "unlimited"; callers must not assume safety beyond what is declared.
type Capability struct {
	Platforms []string     `json:"platforms"`
	Outputs   []OutputKind `json:"outputs"`

	Headless     *bool `json:"headless,omitempty"`
	NeedsUI      *bool `json:"needs_ui,omitempty"`
	NeedsNetwork bool  `json:"needs_network"`

	Vendor  string `json:"vendor,omitempty"`
	Version string `json:"version,omitempty"`

	SupportsNotes   bool `json:"supports_notes"`
	SupportsHandout bool `json:"supports_handout"`
	SupportsRanges  bool `json:"supports_ranges"`

	MinDPI        *int `json:"min_dpi,omitempty"`
	MaxDPI        *int `json:"max_dpi,omitempty"`
	MaxPageCount  *int `json:"max_page_count,omitempty"`
	MaxFileSizeMB *int `json:"max_file_size_mb,omitempty"`
}

// Bool is a convenience for building tri-state capability fields.
func Bool(v bool) *bool { return &v }

// Validate rejects contradictory declarations: headless and needs-UI can
// never both be true.
func (c Capability) Validate() error {
	if c.Headless != nil && c.NeedsUI != nil && *c.Headless == *c.NeedsUI {
		return deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
			"capability declares headless=%v and needs_ui=%v; the two must be opposites",
			*c.Headless, *c.NeedsUI)
	}
	return nil
}

// Normalize derives the missing half of the headless/needs-UI pair when
// only one side was declared. Both-unknown stays unknown.
func (c Capability) Normalize() Capability {
	switch {
	case c.Headless != nil && c.NeedsUI == nil:
		c.NeedsUI = Bool(!*c.Headless)
	case c.Headless == nil && c.NeedsUI != nil:
		c.Headless = Bool(!*c.NeedsUI)
	}
	return c
}

// HeadlessCompatible reports whether the provider may be selected when no
// interactive display is available.
func (c Capability) HeadlessCompatible() bool {
	c = c.Normalize()
	if c.Headless == nil {
		return false
	}
	return *c.Headless
}

// SupportsPlatform reports whether the provider runs on the given
// operating system. An empty platform list means "runs anywhere".
func (c Capability) SupportsPlatform(goos string) bool {
	if len(c.Platforms) == 0 {
		return true
	}
	return slices.Contains(c.Platforms, goos)
}

// SupportsOutput reports whether the provider can produce the given
// output encoding.
func (c Capability) SupportsOutput(kind OutputKind) bool {
	return slices.Contains(c.Outputs, kind)
}

// SupportsOperation reports whether the provider can serve op at all,
// optionally narrowed to a concrete output encoding.
func (c Capability) SupportsOperation(op Operation, format OutputKind) bool {
	switch op {
	case OpDocument:
		return c.SupportsOutput(OutputPDF)
	case OpImages:
		if format == "" {
			return c.SupportsOutput(OutputPNG) || c.SupportsOutput(OutputJPEG) || c.SupportsOutput(OutputTIFF)
		}
		return c.SupportsOutput(format)
	default:
		return false
	}
}
