// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render

import (
	"slices"
	"strconv"
	"strings"

	deckerr "github.com/deckport/deckport/pkg/errors"
)

// ParseRangeSpec expands a 1-based, inclusive slide selection like
// "1-3, 5, 7-" against a deck of total slides.
//
// Grammar: comma-separated single indices or start-end spans. A span
// may leave either end open: "7-" runs to the last slide and "-4" means
// slides 1 through 4. "n" is accepted as an alias for the last slide.
// Whitespace around tokens is ignored; overlapping or duplicate spans
// are merged.
//
// An index <= 0, a malformed token, or a reversed span like "5-3" is an
// invalid_range error. Indices beyond the deck are clipped; if nothing
// survives clipping the call fails with empty_selection. The result is
// sorted ascending.
func ParseRangeSpec(spec string, total int) ([]int, error) {
	if total < 1 {
		return nil, deckerr.Errorf(deckerr.CodeInvalidRange, "deck has no slides")
	}
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return nil, deckerr.Errorf(deckerr.CodeInvalidRange, "empty range spec")
	}

	seen := make(map[int]bool)
	anyRequested := false

	for tok := range strings.SplitSeq(trimmed, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		start, end, err := parseRangeToken(tok, total)
		if err != nil {
			return nil, err
		}
		anyRequested = true
		if start > end {
			return nil, deckerr.Errorf(deckerr.CodeInvalidRange,
				"span %q ends before it starts", tok)
		}
		if start > total {
			continue // entirely beyond the deck; clipped
		}
		if end > total {
			end = total
		}
		for i := start; i <= end; i++ {
			seen[i] = true
		}
	}

	if !anyRequested {
		return nil, deckerr.Errorf(deckerr.CodeInvalidRange, "range spec %q selects nothing", spec)
	}
	if len(seen) == 0 {
		return nil, deckerr.Errorf(deckerr.CodeEmptySelection,
			"range spec %q selects no slide in a %d-slide deck", spec, total)
	}

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	slices.Sort(indices)
	return indices, nil
}

// parseRangeToken parses one comma-separated token into an inclusive
// start/end pair. An open start resolves to 1, an open end to total.
func parseRangeToken(tok string, total int) (start, end int, err error) {
	if before, after, found := strings.Cut(tok, "-"); found {
		if strings.TrimSpace(before) == "" {
			start = 1
		} else if start, err = parseRangeIndex(before, total); err != nil {
			return 0, 0, err
		}
		if strings.TrimSpace(after) == "" {
			return start, total, nil
		}
		end, err = parseRangeIndex(after, total)
		if err != nil {
			return 0, 0, err
		}
		return start, end, nil
	}

	start, err = parseRangeIndex(tok, total)
	if err != nil {
		return 0, 0, err
	}
	return start, start, nil
}

func parseRangeIndex(raw string, total int) (int, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "n") {
		return total, nil
	}
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return 0, deckerr.Errorf(deckerr.CodeInvalidRange, "invalid range token %q", raw)
	}
	if idx <= 0 {
		return 0, deckerr.Errorf(deckerr.CodeInvalidRange, "slide indices are 1-based, got %d", idx)
	}
	return idx, nil
}

// closedRangeLen counts the slides a range spec selects when that is
// knowable without the deck: literal indices and closed spans only.
// Open ends and the "n" alias resolve against the deck, so specs using
// them report not knowable.
func closedRangeLen(spec string) (int, bool) {
	seen := make(map[int]bool)
	for tok := range strings.SplitSeq(strings.TrimSpace(spec), ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if strings.HasSuffix(tok, "-") || strings.ContainsAny(tok, "nN") {
			return 0, false
		}
		start, end, err := parseRangeToken(tok, 0)
		if err != nil || start > end {
			return 0, false
		}
		for i := start; i <= end; i++ {
			seen[i] = true
		}
	}
	return len(seen), len(seen) > 0
}

// SelectSlides resolves an explicit slide index list against a deck.
// Caller order is preserved after de-duplication; out-of-bounds indices
// are dropped. An index <= 0 is invalid_range; an entirely out-of-bounds
// list is empty_selection.
func SelectSlides(slides []int, total int) ([]int, error) {
	if total < 1 {
		return nil, deckerr.Errorf(deckerr.CodeInvalidRange, "deck has no slides")
	}

	seen := make(map[int]bool, len(slides))
	out := make([]int, 0, len(slides))
	for _, idx := range slides {
		if idx <= 0 {
			return nil, deckerr.Errorf(deckerr.CodeInvalidRange, "slide indices are 1-based, got %d", idx)
		}
		if idx > total || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}

	if len(out) == 0 {
		return nil, deckerr.Errorf(deckerr.CodeEmptySelection,
			"no requested slide exists in a %d-slide deck", total)
	}
	return out, nil
}
