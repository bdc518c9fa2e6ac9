// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path/filepath"
	"time"

	deckerr "github.com/deckport/deckport/pkg/errors"
)

// SourceHash returns a short one-way hash of the source file name.
// Diagnostics never carry document contents or plaintext file names; the
// hash is enough to correlate records for the same input.
func SourceHash(path string) string {
	sum := sha256.Sum256([]byte(filepath.Base(path)))
	return hex.EncodeToString(sum[:])[:12]
}

// logRenderOutcome emits the per-call diagnostic record: provider
// identity, operation, duration, page count, outcome, and error code when
// applicable.
func logRenderOutcome(logger *slog.Logger, name, version string, op Operation, job Job, pages int, took time.Duration, err error) {
	attrs := []any{
		"provider", name,
		"operation", string(op),
		"job_id", job.ID,
		"source_hash", SourceHash(job.Source),
		"duration", took,
	}
	if version != "" {
		attrs = append(attrs, "version", version)
	}
	if pages > 0 {
		attrs = append(attrs, "pages", pages)
	}

	if err != nil {
		attrs = append(attrs, "outcome", "failure", "code", string(deckerr.CodeOf(err)))
		logger.Warn("render failed", attrs...)
		return
	}
	attrs = append(attrs, "outcome", "success")
	logger.Info("render completed", attrs...)
}
