// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render

import (
	"context"
	"errors"
	"log/slog"
	"time"

	deckerr "github.com/deckport/deckport/pkg/errors"
	"github.com/deckport/deckport/pkg/health"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// Binding is a selected provider wrapped in the resilience layer. Every
// render call runs under the configured deadline, transient failures
// (timeout, backend_crashed) are retried with jittered exponential
// backoff, and every attempt updates the provider's health state.
type Binding struct {
	provider Provider
	entry    Entry
	tracker  *HealthTracker

	retryAttempts int
	retryBase     time.Duration
	renderTimeout time.Duration
	logger        *slog.Logger
}

func (b *Binding) Name() string { return b.entry.Name }

func (b *Binding) Capabilities() Capability { return b.provider.Capabilities() }

// Provider exposes the bound instance for callers that need the raw
// contract; going through the Binding keeps retries and health tracking.
func (b *Binding) Provider() Provider { return b.provider }

// Health returns the bound provider's current health snapshot.
func (b *Binding) Health() health.Metrics { return b.tracker.Metrics() }

// RenderDocument converts the job's source into a page-description
// document and returns the destination path.
func (b *Binding) RenderDocument(ctx context.Context, job Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if err := job.Validate(); err != nil {
		return "", err
	}

	start := time.Now()
	var path string
	err := b.withRetry(ctx, func(ctx context.Context) error {
		var callErr error
		path, callErr = b.provider.RenderDocument(ctx, job)
		return callErr
	})
	took := time.Since(start)

	observeRender(b.entry.Name, OpDocument, took.Seconds(), err)
	logRenderOutcome(b.logger, b.entry.Name, b.version(), OpDocument, job, documentPages(job), took, err)

	if err != nil {
		return "", err
	}
	return path, nil
}

// RenderImages converts the job's source into one image per selected
// slide. The returned paths follow the caller's requested order for
// explicit slide lists, ascending slide order otherwise.
func (b *Binding) RenderImages(ctx context.Context, job Job) ([]string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var paths []string
	err := b.withRetry(ctx, func(ctx context.Context) error {
		var callErr error
		paths, callErr = b.provider.RenderImages(ctx, job)
		return callErr
	})
	took := time.Since(start)

	observeRender(b.entry.Name, OpImages, took.Seconds(), err)
	logRenderOutcome(b.logger, b.entry.Name, b.version(), OpImages, job, len(paths), took, err)

	if err != nil {
		return nil, err
	}
	return paths, nil
}

// withRetry runs one attempt under the render deadline and retries only
// the two transient taxonomy codes. All other codes are terminal and
// propagate immediately; retrying an invalid_range cannot help.
func (b *Binding) withRetry(ctx context.Context, attempt func(context.Context) error) error {
	backoff := retry.NewExponential(b.retryBase)
	backoff = retry.WithJitterPercent(50, backoff)
	backoff = retry.WithMaxRetries(maxRetries(b.retryAttempts), backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, b.renderTimeout)
		err := normalizeRenderErr(attempt(attemptCtx), attemptCtx)
		cancel()

		if err == nil {
			b.tracker.RecordSuccess()
			return nil
		}

		b.tracker.RecordFailure()
		if deckerr.IsRetryable(err) {
			b.logger.Debug("retrying transient render failure",
				"provider", b.entry.Name, "code", string(deckerr.CodeOf(err)))
			return retry.RetryableError(err)
		}
		return err
	})
}

// documentPages reports the page count the job's slide filter implies,
// so document records carry the count the way image records do. Filters
// that resolve against the deck (open spans, "n", no filter at all)
// report 0 and the field is omitted.
func documentPages(job Job) int {
	if len(job.Slides) > 0 {
		seen := make(map[int]bool, len(job.Slides))
		for _, idx := range job.Slides {
			seen[idx] = true
		}
		return len(seen)
	}
	if job.RangeSpec == "" {
		return 0
	}
	n, ok := closedRangeLen(job.RangeSpec)
	if !ok {
		return 0
	}
	return n
}

func maxRetries(attempts int) uint64 {
	if attempts < 1 {
		return 0
	}
	return uint64(attempts - 1)
}

// normalizeRenderErr guarantees every surfaced error carries exactly one
// taxonomy code. Deadline overruns become timeout; untyped provider
// errors are treated as a crashed backend.
func normalizeRenderErr(err error, ctx context.Context) error {
	if err == nil {
		return nil
	}
	if deckerr.CodeOf(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return deckerr.Wrap(err, deckerr.CodeTimeout, "render deadline exceeded")
	}
	if errors.Is(err, context.Canceled) {
		return deckerr.Wrap(err, deckerr.CodeTimeout, "render cancelled")
	}
	return deckerr.Wrap(err, deckerr.CodeBackendCrashed, "provider returned an untyped error")
}

func (b *Binding) version() string {
	return b.provider.Capabilities().Version
}
