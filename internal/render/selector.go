// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/deckport/deckport/internal/config"
	deckerr "github.com/deckport/deckport/pkg/errors"
)

// Constraints narrow a selection request beyond what configuration
// already says.
type Constraints struct {
	Operation Operation
	Format    OutputKind

	// AllowNetwork permits network-delegating providers for this call
	// even when the configuration default forbids them.
	AllowNetwork bool
}

// Exclusion records why one candidate was not selected, for
// diagnosability of "nothing available" outcomes.
type Exclusion struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// Selector picks a healthy provider for a request. Filtering (steps over
// platform, display, network policy, allow/deny lists, and cool-down) is
// pure and non-blocking; only probing blocks, and probes of independent
// candidates run concurrently.
type Selector struct {
	registry *Registry
	cfg      *config.Config
	board    *HealthBoard
	logger   *slog.Logger

	priority   []string
	goos       string
	hasDisplay func() bool
}

// DefaultPriority is the documented probe order for the built-in
// providers: the most capable local backend before network-delegating
// ones. The stub never appears here; it is only ever a last resort.
var DefaultPriority = []string{"ms_office", "http_office"}

type SelectorOption func(*Selector)

// WithPriority overrides the auto-selection probe order.
func WithPriority(names []string) SelectorOption {
	return func(s *Selector) { s.priority = slices.Clone(names) }
}

// WithGOOS overrides the operating system used for platform filtering
// (for testing).
func WithGOOS(goos string) SelectorOption {
	return func(s *Selector) { s.goos = goos }
}

// WithDisplayCheck overrides interactive-display detection (for testing).
func WithDisplayCheck(fn func() bool) SelectorOption {
	return func(s *Selector) { s.hasDisplay = fn }
}

func WithLogger(logger *slog.Logger) SelectorOption {
	return func(s *Selector) { s.logger = logger }
}

func NewSelector(registry *Registry, cfg *config.Config, board *HealthBoard, opts ...SelectorOption) *Selector {
	s := &Selector{
		registry:   registry,
		cfg:        cfg,
		board:      board,
		logger:     slog.Default(),
		priority:   DefaultPriority,
		goos:       runtime.GOOS,
		hasDisplay: hasInteractiveDisplay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select binds a provider for the request, honoring the configured mode:
// "none" forces the stub, an explicit provider name is probed once with
// no fallback, and anything else runs automatic selection. Unrecognized
// names degrade to auto per the configuration contract.
func (s *Selector) Select(ctx context.Context, c Constraints) (*Binding, error) {
	mode := strings.TrimSpace(s.cfg.Renderer)

	switch {
	case mode == config.RendererNone:
		b, err := s.bindStub(c)
		observeSelection("none", err)
		return b, err
	case mode != "" && mode != config.RendererAuto:
		if entry, ok := s.registry.Lookup(mode); ok {
			b, err := s.selectExplicit(ctx, entry)
			observeSelection("explicit", err)
			return b, err
		}
		s.logger.Warn("configured renderer is not registered, falling back to auto selection",
			"renderer", mode, "registered", s.registry.Names())
	}

	b, err := s.selectAuto(ctx, c)
	observeSelection("auto", err)
	return b, err
}

// selectExplicit constructs and probes exactly the named provider. A
// failed probe is unavailable; explicit selection never silently falls
// back to another provider.
func (s *Selector) selectExplicit(ctx context.Context, entry Entry) (*Binding, error) {
	provider, err := s.construct(entry)
	if err != nil {
		return nil, deckerr.Wrap(err, deckerr.CodeUnavailable,
			"configured renderer could not be constructed",
			deckerr.FieldProvider(entry.Name))
	}

	tracker := s.board.Tracker(entry.Name)
	ok := s.probeOne(ctx, provider)
	observeProbe(entry.Name, ok)
	if !ok {
		tracker.RecordFailure()
		return nil, deckerr.New(deckerr.CodeUnavailable,
			"configured renderer failed its liveness probe",
			deckerr.FieldProvider(entry.Name))
	}
	tracker.RecordSuccess()

	return s.bind(entry, provider), nil
}

type candidate struct {
	entry    Entry
	provider Provider
}

// selectAuto runs the full algorithm: filter on platform, display,
// network policy, allow/deny lists, operation support, and cool-down;
// then probe survivors concurrently and return the first healthy one in
// priority order, cancelling outstanding probes of lower-priority
// candidates.
func (s *Selector) selectAuto(ctx context.Context, c Constraints) (*Binding, error) {
	var (
		survivors  []candidate
		exclusions []Exclusion
	)

	exclude := func(name, reason string) {
		exclusions = append(exclusions, Exclusion{Provider: name, Reason: reason})
	}

	for _, entry := range s.orderedEntries() {
		provider, err := s.construct(entry)
		if err != nil {
			s.logger.Warn("skipping provider: constructor failed",
				"provider", entry.Name, "error", err)
			exclude(entry.Name, fmt.Sprintf("constructor failed: %v", err))
			continue
		}

		caps := provider.Capabilities()
		if err := caps.Validate(); err != nil {
			exclude(entry.Name, fmt.Sprintf("invalid capability declaration: %v", err))
			continue
		}
		caps = caps.Normalize()

		if !caps.SupportsPlatform(s.goos) {
			exclude(entry.Name, fmt.Sprintf("not supported on %s", s.goos))
			continue
		}
		if !s.hasDisplay() && !caps.HeadlessCompatible() {
			exclude(entry.Name, "requires an interactive display")
			continue
		}
		if caps.NeedsNetwork && !c.AllowNetwork && !s.cfg.AllowNetwork {
			exclude(entry.Name, "requires network egress, which policy forbids")
			continue
		}
		if len(s.cfg.Allow) > 0 && !slices.Contains(s.cfg.Allow, entry.Name) {
			exclude(entry.Name, "not on the configured allow-list")
			continue
		}
		if slices.Contains(s.cfg.Deny, entry.Name) {
			exclude(entry.Name, "on the configured deny-list")
			continue
		}
		if c.Operation != "" && !caps.SupportsOperation(c.Operation, c.Format) {
			exclude(entry.Name, fmt.Sprintf("cannot produce %s output", describeOutput(c)))
			continue
		}
		if s.board.Tracker(entry.Name).InCooldown() {
			exclude(entry.Name, "in cool-down after repeated failures")
			continue
		}

		survivors = append(survivors, candidate{entry: entry, provider: provider})
	}

	if binding := s.probeSurvivors(ctx, survivors, &exclusions); binding != nil {
		return binding, nil
	}

	if s.cfg.AllowStubFallback {
		if b, err := s.bindStub(c); err == nil {
			return b, nil
		}
	}

	return nil, selectionFailure(exclusions)
}

// probeSurvivors launches every survivor's probe concurrently, then
// consumes results in priority order. The first healthy candidate wins
// and the shared context cancels every probe still in flight. Results of
// probes never consumed are not recorded against health state.
func (s *Selector) probeSurvivors(ctx context.Context, survivors []candidate, exclusions *[]Exclusion) *Binding {
	if len(survivors) == 0 {
		return nil
	}

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan bool, len(survivors))
	for i, cand := range survivors {
		ch := make(chan bool, 1)
		results[i] = ch
		go func(p Provider) {
			ch <- s.probeOne(probeCtx, p)
		}(cand.provider)
	}

	for i, cand := range survivors {
		var ok bool
		select {
		case ok = <-results[i]:
		case <-ctx.Done():
			*exclusions = append(*exclusions, Exclusion{Provider: cand.entry.Name, Reason: "selection cancelled before probe completed"})
			return nil
		}

		tracker := s.board.Tracker(cand.entry.Name)
		observeProbe(cand.entry.Name, ok)
		if ok {
			tracker.RecordSuccess()
			return s.bind(cand.entry, cand.provider)
		}
		tracker.RecordFailure()
		*exclusions = append(*exclusions, Exclusion{Provider: cand.entry.Name, Reason: "liveness probe failed"})
	}

	return nil
}

// orderedEntries returns non-stub entries: configured priority first,
// then the rest in registration order.
func (s *Selector) orderedEntries() []Entry {
	var out []Entry
	seen := make(map[string]bool)

	for _, name := range s.priority {
		if entry, ok := s.registry.Lookup(name); ok && name != NullProviderName {
			out = append(out, entry)
			seen[name] = true
		}
	}
	for _, entry := range s.registry.Entries() {
		if entry.Name == NullProviderName || seen[entry.Name] {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func (s *Selector) construct(entry Entry) (provider Provider, err error) {
	// A panicking factory degrades to "unavailable" for that one
	// candidate, never aborting selection.
	defer func() {
		if r := recover(); r != nil {
			provider = nil
			err = deckerr.Errorf(deckerr.CodeUnavailable, "provider factory panicked: %v", r)
		}
	}()
	return entry.Factory(s.cfg)
}

// probeOne runs one liveness probe under the configured probe timeout.
// A panicking probe counts as unhealthy.
func (s *Selector) probeOne(ctx context.Context, provider Provider) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("provider probe panicked", "provider", provider.Name(), "panic", r)
			ok = false
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()
	return provider.Probe(probeCtx)
}

func (s *Selector) bindStub(_ Constraints) (*Binding, error) {
	entry, ok := s.registry.Lookup(NullProviderName)
	if !ok {
		return nil, deckerr.New(deckerr.CodeUnavailable, "the null renderer is not registered")
	}
	provider, err := s.construct(entry)
	if err != nil {
		return nil, deckerr.Wrap(err, deckerr.CodeUnavailable, "constructing the null renderer")
	}
	return s.bind(entry, provider), nil
}

// bind wraps a freshly constructed provider instance in the resilience
// layer. Every Select call binds its own instance, so adapters that are
// single-use (one controlled external process) are never shared between
// concurrent jobs.
func (s *Selector) bind(entry Entry, provider Provider) *Binding {
	return &Binding{
		provider:      provider,
		entry:         entry,
		tracker:       s.board.Tracker(entry.Name),
		retryAttempts: s.cfg.Retry.Attempts,
		retryBase:     s.cfg.Retry.BaseDelay,
		renderTimeout: s.cfg.RenderTimeout,
		logger:        s.logger,
	}
}

func selectionFailure(exclusions []Exclusion) error {
	if len(exclusions) == 0 {
		return deckerr.New(deckerr.CodeUnavailable, "no render providers are registered")
	}

	parts := make([]string, len(exclusions))
	for i, ex := range exclusions {
		parts[i] = ex.Provider + ": " + ex.Reason
	}
	return deckerr.New(deckerr.CodeUnavailable,
		"no render provider available ("+strings.Join(parts, "; ")+")",
		deckerr.Field("candidates", exclusions))
}

func describeOutput(c Constraints) string {
	if c.Format != "" {
		return string(c.Format)
	}
	return string(c.Operation)
}

// hasInteractiveDisplay reports whether the process can show UI. Windows
// and macOS sessions are assumed interactive; elsewhere an X11 or
// Wayland display must be present.
func hasInteractiveDisplay() bool {
	switch runtime.GOOS {
	case "windows", "darwin":
		return true
	default:
		return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	}
}
