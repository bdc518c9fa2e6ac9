// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

// Package msoffice renders presentations with a locally installed
// Microsoft PowerPoint, driven over its COM automation surface through a
// short-lived PowerShell bridge process. Windows only; PowerPoint's
// automation model is single-threaded, so the adapter serializes all
// render calls internally.
package msoffice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/deckport/deckport/internal/config"
	"github.com/deckport/deckport/internal/render"
	deckerr "github.com/deckport/deckport/pkg/errors"
)

const Name = "ms_office"

// PpPrintOutputType values for ExportAsFixedFormat.
const (
	outputSlides   = 1
	outputHandouts = 4 // six slides per page
	outputNotes    = 5
)

const defaultDPI = 96

type Provider struct {
	shell string
	goos  string

	// PowerPoint automation tolerates one driver at a time.
	mu sync.Mutex
}

var _ render.Provider = (*Provider)(nil)

// New is the render.Factory for the local automation adapter.
func New(cfg *config.Config) (render.Provider, error) {
	shell := cfg.MSOffice.PowerShell
	if shell == "" {
		shell = "powershell"
	}
	return &Provider{shell: shell, goos: runtime.GOOS}, nil
}

func (*Provider) Name() string { return Name }

func (*Provider) Capabilities() render.Capability {
	return render.Capability{
		Platforms: []string{"windows"},
		Outputs: []render.OutputKind{
			render.OutputPDF, render.OutputPNG, render.OutputJPEG, render.OutputTIFF,
		},
		NeedsUI:         render.Bool(true),
		Vendor:          "microsoft",
		SupportsNotes:   true,
		SupportsHandout: true,
		SupportsRanges:  true,
	}
}

// Probe reports whether the PowerPoint COM class is registered. It reads
// the registry through the bridge rather than instantiating the
// application, which keeps the check cheap and side-effect free.
func (p *Provider) Probe(ctx context.Context) bool {
	if p.goos != "windows" {
		return false
	}
	if _, err := exec.LookPath(p.shell); err != nil {
		return false
	}
	out, err := p.run(ctx, probeScript)
	return err == nil && strings.Contains(out, "True")
}

func (p *Provider) RenderDocument(ctx context.Context, job render.Job) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if job.Notes && job.Handout {
		return "", deckerr.New(deckerr.CodeConflictingOptions,
			"notes and handout layouts cannot be combined in one export",
			deckerr.FieldJobID(job.ID))
	}

	source, err := filepath.Abs(job.Source)
	if err != nil {
		return "", deckerr.Wrap(err, deckerr.CodeUnsupportedOption, "resolving source path")
	}

	keep, err := p.documentSelection(ctx, source, job)
	if err != nil {
		return "", err
	}

	dest := job.OutputPath
	if dest == "" {
		dest = strings.TrimSuffix(source, filepath.Ext(source)) + ".pdf"
	}

	out, err := render.NewAtomicFile(dest)
	if err != nil {
		return "", err
	}
	tempDest, err := filepath.Abs(out.TempPath())
	if err != nil {
		out.Abort()
		return "", deckerr.Wrap(err, deckerr.CodePermissionDenied, "resolving output path")
	}

	outputType := outputSlides
	switch {
	case job.Notes:
		outputType = outputNotes
	case job.Handout:
		outputType = outputHandouts
	}

	_, err = p.run(ctx, exportPDFScript,
		"-Source", source,
		"-Dest", tempDest,
		"-OutputType", strconv.Itoa(outputType),
		"-Keep", joinInts(keep, ","),
	)
	if err != nil {
		out.Abort()
		return "", deckerr.With(err, deckerr.FieldJobID(job.ID))
	}

	if err := out.Commit(); err != nil {
		return "", err
	}
	return dest, nil
}

func (p *Provider) RenderImages(ctx context.Context, job render.Job) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	source, err := filepath.Abs(job.Source)
	if err != nil {
		return nil, deckerr.Wrap(err, deckerr.CodeUnsupportedOption, "resolving source path")
	}

	total, err := p.slideCount(ctx, source)
	if err != nil {
		return nil, deckerr.With(err, deckerr.FieldJobID(job.ID))
	}

	selection, err := imageSelection(job, total)
	if err != nil {
		return nil, err
	}

	outDir := job.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, deckerr.Wrapf(err, deckerr.CodePermissionDenied, "creating output directory %s", outDir)
	}

	// Slides are exported into a scratch directory first and renamed into
	// place together, so a failed run leaves nothing at the final names.
	scratch, err := os.MkdirTemp(outDir, ".export-*")
	if err != nil {
		return nil, deckerr.Wrap(err, deckerr.CodePermissionDenied, "creating scratch directory")
	}
	defer os.RemoveAll(scratch)

	stem := job.SourceStem()
	format := job.ImageFormat()
	names := make([]string, len(selection))
	plan := make([]string, len(selection))
	for i, idx := range selection {
		names[i] = render.SlideImageName(stem, idx, total, format)
		plan[i] = fmt.Sprintf("%d=%s", idx, names[i])
	}

	dpi := job.DPI
	if dpi == 0 {
		dpi = defaultDPI
	}

	_, err = p.run(ctx, exportImagesScript,
		"-Source", source,
		"-OutDir", scratch,
		"-Filter", exportFilter(format),
		"-Dpi", strconv.Itoa(dpi),
		"-Plan", strings.Join(plan, "|"),
	)
	if err != nil {
		return nil, deckerr.With(err, deckerr.FieldJobID(job.ID))
	}

	return publishImages(scratch, outDir, names, selection)
}

// publishImages moves exported slides from the scratch directory to
// their final names. A missing slide unwinds the moves already made, so
// the output directory ends up with every requested image or none.
func publishImages(scratch, outDir string, names []string, selection []int) ([]string, error) {
	paths := make([]string, 0, len(names))
	for i, name := range names {
		final := filepath.Join(outDir, name)
		if err := os.Rename(filepath.Join(scratch, name), final); err != nil {
			for _, published := range paths {
				os.Remove(published)
			}
			return nil, deckerr.Wrapf(err, deckerr.CodeBackendCrashed,
				"slide %d was not produced by the exporter", selection[i])
		}
		paths = append(paths, final)
	}
	return paths, nil
}

// documentSelection resolves the job's slide filter to explicit 1-based
// indices, counting slides only when a filter is present. Nil means the
// whole deck.
func (p *Provider) documentSelection(ctx context.Context, source string, job render.Job) ([]int, error) {
	if job.RangeSpec == "" && len(job.Slides) == 0 {
		return nil, nil
	}

	total, err := p.slideCount(ctx, source)
	if err != nil {
		return nil, deckerr.With(err, deckerr.FieldJobID(job.ID))
	}
	if job.RangeSpec != "" {
		return render.ParseRangeSpec(job.RangeSpec, total)
	}
	return render.SelectSlides(job.Slides, total)
}

func imageSelection(job render.Job, total int) ([]int, error) {
	switch {
	case len(job.Slides) > 0:
		return render.SelectSlides(job.Slides, total)
	case job.RangeSpec != "":
		return render.ParseRangeSpec(job.RangeSpec, total)
	default:
		all := make([]int, total)
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}
}

func (p *Provider) slideCount(ctx context.Context, source string) (int, error) {
	out, err := p.run(ctx, countScript, "-Source", source)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(out))
	if convErr != nil || n < 0 {
		return 0, deckerr.Errorf(deckerr.CodeBackendCrashed,
			"unexpected slide count output %q", strings.TrimSpace(out))
	}
	return n, nil
}

// run writes script to a temp file and executes it through the bridge,
// returning combined output. The context deadline kills the bridge
// process, and with it the automation session.
func (p *Provider) run(ctx context.Context, script string, args ...string) (string, error) {
	f, err := os.CreateTemp("", "deckport-*.ps1")
	if err != nil {
		return "", deckerr.Wrap(err, deckerr.CodeUnavailable, "staging automation script")
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(script); err != nil {
		f.Close()
		return "", deckerr.Wrap(err, deckerr.CodeUnavailable, "staging automation script")
	}
	if err := f.Close(); err != nil {
		return "", deckerr.Wrap(err, deckerr.CodeUnavailable, "staging automation script")
	}

	argv := append([]string{
		"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-File", f.Name(),
	}, args...)
	out, err := exec.CommandContext(ctx, p.shell, argv...).CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", deckerr.Wrap(err, deckerr.CodeTimeout, "automation bridge exceeded its deadline")
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", deckerr.Wrap(err, deckerr.CodeTimeout, "automation bridge cancelled")
		}
		return "", deckerr.Wrap(err, deckerr.CodeBackendCrashed,
			"automation bridge failed",
			deckerr.Field("detail", excerpt(out)))
	}
	return string(out), nil
}

func exportFilter(format render.OutputKind) string {
	switch format {
	case render.OutputPNG:
		return "PNG"
	case render.OutputTIFF:
		return "TIF"
	default:
		return "JPG"
	}
}

func joinInts(xs []int, sep string) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, sep)
}

// excerpt keeps diagnostic fields bounded when the bridge dumps a long
// COM stack trace.
func excerpt(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}
