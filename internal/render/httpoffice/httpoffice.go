// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

// Package httpoffice renders presentations by delegating to a remote
// HTTP conversion service. Stirling-PDF and Gotenberg are supported;
// which dialect to speak is either configured or sniffed from the
// endpoint path. The source document is streamed up and the result
// streamed back to disk, never buffering whole payloads in memory.
package httpoffice

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/deckport/deckport/internal/config"
	"github.com/deckport/deckport/internal/render"
	deckerr "github.com/deckport/deckport/pkg/errors"
)

const Name = "http_office"

const (
	pptxMIMEType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

	stirlingConvertPath = "/api/v1/convert/file/pdf"
	gotenbergPathMarker = "/forms/libreoffice/convert"
)

// Provider is safe for concurrent use: each render call carries its own
// request state and the underlying http.Client is shareable.
type Provider struct {
	cfg    config.HTTPOfficeConfig
	client *http.Client
}

var _ render.Provider = (*Provider)(nil)

// New is the render.Factory for the HTTP adapter.
func New(cfg *config.Config) (render.Provider, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.HTTPOffice.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- operator opt-out for self-signed internal services
	}

	return &Provider{
		cfg:    cfg.HTTPOffice,
		client: &http.Client{Transport: transport},
	}, nil
}

func (*Provider) Name() string { return Name }

func (p *Provider) Capabilities() render.Capability {
	return render.Capability{
		Outputs:      []render.OutputKind{render.OutputPDF},
		Headless:     render.Bool(true),
		NeedsNetwork: true,
		Vendor:       p.mode(),
	}
}

// Probe checks that an endpoint is configured and permitted, then makes
// one cheap HEAD request. Any HTTP response, even an error status, means
// the service is alive; only transport failures report unhealthy.
func (p *Provider) Probe(ctx context.Context) bool {
	endpoint, err := p.endpoint(ctx)
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

func (p *Provider) RenderDocument(ctx context.Context, job render.Job) (string, error) {
	if err := p.checkDocumentOptions(job); err != nil {
		return "", err
	}
	endpoint, err := p.endpoint(ctx)
	if err != nil {
		return "", err
	}

	source, err := os.Open(job.Source)
	if err != nil {
		return "", deckerr.Wrap(err, deckerr.CodeUnavailable, "opening source presentation",
			deckerr.FieldJobID(job.ID))
	}
	defer source.Close()

	dest := job.OutputPath
	if dest == "" {
		dest = strings.TrimSuffix(job.Source, filepath.Ext(job.Source)) + ".pdf"
	}

	resp, err := p.post(ctx, endpoint, source, filepath.Base(job.Source))
	if err != nil {
		return "", deckerr.With(err, deckerr.FieldJobID(job.ID))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", deckerr.New(deckerr.CodeBackendCrashed,
			"conversion service rejected the request",
			deckerr.Field("status", resp.StatusCode),
			deckerr.FieldJobID(job.ID))
	}

	out, err := render.NewAtomicFile(dest)
	if err != nil {
		return "", err
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Abort()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", deckerr.Wrap(err, deckerr.CodeTimeout, "streaming conversion result")
		}
		return "", deckerr.Wrap(err, deckerr.CodeBackendCrashed, "streaming conversion result")
	}
	if written == 0 {
		out.Abort()
		return "", deckerr.New(deckerr.CodeBackendCrashed,
			"conversion service returned an empty document",
			deckerr.FieldJobID(job.ID))
	}

	if err := out.Commit(); err != nil {
		return "", err
	}
	return dest, nil
}

// RenderImages is not offered by either supported conversion service.
func (*Provider) RenderImages(_ context.Context, _ render.Job) ([]string, error) {
	return nil, deckerr.New(deckerr.CodeUnsupportedOption,
		"slide image export is not supported by the http_office renderer")
}

// checkDocumentOptions rejects everything the conversion services have
// no controls for, before any upload begins.
func (p *Provider) checkDocumentOptions(job render.Job) error {
	if job.Notes && job.Handout {
		return deckerr.New(deckerr.CodeConflictingOptions,
			"notes and handout layouts cannot be combined in one export")
	}
	if job.Notes || job.Handout {
		return deckerr.New(deckerr.CodeUnsupportedOption,
			"notes and handout layouts are not supported by the http_office renderer")
	}
	if job.RangeSpec != "" || len(job.Slides) > 0 {
		return deckerr.New(deckerr.CodeUnsupportedOption,
			"slide range selection is not supported by the http_office renderer")
	}
	return nil
}

// post streams the presentation as a multipart upload without buffering
// it in memory.
func (p *Provider) post(ctx context.Context, endpoint string, source io.Reader, filename string) (*http.Response, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreatePart(fileHeader(p.fieldName(), filename))
		if err == nil {
			_, err = io.Copy(part, source)
		}
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return nil, deckerr.Wrap(err, deckerr.CodeBackendCrashed, "building upload request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range p.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, deckerr.Wrap(err, deckerr.CodeTimeout, "conversion service did not respond in time")
		}
		return nil, deckerr.Wrap(err, deckerr.CodeBackendCrashed, "connecting to conversion service",
			deckerr.FieldEndpoint(endpoint))
	}
	return resp, nil
}

// mode resolves the configured dialect; auto sniffs Gotenberg from its
// well-known conversion path, defaulting to Stirling otherwise.
func (p *Provider) mode() string {
	switch p.cfg.Mode {
	case "stirling", "gotenberg":
		return p.cfg.Mode
	}
	if u, err := url.Parse(p.cfg.Endpoint); err == nil &&
		strings.Contains(strings.ToLower(u.Path), gotenbergPathMarker) {
		return "gotenberg"
	}
	return "stirling"
}

// fieldName is the multipart form field each service expects.
func (p *Provider) fieldName() string {
	if p.mode() == "gotenberg" {
		return "files"
	}
	return "fileInput"
}

// endpoint validates and normalizes the configured endpoint. Users may
// supply a bare Stirling host; the conversion path is appended for them.
func (p *Provider) endpoint(ctx context.Context) (string, error) {
	raw := strings.TrimSpace(p.cfg.Endpoint)
	if raw == "" {
		return "", deckerr.New(deckerr.CodeUnavailable,
			"http_office.endpoint is not configured")
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", deckerr.New(deckerr.CodeUnavailable,
			"http_office.endpoint must be an http(s) URL",
			deckerr.FieldEndpoint(raw))
	}

	if err := ValidateEndpoint(ctx, raw, p.cfg.AllowPrivate); err != nil {
		return "", err
	}

	if p.mode() == "stirling" && (u.Path == "" || u.Path == "/") {
		u.Path = stirlingConvertPath
		u.RawQuery = ""
		u.Fragment = ""
	}
	return u.String(), nil
}

func fileHeader(field, filename string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		`form-data; name="`+field+`"; filename="`+escapeQuotes(filename)+`"`)
	h.Set("Content-Type", pptxMIMEType)
	return h
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
