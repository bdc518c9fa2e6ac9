// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package httpoffice_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/deckport/deckport/internal/config"
	"github.com/deckport/deckport/internal/render"
	"github.com/deckport/deckport/internal/render/httpoffice"
	deckerr "github.com/deckport/deckport/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProvider builds the adapter against endpoint with private addresses
// allowed, since httptest servers listen on loopback.
func newProvider(t *testing.T, endpoint string) render.Provider {
	t.Helper()
	cfg := &config.Config{
		HTTPOffice: config.HTTPOfficeConfig{
			Endpoint:     endpoint,
			Mode:         "auto",
			VerifyTLS:    true,
			AllowPrivate: true,
		},
	}
	p, err := httpoffice.New(cfg)
	require.NoError(t, err)
	return p
}

func writeSource(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "deck.pptx")
	require.NoError(t, os.WriteFile(src, []byte("pptx-bytes"), 0o644))
	return src
}

func TestRenderDocumentStreamsToDestination(t *testing.T) {
	var gotField, gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for field, headers := range r.MultipartForm.File {
			gotField = field
			gotFilename = headers[0].Filename
		}
		_, _ = w.Write([]byte("%PDF-1.7 converted"))
	}))
	defer server.Close()

	p := newProvider(t, server.URL)

	job := render.NewJob(writeSource(t))
	job.OutputPath = filepath.Join(t.TempDir(), "deck.pdf")

	path, err := p.RenderDocument(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, job.OutputPath, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 converted", string(data))

	assert.Equal(t, "fileInput", gotField, "a bare endpoint speaks the Stirling dialect")
	assert.Equal(t, "deck.pptx", gotFilename)
}

func TestRenderDocumentAppendsStirlingPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("pdf"))
	}))
	defer server.Close()

	p := newProvider(t, server.URL)

	job := render.NewJob(writeSource(t))
	job.OutputPath = filepath.Join(t.TempDir(), "deck.pdf")

	_, err := p.RenderDocument(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/convert/file/pdf", gotPath)
}

func TestGotenbergModeSniffedFromPath(t *testing.T) {
	var gotField, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for field := range r.MultipartForm.File {
			gotField = field
		}
		_, _ = w.Write([]byte("pdf"))
	}))
	defer server.Close()

	p := newProvider(t, server.URL+"/forms/libreoffice/convert")
	assert.Equal(t, "gotenberg", p.Capabilities().Vendor)

	job := render.NewJob(writeSource(t))
	job.OutputPath = filepath.Join(t.TempDir(), "deck.pdf")

	_, err := p.RenderDocument(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "files", gotField)
	assert.Equal(t, "/forms/libreoffice/convert", gotPath)
}

func TestRenderDocumentErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "conversion blew up", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := newProvider(t, server.URL)

	job := render.NewJob(writeSource(t))
	job.OutputPath = filepath.Join(t.TempDir(), "deck.pdf")

	_, err := p.RenderDocument(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, deckerr.CodeBackendCrashed, deckerr.CodeOf(err))

	_, statErr := os.Stat(job.OutputPath)
	assert.True(t, os.IsNotExist(statErr), "a failed conversion must leave nothing at the destination")
}

func TestRenderDocumentEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := newProvider(t, server.URL)

	job := render.NewJob(writeSource(t))
	job.OutputPath = filepath.Join(t.TempDir(), "deck.pdf")

	_, err := p.RenderDocument(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, deckerr.CodeBackendCrashed, deckerr.CodeOf(err))

	_, statErr := os.Stat(job.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRenderDocumentUnreachableEndpoint(t *testing.T) {
	p := newProvider(t, "http://127.0.0.1:1")

	job := render.NewJob(writeSource(t))
	job.OutputPath = filepath.Join(t.TempDir(), "deck.pdf")

	_, err := p.RenderDocument(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, deckerr.CodeBackendCrashed, deckerr.CodeOf(err))
}

func TestUnsupportedAndConflictingOptions(t *testing.T) {
	p := newProvider(t, "http://example.com")

	tests := []struct {
		name string
		mod  func(*render.Job)
		code deckerr.Code
	}{
		{"notes", func(j *render.Job) { j.Notes = true }, deckerr.CodeUnsupportedOption},
		{"handout", func(j *render.Job) { j.Handout = true }, deckerr.CodeUnsupportedOption},
		{"range", func(j *render.Job) { j.RangeSpec = "1-3" }, deckerr.CodeUnsupportedOption},
		{"slides", func(j *render.Job) { j.Slides = []int{1} }, deckerr.CodeUnsupportedOption},
		{"notes and handout", func(j *render.Job) { j.Notes = true; j.Handout = true }, deckerr.CodeConflictingOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := render.NewJob("deck.pptx")
			tt.mod(&job)
			_, err := p.RenderDocument(context.Background(), job)
			require.Error(t, err)
			assert.Equal(t, tt.code, deckerr.CodeOf(err))
		})
	}
}

func TestRenderImagesUnsupported(t *testing.T) {
	p := newProvider(t, "http://example.com")

	_, err := p.RenderImages(context.Background(), render.NewJob("deck.pptx"))
	require.Error(t, err)
	assert.Equal(t, deckerr.CodeUnsupportedOption, deckerr.CodeOf(err))
}

func TestProbe(t *testing.T) {
	t.Run("alive service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		assert.True(t, newProvider(t, server.URL).Probe(context.Background()))
	})

	t.Run("error status still means alive", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}))
		defer server.Close()

		assert.True(t, newProvider(t, server.URL).Probe(context.Background()))
	})

	t.Run("no endpoint configured", func(t *testing.T) {
		assert.False(t, newProvider(t, "").Probe(context.Background()))
	})

	t.Run("unreachable host", func(t *testing.T) {
		assert.False(t, newProvider(t, "http://127.0.0.1:1").Probe(context.Background()))
	})
}

func TestCustomHeadersForwarded(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("pdf"))
	}))
	defer server.Close()

	cfg := &config.Config{
		HTTPOffice: config.HTTPOfficeConfig{
			Endpoint:     server.URL,
			Mode:         "auto",
			AllowPrivate: true,
			Headers:      map[string]string{"Authorization": "Bearer sekrit"},
		},
	}
	p, err := httpoffice.New(cfg)
	require.NoError(t, err)

	job := render.NewJob(writeSource(t))
	job.OutputPath = filepath.Join(t.TempDir(), "deck.pdf")

	_, err = p.RenderDocument(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sekrit", gotAuth)
}

func TestCapabilities(t *testing.T) {
	p := newProvider(t, "http://example.com")
	caps := p.Capabilities()

	assert.Equal(t, []render.OutputKind{render.OutputPDF}, caps.Outputs)
	assert.True(t, caps.HeadlessCompatible())
	assert.True(t, caps.NeedsNetwork)
	assert.Empty(t, caps.Platforms, "the HTTP adapter runs anywhere")
}
