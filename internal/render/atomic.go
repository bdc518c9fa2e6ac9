// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render

import (
	"os"
	"path/filepath"

	deckerr "github.com/deckport/deckport/pkg/errors"
)

// AtomicFile implements the write-temp-then-rename discipline adapters
// use for destination files: output lands in a temp file next to the
// destination and only becomes visible on Commit. A crashed or failed
// render leaves nothing at the caller-requested path.
type AtomicFile struct {
	f    *os.File
	dest string
	done bool
}

// NewAtomicFile creates the temp file in dest's directory, creating the
// directory first when needed.
func NewAtomicFile(dest string) (*AtomicFile, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, deckerr.Wrapf(err, deckerr.CodePermissionDenied, "creating output directory %s", dir)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return nil, deckerr.Wrap(err, deckerr.CodePermissionDenied, "creating temp output file")
	}
	return &AtomicFile{f: f, dest: dest}, nil
}

func (a *AtomicFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

// TempPath returns the temp file's location for backends that write to a
// path rather than a stream.
func (a *AtomicFile) TempPath() string {
	return a.f.Name()
}

// Commit flushes, closes, and renames the temp file into place.
func (a *AtomicFile) Commit() error {
	if a.done {
		return nil
	}
	a.done = true

	if err := a.f.Sync(); err != nil {
		a.f.Close()
		os.Remove(a.f.Name())
		return deckerr.Wrap(err, deckerr.CodePermissionDenied, "flushing output file")
	}
	if err := a.f.Close(); err != nil {
		os.Remove(a.f.Name())
		return deckerr.Wrap(err, deckerr.CodePermissionDenied, "closing output file")
	}
	if err := os.Rename(a.f.Name(), a.dest); err != nil {
		os.Remove(a.f.Name())
		return deckerr.Wrapf(err, deckerr.CodePermissionDenied, "moving output into place at %s", a.dest)
	}
	return nil
}

// Abort discards the temp file. Safe to call after Commit.
func (a *AtomicFile) Abort() {
	if a.done {
		return
	}
	a.done = true
	a.f.Close()
	os.Remove(a.f.Name())
}
