// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package render

import (
	"regexp"
	"sync"

	deckerr "github.com/deckport/deckport/pkg/errors"
)

// NullProviderName is the reserved name of the stub provider that always
// reports unavailable. It doubles as the explicit opt-out value a user
// can configure.
const NullProviderName = "null"

// Provider names follow vendor[_flavor]: lowercase, digits, single
// underscores.
var nameRe = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// Entry associates a globally unique provider name with the factory that
// constructs it, and records which source (built-in or a plugin) supplied
// the registration so collisions can name both sides.
type Entry struct {
	Name    string
	Source  string
	Factory Factory
}

// Registry is the owned, internally synchronized name→factory mapping.
// It is constructed once at process start; entries live until exit.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an entry. A duplicate name is a configuration error
// identifying both registration sources; the existing entry is never
// silently overwritten.
func (r *Registry) Register(e Entry) error {
	if !nameRe.MatchString(e.Name) {
		return deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
			"provider name %q does not match vendor[_flavor]", e.Name)
	}
	if e.Factory == nil {
		return deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
			"provider %q registered without a factory", e.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[e.Name]; ok {
		return deckerr.New(deckerr.CodeRegistryDuplicateName,
			"provider name registered twice",
			deckerr.FieldProvider(e.Name),
			deckerr.Field("first_source", existing.Source),
			deckerr.Field("second_source", e.Source),
		)
	}

	r.entries[e.Name] = e
	r.order = append(r.order, e.Name)
	return nil
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e, ok
}

// Entries returns all entries in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// Names returns registered provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
