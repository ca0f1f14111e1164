/*
Copyright 2025 The KGCL Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package store defines the RDF Graph Store boundary:
// an opaque quad store the core consumes through this interface only.
// Turtle/N3 parsing and full SPARQL are out of scope here;
// Store.Ask/Select accept query strings verbatim and pass them to
// whatever engine is wired in. This package also ships an in-memory
// reference implementation (pkg/store.Memory) with a restricted
// triple-pattern query subset, purely so the rest of the core is
// runnable end-to-end without an external dependency — production
// deployments are expected to supply their own Store.
package store

import (
	"context"

	"github.com/kgcl-io/kgcl-core/pkg/quad"
)

// Binding is one row of a SPARQL SELECT result: variable name -> term.
type Binding map[string]quad.Term

// Store is the external RDF graph collaborator the core consumes.
type Store interface {
	// Add applies additions atomically; duplicates are no-ops.
	Add(ctx context.Context, quads []quad.Quad) error
	// Remove applies removals atomically; missing quads are no-ops.
	Remove(ctx context.Context, quads []quad.Quad) error
	// Apply is Remove(removals) then Add(additions), as one unit.
	Apply(ctx context.Context, delta quad.Delta) error
	// Ask evaluates a SPARQL ASK query (or equivalent) against the store.
	Ask(ctx context.Context, query string) (bool, error)
	// Select evaluates a SPARQL SELECT query, returning bindings.
	Select(ctx context.Context, query string) ([]Binding, error)
	// Snapshot returns every quad currently in the store. Callers must
	// not mutate the returned slice.
	Snapshot(ctx context.Context) ([]quad.Quad, error)
	// Hash returns the current StateHash of the store.
	Hash(ctx context.Context) (string, error)
	// Len returns the number of quads currently stored.
	Len(ctx context.Context) (int, error)
}
