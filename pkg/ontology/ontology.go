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

// Package ontology implements the Ontology Registry:
// the physics ontology mapping workflow pattern types to kernel verbs,
// loaded exactly once per orchestrator lifetime and then only queried.
package ontology

import (
	"context"
	"fmt"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/kernel"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

const (
	predMapsToVerb        = "https://kgcl.dev/ns/physics#mapsToVerb"
	predDispatchPriority  = "https://kgcl.dev/ns/physics#dispatchPriority"
	defaultDispatchWeight = 50
)

// Registry is the loaded physics ontology: an immutable graph the
// SemanticDriver queries (never switches on pattern type) to resolve a
// workflow pattern type IRI to a kernel verb.
type Registry struct {
	graph store.Store
}

// Load parses ttl (the restricted Turtle subset described in
// ParseTurtleSubset) into a dedicated physics graph and returns a
// Registry over it. It is meant to be called exactly once per
// orchestrator lifetime; the caller owns that lifecycle
// guarantee, not this package.
func Load(ctx context.Context, ttl string) (*Registry, error) {
	quads, err := ParseTurtleSubset(ttl)
	if err != nil {
		return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, "parsing physics ontology")
	}
	g := store.NewMemory()
	if err := g.Add(ctx, quads); err != nil {
		return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, "loading physics ontology")
	}
	return &Registry{graph: g}, nil
}

// FromStore wraps an already-populated physics graph, for callers that
// load kgc_physics.ttl through their own RDF library and only want this
// package's query/dispatch behavior.
func FromStore(g store.Store) *Registry { return &Registry{graph: g} }

// VerbFor resolves patternType to its mapped kernel verb by querying
// the physics graph — the only place pattern-type-to-verb resolution
// happens. There is deliberately no switch/if-chain here: dispatch is
// a pure function of (ontology, pattern type) reachable only through
// this query.
func (r *Registry) VerbFor(ctx context.Context, patternType string) (kernel.Verb, error) {
	q := fmt.Sprintf(`SELECT ?verb WHERE { <%s> <%s> ?verb }`, patternType, predMapsToVerb)
	rows, err := r.graph.Select(ctx, q)
	if err != nil {
		return "", kgclerrors.Wrap(kgclerrors.StoreError, err, "querying physics ontology")
	}
	if len(rows) == 0 {
		return "", kgclerrors.New(kgclerrors.StoreError, fmt.Sprintf("no kernel verb mapped for pattern type %s", patternType))
	}
	verb := kernel.Verb(rows[0]["?verb"].Value)
	if _, ok := kernel.Verbs[verb]; !ok {
		return "", kgclerrors.New(kgclerrors.StoreError, fmt.Sprintf("pattern type %s maps to unknown verb %q", patternType, verb))
	}
	return verb, nil
}

// DispatchPriority resolves patternType's dispatchPriority, defaulting
// to defaultDispatchWeight when unset.
func (r *Registry) DispatchPriority(ctx context.Context, patternType string) (int, error) {
	q := fmt.Sprintf(`SELECT ?p WHERE { <%s> <%s> ?p }`, patternType, predDispatchPriority)
	rows, err := r.graph.Select(ctx, q)
	if err != nil {
		return 0, kgclerrors.Wrap(kgclerrors.StoreError, err, "querying dispatch priority")
	}
	if len(rows) == 0 {
		return defaultDispatchWeight, nil
	}
	var n int
	if _, err := fmt.Sscanf(rows[0]["?p"].Value, "%d", &n); err != nil {
		return defaultDispatchWeight, nil
	}
	return n, nil
}

// MappingQuad constructs the `<patternType> :mapsToVerb <verb>` quad,
// used by callers building a physics graph programmatically in tests.
func MappingQuad(patternType string, verb kernel.Verb) quad.Quad {
	return quad.Quad{
		Subject:   quad.NewIRI(patternType),
		Predicate: quad.NewIRI(predMapsToVerb),
		Object:    quad.NewIRI(string(verb)),
	}
}
