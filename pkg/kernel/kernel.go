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

// Package kernel implements the five pure verbs: transmute,
// copy, filter, await, void. Each is a pure function of
// (Graph, FocusNode, TransactionContext) -> QuadDelta. None of them
// inspects a pattern-type tag or switches on node kind — that dispatch
// belongs to pkg/driver; the kernel only knows tokens and edges.
package kernel

import (
	"context"
	"fmt"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

// TransactionContext carries per-dispatch metadata (actor, correlation
// id) that verbs may record in their delta's provenance but never
// branch on.
type TransactionContext struct {
	Actor string
}

// Transmute moves a token from focus to its single successor along a
// sequence edge. Precondition: focus has a token and at least one
// outgoing edge exists; the first (lowest-guard) successor is used.
func Transmute(ctx context.Context, g store.Store, focus string, _ TransactionContext) (quad.Delta, error) {
	has, err := HasToken(ctx, g, focus)
	if err != nil {
		return quad.Delta{}, err
	}
	if !has {
		return quad.Delta{}, kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("transmute: %s has no token", focus))
	}
	edges, err := Successors(ctx, g, focus)
	if err != nil {
		return quad.Delta{}, err
	}
	if len(edges) == 0 {
		return quad.Delta{}, kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("transmute: %s has no successor edge", focus))
	}
	return quad.Delta{
		Removals:  []quad.Quad{tokenQuad(focus)},
		Additions: []quad.Quad{tokenQuad(edges[0].Target)},
	}, nil
}

// Copy implements the AND-split (WCP-2): focus's token is removed and
// every successor receives one, in parallel.
func Copy(ctx context.Context, g store.Store, focus string, _ TransactionContext) (quad.Delta, error) {
	has, err := HasToken(ctx, g, focus)
	if err != nil {
		return quad.Delta{}, err
	}
	if !has {
		return quad.Delta{}, kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("copy: %s has no token", focus))
	}
	edges, err := Successors(ctx, g, focus)
	if err != nil {
		return quad.Delta{}, err
	}
	if len(edges) == 0 {
		return quad.Delta{}, kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("copy: %s has no outgoing edges", focus))
	}
	delta := quad.Delta{Removals: []quad.Quad{tokenQuad(focus)}}
	for _, e := range edges {
		delta.Additions = append(delta.Additions, tokenQuad(e.Target))
	}
	return delta, nil
}

// Filter implements the XOR-split (WCP-4): exactly one guarded
// successor edge that currently evaluates true is chosen; ties are
// broken by lowest guard-predicate IRI (Successors already sorts this
// way, and guards are re-checked here in that order).
func Filter(ctx context.Context, g store.Store, focus string, _ TransactionContext) (quad.Delta, error) {
	has, err := HasToken(ctx, g, focus)
	if err != nil {
		return quad.Delta{}, err
	}
	if !has {
		return quad.Delta{}, kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("filter: %s has no token", focus))
	}
	edges, err := Successors(ctx, g, focus)
	if err != nil {
		return quad.Delta{}, err
	}
	for _, e := range edges {
		if e.GuardIRI == "" {
			// Unconditional edges never win a filter's choice; they
			// are transmute/copy's concern.
			continue
		}
		ok, err := g.Ask(ctx, fmt.Sprintf(`ASK { <%s> <%s> "%s" }`, focus, e.GuardIRI, LiteralTrue))
		if err != nil {
			return quad.Delta{}, err
		}
		if ok {
			return quad.Delta{
				Removals:  []quad.Quad{tokenQuad(focus)},
				Additions: []quad.Quad{tokenQuad(e.Target)},
			}, nil
		}
	}
	return quad.Delta{}, kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("filter: no guard on %s's edges evaluates true", focus))
}

// Await implements the AND-join: focus only fires once every one of
// its predecessors holds a token, at which point all predecessor
// tokens are consumed and focus receives exactly one. When not every
// predecessor is ready, Await returns the empty delta (a no-op), as
// specified, rather than an error.
func Await(ctx context.Context, g store.Store, focus string, _ TransactionContext) (quad.Delta, error) {
	preds, err := Predecessors(ctx, g, focus)
	if err != nil {
		return quad.Delta{}, err
	}
	if len(preds) == 0 {
		return quad.Delta{}, nil
	}
	for _, p := range preds {
		has, err := HasToken(ctx, g, p)
		if err != nil {
			return quad.Delta{}, err
		}
		if !has {
			return quad.Delta{}, nil
		}
	}
	delta := quad.Delta{Additions: []quad.Quad{tokenQuad(focus)}}
	for _, p := range preds {
		delta.Removals = append(delta.Removals, tokenQuad(p))
	}
	return delta, nil
}

// Void terminates a token outright (timeout/cancel): focus's token is
// removed and nothing replaces it.
func Void(ctx context.Context, g store.Store, focus string, _ TransactionContext) (quad.Delta, error) {
	has, err := HasToken(ctx, g, focus)
	if err != nil {
		return quad.Delta{}, err
	}
	if !has {
		return quad.Delta{}, nil
	}
	return quad.Delta{Removals: []quad.Quad{tokenQuad(focus)}}, nil
}

// Verb identifies one of the five kernel verbs by name, as used by the
// physics ontology mapping.
type Verb string

const (
	VerbTransmute Verb = "transmute"
	VerbCopy      Verb = "copy"
	VerbFilter    Verb = "filter"
	VerbAwait     Verb = "await"
	VerbVoid      Verb = "void"
)

// Func is the common signature every verb implements.
type Func func(ctx context.Context, g store.Store, focus string, txn TransactionContext) (quad.Delta, error)

// Verbs maps each Verb to its implementation — the kernel's own
// dispatch table, consulted by pkg/driver rather than duplicated there.
var Verbs = map[Verb]Func{
	VerbTransmute: Transmute,
	VerbCopy:      Copy,
	VerbFilter:    Filter,
	VerbAwait:     Await,
	VerbVoid:      Void,
}
