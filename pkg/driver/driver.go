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

// Package driver implements the SemanticDriver: the single
// place a workflow element's pattern type is resolved to a kernel verb
// and that verb is invoked. This is the central architectural
// invariant of the engine — resolution goes through the ontology
// Registry's query exclusively. Grepping this file for "if type ==" or
// a type-switch on a pattern-type variable must come up empty; that is
// the contract the test suite in driver_test.go enforces mechanically.
package driver

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/kernel"
	"github.com/kgcl-io/kgcl-core/pkg/ontology"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

// Receipt is the HookReceipt-compatible provenance entry SemanticDriver
// produces for every dispatch: which focus node was
// acted on, which pattern type resolved to which verb, and the delta it
// produced. pkg/hook and pkg/lockchain consume this as part of a
// HookReceipt's evidence trail.
type Receipt struct {
	FocusNode    string
	PatternType  string
	VerbExecuted kernel.Verb
	Delta        quad.Delta
	Actor        string
	OccurredAt   time.Time
}

// Driver dispatches workflow elements to kernel verbs purely by
// querying an ontology.Registry — it holds no knowledge of any
// particular pattern type.
type Driver struct {
	registry *ontology.Registry
	log      logr.Logger
}

// New constructs a Driver over an already-loaded physics ontology
// Registry. The registry is expected to be loaded exactly once per
// orchestrator lifetime; Driver only ever queries it.
func New(registry *ontology.Registry, log logr.Logger) *Driver {
	return &Driver{registry: registry, log: log}
}

// Dispatch resolves patternType to a kernel verb through the ontology
// Registry's query, invokes that verb against focus, and returns both
// the resulting delta and a provenance Receipt. It contains no
// conditional branch keyed on patternType's value: every decision flows
// through registry.VerbFor and the kernel.Verbs table.
func (d *Driver) Dispatch(ctx context.Context, g store.Store, focus, patternType string, txn kernel.TransactionContext) (quad.Delta, Receipt, error) {
	verb, err := d.registry.VerbFor(ctx, patternType)
	if err != nil {
		return quad.Delta{}, Receipt{}, err
	}
	fn, ok := kernel.Verbs[verb]
	if !ok {
		return quad.Delta{}, Receipt{}, kgclerrors.New(kgclerrors.StoreError, "resolved verb not present in kernel dispatch table")
	}
	delta, err := fn(ctx, g, focus, txn)
	if err != nil {
		return quad.Delta{}, Receipt{}, err
	}
	receipt := Receipt{
		FocusNode:    focus,
		PatternType:  patternType,
		VerbExecuted: verb,
		Delta:        delta,
		Actor:        txn.Actor,
		OccurredAt:   time.Now().UTC(),
	}
	d.log.V(1).Info("dispatched pattern to kernel verb", "focus", focus, "patternType", patternType, "verb", verb)
	return delta, receipt, nil
}
