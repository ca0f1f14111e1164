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

// Package condition implements the Condition Evaluator:
// SparqlAsk, SparqlSelect, Shacl, Delta, Threshold, Window and
// Composite conditions, each a single evaluable unit with its own
// timeout and cache TTL. Evaluation is wrapped in a gobreaker
// circuit breaker around suspending external calls and cached through
// a Redis-backed, TTL-bounded cache.
package condition

import "github.com/kgcl-io/kgcl-core/pkg/store"

// Kind discriminates the seven condition variants.
type Kind string

const (
	KindSparqlAsk    Kind = "sparql_ask"
	KindSparqlSelect Kind = "sparql_select"
	KindShacl        Kind = "shacl"
	KindDelta        Kind = "delta"
	KindThreshold    Kind = "threshold"
	KindWindow       Kind = "window"
	KindComposite    Kind = "composite"
)

// DeltaMode selects which direction of change a Delta condition fires on.
type DeltaMode string

const (
	DeltaAny      DeltaMode = "any"
	DeltaIncrease DeltaMode = "increase"
	DeltaDecrease DeltaMode = "decrease"
)

// CompositeOp combines child conditions with short-circuit evaluation.
type CompositeOp string

const (
	CompositeAnd CompositeOp = "and"
	CompositeOr  CompositeOp = "or"
	CompositeNot CompositeOp = "not"
)

// Condition is a tagged union over the seven variants: Kind selects
// which fields below are meaningful (a Type discriminant plus a flat
// field set, not a class hierarchy).
type Condition struct {
	Kind Kind

	// SparqlAsk / SparqlSelect
	Query   string
	MinRows int

	// Shacl
	ShapesTTL string

	// Delta / Threshold: Variable is a gojq path expression evaluated
	// against EvalContext.ContextJSON.
	Variable  string
	DeltaMode DeltaMode

	// Threshold / Window
	Op              string // "gt", "gte", "lt", "lte", "eq", "ne"
	Threshold       float64
	WindowSeconds   float64
	WindowAggregate string // "avg" (default), "max", "min", "sum", "count"

	// Composite
	CompositeOp CompositeOp
	Children    []Condition

	// Suspension points: a non-positive TimeoutS means no
	// deadline is imposed beyond the caller's context.
	TimeoutS  float64
	CacheTTLS float64
}

// Sample is one (timestamp, value) observation fed to a Window condition.
type Sample struct {
	Timestamp float64
	Value     float64
}

// EvalContext carries everything a Condition needs beyond the graph
// store itself. Now is supplied by the caller rather than read from
// the wall clock, so this package stays a pure function of its inputs
// (the same discipline pkg/patterns.CancelAllInstances follows).
type EvalContext struct {
	ContextJSON []byte
	Previous    float64
	Current     float64
	Samples     []Sample
	Now         float64
}

// Result is a condition's verdict: Triggered is the single boolean the
// Hook Executor and TickController act on; ResultCount/Bindings/Metadata
// carry variant-specific detail (row count for SparqlSelect, violations
// for Shacl, the computed scalar for Threshold/Window).
type Result struct {
	Triggered   bool
	ResultCount int
	Bindings    []store.Binding
	Metadata    map[string]any
}
