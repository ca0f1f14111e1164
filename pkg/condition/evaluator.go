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

package condition

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/itchyny/gojq"
	"github.com/sony/gobreaker"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/shacl"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

// Evaluator evaluates Conditions against a graph store, applying the
// cache and circuit-breaker wrapping described in the package doc.
type Evaluator struct {
	shaclValidator shacl.Validator
	cache          Cache
	breaker        *gobreaker.CircuitBreaker
	log            logr.Logger
}

// NewEvaluator constructs an Evaluator. cache may be nil, in which
// case no condition is ever cached regardless of CacheTTLS.
func NewEvaluator(validator shacl.Validator, cache Cache, log logr.Logger) *Evaluator {
	return &Evaluator{
		shaclValidator: validator,
		cache:          cache,
		breaker:        newBreaker("condition-evaluator", log),
		log:            log,
	}
}

// Evaluate runs cond against g, honoring cache, timeout and circuit
// breaking. A timeout exceedance surfaces as kgclerrors.ConditionTimeout
// and is never cached.
func (e *Evaluator) Evaluate(ctx context.Context, g store.Store, cond Condition, ec EvalContext) (Result, error) {
	key := CacheKey(cond, ec)
	cacheable := cond.CacheTTLS > 0 && e.cache != nil
	if cacheable {
		if cached, ok, err := e.cache.Get(ctx, key); err == nil && ok {
			return cached, nil
		} else if err != nil {
			e.log.Error(err, "condition cache get failed, evaluating live", "kind", cond.Kind)
		}
	}

	evalCtx := ctx
	var cancel context.CancelFunc
	if cond.TimeoutS > 0 {
		evalCtx, cancel = context.WithTimeout(ctx, time.Duration(cond.TimeoutS*float64(time.Second)))
		defer cancel()
	}

	raw, err := e.breaker.Execute(func() (interface{}, error) {
		return e.evalInner(evalCtx, g, cond, ec)
	})
	if err != nil {
		if evalCtx.Err() == context.DeadlineExceeded {
			return Result{}, kgclerrors.Wrap(kgclerrors.ConditionTimeout, err, "condition evaluation timed out")
		}
		return Result{}, err
	}
	result, ok := raw.(Result)
	if !ok {
		return Result{}, fmt.Errorf("condition: internal error: unexpected breaker result type %T", raw)
	}

	if cacheable {
		ttl := time.Duration(cond.CacheTTLS * float64(time.Second))
		if err := e.cache.Set(ctx, key, result, ttl); err != nil {
			e.log.Error(err, "condition cache set failed", "kind", cond.Kind)
		}
	}
	return result, nil
}

func (e *Evaluator) evalInner(ctx context.Context, g store.Store, cond Condition, ec EvalContext) (Result, error) {
	switch cond.Kind {
	case KindSparqlAsk:
		ok, err := g.Ask(ctx, cond.Query)
		if err != nil {
			return Result{}, err
		}
		return Result{Triggered: ok}, nil

	case KindSparqlSelect:
		rows, err := g.Select(ctx, cond.Query)
		if err != nil {
			return Result{}, err
		}
		minRows := cond.MinRows
		if minRows == 0 {
			minRows = 1
		}
		bindings := rows
		const maxExposedBindings = 100
		if len(bindings) > maxExposedBindings {
			bindings = bindings[:maxExposedBindings]
		}
		return Result{Triggered: len(rows) >= minRows, ResultCount: len(rows), Bindings: bindings}, nil

	case KindShacl:
		if e.shaclValidator == nil {
			return Result{}, fmt.Errorf("condition: shacl variant requires a validator")
		}
		quads, err := g.Snapshot(ctx)
		if err != nil {
			return Result{}, err
		}
		report, err := e.shaclValidator.Validate(ctx, quads, cond.ShapesTTL)
		if err != nil {
			return Result{}, err
		}
		return Result{Triggered: report.Conforms, Metadata: map[string]any{"violations": report.Violations}}, nil

	case KindDelta:
		return Result{Triggered: evalDelta(cond.DeltaMode, ec.Previous, ec.Current)}, nil

	case KindThreshold:
		val, err := extractScalar(ec.ContextJSON, cond.Variable)
		if err != nil {
			return Result{}, err
		}
		return Result{Triggered: compare(cond.Op, val, cond.Threshold), Metadata: map[string]any{"value": val}}, nil

	case KindWindow:
		agg := windowAggregate(cond.WindowAggregate, ec.Samples, ec.Now, cond.WindowSeconds)
		return Result{Triggered: compare(cond.Op, agg, cond.Threshold), Metadata: map[string]any{"aggregate": agg}}, nil

	case KindComposite:
		return e.evalComposite(ctx, g, cond, ec)

	default:
		return Result{}, fmt.Errorf("condition: unknown kind %q", cond.Kind)
	}
}

// evalComposite evaluates child conditions depth-first with
// short-circuit. Children route back through Evaluate,
// not evalInner, so each child's own cache/timeout settings still apply.
func (e *Evaluator) evalComposite(ctx context.Context, g store.Store, cond Condition, ec EvalContext) (Result, error) {
	switch cond.CompositeOp {
	case CompositeNot:
		if len(cond.Children) != 1 {
			return Result{}, fmt.Errorf("condition: composite NOT requires exactly one child, got %d", len(cond.Children))
		}
		child, err := e.Evaluate(ctx, g, cond.Children[0], ec)
		if err != nil {
			return Result{}, err
		}
		return Result{Triggered: !child.Triggered}, nil

	case CompositeAnd:
		for _, child := range cond.Children {
			res, err := e.Evaluate(ctx, g, child, ec)
			if err != nil {
				return Result{}, err
			}
			if !res.Triggered {
				return Result{Triggered: false}, nil
			}
		}
		return Result{Triggered: true}, nil

	case CompositeOr:
		for _, child := range cond.Children {
			res, err := e.Evaluate(ctx, g, child, ec)
			if err != nil {
				return Result{}, err
			}
			if res.Triggered {
				return Result{Triggered: true}, nil
			}
		}
		return Result{Triggered: false}, nil

	default:
		return Result{}, fmt.Errorf("condition: unknown composite op %q", cond.CompositeOp)
	}
}

func evalDelta(mode DeltaMode, prev, cur float64) bool {
	switch mode {
	case DeltaIncrease:
		return cur > prev
	case DeltaDecrease:
		return cur < prev
	default:
		return cur != prev
	}
}

func compare(op string, val, threshold float64) bool {
	switch op {
	case "gt":
		return val > threshold
	case "gte":
		return val >= threshold
	case "lt":
		return val < threshold
	case "lte":
		return val <= threshold
	case "eq":
		return val == threshold
	case "ne":
		return val != threshold
	default:
		return false
	}
}

func windowAggregate(agg string, samples []Sample, now, windowSeconds float64) float64 {
	cutoff := now - windowSeconds
	var vals []float64
	for _, s := range samples {
		if s.Timestamp >= cutoff {
			vals = append(vals, s.Value)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	switch agg {
	case "max":
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case "min":
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case "sum":
		var s float64
		for _, v := range vals {
			s += v
		}
		return s
	case "count":
		return float64(len(vals))
	default: // "avg"
		var s float64
		for _, v := range vals {
			s += v
		}
		return s / float64(len(vals))
	}
}

// extractScalar resolves a Threshold/Window condition's Variable, a
// gojq path expression, against the JSON evaluation context, so a
// Threshold can reach into nested metrics payloads
// (e.g. ".metrics.cpu_usage_percent").
func extractScalar(contextJSON []byte, jqExpr string) (float64, error) {
	query, err := gojq.Parse(jqExpr)
	if err != nil {
		return 0, fmt.Errorf("condition: invalid variable expression %q: %w", jqExpr, err)
	}
	var input any
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &input); err != nil {
			return 0, fmt.Errorf("condition: invalid evaluation context json: %w", err)
		}
	}
	iter := query.Run(input)
	v, ok := iter.Next()
	if !ok {
		return 0, fmt.Errorf("condition: variable expression %q produced no result", jqExpr)
	}
	if err, ok := v.(error); ok {
		return 0, fmt.Errorf("condition: variable expression %q: %w", jqExpr, err)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("condition: variable expression %q did not produce a number, got %T", jqExpr, v)
	}
}
