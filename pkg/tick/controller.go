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

package tick

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kgcl-io/kgcl-core/pkg/condition"
	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/hook"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/store"
	"github.com/kgcl-io/kgcl-core/pkg/telemetry"
)

var tracer = telemetry.Tracer()

// Controller is the deterministic scheduler. It holds no graph of its
// own — g is supplied per call, and the controller has exclusive write
// access for the duration of a tick, never parallel.
type Controller struct {
	rules    []Rule
	registry *hook.Registry
	executor *hook.Executor

	vetoHooks      []VetoFunc
	ruleFiredHooks []RuleFiredFunc
	postTickHooks  []PostTickFunc

	tickCount uint64
	log       logr.Logger
	metrics   Metrics
}

// New constructs a Controller over rules and the condition-based
// knowledge hook registry/executor it dispatches during POST_TICK.
func New(rules []Rule, registry *hook.Registry, executor *hook.Executor, log logr.Logger, metrics Metrics) *Controller {
	sorted := append([]Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })
	return &Controller{rules: sorted, registry: registry, executor: executor, log: log, metrics: metrics}
}

// OnPreTick registers a PRE_TICK veto hook.
func (c *Controller) OnPreTick(fn VetoFunc) { c.vetoHooks = append(c.vetoHooks, fn) }

// OnRuleFired registers an APPLY_RULES observer.
func (c *Controller) OnRuleFired(fn RuleFiredFunc) { c.ruleFiredHooks = append(c.ruleFiredHooks, fn) }

// OnPostTick registers a POST_TICK observer.
func (c *Controller) OnPostTick(fn PostTickFunc) { c.postTickHooks = append(c.postTickHooks, fn) }

// TickCount is the number of ticks executed so far.
func (c *Controller) TickCount() uint64 { return c.tickCount }

// ExecuteTick runs one pre/apply/post cycle against g. A
// veto returns PreTickVetoed with no tick counted. A rule error halts
// the tick: the returned Receipt reflects StateHashAfter ==
// StateHashBefore and the error is
// also returned so the caller (normally the Orchestrator) can decide
// whether to halt run_to_completion.
func (c *Controller) ExecuteTick(ctx context.Context, g store.Store) (Receipt, error) {
	ctx, span := tracer.Start(ctx, "tick.ExecuteTick", trace.WithAttributes(attribute.Int64("tick.number", int64(c.tickCount))))
	defer span.End()

	tickNumber := c.tickCount
	stateBefore, err := g.Hash(ctx)
	if err != nil {
		return Receipt{}, kgclerrors.Wrap(kgclerrors.StoreError, err, "computing state_hash_before")
	}

	for _, veto := range c.vetoHooks {
		ok, err := veto(ctx, tickNumber)
		if err != nil {
			return Receipt{}, kgclerrors.Wrap(kgclerrors.StoreError, err, "pre-tick veto hook failed")
		}
		if !ok {
			return Receipt{}, kgclerrors.New(kgclerrors.PreTickVetoed, "a pre-tick hook vetoed this tick")
		}
	}

	snapshot, err := g.Snapshot(ctx)
	if err != nil {
		return Receipt{}, kgclerrors.Wrap(kgclerrors.StoreError, err, "snapshotting store before rule application")
	}

	var rulesFired []string
	var added, removed uint32
	for _, rule := range c.rules {
		n, fireErr := rule.Fire(ctx, g)
		if fireErr != nil {
			if restoreErr := restore(ctx, g, snapshot); restoreErr != nil {
				c.log.Error(restoreErr, "failed to restore store after rule error", "rule", rule.IRI)
			}
			receipt := c.buildReceipt(tickNumber, stateBefore, stateBefore, rulesFired, added, removed, false, nil)
			return receipt, kgclerrors.Wrap(kgclerrors.StoreError, fireErr, "rule "+rule.IRI+" failed")
		}
		if n > 0 {
			rulesFired = append(rulesFired, rule.IRI)
			added += n
			for _, rf := range c.ruleFiredHooks {
				rf(ctx, tickNumber, rule, n)
			}
		}
	}
	converged := len(rulesFired) == 0

	stateAfter, err := g.Hash(ctx)
	if err != nil {
		return Receipt{}, kgclerrors.Wrap(kgclerrors.StoreError, err, "computing state_hash_after")
	}

	hookReceipts := c.runKnowledgeHooks(ctx, g)

	receipt := c.buildReceipt(tickNumber, stateBefore, stateAfter, rulesFired, added, removed, converged, hookReceipts)

	result := Result{
		Tick: tickNumber, Converged: converged, RulesFired: rulesFired,
		TriplesAdded: added, TriplesRemoved: removed,
		StateHashBefore: stateBefore, StateHashAfter: stateAfter,
	}
	for _, pt := range c.postTickHooks {
		pt(ctx, result)
	}
	if c.metrics != nil {
		c.metrics.ObserveTick(converged, len(rulesFired), len(hookReceipts))
	}
	telemetry.RecordTick(ctx, converged)
	c.tickCount++
	return receipt, nil
}

// runKnowledgeHooks dispatches every enabled registered Hook through
// the Executor, in priority order, producing one HookReceipt each.
func (c *Controller) runKnowledgeHooks(ctx context.Context, g store.Store) []hook.Receipt {
	if c.registry == nil || c.executor == nil {
		return nil
	}
	input := map[string]any{"tick": c.tickCount}
	contextJSON, err := json.Marshal(input)
	if err != nil {
		c.log.Error(err, "marshaling hook evaluation context")
		contextJSON = nil
	}
	ec := condition.EvalContext{Now: float64(time.Now().UTC().Unix()), ContextJSON: contextJSON}
	var receipts []hook.Receipt
	for _, h := range c.registry.Ordered() {
		receipt, err := c.executor.Execute(ctx, g, h, ec, input)
		if err != nil {
			c.log.Error(err, "hook execution failed unexpectedly", "hook", h.Name())
			continue
		}
		receipts = append(receipts, receipt)
	}
	return receipts
}

func (c *Controller) buildReceipt(tick uint64, before, after string, rulesFired []string, added, removed uint32, converged bool, hookReceipts []hook.Receipt) Receipt {
	return Receipt{
		Tick:            tick,
		Timestamp:       time.Now().UTC(),
		StateHashBefore: before,
		StateHashAfter:  after,
		RulesFired:      rulesFired,
		TriplesAdded:    added,
		TriplesRemoved:  removed,
		Converged:       converged,
		HookReceipts:    hookReceipts,
	}
}

func restore(ctx context.Context, g store.Store, snapshot []quad.Quad) error {
	current, err := g.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := g.Remove(ctx, current); err != nil {
		return err
	}
	return g.Add(ctx, snapshot)
}

// RunToCompletion runs ticks until convergence or maxTicks is reached,
// returning every receipt produced. Hitting maxTicks
// without convergence raises NonConvergence with the receipts
// collected so far still returned alongside it.
func (c *Controller) RunToCompletion(ctx context.Context, g store.Store, maxTicks uint64) ([]Receipt, error) {
	var receipts []Receipt
	for i := uint64(0); i < maxTicks; i++ {
		receipt, err := c.ExecuteTick(ctx, g)
		if err != nil {
			return receipts, err
		}
		receipts = append(receipts, receipt)
		if receipt.Converged {
			return receipts, nil
		}
	}
	return receipts, kgclerrors.New(kgclerrors.NonConvergence, "tick controller did not converge within max_ticks")
}

// Metrics receives per-tick observability events, wired to Prometheus
// by pkg/metrics.
type Metrics interface {
	ObserveTick(converged bool, rulesFiredCount, hookReceiptsCount int)
}
