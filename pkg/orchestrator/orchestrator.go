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

// Package orchestrator owns the graph, the TickController, the
// Lockchain, and the temporal Store, and drives them together. The
// shape is single-writer, append-after-settle: call the controller,
// then durably record what it did, never the other way around.
package orchestrator

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/lockchain"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/store"
	"github.com/kgcl-io/kgcl-core/pkg/temporal"
	"github.com/kgcl-io/kgcl-core/pkg/tick"
)

// Orchestrator is the single writer for one workflow's graph: it calls
// the TickController, detects a hook-requested rollback, and appends
// the settled receipt to both the Lockchain and the Temporal Store.
type Orchestrator struct {
	workflowID string
	graph      store.Store
	controller *tick.Controller
	chain      *lockchain.Lockchain
	events     *temporal.Store
	log        logr.Logger
}

// New constructs an Orchestrator. events may be nil: a nil Temporal
// Store disables event-log appends, useful for callers that only need
// the lockchain's audit trail.
func New(workflowID string, graph store.Store, controller *tick.Controller, chain *lockchain.Lockchain, events *temporal.Store, log logr.Logger) *Orchestrator {
	return &Orchestrator{workflowID: workflowID, graph: graph, controller: controller, chain: chain, events: events, log: log}
}

// Tick runs exactly one TickController cycle, resolves any
// should_rollback signal from the hooks it fired, and durably records
// the settled receipt. A rule-application error from ExecuteTick is
// returned unrecorded: the tick never happened from the audit trail's
// point of view, and the delta is discarded.
func (o *Orchestrator) Tick(ctx context.Context) (tick.Receipt, error) {
	preTickSnapshot, err := o.graph.Snapshot(ctx)
	if err != nil {
		return tick.Receipt{}, kgclerrors.Wrap(kgclerrors.StoreError, err, "snapshotting graph before tick")
	}

	receipt, err := o.controller.ExecuteTick(ctx, o.graph)
	if err != nil {
		return receipt, err
	}

	if receipt.AnyHookRequestsRollback() {
		if err := o.restore(ctx, preTickSnapshot); err != nil {
			return receipt, kgclerrors.Wrap(kgclerrors.StoreError, err, "restoring graph after hook-requested rollback")
		}
		o.log.Info("hook requested rollback, delta discarded", "tick", receipt.Tick)
		receipt = receipt.Rollback(receipt.StateHashBefore)
	}

	if err := o.recordReceipt(ctx, receipt); err != nil {
		return receipt, err
	}
	return receipt, nil
}

// RunToCompletion runs Tick until convergence or maxTicks, recording
// every settled receipt as it goes; a non-convergent topology still
// leaves exactly maxTicks entries in the lockchain. The first error
// halts the loop and is returned alongside
// whatever receipts were already recorded.
func (o *Orchestrator) RunToCompletion(ctx context.Context, maxTicks uint64) ([]tick.Receipt, error) {
	var receipts []tick.Receipt
	for i := uint64(0); i < maxTicks; i++ {
		receipt, err := o.Tick(ctx)
		if err != nil {
			return receipts, err
		}
		receipts = append(receipts, receipt)
		if receipt.Converged {
			return receipts, nil
		}
	}
	return receipts, kgclerrors.New(kgclerrors.NonConvergence, "orchestrator did not converge within max_ticks")
}

// VerifyChain delegates to the Lockchain's chain-integrity check,
// wrapped as the ChainBroken taxonomy error.
func (o *Orchestrator) VerifyChain() error { return o.chain.VerifyChainErr() }

// restore reverts the graph to the quads captured in snapshot.
func (o *Orchestrator) restore(ctx context.Context, snapshot []quad.Quad) error {
	current, err := o.graph.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := o.graph.Remove(ctx, current); err != nil {
		return err
	}
	return o.graph.Add(ctx, snapshot)
}

// recordReceipt appends receipt to the lockchain and, if wired, mirrors
// it into the temporal event store as one tick.completed event per hook
// receipt fired plus one for the tick itself.
func (o *Orchestrator) recordReceipt(ctx context.Context, receipt tick.Receipt) error {
	lcReceipt := toLockchainReceipt(receipt)
	if _, err := o.chain.Append(ctx, lcReceipt); err != nil {
		return err
	}

	if o.events == nil {
		return nil
	}
	now := time.Now().UTC()
	eventID, err := temporal.NewEventID()
	if err != nil {
		return err
	}
	tickEvent := temporal.WorkflowEvent{
		EventID:    eventID,
		EventType:  "tick.completed",
		Timestamp:  now,
		TickNumber: receipt.Tick,
		WorkflowID: o.workflowID,
		Payload: map[string]any{
			"rules_fired":     receipt.RulesFired,
			"converged":       receipt.Converged,
			"triples_added":   receipt.TriplesAdded,
			"triples_removed": receipt.TriplesRemoved,
		},
		VectorClock: temporal.VectorClock{o.workflowID: receipt.Tick},
	}
	if _, err := o.events.Append(ctx, tickEvent, now); err != nil {
		return err
	}

	for _, hr := range receipt.HookReceipts {
		causedBy := []string{tickEvent.EventID}
		hookEventID, err := temporal.NewEventID()
		if err != nil {
			return err
		}
		hookEvent := temporal.WorkflowEvent{
			EventID:    hookEventID,
			EventType:  "hook.fired",
			Timestamp:  now,
			TickNumber: receipt.Tick,
			WorkflowID: o.workflowID,
			Payload: map[string]any{
				"hook_id":   hr.HookID(),
				"triggered": hr.ConditionResult().Triggered,
				"error":     hr.Error(),
			},
			CausedBy:    causedBy,
			VectorClock: temporal.VectorClock{o.workflowID: receipt.Tick},
		}
		if _, err := o.events.Append(ctx, hookEvent, now); err != nil {
			return err
		}
	}
	return nil
}

// toLockchainReceipt projects a tick.Receipt into the lockchain's
// YAML-serializable Receipt.
func toLockchainReceipt(r tick.Receipt) lockchain.Receipt {
	hookReceipts := make([]lockchain.HookReceipt, len(r.HookReceipts))
	for i, hr := range r.HookReceipts {
		hookReceipts[i] = lockchain.FromHookReceipt(hr)
	}
	return lockchain.Receipt{
		Tick:            r.Tick,
		Timestamp:       r.Timestamp,
		StateHashBefore: r.StateHashBefore,
		StateHashAfter:  r.StateHashAfter,
		RulesFired:      r.RulesFired,
		TriplesAdded:    r.TriplesAdded,
		TriplesRemoved:  r.TriplesRemoved,
		Converged:       r.Converged,
		HookReceipts:    hookReceipts,
	}
}
