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

// Package tick implements the TickController: the deterministic
// scheduler that runs one pre/apply/post cycle per tick.
package tick

import (
	"context"
	"time"

	"github.com/kgcl-io/kgcl-core/pkg/hook"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

// RuleFunc is one production rule: it consults and mutates g directly,
// returning the number of triples it added or removed combined.
type RuleFunc func(ctx context.Context, g store.Store) (uint32, error)

// Rule pairs a RuleFunc with the IRI the receipt's rules_fired records
// it under and the priority APPLY_RULES iterates rules in (descending).
type Rule struct {
	IRI      string
	Priority int
	Fire     RuleFunc
}

// VetoFunc is a PRE_TICK hook: returning false vetoes the tick before
// any rule runs, raising PreTickVetoed.
type VetoFunc func(ctx context.Context, tickNumber uint64) (bool, error)

// RuleFiredFunc observes a rule that changed >0 triples during
// APPLY_RULES.
type RuleFiredFunc func(ctx context.Context, tickNumber uint64, rule Rule, triplesChanged uint32)

// PostTickFunc observes the completed TickResult during POST_TICK,
// before the receipt is returned.
type PostTickFunc func(ctx context.Context, result Result)

// Result is the scheduler's internal view of one tick, passed to
// PostTickFunc observers; Receipt is the value both HookReceipt
// evidence and the TickController's caller consume.
type Result struct {
	Tick            uint64
	Converged       bool
	RulesFired      []string
	TriplesAdded    uint32
	TriplesRemoved  uint32
	StateHashBefore string
	StateHashAfter  string
}

// Receipt is the tick-level receipt: every observable change
// in one tick, bundled with the condition-based knowledge hooks' own
// HookReceipts.
type Receipt struct {
	Tick            uint64
	Timestamp       time.Time
	StateHashBefore string
	StateHashAfter  string
	RulesFired      []string
	TriplesAdded    uint32
	TriplesRemoved  uint32
	Converged       bool
	HookReceipts    []hook.Receipt
}

// Rollback returns a copy of r with StateHashAfter replaced — used by
// the orchestrator when a knowledge hook's handler signals
// should_rollback and the delta is discarded after the fact:
// r.StateHashAfter becomes newStateHashAfter, which the caller has
// already verified equals r.StateHashBefore.
func (r Receipt) Rollback(newStateHashAfter string) Receipt {
	cp := r
	cp.StateHashAfter = newStateHashAfter
	cp.TriplesAdded = 0
	cp.TriplesRemoved = 0
	return cp
}

// AnyHookRequestsRollback reports whether any of r's HookReceipts
// signals should_rollback.
func (r Receipt) AnyHookRequestsRollback() bool {
	for _, hr := range r.HookReceipts {
		if hr.ShouldRollback() {
			return true
		}
	}
	return false
}
