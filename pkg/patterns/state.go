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

package patterns

import (
	"context"
	"fmt"
	"strconv"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

// The predicate vocabulary used by the state-based and trigger
// patterns. As with pkg/kernel, these are plain IRIs written as
// quads into the graph store — pattern state lives in the graph, not
// in a struct field, so it participates in the same tick/receipt/
// lockchain machinery as everything else.
const (
	PredOutgoing       = "urn:wcp:outgoing"
	PredEnabled        = "urn:wcp:enabled"
	PredChosen         = "urn:wcp:chosen"
	PredDisabled       = "urn:wcp:disabled"
	PredDisabledReason = "urn:wcp:disabledReason"
	PredMutexActive    = "urn:wcp:mutexActive"
	PredCompleted      = "urn:wcp:completed"
	PredFired          = "urn:wcp:fired"
	PredFireCount      = "urn:wcp:fireCount"
	PredMilestoneOK    = "urn:wcp:milestoneEnabled"
	PredInstanceOf     = "urn:wcp:instanceOf"
	PredStatus         = "urn:wcp:status"
	PredCancelledAt    = "urn:wcp:cancelledAt"

	ReasonDeferredChoiceLost = "deferred_choice_lost"
	StatusCancelled          = "cancelled"
)

func boolQuad(subject, predicate string, value bool) quad.Quad {
	return quad.Quad{
		Subject:   quad.NewIRI(subject),
		Predicate: quad.NewIRI(predicate),
		Object:    quad.NewLiteral(strconv.FormatBool(value), ""),
	}
}

// EnableDeferredChoiceBranches implements WCP-16's first step: every
// outgoing branch of task is marked enabled, simultaneously. It errors
// if task has no outgoing branches.
func EnableDeferredChoiceBranches(ctx context.Context, g store.Store, task string) ([]string, error) {
	q := fmt.Sprintf(`SELECT ?branch WHERE { <%s> <%s> ?branch }`, task, PredOutgoing)
	rows, err := g.Select(ctx, q)
	if err != nil {
		return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, "querying deferred choice branches")
	}
	if len(rows) == 0 {
		return nil, kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("task %s has no outgoing branches for deferred choice", task))
	}
	var branches []string
	var additions []quad.Quad
	for _, row := range rows {
		b := row["?branch"].Value
		branches = append(branches, b)
		additions = append(additions, boolQuad(b, PredEnabled, true))
	}
	if err := g.Add(ctx, additions); err != nil {
		return nil, err
	}
	return branches, nil
}

// ResolveDeferredChoice implements WCP-16's "first event wins": winner
// must currently be enabled; every other branch of task is disabled
// atomically, recording ReasonDeferredChoiceLost.
func ResolveDeferredChoice(ctx context.Context, g store.Store, task, winner string) error {
	ok, err := g.Ask(ctx, fmt.Sprintf(`ASK { <%s> <%s> "true" }`, winner, PredEnabled))
	if err != nil {
		return err
	}
	if !ok {
		return kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("branch %s is not enabled for deferred choice", winner))
	}
	alreadyChosen, err := g.Ask(ctx, fmt.Sprintf(`ASK { <%s> <%s> "true" }`, winner, PredChosen))
	if err != nil {
		return err
	}
	if alreadyChosen {
		return kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("deferred choice at %s already resolved", task))
	}

	rows, err := g.Select(ctx, fmt.Sprintf(`SELECT ?branch WHERE { <%s> <%s> ?branch }`, task, PredOutgoing))
	if err != nil {
		return err
	}
	var additions []quad.Quad
	for _, row := range rows {
		b := row["?branch"].Value
		if b == winner {
			continue
		}
		additions = append(additions,
			boolQuad(b, PredDisabled, true),
			quad.Quad{Subject: quad.NewIRI(b), Predicate: quad.NewIRI(PredDisabledReason), Object: quad.NewLiteral(ReasonDeferredChoiceLost, "")},
		)
	}
	additions = append(additions, boolQuad(winner, PredChosen, true))
	return g.Add(ctx, additions)
}

// AcquireMutex implements WCP-17's mutual exclusion: task (which must
// belong to mutexSet) acquires the lock only if no other task in the
// set currently holds it. Returns false, not an error, when blocked.
func AcquireMutex(ctx context.Context, g store.Store, mutexSet []string, task string) (bool, error) {
	inSet := false
	for _, m := range mutexSet {
		if m == task {
			inSet = true
			break
		}
	}
	if !inSet {
		return false, kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("task %s is not in the mutex set", task))
	}
	for _, m := range mutexSet {
		active, err := g.Ask(ctx, fmt.Sprintf(`ASK { <%s> <%s> "true" }`, m, PredMutexActive))
		if err != nil {
			return false, err
		}
		if active {
			return false, nil
		}
	}
	if err := g.Add(ctx, []quad.Quad{boolQuad(task, PredMutexActive, true)}); err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseMutex implements WCP-17's lock release, marking task completed.
func ReleaseMutex(ctx context.Context, g store.Store, task string) error {
	active, err := g.Ask(ctx, fmt.Sprintf(`ASK { <%s> <%s> "true" }`, task, PredMutexActive))
	if err != nil {
		return err
	}
	if !active {
		return kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("task %s does not hold the mutex lock", task))
	}
	if err := g.Remove(ctx, []quad.Quad{boolQuad(task, PredMutexActive, true)}); err != nil {
		return err
	}
	return g.Add(ctx, []quad.Quad{boolQuad(task, PredCompleted, true)})
}

// CheckMilestone implements WCP-18: task is enabled exactly while
// condition (a SPARQL ASK query, re-evaluated every tick) holds. The
// task's milestoneEnabled quad is replaced (not merely added) so only
// the latest evaluation is ever current.
func CheckMilestone(ctx context.Context, g store.Store, task, condition string) (bool, error) {
	if condition == "" {
		return false, kgclerrors.New(kgclerrors.HookValidationError, "milestone condition cannot be empty")
	}
	holds, err := g.Ask(ctx, condition)
	if err != nil {
		return false, kgclerrors.Wrap(kgclerrors.ConditionTimeout, err, "evaluating milestone condition")
	}
	prev, err := g.Select(ctx, fmt.Sprintf(`SELECT ?v WHERE { <%s> <%s> ?v }`, task, PredMilestoneOK))
	if err != nil {
		return false, err
	}
	var removals []quad.Quad
	for _, row := range prev {
		removals = append(removals, quad.Quad{
			Subject:   quad.NewIRI(task),
			Predicate: quad.NewIRI(PredMilestoneOK),
			Object:    quad.NewLiteral(row["?v"].Value, ""),
		})
	}
	if len(removals) > 0 {
		if err := g.Remove(ctx, removals); err != nil {
			return false, err
		}
	}
	if err := g.Add(ctx, []quad.Quad{boolQuad(task, PredMilestoneOK, holds)}); err != nil {
		return false, err
	}
	return holds, nil
}

// CheckTransientTrigger implements WCP-25: the trigger fires at most
// once. It reports false without evaluating condition once the
// trigger has already fired.
func CheckTransientTrigger(ctx context.Context, g store.Store, triggerID, condition string) (bool, error) {
	fired, err := g.Ask(ctx, fmt.Sprintf(`ASK { <%s> <%s> "true" }`, triggerID, PredFired))
	if err != nil {
		return false, err
	}
	if fired {
		return false, nil
	}
	return g.Ask(ctx, condition)
}

// FireTransientTrigger marks triggerID permanently fired and records
// task as triggered by it. It errors if the trigger already fired.
func FireTransientTrigger(ctx context.Context, g store.Store, triggerID, task string) error {
	fired, err := g.Ask(ctx, fmt.Sprintf(`ASK { <%s> <%s> "true" }`, triggerID, PredFired))
	if err != nil {
		return err
	}
	if fired {
		return kgclerrors.New(kgclerrors.TransitionNotEnabled, fmt.Sprintf("transient trigger %s already fired", triggerID))
	}
	return g.Add(ctx, []quad.Quad{
		boolQuad(triggerID, PredFired, true),
		{Subject: quad.NewIRI(task), Predicate: quad.NewIRI(PredFired), Object: quad.NewLiteral(triggerID, "")},
	})
}

// CheckAndFirePersistentTrigger implements WCP-26: fires every time
// condition holds while enabled, incrementing a fire counter recorded
// in the graph. enabled selects whether the trigger currently accepts
// events (callers manage enable/disable by adding/removing this
// trigger from whatever drives the enabled argument).
func CheckAndFirePersistentTrigger(ctx context.Context, g store.Store, triggerID, condition string, enabled bool) (bool, int, error) {
	if !enabled {
		return false, currentFireCount(ctx, g, triggerID), nil
	}
	holds, err := g.Ask(ctx, condition)
	if err != nil {
		return false, 0, kgclerrors.Wrap(kgclerrors.ConditionTimeout, err, "evaluating persistent trigger condition")
	}
	if !holds {
		return false, currentFireCount(ctx, g, triggerID), nil
	}
	count := currentFireCount(ctx, g, triggerID) + 1
	if err := replaceFireCount(ctx, g, triggerID, count); err != nil {
		return false, 0, err
	}
	return true, count, nil
}

func currentFireCount(ctx context.Context, g store.Store, triggerID string) int {
	rows, err := g.Select(ctx, fmt.Sprintf(`SELECT ?n WHERE { <%s> <%s> ?n }`, triggerID, PredFireCount))
	if err != nil || len(rows) == 0 {
		return 0
	}
	n, err := strconv.Atoi(rows[0]["?n"].Value)
	if err != nil {
		return 0
	}
	return n
}

func replaceFireCount(ctx context.Context, g store.Store, triggerID string, count int) error {
	rows, err := g.Select(ctx, fmt.Sprintf(`SELECT ?n WHERE { <%s> <%s> ?n }`, triggerID, PredFireCount))
	if err != nil {
		return err
	}
	var removals []quad.Quad
	for _, row := range rows {
		removals = append(removals, quad.Quad{
			Subject:   quad.NewIRI(triggerID),
			Predicate: quad.NewIRI(PredFireCount),
			Object:    quad.NewLiteral(row["?n"].Value, ""),
		})
	}
	if len(removals) > 0 {
		if err := g.Remove(ctx, removals); err != nil {
			return err
		}
	}
	return g.Add(ctx, []quad.Quad{
		{Subject: quad.NewIRI(triggerID), Predicate: quad.NewIRI(PredFireCount), Object: quad.NewLiteral(strconv.Itoa(count), "")},
	})
}

// CancellationResult summarizes a WCP-27 multi-instance cancellation.
type CancellationResult struct {
	CancelledInstances []string
	FailedInstances    []string
	Errors             []string
}

// CancelAllInstances implements WCP-27: every instance of miTask not
// already cancelled is marked cancelled, recording cancelledAt as an
// opaque caller-supplied timestamp string (this package performs no
// wall-clock reads itself).
func CancelAllInstances(ctx context.Context, g store.Store, miTask, cancelledAt string) (CancellationResult, error) {
	rows, err := g.Select(ctx, fmt.Sprintf(`SELECT ?instance WHERE { ?instance <%s> <%s> }`, PredInstanceOf, miTask))
	if err != nil {
		return CancellationResult{}, kgclerrors.Wrap(kgclerrors.StoreError, err, "querying multi-instance task instances")
	}
	result := CancellationResult{}
	var additions []quad.Quad
	for _, row := range rows {
		instance := row["?instance"].Value
		alreadyCancelled, err := g.Ask(ctx, fmt.Sprintf(`ASK { <%s> <%s> "%s" }`, instance, PredStatus, StatusCancelled))
		if err != nil {
			result.FailedInstances = append(result.FailedInstances, instance)
			result.Errors = append(result.Errors, fmt.Sprintf("checking status of %s: %v", instance, err))
			continue
		}
		if alreadyCancelled {
			continue
		}
		additions = append(additions,
			quad.Quad{Subject: quad.NewIRI(instance), Predicate: quad.NewIRI(PredStatus), Object: quad.NewLiteral(StatusCancelled, "")},
			quad.Quad{Subject: quad.NewIRI(instance), Predicate: quad.NewIRI(PredCancelledAt), Object: quad.NewLiteral(cancelledAt, "")},
		)
		result.CancelledInstances = append(result.CancelledInstances, instance)
	}
	if len(additions) > 0 {
		if err := g.Add(ctx, additions); err != nil {
			return result, err
		}
	}
	return result, nil
}
