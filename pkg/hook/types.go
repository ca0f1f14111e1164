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

// Package hook implements knowledge hooks and the Hook Executor:
// validate -> evaluate condition -> run handler -> produce receipt,
// with a frozen-value Receipt and a mutable Hook state machine.
package hook

import (
	"context"
	"sync"
	"time"

	"github.com/kgcl-io/kgcl-core/pkg/condition"
)

// State is one point in a Hook's lifecycle.
type State string

const (
	StatePending   State = "Pending"
	StateActive    State = "Active"
	StateExecuted  State = "Executed"
	StateCompleted State = "Completed"
	StateFailed    State = "Failed"
)

// Handler is the effect a hook runs once its condition triggers. It
// receives a context carrying the hook's own timeout deadline — a
// handler that suspends (network calls, store queries) must thread it
// through so a HandlerTimeout cancels the underlying work rather than
// abandoning it — plus the evaluation context the condition saw and
// the condition's result metadata, and returns an arbitrary result
// map.
type Handler func(ctx context.Context, hctx Context) (map[string]any, error)

// Context is what a Handler (and a hook's lifecycle subscribers) see.
type Context struct {
	HookName  string
	Actor     string
	Condition condition.Result
	Input     map[string]any
}

// Spec is the registration-time description of a hook, validated by
// go-playground/validator before a Hook is constructed from it.
type Spec struct {
	Name        string              `validate:"required"`
	Description string
	Priority    int                 `validate:"gte=0,lte=100"`
	TimeoutS    float64             `validate:"gte=0"`
	Enabled     bool
	Actor       string
	Metadata    map[string]any
	Condition   condition.Condition `validate:"required"`
	Handler     Handler             `validate:"required"`
}

// Hook is a registered knowledge hook. Unlike HookReceipt, Hook is a
// mutable, shared-across-ticks object: Enable/Disable and the
// internal state transition are guarded by its own mutex.
type Hook struct {
	mu sync.Mutex

	name        string
	description string
	priority    int
	timeoutS    float64
	enabled     bool
	actor       string
	metadata    map[string]any
	condition   condition.Condition
	handler     Handler

	state      State
	createdAt  time.Time
	executedAt *time.Time
}

func newHook(spec Spec, now time.Time) *Hook {
	return &Hook{
		name:        spec.Name,
		description: spec.Description,
		priority:    spec.Priority,
		timeoutS:    spec.TimeoutS,
		enabled:     spec.Enabled,
		actor:       spec.Actor,
		metadata:    spec.Metadata,
		condition:   spec.Condition,
		handler:     spec.Handler,
		state:       StatePending,
		createdAt:   now,
	}
}

// Name is the hook's unique registration name.
func (h *Hook) Name() string { return h.name }

// Priority is the hook's dispatch priority in [0, 100]; higher runs
// first.
func (h *Hook) Priority() int { return h.priority }

// TimeoutS is the hook's own timeout, applied to its condition
// evaluation and its handler invocation independently.
func (h *Hook) TimeoutS() float64 { return h.timeoutS }

// Enabled reports whether the hook currently participates in dispatch.
func (h *Hook) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// Enable flips the hook to participate in future dispatch.
func (h *Hook) Enable() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = true
}

// Disable flips the hook out of future dispatch without altering its
// current lifecycle State.
func (h *Hook) Disable() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = false
}

// State returns the hook's current lifecycle state.
func (h *Hook) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Hook) transition(to State, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = to
	if to == StateExecuted {
		t := at
		h.executedAt = &t
	}
}

// ExecutedAt reports when the hook last entered StateExecuted, if ever.
func (h *Hook) ExecutedAt() (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.executedAt == nil {
		return time.Time{}, false
	}
	return *h.executedAt, true
}

// CreatedAt is the hook's registration time.
func (h *Hook) CreatedAt() time.Time { return h.createdAt }

// Receipt is the immutable, accessor-only evidence HookExecutor emits
// per hook dispatch. handlerResult is replaced with a
// truncation marker once its serialized size exceeds maxSizeBytes.
type Receipt struct {
	receiptID          string
	hookID             string
	timestamp          time.Time
	actor              string
	conditionResult    condition.Result
	handlerResult      map[string]any
	handlerResultBytes int
	durationMS         int64
	err                string
	stackTrace         string
	memoryDeltaBytes   int64
	inputContext       map[string]any
	truncated          bool
	merkleAnchor       *string
}

func (r Receipt) ReceiptID() string                { return r.receiptID }
func (r Receipt) HookID() string                   { return r.hookID }
func (r Receipt) Timestamp() time.Time             { return r.timestamp }
func (r Receipt) Actor() string                    { return r.actor }
func (r Receipt) ConditionResult() condition.Result { return r.conditionResult }
func (r Receipt) HandlerResult() (map[string]any, bool) {
	if r.truncated {
		return map[string]any{"truncated": true, "size": r.handlerResultBytes}, true
	}
	return r.handlerResult, r.handlerResult != nil
}
func (r Receipt) DurationMS() int64            { return r.durationMS }
func (r Receipt) Error() string                { return r.err }
func (r Receipt) StackTrace() string           { return r.stackTrace }
func (r Receipt) MemoryDeltaBytes() int64      { return r.memoryDeltaBytes }
func (r Receipt) InputContext() map[string]any { return r.inputContext }
func (r Receipt) Truncated() bool              { return r.truncated }
func (r Receipt) MerkleAnchor() (string, bool) {
	if r.merkleAnchor == nil {
		return "", false
	}
	return *r.merkleAnchor, true
}

// ShouldRollback reports whether r's handler result carries the
// {"should_rollback": true} signal a validation-failure handler uses
// to ask its caller to discard the tick's delta.
func (r Receipt) ShouldRollback() bool {
	res, ok := r.HandlerResult()
	if !ok {
		return false
	}
	v, ok := res["should_rollback"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// WithMerkleAnchor returns a copy of r with its Merkle anchor attached —
// receipts are frozen, so anchoring after the fact (once a batch's root
// is known) produces a new value rather than mutating r.
func (r Receipt) WithMerkleAnchor(root string) Receipt {
	cp := r
	cp.merkleAnchor = &root
	return cp
}

// LifecycleEvent identifies one of the four boundaries a hook's
// execution emits events at.
type LifecycleEvent string

const (
	EventPreCondition  LifecycleEvent = "PRE_CONDITION"
	EventPostCondition LifecycleEvent = "POST_CONDITION"
	EventPreExecute    LifecycleEvent = "PRE_EXECUTE"
	EventPostExecute   LifecycleEvent = "POST_EXECUTE"
)

// Subscriber observes lifecycle events. A panic or error from a
// subscriber must never corrupt the hook's own state machine: the
// executor recovers and swallows them.
type Subscriber func(event LifecycleEvent, h *Hook, receipt *Receipt)
