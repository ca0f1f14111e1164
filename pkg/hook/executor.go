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

package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/kgcl-io/kgcl-core/pkg/condition"
	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

// DefaultMaxReceiptBytes bounds HandlerResult's serialized size before
// Executor replaces it with a {truncated:true, size:n} marker.
const DefaultMaxReceiptBytes = 32 * 1024

// Executor runs one hook's full lifecycle: validate (already done at
// registration) -> evaluate condition -> run handler -> produce
// receipt.
type Executor struct {
	evaluator      *condition.Evaluator
	maxReceiptSize int
	subscribers    []Subscriber
	log            logr.Logger
}

// NewExecutor constructs an Executor. maxReceiptSize <= 0 defaults to
// DefaultMaxReceiptBytes.
func NewExecutor(evaluator *condition.Evaluator, maxReceiptSize int, log logr.Logger) *Executor {
	if maxReceiptSize <= 0 {
		maxReceiptSize = DefaultMaxReceiptBytes
	}
	return &Executor{evaluator: evaluator, maxReceiptSize: maxReceiptSize, log: log}
}

// Subscribe registers a lifecycle observer. Subscribers never affect
// the hook's own state machine — a panic inside one is recovered and
// logged, never propagated.
func (e *Executor) Subscribe(sub Subscriber) {
	e.subscribers = append(e.subscribers, sub)
}

func (e *Executor) emit(event LifecycleEvent, h *Hook, receipt *Receipt) {
	for _, sub := range e.subscribers {
		e.safeNotify(sub, event, h, receipt)
	}
}

func (e *Executor) safeNotify(sub Subscriber, event LifecycleEvent, h *Hook, receipt *Receipt) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error(fmt.Errorf("%v", r), "hook lifecycle subscriber panicked, ignoring", "event", event, "hook", h.Name())
		}
	}()
	sub(event, h, receipt)
}

// Execute runs h's full lifecycle against g. It never returns an error
// for a failure *within* the hook (condition timeout, handler timeout,
// handler error): those are captured into the returned Receipt and
// never propagate. The only errors Execute itself returns
// are ones that should never occur given a validated Hook (e.g. a nil
// evaluator).
func (e *Executor) Execute(ctx context.Context, g store.Store, h *Hook, ec condition.EvalContext, input map[string]any) (Receipt, error) {
	if e.evaluator == nil {
		return Receipt{}, kgclerrors.New(kgclerrors.HookValidationError, "hook executor has no condition evaluator configured")
	}
	start := time.Now().UTC()
	h.transition(StateActive, start)

	e.emit(EventPreCondition, h, nil)
	condCtx := ctx
	var cancel context.CancelFunc
	if h.TimeoutS() > 0 {
		condCtx, cancel = context.WithTimeout(ctx, time.Duration(h.TimeoutS()*float64(time.Second)))
		defer cancel()
	}
	result, err := e.evaluator.Evaluate(condCtx, g, h.condition, ec)
	e.emit(EventPostCondition, h, nil)

	if err != nil {
		h.transition(StateFailed, time.Now().UTC())
		receipt := e.buildReceipt(h, start, result, nil, err, input)
		e.emit(EventPostExecute, h, &receipt)
		return receipt, nil
	}

	if !result.Triggered {
		h.transition(StateCompleted, time.Now().UTC())
		receipt := e.buildReceipt(h, start, result, nil, nil, input)
		return receipt, nil
	}

	h.transition(StateExecuted, time.Now().UTC())
	e.emit(EventPreExecute, h, nil)
	handlerResult, handlerErr := e.runHandler(ctx, h, result, input)
	e.emit(EventPostExecute, h, nil)

	if handlerErr != nil {
		h.transition(StateFailed, time.Now().UTC())
		receipt := e.buildReceipt(h, start, result, nil, handlerErr, input)
		return receipt, nil
	}

	h.transition(StateCompleted, time.Now().UTC())
	receipt := e.buildReceipt(h, start, result, handlerResult, nil, input)
	return receipt, nil
}

// runHandler invokes h's handler with its own timeout and recovers a
// panic into a HandlerTimeout-shaped error so it always surfaces as a
// captured Receipt error rather than crashing the tick. handlerCtx is
// handed to the handler itself, so a timeout cancels the handler's
// in-flight work as well as the wait for it.
func (e *Executor) runHandler(ctx context.Context, h *Hook, cond condition.Result, input map[string]any) (result map[string]any, err error) {
	handlerCtx := ctx
	var cancel context.CancelFunc
	if h.TimeoutS() > 0 {
		handlerCtx, cancel = context.WithTimeout(ctx, time.Duration(h.TimeoutS()*float64(time.Second)))
		defer cancel()
	}

	type outcome struct {
		result map[string]any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: kgclerrors.New(kgclerrors.HandlerTimeout, fmt.Sprintf("hook handler panicked: %v\n%s", r, debug.Stack()))}
			}
		}()
		res, herr := h.handler(handlerCtx, Context{HookName: h.Name(), Actor: h.actor, Condition: cond, Input: input})
		done <- outcome{result: res, err: herr}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-handlerCtx.Done():
		return nil, kgclerrors.Wrap(kgclerrors.HandlerTimeout, handlerCtx.Err(), fmt.Sprintf("hook %q handler timed out", h.Name()))
	}
}

func (e *Executor) buildReceipt(h *Hook, start time.Time, cond condition.Result, handlerResult map[string]any, err error, input map[string]any) Receipt {
	now := time.Now().UTC()
	r := Receipt{
		receiptID:       uuid.NewString(),
		hookID:          h.Name(),
		timestamp:       now,
		actor:           h.actor,
		conditionResult: cond,
		durationMS:      now.Sub(start).Milliseconds(),
		inputContext:    input,
	}
	if err != nil {
		r.err = err.Error()
	}
	if handlerResult != nil {
		raw, marshalErr := json.Marshal(handlerResult)
		if marshalErr == nil {
			if len(raw) > e.maxReceiptSize {
				r.truncated = true
				r.handlerResultBytes = len(raw)
			} else {
				r.handlerResult = handlerResult
			}
		} else {
			r.truncated = true
		}
	}
	return r
}
