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

// Package errors implements the error taxonomy of the engine:
// every kind carries a message, an optional cause, and an optional
// context map, and is distinguishable with errors.Is/errors.As.
package errors

import (
	"fmt"

	gferrors "github.com/go-faster/errors"
)

// Kind identifies one of the taxonomy's error categories.
type Kind string

const (
	TopologyViolation    Kind = "TopologyViolation"
	HookValidationError  Kind = "HookValidationError"
	ConditionTimeout     Kind = "ConditionTimeout"
	HandlerTimeout       Kind = "HandlerTimeout"
	PreTickVetoed        Kind = "PreTickVetoed"
	TransitionNotEnabled Kind = "TransitionNotEnabled"
	NonConvergence       Kind = "NonConvergence"
	ChainBroken          Kind = "ChainBroken"
	StoreError           Kind = "StoreError"
)

// exitCodes maps a Kind to the orchestrator CLI exit code. Kinds
// absent from this map exit 1 (configuration error) by default.
var exitCodes = map[Kind]int{
	NonConvergence:    2,
	ChainBroken:       3,
	TopologyViolation: 4,
}

// Error is the taxonomy's concrete error type.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, New(kind, "")) style sentinel checks by kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// New creates a taxonomy error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a taxonomy error annotating cause with message, using
// go-faster/errors for the underlying wrap so stack context survives
// through errors.Is/As chains beyond this package's own Kind tag.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: gferrors.Wrap(cause, message)}
}

// WithContext attaches structured context to an error, returning a copy.
func WithContext(err *Error, ctx map[string]any) *Error {
	cp := *err
	cp.Context = ctx
	return &cp
}

// ExitCode maps err to the orchestrator CLI exit code.
// A nil error exits 0; an error not wrapping *Error exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var taxErr *Error
	if gferrors.As(err, &taxErr) {
		if code, ok := exitCodes[taxErr.Kind]; ok {
			return code
		}
	}
	return 1
}
