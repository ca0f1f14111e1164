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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
)

var validate = validator.New()

// Registry owns the set of registered hooks, keyed by unique name.
// Receipts reference hooks by id only — the registry owns hooks;
// hooks never own the registry.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]*Hook
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]*Hook)}
}

// Register validates spec and adds a new Hook to the registry. A
// duplicate name is rejected outright — no upsert.
func (r *Registry) Register(spec Spec) (*Hook, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, kgclerrors.Wrap(kgclerrors.HookValidationError, err, "hook spec failed validation")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.hooks[spec.Name]; exists {
		return nil, kgclerrors.New(kgclerrors.HookValidationError, fmt.Sprintf("hook %q is already registered", spec.Name))
	}
	h := newHook(spec, time.Now().UTC())
	r.hooks[spec.Name] = h
	return h, nil
}

// Unregister removes a hook by name; it is a no-op if absent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hooks, name)
}

// Get returns the hook registered under name, if any.
func (r *Registry) Get(name string) (*Hook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[name]
	return h, ok
}

// Ordered returns every enabled hook, sorted by priority descending and
// by registration order (insertion order in the underlying map
// iteration is not stable in Go, so registration order is tracked via
// CreatedAt) within equal priority.
func (r *Registry) Ordered() []*Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		if h.Enabled() {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() > out[j].Priority()
		}
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out
}

// All returns every registered hook regardless of enabled state,
// sorted by name, for inspection/administration callers.
func (r *Registry) All() []*Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
