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

package store

import (
	"context"
	"sync"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
)

// Memory is a reference, in-process Store backed by a mutex-guarded
// quad multiset. It supports the restricted ASK/SELECT query subset
// documented in query.go. It is safe for concurrent use, though the
// TickController never calls it concurrently within a single tick.
type Memory struct {
	mu    sync.RWMutex
	quads map[quad.Quad]struct{}
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{quads: make(map[quad.Quad]struct{})}
}

func (m *Memory) Add(_ context.Context, quads []quad.Quad) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range quads {
		m.quads[q] = struct{}{}
	}
	return nil
}

func (m *Memory) Remove(_ context.Context, quads []quad.Quad) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range quads {
		delete(m.quads, q)
	}
	return nil
}

func (m *Memory) Apply(ctx context.Context, delta quad.Delta) error {
	if !delta.WithinChatmanConstant() {
		return kgclerrors.New(kgclerrors.TopologyViolation, "delta exceeds the Chatman constant")
	}
	if err := m.Remove(ctx, delta.Removals); err != nil {
		return err
	}
	return m.Add(ctx, delta.Additions)
}

func (m *Memory) Snapshot(_ context.Context) ([]quad.Quad, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]quad.Quad, 0, len(m.quads))
	for q := range m.quads {
		out = append(out, q)
	}
	return out, nil
}

func (m *Memory) Hash(ctx context.Context) (string, error) {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return quad.StateHash(snap), nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.quads), nil
}

func (m *Memory) Ask(ctx context.Context, query string) (bool, error) {
	pattern, err := parseQuery(query)
	if err != nil {
		return false, kgclerrors.Wrap(kgclerrors.StoreError, err, "ask query parse failed")
	}
	rows, err := m.match(ctx, pattern)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (m *Memory) Select(ctx context.Context, query string) ([]Binding, error) {
	pattern, err := parseQuery(query)
	if err != nil {
		return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, "select query parse failed")
	}
	return m.match(ctx, pattern)
}

func (m *Memory) match(_ context.Context, p parsedQuery) ([]Binding, error) {
	m.mu.RLock()
	all := make([]quad.Quad, 0, len(m.quads))
	for q := range m.quads {
		all = append(all, q)
	}
	m.mu.RUnlock()

	bindings := []Binding{{}}
	for _, tp := range p.patterns {
		var next []Binding
		for _, b := range bindings {
			for _, q := range all {
				nb, ok := tp.bind(q, b)
				if ok {
					next = append(next, nb)
				}
			}
		}
		bindings = next
		if len(bindings) == 0 {
			return nil, nil
		}
	}
	if len(p.vars) == 0 {
		return bindings, nil
	}
	projected := make([]Binding, len(bindings))
	for i, b := range bindings {
		row := make(Binding, len(p.vars))
		for _, v := range p.vars {
			if term, ok := b[v]; ok {
				row[v] = term
			}
		}
		projected[i] = row
	}
	return projected, nil
}
