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

package store_test

import (
	"context"
	"testing"

	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

func TestMemoryAddAskSelect(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	err := m.Add(ctx, []quad.Quad{
		{Subject: quad.NewIRI("urn:alice"), Predicate: quad.NewIRI("urn:name"), Object: quad.NewLiteral("Alice", "")},
		{Subject: quad.NewIRI("urn:bob"), Predicate: quad.NewIRI("urn:name"), Object: quad.NewLiteral("Bob", "")},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	ok, err := m.Ask(ctx, `ASK { <urn:alice> <urn:name> "Alice" }`)
	if err != nil || !ok {
		t.Fatalf("expected ASK true, got ok=%v err=%v", ok, err)
	}

	ok, err = m.Ask(ctx, `ASK { <urn:alice> <urn:name> "Carol" }`)
	if err != nil || ok {
		t.Fatalf("expected ASK false, got ok=%v err=%v", ok, err)
	}

	rows, err := m.Select(ctx, `SELECT ?x WHERE { ?x <urn:name> ?n }`)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestMemoryApplyRejectsOversizedDelta(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	var adds []quad.Quad
	for i := 0; i < quad.ChatmanConstant+1; i++ {
		adds = append(adds, quad.Quad{
			Subject:   quad.NewIRI("urn:s"),
			Predicate: quad.NewIRI("urn:p"),
			Object:    quad.NewLiteral(string(rune('a'+i%26)), ""),
		})
	}
	err := m.Apply(ctx, quad.Delta{Additions: adds})
	if err == nil {
		t.Fatalf("expected topology violation for oversized delta")
	}
}

func TestMemoryHashReflectsState(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	h1, _ := m.Hash(ctx)
	_ = m.Add(ctx, []quad.Quad{{Subject: quad.NewIRI("urn:a"), Predicate: quad.NewIRI("urn:b"), Object: quad.NewIRI("urn:c")}})
	h2, _ := m.Hash(ctx)

	if h1 == h2 {
		t.Fatalf("expected hash to change after Add")
	}
}
