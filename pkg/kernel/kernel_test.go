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

package kernel_test

import (
	"context"
	"testing"

	"github.com/kgcl-io/kgcl-core/pkg/kernel"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

func flowEdge(from, flowObj, to string) []quad.Quad {
	return []quad.Quad{
		{Subject: quad.NewIRI(from), Predicate: quad.NewIRI(kernel.PredFlowsInto), Object: quad.NewIRI(flowObj)},
		{Subject: quad.NewIRI(flowObj), Predicate: quad.NewIRI(kernel.PredNextElement), Object: quad.NewIRI(to)},
	}
}

func tokenOf(node string) quad.Quad {
	return quad.Quad{Subject: quad.NewIRI(node), Predicate: quad.NewIRI(kernel.PredHasToken), Object: quad.NewLiteral("true", "")}
}

func TestTransmuteMovesTokenSequence(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	_ = g.Add(ctx, flowEdge("urn:TaskA", "urn:f1", "urn:TaskB"))
	_ = g.Add(ctx, []quad.Quad{tokenOf("urn:TaskA")})

	delta, err := kernel.Transmute(ctx, g, "urn:TaskA", kernel.TransactionContext{})
	if err != nil {
		t.Fatalf("Transmute: %v", err)
	}
	if err := g.Apply(ctx, delta); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	hasA, _ := kernel.HasToken(ctx, g, "urn:TaskA")
	hasB, _ := kernel.HasToken(ctx, g, "urn:TaskB")
	if hasA {
		t.Fatalf("expected TaskA empty after transmute")
	}
	if !hasB {
		t.Fatalf("expected TaskB to hold token after transmute")
	}
}

func TestCopyParallelSplit(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	_ = g.Add(ctx, flowEdge("urn:TaskA", "urn:f1", "urn:TaskB"))
	_ = g.Add(ctx, flowEdge("urn:TaskA", "urn:f2", "urn:TaskC"))
	_ = g.Add(ctx, []quad.Quad{tokenOf("urn:TaskA")})

	delta, err := kernel.Copy(ctx, g, "urn:TaskA", kernel.TransactionContext{})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if err := g.Apply(ctx, delta); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	hasB, _ := kernel.HasToken(ctx, g, "urn:TaskB")
	hasC, _ := kernel.HasToken(ctx, g, "urn:TaskC")
	if !hasB || !hasC {
		t.Fatalf("expected both TaskB and TaskC to hold tokens, got B=%v C=%v", hasB, hasC)
	}
}

func TestAwaitJoinRequiresAllPredecessors(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	_ = g.Add(ctx, flowEdge("urn:TaskB", "urn:f1", "urn:TaskD"))
	_ = g.Add(ctx, flowEdge("urn:TaskC", "urn:f2", "urn:TaskD"))
	_ = g.Add(ctx, []quad.Quad{tokenOf("urn:TaskB")})

	delta, err := kernel.Await(ctx, g, "urn:TaskD", kernel.TransactionContext{})
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if !delta.Empty() {
		t.Fatalf("expected empty delta when only one predecessor ready")
	}

	_ = g.Add(ctx, []quad.Quad{tokenOf("urn:TaskC")})
	delta, err = kernel.Await(ctx, g, "urn:TaskD", kernel.TransactionContext{})
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if delta.Empty() {
		t.Fatalf("expected non-empty delta once both predecessors ready")
	}
	if err := g.Apply(ctx, delta); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	hasD, _ := kernel.HasToken(ctx, g, "urn:TaskD")
	if !hasD {
		t.Fatalf("expected TaskD to hold token after join")
	}
	hasB, _ := kernel.HasToken(ctx, g, "urn:TaskB")
	hasC, _ := kernel.HasToken(ctx, g, "urn:TaskC")
	if hasB || hasC {
		t.Fatalf("expected predecessor tokens consumed by join")
	}
}

func TestFilterPicksLowestGuardIRIAmongTrue(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	_ = g.Add(ctx, flowEdge("urn:TaskA", "urn:f1", "urn:TaskB"))
	_ = g.Add(ctx, flowEdge("urn:TaskA", "urn:f2", "urn:TaskC"))
	_ = g.Add(ctx, []quad.Quad{
		{Subject: quad.NewIRI("urn:f1"), Predicate: quad.NewIRI(kernel.PredGuardedBy), Object: quad.NewIRI("urn:guard:zzz")},
		{Subject: quad.NewIRI("urn:f2"), Predicate: quad.NewIRI(kernel.PredGuardedBy), Object: quad.NewIRI("urn:guard:aaa")},
		tokenOf("urn:TaskA"),
		{Subject: quad.NewIRI("urn:TaskA"), Predicate: quad.NewIRI("urn:guard:zzz"), Object: quad.NewLiteral("true", "")},
		{Subject: quad.NewIRI("urn:TaskA"), Predicate: quad.NewIRI("urn:guard:aaa"), Object: quad.NewLiteral("true", "")},
	})

	delta, err := kernel.Filter(ctx, g, "urn:TaskA", kernel.TransactionContext{})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	found := false
	for _, a := range delta.Additions {
		if a.Subject.Value == "urn:TaskC" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected TaskC (guard:aaa, lexicographically lowest) to win tie-break, got %+v", delta.Additions)
	}
}

func TestVoidTerminatesToken(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	_ = g.Add(ctx, []quad.Quad{tokenOf("urn:TaskX")})

	delta, err := kernel.Void(ctx, g, "urn:TaskX", kernel.TransactionContext{})
	if err != nil {
		t.Fatalf("Void: %v", err)
	}
	if err := g.Apply(ctx, delta); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	has, _ := kernel.HasToken(ctx, g, "urn:TaskX")
	if has {
		t.Fatalf("expected token voided")
	}
}

func TestTransmuteFailsWithoutToken(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	_ = g.Add(ctx, flowEdge("urn:TaskA", "urn:f1", "urn:TaskB"))

	_, err := kernel.Transmute(ctx, g, "urn:TaskA", kernel.TransactionContext{})
	if err == nil {
		t.Fatalf("expected TransitionNotEnabled error")
	}
}

func TestVerbsTableCoversAllFive(t *testing.T) {
	want := []kernel.Verb{kernel.VerbTransmute, kernel.VerbCopy, kernel.VerbFilter, kernel.VerbAwait, kernel.VerbVoid}
	for _, v := range want {
		if _, ok := kernel.Verbs[v]; !ok {
			t.Fatalf("missing verb in dispatch table: %s", v)
		}
	}
	if len(kernel.Verbs) != len(want) {
		t.Fatalf("unexpected verb count: %d", len(kernel.Verbs))
	}
}
