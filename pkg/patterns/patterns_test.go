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

package patterns_test

import (
	"context"
	"testing"

	"github.com/kgcl-io/kgcl-core/pkg/patterns"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

func TestCatalogCoversAllTwentySevenPatterns(t *testing.T) {
	if len(patterns.Catalog) != 27 {
		t.Fatalf("expected 27 patterns, got %d", len(patterns.Catalog))
	}
	for i, d := range patterns.Catalog {
		if d.ID != i+1 {
			t.Fatalf("pattern catalog out of order at index %d: id %d", i, d.ID)
		}
	}
	d, ok := patterns.ByID(16)
	if !ok || d.Name != "Deferred Choice" {
		t.Fatalf("expected pattern 16 to be Deferred Choice, got %+v", d)
	}
	d, ok = patterns.ByID(27)
	if !ok || d.Name != "Cancel Multiple Instance Activity" {
		t.Fatalf("expected pattern 27 to be Cancel Multiple Instance Activity, got %+v", d)
	}
}

func TestDeferredChoiceFirstEventWins(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	_ = g.Add(ctx, []quad.Quad{
		{Subject: quad.NewIRI("urn:TaskA"), Predicate: quad.NewIRI(patterns.PredOutgoing), Object: quad.NewIRI("urn:BranchX")},
		{Subject: quad.NewIRI("urn:TaskA"), Predicate: quad.NewIRI(patterns.PredOutgoing), Object: quad.NewIRI("urn:BranchY")},
	})

	branches, err := patterns.EnableDeferredChoiceBranches(ctx, g, "urn:TaskA")
	if err != nil {
		t.Fatalf("EnableDeferredChoiceBranches: %v", err)
	}
	if len(branches) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(branches))
	}

	if err := patterns.ResolveDeferredChoice(ctx, g, "urn:TaskA", "urn:BranchX"); err != nil {
		t.Fatalf("ResolveDeferredChoice: %v", err)
	}

	chosen, _ := g.Ask(ctx, `ASK { <urn:BranchX> <urn:wcp:chosen> "true" }`)
	if !chosen {
		t.Fatalf("expected BranchX chosen")
	}
	disabled, _ := g.Ask(ctx, `ASK { <urn:BranchY> <urn:wcp:disabled> "true" }`)
	if !disabled {
		t.Fatalf("expected BranchY disabled")
	}

	if err := patterns.ResolveDeferredChoice(ctx, g, "urn:TaskA", "urn:BranchY"); err == nil {
		t.Fatalf("expected error resolving an already-decided deferred choice")
	}
}

func TestInterleavedParallelMutualExclusion(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	mutexSet := []string{"urn:Task1", "urn:Task2"}

	ok, err := patterns.AcquireMutex(ctx, g, mutexSet, "urn:Task1")
	if err != nil || !ok {
		t.Fatalf("expected Task1 to acquire mutex, got ok=%v err=%v", ok, err)
	}
	ok, err = patterns.AcquireMutex(ctx, g, mutexSet, "urn:Task2")
	if err != nil || ok {
		t.Fatalf("expected Task2 to be blocked, got ok=%v err=%v", ok, err)
	}

	if err := patterns.ReleaseMutex(ctx, g, "urn:Task1"); err != nil {
		t.Fatalf("ReleaseMutex: %v", err)
	}
	ok, err = patterns.AcquireMutex(ctx, g, mutexSet, "urn:Task2")
	if err != nil || !ok {
		t.Fatalf("expected Task2 to acquire mutex after release, got ok=%v err=%v", ok, err)
	}
}

func TestMilestoneReevaluatesEachCall(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	_ = g.Add(ctx, []quad.Quad{{Subject: quad.NewIRI("urn:State1"), Predicate: quad.NewIRI("urn:reached"), Object: quad.NewLiteral("true", "")}})

	condition := `ASK { <urn:State1> <urn:reached> "true" }`
	ok, err := patterns.CheckMilestone(ctx, g, "urn:Task1", condition)
	if err != nil || !ok {
		t.Fatalf("expected milestone to hold, got ok=%v err=%v", ok, err)
	}

	_ = g.Remove(ctx, []quad.Quad{{Subject: quad.NewIRI("urn:State1"), Predicate: quad.NewIRI("urn:reached"), Object: quad.NewLiteral("true", "")}})
	ok, err = patterns.CheckMilestone(ctx, g, "urn:Task1", condition)
	if err != nil || ok {
		t.Fatalf("expected milestone to no longer hold, got ok=%v err=%v", ok, err)
	}
}

func TestTransientTriggerFiresOnceThenDeactivates(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	condition := `ASK { <urn:Sensor> <urn:armed> "true" }`
	_ = g.Add(ctx, []quad.Quad{{Subject: quad.NewIRI("urn:Sensor"), Predicate: quad.NewIRI("urn:armed"), Object: quad.NewLiteral("true", "")}})

	ready, err := patterns.CheckTransientTrigger(ctx, g, "urn:Trigger1", condition)
	if err != nil || !ready {
		t.Fatalf("expected trigger ready to fire, got ready=%v err=%v", ready, err)
	}
	if err := patterns.FireTransientTrigger(ctx, g, "urn:Trigger1", "urn:TaskX"); err != nil {
		t.Fatalf("FireTransientTrigger: %v", err)
	}

	ready, err = patterns.CheckTransientTrigger(ctx, g, "urn:Trigger1", condition)
	if err != nil || ready {
		t.Fatalf("expected trigger deactivated after firing, got ready=%v err=%v", ready, err)
	}
	if err := patterns.FireTransientTrigger(ctx, g, "urn:Trigger1", "urn:TaskX"); err == nil {
		t.Fatalf("expected error re-firing a transient trigger")
	}
}

func TestPersistentTriggerFiresOnEveryMatchAndCounts(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	condition := `ASK { <urn:Gauge> <urn:overThreshold> "true" }`
	_ = g.Add(ctx, []quad.Quad{{Subject: quad.NewIRI("urn:Gauge"), Predicate: quad.NewIRI("urn:overThreshold"), Object: quad.NewLiteral("true", "")}})

	fired, count, err := patterns.CheckAndFirePersistentTrigger(ctx, g, "urn:Trigger2", condition, true)
	if err != nil || !fired || count != 1 {
		t.Fatalf("expected first fire count 1, got fired=%v count=%d err=%v", fired, count, err)
	}
	fired, count, err = patterns.CheckAndFirePersistentTrigger(ctx, g, "urn:Trigger2", condition, true)
	if err != nil || !fired || count != 2 {
		t.Fatalf("expected second fire count 2, got fired=%v count=%d err=%v", fired, count, err)
	}
	fired, count, err = patterns.CheckAndFirePersistentTrigger(ctx, g, "urn:Trigger2", condition, false)
	if err != nil || fired || count != 2 {
		t.Fatalf("expected disabled trigger to not fire and keep count, got fired=%v count=%d err=%v", fired, count, err)
	}
}

func TestCancelAllInstancesMarksEachCancelled(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	_ = g.Add(ctx, []quad.Quad{
		{Subject: quad.NewIRI("urn:mi:1"), Predicate: quad.NewIRI(patterns.PredInstanceOf), Object: quad.NewIRI("urn:MITask")},
		{Subject: quad.NewIRI("urn:mi:2"), Predicate: quad.NewIRI(patterns.PredInstanceOf), Object: quad.NewIRI("urn:MITask")},
	})

	result, err := patterns.CancelAllInstances(ctx, g, "urn:MITask", "2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("CancelAllInstances: %v", err)
	}
	if len(result.CancelledInstances) != 2 {
		t.Fatalf("expected 2 cancelled instances, got %d", len(result.CancelledInstances))
	}
	cancelled, _ := g.Ask(ctx, `ASK { <urn:mi:1> <urn:wcp:status> "cancelled" }`)
	if !cancelled {
		t.Fatalf("expected urn:mi:1 marked cancelled")
	}
}
