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

package driver_test

import (
	"context"
	"os"
	"regexp"
	"testing"

	"github.com/kgcl-io/kgcl-core/pkg/driver"
	"github.com/kgcl-io/kgcl-core/pkg/kernel"
	"github.com/kgcl-io/kgcl-core/pkg/logging"
	"github.com/kgcl-io/kgcl-core/pkg/ontology"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

// forbiddenDispatchPatterns: the driver source must never switch/match
// on a pattern-type value; resolution goes through the ontology only.
var forbiddenDispatchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`if\s+\w*[Pp]attern\w*\s*==`),
	regexp.MustCompile(`switch\s+\w*[Pp]attern\w*`),
}

func TestDriverSourceContainsNoPatternTypeSwitch(t *testing.T) {
	src, err := os.ReadFile("driver.go")
	if err != nil {
		t.Fatalf("reading driver.go: %v", err)
	}
	for _, re := range forbiddenDispatchPatterns {
		if re.Match(src) {
			t.Fatalf("driver.go contains forbidden dispatch construct matching %s", re)
		}
	}
}

const physicsTTL = `
<https://kgcl.dev/patterns#Sequence> <https://kgcl.dev/ns/physics#mapsToVerb> <transmute> .
<https://kgcl.dev/patterns#ParallelSplit> <https://kgcl.dev/ns/physics#mapsToVerb> <copy> .
`

func TestDispatchResolvesVerbAndAppliesDelta(t *testing.T) {
	ctx := context.Background()
	reg, err := ontology.Load(ctx, physicsTTL)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := driver.New(reg, logging.Discard())

	g := store.NewMemory()
	_ = g.Add(ctx, []quad.Quad{
		{Subject: quad.NewIRI("urn:TaskA"), Predicate: quad.NewIRI(kernel.PredFlowsInto), Object: quad.NewIRI("urn:f1")},
		{Subject: quad.NewIRI("urn:f1"), Predicate: quad.NewIRI(kernel.PredNextElement), Object: quad.NewIRI("urn:TaskB")},
		{Subject: quad.NewIRI("urn:TaskA"), Predicate: quad.NewIRI(kernel.PredHasToken), Object: quad.NewLiteral("true", "")},
	})

	delta, receipt, err := d.Dispatch(ctx, g, "urn:TaskA", "https://kgcl.dev/patterns#Sequence", kernel.TransactionContext{Actor: "test"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if receipt.VerbExecuted != kernel.VerbTransmute {
		t.Fatalf("expected transmute, got %s", receipt.VerbExecuted)
	}
	if receipt.FocusNode != "urn:TaskA" || receipt.Actor != "test" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if err := g.Apply(ctx, delta); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	hasB, _ := kernel.HasToken(ctx, g, "urn:TaskB")
	if !hasB {
		t.Fatalf("expected TaskB to hold token after dispatch")
	}
}

func TestDispatchUnmappedPatternTypeErrors(t *testing.T) {
	ctx := context.Background()
	reg, err := ontology.Load(ctx, physicsTTL)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := driver.New(reg, logging.Discard())
	g := store.NewMemory()

	if _, _, err := d.Dispatch(ctx, g, "urn:TaskA", "https://kgcl.dev/patterns#Unknown", kernel.TransactionContext{}); err == nil {
		t.Fatalf("expected error for unmapped pattern type")
	}
}
