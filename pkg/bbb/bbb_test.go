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

package bbb_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kgcl-io/kgcl-core/pkg/bbb"
	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/shacl"
)

func TestAdmitParsesAndValidates(t *testing.T) {
	b := bbb.New(shacl.New(), "")
	doc := []byte(`{
		"additions": [
			{"subject": "ex:Alice", "predicate": "ex:hasToken", "object": "true", "object_kind": "literal"}
		],
		"removals": []
	}`)
	delta, err := b.Admit(context.Background(), doc)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if len(delta.Additions) != 1 || len(delta.Removals) != 0 {
		t.Fatalf("unexpected delta: %+v", delta)
	}
}

func TestAdmitRejectsOversizedDelta(t *testing.T) {
	b := bbb.New(nil, "")
	var sb strings.Builder
	sb.WriteString(`{"additions": [`)
	for i := 0; i < 65; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"subject": "ex:A", "predicate": "ex:p", "object": "ex:B"}`)
	}
	sb.WriteString(`], "removals": []}`)

	_, err := b.Admit(context.Background(), []byte(sb.String()))
	if err == nil {
		t.Fatal("expected a TopologyViolation, got nil")
	}
	var taxErr *kgclerrors.Error
	if !errors.As(err, &taxErr) || taxErr.Kind != kgclerrors.TopologyViolation {
		t.Fatalf("expected TopologyViolation, got %v", err)
	}
}

func TestAdmitParsesTurtleFragmentAsAdditions(t *testing.T) {
	b := bbb.New(shacl.New(), "")
	doc := []byte(`
# token seed for TaskA
<urn:TaskA> <urn:kgc:hasToken> "true" .
<urn:TaskA> <urn:yawl:flowsInto> <urn:f1> .
<urn:f1> <urn:yawl:nextElementRef> <urn:TaskB> .
`)
	delta, err := b.Admit(context.Background(), doc)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if len(delta.Additions) != 3 || len(delta.Removals) != 0 {
		t.Fatalf("unexpected delta: %+v", delta)
	}
	if delta.Additions[0].Subject.Value != "urn:TaskA" {
		t.Fatalf("unexpected first triple: %+v", delta.Additions[0])
	}
}

func TestAdmitRejectsMalformedTurtleFragment(t *testing.T) {
	b := bbb.New(nil, "")
	_, err := b.Admit(context.Background(), []byte("<urn:TaskA> <urn:kgc:hasToken> .\n"))
	if err == nil {
		t.Fatal("expected a TopologyViolation for a two-term turtle line, got nil")
	}
	var taxErr *kgclerrors.Error
	if !errors.As(err, &taxErr) || taxErr.Kind != kgclerrors.TopologyViolation {
		t.Fatalf("expected TopologyViolation, got %v", err)
	}
}

func TestAdmitRejectsShaclViolation(t *testing.T) {
	shapes := `
<ex:PersonShape> <http://www.w3.org/ns/shacl#targetClass> <ex:Person> .
<ex:PersonShape> <http://www.w3.org/ns/shacl#property> <ex:NameProp> .
<ex:NameProp> <http://www.w3.org/ns/shacl#path> <ex:name> .
<ex:NameProp> <http://www.w3.org/ns/shacl#minCount> "1" .
`
	b := bbb.New(shacl.New(), shapes)
	doc := []byte(`{
		"additions": [
			{"subject": "ex:Alice", "predicate": "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", "object": "ex:Person"}
		],
		"removals": []
	}`)
	_, err := b.Admit(context.Background(), doc)
	if err == nil {
		t.Fatal("expected a TopologyViolation for missing ex:name, got nil")
	}
	var taxErr *kgclerrors.Error
	if !errors.As(err, &taxErr) || taxErr.Kind != kgclerrors.TopologyViolation {
		t.Fatalf("expected TopologyViolation, got %v", err)
	}
}
