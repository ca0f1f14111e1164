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

package shacl_test

import (
	"context"
	"testing"

	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/shacl"
)

const personShapeTTL = `
_:personShape <http://www.w3.org/ns/shacl#targetClass> <urn:Person> .
_:personShape <http://www.w3.org/ns/shacl#property> _:nameProp .
_:nameProp <http://www.w3.org/ns/shacl#path> <urn:ex:name> .
_:nameProp <http://www.w3.org/ns/shacl#minCount> "1" .
`

func TestValidateConformsWhenRequiredPropertyPresent(t *testing.T) {
	v := shacl.New()
	data := []quad.Quad{
		{Subject: quad.NewIRI("urn:alice"), Predicate: quad.NewIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type"), Object: quad.NewIRI("urn:Person")},
		{Subject: quad.NewIRI("urn:alice"), Predicate: quad.NewIRI("urn:ex:name"), Object: quad.NewLiteral("Alice", "")},
	}
	report, err := v.Validate(context.Background(), data, personShapeTTL)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.Conforms {
		t.Fatalf("expected conforms, got violations: %+v", report.Violations)
	}
}

func TestValidateReportsMinCountViolation(t *testing.T) {
	v := shacl.New()
	data := []quad.Quad{
		{Subject: quad.NewIRI("urn:bob"), Predicate: quad.NewIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type"), Object: quad.NewIRI("urn:Person")},
	}
	report, err := v.Validate(context.Background(), data, personShapeTTL)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.Conforms {
		t.Fatalf("expected violations, got conforms")
	}
	if len(report.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d: %+v", len(report.Violations), report.Violations)
	}
	if report.Violations[0].FocusNode != "urn:bob" || report.Violations[0].ResultPath != "urn:ex:name" {
		t.Fatalf("unexpected violation: %+v", report.Violations[0])
	}
}

func TestValidateIgnoresNodesNotMatchingTargetClass(t *testing.T) {
	v := shacl.New()
	data := []quad.Quad{
		{Subject: quad.NewIRI("urn:widget"), Predicate: quad.NewIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type"), Object: quad.NewIRI("urn:Widget")},
	}
	report, err := v.Validate(context.Background(), data, personShapeTTL)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.Conforms {
		t.Fatalf("expected conforms since no Person nodes present, got %+v", report.Violations)
	}
}
