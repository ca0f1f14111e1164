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

// Package shacl defines the SHACL validator boundary the Condition
// Evaluator's Shacl variant and the Blood-Brain-Barrier consume: the
// core never embeds a full SHACL engine, it calls an injected
// Validator and reads report.Conforms. Validator is satisfied here by
// a minimal node/property-shape engine covering sh:targetClass,
// sh:property, sh:path, sh:minCount and sh:maxCount. The shapes
// themselves are parsed with the same restricted Turtle-subset grammar
// pkg/ontology loads the physics file with; the conformance decision
// is delegated to a Rego policy evaluated in-process with
// github.com/open-policy-agent/opa/rego (opa.go).
package shacl

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/kgcl-io/kgcl-core/pkg/ontology"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
)

const (
	nsSHACL    = "http://www.w3.org/ns/shacl#"
	nsRDF      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	predType   = nsRDF + "type"
	predTarget = nsSHACL + "targetClass"
	predProp   = nsSHACL + "property"
	predPath   = nsSHACL + "path"
	predMinCnt = nsSHACL + "minCount"
	predMaxCnt = nsSHACL + "maxCount"
)

// Violation describes one shape constraint a focus node failed.
type Violation struct {
	FocusNode  string
	ResultPath string
	Message    string
}

// Report is the validator's verdict: Conforms mirrors w3c SHACL's
// sh:conforms, Violations is empty exactly when Conforms is true.
type Report struct {
	Conforms   bool
	Violations []Violation
}

// Validator is the interface the Condition Evaluator and the
// Blood-Brain-Barrier consume; only this package's Default
// implementation is shipped, but any external SHACL engine can satisfy
// it.
type Validator interface {
	Validate(ctx context.Context, data []quad.Quad, shapesTTL string) (Report, error)
}

// Default is the minimal node/property-shape validator described in
// the package doc.
type Default struct{}

// New constructs a Default validator.
func New() *Default { return &Default{} }

type propertyConstraint struct {
	path     string
	minCount int
	maxCount int // -1 means unbounded
}

type nodeShape struct {
	targetClass string
	properties  []propertyConstraint
}

// Validate parses shapesTTL as the restricted Turtle subset, builds
// the node/property shapes it declares, and evaluates them as facts
// against a Rego policy (opa.go) to produce the conformance Report.
func (d *Default) Validate(ctx context.Context, data []quad.Quad, shapesTTL string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	shapeQuads, err := ontology.ParseTurtleSubset(shapesTTL)
	if err != nil {
		return Report{}, fmt.Errorf("shacl: parsing shapes: %w", err)
	}
	shapes, err := buildNodeShapes(shapeQuads)
	if err != nil {
		return Report{}, err
	}
	return evalShapesWithOPA(ctx, shapes, data)
}

// buildNodeShapes groups sh:targetClass / sh:property / sh:path /
// sh:minCount / sh:maxCount triples into one nodeShape per shape
// subject, resolving the blank-node property shapes they point at.
func buildNodeShapes(shapeQuads []quad.Quad) ([]nodeShape, error) {
	targetClassOf := map[string]string{}
	propertyRefsOf := map[string][]string{}
	pathOf := map[string]string{}
	minCountOf := map[string]int{}
	maxCountOf := map[string]int{}

	for _, q := range shapeQuads {
		subj := termKey(q.Subject)
		switch q.Predicate.Value {
		case predTarget:
			targetClassOf[subj] = q.Object.Value
		case predProp:
			propertyRefsOf[subj] = append(propertyRefsOf[subj], termKey(q.Object))
		case predPath:
			pathOf[subj] = q.Object.Value
		case predMinCnt:
			n, err := strconv.Atoi(q.Object.Value)
			if err != nil {
				return nil, fmt.Errorf("shacl: minCount %q is not an integer", q.Object.Value)
			}
			minCountOf[subj] = n
		case predMaxCnt:
			n, err := strconv.Atoi(q.Object.Value)
			if err != nil {
				return nil, fmt.Errorf("shacl: maxCount %q is not an integer", q.Object.Value)
			}
			maxCountOf[subj] = n
		}
	}

	var shapes []nodeShape
	var subjects []string
	for s := range targetClassOf {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	for _, s := range subjects {
		shape := nodeShape{targetClass: targetClassOf[s]}
		refs := propertyRefsOf[s]
		sort.Strings(refs)
		for _, ref := range refs {
			maxCount := -1
			if n, ok := maxCountOf[ref]; ok {
				maxCount = n
			}
			shape.properties = append(shape.properties, propertyConstraint{
				path:     pathOf[ref],
				minCount: minCountOf[ref],
				maxCount: maxCount,
			})
		}
		shapes = append(shapes, shape)
	}
	return shapes, nil
}

func termKey(t quad.Term) string { return t.String() }

func focusNodes(data []quad.Quad, targetClass string) []string {
	seen := map[string]struct{}{}
	for _, q := range data {
		if q.Predicate.Value == predType && q.Object.Value == targetClass {
			seen[q.Subject.Value] = struct{}{}
		}
	}
	var out []string
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func countObjects(data []quad.Quad, subject, predicate string) int {
	n := 0
	for _, q := range data {
		if q.Subject.Value == subject && q.Predicate.Value == predicate {
			n++
		}
	}
	return n
}
