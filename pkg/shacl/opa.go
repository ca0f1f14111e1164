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

package shacl

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/kgcl-io/kgcl-core/pkg/quad"
)

// shapesRegoModule is the static Rego policy every Validate call
// queries: "conforms" mirrors w3c SHACL's sh:conforms, derived from a
// "violations" partial set rule covering minCount and maxCount
// property constraints.
// input is built fresh per call from the parsed shapes and the focus
// node/path counts observed in data (opa.go's buildOPAInput).
const shapesRegoModule = `
package shapes

import rego.v1

default conforms := false

conforms if count(violations) == 0

violations contains v if {
	some shape in input.shapes
	some focus in input.facts[shape.target_class]
	key := sprintf("%s|%s", [focus, shape.path])
	cnt := object.get(input.counts, key, 0)
	cnt < shape.min_count
	v := {
		"focus_node": focus,
		"path": shape.path,
		"message": sprintf("minCount %d not satisfied: found %d", [shape.min_count, cnt]),
	}
}

violations contains v if {
	some shape in input.shapes
	shape.max_count >= 0
	some focus in input.facts[shape.target_class]
	key := sprintf("%s|%s", [focus, shape.path])
	cnt := object.get(input.counts, key, 0)
	cnt > shape.max_count
	v := {
		"focus_node": focus,
		"path": shape.path,
		"message": sprintf("maxCount %d exceeded: found %d", [shape.max_count, cnt]),
	}
}

result := {"conforms": conforms, "violations": violations}
`

// opaShapeInput is one nodeShape flattened for Rego's input document —
// one entry per (targetClass, property) pair, matching shape.properties
// being iterated inside the Rego module.
type opaShapeInput struct {
	TargetClass string `json:"target_class"`
	Path        string `json:"path"`
	MinCount    int    `json:"min_count"`
	MaxCount    int    `json:"max_count"`
}

// opaResult decodes the Rego query's "result" document.
type opaResult struct {
	Conforms   bool `json:"conforms"`
	Violations []struct {
		FocusNode string `json:"focus_node"`
		Path      string `json:"path"`
		Message   string `json:"message"`
	} `json:"violations"`
}

// evalShapesWithOPA builds the shapes/facts/counts input document from
// shapes and data, evaluates shapesRegoModule against it, and decodes
// the result into a Report.
func evalShapesWithOPA(ctx context.Context, shapes []nodeShape, data []quad.Quad) (Report, error) {
	input := buildOPAInput(shapes, data)

	r := rego.New(
		rego.Query("data.shapes.result"),
		rego.Module("shapes.rego", shapesRegoModule),
		rego.Input(input),
	)
	rs, err := r.Eval(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("shacl: evaluating rego policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Report{Conforms: true}, nil
	}

	raw, err := json.Marshal(rs[0].Expressions[0].Value)
	if err != nil {
		return Report{}, fmt.Errorf("shacl: marshaling rego result: %w", err)
	}
	var decoded opaResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Report{}, fmt.Errorf("shacl: decoding rego result: %w", err)
	}

	violations := make([]Violation, len(decoded.Violations))
	for i, v := range decoded.Violations {
		violations[i] = Violation{FocusNode: v.FocusNode, ResultPath: v.Path, Message: v.Message}
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].FocusNode != violations[j].FocusNode {
			return violations[i].FocusNode < violations[j].FocusNode
		}
		return violations[i].ResultPath < violations[j].ResultPath
	})
	return Report{Conforms: decoded.Conforms, Violations: violations}, nil
}

// buildOPAInput flattens shapes into one opaShapeInput per property
// constraint and precomputes every focus-node/path count Rego needs,
// since Rego has no access to this package's quad-matching helpers.
func buildOPAInput(shapes []nodeShape, data []quad.Quad) map[string]any {
	var flatShapes []opaShapeInput
	facts := map[string][]string{}
	counts := map[string]int{}

	for _, shape := range shapes {
		focuses := focusNodes(data, shape.targetClass)
		facts[shape.targetClass] = focuses
		for _, pc := range shape.properties {
			flatShapes = append(flatShapes, opaShapeInput{
				TargetClass: shape.targetClass,
				Path:        pc.path,
				MinCount:    pc.minCount,
				MaxCount:    pc.maxCount,
			})
			for _, focus := range focuses {
				counts[focus+"|"+pc.path] = countObjects(data, focus, pc.path)
			}
		}
	}

	return map[string]any{
		"shapes": flatShapes,
		"facts":  facts,
		"counts": counts,
	}
}
