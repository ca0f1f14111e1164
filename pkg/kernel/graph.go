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

package kernel

import (
	"context"
	"fmt"
	"sort"

	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/store"
)

// The kernel's fixed predicate vocabulary. Flow topology follows the
// YAWL flow model: a task node
// carries a token directly (PredHasToken), and is connected to its
// successors through an intermediate flow object — TaskA
// PredFlowsInto flowObject; flowObject PredNextElementRef TaskB — so a
// single flow edge can also carry an optional guard predicate
// (PredGuardedBy) for the filter (XOR) verb.
const (
	PredHasToken    = "urn:kgc:hasToken"
	PredFlowsInto   = "urn:yawl:flowsInto"
	PredNextElement = "urn:yawl:nextElementRef"
	PredGuardedBy   = "urn:kgc:guardedBy"

	LiteralTrue = "true"
)

// Edge is one resolved successor of a focus node, with its optional
// guard predicate IRI (empty when the edge is unconditional).
type Edge struct {
	FlowObject string
	Target     string
	GuardIRI   string
}

// HasToken reports whether nodeID currently carries a token.
func HasToken(ctx context.Context, g store.Store, nodeID string) (bool, error) {
	q := fmt.Sprintf(`ASK { <%s> <%s> "%s" }`, nodeID, PredHasToken, LiteralTrue)
	return g.Ask(ctx, q)
}

// Successors resolves every outgoing flow edge of nodeID, sorted by
// guard IRI (unconditional edges sort first) so verbs that must
// tie-break deterministically can simply take index 0.
func Successors(ctx context.Context, g store.Store, nodeID string) ([]Edge, error) {
	q := fmt.Sprintf(`SELECT ?flow ?target WHERE { <%s> <%s> ?flow . ?flow <%s> ?target }`, nodeID, PredFlowsInto, PredNextElement)
	rows, err := g.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(rows))
	for _, row := range rows {
		flowObj := row["?flow"].Value
		target := row["?target"].Value
		guardIRI, err := guardOf(ctx, g, flowObj)
		if err != nil {
			return nil, err
		}
		edges = append(edges, Edge{FlowObject: flowObj, Target: target, GuardIRI: guardIRI})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].GuardIRI == "" {
			return edges[j].GuardIRI != ""
		}
		if edges[j].GuardIRI == "" {
			return false
		}
		return edges[i].GuardIRI < edges[j].GuardIRI
	})
	return edges, nil
}

func guardOf(ctx context.Context, g store.Store, flowObj string) (string, error) {
	q := fmt.Sprintf(`SELECT ?guard WHERE { <%s> <%s> ?guard }`, flowObj, PredGuardedBy)
	rows, err := g.Select(ctx, q)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0]["?guard"].Value, nil
}

// Predecessors resolves every node with a flow edge into nodeID,
// through the same two-hop flowsInto/nextElementRef pattern.
func Predecessors(ctx context.Context, g store.Store, nodeID string) ([]string, error) {
	q := fmt.Sprintf(`SELECT ?source ?flow WHERE { ?source <%s> ?flow . ?flow <%s> <%s> }`, PredFlowsInto, PredNextElement, nodeID)
	rows, err := g.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row["?source"].Value)
	}
	sort.Strings(out)
	return out, nil
}

func tokenQuad(nodeID string) quad.Quad {
	return quad.Quad{
		Subject:   quad.NewIRI(nodeID),
		Predicate: quad.NewIRI(PredHasToken),
		Object:    quad.NewLiteral(LiteralTrue, ""),
	}
}
