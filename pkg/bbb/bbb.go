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

// Package bbb implements the Blood-Brain-Barrier ingress validator:
// every external input enters the core as a validated
// QuadDelta, never as raw quads applied directly to the store. A
// document is parsed, size-bounded by the Chatman constant, and
// checked against a fixed set of SHACL shapes before it is handed back
// to the caller as a quad.Delta.
package bbb

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/jx"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/ontology"
	"github.com/kgcl-io/kgcl-core/pkg/quad"
	"github.com/kgcl-io/kgcl-core/pkg/shacl"
)

// Barrier enforces the three ingress checks: parse, Chatman-constant
// bound, SHACL validation.
type Barrier struct {
	validator shacl.Validator
	shapesTTL string
}

// New constructs a Barrier. shapesTTL is the fixed set of SHACL shapes
// every admitted delta is checked against; pass an
// empty string to skip shape validation (size-bound checking still
// applies).
func New(validator shacl.Validator, shapesTTL string) *Barrier {
	return &Barrier{validator: validator, shapesTTL: shapesTTL}
}

// Admit parses raw as an ingress document and returns the validated
// quad.Delta or a TopologyViolation. Two document forms are accepted:
// a JSON document of the form {"additions": [...], "removals": [...]},
// where each entry is {"subject", "predicate", "object",
// "object_kind": "iri"|"blank"|"literal", "datatype", "lang"}, or a
// Turtle fragment (one triple per line, the same restricted grammar
// kgc_physics.ttl and the SHACL shapes use), whose triples all become
// additions. A document whose first non-blank byte is '{' is decoded
// as JSON; anything else is parsed as Turtle.
func (b *Barrier) Admit(ctx context.Context, raw []byte) (quad.Delta, error) {
	additions, removals, err := decodeIngressDoc(raw)
	if err != nil {
		return quad.Delta{}, kgclerrors.Wrap(kgclerrors.TopologyViolation, err, "bbb: malformed ingress document")
	}
	delta := quad.Delta{Additions: additions, Removals: removals}

	if !delta.WithinChatmanConstant() {
		return quad.Delta{}, kgclerrors.WithContext(
			kgclerrors.New(kgclerrors.TopologyViolation, "delta exceeds the Chatman constant"),
			map[string]any{"size": delta.Size(), "limit": quad.ChatmanConstant},
		)
	}

	if b.validator != nil && b.shapesTTL != "" {
		report, err := b.validator.Validate(ctx, delta.Additions, b.shapesTTL)
		if err != nil {
			return quad.Delta{}, kgclerrors.Wrap(kgclerrors.TopologyViolation, err, "bbb: shacl validation failed to run")
		}
		if !report.Conforms {
			ids := make([]string, len(report.Violations))
			for i, v := range report.Violations {
				ids[i] = v.FocusNode + " " + v.ResultPath
			}
			return quad.Delta{}, kgclerrors.WithContext(
				kgclerrors.New(kgclerrors.TopologyViolation, "delta violates ingress shapes"),
				map[string]any{"violations": ids},
			)
		}
	}

	return delta, nil
}

// decodeIngressDoc dispatches on the document form: JSON delta
// documents go through decodeDeltaDoc, everything else is treated as a
// Turtle fragment whose triples are all additions (a removal can only
// be expressed through the JSON form).
func decodeIngressDoc(raw []byte) (additions, removals []quad.Quad, err error) {
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		return decodeDeltaDoc(raw)
	}
	quads, err := ontology.ParseTurtleSubset(string(raw))
	if err != nil {
		return nil, nil, err
	}
	if len(quads) == 0 {
		return nil, nil, fmt.Errorf("turtle fragment contains no triples")
	}
	return quads, nil, nil
}

// decodeDeltaDoc decodes raw using go-faster/jx's streaming decoder
// rather than encoding/json's reflection-based Unmarshal.
func decodeDeltaDoc(raw []byte) (additions, removals []quad.Quad, err error) {
	d := jx.DecodeBytes(raw)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "additions":
			qs, err := decodeQuadArray(d)
			if err != nil {
				return fmt.Errorf("additions: %w", err)
			}
			additions = qs
		case "removals":
			qs, err := decodeQuadArray(d)
			if err != nil {
				return fmt.Errorf("removals: %w", err)
			}
			removals = qs
		default:
			return d.Skip()
		}
		return nil
	})
	return additions, removals, err
}

func decodeQuadArray(d *jx.Decoder) ([]quad.Quad, error) {
	var out []quad.Quad
	err := d.Arr(func(d *jx.Decoder) error {
		q, err := decodeQuad(d)
		if err != nil {
			return err
		}
		out = append(out, q)
		return nil
	})
	return out, err
}

func decodeQuad(d *jx.Decoder) (quad.Quad, error) {
	var subject, predicate, object, objectKind, datatype, lang, graph string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var s string
		var err error
		switch key {
		case "subject":
			s, err = d.Str()
			subject = s
		case "predicate":
			s, err = d.Str()
			predicate = s
		case "object":
			s, err = d.Str()
			object = s
		case "object_kind":
			s, err = d.Str()
			objectKind = s
		case "datatype":
			s, err = d.Str()
			datatype = s
		case "lang":
			s, err = d.Str()
			lang = s
		case "graph":
			s, err = d.Str()
			graph = s
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return quad.Quad{}, err
	}
	if subject == "" || predicate == "" {
		return quad.Quad{}, fmt.Errorf("quad missing subject or predicate")
	}

	var objTerm quad.Term
	switch objectKind {
	case "", "iri":
		objTerm = quad.NewIRI(object)
	case "blank":
		objTerm = quad.NewBlankNode(object)
	case "literal":
		if lang != "" {
			objTerm = quad.NewLangLiteral(object, lang)
		} else {
			objTerm = quad.NewLiteral(object, datatype)
		}
	default:
		return quad.Quad{}, fmt.Errorf("unknown object_kind %q", objectKind)
	}

	q := quad.Quad{Subject: quad.NewIRI(subject), Predicate: quad.NewIRI(predicate), Object: objTerm}
	if graph != "" {
		q.Graph = graph
	}
	return q, nil
}
