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

package ontology

import (
	"fmt"
	"strings"

	"github.com/kgcl-io/kgcl-core/pkg/quad"
)

// ParseTurtleSubset parses the restricted Turtle grammar kgc_physics.ttl
// actually needs: one triple per line, `<subject> <predicate> <object-or-literal> .`,
// blank lines and lines starting with "#" ignored. Full Turtle/N3
// parsing belongs to an external RDF library; this exists only so a
// physics ontology document can be loaded without one.
func ParseTurtleSubset(ttl string) ([]quad.Quad, error) {
	var quads []quad.Quad
	for lineNo, raw := range strings.Split(ttl, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSuffix(line, ".")
		line = strings.TrimSpace(line)
		toks := splitTurtleLine(line)
		if len(toks) != 3 {
			return nil, fmt.Errorf("turtle line %d: expected 3 terms, got %d: %q", lineNo+1, len(toks), raw)
		}
		s, err := parseTurtleIRIOrBlank(toks[0])
		if err != nil {
			return nil, fmt.Errorf("turtle line %d: %w", lineNo+1, err)
		}
		p, err := parseTurtleIRIOrBlank(toks[1])
		if err != nil {
			return nil, fmt.Errorf("turtle line %d: %w", lineNo+1, err)
		}
		o, err := parseTurtleObject(toks[2])
		if err != nil {
			return nil, fmt.Errorf("turtle line %d: %w", lineNo+1, err)
		}
		quads = append(quads, quad.Quad{Subject: s, Predicate: p, Object: o})
	}
	return quads, nil
}

func splitTurtleLine(line string) []string {
	var toks []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ' ' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

func parseTurtleIRIOrBlank(tok string) (quad.Term, error) {
	switch {
	case strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">"):
		return quad.NewIRI(tok[1 : len(tok)-1]), nil
	case strings.HasPrefix(tok, "_:"):
		return quad.NewBlankNode(tok[2:]), nil
	default:
		return quad.Term{}, fmt.Errorf("expected <iri> or _:blank, got %q", tok)
	}
}

func parseTurtleObject(tok string) (quad.Term, error) {
	if strings.HasPrefix(tok, "\"") {
		closeQuote := strings.LastIndex(tok, "\"")
		if closeQuote <= 0 {
			return quad.Term{}, fmt.Errorf("malformed literal: %q", tok)
		}
		lexical := tok[1:closeQuote]
		suffix := tok[closeQuote+1:]
		switch {
		case strings.HasPrefix(suffix, "@"):
			return quad.NewLangLiteral(lexical, suffix[1:]), nil
		case strings.HasPrefix(suffix, "^^<") && strings.HasSuffix(suffix, ">"):
			return quad.NewLiteral(lexical, suffix[3:len(suffix)-1]), nil
		case suffix == "":
			return quad.NewLiteral(lexical, ""), nil
		default:
			return quad.Term{}, fmt.Errorf("malformed literal suffix: %q", suffix)
		}
	}
	return parseTurtleIRIOrBlank(tok)
}
