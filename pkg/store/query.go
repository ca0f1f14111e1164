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

package store

import (
	"fmt"
	"strings"

	"github.com/kgcl-io/kgcl-core/pkg/quad"
)

// This file implements a deliberately small subset of SPARQL grammar —
// enough ASK/SELECT triple-pattern matching to exercise pkg/condition
// and pkg/ontology end to end. A production deployment swaps in a
// Store backed by a real SPARQL engine.
//
// Supported forms:
//   ASK { <s> <p> <o> . ?x <p2> ?y }
//   SELECT ?x ?y WHERE { <s> <p> ?x . ?x <p2> ?y }
// Terms: <iri>, ?var, "literal", "literal"@lang, "literal"^^<dt>, _:bnode.

type termPattern struct {
	isVar   bool
	varName string
	term    quad.Term
}

type triplePattern struct {
	subject, predicate, object termPattern
}

// bind attempts to unify tp against q given existing bindings, returning
// an extended binding set on success.
func (tp triplePattern) bind(q quad.Quad, in Binding) (Binding, bool) {
	out := make(Binding, len(in)+3)
	for k, v := range in {
		out[k] = v
	}
	if !unify(tp.subject, q.Subject, out) {
		return nil, false
	}
	if !unify(tp.predicate, q.Predicate, out) {
		return nil, false
	}
	if !unify(tp.object, q.Object, out) {
		return nil, false
	}
	return out, true
}

func unify(tp termPattern, actual quad.Term, b Binding) bool {
	if tp.isVar {
		if existing, bound := b[tp.varName]; bound {
			return existing == actual
		}
		b[tp.varName] = actual
		return true
	}
	return tp.term == actual
}

type parsedQuery struct {
	ask      bool
	vars     []string
	patterns []triplePattern
}

func parseQuery(query string) (parsedQuery, error) {
	q := strings.TrimSpace(query)
	upper := strings.ToUpper(q)

	var pq parsedQuery
	var body string

	switch {
	case strings.HasPrefix(upper, "ASK"):
		pq.ask = true
		start := strings.Index(q, "{")
		end := strings.LastIndex(q, "}")
		if start < 0 || end < 0 || end < start {
			return pq, fmt.Errorf("malformed ASK query: %q", query)
		}
		body = q[start+1 : end]
	case strings.HasPrefix(upper, "SELECT"):
		whereIdx := strings.Index(upper, "WHERE")
		varsStart := len("SELECT")
		varsEnd := len(q)
		if whereIdx >= 0 {
			varsEnd = whereIdx
		}
		for _, tok := range strings.Fields(q[varsStart:varsEnd]) {
			if strings.HasPrefix(tok, "?") {
				pq.vars = append(pq.vars, tok)
			}
		}
		start := strings.Index(q, "{")
		end := strings.LastIndex(q, "}")
		if start < 0 || end < 0 || end < start {
			return pq, fmt.Errorf("malformed SELECT query: %q", query)
		}
		body = q[start+1 : end]
	default:
		return pq, fmt.Errorf("unsupported query form (expected ASK/SELECT): %q", query)
	}

	for _, clause := range strings.Split(body, ".") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		tp, err := parseTriplePattern(clause)
		if err != nil {
			return pq, err
		}
		pq.patterns = append(pq.patterns, tp)
	}
	if len(pq.patterns) == 0 {
		return pq, fmt.Errorf("query has no triple patterns: %q", query)
	}
	return pq, nil
}

func parseTriplePattern(clause string) (triplePattern, error) {
	toks := tokenizeTriple(clause)
	if len(toks) != 3 {
		return triplePattern{}, fmt.Errorf("expected 3 terms in triple pattern, got %d: %q", len(toks), clause)
	}
	s, err := parseTerm(toks[0])
	if err != nil {
		return triplePattern{}, err
	}
	p, err := parseTerm(toks[1])
	if err != nil {
		return triplePattern{}, err
	}
	o, err := parseTerm(toks[2])
	if err != nil {
		return triplePattern{}, err
	}
	return triplePattern{subject: s, predicate: p, object: o}, nil
}

// tokenizeTriple splits on whitespace but keeps quoted literals (which
// may contain spaces) intact as a single token.
func tokenizeTriple(clause string) []string {
	var toks []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range clause {
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

func parseTerm(tok string) (termPattern, error) {
	switch {
	case strings.HasPrefix(tok, "?"):
		return termPattern{isVar: true, varName: tok}, nil
	case strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">"):
		return termPattern{term: quad.NewIRI(tok[1 : len(tok)-1])}, nil
	case strings.HasPrefix(tok, "_:"):
		return termPattern{term: quad.NewBlankNode(tok[2:])}, nil
	case strings.HasPrefix(tok, "\""):
		return parseLiteralTerm(tok)
	default:
		return termPattern{}, fmt.Errorf("unrecognized term: %q", tok)
	}
}

func parseLiteralTerm(tok string) (termPattern, error) {
	closeQuote := strings.LastIndex(tok, "\"")
	if closeQuote <= 0 {
		return termPattern{}, fmt.Errorf("malformed literal: %q", tok)
	}
	lexical := tok[1:closeQuote]
	suffix := tok[closeQuote+1:]
	switch {
	case strings.HasPrefix(suffix, "@"):
		return termPattern{term: quad.NewLangLiteral(lexical, suffix[1:])}, nil
	case strings.HasPrefix(suffix, "^^<") && strings.HasSuffix(suffix, ">"):
		return termPattern{term: quad.NewLiteral(lexical, suffix[3:len(suffix)-1])}, nil
	case suffix == "":
		return termPattern{term: quad.NewLiteral(lexical, "")}, nil
	default:
		return termPattern{}, fmt.Errorf("malformed literal suffix: %q", suffix)
	}
}
