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

// Package wfnet implements the Petri-net / workflow-net formalism:
// Places, Transitions, Arcs, Markings, and the
// enabled/fire/preset/postset/is_proper_wf_net operations used to
// formally verify a workflow's structure independent of the live
// RDF-backed token model in pkg/kernel.
package wfnet

import (
	"fmt"
	"sort"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
)

// Place is a passive net element that holds tokens.
type Place struct {
	ID       string
	Name     string
	IsSource bool
	IsSink   bool
}

// Transition is an active net element that fires when enabled.
type Transition struct {
	ID       string
	Name     string
	IsSilent bool
	Guard    string
}

// Arc connects a place to a transition or a transition to a place,
// with an integer weight (default 1). Arc equality for preset/postset
// purposes is (Source, Target) only; weight does not distinguish arcs.
type Arc struct {
	Source string
	Target string
	Weight int
}

// TokenCount is one (place, count) pair of a Marking.
type TokenCount struct {
	PlaceID string
	Count   int
}

// Marking is an immutable token distribution: a sorted-by-place-id
// list of non-zero token counts, so two markings with the same
// support are trivially comparable. Every method returns a new
// Marking rather than mutating.
type Marking struct {
	tokens []TokenCount
}

// NewMarking builds a Marking from a place->count map, eliding
// zero-count entries and sorting by place id.
func NewMarking(counts map[string]int) Marking {
	tokens := make([]TokenCount, 0, len(counts))
	for pid, c := range counts {
		if c > 0 {
			tokens = append(tokens, TokenCount{PlaceID: pid, Count: c})
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].PlaceID < tokens[j].PlaceID })
	return Marking{tokens: tokens}
}

// Get returns the token count at placeID (0 if absent).
func (m Marking) Get(placeID string) int {
	for _, tc := range m.tokens {
		if tc.PlaceID == placeID {
			return tc.Count
		}
	}
	return 0
}

// Add returns a new Marking with count additional tokens at placeID.
func (m Marking) Add(placeID string, count int) Marking {
	out := m.toMap()
	out[placeID] += count
	return NewMarking(out)
}

// Remove returns a new Marking with count tokens removed from placeID.
// It errors if placeID does not currently hold enough tokens.
func (m Marking) Remove(placeID string, count int) (Marking, error) {
	out := m.toMap()
	current := out[placeID]
	if current < count {
		return Marking{}, kgclerrors.New(kgclerrors.TransitionNotEnabled,
			fmt.Sprintf("cannot remove %d tokens from %s, only %d available", count, placeID, current))
	}
	out[placeID] = current - count
	return NewMarking(out), nil
}

// Len returns the total token count across all places.
func (m Marking) Len() int {
	total := 0
	for _, tc := range m.tokens {
		total += tc.Count
	}
	return total
}

// PlacesWithTokens returns the set of place ids holding at least one
// token.
func (m Marking) PlacesWithTokens() map[string]struct{} {
	out := make(map[string]struct{}, len(m.tokens))
	for _, tc := range m.tokens {
		out[tc.PlaceID] = struct{}{}
	}
	return out
}

func (m Marking) toMap() map[string]int {
	out := make(map[string]int, len(m.tokens))
	for _, tc := range m.tokens {
		out[tc.PlaceID] = tc.Count
	}
	return out
}

// Net is an immutable Petri net: places, transitions, and arcs indexed
// by id, consulted but never mutated in place.
type Net struct {
	Name        string
	places      map[string]Place
	transitions map[string]Transition
	arcs        []Arc
}

// NewNet constructs a Net from its places, transitions, and arcs.
func NewNet(name string, places []Place, transitions []Transition, arcs []Arc) *Net {
	n := &Net{
		Name:        name,
		places:      make(map[string]Place, len(places)),
		transitions: make(map[string]Transition, len(transitions)),
		arcs:        append([]Arc(nil), arcs...),
	}
	for _, p := range places {
		n.places[p.ID] = p
	}
	for _, t := range transitions {
		n.transitions[t.ID] = t
	}
	return n
}

// Place returns the place with the given id, if present.
func (n *Net) Place(id string) (Place, bool) {
	p, ok := n.places[id]
	return p, ok
}

// Transition returns the transition with the given id, if present.
func (n *Net) Transition(id string) (Transition, bool) {
	t, ok := n.transitions[id]
	return t, ok
}

// Places returns every place in the net.
func (n *Net) Places() []Place {
	out := make([]Place, 0, len(n.places))
	for _, p := range n.places {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Preset returns the ids of nodes with an arc into nodeID.
func (n *Net) Preset(nodeID string) []string {
	var out []string
	for _, a := range n.arcs {
		if a.Target == nodeID {
			out = append(out, a.Source)
		}
	}
	return dedupSorted(out)
}

// Postset returns the ids of nodes with an arc from nodeID.
func (n *Net) Postset(nodeID string) []string {
	var out []string
	for _, a := range n.arcs {
		if a.Source == nodeID {
			out = append(out, a.Target)
		}
	}
	return dedupSorted(out)
}

// InputArcs returns the arcs targeting nodeID.
func (n *Net) InputArcs(nodeID string) []Arc {
	var out []Arc
	for _, a := range n.arcs {
		if a.Target == nodeID {
			out = append(out, a)
		}
	}
	return out
}

// OutputArcs returns the arcs originating from nodeID.
func (n *Net) OutputArcs(nodeID string) []Arc {
	var out []Arc
	for _, a := range n.arcs {
		if a.Source == nodeID {
			out = append(out, a)
		}
	}
	return out
}

// SourcePlace returns the unique place with IsSource set, or false if
// there isn't exactly one.
func (n *Net) SourcePlace() (Place, bool) {
	var found Place
	count := 0
	for _, p := range n.places {
		if p.IsSource {
			found = p
			count++
		}
	}
	return found, count == 1
}

// SinkPlace returns the unique place with IsSink set, or false if there
// isn't exactly one.
func (n *Net) SinkPlace() (Place, bool) {
	var found Place
	count := 0
	for _, p := range n.places {
		if p.IsSink {
			found = p
			count++
		}
	}
	return found, count == 1
}

// IsEnabled reports whether transitionID is enabled at marking: every
// input place holds at least the arc's weight in tokens.
func (n *Net) IsEnabled(transitionID string, marking Marking) bool {
	for _, a := range n.InputArcs(transitionID) {
		if marking.Get(a.Source) < a.Weight {
			return false
		}
	}
	return true
}

// EnabledTransitions returns the ids of every transition enabled at
// marking.
func (n *Net) EnabledTransitions(marking Marking) []string {
	var out []string
	for id := range n.transitions {
		if n.IsEnabled(id, marking) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Fire fires transitionID at marking, returning the resulting marking.
// It fails with TransitionNotEnabled if the transition is not enabled.
func (n *Net) Fire(transitionID string, marking Marking) (Marking, error) {
	if !n.IsEnabled(transitionID, marking) {
		return Marking{}, kgclerrors.New(kgclerrors.TransitionNotEnabled,
			fmt.Sprintf("transition %s not enabled at given marking", transitionID))
	}
	next := marking
	for _, a := range n.InputArcs(transitionID) {
		var err error
		next, err = next.Remove(a.Source, a.Weight)
		if err != nil {
			return Marking{}, err
		}
	}
	for _, a := range n.OutputArcs(transitionID) {
		next = next.Add(a.Target, a.Weight)
	}
	return next, nil
}

func dedupSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// InitialMarking returns the marking with one token in the net's unique
// source place.
func (n *Net) InitialMarking() (Marking, error) {
	source, ok := n.SourcePlace()
	if !ok {
		return Marking{}, kgclerrors.New(kgclerrors.TopologyViolation, "workflow net has no unique source place")
	}
	return NewMarking(map[string]int{source.ID: 1}), nil
}

// FinalMarking returns the marking with one token in the net's unique
// sink place.
func (n *Net) FinalMarking() (Marking, error) {
	sink, ok := n.SinkPlace()
	if !ok {
		return Marking{}, kgclerrors.New(kgclerrors.TopologyViolation, "workflow net has no unique sink place")
	}
	return NewMarking(map[string]int{sink.ID: 1}), nil
}

// IsProperWFNet verifies the structural WF-net invariants:
// exactly one structural source (no incoming arcs) and one structural
// sink (no outgoing arcs), each consistent with its IsSource/IsSink
// flag, and every place reachable from the source and able to reach
// the sink. It returns a descriptive reason alongside the bool.
func (n *Net) IsProperWFNet() (bool, string) {
	var structuralSources, structuralSinks []Place
	for _, p := range n.Places() {
		if len(n.Preset(p.ID)) == 0 {
			structuralSources = append(structuralSources, p)
		}
		if len(n.Postset(p.ID)) == 0 {
			structuralSinks = append(structuralSinks, p)
		}
	}
	if len(structuralSources) != 1 {
		return false, fmt.Sprintf("expected 1 source place, found %d", len(structuralSources))
	}
	if len(structuralSinks) != 1 {
		return false, fmt.Sprintf("expected 1 sink place, found %d", len(structuralSinks))
	}
	source, sink := structuralSources[0], structuralSinks[0]
	if !source.IsSource {
		return false, fmt.Sprintf("source place %s not marked as source", source.ID)
	}
	if !sink.IsSink {
		return false, fmt.Sprintf("sink place %s not marked as sink", sink.ID)
	}
	if !n.everyNodeOnSourceToSinkPath(source.ID, sink.ID) {
		return false, "not every node lies on a path from source to sink"
	}
	return true, "valid WF-net structure"
}

// everyNodeOnSourceToSinkPath checks that every place and transition is
// both reachable from source and able to reach sink, by a pair of
// forward/backward BFS over the arc relation.
func (n *Net) everyNodeOnSourceToSinkPath(sourceID, sinkID string) bool {
	forward := n.reachable(sourceID, func(id string) []string { return n.Postset(id) })
	backward := n.reachable(sinkID, func(id string) []string { return n.Preset(id) })

	for id := range n.places {
		if _, ok := forward[id]; !ok {
			return false
		}
		if _, ok := backward[id]; !ok {
			return false
		}
	}
	for id := range n.transitions {
		if _, ok := forward[id]; !ok {
			return false
		}
		if _, ok := backward[id]; !ok {
			return false
		}
	}
	return true
}

func (n *Net) reachable(start string, next func(string) []string) map[string]struct{} {
	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range next(cur) {
			if _, ok := visited[nb]; !ok {
				visited[nb] = struct{}{}
				queue = append(queue, nb)
			}
		}
	}
	return visited
}

// FiringSequence is an immutable, ordered record of transition ids
// fired so far.
type FiringSequence struct {
	transitions []string
}

// Append returns a new FiringSequence with transitionID appended.
func (f FiringSequence) Append(transitionID string) FiringSequence {
	out := make([]string, len(f.transitions)+1)
	copy(out, f.transitions)
	out[len(f.transitions)] = transitionID
	return FiringSequence{transitions: out}
}

// Transitions returns the sequence's transition ids in firing order.
func (f FiringSequence) Transitions() []string {
	return append([]string(nil), f.transitions...)
}

// Len returns the number of firings recorded.
func (f FiringSequence) Len() int { return len(f.transitions) }
