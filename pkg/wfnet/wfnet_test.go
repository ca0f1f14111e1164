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

package wfnet_test

import (
	"testing"

	"github.com/kgcl-io/kgcl-core/pkg/wfnet"
)

// sequenceNet builds i -> t1 -> p1 -> t2 -> o, the minimal proper
// WF-net.
func sequenceNet() *wfnet.Net {
	places := []wfnet.Place{
		{ID: "i", IsSource: true},
		{ID: "p1"},
		{ID: "o", IsSink: true},
	}
	transitions := []wfnet.Transition{
		{ID: "t1"},
		{ID: "t2"},
	}
	arcs := []wfnet.Arc{
		{Source: "i", Target: "t1", Weight: 1},
		{Source: "t1", Target: "p1", Weight: 1},
		{Source: "p1", Target: "t2", Weight: 1},
		{Source: "t2", Target: "o", Weight: 1},
	}
	return wfnet.NewNet("sequence", places, transitions, arcs)
}

func TestSequenceNetIsProper(t *testing.T) {
	n := sequenceNet()
	ok, reason := n.IsProperWFNet()
	if !ok {
		t.Fatalf("expected proper WF-net, got reason: %s", reason)
	}
}

func TestFireMovesTokensAlongSequence(t *testing.T) {
	n := sequenceNet()
	m, err := n.InitialMarking()
	if err != nil {
		t.Fatalf("InitialMarking: %v", err)
	}
	if m.Get("i") != 1 {
		t.Fatalf("expected initial token in i")
	}

	if !n.IsEnabled("t1", m) {
		t.Fatalf("expected t1 enabled at initial marking")
	}
	m, err = n.Fire("t1", m)
	if err != nil {
		t.Fatalf("Fire t1: %v", err)
	}
	if m.Get("i") != 0 || m.Get("p1") != 1 {
		t.Fatalf("unexpected marking after t1: i=%d p1=%d", m.Get("i"), m.Get("p1"))
	}

	m, err = n.Fire("t2", m)
	if err != nil {
		t.Fatalf("Fire t2: %v", err)
	}
	final, err := n.FinalMarking()
	if err != nil {
		t.Fatalf("FinalMarking: %v", err)
	}
	if m.Get("o") != final.Get("o") {
		t.Fatalf("expected marking to reach the final marking, got o=%d want %d", m.Get("o"), final.Get("o"))
	}
}

func TestFireFailsWhenNotEnabled(t *testing.T) {
	n := sequenceNet()
	m := wfnet.NewMarking(map[string]int{"p1": 1})
	if _, err := n.Fire("t1", m); err == nil {
		t.Fatalf("expected TransitionNotEnabled error")
	}
}

func TestMarkingRemoveInsufficientTokensErrors(t *testing.T) {
	m := wfnet.NewMarking(map[string]int{"p1": 1})
	if _, err := m.Remove("p1", 2); err == nil {
		t.Fatalf("expected error removing more tokens than available")
	}
}

func TestIsProperWFNetRejectsMultipleSources(t *testing.T) {
	places := []wfnet.Place{
		{ID: "i1", IsSource: true},
		{ID: "i2", IsSource: true},
		{ID: "o", IsSink: true},
	}
	transitions := []wfnet.Transition{{ID: "t1"}}
	arcs := []wfnet.Arc{
		{Source: "i1", Target: "t1"},
		{Source: "i2", Target: "t1"},
		{Source: "t1", Target: "o"},
	}
	n := wfnet.NewNet("bad", places, transitions, arcs)
	ok, reason := n.IsProperWFNet()
	if ok {
		t.Fatalf("expected improper WF-net")
	}
	if reason == "" {
		t.Fatalf("expected a descriptive reason")
	}
}

func TestIsProperWFNetRejectsDisconnectedNode(t *testing.T) {
	places := []wfnet.Place{
		{ID: "i", IsSource: true},
		{ID: "orphan"},
		{ID: "o", IsSink: true},
	}
	transitions := []wfnet.Transition{{ID: "t1"}}
	arcs := []wfnet.Arc{
		{Source: "i", Target: "t1"},
		{Source: "t1", Target: "o"},
	}
	n := wfnet.NewNet("disconnected", places, transitions, arcs)
	ok, _ := n.IsProperWFNet()
	if ok {
		t.Fatalf("expected improper WF-net due to orphan place")
	}
}

func TestFiringSequenceAppendIsImmutable(t *testing.T) {
	var seq wfnet.FiringSequence
	seq2 := seq.Append("t1")
	if seq.Len() != 0 {
		t.Fatalf("expected original sequence untouched")
	}
	if seq2.Len() != 1 || seq2.Transitions()[0] != "t1" {
		t.Fatalf("unexpected appended sequence: %+v", seq2.Transitions())
	}
}
