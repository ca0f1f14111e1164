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

// Package temporal implements the tiered (hot/warm/cold) Workflow Event
// Store: a fast in-memory tier fronting a durable Postgres-backed
// tier, rolled up into compressed cold snapshots.
package temporal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// VectorClock tracks per-workflow-participant logical time, letting
// consumers reconstruct causal (not just total) order.
type VectorClock map[string]uint64

// canonicalString renders the clock deterministically for hashing:
// participant keys sorted, "k=v" pairs comma-joined.
func (vc VectorClock) canonicalString() string {
	keys := make([]string, 0, len(vc))
	for k := range vc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, vc[k])
	}
	return strings.Join(parts, ",")
}

// WorkflowEvent is one entry in a workflow's causal/temporal history.
type WorkflowEvent struct {
	EventID        string
	EventType      string
	Timestamp      time.Time
	TickNumber     uint64
	WorkflowID     string
	Payload        map[string]any
	CausedBy       []string
	VectorClock    VectorClock
	PreviousHash   string
	SequenceNumber uint64
}

// Hash computes event_hash = sha256(canonical(fields)). The
// canonical form concatenates every field in a fixed order with field
// separators that cannot occur in the encoded values themselves
// (newlines), so it is collision-resistant across reasonable payloads
// without needing a full canonical-JSON implementation.
func (e WorkflowEvent) Hash() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s\n%d\n%s\n", e.EventID, e.EventType, e.Timestamp.UTC().Format(time.RFC3339Nano), e.TickNumber, e.WorkflowID)
	fmt.Fprintf(&b, "%s\n", canonicalPayload(e.Payload))
	sortedCaused := append([]string(nil), e.CausedBy...)
	sort.Strings(sortedCaused)
	fmt.Fprintf(&b, "%s\n%s\n%s\n%d\n", strings.Join(sortedCaused, ","), e.VectorClock.canonicalString(), e.PreviousHash, e.SequenceNumber)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// canonicalPayload renders a payload map with sorted keys so Hash is
// independent of Go's randomized map iteration order.
func canonicalPayload(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, payload[k])
	}
	return strings.Join(parts, "&")
}

// Tier identifies which storage tier currently (or originally) holds an
// event, for observability and targeted lookups.
type Tier string

const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
)
