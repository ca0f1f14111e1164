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

// Package lockchain implements the append-only, hash-chained receipt
// log: one canonical-YAML receipt file per tick, committed through a
// git-backed content store, with the commit hash computed over the
// canonical bytes plus the previous commit hash.
package lockchain

import (
	"time"

	"github.com/kgcl-io/kgcl-core/pkg/hook"
)

// GenesisHash is the fixed prev_commit_hash of the first lockchain
// entry.
const GenesisHash = "4d7c606c9002d3043ee3979533922e25752bd2755709057060b553593605bd62"

// Receipt is the YAML-serializable view of a tick receipt this package
// chains. It mirrors pkg/tick.Receipt's fields but owns its own type so
// canonical YAML field names/ordering are this package's concern, not
// the scheduler's.
type Receipt struct {
	Tick            uint64        `yaml:"tick"`
	Timestamp       time.Time     `yaml:"timestamp"`
	StateHashBefore string        `yaml:"state_hash_before"`
	StateHashAfter  string        `yaml:"state_hash_after"`
	RulesFired      []string      `yaml:"rules_fired"`
	TriplesAdded    uint32        `yaml:"triples_added"`
	TriplesRemoved  uint32        `yaml:"triples_removed"`
	Converged       bool          `yaml:"converged"`
	HookReceipts    []HookReceipt `yaml:"hook_receipts"`
}

// HookReceipt is the YAML-serializable view of a hook.Receipt.
type HookReceipt struct {
	ReceiptID     string         `yaml:"receipt_id"`
	HookID        string         `yaml:"hook_id"`
	Timestamp     time.Time      `yaml:"timestamp"`
	Actor         string         `yaml:"actor,omitempty"`
	Triggered     bool           `yaml:"triggered"`
	HandlerResult map[string]any `yaml:"handler_result,omitempty"`
	DurationMS    int64          `yaml:"duration_ms"`
	Error         string         `yaml:"error,omitempty"`
	Truncated     bool           `yaml:"truncated"`
	MerkleAnchor  string         `yaml:"merkle_anchor,omitempty"`
}

// FromHookReceipt projects a hook.Receipt into its YAML-serializable form.
func FromHookReceipt(r hook.Receipt) HookReceipt {
	res, _ := r.HandlerResult()
	out := HookReceipt{
		ReceiptID:  r.ReceiptID(),
		HookID:     r.HookID(),
		Timestamp:  r.Timestamp(),
		Actor:      r.Actor(),
		Triggered:  r.ConditionResult().Triggered,
		DurationMS: r.DurationMS(),
		Error:      r.Error(),
		Truncated:  r.Truncated(),
	}
	if res != nil {
		out.HandlerResult = res
	}
	if anchor, ok := r.MerkleAnchor(); ok {
		out.MerkleAnchor = anchor
	}
	return out
}

// Entry is one lockchain entry: a receipt plus the hash
// linkage to its predecessor.
type Entry struct {
	Receipt        Receipt `yaml:"receipt"`
	PrevCommitHash string  `yaml:"prev_commit_hash"`
	CommitHash     string  `yaml:"commit_hash"`
}
