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

package lockchain_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kgcl-io/kgcl-core/pkg/lockchain"
)

func receiptAt(tick uint64, before, after string) lockchain.Receipt {
	return lockchain.Receipt{
		Tick:            tick,
		Timestamp:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		StateHashBefore: before,
		StateHashAfter:  after,
		RulesFired:      []string{"urn:rule:b", "urn:rule:a"},
		Converged:       tick != 0,
	}
}

func TestAppendChainsFromGenesis(t *testing.T) {
	lc := lockchain.New(lockchain.NewMemoryCommitStore())
	hash, err := lc.Append(context.Background(), receiptAt(0, "sha256:a", "sha256:b"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	entries := lc.Chain(0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].PrevCommitHash != lockchain.GenesisHash {
		t.Fatalf("expected first entry to chain from genesis, got %q", entries[0].PrevCommitHash)
	}
	if entries[0].CommitHash != hash {
		t.Fatalf("returned hash %q does not match stored entry %q", hash, entries[0].CommitHash)
	}
}

func TestVerifyChainDetectsBrokenStateHashContinuity(t *testing.T) {
	lc := lockchain.New(lockchain.NewMemoryCommitStore())
	if _, err := lc.Append(context.Background(), receiptAt(0, "sha256:a", "sha256:b")); err != nil {
		t.Fatalf("append 0: %v", err)
	}
	// Violates invariant 3: state_hash_before must equal the previous
	// entry's state_hash_after ("sha256:b").
	if _, err := lc.Append(context.Background(), receiptAt(1, "sha256:WRONG", "sha256:c")); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if idx := lc.VerifyChain(); idx != 1 {
		t.Fatalf("expected break detected at index 1, got %d", idx)
	}
	if err := lc.VerifyChainErr(); err == nil {
		t.Fatal("expected VerifyChainErr to report ChainBroken")
	}
}

func TestVerifyChainCleanChainReturnsNegativeOne(t *testing.T) {
	lc := lockchain.New(lockchain.NewMemoryCommitStore())
	if _, err := lc.Append(context.Background(), receiptAt(0, "sha256:a", "sha256:b")); err != nil {
		t.Fatalf("append 0: %v", err)
	}
	if _, err := lc.Append(context.Background(), receiptAt(1, "sha256:b", "sha256:c")); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if idx := lc.VerifyChain(); idx != -1 {
		t.Fatalf("expected clean chain, broke at %d", idx)
	}
}

func TestCanonicalYAMLSortsKeysAndFlowsRulesFired(t *testing.T) {
	store := lockchain.NewMemoryCommitStore()
	lc := lockchain.New(store)
	if _, err := lc.Append(context.Background(), receiptAt(0, "sha256:a", "sha256:b")); err != nil {
		t.Fatalf("append: %v", err)
	}
	body, ok := store.Files[".kgc/lockchain/tick_000000.yaml"]
	if !ok {
		t.Fatal("expected tick_000000.yaml to be written")
	}
	text := string(body)
	if !strings.Contains(text, "[urn:rule:b, urn:rule:a]") {
		t.Fatalf("expected rules_fired as an order-preserving flow sequence, got:\n%s", text)
	}
	// "commit_hash" must sort before "prev_commit_hash" must sort before
	// "receipt" at the entry's top level.
	ci, pi, ri := strings.Index(text, "commit_hash:"), strings.Index(text, "prev_commit_hash:"), strings.Index(text, "receipt:")
	if !(ci < pi && pi < ri) {
		t.Fatalf("expected alphabetical top-level key order commit_hash < prev_commit_hash < receipt, got offsets %d,%d,%d:\n%s", ci, pi, ri, text)
	}
}

func TestAppendIsDeterministicGivenSameInputs(t *testing.T) {
	lc1 := lockchain.New(lockchain.NewMemoryCommitStore())
	lc2 := lockchain.New(lockchain.NewMemoryCommitStore())
	h1, err := lc1.Append(context.Background(), receiptAt(0, "sha256:a", "sha256:b"))
	if err != nil {
		t.Fatalf("append 1: %v", err)
	}
	h2, err := lc2.Append(context.Background(), receiptAt(0, "sha256:a", "sha256:b"))
	if err != nil {
		t.Fatalf("append 2: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected identical commit hashes for identical receipts, got %q != %q", h1, h2)
	}
}
