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

package lockchain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
)

// Lockchain is the append-only, hash-chained tick-receipt log. Append
// is serialized by an internal mutex.
type Lockchain struct {
	mu      sync.Mutex
	store   CommitStore
	entries []Entry
}

// New constructs an empty Lockchain backed by store.
func New(store CommitStore) *Lockchain {
	return &Lockchain{store: store}
}

// Append writes receipt as the next lockchain entry, returning its
// 40-hex-like (here: full 64-hex sha256) commit hash. The first entry
// chains from GenesisHash.
func (l *Lockchain) Append(ctx context.Context, receipt Receipt) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := GenesisHash
	if n := len(l.entries); n > 0 {
		prev = l.entries[n-1].CommitHash
	}

	canonical, err := canonicalYAML(receipt)
	if err != nil {
		return "", kgclerrors.Wrap(kgclerrors.StoreError, err, "canonicalizing receipt for lockchain commit")
	}
	sum := sha256.Sum256(append(append([]byte{}, canonical...), []byte(prev)...))
	commitHash := hex.EncodeToString(sum[:])

	entry := Entry{Receipt: receipt, PrevCommitHash: prev, CommitHash: commitHash}
	path := fmt.Sprintf(".kgc/lockchain/tick_%06d.yaml", receipt.Tick)
	entryYAML, err := canonicalYAML(entry)
	if err != nil {
		return "", kgclerrors.Wrap(kgclerrors.StoreError, err, "canonicalizing lockchain entry")
	}
	message := fmt.Sprintf("lockchain: tick %d\nstate_before: %s\nstate_after:  %s\nconverged: %t",
		receipt.Tick, receipt.StateHashBefore, receipt.StateHashAfter, receipt.Converged)
	if err := l.store.Commit(ctx, path, entryYAML, message); err != nil {
		return "", kgclerrors.Wrap(kgclerrors.StoreError, err, "committing lockchain entry")
	}

	l.entries = append(l.entries, entry)
	return commitHash, nil
}

// Chain returns entries in chronological order, optionally limited to
// the most recent limit entries when limit > 0.
func (l *Lockchain) Chain(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit >= len(l.entries) {
		out := make([]Entry, len(l.entries))
		copy(out, l.entries)
		return out
	}
	start := len(l.entries) - limit
	out := make([]Entry, limit)
	copy(out, l.entries[start:])
	return out
}

// VerifyChain checks both hash-linkage invariants:
// prev_commit_hash linkage and state-hash continuity between
// consecutive receipts. It returns the index of the first broken entry,
// or -1 if the whole chain verifies.
func (l *Lockchain) VerifyChain() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := GenesisHash
	for i, e := range l.entries {
		if e.PrevCommitHash != prev {
			return i
		}
		if i > 0 && e.Receipt.StateHashBefore != l.entries[i-1].Receipt.StateHashAfter {
			return i
		}
		prev = e.CommitHash
	}
	return -1
}

// VerifyChainErr is VerifyChain expressed as the taxonomy's
// ChainBroken error, for callers (the Orchestrator, cmd/kgclctl) that
// want an error rather than a bare index.
func (l *Lockchain) VerifyChainErr() error {
	if idx := l.VerifyChain(); idx >= 0 {
		return kgclerrors.WithContext(
			kgclerrors.New(kgclerrors.ChainBroken, "lockchain hash-chain or state-hash continuity broken"),
			map[string]any{"broken_index": idx},
		)
	}
	return nil
}

// Len returns the number of entries appended so far.
func (l *Lockchain) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
