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
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MerkleAnchor is a Merkle tree root computed over a batch of receipt
// leaf hashes, anchoring those receipts to a single graph_version.
type MerkleAnchor struct {
	RootHash     string
	GraphVersion uint64
	Timestamp    time.Time
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MerkleRoot computes the root hash of leaves: leaf = sha256(data),
// internal = sha256(left || right), duplicating the last leaf when a
// level has an odd count. An empty leaf set has no root; callers must
// not anchor a zero-length batch.
func MerkleRoot(leaves [][]byte) string {
	if len(leaves) == 0 {
		return ""
	}
	level := make([]string, len(leaves))
	for i, l := range leaves {
		level[i] = sha256Hex(l)
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			left, right := level[i], level[i+1]
			sum := sha256.Sum256([]byte(left + right))
			next[i/2] = hex.EncodeToString(sum[:])
		}
		level = next
	}
	return level[0]
}

// NewMerkleAnchor computes a MerkleAnchor over a batch of commit hashes
// (hex strings, one per entry in the batch) at graphVersion.
func NewMerkleAnchor(commitHashes []string, graphVersion uint64, now time.Time) MerkleAnchor {
	leaves := make([][]byte, len(commitHashes))
	for i, h := range commitHashes {
		leaves[i] = []byte(h)
	}
	return MerkleAnchor{RootHash: MerkleRoot(leaves), GraphVersion: graphVersion, Timestamp: now}
}
