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

package temporal

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/klauspost/compress/zstd"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
)

// ColdSnapshot is one zstd-compressed batch of events, indexed by the
// sequence_number range it covers so lookups can binary-search a
// sorted index keyed by sequence_number.
type ColdSnapshot struct {
	FirstSequence uint64
	LastSequence  uint64
	Compressed    []byte
	RawSize       int
}

// CompressionRatio is RawSize / len(Compressed); the target is > 3:1.
func (s ColdSnapshot) CompressionRatio() float64 {
	if len(s.Compressed) == 0 {
		return 0
	}
	return float64(s.RawSize) / float64(len(s.Compressed))
}

// ColdTier stores zstd-compressed snapshots, sorted by sequence range,
// for cold lookups and full decompression during replay.
type ColdTier struct {
	mu        sync.RWMutex
	snapshots []ColdSnapshot
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

func NewColdTier() (*ColdTier, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, "constructing zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, "constructing zstd decoder")
	}
	return &ColdTier{encoder: enc, decoder: dec}, nil
}

// snapshot compresses events (already sorted by sequence_number
// ascending by the caller) into one new ColdSnapshot.
func (c *ColdTier) snapshot(events []WorkflowEvent) (ColdSnapshot, error) {
	if len(events) == 0 {
		return ColdSnapshot{}, kgclerrors.New(kgclerrors.StoreError, "cannot snapshot an empty event batch")
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return ColdSnapshot{}, kgclerrors.Wrap(kgclerrors.StoreError, err, "marshaling cold snapshot batch")
	}
	compressed := c.encoder.EncodeAll(raw, nil)
	snap := ColdSnapshot{
		FirstSequence: events[0].SequenceNumber,
		LastSequence:  events[len(events)-1].SequenceNumber,
		Compressed:    compressed,
		RawSize:       len(raw),
	}
	c.mu.Lock()
	c.snapshots = append(c.snapshots, snap)
	sort.Slice(c.snapshots, func(i, j int) bool { return c.snapshots[i].FirstSequence < c.snapshots[j].FirstSequence })
	c.mu.Unlock()
	return snap, nil
}

// decompress returns every event in snap.
func (c *ColdTier) decompress(snap ColdSnapshot) ([]WorkflowEvent, error) {
	raw, err := c.decoder.DecodeAll(snap.Compressed, nil)
	if err != nil {
		return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, "decompressing cold snapshot")
	}
	var events []WorkflowEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, "unmarshaling cold snapshot batch")
	}
	return events, nil
}

// findBySequence returns the snapshot covering sequenceNumber, if any.
func (c *ColdTier) findBySequence(sequenceNumber uint64) (ColdSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := sort.Search(len(c.snapshots), func(i int) bool { return c.snapshots[i].LastSequence >= sequenceNumber })
	if idx == len(c.snapshots) {
		return ColdSnapshot{}, false
	}
	snap := c.snapshots[idx]
	if sequenceNumber < snap.FirstSequence {
		return ColdSnapshot{}, false
	}
	return snap, true
}

func (c *ColdTier) all() []ColdSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ColdSnapshot, len(c.snapshots))
	copy(out, c.snapshots)
	return out
}
