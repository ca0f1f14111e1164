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
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
)

// DefaultMaxCausalDepth bounds caused_by traversal.
const DefaultMaxCausalDepth = 1000

// CompactionPolicy controls when Store.MaybeCompact actually rolls the
// hot tier into warm and warm into a new cold snapshot.
type CompactionPolicy struct {
	EventsSinceSnapshot int
	Interval            time.Duration
}

// DefaultCompactionPolicy pairs a modest event-count threshold with
// a time-based fallback so a
// low-traffic workflow still compacts eventually.
var DefaultCompactionPolicy = CompactionPolicy{EventsSinceSnapshot: DefaultMaxHotEvents, Interval: time.Hour}

// Store fronts the hot/warm/cold tiers with one Append API.
// Warm and cold are optional: a Store constructed with NewStore
// and a nil warm/cold wiring only serves the hot tier, useful for
// tests and for workflows that never need more than 10k events of
// lookback.
type Store struct {
	mu     sync.Mutex
	hot    *hotTier
	warm   *WarmStore
	cold   *ColdTier
	policy CompactionPolicy
	log    logr.Logger

	eventsSinceSnapshot int
	lastSnapshotAt      time.Time
	nextSequence        uint64
}

// NewStore constructs a Store. warm and cold may be nil (hot-tier-only
// mode); policy zero-values to DefaultCompactionPolicy.
func NewStore(hotCapacity int, warm *WarmStore, cold *ColdTier, policy CompactionPolicy, log logr.Logger) *Store {
	if policy.EventsSinceSnapshot <= 0 && policy.Interval <= 0 {
		policy = DefaultCompactionPolicy
	}
	return &Store{
		hot:            newHotTier(hotCapacity),
		warm:           warm,
		cold:           cold,
		policy:         policy,
		log:            log,
		lastSnapshotAt: time.Now().UTC(),
	}
}

// NewEventID mints a UUIDv7 event id: time-ordered, unlike the hooks
// subsystem's UUIDv4 receipt ids.
func NewEventID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", kgclerrors.Wrap(kgclerrors.StoreError, err, "minting UUIDv7 event id")
	}
	return id.String(), nil
}

// Append assigns ev its sequence_number, stores it in the hot tier, and
// evaluates the compaction policy. now is passed in (rather than read
// via time.Now inside) so callers can drive deterministic tests.
func (s *Store) Append(ctx context.Context, ev WorkflowEvent, now time.Time) (WorkflowEvent, error) {
	s.mu.Lock()
	ev.SequenceNumber = s.nextSequence
	s.nextSequence++
	s.mu.Unlock()

	if evicted, didEvict := s.hot.append(ev); didEvict && s.warm != nil {
		if err := s.warm.Append(ctx, evicted); err != nil {
			return ev, err
		}
	}

	s.mu.Lock()
	s.eventsSinceSnapshot++
	s.mu.Unlock()

	if err := s.MaybeCompact(ctx, now); err != nil {
		return ev, err
	}
	return ev, nil
}

// MaybeCompact rolls hot into warm and warm into a new cold snapshot
// once either threshold in s.policy is crossed. It is safe
// to call after every Append; it is a no-op when neither threshold has
// been crossed.
func (s *Store) MaybeCompact(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	due := s.eventsSinceSnapshot >= s.policy.EventsSinceSnapshot ||
		(s.policy.Interval > 0 && now.Sub(s.lastSnapshotAt) >= s.policy.Interval)
	s.mu.Unlock()
	if !due {
		return nil
	}
	return s.Compact(ctx, now)
}

// Compact unconditionally rolls hot -> warm -> a new cold snapshot.
// Events are never deleted: hot's drained events are
// appended to warm (if wired), and every warm event accumulated since
// the last snapshot is rolled into a fresh compressed cold batch (if a
// cold tier is wired).
func (s *Store) Compact(ctx context.Context, now time.Time) error {
	drained := s.hot.drain()
	if s.warm != nil && len(drained) > 0 {
		if err := s.warm.AppendBatch(ctx, drained); err != nil {
			return err
		}
	}
	if s.cold != nil && len(drained) > 0 {
		if _, err := s.cold.snapshot(drained); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.eventsSinceSnapshot = 0
	s.lastSnapshotAt = now
	s.mu.Unlock()
	if s.log.GetSink() != nil {
		s.log.Info("temporal store compacted", "events", len(drained))
	}
	return nil
}

// Get looks up an event by id, checking hot then warm then cold, in
// that order (hot is almost always the answer; warm/cold are the
// fallback for history beyond the hot tier's ring buffer).
func (s *Store) Get(ctx context.Context, eventID string) (WorkflowEvent, bool, error) {
	if ev, ok := s.hot.get(eventID); ok {
		return ev, true, nil
	}
	if s.warm != nil {
		if ev, ok, err := s.warm.Get(ctx, eventID); err != nil {
			return WorkflowEvent{}, false, err
		} else if ok {
			return ev, true, nil
		}
	}
	if s.cold != nil {
		for _, snap := range s.cold.all() {
			events, err := s.cold.decompress(snap)
			if err != nil {
				return WorkflowEvent{}, false, err
			}
			for _, ev := range events {
				if ev.EventID == eventID {
					return ev, true, nil
				}
			}
		}
	}
	return WorkflowEvent{}, false, nil
}

// CausalChain follows ev's caused_by links transitively, bounded by
// maxDepth (default DefaultMaxCausalDepth when <= 0), returning every
// ancestor event reached, closest-cause-first. A cycle or a chain
// longer than maxDepth simply stops rather than erroring; the bound
// is a safety valve, not a correctness check.
func (s *Store) CausalChain(ctx context.Context, eventID string, maxDepth int) ([]WorkflowEvent, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCausalDepth
	}
	seen := map[string]bool{eventID: true}
	frontier := []string{eventID}
	var chain []WorkflowEvent

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			ev, ok, err := s.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			for _, cause := range ev.CausedBy {
				if seen[cause] {
					continue
				}
				seen[cause] = true
				causeEv, ok, err := s.Get(ctx, cause)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				chain = append(chain, causeEv)
				next = append(next, cause)
			}
		}
		frontier = next
	}
	return chain, nil
}

// Replayer is a lazy, non-restartable iterator over one workflow's
// events in sequence order.
type Replayer struct {
	events []WorkflowEvent
	idx    int64
	done   int64
}

// Next advances the iterator, returning (event, true) or a zero value
// and false once exhausted. Calling Next after exhaustion keeps
// returning false — it does not restart.
func (r *Replayer) Next() (WorkflowEvent, bool) {
	if atomic.LoadInt64(&r.done) != 0 {
		return WorkflowEvent{}, false
	}
	i := atomic.AddInt64(&r.idx, 1) - 1
	if int(i) >= len(r.events) {
		atomic.StoreInt64(&r.done, 1)
		return WorkflowEvent{}, false
	}
	return r.events[i], true
}

// Replay constructs a Replayer over every event for workflowID across
// hot, warm, and cold, merged and sorted by sequence_number.
func (s *Store) Replay(ctx context.Context, workflowID string) (*Replayer, error) {
	byID := make(map[string]WorkflowEvent)
	for _, ev := range s.hot.snapshot() {
		if ev.WorkflowID == workflowID {
			byID[ev.EventID] = ev
		}
	}
	if s.warm != nil {
		warmEvents, err := s.warm.ForWorkflow(ctx, workflowID)
		if err != nil {
			return nil, err
		}
		for _, ev := range warmEvents {
			byID[ev.EventID] = ev
		}
	}
	if s.cold != nil {
		for _, snap := range s.cold.all() {
			events, err := s.cold.decompress(snap)
			if err != nil {
				return nil, err
			}
			for _, ev := range events {
				if ev.WorkflowID == workflowID {
					byID[ev.EventID] = ev
				}
			}
		}
	}
	ordered := make([]WorkflowEvent, 0, len(byID))
	for _, ev := range byID {
		ordered = append(ordered, ev)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SequenceNumber < ordered[j].SequenceNumber })
	return &Replayer{events: ordered}, nil
}
