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
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
)

// DefaultMaxWarmEvents is the warm tier's default retention budget.
// It is advisory here: rows are never deleted by compaction, only
// rolled into the cold tier.
const DefaultMaxWarmEvents = 1_000_000

// WarmStore is the on-disk, append-only event log, backed by
// Postgres through sqlx.
type WarmStore struct {
	db *sqlx.DB
}

// NewWarmStore wraps an already-migrated *sql.DB (see Migrate) as a
// WarmStore.
func NewWarmStore(db *sql.DB) *WarmStore {
	return &WarmStore{db: sqlx.NewDb(db, "pgx")}
}

type warmRow struct {
	EventID        string         `db:"event_id"`
	EventType      string         `db:"event_type"`
	Timestamp      sql.NullTime   `db:"ts"`
	TickNumber     int64          `db:"tick_number"`
	WorkflowID     string         `db:"workflow_id"`
	Payload        []byte         `db:"payload"`
	CausedBy       pq.StringArray `db:"caused_by"`
	VectorClock    []byte         `db:"vector_clock"`
	PreviousHash   string         `db:"previous_hash"`
	SequenceNumber int64          `db:"sequence_number"`
}

// Append inserts ev. Warm storage is append-only: a conflicting
// event_id is an error, never an upsert.
func (w *WarmStore) Append(ctx context.Context, ev WorkflowEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return kgclerrors.Wrap(kgclerrors.StoreError, err, "marshaling event payload")
	}
	vc, err := json.Marshal(ev.VectorClock)
	if err != nil {
		return kgclerrors.Wrap(kgclerrors.StoreError, err, "marshaling vector clock")
	}
	const q = `INSERT INTO temporal_events
		(event_id, event_type, ts, tick_number, workflow_id, payload, caused_by, vector_clock, previous_hash, sequence_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = w.db.ExecContext(ctx, q,
		ev.EventID, ev.EventType, ev.Timestamp, ev.TickNumber, ev.WorkflowID,
		payload, pq.StringArray(ev.CausedBy), vc, ev.PreviousHash, ev.SequenceNumber)
	if err != nil {
		return kgclerrors.Wrap(kgclerrors.StoreError, err, "inserting temporal event")
	}
	return nil
}

// AppendBatch inserts events in one transaction, matching the warm
// tier's role as compaction's roll-up destination.
func (w *WarmStore) AppendBatch(ctx context.Context, events []WorkflowEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return kgclerrors.Wrap(kgclerrors.StoreError, err, "beginning warm-tier batch transaction")
	}
	defer tx.Rollback()

	const q = `INSERT INTO temporal_events
		(event_id, event_type, ts, tick_number, workflow_id, payload, caused_by, vector_clock, previous_hash, sequence_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return kgclerrors.Wrap(kgclerrors.StoreError, err, "marshaling event payload")
		}
		vc, err := json.Marshal(ev.VectorClock)
		if err != nil {
			return kgclerrors.Wrap(kgclerrors.StoreError, err, "marshaling vector clock")
		}
		if _, err := tx.ExecContext(ctx, q,
			ev.EventID, ev.EventType, ev.Timestamp, ev.TickNumber, ev.WorkflowID,
			payload, pq.StringArray(ev.CausedBy), vc, ev.PreviousHash, ev.SequenceNumber); err != nil {
			return kgclerrors.Wrap(kgclerrors.StoreError, err, "inserting temporal event in batch")
		}
	}
	if err := tx.Commit(); err != nil {
		return kgclerrors.Wrap(kgclerrors.StoreError, err, "committing warm-tier batch")
	}
	return nil
}

// Get looks up a single event by id.
func (w *WarmStore) Get(ctx context.Context, eventID string) (WorkflowEvent, bool, error) {
	const q = `SELECT event_id, event_type, ts, tick_number, workflow_id, payload, caused_by, vector_clock, previous_hash, sequence_number
		FROM temporal_events WHERE event_id = $1`
	var row warmRow
	if err := w.db.GetContext(ctx, &row, q, eventID); err != nil {
		if err == sql.ErrNoRows {
			return WorkflowEvent{}, false, nil
		}
		return WorkflowEvent{}, false, kgclerrors.Wrap(kgclerrors.StoreError, err, "querying temporal event")
	}
	ev, err := rowToEvent(row)
	return ev, true, err
}

// ForWorkflow returns every event for workflowID, ordered by
// sequence_number ascending, for replay and causal-chain traversal.
func (w *WarmStore) ForWorkflow(ctx context.Context, workflowID string) ([]WorkflowEvent, error) {
	const q = `SELECT event_id, event_type, ts, tick_number, workflow_id, payload, caused_by, vector_clock, previous_hash, sequence_number
		FROM temporal_events WHERE workflow_id = $1 ORDER BY sequence_number ASC`
	var rows []warmRow
	if err := w.db.SelectContext(ctx, &rows, q, workflowID); err != nil {
		return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, "querying workflow events")
	}
	out := make([]WorkflowEvent, 0, len(rows))
	for _, r := range rows {
		ev, err := rowToEvent(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func rowToEvent(r warmRow) (WorkflowEvent, error) {
	var payload map[string]any
	if len(r.Payload) > 0 {
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return WorkflowEvent{}, kgclerrors.Wrap(kgclerrors.StoreError, err, "unmarshaling event payload")
		}
	}
	var vc VectorClock
	if len(r.VectorClock) > 0 {
		if err := json.Unmarshal(r.VectorClock, &vc); err != nil {
			return WorkflowEvent{}, kgclerrors.Wrap(kgclerrors.StoreError, err, "unmarshaling vector clock")
		}
	}
	return WorkflowEvent{
		EventID:        r.EventID,
		EventType:      r.EventType,
		Timestamp:      r.Timestamp.Time,
		TickNumber:     uint64(r.TickNumber),
		WorkflowID:     r.WorkflowID,
		Payload:        payload,
		CausedBy:       []string(r.CausedBy),
		VectorClock:    vc,
		PreviousHash:   r.PreviousHash,
		SequenceNumber: uint64(r.SequenceNumber),
	}, nil
}
