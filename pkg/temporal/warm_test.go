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

package temporal_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kgcl-io/kgcl-core/pkg/temporal"
)

// TestWarmStoreAppendInsertsRow: mock the query shape and args,
// exercise the repository, assert expectations were met.
func TestWarmStoreAppendInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	warm := temporal.NewWarmStore(db)
	mock.ExpectExec(`INSERT INTO temporal_events`).WillReturnResult(sqlmock.NewResult(0, 1))

	e := temporal.WorkflowEvent{
		EventID:    "e1",
		EventType:  "test.event",
		Timestamp:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		WorkflowID: "w1",
		Payload:    map[string]any{"k": "v"},
	}
	if err := warm.Append(context.Background(), e); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWarmStoreGetReturnsNotFoundWithoutError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	warm := temporal.NewWarmStore(db)
	mock.ExpectQuery(`SELECT (.+) FROM temporal_events WHERE event_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "event_type", "ts", "tick_number", "workflow_id", "payload", "caused_by", "vector_clock", "previous_hash", "sequence_number"}))

	_, ok, err := warm.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected not found for a missing event_id")
	}
}
