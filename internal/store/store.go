// Package store persists best-effort log records (sessions, prompts, errors,
// sparks, comparisons) to an append-only backend.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Table names a log table.
type Table string

// Log tables.
const (
	TableSessions    Table = "session_logs"
	TablePrompts     Table = "prompt_logs"
	TableErrors      Table = "error_logs"
	TableSparks      Table = "spark_logs"
	TableComparisons Table = "comparison_logs"
)

// Tables lists every log table in migration order.
var Tables = []Table{TableSessions, TablePrompts, TableErrors, TableSparks, TableComparisons}

// Valid reports whether t is a known table. Table names are interpolated
// into SQL, so backends reject anything else.
func (t Table) Valid() bool {
	for _, known := range Tables {
		if t == known {
			return true
		}
	}
	return false
}

// Record is one append-only log row.
type Record struct {
	ID            string          `json:"id"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewRecord builds a Record with a fresh ID and the current UTC time.
func NewRecord(correlationID string, payload any) (Record, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Record{}, eris.Wrap(err, "store: marshal payload")
	}
	return Record{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// withDefaults fills an ID, timestamp and empty-object payload when unset.
func (r Record) withDefaults() Record {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if len(r.Payload) == 0 {
		r.Payload = json.RawMessage(`{}`)
	}
	return r
}

// Recorder appends log records.
type Recorder interface {
	Insert(ctx context.Context, table Table, rec Record) error
	Close() error
}

// Migrator creates the log tables. SQL backends implement it.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// NoopStore discards every record. It backs the "none" driver.
type NoopStore struct{}

func (NoopStore) Insert(context.Context, Table, Record) error { return nil }
func (NoopStore) Close() error                                { return nil }

func checkTable(backend string, table Table) error {
	if !table.Valid() {
		return eris.Errorf("%s: unknown table %q", backend, table)
	}
	return nil
}
