package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Recorder using modernc.org/sqlite. It suits local
// development and single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func sqliteMigration() string {
	var b strings.Builder
	for _, t := range Tables {
		fmt.Fprintf(&b, `
CREATE TABLE IF NOT EXISTS %[1]s (
	id             TEXT PRIMARY KEY,
	correlation_id TEXT NOT NULL,
	payload        TEXT NOT NULL DEFAULT '{}',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_correlation_id ON %[1]s(correlation_id);
`, t)
	}
	return b.String()
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration())
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert appends rec to table.
func (s *SQLiteStore) Insert(ctx context.Context, table Table, rec Record) error {
	if err := checkTable("sqlite", table); err != nil {
		return err
	}
	rec = rec.withDefaults()

	query := fmt.Sprintf(`INSERT INTO %s (id, correlation_id, payload, created_at) VALUES (?, ?, ?, ?)`, table)
	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.CorrelationID, string(rec.Payload), rec.CreatedAt.Format(time.RFC3339Nano))
	return eris.Wrapf(err, "sqlite: insert %s", table)
}

// Count returns the number of rows in table carrying correlationID; an
// empty correlationID counts every row.
func (s *SQLiteStore) Count(ctx context.Context, table Table, correlationID string) (int, error) {
	if err := checkTable("sqlite", table); err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)
	args := []any{}
	if correlationID != "" {
		query += ` WHERE correlation_id = ?`
		args = append(args, correlationID)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "sqlite: count %s", table)
	}
	return n, nil
}

// Records returns the rows in table for correlationID, oldest first.
func (s *SQLiteStore) Records(ctx context.Context, table Table, correlationID string) ([]Record, error) {
	if err := checkTable("sqlite", table); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, correlation_id, payload, created_at FROM %s WHERE correlation_id = ? ORDER BY created_at`, table)
	rows, err := s.db.QueryContext(ctx, query, correlationID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query %s", table)
	}
	defer rows.Close() //nolint:errcheck

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			payload string
			created string
		)
		if err := rows.Scan(&rec.ID, &rec.CorrelationID, &payload, &created); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", table)
		}
		rec.Payload = []byte(payload)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, rec)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: iterate %s", table)
}
