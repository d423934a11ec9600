// Package session persists the host side of a fluxcore REPL: the
// node/data/function offset directory (so a restarted host recovers the
// same stable slots the VM already has wired up, per §3's "offsets are
// stable across submissions") and an audit log of accepted/rejected
// submissions. The compiler core itself holds no background resources
// (§5); this package is host-side ambient infrastructure around it.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"github.com/funvibe/fluxcore/internal/env"
)

// Store wraps a sqlite-backed session ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at dsn and
// ensures its schema exists. Pass ":memory:" for an ephemeral,
// process-local store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS slot_ledger (
	kind       TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	offset     INTEGER NOT NULL,
	updated_at TEXT    NOT NULL,
	PRIMARY KEY (kind, name)
);
CREATE TABLE IF NOT EXISTS submissions (
	id         TEXT    PRIMARY KEY,
	accepted   INTEGER NOT NULL,
	bytes      INTEGER NOT NULL,
	detail     TEXT    NOT NULL,
	created_at TEXT    NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("migrating session store: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// RecordSubmission appends one pipeline submission's outcome to the audit
// log, formatting the byte-code size for human-readable diagnostics.
func (s *Store) RecordSubmission(ctx context.Context, id uuid.UUID, accepted bool, bytecodeLen int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO submissions(id, accepted, bytes, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), boolToInt(accepted), bytecodeLen, humanize.Bytes(uint64(bytecodeLen)), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording submission %s: %w", id, err)
	}
	return nil
}

// SyncSlots overwrites the persisted offset directory with the
// environment's current node/data/function tables, inside one
// transaction.
func (s *Store) SyncSlots(ctx context.Context, e *env.Environment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning slot sync: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM slot_ledger`); err != nil {
		return fmt.Errorf("clearing slot ledger: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	insert := func(kind, name string, offset int) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO slot_ledger(kind, name, offset, updated_at) VALUES (?, ?, ?, ?)`,
			kind, name, offset, now)
		return err
	}
	for _, n := range e.Nodes.All() {
		if err := insert("node", n.Name, n.Offset); err != nil {
			return err
		}
	}
	for _, d := range e.Data.All() {
		if err := insert("data", d.Name, d.Offset); err != nil {
			return err
		}
	}
	for _, f := range e.Funcs.All() {
		if err := insert("func", f.Name, f.Offset); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing slot sync: %w", err)
	}
	return nil
}

// LedgerEntry is one row recovered from a prior process's slot directory.
type LedgerEntry struct {
	Kind   string
	Name   string
	Offset int
}

// LoadLedger returns every persisted slot entry, ordered by kind then
// offset, so a restarted host can report the offsets it must honor before
// accepting its first submission.
func (s *Store) LoadLedger(ctx context.Context) ([]LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, name, offset FROM slot_ledger ORDER BY kind, offset`)
	if err != nil {
		return nil, fmt.Errorf("loading slot ledger: %w", err)
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var le LedgerEntry
		if err := rows.Scan(&le.Kind, &le.Name, &le.Offset); err != nil {
			return nil, fmt.Errorf("scanning slot ledger row: %w", err)
		}
		out = append(out, le)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
