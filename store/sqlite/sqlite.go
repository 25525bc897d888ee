/*
Package sqlite persists roster snapshots for the dues engine.

PURPOSE:
  Implements the persistence collaborator's contract: the engine
  exchanges whole member arrays plus invoice settings as one opaque
  snapshot. SaveSnapshot replaces the stored snapshot wholesale inside a
  transaction; LoadSnapshot returns it with roster order preserved. The
  dues and engine packages never import this package — the binary and
  the API wire it in.

KEY TABLES:
  members:   The roster, with an explicit position column preserving
             order (the recompute pass and the report both walk the
             roster in order).
  settings:  A single-row table holding the invoice context.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): readers don't block,
  a single writer at a time, better crash recovery.

CONCURRENCY:
  sync.RWMutex guards multi-statement operations. With a server-grade
  database the same shape would lean on database-level concurrency
  control instead.

USAGE:
  store, err := sqlite.New("./data/dues.db")
  if err != nil {
      return err
  }
  defer store.Close()
  snap, err := store.LoadSnapshot(ctx)
  if errors.Is(err, sqlite.ErrNoSnapshot) {
      // first run, seed from config defaults
  }

SEE ALSO:
  - engine.Engine.ReplaceRoster / SetSettings: where snapshots land
  - api/handlers.go: /api/snapshot/save and /api/snapshot/load
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/clubdesk/dues-engine/dues"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing has been saved
// yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Snapshot is the unit of exchange with the persistence collaborator: a
// whole roster plus the settings it was saved under.
type Snapshot struct {
	Members  []dues.Member
	Settings dues.InvoiceContext
	SavedAt  time.Time
}

// Store is the SQLite-backed snapshot store.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at the given path and migrates
// the schema. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		club_tier TEXT NOT NULL,
		join_date TEXT NOT NULL,
		leave_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_members_position
		ON members(position);

	-- Single-row table; id is pinned to 1.
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		invoice_year INTEGER NOT NULL,
		tax_percent TEXT NOT NULL,
		currency_rate TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot replaces the stored snapshot with the given one inside a
// single transaction. The members slice is stored in order.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM members`); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO members (id, position, name, club_tier, join_date, leave_date)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare member insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range snap.Members {
		var leave any
		if m.LeaveDate != nil {
			leave = m.LeaveDate.String()
		}
		if _, err := stmt.ExecContext(ctx,
			string(m.ID), i, m.Name, string(m.Tier), m.JoinDate.String(), leave,
		); err != nil {
			return fmt.Errorf("insert member %s: %w", m.ID, err)
		}
	}

	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO settings (id, invoice_year, tax_percent, currency_rate, saved_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			invoice_year = excluded.invoice_year,
			tax_percent = excluded.tax_percent,
			currency_rate = excluded.currency_rate,
			saved_at = excluded.saved_at`,
		snap.Settings.InvoiceYear,
		snap.Settings.TaxPercent.String(),
		snap.Settings.CurrencyRate.String(),
		savedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot returns the stored snapshot, validating every member row
// on the way out so a hand-edited or corrupted database cannot smuggle
// an out-of-invariant roster into the engine. Returns ErrNoSnapshot
// when nothing has been saved.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{}

	var taxPercent, currencyRate, savedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT invoice_year, tax_percent, currency_rate, saved_at
		FROM settings WHERE id = 1`).
		Scan(&snap.Settings.InvoiceYear, &taxPercent, &currencyRate, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if snap.Settings.TaxPercent, err = decimal.NewFromString(taxPercent); err != nil {
		return nil, fmt.Errorf("stored tax percent: %w", err)
	}
	if snap.Settings.CurrencyRate, err = decimal.NewFromString(currencyRate); err != nil {
		return nil, fmt.Errorf("stored currency rate: %w", err)
	}
	if snap.SavedAt, err = time.Parse(time.RFC3339, savedAt); err != nil {
		return nil, fmt.Errorf("stored saved_at: %w", err)
	}
	if err := dues.ValidateInvoiceContext(snap.Settings); err != nil {
		return nil, fmt.Errorf("stored settings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, club_tier, join_date, leave_date
		FROM members ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, name, tier, joinDate string
			leaveDate                sql.NullString
		)
		if err := rows.Scan(&id, &name, &tier, &joinDate, &leaveDate); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}

		m := dues.Member{
			ID:   dues.MemberID(id),
			Name: name,
			Tier: dues.Tier(tier),
		}
		if m.JoinDate, err = dues.ParseDate(joinDate); err != nil {
			return nil, fmt.Errorf("member %s: %w", id, err)
		}
		if leaveDate.Valid {
			leave, err := dues.ParseDate(leaveDate.String)
			if err != nil {
				return nil, fmt.Errorf("member %s: %w", id, err)
			}
			m.LeaveDate = &leave
		}
		if err := dues.ValidateMember(m); err != nil {
			return nil, fmt.Errorf("member %s: %w", id, err)
		}
		snap.Members = append(snap.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return snap, nil
}

// Reset drops all stored data (members and settings).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM members`); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	return tx.Commit()
}
