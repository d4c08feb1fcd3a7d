/*
Package sqlite provides a SQLite-backed roster and rank ladder.

PURPOSE:
  Persists the INPUT of the promotion engine: the member roster and the
  ordered rank ladder. Simulation output (ledger, snapshots) is never stored;
  it is recomputed from these two tables on demand.

INTERFACES IMPLEMENTED:
  promotion.RosterSource: Roster(ctx)
  promotion.LadderSource: Ladder(ctx)

KEY TABLES:
  members: one row per roster entry; dob kept as entered (DD-MM-YYYY) so a
           malformed value surfaces as a per-record error at run time
  ranks:   ladder tiers; position 0 is the highest rank

VALIDATION:
  The store does not check ranks against the ladder or capacities against
  headcount. Those are configuration errors the engine reports before a run,
  and an operator must be able to save an inconsistent state while fixing it.
  The only constraint enforced here is a unique seniority key.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode.
  ":memory:" databases are pinned to a single connection so every query
  sees the same database.

USAGE:
  store, err := sqlite.New("./data/roster.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  result, err := promotion.Load(ctx, store, store, promotion.DefaultRetirementAge)

SEE ALSO:
  - promotion/source.go: Interface definitions
  - promotion/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/promotion-engine/promotion"
)

// Store implements the roster and ladder sources using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Roster
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		dob TEXT NOT NULL,
		rank TEXT NOT NULL,
		order_index INTEGER NOT NULL,
		frozen INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Seniority keys are unique across the roster
	CREATE UNIQUE INDEX IF NOT EXISTS idx_members_order_index
		ON members(order_index);

	CREATE INDEX IF NOT EXISTS idx_members_rank
		ON members(rank);

	-- Rank ladder, highest first
	CREATE TABLE IF NOT EXISTS ranks (
		position INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		capacity INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROSTER (promotion.RosterSource)
// =============================================================================

// Roster returns every member, most senior first.
func (s *Store) Roster(ctx context.Context) ([]promotion.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryMembers(ctx,
		"SELECT id, name, dob, rank, order_index, frozen FROM members ORDER BY order_index ASC, id ASC")
}

// SaveMember inserts or replaces a member.
func (s *Store) SaveMember(ctx context.Context, m promotion.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveMember(ctx, s.db, m)
}

func (s *Store) saveMember(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, m promotion.Member) error {
	query := `
		INSERT INTO members (id, name, dob, rank, order_index, frozen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			dob = excluded.dob,
			rank = excluded.rank,
			order_index = excluded.order_index,
			frozen = excluded.frozen,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, query,
		string(m.ID), m.Name, m.DateOfBirth, string(m.Rank), m.OrderIndex, m.Frozen, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %d", promotion.ErrDuplicateSeniority, m.OrderIndex)
		}
		return fmt.Errorf("failed to save member: %w", err)
	}
	return nil
}

// SaveRoster inserts or replaces members atomically.
func (s *Store) SaveRoster(ctx context.Context, members []promotion.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range members {
		if err := s.saveMember(ctx, tx, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetFrozen sets the frozen flag of one member.
func (s *Store) SetFrozen(ctx context.Context, id promotion.MemberID, frozen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE members SET frozen = ?, updated_at = ? WHERE id = ?",
		frozen, time.Now().UTC().Format(time.RFC3339), string(id))
	if err != nil {
		return fmt.Errorf("failed to set frozen: %w", err)
	}
	return requireRow(res, id)
}

// DeleteMember removes a member from the roster.
func (s *Store) DeleteMember(ctx context.Context, id promotion.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM members WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return requireRow(res, id)
}

func (s *Store) queryMembers(ctx context.Context, query string, args ...any) ([]promotion.Member, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []promotion.Member
	for rows.Next() {
		var (
			m        promotion.Member
			id, rank string
			frozen   bool
		)
		if err := rows.Scan(&id, &m.Name, &m.DateOfBirth, &rank, &m.OrderIndex, &frozen); err != nil {
			return nil, err
		}
		m.ID = promotion.MemberID(id)
		m.Rank = promotion.Rank(rank)
		m.Frozen = frozen
		members = append(members, m)
	}
	return members, rows.Err()
}

// =============================================================================
// LADDER (promotion.LadderSource)
// =============================================================================

// Ladder returns the stored tiers, highest first. An empty ladder is
// returned as-is; the engine reports it as a configuration error.
func (s *Store) Ladder(ctx context.Context) (promotion.Ladder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT name, capacity FROM ranks ORDER BY position ASC")
	if err != nil {
		return promotion.Ladder{}, fmt.Errorf("failed to query ranks: %w", err)
	}
	defer rows.Close()

	var tiers []promotion.Tier
	for rows.Next() {
		var (
			name     string
			capacity int
		)
		if err := rows.Scan(&name, &capacity); err != nil {
			return promotion.Ladder{}, err
		}
		tiers = append(tiers, promotion.Tier{Rank: promotion.Rank(name), Capacity: capacity})
	}
	return promotion.Ladder{Tiers: tiers}, rows.Err()
}

// SaveLadder replaces the whole ladder atomically.
func (s *Store) SaveLadder(ctx context.Context, ladder promotion.Ladder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM ranks"); err != nil {
		return fmt.Errorf("failed to clear ranks: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for i, t := range ladder.Tiers {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO ranks (position, name, capacity, updated_at) VALUES (?, ?, ?, ?)",
			i, string(t.Rank), t.Capacity, now,
		); err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: %q", promotion.ErrDuplicateRank, t.Rank)
			}
			return fmt.Errorf("failed to save rank: %w", err)
		}
	}
	return tx.Commit()
}

// HasLadder reports whether any tier is stored.
func (s *Store) HasLadder(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ranks").Scan(&count)
	return count > 0, err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"members", "ranks"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func requireRow(res sql.Result, id promotion.MemberID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", promotion.ErrMemberNotFound, id)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
