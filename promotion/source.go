package promotion

import "context"

// =============================================================================
// SOURCES - External collaborators supplying the run's input
// =============================================================================

// RosterSource yields the input roster. Implementations:
//   - store.Memory (promotion/store): in-memory, for tests and embedding
//   - sqlite.Store (store/sqlite): persisted roster
type RosterSource interface {
	Roster(ctx context.Context) ([]Member, error)
}

// LadderSource yields the ordered (rank, capacity) pairs.
type LadderSource interface {
	Ladder(ctx context.Context) (Ladder, error)
}
