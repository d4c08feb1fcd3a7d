/*
Package promotion provides the promotion-cascade simulation engine.

PURPOSE:
  Projects promotion outcomes for members of a strictly-ranked organization
  where every rank has a fixed number of slots. Given each member's seniority
  and date of birth, the engine determines who holds which rank at any date
  and records every promotion caused by every retirement.

KEY CONCEPTS IN THIS FILE (types.go):
  - Member: One roster entry (id, name, DOB, rank, seniority key, frozen)
  - Ladder: Ordered ranks, highest first, each with a capacity
  - RetirementEvent: A dated retirement that opens a vacancy
  - PromotionRecord: One promotion and the retirement that caused it

PIPELINE:
  RosterSource + LadderSource
    -> Schedule        (retirement events, date ascending, senior first)
    -> Engine          (vacancy cascade, rank by rank)
    -> Ledger          (append-only, per member)
    -> ProjectSnapshot (ledger replay as of a date)

DESIGN PRINCIPLES:
  1. Determinism: identical input always yields an identical ledger
  2. Isolation: a run works on its own copy of the roster, never the caller's
  3. One algorithm: snapshots replay the ledger, they never re-simulate

USAGE:
  result, err := promotion.BuildFullSimulation(roster, ladder, promotion.DefaultRetirementAge)
  if err != nil {
      return err // configuration error, nothing was simulated
  }
  snap := promotion.ProjectSnapshot(result, promotion.Today())
  history, _ := promotion.GetMemberTimeline(result, "IRLA-1001")

SEE ALSO:
  - engine.go: Cascade fill algorithm
  - projection.go: Point-in-time snapshots
  - simulation.go: External operations
*/
package promotion

import "slices"

// =============================================================================
// IDENTIFIERS
// =============================================================================

// MemberID is the unique roster identifier (IRLA).
type MemberID string

// Rank names one tier of the ladder.
type Rank string

// =============================================================================
// MEMBER - Roster entry as supplied by a RosterSource
// =============================================================================

// Member is one roster record. DateOfBirth stays textual (DD-MM-YYYY) so a
// malformed value can be reported per record instead of failing the load.
type Member struct {
	ID          MemberID
	Name        string
	DateOfBirth string
	Rank        Rank
	OrderIndex  int // seniority key, lower = more senior
	Frozen      bool
}

// moreSenior orders members by seniority key, id as a last resort.
func moreSenior(a, b Member) bool {
	if a.OrderIndex != b.OrderIndex {
		return a.OrderIndex < b.OrderIndex
	}
	return a.ID < b.ID
}

// copyRoster is the single value-copy step that produces a run's private
// working set. Member holds no references, so a slice copy is a deep copy.
func copyRoster(members []Member) []Member {
	return slices.Clone(members)
}

// =============================================================================
// RANK LADDER
// =============================================================================

// Tier is one rank and its fixed headcount.
type Tier struct {
	Rank     Rank
	Capacity int
}

// Ladder is ordered from highest to lowest rank.
type Ladder struct {
	Tiers []Tier
}

func NewLadder(tiers ...Tier) Ladder {
	return Ladder{Tiers: slices.Clone(tiers)}
}

// Validate reports every configuration problem with the ladder itself.
func (l Ladder) Validate() error {
	if len(l.Tiers) == 0 {
		return &ConfigError{Err: ErrNoLowestTier}
	}
	var errs []error
	seen := make(map[Rank]bool, len(l.Tiers))
	for _, t := range l.Tiers {
		if seen[t.Rank] {
			errs = append(errs, &ConfigError{Rank: t.Rank, Err: ErrDuplicateRank})
		}
		seen[t.Rank] = true
		if t.Capacity <= 0 {
			errs = append(errs, &ConfigError{Rank: t.Rank, Err: ErrNonPositiveCapacity, Detail: capacityDetail(t.Capacity)})
		}
	}
	return joinErrors(errs)
}

// Index returns the position of r, 0 being the highest rank.
func (l Ladder) Index(r Rank) (int, bool) {
	for i, t := range l.Tiers {
		if t.Rank == r {
			return i, true
		}
	}
	return -1, false
}

func (l Ladder) Contains(r Rank) bool {
	_, ok := l.Index(r)
	return ok
}

func (l Ladder) Capacity(r Rank) int {
	if i, ok := l.Index(r); ok {
		return l.Tiers[i].Capacity
	}
	return 0
}

// Below returns the rank directly under r. ok is false for the lowest rank
// and for ranks not on the ladder.
func (l Ladder) Below(r Rank) (Rank, bool) {
	i, ok := l.Index(r)
	if !ok || i == len(l.Tiers)-1 {
		return "", false
	}
	return l.Tiers[i+1].Rank, true
}

func (l Ladder) Highest() Rank {
	if len(l.Tiers) == 0 {
		return ""
	}
	return l.Tiers[0].Rank
}

func (l Ladder) Lowest() Rank {
	if len(l.Tiers) == 0 {
		return ""
	}
	return l.Tiers[len(l.Tiers)-1].Rank
}

func (l Ladder) Ranks() []Rank {
	ranks := make([]Rank, len(l.Tiers))
	for i, t := range l.Tiers {
		ranks[i] = t.Rank
	}
	return ranks
}

// =============================================================================
// EVENTS AND LEDGER ENTRIES
// =============================================================================

// RetirementEvent is a retirement that opens a vacancy on Date.
type RetirementEvent struct {
	Date       Date
	Member     MemberID
	OrderIndex int
}

// PromotionRecord is one promotion. Every hop of a cascade carries the date
// and the retiring member of the event that started it.
type PromotionRecord struct {
	NewRank   Rank
	Date      Date
	CauseID   MemberID
	CauseName string
}

// Occupancy maps each rank to its occupants, most senior first.
type Occupancy map[Rank][]MemberID

func (o Occupancy) clone() Occupancy {
	out := make(Occupancy, len(o))
	for r, ids := range o {
		out[r] = slices.Clone(ids)
	}
	return out
}
