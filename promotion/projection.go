/*
projection.go - Point-in-time snapshots by ledger replay

PURPOSE:
  Answers "who holds what rank as of date X" from a finished full-career run.
  The snapshot is never computed by re-running the cascade up to X. It is
  derived from the ledger, so the snapshot view and a member's timeline can
  never disagree.

REPLAY:
  1. Seat every member in their original rank
  2. Apply every ledger entry dated <= X, in date order, moving the member
     into the entry's rank
  3. Drop every non-frozen member whose retirement date is <= X

  Because the full run processes events in date order, the state after all
  events dated <= X is exactly what the replay reconstructs.

EFFECTIVE RANK:
  rank of the latest ledger entry dated <= X, else the original rank,
  unless the member retired on or before X (and is not frozen): no rank.

SEE ALSO:
  - ledger.go: Entries replayed here
  - engine.go: Seat ordering shared with the snapshot lists
*/
package promotion

import (
	"fmt"
	"slices"
)

// SnapshotMember is a member as seen on the snapshot date.
type SnapshotMember struct {
	ID             MemberID
	Name           string
	DateOfBirth    string
	OriginalRank   Rank
	Rank           Rank
	OrderIndex     int
	Frozen         bool
	RetirementDate Date // zero when the DOB could not be parsed
}

// SnapshotTier is one rank of the snapshot, occupants most senior first.
type SnapshotTier struct {
	Rank     Rank
	Capacity int
	Members  []SnapshotMember
}

// Snapshot is the rank occupancy on AsOf, tiers in ladder order.
type Snapshot struct {
	AsOf  Date
	Tiers []SnapshotTier
}

// ProjectSnapshot derives the occupancy on asOf by replaying the ledger of
// res onto the initial roster.
func ProjectSnapshot(res *SimulationResult, asOf Date) Snapshot {
	current := make(map[MemberID]Rank, len(res.roster))
	for _, m := range res.roster {
		current[m.ID] = m.Rank
	}

	type replayed struct {
		id  MemberID
		rec PromotionRecord
	}
	var applied []replayed
	for _, id := range res.ledger.Members() {
		for _, rec := range res.ledger.EntriesAsOf(id, asOf) {
			applied = append(applied, replayed{id: id, rec: rec})
		}
	}
	// Stable: a member's same-day hops stay in the order they happened.
	slices.SortStableFunc(applied, func(a, b replayed) int {
		return a.rec.Date.Compare(b.rec.Date)
	})
	for _, e := range applied {
		current[e.id] = e.rec.NewRank
	}

	byRank := make(map[Rank][]SnapshotMember, len(res.ladder.Tiers))
	for _, m := range res.roster {
		if res.IsRetired(m.ID, asOf) {
			continue
		}
		rank := current[m.ID]
		byRank[rank] = append(byRank[rank], res.snapshotMember(m, rank))
	}

	snap := Snapshot{AsOf: asOf, Tiers: make([]SnapshotTier, len(res.ladder.Tiers))}
	for i, t := range res.ladder.Tiers {
		members := byRank[t.Rank]
		slices.SortStableFunc(members, res.compareSnapshotMembers)
		snap.Tiers[i] = SnapshotTier{Rank: t.Rank, Capacity: t.Capacity, Members: members}
	}
	return snap
}

// EffectiveRank returns the rank the member holds on asOf. held is false
// when the member has retired by then.
func EffectiveRank(res *SimulationResult, id MemberID, asOf Date) (rank Rank, held bool, err error) {
	m, ok := res.Member(id)
	if !ok {
		return "", false, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
	}
	if res.IsRetired(id, asOf) {
		return "", false, nil
	}
	if rec, ok := res.ledger.Latest(id, asOf); ok {
		return rec.NewRank, true, nil
	}
	return m.Rank, true, nil
}

func (r *SimulationResult) snapshotMember(m Member, rank Rank) SnapshotMember {
	return SnapshotMember{
		ID:             m.ID,
		Name:           m.Name,
		DateOfBirth:    m.DateOfBirth,
		OriginalRank:   m.Rank,
		Rank:           rank,
		OrderIndex:     m.OrderIndex,
		Frozen:         m.Frozen,
		RetirementDate: r.retirements[m.ID],
	}
}

// compareSnapshotMembers mirrors the engine's seat order: members who can be
// promoted first, then by seniority.
func (r *SimulationResult) compareSnapshotMembers(a, b SnapshotMember) int {
	ea := !a.Frozen && !a.RetirementDate.IsZero()
	eb := !b.Frozen && !b.RetirementDate.IsZero()
	if ea != eb {
		if ea {
			return -1
		}
		return 1
	}
	if a.OrderIndex != b.OrderIndex {
		if a.OrderIndex < b.OrderIndex {
			return -1
		}
		return 1
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// =============================================================================
// SNAPSHOT QUERIES
// =============================================================================

// Tier returns the tier for rank r.
func (s Snapshot) Tier(r Rank) (SnapshotTier, bool) {
	for _, t := range s.Tiers {
		if t.Rank == r {
			return t, true
		}
	}
	return SnapshotTier{}, false
}

// RankOf returns the rank id holds in the snapshot.
func (s Snapshot) RankOf(id MemberID) (Rank, bool) {
	for _, t := range s.Tiers {
		for _, m := range t.Members {
			if m.ID == id {
				return t.Rank, true
			}
		}
	}
	return "", false
}

// Occupancy flattens the snapshot to member ids per rank.
func (s Snapshot) Occupancy() Occupancy {
	out := make(Occupancy, len(s.Tiers))
	for _, t := range s.Tiers {
		ids := make([]MemberID, len(t.Members))
		for i, m := range t.Members {
			ids[i] = m.ID
		}
		out[t.Rank] = ids
	}
	return out
}

// Size is the number of members holding a rank.
func (s Snapshot) Size() int {
	n := 0
	for _, t := range s.Tiers {
		n += len(t.Members)
	}
	return n
}
