/*
engine.go - Vacancy cascade state machine

PURPOSE:
  Consumes retirement events in order and backfills every vacancy they open
  by promoting the most senior eligible member of the rank directly below.
  Each promotion opens a vacancy one rank lower, which is filled the same
  way, until the lowest rank is reached or no candidate is left.

STATE:
  occupancy: rank -> members currently holding it. Each list is kept sorted
             with eligible members first, then by seniority key. Frozen
             members and members with unusable records hold a seat (they
             count against capacity) but are never candidates.

MEMBER STATES:
  active-in-rank -> promoted (re-enters active-in-rank one rank higher)
  active-in-rank -> retired  (exactly once, when the member's own event fires)

CASCADE ORDER:
  cascadeFill(R):
    while R has a free slot:
      stop if R is the lowest rank
      stop if the rank below has no eligible member
      move the most senior eligible member of the rank below up into R
      record the promotion (same date and cause for every hop)
      cascadeFill(rank below)       <- innermost vacancy first

  Each hop removes one eligible member from the pool below, so one event
  causes at most len(roster) promotions and the loop always terminates.
  Recursion depth is bounded by the number of tiers.

EXAMPLE (ladder A:1, B:1, C:2; m1 in A, m2 in B, m3 and m4 in C):
  m1 retires on D
    A: m2 promoted (cause m1, D)
      B: m3 promoted (cause m1, D)
        C: lowest rank, under strength is accepted
  Final: A=[m2] B=[m3] C=[m4]
*/
package promotion

import "slices"

type memberState struct {
	member   Member
	rank     Rank
	eligible bool
	retired  bool
}

// Engine runs the cascade for one simulation. It owns its occupancy and its
// ledger exclusively; nothing in it is shared with the caller's roster.
type Engine struct {
	ladder    Ladder
	members   map[MemberID]*memberState
	occupancy map[Rank][]*memberState
	ledger    *Ledger

	// observe, when set, is called after every promotion.
	observe func(e *Engine, from, to Rank, id MemberID)
}

// newEngine seats every member of roster in their starting rank. Members in
// excluded (unusable records) are seated but never eligible. roster must
// already be validated against ladder.
func newEngine(roster []Member, ladder Ladder, excluded map[MemberID]bool) *Engine {
	e := &Engine{
		ladder:    ladder,
		members:   make(map[MemberID]*memberState, len(roster)),
		occupancy: make(map[Rank][]*memberState, len(ladder.Tiers)),
		ledger:    newLedger(),
	}
	for _, t := range ladder.Tiers {
		e.occupancy[t.Rank] = nil
	}
	for _, m := range roster {
		st := &memberState{
			member:   m,
			rank:     m.Rank,
			eligible: !m.Frozen && !excluded[m.ID],
		}
		e.members[m.ID] = st
		e.insert(m.Rank, st)
	}
	return e
}

// ProcessEvent retires the event's member and backfills the vacancy.
// Unknown, frozen, ineligible or already-retired members are a no-op.
func (e *Engine) ProcessEvent(ev RetirementEvent) {
	st, ok := e.members[ev.Member]
	if !ok || st.retired || !st.eligible {
		return
	}
	if !e.remove(st.rank, st) {
		return
	}
	st.retired = true
	e.cascadeFill(st.rank, ev.Date, st.member)
}

func (e *Engine) cascadeFill(r Rank, date Date, cause Member) {
	for len(e.occupancy[r]) < e.ladder.Capacity(r) {
		lower, ok := e.ladder.Below(r)
		if !ok {
			return
		}
		cand := e.mostSeniorEligible(lower)
		if cand == nil {
			return
		}

		e.remove(lower, cand)
		cand.rank = r
		e.insert(r, cand)
		e.ledger.append(cand.member.ID, PromotionRecord{
			NewRank:   r,
			Date:      date,
			CauseID:   cause.ID,
			CauseName: cause.Name,
		})
		if e.observe != nil {
			e.observe(e, lower, r, cand.member.ID)
		}

		e.cascadeFill(lower, date, cause)
	}
}

func (e *Engine) mostSeniorEligible(r Rank) *memberState {
	list := e.occupancy[r]
	if len(list) == 0 || !list[0].eligible {
		return nil
	}
	return list[0]
}

// insert keeps the rank list ordered: eligible first, then by seniority.
func (e *Engine) insert(r Rank, st *memberState) {
	list := e.occupancy[r]
	i, _ := slices.BinarySearchFunc(list, st, compareSeats)
	e.occupancy[r] = slices.Insert(list, i, st)
}

func (e *Engine) remove(r Rank, st *memberState) bool {
	list := e.occupancy[r]
	i := slices.Index(list, st)
	if i < 0 {
		return false
	}
	e.occupancy[r] = slices.Delete(list, i, i+1)
	return true
}

func compareSeats(a, b *memberState) int {
	if a.eligible != b.eligible {
		if a.eligible {
			return -1
		}
		return 1
	}
	switch {
	case moreSenior(a.member, b.member):
		return -1
	case moreSenior(b.member, a.member):
		return 1
	}
	return 0
}

// Occupancy returns the current holders of every rank on the ladder.
func (e *Engine) Occupancy() Occupancy {
	out := make(Occupancy, len(e.ladder.Tiers))
	for _, t := range e.ladder.Tiers {
		ids := make([]MemberID, len(e.occupancy[t.Rank]))
		for i, st := range e.occupancy[t.Rank] {
			ids[i] = st.member.ID
		}
		out[t.Rank] = ids
	}
	return out
}

// Ledger returns the engine's ledger. Callers must not keep using the engine
// after handing the ledger out.
func (e *Engine) Ledger() *Ledger { return e.ledger }
