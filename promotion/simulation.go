/*
simulation.go - External operations of the promotion engine

OPERATIONS:
  BuildFullSimulation(roster, ladder, age) -> *SimulationResult
    Validates configuration, schedules every retirement, runs the cascade
    over all of them and keeps the complete ledger.

  ProjectSnapshot(result, date)  (projection.go)
    Rank occupancy as of a date, by ledger replay.

  GetMemberTimeline(result, id)
    The member's ledger entries, oldest first.

RUN LIFECYCLE:
  1. Validate ladder, roster, retirement age (abort on any problem)
  2. Copy the roster once into a private working set
  3. Schedule events (collect per-record DOB errors)
  4. Seat everyone, process every event in order
  5. Freeze the outcome into an immutable SimulationResult

A run is a pure function of its inputs: no clock, no I/O, no shared state.
*/
package promotion

import (
	"context"
	"fmt"
	"slices"
)

// SimulationResult is the immutable outcome of one full run. It is safe to
// share between goroutines.
type SimulationResult struct {
	ladder        Ladder
	roster        []Member
	index         map[MemberID]int
	retirementAge int
	retirements   map[MemberID]Date
	events        []RetirementEvent
	occupancy     Occupancy
	ledger        *Ledger
	recordErrors  []*RecordError
}

// BuildFullSimulation runs the cascade over every retirement in the roster.
// Configuration errors abort before any event is processed; the returned
// error joins one *ConfigError per problem. Per-record errors do not abort
// and are available from RecordErrors.
func BuildFullSimulation(roster []Member, ladder Ladder, retirementAge int) (*SimulationResult, error) {
	ladder = NewLadder(ladder.Tiers...)
	if err := validate(roster, ladder, retirementAge); err != nil {
		return nil, err
	}

	working := copyRoster(roster)
	slices.SortStableFunc(working, func(a, b Member) int {
		switch {
		case moreSenior(a, b):
			return -1
		case moreSenior(b, a):
			return 1
		}
		return 0
	})

	events, recErrs := Schedule(working, retirementAge)
	excluded := make(map[MemberID]bool, len(recErrs))
	for _, rerr := range recErrs {
		excluded[rerr.MemberID] = true
	}

	engine := newEngine(working, ladder, excluded)
	for _, ev := range events {
		engine.ProcessEvent(ev)
	}

	return newResult(working, ladder, retirementAge, events, engine, recErrs), nil
}

// Load reads the roster and ladder from their sources and runs a full
// simulation.
func Load(ctx context.Context, roster RosterSource, ladder LadderSource, retirementAge int) (*SimulationResult, error) {
	l, err := ladder.Ladder(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ladder: %w", err)
	}
	members, err := roster.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return BuildFullSimulation(members, l, retirementAge)
}

func newResult(roster []Member, ladder Ladder, age int, events []RetirementEvent, engine *Engine, recErrs []*RecordError) *SimulationResult {
	res := &SimulationResult{
		ladder:        ladder,
		roster:        roster,
		index:         make(map[MemberID]int, len(roster)),
		retirementAge: age,
		retirements:   make(map[MemberID]Date, len(roster)),
		events:        events,
		occupancy:     engine.Occupancy(),
		ledger:        engine.Ledger(),
		recordErrors:  recErrs,
	}
	for i, m := range roster {
		res.index[m.ID] = i
		if d, err := RetirementDateOf(m.DateOfBirth, age); err == nil {
			res.retirements[m.ID] = d
		}
	}
	return res
}

func validate(roster []Member, ladder Ladder, age int) error {
	var errs []error
	if age <= 0 {
		errs = append(errs, &ConfigError{Err: ErrInvalidRetirementAge, Detail: fmt.Sprintf("age %d", age)})
	}
	if err := ladder.Validate(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[MemberID]bool, len(roster))
	seniority := make(map[int]MemberID, len(roster))
	headcount := make(map[Rank]int, len(ladder.Tiers))
	for _, m := range roster {
		if seen[m.ID] {
			errs = append(errs, &ConfigError{MemberID: m.ID, Err: ErrDuplicateMember})
			continue
		}
		seen[m.ID] = true
		if holder, taken := seniority[m.OrderIndex]; taken {
			errs = append(errs, &ConfigError{
				MemberID: m.ID,
				Err:      ErrDuplicateSeniority,
				Detail:   fmt.Sprintf("order_index %d also held by %s", m.OrderIndex, holder),
			})
		} else {
			seniority[m.OrderIndex] = m.ID
		}
		if !ladder.Contains(m.Rank) {
			errs = append(errs, &ConfigError{MemberID: m.ID, Rank: m.Rank, Err: ErrUnknownRank})
			continue
		}
		headcount[m.Rank]++
	}
	for _, t := range ladder.Tiers {
		if t.Capacity > 0 && headcount[t.Rank] > t.Capacity {
			errs = append(errs, &ConfigError{
				Rank:   t.Rank,
				Err:    ErrRankOverCapacity,
				Detail: fmt.Sprintf("%d members for %d slots", headcount[t.Rank], t.Capacity),
			})
		}
	}
	return joinErrors(errs)
}

// =============================================================================
// TIMELINE
// =============================================================================

// TimelineEntry is one line of a member's promotion history.
type TimelineEntry struct {
	NewRank   Rank
	Date      Date
	CauseID   MemberID
	CauseName string
}

// GetMemberTimeline returns every promotion of the member over their whole
// career, oldest first. A member never promoted has an empty timeline.
func GetMemberTimeline(res *SimulationResult, id MemberID) ([]TimelineEntry, error) {
	if _, ok := res.index[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
	}
	records := res.ledger.Entries(id)
	out := make([]TimelineEntry, len(records))
	for i, rec := range records {
		out[i] = TimelineEntry(rec)
	}
	return out, nil
}

// =============================================================================
// ACCESSORS - All return copies
// =============================================================================

func (r *SimulationResult) Ladder() Ladder       { return NewLadder(r.ladder.Tiers...) }
func (r *SimulationResult) RetirementAge() int   { return r.retirementAge }
func (r *SimulationResult) Ledger() *Ledger      { return r.ledger }
func (r *SimulationResult) Occupancy() Occupancy { return r.occupancy.clone() }

// Roster returns the run's copy of the input roster, most senior first.
func (r *SimulationResult) Roster() []Member { return slices.Clone(r.roster) }

// Events returns the retirements the run processed, in processing order.
func (r *SimulationResult) Events() []RetirementEvent { return slices.Clone(r.events) }

// RecordErrors returns members excluded from processing and why.
func (r *SimulationResult) RecordErrors() []*RecordError { return slices.Clone(r.recordErrors) }

// Member returns the input record for id.
func (r *SimulationResult) Member(id MemberID) (Member, bool) {
	i, ok := r.index[id]
	if !ok {
		return Member{}, false
	}
	return r.roster[i], true
}

// RetirementDate is false for members whose DOB could not be parsed.
func (r *SimulationResult) RetirementDate(id MemberID) (Date, bool) {
	d, ok := r.retirements[id]
	return d, ok
}

// IsRetired reports whether the member has left the ladder by asOf. Frozen
// members never retire.
func (r *SimulationResult) IsRetired(id MemberID, asOf Date) bool {
	m, ok := r.Member(id)
	if !ok || m.Frozen {
		return false
	}
	d, ok := r.retirements[id]
	return ok && d.BeforeOrEqual(asOf)
}
