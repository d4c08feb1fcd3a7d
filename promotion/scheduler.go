/*
scheduler.go - Chronological retirement events

PURPOSE:
  Turns a roster into the ordered list of retirements the cascade engine
  consumes. One event per non-frozen member with a usable date of birth.

ORDERING:
  1. Retirement date ascending
  2. Seniority key ascending (more senior retires first on a shared date)
  3. Member id ascending (only reachable with duplicate keys)

  The tie-break matters: two members of the same rank retiring on the same
  day both open a vacancy in that rank, and whichever event runs first
  claims the first seat its cascade fills.

FROZEN MEMBERS:
  Never scheduled. They keep their seat regardless of age.
*/
package promotion

import "slices"

// Schedule builds the retirement events for roster. Members whose DOB cannot
// be parsed are skipped and reported as record errors. The returned slice is
// a fresh value on every call, so a schedule can be replayed from the start.
func Schedule(roster []Member, age int) ([]RetirementEvent, []*RecordError) {
	var (
		events  []RetirementEvent
		recErrs []*RecordError
	)

	for _, m := range roster {
		date, err := RetirementDateOf(m.DateOfBirth, age)
		if err != nil {
			recErrs = append(recErrs, &RecordError{
				MemberID: m.ID,
				Field:    "dob",
				Value:    m.DateOfBirth,
				Err:      err,
			})
			continue
		}
		if m.Frozen {
			continue
		}
		events = append(events, RetirementEvent{
			Date:       date,
			Member:     m.ID,
			OrderIndex: m.OrderIndex,
		})
	}

	slices.SortStableFunc(events, compareEvents)
	return events, recErrs
}

func compareEvents(a, b RetirementEvent) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if a.OrderIndex != b.OrderIndex {
		if a.OrderIndex < b.OrderIndex {
			return -1
		}
		return 1
	}
	switch {
	case a.Member < b.Member:
		return -1
	case a.Member > b.Member:
		return 1
	}
	return 0
}
