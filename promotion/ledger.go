/*
ledger.go - Append-only promotion log

PURPOSE:
  The Ledger is the source of truth for every promotion a run produced.
  Point-in-time snapshots are derived from it by replay; there is no second
  copy of "who holds what" that could drift out of sync.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: entries are added by the cascade engine and never edited
  2. ORDERED: a member's entries are non-decreasing by date, because events
     run in date order and every hop of a cascade shares its event's date
  3. ATTRIBUTED: every entry names the retirement that caused it

READS:
  All read methods return copies. A finished ledger can be shared between
  goroutines without locking.
*/
package promotion

import "slices"

// Ledger holds the promotion history of every member of one run.
type Ledger struct {
	entries map[MemberID][]PromotionRecord
	count   int
}

func newLedger() *Ledger {
	return &Ledger{entries: make(map[MemberID][]PromotionRecord)}
}

// append is the only write. Called by the engine during cascade fill.
func (l *Ledger) append(id MemberID, rec PromotionRecord) {
	l.entries[id] = append(l.entries[id], rec)
	l.count++
}

// Entries returns the member's promotions in the order they happened.
// Empty for members never promoted.
func (l *Ledger) Entries(id MemberID) []PromotionRecord {
	return slices.Clone(l.entries[id])
}

// EntriesAsOf returns the member's promotions dated on or before at.
func (l *Ledger) EntriesAsOf(id MemberID, at Date) []PromotionRecord {
	var out []PromotionRecord
	for _, rec := range l.entries[id] {
		if rec.Date.After(at) {
			break
		}
		out = append(out, rec)
	}
	return out
}

// Latest returns the most recent entry dated on or before at.
func (l *Ledger) Latest(id MemberID, at Date) (PromotionRecord, bool) {
	entries := l.entries[id]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Date.BeforeOrEqual(at) {
			return entries[i], true
		}
	}
	return PromotionRecord{}, false
}

// Members returns the ids that have at least one entry, sorted.
func (l *Ledger) Members() []MemberID {
	ids := make([]MemberID, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len is the total number of promotions recorded.
func (l *Ledger) Len() int { return l.count }
