/*
strength.go - Rank strength report

PURPOSE:
  Summarizes a snapshot per rank: slots, holders, vacancies and how full the
  rank is. Under-strength ranks are a normal outcome of the cascade (the pool
  below ran dry), and this is where they show up.

FILL RATE:
  Occupants / Capacity * 100, rounded to two places. Computed with
  decimal.Decimal so 1/3 renders as 33.33 on every platform.
*/
package promotion

import "github.com/shopspring/decimal"

// TierStrength is one row of the strength report.
type TierStrength struct {
	Rank      Rank
	Capacity  int
	Occupants int
	Frozen    int
	Vacancies int
	FillRate  decimal.Decimal // percent, 2 places
}

// StrengthReport is the strength of every rank on a date.
type StrengthReport struct {
	AsOf           Date
	Tiers          []TierStrength
	TotalCapacity  int
	TotalOccupants int
	TotalVacancies int
	FillRate       decimal.Decimal
}

// Strength computes the report for a snapshot.
func Strength(snap Snapshot) StrengthReport {
	rep := StrengthReport{AsOf: snap.AsOf, Tiers: make([]TierStrength, len(snap.Tiers))}
	for i, t := range snap.Tiers {
		frozen := 0
		for _, m := range t.Members {
			if m.Frozen {
				frozen++
			}
		}
		vacancies := t.Capacity - len(t.Members)
		if vacancies < 0 {
			vacancies = 0
		}
		rep.Tiers[i] = TierStrength{
			Rank:      t.Rank,
			Capacity:  t.Capacity,
			Occupants: len(t.Members),
			Frozen:    frozen,
			Vacancies: vacancies,
			FillRate:  fillRate(len(t.Members), t.Capacity),
		}
		rep.TotalCapacity += t.Capacity
		rep.TotalOccupants += len(t.Members)
		rep.TotalVacancies += vacancies
	}
	rep.FillRate = fillRate(rep.TotalOccupants, rep.TotalCapacity)
	return rep
}

// UnderStrength returns the ranks with at least one vacancy.
func (r StrengthReport) UnderStrength() []Rank {
	var out []Rank
	for _, t := range r.Tiers {
		if t.Vacancies > 0 {
			out = append(out, t.Rank)
		}
	}
	return out
}

func fillRate(occupants, capacity int) decimal.Decimal {
	if capacity <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(occupants)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(capacity)), 2)
}
