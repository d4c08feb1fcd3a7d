/*
errors.go - Error types for the promotion engine

ERROR CATEGORIES:
  1. Configuration errors - fatal, reported before any event is processed
     (duplicate member, unknown rank, bad capacity, empty ladder, bad age)
  2. Record errors - one member's data is unusable; the member is excluded
     from events and eligibility, the run continues
  3. Lookup errors - a query named a member that is not on the roster

Under-strength ranks are NOT errors. A cascade that runs out of eligible
candidates simply stops.

USAGE:
  result, err := promotion.BuildFullSimulation(roster, ladder, 60)
  if promotion.IsConfigError(err) {
      // fix the roster or ladder, nothing was simulated
  }
  for _, rerr := range result.RecordErrors() {
      log.Printf("member %s excluded: %v", rerr.MemberID, rerr)
  }
*/
package promotion

import (
	"errors"
	"fmt"
	"strconv"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateMember is returned when two roster entries share an id.
	ErrDuplicateMember = errors.New("duplicate member id")

	// ErrUnknownRank is returned when a member's rank is not on the ladder.
	ErrUnknownRank = errors.New("rank not in ladder")

	// ErrNonPositiveCapacity is returned for a tier with capacity <= 0.
	ErrNonPositiveCapacity = errors.New("non-positive rank capacity")

	// ErrNoLowestTier is returned for an empty ladder.
	ErrNoLowestTier = errors.New("rank ladder has no lowest tier")

	// ErrDuplicateRank is returned when a rank name appears twice on the ladder.
	ErrDuplicateRank = errors.New("duplicate rank in ladder")

	// ErrDuplicateSeniority is returned when two members share an order_index.
	ErrDuplicateSeniority = errors.New("seniority key already assigned")

	// ErrRankOverCapacity is returned when the initial roster already holds
	// more members in a rank than the rank has slots.
	ErrRankOverCapacity = errors.New("rank over capacity")

	// ErrInvalidRetirementAge is returned for a retirement age <= 0.
	ErrInvalidRetirementAge = errors.New("invalid retirement age")

	// ErrInvalidDate is returned for a date that is not a valid DD-MM-YYYY.
	ErrInvalidDate = errors.New("invalid date")

	// ErrMemberNotFound is returned when a query names an unknown member.
	ErrMemberNotFound = errors.New("member not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigError describes one configuration problem.
type ConfigError struct {
	MemberID MemberID
	Rank     Rank
	Detail   string
	Err      error
}

func (e *ConfigError) Error() string {
	msg := "config: " + e.Err.Error()
	if e.MemberID != "" {
		msg += fmt.Sprintf(" (member %s)", e.MemberID)
	}
	if e.Rank != "" {
		msg += fmt.Sprintf(" (rank %q)", e.Rank)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// RecordError describes a member excluded from processing because one of
// their fields could not be used.
type RecordError struct {
	MemberID MemberID
	Field    string
	Value    string
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("member %s: %s %q: %v", e.MemberID, e.Field, e.Value, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError reports whether err (or any joined part of it) is a
// configuration error.
func IsConfigError(err error) bool {
	var cerr *ConfigError
	return errors.As(err, &cerr)
}

// IsNotFound reports whether err indicates an unknown member.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound)
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

func capacityDetail(capacity int) string {
	return "capacity " + strconv.Itoa(capacity)
}
