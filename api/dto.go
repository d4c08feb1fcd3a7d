/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's model from the external API contract. All dates on the wire
  are DD-MM-YYYY strings; an empty string means "no date".

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Roster:
    MemberDTO (wraps factory.MemberDoc), MemberDetailDTO, SetFrozenRequest

  Ladder:
    factory.LadderDoc is used as-is for GET and PUT

  Projection:
    SnapshotDTO, SnapshotTierDTO, SnapshotMemberDTO

  Timeline:
    TimelineDTO, TimelineEntryDTO

  Strength:
    StrengthDTO, TierStrengthDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers and the factory, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/roster.go: MemberDoc type
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/promotion-engine/factory"
	"github.com/warp/promotion-engine/promotion"
)

// =============================================================================
// ROSTER
// =============================================================================

// MemberDTO is a roster entry, as stored.
type MemberDTO = factory.MemberDoc

// MemberDetailDTO is a member plus what the current run says about them.
type MemberDetailDTO struct {
	MemberDTO
	AsOf           string `json:"as_of"`
	RetirementDate string `json:"retirement_date"`
	Retired        bool   `json:"retired"`
	InService      bool   `json:"in_service"`
	EffectiveRank  string `json:"effective_rank"`
	Promotions     int    `json:"promotions"`
	RecordError    string `json:"record_error,omitempty"`
}

// SetFrozenRequest toggles the frozen flag.
type SetFrozenRequest struct {
	Frozen *bool `json:"frozen"`
}

// =============================================================================
// TIMELINE
// =============================================================================

// TimelineEntryDTO is one promotion of a member.
type TimelineEntryDTO struct {
	Rank      string `json:"rank"`
	Date      string `json:"date"`
	CauseID   string `json:"cause_id"`
	CauseName string `json:"cause_name"`
}

// TimelineDTO is a member's full promotion history.
type TimelineDTO struct {
	MemberID string             `json:"member_id"`
	Entries  []TimelineEntryDTO `json:"entries"`
	Text     string             `json:"text"`
}

func toTimelineDTO(id promotion.MemberID, entries []promotion.TimelineEntry) TimelineDTO {
	dto := TimelineDTO{
		MemberID: string(id),
		Entries:  make([]TimelineEntryDTO, len(entries)),
		Text:     promotion.FormatTimeline(entries),
	}
	for i, e := range entries {
		dto.Entries[i] = TimelineEntryDTO{
			Rank:      string(e.NewRank),
			Date:      e.Date.String(),
			CauseID:   string(e.CauseID),
			CauseName: e.CauseName,
		}
	}
	return dto
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// SnapshotMemberDTO is a member seated in a snapshot tier.
type SnapshotMemberDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DOB            string `json:"dob"`
	OriginalRank   string `json:"original_rank"`
	OrderIndex     int    `json:"order_index"`
	Frozen         bool   `json:"frozen"`
	RetirementDate string `json:"retirement_date"`
	Promoted       bool   `json:"promoted"`
}

// SnapshotTierDTO is one rank of a snapshot.
type SnapshotTierDTO struct {
	Rank     string              `json:"rank"`
	Capacity int                 `json:"capacity"`
	Members  []SnapshotMemberDTO `json:"members"`
}

// SnapshotDTO is the occupancy of every rank on a date.
type SnapshotDTO struct {
	AsOf  string            `json:"as_of"`
	Tiers []SnapshotTierDTO `json:"tiers"`
}

func toSnapshotDTO(snap promotion.Snapshot) SnapshotDTO {
	dto := SnapshotDTO{AsOf: snap.AsOf.String(), Tiers: make([]SnapshotTierDTO, len(snap.Tiers))}
	for i, t := range snap.Tiers {
		tier := SnapshotTierDTO{
			Rank:     string(t.Rank),
			Capacity: t.Capacity,
			Members:  make([]SnapshotMemberDTO, len(t.Members)),
		}
		for j, m := range t.Members {
			tier.Members[j] = SnapshotMemberDTO{
				ID:             string(m.ID),
				Name:           m.Name,
				DOB:            m.DateOfBirth,
				OriginalRank:   string(m.OriginalRank),
				OrderIndex:     m.OrderIndex,
				Frozen:         m.Frozen,
				RetirementDate: m.RetirementDate.String(),
				Promoted:       m.Rank != m.OriginalRank,
			}
		}
		dto.Tiers[i] = tier
	}
	return dto
}

// =============================================================================
// STRENGTH
// =============================================================================

// TierStrengthDTO is one row of the strength report.
type TierStrengthDTO struct {
	Rank      string          `json:"rank"`
	Capacity  int             `json:"capacity"`
	Occupants int             `json:"occupants"`
	Frozen    int             `json:"frozen"`
	Vacancies int             `json:"vacancies"`
	FillRate  decimal.Decimal `json:"fill_rate"`
}

// StrengthDTO is the strength report on a date.
type StrengthDTO struct {
	AsOf           string            `json:"as_of"`
	Tiers          []TierStrengthDTO `json:"tiers"`
	TotalCapacity  int               `json:"total_capacity"`
	TotalOccupants int               `json:"total_occupants"`
	TotalVacancies int               `json:"total_vacancies"`
	FillRate       decimal.Decimal   `json:"fill_rate"`
	UnderStrength  []string          `json:"under_strength"`
}

func toStrengthDTO(rep promotion.StrengthReport) StrengthDTO {
	dto := StrengthDTO{
		AsOf:           rep.AsOf.String(),
		Tiers:          make([]TierStrengthDTO, len(rep.Tiers)),
		TotalCapacity:  rep.TotalCapacity,
		TotalOccupants: rep.TotalOccupants,
		TotalVacancies: rep.TotalVacancies,
		FillRate:       rep.FillRate,
		UnderStrength:  []string{},
	}
	for i, t := range rep.Tiers {
		dto.Tiers[i] = TierStrengthDTO{
			Rank:      string(t.Rank),
			Capacity:  t.Capacity,
			Occupants: t.Occupants,
			Frozen:    t.Frozen,
			Vacancies: t.Vacancies,
			FillRate:  t.FillRate,
		}
	}
	for _, r := range rep.UnderStrength() {
		dto.UnderStrength = append(dto.UnderStrength, string(r))
	}
	return dto
}

// =============================================================================
// RUN
// =============================================================================

// RecordErrorDTO is a member excluded from the cascade.
type RecordErrorDTO struct {
	MemberID string `json:"member_id"`
	Field    string `json:"field"`
	Value    string `json:"value"`
	Error    string `json:"error"`
}

// SimulationDTO summarizes the current run.
type SimulationDTO struct {
	RetirementAge int    `json:"retirement_age"`
	Members       int    `json:"members"`
	Events        int    `json:"events"`
	Promotions    int    `json:"promotions"`
	RecordErrors  int    `json:"record_errors"`
	FirstEvent    string `json:"first_event"`
	LastEvent     string `json:"last_event"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Members     int    `json:"members"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
