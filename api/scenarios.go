/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built rosters and ladders that populate the store with
	data showing specific cascade behaviors.

AVAILABLE SCENARIOS:

	cascade-basic:   Four members, one retirement moves two people up
	frozen-member:   A frozen member holds a seat and is skipped
	invalid-records: Members with unusable DOBs stay seated, never move
	full-force:      The default seven-rank ladder, about 90% filled

HOW SCENARIOS WORK:
 1. Reset the store (clear roster and ladder)
 2. Save the scenario ladder
 3. Save the scenario roster
 4. Rebuild the simulation

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "cascade-basic"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Write a builder returning the ladder and roster
 3. Register it in scenarioBuilders

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and rebuild
  - factory/ladder.go: DefaultLadder
*/
package api

import (
	"fmt"
	"math/rand"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/warp/promotion-engine/factory"
	"github.com/warp/promotion-engine/promotion"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenarioBuilder func() (promotion.Ladder, []promotion.Member)

var scenarios = []ScenarioDTO{
	{
		ID:          "cascade-basic",
		Name:        "Basic Cascade",
		Description: "A:1 B:1 C:2. The top retirement pulls one member up from each rank below",
	},
	{
		ID:          "frozen-member",
		Name:        "Frozen Member",
		Description: "A frozen senior holds their seat, never retires and is passed over",
	},
	{
		ID:          "invalid-records",
		Name:        "Invalid Records",
		Description: "Members with unparseable dates of birth stay in place and are reported",
	},
	{
		ID:          "full-force",
		Name:        "Full Force",
		Description: "Seven-rank force structure at about 90% strength",
	},
}

var scenarioBuilders = map[string]scenarioBuilder{
	"cascade-basic":   basicCascadeScenario,
	"frozen-member":   frozenMemberScenario,
	"invalid-records": invalidRecordsScenario,
	"full-force":      fullForceScenario,
}

func init() {
	for i, s := range scenarios {
		_, roster := scenarioBuilders[s.ID]()
		scenarios[i].Members = len(roster)
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces the store's contents with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	build, ok := scenarioBuilders[req.ScenarioID]
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}
	ladder, roster := build()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := h.Store.SaveLadder(ctx, ladder); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to save ladder", err)
		return
	}
	if err := h.Store.SaveRoster(ctx, roster); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to save roster", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()
	h.rebuildAfterMutation(ctx)

	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID, "members", len(roster))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func abcLadder() promotion.Ladder {
	return promotion.NewLadder(
		promotion.Tier{Rank: "A", Capacity: 1},
		promotion.Tier{Rank: "B", Capacity: 1},
		promotion.Tier{Rank: "C", Capacity: 2},
	)
}

// m1 retires 31-03-2025 and pulls m2 into A and m3 into B on that day.
func basicCascadeScenario() (promotion.Ladder, []promotion.Member) {
	return abcLadder(), []promotion.Member{
		{ID: "m1", Name: "Arjun Rao", DateOfBirth: "15-03-1965", Rank: "A", OrderIndex: 1},
		{ID: "m2", Name: "Bina Das", DateOfBirth: "20-06-1970", Rank: "B", OrderIndex: 2},
		{ID: "m3", Name: "Chetan Gill", DateOfBirth: "10-08-1968", Rank: "C", OrderIndex: 3},
		{ID: "m4", Name: "Deepa Nair", DateOfBirth: "01-01-1975", Rank: "C", OrderIndex: 4},
	}
}

// The frozen B holder outranks everyone in C yet is never promoted, so the
// A vacancy is left open.
func frozenMemberScenario() (promotion.Ladder, []promotion.Member) {
	return abcLadder(), []promotion.Member{
		{ID: "a", Name: "Alpha", DateOfBirth: "10-03-1965", Rank: "A", OrderIndex: 1},
		{ID: "f", Name: "Foxtrot", DateOfBirth: "01-01-1950", Rank: "B", OrderIndex: 2, Frozen: true},
		{ID: "c", Name: "Charlie", DateOfBirth: "05-05-1972", Rank: "C", OrderIndex: 3},
		{ID: "d", Name: "Delta", DateOfBirth: "07-07-1978", Rank: "C", OrderIndex: 4},
	}
}

func invalidRecordsScenario() (promotion.Ladder, []promotion.Member) {
	return abcLadder(), []promotion.Member{
		{ID: "m1", Name: "Arjun Rao", DateOfBirth: "15-03-1965", Rank: "A", OrderIndex: 1},
		{ID: "x1", Name: "Xavier Lobo", DateOfBirth: "31-02-1970", Rank: "B", OrderIndex: 2},
		{ID: "m3", Name: "Chetan Gill", DateOfBirth: "10-08-1968", Rank: "C", OrderIndex: 3},
		{ID: "x2", Name: "Yusuf Khan", DateOfBirth: "1975/01/01", Rank: "C", OrderIndex: 4},
	}
}

// fullForceScenario fills each rank of the default ladder to 90% (at least
// one seat). Higher ranks are older. The seed is fixed so every load
// produces the same roster.
func fullForceScenario() (promotion.Ladder, []promotion.Member) {
	ladder := factory.DefaultLadder()
	rng := rand.New(rand.NewSource(1965))

	var roster []promotion.Member
	order := 1
	for tierIdx, t := range ladder.Tiers {
		fill := max(1, t.Capacity*9/10)
		oldest := 1966 + 3*tierIdx
		for i := 0; i < fill; i++ {
			dob := fmt.Sprintf("%02d-%02d-%d", 1+rng.Intn(28), 1+rng.Intn(12), oldest+rng.Intn(10))
			roster = append(roster, promotion.Member{
				ID:          promotion.MemberID(fmt.Sprintf("IRLA-%05d", order)),
				Name:        fmt.Sprintf("Officer %04d", order),
				DateOfBirth: dob,
				Rank:        t.Rank,
				OrderIndex:  order,
				Frozen:      order%97 == 0,
			})
			order++
		}
	}
	return ladder, roster
}
