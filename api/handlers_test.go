/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Scenario loading and the projection endpoints (snapshot, strength, timeline)
- Member lookup with effective rank
- Freeze toggle and roster mutations rebuilding the run
- Whole-roster export and import in JSON and YAML
- Error mapping (400, 404, 409, 422)
*/
package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/promotion-engine/factory"
	"github.com/warp/promotion-engine/promotion"
	"github.com/warp/promotion-engine/promotion/store"
	"github.com/warp/promotion-engine/store/sqlite"
)

var (
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*store.Memory)(nil)
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := NewHandler(st, slog.New(slog.NewTextHandler(io.Discard, nil)), promotion.DefaultRetirementAge)
	h.Today = func() promotion.Date { return promotion.MustParseDate("01-01-2024") }
	return h, NewRouter(h, nil)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doRaw(t *testing.T, router http.Handler, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func loadScenario(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func tierIDs(snap SnapshotDTO) map[string][]string {
	out := make(map[string][]string, len(snap.Tiers))
	for _, tier := range snap.Tiers {
		ids := []string{}
		for _, m := range tier.Members {
			ids = append(ids, m.ID)
		}
		out[tier.Rank] = ids
	}
	return out
}

// =============================================================================
// PROJECTION ENDPOINTS
// =============================================================================

func TestSnapshot_BasicCascade(t *testing.T) {
	// GIVEN: The basic cascade scenario (m1 retires 31-03-2025)
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	// WHEN: Projecting the day before and the day of the retirement
	before := decode[SnapshotDTO](t, do(t, router, http.MethodGet, "/api/snapshot?as_of=30-03-2025", nil))
	after := decode[SnapshotDTO](t, do(t, router, http.MethodGet, "/api/snapshot?as_of=31-03-2025", nil))

	// THEN: Nothing moved before; m2 and m3 moved up on the day
	assert.Equal(t, map[string][]string{"A": {"m1"}, "B": {"m2"}, "C": {"m3", "m4"}}, tierIDs(before))
	assert.Equal(t, map[string][]string{"A": {"m2"}, "B": {"m3"}, "C": {"m4"}}, tierIDs(after))
	assert.Equal(t, "31-03-2025", after.AsOf)
	assert.True(t, after.Tiers[0].Members[0].Promoted)
	assert.Equal(t, "B", after.Tiers[0].Members[0].OriginalRank)
}

func TestSnapshot_DefaultsToToday(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	snap := decode[SnapshotDTO](t, do(t, router, http.MethodGet, "/api/snapshot", nil))
	assert.Equal(t, "01-01-2024", snap.AsOf)
	assert.Equal(t, []string{"m1"}, tierIDs(snap)["A"])
}

func TestSnapshot_InvalidDate(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	rec := do(t, router, http.MethodGet, "/api/snapshot?as_of=2025-03-31", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Details)
}

func TestTimeline_ChainAcrossRetirements(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	rec := do(t, router, http.MethodGet, "/api/members/m4/timeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tl := decode[TimelineDTO](t, rec)
	assert.Equal(t, []TimelineEntryDTO{
		{Rank: "B", Date: "31-08-2028", CauseID: "m3", CauseName: "Chetan Gill"},
		{Rank: "A", Date: "30-06-2030", CauseID: "m2", CauseName: "Bina Das"},
	}, tl.Entries)
	assert.Equal(t,
		"Promoted to B on 31-08-2028 (triggered by retirement of Chetan Gill [m3])\n"+
			"Promoted to A on 30-06-2030 (triggered by retirement of Bina Das [m2])",
		tl.Text)
}

func TestTimeline_UnknownMember(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	rec := do(t, router, http.MethodGet, "/api/members/nobody/timeline", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStrength_ReportsVacancies(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	rec := do(t, router, http.MethodGet, "/api/strength?as_of=31-03-2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rep := decode[StrengthDTO](t, rec)

	require.Len(t, rep.Tiers, 3)
	assert.Equal(t, 1, rep.Tiers[2].Occupants)
	assert.Equal(t, 1, rep.Tiers[2].Vacancies)
	assert.True(t, decimal.NewFromInt(50).Equal(rep.Tiers[2].FillRate), rep.Tiers[2].FillRate.String())
	assert.True(t, decimal.NewFromInt(75).Equal(rep.FillRate), rep.FillRate.String())
	assert.Equal(t, []string{"C"}, rep.UnderStrength)
}

func TestSimulation_Summary(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	sum := decode[SimulationDTO](t, do(t, router, http.MethodGet, "/api/simulation", nil))
	assert.Equal(t, 60, sum.RetirementAge)
	assert.Equal(t, 4, sum.Members)
	assert.Equal(t, 4, sum.Events)
	assert.Equal(t, "31-03-2025", sum.FirstEvent)
	assert.Equal(t, "31-01-2035", sum.LastEvent)
	assert.Greater(t, sum.Promotions, 0)
}

func TestRecordErrors_Listed(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "invalid-records")

	errs := decode[[]RecordErrorDTO](t, do(t, router, http.MethodGet, "/api/record-errors", nil))
	require.Len(t, errs, 2)
	got := map[string]string{}
	for _, e := range errs {
		assert.Equal(t, "dob", e.Field)
		got[e.MemberID] = e.Value
	}
	assert.Equal(t, map[string]string{"x1": "31-02-1970", "x2": "1975/01/01"}, got)

	// Still seated, never retired
	detail := decode[MemberDetailDTO](t, do(t, router, http.MethodGet, "/api/members/x1?as_of=01-01-2100", nil))
	assert.True(t, detail.InService)
	assert.Equal(t, "B", detail.EffectiveRank)
	assert.Empty(t, detail.RetirementDate)
	assert.NotEmpty(t, detail.RecordError)
}

// =============================================================================
// MEMBER ENDPOINTS
// =============================================================================

func TestGetMember_EffectiveRank(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	m2 := decode[MemberDetailDTO](t, do(t, router, http.MethodGet, "/api/members/m2?as_of=31-03-2025", nil))
	assert.Equal(t, "B", m2.Rank, "stored rank is the original")
	assert.Equal(t, "A", m2.EffectiveRank)
	assert.Equal(t, 1, m2.Promotions)
	assert.True(t, m2.InService)
	assert.Equal(t, "30-06-2030", m2.RetirementDate)

	m1 := decode[MemberDetailDTO](t, do(t, router, http.MethodGet, "/api/members/m1?as_of=01-04-2025", nil))
	assert.True(t, m1.Retired)
	assert.False(t, m1.InService)
	assert.Empty(t, m1.EffectiveRank)

	rec := do(t, router, http.MethodGet, "/api/members/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMembers_Search(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	all := decode[[]MemberDTO](t, do(t, router, http.MethodGet, "/api/members", nil))
	assert.Len(t, all, 4)
	assert.Equal(t, "m1", all[0].ID)

	found := decode[[]MemberDTO](t, do(t, router, http.MethodGet, "/api/members?q=das", nil))
	require.Len(t, found, 1)
	assert.Equal(t, "m2", found[0].ID)

	// One character is too short to search
	none := decode[[]MemberDTO](t, do(t, router, http.MethodGet, "/api/members?q=a", nil))
	assert.Empty(t, none)
}

func TestSetFrozen_StopsTheCascade(t *testing.T) {
	// GIVEN: The basic cascade
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	// WHEN: m1 is frozen
	rec := do(t, router, http.MethodPut, "/api/members/m1/frozen", map[string]bool{"frozen": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: m1 never vacates A and m2 is never promoted into it
	snap := decode[SnapshotDTO](t, do(t, router, http.MethodGet, "/api/snapshot?as_of=31-03-2025", nil))
	assert.Equal(t, []string{"m1"}, tierIDs(snap)["A"])

	tl := decode[TimelineDTO](t, do(t, router, http.MethodGet, "/api/members/m2/timeline", nil))
	assert.Empty(t, tl.Entries)
	assert.Equal(t, promotion.NoPromotionsText, tl.Text)

	// AND: unfreezing restores the cascade
	do(t, router, http.MethodPut, "/api/members/m1/frozen", map[string]bool{"frozen": false})
	snap = decode[SnapshotDTO](t, do(t, router, http.MethodGet, "/api/snapshot?as_of=31-03-2025", nil))
	assert.Equal(t, []string{"m2"}, tierIDs(snap)["A"])
}

func TestSetFrozen_Errors(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	rec := do(t, router, http.MethodPut, "/api/members/nobody/frozen", map[string]bool{"frozen": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/members/m1/frozen", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMember(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "full-force")

	newcomer := MemberDTO{ID: "new-1", Name: "New Officer", DOB: "01-01-2000", Rank: "AC", OrderIndex: 999999}
	rec := do(t, router, http.MethodPost, "/api/members", newcomer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	detail := decode[MemberDetailDTO](t, do(t, router, http.MethodGet, "/api/members/new-1?as_of=01-01-2024", nil))
	assert.Equal(t, "AC", detail.EffectiveRank)
	assert.Equal(t, "31-01-2060", detail.RetirementDate)
}

func TestCreateMember_Rejections(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	tests := []struct {
		name string
		body MemberDTO
		want int
	}{
		{"missing id", MemberDTO{Rank: "C", OrderIndex: 9}, http.StatusBadRequest},
		{"missing order", MemberDTO{ID: "m9", Rank: "C"}, http.StatusBadRequest},
		{"unknown rank", MemberDTO{ID: "m9", Rank: "Z", OrderIndex: 9}, http.StatusUnprocessableEntity},
		{"seniority taken", MemberDTO{ID: "m9", Rank: "C", DOB: "01-01-1990", OrderIndex: 1}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/members", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateMember_OverCapacityBlocksTheRun(t *testing.T) {
	// GIVEN: C is full (capacity 2)
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	// WHEN: A third member is saved into C
	rec := do(t, router, http.MethodPost, "/api/members",
		MemberDTO{ID: "m5", Name: "Extra", DOB: "01-01-1990", Rank: "C", OrderIndex: 5})
	require.Equal(t, http.StatusCreated, rec.Code)

	// THEN: The write is kept but the run reports a configuration error
	rec = do(t, router, http.MethodGet, "/api/snapshot?as_of=31-03-2025", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, promotion.ErrRankOverCapacity.Error())

	// AND: Removing the member makes the run valid again
	rec = do(t, router, http.MethodDelete, "/api/members/m5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/snapshot?as_of=31-03-2025", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoster_ExportImportRoundTrip(t *testing.T) {
	// GIVEN: The basic cascade exported as YAML, then removed member by member
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	rec := do(t, router, http.MethodGet, "/api/roster?format=yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	exported := rec.Body.Bytes()
	assert.Contains(t, string(exported), "order_index: 3")

	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		require.Equal(t, http.StatusOK, do(t, router, http.MethodDelete, "/api/members/"+id, nil).Code)
	}

	// WHEN: The document is imported back
	rec = doRaw(t, router, http.MethodPut, "/api/roster", "application/yaml", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, decode[map[string]int](t, rec)["imported"])

	// THEN: The run is the same cascade as before
	snap := decode[SnapshotDTO](t, do(t, router, http.MethodGet, "/api/snapshot?as_of=31-03-2025", nil))
	ids := tierIDs(snap)
	assert.Equal(t, []string{"m2"}, ids["A"])
	assert.Equal(t, []string{"m3"}, ids["B"])
	assert.Equal(t, []string{"m4"}, ids["C"])
}

func TestRoster_ImportJSONAddsMembers(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "full-force")

	body := []byte(`{"members":[{"id":"new-1","name":"New One","dob":"01-01-2000","rank":"AC","order_index":900001},
		{"id":"new-2","name":"New Two","dob":"02-02-2000","rank":"AC","order_index":900002}]}`)
	rec := doRaw(t, router, http.MethodPut, "/api/roster", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	detail := decode[MemberDetailDTO](t, do(t, router, http.MethodGet, "/api/members/new-2?as_of=01-01-2024", nil))
	assert.Equal(t, "AC", detail.EffectiveRank)
	assert.Equal(t, "29-02-2060", detail.RetirementDate)
}

func TestRoster_ImportRejections(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"members":`, http.StatusBadRequest},
		{"missing id", `{"members":[{"rank":"C","order_index":9}]}`, http.StatusBadRequest},
		{"unknown rank", `{"members":[{"id":"m9","rank":"Z","order_index":9}]}`, http.StatusUnprocessableEntity},
		{"seniority taken", `{"members":[{"id":"m9","rank":"C","dob":"01-01-1990","order_index":1}]}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRaw(t, router, http.MethodPut, "/api/roster", "application/json", []byte(tt.body))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	// Nothing was written by the rejected imports
	members := decode[[]MemberDTO](t, do(t, router, http.MethodGet, "/api/members", nil))
	assert.Len(t, members, 4)

	rec := do(t, router, http.MethodGet, "/api/roster?format=toml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_MemoryStoreRejectsTakenSeniority(t *testing.T) {
	ladder, roster := basicCascadeScenario()
	h := NewHandler(store.NewMemory(ladder, roster...), slog.New(slog.NewTextHandler(io.Discard, nil)), 60)
	router := NewRouter(h, nil)

	rec := do(t, router, http.MethodPost, "/api/members",
		MemberDTO{ID: "m9", Name: "Twin", DOB: "01-01-1990", Rank: "C", OrderIndex: 1})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestDeleteMember_Unknown(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	rec := do(t, router, http.MethodDelete, "/api/members/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// LADDER AND SCENARIOS
// =============================================================================

func TestLadder_PutAndGet(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	bigger := factory.LadderDoc{Ranks: []factory.RankDoc{
		{Name: "A", Capacity: 2},
		{Name: "B", Capacity: 2},
		{Name: "C", Capacity: 4},
	}}
	rec := do(t, router, http.MethodPut, "/api/ladder", bigger)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[factory.LadderDoc](t, do(t, router, http.MethodGet, "/api/ladder", nil))
	assert.Equal(t, bigger, got)

	// With two A seats m1's retirement only opens one of them
	strength := decode[StrengthDTO](t, do(t, router, http.MethodGet, "/api/strength?as_of=01-01-2024", nil))
	assert.Equal(t, 1, strength.Tiers[0].Occupants)
}

func TestLadder_PutInvalid(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodPut, "/api/ladder",
		factory.LadderDoc{Ranks: []factory.RankDoc{{Name: "A", Capacity: 0}}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/ladder", factory.LadderDoc{Ranks: []factory.RankDoc{{Capacity: 1}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulation_EmptyStoreIsAConfigError(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodGet, "/api/simulation", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Invalid configuration", decode[ErrorResponse](t, rec).Error)
}

func TestScenarios_ListAndLoad(t *testing.T) {
	_, router := newTestServer(t)

	list := decode[[]ScenarioDTO](t, do(t, router, http.MethodGet, "/api/scenarios", nil))
	require.Len(t, list, 4)

	for _, s := range list {
		loadScenario(t, router, s.ID)

		current := decode[ScenarioDTO](t, do(t, router, http.MethodGet, "/api/scenarios/current", nil))
		assert.Equal(t, s.ID, current.ID)

		sum := decode[SimulationDTO](t, do(t, router, http.MethodGet, "/api/simulation", nil))
		assert.Equal(t, s.Members, sum.Members, s.ID)
	}

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenarios_FullForceKeepsCapacity(t *testing.T) {
	_, router := newTestServer(t)
	loadScenario(t, router, "full-force")

	for _, asOf := range []string{"01-01-2024", "31-12-2030", "31-12-2045"} {
		rep := decode[StrengthDTO](t, do(t, router, http.MethodGet, "/api/strength?as_of="+asOf, nil))
		for _, tier := range rep.Tiers {
			assert.LessOrEqual(t, tier.Occupants, tier.Capacity, "%s %s", asOf, tier.Rank)
		}
	}
}

func TestReset_RestoresSeedLadder(t *testing.T) {
	h, router := newTestServer(t)
	loadScenario(t, router, "cascade-basic")

	rec := do(t, router, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	members := decode[[]MemberDTO](t, do(t, router, http.MethodGet, "/api/members", nil))
	assert.Empty(t, members)

	ladder := decode[factory.LadderDoc](t, do(t, router, http.MethodGet, "/api/ladder", nil))
	assert.Equal(t, h.Factory.ToDoc(h.SeedLadder), ladder)

	// An empty roster on a valid ladder is a valid run
	rec = do(t, router, http.MethodGet, "/api/simulation", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_WorksOnMemoryStore(t *testing.T) {
	ladder, roster := basicCascadeScenario()
	h := NewHandler(store.NewMemory(ladder, roster...), slog.New(slog.NewTextHandler(io.Discard, nil)), 60)
	router := NewRouter(h, nil)

	snap := decode[SnapshotDTO](t, do(t, router, http.MethodGet, "/api/snapshot?as_of=31-03-2025", nil))
	assert.Equal(t, []string{"m2"}, tierIDs(snap)["A"])
}
