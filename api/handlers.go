/*
handlers.go - HTTP API handlers for the promotion engine

PURPOSE:
  Exposes the promotion cascade via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the promotion package.

ENDPOINTS:
  Roster:
    GET    /api/members?q=              List roster (search when q is given)
    POST   /api/members                 Create or replace a member
    GET    /api/members/{id}?as_of=     Member with effective rank on a date
    GET    /api/members/{id}/timeline   Full promotion history
    PUT    /api/members/{id}/frozen     Set or clear the frozen flag
    DELETE /api/members/{id}            Remove a member
    GET    /api/roster?format=          Whole roster as a JSON or YAML document
    PUT    /api/roster                  Import a roster document in one transaction

  Ladder:
    GET    /api/ladder                  Ranks and capacities, highest first
    PUT    /api/ladder                  Replace the ladder

  Projection:
    GET    /api/snapshot?as_of=         Occupancy of every rank on a date
    GET    /api/strength?as_of=         Per-rank fill report on a date
    GET    /api/simulation              Summary of the current run
    GET    /api/record-errors           Members excluded from the cascade

ARCHITECTURE:
  Handler holds all dependencies:
  - Store: roster and ladder persistence (the run's INPUT)
  - Factory: document to ladder/member conversion
  - the latest SimulationResult, rebuilt after every mutation

  A SimulationResult is immutable once built, so readers share it without
  copying. Rebuilds are serialized; the last mutation's rebuild always wins.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Mutate the store, or read the current run
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON {"error": ..., "details": ...}:
  - 400: Malformed body, bad date, bad document
  - 404: Unknown member
  - 409: Seniority key already taken
  - 422: Configuration errors (the run cannot start)
  - 500: Store failures

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/warp/promotion-engine/factory"
	"github.com/warp/promotion-engine/promotion"
)

// Store is the roster and ladder persistence the handlers need.
// Implemented by sqlite.Store and store.Memory.
type Store interface {
	promotion.RosterSource
	promotion.LadderSource
	SaveMember(ctx context.Context, m promotion.Member) error
	SaveRoster(ctx context.Context, members []promotion.Member) error
	SetFrozen(ctx context.Context, id promotion.MemberID, frozen bool) error
	DeleteMember(ctx context.Context, id promotion.MemberID) error
	SaveLadder(ctx context.Context, ladder promotion.Ladder) error
	Reset(ctx context.Context) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         Store
	Factory       *factory.LadderFactory
	Logger        *slog.Logger
	RetirementAge int

	// SeedLadder is restored after a reset
	SeedLadder promotion.Ladder

	// Today defaults as_of when the query omits it
	Today func() promotion.Date

	rebuildMu sync.Mutex

	mu              sync.RWMutex
	result          *promotion.SimulationResult
	runErr          error
	built           bool
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store, logger *slog.Logger, retirementAge int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:         store,
		Factory:       factory.NewLadderFactory(),
		Logger:        logger,
		RetirementAge: retirementAge,
		SeedLadder:    factory.DefaultLadder(),
		Today:         promotion.Today,
	}
}

// Rebuild reruns the simulation from the store and caches the outcome.
// Configuration errors are cached too, so readers can report them.
func (h *Handler) Rebuild(ctx context.Context) error {
	h.rebuildMu.Lock()
	defer h.rebuildMu.Unlock()

	// The cached result outlives the request that triggered it
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	res, err := promotion.Load(ctx, h.Store, h.Store, h.RetirementAge)

	h.mu.Lock()
	h.result, h.runErr, h.built = res, err, true
	h.mu.Unlock()

	if err != nil {
		h.Logger.Warn("simulation rebuild failed", "error", err)
		return err
	}
	h.Logger.Info("simulation rebuilt",
		"members", len(res.Roster()),
		"events", len(res.Events()),
		"promotions", res.Ledger().Len(),
		"record_errors", len(res.RecordErrors()),
		"duration", time.Since(start),
	)
	return nil
}

// Simulation returns the cached run, building it on first use.
func (h *Handler) Simulation(ctx context.Context) (*promotion.SimulationResult, error) {
	h.mu.RLock()
	res, err, built := h.result, h.runErr, h.built
	h.mu.RUnlock()
	if built {
		return res, err
	}

	_ = h.Rebuild(ctx)

	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result, h.runErr
}

// rebuildAfterMutation refreshes the run. The mutation itself already
// succeeded, so failures are only logged.
func (h *Handler) rebuildAfterMutation(ctx context.Context) {
	_ = h.Rebuild(ctx)
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// ListMembers returns the roster, most senior first. With ?q= only matching
// members are returned.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	roster, err := h.Store.Roster(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to list members", err)
		return
	}

	if q := r.URL.Query().Get("q"); q != "" {
		roster = promotion.Search(roster, q)
	}

	dtos := make([]MemberDTO, len(roster))
	for i, m := range roster {
		dtos[i] = factory.MemberToDoc(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMember creates or replaces a member. The rank must exist in the
// stored ladder; the DOB is not checked here (a bad DOB is a record error
// of the run, not a rejected write).
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req MemberDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	m, err := factory.MemberFromDoc(req)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid member", err)
		return
	}
	if m.OrderIndex <= 0 {
		h.writeError(w, r, http.StatusBadRequest, "order_index is required", nil)
		return
	}

	ctx := r.Context()
	ladder, err := h.Store.Ladder(ctx)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to load ladder", err)
		return
	}
	if !ladder.Contains(m.Rank) {
		cerr := &promotion.ConfigError{MemberID: m.ID, Rank: m.Rank, Err: promotion.ErrUnknownRank}
		h.writeError(w, r, http.StatusUnprocessableEntity, "Unknown rank", cerr)
		return
	}

	if err := h.Store.SaveMember(ctx, m); err != nil {
		if errors.Is(err, promotion.ErrDuplicateSeniority) {
			h.writeError(w, r, http.StatusConflict, "Seniority key already assigned", err)
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "Failed to save member", err)
		return
	}
	h.rebuildAfterMutation(ctx)

	writeJSON(w, http.StatusCreated, factory.MemberToDoc(m))
}

// GetMember returns a member with what the current run says about them on
// ?as_of= (default today).
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id := promotion.MemberID(chi.URLParam(r, "id"))

	asOf, err := h.asOf(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid as_of date (use DD-MM-YYYY)", err)
		return
	}

	res, err := h.Simulation(r.Context())
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	m, ok := res.Member(id)
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "Member not found", nil)
		return
	}

	rank, held, err := promotion.EffectiveRank(res, id, asOf)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to resolve rank", err)
		return
	}

	dto := MemberDetailDTO{
		MemberDTO:  factory.MemberToDoc(m),
		AsOf:       asOf.String(),
		Retired:    res.IsRetired(id, asOf),
		InService:  held,
		Promotions: len(res.Ledger().EntriesAsOf(id, asOf)),
	}
	if held {
		dto.EffectiveRank = string(rank)
	}
	if d, ok := res.RetirementDate(id); ok {
		dto.RetirementDate = d.String()
	}
	for _, rerr := range res.RecordErrors() {
		if rerr.MemberID == id {
			dto.RecordError = rerr.Error()
		}
	}

	writeJSON(w, http.StatusOK, dto)
}

// GetTimeline returns every promotion of a member over the whole run.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id := promotion.MemberID(chi.URLParam(r, "id"))

	res, err := h.Simulation(r.Context())
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	entries, err := promotion.GetMemberTimeline(res, id)
	if err != nil {
		if promotion.IsNotFound(err) {
			h.writeError(w, r, http.StatusNotFound, "Member not found", err)
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "Failed to get timeline", err)
		return
	}

	writeJSON(w, http.StatusOK, toTimelineDTO(id, entries))
}

// SetFrozen sets or clears the frozen flag of a member.
func (h *Handler) SetFrozen(w http.ResponseWriter, r *http.Request) {
	id := promotion.MemberID(chi.URLParam(r, "id"))

	var req SetFrozenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Frozen == nil {
		h.writeError(w, r, http.StatusBadRequest, "frozen is required", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.SetFrozen(ctx, id, *req.Frozen); err != nil {
		if promotion.IsNotFound(err) {
			h.writeError(w, r, http.StatusNotFound, "Member not found", err)
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "Failed to update member", err)
		return
	}
	h.rebuildAfterMutation(ctx)

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "frozen": *req.Frozen})
}

// DeleteMember removes a member from the roster.
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id := promotion.MemberID(chi.URLParam(r, "id"))
	ctx := r.Context()

	if err := h.Store.DeleteMember(ctx, id); err != nil {
		if promotion.IsNotFound(err) {
			h.writeError(w, r, http.StatusNotFound, "Member not found", err)
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "Failed to delete member", err)
		return
	}
	h.rebuildAfterMutation(ctx)

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ExportRoster returns the whole roster as a document, JSON by default or
// YAML with ?format=yaml.
func (h *Handler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	format := factory.FormatJSON
	if f := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); f != "" {
		format = factory.Format(f)
	}
	if format != factory.FormatJSON && format != factory.FormatYAML {
		h.writeError(w, r, http.StatusBadRequest, "format must be json or yaml", nil)
		return
	}

	roster, err := h.Store.Roster(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to list members", err)
		return
	}
	data, err := h.Factory.MarshalRoster(roster, format)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to encode roster", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportRoster saves every member of a roster document in one transaction.
// The body is YAML when Content-Type says so, JSON otherwise. Entries
// without order_index take their position in the document.
func (h *Handler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	members, err := h.Factory.ParseRoster(data, factory.FormatFromContentType(r.Header.Get("Content-Type")))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid roster", err)
		return
	}

	ctx := r.Context()
	ladder, err := h.Store.Ladder(ctx)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to load ladder", err)
		return
	}
	var unknown []error
	for _, m := range members {
		if !ladder.Contains(m.Rank) {
			unknown = append(unknown, &promotion.ConfigError{MemberID: m.ID, Rank: m.Rank, Err: promotion.ErrUnknownRank})
		}
	}
	if len(unknown) > 0 {
		h.writeError(w, r, http.StatusUnprocessableEntity, "Unknown rank", errors.Join(unknown...))
		return
	}

	if err := h.Store.SaveRoster(ctx, members); err != nil {
		if errors.Is(err, promotion.ErrDuplicateSeniority) {
			h.writeError(w, r, http.StatusConflict, "Seniority key already assigned", err)
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "Failed to save roster", err)
		return
	}
	h.rebuildAfterMutation(ctx)

	writeJSON(w, http.StatusOK, map[string]int{"imported": len(members)})
}

// =============================================================================
// LADDER HANDLERS
// =============================================================================

// GetLadder returns the stored ladder.
func (h *Handler) GetLadder(w http.ResponseWriter, r *http.Request) {
	ladder, err := h.Store.Ladder(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to load ladder", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.ToDoc(ladder))
}

// PutLadder replaces the ladder. The ladder itself must be valid; whether
// the roster still fits it is reported by the next run.
func (h *Handler) PutLadder(w http.ResponseWriter, r *http.Request) {
	var doc factory.LadderDoc
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ladder, err := h.Factory.FromDoc(doc)
	if err != nil {
		if promotion.IsConfigError(err) {
			h.writeError(w, r, http.StatusUnprocessableEntity, "Invalid ladder", err)
			return
		}
		h.writeError(w, r, http.StatusBadRequest, "Invalid ladder", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.SaveLadder(ctx, ladder); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to save ladder", err)
		return
	}
	h.rebuildAfterMutation(ctx)

	writeJSON(w, http.StatusOK, h.Factory.ToDoc(ladder))
}

// =============================================================================
// PROJECTION HANDLERS
// =============================================================================

// GetSnapshot returns the occupancy of every rank on ?as_of= (default today).
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid as_of date (use DD-MM-YYYY)", err)
		return
	}

	res, err := h.Simulation(r.Context())
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSnapshotDTO(promotion.ProjectSnapshot(res, asOf)))
}

// GetStrength returns the per-rank fill report on ?as_of= (default today).
func (h *Handler) GetStrength(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid as_of date (use DD-MM-YYYY)", err)
		return
	}

	res, err := h.Simulation(r.Context())
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	snap := promotion.ProjectSnapshot(res, asOf)
	writeJSON(w, http.StatusOK, toStrengthDTO(promotion.Strength(snap)))
}

// GetSimulation summarizes the current run.
func (h *Handler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Simulation(r.Context())
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	events := res.Events()
	dto := SimulationDTO{
		RetirementAge: res.RetirementAge(),
		Members:       len(res.Roster()),
		Events:        len(events),
		Promotions:    res.Ledger().Len(),
		RecordErrors:  len(res.RecordErrors()),
	}
	if len(events) > 0 {
		dto.FirstEvent = events[0].Date.String()
		dto.LastEvent = events[len(events)-1].Date.String()
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetRecordErrors lists members the current run could not process.
func (h *Handler) GetRecordErrors(w http.ResponseWriter, r *http.Request) {
	res, err := h.Simulation(r.Context())
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	rerrs := res.RecordErrors()
	dtos := make([]RecordErrorDTO, len(rerrs))
	for i, e := range rerrs {
		dtos[i] = RecordErrorDTO{
			MemberID: string(e.MemberID),
			Field:    e.Field,
			Value:    e.Value,
			Error:    e.Err.Error(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResetDatabase clears the roster and restores the seed ladder.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := h.Store.SaveLadder(ctx, h.SeedLadder); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to restore ladder", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	h.rebuildAfterMutation(ctx)

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) asOf(r *http.Request) (promotion.Date, error) {
	s := strings.TrimSpace(r.URL.Query().Get("as_of"))
	if s == "" {
		return h.Today(), nil
	}
	return promotion.ParseDate(s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeRunError reports why the current run is unavailable.
func (h *Handler) writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	if promotion.IsConfigError(err) {
		h.writeError(w, r, http.StatusUnprocessableEntity, "Invalid configuration", err)
		return
	}
	h.writeError(w, r, http.StatusInternalServerError, "Simulation failed", err)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message,
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
	writeJSON(w, status, resp)
}
