/*
handlers.go - HTTP API handlers for the dues engine

PURPOSE:
  Exposes the dues engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine, scheduler, and
  snapshot store.

ENDPOINTS:
  Roster:
    GET    /api/members              List roster
    POST   /api/members              Add member (triggers recompute)
    GET    /api/members/{memberID}   Get member
    PUT    /api/members/{memberID}   Update member (triggers recompute)
    DELETE /api/members/{memberID}   Remove member (triggers recompute)

  Settings:
    GET    /api/settings             Current invoice context
    PUT    /api/settings             Replace it (triggers recompute)

  Results:
    GET    /api/summary              Last committed summary
    GET    /api/summary/projection   One-off pass for another year
    GET    /api/rows                 Last committed per-member rows
    GET    /api/report               Report-worker document
    POST   /api/recompute            Trigger a pass and wait for it

  Snapshot:
    POST   /api/snapshot/save        Persist roster + settings
    POST   /api/snapshot/load        Restore persisted snapshot

  Ops:
    GET    /api/status               Epoch, roster size, cache stats
    GET    /health                   Liveness

REQUEST FLOW:
  1. Parse HTTP request
  2. Convert and validate input (dues.Validate*)
  3. Call engine/store
  4. For writes, wait for the resulting pass when the response needs it
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown member, no committed pass, no snapshot
  - 500: Store or scheduler failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/clubdesk/dues-engine/dues"
	"github.com/clubdesk/dues-engine/engine"
	"github.com/clubdesk/dues-engine/report"
	"github.com/clubdesk/dues-engine/store/sqlite"
)

// recomputeWait bounds how long a handler blocks on a triggered pass.
const recomputeWait = 30 * time.Second

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *engine.Engine
	Scheduler *engine.Scheduler
	Store     *sqlite.Store
	Log       zerolog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over the engine, its scheduler, and the
// snapshot store.
func NewHandler(eng *engine.Engine, sched *engine.Scheduler, store *sqlite.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Engine:    eng,
		Scheduler: sched,
		Store:     store,
		Log:       log,
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// ListMembers returns the roster in order.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members := h.Engine.Members()
	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMember returns a single member.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id := dues.MemberID(chi.URLParam(r, "memberID"))
	m, err := h.Engine.Member(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Member not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

// CreateMember validates and adds a member. A missing id is filled with
// a generated UUID. The add triggers a recompute.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	m, err := memberFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid member", err)
		return
	}

	if err := h.Engine.AddMember(m); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, engine.ErrDuplicateMember) {
			status = http.StatusConflict
		}
		writeError(w, status, "Failed to add member", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMemberDTO(m))
}

// UpdateMember validates and replaces a member in place. Triggers a
// recompute.
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "memberID")

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = id

	m, err := memberFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid member", err)
		return
	}

	if err := h.Engine.UpdateMember(m); err != nil {
		if errors.Is(err, engine.ErrMemberNotFound) {
			writeError(w, http.StatusNotFound, "Member not found", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to update member", err)
		return
	}

	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

// DeleteMember removes a member. Triggers a recompute.
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id := dues.MemberID(chi.URLParam(r, "memberID"))
	if err := h.Engine.RemoveMember(id); err != nil {
		writeError(w, http.StatusNotFound, "Member not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the current invoice context.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSettingsDTO(h.Engine.Settings()))
}

// UpdateSettings atomically replaces the invoice context. Triggers a
// recompute; the calculation cache survives, since its key excludes tax
// and currency.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	inv := dues.InvoiceContext{
		InvoiceYear:  req.InvoiceYear,
		TaxPercent:   req.TaxPercentage,
		CurrencyRate: req.CurrencyRate,
	}
	if err := h.Engine.SetSettings(inv); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings", err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsDTO(inv))
}

// =============================================================================
// RESULT HANDLERS
// =============================================================================

// GetSummary returns the last committed summary.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	res, ok := h.Engine.Committed()
	if !ok {
		writeError(w, http.StatusNotFound, "No completed recompute pass yet", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(res, h.Engine.Settings()))
}

// GetRows returns the last committed per-member results with formatted
// home and local strings.
func (h *Handler) GetRows(w http.ResponseWriter, r *http.Request) {
	res, ok := h.Engine.Committed()
	if !ok {
		writeError(w, http.StatusNotFound, "No completed recompute pass yet", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRowDTOs(res.Rows, h.Engine.Settings()))
}

// GetReport returns the report-rendering worker's document, flattened
// from the last committed pass.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	res, ok := h.Engine.Committed()
	if !ok {
		writeError(w, http.StatusNotFound, "No completed recompute pass yet", nil)
		return
	}
	doc := report.Build(res.Rows, res.Summary, h.Engine.Settings())
	writeJSON(w, http.StatusOK, doc)
}

// GetProjection runs a synchronous one-off pass for a different invoice
// year. The roster and committed results are untouched; the calculation
// cache is shared.
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	yearParam := r.URL.Query().Get("year")
	year, err := strconv.Atoi(yearParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year parameter (use ?year=YYYY)", err)
		return
	}

	rows, summary, err := h.Engine.Project(year)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Projection failed", err)
		return
	}

	inv := h.Engine.Settings()
	inv.InvoiceYear = year
	writeJSON(w, http.StatusOK, toSummaryDTO(engine.Results{Rows: rows, Summary: summary}, inv))
}

// Recompute triggers a pass, waits for it to commit, and returns the
// fresh summary.
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.Trigger()
	if err := h.waitForPass(r); err != nil {
		writeError(w, http.StatusInternalServerError, "Recompute did not complete", err)
		return
	}

	res, ok := h.Engine.Committed()
	if !ok {
		writeError(w, http.StatusInternalServerError, "Recompute committed nothing", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(res, h.Engine.Settings()))
}

// =============================================================================
// SNAPSHOT HANDLERS
// =============================================================================

// SaveSnapshot persists the current roster and settings.
func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := sqlite.Snapshot{
		Members:  h.Engine.Members(),
		Settings: h.Engine.Settings(),
		SavedAt:  time.Now().UTC(),
	}
	if err := h.Store.SaveSnapshot(r.Context(), snap); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save snapshot", err)
		return
	}

	h.Log.Info().Int("members", len(snap.Members)).Msg("snapshot saved")
	writeJSON(w, http.StatusOK, SnapshotResultDTO{
		Members:     len(snap.Members),
		InvoiceYear: snap.Settings.InvoiceYear,
		SavedAt:     snap.SavedAt.Format(time.RFC3339),
	})
}

// LoadSnapshot restores the persisted roster and settings into the
// engine and waits for the resulting pass.
func (h *Handler) LoadSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.LoadSnapshot(r.Context())
	if err != nil {
		if errors.Is(err, sqlite.ErrNoSnapshot) {
			writeError(w, http.StatusNotFound, "No snapshot stored", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load snapshot", err)
		return
	}

	if err := h.Engine.ReplaceRoster(snap.Members); err != nil {
		writeError(w, http.StatusBadRequest, "Snapshot roster rejected", err)
		return
	}
	if err := h.Engine.SetSettings(snap.Settings); err != nil {
		writeError(w, http.StatusBadRequest, "Snapshot settings rejected", err)
		return
	}
	if err := h.waitForPass(r); err != nil {
		writeError(w, http.StatusInternalServerError, "Recompute did not complete", err)
		return
	}

	h.Log.Info().Int("members", len(snap.Members)).Msg("snapshot loaded")
	writeJSON(w, http.StatusOK, SnapshotResultDTO{
		Members:     len(snap.Members),
		InvoiceYear: snap.Settings.InvoiceYear,
		SavedAt:     snap.SavedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// STATUS
// =============================================================================

// GetStatus reports the engine's operational state.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	stats := h.Engine.Cache().Stats()
	writeJSON(w, http.StatusOK, StatusDTO{
		Epoch:          h.Scheduler.Epoch(),
		LastCommitted:  h.Scheduler.LastCommitted(),
		RosterSize:     h.Engine.Size(),
		DebounceMillis: h.Scheduler.Debounce().Milliseconds(),
		SliceSize:      h.Scheduler.SliceSize(),
		Cache: CacheStatsDTO{
			Size:     stats.Size,
			Capacity: stats.Capacity,
			Hits:     stats.Hits,
			Misses:   stats.Misses,
		},
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// waitForPass blocks until the newest epoch commits, bounded by the
// request context and the recompute wait limit.
func (h *Handler) waitForPass(r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), recomputeWait)
	defer cancel()
	return h.Scheduler.Wait(ctx)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
