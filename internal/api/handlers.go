package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goodtune/sitetime/internal/storage"
	"github.com/goodtune/sitetime/internal/usage"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Tracker is the subset of usage.Tracker served over HTTP.
type Tracker interface {
	QueryAggregate(ctx context.Context, period usage.Period) (storage.DaySet, error)
	QueryDay(ctx context.Context, date string) (storage.DaySet, error)
	ActiveDomain() (string, bool)
	TabActivated(ctx context.Context, tabID int, rawURL string) error
	TabUpdated(ctx context.Context, update usage.TabUpdate) error
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// Handler serves ledger queries and tab events.
type Handler struct {
	tracker Tracker
	logger  zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(tracker Tracker, logger zerolog.Logger) *Handler {
	return &Handler{
		tracker: tracker,
		logger:  logger.With().Str("handler", "api").Logger(),
	}
}

// Message dispatches a viewer message by action.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch msg.Action {
	case ActionGetSiteData:
		h.siteData(w, r, msg.Period)
	case ActionGetActiveTabDomain:
		h.Active(w, r)
	default:
		writeError(w, http.StatusBadRequest, "Unknown action: "+msg.Action)
	}
}

// Sites returns aggregated records for the period query parameter.
func (h *Handler) Sites(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = string(usage.PeriodToday)
	}
	h.siteData(w, r, period)
}

func (h *Handler) siteData(w http.ResponseWriter, r *http.Request, period string) {
	p, err := usage.ParsePeriod(period)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := h.tracker.QueryAggregate(r.Context(), p)
	if err != nil {
		h.logger.Error().Err(err).Str("period", period).Msg("Failed to query site data")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve site data")
		return
	}

	writeJSON(w, http.StatusOK, SiteDataResponse{Data: data})
}

// Day returns the records of a single date.
func (h *Handler) Day(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]

	data, err := h.tracker.QueryDay(r.Context(), date)
	if err != nil {
		if errors.Is(err, usage.ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("date", date).Msg("Failed to query day")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve day")
		return
	}

	writeJSON(w, http.StatusOK, DayResponse{Date: date, Data: data})
}

// Active returns the domain of the focused tab.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	var resp ActiveDomainResponse
	if domain, ok := h.tracker.ActiveDomain(); ok {
		resp.Domain = &domain
	}
	writeJSON(w, http.StatusOK, resp)
}

// TabActivated records a tab focus change.
func (h *Handler) TabActivated(w http.ResponseWriter, r *http.Request) {
	var req TabActivatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.tracker.TabActivated(r.Context(), req.TabID, req.URL); err != nil {
		h.logger.Error().Err(err).Int("tab_id", req.TabID).Msg("Failed to record tab activation")
		writeError(w, http.StatusInternalServerError, "Failed to record focus change")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TabUpdated records a tab navigation update.
func (h *Handler) TabUpdated(w http.ResponseWriter, r *http.Request) {
	var req TabUpdatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := usage.TabUpdate{
		TabID:  req.TabID,
		Status: req.Status,
		Active: req.Active,
		URL:    req.URL,
	}
	if err := h.tracker.TabUpdated(r.Context(), update); err != nil {
		h.logger.Error().Err(err).Int("tab_id", req.TabID).Msg("Failed to record tab update")
		writeError(w, http.StatusInternalServerError, "Failed to record focus change")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
