package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/dandantas/tendril/internal/database"
	"github.com/dandantas/tendril/internal/model"
	"github.com/dandantas/tendril/internal/service"
)

// HistoryHandler handles generation history queries
type HistoryHandler struct {
	service *service.HistoryService
}

// NewHistoryHandler creates a new history handler. A nil service means
// history is disabled.
func NewHistoryHandler(service *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{
		service: service,
	}
}

// HistoryListResponse represents history list response
type HistoryListResponse struct {
	Total   int64                     `json:"total"`
	Page    int                       `json:"page"`
	Limit   int                       `json:"limit"`
	Results []model.GenerationSummary `json:"results"`
}

func (h *HistoryHandler) enabled(w http.ResponseWriter) bool {
	if h.service == nil {
		writeError(w, http.StatusServiceUnavailable, "Generation history is disabled")
		return false
	}
	return true
}

// List handles GET /api/v1/history
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !h.enabled(w) {
		return
	}

	filter := service.HistoryFilter{
		Kind:   r.URL.Query().Get("kind"),
		Status: r.URL.Query().Get("status"),
	}
	for key, dst := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		value := r.URL.Query().Get(key)
		if value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid "+key+": expected RFC3339 time")
			return
		}
		*dst = t
	}

	page := max(parseQueryInt(r, "page", 1), 1)
	limit := min(max(parseQueryInt(r, "limit", 20), 1), 100)

	summaries, total, err := h.service.List(r.Context(), filter, page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, HistoryListResponse{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Results: summaries,
	})
}

// Get handles GET /api/v1/history/{job_id}
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !h.enabled(w) {
		return
	}

	jobID, ok := pathID(r, "/api/v1/history/")
	if !ok {
		writeError(w, http.StatusNotFound, "Generation record not found")
		return
	}

	record, err := h.service.GetByJobID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, record)
}
