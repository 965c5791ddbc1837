package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"iqtoolkit/analyzer/pkg/history"
	"iqtoolkit/analyzer/pkg/proxy"
	"iqtoolkit/analyzer/pkg/telemetry/logging"
)

// HistoryHandler serves the stored analyses.
type HistoryHandler struct {
	store history.Store
}

// NewHistoryHandler creates the handler over store.
func NewHistoryHandler(store history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// ListResponse is the body of GET /analyses.
type ListResponse struct {
	Analyses []*history.Record `json:"analyses"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// List serves GET /analyses?limit=&offset=&provider=&status=&since=.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		proxy.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.storageError(w, r, err)
		return
	}

	total, err := h.store.Count(r.Context(), filter)
	if err != nil {
		h.storageError(w, r, err)
		return
	}

	proxy.WriteJSON(w, http.StatusOK, ListResponse{
		Analyses: records,
		Total:    total,
		Limit:    filter.EffectiveLimit(),
		Offset:   filter.Offset,
	})
}

// Get serves GET /analyses/{id}.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		proxy.WriteError(w, http.StatusNotFound, "Analysis not found")
		return
	}
	if err != nil {
		h.storageError(w, r, err)
		return
	}

	proxy.WriteJSON(w, http.StatusOK, record)
}

func (h *HistoryHandler) storageError(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("history lookup failed", "component", "handlers.history", "error", err)
	proxy.WriteError(w, http.StatusInternalServerError, "History lookup failed")
}

func parseFilter(r *http.Request) (history.Filter, error) {
	q := r.URL.Query()
	filter := history.Filter{
		Provider: q.Get("provider"),
		Status:   q.Get("status"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("since must be an RFC 3339 timestamp")
		}
		filter.Since = &t
	}
	if filter.Status != "" && filter.Status != history.StatusSuccess && filter.Status != history.StatusFailed {
		return filter, errors.New("status must be success or failed")
	}

	return filter, nil
}
