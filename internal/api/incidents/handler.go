// Package incidents exposes read-only query endpoints over recorded
// incidents and daily statistics.
package incidents

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/firewatch/internal/api/respond"
	"github.com/good-yellow-bee/firewatch/internal/models"
	"github.com/good-yellow-bee/firewatch/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200

	defaultQueryTimeout = 10 * time.Second
)

// Handler serves incident and stats queries.
type Handler struct {
	store        storage.Storage
	queryTimeout time.Duration
}

// NewHandler creates a query handler. Storage reads are bounded by
// queryTimeout.
func NewHandler(store storage.Storage, queryTimeout time.Duration) *Handler {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &Handler{store: store, queryTimeout: queryTimeout}
}

func (h *Handler) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.queryTimeout)
}

// List handles GET /incidents with optional resource_key, severity,
// limit and offset query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := storage.IncidentFilter{
		ResourceKey: r.URL.Query().Get("resource_key"),
		Limit:       defaultPageSize,
	}

	if sev := r.URL.Query().Get("severity"); sev != "" {
		filter.Severity = models.NormalizeSeverity(sev)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			respond.JSONError(w, respond.NewBadRequest("limit must be between 1 and "+strconv.Itoa(maxPageSize)))
			return
		}
		filter.Limit = n
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respond.JSONError(w, respond.NewBadRequest("offset must be a non-negative integer"))
			return
		}
		filter.Offset = n
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	items, total, err := h.store.Incidents().List(ctx, filter)
	if err != nil {
		log.Printf("incidents: list: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	respond.OK(w, respond.PaginatedResponse{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Get handles GET /incidents/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("incident id is required"))
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	incident, err := h.store.Incidents().GetByID(ctx, id)
	if err != nil {
		log.Printf("incidents: get %s: %v", id, err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}
	if incident == nil {
		respond.JSONError(w, respond.NewNotFound("incident not found"))
		return
	}

	respond.OK(w, incident)
}

// DailyStats handles GET /stats/daily with an optional days parameter.
func (h *Handler) DailyStats(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respond.JSONError(w, respond.NewBadRequest("days must be a positive integer"))
			return
		}
		days = n
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	stats, err := h.store.Stats().ListRecent(ctx, days)
	if err != nil {
		log.Printf("incidents: daily stats: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	respond.OK(w, stats)
}
