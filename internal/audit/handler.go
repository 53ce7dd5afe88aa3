package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/assetline/assetline/internal/platform/httpx"
)

// Handler exposes the audit timeline API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
	r.Get("/export", h.exportCSV)
}

func parseFilters(r *http.Request) TimelineFilters {
	q := r.URL.Query()
	filters := TimelineFilters{
		ActorID:  httpx.QueryInt64(q.Get("actor_id")),
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
		Page:     int(httpx.QueryInt64(q.Get("page"))),
		PageSize: int(httpx.QueryInt64(q.Get("page_size"))),
	}
	if from, err := httpx.ParseDate(q.Get("from")); err == nil {
		filters.From = from
	}
	if to, err := httpx.ParseDate(q.Get("to")); err == nil {
		// Inclusive end of day.
		filters.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	return filters
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Timeline(r.Context(), parseFilters(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	payload, err := h.service.ExportCSV(r.Context(), parseFilters(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
