package maintenance

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetline/assetline/internal/platform/httpx"
	"github.com/assetline/assetline/internal/shared"
)

// Handler exposes the maintenance API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers maintenance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/cancel", h.cancel)
}

type createOrderRequest struct {
	AssetID       int64   `json:"asset_id" validate:"required"`
	Description   string  `json:"description" validate:"required"`
	ScheduledDate string  `json:"scheduled_date" validate:"required"`
	EstimatedCost float64 `json:"estimated_cost" validate:"gte=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	scheduled, err := httpx.ParseDate(req.ScheduledDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "scheduled_date must be YYYY-MM-DD")
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		AssetID:       req.AssetID,
		Description:   req.Description,
		ScheduledDate: scheduled,
		EstimatedCost: req.EstimatedCost,
		CreatedBy:     httpx.ActorID(r),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pg := shared.NewPagination(int(httpx.QueryInt64(q.Get("page"))), int(httpx.QueryInt64(q.Get("per_page"))), 0)
	orders, total, err := h.service.List(r.Context(), ListFilter{
		AssetID: httpx.QueryInt64(q.Get("asset_id")),
		Status:  Status(q.Get("status")),
		Limit:   pg.PerPage,
		Offset:  pg.Offset(),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": orders, "pagination": shared.NewPagination(pg.Page, pg.PerPage, total)})
}

type completeOrderRequest struct {
	Cost float64 `json:"cost" validate:"gte=0"`
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req completeOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Complete(r.Context(), id, req.Cost)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}
