package inventorycheck

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/platform/httpx"
	"github.com/assetline/assetline/internal/shared"
)

// Handler exposes the inventory reconciliation API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/finish", h.finish)
	r.Get("/{id}/details", h.details)
	r.Get("/{id}/mismatches", h.mismatches)
	r.Post("/{id}/details", h.addDetail)
	r.Post("/details/{id}/result", h.recordResult)
}

type createCheckRequest struct {
	OrgID     int64   `json:"org_id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	CheckDate string  `json:"check_date" validate:"required"`
	Notes     string  `json:"notes"`
	AssetIDs  []int64 `json:"asset_ids"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createCheckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	checkDate, err := httpx.ParseDate(req.CheckDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "check_date must be YYYY-MM-DD")
		return
	}
	created, err := h.service.CreateCheck(r.Context(), CreateCheckInput{
		OrgID:     req.OrgID,
		Name:      req.Name,
		CheckerID: httpx.ActorID(r),
		CheckDate: checkDate,
		Notes:     req.Notes,
		AssetIDs:  req.AssetIDs,
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
	c, err := h.service.GetCheck(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pg := shared.NewPagination(int(httpx.QueryInt64(q.Get("page"))), int(httpx.QueryInt64(q.Get("per_page"))), 0)
	checks, total, err := h.service.ListChecks(r.Context(), ListFilter{
		OrgID:     httpx.QueryInt64(q.Get("org_id")),
		CheckerID: httpx.QueryInt64(q.Get("checker_id")),
		Status:    Status(q.Get("status")),
		Limit:     pg.PerPage,
		Offset:    pg.Offset(),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": checks, "pagination": shared.NewPagination(pg.Page, pg.PerPage, total)})
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	updated, err := h.service.FinishCheck(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) details(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListDetails(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) mismatches(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListMismatches(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

type addDetailRequest struct {
	AssetID int64 `json:"asset_id" validate:"required"`
}

func (h *Handler) addDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req addDetailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	added, err := h.service.AddDetail(r.Context(), id, req.AssetID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, added)
}

type recordResultRequest struct {
	ActualLocation string `json:"actual_location"`
	ActualStatus   string `json:"actual_status" validate:"required"`
	Notes          string `json:"notes"`
}

func (h *Handler) recordResult(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req recordResultRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.RecordResult(r.Context(), id, req.ActualLocation, asset.Status(req.ActualStatus), req.Notes)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}
