package asset

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetline/assetline/internal/platform/httpx"
	"github.com/assetline/assetline/internal/shared"
)

// Handler exposes the asset API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers asset routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}/basic-info", h.updateBasicInfo)
	r.Put("/{id}/financials", h.updateFinancials)
	r.Put("/{id}/physical", h.updatePhysical)
	r.Post("/{id}/assign", h.assign)
	r.Post("/{id}/unassign", h.unassign)
	r.Post("/{id}/status", h.changeStatus)
	r.Post("/{id}/retire", h.retire)
}

type createAssetRequest struct {
	OrgID          int64    `json:"org_id" validate:"required"`
	CategoryID     int64    `json:"category_id" validate:"required"`
	Name           string   `json:"name" validate:"required"`
	Code           string   `json:"code" validate:"required"`
	PurchasePrice  float64  `json:"purchase_price" validate:"gte=0"`
	OriginalCost   float64  `json:"original_cost" validate:"gte=0"`
	CurrentValue   float64  `json:"current_value" validate:"gte=0"`
	PurchaseDate   string   `json:"purchase_date" validate:"required"`
	WarrantyExpiry string   `json:"warranty_expiry,omitempty"`
	Model          string   `json:"model"`
	SerialNumber   string   `json:"serial_number"`
	Manufacturer   string   `json:"manufacturer"`
	Condition      string   `json:"condition"`
	Location       string   `json:"location"`
	Specs          string   `json:"specs"`
	DepartmentID   *int64   `json:"department_id"`
	UserID         *int64   `json:"user_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	purchaseDate, err := httpx.ParseDate(req.PurchaseDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "purchase_date must be YYYY-MM-DD")
		return
	}
	var warranty *time.Time
	if req.WarrantyExpiry != "" {
		wd, err := httpx.ParseDate(req.WarrantyExpiry)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "warranty_expiry must be YYYY-MM-DD")
			return
		}
		warranty = &wd
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		OrgID:          req.OrgID,
		CategoryID:     req.CategoryID,
		CreatedBy:      httpx.ActorID(r),
		Name:           req.Name,
		Code:           req.Code,
		PurchasePrice:  req.PurchasePrice,
		OriginalCost:   req.OriginalCost,
		CurrentValue:   req.CurrentValue,
		PurchaseDate:   purchaseDate,
		WarrantyExpiry: warranty,
		Model:          req.Model,
		SerialNumber:   req.SerialNumber,
		Manufacturer:   req.Manufacturer,
		Condition:      req.Condition,
		Location:       req.Location,
		Specs:          req.Specs,
		Custody:        Custody{DepartmentID: req.DepartmentID, UserID: req.UserID},
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
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pg := shared.NewPagination(int(httpx.QueryInt64(q.Get("page"))), int(httpx.QueryInt64(q.Get("per_page"))), 0)
	filter := ListFilter{
		OrgID:        httpx.QueryInt64(q.Get("org_id")),
		Status:       Status(q.Get("status")),
		CategoryID:   httpx.QueryInt64(q.Get("category_id")),
		DepartmentID: httpx.QueryInt64(q.Get("department_id")),
		Search:       q.Get("search"),
		Limit:        pg.PerPage,
		Offset:       pg.Offset(),
	}
	assets, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": assets, "pagination": shared.NewPagination(pg.Page, pg.PerPage, total)})
}

type updateBasicInfoRequest struct {
	Name       string `json:"name" validate:"required"`
	CategoryID int64  `json:"category_id" validate:"required"`
}

func (h *Handler) updateBasicInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req updateBasicInfoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.UpdateBasicInfo(r.Context(), id, req.Name, req.CategoryID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

type updateFinancialsRequest struct {
	PurchasePrice  float64 `json:"purchase_price" validate:"gte=0"`
	OriginalCost   float64 `json:"original_cost" validate:"gte=0"`
	CurrentValue   float64 `json:"current_value" validate:"gte=0"`
	PurchaseDate   string  `json:"purchase_date" validate:"required"`
	WarrantyExpiry string  `json:"warranty_expiry,omitempty"`
}

func (h *Handler) updateFinancials(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req updateFinancialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	purchaseDate, err := httpx.ParseDate(req.PurchaseDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "purchase_date must be YYYY-MM-DD")
		return
	}
	var warranty *time.Time
	if req.WarrantyExpiry != "" {
		wd, err := httpx.ParseDate(req.WarrantyExpiry)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "warranty_expiry must be YYYY-MM-DD")
			return
		}
		warranty = &wd
	}
	updated, err := h.service.UpdateFinancials(r.Context(), id, UpdateFinancialsInput{
		PurchasePrice:  req.PurchasePrice,
		OriginalCost:   req.OriginalCost,
		CurrentValue:   req.CurrentValue,
		PurchaseDate:   purchaseDate,
		WarrantyExpiry: warranty,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) updatePhysical(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req UpdatePhysicalInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	updated, err := h.service.UpdatePhysicalCondition(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

type assignRequest struct {
	UserID       int64 `json:"user_id" validate:"required"`
	DepartmentID int64 `json:"department_id" validate:"required"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Assign(r.Context(), id, req.UserID, req.DepartmentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Unassign(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.ChangeStatus(r.Context(), id, Status(req.Status))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) retire(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Retire(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

