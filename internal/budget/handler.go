package budget

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetline/assetline/internal/platform/httpx"
	"github.com/assetline/assetline/internal/shared"
)

// Handler exposes the budget ledger API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/summary", h.summary)
	r.Get("/summary/export", h.summaryCSV)
	r.Get("/{id}", h.get)
	r.Post("/{id}/transition", h.transition)
	r.Post("/{id}/spend", h.spend)
	r.Post("/{id}/refund", h.refund)
	r.Post("/{id}/allocate", h.allocate)
}

type createPlanRequest struct {
	OrgID           int64   `json:"org_id" validate:"required"`
	DepartmentID    int64   `json:"department_id" validate:"required"`
	FiscalYear      int     `json:"fiscal_year" validate:"required"`
	BudgetType      string  `json:"budget_type" validate:"required"`
	AllocatedAmount float64 `json:"allocated_amount" validate:"gte=0"`
	Description     string  `json:"description"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		OrgID:           req.OrgID,
		DepartmentID:    req.DepartmentID,
		FiscalYear:      req.FiscalYear,
		BudgetType:      req.BudgetType,
		AllocatedAmount: req.AllocatedAmount,
		Description:     req.Description,
		CreatedBy:       httpx.ActorID(r),
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
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pg := shared.NewPagination(int(httpx.QueryInt64(q.Get("page"))), int(httpx.QueryInt64(q.Get("per_page"))), 0)
	plans, total, err := h.service.List(r.Context(), ListFilter{
		OrgID:        httpx.QueryInt64(q.Get("org_id")),
		DepartmentID: httpx.QueryInt64(q.Get("department_id")),
		FiscalYear:   int(httpx.QueryInt64(q.Get("fiscal_year"))),
		BudgetType:   q.Get("budget_type"),
		Status:       Status(q.Get("status")),
		Limit:        pg.PerPage,
		Offset:       pg.Offset(),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": plans, "pagination": shared.NewPagination(pg.Page, pg.PerPage, total)})
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Transition(r.Context(), id, Status(req.Status))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

type amountRequest struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	RequestID string  `json:"request_id" validate:"omitempty,max=64"`
}

func (h *Handler) spend(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.service.Spend)
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.service.Refund)
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.service.AllocateAdditional)
}

func (h *Handler) applyAmount(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64, amount float64, requestID string) (Plan, error)) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := op(r.Context(), id, req.Amount, req.RequestID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orgID := httpx.QueryInt64(q.Get("org_id"))
	fiscalYear := int(httpx.QueryInt64(q.Get("fiscal_year")))
	if orgID == 0 || fiscalYear == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Missing Parameters", "org_id and fiscal_year are required")
		return
	}
	rows, err := h.service.Summary(r.Context(), orgID, fiscalYear)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (h *Handler) summaryCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orgID := httpx.QueryInt64(q.Get("org_id"))
	fiscalYear := int(httpx.QueryInt64(q.Get("fiscal_year")))
	if orgID == 0 || fiscalYear == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Missing Parameters", "org_id and fiscal_year are required")
		return
	}
	payload, err := h.service.SummaryCSV(r.Context(), orgID, fiscalYear)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="budget-utilization.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
