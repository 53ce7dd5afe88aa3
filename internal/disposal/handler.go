package disposal

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetline/assetline/internal/platform/httpx"
	"github.com/assetline/assetline/internal/shared"
)

// Handler exposes the disposal workflow API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers disposal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Get("/{id}/net-gain-loss", h.netGainLoss)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/accounting-entry", h.linkEntry)
}

type createDisposalRequest struct {
	AssetID      int64   `json:"asset_id" validate:"required"`
	Type         string  `json:"type" validate:"required"`
	Value        float64 `json:"value" validate:"gte=0"`
	DisposalDate string  `json:"disposal_date" validate:"required"`
	Reason       string  `json:"reason"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createDisposalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	disposalDate, err := httpx.ParseDate(req.DisposalDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "disposal_date must be YYYY-MM-DD")
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		AssetID:      req.AssetID,
		Type:         Type(req.Type),
		Value:        req.Value,
		DisposalDate: disposalDate,
		Reason:       req.Reason,
		CreatedBy:    httpx.ActorID(r),
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
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pg := shared.NewPagination(int(httpx.QueryInt64(q.Get("page"))), int(httpx.QueryInt64(q.Get("per_page"))), 0)
	disposals, total, err := h.service.List(r.Context(), ListFilter{
		AssetID: httpx.QueryInt64(q.Get("asset_id")),
		Status:  Status(q.Get("status")),
		Type:    Type(q.Get("type")),
		Limit:   pg.PerPage,
		Offset:  pg.Offset(),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": disposals, "pagination": shared.NewPagination(pg.Page, pg.PerPage, total)})
}

func (h *Handler) netGainLoss(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	value, err := h.service.NetGainLoss(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"net_gain_loss": value})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Approve(r.Context(), id, httpx.ActorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

type rejectDisposalRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req rejectDisposalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	updated, err := h.service.Reject(r.Context(), id, httpx.ActorID(r), req.Reason)
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

type linkEntryRequest struct {
	EntryID int64 `json:"entry_id" validate:"required"`
}

func (h *Handler) linkEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r)
	if !ok {
		return
	}
	var req linkEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.LinkAccountingEntry(r.Context(), id, req.EntryID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}
