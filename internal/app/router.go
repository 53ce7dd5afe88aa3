package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/audit"
	"github.com/assetline/assetline/internal/budget"
	"github.com/assetline/assetline/internal/disposal"
	"github.com/assetline/assetline/internal/inventorycheck"
	"github.com/assetline/assetline/internal/maintenance"
	"github.com/assetline/assetline/internal/observability"
	"github.com/assetline/assetline/internal/transfer"
	"github.com/assetline/assetline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AssetHandler       *asset.Handler
	TransferHandler    *transfer.Handler
	DisposalHandler    *disposal.Handler
	BudgetHandler      *budget.Handler
	InventoryHandler   *inventorycheck.Handler
	MaintenanceHandler *maintenance.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Assetline defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/assets", params.AssetHandler.MountRoutes)
	r.Route("/transfers", params.TransferHandler.MountRoutes)
	r.Route("/disposals", params.DisposalHandler.MountRoutes)
	r.Route("/budgets", params.BudgetHandler.MountRoutes)
	r.Route("/inventory-checks", params.InventoryHandler.MountRoutes)
	r.Route("/maintenance", params.MaintenanceHandler.MountRoutes)
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
