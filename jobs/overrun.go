package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/assetline/assetline/internal/budget"
	jobmetrics "github.com/assetline/assetline/internal/jobs"
)

// BudgetStore is the slice of the budget repository the jobs need.
type BudgetStore interface {
	ListOverrunCandidates(ctx context.Context, threshold float64) ([]budget.Plan, error)
}

// OverrunScanJob flags active plans whose utilization crosses the
// alert threshold.
type OverrunScanJob struct {
	store     BudgetStore
	metrics   *jobmetrics.Metrics
	logger    *slog.Logger
	threshold float64
}

// NewOverrunScanJob wires the budget overrun handler.
func NewOverrunScanJob(store BudgetStore, metrics *jobmetrics.Metrics, logger *slog.Logger, threshold float64) *OverrunScanJob {
	if threshold <= 0 {
		threshold = 90
	}
	return &OverrunScanJob{store: store, metrics: metrics, logger: logger, threshold: threshold}
}

// Handle processes one overrun scan.
func (j *OverrunScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track("budget_overrun_scan")
	return tracker.End(j.run(ctx))
}

func (j *OverrunScanJob) run(ctx context.Context) error {
	plans, err := j.store.ListOverrunCandidates(ctx, j.threshold)
	if err != nil {
		return err
	}
	j.metrics.AddOverruns(len(plans))
	for _, p := range plans {
		j.logger.Warn("budget plan near allocation",
			slog.Int64("plan_id", p.ID),
			slog.Int64("department_id", p.DepartmentID),
			slog.Int("fiscal_year", p.FiscalYear),
			slog.Float64("utilization_pct", p.UtilizationRate()),
		)
	}
	j.logger.Info("budget overrun scan finished", slog.Int("flagged", len(plans)), slog.Float64("threshold", j.threshold))
	return nil
}
