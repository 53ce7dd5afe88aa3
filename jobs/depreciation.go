package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/assetline/assetline/internal/asset"
	jobmetrics "github.com/assetline/assetline/internal/jobs"
	"github.com/assetline/assetline/internal/shared"
)

// AssetStore is the slice of the asset repository the jobs need.
type AssetStore interface {
	ListDepreciable(ctx context.Context) ([]asset.Asset, error)
	ListExpiringWarranties(ctx context.Context, before time.Time) ([]asset.Asset, error)
	SetCurrentValue(ctx context.Context, id int64, value float64) error
}

// DepreciationJob walks all depreciable assets monthly and writes down
// their current value on a straight-line schedule.
type DepreciationJob struct {
	store      AssetStore
	audit      shared.AuditRecorder
	metrics    *jobmetrics.Metrics
	logger     *slog.Logger
	yearlyRate float64
	clock      shared.Clock
}

// NewDepreciationJob wires the depreciation handler.
func NewDepreciationJob(store AssetStore, audit shared.AuditRecorder, metrics *jobmetrics.Metrics, logger *slog.Logger, yearlyRate float64, clock shared.Clock) *DepreciationJob {
	if clock == nil {
		clock = shared.SystemClock
	}
	if yearlyRate <= 0 {
		yearlyRate = 0.2
	}
	return &DepreciationJob{store: store, audit: audit, metrics: metrics, logger: logger, yearlyRate: yearlyRate, clock: clock}
}

// Handle processes one depreciation run.
func (j *DepreciationJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track("depreciation_run")
	return tracker.End(j.run(ctx))
}

func (j *DepreciationJob) run(ctx context.Context) error {
	assets, err := j.store.ListDepreciable(ctx)
	if err != nil {
		return err
	}
	monthlyRate := j.yearlyRate / 12
	updated := 0
	for _, a := range assets {
		writeDown := a.OriginalCost * monthlyRate
		if writeDown <= 0 {
			continue
		}
		next := a.CurrentValue - writeDown
		if next < 0 {
			next = 0
		}
		if next == a.CurrentValue {
			continue
		}
		if err := j.store.SetCurrentValue(ctx, a.ID, next); err != nil {
			return err
		}
		updated++
	}
	j.logger.Info("depreciation run finished", slog.Int("assets", len(assets)), slog.Int("updated", updated))
	if j.audit != nil && updated > 0 {
		_ = j.audit.Record(ctx, shared.AuditLog{
			Action:   "ASSET_DEPRECIATION_RUN",
			Entity:   shared.EntityAsset,
			EntityID: "*",
			Meta:     map[string]any{"updated": updated},
			At:       j.clock(),
		})
	}
	return nil
}
