package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/assetline/assetline/internal/jobs"
	"github.com/assetline/assetline/internal/shared"
)

// WarrantyScanJob reports assets whose warranty runs out within the
// configured window so procurement can act before cover lapses.
type WarrantyScanJob struct {
	store    AssetStore
	metrics  *jobmetrics.Metrics
	logger   *slog.Logger
	scanDays int
	clock    shared.Clock
}

// NewWarrantyScanJob wires the warranty scan handler.
func NewWarrantyScanJob(store AssetStore, metrics *jobmetrics.Metrics, logger *slog.Logger, scanDays int, clock shared.Clock) *WarrantyScanJob {
	if clock == nil {
		clock = shared.SystemClock
	}
	if scanDays <= 0 {
		scanDays = 30
	}
	return &WarrantyScanJob{store: store, metrics: metrics, logger: logger, scanDays: scanDays, clock: clock}
}

// Handle processes one warranty scan.
func (j *WarrantyScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track("warranty_scan")
	return tracker.End(j.run(ctx))
}

func (j *WarrantyScanJob) run(ctx context.Context) error {
	cutoff := j.clock().AddDate(0, 0, j.scanDays)
	assets, err := j.store.ListExpiringWarranties(ctx, cutoff)
	if err != nil {
		return err
	}
	j.metrics.SetExpiringWarranties(len(assets))
	for _, a := range assets {
		j.logger.Warn("warranty expiring",
			slog.Int64("asset_id", a.ID),
			slog.String("code", a.Code),
			slog.Time("warranty_expiry", *a.WarrantyExpiry),
		)
	}
	j.logger.Info("warranty scan finished",
		slog.Int("expiring", len(assets)),
		slog.Time("cutoff", cutoff.Truncate(24*time.Hour)),
	)
	return nil
}
