package e2e

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/assetline/assetline/internal/budget"
	jobmetrics "github.com/assetline/assetline/internal/jobs"
	"github.com/assetline/assetline/jobs"
)

type stubBudgetStore struct {
	plans []budget.Plan
	got   float64
}

func (s *stubBudgetStore) ListOverrunCandidates(_ context.Context, threshold float64) ([]budget.Plan, error) {
	s.got = threshold
	return append([]budget.Plan(nil), s.plans...), nil
}

func TestOverrunScanRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	store := &stubBudgetStore{plans: []budget.Plan{
		{ID: 1, DepartmentID: 3, AllocatedAmount: 1000, SpentAmount: 950},
		{ID: 2, DepartmentID: 5, AllocatedAmount: 400, SpentAmount: 399},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	job := jobs.NewOverrunScanJob(store, metrics, logger, 90)
	require.NoError(t, job.Handle(context.Background(), jobs.NewBudgetOverrunScanTask()))
	require.Equal(t, 90.0, store.got)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, 2.0, metricValue(t, families, "assetline_budget_overruns_total", nil))
	require.Equal(t, 1.0, metricValue(t, families, "assetline_jobs_total", map[string]string{
		"job": "budget_overrun_scan", "status": "success",
	}))
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.GetCounter() != nil {
				return metric.GetCounter().GetValue()
			}
			if metric.GetGauge() != nil {
				return metric.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(labels) == 0 {
		return true
	}
	seen := make(map[string]string, len(metric.GetLabel()))
	for _, pair := range metric.GetLabel() {
		seen[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if seen[k] != v {
			return false
		}
	}
	return true
}
