package jobs

import "github.com/hibiken/asynq"

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskDepreciationRun applies straight-line depreciation to all
	// depreciable assets.
	TaskDepreciationRun = "asset:depreciation_run"
	// TaskWarrantyScan flags assets whose warranty expires soon.
	TaskWarrantyScan = "asset:warranty_scan"
	// TaskBudgetOverrunScan flags active plans near their allocation.
	TaskBudgetOverrunScan = "budget:overrun_scan"
)

// NewDepreciationRunTask constructs the depreciation task.
func NewDepreciationRunTask() *asynq.Task {
	return asynq.NewTask(TaskDepreciationRun, nil)
}

// NewWarrantyScanTask constructs the warranty scan task.
func NewWarrantyScanTask() *asynq.Task {
	return asynq.NewTask(TaskWarrantyScan, nil)
}

// NewBudgetOverrunScanTask constructs the overrun scan task.
func NewBudgetOverrunScanTask() *asynq.Task {
	return asynq.NewTask(TaskBudgetOverrunScan, nil)
}
