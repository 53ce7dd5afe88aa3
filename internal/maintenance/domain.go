package maintenance

import (
	"time"

	"github.com/assetline/assetline/internal/shared"
)

// Status is the maintenance order state.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Stable rule codes surfaced to API clients.
const (
	CodeDescriptionRequired = "MAINTENANCE_DESCRIPTION_REQUIRED"
	CodeInvalidSchedule     = "INVALID_MAINTENANCE_SCHEDULE"
	CodeNegativeAmount      = "NEGATIVE_AMOUNT"
	CodeCannotComplete      = "CANNOT_COMPLETE_MAINTENANCE"
	CodeCannotCancel        = "CANNOT_CANCEL_MAINTENANCE"
	CodeAssetNotMaintained  = "ASSET_NOT_IN_MAINTENANCE"
	CodeAlreadyOpen         = "MAINTENANCE_ALREADY_OPEN"
	CodeNoActivePlan        = "NO_ACTIVE_BUDGET_PLAN"
)

// Order is one maintenance job against an asset.
type Order struct {
	ID            int64
	AssetID       int64
	Description   string
	ScheduledDate time.Time
	EstimatedCost float64
	Cost          float64
	Status        Status
	CreatedBy     int64
	CompletedAt   *time.Time
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrderInput carries the creation payload.
type NewOrderInput struct {
	AssetID       int64
	Description   string
	ScheduledDate time.Time
	EstimatedCost float64
	CreatedBy     int64
}

// New builds an OPEN order. The schedule may lie in the future.
func New(input NewOrderInput) (Order, error) {
	if input.Description == "" {
		return Order{}, shared.NewRule(CodeDescriptionRequired, "a description is required")
	}
	if input.ScheduledDate.IsZero() {
		return Order{}, shared.NewRule(CodeInvalidSchedule, "a scheduled date is required")
	}
	if input.EstimatedCost < 0 {
		return Order{}, shared.NewRule(CodeNegativeAmount, "estimated cost must not be negative")
	}
	return Order{
		AssetID:       input.AssetID,
		Description:   input.Description,
		ScheduledDate: input.ScheduledDate,
		EstimatedCost: input.EstimatedCost,
		Status:        StatusOpen,
		CreatedBy:     input.CreatedBy,
	}, nil
}

// Complete records the final cost and closes the order.
func (o *Order) Complete(cost float64, now time.Time) error {
	if o.Status != StatusOpen {
		return shared.NewRulef(CodeCannotComplete, "maintenance order in status %s cannot be completed", o.Status)
	}
	if cost < 0 {
		return shared.NewRule(CodeNegativeAmount, "final cost must not be negative")
	}
	o.Status = StatusCompleted
	o.Cost = cost
	at := now
	o.CompletedAt = &at
	return nil
}

// Cancel withdraws an open order without spend.
func (o *Order) Cancel() error {
	if o.Status != StatusOpen {
		return shared.NewRulef(CodeCannotCancel, "maintenance order in status %s cannot be cancelled", o.Status)
	}
	o.Status = StatusCancelled
	return nil
}
