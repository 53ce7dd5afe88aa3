package maintenance

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/budget"
	"github.com/assetline/assetline/internal/shared"
)

// AssetPort exposes the asset reads the workflow needs.
type AssetPort interface {
	Get(ctx context.Context, id int64) (asset.Asset, error)
}

// BudgetPort resolves the plan a completed order spends against.
type BudgetPort interface {
	FindActive(ctx context.Context, orgID, departmentID int64, fiscalYear int) (budget.Plan, error)
}

// Service orchestrates maintenance orders.
type Service struct {
	repo    Repository
	assets  AssetPort
	budgets BudgetPort
	audit   shared.AuditRecorder
	clock   shared.Clock
}

// NewService constructs the maintenance service.
func NewService(repo Repository, assets AssetPort, budgets BudgetPort, audit shared.AuditRecorder, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Service{repo: repo, assets: assets, budgets: budgets, audit: audit, clock: clock}
}

// CreateInput carries the request payload.
type CreateInput struct {
	AssetID       int64
	Description   string
	ScheduledDate time.Time
	EstimatedCost float64
	CreatedBy     int64
}

// Create opens an order and flips the asset to MAINTENANCE in the same
// transaction. An asset carries at most one open order at a time.
func (s *Service) Create(ctx context.Context, input CreateInput) (Order, error) {
	a, err := s.assets.Get(ctx, input.AssetID)
	if err != nil {
		return Order{}, err
	}
	if a.Status == asset.StatusDisposed {
		return Order{}, shared.NewRule(asset.CodeAssetDisposed, "a disposed asset cannot be maintained")
	}
	open, err := s.repo.HasOpenOrder(ctx, a.ID)
	if err != nil {
		return Order{}, err
	}
	if open {
		return Order{}, shared.NewRule(CodeAlreadyOpen, "an open maintenance order already exists for this asset")
	}
	if err := a.ChangeStatus(asset.StatusMaintenance); err != nil {
		return Order{}, err
	}
	o, err := New(NewOrderInput{
		AssetID:       a.ID,
		Description:   input.Description,
		ScheduledDate: input.ScheduledDate,
		EstimatedCost: input.EstimatedCost,
		CreatedBy:     input.CreatedBy,
	})
	if err != nil {
		return Order{}, err
	}
	var created Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var txErr error
		created, txErr = tx.CreateOrder(ctx, o)
		if txErr != nil {
			return txErr
		}
		_, txErr = tx.PersistAsset(ctx, a)
		return txErr
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, "MAINTENANCE_OPEN", created.ID, map[string]any{"asset_id": a.ID})
	return created, nil
}

// Get loads one order.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of orders and the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	return s.repo.List(ctx, filter)
}

// Complete closes the order, spends the final cost against the active
// budget plan of the asset's custodial department, and restores the
// asset's custody-derived status. All three rows move in one
// transaction.
func (s *Service) Complete(ctx context.Context, id int64, cost float64) (Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	a, err := s.assets.Get(ctx, o.AssetID)
	if err != nil {
		return Order{}, err
	}
	if a.Status != asset.StatusMaintenance {
		return Order{}, shared.NewRulef(CodeAssetNotMaintained, "asset %d is not in maintenance", a.ID)
	}
	now := s.clock()
	if err := o.Complete(cost, now); err != nil {
		return Order{}, err
	}

	var plan *budget.Plan
	if cost > 0 {
		if a.Custody.DepartmentID == nil {
			return Order{}, shared.NewRule(CodeNoActivePlan, "asset has no custodial department to charge")
		}
		p, err := s.budgets.FindActive(ctx, a.OrgID, *a.Custody.DepartmentID, now.Year())
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return Order{}, shared.NewRulef(CodeNoActivePlan, "no active budget plan for department %d in %d", *a.Custody.DepartmentID, now.Year())
			}
			return Order{}, err
		}
		if err := p.Spend(cost); err != nil {
			return Order{}, err
		}
		plan = &p
	}

	restored := asset.StatusAvailable
	if a.Custody.UserID != nil {
		restored = asset.StatusInUse
	}
	if err := a.ChangeStatus(restored); err != nil {
		return Order{}, err
	}

	var updated Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var txErr error
		updated, txErr = tx.UpdateOrder(ctx, o)
		if txErr != nil {
			return txErr
		}
		if _, txErr = tx.PersistAsset(ctx, a); txErr != nil {
			return txErr
		}
		if plan != nil {
			_, txErr = tx.PersistPlan(ctx, *plan)
		}
		return txErr
	})
	if err != nil {
		return Order{}, err
	}
	meta := map[string]any{"asset_id": a.ID, "cost": cost}
	if plan != nil {
		meta["budget_plan_id"] = plan.ID
	}
	s.recordAudit(ctx, "MAINTENANCE_COMPLETE", updated.ID, meta)
	return updated, nil
}

// Cancel withdraws an open order and restores the asset without spend.
func (s *Service) Cancel(ctx context.Context, id int64) (Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	a, err := s.assets.Get(ctx, o.AssetID)
	if err != nil {
		return Order{}, err
	}
	if err := o.Cancel(); err != nil {
		return Order{}, err
	}
	restored := asset.StatusAvailable
	if a.Custody.UserID != nil {
		restored = asset.StatusInUse
	}
	if err := a.ChangeStatus(restored); err != nil {
		return Order{}, err
	}
	var updated Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var txErr error
		updated, txErr = tx.UpdateOrder(ctx, o)
		if txErr != nil {
			return txErr
		}
		_, txErr = tx.PersistAsset(ctx, a)
		return txErr
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, "MAINTENANCE_CANCEL", updated.ID, map[string]any{"asset_id": a.ID})
	return updated, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   shared.EntityMaintenance,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
