package disposal

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/shared"
)

const approvalModule = "ASSET_DISPOSAL"

// AssetPort exposes the asset reads the workflow needs.
type AssetPort interface {
	Get(ctx context.Context, id int64) (asset.Asset, error)
}

// Service orchestrates the disposal workflow.
type Service struct {
	repo      Repository
	assets    AssetPort
	audit     shared.AuditRecorder
	approvals *shared.ApprovalRecorder
	clock     shared.Clock
}

// NewService constructs the disposal service.
func NewService(repo Repository, assets AssetPort, audit shared.AuditRecorder, approvals *shared.ApprovalRecorder, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Service{repo: repo, assets: assets, audit: audit, approvals: approvals, clock: clock}
}

// CreateInput carries the request payload.
type CreateInput struct {
	AssetID      int64
	Type         Type
	Value        float64
	DisposalDate time.Time
	Reason       string
	CreatedBy    int64
}

// Create validates and persists a PENDING disposal request. An asset can
// carry at most one open request at a time.
func (s *Service) Create(ctx context.Context, input CreateInput) (Disposal, error) {
	a, err := s.assets.Get(ctx, input.AssetID)
	if err != nil {
		return Disposal{}, err
	}
	if a.Status == asset.StatusDisposed {
		return Disposal{}, shared.NewRule(asset.CodeAssetDisposed, "asset is already disposed")
	}
	open, err := s.repo.HasOpenRequest(ctx, a.ID)
	if err != nil {
		return Disposal{}, err
	}
	if open {
		return Disposal{}, shared.NewRule(CodeAlreadyRequested, "a pending disposal request already exists for this asset")
	}
	d, err := New(NewDisposalInput{
		AssetID:      a.ID,
		Type:         input.Type,
		Value:        input.Value,
		DisposalDate: input.DisposalDate,
		Reason:       input.Reason,
		CreatedBy:    input.CreatedBy,
	}, s.clock.Today())
	if err != nil {
		return Disposal{}, err
	}
	created, err := s.repo.Create(ctx, d)
	if err != nil {
		return Disposal{}, err
	}
	if s.approvals != nil {
		ref := shared.ApprovalRef(approvalModule, created.ID)
		_ = s.approvals.EnsureSubmit(ctx, approvalModule, ref, input.CreatedBy, fmt.Sprintf("disposal of asset %d requested", a.ID))
	}
	s.recordAudit(ctx, "DISPOSAL_CREATE", created.ID, map[string]any{"asset_id": a.ID, "type": string(created.Type)})
	return created, nil
}

// Get loads one disposal.
func (s *Service) Get(ctx context.Context, id int64) (Disposal, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of disposals and the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Disposal, int, error) {
	return s.repo.List(ctx, filter)
}

// Approve retires the asset and marks the request APPROVED in one
// transaction.
func (s *Service) Approve(ctx context.Context, id, approverID int64) (Disposal, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return Disposal{}, err
	}
	a, err := s.assets.Get(ctx, d.AssetID)
	if err != nil {
		return Disposal{}, err
	}
	if err := d.Approve(approverID); err != nil {
		return Disposal{}, err
	}
	a.MarkDisposed(s.clock())
	var updated Disposal
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var txErr error
		updated, txErr = tx.UpdateDisposal(ctx, d)
		if txErr != nil {
			return txErr
		}
		_, txErr = tx.PersistAsset(ctx, a)
		return txErr
	})
	if err != nil {
		return Disposal{}, err
	}
	if s.approvals != nil {
		ref := shared.ApprovalRef(approvalModule, updated.ID)
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module: approvalModule, RefID: ref, ActorID: approverID,
			Action: shared.ApprovalApprove, Note: fmt.Sprintf("disposal %d approved", updated.ID),
		})
	}
	s.recordAudit(ctx, "DISPOSAL_APPROVE", updated.ID, map[string]any{
		"asset_id":      d.AssetID,
		"net_gain_loss": updated.NetGainLoss(a.BookValue()),
	})
	return updated, nil
}

// Reject moves the request to the terminal REJECTED state.
func (s *Service) Reject(ctx context.Context, id, approverID int64, reason string) (Disposal, error) {
	return s.transition(ctx, id, "DISPOSAL_REJECT", shared.ApprovalReject, approverID, func(d *Disposal) error {
		return d.Reject(approverID, reason)
	})
}

// Cancel withdraws a pending request.
func (s *Service) Cancel(ctx context.Context, id int64) (Disposal, error) {
	return s.transition(ctx, id, "DISPOSAL_CANCEL", shared.ApprovalCancel, shared.ActorFromContext(ctx), func(d *Disposal) error {
		return d.Cancel()
	})
}

// LinkAccountingEntry attaches the financial entry reference, set-once.
func (s *Service) LinkAccountingEntry(ctx context.Context, id, entryID int64) (Disposal, error) {
	return s.transition(ctx, id, "DISPOSAL_LINK_ENTRY", "", 0, func(d *Disposal) error {
		return d.LinkAccountingEntry(entryID)
	})
}

// NetGainLoss computes proceeds minus current book value for one request.
func (s *Service) NetGainLoss(ctx context.Context, id int64) (float64, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	a, err := s.assets.Get(ctx, d.AssetID)
	if err != nil {
		return 0, err
	}
	return d.NetGainLoss(a.BookValue()), nil
}

func (s *Service) transition(ctx context.Context, id int64, action string, approvalAction shared.ApprovalAction, actorID int64, fn func(*Disposal) error) (Disposal, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return Disposal{}, err
	}
	if err := fn(&d); err != nil {
		return Disposal{}, err
	}
	updated, err := s.repo.Update(ctx, d)
	if err != nil {
		return Disposal{}, err
	}
	if s.approvals != nil && approvalAction != "" && actorID != 0 {
		ref := shared.ApprovalRef(approvalModule, updated.ID)
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module: approvalModule, RefID: ref, ActorID: actorID,
			Action: approvalAction, Note: fmt.Sprintf("disposal %d %s", updated.ID, updated.Status),
		})
	}
	s.recordAudit(ctx, action, updated.ID, map[string]any{"status": string(updated.Status)})
	return updated, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   shared.EntityDisposal,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
