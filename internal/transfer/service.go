package transfer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/shared"
)

// Module name used for approval history references.
const approvalModule = "ASSET_TRANSFER"

// AssetPort exposes the asset reads the workflow needs.
type AssetPort interface {
	Get(ctx context.Context, id int64) (asset.Asset, error)
}

// Service orchestrates the transfer workflow.
type Service struct {
	repo      Repository
	assets    AssetPort
	audit     shared.AuditRecorder
	approvals *shared.ApprovalRecorder
	clock     shared.Clock
}

// NewService constructs the transfer service.
func NewService(repo Repository, assets AssetPort, audit shared.AuditRecorder, approvals *shared.ApprovalRecorder, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Service{repo: repo, assets: assets, audit: audit, approvals: approvals, clock: clock}
}

// CreateInput carries the request payload; the from side is snapshotted
// from the asset's current custody.
type CreateInput struct {
	AssetID        int64
	ToDepartmentID *int64
	ToUserID       *int64
	TransferDate   time.Time
	Reason         string
	CreatedBy      int64
}

// Create validates and persists a PENDING transfer request.
func (s *Service) Create(ctx context.Context, input CreateInput) (Transfer, error) {
	a, err := s.assets.Get(ctx, input.AssetID)
	if err != nil {
		return Transfer{}, err
	}
	if a.Status == asset.StatusDisposed {
		return Transfer{}, shared.NewRule(asset.CodeAssetDisposed, "a disposed asset cannot be transferred")
	}
	t, err := New(NewTransferInput{
		AssetID:        a.ID,
		From:           a.Custody,
		ToDepartmentID: input.ToDepartmentID,
		ToUserID:       input.ToUserID,
		TransferDate:   input.TransferDate,
		Reason:         input.Reason,
		CreatedBy:      input.CreatedBy,
	}, s.clock.Today())
	if err != nil {
		return Transfer{}, err
	}
	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return Transfer{}, err
	}
	if s.approvals != nil {
		ref := shared.ApprovalRef(approvalModule, created.ID)
		_ = s.approvals.EnsureSubmit(ctx, approvalModule, ref, input.CreatedBy, fmt.Sprintf("transfer of asset %d requested", a.ID))
	}
	s.recordAudit(ctx, "TRANSFER_CREATE", created.ID, map[string]any{"asset_id": a.ID})
	return created, nil
}

// Get loads one transfer.
func (s *Service) Get(ctx context.Context, id int64) (Transfer, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of transfers and the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Transfer, int, error) {
	return s.repo.List(ctx, filter)
}

// UpdateDetailsInput carries the editable request fields.
type UpdateDetailsInput struct {
	ToDepartmentID *int64
	ToUserID       *int64
	TransferDate   time.Time
	Reason         string
}

// UpdateDetails edits a still-PENDING transfer request.
func (s *Service) UpdateDetails(ctx context.Context, id int64, input UpdateDetailsInput) (Transfer, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	if err := t.UpdateDetails(input.ToDepartmentID, input.ToUserID, input.TransferDate, input.Reason, s.clock.Today()); err != nil {
		return Transfer{}, err
	}
	updated, err := s.repo.Update(ctx, t)
	if err != nil {
		return Transfer{}, err
	}
	s.recordAudit(ctx, "TRANSFER_UPDATE", updated.ID, nil)
	return updated, nil
}

// Approve moves a PENDING transfer to APPROVED and records the approver.
func (s *Service) Approve(ctx context.Context, id, approverID int64) (Transfer, error) {
	return s.transition(ctx, id, "TRANSFER_APPROVE", shared.ApprovalApprove, approverID, func(t *Transfer) error {
		return t.Approve(approverID)
	})
}

// Reject moves a PENDING transfer to the terminal REJECTED state.
func (s *Service) Reject(ctx context.Context, id, approverID int64, reason string) (Transfer, error) {
	return s.transition(ctx, id, "TRANSFER_REJECT", shared.ApprovalReject, approverID, func(t *Transfer) error {
		return t.Reject(approverID, reason)
	})
}

// Start marks an APPROVED transfer as physically underway.
func (s *Service) Start(ctx context.Context, id int64) (Transfer, error) {
	return s.transition(ctx, id, "TRANSFER_START", "", 0, func(t *Transfer) error {
		return t.Start()
	})
}

// Cancel aborts a not-yet-completed transfer.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (Transfer, error) {
	return s.transition(ctx, id, "TRANSFER_CANCEL", shared.ApprovalCancel, shared.ActorFromContext(ctx), func(t *Transfer) error {
		return t.Cancel(reason)
	})
}

// Complete finishes an approved transfer and moves the asset's custody in
// the same transaction; a transfer marked COMPLETED with unchanged
// custody cannot be observed.
func (s *Service) Complete(ctx context.Context, id int64) (Transfer, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	a, err := s.assets.Get(ctx, t.AssetID)
	if err != nil {
		return Transfer{}, err
	}
	if err := t.Complete(); err != nil {
		return Transfer{}, err
	}
	if err := a.UpdateLocation(t.ToDepartmentID, t.ToUserID); err != nil {
		return Transfer{}, err
	}
	var updated Transfer
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var txErr error
		updated, txErr = tx.UpdateTransfer(ctx, t)
		if txErr != nil {
			return txErr
		}
		_, txErr = tx.PersistAsset(ctx, a)
		return txErr
	})
	if err != nil {
		return Transfer{}, err
	}
	s.recordAudit(ctx, "TRANSFER_COMPLETE", updated.ID, map[string]any{
		"asset_id":         t.AssetID,
		"to_department_id": t.ToDepartmentID,
		"to_user_id":       t.ToUserID,
	})
	return updated, nil
}

func (s *Service) transition(ctx context.Context, id int64, action string, approvalAction shared.ApprovalAction, actorID int64, fn func(*Transfer) error) (Transfer, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	if err := fn(&t); err != nil {
		return Transfer{}, err
	}
	updated, err := s.repo.Update(ctx, t)
	if err != nil {
		return Transfer{}, err
	}
	if s.approvals != nil && approvalAction != "" && actorID != 0 {
		ref := shared.ApprovalRef(approvalModule, updated.ID)
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module: approvalModule, RefID: ref, ActorID: actorID,
			Action: approvalAction, Note: fmt.Sprintf("transfer %d %s", updated.ID, updated.Status),
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
		Entity:   shared.EntityTransfer,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
