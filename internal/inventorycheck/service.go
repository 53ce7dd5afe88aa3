package inventorycheck

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/shared"
)

// AssetPort exposes the asset reads the reconciliation needs.
type AssetPort interface {
	Get(ctx context.Context, id int64) (asset.Asset, error)
}

// Service orchestrates inventory reconciliation.
type Service struct {
	repo   Repository
	assets AssetPort
	audit  shared.AuditRecorder
	clock  shared.Clock
}

// NewService constructs the inventory service.
func NewService(repo Repository, assets AssetPort, audit shared.AuditRecorder, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Service{repo: repo, assets: assets, audit: audit, clock: clock}
}

// CreateCheckInput carries the request payload. AssetIDs pre-seed one
// detail per asset with its current state as the expectation.
type CreateCheckInput struct {
	OrgID     int64
	Name      string
	CheckerID int64
	CheckDate time.Time
	Notes     string
	AssetIDs  []int64
}

// CreateCheck opens a reconciliation run.
func (s *Service) CreateCheck(ctx context.Context, input CreateCheckInput) (Check, error) {
	c, err := NewCheck(NewCheckInput{
		OrgID:     input.OrgID,
		Name:      input.Name,
		CheckerID: input.CheckerID,
		CheckDate: input.CheckDate,
		Notes:     input.Notes,
	}, s.clock.Today())
	if err != nil {
		return Check{}, err
	}
	details := make([]Detail, 0, len(input.AssetIDs))
	seen := make(map[int64]bool, len(input.AssetIDs))
	for _, assetID := range input.AssetIDs {
		if seen[assetID] {
			return Check{}, shared.NewRulef(CodeDuplicateAsset, "asset %d listed twice in one check", assetID)
		}
		seen[assetID] = true
		a, err := s.assets.Get(ctx, assetID)
		if err != nil {
			return Check{}, err
		}
		details = append(details, NewDetail(0, a))
	}
	created, err := s.repo.CreateCheck(ctx, c, details)
	if err != nil {
		return Check{}, err
	}
	s.recordAudit(ctx, "INVENTORY_CHECK_CREATE", created.ID, map[string]any{"assets": len(details)})
	return created, nil
}

// GetCheck loads one check.
func (s *Service) GetCheck(ctx context.Context, id int64) (Check, error) {
	return s.repo.GetCheck(ctx, id)
}

// ListChecks returns a filtered page of checks and the total count.
func (s *Service) ListChecks(ctx context.Context, filter ListFilter) ([]Check, int, error) {
	return s.repo.ListChecks(ctx, filter)
}

// AddDetail counts one more asset into an open check.
func (s *Service) AddDetail(ctx context.Context, checkID, assetID int64) (Detail, error) {
	c, err := s.repo.GetCheck(ctx, checkID)
	if err != nil {
		return Detail{}, err
	}
	if c.Status == StatusFinished {
		return Detail{}, shared.NewRule(CodeCheckFinished, "cannot add assets to a finished check")
	}
	a, err := s.assets.Get(ctx, assetID)
	if err != nil {
		return Detail{}, err
	}
	added, err := s.repo.AddDetail(ctx, NewDetail(c.ID, a))
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Detail{}, shared.NewRulef(CodeDuplicateAsset, "asset %d is already part of check %d", assetID, checkID)
		}
		return Detail{}, err
	}
	s.recordAudit(ctx, "INVENTORY_DETAIL_ADD", c.ID, map[string]any{"asset_id": assetID})
	return added, nil
}

// RecordResult stores the physically observed state of one detail. The
// detail itself does not know its parent's status, so the finished
// guard lives here.
func (s *Service) RecordResult(ctx context.Context, detailID int64, actualLocation string, actualStatus asset.Status, notes string) (Detail, error) {
	d, err := s.repo.GetDetail(ctx, detailID)
	if err != nil {
		return Detail{}, err
	}
	c, err := s.repo.GetCheck(ctx, d.CheckID)
	if err != nil {
		return Detail{}, err
	}
	if c.Status == StatusFinished {
		return Detail{}, shared.NewRule(CodeCheckFinished, "cannot record results on a finished check")
	}
	if err := d.RecordResult(actualLocation, actualStatus, notes); err != nil {
		return Detail{}, err
	}
	updated, err := s.repo.UpdateDetail(ctx, d)
	if err != nil {
		return Detail{}, err
	}
	s.recordAudit(ctx, "INVENTORY_RESULT_RECORD", c.ID, map[string]any{
		"detail_id": updated.ID,
		"asset_id":  updated.AssetID,
		"is_match":  updated.IsMatch != nil && *updated.IsMatch,
	})
	return updated, nil
}

// FinishCheck closes the run one-way.
func (s *Service) FinishCheck(ctx context.Context, id int64) (Check, error) {
	c, err := s.repo.GetCheck(ctx, id)
	if err != nil {
		return Check{}, err
	}
	if err := c.Finish(); err != nil {
		return Check{}, err
	}
	updated, err := s.repo.UpdateCheck(ctx, c)
	if err != nil {
		return Check{}, err
	}
	s.recordAudit(ctx, "INVENTORY_CHECK_FINISH", updated.ID, nil)
	return updated, nil
}

// ListDetails returns all details of one check.
func (s *Service) ListDetails(ctx context.Context, checkID int64) ([]Detail, error) {
	return s.repo.ListDetails(ctx, checkID)
}

// ListMismatches returns recorded details whose observation disagrees
// with the expectation.
func (s *Service) ListMismatches(ctx context.Context, checkID int64) ([]Detail, error) {
	return s.repo.ListMismatches(ctx, checkID)
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   shared.EntityInventoryCheck,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
