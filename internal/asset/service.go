package asset

import (
	"context"
	"strconv"
	"time"

	"github.com/assetline/assetline/internal/shared"
)

// Service exposes the asset lifecycle commands. Every mutation follows
// load -> validate -> persist and appends an audit entry on success.
type Service struct {
	repo  Repository
	audit shared.AuditRecorder
	clock shared.Clock
}

// NewService constructs the asset service.
func NewService(repo Repository, audit shared.AuditRecorder, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Service{repo: repo, audit: audit, clock: clock}
}

// CreateInput mirrors NewAssetInput for the command surface.
type CreateInput = NewAssetInput

// Create validates and persists a new asset.
func (s *Service) Create(ctx context.Context, input CreateInput) (Asset, error) {
	a, err := New(input, s.clock.Today())
	if err != nil {
		return Asset{}, err
	}
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return Asset{}, err
	}
	s.recordAudit(ctx, "ASSET_CREATE", created.ID, map[string]any{"code": created.Code, "name": created.Name})
	return created, nil
}

// Get loads one asset.
func (s *Service) Get(ctx context.Context, id int64) (Asset, error) {
	return s.repo.Get(ctx, id)
}

// GetByCode loads one asset by its per-organization code.
func (s *Service) GetByCode(ctx context.Context, orgID int64, code string) (Asset, error) {
	return s.repo.GetByCode(ctx, orgID, code)
}

// List returns a filtered page of assets and the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Asset, int, error) {
	return s.repo.List(ctx, filter)
}

// UpdateBasicInfo renames the asset or moves it to another category.
func (s *Service) UpdateBasicInfo(ctx context.Context, id int64, name string, categoryID int64) (Asset, error) {
	return s.mutate(ctx, id, "ASSET_UPDATE_BASIC", func(a *Asset) error {
		return a.UpdateBasicInfo(name, categoryID)
	})
}

// UpdateFinancialsInput carries the financial command payload.
type UpdateFinancialsInput struct {
	PurchasePrice  float64
	OriginalCost   float64
	CurrentValue   float64
	PurchaseDate   time.Time
	WarrantyExpiry *time.Time
}

// UpdateFinancials replaces the financial fields after revalidation.
func (s *Service) UpdateFinancials(ctx context.Context, id int64, input UpdateFinancialsInput) (Asset, error) {
	today := s.clock.Today()
	return s.mutate(ctx, id, "ASSET_UPDATE_FINANCIALS", func(a *Asset) error {
		return a.UpdateFinancials(input.PurchasePrice, input.OriginalCost, input.CurrentValue, input.PurchaseDate, input.WarrantyExpiry, today)
	})
}

// UpdatePhysicalInput carries the physical-condition payload.
type UpdatePhysicalInput struct {
	Model        string
	SerialNumber string
	Manufacturer string
	Condition    string
	Location     string
	Specs        string
}

// UpdatePhysicalCondition replaces the free-form physical fields.
func (s *Service) UpdatePhysicalCondition(ctx context.Context, id int64, input UpdatePhysicalInput) (Asset, error) {
	return s.mutate(ctx, id, "ASSET_UPDATE_PHYSICAL", func(a *Asset) error {
		return a.UpdatePhysicalCondition(input.Model, input.SerialNumber, input.Manufacturer, input.Condition, input.Location, input.Specs)
	})
}

// ChangeStatus sets the status directly; used by callers that own the
// transition legality (reservation, loss reporting).
func (s *Service) ChangeStatus(ctx context.Context, id int64, next Status) (Asset, error) {
	return s.mutate(ctx, id, "ASSET_CHANGE_STATUS", func(a *Asset) error {
		return a.ChangeStatus(next)
	})
}

// Assign hands the asset to a user and forces IN_USE.
func (s *Service) Assign(ctx context.Context, id, userID, departmentID int64) (Asset, error) {
	return s.mutate(ctx, id, "ASSET_ASSIGN", func(a *Asset) error {
		return a.AssignToUser(userID, departmentID)
	})
}

// Unassign clears custody and forces AVAILABLE.
func (s *Service) Unassign(ctx context.Context, id int64) (Asset, error) {
	return s.mutate(ctx, id, "ASSET_UNASSIGN", func(a *Asset) error {
		return a.Unassign()
	})
}

// Retire marks an asset RETIRED outside the disposal workflow, used for
// end-of-life without a disposal request.
func (s *Service) Retire(ctx context.Context, id int64) (Asset, error) {
	return s.mutate(ctx, id, "ASSET_RETIRE", func(a *Asset) error {
		return a.ChangeStatus(StatusRetired)
	})
}

func (s *Service) mutate(ctx context.Context, id int64, action string, fn func(*Asset) error) (Asset, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Asset{}, err
	}
	if err := fn(&a); err != nil {
		return Asset{}, err
	}
	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		return Asset{}, err
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
		Entity:   shared.EntityAsset,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
