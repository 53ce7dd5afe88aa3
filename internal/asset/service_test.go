package asset

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetline/assetline/internal/shared"
)

type memoryAssetRepo struct {
	assets map[int64]Asset
	nextID int64
}

func newMemoryAssetRepo() *memoryAssetRepo {
	return &memoryAssetRepo{assets: make(map[int64]Asset)}
}

func (r *memoryAssetRepo) Create(ctx context.Context, a Asset) (Asset, error) {
	for _, existing := range r.assets {
		if existing.OrgID == a.OrgID && existing.Code == a.Code {
			return Asset{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	a.ID = r.nextID
	a.Version = 1
	r.assets[a.ID] = a
	return a, nil
}

func (r *memoryAssetRepo) Get(ctx context.Context, id int64) (Asset, error) {
	a, ok := r.assets[id]
	if !ok {
		return Asset{}, shared.ErrNotFound
	}
	return a, nil
}

func (r *memoryAssetRepo) GetByCode(ctx context.Context, orgID int64, code string) (Asset, error) {
	for _, a := range r.assets {
		if a.OrgID == orgID && a.Code == code {
			return a, nil
		}
	}
	return Asset{}, shared.ErrNotFound
}

func (r *memoryAssetRepo) List(ctx context.Context, filter ListFilter) ([]Asset, int, error) {
	var out []Asset
	for _, a := range r.assets {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(a.Name, filter.Search) {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (r *memoryAssetRepo) Update(ctx context.Context, a Asset) (Asset, error) {
	current, ok := r.assets[a.ID]
	if !ok {
		return Asset{}, shared.ErrNotFound
	}
	if current.Version != a.Version {
		return Asset{}, shared.ErrVersionConflict
	}
	a.Version++
	r.assets[a.ID] = a
	return a, nil
}

func (r *memoryAssetRepo) ListExpiringWarranties(ctx context.Context, before time.Time) ([]Asset, error) {
	var out []Asset
	for _, a := range r.assets {
		if a.WarrantyExpiry != nil && !a.WarrantyExpiry.After(before) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryAssetRepo) ListDepreciable(ctx context.Context) ([]Asset, error) {
	var out []Asset
	for _, a := range r.assets {
		if a.CurrentValue > 0 && a.Status != StatusDisposed && a.Status != StatusRetired {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryAssetRepo) SetCurrentValue(ctx context.Context, id int64, value float64) error {
	a, ok := r.assets[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.CurrentValue = value
	r.assets[id] = a
	return nil
}

type recordingAudit struct {
	entries []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func fixedClock(t time.Time) shared.Clock {
	return func() time.Time { return t }
}

func newTestService() (*Service, *memoryAssetRepo, *recordingAudit) {
	repo := newMemoryAssetRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, fixedClock(testToday))
	return svc, repo, audit
}

func TestServiceCreateAndAudit(t *testing.T) {
	svc, _, audit := newTestService()
	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, StatusAvailable, created.Status)
	require.Len(t, audit.entries, 1)
	require.Equal(t, "ASSET_CREATE", audit.entries[0].Action)
	require.Equal(t, shared.EntityAsset, audit.entries[0].Entity)
}

func TestServiceCreateDuplicateCode(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), validInput())
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestServiceUpdateFinancialsScenario(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	purchase := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	warranty := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.UpdateFinancials(context.Background(), created.ID, UpdateFinancialsInput{
		PurchasePrice: 1000, OriginalCost: 1000, CurrentValue: 1000,
		PurchaseDate: purchase, WarrantyExpiry: &warranty,
	})
	require.NoError(t, err)

	bad := time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)
	_, err = svc.UpdateFinancials(context.Background(), created.ID, UpdateFinancialsInput{
		PurchasePrice: 1000, OriginalCost: 1000, CurrentValue: 1000,
		PurchaseDate: purchase, WarrantyExpiry: &bad,
	})
	require.True(t, shared.IsRuleCode(err, CodeInvalidWarrantyDate))
}

func TestServiceAssignUnassign(t *testing.T) {
	svc, repo, _ := newTestService()
	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	updated, err := svc.Assign(context.Background(), created.ID, 11, 22)
	require.NoError(t, err)
	require.Equal(t, StatusInUse, updated.Status)

	updated, err = svc.Unassign(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusAvailable, updated.Status)
	require.Nil(t, repo.assets[created.ID].Custody.UserID)
}

func TestServiceNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Get(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.UpdateBasicInfo(context.Background(), 404, "x", 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
