package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/shared"
)

type memoryTransferRepo struct {
	transfers map[int64]Transfer
	assets    map[int64]asset.Asset
	nextID    int64
}

func newMemoryTransferRepo() *memoryTransferRepo {
	return &memoryTransferRepo{transfers: make(map[int64]Transfer), assets: make(map[int64]asset.Asset)}
}

type memoryTransferTx struct {
	repo *memoryTransferRepo
}

func (r *memoryTransferRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTransferTx{repo: r})
}

func (r *memoryTransferRepo) Create(ctx context.Context, t Transfer) (Transfer, error) {
	r.nextID++
	t.ID = r.nextID
	t.Version = 1
	r.transfers[t.ID] = t
	return t, nil
}

func (r *memoryTransferRepo) Get(ctx context.Context, id int64) (Transfer, error) {
	t, ok := r.transfers[id]
	if !ok {
		return Transfer{}, shared.ErrNotFound
	}
	return t, nil
}

func (r *memoryTransferRepo) List(ctx context.Context, filter ListFilter) ([]Transfer, int, error) {
	var out []Transfer
	for _, t := range r.transfers {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (r *memoryTransferRepo) Update(ctx context.Context, t Transfer) (Transfer, error) {
	return (&memoryTransferTx{repo: r}).UpdateTransfer(ctx, t)
}

func (tx *memoryTransferTx) UpdateTransfer(ctx context.Context, t Transfer) (Transfer, error) {
	current, ok := tx.repo.transfers[t.ID]
	if !ok {
		return Transfer{}, shared.ErrNotFound
	}
	if current.Version != t.Version {
		return Transfer{}, shared.ErrVersionConflict
	}
	t.Version++
	tx.repo.transfers[t.ID] = t
	return t, nil
}

func (tx *memoryTransferTx) PersistAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	current, ok := tx.repo.assets[a.ID]
	if !ok {
		return asset.Asset{}, shared.ErrNotFound
	}
	if current.Version != a.Version {
		return asset.Asset{}, shared.ErrVersionConflict
	}
	a.Version++
	tx.repo.assets[a.ID] = a
	return a, nil
}

type assetPortStub struct {
	repo *memoryTransferRepo
}

func (p assetPortStub) Get(ctx context.Context, id int64) (asset.Asset, error) {
	a, ok := p.repo.assets[id]
	if !ok {
		return asset.Asset{}, shared.ErrNotFound
	}
	return a, nil
}

type nopAudit struct{ entries []shared.AuditLog }

func (a *nopAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func fixedClock(t time.Time) shared.Clock {
	return func() time.Time { return t }
}

func seedAsset(repo *memoryTransferRepo, custody asset.Custody) asset.Asset {
	a := asset.Asset{
		ID: 1, OrgID: 1, CategoryID: 1, CreatedBy: 1,
		Name: "Printer", Code: "PR-1",
		Status:       asset.StatusAvailable,
		Custody:      custody,
		PurchaseDate: testToday.AddDate(-1, 0, 0),
		Version:      1,
	}
	if custody.UserID != nil {
		a.Status = asset.StatusInUse
	}
	repo.assets[a.ID] = a
	return a
}

func newTestService() (*Service, *memoryTransferRepo, *nopAudit) {
	repo := newMemoryTransferRepo()
	audit := &nopAudit{}
	svc := NewService(repo, assetPortStub{repo: repo}, audit, nil, fixedClock(testToday))
	return svc, repo, audit
}

func TestCreateSnapshotsFromCustody(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAsset(repo, asset.Custody{DepartmentID: ptr(10)})

	created, err := svc.Create(context.Background(), CreateInput{
		AssetID:        1,
		ToDepartmentID: ptr(20),
		TransferDate:   testToday,
		CreatedBy:      5,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, created.Status)
	require.Equal(t, int64(10), *created.FromDepartmentID)
	require.Nil(t, created.FromUserID)
}

func TestCreateRejectsNoOpAgainstCurrentCustody(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAsset(repo, asset.Custody{DepartmentID: ptr(10)})

	_, err := svc.Create(context.Background(), CreateInput{
		AssetID:        1,
		ToDepartmentID: ptr(10),
		TransferDate:   testToday,
	})
	require.True(t, shared.IsRuleCode(err, CodeInvalidDestination))
}

func TestCreateRejectsDisposedAsset(t *testing.T) {
	svc, repo, _ := newTestService()
	a := seedAsset(repo, asset.Custody{})
	a.MarkDisposed(testToday)
	repo.assets[a.ID] = a

	_, err := svc.Create(context.Background(), CreateInput{
		AssetID:        1,
		ToDepartmentID: ptr(20),
		TransferDate:   testToday,
	})
	require.True(t, shared.IsRuleCode(err, asset.CodeAssetDisposed))
}

func TestApproveCompleteMovesCustody(t *testing.T) {
	svc, repo, audit := newTestService()
	seedAsset(repo, asset.Custody{DepartmentID: ptr(10)})

	created, err := svc.Create(context.Background(), CreateInput{
		AssetID:        1,
		ToDepartmentID: ptr(20),
		ToUserID:       ptr(77),
		TransferDate:   testToday,
		CreatedBy:      5,
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), created.ID, 42)
	require.NoError(t, err)

	completed, err := svc.Complete(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	moved := repo.assets[1]
	require.Equal(t, int64(20), *moved.Custody.DepartmentID)
	require.Equal(t, int64(77), *moved.Custody.UserID)
	require.Equal(t, asset.StatusInUse, moved.Status)

	var actions []string
	for _, e := range audit.entries {
		actions = append(actions, e.Action)
	}
	require.Contains(t, actions, "TRANSFER_COMPLETE")
}

func TestCompleteWithoutUserLeavesAvailable(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAsset(repo, asset.Custody{DepartmentID: ptr(10), UserID: ptr(5)})

	created, err := svc.Create(context.Background(), CreateInput{
		AssetID:        1,
		ToDepartmentID: ptr(20),
		TransferDate:   testToday,
	})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), created.ID, 42)
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), created.ID)
	require.NoError(t, err)

	moved := repo.assets[1]
	require.Equal(t, asset.StatusAvailable, moved.Status)
	require.Nil(t, moved.Custody.UserID)
}

func TestCompleteRequiresApproval(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAsset(repo, asset.Custody{DepartmentID: ptr(10)})

	created, err := svc.Create(context.Background(), CreateInput{
		AssetID:        1,
		ToDepartmentID: ptr(20),
		TransferDate:   testToday,
	})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), created.ID)
	require.True(t, shared.IsRuleCode(err, CodeCannotComplete))
	// Asset untouched on failure.
	require.Equal(t, int64(10), *repo.assets[1].Custody.DepartmentID)
}
