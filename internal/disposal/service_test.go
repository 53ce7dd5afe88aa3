package disposal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/shared"
)

var testToday = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type memoryDisposalRepo struct {
	disposals map[int64]Disposal
	assets    map[int64]asset.Asset
	nextID    int64
}

func newMemoryDisposalRepo() *memoryDisposalRepo {
	return &memoryDisposalRepo{disposals: make(map[int64]Disposal), assets: make(map[int64]asset.Asset)}
}

type memoryDisposalTx struct {
	repo *memoryDisposalRepo
}

func (r *memoryDisposalRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryDisposalTx{repo: r})
}

func (r *memoryDisposalRepo) Create(ctx context.Context, d Disposal) (Disposal, error) {
	r.nextID++
	d.ID = r.nextID
	d.Version = 1
	r.disposals[d.ID] = d
	return d, nil
}

func (r *memoryDisposalRepo) Get(ctx context.Context, id int64) (Disposal, error) {
	d, ok := r.disposals[id]
	if !ok {
		return Disposal{}, shared.ErrNotFound
	}
	return d, nil
}

func (r *memoryDisposalRepo) List(ctx context.Context, filter ListFilter) ([]Disposal, int, error) {
	var out []Disposal
	for _, d := range r.disposals {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d)
	}
	return out, len(out), nil
}

func (r *memoryDisposalRepo) HasOpenRequest(ctx context.Context, assetID int64) (bool, error) {
	for _, d := range r.disposals {
		if d.AssetID == assetID && d.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryDisposalRepo) Update(ctx context.Context, d Disposal) (Disposal, error) {
	return (&memoryDisposalTx{repo: r}).UpdateDisposal(ctx, d)
}

func (tx *memoryDisposalTx) UpdateDisposal(ctx context.Context, d Disposal) (Disposal, error) {
	current, ok := tx.repo.disposals[d.ID]
	if !ok {
		return Disposal{}, shared.ErrNotFound
	}
	if current.Version != d.Version {
		return Disposal{}, shared.ErrVersionConflict
	}
	d.Version++
	tx.repo.disposals[d.ID] = d
	return d, nil
}

func (tx *memoryDisposalTx) PersistAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	if _, ok := tx.repo.assets[a.ID]; !ok {
		return asset.Asset{}, shared.ErrNotFound
	}
	a.Version++
	tx.repo.assets[a.ID] = a
	return a, nil
}

type assetPortStub struct {
	repo *memoryDisposalRepo
}

func (p assetPortStub) Get(ctx context.Context, id int64) (asset.Asset, error) {
	a, ok := p.repo.assets[id]
	if !ok {
		return asset.Asset{}, shared.ErrNotFound
	}
	return a, nil
}

type recordingAudit struct{ entries []shared.AuditLog }

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func newTestService() (*Service, *memoryDisposalRepo, *recordingAudit) {
	repo := newMemoryDisposalRepo()
	audit := &recordingAudit{}
	clock := shared.Clock(func() time.Time { return testToday })
	svc := NewService(repo, assetPortStub{repo: repo}, audit, nil, clock)
	return svc, repo, audit
}

func seedAsset(repo *memoryDisposalRepo, currentValue float64) asset.Asset {
	a := asset.Asset{
		ID: 1, OrgID: 1, CategoryID: 1, CreatedBy: 1,
		Name: "Server rack", Code: "SRV-1",
		Status:       asset.StatusAvailable,
		CurrentValue: currentValue,
		PurchaseDate: testToday.AddDate(-2, 0, 0),
		Version:      1,
	}
	repo.assets[a.ID] = a
	return a
}

func validCreate() CreateInput {
	return CreateInput{
		AssetID:      1,
		Type:         TypeSale,
		Value:        400,
		DisposalDate: testToday,
		Reason:       "replaced by newer hardware",
		CreatedBy:    5,
	}
}

func TestCreateValidation(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAsset(repo, 500)

	input := validCreate()
	input.Type = "SHREDDED"
	_, err := svc.Create(context.Background(), input)
	require.True(t, shared.IsRuleCode(err, CodeInvalidType))

	input = validCreate()
	input.Value = -1
	_, err = svc.Create(context.Background(), input)
	require.True(t, shared.IsRuleCode(err, CodeNegativeValue))

	input = validCreate()
	input.DisposalDate = testToday.AddDate(0, 0, 1)
	_, err = svc.Create(context.Background(), input)
	require.True(t, shared.IsRuleCode(err, CodeInvalidDate))
}

func TestCreateRejectsSecondOpenRequest(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAsset(repo, 500)

	_, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), validCreate())
	require.True(t, shared.IsRuleCode(err, CodeAlreadyRequested))
}

func TestApproveRetiresAssetAtomically(t *testing.T) {
	svc, repo, audit := newTestService()
	seedAsset(repo, 500)

	created, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), created.ID, 42)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, int64(42), *approved.ApproverID)

	disposed := repo.assets[1]
	require.Equal(t, asset.StatusDisposed, disposed.Status)
	require.Nil(t, disposed.Custody.UserID)
	require.NotNil(t, disposed.DeletedAt)

	var actions []string
	for _, e := range audit.entries {
		actions = append(actions, e.Action)
	}
	require.Contains(t, actions, "DISPOSAL_APPROVE")
}

func TestRejectedIsTerminal(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAsset(repo, 500)

	created, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), created.ID, 42, "damaged beyond repair")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), created.ID, 42)
	require.True(t, shared.IsRuleCode(err, CodeCannotApprove))
	// Asset untouched.
	require.Equal(t, asset.StatusAvailable, repo.assets[1].Status)
}

func TestCancelGuards(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAsset(repo, 500)

	created, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), created.ID, 42)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), created.ID)
	require.True(t, shared.IsRuleCode(err, CodeCannotCancel))
}

func TestLinkAccountingEntrySetOnce(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAsset(repo, 500)

	created, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	linked, err := svc.LinkAccountingEntry(context.Background(), created.ID, 900)
	require.NoError(t, err)
	require.Equal(t, int64(900), *linked.AccountingEntryID)

	_, err = svc.LinkAccountingEntry(context.Background(), created.ID, 901)
	require.True(t, shared.IsRuleCode(err, CodeEntryAlreadySet))
}

func TestNetGainLoss(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAsset(repo, 500)

	created, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	// Sale proceeds 400 against book value 500.
	value, err := svc.NetGainLoss(context.Background(), created.ID)
	require.NoError(t, err)
	require.InDelta(t, -100, value, 0.0001)
}
