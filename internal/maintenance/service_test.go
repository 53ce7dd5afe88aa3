package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/budget"
	"github.com/assetline/assetline/internal/shared"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type memoryMaintenanceRepo struct {
	orders map[int64]Order
	assets map[int64]asset.Asset
	plans  map[int64]budget.Plan
	nextID int64
}

func newMemoryMaintenanceRepo() *memoryMaintenanceRepo {
	return &memoryMaintenanceRepo{
		orders: make(map[int64]Order),
		assets: make(map[int64]asset.Asset),
		plans:  make(map[int64]budget.Plan),
	}
}

type memoryMaintenanceTx struct {
	repo *memoryMaintenanceRepo
}

func (r *memoryMaintenanceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryMaintenanceTx{repo: r})
}

func (r *memoryMaintenanceRepo) Get(ctx context.Context, id int64) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	return o, nil
}

func (r *memoryMaintenanceRepo) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	var out []Order
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, len(out), nil
}

func (r *memoryMaintenanceRepo) HasOpenOrder(ctx context.Context, assetID int64) (bool, error) {
	for _, o := range r.orders {
		if o.AssetID == assetID && o.Status == StatusOpen {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryMaintenanceTx) CreateOrder(ctx context.Context, o Order) (Order, error) {
	tx.repo.nextID++
	o.ID = tx.repo.nextID
	o.Version = 1
	tx.repo.orders[o.ID] = o
	return o, nil
}

func (tx *memoryMaintenanceTx) UpdateOrder(ctx context.Context, o Order) (Order, error) {
	current, ok := tx.repo.orders[o.ID]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	if current.Version != o.Version {
		return Order{}, shared.ErrVersionConflict
	}
	o.Version++
	tx.repo.orders[o.ID] = o
	return o, nil
}

func (tx *memoryMaintenanceTx) PersistAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	if _, ok := tx.repo.assets[a.ID]; !ok {
		return asset.Asset{}, shared.ErrNotFound
	}
	a.Version++
	tx.repo.assets[a.ID] = a
	return a, nil
}

func (tx *memoryMaintenanceTx) PersistPlan(ctx context.Context, p budget.Plan) (budget.Plan, error) {
	if _, ok := tx.repo.plans[p.ID]; !ok {
		return budget.Plan{}, shared.ErrNotFound
	}
	p.Version++
	tx.repo.plans[p.ID] = p
	return p, nil
}

type assetPortStub struct{ repo *memoryMaintenanceRepo }

func (p assetPortStub) Get(ctx context.Context, id int64) (asset.Asset, error) {
	a, ok := p.repo.assets[id]
	if !ok {
		return asset.Asset{}, shared.ErrNotFound
	}
	return a, nil
}

type budgetPortStub struct{ repo *memoryMaintenanceRepo }

func (p budgetPortStub) FindActive(ctx context.Context, orgID, departmentID int64, fiscalYear int) (budget.Plan, error) {
	for _, plan := range p.repo.plans {
		if plan.OrgID == orgID && plan.DepartmentID == departmentID && plan.FiscalYear == fiscalYear && plan.Status == budget.StatusActive {
			return plan, nil
		}
	}
	return budget.Plan{}, shared.ErrNotFound
}

func newTestService() (*Service, *memoryMaintenanceRepo) {
	repo := newMemoryMaintenanceRepo()
	clock := shared.Clock(func() time.Time { return testNow })
	svc := NewService(repo, assetPortStub{repo: repo}, budgetPortStub{repo: repo}, nil, clock)
	return svc, repo
}

func ptr[T any](v T) *T { return &v }

func seed(repo *memoryMaintenanceRepo, withUser bool, planStatus budget.Status) {
	custody := asset.Custody{DepartmentID: ptr[int64](10)}
	status := asset.StatusAvailable
	if withUser {
		custody.UserID = ptr[int64](20)
		status = asset.StatusInUse
	}
	repo.assets[1] = asset.Asset{
		ID: 1, OrgID: 1, CategoryID: 1, CreatedBy: 1,
		Name: "Forklift", Code: "FL-1",
		Status: status, Custody: custody, Version: 1,
	}
	repo.plans[1] = budget.Plan{
		ID: 1, OrgID: 1, DepartmentID: 10, FiscalYear: 2024,
		BudgetType: "MAINTENANCE", AllocatedAmount: 1000,
		Status: planStatus, Version: 1,
	}
}

func openOrder(t *testing.T, svc *Service) Order {
	t.Helper()
	created, err := svc.Create(context.Background(), CreateInput{
		AssetID:       1,
		Description:   "hydraulic pump replacement",
		ScheduledDate: testNow,
		EstimatedCost: 300,
		CreatedBy:     5,
	})
	require.NoError(t, err)
	return created
}

func TestCreateFlipsAssetToMaintenance(t *testing.T) {
	svc, repo := newTestService()
	seed(repo, false, budget.StatusActive)

	created := openOrder(t, svc)
	require.Equal(t, StatusOpen, created.Status)
	require.Equal(t, asset.StatusMaintenance, repo.assets[1].Status)
}

func TestCreateRejectsDisposedAsset(t *testing.T) {
	svc, repo := newTestService()
	seed(repo, false, budget.StatusActive)
	a := repo.assets[1]
	a.MarkDisposed(testNow)
	repo.assets[1] = a

	_, err := svc.Create(context.Background(), CreateInput{
		AssetID:       1,
		Description:   "hydraulic pump replacement",
		ScheduledDate: testNow,
		CreatedBy:     5,
	})
	require.Error(t, err)
	require.True(t, shared.IsRuleCode(err, asset.CodeAssetDisposed))
	require.Equal(t, asset.StatusDisposed, repo.assets[1].Status)
	require.Empty(t, repo.orders)
}

func TestCreateRejectsSecondOpenOrder(t *testing.T) {
	svc, repo := newTestService()
	seed(repo, false, budget.StatusActive)
	openOrder(t, svc)

	_, err := svc.Create(context.Background(), CreateInput{
		AssetID:       1,
		Description:   "mast chain inspection",
		ScheduledDate: testNow,
		CreatedBy:     5,
	})
	require.Error(t, err)
	require.True(t, shared.IsRuleCode(err, CodeAlreadyOpen))
	require.Len(t, repo.orders, 1)
}

func TestCompleteSpendsAndRestoresAvailable(t *testing.T) {
	svc, repo := newTestService()
	seed(repo, false, budget.StatusActive)
	created := openOrder(t, svc)

	completed, err := svc.Complete(context.Background(), created.ID, 250)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.InDelta(t, 250, completed.Cost, 0.0001)
	require.NotNil(t, completed.CompletedAt)

	require.Equal(t, asset.StatusAvailable, repo.assets[1].Status)
	require.InDelta(t, 250, repo.plans[1].SpentAmount, 0.0001)
}

func TestCompleteRestoresInUseWhenUserHoldsAsset(t *testing.T) {
	svc, repo := newTestService()
	seed(repo, true, budget.StatusActive)
	created := openOrder(t, svc)

	_, err := svc.Complete(context.Background(), created.ID, 100)
	require.NoError(t, err)
	require.Equal(t, asset.StatusInUse, repo.assets[1].Status)
}

func TestCompleteRejectsOverspend(t *testing.T) {
	svc, repo := newTestService()
	seed(repo, false, budget.StatusActive)
	created := openOrder(t, svc)

	_, err := svc.Complete(context.Background(), created.ID, 1500)
	require.True(t, shared.IsRuleCode(err, budget.CodeBudgetExceeded))
	// Nothing moved.
	require.Equal(t, StatusOpen, repo.orders[created.ID].Status)
	require.Equal(t, asset.StatusMaintenance, repo.assets[1].Status)
	require.InDelta(t, 0, repo.plans[1].SpentAmount, 0.0001)
}

func TestCompleteRequiresActivePlan(t *testing.T) {
	svc, repo := newTestService()
	seed(repo, false, budget.StatusDraft)
	created := openOrder(t, svc)

	_, err := svc.Complete(context.Background(), created.ID, 50)
	require.True(t, shared.IsRuleCode(err, CodeNoActivePlan))
}

func TestCompleteWithZeroCostSkipsBudget(t *testing.T) {
	svc, repo := newTestService()
	seed(repo, false, budget.StatusDraft)
	created := openOrder(t, svc)

	completed, err := svc.Complete(context.Background(), created.ID, 0)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.InDelta(t, 0, repo.plans[1].SpentAmount, 0.0001)
}

func TestCancelRestoresWithoutSpend(t *testing.T) {
	svc, repo := newTestService()
	seed(repo, true, budget.StatusActive)
	created := openOrder(t, svc)

	cancelled, err := svc.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, asset.StatusInUse, repo.assets[1].Status)
	require.InDelta(t, 0, repo.plans[1].SpentAmount, 0.0001)

	_, err = svc.Cancel(context.Background(), created.ID)
	require.True(t, shared.IsRuleCode(err, CodeCannotCancel))
}
