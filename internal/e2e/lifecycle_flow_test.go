package e2e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/budget"
	"github.com/assetline/assetline/internal/disposal"
	"github.com/assetline/assetline/internal/maintenance"
	"github.com/assetline/assetline/internal/shared"
	"github.com/assetline/assetline/internal/transfer"
)

var flowToday = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// Walks one asset through its whole life: registration, a custody
// transfer, a maintenance cycle billed against an active budget plan,
// and finally disposal.
func TestAssetLifecycleEndToEnd(t *testing.T) {
	a, err := asset.New(asset.NewAssetInput{
		OrgID:         1,
		CategoryID:    4,
		CreatedBy:     7,
		Name:          "ThinkPad X1",
		Code:          "AST-0042",
		PurchasePrice: 1800,
		OriginalCost:  1800,
		CurrentValue:  1800,
		PurchaseDate:  flowToday.AddDate(-1, 0, 0),
		Location:      "Warehouse A",
	}, flowToday)
	require.NoError(t, err)
	require.Equal(t, asset.StatusAvailable, a.Status)
	a.ID = 42

	// Transfer it into department 3, user 9.
	tr, err := transfer.New(transfer.NewTransferInput{
		AssetID:        a.ID,
		From:           a.Custody,
		ToDepartmentID: ptr[int64](3),
		ToUserID:       ptr[int64](9),
		TransferDate:   flowToday,
		Reason:         "new hire equipment",
		CreatedBy:      7,
	}, flowToday)
	require.NoError(t, err)
	require.NoError(t, tr.Approve(11))
	require.NoError(t, tr.Start())
	require.NoError(t, tr.Complete())
	require.NoError(t, a.UpdateLocation(tr.To().DepartmentID, tr.To().UserID))
	require.Equal(t, asset.StatusInUse, a.Status)

	// Budget plan backing the maintenance spend.
	plan, err := budget.New(budget.NewPlanInput{
		OrgID:           1,
		DepartmentID:    3,
		FiscalYear:      2024,
		BudgetType:      "MAINTENANCE",
		AllocatedAmount: 500,
		CreatedBy:       7,
	}, flowToday)
	require.NoError(t, err)
	for _, next := range []budget.Status{budget.StatusSubmitted, budget.StatusApproved, budget.StatusActive} {
		require.NoError(t, plan.Transition(next))
	}

	order, err := maintenance.New(maintenance.NewOrderInput{
		AssetID:       a.ID,
		Description:   "battery swap",
		ScheduledDate: flowToday.AddDate(0, 0, 3),
		EstimatedCost: 120,
		CreatedBy:     7,
	})
	require.NoError(t, err)
	require.NoError(t, a.ChangeStatus(asset.StatusMaintenance))
	require.NoError(t, order.Complete(110, flowToday.AddDate(0, 0, 4)))
	require.NoError(t, plan.Spend(110))
	require.Equal(t, 390.0, plan.RemainingBudget())
	require.NoError(t, a.ChangeStatus(asset.StatusInUse))

	// Dispose at end of life.
	d, err := disposal.New(disposal.NewDisposalInput{
		AssetID:      a.ID,
		Type:         disposal.TypeSale,
		Value:        300,
		DisposalDate: flowToday,
		Reason:       "end of refresh cycle",
		CreatedBy:    7,
	}, flowToday)
	require.NoError(t, err)
	require.NoError(t, d.Approve(11))
	a.MarkDisposed(flowToday)

	require.Equal(t, asset.StatusDisposed, a.Status)
	err = a.UpdateBasicInfo("renamed", 4)
	require.Error(t, err)
	require.True(t, shared.IsRuleCode(err, asset.CodeAssetDisposed))
}
