package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetline/assetline/internal/shared"
)

var testToday = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func validInput() NewPlanInput {
	return NewPlanInput{
		OrgID:           1,
		DepartmentID:    10,
		FiscalYear:      2024,
		BudgetType:      "OPERATIONAL",
		AllocatedAmount: 1000,
		CreatedBy:       5,
	}
}

func activePlan(t *testing.T, allocated float64) Plan {
	t.Helper()
	in := validInput()
	in.AllocatedAmount = allocated
	p, err := New(in, testToday)
	require.NoError(t, err)
	for _, next := range []Status{StatusSubmitted, StatusApproved, StatusActive} {
		require.NoError(t, p.Transition(next))
	}
	return p
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*NewPlanInput)
		code   string
	}{
		{"missing org", func(in *NewPlanInput) { in.OrgID = 0 }, CodeOrgRequired},
		{"missing department", func(in *NewPlanInput) { in.DepartmentID = 0 }, CodeDepartmentRequired},
		{"missing type", func(in *NewPlanInput) { in.BudgetType = "" }, CodeTypeRequired},
		{"year too far back", func(in *NewPlanInput) { in.FiscalYear = 2013 }, CodeInvalidFiscalYear},
		{"year too far ahead", func(in *NewPlanInput) { in.FiscalYear = 2035 }, CodeInvalidFiscalYear},
		{"negative allocation", func(in *NewPlanInput) { in.AllocatedAmount = -1 }, CodeNegativeAllocation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := New(in, testToday)
			require.True(t, shared.IsRuleCode(err, tc.code), "want code %s, got %v", tc.code, err)
		})
	}
}

func TestFiscalYearWindowEdges(t *testing.T) {
	for _, year := range []int{2014, 2034} {
		in := validInput()
		in.FiscalYear = year
		_, err := New(in, testToday)
		require.NoError(t, err, "year %d", year)
	}
}

func TestTransitionTableIsTotal(t *testing.T) {
	all := []Status{
		StatusDraft, StatusSubmitted, StatusApproved, StatusRejected, StatusActive,
		StatusInactive, StatusClosed, StatusCancelled, StatusArchived,
	}
	allowed := map[Status][]Status{
		StatusDraft:     {StatusSubmitted, StatusCancelled},
		StatusSubmitted: {StatusApproved, StatusRejected, StatusDraft},
		StatusApproved:  {StatusActive, StatusCancelled},
		StatusActive:    {StatusClosed, StatusInactive},
		StatusInactive:  {StatusActive, StatusClosed},
		StatusClosed:    {StatusArchived},
		StatusCancelled: {StatusDraft},
		StatusRejected:  {StatusDraft},
		StatusArchived:  {},
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			p, err := New(validInput(), testToday)
			require.NoError(t, err)
			p.Status = from
			err = p.Transition(to)
			if want {
				require.NoError(t, err, "%s -> %s", from, to)
				require.Equal(t, to, p.Status)
			} else {
				require.True(t, shared.IsRuleCode(err, CodeInvalidTransition), "%s -> %s", from, to)
				require.Equal(t, from, p.Status)
			}
		}
	}
}

func TestArchivedIsTerminal(t *testing.T) {
	require.True(t, StatusArchived.Terminal())
	for _, s := range []Status{StatusDraft, StatusActive, StatusClosed} {
		require.False(t, s.Terminal(), string(s))
	}
}

func TestSpendGuards(t *testing.T) {
	p := activePlan(t, 1000)

	require.NoError(t, p.Spend(800))
	require.InDelta(t, 800, p.SpentAmount, 0.0001)

	err := p.Spend(300)
	require.True(t, shared.IsRuleCode(err, CodeBudgetExceeded))
	require.InDelta(t, 800, p.SpentAmount, 0.0001)

	require.NoError(t, p.Refund(800))
	require.InDelta(t, 0, p.SpentAmount, 0.0001)

	require.True(t, shared.IsRuleCode(p.Spend(0), CodeInvalidAmount))
	require.True(t, shared.IsRuleCode(p.Spend(-5), CodeInvalidAmount))
}

func TestSpendRequiresActive(t *testing.T) {
	p, err := New(validInput(), testToday)
	require.NoError(t, err)
	require.True(t, shared.IsRuleCode(p.Spend(10), CodeNotActive))

	require.NoError(t, p.Transition(StatusSubmitted))
	require.NoError(t, p.Transition(StatusApproved))
	require.True(t, shared.IsRuleCode(p.Spend(10), CodeNotActive))
}

func TestRefundGuards(t *testing.T) {
	p := activePlan(t, 1000)
	require.NoError(t, p.Spend(100))

	require.True(t, shared.IsRuleCode(p.Refund(0), CodeInvalidAmount))
	require.True(t, shared.IsRuleCode(p.Refund(150), CodeRefundExceedsSpent))
	require.NoError(t, p.Refund(100))
	require.InDelta(t, 0, p.SpentAmount, 0.0001)
}

func TestAllocateAdditionalNeverTouchesSpent(t *testing.T) {
	p := activePlan(t, 1000)
	require.NoError(t, p.Spend(1000))

	require.True(t, shared.IsRuleCode(p.Spend(1), CodeBudgetExceeded))
	require.NoError(t, p.AllocateAdditional(500))
	require.NoError(t, p.Spend(400))
	require.InDelta(t, 1400, p.SpentAmount, 0.0001)
	require.InDelta(t, 100, p.RemainingBudget(), 0.0001)

	require.True(t, shared.IsRuleCode(p.AllocateAdditional(0), CodeInvalidAmount))
}

func TestUtilizationRate(t *testing.T) {
	p := activePlan(t, 1000)
	require.InDelta(t, 0, p.UtilizationRate(), 0.0001)

	require.NoError(t, p.Spend(250))
	require.InDelta(t, 25, p.UtilizationRate(), 0.0001)

	empty := activePlan(t, 0)
	require.InDelta(t, 0, empty.UtilizationRate(), 0.0001)
}
