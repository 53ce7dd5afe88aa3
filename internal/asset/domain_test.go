package asset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetline/assetline/internal/shared"
)

var testToday = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func validInput() NewAssetInput {
	return NewAssetInput{
		OrgID:         1,
		CategoryID:    2,
		CreatedBy:     3,
		Name:          "ThinkPad X1",
		Code:          "IT-0001",
		PurchasePrice: 1000,
		OriginalCost:  1000,
		CurrentValue:  1000,
		PurchaseDate:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*NewAssetInput)
		code   string
	}{
		{"empty name", func(i *NewAssetInput) { i.Name = "  " }, CodeNameRequired},
		{"empty code", func(i *NewAssetInput) { i.Code = "" }, CodeCodeRequired},
		{"missing category", func(i *NewAssetInput) { i.CategoryID = 0 }, CodeCategoryRequired},
		{"missing creator", func(i *NewAssetInput) { i.CreatedBy = 0 }, CodeCreatorRequired},
		{"missing org", func(i *NewAssetInput) { i.OrgID = 0 }, CodeOrgRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := New(input, testToday)
			require.True(t, shared.IsRuleCode(err, tc.code), "want %s, got %v", tc.code, err)
		})
	}
}

func TestNewDerivesStatusFromCustody(t *testing.T) {
	input := validInput()
	a, err := New(input, testToday)
	require.NoError(t, err)
	require.Equal(t, StatusAvailable, a.Status)

	dept := int64(7)
	user := int64(8)
	input.Custody = Custody{DepartmentID: &dept, UserID: &user}
	a, err = New(input, testToday)
	require.NoError(t, err)
	require.Equal(t, StatusInUse, a.Status)
}

func TestNewRejectsFuturePurchaseDate(t *testing.T) {
	input := validInput()
	input.PurchaseDate = testToday.AddDate(0, 0, 1)
	_, err := New(input, testToday)
	require.True(t, shared.IsRuleCode(err, CodeInvalidPurchaseDate))
}

func TestUpdateFinancialsWarrantyRule(t *testing.T) {
	a, err := New(validInput(), testToday)
	require.NoError(t, err)

	purchase := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	warranty := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, a.UpdateFinancials(1000, 1000, 1000, purchase, &warranty, testToday))

	stale := time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)
	err = a.UpdateFinancials(1000, 1000, 1000, purchase, &stale, testToday)
	require.True(t, shared.IsRuleCode(err, CodeInvalidWarrantyDate))
	// Rejected command leaves the aggregate unchanged.
	require.Equal(t, warranty, *a.WarrantyExpiry)
}

func TestUpdateFinancialsRejectsNegativeAmounts(t *testing.T) {
	a, err := New(validInput(), testToday)
	require.NoError(t, err)
	err = a.UpdateFinancials(-1, 0, 0, a.PurchaseDate, nil, testToday)
	require.True(t, shared.IsRuleCode(err, CodeNegativeAmount))
}

func TestAssignForcesInUse(t *testing.T) {
	a, err := New(validInput(), testToday)
	require.NoError(t, err)

	require.NoError(t, a.AssignToUser(11, 22))
	require.Equal(t, StatusInUse, a.Status)
	require.Equal(t, int64(11), *a.Custody.UserID)
	require.Equal(t, int64(22), *a.Custody.DepartmentID)

	require.NoError(t, a.Unassign())
	require.Equal(t, StatusAvailable, a.Status)
	require.Nil(t, a.Custody.UserID)
	require.Nil(t, a.Custody.DepartmentID)
}

func TestUpdateLocationStatusRules(t *testing.T) {
	a, err := New(validInput(), testToday)
	require.NoError(t, err)

	dept := int64(5)
	require.NoError(t, a.UpdateLocation(&dept, nil))
	require.Equal(t, StatusAvailable, a.Status)

	user := int64(9)
	require.NoError(t, a.UpdateLocation(&dept, &user))
	require.Equal(t, StatusInUse, a.Status)

	err = a.UpdateLocation(nil, &user)
	require.True(t, shared.IsRuleCode(err, CodeCustodyIncomplete))
}

func TestDisposedAssetIsFrozen(t *testing.T) {
	a, err := New(validInput(), testToday)
	require.NoError(t, err)
	a.MarkDisposed(testToday)
	require.Equal(t, StatusDisposed, a.Status)
	require.NotNil(t, a.DeletedAt)

	require.True(t, shared.IsRuleCode(a.UpdateBasicInfo("new", 2), CodeAssetDisposed))
	require.True(t, shared.IsRuleCode(a.AssignToUser(1, 1), CodeAssetDisposed))
	require.True(t, shared.IsRuleCode(a.Unassign(), CodeAssetDisposed))
}

func TestChangeStatusRejectsUnknownEnum(t *testing.T) {
	a, err := New(validInput(), testToday)
	require.NoError(t, err)
	require.True(t, shared.IsRuleCode(a.ChangeStatus("BROKEN"), CodeInvalidStatus))
	require.NoError(t, a.ChangeStatus(StatusReserved))
	require.Equal(t, StatusReserved, a.Status)
}
