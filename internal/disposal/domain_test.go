package disposal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetline/assetline/internal/shared"
)

func validInput() NewDisposalInput {
	return NewDisposalInput{
		AssetID:      1,
		Type:         TypeScrap,
		Value:        0,
		DisposalDate: testToday,
		Reason:       "end of life",
		CreatedBy:    5,
	}
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*NewDisposalInput)
		code   string
	}{
		{"unknown type", func(in *NewDisposalInput) { in.Type = "MELTED" }, CodeInvalidType},
		{"negative value", func(in *NewDisposalInput) { in.Value = -0.01 }, CodeNegativeValue},
		{"future date", func(in *NewDisposalInput) { in.DisposalDate = testToday.AddDate(0, 0, 1) }, CodeInvalidDate},
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

func TestNewStartsPending(t *testing.T) {
	d, err := New(validInput(), testToday)
	require.NoError(t, err)
	require.Equal(t, StatusPending, d.Status)
	require.Nil(t, d.ApproverID)
	require.Nil(t, d.AccountingEntryID)
}

func TestOnlyPendingHasOutgoingEdges(t *testing.T) {
	for _, from := range []Status{StatusApproved, StatusRejected, StatusCancelled} {
		d, err := New(validInput(), testToday)
		require.NoError(t, err)
		d.Status = from

		require.True(t, shared.IsRuleCode(d.Approve(42), CodeCannotApprove), "approve from %s", from)
		require.True(t, shared.IsRuleCode(d.Reject(42, "no"), CodeCannotReject), "reject from %s", from)
		require.True(t, shared.IsRuleCode(d.Cancel(), CodeCannotCancel), "cancel from %s", from)
	}
}

func TestApproveRequiresApprover(t *testing.T) {
	d, err := New(validInput(), testToday)
	require.NoError(t, err)
	require.True(t, shared.IsRuleCode(d.Approve(0), CodeApproverRequired))
	require.True(t, shared.IsRuleCode(d.Reject(0, "no"), CodeApproverRequired))
}

func TestRejectThenApproveFails(t *testing.T) {
	d, err := New(validInput(), testToday)
	require.NoError(t, err)

	require.NoError(t, d.Reject(42, "asset still serviceable"))
	require.Equal(t, StatusRejected, d.Status)
	require.True(t, shared.IsRuleCode(d.Approve(42), CodeCannotApprove))
}

func TestLinkAccountingEntry(t *testing.T) {
	d, err := New(validInput(), testToday)
	require.NoError(t, err)

	require.True(t, shared.IsRuleCode(d.LinkAccountingEntry(0), CodeEntryRequired))
	require.NoError(t, d.LinkAccountingEntry(900))
	require.True(t, shared.IsRuleCode(d.LinkAccountingEntry(901), CodeEntryAlreadySet))
	require.Equal(t, int64(900), *d.AccountingEntryID)
}

func TestNetGainLossArithmetic(t *testing.T) {
	in := validInput()
	in.Type = TypeSale
	in.Value = 750
	d, err := New(in, testToday)
	require.NoError(t, err)

	require.InDelta(t, 250, d.NetGainLoss(500), 0.0001)
	require.InDelta(t, -250, d.NetGainLoss(1000), 0.0001)
}

func TestPastDisposalDateAccepted(t *testing.T) {
	in := validInput()
	in.DisposalDate = time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	_, err := New(in, testToday)
	require.NoError(t, err)
}
