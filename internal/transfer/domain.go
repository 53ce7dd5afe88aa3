package transfer

import (
	"time"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/shared"
)

// Status enumerates transfer workflow states.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions is the single point of truth for edge legality. Any pair
// absent from the table is an illegal transition.
var transitions = map[Status][]Status{
	StatusPending:    {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:   {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusRejected:   {},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Business-rule codes raised by the transfer workflow.
const (
	CodeInvalidDestination = "INVALID_TRANSFER_DESTINATION"
	CodeInvalidDate        = "INVALID_TRANSFER_DATE"
	CodeCannotApprove      = "CANNOT_APPROVE_TRANSFER"
	CodeCannotReject       = "CANNOT_REJECT_TRANSFER"
	CodeCannotStart        = "CANNOT_START_TRANSFER"
	CodeCannotComplete     = "CANNOT_COMPLETE_TRANSFER"
	CodeCannotCancel       = "CANNOT_CANCEL_TRANSFER"
	CodeCannotUpdate       = "CANNOT_UPDATE_TRANSFER"
	CodeApproverRequired   = "TRANSFER_APPROVER_REQUIRED"
)

// Transfer moves an asset's custody through a request/approval protocol.
type Transfer struct {
	ID               int64
	AssetID          int64
	FromDepartmentID *int64
	FromUserID       *int64
	ToDepartmentID   *int64
	ToUserID         *int64
	TransferDate     time.Time
	Reason           string
	Status           Status
	ApproverID       *int64
	CreatedBy        int64
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewTransferInput carries the creation payload. The from side is the
// asset's custody at request time, snapshotted by the service.
type NewTransferInput struct {
	AssetID        int64
	From           asset.Custody
	ToDepartmentID *int64
	ToUserID       *int64
	TransferDate   time.Time
	Reason         string
	CreatedBy      int64
}

// New validates and builds a PENDING transfer.
func New(input NewTransferInput, today time.Time) (Transfer, error) {
	if input.AssetID == 0 {
		return Transfer{}, shared.NewRule(CodeInvalidDestination, "transfer requires an asset")
	}
	to := asset.Custody{DepartmentID: input.ToDepartmentID, UserID: input.ToUserID}
	if input.From.Equal(to) {
		return Transfer{}, shared.NewRule(CodeInvalidDestination, "transfer source and destination are identical")
	}
	if err := validateDate(input.TransferDate, today); err != nil {
		return Transfer{}, err
	}
	return Transfer{
		AssetID:          input.AssetID,
		FromDepartmentID: input.From.DepartmentID,
		FromUserID:       input.From.UserID,
		ToDepartmentID:   input.ToDepartmentID,
		ToUserID:         input.ToUserID,
		TransferDate:     input.TransferDate,
		Reason:           input.Reason,
		Status:           StatusPending,
		CreatedBy:        input.CreatedBy,
	}, nil
}

func validateDate(transferDate, today time.Time) error {
	if transferDate.IsZero() {
		return shared.NewRule(CodeInvalidDate, "transfer date is required")
	}
	if transferDate.After(today) {
		return shared.NewRule(CodeInvalidDate, "transfer date must not be in the future")
	}
	return nil
}

// From returns the source custody pair.
func (t *Transfer) From() asset.Custody {
	return asset.Custody{DepartmentID: t.FromDepartmentID, UserID: t.FromUserID}
}

// To returns the destination custody pair.
func (t *Transfer) To() asset.Custody {
	return asset.Custody{DepartmentID: t.ToDepartmentID, UserID: t.ToUserID}
}

// UpdateDetails revalidates and replaces the mutable request fields;
// only a PENDING transfer may be edited.
func (t *Transfer) UpdateDetails(toDepartmentID, toUserID *int64, transferDate time.Time, reason string, today time.Time) error {
	if t.Status != StatusPending {
		return shared.NewRulef(CodeCannotUpdate, "transfer in status %s can no longer be edited", t.Status)
	}
	to := asset.Custody{DepartmentID: toDepartmentID, UserID: toUserID}
	if t.From().Equal(to) {
		return shared.NewRule(CodeInvalidDestination, "transfer source and destination are identical")
	}
	if err := validateDate(transferDate, today); err != nil {
		return err
	}
	t.ToDepartmentID = toDepartmentID
	t.ToUserID = toUserID
	t.TransferDate = transferDate
	t.Reason = reason
	return nil
}

// Approve records the approver and moves the request to APPROVED.
func (t *Transfer) Approve(approverID int64) error {
	if approverID == 0 {
		return shared.NewRule(CodeApproverRequired, "an approver is required")
	}
	if !t.Status.CanTransition(StatusApproved) {
		return shared.NewRulef(CodeCannotApprove, "transfer in status %s cannot be approved", t.Status)
	}
	t.Status = StatusApproved
	t.ApproverID = &approverID
	return nil
}

// Reject moves the request to the terminal REJECTED state.
func (t *Transfer) Reject(approverID int64, reason string) error {
	if approverID == 0 {
		return shared.NewRule(CodeApproverRequired, "an approver is required")
	}
	if !t.Status.CanTransition(StatusRejected) {
		return shared.NewRulef(CodeCannotReject, "transfer in status %s cannot be rejected", t.Status)
	}
	t.Status = StatusRejected
	t.ApproverID = &approverID
	if reason != "" {
		t.Reason = reason
	}
	return nil
}

// Start marks the physical move as underway.
func (t *Transfer) Start() error {
	if !t.Status.CanTransition(StatusInProgress) {
		return shared.NewRulef(CodeCannotStart, "transfer in status %s cannot be started", t.Status)
	}
	t.Status = StatusInProgress
	return nil
}

// Complete finishes the transfer. The caller applies the custody change
// to the asset in the same unit of work.
func (t *Transfer) Complete() error {
	if !t.Status.CanTransition(StatusCompleted) {
		return shared.NewRulef(CodeCannotComplete, "transfer in status %s cannot be completed", t.Status)
	}
	t.Status = StatusCompleted
	return nil
}

// Cancel aborts a not-yet-completed transfer.
func (t *Transfer) Cancel(reason string) error {
	if !t.Status.CanTransition(StatusCancelled) {
		return shared.NewRulef(CodeCannotCancel, "transfer in status %s cannot be cancelled", t.Status)
	}
	t.Status = StatusCancelled
	if reason != "" {
		t.Reason = reason
	}
	return nil
}
