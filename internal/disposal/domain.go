package disposal

import (
	"time"

	"github.com/assetline/assetline/internal/shared"
)

// Type enumerates how an asset leaves the organization.
type Type string

const (
	TypeSale     Type = "SALE"
	TypeDonation Type = "DONATION"
	TypeScrap    Type = "SCRAP"
	TypeLost     Type = "LOST"
	TypeDamaged  Type = "DAMAGED"
	TypeOther    Type = "OTHER"
)

// Valid reports whether t is a known disposal type.
func (t Type) Valid() bool {
	switch t {
	case TypeSale, TypeDonation, TypeScrap, TypeLost, TypeDamaged, TypeOther:
		return true
	}
	return false
}

// Status enumerates disposal workflow states. REJECTED is terminal: a
// rejected request cannot be approved later, a fresh request is needed.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {},
	StatusRejected:  {},
	StatusCancelled: {},
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

// Business-rule codes raised by the disposal workflow.
const (
	CodeInvalidType       = "INVALID_DISPOSAL_TYPE"
	CodeInvalidDate       = "INVALID_DISPOSAL_DATE"
	CodeNegativeValue     = "NEGATIVE_DISPOSAL_VALUE"
	CodeCannotApprove     = "CANNOT_APPROVE_DISPOSAL"
	CodeCannotReject      = "CANNOT_REJECT_DISPOSAL"
	CodeCannotCancel      = "CANNOT_CANCEL_DISPOSAL"
	CodeEntryAlreadySet   = "DISPOSAL_ENTRY_ALREADY_LINKED"
	CodeEntryRequired     = "DISPOSAL_ENTRY_REQUIRED"
	CodeApproverRequired  = "DISPOSAL_APPROVER_REQUIRED"
	CodeAlreadyRequested  = "DISPOSAL_ALREADY_REQUESTED"
)

// Disposal retires one asset through a request/approval protocol.
type Disposal struct {
	ID                int64
	AssetID           int64
	Type              Type
	Value             float64
	DisposalDate      time.Time
	Reason            string
	Status            Status
	ApproverID        *int64
	AccountingEntryID *int64
	CreatedBy         int64
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewDisposalInput carries the creation payload.
type NewDisposalInput struct {
	AssetID      int64
	Type         Type
	Value        float64
	DisposalDate time.Time
	Reason       string
	CreatedBy    int64
}

// New validates and builds a PENDING disposal request.
func New(input NewDisposalInput, today time.Time) (Disposal, error) {
	if !input.Type.Valid() {
		return Disposal{}, shared.NewRulef(CodeInvalidType, "unknown disposal type %q", input.Type)
	}
	if input.Value < 0 {
		return Disposal{}, shared.NewRule(CodeNegativeValue, "disposal value must not be negative")
	}
	if input.DisposalDate.IsZero() {
		return Disposal{}, shared.NewRule(CodeInvalidDate, "disposal date is required")
	}
	if input.DisposalDate.After(today) {
		return Disposal{}, shared.NewRule(CodeInvalidDate, "disposal date must not be in the future")
	}
	return Disposal{
		AssetID:      input.AssetID,
		Type:         input.Type,
		Value:        input.Value,
		DisposalDate: input.DisposalDate,
		Reason:       input.Reason,
		Status:       StatusPending,
		CreatedBy:    input.CreatedBy,
	}, nil
}

// Approve records the approver and moves the request to APPROVED. The
// caller retires the asset in the same unit of work.
func (d *Disposal) Approve(approverID int64) error {
	if approverID == 0 {
		return shared.NewRule(CodeApproverRequired, "an approver is required")
	}
	if !d.Status.CanTransition(StatusApproved) {
		return shared.NewRulef(CodeCannotApprove, "disposal in status %s cannot be approved", d.Status)
	}
	d.Status = StatusApproved
	d.ApproverID = &approverID
	return nil
}

// Reject moves the request to the terminal REJECTED state.
func (d *Disposal) Reject(approverID int64, reason string) error {
	if approverID == 0 {
		return shared.NewRule(CodeApproverRequired, "an approver is required")
	}
	if !d.Status.CanTransition(StatusRejected) {
		return shared.NewRulef(CodeCannotReject, "disposal in status %s cannot be rejected", d.Status)
	}
	d.Status = StatusRejected
	d.ApproverID = &approverID
	if reason != "" {
		d.Reason = reason
	}
	return nil
}

// Cancel withdraws a pending request.
func (d *Disposal) Cancel() error {
	if !d.Status.CanTransition(StatusCancelled) {
		return shared.NewRulef(CodeCannotCancel, "disposal in status %s cannot be cancelled", d.Status)
	}
	d.Status = StatusCancelled
	return nil
}

// LinkAccountingEntry attaches the financial entry reference, at most once.
func (d *Disposal) LinkAccountingEntry(entryID int64) error {
	if entryID == 0 {
		return shared.NewRule(CodeEntryRequired, "accounting entry id is required")
	}
	if d.AccountingEntryID != nil {
		return shared.NewRule(CodeEntryAlreadySet, "an accounting entry is already linked")
	}
	d.AccountingEntryID = &entryID
	return nil
}

// NetGainLoss is the pure read disposalValue - bookValue.
func (d *Disposal) NetGainLoss(bookValue float64) float64 {
	return d.Value - bookValue
}
