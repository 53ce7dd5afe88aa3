package budget

import (
	"time"

	"github.com/assetline/assetline/internal/shared"
)

// Status is the budget plan lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
	StatusArchived  Status = "ARCHIVED"
)

// transitions is the single point of truth for the plan lifecycle. Any
// edge not listed here is illegal. ARCHIVED has no outgoing edges.
var transitions = map[Status][]Status{
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

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the edge s -> next is in the table.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing edges.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Stable rule codes surfaced to API clients.
const (
	CodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	CodeInvalidStatus      = "INVALID_BUDGET_STATUS"
	CodeInvalidFiscalYear  = "INVALID_FISCAL_YEAR"
	CodeOrgRequired        = "BUDGET_ORG_REQUIRED"
	CodeDepartmentRequired = "BUDGET_DEPARTMENT_REQUIRED"
	CodeTypeRequired       = "BUDGET_TYPE_REQUIRED"
	CodeNegativeAllocation = "NEGATIVE_BUDGET_ALLOCATION"
	CodeInvalidAmount      = "INVALID_BUDGET_AMOUNT"
	CodeBudgetExceeded     = "BUDGET_EXCEEDED"
	CodeRefundExceedsSpent = "REFUND_EXCEEDS_SPENT"
	CodeNotActive          = "BUDGET_NOT_ACTIVE"
	CodeDuplicateRequest   = "DUPLICATE_LEDGER_REQUEST"
)

// fiscalYearWindow bounds how far from the current year a plan may be
// created.
const fiscalYearWindow = 10

// Plan is the departmental budget ledger row.
type Plan struct {
	ID              int64
	OrgID           int64
	DepartmentID    int64
	FiscalYear      int
	BudgetType      string
	AllocatedAmount float64
	SpentAmount     float64
	Status          Status
	Description     string
	CreatedBy       int64
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewPlanInput carries the creation payload.
type NewPlanInput struct {
	OrgID           int64
	DepartmentID    int64
	FiscalYear      int
	BudgetType      string
	AllocatedAmount float64
	Description     string
	CreatedBy       int64
}

// New builds a DRAFT plan, rejecting invalid input with rule errors.
func New(input NewPlanInput, today time.Time) (Plan, error) {
	if input.OrgID <= 0 {
		return Plan{}, shared.NewRule(CodeOrgRequired, "organization is required")
	}
	if input.DepartmentID <= 0 {
		return Plan{}, shared.NewRule(CodeDepartmentRequired, "department is required")
	}
	if input.BudgetType == "" {
		return Plan{}, shared.NewRule(CodeTypeRequired, "budget type is required")
	}
	year := today.Year()
	if input.FiscalYear < year-fiscalYearWindow || input.FiscalYear > year+fiscalYearWindow {
		return Plan{}, shared.NewRulef(CodeInvalidFiscalYear, "fiscal year %d is outside the allowed window %d..%d", input.FiscalYear, year-fiscalYearWindow, year+fiscalYearWindow)
	}
	if input.AllocatedAmount < 0 {
		return Plan{}, shared.NewRule(CodeNegativeAllocation, "allocated amount must not be negative")
	}
	return Plan{
		OrgID:           input.OrgID,
		DepartmentID:    input.DepartmentID,
		FiscalYear:      input.FiscalYear,
		BudgetType:      input.BudgetType,
		AllocatedAmount: input.AllocatedAmount,
		SpentAmount:     0,
		Status:          StatusDraft,
		Description:     input.Description,
		CreatedBy:       input.CreatedBy,
	}, nil
}

// Transition moves the plan along one edge of the lifecycle table.
func (p *Plan) Transition(next Status) error {
	if !next.Valid() {
		return shared.NewRulef(CodeInvalidStatus, "unknown budget status %q", next)
	}
	if !p.Status.CanTransition(next) {
		return shared.NewRulef(CodeInvalidTransition, "cannot move budget plan from %s to %s", p.Status, next)
	}
	p.Status = next
	return nil
}

// Spend records spending against the plan. Only ACTIVE plans accept
// spend, and the ledger never exceeds its allocation.
func (p *Plan) Spend(amount float64) error {
	if p.Status != StatusActive {
		return shared.NewRulef(CodeNotActive, "budget plan in status %s does not accept spending", p.Status)
	}
	if amount <= 0 {
		return shared.NewRule(CodeInvalidAmount, "spend amount must be positive")
	}
	if p.SpentAmount+amount > p.AllocatedAmount {
		return shared.NewRulef(CodeBudgetExceeded, "spend of %.2f exceeds remaining budget %.2f", amount, p.RemainingBudget())
	}
	p.SpentAmount += amount
	return nil
}

// Refund returns previously spent amount to the ledger.
func (p *Plan) Refund(amount float64) error {
	if amount <= 0 {
		return shared.NewRule(CodeInvalidAmount, "refund amount must be positive")
	}
	if amount > p.SpentAmount {
		return shared.NewRulef(CodeRefundExceedsSpent, "refund of %.2f exceeds spent amount %.2f", amount, p.SpentAmount)
	}
	p.SpentAmount -= amount
	return nil
}

// AllocateAdditional raises the allocation. Spent is never touched.
func (p *Plan) AllocateAdditional(amount float64) error {
	if amount <= 0 {
		return shared.NewRule(CodeInvalidAmount, "additional allocation must be positive")
	}
	p.AllocatedAmount += amount
	return nil
}

// RemainingBudget is allocated minus spent.
func (p *Plan) RemainingBudget() float64 {
	return p.AllocatedAmount - p.SpentAmount
}

// UtilizationRate is spent over allocated in percent, zero for an
// empty allocation.
func (p *Plan) UtilizationRate() float64 {
	if p.AllocatedAmount == 0 {
		return 0
	}
	return p.SpentAmount / p.AllocatedAmount * 100
}
