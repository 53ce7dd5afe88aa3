package budget

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/assetline/assetline/internal/shared"
)

const approvalModule = "BUDGET_PLAN"

// Service orchestrates the budget ledger.
type Service struct {
	repo      Repository
	audit     shared.AuditRecorder
	approvals *shared.ApprovalRecorder
	cache     *Cache
	idem      *shared.IdempotencyStore
	clock     shared.Clock
}

// NewService constructs the budget service.
func NewService(repo Repository, audit shared.AuditRecorder, approvals *shared.ApprovalRecorder, cache *Cache, idem *shared.IdempotencyStore, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Service{repo: repo, audit: audit, approvals: approvals, cache: cache, idem: idem, clock: clock}
}

// CreateInput carries the request payload.
type CreateInput struct {
	OrgID           int64
	DepartmentID    int64
	FiscalYear      int
	BudgetType      string
	AllocatedAmount float64
	Description     string
	CreatedBy       int64
}

// Create validates and persists a DRAFT plan.
func (s *Service) Create(ctx context.Context, input CreateInput) (Plan, error) {
	p, err := New(NewPlanInput{
		OrgID:           input.OrgID,
		DepartmentID:    input.DepartmentID,
		FiscalYear:      input.FiscalYear,
		BudgetType:      input.BudgetType,
		AllocatedAmount: input.AllocatedAmount,
		Description:     input.Description,
		CreatedBy:       input.CreatedBy,
	}, s.clock.Today())
	if err != nil {
		return Plan{}, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Plan{}, err
	}
	_ = s.cache.Bump(ctx)
	s.recordAudit(ctx, "BUDGET_CREATE", created.ID, map[string]any{
		"department_id": created.DepartmentID,
		"fiscal_year":   created.FiscalYear,
		"allocated":     created.AllocatedAmount,
	})
	return created, nil
}

// Get loads one plan.
func (s *Service) Get(ctx context.Context, id int64) (Plan, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of plans and the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Plan, int, error) {
	return s.repo.List(ctx, filter)
}

// Transition moves the plan to the requested status via the lifecycle
// table. Approval decisions are recorded against the approval log.
func (s *Service) Transition(ctx context.Context, id int64, next Status) (Plan, error) {
	updated, err := s.mutate(ctx, id, "BUDGET_TRANSITION", func(p *Plan) error {
		return p.Transition(next)
	})
	if err != nil {
		return Plan{}, err
	}
	_ = s.cache.Bump(ctx)
	if s.approvals != nil {
		actor := shared.ActorFromContext(ctx)
		ref := shared.ApprovalRef(approvalModule, updated.ID)
		switch next {
		case StatusSubmitted:
			_ = s.approvals.EnsureSubmit(ctx, approvalModule, ref, actor, fmt.Sprintf("budget plan %d submitted", updated.ID))
		case StatusApproved, StatusRejected:
			action := shared.ApprovalApprove
			if next == StatusRejected {
				action = shared.ApprovalReject
			}
			_ = s.approvals.Record(ctx, shared.ApprovalLog{
				Module: approvalModule, RefID: ref, ActorID: actor,
				Action: action, Note: fmt.Sprintf("budget plan %d %s", updated.ID, next),
			})
		}
	}
	return updated, nil
}

// Spend records spending against the plan ledger. A non-empty
// requestID deduplicates retried submissions.
func (s *Service) Spend(ctx context.Context, id int64, amount float64, requestID string) (Plan, error) {
	return s.mutateLedger(ctx, id, "BUDGET_SPEND", amount, requestID, func(p *Plan) error {
		return p.Spend(amount)
	})
}

// Refund returns spent amount to the ledger.
func (s *Service) Refund(ctx context.Context, id int64, amount float64, requestID string) (Plan, error) {
	return s.mutateLedger(ctx, id, "BUDGET_REFUND", amount, requestID, func(p *Plan) error {
		return p.Refund(amount)
	})
}

// AllocateAdditional raises the plan's allocation.
func (s *Service) AllocateAdditional(ctx context.Context, id int64, amount float64, requestID string) (Plan, error) {
	return s.mutateLedger(ctx, id, "BUDGET_ALLOCATE", amount, requestID, func(p *Plan) error {
		return p.AllocateAdditional(amount)
	})
}

// Summary returns the cached department utilization rows for one org
// and fiscal year.
func (s *Service) Summary(ctx context.Context, orgID int64, fiscalYear int) ([]UtilizationRow, error) {
	key, err := s.cache.BuildKey(ctx, "budget:summary", strconv.FormatInt(orgID, 10), strconv.Itoa(fiscalYear))
	if err != nil {
		return nil, err
	}
	var rows []UtilizationRow
	err = s.cache.FetchJSON(ctx, key, &rows, func(ctx context.Context) (interface{}, error) {
		return s.repo.UtilizationSummary(ctx, orgID, fiscalYear)
	})
	return rows, err
}

// SummaryCSV renders the utilization summary as CSV with localized
// money formatting.
func (s *Service) SummaryCSV(ctx context.Context, orgID int64, fiscalYear int) ([]byte, error) {
	rows, err := s.Summary(ctx, orgID, fiscalYear)
	if err != nil {
		return nil, err
	}
	printer := message.NewPrinter(language.English)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"department_id", "fiscal_year", "plans", "allocated", "spent", "remaining", "utilization_pct"})
	for _, row := range rows {
		_ = w.Write([]string{
			strconv.FormatInt(row.DepartmentID, 10),
			strconv.Itoa(row.FiscalYear),
			strconv.Itoa(row.PlanCount),
			printer.Sprintf("%.2f", row.AllocatedAmount),
			printer.Sprintf("%.2f", row.SpentAmount),
			printer.Sprintf("%.2f", row.RemainingAmount),
			printer.Sprintf("%.1f", row.UtilizationRate),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Service) mutate(ctx context.Context, id int64, action string, fn func(*Plan) error) (Plan, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if err := fn(&p); err != nil {
		return Plan{}, err
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Plan{}, err
	}
	s.recordAudit(ctx, action, updated.ID, map[string]any{"status": string(updated.Status)})
	return updated, nil
}

func (s *Service) mutateLedger(ctx context.Context, id int64, action string, amount float64, requestID string, fn func(*Plan) error) (Plan, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if err := fn(&p); err != nil {
		return Plan{}, err
	}
	if s.idem != nil && requestID != "" {
		if err := s.idem.CheckAndInsert(ctx, requestID, "budget"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Plan{}, shared.NewRule(CodeDuplicateRequest, "ledger request already processed")
			}
			return Plan{}, err
		}
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		if s.idem != nil && requestID != "" {
			_ = s.idem.Delete(ctx, requestID)
		}
		return Plan{}, err
	}
	_ = s.cache.Bump(ctx)
	s.recordAudit(ctx, action, updated.ID, map[string]any{
		"amount":    amount,
		"spent":     updated.SpentAmount,
		"allocated": updated.AllocatedAmount,
	})
	return updated, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   shared.EntityBudgetPlan,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
