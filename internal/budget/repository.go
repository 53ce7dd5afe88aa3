package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/platform/db"
	"github.com/assetline/assetline/internal/shared"
)

// ListFilter narrows plan listings.
type ListFilter struct {
	OrgID        int64
	DepartmentID int64
	FiscalYear   int
	BudgetType   string
	Status       Status
	Limit        int
	Offset       int
}

// UtilizationRow is one line of the department/fiscal-year summary.
type UtilizationRow struct {
	DepartmentID    int64   `json:"department_id"`
	FiscalYear      int     `json:"fiscal_year"`
	PlanCount       int     `json:"plan_count"`
	AllocatedAmount float64 `json:"allocated_amount"`
	SpentAmount     float64 `json:"spent_amount"`
	RemainingAmount float64 `json:"remaining_amount"`
	UtilizationRate float64 `json:"utilization_rate"`
}

// Repository defines budget plan data access.
type Repository interface {
	Create(ctx context.Context, p Plan) (Plan, error)
	Get(ctx context.Context, id int64) (Plan, error)
	List(ctx context.Context, filter ListFilter) ([]Plan, int, error)
	Update(ctx context.Context, p Plan) (Plan, error)
	FindActive(ctx context.Context, orgID, departmentID int64, fiscalYear int) (Plan, error)
	UtilizationSummary(ctx context.Context, orgID int64, fiscalYear int) ([]UtilizationRow, error)
	ListOverrunCandidates(ctx context.Context, threshold float64) ([]Plan, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the postgres-backed budget repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const planColumns = `id, org_id, department_id, fiscal_year, budget_type, allocated_amount, spent_amount,
status, description, created_by, version, created_at, updated_at`

func scanPlan(row pgx.Row) (Plan, error) {
	var p Plan
	err := row.Scan(
		&p.ID, &p.OrgID, &p.DepartmentID, &p.FiscalYear, &p.BudgetType, &p.AllocatedAmount, &p.SpentAmount,
		&p.Status, &p.Description, &p.CreatedBy, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, shared.ErrNotFound
		}
		return Plan{}, err
	}
	return p, nil
}

func (r *pgRepository) Create(ctx context.Context, p Plan) (Plan, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO budget_plans (org_id, department_id, fiscal_year, budget_type,
allocated_amount, spent_amount, status, description, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING `+planColumns,
		p.OrgID, p.DepartmentID, p.FiscalYear, p.BudgetType, p.AllocatedAmount, p.SpentAmount, p.Status, p.Description, p.CreatedBy)
	created, err := scanPlan(row)
	if err != nil {
		if db.IsUniqueViolation(err, "budget_plans_org_dept_year_type_key") {
			return Plan{}, shared.ErrDuplicate
		}
		return Plan{}, err
	}
	return created, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Plan, error) {
	return scanPlan(r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM budget_plans WHERE id=$1`, id))
}

// FindActive resolves the single ACTIVE plan a spend should land on.
func (r *pgRepository) FindActive(ctx context.Context, orgID, departmentID int64, fiscalYear int) (Plan, error) {
	return scanPlan(r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM budget_plans
WHERE org_id=$1 AND department_id=$2 AND fiscal_year=$3 AND status='ACTIVE'
ORDER BY id LIMIT 1`, orgID, departmentID, fiscalYear))
}

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]Plan, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.OrgID != 0 {
		where = append(where, "org_id="+arg(filter.OrgID))
	}
	if filter.DepartmentID != 0 {
		where = append(where, "department_id="+arg(filter.DepartmentID))
	}
	if filter.FiscalYear != 0 {
		where = append(where, "fiscal_year="+arg(filter.FiscalYear))
	}
	if filter.BudgetType != "" {
		where = append(where, "budget_type="+arg(filter.BudgetType))
	}
	if filter.Status != "" {
		where = append(where, "status="+arg(filter.Status))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM budget_plans WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+planColumns+` FROM budget_plans WHERE `+cond+
		` ORDER BY fiscal_year DESC, department_id, id LIMIT `+arg(limit)+` OFFSET `+arg(filter.Offset), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) Update(ctx context.Context, p Plan) (Plan, error) {
	return PersistTx(ctx, r.pool, p)
}

func (r *pgRepository) UtilizationSummary(ctx context.Context, orgID int64, fiscalYear int) ([]UtilizationRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT department_id, fiscal_year, COUNT(*),
COALESCE(SUM(allocated_amount),0), COALESCE(SUM(spent_amount),0)
FROM budget_plans
WHERE org_id=$1 AND fiscal_year=$2 AND status NOT IN ('CANCELLED','REJECTED')
GROUP BY department_id, fiscal_year
ORDER BY department_id`, orgID, fiscalYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UtilizationRow
	for rows.Next() {
		var row UtilizationRow
		if err := rows.Scan(&row.DepartmentID, &row.FiscalYear, &row.PlanCount, &row.AllocatedAmount, &row.SpentAmount); err != nil {
			return nil, err
		}
		row.RemainingAmount = row.AllocatedAmount - row.SpentAmount
		if row.AllocatedAmount > 0 {
			row.UtilizationRate = row.SpentAmount / row.AllocatedAmount * 100
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListOverrunCandidates returns ACTIVE plans whose utilization meets or
// exceeds the threshold percentage. Used by the alert job.
func (r *pgRepository) ListOverrunCandidates(ctx context.Context, threshold float64) ([]Plan, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+planColumns+` FROM budget_plans
WHERE status='ACTIVE' AND allocated_amount > 0
AND spent_amount / allocated_amount * 100 >= $1
ORDER BY id`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PersistTx writes the full mutable state of a plan with an optimistic
// version check. Exported so workflows spending in their own
// transaction (maintenance completion) reuse the same statement.
func PersistTx(ctx context.Context, q asset.DBTX, p Plan) (Plan, error) {
	row := q.QueryRow(ctx, `UPDATE budget_plans SET
budget_type=$1, allocated_amount=$2, spent_amount=$3, status=$4, description=$5,
version=version+1, updated_at=NOW()
WHERE id=$6 AND version=$7
RETURNING `+planColumns,
		p.BudgetType, p.AllocatedAmount, p.SpentAmount, p.Status, p.Description, p.ID, p.Version)
	updated, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			var exists bool
			if checkErr := q.QueryRow(ctx, `SELECT true FROM budget_plans WHERE id=$1`, p.ID).Scan(&exists); checkErr == nil && exists {
				return Plan{}, shared.ErrVersionConflict
			}
			return Plan{}, shared.ErrNotFound
		}
		return Plan{}, err
	}
	return updated, nil
}
