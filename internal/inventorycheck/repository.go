package inventorycheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetline/assetline/internal/platform/db"
	"github.com/assetline/assetline/internal/shared"
)

// ListFilter narrows check listings.
type ListFilter struct {
	OrgID     int64
	CheckerID int64
	Status    Status
	Limit     int
	Offset    int
}

// Repository defines inventory check data access.
type Repository interface {
	CreateCheck(ctx context.Context, c Check, details []Detail) (Check, error)
	GetCheck(ctx context.Context, id int64) (Check, error)
	ListChecks(ctx context.Context, filter ListFilter) ([]Check, int, error)
	UpdateCheck(ctx context.Context, c Check) (Check, error)
	AddDetail(ctx context.Context, d Detail) (Detail, error)
	GetDetail(ctx context.Context, id int64) (Detail, error)
	ListDetails(ctx context.Context, checkID int64) ([]Detail, error)
	ListMismatches(ctx context.Context, checkID int64) ([]Detail, error)
	UpdateDetail(ctx context.Context, d Detail) (Detail, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the postgres-backed inventory repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const checkColumns = `id, org_id, name, checker_id, check_date, status, notes, version, created_at, updated_at`

const detailColumns = `id, check_id, asset_id, expected_location, expected_status,
actual_location, actual_status, is_match, notes, version, created_at, updated_at`

func scanCheck(row pgx.Row) (Check, error) {
	var c Check
	err := row.Scan(&c.ID, &c.OrgID, &c.Name, &c.CheckerID, &c.CheckDate, &c.Status, &c.Notes, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Check{}, shared.ErrNotFound
		}
		return Check{}, err
	}
	return c, nil
}

func scanDetail(row pgx.Row) (Detail, error) {
	var d Detail
	err := row.Scan(
		&d.ID, &d.CheckID, &d.AssetID, &d.ExpectedLocation, &d.ExpectedStatus,
		&d.ActualLocation, &d.ActualStatus, &d.IsMatch, &d.Notes, &d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, shared.ErrNotFound
		}
		return Detail{}, err
	}
	return d, nil
}

// CreateCheck inserts the check and its pre-seeded details in one
// transaction.
func (r *pgRepository) CreateCheck(ctx context.Context, c Check, details []Detail) (Check, error) {
	var created Check
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `INSERT INTO inventory_checks (org_id, name, checker_id, check_date, status, notes)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING `+checkColumns,
			c.OrgID, c.Name, c.CheckerID, c.CheckDate, c.Status, c.Notes)
		var err error
		created, err = scanCheck(row)
		if err != nil {
			return err
		}
		for _, d := range details {
			if _, err := insertDetail(ctx, tx, created.ID, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Check{}, err
	}
	return created, nil
}

func insertDetail(ctx context.Context, q pgx.Tx, checkID int64, d Detail) (Detail, error) {
	row := q.QueryRow(ctx, `INSERT INTO inventory_check_details (check_id, asset_id, expected_location, expected_status, notes)
VALUES ($1,$2,$3,$4,$5)
RETURNING `+detailColumns,
		checkID, d.AssetID, d.ExpectedLocation, d.ExpectedStatus, d.Notes)
	inserted, err := scanDetail(row)
	if err != nil {
		if db.IsUniqueViolation(err, "inventory_check_details_check_asset_key") {
			return Detail{}, shared.ErrDuplicate
		}
		return Detail{}, err
	}
	return inserted, nil
}

func (r *pgRepository) GetCheck(ctx context.Context, id int64) (Check, error) {
	return scanCheck(r.pool.QueryRow(ctx, `SELECT `+checkColumns+` FROM inventory_checks WHERE id=$1`, id))
}

func (r *pgRepository) ListChecks(ctx context.Context, filter ListFilter) ([]Check, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.OrgID != 0 {
		where = append(where, "org_id="+arg(filter.OrgID))
	}
	if filter.CheckerID != 0 {
		where = append(where, "checker_id="+arg(filter.CheckerID))
	}
	if filter.Status != "" {
		where = append(where, "status="+arg(filter.Status))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_checks WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+checkColumns+` FROM inventory_checks WHERE `+cond+
		` ORDER BY id DESC LIMIT `+arg(limit)+` OFFSET `+arg(filter.Offset), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Check
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) UpdateCheck(ctx context.Context, c Check) (Check, error) {
	row := r.pool.QueryRow(ctx, `UPDATE inventory_checks SET
name=$1, status=$2, notes=$3, version=version+1, updated_at=NOW()
WHERE id=$4 AND version=$5
RETURNING `+checkColumns,
		c.Name, c.Status, c.Notes, c.ID, c.Version)
	updated, err := scanCheck(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			var exists bool
			if checkErr := r.pool.QueryRow(ctx, `SELECT true FROM inventory_checks WHERE id=$1`, c.ID).Scan(&exists); checkErr == nil && exists {
				return Check{}, shared.ErrVersionConflict
			}
			return Check{}, shared.ErrNotFound
		}
		return Check{}, err
	}
	return updated, nil
}

func (r *pgRepository) AddDetail(ctx context.Context, d Detail) (Detail, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO inventory_check_details (check_id, asset_id, expected_location, expected_status, notes)
VALUES ($1,$2,$3,$4,$5)
RETURNING `+detailColumns,
		d.CheckID, d.AssetID, d.ExpectedLocation, d.ExpectedStatus, d.Notes)
	inserted, err := scanDetail(row)
	if err != nil {
		if db.IsUniqueViolation(err, "inventory_check_details_check_asset_key") {
			return Detail{}, shared.ErrDuplicate
		}
		return Detail{}, err
	}
	return inserted, nil
}

func (r *pgRepository) GetDetail(ctx context.Context, id int64) (Detail, error) {
	return scanDetail(r.pool.QueryRow(ctx, `SELECT `+detailColumns+` FROM inventory_check_details WHERE id=$1`, id))
}

func (r *pgRepository) ListDetails(ctx context.Context, checkID int64) ([]Detail, error) {
	return r.queryDetails(ctx, `SELECT `+detailColumns+` FROM inventory_check_details WHERE check_id=$1 ORDER BY id`, checkID)
}

// ListMismatches returns recorded details whose observed state differs
// from the expectation.
func (r *pgRepository) ListMismatches(ctx context.Context, checkID int64) ([]Detail, error) {
	return r.queryDetails(ctx, `SELECT `+detailColumns+` FROM inventory_check_details WHERE check_id=$1 AND is_match=false ORDER BY id`, checkID)
}

func (r *pgRepository) queryDetails(ctx context.Context, query string, args ...interface{}) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *pgRepository) UpdateDetail(ctx context.Context, d Detail) (Detail, error) {
	row := r.pool.QueryRow(ctx, `UPDATE inventory_check_details SET
actual_location=$1, actual_status=$2, is_match=$3, notes=$4, version=version+1, updated_at=NOW()
WHERE id=$5 AND version=$6
RETURNING `+detailColumns,
		d.ActualLocation, d.ActualStatus, d.IsMatch, d.Notes, d.ID, d.Version)
	updated, err := scanDetail(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			var exists bool
			if checkErr := r.pool.QueryRow(ctx, `SELECT true FROM inventory_check_details WHERE id=$1`, d.ID).Scan(&exists); checkErr == nil && exists {
				return Detail{}, shared.ErrVersionConflict
			}
			return Detail{}, shared.ErrNotFound
		}
		return Detail{}, err
	}
	return updated, nil
}
