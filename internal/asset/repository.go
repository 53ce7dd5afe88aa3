package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetline/assetline/internal/platform/db"
	"github.com/assetline/assetline/internal/shared"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so asset rows can be
// written from another workflow's transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// ListFilter narrows asset listings.
type ListFilter struct {
	OrgID        int64
	Status       Status
	CategoryID   int64
	DepartmentID int64
	Search       string
	Limit        int
	Offset       int
}

// Repository defines asset data access.
type Repository interface {
	Create(ctx context.Context, a Asset) (Asset, error)
	Get(ctx context.Context, id int64) (Asset, error)
	GetByCode(ctx context.Context, orgID int64, code string) (Asset, error)
	List(ctx context.Context, filter ListFilter) ([]Asset, int, error)
	Update(ctx context.Context, a Asset) (Asset, error)
	ListExpiringWarranties(ctx context.Context, before time.Time) ([]Asset, error)
	ListDepreciable(ctx context.Context) ([]Asset, error)
	SetCurrentValue(ctx context.Context, id int64, value float64) error
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the postgres-backed asset repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const assetColumns = `id, org_id, category_id, created_by, name, code, status,
department_id, user_id, purchase_price, original_cost, current_value,
purchase_date, warranty_expiry, model, serial_number, manufacturer,
condition, location, specs, version, created_at, updated_at, deleted_at`

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	err := row.Scan(
		&a.ID, &a.OrgID, &a.CategoryID, &a.CreatedBy, &a.Name, &a.Code, &a.Status,
		&a.Custody.DepartmentID, &a.Custody.UserID, &a.PurchasePrice, &a.OriginalCost, &a.CurrentValue,
		&a.PurchaseDate, &a.WarrantyExpiry, &a.Model, &a.SerialNumber, &a.Manufacturer,
		&a.Condition, &a.Location, &a.Specs, &a.Version, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, shared.ErrNotFound
		}
		return Asset{}, err
	}
	return a, nil
}

func (r *pgRepository) Create(ctx context.Context, a Asset) (Asset, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO assets (org_id, category_id, created_by, name, code, status,
department_id, user_id, purchase_price, original_cost, current_value,
purchase_date, warranty_expiry, model, serial_number, manufacturer, condition, location, specs)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
RETURNING `+assetColumns,
		a.OrgID, a.CategoryID, a.CreatedBy, a.Name, a.Code, a.Status,
		a.Custody.DepartmentID, a.Custody.UserID, a.PurchasePrice, a.OriginalCost, a.CurrentValue,
		a.PurchaseDate, a.WarrantyExpiry, a.Model, a.SerialNumber, a.Manufacturer, a.Condition, a.Location, a.Specs)
	created, err := scanAsset(row)
	if err != nil {
		if db.IsUniqueViolation(err, "assets_org_code_key") {
			return Asset{}, shared.ErrDuplicate
		}
		return Asset{}, err
	}
	return created, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Asset, error) {
	return scanAsset(r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id=$1`, id))
}

func (r *pgRepository) GetByCode(ctx context.Context, orgID int64, code string) (Asset, error) {
	return scanAsset(r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE org_id=$1 AND code=$2`, orgID, code))
}

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]Asset, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.OrgID != 0 {
		where = append(where, "org_id="+arg(filter.OrgID))
	}
	if filter.Status != "" {
		where = append(where, "status="+arg(filter.Status))
	}
	if filter.CategoryID != 0 {
		where = append(where, "category_id="+arg(filter.CategoryID))
	}
	if filter.DepartmentID != 0 {
		where = append(where, "department_id="+arg(filter.DepartmentID))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, "(name ILIKE "+p+" OR code ILIKE "+p+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assets WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + assetColumns + ` FROM assets WHERE ` + cond +
		` ORDER BY id DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(filter.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) Update(ctx context.Context, a Asset) (Asset, error) {
	return PersistTx(ctx, r.pool, a)
}

// PersistTx writes an asset row with an optimistic version check. It is
// exported so transfer completion, disposal approval and maintenance can
// update the asset inside their own transaction.
func PersistTx(ctx context.Context, q DBTX, a Asset) (Asset, error) {
	row := q.QueryRow(ctx, `UPDATE assets SET
category_id=$1, name=$2, status=$3, department_id=$4, user_id=$5,
purchase_price=$6, original_cost=$7, current_value=$8, purchase_date=$9, warranty_expiry=$10,
model=$11, serial_number=$12, manufacturer=$13, condition=$14, location=$15, specs=$16,
deleted_at=$17, version=version+1, updated_at=NOW()
WHERE id=$18 AND version=$19
RETURNING `+assetColumns,
		a.CategoryID, a.Name, a.Status, a.Custody.DepartmentID, a.Custody.UserID,
		a.PurchasePrice, a.OriginalCost, a.CurrentValue, a.PurchaseDate, a.WarrantyExpiry,
		a.Model, a.SerialNumber, a.Manufacturer, a.Condition, a.Location, a.Specs,
		a.DeletedAt, a.ID, a.Version)
	updated, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Row exists but the version moved, or the id is gone; both
			// surface as a concurrency conflict to the caller.
			var exists bool
			if checkErr := q.QueryRow(ctx, `SELECT true FROM assets WHERE id=$1`, a.ID).Scan(&exists); checkErr == nil && exists {
				return Asset{}, shared.ErrVersionConflict
			}
			return Asset{}, shared.ErrNotFound
		}
		return Asset{}, err
	}
	return updated, nil
}

// GetTx loads an asset through an open transaction.
func GetTx(ctx context.Context, q DBTX, id int64) (Asset, error) {
	return scanAsset(q.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id=$1`, id))
}

func (r *pgRepository) ListExpiringWarranties(ctx context.Context, before time.Time) ([]Asset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets
WHERE warranty_expiry IS NOT NULL AND warranty_expiry <= $1 AND status NOT IN ('DISPOSED','RETIRED')
ORDER BY warranty_expiry ASC`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *pgRepository) ListDepreciable(ctx context.Context) ([]Asset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets
WHERE current_value > 0 AND status NOT IN ('DISPOSED','RETIRED') ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *pgRepository) SetCurrentValue(ctx context.Context, id int64, value float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE assets SET current_value=$1, version=version+1, updated_at=NOW() WHERE id=$2`, value, id)
	return err
}
