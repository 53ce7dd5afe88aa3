package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetline/assetline/internal/asset"
	"github.com/assetline/assetline/internal/budget"
	"github.com/assetline/assetline/internal/platform/db"
	"github.com/assetline/assetline/internal/shared"
)

// ListFilter narrows order listings.
type ListFilter struct {
	AssetID int64
	Status  Status
	Limit   int
	Offset  int
}

// Repository defines maintenance order data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	HasOpenOrder(ctx context.Context, assetID int64) (bool, error)
}

// TxRepository spans the order, the asset, and the budget plan row:
// opening flips the asset to MAINTENANCE, completion spends the cost
// and restores the asset in the same transaction.
type TxRepository interface {
	CreateOrder(ctx context.Context, o Order) (Order, error)
	UpdateOrder(ctx context.Context, o Order) (Order, error)
	PersistAsset(ctx context.Context, a asset.Asset) (asset.Asset, error)
	PersistPlan(ctx context.Context, p budget.Plan) (budget.Plan, error)
}

var (
	_ Repository   = (*pgRepository)(nil)
	_ TxRepository = (*pgTxRepository)(nil)
)

type pgRepository struct {
	pool *pgxpool.Pool
}

type pgTxRepository struct {
	tx pgx.Tx
}

// NewRepository builds the postgres-backed maintenance repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

const orderColumns = `id, asset_id, description, scheduled_date, estimated_cost, cost, status,
created_by, completed_at, version, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.AssetID, &o.Description, &o.ScheduledDate, &o.EstimatedCost, &o.Cost, &o.Status,
		&o.CreatedBy, &o.CompletedAt, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM maintenance_orders WHERE id=$1`, id))
}

func (r *pgRepository) HasOpenOrder(ctx context.Context, assetID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM maintenance_orders WHERE asset_id=$1 AND status='OPEN')`, assetID).Scan(&exists)
	return exists, err
}

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.AssetID != 0 {
		where = append(where, "asset_id="+arg(filter.AssetID))
	}
	if filter.Status != "" {
		where = append(where, "status="+arg(filter.Status))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM maintenance_orders WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM maintenance_orders WHERE `+cond+
		` ORDER BY id DESC LIMIT `+arg(limit)+` OFFSET `+arg(filter.Offset), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *pgTxRepository) CreateOrder(ctx context.Context, o Order) (Order, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO maintenance_orders (asset_id, description, scheduled_date, estimated_cost, cost, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING `+orderColumns,
		o.AssetID, o.Description, o.ScheduledDate, o.EstimatedCost, o.Cost, o.Status, o.CreatedBy)
	return scanOrder(row)
}

func (r *pgTxRepository) UpdateOrder(ctx context.Context, o Order) (Order, error) {
	row := r.tx.QueryRow(ctx, `UPDATE maintenance_orders SET
description=$1, scheduled_date=$2, estimated_cost=$3, cost=$4, status=$5, completed_at=$6,
version=version+1, updated_at=NOW()
WHERE id=$7 AND version=$8
RETURNING `+orderColumns,
		o.Description, o.ScheduledDate, o.EstimatedCost, o.Cost, o.Status, o.CompletedAt, o.ID, o.Version)
	updated, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			var exists bool
			if checkErr := r.tx.QueryRow(ctx, `SELECT true FROM maintenance_orders WHERE id=$1`, o.ID).Scan(&exists); checkErr == nil && exists {
				return Order{}, shared.ErrVersionConflict
			}
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	return updated, nil
}

func (r *pgTxRepository) PersistAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	return asset.PersistTx(ctx, r.tx, a)
}

func (r *pgTxRepository) PersistPlan(ctx context.Context, p budget.Plan) (budget.Plan, error) {
	return budget.PersistTx(ctx, r.tx, p)
}
