package disposal

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

// ListFilter narrows disposal listings.
type ListFilter struct {
	AssetID int64
	Status  Status
	Type    Type
	Limit   int
	Offset  int
}

// Repository defines disposal data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Create(ctx context.Context, d Disposal) (Disposal, error)
	Get(ctx context.Context, id int64) (Disposal, error)
	List(ctx context.Context, filter ListFilter) ([]Disposal, int, error)
	Update(ctx context.Context, d Disposal) (Disposal, error)
	HasOpenRequest(ctx context.Context, assetID int64) (bool, error)
}

// TxRepository spans the disposal and the asset row: approval retires
// the asset in the same transaction.
type TxRepository interface {
	UpdateDisposal(ctx context.Context, d Disposal) (Disposal, error)
	PersistAsset(ctx context.Context, a asset.Asset) (asset.Asset, error)
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

// NewRepository builds the postgres-backed disposal repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

const disposalColumns = `id, asset_id, disposal_type, disposal_value, disposal_date, reason, status,
approver_id, accounting_entry_id, created_by, version, created_at, updated_at`

func scanDisposal(row pgx.Row) (Disposal, error) {
	var d Disposal
	err := row.Scan(
		&d.ID, &d.AssetID, &d.Type, &d.Value, &d.DisposalDate, &d.Reason, &d.Status,
		&d.ApproverID, &d.AccountingEntryID, &d.CreatedBy, &d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Disposal{}, shared.ErrNotFound
		}
		return Disposal{}, err
	}
	return d, nil
}

func (r *pgRepository) Create(ctx context.Context, d Disposal) (Disposal, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO asset_disposals (asset_id, disposal_type, disposal_value,
disposal_date, reason, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING `+disposalColumns,
		d.AssetID, d.Type, d.Value, d.DisposalDate, d.Reason, d.Status, d.CreatedBy)
	return scanDisposal(row)
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Disposal, error) {
	return scanDisposal(r.pool.QueryRow(ctx, `SELECT `+disposalColumns+` FROM asset_disposals WHERE id=$1`, id))
}

func (r *pgRepository) HasOpenRequest(ctx context.Context, assetID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM asset_disposals WHERE asset_id=$1 AND status='PENDING')`, assetID).Scan(&exists)
	return exists, err
}

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]Disposal, int, error) {
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
	if filter.Type != "" {
		where = append(where, "disposal_type="+arg(filter.Type))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM asset_disposals WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+disposalColumns+` FROM asset_disposals WHERE `+cond+
		` ORDER BY id DESC LIMIT `+arg(limit)+` OFFSET `+arg(filter.Offset), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Disposal
	for rows.Next() {
		d, err := scanDisposal(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) Update(ctx context.Context, d Disposal) (Disposal, error) {
	return updateDisposal(ctx, r.pool, d)
}

func (r *pgTxRepository) UpdateDisposal(ctx context.Context, d Disposal) (Disposal, error) {
	return updateDisposal(ctx, r.tx, d)
}

func (r *pgTxRepository) PersistAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	return asset.PersistTx(ctx, r.tx, a)
}

func updateDisposal(ctx context.Context, q asset.DBTX, d Disposal) (Disposal, error) {
	row := q.QueryRow(ctx, `UPDATE asset_disposals SET
disposal_type=$1, disposal_value=$2, disposal_date=$3, reason=$4, status=$5,
approver_id=$6, accounting_entry_id=$7, version=version+1, updated_at=NOW()
WHERE id=$8 AND version=$9
RETURNING `+disposalColumns,
		d.Type, d.Value, d.DisposalDate, d.Reason, d.Status, d.ApproverID, d.AccountingEntryID, d.ID, d.Version)
	updated, err := scanDisposal(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			var exists bool
			if checkErr := q.QueryRow(ctx, `SELECT true FROM asset_disposals WHERE id=$1`, d.ID).Scan(&exists); checkErr == nil && exists {
				return Disposal{}, shared.ErrVersionConflict
			}
			return Disposal{}, shared.ErrNotFound
		}
		return Disposal{}, err
	}
	return updated, nil
}
