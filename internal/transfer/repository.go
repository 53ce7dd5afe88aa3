package transfer

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

// ListFilter narrows transfer listings.
type ListFilter struct {
	AssetID      int64
	Status       Status
	DepartmentID int64
	Limit        int
	Offset       int
}

// Repository defines transfer data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Create(ctx context.Context, t Transfer) (Transfer, error)
	Get(ctx context.Context, id int64) (Transfer, error)
	List(ctx context.Context, filter ListFilter) ([]Transfer, int, error)
	Update(ctx context.Context, t Transfer) (Transfer, error)
}

// TxRepository defines operations within one transaction. Completion
// writes both the transfer and the asset custody here so the two commit
// or roll back together.
type TxRepository interface {
	UpdateTransfer(ctx context.Context, t Transfer) (Transfer, error)
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

// NewRepository builds the postgres-backed transfer repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

const transferColumns = `id, asset_id, from_department_id, from_user_id, to_department_id, to_user_id,
transfer_date, reason, status, approver_id, created_by, version, created_at, updated_at`

func scanTransfer(row pgx.Row) (Transfer, error) {
	var t Transfer
	err := row.Scan(
		&t.ID, &t.AssetID, &t.FromDepartmentID, &t.FromUserID, &t.ToDepartmentID, &t.ToUserID,
		&t.TransferDate, &t.Reason, &t.Status, &t.ApproverID, &t.CreatedBy, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, shared.ErrNotFound
		}
		return Transfer{}, err
	}
	return t, nil
}

func (r *pgRepository) Create(ctx context.Context, t Transfer) (Transfer, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO asset_transfers (asset_id, from_department_id, from_user_id,
to_department_id, to_user_id, transfer_date, reason, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING `+transferColumns,
		t.AssetID, t.FromDepartmentID, t.FromUserID, t.ToDepartmentID, t.ToUserID,
		t.TransferDate, t.Reason, t.Status, t.CreatedBy)
	return scanTransfer(row)
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Transfer, error) {
	return scanTransfer(r.pool.QueryRow(ctx, `SELECT `+transferColumns+` FROM asset_transfers WHERE id=$1`, id))
}

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]Transfer, int, error) {
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
	if filter.DepartmentID != 0 {
		p := arg(filter.DepartmentID)
		where = append(where, "(from_department_id="+p+" OR to_department_id="+p+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM asset_transfers WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+transferColumns+` FROM asset_transfers WHERE `+cond+
		` ORDER BY id DESC LIMIT `+arg(limit)+` OFFSET `+arg(filter.Offset), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) Update(ctx context.Context, t Transfer) (Transfer, error) {
	return updateTransfer(ctx, r.pool, t)
}

func (r *pgTxRepository) UpdateTransfer(ctx context.Context, t Transfer) (Transfer, error) {
	return updateTransfer(ctx, r.tx, t)
}

func (r *pgTxRepository) PersistAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	return asset.PersistTx(ctx, r.tx, a)
}

func updateTransfer(ctx context.Context, q asset.DBTX, t Transfer) (Transfer, error) {
	row := q.QueryRow(ctx, `UPDATE asset_transfers SET
to_department_id=$1, to_user_id=$2, transfer_date=$3, reason=$4, status=$5, approver_id=$6,
version=version+1, updated_at=NOW()
WHERE id=$7 AND version=$8
RETURNING `+transferColumns,
		t.ToDepartmentID, t.ToUserID, t.TransferDate, t.Reason, t.Status, t.ApproverID, t.ID, t.Version)
	updated, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			var exists bool
			if checkErr := q.QueryRow(ctx, `SELECT true FROM asset_transfers WHERE id=$1`, t.ID).Scan(&exists); checkErr == nil && exists {
				return Transfer{}, shared.ErrVersionConflict
			}
			return Transfer{}, shared.ErrNotFound
		}
		return Transfer{}, err
	}
	return updated, nil
}
