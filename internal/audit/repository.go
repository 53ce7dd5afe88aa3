package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the append-only audit_logs table.
type Repository interface {
	Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error)
	All(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the postgres-backed audit repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func buildWhere(filters TimelineFilters) (string, []interface{}) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !filters.From.IsZero() {
		where = append(where, "occurred_at >= "+arg(filters.From))
	}
	if !filters.To.IsZero() {
		where = append(where, "occurred_at <= "+arg(filters.To))
	}
	if filters.ActorID != 0 {
		where = append(where, "actor_id = "+arg(filters.ActorID))
	}
	if filters.Entity != "" {
		where = append(where, "entity = "+arg(filters.Entity))
	}
	if filters.EntityID != "" {
		where = append(where, "entity_id = "+arg(filters.EntityID))
	}
	if filters.Action != "" {
		where = append(where, "action = "+arg(filters.Action))
	}
	return strings.Join(where, " AND "), args
}

const timelineSelect = `SELECT occurred_at, actor_id, action, entity, entity_id, meta FROM audit_logs WHERE `

func (r *pgRepository) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	cond, args := buildWhere(filters)
	query := fmt.Sprintf("%s%s ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d", timelineSelect, cond, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	return r.query(ctx, query, args)
}

func (r *pgRepository) All(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	cond, args := buildWhere(filters)
	return r.query(ctx, timelineSelect+cond+" ORDER BY occurred_at DESC, id DESC", args)
}

func (r *pgRepository) query(ctx context.Context, query string, args []interface{}) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.At, &row.ActorID, &row.Action, &row.Entity, &row.EntityID, &row.Meta); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
