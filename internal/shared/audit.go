package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audited entity names shared by workflows and the timeline query.
const (
	EntityAsset          = "ASSET"
	EntityTransfer       = "ASSET_TRANSFER"
	EntityDisposal       = "ASSET_DISPOSAL"
	EntityBudgetPlan     = "BUDGET_PLAN"
	EntityInventoryCheck = "INVENTORY_CHECK"
	EntityMaintenance    = "MAINTENANCE_ORDER"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends records into audit_logs. The table is append-only;
// nothing in the system updates or deletes rows from it.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, log.At)
	return err
}

// AuditRecorder is the port workflows depend on; satisfied by AuditLogger.
type AuditRecorder interface {
	Record(ctx context.Context, log AuditLog) error
}
