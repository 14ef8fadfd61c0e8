package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"bioprintctl/internal/audit"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  actor TEXT NOT NULL,
  action TEXT NOT NULL,
  resource_type TEXT NOT NULL,
  resource_id TEXT NOT NULL,
  outcome TEXT NOT NULL,
  requirement_ids TEXT[] NOT NULL DEFAULT '{}',
  details JSONB NOT NULL DEFAULT '{}',
  created_at TIMESTAMPTZ NOT NULL,
  hash TEXT NOT NULL,
  prev_hash TEXT NOT NULL
)`

const auditColumns = "id, tenant_id, actor, action, resource_type, resource_id, outcome, requirement_ids, details, created_at, hash, prev_hash"

// PostgresAuditStore persists the audit chain in Postgres. Rows are only
// ever inserted; the chain commitment columns make any out-of-band edit
// detectable on replay.
type PostgresAuditStore struct {
	db *sql.DB
}

// NewPostgresAuditStore wraps an open connection and ensures the schema.
func NewPostgresAuditStore(ctx context.Context, db *sql.DB) (*PostgresAuditStore, error) {
	if _, err := db.ExecContext(ctx, auditSchema); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &PostgresAuditStore{db: db}, nil
}

// OpenPostgresAuditStore opens a lib/pq connection from a DSN.
func OpenPostgresAuditStore(ctx context.Context, dsn string) (*PostgresAuditStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresAuditStore(ctx, db)
}

func (p *PostgresAuditStore) Append(ctx context.Context, e audit.Event) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		"INSERT INTO audit_events ("+auditColumns+") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)",
		e.ID, e.TenantID, e.Actor, e.Action, e.ResourceType, e.ResourceID, e.Outcome,
		pq.Array(e.RequirementIDs), details, e.CreatedAt, e.Hash, e.PrevHash,
	)
	return err
}

func (p *PostgresAuditStore) Recent(ctx context.Context, tenantID string, limit int) ([]audit.Event, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT "+auditColumns+" FROM audit_events WHERE tenant_id = $1 ORDER BY seq DESC LIMIT $2",
		tenantID, effectiveLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEvents(rows)
}

func (p *PostgresAuditStore) Chain(ctx context.Context, tenantID string, limit int) ([]audit.Event, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT "+auditColumns+" FROM audit_events WHERE tenant_id = $1 ORDER BY seq ASC LIMIT $2",
		tenantID, effectiveLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEvents(rows)
}

// effectiveLimit maps "no limit" to a bound Postgres accepts.
func effectiveLimit(limit int) int {
	if limit <= 0 {
		return 1 << 30
	}
	return limit
}

func scanAuditEvents(rows *sql.Rows) ([]audit.Event, error) {
	var out []audit.Event
	for rows.Next() {
		var (
			e       audit.Event
			reqs    pq.StringArray
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Actor, &e.Action, &e.ResourceType, &e.ResourceID,
			&e.Outcome, &reqs, &details, &e.CreatedAt, &e.Hash, &e.PrevHash); err != nil {
			return nil, err
		}
		if len(reqs) > 0 {
			e.RequirementIDs = []string(reqs)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
