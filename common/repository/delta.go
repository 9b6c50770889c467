package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nfvmesh/sfcd/common/db"
	"github.com/nfvmesh/sfcd/common/models"
)

// DeltaRepository is the append-only change log plus the per-tenant version
// allocator. Both run on the caller's transaction: a version is only ever
// observed together with the mutation it orders, so readers of the committed
// log see no gaps.
type DeltaRepository struct {
	db *db.DB
}

// NewDeltaRepository creates a new delta log repository
func NewDeltaRepository(db *db.DB) *DeltaRepository {
	return &DeltaRepository{db: db}
}

// NextVersion issues the next version for a tenant on the caller's
// transaction. The row lock taken by the upsert serializes concurrent
// transactions for the same tenant.
func (r *DeltaRepository) NextVersion(ctx context.Context, tx pgx.Tx, tenantID string) (uint64, error) {
	query := `
		INSERT INTO tenant_version (tenant_id, current)
		VALUES ($1, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET current = tenant_version.current + 1
		RETURNING current
	`

	var version uint64
	if err := tx.QueryRow(ctx, query, tenantID).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to allocate version for tenant %s: %w", tenantID, err)
	}

	return version, nil
}

// AppendTx appends a delta record on the caller's transaction, drawing its
// version from the tenant's allocator. It never publishes.
func (r *DeltaRepository) AppendTx(ctx context.Context, tx pgx.Tx, tenantID string, kind models.EntityKind, op models.Operation, snapshot any, actor string) (*models.DeltaRecord, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	version, err := r.NextVersion(ctx, tx, tenantID)
	if err != nil {
		return nil, err
	}

	record := &models.DeltaRecord{
		EntityKind: kind,
		Operation:  op,
		TenantID:   tenantID,
		Version:    version,
		Snapshot:   raw,
		Actor:      actor,
		CreatedAt:  time.Now().UTC(),
	}

	query := `
		INSERT INTO delta_record (entity_kind, operation, tenant_id, version, snapshot, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err = tx.QueryRow(ctx, query,
		record.EntityKind,
		record.Operation,
		record.TenantID,
		record.Version,
		record.Snapshot,
		record.Actor,
		record.CreatedAt,
	).Scan(&record.ID)

	if err != nil {
		return nil, fmt.Errorf("failed to append delta record: %w", err)
	}

	return record, nil
}

// History returns the committed delta records for an entity kind in version
// order. sinceVersion=0 returns the full history; a tenant filter is
// optional for operator tooling but catch-up always passes one.
func (r *DeltaRepository) History(ctx context.Context, kind models.EntityKind, tenantID string, sinceVersion uint64) ([]*models.DeltaRecord, error) {
	query := `
		SELECT id, entity_kind, operation, tenant_id, version, snapshot, actor, created_at
		FROM delta_record
		WHERE entity_kind = $1
		  AND ($2 = '' OR tenant_id = $2)
		  AND version > $3
		ORDER BY tenant_id ASC, version ASC
	`

	rows, err := r.db.Query(ctx, query, kind, tenantID, sinceVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to read delta history: %w", err)
	}
	defer rows.Close()

	var records []*models.DeltaRecord
	for rows.Next() {
		rec := &models.DeltaRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.EntityKind,
			&rec.Operation,
			&rec.TenantID,
			&rec.Version,
			&rec.Snapshot,
			&rec.Actor,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delta record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delta records: %w", err)
	}

	return records, nil
}
