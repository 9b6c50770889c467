package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nfvmesh/sfcd/common/db"
	"github.com/nfvmesh/sfcd/common/fault"
	"github.com/nfvmesh/sfcd/common/models"
)

// StepInstanceRepository handles database operations for step instances
type StepInstanceRepository struct {
	db *db.DB
}

// NewStepInstanceRepository creates a new step instance repository
func NewStepInstanceRepository(db *db.DB) *StepInstanceRepository {
	return &StepInstanceRepository{db: db}
}

// CreateTx inserts a new step instance on the caller's transaction
func (r *StepInstanceRepository) CreateTx(ctx context.Context, tx pgx.Tx, inst *models.StepInstance) error {
	query := `
		INSERT INTO step_instance
			(id, chain_step_id, external_instance_id, network_id, vlan_in, vlan_out, status, tenant_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		inst.ID,
		inst.ChainStepID,
		inst.ExternalInstanceID,
		inst.NetworkID,
		inst.VlanIn,
		inst.VlanOut,
		inst.Status,
		inst.TenantID,
		inst.CreatedAt,
		inst.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create step instance: %w", err)
	}

	return nil
}

// GetByID retrieves a step instance by id
func (r *StepInstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StepInstance, error) {
	query := `
		SELECT id, chain_step_id, external_instance_id, network_id, vlan_in, vlan_out, status, tenant_id, created_at, updated_at
		FROM step_instance
		WHERE id = $1
	`

	inst := &models.StepInstance{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&inst.ID,
		&inst.ChainStepID,
		&inst.ExternalInstanceID,
		&inst.NetworkID,
		&inst.VlanIn,
		&inst.VlanOut,
		&inst.Status,
		&inst.TenantID,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("step instance not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step instance: %w", err)
	}

	return inst, nil
}

// ListByExternalID retrieves all step instances referencing one compute
// instance id. Multiple rows are possible when scale-out shares a VM.
func (r *StepInstanceRepository) ListByExternalID(ctx context.Context, externalID string) ([]*models.StepInstance, error) {
	query := `
		SELECT id, chain_step_id, external_instance_id, network_id, vlan_in, vlan_out, status, tenant_id, created_at, updated_at
		FROM step_instance
		WHERE external_instance_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step instances: %w", err)
	}
	defer rows.Close()

	return scanInstances(rows)
}

// List retrieves step instances, optionally filtered by tenant
func (r *StepInstanceRepository) List(ctx context.Context, tenantID string) ([]*models.StepInstance, error) {
	query := `
		SELECT id, chain_step_id, external_instance_id, network_id, vlan_in, vlan_out, status, tenant_id, created_at, updated_at
		FROM step_instance
		WHERE ($1 = '' OR tenant_id = $1)
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step instances: %w", err)
	}
	defer rows.Close()

	return scanInstances(rows)
}

// HeldVlans returns every VLAN tag currently assigned on a network. This is
// the ground-truth reservation scan the allocator subtracts from the pool.
func (r *StepInstanceRepository) HeldVlans(ctx context.Context, networkID string) ([]int, error) {
	query := `
		SELECT vlan_in, vlan_out
		FROM step_instance
		WHERE network_id = $1 AND status IN ('active', 'tagged') AND vlan_in IS NOT NULL
	`

	rows, err := r.db.Query(ctx, query, networkID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan held vlans: %w", err)
	}
	defer rows.Close()

	var held []int
	for rows.Next() {
		var in, out *int
		if err := rows.Scan(&in, &out); err != nil {
			return nil, fmt.Errorf("failed to scan vlan pair: %w", err)
		}
		if in != nil {
			held = append(held, *in)
		}
		if out != nil {
			held = append(held, *out)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vlan pairs: %w", err)
	}

	return held, nil
}

// UpdateVlansTx assigns the VLAN pair and moves the instance to tagged on the
// caller's transaction.
func (r *StepInstanceRepository) UpdateVlansTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, vlanIn, vlanOut int) error {
	query := `
		UPDATE step_instance
		SET vlan_in = $2, vlan_out = $3, status = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id, vlanIn, vlanOut, models.StatusTagged)
	if err != nil {
		return fmt.Errorf("failed to update step instance vlans: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fault.NotFound("step instance not found: %s", id)
	}

	return nil
}

// DeleteTx removes a step instance on the caller's transaction
func (r *StepInstanceRepository) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `DELETE FROM step_instance WHERE id = $1`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete step instance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fault.NotFound("step instance not found: %s", id)
	}

	return nil
}

func scanInstances(rows pgx.Rows) ([]*models.StepInstance, error) {
	var instances []*models.StepInstance
	for rows.Next() {
		inst := &models.StepInstance{}
		err := rows.Scan(
			&inst.ID,
			&inst.ChainStepID,
			&inst.ExternalInstanceID,
			&inst.NetworkID,
			&inst.VlanIn,
			&inst.VlanOut,
			&inst.Status,
			&inst.TenantID,
			&inst.CreatedAt,
			&inst.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step instance: %w", err)
		}
		instances = append(instances, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step instances: %w", err)
	}

	return instances, nil
}
