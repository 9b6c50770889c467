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

// ChainStepRepository handles database operations for chain steps
type ChainStepRepository struct {
	db *db.DB
}

// NewChainStepRepository creates a new chain step repository
func NewChainStepRepository(db *db.DB) *ChainStepRepository {
	return &ChainStepRepository{db: db}
}

// CreateTx inserts a new chain step on the caller's transaction. A duplicate
// sequence number within the chain is reported as Conflict.
func (r *ChainStepRepository) CreateTx(ctx context.Context, tx pgx.Tx, step *models.ChainStep) error {
	query := `
		INSERT INTO chain_step (id, chain_id, appliance_template_id, sequence_number, tenant_id)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.Exec(ctx, query,
		step.ID,
		step.ChainID,
		step.ApplianceTemplateID,
		step.SequenceNumber,
		step.TenantID,
	)

	if isPgError(err, pgUniqueViolation) {
		return fault.Conflict("sequence number %d already used in chain %s", step.SequenceNumber, step.ChainID)
	}
	if err != nil {
		return fmt.Errorf("failed to create chain step: %w", err)
	}

	return nil
}

// GetByID retrieves a chain step by id
func (r *ChainStepRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChainStep, error) {
	query := `
		SELECT id, chain_id, appliance_template_id, sequence_number, tenant_id
		FROM chain_step
		WHERE id = $1
	`

	step := &models.ChainStep{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&step.ID,
		&step.ChainID,
		&step.ApplianceTemplateID,
		&step.SequenceNumber,
		&step.TenantID,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("chain step not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chain step: %w", err)
	}

	return step, nil
}

// ListByChain retrieves a chain's steps in launch order: sequence_number
// ascending, id as a deterministic tie-break.
func (r *ChainStepRepository) ListByChain(ctx context.Context, chainID uuid.UUID) ([]*models.ChainStep, error) {
	query := `
		SELECT id, chain_id, appliance_template_id, sequence_number, tenant_id
		FROM chain_step
		WHERE chain_id = $1
		ORDER BY sequence_number ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chain steps: %w", err)
	}
	defer rows.Close()

	var steps []*models.ChainStep
	for rows.Next() {
		step := &models.ChainStep{}
		err := rows.Scan(
			&step.ID,
			&step.ChainID,
			&step.ApplianceTemplateID,
			&step.SequenceNumber,
			&step.TenantID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chain step: %w", err)
		}
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chain steps: %w", err)
	}

	return steps, nil
}

// DeleteTx removes a chain step on the caller's transaction
func (r *ChainStepRepository) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `DELETE FROM chain_step WHERE id = $1`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete chain step: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fault.NotFound("chain step not found: %s", id)
	}

	return nil
}
