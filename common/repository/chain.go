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

// ChainRepository handles database operations for chains
type ChainRepository struct {
	db *db.DB
}

// NewChainRepository creates a new chain repository
func NewChainRepository(db *db.DB) *ChainRepository {
	return &ChainRepository{db: db}
}

// CreateTx inserts a new chain on the caller's transaction
func (r *ChainRepository) CreateTx(ctx context.Context, tx pgx.Tx, chain *models.Chain) error {
	query := `
		INSERT INTO chain (id, tenant_id, name, auto_boot, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.Exec(ctx, query,
		chain.ID,
		chain.TenantID,
		chain.Name,
		chain.AutoBoot,
		chain.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create chain: %w", err)
	}

	return nil
}

// GetByID retrieves a chain by id
func (r *ChainRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Chain, error) {
	query := `
		SELECT id, tenant_id, name, auto_boot, created_at
		FROM chain
		WHERE id = $1
	`

	chain := &models.Chain{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&chain.ID,
		&chain.TenantID,
		&chain.Name,
		&chain.AutoBoot,
		&chain.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("chain not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chain: %w", err)
	}

	return chain, nil
}

// List retrieves all chains, optionally filtered by tenant
func (r *ChainRepository) List(ctx context.Context, tenantID string) ([]*models.Chain, error) {
	query := `
		SELECT id, tenant_id, name, auto_boot, created_at
		FROM chain
		WHERE ($1 = '' OR tenant_id = $1)
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}
	defer rows.Close()

	var chains []*models.Chain
	for rows.Next() {
		chain := &models.Chain{}
		err := rows.Scan(
			&chain.ID,
			&chain.TenantID,
			&chain.Name,
			&chain.AutoBoot,
			&chain.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chain: %w", err)
		}
		chains = append(chains, chain)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chains: %w", err)
	}

	return chains, nil
}

// ListAutoBoot retrieves all chains flagged for boot at startup
func (r *ChainRepository) ListAutoBoot(ctx context.Context) ([]*models.Chain, error) {
	query := `
		SELECT id, tenant_id, name, auto_boot, created_at
		FROM chain
		WHERE auto_boot = TRUE
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-boot chains: %w", err)
	}
	defer rows.Close()

	var chains []*models.Chain
	for rows.Next() {
		chain := &models.Chain{}
		if err := rows.Scan(&chain.ID, &chain.TenantID, &chain.Name, &chain.AutoBoot, &chain.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chain: %w", err)
		}
		chains = append(chains, chain)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chains: %w", err)
	}

	return chains, nil
}

// CountSteps returns the number of chain steps referencing a chain
func (r *ChainRepository) CountSteps(ctx context.Context, chainID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM chain_step WHERE chain_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, chainID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chain steps: %w", err)
	}

	return count, nil
}

// DeleteTx removes a chain on the caller's transaction. A step created
// between the service's emptiness check and this delete trips the foreign
// key, which is reported as Conflict rather than a bare database error.
func (r *ChainRepository) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `DELETE FROM chain WHERE id = $1`

	result, err := tx.Exec(ctx, query, id)
	if isPgError(err, pgForeignKeyViolation) {
		return fault.Conflict("chain %s still has steps", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete chain: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fault.NotFound("chain not found: %s", id)
	}

	return nil
}
