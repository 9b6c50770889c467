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

// ApplianceRepository handles database operations for appliance templates
type ApplianceRepository struct {
	db *db.DB
}

// NewApplianceRepository creates a new appliance template repository
func NewApplianceRepository(db *db.DB) *ApplianceRepository {
	return &ApplianceRepository{db: db}
}

// CreateTx inserts a new appliance template on the caller's transaction
func (r *ApplianceRepository) CreateTx(ctx context.Context, tx pgx.Tx, tpl *models.ApplianceTemplate) error {
	query := `
		INSERT INTO appliance_template
			(id, tenant_id, category, vendor, image_ref, flavor, security_group_ref, load_share, config_handle, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		tpl.ID,
		tpl.TenantID,
		tpl.Category,
		tpl.Vendor,
		tpl.ImageRef,
		tpl.Flavor,
		tpl.SecurityGroupRef,
		tpl.LoadShare,
		tpl.ConfigHandle,
		tpl.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create appliance template: %w", err)
	}

	return nil
}

// GetByID retrieves an appliance template by id
func (r *ApplianceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ApplianceTemplate, error) {
	query := `
		SELECT id, tenant_id, category, vendor, image_ref, flavor, security_group_ref, load_share, config_handle, created_at
		FROM appliance_template
		WHERE id = $1
	`

	tpl := &models.ApplianceTemplate{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&tpl.ID,
		&tpl.TenantID,
		&tpl.Category,
		&tpl.Vendor,
		&tpl.ImageRef,
		&tpl.Flavor,
		&tpl.SecurityGroupRef,
		&tpl.LoadShare,
		&tpl.ConfigHandle,
		&tpl.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("appliance template not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appliance template: %w", err)
	}

	return tpl, nil
}

// ListByCategory retrieves templates in a category for one tenant, in stable
// catalog order (creation time, then id).
func (r *ApplianceRepository) ListByCategory(ctx context.Context, tenantID, category string) ([]*models.ApplianceTemplate, error) {
	query := `
		SELECT id, tenant_id, category, vendor, image_ref, flavor, security_group_ref, load_share, config_handle, created_at
		FROM appliance_template
		WHERE tenant_id = $1 AND category = $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, tenantID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list appliance templates: %w", err)
	}
	defer rows.Close()

	return scanTemplates(rows)
}

// List retrieves all appliance templates, optionally filtered by tenant
func (r *ApplianceRepository) List(ctx context.Context, tenantID string) ([]*models.ApplianceTemplate, error) {
	query := `
		SELECT id, tenant_id, category, vendor, image_ref, flavor, security_group_ref, load_share, config_handle, created_at
		FROM appliance_template
		WHERE ($1 = '' OR tenant_id = $1)
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appliance templates: %w", err)
	}
	defer rows.Close()

	return scanTemplates(rows)
}

// DeleteTx removes an appliance template on the caller's transaction
func (r *ApplianceRepository) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `DELETE FROM appliance_template WHERE id = $1`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete appliance template: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fault.NotFound("appliance template not found: %s", id)
	}

	return nil
}

func scanTemplates(rows pgx.Rows) ([]*models.ApplianceTemplate, error) {
	var templates []*models.ApplianceTemplate
	for rows.Next() {
		tpl := &models.ApplianceTemplate{}
		err := rows.Scan(
			&tpl.ID,
			&tpl.TenantID,
			&tpl.Category,
			&tpl.Vendor,
			&tpl.ImageRef,
			&tpl.Flavor,
			&tpl.SecurityGroupRef,
			&tpl.LoadShare,
			&tpl.ConfigHandle,
			&tpl.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appliance template: %w", err)
		}
		templates = append(templates, tpl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appliance templates: %w", err)
	}

	return templates, nil
}
