package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nfvmesh/sfcd/common/db"
	"github.com/nfvmesh/sfcd/common/logger"
	"github.com/nfvmesh/sfcd/common/models"
	"github.com/nfvmesh/sfcd/common/repository"
)

// ApplianceInput holds the writable fields of an appliance template
type ApplianceInput struct {
	TenantID         string `json:"tenant_id"`
	Category         string `json:"category"`
	Vendor           string `json:"vendor"`
	ImageRef         string `json:"image_ref"`
	Flavor           string `json:"flavor"`
	SecurityGroupRef string `json:"security_group_ref"`
	LoadShare        int    `json:"load_share"`
	ConfigHandle     string `json:"config_handle"`
}

// ApplianceService handles appliance template CRUD through the delta log
type ApplianceService struct {
	db     *db.DB
	repo   *repository.ApplianceRepository
	deltas *DeltaService
	log    *logger.Logger
}

// NewApplianceService creates a new appliance template service
func NewApplianceService(database *db.DB, repo *repository.ApplianceRepository, deltas *DeltaService, log *logger.Logger) *ApplianceService {
	return &ApplianceService{
		db:     database,
		repo:   repo,
		deltas: deltas,
		log:    log,
	}
}

// Create creates an appliance template and its create delta
func (s *ApplianceService) Create(ctx context.Context, in ApplianceInput, actor string) (*models.ApplianceTemplate, error) {
	if in.LoadShare <= 0 {
		in.LoadShare = 1
	}

	tpl := &models.ApplianceTemplate{
		ID:               uuid.New(),
		TenantID:         in.TenantID,
		Category:         in.Category,
		Vendor:           in.Vendor,
		ImageRef:         in.ImageRef,
		Flavor:           in.Flavor,
		SecurityGroupRef: in.SecurityGroupRef,
		LoadShare:        in.LoadShare,
		ConfigHandle:     in.ConfigHandle,
		CreatedAt:        time.Now().UTC(),
	}

	var record *models.DeltaRecord
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.CreateTx(ctx, tx, tpl); err != nil {
			return err
		}
		var txErr error
		record, txErr = s.deltas.AppendTx(ctx, tx, tpl.TenantID, models.KindApplianceTemplate, models.OpCreate, tpl, actor)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("create appliance template: %w", err)
	}

	s.deltas.Publish(ctx, record)
	s.log.Info("created appliance template", "template_id", tpl.ID, "category", tpl.Category, "vendor", tpl.Vendor)

	return tpl, nil
}

// Get retrieves an appliance template by id
func (s *ApplianceService) Get(ctx context.Context, id uuid.UUID) (*models.ApplianceTemplate, error) {
	return s.repo.GetByID(ctx, id)
}

// List lists appliance templates, optionally filtered by tenant
func (s *ApplianceService) List(ctx context.Context, tenantID string) ([]*models.ApplianceTemplate, error) {
	return s.repo.List(ctx, tenantID)
}

// Delete removes an appliance template. The catalog entity is independent:
// existing step instances provisioned from it are unaffected.
func (s *ApplianceService) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var record *models.DeltaRecord
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		var txErr error
		record, txErr = s.deltas.AppendTx(ctx, tx, tpl.TenantID, models.KindApplianceTemplate, models.OpDelete, tpl, actor)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("delete appliance template: %w", err)
	}

	s.deltas.Publish(ctx, record)
	s.log.Info("deleted appliance template", "template_id", id)

	return nil
}
