package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nfvmesh/sfcd/common/db"
	"github.com/nfvmesh/sfcd/common/logger"
	"github.com/nfvmesh/sfcd/common/models"
	"github.com/nfvmesh/sfcd/common/repository"
)

// StepInstanceService handles step instance writes through the delta log.
// The launcher uses Create and Tag; the lifecycle reconciler uses Delete.
type StepInstanceService struct {
	db     *db.DB
	repo   *repository.StepInstanceRepository
	deltas *DeltaService
	log    *logger.Logger
}

// NewStepInstanceService creates a new step instance service
func NewStepInstanceService(database *db.DB, repo *repository.StepInstanceRepository, deltas *DeltaService, log *logger.Logger) *StepInstanceService {
	return &StepInstanceService{
		db:     database,
		repo:   repo,
		deltas: deltas,
		log:    log,
	}
}

// Create inserts a step instance and appends+publishes its create delta
func (s *StepInstanceService) Create(ctx context.Context, inst *models.StepInstance, actor string) error {
	var record *models.DeltaRecord
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.CreateTx(ctx, tx, inst); err != nil {
			return err
		}
		var txErr error
		record, txErr = s.deltas.AppendTx(ctx, tx, inst.TenantID, models.KindStepInstance, models.OpCreate, inst, actor)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("create step instance: %w", err)
	}

	s.deltas.Publish(ctx, record)
	s.log.Info("created step instance",
		"instance_id", inst.ID,
		"chain_step_id", inst.ChainStepID,
		"external_instance_id", inst.ExternalInstanceID,
	)

	return nil
}

// Tag assigns the VLAN pair, moves the instance to tagged and
// appends+publishes the update delta with the full post-update snapshot.
func (s *StepInstanceService) Tag(ctx context.Context, id uuid.UUID, vlanIn, vlanOut int, actor string) error {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	inst.VlanIn = &vlanIn
	inst.VlanOut = &vlanOut
	inst.Status = models.StatusTagged

	var record *models.DeltaRecord
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.UpdateVlansTx(ctx, tx, id, vlanIn, vlanOut); err != nil {
			return err
		}
		var txErr error
		record, txErr = s.deltas.AppendTx(ctx, tx, inst.TenantID, models.KindStepInstance, models.OpUpdate, inst, actor)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("tag step instance: %w", err)
	}

	s.deltas.Publish(ctx, record)
	s.log.Info("tagged step instance", "instance_id", id, "vlan_in", vlanIn, "vlan_out", vlanOut)

	return nil
}

// Delete removes a step instance and appends+publishes a delete delta
// carrying the pre-delete snapshot.
func (s *StepInstanceService) Delete(ctx context.Context, id uuid.UUID, actor string) (*models.StepInstance, error) {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var record *models.DeltaRecord
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		var txErr error
		record, txErr = s.deltas.AppendTx(ctx, tx, inst.TenantID, models.KindStepInstance, models.OpDelete, inst, actor)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("delete step instance: %w", err)
	}

	s.deltas.Publish(ctx, record)
	s.log.Info("deleted step instance", "instance_id", id, "external_instance_id", inst.ExternalInstanceID)

	return inst, nil
}

// Get retrieves a step instance by id
func (s *StepInstanceService) Get(ctx context.Context, id uuid.UUID) (*models.StepInstance, error) {
	return s.repo.GetByID(ctx, id)
}

// List lists step instances, optionally filtered by tenant
func (s *StepInstanceService) List(ctx context.Context, tenantID string) ([]*models.StepInstance, error) {
	return s.repo.List(ctx, tenantID)
}

// ListByExternalID returns all step instances backed by one compute instance
func (s *StepInstanceService) ListByExternalID(ctx context.Context, externalID string) ([]*models.StepInstance, error) {
	return s.repo.ListByExternalID(ctx, externalID)
}
