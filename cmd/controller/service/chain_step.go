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

// ChainStepService handles chain step CRUD through the delta log
type ChainStepService struct {
	db        *db.DB
	repo      *repository.ChainStepRepository
	chains    *repository.ChainRepository
	templates *repository.ApplianceRepository
	deltas    *DeltaService
	log       *logger.Logger
}

// NewChainStepService creates a new chain step service
func NewChainStepService(database *db.DB, repo *repository.ChainStepRepository, chains *repository.ChainRepository, templates *repository.ApplianceRepository, deltas *DeltaService, log *logger.Logger) *ChainStepService {
	return &ChainStepService{
		db:        database,
		repo:      repo,
		chains:    chains,
		templates: templates,
		deltas:    deltas,
		log:       log,
	}
}

// Create inserts a chain step after validating its references. A duplicate
// sequence number within the chain surfaces as Conflict.
func (s *ChainStepService) Create(ctx context.Context, chainID, templateID uuid.UUID, sequenceNumber int, actor string) (*models.ChainStep, error) {
	chain, err := s.chains.GetByID(ctx, chainID)
	if err != nil {
		return nil, err
	}

	if _, err := s.templates.GetByID(ctx, templateID); err != nil {
		return nil, err
	}

	step := &models.ChainStep{
		ID:                  uuid.New(),
		ChainID:             chainID,
		ApplianceTemplateID: templateID,
		SequenceNumber:      sequenceNumber,
		TenantID:            chain.TenantID,
	}

	var record *models.DeltaRecord
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.CreateTx(ctx, tx, step); err != nil {
			return err
		}
		var txErr error
		record, txErr = s.deltas.AppendTx(ctx, tx, step.TenantID, models.KindChainStep, models.OpCreate, step, actor)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("create chain step: %w", err)
	}

	s.deltas.Publish(ctx, record)
	s.log.Info("created chain step",
		"step_id", step.ID,
		"chain_id", chainID,
		"sequence_number", sequenceNumber,
	)

	return step, nil
}

// Get retrieves a chain step by id
func (s *ChainStepService) Get(ctx context.Context, id uuid.UUID) (*models.ChainStep, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByChain returns a chain's steps in launch order
func (s *ChainStepService) ListByChain(ctx context.Context, chainID uuid.UUID) ([]*models.ChainStep, error) {
	return s.repo.ListByChain(ctx, chainID)
}

// Delete removes a chain step and appends its delete delta
func (s *ChainStepService) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	step, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var record *models.DeltaRecord
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		var txErr error
		record, txErr = s.deltas.AppendTx(ctx, tx, step.TenantID, models.KindChainStep, models.OpDelete, step, actor)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("delete chain step: %w", err)
	}

	s.deltas.Publish(ctx, record)
	s.log.Info("deleted chain step", "step_id", id, "chain_id", step.ChainID)

	return nil
}
