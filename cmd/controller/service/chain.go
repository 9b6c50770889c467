package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nfvmesh/sfcd/common/db"
	"github.com/nfvmesh/sfcd/common/fault"
	"github.com/nfvmesh/sfcd/common/logger"
	"github.com/nfvmesh/sfcd/common/models"
	"github.com/nfvmesh/sfcd/common/repository"
)

// ChainService handles chain CRUD. Every mutation writes the entity and its
// delta record in one transaction, then broadcasts.
type ChainService struct {
	db     *db.DB
	repo   *repository.ChainRepository
	deltas *DeltaService
	log    *logger.Logger
}

// NewChainService creates a new chain service
func NewChainService(database *db.DB, repo *repository.ChainRepository, deltas *DeltaService, log *logger.Logger) *ChainService {
	return &ChainService{
		db:     database,
		repo:   repo,
		deltas: deltas,
		log:    log,
	}
}

// Create creates a chain and its create delta
func (s *ChainService) Create(ctx context.Context, tenantID, name string, autoBoot bool, actor string) (*models.Chain, error) {
	chain := &models.Chain{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		AutoBoot:  autoBoot,
		CreatedAt: time.Now().UTC(),
	}

	var record *models.DeltaRecord
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.CreateTx(ctx, tx, chain); err != nil {
			return err
		}
		var err error
		record, err = s.deltas.AppendTx(ctx, tx, tenantID, models.KindChain, models.OpCreate, chain, actor)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create chain: %w", err)
	}

	s.deltas.Publish(ctx, record)
	s.log.Info("created chain", "chain_id", chain.ID, "tenant_id", tenantID, "name", name)

	return chain, nil
}

// Get retrieves a chain by id
func (s *ChainService) Get(ctx context.Context, id uuid.UUID) (*models.Chain, error) {
	return s.repo.GetByID(ctx, id)
}

// List lists chains, optionally filtered by tenant
func (s *ChainService) List(ctx context.Context, tenantID string) ([]*models.Chain, error) {
	return s.repo.List(ctx, tenantID)
}

// Delete removes a chain. Rejected with Conflict while chain steps still
// reference it; the chain row and its delta history stay untouched.
func (s *ChainService) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	chain, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	steps, err := s.repo.CountSteps(ctx, id)
	if err != nil {
		return err
	}
	if steps > 0 {
		return fault.Conflict("chain %s still has %d step(s)", id, steps)
	}

	var record *models.DeltaRecord
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		var txErr error
		record, txErr = s.deltas.AppendTx(ctx, tx, chain.TenantID, models.KindChain, models.OpDelete, chain, actor)
		return txErr
	})
	if err != nil {
		return fmt.Errorf("delete chain: %w", err)
	}

	s.deltas.Publish(ctx, record)
	s.log.Info("deleted chain", "chain_id", id, "tenant_id", chain.TenantID)

	return nil
}
