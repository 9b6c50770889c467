package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nfvmesh/sfcd/common/bus"
	"github.com/nfvmesh/sfcd/common/logger"
	"github.com/nfvmesh/sfcd/common/metrics"
	"github.com/nfvmesh/sfcd/common/models"
	"github.com/nfvmesh/sfcd/common/repository"
)

// BroadcastTopic returns the fan-out topic for a tenant's deltas
func BroadcastTopic(tenantID string) string {
	return "sfc:deltas:" + tenantID
}

// DeltaService owns the delta log write path: append inside the caller's
// transaction, broadcast after commit. The broadcast is fire-and-forget; a
// failed publish is logged and the mutation stands, because agents recover
// through catch-up.
type DeltaService struct {
	repo *repository.DeltaRepository
	bus  bus.Publisher
	log  *logger.Logger
}

// NewDeltaService creates a new delta service
func NewDeltaService(repo *repository.DeltaRepository, publisher bus.Publisher, log *logger.Logger) *DeltaService {
	return &DeltaService{
		repo: repo,
		bus:  publisher,
		log:  log,
	}
}

// AppendTx appends a delta record on the caller's transaction
func (s *DeltaService) AppendTx(ctx context.Context, tx pgx.Tx, tenantID string, kind models.EntityKind, op models.Operation, snapshot any, actor string) (*models.DeltaRecord, error) {
	record, err := s.repo.AppendTx(ctx, tx, tenantID, kind, op, snapshot, actor)
	if err != nil {
		return nil, fmt.Errorf("append delta: %w", err)
	}
	return record, nil
}

// Publish broadcasts a committed delta record to the tenant's fan-out topic.
// One record, one message, keyed by version so receivers dedup on replay.
func (s *DeltaService) Publish(ctx context.Context, record *models.DeltaRecord) {
	payload, err := EncodeBroadcast(record)
	if err != nil {
		s.log.Error("failed to encode delta broadcast", "version", record.Version, "error", err)
		metrics.PublishFailuresTotal.Inc()
		return
	}

	if err := s.bus.Publish(ctx, BroadcastTopic(record.TenantID), payload); err != nil {
		// Deliberate: publish failure never fails the mutation.
		s.log.Error("delta broadcast failed",
			"tenant_id", record.TenantID,
			"version", record.Version,
			"method", record.Method(),
			"error", err,
		)
		metrics.PublishFailuresTotal.Inc()
		return
	}

	metrics.DeltasPublishedTotal.WithLabelValues(string(record.EntityKind), string(record.Operation)).Inc()
	s.log.Debug("delta broadcast",
		"tenant_id", record.TenantID,
		"version", record.Version,
		"method", record.Method(),
	)
}

// History returns the committed delta records for an entity kind
func (s *DeltaService) History(ctx context.Context, kind models.EntityKind, tenantID string, sinceVersion uint64) ([]*models.DeltaRecord, error) {
	return s.repo.History(ctx, kind, tenantID, sinceVersion)
}

// EncodeBroadcast renders the wire form of one delta:
// {"<version>": {"method": "...", "payload": {...}}}
func EncodeBroadcast(record *models.DeltaRecord) ([]byte, error) {
	body := struct {
		Method  string          `json:"method"`
		Payload json.RawMessage `json:"payload"`
	}{
		Method:  record.Method(),
		Payload: record.Snapshot,
	}

	return json.Marshal(map[string]any{
		fmt.Sprintf("%d", record.Version): body,
	})
}
