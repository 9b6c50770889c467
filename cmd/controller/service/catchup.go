package service

import (
	"context"

	"github.com/nfvmesh/sfcd/common/logger"
	"github.com/nfvmesh/sfcd/common/models"
)

type historyReader interface {
	History(ctx context.Context, kind models.EntityKind, tenantID string, sinceVersion uint64) ([]*models.DeltaRecord, error)
}

// CatchupService serves the replay surface agents use after missing
// broadcasts. It reads the delta log only; it never publishes.
type CatchupService struct {
	history historyReader
	log     *logger.Logger
}

// NewCatchupService creates a new catch-up service
func NewCatchupService(history historyReader, log *logger.Logger) *CatchupService {
	return &CatchupService{history: history, log: log}
}

// Catchup returns the ordered delta envelopes for one entity kind and tenant,
// starting strictly after sinceVersion. Zero returns the full history, which
// keeps pre-existing full-replay callers working unchanged.
func (s *CatchupService) Catchup(ctx context.Context, kind models.EntityKind, tenantID string, sinceVersion uint64) ([]models.DeltaEnvelope, error) {
	records, err := s.history.History(ctx, kind, tenantID, sinceVersion)
	if err != nil {
		return nil, err
	}

	envelopes := make([]models.DeltaEnvelope, 0, len(records))
	for _, rec := range records {
		envelopes = append(envelopes, rec.Envelope())
	}

	s.log.Debug("catch-up served",
		"entity_kind", kind,
		"tenant_id", tenantID,
		"since_version", sinceVersion,
		"count", len(envelopes),
	)

	return envelopes, nil
}
