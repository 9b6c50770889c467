package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nfvmesh/sfcd/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHistory serves canned delta records, recording the filter it was asked for
type fakeHistory struct {
	records      []*models.DeltaRecord
	gotKind      models.EntityKind
	gotTenant    string
	gotSince     uint64
}

func (f *fakeHistory) History(ctx context.Context, kind models.EntityKind, tenantID string, sinceVersion uint64) ([]*models.DeltaRecord, error) {
	f.gotKind = kind
	f.gotTenant = tenantID
	f.gotSince = sinceVersion

	var out []*models.DeltaRecord
	for _, rec := range f.records {
		if rec.Version > sinceVersion {
			out = append(out, rec)
		}
	}
	return out, nil
}

func chainHistory() []*models.DeltaRecord {
	return []*models.DeltaRecord{
		{EntityKind: models.KindChain, Operation: models.OpCreate, TenantID: "tenant-a", Version: 1, Snapshot: json.RawMessage(`{"id":"c1"}`)},
		{EntityKind: models.KindChain, Operation: models.OpUpdate, TenantID: "tenant-a", Version: 2, Snapshot: json.RawMessage(`{"id":"c1","name":"edge"}`)},
		{EntityKind: models.KindChain, Operation: models.OpDelete, TenantID: "tenant-a", Version: 5, Snapshot: json.RawMessage(`{"id":"c1"}`)},
	}
}

func TestCatchupFullHistory(t *testing.T) {
	history := &fakeHistory{records: chainHistory()}
	s := NewCatchupService(history, testLogger())

	envelopes, err := s.Catchup(context.Background(), models.KindChain, "tenant-a", 0)
	require.NoError(t, err)
	require.Len(t, envelopes, 3)

	assert.Equal(t, uint64(1), envelopes[0].Version)
	assert.Equal(t, "create_chain", envelopes[0].Method)
	assert.Equal(t, "update_chain", envelopes[1].Method)
	assert.Equal(t, "delete_chain", envelopes[2].Method)
}

func TestCatchupSinceVersion(t *testing.T) {
	history := &fakeHistory{records: chainHistory()}
	s := NewCatchupService(history, testLogger())

	envelopes, err := s.Catchup(context.Background(), models.KindChain, "tenant-a", 2)
	require.NoError(t, err)
	require.Len(t, envelopes, 1)
	assert.Equal(t, uint64(5), envelopes[0].Version)
	assert.Equal(t, uint64(2), history.gotSince)
}

func TestCatchupEmptyHistory(t *testing.T) {
	history := &fakeHistory{}
	s := NewCatchupService(history, testLogger())

	envelopes, err := s.Catchup(context.Background(), models.KindChain, "tenant-a", 0)
	require.NoError(t, err)
	assert.Empty(t, envelopes)
	assert.NotNil(t, envelopes)
}
