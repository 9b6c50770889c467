package service

import (
	"encoding/json"
	"testing"

	"github.com/nfvmesh/sfcd/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastTopicPerTenant(t *testing.T) {
	assert.Equal(t, "sfc:deltas:tenant-a", BroadcastTopic("tenant-a"))
}

func TestEncodeBroadcastShape(t *testing.T) {
	record := &models.DeltaRecord{
		EntityKind: models.KindChain,
		Operation:  models.OpCreate,
		TenantID:   "tenant-a",
		Version:    42,
		Snapshot:   json.RawMessage(`{"id":"c1","name":"edge"}`),
	}

	payload, err := EncodeBroadcast(record)
	require.NoError(t, err)

	// One message keyed by version: {"42": {"method": ..., "payload": ...}}
	var decoded map[string]struct {
		Method  string          `json:"method"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Len(t, decoded, 1)

	body, ok := decoded["42"]
	require.True(t, ok)
	assert.Equal(t, "create_chain", body.Method)
	assert.JSONEq(t, `{"id":"c1","name":"edge"}`, string(body.Payload))
}

func TestDeltaRecordMethod(t *testing.T) {
	record := &models.DeltaRecord{
		EntityKind: models.KindStepInstance,
		Operation:  models.OpDelete,
	}
	assert.Equal(t, "delete_step_instance", record.Method())
}
