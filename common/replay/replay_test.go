package replay

import (
	"encoding/json"
	"testing"

	"github.com/nfvmesh/sfcd/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(version uint64, method string, payload string) models.DeltaEnvelope {
	return models.DeltaEnvelope{
		Version: version,
		Method:  method,
		Payload: json.RawMessage(payload),
	}
}

func TestApplyCreateUpdateDelete(t *testing.T) {
	a := NewApplier()

	history := []models.DeltaEnvelope{
		env(1, "create_chain", `{"id":"c1","name":"edge","auto_boot":false}`),
		env(2, "update_chain", `{"id":"c1","name":"edge-v2"}`),
		env(3, "create_chain", `{"id":"c2","name":"core"}`),
		env(4, "delete_chain", `{"id":"c2","name":"core"}`),
	}
	require.NoError(t, a.ApplyAll("tenant-a", history))

	assert.Equal(t, 1, a.Count(models.KindChain))
	assert.Equal(t, uint64(4), a.LastVersion("tenant-a", models.KindChain))

	doc, ok := a.Get(models.KindChain, "c1")
	require.True(t, ok)

	var chain map[string]any
	require.NoError(t, json.Unmarshal(doc, &chain))
	// Merge patch updated the name but kept fields the patch did not carry.
	assert.Equal(t, "edge-v2", chain["name"])
	assert.Equal(t, false, chain["auto_boot"])

	_, ok = a.Get(models.KindChain, "c2")
	assert.False(t, ok)
}

func TestDoubleApplyIsIdempotent(t *testing.T) {
	a := NewApplier()

	history := []models.DeltaEnvelope{
		env(1, "create_step_instance", `{"id":"i1","status":"active"}`),
		env(2, "update_step_instance", `{"id":"i1","status":"tagged","vlan_in":100,"vlan_out":101}`),
	}

	require.NoError(t, a.ApplyAll("tenant-a", history))
	first, ok := a.Get(models.KindStepInstance, "i1")
	require.True(t, ok)

	// A full catch-up after reconnect replays the same history.
	require.NoError(t, a.ApplyAll("tenant-a", history))
	second, ok := a.Get(models.KindStepInstance, "i1")
	require.True(t, ok)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, 1, a.Count(models.KindStepInstance))
	assert.Equal(t, uint64(2), a.LastVersion("tenant-a", models.KindStepInstance))
}

func TestCatchupPerKindHistoriesInterleave(t *testing.T) {
	a := NewApplier()

	// Versions are issued per tenant across all kinds, so the per-kind
	// histories an agent fetches after a reconnect interleave. Applying the
	// chain history first must not mask the step instances behind it.
	chains := []models.DeltaEnvelope{
		env(1, "create_chain", `{"id":"c1"}`),
		env(4, "create_chain", `{"id":"c2"}`),
	}
	instances := []models.DeltaEnvelope{
		env(2, "create_step_instance", `{"id":"i1","status":"active"}`),
		env(3, "create_step_instance", `{"id":"i2","status":"active"}`),
	}

	require.NoError(t, a.ApplyAll("tenant-a", chains))
	require.NoError(t, a.ApplyAll("tenant-a", instances))

	assert.Equal(t, 2, a.Count(models.KindChain))
	assert.Equal(t, 2, a.Count(models.KindStepInstance))
	assert.Equal(t, uint64(4), a.LastVersion("tenant-a", models.KindChain))
	assert.Equal(t, uint64(3), a.LastVersion("tenant-a", models.KindStepInstance))
}

func TestStaleVersionSkipped(t *testing.T) {
	a := NewApplier()

	require.NoError(t, a.Apply("tenant-a", env(5, "create_chain", `{"id":"c1","name":"edge"}`)))
	// A duplicate broadcast of an older version must not clobber state.
	require.NoError(t, a.Apply("tenant-a", env(3, "update_chain", `{"id":"c1","name":"stale"}`)))

	doc, ok := a.Get(models.KindChain, "c1")
	require.True(t, ok)
	assert.Contains(t, string(doc), "edge")
}

func TestTenantsAreIndependent(t *testing.T) {
	a := NewApplier()

	require.NoError(t, a.Apply("tenant-a", env(7, "create_chain", `{"id":"c1"}`)))
	require.NoError(t, a.Apply("tenant-b", env(1, "create_chain", `{"id":"c2"}`)))

	assert.Equal(t, uint64(7), a.LastVersion("tenant-a", models.KindChain))
	assert.Equal(t, uint64(1), a.LastVersion("tenant-b", models.KindChain))
	assert.Equal(t, 2, a.Count(models.KindChain))
}

func TestUpdateWithoutCreateUsesSnapshot(t *testing.T) {
	a := NewApplier()

	// Catch-up from a since_version past the create sees the update first.
	require.NoError(t, a.Apply("tenant-a", env(9, "update_chain", `{"id":"c1","name":"edge"}`)))

	doc, ok := a.Get(models.KindChain, "c1")
	require.True(t, ok)
	assert.Contains(t, string(doc), "edge")
}

func TestMalformedMethodRejected(t *testing.T) {
	a := NewApplier()

	err := a.Apply("tenant-a", env(1, "nounderscore", `{"id":"x"}`))
	assert.Error(t, err)

	err = a.Apply("tenant-a", env(2, "explode_chain", `{"id":"x"}`))
	assert.Error(t, err)
}
