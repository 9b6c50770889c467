package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusPatternDelivery(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	var broadcast, cast []string
	require.NoError(t, b.Subscribe(ctx, "sfc:deltas:*", func(ctx context.Context, topic string, payload []byte) error {
		broadcast = append(broadcast, topic)
		return nil
	}))
	require.NoError(t, b.Subscribe(ctx, "sfc:agent:host-1", func(ctx context.Context, topic string, payload []byte) error {
		cast = append(cast, string(payload))
		return nil
	}))

	require.NoError(t, b.Publish(ctx, "sfc:deltas:tenant-a", []byte(`{}`)))
	require.NoError(t, b.Publish(ctx, "sfc:deltas:tenant-b", []byte(`{}`)))
	require.NoError(t, b.Cast(ctx, "sfc:agent:host-1", []byte("cleanup")))
	require.NoError(t, b.Cast(ctx, "sfc:agent:host-2", []byte("other")))

	assert.Equal(t, []string{"sfc:deltas:tenant-a", "sfc:deltas:tenant-b"}, broadcast)
	assert.Equal(t, []string{"cleanup"}, cast)

	assert.Len(t, b.Published, 2)
	assert.Len(t, b.Casted, 2)
}
