package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("chain %s missing", "abc")))
	assert.Equal(t, KindConflict, KindOf(Conflict("chain has steps")))
	assert.Equal(t, KindResourceExhausted, KindOf(ResourceExhausted("pool empty")))
	assert.Equal(t, KindLaunchTimeout, KindOf(LaunchTimeout("poll expired")))
	assert.Equal(t, KindCancelled, KindOf(Cancelled("ctx done")))
	assert.Equal(t, KindInstanceError, KindOf(InstanceError("platform error")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := NotFound("template missing")
	wrapped := fmt.Errorf("resolve step 2: %w", inner)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(wrapped, KindConflict))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("context canceled")
	err := Wrap(KindCancelled, cause, "launch cancelled before step %d", 3)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, KindCancelled, KindOf(err))
	assert.Contains(t, err.Error(), "launch cancelled before step 3")
	assert.Contains(t, err.Error(), "context canceled")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "resource_exhausted", KindResourceExhausted.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
