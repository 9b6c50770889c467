package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostFromTopic(t *testing.T) {
	assert.Equal(t, "compute-03", hostFromTopic("sfc:agent:compute-03"))
	assert.Equal(t, "", hostFromTopic("sfc:deltas:tenant-a"))
	assert.Equal(t, "", hostFromTopic("sfc:agent"))
	assert.Equal(t, "", hostFromTopic("other:agent:host"))
}
