package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventHas(t *testing.T) {
	assert.True(t, EventOnline.Has(EventAll))
	assert.True(t, EventOffline.Has(EventAll))
	assert.True(t, EventMetricUpdate.Has(EventAll))

	mask := EventOnline | EventOffline
	assert.True(t, EventOnline.Has(mask))
	assert.True(t, EventOffline.Has(mask))
	assert.False(t, EventMetricUpdate.Has(mask))

	assert.False(t, EventOnline.Has(EventOffline))
}

func TestEndpointStateString(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "online", StateOnline.String())
	assert.Equal(t, "offline", StateOffline.String())
}
