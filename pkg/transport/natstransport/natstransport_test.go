package natstransport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
)

func TestNatsSubjectTranslatesTrailingHash(t *testing.T) {
	assert.Equal(t, "spBv1.0.plant-a.>", natsSubject("spBv1.0.plant-a.#"))
}

func TestNatsSubjectLeavesPlainTopicUnchanged(t *testing.T) {
	assert.Equal(t, "spBv1.0/plant-a/NCMD/mixer-1", natsSubject("spBv1.0/plant-a/NCMD/mixer-1"))
}

func TestPublishWithoutConnectionReturnsNotConnected(t *testing.T) {
	tr := New()
	err := tr.Publish("topic", []byte("x"), 1, false)
	assert.True(t, errors.Is(err, icpwerr.NotConnected))
}

func TestDisconnectWithoutConnectionReturnsNotConnected(t *testing.T) {
	tr := New()
	err := tr.Disconnect()
	assert.True(t, errors.Is(err, icpwerr.NotConnected))
}

func TestSubscribeWithoutConnectionReturnsNotConnected(t *testing.T) {
	tr := New()
	err := tr.Subscribe("topic", func(string, []byte) {})
	assert.True(t, errors.Is(err, icpwerr.NotConnected))
}

func TestFetchRetainedWithoutStoredValueReturnsError(t *testing.T) {
	tr := New()
	_, err := tr.FetchRetained(context.Background(), "spBv1.0/plant-a/NBIRTH/mixer-1")
	assert.Error(t, err)
}

func TestFetchRetainedReturnsStoredPayloadWithoutConnection(t *testing.T) {
	tr := New()
	tr.retainedMu.Store("spBv1.0/plant-a/NBIRTH/mixer-1", []byte("payload"))
	got, err := tr.FetchRetained(context.Background(), "spBv1.0/plant-a/NBIRTH/mixer-1")
	assert.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestSetLastWillCopiesPayload(t *testing.T) {
	tr := New()
	payload := []byte{1, 2, 3}
	require := assert.New(t)
	require.NoError(tr.SetLastWill("spBv1.0/plant-a/NDEATH/mixer-1", payload, 1, true))
	payload[0] = 99
	require.Equal(byte(1), tr.lastWill.payload[0], "SetLastWill must copy its payload")
}
