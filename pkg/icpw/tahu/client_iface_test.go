package tahu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNCmdByNameWithoutRegisteredBirth(t *testing.T) {
	c := NewClientInterface()
	payload, topic, err := c.NewNCmd("plant-a", "mixer-1", "reset", DataTypeBoolean, true)
	require.NoError(t, err)
	assert.Equal(t, "spBv1.0/plant-a/NCMD/mixer-1", topic)
	require.Len(t, payload.Metrics, 1)
	assert.Equal(t, MakeCommandName("reset"), payload.Metrics[0].Name)
	assert.False(t, payload.Metrics[0].HasAlias)
}

func TestNewNCmdByAliasAfterRegisteredBirth(t *testing.T) {
	c := NewClientInterface()
	nbirth := &Payload{Metrics: []*Metric{
		{Name: MakeCommandName("reset"), HasName: true, Alias: 5, HasAlias: true},
	}}
	c.RegisterNBirth("plant-a", "mixer-1", nbirth)

	payload, _, err := c.NewNCmd("plant-a", "mixer-1", "reset", DataTypeBoolean, true)
	require.NoError(t, err)
	require.Len(t, payload.Metrics, 1)
	assert.False(t, payload.Metrics[0].HasName)
	assert.Equal(t, uint64(5), payload.Metrics[0].Alias)
}

func TestNewDCmdByAliasAfterRegisteredDBirth(t *testing.T) {
	c := NewClientInterface()
	dbirth := &Payload{Metrics: []*Metric{
		{Name: MakeCommandName("jog"), HasName: true, Alias: 9, HasAlias: true},
	}}
	c.RegisterDBirth("plant-a", "mixer-1", "motor-1", dbirth)

	payload, topic, err := c.NewDCmd("plant-a", "mixer-1", "motor-1", "jog", DataTypeInt32, int32(3))
	require.NoError(t, err)
	assert.Equal(t, "spBv1.0/plant-a/DCMD/mixer-1/motor-1", topic)
	assert.Equal(t, uint64(9), payload.Metrics[0].Alias)
	assert.Equal(t, uint32(3), payload.Metrics[0].IntValue)
}

func TestNodeNameFromTopic(t *testing.T) {
	group, node, err := NodeNameFromTopic("spBv1.0/plant-a/NDATA/mixer-1")
	require.NoError(t, err)
	assert.Equal(t, "plant-a", group)
	assert.Equal(t, "mixer-1", node)

	group, node, err = NodeNameFromTopic("spBv1.0/plant-a/DDATA/mixer-1/motor-1")
	require.NoError(t, err)
	assert.Equal(t, "plant-a", group)
	assert.Equal(t, "mixer-1", node)

	_, _, err = NodeNameFromTopic("STATE/scada-1")
	assert.Error(t, err)
}
