package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/types"
)

func newMetric(t *testing.T, name string, v types.Value) *tahu.Metric {
	t.Helper()
	m := &tahu.Metric{Name: name, HasName: true}
	require.NoError(t, v.SetIntoMetric(m))
	return m
}

func TestClientEndpointApplyBirth(t *testing.T) {
	temperature := newMetric(t, "temperature", types.NewDouble(21.5))
	ps, err := tahu.NewPropertySetFromMap(map[string]any{tahu.PropertyWritable: true})
	require.NoError(t, err)
	setpoint := newMetric(t, "setpoint", types.NewDouble(20))
	setpoint.Properties = ps
	cmd := &tahu.Metric{Name: tahu.MakeCommandName("reset"), HasName: true, Datatype: tahu.DataTypeBoolean}
	bdSeq := &tahu.Metric{Name: tahu.BdSeqMetricName, HasName: true, Datatype: tahu.DataTypeUInt64, HasLongValue: true, LongValue: 1}

	payload := &tahu.Payload{Metrics: []*tahu.Metric{bdSeq, temperature, setpoint, cmd}}

	e := newClientEndpoint(EndpointID{GroupID: "g", EdgeNodeID: "n"})
	changed, err := e.applyBirth(payload, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"temperature", "setpoint"}, changed)

	v, ok := e.metric("temperature")
	require.True(t, ok)
	assert.Equal(t, 21.5, v.(*types.Double).Float64())

	assert.True(t, e.isWritable("setpoint"))
	assert.False(t, e.isWritable("temperature"))
	assert.True(t, e.hasCommand("reset"))
	assert.True(t, e.liveness.online())
}

func TestClientEndpointApplyDataMergesByName(t *testing.T) {
	e := newClientEndpoint(EndpointID{GroupID: "g", EdgeNodeID: "n"})
	birth := &tahu.Payload{Metrics: []*tahu.Metric{newMetric(t, "temperature", types.NewDouble(21.5))}}
	_, err := e.applyBirth(birth, nil)
	require.NoError(t, err)

	update := &tahu.Payload{Metrics: []*tahu.Metric{newMetric(t, "temperature", types.NewDouble(22.25))}}
	changed, err := e.applyData(update)
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature"}, changed)

	v, ok := e.metric("temperature")
	require.True(t, ok)
	assert.Equal(t, 22.25, v.(*types.Double).Float64())
}

func TestClientEndpointApplyDataResolvesAlias(t *testing.T) {
	e := newClientEndpoint(EndpointID{GroupID: "g", EdgeNodeID: "n"})
	birthMetric := newMetric(t, "temperature", types.NewDouble(21.5))
	birthMetric.Alias, birthMetric.HasAlias = 7, true
	birth := &tahu.Payload{Metrics: []*tahu.Metric{birthMetric}}
	_, err := e.applyBirth(birth, nil)
	require.NoError(t, err)

	aliasedUpdate := &tahu.Metric{Alias: 7, HasAlias: true, Datatype: tahu.DataTypeDouble, DoubleValue: 30, HasDoubleValue: true}
	changed, err := e.applyData(&tahu.Payload{Metrics: []*tahu.Metric{aliasedUpdate}})
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature"}, changed)

	v, ok := e.metric("temperature")
	require.True(t, ok)
	assert.Equal(t, 30.0, v.(*types.Double).Float64())
}

func TestClientEndpointApplyDataUnknownAliasErrors(t *testing.T) {
	e := newClientEndpoint(EndpointID{GroupID: "g", EdgeNodeID: "n"})
	_, err := e.applyData(&tahu.Payload{Metrics: []*tahu.Metric{
		{Alias: 99, HasAlias: true, Datatype: tahu.DataTypeDouble},
	}})
	assert.Error(t, err)
}

func TestClientEndpointApplyDeathUpdatesLiveness(t *testing.T) {
	e := newClientEndpoint(EndpointID{GroupID: "g", EdgeNodeID: "n"})
	_, err := e.applyBirth(&tahu.Payload{Metrics: []*tahu.Metric{
		{Name: tahu.BdSeqMetricName, HasName: true, Datatype: tahu.DataTypeUInt64, HasLongValue: true, LongValue: 1},
	}}, nil)
	require.NoError(t, err)
	assert.True(t, e.liveness.online())

	e.applyDeath(&tahu.Payload{Metrics: []*tahu.Metric{
		{Name: tahu.BdSeqMetricName, HasName: true, Datatype: tahu.DataTypeUInt64, HasLongValue: true, LongValue: 2},
	}})
	assert.False(t, e.liveness.online())
}

func TestClientEndpointBounds(t *testing.T) {
	ps, err := tahu.NewPropertySetFromMap(map[string]any{tahu.PropertyLow: 0.0, tahu.PropertyHigh: 100.0})
	require.NoError(t, err)
	m := newMetric(t, "setpoint", types.NewDouble(20))
	m.Properties = ps

	e := newClientEndpoint(EndpointID{GroupID: "g", EdgeNodeID: "n"})
	_, err = e.applyBirth(&tahu.Payload{Metrics: []*tahu.Metric{m}}, nil)
	require.NoError(t, err)

	low, high, ok := e.bounds("setpoint")
	require.True(t, ok)
	assert.Equal(t, 0.0, low)
	assert.Equal(t, 100.0, high)

	_, _, ok = e.bounds("temperature")
	assert.False(t, ok)
}
