package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/types"
)

func scalarDoubleDescriptor(t *testing.T) types.Descriptor {
	t.Helper()
	d, ok := types.GetScalarDescriptor(tahu.DataTypeDouble)
	require.True(t, ok)
	return d
}

func scalarBooleanDescriptor(t *testing.T) types.Descriptor {
	t.Helper()
	d, ok := types.GetScalarDescriptor(tahu.DataTypeBoolean)
	require.True(t, ok)
	return d
}

func TestMetricDescriptorReadOnly(t *testing.T) {
	ro := &MetricDescriptor{Name: "temperature", Get: func(any) types.Value { return types.NewDouble(1) }}
	assert.True(t, ro.ReadOnly())

	rw := &MetricDescriptor{
		Name: "setpoint",
		Get:  func(any) types.Value { return types.NewDouble(1) },
		Set:  func(any, types.Value) error { return nil },
	}
	assert.False(t, rw.ReadOnly())
}

func TestMetricDescriptorTahuMetricWithValue(t *testing.T) {
	md := &MetricDescriptor{Name: "temperature", Get: func(any) types.Value { return types.NewDouble(21.5) }}
	m, err := md.tahuMetric(nil, false)
	require.NoError(t, err)
	assert.Equal(t, "temperature", m.Name)
	assert.Equal(t, 21.5, m.DoubleValue)
	assert.False(t, m.IsNull)
}

func TestMetricDescriptorTahuMetricNullValue(t *testing.T) {
	md := &MetricDescriptor{Name: "temperature", Descriptor: scalarDoubleDescriptor(t), Get: func(any) types.Value { return nil }}
	m, err := md.tahuMetric(nil, false)
	require.NoError(t, err)
	assert.True(t, m.IsNull)
	assert.Equal(t, tahu.DataTypeDouble, m.Datatype)
}

func TestMetricDescriptorTahuMetricHistoricalAndTransient(t *testing.T) {
	md := &MetricDescriptor{Name: "reading", Get: func(any) types.Value { return types.Historical(types.NewDouble(1)) }}
	m, err := md.tahuMetric(nil, false)
	require.NoError(t, err)
	assert.True(t, m.IsHistorical)

	md2 := &MetricDescriptor{Name: "reading", Get: func(any) types.Value { return types.Transient(types.NewDouble(1)) }}
	m2, err := md2.tahuMetric(nil, false)
	require.NoError(t, err)
	assert.True(t, m2.IsTransient)
}

func TestMetricDescriptorTahuMetricWithProperties(t *testing.T) {
	md := &MetricDescriptor{
		Name:       "setpoint",
		Get:        func(any) types.Value { return types.NewDouble(1) },
		Properties: map[string]any{"Writable": true},
	}
	m, err := md.tahuMetric(nil, true)
	require.NoError(t, err)
	require.NotNil(t, m.Properties)
	v, ok := m.Properties.Get("Writable")
	require.True(t, ok)
	assert.Equal(t, true, v.Unwrap())
}

func TestMetricDescriptorTahuMetricWithoutPropertiesOmitsThem(t *testing.T) {
	md := &MetricDescriptor{
		Name:       "setpoint",
		Get:        func(any) types.Value { return types.NewDouble(1) },
		Properties: map[string]any{"Writable": true},
	}
	m, err := md.tahuMetric(nil, false)
	require.NoError(t, err)
	assert.Nil(t, m.Properties)
}

func TestCommandDescriptorTahuMetric(t *testing.T) {
	cd := &CommandDescriptor{Name: "reset", Descriptor: scalarBooleanDescriptor(t)}
	m, err := cd.tahuMetric(false)
	require.NoError(t, err)
	assert.Equal(t, "command/reset", m.Name)
	assert.Equal(t, tahu.DataTypeBoolean, m.Datatype)
}
