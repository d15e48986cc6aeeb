package tahu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPropertySetFromMapAndGet(t *testing.T) {
	ps, err := NewPropertySetFromMap(map[string]any{"Writable": true, "Low": 0.0, "Unit": "C"})
	require.NoError(t, err)
	assert.True(t, ps.IsMap())

	v, ok := ps.Get("Writable")
	require.True(t, ok)
	assert.Equal(t, true, v.Unwrap())

	_, ok = ps.Get("Missing")
	assert.False(t, ok)
}

func TestPropertySetSetOverwritesAndAppends(t *testing.T) {
	ps := &PropertySet{Keys: []string{}}
	require.NoError(t, ps.Set("Unit", "C"))
	require.NoError(t, ps.Set("Unit", "F"))
	v, ok := ps.Get("Unit")
	require.True(t, ok)
	assert.Equal(t, "F", v.Unwrap())
	assert.Len(t, ps.Keys, 1, "setting an existing key must not append a duplicate")
}

func TestGetBoolDefaultsWhenAbsentOrWrongType(t *testing.T) {
	ps, err := NewPropertySetFromMap(map[string]any{"Unit": "C"})
	require.NoError(t, err)
	assert.False(t, ps.GetBool("Writable", false))
	assert.True(t, ps.GetBool("Writable", true))
	assert.False(t, ps.GetBool("Unit", false), "a non-boolean property must fall back to the default")
}

func TestGetBoolOnNilPropertySet(t *testing.T) {
	var ps *PropertySet
	assert.False(t, ps.GetBool("anything", false))
	assert.True(t, ps.GetBool("anything", true))
}

func TestNewPropertyValueInfersDatatype(t *testing.T) {
	v, err := NewPropertyValue(42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Unwrap())

	v, err = NewPropertyValue(nil)
	require.NoError(t, err)
	assert.Nil(t, v.Unwrap())
	assert.True(t, v.IsNull)
}

func TestBuildEndpointPropertyRoundTrip(t *testing.T) {
	m, err := BuildEndpointProperty("firmwareVersion", stringScalar("1.2.3"))
	require.NoError(t, err)
	assert.True(t, IsEndpointProperty(m))
	assert.Equal(t, "1.2.3", m.StringValue)
}

type stringScalar string

func (s stringScalar) SetIntoMetric(m *Metric) error {
	return SetScalarValue(m, DataTypeString, string(s))
}
