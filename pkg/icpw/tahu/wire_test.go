package tahu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadRoundTripScalarMetrics(t *testing.T) {
	p := &Payload{
		HasTimestamp: true, Timestamp: 1234,
		HasSeq: true, Seq: 7,
		Metrics: []*Metric{
			{Name: "temperature", HasName: true, Datatype: DataTypeDouble, HasDoubleValue: true, DoubleValue: 21.5},
			{Name: "count", HasName: true, Datatype: DataTypeInt32, HasIntValue: true, IntValue: 42},
			{Name: "ok", HasName: true, Datatype: DataTypeBoolean, HasBooleanValue: true, BooleanValue: true},
			{Alias: 3, HasAlias: true, Datatype: DataTypeString, HasStringValue: true, StringValue: "hello"},
		},
	}

	got, err := UnmarshalPayload(p.Marshal())
	require.NoError(t, err)
	assert.Equal(t, p.Timestamp, got.Timestamp)
	assert.Equal(t, p.Seq, got.Seq)
	require.Len(t, got.Metrics, 4)
	assert.Equal(t, "temperature", got.Metrics[0].Name)
	assert.Equal(t, 21.5, got.Metrics[0].DoubleValue)
	assert.Equal(t, uint32(42), got.Metrics[1].IntValue)
	assert.True(t, got.Metrics[2].BooleanValue)
	assert.Equal(t, uint64(3), got.Metrics[3].Alias)
	assert.Equal(t, "hello", got.Metrics[3].StringValue)
}

func TestPayloadRoundTripNullMetric(t *testing.T) {
	p := &Payload{Metrics: []*Metric{
		{Name: "temperature", HasName: true, Datatype: DataTypeDouble, IsNull: true},
	}}
	got, err := UnmarshalPayload(p.Marshal())
	require.NoError(t, err)
	assert.True(t, got.Metrics[0].IsNull)
}

func TestPayloadRoundTripProperties(t *testing.T) {
	ps, err := NewPropertySetFromMap(map[string]any{"Writable": true, "Unit": "C"})
	require.NoError(t, err)
	p := &Payload{Metrics: []*Metric{
		{Name: "setpoint", HasName: true, Datatype: DataTypeDouble, HasDoubleValue: true, DoubleValue: 20, Properties: ps},
	}}

	got, err := UnmarshalPayload(p.Marshal())
	require.NoError(t, err)
	require.NotNil(t, got.Metrics[0].Properties)
	writable, ok := got.Metrics[0].Properties.Get("Writable")
	require.True(t, ok)
	assert.Equal(t, true, writable.Unwrap())
}

func TestPayloadRoundTripDataSet(t *testing.T) {
	p := &Payload{Metrics: []*Metric{
		{
			Name: "readings", HasName: true, Datatype: DataTypeDataSet, HasDatasetValue: true,
			DatasetValue: &DataSet{
				NumOfColumns: 2,
				Columns:      []string{"t", "v"},
				Types:        []DataType{DataTypeInt64, DataTypeDouble},
				Rows: []*DataSetRow{
					{Elements: []DataSetValue{{Datatype: DataTypeInt64, LongValue: 1}, {Datatype: DataTypeDouble, DoubleValue: 1.5}}},
					{Elements: []DataSetValue{{Datatype: DataTypeInt64, LongValue: 2}, {Datatype: DataTypeDouble, DoubleValue: 2.5}}},
				},
			},
		},
	}}

	got, err := UnmarshalPayload(p.Marshal())
	require.NoError(t, err)
	ds := got.Metrics[0].DatasetValue
	require.NotNil(t, ds)
	assert.Equal(t, []string{"t", "v"}, ds.Columns)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, uint64(2), ds.Rows[1].Elements[0].LongValue)
	assert.Equal(t, 2.5, ds.Rows[1].Elements[1].DoubleValue)
}

func TestPayloadRoundTripTemplateDefinition(t *testing.T) {
	p := &Payload{Metrics: []*Metric{
		{
			Name: MakeTemplateDefinitionName("Reading"), HasName: true,
			Datatype: DataTypeTemplate, HasTemplateValue: true,
			TemplateValue: &Template{
				IsDefinition: true,
				Metrics: []*Metric{
					{Name: "value", HasName: true, Datatype: DataTypeDouble},
				},
			},
		},
	}}

	got, err := UnmarshalPayload(p.Marshal())
	require.NoError(t, err)
	tmpl := got.Metrics[0].TemplateValue
	require.NotNil(t, tmpl)
	assert.True(t, tmpl.IsDefinition)
	require.Len(t, tmpl.Metrics, 1)
	assert.Equal(t, "value", tmpl.Metrics[0].Name)
}

func TestUnmarshalPayloadRejectsMalformedBytes(t *testing.T) {
	_, err := UnmarshalPayload([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}
