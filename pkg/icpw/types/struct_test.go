package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
)

func readingSchema() *StructSchema {
	return &StructSchema{
		NetworkName: "Reading",
		Fields: []FieldSchema{
			{Name: "value", New: func() Value { return NewDouble(0) }},
			{Name: "ok", New: func() Value { return NewBoolean(false) }},
		},
	}
}

func TestStructSchemaNewZeroValue(t *testing.T) {
	schema := readingSchema()
	v := schema.New().(*Struct)

	value, ok := v.Get("value")
	require.True(t, ok)
	assert.Equal(t, 0.0, value.(*Double).Float64())
}

func TestNewStructFillsMissingFieldsWithZeroValue(t *testing.T) {
	schema := readingSchema()
	s, err := NewStruct(schema, map[string]Value{"value": NewDouble(21.5)})
	require.NoError(t, err)

	value, ok := s.Get("value")
	require.True(t, ok)
	assert.Equal(t, 21.5, value.(*Double).Float64())

	ok2, _ := s.Get("ok")
	assert.Equal(t, false, ok2.(*Boolean).Bool())
}

func TestNewStructRejectsUnknownField(t *testing.T) {
	schema := readingSchema()
	_, err := NewStruct(schema, map[string]Value{"bogus": NewDouble(1)})
	assert.Error(t, err)
}

func TestStructSetPanicsOnUnknownField(t *testing.T) {
	schema := readingSchema()
	s := schema.New().(*Struct)
	assert.Panics(t, func() { s.Set("bogus", NewDouble(1)) })
}

func TestStructSetIntoMetricRoundTrip(t *testing.T) {
	schema := readingSchema()
	s, err := NewStruct(schema, map[string]Value{"value": NewDouble(21.5), "ok": NewBoolean(true)})
	require.NoError(t, err)

	m := &tahu.Metric{}
	require.NoError(t, s.SetIntoMetric(m))
	assert.Equal(t, tahu.DataTypeTemplate, m.Datatype)
	require.True(t, m.HasTemplateValue)
	assert.Equal(t, "Reading", m.TemplateValue.TemplateRef)
	assert.Len(t, m.TemplateValue.Metrics, 2)

	got := schema.New().(*Struct)
	require.NoError(t, got.MergeFromMetric(m))
	value, _ := got.Get("value")
	assert.Equal(t, 21.5, value.(*Double).Float64())
	ok, _ := got.Get("ok")
	assert.True(t, ok.(*Boolean).Bool())
}

func TestStructMergeFromMetricIsPartial(t *testing.T) {
	schema := readingSchema()
	s, err := NewStruct(schema, map[string]Value{"value": NewDouble(1), "ok": NewBoolean(true)})
	require.NoError(t, err)

	partial := &tahu.Metric{
		HasTemplateValue: true,
		TemplateValue: &tahu.Template{
			TemplateRef: "Reading",
			Metrics: []*tahu.Metric{
				{Name: "value", HasName: true, Datatype: tahu.DataTypeDouble, HasDoubleValue: true, DoubleValue: 2},
			},
		},
	}
	require.NoError(t, s.MergeFromMetric(partial))

	value, _ := s.Get("value")
	assert.Equal(t, 2.0, value.(*Double).Float64())
	ok, _ := s.Get("ok")
	assert.True(t, ok.(*Boolean).Bool(), "fields absent from the partial update must be left unchanged")
}

func TestStructMergeFromMetricRejectsUnknownField(t *testing.T) {
	schema := readingSchema()
	s := schema.New().(*Struct)
	partial := &tahu.Metric{
		HasTemplateValue: true,
		TemplateValue: &tahu.Template{
			Metrics: []*tahu.Metric{
				{Name: "bogus", HasName: true, Datatype: tahu.DataTypeDouble},
			},
		},
	}
	assert.Error(t, s.MergeFromMetric(partial))
}

func TestStructMergeFromMetricRequiresTemplateValue(t *testing.T) {
	schema := readingSchema()
	s := schema.New().(*Struct)
	assert.Error(t, s.MergeFromMetric(&tahu.Metric{}))
}

func TestStructSetDifferenceIntoMetricOnlyCarriesChangedFields(t *testing.T) {
	schema := readingSchema()
	prev, err := NewStruct(schema, map[string]Value{"value": NewDouble(1), "ok": NewBoolean(true)})
	require.NoError(t, err)
	cur, err := NewStruct(schema, map[string]Value{"value": NewDouble(2), "ok": NewBoolean(true)})
	require.NoError(t, err)

	m := &tahu.Metric{}
	require.NoError(t, cur.SetDifferenceIntoMetric(m, prev))
	require.Len(t, m.TemplateValue.Metrics, 1, "only the changed field should be serialized")
	assert.Equal(t, "value", m.TemplateValue.Metrics[0].Name)
}

func TestStructCopyIsIndependent(t *testing.T) {
	schema := readingSchema()
	s, err := NewStruct(schema, map[string]Value{"value": NewDouble(1), "ok": NewBoolean(false)})
	require.NoError(t, err)

	cp := s.Copy().(*Struct)
	cp.Set("value", NewDouble(99))

	value, _ := s.Get("value")
	assert.Equal(t, 1.0, value.(*Double).Float64(), "Copy must not alias the original's field values")
}

func TestStructToPython(t *testing.T) {
	schema := readingSchema()
	s, err := NewStruct(schema, map[string]Value{"value": NewDouble(3.5), "ok": NewBoolean(true)})
	require.NoError(t, err)

	out := s.ToPython().(map[string]any)
	assert.Equal(t, 3.5, out["value"])
	assert.Equal(t, true, out["ok"])
}

func TestStructPlainRoundTrip(t *testing.T) {
	schema := readingSchema()
	s, err := NewStruct(schema, map[string]Value{"value": NewDouble(21.5), "ok": NewBoolean(true)})
	require.NoError(t, err)

	got := schema.New().(*Struct)
	require.NoError(t, got.FromPlain(s.ToPython()))
	assert.True(t, s.Equals(got))
}

func TestStructFromPlainRejectsUnknownField(t *testing.T) {
	schema := readingSchema()
	s := schema.New().(*Struct)
	assert.Error(t, s.FromPlain(map[string]any{"bogus": 1.0}))
}

func TestStructEqualsComparesByField(t *testing.T) {
	schema := readingSchema()
	a, err := NewStruct(schema, map[string]Value{"value": NewDouble(1), "ok": NewBoolean(true)})
	require.NoError(t, err)
	b, err := NewStruct(schema, map[string]Value{"value": NewDouble(1), "ok": NewBoolean(true)})
	require.NoError(t, err)
	assert.True(t, a.Equals(b))

	b.Set("value", NewDouble(2))
	assert.False(t, a.Equals(b))
}

func TestStructSchemaMatchesMetric(t *testing.T) {
	schema := readingSchema()
	m := &tahu.Metric{HasTemplateValue: true, TemplateValue: &tahu.Template{HasTemplateRef: true, TemplateRef: "Reading"}}
	assert.True(t, schema.MatchesMetric(m))

	other := &tahu.Metric{HasTemplateValue: true, TemplateValue: &tahu.Template{HasTemplateRef: true, TemplateRef: "Other"}}
	assert.False(t, schema.MatchesMetric(other))
}
