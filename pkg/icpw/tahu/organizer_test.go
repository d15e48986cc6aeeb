package tahu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganizerSetInitialMetricsAssignsAliases(t *testing.T) {
	o := NewMetricOrganizer()
	o.SetInitialMetrics([]*Metric{
		{Name: "temperature", HasName: true, Datatype: DataTypeDouble},
		{Name: "setpoint", HasName: true, Datatype: DataTypeDouble},
	})

	a1, err := o.AliasOf("temperature")
	require.NoError(t, err)
	a2, err := o.AliasOf("setpoint")
	require.NoError(t, err)
	assert.NotEqual(t, a1, a2)

	name, err := o.NameOf(a1)
	require.NoError(t, err)
	assert.Equal(t, "temperature", name)
}

func TestOrganizerTemplateDefinitionsBeforeCommitErrors(t *testing.T) {
	o := NewMetricOrganizer()
	_, err := o.TemplateDefinitions()
	assert.Error(t, err)
}

func TestOrganizerSetRejectsUnknownMetricWithoutAddIfMissing(t *testing.T) {
	o := NewMetricOrganizer()
	o.SetInitialMetrics(nil)
	err := o.Set(&Metric{Name: "temperature", HasName: true, Datatype: DataTypeDouble}, false)
	assert.Error(t, err)
}

func TestOrganizerSetRejectsTypeMismatch(t *testing.T) {
	o := NewMetricOrganizer()
	o.SetInitialMetrics([]*Metric{{Name: "temperature", HasName: true, Datatype: DataTypeDouble}})
	err := o.Set(&Metric{Name: "temperature", HasName: true, Datatype: DataTypeInt32}, false)
	assert.Error(t, err)
}

func TestOrganizerGetAndCommitStripsNameKeepsAlias(t *testing.T) {
	o := NewMetricOrganizer()
	o.SetInitialMetrics([]*Metric{{Name: "temperature", HasName: true, Datatype: DataTypeDouble}})
	alias, err := o.AliasOf("temperature")
	require.NoError(t, err)

	require.NoError(t, o.Set(&Metric{Name: "temperature", HasName: true, Datatype: DataTypeDouble, HasDoubleValue: true, DoubleValue: 30}, false))
	out := o.GetAndCommit()
	require.Len(t, out, 1)
	assert.False(t, out[0].HasName)
	assert.Equal(t, alias, out[0].Alias)
	assert.Equal(t, 30.0, out[0].DoubleValue)
}

func TestOrganizerGetAllReturnsNameAndAlias(t *testing.T) {
	o := NewMetricOrganizer()
	o.SetInitialMetrics([]*Metric{{Name: "temperature", HasName: true, Datatype: DataTypeDouble}})
	all := o.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "temperature", all[0].Name)
	assert.True(t, all[0].HasAlias)
}

func TestOrganizerDeleteRemovesMetric(t *testing.T) {
	o := NewMetricOrganizer()
	o.SetInitialMetrics([]*Metric{{Name: "temperature", HasName: true, Datatype: DataTypeDouble}})
	o.Delete("temperature")
	_, err := o.AliasOf("temperature")
	assert.NoError(t, err, "the alias stays reserved for the name after Delete")
	assert.Error(t, o.Set(&Metric{Name: "temperature", HasName: true, Datatype: DataTypeDouble}, false))
}

func TestOrganizerExtractsTemplateDefinition(t *testing.T) {
	o := NewMetricOrganizer()
	instance := &Template{
		TemplateRef: "Reading",
		Metrics: []*Metric{
			{Name: "value", HasName: true, Datatype: DataTypeDouble, HasDoubleValue: true, DoubleValue: 1.5},
		},
	}
	o.SetInitialMetrics([]*Metric{
		{Name: MakeTemplateDefinitionName("Reading"), HasName: true, Datatype: DataTypeTemplate, HasTemplateValue: true, TemplateValue: instance},
	})

	defs, err := o.TemplateDefinitions()
	require.NoError(t, err)
	require.Contains(t, defs, "Reading")
	def := defs["Reading"]
	assert.True(t, def.IsDefinition)
	require.Len(t, def.Metrics, 1)
	assert.False(t, def.Metrics[0].HasDoubleValue, "definition fields must have their values scrubbed")
}

func TestOrganizerNewMetricForReturnsCopy(t *testing.T) {
	o := NewMetricOrganizer()
	o.SetInitialMetrics([]*Metric{{Name: "temperature", HasName: true, Datatype: DataTypeDouble}})
	m, err := o.NewMetricFor("temperature")
	require.NoError(t, err)
	m.DoubleValue = 99
	original, err := o.NewMetricFor("temperature")
	require.NoError(t, err)
	assert.NotEqual(t, 99.0, original.DoubleValue, "NewMetricFor must return an independent copy")
}
