package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
)

func scalarField(name string, datatype tahu.DataType) *tahu.Metric {
	return &tahu.Metric{Name: name, HasName: true, Datatype: datatype}
}

func templateRefField(name, ref string) *tahu.Metric {
	return &tahu.Metric{
		Name: name, HasName: true, Datatype: tahu.DataTypeTemplate,
		HasTemplateValue: true,
		TemplateValue:    &tahu.Template{HasTemplateRef: true, TemplateRef: ref},
	}
}

func TestResolveTemplatesSimple(t *testing.T) {
	defs := map[string]*tahu.Template{
		"Reading": {Metrics: []*tahu.Metric{
			scalarField("value", tahu.DataTypeDouble),
			scalarField("ok", tahu.DataTypeBoolean),
		}},
	}

	resolved, err := resolveTemplates(defs)
	require.NoError(t, err)
	require.Contains(t, resolved, "Reading")
	schema := resolved["Reading"]
	assert.Equal(t, "Reading", schema.NetworkName)
	assert.Len(t, schema.Fields, 2)
}

func TestResolveTemplatesForwardReference(t *testing.T) {
	// "Outer" references "Inner", but is declared first in the map: the
	// fixed-point loop must still resolve it once "Inner" converts,
	// regardless of map iteration order.
	defs := map[string]*tahu.Template{
		"Outer": {Metrics: []*tahu.Metric{
			templateRefField("inner", "Inner"),
		}},
		"Inner": {Metrics: []*tahu.Metric{
			scalarField("value", tahu.DataTypeInt32),
		}},
	}

	resolved, err := resolveTemplates(defs)
	require.NoError(t, err)
	assert.Contains(t, resolved, "Inner")
	assert.Contains(t, resolved, "Outer")
}

func TestResolveTemplatesUnresolvable(t *testing.T) {
	defs := map[string]*tahu.Template{
		"Outer": {Metrics: []*tahu.Metric{
			templateRefField("inner", "DoesNotExist"),
		}},
	}

	_, err := resolveTemplates(defs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, icpwerr.UnresolvedTemplate))
}

func TestResolveTemplatesUnnamedFieldFails(t *testing.T) {
	defs := map[string]*tahu.Template{
		"Broken": {Metrics: []*tahu.Metric{
			{Datatype: tahu.DataTypeDouble},
		}},
	}

	_, err := resolveTemplates(defs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, icpwerr.MalformedWireData))
}
