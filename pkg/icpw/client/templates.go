package client

import (
	"fmt"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/types"
)

// resolveTemplates converts a set of template definitions (as
// collected from `_types_/<name>` metrics on a birth) into
// types.StructSchema descriptors, in dependency order.
//
// A field typed Template refers to another definition by name; since
// two definitions may reference each other in either order on the
// wire, this runs a fixed-point loop exactly like the original's
// `_make_template_types`: repeatedly convert every definition whose
// fields are all presently resolvable, until either every definition
// converts or a pass makes no progress, at which point the remaining
// names are reported as icpwerr.UnresolvedTemplate.
func resolveTemplates(defs map[string]*tahu.Template) (map[string]*types.StructSchema, error) {
	resolved := make(map[string]*types.StructSchema, len(defs))
	pending := make(map[string]*tahu.Template, len(defs))
	for name, def := range defs {
		pending[name] = def
	}

	for len(pending) > 0 {
		progressed := false
		for name, def := range pending {
			schema, ok, err := tryResolveTemplate(name, def, resolved)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			resolved[name] = schema
			delete(pending, name)
			progressed = true
		}
		if !progressed {
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			return nil, fmt.Errorf("icpw: could not resolve templates %v: %w", names, icpwerr.UnresolvedTemplate)
		}
	}
	return resolved, nil
}

// tryResolveTemplate attempts to build a StructSchema for def, given
// the schemas already resolved. It returns ok=false (not an error) if
// one of def's fields is itself a template reference not yet in
// resolved.
func tryResolveTemplate(name string, def *tahu.Template, resolved map[string]*types.StructSchema) (*types.StructSchema, bool, error) {
	fields := make([]types.FieldSchema, 0, len(def.Metrics))
	for _, m := range def.Metrics {
		if !m.HasName {
			return nil, false, fmt.Errorf("icpw: template %q has an unnamed field: %w", name, icpwerr.MalformedWireData)
		}
		newFunc, ok, err := fieldFactory(m, resolved)
		if err != nil {
			return nil, false, fmt.Errorf("icpw: template %q field %q: %w", name, m.Name, err)
		}
		if !ok {
			return nil, false, nil
		}
		fields = append(fields, types.FieldSchema{Name: m.Name, New: newFunc})
	}
	return &types.StructSchema{NetworkName: name, Fields: fields}, true, nil
}

// fieldFactory returns a zero-value factory for a definition field's
// type. ok is false (not an error) when the field is a Template
// reference to a definition not yet resolved, signalling the caller
// to retry on a later pass.
func fieldFactory(m *tahu.Metric, resolved map[string]*types.StructSchema) (func() types.Value, bool, error) {
	switch m.Datatype {
	case tahu.DataTypeDataSet:
		schema, err := arraySchemaFromDataset(m)
		if err != nil {
			return nil, false, err
		}
		return schema.New, true, nil
	case tahu.DataTypeTemplate:
		if !m.HasTemplateValue || !m.TemplateValue.HasTemplateRef {
			return nil, false, fmt.Errorf("icpw: nested template field has no template_ref: %w", icpwerr.MalformedWireData)
		}
		nested, ok := resolved[m.TemplateValue.TemplateRef]
		if !ok {
			return nil, false, nil
		}
		return nested.New, true, nil
	default:
		d, ok := types.GetScalarDescriptor(m.Datatype)
		if !ok {
			return nil, false, fmt.Errorf("icpw: unsupported field datatype %s: %w", m.Datatype, icpwerr.TypeMismatch)
		}
		return d.New, true, nil
	}
}

// arraySchemaFromDataset builds an ArraySchema from a DataSet-typed
// definition field's column types.
func arraySchemaFromDataset(m *tahu.Metric) (*types.ArraySchema, error) {
	if !m.HasDatasetValue {
		return nil, fmt.Errorf("icpw: dataset field has no dataset value: %w", icpwerr.MalformedWireData)
	}
	ds := m.DatasetValue
	columns := make([]types.ColumnSpec, len(ds.Types))
	for i, dt := range ds.Types {
		d, ok := types.GetScalarDescriptor(dt)
		if !ok {
			return nil, fmt.Errorf("icpw: unsupported array column datatype %s: %w", dt, icpwerr.TypeMismatch)
		}
		name := ""
		if i < len(ds.Columns) {
			name = ds.Columns[i]
		}
		columns[i] = types.ColumnSpec{Name: name, Descriptor: d}
	}
	return types.NewArrayType(columns...), nil
}
