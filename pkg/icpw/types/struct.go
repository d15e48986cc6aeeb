package types

import (
	"fmt"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
)

// FieldSchema describes one field of a record type: its wire name and
// a zero-value factory for the field's Value kind.
type FieldSchema struct {
	Name string
	New  func() Value
}

// StructSchema describes a record ("Struct" in the original Tahu
// client/server code) type: its wire template name and ordered field
// list. Where the Python implementation discovered fields by walking a
// class's annotated descriptors, a StructSchema is built explicitly
// once per record type and shared by every Struct instance of that
// type — Go has no equivalent of Python's per-class descriptor
// protocol, so the schema plays that role as an ordinary value.
type StructSchema struct {
	NetworkName string
	Fields      []FieldSchema
}

// Datatype implements Descriptor.
func (s *StructSchema) Datatype() tahu.DataType { return tahu.DataTypeTemplate }

// New implements Descriptor, returning a Struct with every field set
// to its zero value.
func (s *StructSchema) New() Value {
	values := make(map[string]Value, len(s.Fields))
	for _, f := range s.Fields {
		values[f.Name] = f.New()
	}
	return &Struct{schema: s, values: values}
}

// MatchesMetric implements Descriptor: a metric matches this schema
// only if it carries a template value whose template_ref names this
// schema.
func (s *StructSchema) MatchesMetric(m *tahu.Metric) bool {
	return m.HasTemplateValue && m.TemplateValue.HasTemplateRef && m.TemplateValue.TemplateRef == s.NetworkName
}

// Struct is a record value: a fixed set of named fields, each itself
// an Icypaw Value, serialized as a Sparkplug-B Template.
type Struct struct {
	schema *StructSchema
	values map[string]Value
}

// NewStruct returns a Struct of the given schema, using fieldValues
// (by wire field name) where given and each field's zero value
// otherwise.
func NewStruct(schema *StructSchema, fieldValues map[string]Value) (*Struct, error) {
	values := make(map[string]Value, len(schema.Fields))
	for _, f := range schema.Fields {
		if v, ok := fieldValues[f.Name]; ok {
			values[f.Name] = v
		} else {
			values[f.Name] = f.New()
		}
	}
	for name := range fieldValues {
		if _, ok := values[name]; !ok {
			return nil, fmt.Errorf("tahu: %q is not a field of %s: %w", name, schema.NetworkName, icpwerr.UnknownMetric)
		}
	}
	return &Struct{schema: schema, values: values}, nil
}

// Schema returns the schema this struct was built from.
func (s *Struct) Schema() *StructSchema { return s.schema }

// Get returns the field named name, or false if no such field exists.
func (s *Struct) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Set assigns the field named name. It panics if name is not a field
// of this struct's schema, mirroring the original's assumption that
// field access is validated at schema-definition time.
func (s *Struct) Set(name string, v Value) {
	if _, ok := s.values[name]; !ok {
		panic(fmt.Sprintf("tahu: %q is not a field of %s", name, s.schema.NetworkName))
	}
	s.values[name] = v
}

func (s *Struct) makeTahuTemplate() *tahu.Template {
	t := &tahu.Template{HasTemplateRef: true, TemplateRef: s.schema.NetworkName}
	for _, f := range s.schema.Fields {
		m := tahu.NewMetric()
		m.Name, m.HasName = f.Name, true
		if err := s.values[f.Name].SetIntoMetric(m); err != nil {
			continue
		}
		t.Metrics = append(t.Metrics, m)
	}
	return t
}

func (s *Struct) SetIntoMetric(m *tahu.Metric) error {
	m.Datatype = tahu.DataTypeTemplate
	m.HasTemplateValue, m.TemplateValue = true, s.makeTahuTemplate()
	return nil
}

// SetDifferenceIntoMetric serializes only the fields that differ from
// other, the space-saving form steady-state NDATA/DDATA messages use
// for record-typed metrics.
func (s *Struct) SetDifferenceIntoMetric(m *tahu.Metric, other Value) error {
	o, ok := other.(*Struct)
	if !ok {
		return s.SetIntoMetric(m)
	}
	t := &tahu.Template{HasTemplateRef: true, TemplateRef: s.schema.NetworkName}
	for _, f := range s.schema.Fields {
		cur, prev := s.values[f.Name], o.values[f.Name]
		if cur.Equals(prev) {
			continue
		}
		fm := tahu.NewMetric()
		fm.Name, fm.HasName = f.Name, true
		if err := cur.SetDifferenceIntoMetric(fm, prev); err != nil {
			return err
		}
		t.Metrics = append(t.Metrics, fm)
	}
	m.Datatype = tahu.DataTypeTemplate
	m.HasTemplateValue, m.TemplateValue = true, t
	return nil
}

// MergeFromMetric applies every field carried in m's template value,
// leaving fields m does not mention unchanged. This is the partial
// update the record type exists to support.
func (s *Struct) MergeFromMetric(m *tahu.Metric) error {
	if !m.HasTemplateValue {
		return fmt.Errorf("tahu: metric has no template value: %w", icpwerr.MalformedWireData)
	}
	for _, fm := range m.TemplateValue.Metrics {
		if !fm.HasName {
			continue
		}
		cur, ok := s.values[fm.Name]
		if !ok {
			return fmt.Errorf("tahu: %q is not a field of %s: %w", fm.Name, s.schema.NetworkName, icpwerr.UnknownMetric)
		}
		if err := cur.MergeFromMetric(fm); err != nil {
			return fmt.Errorf("tahu: field %q: %w", fm.Name, err)
		}
	}
	return nil
}

func (s *Struct) Copy() Value {
	values := make(map[string]Value, len(s.values))
	for name, v := range s.values {
		values[name] = v.Copy()
	}
	return &Struct{schema: s.schema, values: values}
}

func (s *Struct) ToPython() any {
	out := make(map[string]any, len(s.values))
	for name, v := range s.values {
		out[name] = v.ToPython()
	}
	return out
}

// FromPlain sets every field from m, the inverse of ToPython. Unknown
// keys are rejected the same way NewStruct rejects them; fields m does
// not mention are left unchanged.
func (s *Struct) FromPlain(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("tahu: expected map[string]any for %s, got %T: %w", s.schema.NetworkName, v, icpwerr.TypeMismatch)
	}
	for name, fv := range m {
		cur, ok := s.values[name]
		if !ok {
			return fmt.Errorf("tahu: %q is not a field of %s: %w", name, s.schema.NetworkName, icpwerr.UnknownMetric)
		}
		if err := cur.FromPlain(fv); err != nil {
			return fmt.Errorf("tahu: field %q: %w", name, err)
		}
	}
	return nil
}

func (s *Struct) Equals(other Value) bool { return equalByPlain(s, other) }
