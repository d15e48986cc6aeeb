package tahu

import "fmt"

// NewPropertyValue infers a PropertyValue's datatype from the dynamic Go
// type of v: bool maps to Boolean, any integer type to Int64, any float
// type to Double, and string to String. A *PropertyValue, *PropertySet,
// or *PropertySetList is wrapped directly rather than reinterpreted.
func NewPropertyValue(v any) (*PropertyValue, error) {
	switch x := v.(type) {
	case *PropertyValue:
		return x, nil
	case *PropertySet:
		return &PropertyValue{Datatype: DataTypePropertySet, PropertysetValue: x}, nil
	case *PropertySetList:
		return &PropertyValue{Datatype: DataTypePropertySetList, PropertysetlistValue: x}, nil
	case bool:
		return &PropertyValue{Datatype: DataTypeBoolean, BooleanValue: x}, nil
	case int:
		return &PropertyValue{Datatype: DataTypeInt64, LongValue: uint64(int64(x))}, nil
	case int64:
		return &PropertyValue{Datatype: DataTypeInt64, LongValue: uint64(x)}, nil
	case int8, int16, int32, uint, uint8, uint16, uint32, uint64:
		n, _ := asInt64(x)
		return &PropertyValue{Datatype: DataTypeInt64, LongValue: uint64(n)}, nil
	case float64:
		return &PropertyValue{Datatype: DataTypeDouble, DoubleValue: x}, nil
	case float32:
		return &PropertyValue{Datatype: DataTypeDouble, DoubleValue: float64(x)}, nil
	case string:
		return &PropertyValue{Datatype: DataTypeString, StringValue: x}, nil
	case nil:
		return &PropertyValue{IsNull: true}, nil
	default:
		return nil, fmt.Errorf("tahu: unserializable metric property value %v (%T)", v, v)
	}
}

// Unwrap returns the PropertyValue's contents as a plain Go value:
// bool, int64, float64, string, *PropertySet, or *PropertySetList. It
// returns nil if IsNull.
func (v *PropertyValue) Unwrap() any {
	if v.IsNull {
		return nil
	}
	switch v.Datatype {
	case DataTypeBoolean:
		return v.BooleanValue
	case DataTypeString, DataTypeText:
		return v.StringValue
	case DataTypeDouble, DataTypeFloat:
		if v.Datatype == DataTypeFloat {
			return float64(v.FloatValue)
		}
		return v.DoubleValue
	case DataTypePropertySet:
		return v.PropertysetValue
	case DataTypePropertySetList:
		return v.PropertysetlistValue
	case DataTypeInt8, DataTypeInt16, DataTypeInt32:
		return int64(int32(v.IntValue))
	case DataTypeUInt8, DataTypeUInt16, DataTypeUInt32:
		return int64(v.IntValue)
	default:
		return int64(v.LongValue)
	}
}

// NewPropertySetFromMap builds a keyed PropertySet from the entries of
// pairs. The order of the resulting keys follows Go's map iteration
// order, so it is not defined.
func NewPropertySetFromMap(pairs map[string]any) (*PropertySet, error) {
	ps := &PropertySet{Keys: []string{}}
	for k, v := range pairs {
		pv, err := NewPropertyValue(v)
		if err != nil {
			return nil, fmt.Errorf("tahu: property %q: %w", k, err)
		}
		ps.Keys = append(ps.Keys, k)
		ps.Values = append(ps.Values, pv)
	}
	return ps, nil
}

// NewPropertySetFromList builds a keyless PropertySet (a bare ordered
// list of values). This shape is valid in the wire protobuf but is not
// part of the Sparkplug-B spec proper; not every client implementation
// will understand it.
func NewPropertySetFromList(values []any) (*PropertySet, error) {
	ps := &PropertySet{}
	for i, v := range values {
		pv, err := NewPropertyValue(v)
		if err != nil {
			return nil, fmt.Errorf("tahu: property list element %d: %w", i, err)
		}
		ps.Values = append(ps.Values, pv)
	}
	return ps, nil
}

// Get returns the value of the keyed property named key, or false if
// this set has no such key (or is keyless).
func (p *PropertySet) Get(key string) (*PropertyValue, bool) {
	if p == nil {
		return nil, false
	}
	for i, k := range p.Keys {
		if k == key {
			return p.Values[i], true
		}
	}
	return nil, false
}

// Set assigns the keyed property named key, appending it if absent.
// Calling Set on a keyless PropertySet turns it into a keyed one.
func (p *PropertySet) Set(key string, v any) error {
	pv, err := NewPropertyValue(v)
	if err != nil {
		return fmt.Errorf("tahu: property %q: %w", key, err)
	}
	for i, k := range p.Keys {
		if k == key {
			p.Values[i] = pv
			return nil
		}
	}
	p.Keys = append(p.Keys, key)
	p.Values = append(p.Values, pv)
	return nil
}

// GetBool returns the boolean value of a keyed property, or def if
// absent or not a boolean.
func (p *PropertySet) GetBool(key string, def bool) bool {
	v, ok := p.Get(key)
	if !ok || v.Datatype != DataTypeBoolean {
		return def
	}
	return v.BooleanValue
}

// BuildEndpointProperty constructs a metric wrapper for an endpoint
// property: a metric carrying the PropertyEndpointProperty reserved
// property set to true, with value set from icpwValue. Icypaw clients
// exclude metrics so flagged from ordinary metric collections.
func BuildEndpointProperty(key string, icpwValue ScalarSetter) (*Metric, error) {
	m := NewMetric()
	ps, err := NewPropertySetFromMap(map[string]any{PropertyEndpointProperty: true})
	if err != nil {
		return nil, err
	}
	m.Name, m.HasName = key, true
	m.Properties = ps
	if err := icpwValue.SetIntoMetric(m); err != nil {
		return nil, err
	}
	return m, nil
}

// IsEndpointProperty reports whether m is the container for an
// endpoint property, per BuildEndpointProperty's convention.
func IsEndpointProperty(m *Metric) bool {
	return m.Properties.GetBool(PropertyEndpointProperty, false)
}

// ScalarSetter is implemented by values that know how to encode
// themselves into a wire Metric; the types package's scalar value
// kinds satisfy this so tahu need not import types.
type ScalarSetter interface {
	SetIntoMetric(m *Metric) error
}
