package types

import (
	"fmt"
	"time"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
)

// scalarDescriptor is the Descriptor for every built-in scalar kind:
// matching a metric only requires the datatype tag to agree, since
// scalars carry no further discriminator like a Struct's template_ref.
type scalarDescriptor struct {
	datatype tahu.DataType
	newFunc  func() Value
}

func (d scalarDescriptor) Datatype() tahu.DataType { return d.datatype }
func (d scalarDescriptor) New() Value              { return d.newFunc() }
func (d scalarDescriptor) MatchesMetric(m *tahu.Metric) bool { return m.Datatype == d.datatype }

var builtinScalarDescriptors = []Descriptor{
	scalarDescriptor{tahu.DataTypeInt8, func() Value { return NewInt32(0) }},
	scalarDescriptor{tahu.DataTypeInt16, func() Value { return NewInt32(0) }},
	scalarDescriptor{tahu.DataTypeInt32, func() Value { return NewInt32(0) }},
	scalarDescriptor{tahu.DataTypeInt64, func() Value { return NewInt64(0) }},
	scalarDescriptor{tahu.DataTypeUInt8, func() Value { return NewUInt32(0) }},
	scalarDescriptor{tahu.DataTypeUInt16, func() Value { return NewUInt32(0) }},
	scalarDescriptor{tahu.DataTypeUInt32, func() Value { return NewUInt32(0) }},
	scalarDescriptor{tahu.DataTypeUInt64, func() Value { return NewUInt64(0) }},
	scalarDescriptor{tahu.DataTypeFloat, func() Value { return NewFloat(0) }},
	scalarDescriptor{tahu.DataTypeDouble, func() Value { return NewDouble(0) }},
	scalarDescriptor{tahu.DataTypeBoolean, func() Value { return NewBoolean(false) }},
	scalarDescriptor{tahu.DataTypeString, func() Value { return NewString("") }},
	scalarDescriptor{tahu.DataTypeText, func() Value { return NewString("") }},
	scalarDescriptor{tahu.DataTypeBytes, func() Value { return NewBytes(nil) }},
	scalarDescriptor{tahu.DataTypeDateTime, func() Value { return NewDateTime(time.Unix(0, 0)) }},
}

// GetScalarDescriptor returns the built-in scalar Descriptor carried
// under datatype, or false if datatype names a composite kind.
func GetScalarDescriptor(datatype tahu.DataType) (Descriptor, bool) {
	for _, d := range builtinScalarDescriptors {
		if d.Datatype() == datatype {
			return d, true
		}
	}
	return nil, false
}

// Int32 is a 32-bit signed integer value.
type Int32 struct{ v int32 }

// NewInt32 returns an Int32 wrapping v.
func NewInt32(v int32) *Int32 { return &Int32{v} }

// Int returns the wrapped value.
func (x *Int32) Int() int32 { return x.v }

func (x *Int32) SetIntoMetric(m *tahu.Metric) error {
	return tahu.SetScalarValue(m, tahu.DataTypeInt32, int64(x.v))
}
func (x *Int32) SetDifferenceIntoMetric(m *tahu.Metric, _ Value) error { return x.SetIntoMetric(m) }
func (x *Int32) MergeFromMetric(m *tahu.Metric) error {
	x.v = tahu.ConvertToSigned32(m.IntValue)
	return nil
}
func (x *Int32) Copy() Value   { return NewInt32(x.v) }
func (x *Int32) ToPython() any { return x.v }
func (x *Int32) FromPlain(v any) error {
	iv, ok := v.(int32)
	if !ok {
		return fmt.Errorf("tahu: expected int32, got %T: %w", v, icpwerr.TypeMismatch)
	}
	x.v = iv
	return nil
}
func (x *Int32) Equals(other Value) bool { return equalByPlain(x, other) }

// Int64 is a 64-bit signed integer value.
type Int64 struct{ v int64 }

// NewInt64 returns an Int64 wrapping v.
func NewInt64(v int64) *Int64 { return &Int64{v} }

// Int returns the wrapped value.
func (x *Int64) Int() int64 { return x.v }

func (x *Int64) SetIntoMetric(m *tahu.Metric) error {
	return tahu.SetScalarValue(m, tahu.DataTypeInt64, x.v)
}
func (x *Int64) SetDifferenceIntoMetric(m *tahu.Metric, _ Value) error { return x.SetIntoMetric(m) }
func (x *Int64) MergeFromMetric(m *tahu.Metric) error {
	x.v = tahu.ConvertToSigned64(m.LongValue)
	return nil
}
func (x *Int64) Copy() Value   { return NewInt64(x.v) }
func (x *Int64) ToPython() any { return x.v }
func (x *Int64) FromPlain(v any) error {
	iv, ok := v.(int64)
	if !ok {
		return fmt.Errorf("tahu: expected int64, got %T: %w", v, icpwerr.TypeMismatch)
	}
	x.v = iv
	return nil
}
func (x *Int64) Equals(other Value) bool { return equalByPlain(x, other) }

// UInt32 is a 32-bit unsigned integer value.
type UInt32 struct{ v uint32 }

// NewUInt32 returns a UInt32 wrapping v.
func NewUInt32(v uint32) *UInt32 { return &UInt32{v} }

// Uint returns the wrapped value.
func (x *UInt32) Uint() uint32 { return x.v }

func (x *UInt32) SetIntoMetric(m *tahu.Metric) error {
	return tahu.SetScalarValue(m, tahu.DataTypeUInt32, int64(x.v))
}
func (x *UInt32) SetDifferenceIntoMetric(m *tahu.Metric, _ Value) error { return x.SetIntoMetric(m) }
func (x *UInt32) MergeFromMetric(m *tahu.Metric) error {
	x.v = m.IntValue
	return nil
}
func (x *UInt32) Copy() Value   { return NewUInt32(x.v) }
func (x *UInt32) ToPython() any { return x.v }
func (x *UInt32) FromPlain(v any) error {
	uv, ok := v.(uint32)
	if !ok {
		return fmt.Errorf("tahu: expected uint32, got %T: %w", v, icpwerr.TypeMismatch)
	}
	x.v = uv
	return nil
}
func (x *UInt32) Equals(other Value) bool { return equalByPlain(x, other) }

// UInt64 is a 64-bit unsigned integer value.
type UInt64 struct{ v uint64 }

// NewUInt64 returns a UInt64 wrapping v.
func NewUInt64(v uint64) *UInt64 { return &UInt64{v} }

// Uint returns the wrapped value.
func (x *UInt64) Uint() uint64 { return x.v }

func (x *UInt64) SetIntoMetric(m *tahu.Metric) error {
	return tahu.SetScalarValue(m, tahu.DataTypeUInt64, int64(x.v))
}
func (x *UInt64) SetDifferenceIntoMetric(m *tahu.Metric, _ Value) error { return x.SetIntoMetric(m) }
func (x *UInt64) MergeFromMetric(m *tahu.Metric) error {
	x.v = m.LongValue
	return nil
}
func (x *UInt64) Copy() Value   { return NewUInt64(x.v) }
func (x *UInt64) ToPython() any { return x.v }
func (x *UInt64) FromPlain(v any) error {
	uv, ok := v.(uint64)
	if !ok {
		return fmt.Errorf("tahu: expected uint64, got %T: %w", v, icpwerr.TypeMismatch)
	}
	x.v = uv
	return nil
}
func (x *UInt64) Equals(other Value) bool { return equalByPlain(x, other) }

// Float is a single-precision floating point value.
type Float struct{ v float32 }

// NewFloat returns a Float wrapping v.
func NewFloat(v float32) *Float { return &Float{v} }

// Float32 returns the wrapped value.
func (x *Float) Float32() float32 { return x.v }

func (x *Float) SetIntoMetric(m *tahu.Metric) error {
	return tahu.SetScalarValue(m, tahu.DataTypeFloat, float64(x.v))
}
func (x *Float) SetDifferenceIntoMetric(m *tahu.Metric, _ Value) error { return x.SetIntoMetric(m) }
func (x *Float) MergeFromMetric(m *tahu.Metric) error {
	x.v = m.FloatValue
	return nil
}
func (x *Float) Copy() Value   { return NewFloat(x.v) }
func (x *Float) ToPython() any { return x.v }
func (x *Float) FromPlain(v any) error {
	fv, ok := v.(float32)
	if !ok {
		return fmt.Errorf("tahu: expected float32, got %T: %w", v, icpwerr.TypeMismatch)
	}
	x.v = fv
	return nil
}
func (x *Float) Equals(other Value) bool { return equalByPlain(x, other) }

// Double is a double-precision floating point value.
type Double struct{ v float64 }

// NewDouble returns a Double wrapping v.
func NewDouble(v float64) *Double { return &Double{v} }

// Float64 returns the wrapped value.
func (x *Double) Float64() float64 { return x.v }

func (x *Double) SetIntoMetric(m *tahu.Metric) error {
	return tahu.SetScalarValue(m, tahu.DataTypeDouble, x.v)
}
func (x *Double) SetDifferenceIntoMetric(m *tahu.Metric, _ Value) error { return x.SetIntoMetric(m) }
func (x *Double) MergeFromMetric(m *tahu.Metric) error {
	x.v = m.DoubleValue
	return nil
}
func (x *Double) Copy() Value   { return NewDouble(x.v) }
func (x *Double) ToPython() any { return x.v }
func (x *Double) FromPlain(v any) error {
	dv, ok := v.(float64)
	if !ok {
		return fmt.Errorf("tahu: expected float64, got %T: %w", v, icpwerr.TypeMismatch)
	}
	x.v = dv
	return nil
}
func (x *Double) Equals(other Value) bool { return equalByPlain(x, other) }

// Boolean is a boolean value.
type Boolean struct{ v bool }

// NewBoolean returns a Boolean wrapping v.
func NewBoolean(v bool) *Boolean { return &Boolean{v} }

// Bool returns the wrapped value.
func (x *Boolean) Bool() bool { return x.v }

func (x *Boolean) SetIntoMetric(m *tahu.Metric) error {
	return tahu.SetScalarValue(m, tahu.DataTypeBoolean, x.v)
}
func (x *Boolean) SetDifferenceIntoMetric(m *tahu.Metric, _ Value) error { return x.SetIntoMetric(m) }
func (x *Boolean) MergeFromMetric(m *tahu.Metric) error {
	x.v = m.BooleanValue
	return nil
}
func (x *Boolean) Copy() Value   { return NewBoolean(x.v) }
func (x *Boolean) ToPython() any { return x.v }
func (x *Boolean) FromPlain(v any) error {
	bv, ok := v.(bool)
	if !ok {
		return fmt.Errorf("tahu: expected bool, got %T: %w", v, icpwerr.TypeMismatch)
	}
	x.v = bv
	return nil
}
func (x *Boolean) Equals(other Value) bool { return equalByPlain(x, other) }

// String is a unicode string value.
type String struct{ v string }

// NewString returns a String wrapping v.
func NewString(v string) *String { return &String{v} }

// Str returns the wrapped value.
func (x *String) Str() string { return x.v }

func (x *String) SetIntoMetric(m *tahu.Metric) error {
	return tahu.SetScalarValue(m, tahu.DataTypeString, x.v)
}
func (x *String) SetDifferenceIntoMetric(m *tahu.Metric, _ Value) error { return x.SetIntoMetric(m) }
func (x *String) MergeFromMetric(m *tahu.Metric) error {
	x.v = m.StringValue
	return nil
}
func (x *String) Copy() Value   { return NewString(x.v) }
func (x *String) ToPython() any { return x.v }
func (x *String) FromPlain(v any) error {
	sv, ok := v.(string)
	if !ok {
		return fmt.Errorf("tahu: expected string, got %T: %w", v, icpwerr.TypeMismatch)
	}
	x.v = sv
	return nil
}
func (x *String) Equals(other Value) bool { return equalByPlain(x, other) }

// Bytes is a raw byte-string value.
type Bytes struct{ v []byte }

// NewBytes returns a Bytes wrapping v.
func NewBytes(v []byte) *Bytes { return &Bytes{append([]byte(nil), v...)} }

// Raw returns the wrapped value.
func (x *Bytes) Raw() []byte { return x.v }

func (x *Bytes) SetIntoMetric(m *tahu.Metric) error {
	m.Datatype = tahu.DataTypeBytes
	m.BytesValue, m.HasBytesValue = append([]byte(nil), x.v...), true
	return nil
}
func (x *Bytes) SetDifferenceIntoMetric(m *tahu.Metric, _ Value) error { return x.SetIntoMetric(m) }
func (x *Bytes) MergeFromMetric(m *tahu.Metric) error {
	x.v = append([]byte(nil), m.BytesValue...)
	return nil
}
func (x *Bytes) Copy() Value   { return NewBytes(x.v) }
func (x *Bytes) ToPython() any { return append([]byte(nil), x.v...) }
func (x *Bytes) FromPlain(v any) error {
	bv, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("tahu: expected []byte, got %T: %w", v, icpwerr.TypeMismatch)
	}
	x.v = append([]byte(nil), bv...)
	return nil
}
func (x *Bytes) Equals(other Value) bool { return equalByPlain(x, other) }

// DateTime is a point in time, carried on the wire as milliseconds
// since the Unix epoch (UTC).
type DateTime struct{ v time.Time }

// NewDateTime returns a DateTime wrapping v.
func NewDateTime(v time.Time) *DateTime { return &DateTime{v} }

// Time returns the wrapped value.
func (x *DateTime) Time() time.Time { return x.v }

func (x *DateTime) SetIntoMetric(m *tahu.Metric) error {
	return tahu.SetScalarValue(m, tahu.DataTypeDateTime, x.v.UTC().UnixMilli())
}
func (x *DateTime) SetDifferenceIntoMetric(m *tahu.Metric, _ Value) error { return x.SetIntoMetric(m) }
func (x *DateTime) MergeFromMetric(m *tahu.Metric) error {
	if m.IsNull {
		x.v = time.Unix(0, 0).UTC()
		return nil
	}
	x.v = time.UnixMilli(int64(m.LongValue)).Local()
	return nil
}
func (x *DateTime) Copy() Value   { return NewDateTime(x.v) }
func (x *DateTime) ToPython() any { return x.v }
func (x *DateTime) FromPlain(v any) error {
	tv, ok := v.(time.Time)
	if !ok {
		return fmt.Errorf("tahu: expected time.Time, got %T: %w", v, icpwerr.TypeMismatch)
	}
	x.v = tv
	return nil
}
func (x *DateTime) Equals(other Value) bool { return equalByPlain(x, other) }
