package tahu

import (
	"fmt"
	"math"
)

// ConvertToUnsigned32 reinterprets a signed 32-bit value (given as an
// int64 so the caller's sign is preserved through the call) as its
// unsigned 32-bit bit pattern, the representation the wire int_value
// field always carries.
func ConvertToUnsigned32(value int64) (uint32, error) {
	if value > math.MaxUint32 {
		return 0, fmt.Errorf("tahu: cannot convert large integer %d to 32-bit", value)
	}
	if value >= 0 {
		return uint32(value), nil
	}
	if value < math.MinInt32 {
		return 0, fmt.Errorf("tahu: cannot convert small negative integer %d to 32-bit", value)
	}
	return uint32(int32(value)), nil
}

// ConvertToUnsigned64 is ConvertToUnsigned32's 64-bit counterpart, for
// the wire long_value field.
func ConvertToUnsigned64(value int64) (uint64, error) {
	return uint64(value), nil
}

// ConvertToSigned32 reverses ConvertToUnsigned32: given the unsigned
// bit pattern read off the wire, recover the signed value the sender
// meant.
func ConvertToSigned32(value uint32) int32 {
	return int32(value)
}

// ConvertToSigned64 reverses ConvertToUnsigned64.
func ConvertToSigned64(value uint64) int64 {
	return int64(value)
}

// SetScalarValue sets a scalar Go value into m according to datatype,
// following the wire's field-per-kind convention: signed integer kinds
// reinterpret as their unsigned wire field, Boolean/Float/Double/String
// set their own field directly, and DateTime reuses long_value.
func SetScalarValue(m *Metric, datatype DataType, value any) error {
	m.Datatype = datatype
	switch datatype {
	case DataTypeInt8, DataTypeInt16, DataTypeInt32:
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		u, err := ConvertToUnsigned32(v)
		if err != nil {
			return err
		}
		m.IntValue, m.HasIntValue = u, true
	case DataTypeUInt8, DataTypeUInt16, DataTypeUInt32:
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("tahu: negative number %d passed for unsigned type %s", v, datatype)
		}
		u, err := ConvertToUnsigned32(v)
		if err != nil {
			return err
		}
		m.IntValue, m.HasIntValue = u, true
	case DataTypeInt64:
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		u, err := ConvertToUnsigned64(v)
		if err != nil {
			return err
		}
		m.LongValue, m.HasLongValue = u, true
	case DataTypeUInt64:
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("tahu: negative number %d passed for unsigned type %s", v, datatype)
		}
		u, err := ConvertToUnsigned64(v)
		if err != nil {
			return err
		}
		m.LongValue, m.HasLongValue = u, true
	case DataTypeFloat:
		v, err := asFloat64(value)
		if err != nil {
			return err
		}
		m.FloatValue, m.HasFloatValue = float32(v), true
	case DataTypeDouble:
		v, err := asFloat64(value)
		if err != nil {
			return err
		}
		m.DoubleValue, m.HasDoubleValue = v, true
	case DataTypeBoolean:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("tahu: %v is not a bool", value)
		}
		m.BooleanValue, m.HasBooleanValue = v, true
	case DataTypeString, DataTypeText:
		switch v := value.(type) {
		case string:
			m.StringValue, m.HasStringValue = v, true
		case []byte:
			m.StringValue, m.HasStringValue = string(v), true
		default:
			m.StringValue, m.HasStringValue = fmt.Sprint(value), true
		}
	case DataTypeDateTime:
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		m.LongValue, m.HasLongValue = uint64(v), true
	default:
		return fmt.Errorf("tahu: unsupported scalar datatype %s", datatype)
	}
	return nil
}

func asInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("tahu: %v (%T) is not an integer", value, value)
	}
}

// SetIntoDataSetValue sets a scalar Go value into a DataSet row
// element, using the same per-datatype field convention as
// SetScalarValue (DataSetValue and Metric share field names for
// exactly this reason).
func SetIntoDataSetValue(v *DataSetValue, datatype DataType, value any) error {
	v.Datatype = datatype
	switch datatype {
	case DataTypeInt8, DataTypeInt16, DataTypeInt32:
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		u, err := ConvertToUnsigned32(n)
		if err != nil {
			return err
		}
		v.IntValue = u
	case DataTypeUInt8, DataTypeUInt16, DataTypeUInt32:
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("tahu: negative number %d passed for unsigned type %s", n, datatype)
		}
		u, err := ConvertToUnsigned32(n)
		if err != nil {
			return err
		}
		v.IntValue = u
	case DataTypeInt64, DataTypeDateTime:
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		u, err := ConvertToUnsigned64(n)
		if err != nil {
			return err
		}
		v.LongValue = u
	case DataTypeUInt64:
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("tahu: negative number %d passed for unsigned type %s", n, datatype)
		}
		u, err := ConvertToUnsigned64(n)
		if err != nil {
			return err
		}
		v.LongValue = u
	case DataTypeFloat:
		f, err := asFloat64(value)
		if err != nil {
			return err
		}
		v.FloatValue = float32(f)
	case DataTypeDouble:
		f, err := asFloat64(value)
		if err != nil {
			return err
		}
		v.DoubleValue = f
	case DataTypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("tahu: %v is not a bool", value)
		}
		v.BooleanValue = b
	case DataTypeString, DataTypeText:
		switch s := value.(type) {
		case string:
			v.StringValue = s
		case []byte:
			v.StringValue = string(s)
		default:
			v.StringValue = fmt.Sprint(value)
		}
	default:
		return fmt.Errorf("tahu: unsupported dataset scalar datatype %s", datatype)
	}
	return nil
}

func asFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("tahu: %v (%T) is not a number", value, value)
	}
}
