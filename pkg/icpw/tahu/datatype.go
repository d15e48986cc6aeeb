// Package tahu implements the Sparkplug-B ("Tahu") wire conventions: the
// payload codec, topic grammar, naming conventions, property-set shapes,
// the per-endpoint metric organizer, and the server/client wire
// interfaces built on top of them.
package tahu

// DataType is the Sparkplug-B metric datatype tag. Values are stable on
// the wire and match the Tahu payload.proto DataType enum.
type DataType uint32

const (
	DataTypeUnknown DataType = 0
	DataTypeInt8    DataType = 1
	DataTypeInt16   DataType = 2
	DataTypeInt32   DataType = 3
	DataTypeInt64   DataType = 4
	DataTypeUInt8   DataType = 5
	DataTypeUInt16  DataType = 6
	DataTypeUInt32  DataType = 7
	DataTypeUInt64  DataType = 8
	DataTypeFloat   DataType = 9
	DataTypeDouble  DataType = 10
	DataTypeBoolean DataType = 11
	DataTypeString  DataType = 12
	DataTypeDateTime DataType = 13
	DataTypeText    DataType = 14
	DataTypeBytes   DataType = 17
	DataTypeDataSet DataType = 16
	DataTypeTemplate DataType = 19
	DataTypePropertySet     DataType = 20
	DataTypePropertySetList DataType = 21
)

// String names the datatype for diagnostics, following the Tahu spec's
// canonical spelling.
func (d DataType) String() string {
	switch d {
	case DataTypeInt8:
		return "Int8"
	case DataTypeInt16:
		return "Int16"
	case DataTypeInt32:
		return "Int32"
	case DataTypeInt64:
		return "Int64"
	case DataTypeUInt8:
		return "UInt8"
	case DataTypeUInt16:
		return "UInt16"
	case DataTypeUInt32:
		return "UInt32"
	case DataTypeUInt64:
		return "UInt64"
	case DataTypeFloat:
		return "Float"
	case DataTypeDouble:
		return "Double"
	case DataTypeBoolean:
		return "Boolean"
	case DataTypeString:
		return "String"
	case DataTypeDateTime:
		return "DateTime"
	case DataTypeText:
		return "Text"
	case DataTypeBytes:
		return "Bytes"
	case DataTypeDataSet:
		return "DataSet"
	case DataTypeTemplate:
		return "Template"
	case DataTypePropertySet:
		return "PropertySet"
	case DataTypePropertySetList:
		return "PropertySetList"
	default:
		return "Unknown"
	}
}

// IsScalar reports whether d names one of the built-in scalar kinds (as
// opposed to DataSet, Template, or a PropertySet kind).
func (d DataType) IsScalar() bool {
	switch d {
	case DataTypeInt8, DataTypeInt16, DataTypeInt32, DataTypeInt64,
		DataTypeUInt8, DataTypeUInt16, DataTypeUInt32, DataTypeUInt64,
		DataTypeFloat, DataTypeDouble, DataTypeBoolean, DataTypeString,
		DataTypeDateTime, DataTypeText, DataTypeBytes:
		return true
	default:
		return false
	}
}
