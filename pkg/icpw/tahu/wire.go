package tahu

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers for the Sparkplug-B Payload message family. These
// are hand-assembled (no .proto/generated code) because the core only
// ever needs to produce and consume its own wire shape; see DESIGN.md.
const (
	fieldPayloadTimestamp = 1
	fieldPayloadMetrics   = 2
	fieldPayloadSeq       = 3
	fieldPayloadUUID      = 4

	fieldMetricName         = 1
	fieldMetricAlias        = 2
	fieldMetricTimestamp    = 3
	fieldMetricDatatype     = 4
	fieldMetricIsHistorical = 5
	fieldMetricIsTransient  = 6
	fieldMetricIsNull       = 7
	fieldMetricProperties   = 9
	fieldMetricInt          = 10
	fieldMetricLong         = 11
	fieldMetricFloat        = 12
	fieldMetricDouble       = 13
	fieldMetricBoolean      = 14
	fieldMetricString       = 15
	fieldMetricBytes        = 16
	fieldMetricDataset      = 17
	fieldMetricTemplate     = 18
	fieldMetricPropertyset     = 20
	fieldMetricPropertysetList = 21

	fieldDataSetNumColumns = 1
	fieldDataSetColumns    = 2
	fieldDataSetTypes      = 3
	fieldDataSetRows       = 4

	fieldRowElements = 1

	fieldDSVInt     = 1
	fieldDSVLong    = 2
	fieldDSVFloat   = 3
	fieldDSVDouble  = 4
	fieldDSVBoolean = 5
	fieldDSVString  = 6

	fieldTemplateRef          = 4
	fieldTemplateIsDefinition = 5
	fieldTemplateMetrics      = 2

	fieldPropertySetKeys   = 1
	fieldPropertySetValues = 2

	fieldPropertyValueType    = 1
	fieldPropertyValueIsNull  = 2
	fieldPropertyValueInt     = 3
	fieldPropertyValueLong    = 4
	fieldPropertyValueFloat   = 5
	fieldPropertyValueDouble  = 6
	fieldPropertyValueBoolean = 7
	fieldPropertyValueString  = 8
	fieldPropertyValuePSet    = 9
	fieldPropertyValuePSList  = 10

	fieldPropertySetListSets = 1
)

// Marshal encodes a Payload into its protobuf wire form.
func (p *Payload) Marshal() []byte {
	var b []byte
	if p.HasTimestamp {
		b = protowire.AppendTag(b, fieldPayloadTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, p.Timestamp)
	}
	for _, m := range p.Metrics {
		mb := m.marshal()
		b = protowire.AppendTag(b, fieldPayloadMetrics, protowire.BytesType)
		b = protowire.AppendBytes(b, mb)
	}
	if p.HasSeq {
		b = protowire.AppendTag(b, fieldPayloadSeq, protowire.VarintType)
		b = protowire.AppendVarint(b, p.Seq)
	}
	if p.HasUUID {
		b = protowire.AppendTag(b, fieldPayloadUUID, protowire.BytesType)
		b = protowire.AppendString(b, p.UUID)
	}
	return b
}

// UnmarshalPayload decodes a Payload from its protobuf wire form.
func UnmarshalPayload(data []byte) (*Payload, error) {
	p := &Payload{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("tahu: malformed payload tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldPayloadTimestamp:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed payload.timestamp")
			}
			p.Timestamp, p.HasTimestamp = v, true
			data = data[n:]
		case fieldPayloadMetrics:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed payload.metrics")
			}
			m, err := unmarshalMetric(v)
			if err != nil {
				return nil, err
			}
			p.Metrics = append(p.Metrics, m)
			data = data[n:]
		case fieldPayloadSeq:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed payload.seq")
			}
			p.Seq, p.HasSeq = v, true
			data = data[n:]
		case fieldPayloadUUID:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed payload.uuid")
			}
			p.UUID, p.HasUUID = string(v), true
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	return p, nil
}

func (m *Metric) marshal() []byte {
	var b []byte
	if m.HasName {
		b = protowire.AppendTag(b, fieldMetricName, protowire.BytesType)
		b = protowire.AppendString(b, m.Name)
	}
	if m.HasAlias {
		b = protowire.AppendTag(b, fieldMetricAlias, protowire.VarintType)
		b = protowire.AppendVarint(b, m.Alias)
	}
	if m.HasTimestamp {
		b = protowire.AppendTag(b, fieldMetricTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, m.Timestamp)
	}
	b = protowire.AppendTag(b, fieldMetricDatatype, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Datatype))

	if m.IsHistorical {
		b = protowire.AppendTag(b, fieldMetricIsHistorical, protowire.VarintType)
		b = protowire.AppendVarint(b, boolVarint(true))
	}
	if m.IsTransient {
		b = protowire.AppendTag(b, fieldMetricIsTransient, protowire.VarintType)
		b = protowire.AppendVarint(b, boolVarint(true))
	}
	if m.IsNull {
		b = protowire.AppendTag(b, fieldMetricIsNull, protowire.VarintType)
		b = protowire.AppendVarint(b, boolVarint(true))
	}
	if m.Properties != nil {
		b = protowire.AppendTag(b, fieldMetricProperties, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPropertySet(m.Properties))
	}

	switch {
	case m.HasIntValue:
		b = protowire.AppendTag(b, fieldMetricInt, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.IntValue))
	case m.HasLongValue:
		b = protowire.AppendTag(b, fieldMetricLong, protowire.VarintType)
		b = protowire.AppendVarint(b, m.LongValue)
	case m.HasFloatValue:
		b = protowire.AppendTag(b, fieldMetricFloat, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(m.FloatValue))
	case m.HasDoubleValue:
		b = protowire.AppendTag(b, fieldMetricDouble, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(m.DoubleValue))
	case m.HasBooleanValue:
		b = protowire.AppendTag(b, fieldMetricBoolean, protowire.VarintType)
		b = protowire.AppendVarint(b, boolVarint(m.BooleanValue))
	case m.HasStringValue:
		b = protowire.AppendTag(b, fieldMetricString, protowire.BytesType)
		b = protowire.AppendString(b, m.StringValue)
	case m.HasBytesValue:
		b = protowire.AppendTag(b, fieldMetricBytes, protowire.BytesType)
		b = protowire.AppendBytes(b, m.BytesValue)
	case m.HasDatasetValue:
		b = protowire.AppendTag(b, fieldMetricDataset, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalDataSet(m.DatasetValue))
	case m.HasTemplateValue:
		b = protowire.AppendTag(b, fieldMetricTemplate, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalTemplate(m.TemplateValue))
	}
	return b
}

func unmarshalMetric(data []byte) (*Metric, error) {
	m := &Metric{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("tahu: malformed metric tag")
		}
		data = data[n:]
		switch num {
		case fieldMetricName:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.name")
			}
			m.Name, m.HasName = string(v), true
			data = data[n:]
		case fieldMetricAlias:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.alias")
			}
			m.Alias, m.HasAlias = v, true
			data = data[n:]
		case fieldMetricTimestamp:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.timestamp")
			}
			m.Timestamp, m.HasTimestamp = v, true
			data = data[n:]
		case fieldMetricDatatype:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.datatype")
			}
			m.Datatype = DataType(v)
			data = data[n:]
		case fieldMetricIsHistorical:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.is_historical")
			}
			m.IsHistorical = v != 0
			data = data[n:]
		case fieldMetricIsTransient:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.is_transient")
			}
			m.IsTransient = v != 0
			data = data[n:]
		case fieldMetricIsNull:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.is_null")
			}
			m.IsNull = v != 0
			data = data[n:]
		case fieldMetricProperties:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.properties")
			}
			ps, err := unmarshalPropertySet(v)
			if err != nil {
				return nil, err
			}
			m.Properties = ps
			data = data[n:]
		case fieldMetricInt:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.int_value")
			}
			m.IntValue, m.HasIntValue = uint32(v), true
			data = data[n:]
		case fieldMetricLong:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.long_value")
			}
			m.LongValue, m.HasLongValue = v, true
			data = data[n:]
		case fieldMetricFloat:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.float_value")
			}
			m.FloatValue, m.HasFloatValue = math.Float32frombits(v), true
			data = data[n:]
		case fieldMetricDouble:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.double_value")
			}
			m.DoubleValue, m.HasDoubleValue = math.Float64frombits(v), true
			data = data[n:]
		case fieldMetricBoolean:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.boolean_value")
			}
			m.BooleanValue, m.HasBooleanValue = v != 0, true
			data = data[n:]
		case fieldMetricString:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.string_value")
			}
			m.StringValue, m.HasStringValue = string(v), true
			data = data[n:]
		case fieldMetricBytes:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.bytes_value")
			}
			m.BytesValue, m.HasBytesValue = append([]byte(nil), v...), true
			data = data[n:]
		case fieldMetricDataset:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.dataset_value")
			}
			ds, err := unmarshalDataSet(v)
			if err != nil {
				return nil, err
			}
			m.DatasetValue, m.HasDatasetValue = ds, true
			data = data[n:]
		case fieldMetricTemplate:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed metric.template_value")
			}
			tmpl, err := unmarshalTemplate(v)
			if err != nil {
				return nil, err
			}
			m.TemplateValue, m.HasTemplateValue = tmpl, true
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	return m, nil
}

func marshalDataSet(ds *DataSet) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldDataSetNumColumns, protowire.VarintType)
	b = protowire.AppendVarint(b, ds.NumOfColumns)
	for _, c := range ds.Columns {
		b = protowire.AppendTag(b, fieldDataSetColumns, protowire.BytesType)
		b = protowire.AppendString(b, c)
	}
	for _, t := range ds.Types {
		b = protowire.AppendTag(b, fieldDataSetTypes, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(t))
	}
	for _, r := range ds.Rows {
		b = protowire.AppendTag(b, fieldDataSetRows, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalRow(r))
	}
	return b
}

func unmarshalDataSet(data []byte) (*DataSet, error) {
	ds := &DataSet{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("tahu: malformed dataset tag")
		}
		data = data[n:]
		switch num {
		case fieldDataSetNumColumns:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed dataset.num_of_columns")
			}
			ds.NumOfColumns = v
			data = data[n:]
		case fieldDataSetColumns:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed dataset.columns")
			}
			ds.Columns = append(ds.Columns, string(v))
			data = data[n:]
		case fieldDataSetTypes:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed dataset.types")
			}
			ds.Types = append(ds.Types, DataType(v))
			data = data[n:]
		case fieldDataSetRows:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed dataset.rows")
			}
			row, err := unmarshalRow(v)
			if err != nil {
				return nil, err
			}
			ds.Rows = append(ds.Rows, row)
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	return ds, nil
}

func marshalRow(r *DataSetRow) []byte {
	var b []byte
	for _, e := range r.Elements {
		b = protowire.AppendTag(b, fieldRowElements, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalDSV(e))
	}
	return b
}

func unmarshalRow(data []byte) (*DataSetRow, error) {
	row := &DataSetRow{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("tahu: malformed row tag")
		}
		data = data[n:]
		switch num {
		case fieldRowElements:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed row.elements")
			}
			dsv, err := unmarshalDSV(v)
			if err != nil {
				return nil, err
			}
			row.Elements = append(row.Elements, dsv)
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	return row, nil
}

func marshalDSV(v DataSetValue) []byte {
	var b []byte
	switch v.Datatype {
	case DataTypeFloat:
		b = protowire.AppendTag(b, fieldDSVFloat, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(v.FloatValue))
	case DataTypeDouble:
		b = protowire.AppendTag(b, fieldDSVDouble, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.DoubleValue))
	case DataTypeBoolean:
		b = protowire.AppendTag(b, fieldDSVBoolean, protowire.VarintType)
		b = protowire.AppendVarint(b, boolVarint(v.BooleanValue))
	case DataTypeString, DataTypeText, DataTypeDateTime:
		if v.Datatype == DataTypeDateTime {
			b = protowire.AppendTag(b, fieldDSVLong, protowire.VarintType)
			b = protowire.AppendVarint(b, v.LongValue)
		} else {
			b = protowire.AppendTag(b, fieldDSVString, protowire.BytesType)
			b = protowire.AppendString(b, v.StringValue)
		}
	case DataTypeInt64, DataTypeUInt64:
		b = protowire.AppendTag(b, fieldDSVLong, protowire.VarintType)
		b = protowire.AppendVarint(b, v.LongValue)
	default:
		b = protowire.AppendTag(b, fieldDSVInt, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.IntValue))
	}
	return b
}

func unmarshalDSV(data []byte) (DataSetValue, error) {
	var v DataSetValue
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return v, fmt.Errorf("tahu: malformed dataset value tag")
		}
		data = data[n:]
		switch num {
		case fieldDSVInt:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return v, fmt.Errorf("tahu: malformed dsv.int_value")
			}
			v.IntValue = uint32(x)
			data = data[n:]
		case fieldDSVLong:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return v, fmt.Errorf("tahu: malformed dsv.long_value")
			}
			v.LongValue = x
			data = data[n:]
		case fieldDSVFloat:
			x, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return v, fmt.Errorf("tahu: malformed dsv.float_value")
			}
			v.FloatValue = math.Float32frombits(x)
			data = data[n:]
		case fieldDSVDouble:
			x, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return v, fmt.Errorf("tahu: malformed dsv.double_value")
			}
			v.DoubleValue = math.Float64frombits(x)
			data = data[n:]
		case fieldDSVBoolean:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return v, fmt.Errorf("tahu: malformed dsv.boolean_value")
			}
			v.BooleanValue = x != 0
			data = data[n:]
		case fieldDSVString:
			x, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return v, fmt.Errorf("tahu: malformed dsv.string_value")
			}
			v.StringValue = string(x)
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return v, err
			}
			data = data[n:]
		}
	}
	return v, nil
}

func marshalTemplate(t *Template) []byte {
	var b []byte
	if t.HasTemplateRef {
		b = protowire.AppendTag(b, fieldTemplateRef, protowire.BytesType)
		b = protowire.AppendString(b, t.TemplateRef)
	}
	b = protowire.AppendTag(b, fieldTemplateIsDefinition, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(t.IsDefinition))
	for _, m := range t.Metrics {
		b = protowire.AppendTag(b, fieldTemplateMetrics, protowire.BytesType)
		b = protowire.AppendBytes(b, m.marshal())
	}
	return b
}

func unmarshalTemplate(data []byte) (*Template, error) {
	t := &Template{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("tahu: malformed template tag")
		}
		data = data[n:]
		switch num {
		case fieldTemplateRef:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed template.template_ref")
			}
			t.TemplateRef, t.HasTemplateRef = string(v), true
			data = data[n:]
		case fieldTemplateIsDefinition:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed template.is_definition")
			}
			t.IsDefinition = v != 0
			data = data[n:]
		case fieldTemplateMetrics:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed template.metrics")
			}
			m, err := unmarshalMetric(v)
			if err != nil {
				return nil, err
			}
			t.Metrics = append(t.Metrics, m)
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	return t, nil
}

func marshalPropertySet(ps *PropertySet) []byte {
	var b []byte
	for _, k := range ps.Keys {
		b = protowire.AppendTag(b, fieldPropertySetKeys, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	for _, v := range ps.Values {
		b = protowire.AppendTag(b, fieldPropertySetValues, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPropertyValue(v))
	}
	return b
}

func unmarshalPropertySet(data []byte) (*PropertySet, error) {
	ps := &PropertySet{}
	sawKey := false
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("tahu: malformed propertyset tag")
		}
		data = data[n:]
		switch num {
		case fieldPropertySetKeys:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyset.keys")
			}
			ps.Keys = append(ps.Keys, string(v))
			sawKey = true
			data = data[n:]
		case fieldPropertySetValues:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyset.values")
			}
			pv, err := unmarshalPropertyValue(v)
			if err != nil {
				return nil, err
			}
			ps.Values = append(ps.Values, pv)
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	if !sawKey {
		ps.Keys = nil
	}
	return ps, nil
}

func marshalPropertyValue(v *PropertyValue) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldPropertyValueType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v.Datatype))
	if v.IsNull {
		b = protowire.AppendTag(b, fieldPropertyValueIsNull, protowire.VarintType)
		b = protowire.AppendVarint(b, boolVarint(true))
		return b
	}
	switch v.Datatype {
	case DataTypeFloat:
		b = protowire.AppendTag(b, fieldPropertyValueFloat, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(v.FloatValue))
	case DataTypeDouble:
		b = protowire.AppendTag(b, fieldPropertyValueDouble, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.DoubleValue))
	case DataTypeBoolean:
		b = protowire.AppendTag(b, fieldPropertyValueBoolean, protowire.VarintType)
		b = protowire.AppendVarint(b, boolVarint(v.BooleanValue))
	case DataTypeString, DataTypeText:
		b = protowire.AppendTag(b, fieldPropertyValueString, protowire.BytesType)
		b = protowire.AppendString(b, v.StringValue)
	case DataTypeInt64, DataTypeUInt64, DataTypeDateTime:
		b = protowire.AppendTag(b, fieldPropertyValueLong, protowire.VarintType)
		b = protowire.AppendVarint(b, v.LongValue)
	case DataTypePropertySet:
		b = protowire.AppendTag(b, fieldPropertyValuePSet, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPropertySet(v.PropertysetValue))
	case DataTypePropertySetList:
		b = protowire.AppendTag(b, fieldPropertyValuePSList, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPropertySetList(v.PropertysetlistValue))
	default:
		b = protowire.AppendTag(b, fieldPropertyValueInt, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.IntValue))
	}
	return b
}

func unmarshalPropertyValue(data []byte) (*PropertyValue, error) {
	v := &PropertyValue{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("tahu: malformed propertyvalue tag")
		}
		data = data[n:]
		switch num {
		case fieldPropertyValueType:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyvalue.type")
			}
			v.Datatype = DataType(x)
			data = data[n:]
		case fieldPropertyValueIsNull:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyvalue.is_null")
			}
			v.IsNull = x != 0
			data = data[n:]
		case fieldPropertyValueInt:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyvalue.int_value")
			}
			v.IntValue = uint32(x)
			data = data[n:]
		case fieldPropertyValueLong:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyvalue.long_value")
			}
			v.LongValue = x
			data = data[n:]
		case fieldPropertyValueFloat:
			x, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyvalue.float_value")
			}
			v.FloatValue = math.Float32frombits(x)
			data = data[n:]
		case fieldPropertyValueDouble:
			x, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyvalue.double_value")
			}
			v.DoubleValue = math.Float64frombits(x)
			data = data[n:]
		case fieldPropertyValueBoolean:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyvalue.boolean_value")
			}
			v.BooleanValue = x != 0
			data = data[n:]
		case fieldPropertyValueString:
			x, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyvalue.string_value")
			}
			v.StringValue = string(x)
			data = data[n:]
		case fieldPropertyValuePSet:
			x, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyvalue.propertyset_value")
			}
			ps, err := unmarshalPropertySet(x)
			if err != nil {
				return nil, err
			}
			v.PropertysetValue = ps
			data = data[n:]
		case fieldPropertyValuePSList:
			x, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertyvalue.propertysets_value")
			}
			psl, err := unmarshalPropertySetList(x)
			if err != nil {
				return nil, err
			}
			v.PropertysetlistValue = psl
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	return v, nil
}

func marshalPropertySetList(l *PropertySetList) []byte {
	var b []byte
	for _, ps := range l.Propertysets {
		b = protowire.AppendTag(b, fieldPropertySetListSets, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPropertySet(ps))
	}
	return b
}

func unmarshalPropertySetList(data []byte) (*PropertySetList, error) {
	l := &PropertySetList{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("tahu: malformed propertysetlist tag")
		}
		data = data[n:]
		switch num {
		case fieldPropertySetListSets:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("tahu: malformed propertysetlist.propertysets")
			}
			ps, err := unmarshalPropertySet(v)
			if err != nil {
				return nil, err
			}
			l.Propertysets = append(l.Propertysets, ps)
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	return l, nil
}

func skipField(data []byte, typ protowire.Type) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, data)
	if n < 0 {
		return 0, fmt.Errorf("tahu: malformed field of wire type %v", typ)
	}
	return n, nil
}

func boolVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
