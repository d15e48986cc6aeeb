package tahu

// Payload is the decoded form of a Sparkplug-B Payload protobuf message:
// a timestamp, an 8-bit (wire: 64-bit, logically wrapped at 256) sequence
// number, and an ordered list of metrics.
type Payload struct {
	HasTimestamp bool
	Timestamp    uint64 // milliseconds since epoch UTC
	HasSeq       bool
	Seq          uint64
	Metrics      []*Metric
	UUID         string
	HasUUID      bool
}

// Metric is the decoded form of a Sparkplug-B Metric protobuf message.
// Exactly one of the value fields is meaningful, selected by Datatype;
// IsNull overrides any value field.
type Metric struct {
	HasName  bool
	Name     string
	HasAlias bool
	Alias    uint64

	HasTimestamp bool
	Timestamp    uint64

	Datatype DataType

	IsHistorical bool
	IsTransient  bool
	IsNull       bool

	Properties *PropertySet

	HasIntValue bool
	IntValue    uint32 // wire carries signed 32-bit values reinterpreted as unsigned
	HasLongValue bool
	LongValue    uint64 // wire carries signed 64-bit values reinterpreted as unsigned, and DateTime
	HasFloatValue bool
	FloatValue    float32
	HasDoubleValue bool
	DoubleValue    float64
	HasBooleanValue bool
	BooleanValue    bool
	HasStringValue bool
	StringValue    string
	HasBytesValue bool
	BytesValue    []byte

	HasDatasetValue bool
	DatasetValue    *DataSet

	HasTemplateValue bool
	TemplateValue    *Template
}

// NewMetric returns an empty metric with no name, alias, or value set.
func NewMetric() *Metric {
	return &Metric{}
}

// DataSet is the decoded form of a Sparkplug-B DataSet: a set of typed
// columns and rows of scalar values, one row per data point.
type DataSet struct {
	NumOfColumns uint64
	Columns      []string
	Types        []DataType
	Rows         []*DataSetRow
}

// DataSetRow is one row of a DataSet: one scalar value per column, in
// column order.
type DataSetRow struct {
	Elements []DataSetValue
}

// DataSetValue is a single scalar cell inside a DataSet row.
type DataSetValue struct {
	Datatype     DataType
	IntValue     uint32
	LongValue    uint64
	FloatValue   float32
	DoubleValue  float64
	BooleanValue bool
	StringValue  string
}

// Template is the decoded form of a Sparkplug-B Template: either a
// definition (IsDefinition true, field values scrubbed except dataset
// schemas) or an instance (field values populated).
type Template struct {
	HasTemplateRef bool
	TemplateRef    string
	IsDefinition   bool
	Metrics        []*Metric
}

// PropertySet is a parallel keys/values property map. When Keys is nil
// (IsMap false) the set is a keyless list of values, matching the
// keyed-vs-keyless duality the Sparkplug-B spec permits.
type PropertySet struct {
	Keys   []string // nil if this set is keyless (a list, not a map)
	Values []*PropertyValue
}

// IsMap reports whether this property set carries keys (a map) as
// opposed to being a bare ordered list of values.
func (p *PropertySet) IsMap() bool {
	return p != nil && p.Keys != nil
}

// PropertyValue is the decoded form of a Sparkplug-B PropertyValue: a
// scalar, nested PropertySet, or nested PropertySetList.
type PropertyValue struct {
	Datatype DataType
	IsNull   bool

	IntValue     uint32
	LongValue    uint64
	FloatValue   float32
	DoubleValue  float64
	BooleanValue bool
	StringValue  string

	PropertysetValue     *PropertySet
	PropertysetlistValue *PropertySetList
}

// PropertySetList is an ordered list of PropertySets, each independently
// keyed or keyless.
type PropertySetList struct {
	Propertysets []*PropertySet
}
