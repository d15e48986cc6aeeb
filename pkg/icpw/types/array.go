package types

import (
	"fmt"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
)

// ColumnSpec names one column of an array's row tuple: its Descriptor
// (usually a built-in scalar) and, when known ahead of time, a
// human-readable name carried as the DataSet's column label.
type ColumnSpec struct {
	Name       string
	Descriptor Descriptor
}

// ArraySchema describes a typed array: a DataSet whose rows are
// tuples of the given column types. A single-column schema represents
// a plain homogeneous array; the original's syntax `Array[SomeType]`
// versus `Array[(TypeA, TypeB)]` becomes, in Go, NewArrayType with one
// or several ColumnSpecs.
type ArraySchema struct {
	Columns []ColumnSpec
}

// NewArrayType returns the ArraySchema for an array whose rows carry
// one value per given column, in order. This stands in for the
// original's dynamic Array[T] subclassing: callers build one
// ArraySchema per distinct row shape and reuse it, rather than the
// wire metric dictating a brand containing class at runtime.
func NewArrayType(columns ...ColumnSpec) *ArraySchema {
	return &ArraySchema{Columns: columns}
}

// Datatype implements Descriptor.
func (s *ArraySchema) Datatype() tahu.DataType { return tahu.DataTypeDataSet }

// New implements Descriptor, returning an empty array of this shape.
func (s *ArraySchema) New() Value {
	return &Array{schema: s}
}

// MatchesMetric implements Descriptor: the dataset's column types must
// agree with this schema's column types, in count and order.
func (s *ArraySchema) MatchesMetric(m *tahu.Metric) bool {
	if !m.HasDatasetValue {
		return false
	}
	ds := m.DatasetValue
	if len(ds.Types) != len(s.Columns) {
		return false
	}
	for i, col := range s.Columns {
		if ds.Types[i] != col.Descriptor.Datatype() {
			return false
		}
	}
	return true
}

// Array is a variable-length sequence of same-shaped rows, each row a
// tuple of one Value per ArraySchema column, serialized as a
// Sparkplug-B DataSet.
type Array struct {
	schema *ArraySchema
	rows   [][]Value
}

// Schema returns the schema this array was built from.
func (a *Array) Schema() *ArraySchema { return a.schema }

// Len returns the number of rows.
func (a *Array) Len() int { return len(a.rows) }

// Row returns the values of row i, one per column.
func (a *Array) Row(i int) []Value { return a.rows[i] }

// Append adds a row built from values, one per column in schema order.
// It returns an error if the row width does not match the schema.
func (a *Array) Append(values ...Value) error {
	if len(values) != len(a.schema.Columns) {
		return fmt.Errorf("tahu: array row has %d values, want %d: %w", len(values), len(a.schema.Columns), icpwerr.TypeMismatch)
	}
	a.rows = append(a.rows, values)
	return nil
}

func (a *Array) SetIntoMetric(m *tahu.Metric) error {
	ds := &tahu.DataSet{
		NumOfColumns: uint64(len(a.schema.Columns)),
	}
	for _, col := range a.schema.Columns {
		ds.Columns = append(ds.Columns, col.Name)
		ds.Types = append(ds.Types, col.Descriptor.Datatype())
	}
	for _, row := range a.rows {
		dsRow := &tahu.DataSetRow{}
		for i, v := range row {
			var dsv tahu.DataSetValue
			scratch := tahu.NewMetric()
			if err := v.SetIntoMetric(scratch); err != nil {
				return err
			}
			if err := tahu.SetIntoDataSetValue(&dsv, a.schema.Columns[i].Descriptor.Datatype(), scalarFromMetric(scratch)); err != nil {
				return err
			}
			dsRow.Elements = append(dsRow.Elements, dsv)
		}
		ds.Rows = append(ds.Rows, dsRow)
	}
	m.Datatype = tahu.DataTypeDataSet
	m.HasDatasetValue, m.DatasetValue = true, ds
	return nil
}

// SetDifferenceIntoMetric has no more compact form than a full
// re-serialization for arrays, so it behaves like SetIntoMetric.
func (a *Array) SetDifferenceIntoMetric(m *tahu.Metric, _ Value) error {
	return a.SetIntoMetric(m)
}

func (a *Array) MergeFromMetric(m *tahu.Metric) error {
	if !m.HasDatasetValue {
		return fmt.Errorf("tahu: metric has no dataset value: %w", icpwerr.MalformedWireData)
	}
	rows := make([][]Value, 0, len(m.DatasetValue.Rows))
	for _, dsRow := range m.DatasetValue.Rows {
		if len(dsRow.Elements) != len(a.schema.Columns) {
			return fmt.Errorf("tahu: dataset row has %d elements, want %d: %w", len(dsRow.Elements), len(a.schema.Columns), icpwerr.MalformedWireData)
		}
		row := make([]Value, len(dsRow.Elements))
		for i, elem := range dsRow.Elements {
			v := a.schema.Columns[i].Descriptor.New()
			if err := mergeFromDataSetValue(v, elem); err != nil {
				return err
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	a.rows = rows
	return nil
}

func (a *Array) Copy() Value {
	rows := make([][]Value, len(a.rows))
	for i, row := range a.rows {
		cp := make([]Value, len(row))
		for j, v := range row {
			cp[j] = v.Copy()
		}
		rows[i] = cp
	}
	return &Array{schema: a.schema, rows: rows}
}

func (a *Array) ToPython() any {
	out := make([]any, len(a.rows))
	for i, row := range a.rows {
		tuple := make([]any, len(row))
		for j, v := range row {
			tuple[j] = v.ToPython()
		}
		if len(tuple) == 1 {
			out[i] = tuple[0]
		} else {
			out[i] = tuple
		}
	}
	return out
}

// FromPlain replaces every row from v, the inverse of ToPython: a
// single-column array takes one element per row, a multi-column array
// takes a []any tuple of the schema's width per row.
func (a *Array) FromPlain(v any) error {
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("tahu: expected []any for array, got %T: %w", v, icpwerr.TypeMismatch)
	}
	rows := make([][]Value, 0, len(items))
	for _, item := range items {
		tuple := []any{item}
		if len(a.schema.Columns) != 1 {
			t, ok := item.([]any)
			if !ok {
				return fmt.Errorf("tahu: array row must be a tuple of %d values, got %T: %w", len(a.schema.Columns), item, icpwerr.TypeMismatch)
			}
			tuple = t
		}
		if len(tuple) != len(a.schema.Columns) {
			return fmt.Errorf("tahu: array row has %d values, want %d: %w", len(tuple), len(a.schema.Columns), icpwerr.TypeMismatch)
		}
		row := make([]Value, len(tuple))
		for i, elem := range tuple {
			nv := a.schema.Columns[i].Descriptor.New()
			if err := nv.FromPlain(elem); err != nil {
				return fmt.Errorf("tahu: row %d column %d: %w", len(rows), i, err)
			}
			row[i] = nv
		}
		rows = append(rows, row)
	}
	a.rows = rows
	return nil
}

func (a *Array) Equals(other Value) bool { return equalByPlain(a, other) }

// scalarFromMetric extracts the one scalar Go value a scratch metric
// carries, so Array.SetIntoMetric can feed it to SetIntoDataSetValue
// without duplicating every scalar type's encoding rule.
func scalarFromMetric(m *tahu.Metric) any {
	switch {
	case m.HasIntValue:
		return tahu.ConvertToSigned32(m.IntValue)
	case m.HasLongValue:
		return int64(m.LongValue)
	case m.HasFloatValue:
		return m.FloatValue
	case m.HasDoubleValue:
		return m.DoubleValue
	case m.HasBooleanValue:
		return m.BooleanValue
	case m.HasStringValue:
		return m.StringValue
	case m.HasBytesValue:
		return m.BytesValue
	default:
		return nil
	}
}

// mergeFromDataSetValue merges a DataSet row element into v, using the
// same field-per-datatype convention MergeFromMetric relies on by
// routing through a scratch Metric.
func mergeFromDataSetValue(v Value, dsv tahu.DataSetValue) error {
	scratch := tahu.NewMetric()
	scratch.Datatype = dsv.Datatype
	switch dsv.Datatype {
	case tahu.DataTypeInt8, tahu.DataTypeInt16, tahu.DataTypeInt32,
		tahu.DataTypeUInt8, tahu.DataTypeUInt16, tahu.DataTypeUInt32:
		scratch.IntValue, scratch.HasIntValue = dsv.IntValue, true
	case tahu.DataTypeInt64, tahu.DataTypeUInt64, tahu.DataTypeDateTime:
		scratch.LongValue, scratch.HasLongValue = dsv.LongValue, true
	case tahu.DataTypeFloat:
		scratch.FloatValue, scratch.HasFloatValue = dsv.FloatValue, true
	case tahu.DataTypeDouble:
		scratch.DoubleValue, scratch.HasDoubleValue = dsv.DoubleValue, true
	case tahu.DataTypeBoolean:
		scratch.BooleanValue, scratch.HasBooleanValue = dsv.BooleanValue, true
	case tahu.DataTypeString, tahu.DataTypeText:
		scratch.StringValue, scratch.HasStringValue = dsv.StringValue, true
	}
	return v.MergeFromMetric(scratch)
}
