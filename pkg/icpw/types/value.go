// Package types implements the Icypaw value model layered on top of
// the Tahu wire conventions: scalar values, record ("Struct") types
// with partial-update merge semantics, and typed arrays backed by
// Sparkplug-B DataSets. Every value knows how to serialize itself into
// a *tahu.Metric and how to merge an incoming metric into itself.
package types

import (
	"fmt"
	"reflect"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
)

// Value is implemented by every Icypaw value kind: the built-in
// scalars, Struct records, and ArrayType columns.
type Value interface {
	// SetIntoMetric fills in m's datatype and value field(s) from this
	// value.
	SetIntoMetric(m *tahu.Metric) error
	// SetDifferenceIntoMetric fills m with a minimal representation of
	// this value relative to other. Scalars ignore other and behave
	// like SetIntoMetric; Struct only serializes changed fields.
	SetDifferenceIntoMetric(m *tahu.Metric, other Value) error
	// MergeFromMetric applies what m carries to this value. Scalars and
	// Arrays replace their contents; a Struct updates only the fields m
	// carries and leaves the others unchanged.
	MergeFromMetric(m *tahu.Metric) error
	// Copy returns a deep copy of this value.
	Copy() Value
	// ToPython returns a plain Go representation of this value,
	// recursing into composite types.
	ToPython() any
	// FromPlain sets this value's contents from v, the inverse of
	// ToPython. It is the round-trip counterpart used by callers that
	// build values from decoded JSON/config rather than a wire metric.
	FromPlain(v any) error
	// Equals reports whether this value and other carry the same
	// plain-Go representation.
	Equals(other Value) bool
}

// equalByPlain compares a and b by their ToPython representation,
// the common Equals implementation shared by every built-in Value
// kind.
func equalByPlain(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a.ToPython(), b.ToPython())
}

// Descriptor describes a Value kind well enough to decide whether an
// incoming metric carries that kind and to manufacture a zero value of
// it. Built-in scalar kinds and ArraySchema/StructSchema all implement
// this.
type Descriptor interface {
	// Datatype is the wire datatype this kind is carried under.
	Datatype() tahu.DataType
	// New returns a freshly zeroed value of this kind.
	New() Value
	// MatchesMetric reports whether m is plausibly a value of this
	// kind, beyond just Datatype equality (e.g. a Struct descriptor
	// also checks the template_ref).
	MatchesMetric(m *tahu.Metric) bool
}

// ValueFromMetric constructs a Value from a decoded metric. known is
// consulted before the built-in scalar registry, so Struct and Array
// schemas the caller cares about take priority; this replaces the
// original implementation's class-hierarchy walk with an explicit,
// caller-supplied list, since Go has no subclass introspection.
func ValueFromMetric(m *tahu.Metric, known ...Descriptor) (Value, error) {
	d, err := DescriptorFromMetric(m, known...)
	if err != nil {
		return nil, err
	}
	v := d.New()
	if err := v.MergeFromMetric(m); err != nil {
		return nil, err
	}
	return v, nil
}

// DescriptorFromMetric returns the Descriptor that best matches m,
// trying known first and falling back to the built-in scalar kinds.
func DescriptorFromMetric(m *tahu.Metric, known ...Descriptor) (Descriptor, error) {
	for _, d := range known {
		if d.Datatype() == m.Datatype && d.MatchesMetric(m) {
			return d, nil
		}
	}
	for _, d := range builtinScalarDescriptors {
		if d.Datatype() == m.Datatype && d.MatchesMetric(m) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("tahu: unsupported value datatype %s: %w", m.Datatype, icpwerr.TypeMismatch)
}

// MergeValue merges m into value according to d, allocating a new
// value via d.New() if value is nil. It returns nil if m represents an
// explicit null. Unlike Value.MergeFromMetric, this tolerates a nil
// starting value, which is the common case the first time a metric
// name is observed.
func MergeValue(value Value, m *tahu.Metric, d Descriptor) (Value, error) {
	if m.IsNull {
		return nil, nil
	}
	if value == nil {
		value = d.New()
	}
	if err := value.MergeFromMetric(m); err != nil {
		return nil, err
	}
	return value, nil
}

// HistoricalValue marks a value as historical (a recorded past
// observation rather than a live update) when set into a metric.
type HistoricalValue struct {
	Value Value
}

// Historical wraps v so that setting it into a metric marks the
// metric historical.
func Historical(v Value) HistoricalValue { return HistoricalValue{Value: v} }

// TransientValue marks a value as transient (not to be retained as the
// endpoint's steady-state value) when set into a metric.
type TransientValue struct {
	Value Value
}

// Transient wraps v so that setting it into a metric marks the metric
// transient.
func Transient(v Value) TransientValue { return TransientValue{Value: v} }
