package tahu

import (
	"fmt"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
)

// cloneMetric returns a copy of m for the organizer's bookkeeping. The
// top-level Properties, DataSet and Template structs and the Properties
// Keys/Values and Template Metrics slices are copied; the elements of
// those slices, the DataSet's Columns/Types/Rows and BytesValue are
// still shared with the original.
func cloneMetric(m *Metric) *Metric {
	cp := *m
	if m.Properties != nil {
		ps := *m.Properties
		ps.Keys = append([]string(nil), m.Properties.Keys...)
		ps.Values = append([]*PropertyValue(nil), m.Properties.Values...)
		cp.Properties = &ps
	}
	if m.DatasetValue != nil {
		ds := *m.DatasetValue
		cp.DatasetValue = &ds
	}
	if m.TemplateValue != nil {
		t := *m.TemplateValue
		t.Metrics = append([]*Metric(nil), m.TemplateValue.Metrics...)
		cp.TemplateValue = &t
	}
	return &cp
}

// MetricOrganizer keeps the per-endpoint bookkeeping a Sparkplug-B
// publisher needs: the name<->alias bijection, the current committed
// value of every metric, the set of metrics queued for the next
// publish, and any template definitions discovered along the way.
type MetricOrganizer struct {
	metrics             map[string]*Metric
	uncommitted         []*Metric
	nextAlias           uint64
	namesToAliases      map[string]uint64
	templateDefinitions map[string]*Template
	committed           bool
}

// NewMetricOrganizer returns an empty organizer.
func NewMetricOrganizer() *MetricOrganizer {
	return &MetricOrganizer{
		metrics:             make(map[string]*Metric),
		namesToAliases:      make(map[string]uint64),
		templateDefinitions: make(map[string]*Template),
	}
}

// TemplateDefinitions returns the template definitions derived so far
// from metrics passed to this organizer. It is an error to call this
// before SetInitialMetrics.
func (o *MetricOrganizer) TemplateDefinitions() (map[string]*Template, error) {
	if !o.committed {
		return nil, fmt.Errorf("tahu: retrieved templates before committing metrics: %w", icpwerr.OrganizerSealed)
	}
	out := make(map[string]*Template, len(o.templateDefinitions))
	for k, v := range o.templateDefinitions {
		out[k] = v
	}
	return out, nil
}

// SetInitialMetrics registers every metric this endpoint will ever
// publish, assigning each a stable alias. It returns the template
// definitions derived from them. Call this exactly once, before the
// first birth.
func (o *MetricOrganizer) SetInitialMetrics(metrics []*Metric) map[string]*Template {
	for _, m := range metrics {
		o.addMetric(m)
	}
	o.committed = true
	return o.templateDefinitions
}

// Set queues a metric value for the next GetAndCommit. If
// addIfMissing is true and the metric carries a name not yet known to
// this organizer, it is registered (and assigned an alias) on the
// spot; otherwise an unregistered metric is rejected.
func (o *MetricOrganizer) Set(m *Metric, addIfMissing bool) error {
	if addIfMissing && m.HasName {
		if _, known := o.metrics[m.Name]; !known {
			o.addMetric(m)
		}
	}
	if err := o.validateMetric(m); err != nil {
		return err
	}
	o.uncommitted = append(o.uncommitted, m)
	return nil
}

// Delete removes a metric from this organizer. It is a no-op if the
// metric is not registered.
func (o *MetricOrganizer) Delete(name string) {
	if _, ok := o.metrics[name]; !ok {
		return
	}
	delete(o.metrics, name)
	kept := o.uncommitted[:0]
	for _, m := range o.uncommitted {
		if m.Name != name {
			kept = append(kept, m)
		}
	}
	o.uncommitted = kept
}

// GetAndCommit returns every metric queued since the last call,
// aliased in place of named, and commits their values as the new
// baseline.
func (o *MetricOrganizer) GetAndCommit() []*Metric {
	rets := make([]*Metric, len(o.uncommitted))
	for i, m := range o.uncommitted {
		rets[i] = o.copyWithAlias(m)
	}
	o.commitMetrics()
	return rets
}

// GetAll returns every registered metric at its current committed
// value, each carrying both its name and alias, suitable for a birth
// message.
func (o *MetricOrganizer) GetAll() []*Metric {
	o.commitMetrics()
	metrics := make([]*Metric, 0, len(o.metrics))
	for name, m := range o.metrics {
		cp := cloneMetric(m)
		cp.Name, cp.HasName = name, true
		cp.Alias, cp.HasAlias = o.namesToAliases[name], true
		metrics = append(metrics, cp)
	}
	return metrics
}

// NewMetricFor returns a fresh copy of the last committed value of the
// named metric, for callers that want to set a new value on top of the
// metric's existing metadata.
func (o *MetricOrganizer) NewMetricFor(name string) (*Metric, error) {
	m, ok := o.metrics[name]
	if !ok {
		return nil, fmt.Errorf("tahu: %s: %w", name, icpwerr.UnknownMetric)
	}
	return cloneMetric(m), nil
}

// AliasOf returns the alias registered for the given metric name.
func (o *MetricOrganizer) AliasOf(name string) (uint64, error) {
	alias, ok := o.namesToAliases[name]
	if !ok {
		return 0, fmt.Errorf("tahu: no alias for %q: %w", name, icpwerr.UnknownMetric)
	}
	return alias, nil
}

// NameOf returns the metric name registered for the given alias. This
// inverts the name-to-alias map on every call; organizers are small
// and long-lived enough that this has not warranted caching.
func (o *MetricOrganizer) NameOf(alias uint64) (string, error) {
	for name, a := range o.namesToAliases {
		if a == alias {
			return name, nil
		}
	}
	return "", fmt.Errorf("tahu: no name for alias %d: %w", alias, icpwerr.UnknownMetric)
}

func (o *MetricOrganizer) extractStoreTemplateDefinition(m *Metric) {
	if !m.HasTemplateValue {
		return
	}
	def, name := makeTemplateDefinition(m.TemplateValue)
	o.templateDefinitions[name] = def
}

// makeTemplateDefinition derives a scrubbed template definition (value
// fields cleared, except DataSet schemas which must survive to
// describe the array's column types) from a populated template
// instance.
func makeTemplateDefinition(instance *Template) (*Template, string) {
	def := &Template{
		IsDefinition: true,
		Metrics:      make([]*Metric, len(instance.Metrics)),
	}
	name := instance.TemplateRef
	for i, m := range instance.Metrics {
		cp := cloneMetric(m)
		if cp.Datatype != DataTypeDataSet {
			clearValue(cp)
		}
		def.Metrics[i] = cp
	}
	return def, name
}

func clearValue(m *Metric) {
	m.HasIntValue = false
	m.HasLongValue = false
	m.HasFloatValue = false
	m.HasDoubleValue = false
	m.HasBooleanValue = false
	m.HasStringValue = false
	m.HasBytesValue = false
	m.HasDatasetValue, m.DatasetValue = false, nil
	m.HasTemplateValue, m.TemplateValue = false, nil
}

func (o *MetricOrganizer) addMetric(m *Metric) {
	if !m.HasName {
		panic("tahu: initial metrics must have a name")
	}
	alias, known := o.namesToAliases[m.Name]
	if !known {
		alias = o.nextAlias
		o.namesToAliases[m.Name] = alias
		o.nextAlias++
	}
	m.Alias, m.HasAlias = alias, true
	o.extractStoreTemplateDefinition(m)
	o.metrics[m.Name] = m
}

func (o *MetricOrganizer) validateMetric(m *Metric) error {
	if m.HasName {
		model, ok := o.metrics[m.Name]
		if !ok {
			return fmt.Errorf("tahu: metric %q: %w", m.Name, icpwerr.UnknownMetric)
		}
		if m.Datatype != model.Datatype {
			return fmt.Errorf("tahu: metric %q has datatype %s, want %s: %w", m.Name, m.Datatype, model.Datatype, icpwerr.TypeMismatch)
		}
		return nil
	}
	if !m.HasAlias {
		return fmt.Errorf("tahu: metric has neither name nor alias: %w", icpwerr.MalformedWireData)
	}
	return nil
}

// copyWithAlias returns a copy of m with its name cleared and its
// alias filled in, the space-saving substitution the spec requires for
// steady-state data messages.
func (o *MetricOrganizer) copyWithAlias(m *Metric) *Metric {
	cp := cloneMetric(m)
	if cp.HasName {
		cp.Alias, cp.HasAlias = o.namesToAliases[cp.Name], true
		cp.Name, cp.HasName = "", false
	}
	return cp
}

func (o *MetricOrganizer) commitMetrics() {
	for _, m := range o.uncommitted {
		o.metrics[m.Name] = m
	}
	o.uncommitted = nil
}
