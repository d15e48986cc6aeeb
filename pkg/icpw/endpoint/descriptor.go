// Package endpoint implements the node/device side of IcyPaw CORE: the
// per-instance metric and command bookkeeping an engine-managed
// endpoint needs to build birth certificates, apply updates, and react
// to commands, independent of any particular transport.
package endpoint

import (
	"fmt"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/types"
)

// Getter returns an endpoint's current value for a metric. It is
// called once per birth certificate and once per update poll.
type Getter func(owner any) types.Value

// Setter applies a network-originated write to an endpoint's metric.
// It is only invoked for metrics that were not declared ReadOnly.
type Setter func(owner any, v types.Value) error

// MetricDescriptor describes one metric an endpoint exposes: its wire
// name, value kind, and the getter/setter pair that bind it to the
// owning Node or Device. Where the original implementation used a
// Python descriptor bound at class-definition time, a MetricDescriptor
// is an explicit value constructed once per endpoint and held in a
// slice — Go has no per-class attribute protocol to piggy-back on.
type MetricDescriptor struct {
	Name       string
	Descriptor types.Descriptor
	Get        Getter
	Set        Setter // nil means read-only
	Properties map[string]any
}

// ReadOnly reports whether this metric has no Setter.
func (d *MetricDescriptor) ReadOnly() bool { return d.Set == nil }

// tahuMetric builds the wire representation of the current value,
// honoring Historical/Transient wrapping and optional properties.
func (d *MetricDescriptor) tahuMetric(owner any, withProperties bool) (*tahu.Metric, error) {
	m := tahu.NewMetric()
	m.Name, m.HasName = d.Name, true

	value := d.Get(owner)
	isHistorical, isTransient := false, false
	switch vv := value.(type) {
	case types.HistoricalValue:
		value, isHistorical = vv.Value, true
	case types.TransientValue:
		value, isTransient = vv.Value, true
	}

	if value == nil {
		m.Datatype = d.Descriptor.Datatype()
		m.IsNull = true
	} else if err := value.SetIntoMetric(m); err != nil {
		return nil, fmt.Errorf("endpoint: metric %q: %w", d.Name, err)
	}
	m.IsHistorical, m.IsTransient = isHistorical, isTransient

	if withProperties {
		if err := applyProperties(m, d.Properties); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CommandDescriptor describes one command an endpoint accepts: its
// wire name, argument kind, and the Run callback invoked when a
// matching NCMD/DCMD arrives.
type CommandDescriptor struct {
	Name       string
	Descriptor types.Descriptor
	Run        func(owner any, arg types.Value) error
	Properties map[string]any
}

func (d *CommandDescriptor) tahuMetric(withProperties bool) (*tahu.Metric, error) {
	m := tahu.NewMetric()
	m.Name, m.HasName = tahu.MakeCommandName(d.Name), true
	if err := d.Descriptor.New().SetIntoMetric(m); err != nil {
		return nil, fmt.Errorf("endpoint: command %q: %w", d.Name, err)
	}
	if withProperties {
		if err := applyProperties(m, d.Properties); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// TimerDescriptor describes a periodic callback an endpoint wants the
// engine to invoke on a fixed interval once the endpoint is live,
// replacing the original's icpw_timer descriptor.
type TimerDescriptor struct {
	Name      string
	PeriodSec float64
	Run       func(owner any)
}

// TriggerDescriptor describes a one-shot callback an endpoint wants
// scheduled at an absolute or relative time, replacing icpw_trigger.
type TriggerDescriptor struct {
	Name    string
	DelaySec float64
	Run     func(owner any)
}

func applyProperties(m *tahu.Metric, props map[string]any) error {
	if len(props) == 0 {
		return nil
	}
	ps, err := tahu.NewPropertySetFromMap(props)
	if err != nil {
		return fmt.Errorf("endpoint: properties: %w", err)
	}
	m.Properties = ps
	return nil
}
