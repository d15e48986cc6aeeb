package client

import (
	"fmt"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/types"
)

// storedMetric pairs a reconstructed value with the flags its source
// metric carried, mirroring what endpoint.storedMetric tracks
// server-side.
type storedMetric struct {
	value        types.Value
	isNull       bool
	isHistorical bool
	isTransient  bool
	properties   *tahu.PropertySet
}

// clientEndpoint is this client's reconstruction of one remote node or
// device: its resolved record types, its current metric values, its
// name<->alias table, and its liveness record. It is never accessed
// concurrently by more than one goroutine at a time - every access
// goes through the owning Client's table lock.
type clientEndpoint struct {
	id EndpointID

	liveness liveness

	templates map[string]*types.StructSchema
	metrics   map[string]*storedMetric
	properties map[string]types.Value
	commands  map[string]struct{}

	namesToAliases map[string]uint64
	aliasesToNames map[uint64]string
}

func newClientEndpoint(id EndpointID) *clientEndpoint {
	return &clientEndpoint{
		id:             id,
		templates:      make(map[string]*types.StructSchema),
		metrics:        make(map[string]*storedMetric),
		properties:     make(map[string]types.Value),
		commands:       make(map[string]struct{}),
		namesToAliases: make(map[string]uint64),
		aliasesToNames: make(map[uint64]string),
	}
}

// knownDescriptors returns this endpoint's resolved record types as a
// types.Descriptor list, for ValueFromMetric to consult ahead of the
// built-in scalar registry.
func (e *clientEndpoint) knownDescriptors() []types.Descriptor {
	out := make([]types.Descriptor, 0, len(e.templates))
	for _, schema := range e.templates {
		out = append(out, schema)
	}
	return out
}

// applyBirth implements distilled §4.7's birth-handling steps against
// an already-decoded NBIRTH/DBIRTH payload. inherited carries the
// parent node's resolved templates, consulted first per the original's
// device-inherits-node-templates rule; it may be nil for a node birth.
func (e *clientEndpoint) applyBirth(payload *tahu.Payload, inherited map[string]*types.StructSchema) ([]string, error) {
	defs := make(map[string]*tahu.Template)
	for _, m := range payload.Metrics {
		if m.HasName && tahu.IsTemplateDefinition(m.Name) && m.HasTemplateValue {
			defs[m.TemplateValue.TemplateRef] = m.TemplateValue
		}
	}
	own, err := resolveTemplates(defs)
	if err != nil {
		return nil, err
	}

	templates := make(map[string]*types.StructSchema, len(inherited)+len(own))
	for name, schema := range inherited {
		templates[name] = schema
	}
	for name, schema := range own {
		templates[name] = schema
	}
	e.templates = templates

	e.metrics = make(map[string]*storedMetric)
	e.properties = make(map[string]types.Value)
	e.commands = make(map[string]struct{})
	e.namesToAliases = make(map[string]uint64)
	e.aliasesToNames = make(map[uint64]string)

	known := e.knownDescriptors()
	var changed []string
	for _, m := range payload.Metrics {
		if !m.HasName {
			continue
		}
		name := m.Name
		if tahu.IsBdSeq(name) || tahu.IsTemplateDefinition(name) {
			continue
		}
		if m.HasAlias {
			e.namesToAliases[name] = m.Alias
			e.aliasesToNames[m.Alias] = name
		}
		if tahu.IsEndpointProperty(m) {
			v, err := types.ValueFromMetric(m, known...)
			if err != nil {
				return nil, fmt.Errorf("icpw: endpoint property %q: %w", name, err)
			}
			e.properties[name] = v
			continue
		}
		if tahu.IsCommand(name) {
			e.commands[name] = struct{}{}
			continue
		}
		v, err := types.ValueFromMetric(m, known...)
		if err != nil {
			return nil, fmt.Errorf("icpw: metric %q: %w", name, err)
		}
		e.metrics[name] = &storedMetric{value: v, isNull: m.IsNull, isHistorical: m.IsHistorical, isTransient: m.IsTransient, properties: m.Properties}
		changed = append(changed, name)
	}

	e.liveness.recordBirth(birthDeathSeq(payload))
	return changed, nil
}

// applyData implements the data-message handling step: resolve names
// from aliases (filling them back in so later handling can refer to
// metrics by name), merge each metric into its stored value, and
// refresh its null/historical/transient flags.
func (e *clientEndpoint) applyData(payload *tahu.Payload) ([]string, error) {
	known := e.knownDescriptors()
	var changed []string
	for _, m := range payload.Metrics {
		if !m.HasName {
			if !m.HasAlias {
				return nil, fmt.Errorf("icpw: data metric has neither name nor alias: %w", icpwerr.MalformedWireData)
			}
			name, ok := e.aliasesToNames[m.Alias]
			if !ok {
				return nil, fmt.Errorf("icpw: data metric alias %d: %w", m.Alias, icpwerr.UnknownMetric)
			}
			m.Name, m.HasName = name, true
		}

		stored, ok := e.metrics[m.Name]
		if !ok {
			v, err := types.ValueFromMetric(m, known...)
			if err != nil {
				return nil, fmt.Errorf("icpw: metric %q: %w", m.Name, err)
			}
			e.metrics[m.Name] = &storedMetric{value: v, isNull: m.IsNull, isHistorical: m.IsHistorical, isTransient: m.IsTransient}
			changed = append(changed, m.Name)
			continue
		}
		if m.IsNull {
			stored.value, stored.isNull = nil, true
		} else {
			if stored.value == nil {
				d, err := types.DescriptorFromMetric(m, known...)
				if err != nil {
					return nil, fmt.Errorf("icpw: metric %q: %w", m.Name, err)
				}
				stored.value = d.New()
			}
			if err := stored.value.MergeFromMetric(m); err != nil {
				return nil, fmt.Errorf("icpw: metric %q: %w", m.Name, err)
			}
			stored.isNull = false
		}
		stored.isHistorical, stored.isTransient = m.IsHistorical, m.IsTransient
		changed = append(changed, m.Name)
	}
	return changed, nil
}

// applyDeath implements the death-handling step: only the liveness
// record changes.
func (e *clientEndpoint) applyDeath(payload *tahu.Payload) {
	e.liveness.recordDeath(birthDeathSeq(payload))
}

func birthDeathSeq(payload *tahu.Payload) uint64 {
	if seq, ok := tahu.ReadBdSeq(payload); ok {
		return seq
	}
	return payload.Timestamp
}

// metric returns the current value of a named ordinary metric.
func (e *clientEndpoint) metric(name string) (types.Value, bool) {
	m, ok := e.metrics[name]
	if !ok || m.isNull {
		return nil, ok
	}
	return m.value, true
}

// property returns the current value of a named endpoint property.
func (e *clientEndpoint) property(name string) (types.Value, bool) {
	v, ok := e.properties[name]
	return v, ok
}

func (e *clientEndpoint) hasCommand(name string) bool {
	_, ok := e.commands[tahu.MakeCommandName(name)]
	return ok
}

// isWritable reports whether a named metric's birth properties marked
// it writable. A metric with no property set at all is treated as
// read-only, the conservative default.
func (e *clientEndpoint) isWritable(name string) bool {
	m, ok := e.metrics[name]
	if !ok {
		return false
	}
	return m.properties.GetBool(tahu.PropertyWritable, false)
}

// bounds returns the Low/High property values of a named scalar
// metric, if both are present.
func (e *clientEndpoint) bounds(name string) (low, high float64, ok bool) {
	m, found := e.metrics[name]
	if !found || m.properties == nil {
		return 0, 0, false
	}
	lowV, lowOK := m.properties.Get(tahu.PropertyLow)
	highV, highOK := m.properties.Get(tahu.PropertyHigh)
	if !lowOK || !highOK {
		return 0, 0, false
	}
	l, ok1 := asFloat64(lowV.Unwrap())
	h, ok2 := asFloat64(highV.Unwrap())
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return l, h, true
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
