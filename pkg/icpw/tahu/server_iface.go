package tahu

import (
	"fmt"
	"strings"
	"time"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
)

// Seq is the 8-bit sequence number (wrapping to 0 past 255) carried by
// BIRTH, DEATH, and DATA messages.
type Seq struct {
	value uint8
}

// Value returns the current value without advancing it.
func (s *Seq) Value() uint64 { return uint64(s.value) }

// Reset sets the sequence number back to zero.
func (s *Seq) Reset() { s.value = 0 }

// GetAndAdvance returns the current sequence number, then advances it.
func (s *Seq) GetAndAdvance() uint64 {
	ret := s.value
	s.value++
	return uint64(ret)
}

// ResetAndAdvance is Reset followed by GetAndAdvance; every NBIRTH
// restarts the sequence at zero.
func (s *Seq) ResetAndAdvance() uint64 {
	s.Reset()
	return s.GetAndAdvance()
}

// nowMillis returns the current time in Sparkplug-B's millisecond
// Unix-epoch timestamp convention.
func nowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// NewPayload returns a payload with its timestamp set to timestampMs,
// or the current time if timestampMs is zero.
func NewPayload(timestampMs uint64) *Payload {
	if timestampMs == 0 {
		timestampMs = nowMillis()
	}
	return &Payload{Timestamp: timestampMs, HasTimestamp: true}
}

// NewTahuMetric returns a new metric stamped with timestampMs (or now,
// if zero) and the given properties.
func NewTahuMetric(timestampMs uint64, properties *PropertySet) *Metric {
	if timestampMs == 0 {
		timestampMs = nowMillis()
	}
	return &Metric{Timestamp: timestampMs, HasTimestamp: true, Properties: properties}
}

func addMetricsToPayload(metrics []*Metric, payload *Payload) {
	payload.Metrics = append(payload.Metrics, metrics...)
}

// ServerInterface wraps the Tahu wire conventions for a single edge
// node: it owns one MetricOrganizer for the node itself plus one per
// registered device, tracks the node's sequence counters, and builds
// the BIRTH/DEATH/DATA payloads and their topics.
type ServerInterface struct {
	namespace  string
	groupID    string
	edgeNodeID string

	seq   Seq
	bdSeq *uint64

	isBorn bool

	templates map[string]*Template
	organizers map[string]*MetricOrganizer // "" is the node itself
}

// NewServerInterface returns an interface for the named edge node. Pass
// "" for groupID/edgeNodeID to set them later with SetGroupID/
// SetEdgeNodeID; topic builders return an error while either is unset.
func NewServerInterface(groupID, edgeNodeID string) *ServerInterface {
	return &ServerInterface{
		namespace:  DefaultNamespace,
		groupID:    groupID,
		edgeNodeID: edgeNodeID,
		templates:  make(map[string]*Template),
		organizers: map[string]*MetricOrganizer{"": NewMetricOrganizer()},
	}
}

// Namespace returns the Sparkplug-B namespace used in topics.
func (s *ServerInterface) Namespace() string { return s.namespace }

// GroupID returns the configured group ID, or "" if unset.
func (s *ServerInterface) GroupID() string { return s.groupID }

// SetGroupID sets the group ID every topic builder uses.
func (s *ServerInterface) SetGroupID(groupID string) error {
	if strings.Contains(groupID, "/") {
		return fmt.Errorf("tahu: group_id may not contain '/'")
	}
	s.groupID = groupID
	return nil
}

// EdgeNodeID returns the configured edge node ID, or "" if unset.
func (s *ServerInterface) EdgeNodeID() string { return s.edgeNodeID }

// SetEdgeNodeID sets the edge node ID every topic builder uses.
func (s *ServerInterface) SetEdgeNodeID(edgeNodeID string) error {
	if strings.Contains(edgeNodeID, "/") {
		return fmt.Errorf("tahu: edge_node_id may not contain '/'")
	}
	s.edgeNodeID = edgeNodeID
	return nil
}

// BdSeq returns the current birth/death sequence number, and whether
// one has been set yet.
func (s *ServerInterface) BdSeq() (uint64, bool) {
	if s.bdSeq == nil {
		return 0, false
	}
	return *s.bdSeq, true
}

// SetBdSeq sets the birth/death sequence number. Increment this
// whenever the underlying transport connection is re-established.
func (s *ServerInterface) SetBdSeq(v uint64) {
	s.bdSeq = &v
}

// SeqValue returns the next sequence number to be issued. It may not
// be the value an imminent NBIRTH carries, since NBIRTH resets the
// counter first.
func (s *ServerInterface) SeqValue() uint64 { return s.seq.Value() }

// IsBorn reports whether this interface has issued a birth message.
func (s *ServerInterface) IsBorn() bool { return s.isBorn }

// NodeMetricAlias returns the node's alias for the metric of the given
// name.
func (s *ServerInterface) NodeMetricAlias(name string) (uint64, error) {
	return s.organizers[""].AliasOf(name)
}

// NodeMetricName returns the node's metric name for the given alias.
func (s *ServerInterface) NodeMetricName(alias uint64) (string, error) {
	return s.organizers[""].NameOf(alias)
}

// DeviceMetricAlias returns deviceID's alias for the metric of the
// given name.
func (s *ServerInterface) DeviceMetricAlias(deviceID, name string) (uint64, error) {
	org, ok := s.organizers[deviceID]
	if !ok {
		return 0, fmt.Errorf("tahu: %w: %q", icpwerr.UnknownDevice, deviceID)
	}
	return org.AliasOf(name)
}

// DeviceMetricName returns deviceID's metric name for the given alias.
func (s *ServerInterface) DeviceMetricName(deviceID string, alias uint64) (string, error) {
	org, ok := s.organizers[deviceID]
	if !ok {
		return "", fmt.Errorf("tahu: %w: %q", icpwerr.UnknownDevice, deviceID)
	}
	return org.NameOf(alias)
}

// RegisterDevice adds bookkeeping for a newly attached device. The
// device gets its own metric organizer independent of the node's.
func (s *ServerInterface) RegisterDevice(deviceID string) {
	s.organizers[deviceID] = NewMetricOrganizer()
}

// UnregisterDevice drops the metric organizer of a detached device. Any
// template definitions the device contributed stay in the node's set.
func (s *ServerInterface) UnregisterDevice(deviceID string) {
	delete(s.organizers, deviceID)
}

// SetInitialNodeMetrics fixes the full set of metrics this node will
// ever publish. Must be called before the first NBIRTH.
func (s *ServerInterface) SetInitialNodeMetrics(metrics []*Metric) error {
	if s.isBorn {
		return fmt.Errorf("tahu: cannot set initial metrics after issuing BIRTH: %w", icpwerr.OrganizerSealed)
	}
	templates := s.organizers[""].SetInitialMetrics(metrics)
	for name, t := range templates {
		s.templates[name] = t
	}
	return nil
}

// SetNodeMetric queues a node metric for the next NDATA message.
func (s *ServerInterface) SetNodeMetric(m *Metric, addIfMissing bool) error {
	return s.organizers[""].Set(m, addIfMissing)
}

// DelNodeMetric removes a metric from the node's organizer.
func (s *ServerInterface) DelNodeMetric(name string) {
	s.organizers[""].Delete(name)
}

// RegisterDeviceClassMetrics extracts template definitions from a set
// of candidate device metrics without attaching them to any one
// device; useful for ensuring every device class's templates show up
// in the node's NBIRTH regardless of which devices are connected yet.
func (s *ServerInterface) RegisterDeviceClassMetrics(metrics []*Metric) {
	org := NewMetricOrganizer()
	templates := org.SetInitialMetrics(metrics)
	for name, t := range templates {
		s.templates[name] = t
	}
}

// SetInitialDeviceMetrics fixes the full set of metrics a device will
// ever publish.
func (s *ServerInterface) SetInitialDeviceMetrics(deviceID string, metrics []*Metric) error {
	org, ok := s.organizers[deviceID]
	if !ok {
		return fmt.Errorf("tahu: %w: %q", icpwerr.UnknownDevice, deviceID)
	}
	templates := org.SetInitialMetrics(metrics)
	for name, t := range templates {
		s.templates[name] = t
	}
	return nil
}

// SetDeviceMetric queues a device metric for the next DDATA message.
func (s *ServerInterface) SetDeviceMetric(deviceID string, m *Metric) error {
	org, ok := s.organizers[deviceID]
	if !ok {
		return fmt.Errorf("tahu: %w: %q", icpwerr.UnknownDevice, deviceID)
	}
	return org.Set(m, false)
}

// NewNBirth returns a fully filled-in NBIRTH payload: the bdSeq
// metric, every node metric at its current value, and every template
// definition collected so far.
func (s *ServerInterface) NewNBirth() (*Payload, error) {
	bdSeq, ok := s.BdSeq()
	if !ok {
		return nil, fmt.Errorf("tahu: bdSeq not set: %w", icpwerr.NotConfigured)
	}

	s.isBorn = true

	payload := NewPayload(0)
	payload.Seq, payload.HasSeq = s.seq.ResetAndAdvance(), true
	timestamp := payload.Timestamp

	bdSeqMetric := &Metric{Name: BdSeqMetricName, HasName: true, Timestamp: timestamp, HasTimestamp: true, Datatype: DataTypeUInt64, LongValue: bdSeq, HasLongValue: true}
	payload.Metrics = append(payload.Metrics, bdSeqMetric)

	payload.Metrics = append(payload.Metrics, s.organizers[""].GetAll()...)

	for name, t := range s.templates {
		tm := &Metric{
			Name: MakeTemplateDefinitionName(name), HasName: true,
			Timestamp: timestamp, HasTimestamp: true,
			Datatype: DataTypeTemplate, HasTemplateValue: true, TemplateValue: t,
		}
		payload.Metrics = append(payload.Metrics, tm)
	}

	return payload, nil
}

// NewDBirth returns a fully filled-in DBIRTH payload for deviceID.
func (s *ServerInterface) NewDBirth(deviceID string) (*Payload, error) {
	if !s.isBorn {
		return nil, fmt.Errorf("tahu: first message issued must be an NBIRTH")
	}
	org, ok := s.organizers[deviceID]
	if !ok {
		return nil, fmt.Errorf("tahu: %w: %q", icpwerr.UnknownDevice, deviceID)
	}
	payload := s.newSeqPayload(0)
	addMetricsToPayload(org.GetAll(), payload)
	return payload, nil
}

// NewNDeath returns the NDEATH payload: just the bdSeq metric, carried
// with no timestamp or sequence number. It is published as the
// transport's last will before connecting, so the broker can announce
// it if this node disconnects abnormally.
func (s *ServerInterface) NewNDeath() (*Payload, error) {
	bdSeq, ok := s.BdSeq()
	if !ok {
		return nil, fmt.Errorf("tahu: bdSeq not set")
	}
	payload := &Payload{}
	payload.Metrics = append(payload.Metrics, &Metric{
		Name: BdSeqMetricName, HasName: true,
		Datatype: DataTypeUInt64, LongValue: bdSeq, HasLongValue: true,
	})
	return payload, nil
}

// ReadBdSeq returns the bdSeq metric value carried in payload (an
// NBIRTH or NDEATH), and whether one was present at all.
func ReadBdSeq(payload *Payload) (uint64, bool) {
	for _, m := range payload.Metrics {
		if m.HasName && IsBdSeq(m.Name) && m.HasLongValue {
			return m.LongValue, true
		}
	}
	return 0, false
}

// NewDDeath returns the DDEATH payload. The Sparkplug-B spec is
// internally inconsistent about whether DDEATH carries a body at all;
// this follows new_ddeath's practical resolution and emits a
// mostly-empty sequenced payload.
func (s *ServerInterface) NewDDeath() *Payload {
	return s.newSeqPayload(0)
}

// NewNData returns an NDATA payload carrying every node metric changed
// since the last NDATA or NBIRTH.
func (s *ServerInterface) NewNData() (*Payload, error) {
	if !s.isBorn {
		return nil, fmt.Errorf("tahu: must issue NBIRTH before NDATA")
	}
	payload := s.newSeqPayload(0)
	addMetricsToPayload(s.organizers[""].GetAndCommit(), payload)
	return payload, nil
}

// NewDData returns a DDATA payload carrying every deviceID metric
// changed since the last DDATA or DBIRTH.
func (s *ServerInterface) NewDData(deviceID string) (*Payload, error) {
	if !s.isBorn {
		return nil, fmt.Errorf("tahu: must issue DBIRTH before DDATA")
	}
	org, ok := s.organizers[deviceID]
	if !ok {
		return nil, fmt.Errorf("tahu: %w: %q", icpwerr.UnknownDevice, deviceID)
	}
	payload := s.newSeqPayload(0)
	addMetricsToPayload(org.GetAndCommit(), payload)
	return payload, nil
}

func (s *ServerInterface) newSeqPayload(timestampMs uint64) *Payload {
	payload := NewPayload(timestampMs)
	payload.Seq, payload.HasSeq = s.seq.GetAndAdvance(), true
	return payload
}

// topic builds a topic string from the interface's configured group and
// edge-node IDs, returning an error if either is still "".
func (s *ServerInterface) topic(messageType, deviceID string) (string, error) {
	groupID := s.groupID
	if groupID == "" {
		return "", fmt.Errorf("tahu: group_id must be set before creating a topic")
	}
	edgeNodeID := s.edgeNodeID
	if edgeNodeID == "" {
		return "", fmt.Errorf("tahu: edge_node_id must be set before creating a topic")
	}
	return MakeTopicString(s.namespace, groupID, messageType, edgeNodeID, deviceID)
}

// NewNBirthTopic returns the NBIRTH topic string.
func (s *ServerInterface) NewNBirthTopic() (string, error) { return s.topic("NBIRTH", "") }

// NewDBirthTopic returns the DBIRTH topic string for deviceID.
func (s *ServerInterface) NewDBirthTopic(deviceID string) (string, error) {
	return s.topic("DBIRTH", deviceID)
}

// NewNDeathTopic returns the NDEATH topic string.
func (s *ServerInterface) NewNDeathTopic() (string, error) { return s.topic("NDEATH", "") }

// NewDDeathTopic returns the DDEATH topic string for deviceID.
func (s *ServerInterface) NewDDeathTopic(deviceID string) (string, error) {
	return s.topic("DDEATH", deviceID)
}

// NewNDataTopic returns the NDATA topic string.
func (s *ServerInterface) NewNDataTopic() (string, error) { return s.topic("NDATA", "") }

// NewDDataTopic returns the DDATA topic string for deviceID.
func (s *ServerInterface) NewDDataTopic(deviceID string) (string, error) {
	return s.topic("DDATA", deviceID)
}

// NewNCmdTopic returns the NCMD subscription topic string.
func (s *ServerInterface) NewNCmdTopic() (string, error) { return s.topic("NCMD", "") }

// NewDCmdTopic returns the DCMD subscription topic string for deviceID.
func (s *ServerInterface) NewDCmdTopic(deviceID string) (string, error) {
	return s.topic("DCMD", deviceID)
}

// NewStateTopic returns the STATE/<scadaHostID> topic string.
func (s *ServerInterface) NewStateTopic(scadaHostID string) string {
	return StateTopic{ScadaHostID: scadaHostID}.String()
}
