package tahu

import "fmt"

type endpointKey struct {
	groupID, edgeNodeID, deviceID string
}

// ClientInterface wraps the details of constructing NCMD/DCMD messages
// from a client's point of view: it remembers the alias each known
// node or device has assigned its metrics (from their birth
// certificates) so commands can be sent by alias, the space-saving
// form the wire protocol prefers.
type ClientInterface struct {
	namespace string
	aliasMap  map[endpointKey]map[string]uint64
}

// NewClientInterface returns a client interface with no registered
// birth certificates.
func NewClientInterface() *ClientInterface {
	return &ClientInterface{
		namespace: DefaultNamespace,
		aliasMap:  make(map[endpointKey]map[string]uint64),
	}
}

// RegisterNBirth records a node's birth certificate so future NCMDs to
// it can be sent by alias.
func (c *ClientInterface) RegisterNBirth(groupID, edgeNodeID string, nbirth *Payload) {
	c.aliasMap[endpointKey{groupID, edgeNodeID, ""}] = aliasesOf(nbirth)
}

// RegisterDBirth records a device's birth certificate so future DCMDs
// to it can be sent by alias.
func (c *ClientInterface) RegisterDBirth(groupID, edgeNodeID, deviceID string, dbirth *Payload) {
	c.aliasMap[endpointKey{groupID, edgeNodeID, deviceID}] = aliasesOf(dbirth)
}

func aliasesOf(payload *Payload) map[string]uint64 {
	m := make(map[string]uint64, len(payload.Metrics))
	for _, metric := range payload.Metrics {
		if metric.HasName && metric.HasAlias {
			m[metric.Name] = metric.Alias
		}
	}
	return m
}

// NewNCmd builds an NCMD payload and topic for the named command.
// cmd is the command's base name, without the conventional command/
// prefix. If no birth certificate has been registered for this node,
// the command is addressed by name instead of alias, which is also
// useful for testing.
func (c *ClientInterface) NewNCmd(groupID, edgeNodeID, cmd string, datatype DataType, value any) (*Payload, string, error) {
	payload := NewPayload(0)
	metric := &Metric{Timestamp: payload.Timestamp, HasTimestamp: true}
	c.setNameOrAlias(metric, endpointKey{groupID, edgeNodeID, ""}, cmd)
	if err := SetScalarValue(metric, datatype, value); err != nil {
		return nil, "", err
	}
	payload.Metrics = append(payload.Metrics, metric)

	topic, err := MakeTopicString(c.namespace, groupID, "NCMD", edgeNodeID, "")
	if err != nil {
		return nil, "", err
	}
	return payload, topic, nil
}

// NewDCmd builds a DCMD payload and topic for the named command.
func (c *ClientInterface) NewDCmd(groupID, edgeNodeID, deviceID, cmd string, datatype DataType, value any) (*Payload, string, error) {
	payload := NewPayload(0)
	metric := &Metric{Timestamp: payload.Timestamp, HasTimestamp: true}
	c.setNameOrAlias(metric, endpointKey{groupID, edgeNodeID, deviceID}, cmd)
	if err := SetScalarValue(metric, datatype, value); err != nil {
		return nil, "", err
	}
	payload.Metrics = append(payload.Metrics, metric)

	topic, err := MakeTopicString(c.namespace, groupID, "DCMD", edgeNodeID, deviceID)
	if err != nil {
		return nil, "", err
	}
	return payload, topic, nil
}

func (c *ClientInterface) setNameOrAlias(metric *Metric, key endpointKey, cmd string) {
	if aliases, ok := c.aliasMap[key]; ok {
		if alias, ok := aliases[MakeCommandName(cmd)]; ok {
			metric.Alias, metric.HasAlias = alias, true
			return
		}
	}
	metric.Name, metric.HasName = MakeCommandName(cmd), true
}

// NodeNameFromTopic derives the (group, edge node) index this
// interface uses to key its alias map, from a literal topic string.
func NodeNameFromTopic(topicString string) (groupID, edgeNodeID string, err error) {
	t, err := ParseTopic(topicString)
	if err != nil {
		return "", "", err
	}
	switch tt := t.(type) {
	case NodeTopic:
		return tt.GroupID, tt.EdgeNodeID, nil
	case DeviceTopic:
		return tt.GroupID, tt.EdgeNodeID, nil
	default:
		return "", "", fmt.Errorf("tahu: topic %q has no edge node component", topicString)
	}
}
