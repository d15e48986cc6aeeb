package tahu

import (
	"fmt"
	"strings"
)

// DefaultNamespace is the Sparkplug-B namespace used when none is given.
const DefaultNamespace = "spBv1.0"

// Topic is implemented by NodeTopic, DeviceTopic, and StateTopic, giving
// a uniform interface over the three topic shapes the wire protocol
// uses.
type Topic interface {
	// String returns the slash-joined wire topic string.
	String() string
	// DeviceID returns the device component, or "" if this topic has
	// none (a node or state topic).
	DeviceID() string
}

// NodeTopic addresses a node-level message:
// <namespace>/<group>/<message type>/<node>.
type NodeTopic struct {
	Namespace   string
	GroupID     string
	MessageType string
	EdgeNodeID  string
}

// NewNodeTopic validates its components and returns a NodeTopic.
func NewNodeTopic(namespace, group, messageType, node string) (NodeTopic, error) {
	var t NodeTopic
	var err error
	if t.Namespace, err = validateComponent(namespace); err != nil {
		return t, err
	}
	if t.GroupID, err = validateComponent(group); err != nil {
		return t, err
	}
	if t.MessageType, err = validateComponent(messageType); err != nil {
		return t, err
	}
	t.MessageType = strings.ToUpper(t.MessageType)
	if t.EdgeNodeID, err = validateComponent(node); err != nil {
		return t, err
	}
	return t, nil
}

func (t NodeTopic) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", t.Namespace, t.GroupID, t.MessageType, t.EdgeNodeID)
}

// DeviceID always returns "" for a node topic.
func (t NodeTopic) DeviceID() string { return "" }

// Match reports whether tahuTopic (a literal topic string, not a
// pattern) matches this topic, treating a lone "+" component of this
// topic as a wildcard; a "+" in tahuTopic is compared literally.
func (t NodeTopic) Match(tahuTopic string) bool {
	fields := strings.Split(tahuTopic, "/")
	if len(fields) != 4 {
		return false
	}
	want := []string{t.Namespace, t.GroupID, t.MessageType, t.EdgeNodeID}
	return matchFields(fields, want)
}

// DeviceTopic addresses a device-level message:
// <namespace>/<group>/<message type>/<node>/<device>.
type DeviceTopic struct {
	Namespace   string
	GroupID     string
	MessageType string
	EdgeNodeID  string
	DevID       string
}

// NewDeviceTopic validates its components and returns a DeviceTopic.
func NewDeviceTopic(namespace, group, messageType, node, device string) (DeviceTopic, error) {
	var t DeviceTopic
	var err error
	if t.Namespace, err = validateComponent(namespace); err != nil {
		return t, err
	}
	if t.GroupID, err = validateComponent(group); err != nil {
		return t, err
	}
	if t.MessageType, err = validateComponent(messageType); err != nil {
		return t, err
	}
	t.MessageType = strings.ToUpper(t.MessageType)
	if t.EdgeNodeID, err = validateComponent(node); err != nil {
		return t, err
	}
	if t.DevID, err = validateComponent(device); err != nil {
		return t, err
	}
	return t, nil
}

func (t DeviceTopic) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", t.Namespace, t.GroupID, t.MessageType, t.EdgeNodeID, t.DevID)
}

// DeviceID returns the device component of the topic.
func (t DeviceTopic) DeviceID() string { return t.DevID }

// Match reports whether tahuTopic matches this topic, honoring "+"
// wildcard components.
func (t DeviceTopic) Match(tahuTopic string) bool {
	fields := strings.Split(tahuTopic, "/")
	if len(fields) != 5 {
		return false
	}
	want := []string{t.Namespace, t.GroupID, t.MessageType, t.EdgeNodeID, t.DevID}
	return matchFields(fields, want)
}

// StateTopic addresses the host-application liveness topic:
// STATE/<scada host id>. It carries no group or node ID.
type StateTopic struct {
	ScadaHostID string
}

func (t StateTopic) String() string     { return "STATE/" + t.ScadaHostID }
func (t StateTopic) DeviceID() string   { return "" }

// ParseTopic parses a literal (non-wildcard) topic string into a
// NodeTopic, DeviceTopic, or StateTopic.
func ParseTopic(topicString string) (Topic, error) {
	fields := strings.Split(topicString, "/")

	if len(fields) == 2 && strings.ToUpper(fields[0]) == "STATE" {
		host, err := validateComponent(fields[1])
		if err != nil {
			return nil, err
		}
		return StateTopic{ScadaHostID: host}, nil
	}

	if len(fields) != 4 && len(fields) != 5 {
		return nil, fmt.Errorf("tahu: topic must have 2, 4, or 5 fields, found %d", len(fields))
	}

	if len(fields) == 5 {
		return NewDeviceTopic(fields[0], fields[1], fields[2], fields[3], fields[4])
	}
	return NewNodeTopic(fields[0], fields[1], fields[2], fields[3])
}

// MakeTopicString builds the wire topic string for either a node (device
// == "") or device topic.
func MakeTopicString(namespace, group, messageType, node, device string) (string, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if device == "" {
		t, err := NewNodeTopic(namespace, group, messageType, node)
		if err != nil {
			return "", err
		}
		return t.String(), nil
	}
	t, err := NewDeviceTopic(namespace, group, messageType, node, device)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

func matchFields(fields, want []string) bool {
	for i, w := range want {
		if w == "+" {
			continue
		}
		if fields[i] != w {
			return false
		}
	}
	return true
}

// validateComponent checks that a topic component contains none of the
// MQTT-reserved characters, except that the component may be exactly
// "+" to mean "any" in a subscription filter.
func validateComponent(component string) (string, error) {
	if component != "+" {
		if strings.ContainsAny(component, "#/+") {
			return "", fmt.Errorf("tahu: topic component %q contains one of '#', '/', or '+'", component)
		}
	}
	if component == "" {
		return "", fmt.Errorf("tahu: topic component must not be empty")
	}
	return component, nil
}
