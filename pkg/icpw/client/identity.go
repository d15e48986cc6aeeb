// Package client implements the client-side endpoint table: tracking
// every node/device this client has observed a birth from, resolving
// their template types and metric aliases, merging incoming data
// messages, and routing changes to user subscriptions.
package client

import (
	"fmt"
	"strings"
)

// EndpointID identifies a node or device endpoint by its (group, node,
// device) triple. DeviceID is empty for a node-level endpoint.
// Equality is structural, matching the distilled data model's
// "Endpoint identity" definition.
type EndpointID struct {
	GroupID    string
	EdgeNodeID string
	DeviceID   string
}

// IsDevice reports whether this identity names a device rather than a
// node.
func (id EndpointID) IsDevice() bool { return id.DeviceID != "" }

// NodeID returns the node-level identity this endpoint belongs to,
// stripping any device component.
func (id EndpointID) NodeID() EndpointID {
	return EndpointID{GroupID: id.GroupID, EdgeNodeID: id.EdgeNodeID}
}

func (id EndpointID) String() string {
	if id.IsDevice() {
		return fmt.Sprintf("%s/%s/%s", id.GroupID, id.EdgeNodeID, id.DeviceID)
	}
	return fmt.Sprintf("%s/%s", id.GroupID, id.EdgeNodeID)
}

// EndpointPattern is a subscription filter over EndpointIDs. Each
// component may be "+" to mean "any", matching the wildcard rule the
// distilled data model gives for endpoint identity components.
type EndpointPattern struct {
	GroupID    string
	EdgeNodeID string
	DeviceID   string // "" matches node endpoints only, "+" matches any device too
}

// ParseEndpointPattern parses a "group/node" or "group/node/device"
// string, where any component may be "+".
func ParseEndpointPattern(s string) (EndpointPattern, error) {
	fields := strings.Split(s, "/")
	switch len(fields) {
	case 2:
		return EndpointPattern{GroupID: fields[0], EdgeNodeID: fields[1]}, nil
	case 3:
		return EndpointPattern{GroupID: fields[0], EdgeNodeID: fields[1], DeviceID: fields[2]}, nil
	default:
		return EndpointPattern{}, fmt.Errorf("icpw: endpoint pattern %q must have 2 or 3 fields", s)
	}
}

// Match reports whether id satisfies this pattern.
func (p EndpointPattern) Match(id EndpointID) bool {
	if !matchComponent(p.GroupID, id.GroupID) {
		return false
	}
	if !matchComponent(p.EdgeNodeID, id.EdgeNodeID) {
		return false
	}
	if p.DeviceID == "" {
		return id.DeviceID == ""
	}
	return matchComponent(p.DeviceID, id.DeviceID)
}

func matchComponent(pattern, value string) bool {
	return pattern == "+" || pattern == value
}
