package endpoint

import (
	"fmt"
	"sync"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/queueitem"
)

// Node is an edge node endpoint: the top-level Sparkplug-B identity an
// engine manages, optionally owning one or more Devices. It is the Go
// counterpart of the original's ServerNode.
type Node struct {
	Base

	edgeNodeID   string
	deviceClasses map[string]func(nodeID, deviceID string) (*Device, error)

	devicesMu sync.Mutex
	devices   map[string]*Device

	OnConnect    func(n *Node)
	OnDisconnect func(n *Node)
	OnShutdown   func(n *Node)
}

// NodeOption configures a Node at construction time.
type NodeOption func(*Node)

// WithNodeMetric declares one metric on the node.
func WithNodeMetric(md *MetricDescriptor) NodeOption {
	return func(n *Node) { n.metrics = append(n.metrics, md) }
}

// WithNodeCommand declares one command on the node.
func WithNodeCommand(cd *CommandDescriptor) NodeOption {
	return func(n *Node) { n.commands = append(n.commands, cd) }
}

// WithNodeTimer declares one periodic callback on the node.
func WithNodeTimer(td *TimerDescriptor) NodeOption {
	return func(n *Node) { n.timers = append(n.timers, td) }
}

// WithNodeTrigger schedules a one-shot callback to run td.DelaySec
// seconds after the node is live.
func WithNodeTrigger(td *TriggerDescriptor) NodeOption {
	return func(n *Node) {
		n.RunIn(td.DelaySec, func() { td.Run(n) })
	}
}

// WithDeviceClass registers a device class the node may instantiate
// via RegisterDevice, keyed by a class name distinct from any device
// id, mirroring the original's class-based device registration.
func WithDeviceClass(class string, factory func(nodeID, deviceID string) (*Device, error)) NodeOption {
	return func(n *Node) { n.deviceClasses[class] = factory }
}

// WithOnConnect sets the hook run once the node's birth has been
// published and it is considered live.
func WithOnConnect(fn func(n *Node)) NodeOption {
	return func(n *Node) { n.OnConnect = fn }
}

// WithOnDisconnect sets the hook Engine.Shutdown runs after it has
// disconnected the transport. It is not run when the session drops
// without a Shutdown call.
func WithOnDisconnect(fn func(n *Node)) NodeOption {
	return func(n *Node) { n.OnDisconnect = fn }
}

// WithOnShutdown sets the hook run when the engine is asked to retire
// this node cleanly (publishing NDEATH itself rather than relying on
// the transport's last-will).
func WithOnShutdown(fn func(n *Node)) NodeOption {
	return func(n *Node) { n.OnShutdown = fn }
}

// NewNode constructs a Node in the given Sparkplug-B group, applying
// opts in order.
func NewNode(groupID, edgeNodeID string, opts ...NodeOption) *Node {
	n := &Node{
		Base:          newBase(groupID, nil, nil, nil),
		edgeNodeID:    edgeNodeID,
		deviceClasses: make(map[string]func(string, string) (*Device, error)),
		devices:       make(map[string]*Device),
		OnConnect:     func(*Node) {},
		OnDisconnect:  func(*Node) {},
		OnShutdown:    func(*Node) {},
	}
	for _, opt := range opts {
		opt(n)
	}
	n.bindOwner(n)
	return n
}

// EdgeNodeID returns this node's Sparkplug-B edge node id.
func (n *Node) EdgeNodeID() string { return n.edgeNodeID }

// RegisterDevice instantiates and enqueues registration of a device of
// the named class under this node. The device becomes live (DBIRTH
// published) once the engine processes the queued item.
func (n *Node) RegisterDevice(class, deviceID string) (*Device, error) {
	factory, ok := n.deviceClasses[class]
	if !ok {
		return nil, fmt.Errorf("endpoint: %w: device class %q", icpwerr.WrongDeviceClass, class)
	}
	dev, err := factory(n.edgeNodeID, deviceID)
	if err != nil {
		return nil, err
	}
	dev.bindOwner(dev)

	n.devicesMu.Lock()
	n.devices[deviceID] = dev
	n.devicesMu.Unlock()

	n.EnqueueCommand(queueitem.NewRegisterDevice(n, dev))
	return dev, nil
}

// UnregisterDevice enqueues retirement of a previously registered
// device, publishing its DDEATH once the engine processes the item.
func (n *Node) UnregisterDevice(deviceID string) error {
	n.devicesMu.Lock()
	dev, ok := n.devices[deviceID]
	if ok {
		delete(n.devices, deviceID)
	}
	n.devicesMu.Unlock()
	if !ok {
		return fmt.Errorf("endpoint: %w: %q", icpwerr.UnknownDevice, deviceID)
	}
	n.EnqueueCommand(queueitem.NewUnregisterDevice(n, dev))
	return nil
}

// Device returns a previously registered device by id.
func (n *Node) Device(deviceID string) (*Device, bool) {
	n.devicesMu.Lock()
	defer n.devicesMu.Unlock()
	dev, ok := n.devices[deviceID]
	return dev, ok
}

// Devices returns every currently registered device.
func (n *Node) Devices() []*Device {
	n.devicesMu.Lock()
	defer n.devicesMu.Unlock()
	out := make([]*Device, 0, len(n.devices))
	for _, dev := range n.devices {
		out = append(out, dev)
	}
	return out
}

// Rebirth enqueues a fresh NBIRTH, e.g. after a dynamic
// AddMetric/DelMetric call. Devices are not reborn by it.
func (n *Node) Rebirth() {
	n.EnqueueCommand(queueitem.NewNodeRebirth(n))
}
