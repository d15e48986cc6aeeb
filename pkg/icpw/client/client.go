package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/types"
	"github.com/icypaw-project/icypaw-core/pkg/log"
	"github.com/icypaw-project/icypaw-core/pkg/transport"
)

// Subscription is the handle returned by Client.Subscribe; pass it to
// Client.Unsubscribe to stop receiving callbacks.
type Subscription uint64

// Callback is invoked for every matching update a subscription
// receives. changedMetrics is nil for a pure online/offline
// transition that carried no metric changes.
type Callback func(event Event, id EndpointID, changedMetrics []string)

type subscriptionEntry struct {
	id       Subscription
	mask     Event
	pattern  EndpointPattern
	callback Callback
}

type fingerprint struct {
	hasTimestamp bool
	timestamp    uint64
	hasSeq       bool
	seq          uint64
}

// Client is the user-facing façade over the client endpoint table: it
// owns the transport subscription that observes every birth/data/death
// message in scope, reconstructs each remote endpoint's type model and
// current values, and routes changes to registered subscriptions.
//
// Client's table lock (distilled §5's "single re-entrant lock") is a
// plain sync.Mutex: Go has no reentrant mutex, so every method here is
// written to acquire it at most once per call and never while already
// holding it, the idiomatic replacement for the original's
// `with self._client_data as data` context-manager pattern.
type Client struct {
	tr        transport.Transport
	namespace string

	mu        sync.Mutex
	endpoints map[EndpointID]*clientEndpoint
	subs      []*subscriptionEntry
	nextSubID Subscription
	seen      map[string]fingerprint // by topic

	nextCmdSeq uint64
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithNamespace overrides the default Sparkplug-B namespace
// ("spBv1.0").
func WithNamespace(namespace string) Option {
	return func(c *Client) { c.namespace = namespace }
}

// New returns an unconnected Client bound to tr.
func New(tr transport.Transport, opts ...Option) *Client {
	c := &Client{
		tr:        tr,
		namespace: tahu.DefaultNamespace,
		endpoints: make(map[EndpointID]*clientEndpoint),
		seen:      make(map[string]fingerprint),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes the transport session and subscribes to every
// message this namespace's nodes and devices publish.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	if err := c.tr.Connect(ctx, host, port); err != nil {
		return fmt.Errorf("client: connect: %w", err)
	}
	if err := c.tr.Subscribe(c.namespace+"/#", c.onMessage); err != nil {
		return fmt.Errorf("client: subscribe: %w", err)
	}
	return nil
}

// Disconnect tears down the transport session.
func (c *Client) Disconnect() error {
	return c.tr.Disconnect()
}

// Subscribe registers callback to run for every message matching mask
// and pattern. Returns a handle for Unsubscribe.
func (c *Client) Subscribe(mask Event, pattern EndpointPattern, callback Callback) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	entry := &subscriptionEntry{id: c.nextSubID, mask: mask, pattern: pattern, callback: callback}
	c.subs = append(c.subs, entry)
	return entry.id
}

// Unsubscribe removes a previously registered subscription. It is a
// no-op if id is unknown.
func (c *Client) Unsubscribe(id Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.subs[:0]
	for _, s := range c.subs {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	c.subs = kept
}

// State returns the tri-state liveness classification of an endpoint.
func (c *Client) State(id EndpointID) EndpointState {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.endpoints[id]
	if !ok {
		return StateUnknown
	}
	return e.liveness.state()
}

// Metric returns the current value of a named metric on a known,
// online-or-not endpoint.
func (c *Client) Metric(id EndpointID, name string) (types.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.endpoints[id]
	if !ok {
		return nil, false
	}
	return e.metric(name)
}

// Property returns the current value of a named endpoint property.
func (c *Client) Property(id EndpointID, name string) (types.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.endpoints[id]
	if !ok {
		return nil, false
	}
	return e.property(name)
}

// SetMetric implements the distilled write path: it validates online
// status, writability, and (for scalars with Low/High properties)
// bounds, publishing an NCMD/DCMD with the metric's name or alias. A
// validation failure returns PolicyViolation unless force is true, in
// which case the failure is logged and the write is sent anyway.
func (c *Client) SetMetric(ctx context.Context, id EndpointID, name string, value types.Value, force bool) error {
	return c.publish(ctx, id, name, value, false, force)
}

// CallCommand requests execution of a named command, with the same
// online-state validation as SetMetric (writability/bounds do not
// apply to commands).
func (c *Client) CallCommand(ctx context.Context, id EndpointID, name string, arg types.Value, force bool) error {
	return c.publish(ctx, id, name, arg, true, force)
}

func (c *Client) publish(ctx context.Context, id EndpointID, name string, value types.Value, isCommand, force bool) error {
	c.mu.Lock()
	e, ok := c.endpoints[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("client: %s: %w", id, icpwerr.UnknownDevice)
	}
	if !e.liveness.online() {
		if !force {
			c.mu.Unlock()
			return fmt.Errorf("client: %s is offline: %w", id, icpwerr.PolicyViolation)
		}
		log.Warnf("client: %s: sending to offline endpoint (forced)", id)
	}

	wireName := name
	if !isCommand {
		if !e.isWritable(name) {
			if !force {
				c.mu.Unlock()
				return fmt.Errorf("client: %s/%s is read-only: %w", id, name, icpwerr.PolicyViolation)
			}
			log.Warnf("client: %s/%s: writing read-only metric (forced)", id, name)
		}
		if low, high, hasBounds := e.bounds(name); hasBounds {
			if n, isNum := numericValue(value); isNum && (n < low || n > high) {
				if !force {
					c.mu.Unlock()
					return fmt.Errorf("client: %s/%s: value %v out of bounds [%v, %v]: %w", id, name, n, low, high, icpwerr.PolicyViolation)
				}
				log.Warnf("client: %s/%s: value %v outside [%v, %v] (forced)", id, name, n, low, high)
			}
		}
	} else {
		wireName = tahu.MakeCommandName(name)
	}

	payload := tahu.NewPayload(0)
	metric := &tahu.Metric{Timestamp: payload.Timestamp, HasTimestamp: true}
	if alias, hasAlias := e.namesToAliases[wireName]; hasAlias {
		metric.Alias, metric.HasAlias = alias, true
	} else {
		metric.Name, metric.HasName = wireName, true
	}
	if err := value.SetIntoMetric(metric); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("client: %s/%s: %w", id, name, err)
	}
	payload.Metrics = []*tahu.Metric{metric}

	topic, err := tahu.MakeTopicString(c.namespace, id.GroupID, cmdMessageType(id), id.EdgeNodeID, id.DeviceID)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}

	if err := c.tr.Publish(topic, payload.Marshal(), 1, false); err != nil {
		return fmt.Errorf("client: publish to %q: %w", topic, err)
	}
	return nil
}

func cmdMessageType(id EndpointID) string {
	if id.IsDevice() {
		return "DCMD"
	}
	return "NCMD"
}

func numericValue(v types.Value) (float64, bool) {
	switch x := v.ToPython().(type) {
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// onMessage is the transport.MessageHandler installed at Connect. It
// parses, deduplicates, and applies exactly one inbound wire message,
// then routes the resulting event to matching subscriptions with the
// callback invoked outside the table lock, per distilled §5's rule.
func (c *Client) onMessage(topic string, payload []byte) {
	t, err := tahu.ParseTopic(topic)
	if err != nil {
		log.Warnf("client: %q: %v", topic, err)
		return
	}
	decoded, err := tahu.UnmarshalPayload(payload)
	if err != nil {
		log.Warnf("client: %q: %v", topic, err)
		return
	}

	var messageType string
	var id EndpointID
	switch tt := t.(type) {
	case tahu.NodeTopic:
		messageType, id = tt.MessageType, EndpointID{GroupID: tt.GroupID, EdgeNodeID: tt.EdgeNodeID}
	case tahu.DeviceTopic:
		messageType, id = tt.MessageType, EndpointID{GroupID: tt.GroupID, EdgeNodeID: tt.EdgeNodeID, DeviceID: tt.DevID}
	default:
		return // STATE topics carry no endpoint identity we track here
	}
	if messageType == "NCMD" || messageType == "DCMD" {
		return // commands are not something a client observes from others
	}

	if c.isDuplicate(topic, decoded) {
		return
	}

	event, changed, err := c.applyMessage(messageType, id, decoded)
	if err != nil {
		log.Warnf("client: %s %s: %v", id, messageType, err)
		return
	}
	if event == 0 {
		return
	}
	c.route(event, id, changed)
}

func (c *Client) isDuplicate(topic string, payload *tahu.Payload) bool {
	fp := fingerprint{hasTimestamp: payload.HasTimestamp, timestamp: payload.Timestamp, hasSeq: payload.HasSeq, seq: payload.Seq}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.seen[topic]; ok && prev == fp {
		return true
	}
	c.seen[topic] = fp
	return false
}

// applyMessage mutates the endpoint table for one decoded message and
// returns the event kind to route (0 for none) and the changed metric
// names, if any.
func (c *Client) applyMessage(messageType string, id EndpointID, payload *tahu.Payload) (Event, []string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch messageType {
	case "NBIRTH":
		e := c.getOrCreate(id)
		changed, err := e.applyBirth(payload, nil)
		if err != nil {
			return 0, nil, err
		}
		return EventOnline, changed, nil

	case "DBIRTH":
		var inherited map[string]*types.StructSchema
		if parent, ok := c.endpoints[id.NodeID()]; ok {
			inherited = parent.templates
		} else {
			log.Warnf("client: %s: device birth with unseen parent node, proceeding with empty templates", id)
		}
		e := c.getOrCreate(id)
		changed, err := e.applyBirth(payload, inherited)
		if err != nil {
			return 0, nil, err
		}
		return EventOnline, changed, nil

	case "NDATA", "DDATA":
		e, ok := c.endpoints[id]
		if !ok {
			log.Warnf("client: %s: data for unseen endpoint, dropped", id)
			return 0, nil, nil
		}
		changed, err := e.applyData(payload)
		if err != nil {
			return 0, nil, err
		}
		return EventMetricUpdate, changed, nil

	case "NDEATH", "DDEATH":
		e, ok := c.endpoints[id]
		if !ok {
			return 0, nil, nil
		}
		wasOnline := e.liveness.online()
		e.applyDeath(payload)
		if wasOnline && !e.liveness.online() {
			return EventOffline, nil, nil
		}
		return 0, nil, nil

	default:
		return 0, nil, nil
	}
}

func (c *Client) getOrCreate(id EndpointID) *clientEndpoint {
	e, ok := c.endpoints[id]
	if !ok {
		e = newClientEndpoint(id)
		c.endpoints[id] = e
	}
	return e
}

func (c *Client) route(event Event, id EndpointID, changed []string) {
	c.mu.Lock()
	snapshot := make([]*subscriptionEntry, len(c.subs))
	copy(snapshot, c.subs)
	c.mu.Unlock()

	for _, s := range snapshot {
		if event.Has(s.mask) && s.pattern.Match(id) {
			s.callback(event, id, changed)
		}
	}
}
