// Package engine implements the IcyPaw CORE server engine: the
// single-threaded, cooperatively scheduled event loop that owns a
// node's (and its devices') Sparkplug-B lifecycle on top of an
// abstract pub/sub transport. All state mutation happens on the
// goroutine that calls ProcessEvents/Run; incoming network messages
// and timer/trigger callbacks are only ever turned into queue items
// from other goroutines, never applied directly.
package engine

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/icypaw-project/icypaw-core/internal/metrics"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/endpoint"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/log"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/queueitem"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
	"github.com/icypaw-project/icypaw-core/pkg/transport"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/types"
)

const (
	qos             = 1
	bdSeqWaitTimeout = 2 * time.Second
)

// inboundQueue is the Queue implementation the engine hands to every
// endpoint it powers. Put is safe to call from any goroutine; the
// engine's own goroutine is the only consumer.
type inboundQueue struct {
	ch chan queueitem.Item
}

func (q *inboundQueue) Put(item queueitem.Item) { q.ch <- item }

type deviceState struct {
	device *endpoint.Device
	isUp   bool
}

// Engine powers one node: it owns the node's Tahu wire interface, its
// transport session, its devices' liveness, and the cooperative event
// loop that applies every scheduled item in order. It is the Go
// counterpart of the original's ServerEngine.
type Engine struct {
	node  *endpoint.Node
	iface *tahu.ServerInterface
	tr    transport.Transport

	known []types.Descriptor

	queue     *inboundQueue
	scheduled eventHeap

	devices map[string]*deviceState

	metrics *metrics.Collector
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithKnownDescriptors registers record/array Descriptors the engine
// must recognize to decode incoming NCMD/DCMD metrics that carry
// those kinds, beyond the built-in scalars.
func WithKnownDescriptors(descriptors ...types.Descriptor) Option {
	return func(e *Engine) { e.known = append(e.known, descriptors...) }
}

// WithServerInterface supplies a pre-built Tahu server interface,
// e.g. to control the starting bdSeq explicitly instead of
// discovering it from the broker.
func WithServerInterface(iface *tahu.ServerInterface) Option {
	return func(e *Engine) { e.iface = iface }
}

// WithMetrics attaches a Prometheus collector the engine reports queue
// depth, publish counts, and command dispatch latency through. An
// Engine built without this option collects nothing.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine constructs an Engine that will power node over tr.
func NewEngine(node *endpoint.Node, tr transport.Transport, opts ...Option) (*Engine, error) {
	e := &Engine{
		node:    node,
		tr:      tr,
		queue:   &inboundQueue{ch: make(chan queueitem.Item, 4096)},
		devices: make(map[string]*deviceState),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.iface == nil {
		e.iface = tahu.NewServerInterface(node.GroupID(), node.EdgeNodeID())
	}

	node.RegisterCommandQueue(e.queue)

	allMetrics, err := node.TahuMetrics(true)
	if err != nil {
		return nil, fmt.Errorf("engine: node metrics: %w", err)
	}
	allCommands, err := node.TahuCommands(true)
	if err != nil {
		return nil, fmt.Errorf("engine: node commands: %w", err)
	}
	if err := e.iface.SetInitialNodeMetrics(append(allMetrics, allCommands...)); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	// Record the values the NBIRTH will carry as last sent, so the
	// first poll only reports metrics that changed since the birth.
	node.UpdatedMetrics()

	return e, nil
}

// Connect discovers the node's next bdSeq from the broker's retained
// NBIRTH (falling back to 0 if none is found within ctx's deadline),
// registers the NDEATH as last will, connects, publishes NBIRTH, and
// subscribes to NCMD. It returns once the node is live.
func (e *Engine) Connect(ctx context.Context, host string, port int) error {
	nbirthTopic, err := e.iface.NewNBirthTopic()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	discoverCtx, cancel := context.WithTimeout(ctx, bdSeqWaitTimeout)
	bdSeq := discoverBdSeq(discoverCtx, e.tr, nbirthTopic)
	cancel()
	e.iface.SetBdSeq(bdSeq)

	ndeath, err := e.iface.NewNDeath()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	ndeathTopic, err := e.iface.NewNDeathTopic()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	ndeathBytes := ndeath.Marshal()
	if err := e.tr.SetLastWill(ndeathTopic, ndeathBytes, qos, true); err != nil {
		return fmt.Errorf("engine: set last will: %w", err)
	}

	if err := e.tr.Connect(ctx, host, port); err != nil {
		return fmt.Errorf("engine: connect: %w", err)
	}

	nbirth, err := e.iface.NewNBirth()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := e.publish(nbirthTopic, nbirth, true); err != nil {
		return err
	}

	ncmdTopic, err := e.iface.NewNCmdTopic()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := e.tr.Subscribe(ncmdTopic, e.onNCmd); err != nil {
		return fmt.Errorf("engine: subscribe ncmd: %w", err)
	}

	if e.node.OnConnect != nil {
		e.node.OnConnect(e.node)
	}
	return nil
}

// Shutdown publishes a clean NDEATH (rather than relying on the
// transport's last will) and disconnects.
func (e *Engine) Shutdown() error {
	if e.node.OnShutdown != nil {
		e.node.OnShutdown(e.node)
	}
	ndeath, err := e.iface.NewNDeath()
	if err == nil {
		if topic, terr := e.iface.NewNDeathTopic(); terr == nil {
			_ = e.publish(topic, ndeath, true)
		}
	}
	if err := e.tr.Disconnect(); err != nil {
		return fmt.Errorf("engine: disconnect: %w", err)
	}
	if e.node.OnDisconnect != nil {
		e.node.OnDisconnect(e.node)
	}
	return nil
}

func (e *Engine) publish(topic string, payload *tahu.Payload, retain bool) error {
	if e.metrics != nil {
		e.metrics.MetricsPublished.Inc()
	}
	return e.tr.Publish(topic, payload.Marshal(), qos, retain)
}

// Run drives the event loop until ctx is done, blocking between
// scheduled items (and waking early for any incoming item, e.g. a
// decoded NCMD/DCMD or a fired timer). Callers that need to interleave
// other select-driven work should use ProcessEvents/WaitOnEvent
// directly instead.
func (e *Engine) Run(ctx context.Context) error {
	for {
		e.ProcessEvents()
		if _, err := e.WaitOnEvent(ctx); err != nil {
			return err
		}
	}
}

// ProcessEvents drains every item currently available on the inbound
// queue and runs every scheduled item whose due time has arrived. It
// returns once it would otherwise block waiting on new input.
func (e *Engine) ProcessEvents() {
	for {
		select {
		case item := <-e.queue.ch:
			heap.Push(&e.scheduled, scheduledEvent{execTime: item.ExecTime(), item: item})
			continue
		default:
		}
		break
	}

	for len(e.scheduled) > 0 {
		next := e.scheduled[0]
		if next.execTime.After(time.Now()) {
			break
		}
		heap.Pop(&e.scheduled)
		e.processItem(next.item)
	}

	if e.metrics != nil {
		e.metrics.QueueDepth.Set(float64(len(e.scheduled)))
	}
}

// WaitOnEvent blocks until either an item is ready to run in the
// scheduled heap or a new item arrives on the inbound queue, returning
// true if a new item was received. Run alternates it with
// ProcessEvents; it is exposed for callers that want to interleave the
// engine with other select-driven work.
func (e *Engine) WaitOnEvent(ctx context.Context) (bool, error) {
	var timer *time.Timer
	if len(e.scheduled) > 0 {
		d := time.Until(e.scheduled[0].execTime)
		if d < 0 {
			d = 0
		}
		timer = time.NewTimer(d)
		defer timer.Stop()
	}

	var timeoutCh <-chan time.Time
	if timer != nil {
		timeoutCh = timer.C
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case item := <-e.queue.ch:
		heap.Push(&e.scheduled, scheduledEvent{execTime: item.ExecTime(), item: item})
		return true, nil
	case <-timeoutCh:
		return false, nil
	}
}

func (e *Engine) processItem(item queueitem.Item) {
	var kind string
	switch v := item.(type) {
	case *queueitem.Schedule:
		kind = "schedule"
		e.processSchedule(v)
	case *queueitem.RegisterDevice:
		kind = "register_device"
		e.processRegisterDevice(v)
	case *queueitem.UnregisterDevice:
		kind = "unregister_device"
		e.processUnregisterDevice(v)
	case *queueitem.NodeRebirth:
		kind = "node_rebirth"
		e.rebirthNode()
	default:
		kind = "unknown"
		log.Warnf("engine: unknown queue item type %T", item)
	}
	if e.metrics != nil {
		e.metrics.EventsProcessed.WithLabelValues(kind).Inc()
	}
}

// processSchedule runs a deferred or periodic callback, then always
// publishes whatever metric changes it caused — even if it panicked
// partway through leaving the endpoint in a bad state, that state
// should be reflected on the wire.
func (e *Engine) processSchedule(item *queueitem.Schedule) {
	defer e.publishMetricUpdates()
	item.Func()
	if item.RepeatSec > 0 {
		next := item.Reschedule()
		heap.Push(&e.scheduled, scheduledEvent{execTime: next.ExecTime(), item: next})
	}
}

func (e *Engine) processRegisterDevice(item *queueitem.RegisterDevice) {
	dev, ok := item.Device.(*endpoint.Device)
	if !ok {
		log.Errorf("engine: RegisterDevice item carried non-Device payload")
		return
	}
	deviceID := dev.DeviceID()

	dev.RegisterCommandQueue(e.queue)

	state, existed := e.devices[deviceID]
	if existed {
		state.isUp = true
		e.iface.UnregisterDevice(deviceID)
	} else {
		state = &deviceState{device: dev, isUp: true}
		dcmdTopic, err := e.iface.NewDCmdTopic(deviceID)
		if err != nil {
			log.Errorf("engine: building dcmd topic for %q: %v", deviceID, err)
			return
		}
		if err := e.tr.Subscribe(dcmdTopic, e.makeOnDCmd(deviceID)); err != nil {
			log.Errorf("engine: subscribing dcmd for %q: %v", deviceID, err)
			return
		}
	}
	e.devices[deviceID] = state
	e.iface.RegisterDevice(deviceID)
	e.reportDeviceCount()

	metrics, err := dev.TahuMetrics(true)
	if err != nil {
		log.Errorf("engine: device %q metrics: %v", deviceID, err)
		return
	}
	commands, err := dev.TahuCommands(true)
	if err != nil {
		log.Errorf("engine: device %q commands: %v", deviceID, err)
		return
	}
	if err := e.iface.SetInitialDeviceMetrics(deviceID, append(metrics, commands...)); err != nil {
		log.Errorf("engine: device %q initial metrics: %v", deviceID, err)
		return
	}

	dbirth, err := e.iface.NewDBirth(deviceID)
	if err != nil {
		log.Errorf("engine: device %q dbirth: %v", deviceID, err)
		return
	}
	dbirthTopic, err := e.iface.NewDBirthTopic(deviceID)
	if err != nil {
		log.Errorf("engine: device %q dbirth topic: %v", deviceID, err)
		return
	}
	if err := e.publish(dbirthTopic, dbirth, true); err != nil {
		log.Errorf("engine: publishing dbirth for %q: %v", deviceID, err)
	}
}

func (e *Engine) processUnregisterDevice(item *queueitem.UnregisterDevice) {
	dev, ok := item.Device.(*endpoint.Device)
	if !ok {
		log.Errorf("engine: UnregisterDevice item carried non-Device payload")
		return
	}
	deviceID := dev.DeviceID()
	state, ok := e.devices[deviceID]
	if !ok {
		log.Errorf("engine: %v: attempt to unregister unknown device %q", icpwerr.UnknownDevice, deviceID)
		return
	}
	state.isUp = false
	e.iface.UnregisterDevice(deviceID)
	e.reportDeviceCount()

	ddeath := e.iface.NewDDeath()
	ddeathTopic, err := e.iface.NewDDeathTopic(deviceID)
	if err != nil {
		log.Errorf("engine: device %q ddeath topic: %v", deviceID, err)
		return
	}
	if err := e.publish(ddeathTopic, ddeath, true); err != nil {
		log.Errorf("engine: publishing ddeath for %q: %v", deviceID, err)
	}
}

// reportDeviceCount updates the devices-registered gauge to the number
// of devices currently marked up, not the number ever registered.
func (e *Engine) reportDeviceCount() {
	if e.metrics == nil {
		return
	}
	up := 0
	for _, state := range e.devices {
		if state.isUp {
			up++
		}
	}
	e.metrics.DevicesRegistered.Set(float64(up))
}

func (e *Engine) rebirthNode() {
	if e.metrics != nil {
		e.metrics.RebirthsTriggered.WithLabelValues("node").Inc()
	}
	metrics, _ := e.node.TahuMetrics(true)
	commands, _ := e.node.TahuCommands(true)
	all := append(metrics, commands...)
	for _, m := range all {
		if err := e.iface.SetNodeMetric(m, true); err != nil {
			log.Errorf("engine: rebirth set node metric %q: %v", m.Name, err)
		}
	}

	nbirth, err := e.iface.NewNBirth()
	if err != nil {
		log.Errorf("engine: rebirth: %v", err)
		return
	}
	topic, err := e.iface.NewNBirthTopic()
	if err != nil {
		log.Errorf("engine: rebirth topic: %v", err)
		return
	}
	if err := e.publish(topic, nbirth, true); err != nil {
		log.Errorf("engine: publishing rebirth nbirth: %v", err)
	}
}

func (e *Engine) rebirthDevice(deviceID string, dev *endpoint.Device) {
	if e.metrics != nil {
		e.metrics.RebirthsTriggered.WithLabelValues("device").Inc()
	}
	metrics, _ := dev.TahuMetrics(true)
	commands, _ := dev.TahuCommands(true)
	for _, m := range append(metrics, commands...) {
		if err := e.iface.SetDeviceMetric(deviceID, m); err != nil {
			log.Errorf("engine: rebirth set device %q metric %q: %v", deviceID, m.Name, err)
		}
	}
	dbirth, err := e.iface.NewDBirth(deviceID)
	if err != nil {
		log.Errorf("engine: rebirth device %q: %v", deviceID, err)
		return
	}
	topic, err := e.iface.NewDBirthTopic(deviceID)
	if err != nil {
		log.Errorf("engine: rebirth device %q topic: %v", deviceID, err)
		return
	}
	if err := e.publish(topic, dbirth, true); err != nil {
		log.Errorf("engine: publishing rebirth dbirth for %q: %v", deviceID, err)
	}
}

// publishMetricUpdates checks the node and every device for changed
// metrics and publishes them, or reissues a birth certificate if one
// has gone stale. processSchedule runs it after every Schedule item,
// which is the invariant the whole engine's freshness/update model
// rests on; the device-lifecycle and rebirth items do not run it.
func (e *Engine) publishMetricUpdates() {
	if e.node.IsBirthCertificateFresh() {
		if e.stageNodeUpdates(&e.node.Base) {
			if payload, err := e.iface.NewNData(); err != nil {
				log.Errorf("engine: building ndata: %v", err)
			} else if topic, err := e.iface.NewNDataTopic(); err == nil {
				_ = e.publish(topic, payload, false)
			}
		}
	} else {
		e.rebirthNode()
		e.node.MakeBirthCertificateFresh()
	}

	for deviceID, state := range e.devices {
		if !state.isUp {
			continue
		}
		if state.device.IsBirthCertificateFresh() {
			if e.stageDeviceUpdates(deviceID, &state.device.Base) {
				if payload, err := e.iface.NewDData(deviceID); err != nil {
					log.Errorf("engine: building ddata for %q: %v", deviceID, err)
				} else if topic, err := e.iface.NewDDataTopic(deviceID); err == nil {
					_ = e.publish(topic, payload, false)
				}
			}
		} else {
			e.rebirthDevice(deviceID, state.device)
			state.device.MakeBirthCertificateFresh()
		}
	}
}

// changedMetric builds the *tahu.Metric carrying name's update,
// diff-encoded against old where possible, so the organizer can stamp
// it with its stable alias and fold it into the next NDATA/DDATA.
func changedMetric(name string, delta endpoint.UpdatedMetric) *tahu.Metric {
	m := tahu.NewMetric()
	m.Name, m.HasName = name, true
	if delta.New == nil {
		m.Datatype = delta.Descriptor.Datatype()
		m.IsNull = true
		return m
	}
	if err := delta.New.SetDifferenceIntoMetric(m, delta.Old); err != nil {
		return nil
	}
	return m
}

// stageNodeUpdates feeds every changed node metric into the node's
// organizer so the next NewNData call picks them up, and reports
// whether anything changed at all.
func (e *Engine) stageNodeUpdates(base *endpoint.Base) bool {
	updated := base.UpdatedMetrics()
	staged := false
	for name, delta := range updated {
		m := changedMetric(name, delta)
		if m == nil {
			log.Errorf("engine: serializing update to %q", name)
			continue
		}
		if err := e.iface.SetNodeMetric(m, false); err != nil {
			log.Errorf("engine: staging node metric %q: %v", name, err)
			continue
		}
		staged = true
	}
	return staged
}

// stageDeviceUpdates is stageNodeUpdates for a device's organizer.
func (e *Engine) stageDeviceUpdates(deviceID string, base *endpoint.Base) bool {
	updated := base.UpdatedMetrics()
	staged := false
	for name, delta := range updated {
		m := changedMetric(name, delta)
		if m == nil {
			log.Errorf("engine: serializing update to %q/%q", deviceID, name)
			continue
		}
		if err := e.iface.SetDeviceMetric(deviceID, m); err != nil {
			log.Errorf("engine: staging device %q metric %q: %v", deviceID, name, err)
			continue
		}
		staged = true
	}
	return staged
}

func (e *Engine) onNCmd(_ string, payload []byte) {
	e.queue.Put(queueitem.NewSchedule(func() {
		p, err := tahu.UnmarshalPayload(payload)
		if err != nil {
			log.Errorf("engine: decoding ncmd: %v", err)
			return
		}
		for _, m := range p.Metrics {
			e.dispatchCommand(&e.node.Base, m, func(alias uint64) (string, error) {
				return e.iface.NodeMetricName(alias)
			})
		}
	}, 0, 0))
}

func (e *Engine) makeOnDCmd(deviceID string) transport.MessageHandler {
	return func(_ string, payload []byte) {
		e.queue.Put(queueitem.NewSchedule(func() {
			state, ok := e.devices[deviceID]
			if !ok {
				log.Errorf("engine: dcmd for unknown device %q", deviceID)
				return
			}
			if !state.isUp {
				log.Errorf("engine: dcmd for down device %q", deviceID)
				return
			}
			p, err := tahu.UnmarshalPayload(payload)
			if err != nil {
				log.Errorf("engine: decoding dcmd for %q: %v", deviceID, err)
				return
			}
			for _, m := range p.Metrics {
				e.dispatchCommand(&state.device.Base, m, func(alias uint64) (string, error) {
					return e.iface.DeviceMetricName(deviceID, alias)
				})
			}
		}, 0, 0))
	}
}

func (e *Engine) dispatchCommand(base *endpoint.Base, m *tahu.Metric, nameFromAlias func(uint64) (string, error)) {
	start := time.Now()
	outcome := "error"
	if e.metrics != nil {
		defer func() {
			e.metrics.CommandsReceived.WithLabelValues(outcome).Inc()
			e.metrics.CommandLatency.Observe(time.Since(start).Seconds())
		}()
	}

	value, err := types.ValueFromMetric(m, e.known...)
	if err != nil {
		log.Errorf("engine: decoding command metric: %v", err)
		return
	}

	name := m.Name
	if !m.HasName {
		name, err = nameFromAlias(m.Alias)
		if err != nil {
			log.Errorf("engine: resolving alias %d: %v", m.Alias, err)
			return
		}
	}
	if tahu.IsCommand(name) {
		name = tahu.BaseNameFromCommand(name)
	}
	if err := base.UpdateMetric(name, value); err != nil {
		log.Errorf("engine: applying command %q: %v", name, err)
		return
	}
	outcome = "ok"
}

// discoverBdSeq fetches the retained NBIRTH at topic (if any) within
// ctx's deadline and returns the next bdSeq to use, wrapping at 256.
// A missing or unreadable retained message is treated as "no prior
// birth", returning 0.
func discoverBdSeq(ctx context.Context, tr transport.Transport, nbirthTopic string) uint64 {
	raw, err := tr.FetchRetained(ctx, nbirthTopic)
	if err != nil || raw == nil {
		return 0
	}
	payload, err := tahu.UnmarshalPayload(raw)
	if err != nil {
		log.Warnf("engine: decoding retained nbirth: %v", err)
		return 0
	}
	last, ok := tahu.ReadBdSeq(payload)
	if !ok {
		return 0
	}
	return (last + 1) % 256
}
