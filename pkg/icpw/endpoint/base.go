package endpoint

import (
	"fmt"
	"sync"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/queueitem"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/types"
)

// storedMetric holds one metric's last-sent value plus the flags the
// wire representation needs, mirroring the original's StoredMetric.
// The original additionally enforced that a metric was only ever
// touched from the goroutine it was assigned to; this port keeps that
// contract as documentation only and performs no runtime check, since
// Go has no cheap goroutine-id equivalent to mirror
// threading.get_ident() with.
type storedMetric struct {
	value       types.Value
	isHistorical bool
	isTransient bool
}

// Base is the common per-endpoint state a Node or Device embeds: its
// declared metrics and commands, the last value sent for each metric,
// and the command queue used to defer work onto the engine's
// scheduler. It is the Go counterpart of the original's
// ServerEndpointBase.
type Base struct {
	groupID string
	owner   any

	mu       sync.Mutex
	metrics  []*MetricDescriptor
	commands []*CommandDescriptor
	timers   []*TimerDescriptor

	lastSent map[string]*storedMetric

	queueMu     sync.Mutex
	queue       queueitem.Queue
	queueBuffer []queueitem.Item

	freshMu sync.Mutex
	fresh   bool
}

// newBase constructs a Base with the given group id and declared
// metrics/commands/timers. Node and Device both call this from their
// own constructors.
func newBase(groupID string, metrics []*MetricDescriptor, commands []*CommandDescriptor, timers []*TimerDescriptor) Base {
	return Base{
		groupID:  groupID,
		metrics:  metrics,
		commands: commands,
		timers:   timers,
		lastSent: make(map[string]*storedMetric),
		fresh:    true,
	}
}

// GroupID returns the Sparkplug-B group this endpoint belongs to.
func (b *Base) GroupID() string { return b.groupID }

// IsBirthCertificateFresh reports whether no metric has been added or
// removed since the last birth was issued (or since construction).
func (b *Base) IsBirthCertificateFresh() bool {
	b.freshMu.Lock()
	defer b.freshMu.Unlock()
	return b.fresh
}

// MakeBirthCertificateFresh clears the stale-birth flag after the
// engine has issued a fresh birth for this endpoint.
func (b *Base) MakeBirthCertificateFresh() {
	b.freshMu.Lock()
	b.fresh = true
	b.freshMu.Unlock()
}

func (b *Base) markStale() {
	b.freshMu.Lock()
	b.fresh = false
	b.freshMu.Unlock()
}

// AddMetric registers a new metric at runtime. Because MetricDescriptor
// values here are ordinary instance-level state (not class-level
// descriptors as in the original), this is a plain append rather than
// a mutation of the owning type; it still marks the birth certificate
// stale so the engine knows to rebirth.
func (b *Base) AddMetric(md *MetricDescriptor) {
	b.mu.Lock()
	b.metrics = append(b.metrics, md)
	b.mu.Unlock()
	b.markStale()
}

// DelMetric removes a previously registered metric by name.
func (b *Base) DelMetric(name string) {
	b.mu.Lock()
	for i, md := range b.metrics {
		if md.Name == name {
			b.metrics = append(b.metrics[:i], b.metrics[i+1:]...)
			break
		}
	}
	delete(b.lastSent, name)
	b.mu.Unlock()
	b.markStale()
}

// TahuMetrics builds the wire representation of every declared metric,
// as used for a birth certificate.
func (b *Base) TahuMetrics(withProperties bool) ([]*tahu.Metric, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*tahu.Metric, 0, len(b.metrics))
	for _, md := range b.metrics {
		m, err := md.tahuMetric(b.owner, withProperties)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// TahuCommands builds the wire representation of every declared
// command, as used for a birth certificate.
func (b *Base) TahuCommands(withProperties bool) ([]*tahu.Metric, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*tahu.Metric, 0, len(b.commands))
	for _, cd := range b.commands {
		m, err := cd.tahuMetric(withProperties)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// owner is set by Node/Device's constructor to the embedding value, so
// Base can pass it through to Getter/Setter callbacks without an
// import cycle back to its own concrete type.
//
// It is set once at construction and never reassigned afterward.
func (b *Base) bindOwner(owner any) { b.owner = owner }

// UpdateMetric applies a network-originated write: it dispatches to a
// metric's Setter if name matches a declared metric, or to a command's
// Run if name matches a declared command (after stripping the command
// topic prefix). It returns icpwerr.UnknownCommand for a command name
// that matches no declared command, icpwerr.ReadOnly for a metric with
// no Setter, and icpwerr.UnknownMetric for any other unmatched name.
func (b *Base) UpdateMetric(name string, arg types.Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tahu.IsCommand(name) {
		base := tahu.BaseNameFromCommand(name)
		for _, cd := range b.commands {
			if cd.Name == base {
				return cd.Run(b.owner, arg)
			}
		}
		return fmt.Errorf("endpoint: %w: command %q", icpwerr.UnknownCommand, base)
	}

	for _, md := range b.metrics {
		if md.Name != name {
			continue
		}
		if md.ReadOnly() {
			return fmt.Errorf("endpoint: %w: metric %q", icpwerr.ReadOnly, name)
		}
		return md.Set(b.owner, arg)
	}
	return fmt.Errorf("endpoint: %w: %q", icpwerr.UnknownMetric, name)
}

// UpdatedMetric is one metric UpdatedMetrics found changed: its new
// and previous value (for difference encoding) plus the Descriptor
// that serialized them, needed to carry a datatype even when New is
// nil (an explicit null has no value to infer a datatype from).
type UpdatedMetric struct {
	New, Old   types.Value
	Descriptor types.Descriptor
}

// UpdatedMetrics polls every declared metric's getter and returns the
// subset whose plain-Go representation differs from the last value
// sent, along with the previous value for difference encoding. The
// internal record of "last sent" is updated to the new values.
func (b *Base) UpdatedMetrics() map[string]UpdatedMetric {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]UpdatedMetric)
	for _, md := range b.metrics {
		value := md.Get(b.owner)
		isHistorical, isTransient := false, false
		switch vv := value.(type) {
		case types.HistoricalValue:
			value, isHistorical = vv.Value, true
		case types.TransientValue:
			value, isTransient = vv.Value, true
		}

		prev, had := b.lastSent[md.Name]
		changed := !had
		if had && prev.value != nil && value != nil {
			changed = !prev.value.Equals(value)
		} else if had && (prev.value == nil) != (value == nil) {
			changed = true
		}

		if changed {
			var old types.Value
			if had {
				old = prev.value
			}
			out[md.Name] = UpdatedMetric{New: value, Old: old, Descriptor: md.Descriptor}
		}
		b.lastSent[md.Name] = &storedMetric{value: value, isHistorical: isHistorical, isTransient: isTransient}
	}
	return out
}

// AllMetrics polls every declared metric's getter unconditionally,
// returning the full current state for a birth certificate.
func (b *Base) AllMetrics() map[string]types.Value {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]types.Value, len(b.metrics))
	for _, md := range b.metrics {
		out[md.Name] = md.Get(b.owner)
	}
	return out
}

// RegisterCommandQueue attaches this endpoint to the engine's live
// queue, draining anything buffered by RunIn/EnqueueCommand calls made
// before the engine was ready. This mirrors the original's
// double-checked-locking handoff between a pre-registration buffer and
// the real queue.
func (b *Base) RegisterCommandQueue(q queueitem.Queue) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	b.queue = q
	for _, item := range b.queueBuffer {
		q.Put(item)
	}
	b.queueBuffer = nil

	for _, td := range b.timers {
		td := td
		q.Put(queueitem.NewSchedule(func() { td.Run(b.owner) }, td.PeriodSec, td.PeriodSec))
	}
}

// EnqueueCommand posts item to the live queue if the engine has
// registered one, or buffers it for delivery once RegisterCommandQueue
// runs. The buffered path exists because an endpoint can call RunIn
// (e.g. from a constructor) before the engine has started scheduling
// it.
func (b *Base) EnqueueCommand(item queueitem.Item) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	if b.queue != nil {
		b.queue.Put(item)
		return
	}
	b.queueBuffer = append(b.queueBuffer, item)
}

// RunIn schedules fn to run once, after delaySec seconds, on the
// engine's single scheduling goroutine.
func (b *Base) RunIn(delaySec float64, fn func()) {
	b.EnqueueCommand(queueitem.NewSchedule(fn, 0, delaySec))
}
