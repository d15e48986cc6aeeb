// Package queueitem declares the work items the server engine's
// scheduler accepts over its inbound queue, and the narrow interface
// endpoints use to post them without depending on the engine package
// itself. The split keeps endpoint and engine free of a cycle, both
// depending only on the item shapes exchanged between them.
package queueitem

import "time"

// Item is anything that can be scheduled on the engine's queue: it
// knows when it is due and compares by due time so the engine's
// min-heap can order it against other items.
type Item interface {
	// ExecTime is when this item is due to run.
	ExecTime() time.Time
}

// Queue is the narrow posting interface an endpoint holds onto; the
// engine itself is the only implementation, but endpoints never import
// the engine package to avoid a cycle back to themselves.
type Queue interface {
	Put(item Item)
}

// Func is a unit of deferred or repeating work: a callback with no
// arguments, closing over whatever context it needs.
type Func func()

// Schedule is a generic "run this function at (and possibly
// repeatedly after) this time" item, used for icpw_run_in and for
// binding timer descriptors to the scheduler.
type Schedule struct {
	Func      Func
	RepeatSec float64 // 0 means run once
	execTime  time.Time
}

// NewSchedule returns a Schedule that runs fn once after delay, or
// repeatedly every repeatSec seconds if repeatSec > 0 (in which case
// delay is typically repeatSec too).
func NewSchedule(fn Func, repeatSec, delaySec float64) *Schedule {
	return &Schedule{
		Func:      fn,
		RepeatSec: repeatSec,
		execTime:  time.Now().Add(time.Duration(delaySec * float64(time.Second))),
	}
}

// NewScheduleAt returns a Schedule due at an explicit time, bypassing
// the delay-from-now convention NewSchedule uses.
func NewScheduleAt(fn Func, repeatSec float64, execTime time.Time) *Schedule {
	return &Schedule{Func: fn, RepeatSec: repeatSec, execTime: execTime}
}

func (s *Schedule) ExecTime() time.Time { return s.execTime }

// Reschedule returns a copy of s due RepeatSec seconds after its
// previous due time (drift-free periodic rescheduling), for use once
// the engine has run a repeating Schedule and wants to requeue it.
func (s *Schedule) Reschedule() *Schedule {
	return &Schedule{
		Func:      s.Func,
		RepeatSec: s.RepeatSec,
		execTime:  s.execTime.Add(time.Duration(s.RepeatSec * float64(time.Second))),
	}
}

// RegisterDevice asks the engine to attach a newly constructed device
// to its owning node, assigning it a fresh bdSeq-independent identity
// and scheduling its DBIRTH.
type RegisterDevice struct {
	Node     any // *endpoint.Node, typed any to avoid importing endpoint
	Device   any // *endpoint.Device
	execTime time.Time
}

// NewRegisterDevice returns a RegisterDevice item due immediately.
func NewRegisterDevice(node, device any) *RegisterDevice {
	return &RegisterDevice{Node: node, Device: device, execTime: time.Now()}
}

func (r *RegisterDevice) ExecTime() time.Time { return r.execTime }

// UnregisterDevice asks the engine to detach a device and issue its
// DDEATH.
type UnregisterDevice struct {
	Node     any
	Device   any
	execTime time.Time
}

// NewUnregisterDevice returns an UnregisterDevice item due immediately.
func NewUnregisterDevice(node, device any) *UnregisterDevice {
	return &UnregisterDevice{Node: node, Device: device, execTime: time.Now()}
}

func (u *UnregisterDevice) ExecTime() time.Time { return u.execTime }

// NodeRebirth asks the engine to reissue a node's NBIRTH, e.g. after a
// dynamic metric was added. Attached devices' DBIRTHs are not reissued.
type NodeRebirth struct {
	Node     any
	execTime time.Time
}

// NewNodeRebirth returns a NodeRebirth item due immediately.
func NewNodeRebirth(node any) *NodeRebirth {
	return &NodeRebirth{Node: node, execTime: time.Now()}
}

func (n *NodeRebirth) ExecTime() time.Time { return n.execTime }
