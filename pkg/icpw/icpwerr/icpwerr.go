// Package icpwerr declares the sentinel error kinds shared across the
// IcyPaw core packages. Callers compare with errors.Is; wrapping with
// fmt.Errorf("...: %w", ...) is expected at each layer that adds context.
package icpwerr

import "errors"

var (
	// TypeMismatch is returned when a value does not fit the declared type,
	// e.g. an out-of-range scalar or a Go value that cannot convert to the
	// target IcypawType.
	TypeMismatch = errors.New("icpw: type mismatch")

	// MalformedWireData is returned when a decoded wire message violates a
	// structural invariant (e.g. dataset row length does not match its
	// column count).
	MalformedWireData = errors.New("icpw: malformed wire data")

	// UnknownTemplate is returned when a metric references a template_ref
	// with no matching definition.
	UnknownTemplate = errors.New("icpw: unknown template")

	// UnresolvedTemplate is returned when a set of template definitions
	// cannot be fully resolved because of a circular or missing dependency.
	UnresolvedTemplate = errors.New("icpw: unresolved template")

	// UnknownMetric is returned when a name or alias has no corresponding
	// metric in an organizer or endpoint.
	UnknownMetric = errors.New("icpw: unknown metric")

	// UnknownCommand is returned when a name has no corresponding command.
	UnknownCommand = errors.New("icpw: unknown command")

	// ReadOnly is returned when a write is attempted against a read-only
	// metric.
	ReadOnly = errors.New("icpw: metric is read-only")

	// ThreadViolation is returned when a metric is accessed from a
	// goroutine other than the one it was pinned to.
	ThreadViolation = errors.New("icpw: thread violation")

	// WrongDeviceClass is returned when a device registered with the
	// engine is not one of the node's declared device classes.
	WrongDeviceClass = errors.New("icpw: wrong device class")

	// UnknownDevice is returned when an operation names a device that is
	// not currently registered.
	UnknownDevice = errors.New("icpw: unknown device")

	// OrganizerSealed is returned when SetInitialMetrics is called after
	// the organizer has already committed at least one birth.
	OrganizerSealed = errors.New("icpw: organizer sealed")

	// NotConfigured is returned when a server wire interface is asked to
	// build a birth before a bdSeq has been assigned.
	NotConfigured = errors.New("icpw: not configured")

	// NotConnected is returned by a transport publish attempted while
	// disconnected. Non-fatal: the transport is expected to buffer and
	// retransmit on reconnect.
	NotConnected = errors.New("icpw: not connected")

	// QueueFull is returned by a transport publish that was dropped
	// because an internal queue was full. Fatal: indicates data loss.
	QueueFull = errors.New("icpw: queue full")

	// PolicyViolation is returned by client-side writes that fail a
	// writability or bounds check and were not forced.
	PolicyViolation = errors.New("icpw: policy violation")
)
