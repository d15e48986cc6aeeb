package endpoint

// Device is a device endpoint attached to an edge node: a secondary
// Sparkplug-B identity that shares the node's bdSeq lifecycle but
// publishes its own DBIRTH/DDATA/DDEATH. It is the Go counterpart of
// the original's ServerDevice.
type Device struct {
	Base

	deviceID string
}

// DeviceOption configures a Device at construction time.
type DeviceOption func(*Device)

// WithDeviceMetric declares one metric on the device.
func WithDeviceMetric(md *MetricDescriptor) DeviceOption {
	return func(d *Device) { d.metrics = append(d.metrics, md) }
}

// WithDeviceCommand declares one command on the device.
func WithDeviceCommand(cd *CommandDescriptor) DeviceOption {
	return func(d *Device) { d.commands = append(d.commands, cd) }
}

// WithDeviceTimer declares one periodic callback on the device.
func WithDeviceTimer(td *TimerDescriptor) DeviceOption {
	return func(d *Device) { d.timers = append(d.timers, td) }
}

// WithDeviceTrigger schedules a one-shot callback to run td.DelaySec
// seconds after the device is live.
func WithDeviceTrigger(td *TriggerDescriptor) DeviceOption {
	return func(d *Device) {
		d.RunIn(td.DelaySec, func() { td.Run(d) })
	}
}

// NewDevice constructs a Device under the given group, applying opts
// in order. groupID is normally the owning node's group, since a
// device's Sparkplug-B identity is its node's group/edge-node-id plus
// its own device id.
func NewDevice(groupID, deviceID string, opts ...DeviceOption) *Device {
	d := &Device{
		Base:     newBase(groupID, nil, nil, nil),
		deviceID: deviceID,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.bindOwner(d)
	return d
}

// DeviceID returns this device's Sparkplug-B device id.
func (d *Device) DeviceID() string { return d.deviceID }
