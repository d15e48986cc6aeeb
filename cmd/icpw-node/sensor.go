package main

import (
	"fmt"
	"math/rand"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/endpoint"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/types"
)

// newSensorDeviceClass returns an endpoint.WithDeviceClass factory for
// a demonstration temperature sensor: a read-only reading, a writable
// setpoint with bounds, a reset command, and a periodic sampling
// timer. Every Get/Set/Run/Timer callback here only ever runs on the
// engine's single processing goroutine, so the closed-over state needs
// no locking of its own.
func newSensorDeviceClass() func(nodeID, deviceID string) (*endpoint.Device, error) {
	return func(_, deviceID string) (*endpoint.Device, error) {
		reading := 20.0
		setpoint := 20.0

		return endpoint.NewDevice("", deviceID,
			endpoint.WithDeviceMetric(&endpoint.MetricDescriptor{
				Name:       "temperature",
				Descriptor: mustScalar(tahu.DataTypeDouble),
				Get:        func(any) types.Value { return types.NewDouble(reading) },
				Properties: map[string]any{tahu.PropertyUnit: "celsius"},
			}),
			endpoint.WithDeviceMetric(&endpoint.MetricDescriptor{
				Name:       "setpoint",
				Descriptor: mustScalar(tahu.DataTypeDouble),
				Get:        func(any) types.Value { return types.NewDouble(setpoint) },
				Set: func(_ any, v types.Value) error {
					d, ok := v.(*types.Double)
					if !ok {
						return fmt.Errorf("icpw-node: setpoint: %w", errWrongType)
					}
					setpoint = d.Float64()
					return nil
				},
				Properties: map[string]any{
					tahu.PropertyWritable: true,
					tahu.PropertyLow:      0.0,
					tahu.PropertyHigh:     40.0,
					tahu.PropertyUnit:     "celsius",
				},
			}),
			endpoint.WithDeviceCommand(&endpoint.CommandDescriptor{
				Name:       "reset",
				Descriptor: mustScalar(tahu.DataTypeBoolean),
				Run: func(any, types.Value) error {
					setpoint = 20.0
					return nil
				},
			}),
			endpoint.WithDeviceTimer(&endpoint.TimerDescriptor{
				Name:      "sample",
				PeriodSec: 5,
				Run: func(any) {
					reading = setpoint + (rand.Float64()-0.5)*2
				},
			}),
		), nil
	}
}

// mustScalar looks up a built-in scalar Descriptor, panicking if
// datatype names a composite kind — a programmer error in this file,
// not a runtime condition.
func mustScalar(datatype tahu.DataType) types.Descriptor {
	d, ok := types.GetScalarDescriptor(datatype)
	if !ok {
		panic(fmt.Sprintf("icpw-node: %s has no built-in scalar descriptor", datatype))
	}
	return d
}

var errWrongType = fmt.Errorf("value has the wrong Go type for this metric")
