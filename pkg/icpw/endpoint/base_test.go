package endpoint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/queueitem"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/types"
)

type fakeQueue struct {
	items []queueitem.Item
}

func (q *fakeQueue) Put(item queueitem.Item) { q.items = append(q.items, item) }

func newTestBase(metrics []*MetricDescriptor, commands []*CommandDescriptor) *Base {
	b := newBase("plant-a", metrics, commands, nil)
	b.bindOwner(nil)
	return &b
}

func TestBaseAddDelMetricMarksStale(t *testing.T) {
	b := newTestBase(nil, nil)
	b.MakeBirthCertificateFresh()
	assert.True(t, b.IsBirthCertificateFresh())

	b.AddMetric(&MetricDescriptor{Name: "temperature", Get: func(any) types.Value { return types.NewDouble(1) }})
	assert.False(t, b.IsBirthCertificateFresh())

	b.MakeBirthCertificateFresh()
	b.DelMetric("temperature")
	assert.False(t, b.IsBirthCertificateFresh())

	metrics, err := b.TahuMetrics(false)
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func TestBaseTahuMetricsAndCommands(t *testing.T) {
	b := newTestBase(
		[]*MetricDescriptor{{Name: "temperature", Get: func(any) types.Value { return types.NewDouble(21.5) }}},
		[]*CommandDescriptor{{Name: "reset", Descriptor: scalarBooleanDescriptor(t)}},
	)

	metrics, err := b.TahuMetrics(false)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "temperature", metrics[0].Name)

	commands, err := b.TahuCommands(false)
	require.NoError(t, err)
	require.Len(t, commands, 1)
	assert.Equal(t, "command/reset", commands[0].Name)
}

func TestBaseUpdateMetricDispatchesToSetter(t *testing.T) {
	var written types.Value
	b := newTestBase([]*MetricDescriptor{{
		Name: "setpoint",
		Get:  func(any) types.Value { return types.NewDouble(1) },
		Set:  func(_ any, v types.Value) error { written = v; return nil },
	}}, nil)

	require.NoError(t, b.UpdateMetric("setpoint", types.NewDouble(5)))
	assert.Equal(t, 5.0, written.(*types.Double).Float64())
}

func TestBaseUpdateMetricReadOnlyError(t *testing.T) {
	b := newTestBase([]*MetricDescriptor{{
		Name: "temperature",
		Get:  func(any) types.Value { return types.NewDouble(1) },
	}}, nil)

	err := b.UpdateMetric("temperature", types.NewDouble(5))
	assert.True(t, errors.Is(err, icpwerr.ReadOnly))
}

func TestBaseUpdateMetricUnknownError(t *testing.T) {
	b := newTestBase(nil, nil)
	err := b.UpdateMetric("nope", types.NewDouble(5))
	assert.True(t, errors.Is(err, icpwerr.UnknownMetric))
}

func TestBaseUpdateMetricCommandDispatch(t *testing.T) {
	var ran bool
	b := newTestBase(nil, []*CommandDescriptor{{
		Name:       "reset",
		Descriptor: scalarBooleanDescriptor(t),
		Run:        func(_ any, _ types.Value) error { ran = true; return nil },
	}})

	require.NoError(t, b.UpdateMetric("command/reset", types.NewBoolean(true)))
	assert.True(t, ran)

	err := b.UpdateMetric("command/unknown", types.NewBoolean(true))
	assert.True(t, errors.Is(err, icpwerr.UnknownCommand))
}

func TestBaseUpdatedMetricsDiffing(t *testing.T) {
	value := 1.0
	b := newTestBase([]*MetricDescriptor{{
		Name: "temperature",
		Get:  func(any) types.Value { return types.NewDouble(value) },
	}}, nil)

	changed := b.UpdatedMetrics()
	assert.Contains(t, changed, "temperature", "first poll has no prior value and must report a change")

	changed = b.UpdatedMetrics()
	assert.NotContains(t, changed, "temperature", "unchanged value must not be reported again")

	value = 2.0
	changed = b.UpdatedMetrics()
	require.Contains(t, changed, "temperature")
	assert.Equal(t, 2.0, changed["temperature"].New.(*types.Double).Float64())
	assert.Equal(t, 1.0, changed["temperature"].Old.(*types.Double).Float64())
}

func TestBaseAllMetrics(t *testing.T) {
	b := newTestBase([]*MetricDescriptor{{
		Name: "temperature",
		Get:  func(any) types.Value { return types.NewDouble(21.5) },
	}}, nil)

	all := b.AllMetrics()
	require.Contains(t, all, "temperature")
	assert.Equal(t, 21.5, all["temperature"].(*types.Double).Float64())
}

func TestBaseEnqueueCommandBuffersThenDrains(t *testing.T) {
	b := newTestBase(nil, nil)
	b.RunIn(1, func() {})

	q := &fakeQueue{}
	b.RegisterCommandQueue(q)
	assert.Len(t, q.items, 1, "buffered RunIn item must be drained once a queue is registered")

	b.RunIn(1, func() {})
	assert.Len(t, q.items, 2, "once registered, new items post directly to the live queue")
}

func TestBaseRegisterCommandQueueSchedulesTimers(t *testing.T) {
	b := newBase("plant-a", nil, nil, []*TimerDescriptor{{Name: "poll", PeriodSec: 5}})
	b.bindOwner(nil)

	q := &fakeQueue{}
	b.RegisterCommandQueue(q)
	require.Len(t, q.items, 1)
	_, ok := q.items[0].(*queueitem.Schedule)
	assert.True(t, ok)
}
