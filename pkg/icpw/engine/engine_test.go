package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icypaw-project/icypaw-core/internal/metrics"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/endpoint"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/tahu"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/types"
)

func TestNewEngineSetsInitialNodeMetrics(t *testing.T) {
	node := endpoint.NewNode("plant-a", "mixer-1", endpoint.WithNodeMetric(&endpoint.MetricDescriptor{
		Name: "temperature",
		Get:  func(any) types.Value { return types.NewDouble(21.5) },
	}))
	tr := newFakeTransport()

	e, err := NewEngine(node, tr)
	require.NoError(t, err)
	assert.NotNil(t, e.iface)
}

func TestEngineConnectPublishesNBirthAndSubscribesNCmd(t *testing.T) {
	node := endpoint.NewNode("plant-a", "mixer-1")
	tr := newFakeTransport()
	e, err := NewEngine(node, tr)
	require.NoError(t, err)

	require.NoError(t, e.Connect(context.Background(), "localhost", 1883))

	assert.True(t, tr.hasPublishTo("spBv1.0/plant-a/NBIRTH/mixer-1"))
	assert.Contains(t, tr.subscriptions, "spBv1.0/plant-a/NCMD/mixer-1")
	require.NotNil(t, tr.lastWill)
	assert.Equal(t, "spBv1.0/plant-a/NDEATH/mixer-1", tr.lastWill.topic)
}

func TestEngineOnConnectHookFiresAfterBirth(t *testing.T) {
	var fired bool
	node := endpoint.NewNode("plant-a", "mixer-1", endpoint.WithOnConnect(func(*endpoint.Node) { fired = true }))
	tr := newFakeTransport()
	e, err := NewEngine(node, tr)
	require.NoError(t, err)
	require.NoError(t, e.Connect(context.Background(), "localhost", 1883))
	assert.True(t, fired)
}

func TestEngineShutdownPublishesNDeathAndDisconnects(t *testing.T) {
	node := endpoint.NewNode("plant-a", "mixer-1")
	tr := newFakeTransport()
	e, err := NewEngine(node, tr)
	require.NoError(t, err)
	require.NoError(t, e.Connect(context.Background(), "localhost", 1883))

	require.NoError(t, e.Shutdown())
	assert.True(t, tr.hasPublishTo("spBv1.0/plant-a/NDEATH/mixer-1"))
}

func TestEngineProcessEventsRunsScheduledRunIn(t *testing.T) {
	var ran bool
	node := endpoint.NewNode("plant-a", "mixer-1")
	tr := newFakeTransport()
	e, err := NewEngine(node, tr)
	require.NoError(t, err)

	node.RunIn(0, func() { ran = true })
	e.ProcessEvents()
	assert.True(t, ran)
}

func TestEngineProcessRegisterAndUnregisterDevice(t *testing.T) {
	node := endpoint.NewNode("plant-a", "mixer-1", endpoint.WithDeviceClass("motor", func(nodeID, deviceID string) (*endpoint.Device, error) {
		return endpoint.NewDevice("plant-a", deviceID), nil
	}))
	tr := newFakeTransport()
	e, err := NewEngine(node, tr)
	require.NoError(t, err)
	require.NoError(t, e.Connect(context.Background(), "localhost", 1883))

	_, err = node.RegisterDevice("motor", "motor-1")
	require.NoError(t, err)
	e.ProcessEvents()

	assert.True(t, tr.hasPublishTo("spBv1.0/plant-a/DBIRTH/mixer-1/motor-1"))
	assert.Contains(t, tr.subscriptions, "spBv1.0/plant-a/DCMD/mixer-1/motor-1")
	require.Contains(t, e.devices, "motor-1")
	assert.True(t, e.devices["motor-1"].isUp)

	require.NoError(t, node.UnregisterDevice("motor-1"))
	e.ProcessEvents()

	assert.True(t, tr.hasPublishTo("spBv1.0/plant-a/DDEATH/mixer-1/motor-1"))
	assert.False(t, e.devices["motor-1"].isUp)
}

func TestEngineDispatchCommandAppliesSetter(t *testing.T) {
	var written float64
	node := endpoint.NewNode("plant-a", "mixer-1", endpoint.WithNodeMetric(&endpoint.MetricDescriptor{
		Name: "setpoint",
		Get:  func(any) types.Value { return types.NewDouble(written) },
		Set:  func(_ any, v types.Value) error { written = v.(*types.Double).Float64(); return nil },
	}))
	tr := newFakeTransport()
	e, err := NewEngine(node, tr)
	require.NoError(t, err)

	m := &tahu.Metric{Name: "setpoint", HasName: true, Datatype: tahu.DataTypeDouble, HasDoubleValue: true, DoubleValue: 9.5}
	e.dispatchCommand(&node.Base, m, nil)
	assert.Equal(t, 9.5, written)
}

func TestEngineDispatchCommandUnknownMetricIsLoggedNotPanicked(t *testing.T) {
	node := endpoint.NewNode("plant-a", "mixer-1")
	tr := newFakeTransport()
	e, err := NewEngine(node, tr)
	require.NoError(t, err)

	m := &tahu.Metric{Name: "nope", HasName: true, Datatype: tahu.DataTypeDouble, HasDoubleValue: true, DoubleValue: 1}
	assert.NotPanics(t, func() { e.dispatchCommand(&node.Base, m, nil) })
}

func TestEngineWithMetricsRecordsQueueDepth(t *testing.T) {
	node := endpoint.NewNode("plant-a", "mixer-1")
	tr := newFakeTransport()
	collector := metrics.New(prometheus.NewRegistry())
	e, err := NewEngine(node, tr, WithMetrics(collector))
	require.NoError(t, err)

	node.RunIn(5, func() {})
	e.ProcessEvents()
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.QueueDepth))
}

func TestDiscoverBdSeqNoRetainedReturnsZero(t *testing.T) {
	tr := newFakeTransport()
	got := discoverBdSeq(context.Background(), tr, "spBv1.0/plant-a/NBIRTH/mixer-1")
	assert.Equal(t, uint64(0), got)
}

func TestDiscoverBdSeqReadsAndAdvancesRetainedBdSeq(t *testing.T) {
	tr := newFakeTransport()
	s := tahu.NewServerInterface("plant-a", "mixer-1")
	s.SetBdSeq(5)
	nbirth, err := s.NewNBirth()
	require.NoError(t, err)
	tr.retained["spBv1.0/plant-a/NBIRTH/mixer-1"] = nbirth.Marshal()

	got := discoverBdSeq(context.Background(), tr, "spBv1.0/plant-a/NBIRTH/mixer-1")
	assert.Equal(t, uint64(6), got)
}

func TestPublishMetricUpdatesStampsSeqAndAlias(t *testing.T) {
	value := 21.5
	node := endpoint.NewNode("plant-a", "mixer-1", endpoint.WithNodeMetric(&endpoint.MetricDescriptor{
		Name: "temperature",
		Get:  func(any) types.Value { return types.NewDouble(value) },
	}))
	tr := newFakeTransport()
	e, err := NewEngine(node, tr)
	require.NoError(t, err)
	require.NoError(t, e.Connect(context.Background(), "localhost", 1883))

	nbirth := tr.lastPublishTo("spBv1.0/plant-a/NBIRTH/mixer-1")
	require.NotNil(t, nbirth)
	birthPayload, err := tahu.UnmarshalPayload(nbirth.payload)
	require.NoError(t, err)
	require.Len(t, birthPayload.Metrics, 2, "bdSeq first, then the node's one metric")
	assert.True(t, birthPayload.Metrics[1].HasAlias)
	alias := birthPayload.Metrics[1].Alias

	value = 30.0
	node.RunIn(0, func() {})
	e.ProcessEvents()

	ndata := tr.lastPublishTo("spBv1.0/plant-a/NDATA/mixer-1")
	require.NotNil(t, ndata)
	payload, err := tahu.UnmarshalPayload(ndata.payload)
	require.NoError(t, err)
	assert.True(t, payload.HasSeq)
	assert.Equal(t, uint64(1), payload.Seq, "NBIRTH consumed seq 0, so the first NDATA must carry seq 1")
	assert.True(t, payload.HasTimestamp)
	require.Len(t, payload.Metrics, 1)
	m := payload.Metrics[0]
	assert.False(t, m.HasName, "steady-state data messages substitute the alias for the name")
	assert.True(t, m.HasAlias)
	assert.Equal(t, alias, m.Alias)
	assert.Equal(t, 30.0, m.DoubleValue)
}

func TestPublishMetricUpdatesSkipsUnchangedMetrics(t *testing.T) {
	node := endpoint.NewNode("plant-a", "mixer-1", endpoint.WithNodeMetric(&endpoint.MetricDescriptor{
		Name: "temperature",
		Get:  func(any) types.Value { return types.NewDouble(21.5) },
	}))
	tr := newFakeTransport()
	e, err := NewEngine(node, tr)
	require.NoError(t, err)
	require.NoError(t, e.Connect(context.Background(), "localhost", 1883))

	before := len(tr.published)
	node.RunIn(0, func() {})
	e.ProcessEvents()

	assert.Equal(t, before, len(tr.published), "an unchanged metric must not trigger an NDATA publish")
}

func TestDiscoverBdSeqWrapsPast255(t *testing.T) {
	tr := newFakeTransport()
	s := tahu.NewServerInterface("plant-a", "mixer-1")
	s.SetBdSeq(255)
	nbirth, err := s.NewNBirth()
	require.NoError(t, err)
	tr.retained["spBv1.0/plant-a/NBIRTH/mixer-1"] = nbirth.Marshal()

	got := discoverBdSeq(context.Background(), tr, "spBv1.0/plant-a/NBIRTH/mixer-1")
	assert.Equal(t, uint64(0), got)
}
