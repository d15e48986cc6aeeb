package engine

import (
	"container/heap"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/queueitem"
)

func TestEventHeapOrdersByExecTime(t *testing.T) {
	now := time.Now()
	var h eventHeap
	heap.Init(&h)

	heap.Push(&h, scheduledEvent{execTime: now.Add(3 * time.Second), item: queueitem.NewNodeRebirth(nil)})
	heap.Push(&h, scheduledEvent{execTime: now.Add(1 * time.Second), item: queueitem.NewNodeRebirth(nil)})
	heap.Push(&h, scheduledEvent{execTime: now.Add(2 * time.Second), item: queueitem.NewNodeRebirth(nil)})

	require.Equal(t, 3, h.Len())

	first := heap.Pop(&h).(scheduledEvent)
	second := heap.Pop(&h).(scheduledEvent)
	third := heap.Pop(&h).(scheduledEvent)

	assert.True(t, first.execTime.Before(second.execTime))
	assert.True(t, second.execTime.Before(third.execTime))
}
