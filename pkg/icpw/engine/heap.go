package engine

import (
	"container/heap"
	"time"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/queueitem"
)

// scheduledEvent pairs a queue item with the time it became due,
// captured at the moment it was popped off the incoming channel. This
// mirrors the original's (event_time, item) tuples pushed onto its
// heapq-backed _scheduled_events list.
type scheduledEvent struct {
	execTime time.Time
	item     queueitem.Item
}

// eventHeap is a time-ordered min-heap of scheduledEvents, the
// soonest-due event always at index 0.
type eventHeap []scheduledEvent

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].execTime.Before(h[j].execTime) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)         { *h = append(*h, x.(scheduledEvent)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*eventHeap)(nil)
