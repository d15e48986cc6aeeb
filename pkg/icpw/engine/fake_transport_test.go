package engine

import (
	"context"
	"sync"

	"github.com/icypaw-project/icypaw-core/pkg/transport"
)

type fakePublish struct {
	topic   string
	payload []byte
	qos     int
	retain  bool
}

type fakeTransport struct {
	mu            sync.Mutex
	published     []fakePublish
	subscriptions map[string]transport.MessageHandler
	retained      map[string][]byte
	lastWill      *fakePublish
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		subscriptions: make(map[string]transport.MessageHandler),
		retained:      make(map[string][]byte),
	}
}

func (f *fakeTransport) Connect(ctx context.Context, host string, port int) error { return nil }
func (f *fakeTransport) Disconnect() error                                       { return nil }

func (f *fakeTransport) Publish(topic string, payload []byte, qos int, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, fakePublish{topic, payload, qos, retain})
	return nil
}

func (f *fakeTransport) Subscribe(topicPattern string, handler transport.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions[topicPattern] = handler
	return nil
}

func (f *fakeTransport) SetLastWill(topic string, payload []byte, qos int, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastWill = &fakePublish{topic, payload, qos, retain}
	return nil
}

func (f *fakeTransport) FetchRetained(ctx context.Context, topic string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retained[topic], nil
}

func (f *fakeTransport) hasPublishTo(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.published {
		if p.topic == topic {
			return true
		}
	}
	return false
}

// lastPublishTo returns the most recent publish to topic, or nil.
func (f *fakeTransport) lastPublishTo(topic string) *fakePublish {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.published) - 1; i >= 0; i-- {
		if f.published[i].topic == topic {
			p := f.published[i]
			return &p
		}
	}
	return nil
}
