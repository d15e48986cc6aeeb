package client

import (
	"context"
	"sync"

	"github.com/icypaw-project/icypaw-core/pkg/transport"
)

// fakeTransport is a minimal in-memory transport.Transport used to
// drive Client tests without a real broker: Publish is recorded, and
// test code calls deliver to simulate an inbound message on the
// subscribed handler.
type fakeTransport struct {
	mu        sync.Mutex
	handler   transport.MessageHandler
	published []fakePublish
}

type fakePublish struct {
	topic   string
	payload []byte
	qos     int
	retain  bool
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
	f.handler = handler
	return nil
}

func (f *fakeTransport) SetLastWill(topic string, payload []byte, qos int, retain bool) error {
	return nil
}

func (f *fakeTransport) FetchRetained(ctx context.Context, topic string) ([]byte, error) {
	return nil, nil
}

func (f *fakeTransport) deliver(topic string, payload []byte) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(topic, payload)
}

func (f *fakeTransport) lastPublish() fakePublish {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[len(f.published)-1]
}
