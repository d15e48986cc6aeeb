// Package natstransport binds the abstract transport.Transport
// interface to a NATS connection, adapted from the teacher's
// singleton-free pkg/nats client wrapper: connection management,
// subscription tracking under a mutex, and structured logging of
// connection events, generalized here to the Transport contract
// instead of a package-level singleton.
//
// NATS has no broker-native retained-message or last-will concept
// (both are MQTT-specific, which Sparkplug-B's birth/death lifecycle
// assumes). This binding emulates both: retain with a cache of the
// most recently published payload per topic, and last-will by
// publishing the registered payload from the connection's
// DisconnectErrHandler when the disconnect was not the result of a
// local, explicit Disconnect call.
package natstransport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/icpwerr"
	"github.com/icypaw-project/icypaw-core/pkg/log"
	"github.com/icypaw-project/icypaw-core/pkg/transport"
)

// Option configures a Transport's underlying NATS connection.
type Option func(*Transport)

// WithUserInfo sets username/password authentication.
func WithUserInfo(username, password string) Option {
	return func(t *Transport) { t.natsOpts = append(t.natsOpts, nats.UserInfo(username, password)) }
}

// WithCredsFile sets NATS credential-file authentication.
func WithCredsFile(path string) Option {
	return func(t *Transport) { t.natsOpts = append(t.natsOpts, nats.UserCredentials(path)) }
}

type retained struct {
	topic   string
	payload []byte
	qos     int
	retain  bool
}

// Transport is a transport.Transport backed by a NATS connection.
type Transport struct {
	natsOpts []nats.Option

	mu            sync.Mutex
	conn          *nats.Conn
	subscriptions []*nats.Subscription

	retainedMu sync.Map // topic string -> []byte

	lastWillMu      sync.Mutex
	lastWill        *retained
	explicitDisconnect atomic.Bool
}

// New returns an unconnected Transport. Call Connect to establish a
// session.
func New(opts ...Option) *Transport {
	t := &Transport{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ transport.Transport = (*Transport)(nil)

func (t *Transport) Connect(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("nats://%s:%d", host, port)

	t.explicitDisconnect.Store(false)

	opts := append([]nats.Option{}, t.natsOpts...)
	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("natstransport: disconnected: %v", err)
			}
			if !t.explicitDisconnect.Load() {
				t.publishLastWill()
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("natstransport: reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Errorf("natstransport: error: %v", err)
		}),
	)

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(addr, opts...)
		done <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("natstransport: connect: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("natstransport: connect to %s: %w", addr, r.err)
		}
		t.mu.Lock()
		t.conn = r.conn
		t.mu.Unlock()
		log.Infof("natstransport: connected to %s", addr)
		return nil
	}
}

func (t *Transport) Disconnect() error {
	t.explicitDisconnect.Store(true)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return fmt.Errorf("natstransport: %w", icpwerr.NotConnected)
	}
	for _, sub := range t.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			log.Warnf("natstransport: unsubscribe: %v", err)
		}
	}
	t.subscriptions = nil
	t.conn.Close()
	t.conn = nil
	return nil
}

func (t *Transport) Publish(topic string, payload []byte, qos int, retain bool) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("natstransport: %w", icpwerr.NotConnected)
	}
	if err := conn.Publish(topic, payload); err != nil {
		return fmt.Errorf("natstransport: publish to %q: %w", topic, err)
	}
	if retain {
		cp := append([]byte(nil), payload...)
		t.retainedMu.Store(topic, cp)
	}
	return nil
}

func (t *Transport) Subscribe(topicPattern string, handler transport.MessageHandler) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("natstransport: %w", icpwerr.NotConnected)
	}

	sub, err := conn.Subscribe(natsSubject(topicPattern), func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("natstransport: subscribe to %q: %w", topicPattern, err)
	}

	t.mu.Lock()
	t.subscriptions = append(t.subscriptions, sub)
	t.mu.Unlock()
	return nil
}

func (t *Transport) SetLastWill(topic string, payload []byte, qos int, retain bool) error {
	t.lastWillMu.Lock()
	defer t.lastWillMu.Unlock()
	t.lastWill = &retained{topic: topic, payload: append([]byte(nil), payload...), qos: qos, retain: retain}
	return nil
}

func (t *Transport) publishLastWill() {
	t.lastWillMu.Lock()
	lw := t.lastWill
	t.lastWillMu.Unlock()
	if lw == nil {
		return
	}
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Publish(lw.topic, lw.payload); err != nil {
		log.Errorf("natstransport: publishing last will to %q: %v", lw.topic, err)
		return
	}
	if lw.retain {
		t.retainedMu.Store(lw.topic, append([]byte(nil), lw.payload...))
	}
}

func (t *Transport) FetchRetained(ctx context.Context, topic string) ([]byte, error) {
	if v, ok := t.retainedMu.Load(topic); ok {
		return v.([]byte), nil
	}
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("natstransport: %w: no retained message for %q", icpwerr.NotConnected, topic)
	default:
		return nil, fmt.Errorf("natstransport: %w: no retained message for %q", icpwerr.NotConnected, topic)
	}
}

// natsSubject adapts a Sparkplug-B topic pattern (which may contain a
// single trailing '#' multi-level wildcard, MQTT style) to NATS
// subject syntax ('>').
func natsSubject(topicPattern string) string {
	if len(topicPattern) > 0 && topicPattern[len(topicPattern)-1] == '#' {
		return topicPattern[:len(topicPattern)-1] + ">"
	}
	return topicPattern
}
