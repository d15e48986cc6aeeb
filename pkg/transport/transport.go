// Package transport declares the publish/subscribe abstraction the
// IcyPaw engine and client run on top of, independent of any one
// broker. Sparkplug-B's wire conventions (topics, retained birth
// certificates, last-will death certificates) are broker-agnostic in
// principle even though the reference implementation assumes MQTT;
// this interface lets a binding like natstransport emulate that
// contract on a broker that has no native retain/last-will concept.
package transport

import "context"

// MessageHandler is invoked once per message delivered on a matching
// subscription, with the exact topic the message arrived on (which may
// differ from the subscribed pattern when it contains wildcards) and
// the raw payload bytes.
type MessageHandler func(topic string, payload []byte)

// Transport is the pub/sub contract the engine and client are built
// against. Implementations own their own connection lifecycle;
// Publish/Subscribe calls made before Connect succeeds return
// icpwerr.NotConnected-wrapped errors rather than block. SetLastWill is
// called before Connect (the engine installs the NDEATH that way) and
// only records the message.
type Transport interface {
	// Connect establishes a session with the broker at host:port. It
	// blocks until the session is ready or ctx is done.
	Connect(ctx context.Context, host string, port int) error

	// Disconnect closes the session cleanly. A clean disconnect must
	// not trigger delivery of a previously registered last will.
	Disconnect() error

	// Publish sends payload on topic. qos and retain are MQTT-derived
	// quality-of-service and retention hints; a binding on a transport
	// without native support for one or the other should document how
	// it approximates it rather than silently ignoring it.
	Publish(topic string, payload []byte, qos int, retain bool) error

	// Subscribe registers handler to be called for every message whose
	// topic matches topicPattern (which may contain Sparkplug-B/MQTT
	// style wildcards).
	Subscribe(topicPattern string, handler MessageHandler) error

	// SetLastWill registers the message to be published on this
	// session's behalf if it is lost without a clean Disconnect.
	SetLastWill(topic string, payload []byte, qos int, retain bool) error

	// FetchRetained returns the most recent retained payload published
	// to topic, or a NotConnected-wrapped error if none is known and
	// ctx expires while waiting to find out.
	FetchRetained(ctx context.Context, topic string) ([]byte, error)
}
