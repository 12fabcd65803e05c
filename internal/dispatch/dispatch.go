package dispatch

import (
	"time"

	"github.com/rs/zerolog"
)

// Topic names an event stream clients can subscribe to.
type Topic string

const (
	// CircuitUpdate is broadcast on structural changes: a new hierarchy or
	// truncation spec, a new transformation matrix, or new closure
	// branches. Parameter-value writes never use it.
	CircuitUpdate Topic = "CIRCUIT_UPDATE"
)

// Event carries a broadcast to registered clients.
type Event struct {
	Topic     Topic
	Timestamp time.Time
	SourceID  string
	Data      map[string]interface{}
}

// Client is anything that wants to be told about broadcasts on a topic.
type Client interface {
	// ReceiveEvent is invoked synchronously during Broadcast.
	ReceiveEvent(event Event)
	// ClientID identifies the client for registration bookkeeping.
	ClientID() string
}

// Dispatcher is an explicit publish/subscribe registry. Each root circuit
// owns one; it is never a package-level singleton.
type Dispatcher struct {
	subscribers map[Topic][]Client
	log         zerolog.Logger
}

// New creates a dispatcher with no registrations.
func New(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[Topic][]Client),
		log:         log.With().Str("component", "dispatch").Logger(),
	}
}

// Register subscribes a client to a topic. Registering the same client id
// twice on one topic is a no-op.
func (d *Dispatcher) Register(topic Topic, client Client) {
	for _, existing := range d.subscribers[topic] {
		if existing.ClientID() == client.ClientID() {
			return
		}
	}
	d.subscribers[topic] = append(d.subscribers[topic], client)
	d.log.Debug().
		Str("topic", string(topic)).
		Str("client", client.ClientID()).
		Msg("client registered")
}

// Unregister removes a client from a topic.
func (d *Dispatcher) Unregister(topic Topic, client Client) {
	subs := d.subscribers[topic]
	for i, existing := range subs {
		if existing.ClientID() == client.ClientID() {
			d.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// UnregisterAll removes a client from every topic.
func (d *Dispatcher) UnregisterAll(client Client) {
	for topic := range d.subscribers {
		d.Unregister(topic, client)
	}
}

// Broadcast delivers an event synchronously to every subscriber of the topic.
func (d *Dispatcher) Broadcast(topic Topic, sourceID string, data map[string]interface{}) {
	event := Event{
		Topic:     topic,
		Timestamp: time.Now(),
		SourceID:  sourceID,
		Data:      data,
	}
	subs := d.subscribers[topic]
	d.log.Debug().
		Str("topic", string(topic)).
		Str("source", sourceID).
		Int("subscribers", len(subs)).
		Msg("broadcast")
	for _, client := range subs {
		client.ReceiveEvent(event)
	}
}

// SubscriberCount reports how many clients are registered on a topic.
func (d *Dispatcher) SubscriberCount(topic Topic) int {
	return len(d.subscribers[topic])
}
