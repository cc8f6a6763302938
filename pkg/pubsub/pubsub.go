// Package pubsub fans committed network mutations out to live subscribers.
//
// A Broker is installed as the graph's Notifier. Every mutation becomes an
// Event with a broker-wide sequence number and is offered to subscribers of
// its entity topic and of TopicAll. Delivery never blocks the graph: a
// subscriber whose buffer is full misses the event and can spot the gap in
// Seq.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/metrics"
	"github.com/dd0wney/cluso-airnet/pkg/network"
)

const (
	TopicAll      = "all"
	TopicAirports = "airports"
	TopicRoutes   = "routes"
	TopicAirlines = "airlines"
)

// DefaultBuffer is the per-subscription queue length
const DefaultBuffer = 256

var (
	ErrUnknownTopic = errors.New("unknown topic")
	ErrShutdown     = errors.New("broker is shut down")
)

// Event is one committed mutation as seen by subscribers
type Event struct {
	Seq uint64 `json:"seq"`
	network.Mutation
}

// Config holds Broker settings. All fields are optional.
type Config struct {
	Buffer  int
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Broker implements network.Notifier
type Broker struct {
	subscribers map[string]map[*Subscription]struct{}
	mu          sync.RWMutex

	shutdown   chan struct{}
	shutdownMu sync.Mutex
	isShutdown bool

	seq     atomic.Uint64
	dropped atomic.Uint64
	buffer  int

	logger  logging.Logger
	metrics *metrics.Registry
}

var _ network.Notifier = (*Broker)(nil)

// Subscription receives the events of one topic
type Subscription struct {
	topic     string
	events    chan Event
	broker    *Broker
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewBroker creates a broker with no subscribers
func NewBroker(cfg Config) *Broker {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker{
		subscribers: make(map[string]map[*Subscription]struct{}),
		shutdown:    make(chan struct{}),
		buffer:      buffer,
		logger:      logging.OrNop(cfg.Logger).With(logging.Component("pubsub")),
		metrics:     cfg.Metrics,
	}
}

// ValidTopic reports whether topic can be subscribed to
func ValidTopic(topic string) bool {
	switch topic {
	case TopicAll, TopicAirports, TopicRoutes, TopicAirlines:
		return true
	}
	return false
}

// TopicOf returns the entity topic a mutation is published on
func TopicOf(m network.Mutation) string {
	switch {
	case m.Airport != nil:
		return TopicAirports
	case m.Route != nil:
		return TopicRoutes
	case m.Airline != nil:
		return TopicAirlines
	}
	return TopicAll
}

// Subscribe opens a subscription that ends when ctx is done, Unsubscribe is
// called or the broker shuts down. The events channel is closed in all
// three cases.
func (b *Broker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	if !ValidTopic(topic) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	b.shutdownMu.Lock()
	defer b.shutdownMu.Unlock()
	if b.isShutdown {
		return nil, ErrShutdown
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:  topic,
		events: make(chan Event, b.buffer),
		broker: b,
		cancel: cancel,
	}

	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription]struct{})
	}
	b.subscribers[topic][sub] = struct{}{}
	b.mu.Unlock()
	if b.metrics != nil {
		b.metrics.AddEventSubscribers(topic, 1)
	}

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			// Shutdown closes it under the write lock
		}
	}()

	b.logger.Debug("subscribed", logging.String("topic", topic))
	return sub, nil
}

// Notify publishes a committed batch in order
func (b *Broker) Notify(mutations []network.Mutation) {
	b.shutdownMu.Lock()
	closed := b.isShutdown
	b.shutdownMu.Unlock()
	if closed {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, m := range mutations {
		ev := Event{Seq: b.seq.Add(1), Mutation: m}
		b.publishLocked(TopicOf(m), ev)
		b.publishLocked(TopicAll, ev)
	}
}

// publishLocked offers ev to every subscriber of topic. b.mu must be held
// for reading; subscriptions only close under the write lock, so the sends
// cannot race a close.
func (b *Broker) publishLocked(topic string, ev Event) {
	for sub := range b.subscribers[topic] {
		select {
		case sub.events <- ev:
			if b.metrics != nil {
				b.metrics.RecordEvent(topic, true)
			}
		default:
			b.dropped.Add(1)
			if b.metrics != nil {
				b.metrics.RecordEvent(topic, false)
			}
		}
	}
}

// SubscriberCount returns the number of open subscriptions to topic
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// Seq returns the sequence number of the last published event
func (b *Broker) Seq() uint64 {
	return b.seq.Load()
}

// Shutdown closes every subscription. Later Subscribe calls fail and later
// batches are discarded.
func (b *Broker) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	close(b.shutdown)
	b.shutdownMu.Unlock()

	b.mu.Lock()
	for topic, subs := range b.subscribers {
		for sub := range subs {
			sub.close()
		}
		if b.metrics != nil {
			b.metrics.AddEventSubscribers(topic, -len(subs))
		}
		delete(b.subscribers, topic)
	}
	b.mu.Unlock()
}

// Topic returns the subscribed topic
func (s *Subscription) Topic() string {
	return s.topic
}

// Events returns the subscription's event channel
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Unsubscribe ends the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[s.topic]
	if _, ok := subs[s]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(b.subscribers, s.topic)
		}
		if b.metrics != nil {
			b.metrics.AddEventSubscribers(s.topic, -1)
		}
	}
	s.close()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
}
