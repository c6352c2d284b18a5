package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes JSON-encoded events to NATS subjects on
// GEOTIFY_NATS_URL.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, append([]nats.Option{nats.Name("geotify-publisher")}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(topic, data)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// subscriptionBuffer is the per-subscription channel capacity. Messages
// arriving while it is full are dropped and counted.
const subscriptionBuffer = 64

// NATSSubscriber subscribes to events from NATS subjects.
type NATSSubscriber struct {
	conn    *nats.Conn
	dropped atomic.Uint64
}

// NewNATSSubscriber connects to NATS with automatic reconnection support.
// Extra nats.Option values (e.g. disconnect/reconnect handlers) can be appended.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	defaults := []nats.Option{
		nats.Name("geotify-subscriber"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc}, nil
}

// subscription forwards one NATS subscription into a buffered channel.
type subscription struct {
	owner *NATSSubscriber
	sub   *nats.Subscription
	out   chan Message

	mu     sync.Mutex // orders deliver against cancel
	closed bool
}

func (s *subscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- Message{Topic: msg.Subject, Data: msg.Data}:
	default:
		s.owner.dropped.Add(1)
	}
}

// cancel unsubscribes and closes out. It is safe to call more than once.
func (s *subscription) cancel() {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

// Subscribe implements Subscriber. The subscription is registered with the
// server before Subscribe returns.
func (s *NATSSubscriber) Subscribe(pattern string) (<-chan Message, func(), error) {
	fwd := &subscription{owner: s, out: make(chan Message, subscriptionBuffer)}

	sub, err := s.conn.Subscribe(pattern, fwd.deliver)
	if err != nil {
		fwd.cancel()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", pattern, err)
	}
	fwd.sub = sub
	if err := s.conn.Flush(); err != nil {
		fwd.cancel()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return fwd.out, fwd.cancel, nil
}

// Dropped reports how many messages were discarded because a subscriber
// fell behind.
func (s *NATSSubscriber) Dropped() uint64 { return s.dropped.Load() }

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
