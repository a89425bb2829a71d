package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// subscriptionBuffer is how many messages a subscriber may fall behind
// before new ones are dropped.
const subscriptionBuffer = 64

// NATSPublisher sends run events (pushdump.ingest.*) to a NATS server as
// JSON.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the server at url.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("pushdump-publisher"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish encodes event and sends it on topic. Delivery is fire-and-forget;
// ctx is not consulted so a failed run can still report itself.
func (p *NATSPublisher) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", topic, err)
	}
	return p.conn.Publish(topic, data)
}

// Close flushes buffered events, so the last completed or failed event of a
// CLI run reaches the server before the process exits.
func (p *NATSPublisher) Close() error {
	defer p.conn.Close()
	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("flushing NATS: %w", err)
	}
	return nil
}

// NATSSubscriber receives ingest requests (serve) and run events (watch).
// It reconnects indefinitely so a daemon outlives server restarts.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects to url. opts are applied after the defaults,
// typically to add disconnect and reconnect handlers.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	all := append([]nats.Option{
		nats.Name("pushdump-subscriber"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, opts...)
	nc, err := nats.Connect(url, all...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe delivers messages on topic, which may use wildcards such as
// TopicAll, to the returned channel. The cancel function unsubscribes and
// closes the channel; it is safe to call more than once.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	sub := &subscription{ch: make(chan Message, subscriptionBuffer)}

	ns, err := s.conn.Subscribe(topic, sub.deliver)
	if err != nil {
		close(sub.ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	sub.ns = ns

	// The subscription must be registered server-side before the caller
	// publishes a request it expects to see.
	if err := s.conn.Flush(); err != nil {
		sub.cancel()
		return nil, nil, fmt.Errorf("flushing subscription to %s: %w", topic, err)
	}
	return sub.ch, sub.cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

// subscription feeds one NATS subscription into a buffered channel.
type subscription struct {
	ns *nats.Subscription
	ch chan Message

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// deliver runs on the NATS client's goroutine and must not block.
func (s *subscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- Message{Subject: msg.Subject, Reply: msg.Reply, Data: msg.Data}:
	default:
	}
}

func (s *subscription) cancel() {
	s.once.Do(func() {
		if s.ns != nil {
			_ = s.ns.Unsubscribe()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		// Undelivered messages are discarded; readers see a closed channel.
		for {
			select {
			case <-s.ch:
			default:
				close(s.ch)
				return
			}
		}
	})
}
