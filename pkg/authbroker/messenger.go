package authbroker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrTimeout is returned when the authentication service does not answer a
// token request within the configured window.
var ErrTimeout = errors.New("timed out waiting for authorization token")

// Messenger is a request/reply client for the authorization token queue.
// It is safe for concurrent use; responses are matched to callers by
// correlation id.
type Messenger struct {
	channel      *amqp.Channel
	requestQueue string
	replyQueue   string
	timeout      time.Duration

	mu      sync.Mutex
	pending map[string]chan []byte
	closed  bool
}

// Option configures a Messenger.
type Option func(*Messenger)

// WithTimeout sets how long a token request waits for its reply.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Messenger) {
		m.timeout = timeout
	}
}

// New opens a channel on conn, declares an exclusive reply queue and starts
// consuming replies. requestQueue is the authorization queue the
// authentication service listens on.
func New(conn *amqp.Connection, requestQueue string, opts ...Option) (*Messenger, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	replyQueue, err := channel.QueueDeclare(
		"",    // server-named
		false, // durable
		false, // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("declare reply queue: %w", err)
	}

	deliveries, err := channel.Consume(
		replyQueue.Name,
		"",   // consumer tag
		true, // auto-ack
		true, // exclusive
		false,
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("consume reply queue: %w", err)
	}

	m := &Messenger{
		channel:      channel,
		requestQueue: requestQueue,
		replyQueue:   replyQueue.Name,
		timeout:      10 * time.Second,
		pending:      make(map[string]chan []byte),
	}

	for _, opt := range opts {
		opt(m)
	}

	go m.dispatch(deliveries)

	return m, nil
}

func (m *Messenger) dispatch(deliveries <-chan amqp.Delivery) {
	for delivery := range deliveries {
		m.mu.Lock()
		waiter, ok := m.pending[delivery.CorrelationId]
		if ok {
			delete(m.pending, delivery.CorrelationId)
		}
		m.mu.Unlock()

		if !ok {
			slog.Warn("Dropping reply with unknown correlation id", "correlation_id", delivery.CorrelationId)
			continue
		}
		waiter <- delivery.Body
	}
}

// SystemToken requests a bearer token for outbound system-to-system calls.
// It implements directory.TokenProvider.
func (m *Messenger) SystemToken(ctx context.Context) (string, error) {
	correlationID := uuid.NewString()
	waiter := make(chan []byte, 1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", errors.New("messenger is closed")
	}
	m.pending[correlationID] = waiter
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, correlationID)
		m.mu.Unlock()
	}()

	err := m.channel.PublishWithContext(ctx,
		"", // default exchange
		m.requestQueue,
		false,
		false,
		amqp.Publishing{
			CorrelationId: correlationID,
			ReplyTo:       m.replyQueue,
		},
	)
	if err != nil {
		return "", fmt.Errorf("publish token request: %w", err)
	}

	select {
	case body := <-waiter:
		return string(body), nil
	case <-time.After(m.timeout):
		return "", ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts the channel down. Pending requests fail with a timeout.
func (m *Messenger) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.channel.Close()
}
