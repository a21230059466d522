// Package events publishes domain events to RabbitMQ. Publishing is best
// effort: callers log failures and carry on with the request.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	TypeUserRegistered  = "user.registered"
	TypeProductLowStock = "product.low_stock"
)

var ErrPublisherClosed = errors.New("publisher closed")

// Event is the JSON envelope sent to the broker. Type doubles as the queue name.
type Event struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// UserRegistered is the payload of TypeUserRegistered.
type UserRegistered struct {
	Email string `json:"email"`
}

// ProductLowStock is the payload of TypeProductLowStock.
type ProductLowStock struct {
	ProductID     int64  `json:"product_id"`
	InternalCode  string `json:"internal_code"`
	StockQuantity int    `json:"stock_quantity"`
	Threshold     int    `json:"threshold"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// AMQPPublisher publishes persistent JSON messages on the default exchange,
// routed to a durable queue named after the event type. A channel lost to a
// broker restart is reopened on the next Publish, at most once per
// redialInterval.
type AMQPPublisher struct {
	mu       sync.Mutex
	url      string
	dial     func(url string) (*amqp.Connection, error)
	now      func() time.Time
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
	closed   bool
	nextDial time.Time
}

const redialInterval = 5 * time.Second

// ErrBrokerUnavailable is returned while the broker is down and the next
// reconnect attempt is not due yet.
var ErrBrokerUnavailable = errors.New("message broker unavailable")

// DialAMQP connects to the broker at url and opens a publishing channel.
func DialAMQP(url string) (*AMQPPublisher, error) {
	if url == "" {
		return nil, errors.New("amqp url is empty")
	}
	p := newAMQPPublisher(url, amqp.Dial)
	if err := p.connect(); err != nil {
		if p.conn != nil {
			_ = p.conn.Close()
		}
		return nil, err
	}
	return p, nil
}

func newAMQPPublisher(url string, dial func(string) (*amqp.Connection, error)) *AMQPPublisher {
	return &AMQPPublisher{
		url:      url,
		dial:     dial,
		now:      time.Now,
		declared: make(map[string]bool),
	}
}

// connect (re)opens the connection if needed and a fresh channel on it.
// Callers hold p.mu, except DialAMQP before the publisher is shared.
func (p *AMQPPublisher) connect() error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := p.dial(p.url)
		if err != nil {
			return fmt.Errorf("rabbitmq dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	p.ch = ch
	p.declared = make(map[string]bool)
	return nil
}

func (p *AMQPPublisher) reconnect() error {
	now := p.now()
	if now.Before(p.nextDial) {
		return ErrBrokerUnavailable
	}
	p.nextDial = now.Add(redialInterval)
	if err := p.connect(); err != nil {
		return err
	}
	slog.Info("rabbitmq publisher reconnected")
	return nil
}

// Publish declares the event's queue on first use and sends the event.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := encode(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}
	if p.ch == nil || p.ch.IsClosed() {
		if err := p.reconnect(); err != nil {
			return err
		}
	}

	if !p.declared[ev.Type] {
		if _, err := p.ch.QueueDeclare(
			ev.Type, // name
			true,    // durable
			false,   // autoDelete
			false,   // exclusive
			false,   // noWait
			nil,     // args
		); err != nil {
			return fmt.Errorf("rabbitmq queue declare %s: %w", ev.Type, err)
		}
		p.declared[ev.Type] = true
	}

	if err := p.ch.PublishWithContext(ctx, "", ev.Type, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close shuts the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}

func encode(ev Event) (amqp.Publishing, error) {
	if ev.Type == "" {
		return amqp.Publishing{}, errors.New("event type is required")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}, nil
}
