// Package service publishes domain events to RabbitMQ. Publishing is best
// effort: errors are logged and returned so callers can ignore them without
// interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/rental-listing/internal/model"
	q "github.com/iliyamo/rental-listing/internal/queue"
)

// Publisher sends event envelopes to the broker.
type Publisher interface {
	Publish(ctx context.Context, env q.Envelope) error
	Close() error
}

// NopPublisher drops every event. Used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, q.Envelope) error { return nil }
func (NopPublisher) Close() error                              { return nil }

const (
	dialTimeout   = 2 * time.Second
	retryCooldown = 5 * time.Second
)

// ErrBrokerUnavailable is returned without dialing while another call is
// connecting or while the last failed dial is cooling down.
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

// RabbitPublisher keeps one connection and channel open and re-dials lazily
// after the broker drops them. A single caller dials at a time and mu is not
// held while it does, so a dead broker costs each request at most one
// bounded dial or nothing at all.
type RabbitPublisher struct {
	url string
	log *zap.Logger
	// Cooldown is how long dialing is skipped after a failed attempt.
	Cooldown time.Duration

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	dialing   bool
	closed    bool
	nextRetry time.Time
}

func NewRabbitPublisher(url string, log *zap.Logger) *RabbitPublisher {
	return &RabbitPublisher{url: url, log: log, Cooldown: retryCooldown}
}

// Publish sends env to the listing queue as a persistent JSON message.
func (p *RabbitPublisher) Publish(ctx context.Context, env q.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		p.log.Error("rabbitmq: marshal event failed", zap.String("type", env.Type), zap.Error(err))
		return err
	}

	ch, err := p.channel(ctx)
	if err != nil {
		if !errors.Is(err, ErrBrokerUnavailable) {
			p.log.Warn("rabbitmq: connect failed", zap.Error(err))
		}
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         env.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.QueueName, false, false, pub); err != nil {
		p.log.Warn("rabbitmq: publish failed", zap.String("type", env.Type), zap.Error(err))
		p.drop(ch)
		return err
	}
	return nil
}

// channel returns the open channel, dialing first when no other caller is
// and the cooldown has passed.
func (p *RabbitPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	if p.ch != nil && !p.ch.IsClosed() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	if p.closed || p.dialing || time.Now().Before(p.nextRetry) {
		p.mu.Unlock()
		return nil, ErrBrokerUnavailable
	}
	p.reset()
	p.dialing = true
	p.mu.Unlock()

	conn, ch, err := p.dial(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing = false
	if err != nil {
		p.nextRetry = time.Now().Add(p.Cooldown)
		return nil, err
	}
	if p.closed {
		_ = conn.Close()
		return nil, ErrBrokerUnavailable
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *RabbitPublisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: contextDial(ctx)})
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("queue declare: %w", err)
	}
	return conn, ch, nil
}

// contextDial connects within ctx and bounds the AMQP handshake by the
// earlier of ctx's deadline and dialTimeout. The library clears the
// deadline once the connection is open.
func contextDial(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		deadline := time.Now().Add(dialTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		d := net.Dialer{Deadline: deadline}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// drop discards ch after a failed publish unless another caller already
// replaced it.
func (p *RabbitPublisher) drop(ch *amqp.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		p.reset()
	}
}

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	p.conn, p.ch = nil, nil
	return err
}

// PublishUserRegistered announces a new user.
func PublishUserRegistered(ctx context.Context, p Publisher, u model.User) error {
	env, err := q.NewEnvelope(q.TypeUserRegistered, q.UserRegisteredEvent{
		UserID:   u.UserID,
		Username: u.Username,
		UserType: string(u.UserType),
		Location: u.Location,
	}, time.Now())
	if err != nil {
		return err
	}
	return p.Publish(ctx, env)
}

// PublishPropertyCreated announces a new listing.
func PublishPropertyCreated(ctx context.Context, p Publisher, prop model.Property) error {
	env, err := q.NewEnvelope(q.TypePropertyCreated, q.PropertyCreatedEvent{
		PropertyID:    prop.ID,
		UserID:        prop.UserID,
		Location:      prop.Location,
		PropertyType:  string(prop.PropertyType),
		TemporaryRent: prop.TemporaryRent,
		ImageCount:    len(prop.Images),
	}, prop.UploadedAt)
	if err != nil {
		return err
	}
	return p.Publish(ctx, env)
}
