package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"alumnet/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublisherConfig describes the topic exchange swap events are published to.
type PublisherConfig struct {
	URL             string
	ExchangeName    string
	ExchangeType    string
	DurableExchange bool
	// DeclareExchange declares the exchange on connect instead of assuming it exists.
	DeclareExchange bool
}

func (c PublisherConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("amqp url is required")
	}
	if c.ExchangeName == "" {
		return fmt.Errorf("exchange name is required")
	}
	return nil
}

// Publisher forwards events to RabbitMQ with the event type as routing key.
type Publisher struct {
	config PublisherConfig
	log    *logger.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewPublisher(cfg PublisherConfig, log *logger.Logger) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("publisher: %w", err)
	}
	if cfg.ExchangeType == "" {
		cfg.ExchangeType = amqp.ExchangeTopic
	}
	p := &Publisher{config: cfg, log: logger.OrNop(log)}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("publisher: failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("publisher: failed to open a channel: %w", err)
	}

	if cfg.DeclareExchange {
		err = ch.ExchangeDeclare(cfg.ExchangeName, cfg.ExchangeType, cfg.DurableExchange, false, false, false, nil)
		if err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("publisher: failed to declare exchange %q: %w", cfg.ExchangeName, err)
		}
	}

	p.conn = conn
	p.channel = ch
	p.log.Info("amqp publisher connected", "exchange", cfg.ExchangeName, "type", cfg.ExchangeType)
	return p, nil
}

func (p *Publisher) Name() string { return "amqp" }

// Handle publishes ev as persistent JSON.
func (p *Publisher) Handle(ctx context.Context, ev Event) error {
	msg, err := toPublishing(ev)
	if err != nil {
		return err
	}
	return p.Publish(ctx, string(ev.Type), msg)
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil || p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("publisher: not connected")
	}
	if err := p.channel.PublishWithContext(ctx, p.config.ExchangeName, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publisher: failed to publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}

func toPublishing(ev Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("publisher: failed to encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID.String(),
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         body,
	}, nil
}
