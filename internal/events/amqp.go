package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/rabbitmq/amqp091-go"

	"budget/internal/log"
)

const (
	dialAttempts   = 3
	dialDelay      = time.Second
	publishTimeout = 5 * time.Second
)

// AMQPClient publishes and consumes events on a durable direct exchange. A
// durable queue named after the routing key is bound so events survive until
// consumed.
type AMQPClient struct {
	mu         sync.Mutex
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	exchange   string
	routingKey string
	logger     *log.Logger
}

// DialAMQP connects to url, retrying transient failures.
func DialAMQP(ctx context.Context, url, exchange, routingKey string, logger *log.Logger) (*AMQPClient, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentEvents)

	var conn *amqp091.Connection
	err := retry.Do(
		func() error {
			c, err := amqp091.Dial(url)
			if err != nil {
				return err
			}
			conn = c
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(dialAttempts),
		retry.Delay(dialDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "AMQP dial failed, retrying", "attempt", n+1, log.FieldError, err.Error())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &AMQPClient{
		conn:       conn,
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	logger.InfoContext(ctx, "Connected to AMQP", "exchange", exchange, "routing_key", routingKey)
	return p, nil
}

func (p *AMQPClient) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchange, // name
		"direct",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = p.channel.QueueDeclare(
		p.routingKey, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := p.channel.QueueBind(p.routingKey, p.routingKey, p.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (p *AMQPClient) Publish(ctx context.Context, e Event) error {
	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.Timestamp,
			Type:         string(e.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}

	p.logger.DebugContext(ctx, "Published ledger event",
		log.FieldOperation, log.OpPublish,
		"type", e.Type,
		log.FieldEntityID, e.EntityID)
	return nil
}

func (p *AMQPClient) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Consume delivers queued events to handler until ctx ends. Undecodable
// messages are dropped; handler failures are requeued.
func (p *AMQPClient) Consume(ctx context.Context, handler Handler) error {
	p.mu.Lock()
	deliveries, err := p.channel.Consume(
		p.routingKey, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	p.logger.InfoContext(ctx, "Consuming ledger events", "queue", p.routingKey)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			switch dispatch(ctx, d.Body, handler, p.logger) {
			case outcomeAck:
				_ = d.Ack(false)
			case outcomeDrop:
				_ = d.Nack(false, false)
			case outcomeRetry:
				_ = d.Nack(false, true)
			}
		}
	}
}
