// Package events publishes listing changes to a RabbitMQ exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/itcaat/kufarwatch/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultExchange receives one message per changed listing
	DefaultExchange = "kufarwatch.listings"

	RoutingKeyNew     = "listing.new"
	RoutingKeyUpdated = "listing.updated"

	publishTimeout = 10 * time.Second
)

// Event is the JSON body of a published message
type Event struct {
	Kind       string         `json:"kind"`
	DetectedAt time.Time      `json:"detected_at"`
	Listing    models.Listing `json:"listing"`
}

// channel is the part of *amqp.Channel the publisher needs
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends change events to a topic exchange
type Publisher struct {
	exchange string
	channel  channel
	conn     *amqp.Connection
	now      func() time.Time
}

// Dial connects to RabbitMQ and declares a durable topic exchange
func Dial(url, exchange string) (*Publisher, error) {
	if url == "" {
		return nil, fmt.Errorf("RabbitMQ URL is required")
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	log.Printf("Events: Declaring exchange '%s'\n", exchange)
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchange, err)
	}

	p := newPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{
		exchange: exchange,
		channel:  ch,
		now:      time.Now,
	}
}

// Name identifies the sink in logs
func (p *Publisher) Name() string {
	return "rabbitmq events"
}

// Publish sends one persistent message per new or updated listing
func (p *Publisher) Publish(ctx context.Context, changes models.Changes) error {
	detectedAt := p.now()

	send := func(kind, key string, items []models.Listing) error {
		for _, l := range items {
			body, err := json.Marshal(Event{Kind: kind, DetectedAt: detectedAt, Listing: l})
			if err != nil {
				return fmt.Errorf("failed to marshal event for %s: %w", l.Link, err)
			}

			msg := amqp.Publishing{
				ContentType:  "application/json",
				Body:         body,
				DeliveryMode: amqp.Persistent,
				Timestamp:    detectedAt,
			}

			publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			err = p.channel.PublishWithContext(publishCtx, p.exchange, key, false, false, msg)
			cancel()
			if err != nil {
				return fmt.Errorf("failed to publish event for %s: %w", l.Link, err)
			}
		}
		return nil
	}

	if err := send("new", RoutingKeyNew, changes.New); err != nil {
		return err
	}
	if err := send("updated", RoutingKeyUpdated, changes.Updated); err != nil {
		return err
	}

	log.Printf("Events: Published %d events to '%s'\n", changes.Total(), p.exchange)
	return nil
}

// Close closes the channel and the connection
func (p *Publisher) Close() error {
	var firstErr error
	if ch, ok := p.channel.(*amqp.Channel); ok && ch != nil {
		if err := ch.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
