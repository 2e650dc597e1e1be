// Package queue_publisher publishes settlement events to RabbitMQ.  Errors
// are logged and returned so callers can ignore them without interrupting
// the operator's flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/raffle-console/internal/queue"
)

// Publisher sends events to the settlement queue.  A connection is dialed
// per publish; settlement operations are operator-paced.
type Publisher struct {
	URL string
}

// New returns a Publisher for the broker at url.
func New(url string) *Publisher {
	return &Publisher{URL: url}
}

// Publish sends ev to the settlement.events queue as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev q.SettlementEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Warnf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warnf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		q.SettlementQueue, // name
		true,              // durable
		false,             // autoDelete
		false,             // exclusive
		false,             // noWait
		nil,               // args
	); err != nil {
		log.Warnf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.SettlementQueue, false, false, pub); err != nil {
		log.Warnf("rabbitmq: publish %s failed: %v", ev.Type, err)
		return err
	}
	return nil
}
