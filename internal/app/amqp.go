package app

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes booking events as persistent JSON messages on a
// durable queue. It dials per event; booking writes are rare enough that a
// long-lived connection is not worth its reconnect handling.
type AMQPNotifier struct {
	URL   string
	Queue string
}

func (n *AMQPNotifier) Notify(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("amqp: marshal event: %w", err)
	}

	conn, err := amqp.Dial(n.URL)
	if err != nil {
		return fmt.Errorf("amqp: dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp: open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(n.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp: declare queue %s: %w", n.Queue, err)
	}

	err = ch.PublishWithContext(ctx, "", n.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.Booking.ID + ":" + string(ev.After),
		Type:         string(ev.Type),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp: publish: %w", err)
	}
	return nil
}
