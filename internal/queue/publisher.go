package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"
)

// Publisher sends BookingConfirmedEvents to the booking queue.  It dials
// per message, so a broker outage only costs the notifications sent
// while it lasts.
type Publisher struct {
    url string
    log *zerolog.Logger
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, log *zerolog.Logger) *Publisher {
    if log == nil {
        nop := zerolog.Nop()
        log = &nop
    }
    return &Publisher{url: url, log: log}
}

// NotifyBooking publishes ev as a persistent JSON message.  An empty
// EventID is filled with a random UUID so consumers can deduplicate.
func (p *Publisher) NotifyBooking(ctx context.Context, ev BookingConfirmedEvent) error {
    if ev.EventID == "" {
        ev.EventID = uuid.NewString()
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
    if err != nil {
        p.log.Warn().Err(err).Msg("rabbitmq dial failed")
        return fmt.Errorf("dial broker: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // idempotent; durable so messages survive broker restarts
    if _, err := ch.QueueDeclare(BookingQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", BookingQueueName, false, false, pub); err != nil {
        return fmt.Errorf("publish: %w", err)
    }
    p.log.Debug().Str("event_id", ev.EventID).Str("booking_ref", ev.BookingRef).Msg("booking event published")
    return nil
}
