package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// BookingEventsQueue is the durable queue all booking events go to.
const BookingEventsQueue = "booking.events"

// Publisher publishes booking events to RabbitMQ over one long-lived
// connection.  The connection is opened lazily and re-dialled after a
// failure.  A nil *Publisher is valid and drops every event, which is how
// the service runs when no broker is configured.
type Publisher struct {
    url string
    log *zap.Logger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher returns nil when url is empty.
func NewPublisher(url string, log *zap.Logger) *Publisher {
    if url == "" {
        return nil
    }
    return &Publisher{url: url, log: log}
}

// Publish sends ev as a persistent JSON message.  Errors are returned so
// the caller can log them; they never affect the booking itself.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
    if p == nil {
        return nil
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channelLocked()
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Type:         ev.Type,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",                 // default exchange
        BookingEventsQueue, // routing key = queue name
        false,              // mandatory
        false,              // immediate
        pub,
    ); err != nil {
        p.resetLocked()
        return fmt.Errorf("publish %s: %w", ev.Type, err)
    }
    return nil
}

// channelLocked returns an open channel, dialling when needed.  p.mu must
// be held.
func (p *Publisher) channelLocked() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.resetLocked()

    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, fmt.Errorf("dial broker: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("open channel: %w", err)
    }
    if err := declareBookingQueue(ch); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    p.log.Debug("rabbitmq publisher connected", zap.String("queue", BookingEventsQueue))
    return ch, nil
}

func (p *Publisher) resetLocked() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    if p == nil {
        return nil
    }
    p.mu.Lock()
    defer p.mu.Unlock()
    p.resetLocked()
    return nil
}

// declareBookingQueue is idempotent.  Durable so messages survive broker
// restarts.
func declareBookingQueue(ch *amqp.Channel) error {
    if _, err := ch.QueueDeclare(
        BookingEventsQueue, // name
        true,               // durable
        false,              // autoDelete
        false,              // exclusive
        false,              // noWait
        nil,                // args
    ); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    return nil
}
