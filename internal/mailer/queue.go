package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// QueueName is the durable queue carrying rendered messages to the worker.
const QueueName = "email.outbound"

// QueuePublisher hands messages to RabbitMQ for asynchronous delivery by
// the mailer worker. The connection is opened lazily and re-dialed after
// the broker drops it.
type QueuePublisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewQueuePublisher(url string) *QueuePublisher {
	return &QueuePublisher{url: url}
}

func (p *QueuePublisher) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         msg.Kind,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", msg.Kind, err)
	}
	return nil
}

func (p *QueuePublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *QueuePublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *QueuePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

type ackAction int

const (
	ackDone ackAction = iota
	ackDrop
)

// Worker consumes the outbound queue and delivers each message with the
// wrapped Sender. Failed deliveries are logged and dropped, never retried.
type Worker struct {
	url      string
	sender   Sender
	log      zerolog.Logger
	prefetch int
	timeout  time.Duration
}

func NewWorker(url string, sender Sender, log zerolog.Logger) *Worker {
	return &Worker{
		url:      url,
		sender:   sender,
		log:      log.With().Str("component", "mail-worker").Logger(),
		prefetch: 20,
		timeout:  15 * time.Second,
	}
}

// Run blocks until ctx is cancelled, reconnecting with exponential backoff.
func (w *Worker) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(w.url)
		if err == nil {
			backoff = time.Second
			err = w.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		w.log.Warn().Err(err).Dur("retry_in", backoff).Msg("broker connection lost")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (w *Worker) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		w.log.Warn().Err(err).Msg("set qos failed")
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	deliveries, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	w.log.Info().Str("queue", QueueName).Msg("consuming")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			switch w.handle(ctx, d.Body) {
			case ackDone:
				_ = d.Ack(false)
			case ackDrop:
				_ = d.Nack(false, false)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, body []byte) ackAction {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		w.log.Error().Err(err).Msg("undecodable message dropped")
		return ackDrop
	}
	if len(msg.To) == 0 || msg.Subject == "" {
		w.log.Error().Str("message_id", msg.ID).Msg("incomplete message dropped")
		return ackDrop
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.sender.Send(sendCtx, msg); err != nil {
		w.log.Error().Err(err).Str("message_id", msg.ID).Str("kind", msg.Kind).Msg("delivery failed, dropping")
		return ackDrop
	}
	w.log.Info().Str("message_id", msg.ID).Str("kind", msg.Kind).Msg("delivered")
	return ackDone
}
