package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// Publisher sends booking events to RabbitMQ.  It keeps one connection and
// channel open and redials lazily after the broker drops them.
type Publisher struct {
	url string
	log logrus.FieldLogger
	now func() time.Time

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher dials the broker and declares the event queues.
func NewPublisher(url string, log logrus.FieldLogger) (*Publisher, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &Publisher{url: url, log: log, now: time.Now}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connectLocked() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	if err := declareQueues(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	p.conn, p.ch = conn, ch
	return nil
}

// declareQueues makes sure every event queue exists.  Durable so messages
// survive broker restarts.
func declareQueues(ch *amqp.Channel) error {
	for _, t := range model.EventTypes {
		if _, err := ch.QueueDeclare(string(t), true, false, false, false, nil); err != nil {
			return fmt.Errorf("rabbitmq: declare %s: %w", t, err)
		}
	}
	return nil
}

// Notify implements booking.Notifier.
func (p *Publisher) Notify(ctx context.Context, t model.EventType, b model.Booking) error {
	msg, err := newPublishing(NewBookingEvent(t, b, p.now()))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() || p.conn.IsClosed() {
		p.closeLocked()
		if err := p.connectLocked(); err != nil {
			return err
		}
	}
	if err := p.ch.PublishWithContext(ctx, "", string(t), false, false, msg); err != nil {
		p.closeLocked()
		return fmt.Errorf("rabbitmq: publish %s: %w", t, err)
	}
	p.log.WithFields(logrus.Fields{"event": t, "booking_id": b.ID, "event_id": msg.MessageId}).Debug("event published")
	return nil
}

func newPublishing(ev BookingEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("rabbitmq: marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         string(ev.Type),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}, nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close shuts the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	p.ch, p.conn = nil, nil
	return errors.Join(errs...)
}
