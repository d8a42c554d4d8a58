package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// StartNotificationConsumer consumes every event queue and writes each
// event as a structured log line.  It redials with exponential backoff
// (capped at 30s) until ctx is cancelled, then returns ctx.Err().
func StartNotificationConsumer(ctx context.Context, url string, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "notification-consumer")

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, log logrus.FieldLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("set QoS failed")
	}
	if err := declareQueues(ch); err != nil {
		return err
	}

	deliveries := make(chan amqp.Delivery)
	for _, t := range model.EventTypes {
		msgs, err := ch.Consume(string(t), "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", t, err)
		}
		go func() {
			for d := range msgs {
				select {
				case deliveries <- d:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("channel closed")
		case d := <-deliveries:
			if err := handleMessage(d.Body, log); err != nil {
				log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(body []byte, log logrus.FieldLogger) error {
	var ev struct {
		BookingEvent
		Stay json.RawMessage `json:"stay"`
	}
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.EventID == "" || ev.BookingID == 0 {
		return errors.New("event without id or booking")
	}
	fields := logrus.Fields{
		"event_id":       ev.EventID,
		"event":          ev.Type,
		"booking_id":     ev.BookingID,
		"number":         ev.Number,
		"hotel_id":       ev.HotelID,
		"room_type_id":   ev.RoomTypeID,
		"kind":           ev.Kind,
		"stay":           string(ev.Stay),
		"status":         ev.Status,
		"payment_status": ev.PaymentStatus,
		"total_cents":    ev.TotalCents,
		"currency":       ev.Currency,
	}
	if ev.RefundCents > 0 {
		fields["refund_cents"] = ev.RefundCents
	}
	if ev.Reason != "" {
		fields["reason"] = ev.Reason
	}
	log.WithFields(fields).Info("booking notification")
	return nil
}
