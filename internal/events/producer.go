package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event types published to the booking events topic
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventPaymentFailed    = "payment.failed"
)

// BookingEvent is the payload published for booking lifecycle changes.
// Downstream consumers (notifications, reporting) key on the booking id.
type BookingEvent struct {
	Type         string    `json:"type"`
	BookingID    uuid.UUID `json:"booking_id"`
	UserID       uuid.UUID `json:"user_id"`
	BusID        uuid.UUID `json:"bus_id"`
	SeatNumber   string    `json:"seat_number"`
	TravelDate   string    `json:"travel_date"`
	TicketNumber string    `json:"ticket_number,omitempty"`
	Fare         float64   `json:"fare"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Producer publishes booking events to Kafka. A nil Producer is valid and
// drops all events, so event publishing stays optional in deployments
// without a broker.
type Producer struct {
	writer *kafka.Writer
	topic  string
	logger *logrus.Logger
}

// NewProducer creates a producer for the given brokers and topic. Returns
// nil when no brokers are configured.
func NewProducer(brokers []string, topic string, logger *logrus.Logger) *Producer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

// Publish sends a booking event. Safe to call on a nil producer.
func (p *Producer) Publish(ctx context.Context, event BookingEvent) error {
	if p == nil {
		return nil
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.BookingID.String()),
		Value: data,
		Time:  event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"type":       event.Type,
		"booking_id": event.BookingID,
		"topic":      p.topic,
	}).Debug("Booking event published")

	return nil
}

// Close flushes and closes the underlying writer. Safe on a nil producer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
