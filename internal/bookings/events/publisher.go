package events

import (
	"context"
	"encoding/json"
	"time"

	"campusbook/pkg/kafka"
	"campusbook/pkg/logger"
	"campusbook/pkg/model"
)

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"
)

// BookingEvent is the JSON payload published on the booking stream.
type BookingEvent struct {
	Type      string    `json:"type"`
	BookingID string    `json:"booking_id"`
	Facility  string    `json:"facility"`
	UserID    string    `json:"user_id"`
	StartTime time.Time `json:"start"`
	EndTime   time.Time `json:"end"`
	At        time.Time `json:"at"`
}

// Publisher announces booking lifecycle changes. Publishing is best-effort:
// a broker failure never fails the booking operation itself.
type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking)
	BookingCancelled(ctx context.Context, booking *model.Booking)
}

type kafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		log:      log,
	}
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, TypeBookingCreated, booking)
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, TypeBookingCancelled, booking)
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType string, booking *model.Booking) {
	event := BookingEvent{
		Type:      eventType,
		BookingID: booking.ID,
		Facility:  booking.Facility,
		UserID:    booking.UserID,
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
		At:        time.Now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.log.Error("Failed to marshal booking event", "type", eventType, "error", err)
		return
	}

	// Keyed by facility so per-facility event order is preserved.
	err = p.producer.Publish(ctx, kafka.Message{
		Key:       booking.Facility,
		Value:     value,
		Timestamp: event.At,
	})
	if err != nil {
		p.log.Warn("Failed to publish booking event",
			"type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

type nopPublisher struct{}

// NewNopPublisher is used when no Kafka brokers are configured.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) BookingCreated(ctx context.Context, booking *model.Booking)   {}
func (nopPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) {}
