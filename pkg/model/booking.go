package model

import (
	"time"
)

// Booking is one reservation of a facility for a time window.
// Windows are half-open [start, end) for overlap purposes and always UTC.
type Booking struct {
	ID        string    `json:"booking_id" bson:"_id" validate:"required,uuid4"`
	Facility  string    `json:"facility" bson:"facility" validate:"required"`
	UserID    string    `json:"user_id" bson:"user_id" validate:"required"`
	StartTime time.Time `json:"start" bson:"start_time" validate:"required"`
	EndTime   time.Time `json:"end" bson:"end_time" validate:"required,gtfield=StartTime"`
	CreatedAt time.Time `json:"created_at,omitempty" bson:"created_at" validate:"omitempty"`
}

// Active reports whether the booking's window has not yet ended.
func (b *Booking) Active(now time.Time) bool {
	return b.EndTime.After(now)
}

// Overlaps reports whether the booking's window intersects [start, end).
// Back-to-back windows do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// VerificationStatus values reported by Verify.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Verification is the result of checking a booking against its window.
// Inactive is a normal reportable state, not an error.
type Verification struct {
	Status    string    `json:"status"`
	Facility  string    `json:"facility"`
	StartTime time.Time `json:"start"`
	EndTime   time.Time `json:"end"`
	UserID    string    `json:"user_id"`
}

// BookingConfirmation is returned on a successful create. Token is the
// sealed verification payload the client renders as a QR code.
type BookingConfirmation struct {
	Booking *Booking `json:"booking"`
	Token   string   `json:"token"`
}
