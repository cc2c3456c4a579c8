package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// Booking represents a seat reservation for a bus on a travel date.
// The (bus, travel date, seat) tuple is unique among pending and confirmed
// bookings, enforced by a partial unique index.
type Booking struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	UserID       uuid.UUID     `json:"user_id" db:"user_id"`
	BusID        uuid.UUID     `json:"bus_id" db:"bus_id"`
	RouteID      uuid.UUID     `json:"route_id" db:"route_id"`
	FromStopName string        `json:"-" db:"from_stop_name"`
	FromStopLat  float64       `json:"-" db:"from_stop_lat"`
	FromStopLng  float64       `json:"-" db:"from_stop_lng"`
	ToStopName   string        `json:"-" db:"to_stop_name"`
	ToStopLat    float64       `json:"-" db:"to_stop_lat"`
	ToStopLng    float64       `json:"-" db:"to_stop_lng"`
	TravelDate   time.Time     `json:"travel_date" db:"travel_date"`
	SeatNumber   string        `json:"seat_number" db:"seat_number"`
	Fare         float64       `json:"fare" db:"fare"`
	Status       BookingStatus `json:"status" db:"status"`
	BookingDate  time.Time     `json:"booking_date" db:"booking_date"`
	PaymentID    *uuid.UUID    `json:"payment_id,omitempty" db:"payment_id"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`

	FromStop *NamedPoint   `json:"from_stop,omitempty" db:"-"`
	ToStop   *NamedPoint   `json:"to_stop,omitempty" db:"-"`
	Bus      *BusSummary   `json:"bus,omitempty" db:"-"`
	Route    *RouteSummary `json:"route,omitempty" db:"-"`
}

// FillStops populates the composed stop views from the flat columns
func (b *Booking) FillStops() {
	b.FromStop = &NamedPoint{
		Name:        b.FromStopName,
		Coordinates: Coordinates{Latitude: b.FromStopLat, Longitude: b.FromStopLng},
	}
	b.ToStop = &NamedPoint{
		Name:        b.ToStopName,
		Coordinates: Coordinates{Latitude: b.ToStopLat, Longitude: b.ToStopLng},
	}
}

// IsTerminal reports whether the booking can no longer change state
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCancelled || b.Status == BookingStatusCompleted
}

// Confirm transitions the booking from pending to confirmed
func (b *Booking) Confirm() error {
	if b.Status != BookingStatusPending {
		return errors.New("only pending bookings can be confirmed")
	}
	b.Status = BookingStatusConfirmed
	return nil
}

// Cancel transitions the booking to cancelled
func (b *Booking) Cancel() error {
	if b.IsTerminal() {
		return errors.New("booking cannot be cancelled")
	}
	b.Status = BookingStatusCancelled
	return nil
}

// Complete transitions the booking from confirmed to completed
func (b *Booking) Complete() error {
	if b.Status != BookingStatusConfirmed {
		return errors.New("only confirmed bookings can be completed")
	}
	b.Status = BookingStatusCompleted
	return nil
}

// CreateOrderRequest is the booking-intent payload submitted at checkout
type CreateOrderRequest struct {
	BusID      string     `json:"busId" binding:"required"`
	FromStop   NamedPoint `json:"fromStop" binding:"required"`
	ToStop     NamedPoint `json:"toStop" binding:"required"`
	TravelDate string     `json:"travelDate" binding:"required"` // YYYY-MM-DD
	SeatNumber string     `json:"seatNumber" binding:"required"`
	Fare       float64    `json:"fare" binding:"required"`
}

// CreateOrderResponse carries the gateway order handle back to the client
type CreateOrderResponse struct {
	Success   bool      `json:"success"`
	OrderID   string    `json:"orderId"`
	Amount    int64     `json:"amount"` // minor units
	Currency  string    `json:"currency"`
	BookingID uuid.UUID `json:"bookingId"`
	KeyID     string    `json:"keyId"`
}

// VerifyPaymentRequest is the client-reported payment completion
type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	BookingID string `json:"bookingId" binding:"required"`
}

// PaymentFailedRequest reports a failed or abandoned checkout
type PaymentFailedRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
}
