package models

import (
	"time"

	"github.com/google/uuid"
)

// Ticket is the proof-of-purchase artifact issued once a booking is
// confirmed. Ticket numbers are globally unique.
type Ticket struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	BookingID    uuid.UUID  `json:"booking_id" db:"booking_id"`
	TicketNumber string     `json:"ticket_number" db:"ticket_number"`
	IsUsed       bool       `json:"is_used" db:"is_used"`
	UsedAt       *time.Time `json:"used_at,omitempty" db:"used_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// VerifyTicketRequest is the boarding-scan lookup payload
type VerifyTicketRequest struct {
	TicketNumber string `json:"ticketNumber" binding:"required"`
}

// TicketVerification is the result of a successful ticket lookup
type TicketVerification struct {
	Ticket  *Ticket      `json:"ticket"`
	Booking *Booking     `json:"booking"`
	User    *UserSummary `json:"user,omitempty"`
}
