package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentState represents the state of a payment record
type PaymentState string

const (
	PaymentStatePending  PaymentState = "pending"
	PaymentStatePaid     PaymentState = "paid"
	PaymentStateFailed   PaymentState = "failed"
	PaymentStateRefunded PaymentState = "refunded"
)

// Payment records the gateway side of a booking. Exactly one payment exists
// per booking, created together with the pending booking.
type Payment struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	BookingID  uuid.UUID    `json:"booking_id" db:"booking_id"`
	Amount     float64      `json:"amount" db:"amount"`
	Currency   string       `json:"currency" db:"currency"`
	Status     PaymentState `json:"status" db:"status"`
	Provider   string       `json:"provider" db:"provider"`
	OrderID    *string      `json:"order_id,omitempty" db:"order_id"`
	TxnID      *string      `json:"txn_id,omitempty" db:"txn_id"`
	PaidAt     *time.Time   `json:"paid_at,omitempty" db:"paid_at"`
	RefundID   *string      `json:"refund_id,omitempty" db:"refund_id"`
	RefundedAt *time.Time   `json:"refunded_at,omitempty" db:"refunded_at"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}
