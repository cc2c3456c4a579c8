package database

import (
	"database/sql"
	"fmt"

	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/google/uuid"
)

// PaymentRepository handles database operations for the payments table
type PaymentRepository struct {
	db DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentSelect = `
	SELECT id, booking_id, amount, currency, status, provider,
		   order_id, txn_id, paid_at, refund_id, refunded_at,
		   created_at, updated_at
	FROM payments`

// Create inserts a new payment record
func (r *PaymentRepository) Create(payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, amount, currency, status, provider, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatePending
	}

	return r.db.QueryRow(
		query,
		payment.ID, payment.BookingID, payment.Amount, payment.Currency,
		payment.Status, payment.Provider, payment.OrderID,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
}

// GetByBookingID retrieves the payment attached to a booking
func (r *PaymentRepository) GetByBookingID(bookingID uuid.UUID) (*models.Payment, error) {
	query := paymentSelect + ` WHERE booking_id = $1`

	payment, err := scanPayment(r.db.QueryRow(query, bookingID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// MarkPaid records a verified gateway transaction
func (r *PaymentRepository) MarkPaid(id uuid.UUID, txnID string) error {
	query := `
		UPDATE payments
		SET status = 'paid', txn_id = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(query, id, txnID)
}

// MarkFailed records a failed or abandoned checkout
func (r *PaymentRepository) MarkFailed(id uuid.UUID) error {
	query := `
		UPDATE payments
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(query, id)
}

// MarkRefunded records a gateway refund
func (r *PaymentRepository) MarkRefunded(id uuid.UUID, refundID string) error {
	query := `
		UPDATE payments
		SET status = 'refunded', refund_id = $2, refunded_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(query, id, refundID)
}

func (r *PaymentRepository) exec(query string, args ...interface{}) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("payment not found")
	}

	return nil
}

func scanPayment(row scanner) (*models.Payment, error) {
	payment := &models.Payment{}
	var orderID, txnID, refundID sql.NullString
	var paidAt, refundedAt sql.NullTime

	err := row.Scan(
		&payment.ID, &payment.BookingID, &payment.Amount, &payment.Currency,
		&payment.Status, &payment.Provider, &orderID, &txnID, &paidAt,
		&refundID, &refundedAt, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if orderID.Valid {
		payment.OrderID = &orderID.String
	}
	if txnID.Valid {
		payment.TxnID = &txnID.String
	}
	if paidAt.Valid {
		payment.PaidAt = &paidAt.Time
	}
	if refundID.Valid {
		payment.RefundID = &refundID.String
	}
	if refundedAt.Valid {
		payment.RefundedAt = &refundedAt.Time
	}

	return payment, nil
}
