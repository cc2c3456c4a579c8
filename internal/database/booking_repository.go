package database

import (
	"database/sql"
	"fmt"

	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/google/uuid"
)

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingSelect = `
	SELECT id, user_id, bus_id, route_id,
		   from_stop_name, from_stop_lat, from_stop_lng,
		   to_stop_name, to_stop_lat, to_stop_lng,
		   travel_date, seat_number, fare, status,
		   booking_date, payment_id, created_at, updated_at
	FROM bookings`

// Create inserts a new booking. The seat-slot partial unique index rejects
// a second live booking for the same (bus, travel date, seat); callers
// detect that with IsUniqueViolation.
func (r *BookingRepository) Create(booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, user_id, bus_id, route_id,
			from_stop_name, from_stop_lat, from_stop_lng,
			to_stop_name, to_stop_lat, to_stop_lng,
			travel_date, seat_number, fare, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING booking_date, created_at, updated_at
	`

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}

	return r.db.QueryRow(
		query,
		booking.ID, booking.UserID, booking.BusID, booking.RouteID,
		booking.FromStopName, booking.FromStopLat, booking.FromStopLng,
		booking.ToStopName, booking.ToStopLat, booking.ToStopLng,
		booking.TravelDate, booking.SeatNumber, booking.Fare, booking.Status,
	).Scan(&booking.BookingDate, &booking.CreatedAt, &booking.UpdatedAt)
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(id uuid.UUID) (*models.Booking, error) {
	query := bookingSelect + ` WHERE id = $1`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByIDForUser retrieves a booking by ID scoped to its owner
func (r *BookingRepository) GetByIDForUser(id, userID uuid.UUID) (*models.Booking, error) {
	query := bookingSelect + ` WHERE id = $1 AND user_id = $2`
	return r.scanOne(r.db.QueryRow(query, id, userID))
}

// GetByUserID retrieves all bookings for a user, newest first
func (r *BookingRepository) GetByUserID(userID uuid.UUID) ([]models.Booking, error) {
	query := bookingSelect + ` WHERE user_id = $1 ORDER BY booking_date DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}

	return bookings, rows.Err()
}

// UpdateStatus updates the booking status
func (r *BookingRepository) UpdateStatus(id uuid.UUID, status models.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, id, status)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}

// SetPaymentID links the payment record created alongside the booking
func (r *BookingRepository) SetPaymentID(id, paymentID uuid.UUID) error {
	query := `
		UPDATE bookings
		SET payment_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, id, paymentID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}

// Delete removes a booking. Only used to compensate a failed order
// creation so no orphan pending booking survives.
func (r *BookingRepository) Delete(id uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM bookings WHERE id = $1`, id)
	return err
}

func (r *BookingRepository) scanOne(row scanner) (*models.Booking, error) {
	booking, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func scanBooking(row scanner) (*models.Booking, error) {
	booking := &models.Booking{}
	var paymentID sql.NullString

	err := row.Scan(
		&booking.ID, &booking.UserID, &booking.BusID, &booking.RouteID,
		&booking.FromStopName, &booking.FromStopLat, &booking.FromStopLng,
		&booking.ToStopName, &booking.ToStopLat, &booking.ToStopLng,
		&booking.TravelDate, &booking.SeatNumber, &booking.Fare, &booking.Status,
		&booking.BookingDate, &paymentID, &booking.CreatedAt, &booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paymentID.Valid {
		id, err := uuid.Parse(paymentID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid payment_id on booking %s: %w", booking.ID, err)
		}
		booking.PaymentID = &id
	}

	booking.FillStops()
	return booking, nil
}
