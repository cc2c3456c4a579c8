package database

import (
	"database/sql"

	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/google/uuid"
)

// TicketRepository handles database operations for the tickets table
type TicketRepository struct {
	db DB
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketSelect = `
	SELECT id, booking_id, ticket_number, is_used, used_at, created_at, updated_at
	FROM tickets`

// Create inserts a new ticket. The unique index on ticket_number surfaces
// collisions through IsUniqueViolation so the caller can regenerate.
func (r *TicketRepository) Create(ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (id, booking_id, ticket_number)
		VALUES ($1, $2, $3)
		RETURNING is_used, created_at, updated_at
	`

	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}

	return r.db.QueryRow(
		query,
		ticket.ID, ticket.BookingID, ticket.TicketNumber,
	).Scan(&ticket.IsUsed, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// GetByTicketNumber retrieves a ticket by its unique number
func (r *TicketRepository) GetByTicketNumber(ticketNumber string) (*models.Ticket, error) {
	query := ticketSelect + ` WHERE ticket_number = $1`
	return r.scanOne(r.db.QueryRow(query, ticketNumber))
}

// GetByBookingID retrieves the ticket issued for a booking
func (r *TicketRepository) GetByBookingID(bookingID uuid.UUID) (*models.Ticket, error) {
	query := ticketSelect + ` WHERE booking_id = $1`
	return r.scanOne(r.db.QueryRow(query, bookingID))
}

func (r *TicketRepository) scanOne(row scanner) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	var usedAt sql.NullTime

	err := row.Scan(
		&ticket.ID, &ticket.BookingID, &ticket.TicketNumber,
		&ticket.IsUsed, &usedAt, &ticket.CreatedAt, &ticket.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		ticket.UsedAt = &usedAt.Time
	}

	return ticket, nil
}
