package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/citytransit/bus-booking-backend/internal/database"
	"github.com/citytransit/bus-booking-backend/internal/events"
	"github.com/citytransit/bus-booking-backend/internal/models"
)

// Sentinel errors mapped to HTTP status codes by the handlers
var (
	ErrInvalidFare      = errors.New("fare must be at least 1")
	ErrInvalidDate      = errors.New("travel date must be in YYYY-MM-DD format")
	ErrBusNotFound      = errors.New("bus not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrSeatTaken        = errors.New("seat is already booked for this bus and travel date")
	ErrPaymentNotFound  = errors.New("payment record not found for booking")
	ErrOrderMismatch    = errors.New("order does not belong to this booking")
	ErrInvalidSignature = errors.New("payment signature verification failed")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrBookingCompleted = errors.New("booking is already completed")
	ErrGateway          = errors.New("payment gateway unavailable")
)

// TicketUsedError reports a boarding scan of a ticket that was already used
type TicketUsedError struct {
	TicketNumber string
	UsedAt       time.Time
}

func (e *TicketUsedError) Error() string {
	return fmt.Sprintf("ticket %s was already used at %s", e.TicketNumber, e.UsedAt.Format(time.RFC3339))
}

const ticketNumberPrefix = "TKT"

// base36 alphabet for the ticket number suffix
const ticketSuffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ConfirmationResult is returned once a payment is verified and the
// booking confirmed
type ConfirmationResult struct {
	Booking *models.Booking `json:"booking"`
	Ticket  *models.Ticket  `json:"ticket"`
}

// BookingOrchestratorService drives the order → payment → ticket flow
type BookingOrchestratorService struct {
	bookingRepo *database.BookingRepository
	paymentRepo *database.PaymentRepository
	ticketRepo  *database.TicketRepository
	busRepo     *database.BusRepository
	userRepo    *database.UserRepository
	gateway     PaymentGateway
	producer    *events.Producer
	provider    string
	currency    string
	logger      *logrus.Logger
}

// NewBookingOrchestratorService creates a new orchestrator service
func NewBookingOrchestratorService(
	bookingRepo *database.BookingRepository,
	paymentRepo *database.PaymentRepository,
	ticketRepo *database.TicketRepository,
	busRepo *database.BusRepository,
	userRepo *database.UserRepository,
	gateway PaymentGateway,
	producer *events.Producer,
	provider string,
	currency string,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	return &BookingOrchestratorService{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		ticketRepo:  ticketRepo,
		busRepo:     busRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		producer:    producer,
		provider:    provider,
		currency:    currency,
		logger:      logger,
	}
}

// CreateOrder creates a pending booking for the requested seat and registers
// a gateway order for it. Nothing is persisted when the fare is invalid, and
// the pending booking is rolled back when the gateway call fails.
func (s *BookingOrchestratorService) CreateOrder(
	ctx context.Context,
	userID uuid.UUID,
	req *models.CreateOrderRequest,
) (*models.CreateOrderResponse, error) {
	// 1. Validate before touching storage
	if req.Fare < 1 {
		return nil, ErrInvalidFare
	}

	busID, err := uuid.Parse(req.BusID)
	if err != nil {
		return nil, ErrBusNotFound
	}

	travelDate, err := time.Parse("2006-01-02", req.TravelDate)
	if err != nil {
		return nil, ErrInvalidDate
	}

	// 2. Resolve the bus (and its route)
	bus, err := s.busRepo.GetByID(busID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}
	if bus == nil {
		return nil, ErrBusNotFound
	}

	// 3. Insert the pending booking. The seat-slot unique index is the
	// arbiter for concurrent requests on the same seat.
	booking := &models.Booking{
		UserID:       userID,
		BusID:        bus.ID,
		RouteID:      bus.RouteID,
		FromStopName: req.FromStop.Name,
		FromStopLat:  req.FromStop.Coordinates.Latitude,
		FromStopLng:  req.FromStop.Coordinates.Longitude,
		ToStopName:   req.ToStop.Name,
		ToStopLat:    req.ToStop.Coordinates.Latitude,
		ToStopLng:    req.ToStop.Coordinates.Longitude,
		TravelDate:   travelDate,
		SeatNumber:   req.SeatNumber,
		Fare:         req.Fare,
		Status:       models.BookingStatusPending,
	}

	if err := s.bookingRepo.Create(booking); err != nil {
		if database.IsUniqueViolation(err) {
			s.logger.WithFields(logrus.Fields{
				"bus_id":      bus.ID,
				"travel_date": req.TravelDate,
				"seat_number": req.SeatNumber,
			}).Warn("Seat already taken")
			return nil, ErrSeatTaken
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	// 4. Register the gateway order
	amountMinor := int64(math.Round(req.Fare * 100))
	receipt := "booking_" + booking.ID.String()

	order, err := s.gateway.CreateOrder(ctx, amountMinor, s.currency, receipt)
	if err != nil {
		s.rollbackBooking(booking.ID)
		s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Gateway order creation failed")
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	// 5. Record the pending payment and link it to the booking
	payment := &models.Payment{
		BookingID: booking.ID,
		Amount:    req.Fare,
		Currency:  order.Currency,
		Status:    models.PaymentStatePending,
		Provider:  s.provider,
		OrderID:   &order.ID,
	}

	if err := s.paymentRepo.Create(payment); err != nil {
		s.rollbackBooking(booking.ID)
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if err := s.bookingRepo.SetPaymentID(booking.ID, payment.ID); err != nil {
		return nil, fmt.Errorf("failed to link payment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"user_id":     userID,
		"bus_id":      bus.ID,
		"seat_number": req.SeatNumber,
		"travel_date": req.TravelDate,
		"order_id":    order.ID,
		"amount":      amountMinor,
	}).Info("Booking order created")

	return &models.CreateOrderResponse{
		Success:   true,
		OrderID:   order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		BookingID: booking.ID,
		KeyID:     s.gateway.KeyID(),
	}, nil
}

// VerifyPayment checks the gateway signature for a completed checkout, then
// marks the payment paid, confirms the booking and issues the ticket.
func (s *BookingOrchestratorService) VerifyPayment(
	ctx context.Context,
	userID uuid.UUID,
	req *models.VerifyPaymentRequest,
) (*ConfirmationResult, error) {
	// Signature first. A mismatch mutates nothing.
	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		s.logger.WithFields(logrus.Fields{
			"order_id":   req.OrderID,
			"booking_id": req.BookingID,
		}).Warn("Payment signature mismatch")
		return nil, ErrInvalidSignature
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}

	booking, err := s.bookingRepo.GetByIDForUser(bookingID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	// A retried verification of an already confirmed booking returns the
	// existing ticket instead of failing.
	if booking.Status == models.BookingStatusConfirmed {
		ticket, err := s.ticketRepo.GetByBookingID(booking.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get ticket: %w", err)
		}
		return s.buildConfirmation(booking, ticket)
	}
	if booking.IsTerminal() {
		return nil, ErrAlreadyCancelled
	}

	payment, err := s.paymentRepo.GetByBookingID(booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.OrderID == nil || *payment.OrderID != req.OrderID {
		return nil, ErrOrderMismatch
	}

	if err := s.paymentRepo.MarkPaid(payment.ID, req.PaymentID); err != nil {
		return nil, fmt.Errorf("failed to mark payment paid: %w", err)
	}

	if err := booking.Confirm(); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.UpdateStatus(booking.ID, booking.Status); err != nil {
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}

	ticket, err := s.issueTicket(booking.ID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":    booking.ID,
		"user_id":       userID,
		"payment_id":    payment.ID,
		"txn_id":        req.PaymentID,
		"ticket_number": ticket.TicketNumber,
	}).Info("Payment verified, booking confirmed")

	s.publish(ctx, events.EventBookingConfirmed, booking, ticket.TicketNumber)

	return s.buildConfirmation(booking, ticket)
}

// ReportPaymentFailure records a failed or abandoned checkout: the payment is
// marked failed and the pending booking cancelled, freeing the seat slot.
// Reporting failure twice for the same booking is not an error.
func (s *BookingOrchestratorService) ReportPaymentFailure(
	ctx context.Context,
	userID uuid.UUID,
	req *models.PaymentFailedRequest,
) error {
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return ErrBookingNotFound
	}

	booking, err := s.bookingRepo.GetByIDForUser(bookingID, userID)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return ErrBookingNotFound
	}

	if booking.Status == models.BookingStatusCancelled {
		return nil
	}
	if booking.Status != models.BookingStatusPending {
		return fmt.Errorf("cannot report payment failure for a %s booking", booking.Status)
	}

	payment, err := s.paymentRepo.GetByBookingID(booking.ID)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if payment != nil && payment.Status == models.PaymentStatePending {
		if err := s.paymentRepo.MarkFailed(payment.ID); err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
	}

	if err := booking.Cancel(); err != nil {
		return err
	}
	if err := s.bookingRepo.UpdateStatus(booking.ID, booking.Status); err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"user_id":    userID,
	}).Info("Payment failure reported, booking cancelled")

	s.publish(ctx, events.EventPaymentFailed, booking, "")

	return nil
}

// CancelBooking cancels a booking on the owner's request. A paid booking is
// refunded through the gateway first; if the refund fails the booking is
// left untouched so the request can be retried.
func (s *BookingOrchestratorService) CancelBooking(
	ctx context.Context,
	userID uuid.UUID,
	bookingID uuid.UUID,
) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByIDForUser(bookingID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	if booking.Status == models.BookingStatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if booking.Status == models.BookingStatusCompleted {
		return nil, ErrBookingCompleted
	}

	payment, err := s.paymentRepo.GetByBookingID(booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if payment != nil && payment.Status == models.PaymentStatePaid {
		if payment.TxnID == nil {
			return nil, fmt.Errorf("paid payment %s has no transaction id", payment.ID)
		}

		amountMinor := int64(math.Round(payment.Amount * 100))
		refundID, err := s.gateway.Refund(ctx, *payment.TxnID, amountMinor)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"payment_id": payment.ID,
			}).Error("Gateway refund failed, booking left unchanged")
			return nil, fmt.Errorf("%w: %v", ErrGateway, err)
		}

		if err := s.paymentRepo.MarkRefunded(payment.ID, refundID); err != nil {
			return nil, fmt.Errorf("failed to mark payment refunded: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"payment_id": payment.ID,
			"refund_id":  refundID,
		}).Info("Payment refunded")
	}

	if err := booking.Cancel(); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.UpdateStatus(booking.ID, booking.Status); err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"user_id":    userID,
	}).Info("Booking cancelled")

	s.publish(ctx, events.EventBookingCancelled, booking, "")

	return booking, nil
}

// VerifyTicket looks up a ticket by number for a boarding scan. The scan is
// read-only; marking tickets used is left to the roadside hardware rollout.
func (s *BookingOrchestratorService) VerifyTicket(ticketNumber string) (*models.TicketVerification, error) {
	ticket, err := s.ticketRepo.GetByTicketNumber(ticketNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}

	if ticket.IsUsed {
		usedAt := time.Time{}
		if ticket.UsedAt != nil {
			usedAt = *ticket.UsedAt
		}
		return nil, &TicketUsedError{TicketNumber: ticket.TicketNumber, UsedAt: usedAt}
	}

	booking, err := s.bookingRepo.GetByID(ticket.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	s.attachBusSummary(booking)

	verification := &models.TicketVerification{
		Ticket:  ticket,
		Booking: booking,
	}

	if user, err := s.userRepo.GetByID(booking.UserID); err == nil && user != nil {
		summary := user.Summary()
		verification.User = &summary
	}

	return verification, nil
}

// GetUserBookings returns the user's bookings, newest first, with bus and
// route summaries attached.
func (s *BookingOrchestratorService) GetUserBookings(userID uuid.UUID) ([]models.Booking, error) {
	bookings, err := s.bookingRepo.GetByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}

	// Buses repeat across bookings; resolve each once
	buses := make(map[uuid.UUID]*models.Bus)
	for i := range bookings {
		bus, ok := buses[bookings[i].BusID]
		if !ok {
			bus, err = s.busRepo.GetByID(bookings[i].BusID)
			if err != nil {
				return nil, fmt.Errorf("failed to get bus: %w", err)
			}
			buses[bookings[i].BusID] = bus
		}
		if bus != nil {
			summary := bus.Summary()
			bookings[i].Bus = &summary
			bookings[i].Route = bus.Route
		}
	}

	return bookings, nil
}

// GetBooking returns a single booking owned by the user
func (s *BookingOrchestratorService) GetBooking(userID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByIDForUser(bookingID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	s.attachBusSummary(booking)
	return booking, nil
}

// GetTicketForBooking returns the ticket issued for a confirmed booking
func (s *BookingOrchestratorService) GetTicketForBooking(userID, bookingID uuid.UUID) (*models.Ticket, *models.Booking, error) {
	booking, err := s.GetBooking(userID, bookingID)
	if err != nil {
		return nil, nil, err
	}

	ticket, err := s.ticketRepo.GetByBookingID(booking.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil {
		return nil, nil, ErrTicketNotFound
	}

	return ticket, booking, nil
}

// issueTicket creates the ticket row, regenerating the number on the rare
// collision of the random suffix.
func (s *BookingOrchestratorService) issueTicket(bookingID uuid.UUID) (*models.Ticket, error) {
	for attempt := 0; attempt < 3; attempt++ {
		number, err := generateTicketNumber()
		if err != nil {
			return nil, fmt.Errorf("failed to generate ticket number: %w", err)
		}

		ticket := &models.Ticket{
			BookingID:    bookingID,
			TicketNumber: number,
		}

		err = s.ticketRepo.Create(ticket)
		if err == nil {
			return ticket, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create ticket: %w", err)
		}
	}

	return nil, fmt.Errorf("failed to create ticket: number collisions exhausted retries")
}

// generateTicketNumber builds "TKT" + unix millis + 5 random base36 chars
func generateTicketNumber() (string, error) {
	suffix := make([]byte, 5)
	max := big.NewInt(int64(len(ticketSuffixAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = ticketSuffixAlphabet[n.Int64()]
	}

	return ticketNumberPrefix + strconv.FormatInt(time.Now().UnixMilli(), 10) + string(suffix), nil
}

func (s *BookingOrchestratorService) buildConfirmation(booking *models.Booking, ticket *models.Ticket) (*ConfirmationResult, error) {
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	s.attachBusSummary(booking)
	return &ConfirmationResult{Booking: booking, Ticket: ticket}, nil
}

func (s *BookingOrchestratorService) attachBusSummary(booking *models.Booking) {
	bus, err := s.busRepo.GetByID(booking.BusID)
	if err != nil || bus == nil {
		return
	}
	summary := bus.Summary()
	booking.Bus = &summary
	booking.Route = bus.Route
}

// rollbackBooking removes a pending booking after a downstream step failed.
// Best effort: a leftover pending row only holds the seat until cleanup.
func (s *BookingOrchestratorService) rollbackBooking(bookingID uuid.UUID) {
	if err := s.bookingRepo.Delete(bookingID); err != nil {
		s.logger.WithError(err).WithField("booking_id", bookingID).Error("Failed to roll back pending booking")
	}
}

// publish emits a booking lifecycle event. Publishing is best effort and
// never fails the request.
func (s *BookingOrchestratorService) publish(ctx context.Context, eventType string, booking *models.Booking, ticketNumber string) {
	err := s.producer.Publish(ctx, events.BookingEvent{
		Type:         eventType,
		BookingID:    booking.ID,
		UserID:       booking.UserID,
		BusID:        booking.BusID,
		SeatNumber:   booking.SeatNumber,
		TravelDate:   booking.TravelDate.Format("2006-01-02"),
		TicketNumber: ticketNumber,
		Fare:         booking.Fare,
		OccurredAt:   time.Now(),
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"type":       eventType,
			"booking_id": booking.ID,
		}).Warn("Failed to publish booking event")
	}
}
