package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/citytransit/bus-booking-backend/internal/middleware"
	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/citytransit/bus-booking-backend/internal/services"
)

// BookingHandler serves booking queries, cancellation, e-tickets and the
// boarding-scan ticket lookup.
type BookingHandler struct {
	orchestrator *services.BookingOrchestratorService
	pdfService   *services.TicketPDFService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(orchestrator *services.BookingOrchestratorService, pdfService *services.TicketPDFService) *BookingHandler {
	return &BookingHandler{
		orchestrator: orchestrator,
		pdfService:   pdfService,
	}
}

// MyBookings lists the authenticated user's bookings, newest first
func (h *BookingHandler) MyBookings(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	bookings, err := h.orchestrator.GetUserBookings(userCtx.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get bookings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "bookings": bookings})
}

// GetBooking returns a single booking owned by the user
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid booking id"})
		return
	}

	booking, err := h.orchestrator.GetBooking(userCtx.UserID, bookingID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}

// CancelBooking cancels the user's booking, refunding a paid payment
// @Summary Cancel a booking
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Router /api/bookings/{id}/cancel [put]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid booking id"})
		return
	}

	booking, err := h.orchestrator.CancelBooking(c.Request.Context(), userCtx.UserID, bookingID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Booking cancelled", "booking": booking})
}

// TicketPDF streams a printable e-ticket for a confirmed booking
func (h *BookingHandler) TicketPDF(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid booking id"})
		return
	}

	ticket, booking, err := h.orchestrator.GetTicketForBooking(userCtx.UserID, bookingID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	pdfBytes, filename, err := h.pdfService.Render(ticket, booking)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// VerifyTicket looks up a ticket by number for a boarding scan (public)
// @Summary Verify a ticket
// @Tags Bookings
// @Accept json
// @Produce json
// @Router /api/bookings/verify-ticket [post]
func (h *BookingHandler) VerifyTicket(c *gin.Context) {
	var req models.VerifyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "details": err.Error()})
		return
	}

	verification, err := h.orchestrator.VerifyTicket(req.TicketNumber)
	if err != nil {
		var usedErr *services.TicketUsedError
		if errors.As(err, &usedErr) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "Ticket has already been used",
				"usedAt":  usedErr.UsedAt,
			})
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "verification": verification})
}

func (h *BookingHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAlreadyCancelled), errors.Is(err, services.ErrBookingCompleted):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, services.ErrBookingNotFound), errors.Is(err, services.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, services.ErrGateway):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Payment gateway unavailable, please try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
	}
}
