package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citytransit/bus-booking-backend/internal/middleware"
	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/citytransit/bus-booking-backend/internal/services"
)

// PaymentHandler exposes the checkout flow: order creation, payment
// verification and failure reporting.
type PaymentHandler struct {
	orchestrator *services.BookingOrchestratorService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(orchestrator *services.BookingOrchestratorService) *PaymentHandler {
	return &PaymentHandler{orchestrator: orchestrator}
}

// CreateOrder creates a pending booking and a gateway order for it
// @Summary Create a booking order
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/payments/create-order [post]
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.orchestrator.CreateOrder(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// VerifyPayment confirms a booking after a successful checkout
// @Summary Verify a completed payment
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/payments/verify-payment [post]
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.orchestrator.VerifyPayment(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment verified, booking confirmed",
		"data": gin.H{
			"booking": result.Booking,
			"ticket":  gin.H{"ticketNumber": result.Ticket.TicketNumber},
		},
	})
}

// PaymentFailed records a failed or abandoned checkout
func (h *PaymentHandler) PaymentFailed(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	var req models.PaymentFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.orchestrator.ReportPaymentFailure(c.Request.Context(), userCtx.UserID, &req); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Booking cancelled"})
}

// writeError maps orchestrator sentinels to HTTP status codes
func (h *PaymentHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidFare), errors.Is(err, services.ErrInvalidDate),
		errors.Is(err, services.ErrInvalidSignature), errors.Is(err, services.ErrOrderMismatch),
		errors.Is(err, services.ErrAlreadyCancelled):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, services.ErrBusNotFound), errors.Is(err, services.ErrBookingNotFound),
		errors.Is(err, services.ErrPaymentNotFound), errors.Is(err, services.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, services.ErrSeatTaken):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, services.ErrGateway):
		// Gateway details stay in the logs
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Payment gateway unavailable, please try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
	}
}
