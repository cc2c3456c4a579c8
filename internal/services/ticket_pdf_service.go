package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/citytransit/bus-booking-backend/internal/models"
)

// TicketPDFService renders printable e-tickets for confirmed bookings
type TicketPDFService struct{}

// NewTicketPDFService creates a new PDF ticket renderer
func NewTicketPDFService() *TicketPDFService {
	return &TicketPDFService{}
}

// Render builds the e-ticket PDF and a download filename
func (s *TicketPDFService) Render(ticket *models.Ticket, booking *models.Booking) ([]byte, string, error) {
	if booking.Status != models.BookingStatusConfirmed && booking.Status != models.BookingStatusCompleted {
		return nil, "", fmt.Errorf("e-ticket is only available for confirmed bookings")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Bus E-Ticket", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS E-TICKET")
	pdf.Ln(12)

	busLabel := "-"
	if booking.Bus != nil {
		busLabel = fmt.Sprintf("%s (%s)", booking.Bus.BusName, booking.Bus.BusNumber)
	}
	routeLabel := "-"
	if booking.Route != nil {
		routeLabel = fmt.Sprintf("%s %s", booking.Route.RouteNumber, booking.Route.RouteName)
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Ticket Number : %s", ticket.TicketNumber),
		fmt.Sprintf("Booking ID    : %s", booking.ID),
		fmt.Sprintf("Bus           : %s", busLabel),
		fmt.Sprintf("Route         : %s", routeLabel),
		fmt.Sprintf("From          : %s", booking.FromStopName),
		fmt.Sprintf("To            : %s", booking.ToStopName),
		fmt.Sprintf("Travel Date   : %s", booking.TravelDate.Format("2006-01-02")),
		fmt.Sprintf("Seat          : %s", booking.SeatNumber),
		fmt.Sprintf("Fare          : %.2f", booking.Fare),
		fmt.Sprintf("Booked At     : %s", booking.BookingDate.Format("2006-01-02 15:04")),
		fmt.Sprintf("Issued At     : %s", time.Now().Format("2006-01-02 15:04")),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "This e-ticket admits one passenger for the seat shown above. Present it together with a valid ID when boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render e-ticket: %w", err)
	}

	filename := fmt.Sprintf("eticket_%s.pdf", ticket.TicketNumber)
	return buf.Bytes(), filename, nil
}
