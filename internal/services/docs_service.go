package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"rental/internal/domain"
	"rental/internal/domain/models"
	"rental/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// DocsService renders booking receipts.
type DocsService struct {
	Bookings BookingStore
	Vehicles VehicleStore
	Payments PaymentStore
	Clock    utils.Clock

	RequestID string
}

type receiptData struct {
	Booking models.Booking
	Vehicle models.Vehicle
	Payment *models.Payment
}

// GenerateReceipt returns the PDF bytes and a file name.
func (s DocsService) GenerateReceipt(ctx context.Context, bookingID string, p domain.Principal) ([]byte, string, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	if !p.CanActFor(b.RenterID) {
		return nil, "", domain.ForbiddenError{Msg: "not allowed to view this booking"}
	}
	now := clockOrSystem(s.Clock).Now()
	v, err := s.Vehicles.GetByID(ctx, b.VehicleID, now)
	if err != nil {
		return nil, "", err
	}
	data := receiptData{Booking: b, Vehicle: v}
	if s.Payments != nil {
		if pay, err := s.Payments.GetLatestByBooking(ctx, b.ID); err == nil {
			data.Payment = &pay
		} else if !domain.IsNotFound(err) {
			return nil, "", err
		}
	}
	utils.LogEvent(s.RequestID, "docs", "generate_receipt", "booking_id="+b.ID)
	return buildReceiptPDF(data, utils.FormatDateTime(now))
}

func buildReceiptPDF(d receiptData, issuedAt string) ([]byte, string, error) {
	b := d.Booking
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BOOKING RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Receipt No : RCP-"+shortID(b.ID))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Issued     : "+issuedAt)
	pdf.Ln(10)

	lines := []string{
		fmt.Sprintf("Booking    : %s", b.ID),
		fmt.Sprintf("Status     : %s", strings.ToUpper(string(b.Status))),
		fmt.Sprintf("Vehicle    : %s %s (%d)", safe(d.Vehicle.Brand, "-"), safe(d.Vehicle.Model, "-"), d.Vehicle.Year),
		fmt.Sprintf("Plate      : %s", safe(d.Vehicle.PlateNumber, "-")),
		fmt.Sprintf("Period     : %s -> %s", utils.FormatDate(b.StartDate), utils.FormatDate(b.EndDate)),
		fmt.Sprintf("Days       : %d", utils.RentalDays(b.StartDate, b.EndDate)),
		fmt.Sprintf("Day rate   : %s", utils.FormatMoney(d.Vehicle.PricePerDay)),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total: "+utils.FormatMoney(b.TotalAmount))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	if d.Payment != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Payment    : %s via %s (%s)", d.Payment.Status, safe(d.Payment.Method, "-"), safe(d.Payment.ProcessorReference, "-")))
		pdf.Ln(6)
	}
	if b.Status == models.BookingCancelled {
		reason := "-"
		if b.CancellationReason != nil {
			reason = *b.CancellationReason
		}
		var refund int64
		if b.RefundAmount != nil {
			refund = *b.RefundAmount
		}
		pdf.Cell(0, 6, "Cancelled  : "+reason)
		pdf.Ln(6)
		pdf.Cell(0, 6, "Refund     : "+utils.FormatMoney(refund))
		pdf.Ln(6)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Refunds: more than 3 days before pick-up 100%, 1 to 3 days 50%, less than 1 day none.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("RECEIPT_%s.pdf", safeFilenamePart(shortID(b.ID)))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 12 {
		id = id[:12]
	}
	return strings.ToUpper(id)
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
