package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// ReasonPaymentTimeout is written by both expiry paths.
const ReasonPaymentTimeout = "payment timeout"

// BlockingStatuses hold the vehicle for their window.
var BlockingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingActive}

// RentedStatuses mark a vehicle as currently rented when their window contains now.
var RentedStatuses = []BookingStatus{BookingConfirmed, BookingActive}

var bookingSuccessors = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCancelled},
	BookingActive:    {BookingCompleted, BookingCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingActive, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

func (s BookingStatus) IsBlocking() bool {
	for _, b := range BlockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsRented() bool {
	for _, r := range RentedStatuses {
		if s == r {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingSuccessors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Booking is one reservation of a vehicle over the half-open window [StartDate, EndDate).
type Booking struct {
	ID                 string        `json:"id"`
	VehicleID          string        `json:"vehicleId"`
	RenterID           string        `json:"renterId"`
	StartDate          time.Time     `json:"startDate"`
	EndDate            time.Time     `json:"endDate"`
	TotalAmount        int64         `json:"totalAmount"`
	Status             BookingStatus `json:"status"`
	CancellationReason *string       `json:"cancellationReason,omitempty"`
	RefundAmount       *int64        `json:"refundAmount,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Overlaps applies the half-open test: touching windows do not overlap.
func (b Booking) Overlaps(start, end time.Time) bool {
	return Overlaps(b.StartDate, b.EndDate, start, end)
}

// Contains reports whether t falls inside [StartDate, EndDate).
func (b Booking) Contains(t time.Time) bool {
	return !t.Before(b.StartDate) && t.Before(b.EndDate)
}

func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// StatusChange describes a compare-and-swap on a booking's status. Reason and
// Refund are persisted only when set.
type StatusChange struct {
	From   BookingStatus
	To     BookingStatus
	Reason *string
	Refund *int64
	At     time.Time
}
