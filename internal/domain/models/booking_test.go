package models

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	legal := map[BookingStatus][]BookingStatus{
		BookingPending:   {BookingConfirmed, BookingCancelled},
		BookingConfirmed: {BookingCancelled},
		BookingActive:    {BookingCompleted, BookingCancelled},
	}
	all := []BookingStatus{BookingPending, BookingConfirmed, BookingActive, BookingCompleted, BookingCancelled}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range legal[from] {
				if ok == to {
					want = true
				}
			}
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
	if !BookingCompleted.IsTerminal() || !BookingCancelled.IsTerminal() || BookingActive.IsTerminal() {
		t.Fatalf("terminal statuses are completed and cancelled")
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	// d(0) normalises to May 31.
	d := func(day int) time.Time { return time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC) }
	b := Booking{StartDate: d(1), EndDate: d(3)}

	cases := []struct {
		start, end int
		want       bool
	}{
		{3, 5, false},
		{0, 1, false},
		{2, 4, true},
		{0, 2, true},
		{1, 3, true},
		{0, 10, true},
		{2, 3, true},
	}
	for _, c := range cases {
		start := d(c.start)
		if got := b.Overlaps(start, d(c.end)); got != c.want {
			t.Fatalf("Overlaps([%s, %s)) = %v, want %v", start.Format("01-02"), d(c.end).Format("01-02"), got, c.want)
		}
	}

	if !b.Contains(d(1)) || b.Contains(d(3)) {
		t.Fatalf("Contains must include start and exclude end")
	}
}

func TestBlockingStatuses(t *testing.T) {
	for _, s := range []BookingStatus{BookingPending, BookingConfirmed, BookingActive} {
		if !s.IsBlocking() {
			t.Fatalf("%s should block the vehicle", s)
		}
	}
	for _, s := range []BookingStatus{BookingCompleted, BookingCancelled} {
		if s.IsBlocking() {
			t.Fatalf("%s should not block the vehicle", s)
		}
	}
	if BookingStatus("archived").Valid() {
		t.Fatalf("unknown status reported valid")
	}
}

func TestRentedStatuses(t *testing.T) {
	for _, s := range []BookingStatus{BookingConfirmed, BookingActive} {
		if !s.IsRented() {
			t.Fatalf("%s should count as rented", s)
		}
	}
	for _, s := range []BookingStatus{BookingPending, BookingCompleted, BookingCancelled} {
		if s.IsRented() {
			t.Fatalf("%s should not count as rented", s)
		}
	}
}
