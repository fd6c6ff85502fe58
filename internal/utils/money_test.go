package utils

import (
	"testing"
	"time"
)

func TestComputeRentalTotal(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		end  time.Time
		want int64
	}{
		{start.AddDate(0, 0, 2), 20000},
		{start.Add(36 * time.Hour), 20000},
		{start.Add(time.Hour), 10000},
		{start, 0},
		{start.Add(-time.Hour), 0},
	}
	for _, c := range cases {
		if got := ComputeRentalTotal(start, c.end, 10000); got != c.want {
			t.Fatalf("ComputeRentalTotal(%s) = %d, want %d", c.end.Sub(start), got, c.want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	cases := map[int64]string{
		0:         "0.00",
		5:         "0.05",
		12050:     "120.50",
		123456789: "1,234,567.89",
		-2500:     "-25.00",
	}
	for in, want := range cases {
		if got := FormatMoney(in); got != want {
			t.Fatalf("FormatMoney(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	if err != nil || !d.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDate date = %s, %v", d, err)
	}
	d, err = ParseDate("2025-06-01T10:00:00+07:00")
	if err != nil || d.Location() != time.UTC || d.Hour() != 3 {
		t.Fatalf("ParseDate RFC3339 = %s, %v", d, err)
	}
	if _, err := ParseDate("01/06/2025"); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}
