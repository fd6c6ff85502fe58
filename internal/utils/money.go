package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatMoney renders minor units as a decimal amount, e.g. 12050 -> "120.50".
func FormatMoney(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%s.%02d", sign, formatThousand(amount/100), amount%100)
}

// RentalDays counts billable days for [start, end): any started day is billed.
func RentalDays(start, end time.Time) int64 {
	if !end.After(start) {
		return 0
	}
	return int64(math.Ceil(end.Sub(start).Hours() / 24))
}

// ComputeRentalTotal applies the linear day-rate formula.
func ComputeRentalTotal(start, end time.Time, pricePerDay int64) int64 {
	return RentalDays(start, end) * pricePerDay
}

func formatThousand(n int64) string {
	if n == 0 {
		return "0"
	}
	str := strconv.FormatInt(n, 10)
	var out strings.Builder
	for i, c := range str {
		if i != 0 && (len(str)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	return out.String()
}
