package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculateMonthlyRepayment calculates the flat monthly repayment amount.
// Formula: (Principal + Principal*Rate) / DurationMonths, rounded to 2 decimal
// places for currency. Used once at origination; stored figures are trusted
// afterwards.
func CalculateMonthlyRepayment(principal, flatRate decimal.Decimal, months int) decimal.Decimal {
	total := CalculateTotalRepayment(principal, flatRate)
	return total.Div(decimal.NewFromInt(int64(months))).Round(2)
}

// CalculateTotalRepayment returns principal plus flat interest.
func CalculateTotalRepayment(principal, flatRate decimal.Decimal) decimal.Decimal {
	return principal.Add(principal.Mul(flatRate))
}

// ClampBalance is the single clamping policy for aggregate balances: a
// remaining balance is never negative. Overpayment shows up in the paid
// history, not as negative remaining, so balances stay auditable from paid
// totals rather than from successively clamped fields.
func ClampBalance(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// RemainingFromPaid derives a remaining balance from the paid history. This
// is the only place the clamp is applied on the aggregate side.
func RemainingFromPaid(totalRepayment, paid decimal.Decimal) decimal.Decimal {
	return ClampBalance(totalRepayment.Sub(paid))
}

// PeriodDueDate returns the due date of a 1-based repayment period: one month
// after the period opens.
func PeriodDueDate(startDate time.Time, period int) time.Time {
	return startDate.AddDate(0, period, 0)
}

// MonthLabel formats a period's calendar month, e.g. "January 2026".
func MonthLabel(periodStart time.Time) string {
	return periodStart.Format("January 2006")
}

// MonthWindow reports whether date falls inside [start, end).
func MonthWindow(date, start, end time.Time) bool {
	return !date.Before(start) && date.Before(end)
}
