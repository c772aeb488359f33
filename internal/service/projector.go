package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/microlend/loan-ledger/internal/domain"
	"github.com/microlend/loan-ledger/pkg/utils"
)

// ProjectSchedule projects a loan's contractual monthly schedule and
// classifies each period given the payment history. It is a pure function:
// same terms, installments, and asOf always produce the same output.
//
// Installments must be ordered by payment date. Each period window is
// [periodStart, periodStart+1 month) with the due date at the window end.
// Overpayment in one period carries forward to the next; when a period closes
// Paid with surplus, that surplus first settles the oldest unmet overdue
// period (back-fill) before rolling forward. A due date equal to asOf is not
// yet overdue.
func ProjectSchedule(terms *domain.LoanTerms, installments []domain.InstallmentView, asOf time.Time) []*domain.PeriodStatus {
	monthly := terms.MonthlyRepayment
	periods := make([]*domain.PeriodStatus, 0, terms.DurationMonths)

	carry := decimal.Zero
	var overdueQueue []int

	for m := 0; m < terms.DurationMonths; m++ {
		periodStart := terms.StartDate.AddDate(0, m, 0)
		dueDate := utils.PeriodDueDate(terms.StartDate, m+1)

		available := carry
		for _, inst := range installments {
			if utils.MonthWindow(inst.Date, periodStart, dueDate) {
				available = available.Add(inst.Amount)
			}
		}

		period := &domain.PeriodStatus{
			Month:   utils.MonthLabel(periodStart),
			DueDate: dueDate,
		}

		switch {
		case available.GreaterThanOrEqual(monthly):
			period.Status = domain.PeriodStatusPaid
			period.PaidAmount = monthly
			period.RemainingAmount = decimal.Zero
			carry = available.Sub(monthly)
			carry = settleOverdue(periods, &overdueQueue, carry, monthly)

		case available.GreaterThan(decimal.Zero) && !asOf.After(dueDate):
			period.Status = domain.PeriodStatusPartiallyPaid
			period.PaidAmount = available
			period.RemainingAmount = monthly.Sub(available)
			carry = decimal.Zero

		case asOf.After(dueDate):
			period.Status = domain.PeriodStatusOverdue
			period.PaidAmount = available
			period.RemainingAmount = utils.ClampBalance(monthly.Sub(available))
			overdueQueue = append(overdueQueue, m)
			carry = decimal.Zero

		default:
			period.Status = domain.PeriodStatusPending
			period.PaidAmount = available
			period.RemainingAmount = monthly.Sub(available)
			carry = decimal.Zero
		}

		periods = append(periods, period)
	}

	return periods
}

// settleOverdue applies a Paid period's surplus against unmet overdue periods,
// oldest first. A fully covered period is retroactively marked Paid and leaves
// the queue; a partially covered one becomes PartiallyPaid, stays queued, and
// exhausts the surplus. Whatever survives the queue carries forward.
func settleOverdue(periods []*domain.PeriodStatus, queue *[]int, carry, monthly decimal.Decimal) decimal.Decimal {
	for carry.GreaterThan(decimal.Zero) && len(*queue) > 0 {
		entry := periods[(*queue)[0]]

		if carry.GreaterThanOrEqual(entry.RemainingAmount) {
			carry = carry.Sub(entry.RemainingAmount)
			entry.Status = domain.PeriodStatusPaid
			entry.PaidAmount = monthly
			entry.RemainingAmount = decimal.Zero
			*queue = (*queue)[1:]
			continue
		}

		entry.Status = domain.PeriodStatusPartiallyPaid
		entry.PaidAmount = entry.PaidAmount.Add(carry)
		entry.RemainingAmount = entry.RemainingAmount.Sub(carry)
		carry = decimal.Zero
	}

	return carry
}
