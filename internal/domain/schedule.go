package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period status constants
const (
	PeriodStatusPaid          = "Paid"
	PeriodStatusPartiallyPaid = "PartiallyPaid"
	PeriodStatusOverdue       = "Overdue"
	PeriodStatusPending       = "Pending"
)

// PeriodStatus is one month of a projected repayment schedule. It is
// ephemeral output, never persisted.
type PeriodStatus struct {
	Month           string          `json:"month"`
	DueDate         time.Time       `json:"due_date"`
	Status          string          `json:"status"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

type ScheduleResponse struct {
	LoanID   string          `json:"loan_id"`
	AsOf     time.Time       `json:"as_of"`
	Schedule []*PeriodStatus `json:"schedule"`
}
