package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardTotals is the fleet-wide rollup shown on the dashboard.
type DashboardTotals struct {
	TotalLoaned      decimal.Decimal `json:"total_loaned" db:"total_loaned"`
	MonthlyCollected decimal.Decimal `json:"monthly_collected" db:"monthly_collected"`
	Outstanding      decimal.Decimal `json:"outstanding" db:"outstanding"`
	CustomerCount    int64           `json:"customer_count" db:"customer_count"`
	LoanCount        int64           `json:"loan_count" db:"loan_count"`
	InstallmentCount int64           `json:"installment_count" db:"installment_count"`
}

// PaymentReportRow is one loan's aggregate joined with its terms.
type PaymentReportRow struct {
	LoanID           uuid.UUID       `json:"loan_id" db:"loan_id"`
	CustomerID       uuid.UUID       `json:"customer_id" db:"customer_id"`
	Principal        decimal.Decimal `json:"principal" db:"principal"`
	InterestRate     decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	DurationMonths   int             `json:"duration_months" db:"duration_months"`
	StartDate        time.Time       `json:"start_date" db:"start_date"`
	EndDate          time.Time       `json:"end_date" db:"end_date"`
	MonthlyRepayment decimal.Decimal `json:"monthly_repayment" db:"monthly_repayment"`
	TotalRepayment   decimal.Decimal `json:"total_repayment" db:"total_repayment"`
	Paid             decimal.Decimal `json:"paid" db:"paid"`
	Remaining        decimal.Decimal `json:"remaining" db:"remaining"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// CustomerLedgerLoan is one loan inside a customer ledger: the aggregate, its
// terms, and the customer-facing mirror rows (primary first).
type CustomerLedgerLoan struct {
	Account *LoanAccount         `json:"account"`
	Terms   *LoanTerms           `json:"terms"`
	Entries []*LedgerMirrorEntry `json:"entries"`
}

// CustomerLedger is the customer-facing ledger report.
type CustomerLedger struct {
	CustomerID     uuid.UUID             `json:"customer_id"`
	Loans          []*CustomerLedgerLoan `json:"loans"`
	TotalPaid      decimal.Decimal       `json:"total_paid"`
	TotalRemaining decimal.Decimal       `json:"total_remaining"`
}

// LoanScheduleSummary is a projector-backed view of one loan's schedule with
// rollup counts.
type LoanScheduleSummary struct {
	LoanID        uuid.UUID       `json:"loan_id"`
	Terms         *LoanTerms      `json:"terms"`
	Periods       []*PeriodStatus `json:"periods"`
	PaidCount     int             `json:"paid_count"`
	OverdueCount  int             `json:"overdue_count"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
	PendingCount  int             `json:"pending_count"`
}

// CustomerLoanSummary aggregates schedule summaries for every loan a customer
// holds.
type CustomerLoanSummary struct {
	CustomerID uuid.UUID              `json:"customer_id"`
	AsOf       time.Time              `json:"as_of"`
	Loans      []*LoanScheduleSummary `json:"loans"`
}
