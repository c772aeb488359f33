package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanTerms holds the contractual parameters of a loan. They are fixed at
// origination; TotalRepayment and MonthlyRepayment are computed once at loan
// creation, stored, and trusted afterwards rather than re-derived.
type LoanTerms struct {
	Principal        decimal.Decimal `json:"principal" db:"principal"`
	InterestRate     decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	DurationMonths   int             `json:"duration_months" db:"duration_months"`
	StartDate        time.Time       `json:"start_date" db:"start_date"`
	EndDate          time.Time       `json:"end_date" db:"end_date"`
	TotalRepayment   decimal.Decimal `json:"total_repayment" db:"total_repayment"`
	MonthlyRepayment decimal.Decimal `json:"monthly_repayment" db:"monthly_repayment"`
}

// LoanAccount is the running paid/remaining aggregate for a loan, the source
// of truth for its balance. One row per loan, owned exclusively by the ledger
// service. Remaining is always derived from Paid against TotalRepayment.
type LoanAccount struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	LoanID         uuid.UUID       `json:"loan_id" db:"loan_id"`
	CustomerID     uuid.UUID       `json:"customer_id" db:"customer_id"`
	TotalRepayment decimal.Decimal `json:"total_repayment" db:"total_repayment"`
	Paid           decimal.Decimal `json:"paid" db:"paid"`
	Remaining      decimal.Decimal `json:"remaining" db:"remaining"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// DTOs for requests and responses

// InitializeLedgerRequest carries the contractual inputs only; end date and
// the repayment figures are derived at creation, not accepted from callers.
type InitializeLedgerRequest struct {
	CustomerID     uuid.UUID       `json:"customer_id" validate:"required"`
	Principal      decimal.Decimal `json:"principal" validate:"required"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	DurationMonths int             `json:"duration_months" validate:"required,gt=0"`
	StartDate      time.Time       `json:"start_date" validate:"required"`
}

type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Memo        string          `json:"memo"`
	PaymentDate time.Time       `json:"payment_date" validate:"required"`
}

type AmendPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Memo        string          `json:"memo"`
	PaymentDate time.Time       `json:"payment_date" validate:"required"`
}

type ReviseTermsRequest struct {
	TotalRepayment decimal.Decimal `json:"total_repayment" validate:"required"`
}
