package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mirror entry kinds. The mirror genuinely carries both the loan's primary
// row and one row per installment, so it keeps a kind tag; the source-of-truth
// side uses distinct types instead.
const (
	MirrorKindPrimary     = "primary"
	MirrorKindInstallment = "installment"
)

// InstallmentRecord is one recorded payment event against a loan. Remaining
// is the loan balance as computed when the event was inserted; RetractPayment
// repairs it on surviving records when an earlier payment is removed.
type InstallmentRecord struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	LoanID      uuid.UUID       `json:"loan_id" db:"loan_id"`
	CustomerID  uuid.UUID       `json:"customer_id" db:"customer_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Remaining   decimal.Decimal `json:"remaining" db:"remaining"`
	Memo        string          `json:"memo" db:"memo"`
	PaymentDate time.Time       `json:"payment_date" db:"payment_date"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// View reduces the record to what the schedule projector needs.
func (r *InstallmentRecord) View() InstallmentView {
	return InstallmentView{Amount: r.Amount, Date: r.PaymentDate}
}

// InstallmentView is the projector's input: a payment amount and the date it
// applies to. It deliberately carries no identity so the projector stays pure.
type InstallmentView struct {
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

// LedgerMirrorEntry is the customer-facing duplicate of a ledger fact,
// expressed as credit (amount paid) / debit (remaining balance after the
// event). It is a read-optimized projection, never a source of truth, and is
// only ever written in lockstep with the record it mirrors.
type LedgerMirrorEntry struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LoanID        uuid.UUID       `json:"loan_id" db:"loan_id"`
	CustomerID    uuid.UUID       `json:"customer_id" db:"customer_id"`
	InstallmentID *uuid.UUID      `json:"installment_id,omitempty" db:"installment_id"`
	Kind          string          `json:"kind" db:"kind"`
	Credit        decimal.Decimal `json:"credit" db:"credit"`
	Debit         decimal.Decimal `json:"debit" db:"debit"`
	Memo          string          `json:"memo" db:"memo"`
	PaymentDate   time.Time       `json:"payment_date" db:"payment_date"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// InstallmentOrder selects the ordering for ListInstallmentsForLoan. Payment
// date is the ordering the schedule is defined on; creation order is kept
// queryable because a back-dated payment makes the two disagree.
type InstallmentOrder string

const (
	OrderByPaymentDate InstallmentOrder = "payment_date"
	OrderByCreatedAt   InstallmentOrder = "created_at"
)
