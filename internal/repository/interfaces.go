package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/microlend/loan-ledger/internal/domain"
)

// LedgerStore defines the persistence interface for the three ledger entity
// kinds: loan accounts, installment records, and customer-facing mirror
// entries. Save methods upsert. Multi-record mutations run through WithinTx
// so installment, mirror, and account writes commit or roll back together.
type LedgerStore interface {
	// WithinTx runs fn against a transaction-backed store. Calling it on a
	// store that is already transactional reuses the open transaction.
	WithinTx(ctx context.Context, fn func(LedgerStore) error) error

	// GetLoanTerms retrieves the stored contractual terms for a loan
	GetLoanTerms(ctx context.Context, loanID uuid.UUID) (*domain.LoanTerms, error)

	// SaveLoanTerms inserts or updates the terms row for a loan
	SaveLoanTerms(ctx context.Context, loanID uuid.UUID, terms *domain.LoanTerms) error

	// GetLoanAccount retrieves a loan's running aggregate
	GetLoanAccount(ctx context.Context, loanID uuid.UUID) (*domain.LoanAccount, error)

	// SaveLoanAccount inserts or updates a loan account
	SaveLoanAccount(ctx context.Context, account *domain.LoanAccount) error

	// GetInstallment retrieves a single installment record by ID
	GetInstallment(ctx context.Context, id uuid.UUID) (*domain.InstallmentRecord, error)

	// SaveInstallment inserts or updates an installment record
	SaveInstallment(ctx context.Context, installment *domain.InstallmentRecord) error

	// DeleteInstallment removes an installment record
	DeleteInstallment(ctx context.Context, id uuid.UUID) error

	// ListInstallmentsForLoan lists a loan's installments in the given order
	ListInstallmentsForLoan(ctx context.Context, loanID uuid.UUID, orderBy domain.InstallmentOrder) ([]*domain.InstallmentRecord, error)

	// GetMirrorByInstallment retrieves the mirror entry backing an installment
	GetMirrorByInstallment(ctx context.Context, installmentID uuid.UUID) (*domain.LedgerMirrorEntry, error)

	// GetPrimaryMirror retrieves a loan's primary mirror entry
	GetPrimaryMirror(ctx context.Context, loanID uuid.UUID) (*domain.LedgerMirrorEntry, error)

	// SaveMirror inserts or updates a mirror entry
	SaveMirror(ctx context.Context, mirror *domain.LedgerMirrorEntry) error

	// DeleteMirror removes a mirror entry
	DeleteMirror(ctx context.Context, id uuid.UUID) error

	// ListMirrorsForLoan lists all mirror entries for a loan, primary first
	ListMirrorsForLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LedgerMirrorEntry, error)

	// PurgeLoan cascade-deletes the terms, account, installments, and mirrors
	// of a loan
	PurgeLoan(ctx context.Context, loanID uuid.UUID) error
}

// ReportingStore defines the read-only rollup queries used by the reporting
// aggregators.
type ReportingStore interface {
	// ListAccountsForCustomer lists all loan accounts owned by a customer
	ListAccountsForCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.LoanAccount, error)

	// DashboardTotals computes fleet-wide rollups; monthly collected covers
	// payments dated in [monthStart, monthEnd)
	DashboardTotals(ctx context.Context, monthStart, monthEnd time.Time) (*domain.DashboardTotals, error)

	// PaymentReport lists every loan's aggregate joined with its terms
	PaymentReport(ctx context.Context) ([]*domain.PaymentReportRow, error)
}
