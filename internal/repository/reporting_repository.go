package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/microlend/loan-ledger/internal/domain"
)

type reportingStore struct {
	db *sqlx.DB
}

// NewReportingStore returns a Postgres-backed ReportingStore.
func NewReportingStore(db *sqlx.DB) ReportingStore {
	return &reportingStore{db: db}
}

func (s *reportingStore) ListAccountsForCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.LoanAccount, error) {
	query := `
		SELECT id, loan_id, customer_id, total_repayment, paid, remaining, created_at, updated_at
		FROM loan_accounts
		WHERE customer_id = $1
		ORDER BY created_at
	`

	var accounts []*domain.LoanAccount
	if err := s.db.SelectContext(ctx, &accounts, query, customerID); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (s *reportingStore) DashboardTotals(ctx context.Context, monthStart, monthEnd time.Time) (*domain.DashboardTotals, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(principal) FROM loan_terms), 0)       AS total_loaned,
			COALESCE((SELECT SUM(amount) FROM installments
				WHERE payment_date >= $1 AND payment_date < $2), 0)    AS monthly_collected,
			COALESCE((SELECT SUM(remaining) FROM loan_accounts), 0)    AS outstanding,
			(SELECT COUNT(DISTINCT customer_id) FROM loan_accounts)    AS customer_count,
			(SELECT COUNT(*) FROM loan_accounts)                       AS loan_count,
			(SELECT COUNT(*) FROM installments)                        AS installment_count
	`

	var totals domain.DashboardTotals
	if err := s.db.GetContext(ctx, &totals, query, monthStart, monthEnd); err != nil {
		return nil, err
	}

	return &totals, nil
}

func (s *reportingStore) PaymentReport(ctx context.Context) ([]*domain.PaymentReportRow, error) {
	query := `
		SELECT
			a.loan_id, a.customer_id,
			t.principal, t.interest_rate, t.duration_months, t.start_date, t.end_date, t.monthly_repayment,
			a.total_repayment, a.paid, a.remaining, a.updated_at
		FROM loan_accounts a
		JOIN loan_terms t ON t.loan_id = a.loan_id
		ORDER BY a.created_at DESC
	`

	var rows []*domain.PaymentReportRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	return rows, nil
}
