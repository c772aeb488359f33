package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/microlend/loan-ledger/internal/domain"
)

type ledgerStore struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

// NewLedgerStore returns a Postgres-backed LedgerStore.
func NewLedgerStore(db *sqlx.DB) LedgerStore {
	return &ledgerStore{db: db}
}

// ext returns the active executor: the open transaction if there is one,
// otherwise the pool.
func (s *ledgerStore) ext() sqlx.ExtContext {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *ledgerStore) WithinTx(ctx context.Context, fn func(LedgerStore) error) error {
	if s.tx != nil {
		// Nested call, reuse the open transaction.
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&ledgerStore{db: s.db, tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *ledgerStore) GetLoanTerms(ctx context.Context, loanID uuid.UUID) (*domain.LoanTerms, error) {
	query := `
		SELECT principal, interest_rate, duration_months, start_date, end_date, total_repayment, monthly_repayment
		FROM loan_terms
		WHERE loan_id = $1
	`

	var terms domain.LoanTerms
	if err := sqlx.GetContext(ctx, s.ext(), &terms, query, loanID); err != nil {
		return nil, err
	}

	return &terms, nil
}

func (s *ledgerStore) SaveLoanTerms(ctx context.Context, loanID uuid.UUID, terms *domain.LoanTerms) error {
	query := `
		INSERT INTO loan_terms (loan_id, principal, interest_rate, duration_months, start_date, end_date, total_repayment, monthly_repayment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (loan_id) DO UPDATE SET
			principal = EXCLUDED.principal,
			interest_rate = EXCLUDED.interest_rate,
			duration_months = EXCLUDED.duration_months,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			total_repayment = EXCLUDED.total_repayment,
			monthly_repayment = EXCLUDED.monthly_repayment
	`

	_, err := s.ext().ExecContext(ctx, query,
		loanID,
		terms.Principal,
		terms.InterestRate,
		terms.DurationMonths,
		terms.StartDate,
		terms.EndDate,
		terms.TotalRepayment,
		terms.MonthlyRepayment,
	)

	return err
}

func (s *ledgerStore) GetLoanAccount(ctx context.Context, loanID uuid.UUID) (*domain.LoanAccount, error) {
	query := `
		SELECT id, loan_id, customer_id, total_repayment, paid, remaining, created_at, updated_at
		FROM loan_accounts
		WHERE loan_id = $1
	`

	var account domain.LoanAccount
	if err := sqlx.GetContext(ctx, s.ext(), &account, query, loanID); err != nil {
		return nil, err
	}

	return &account, nil
}

func (s *ledgerStore) SaveLoanAccount(ctx context.Context, account *domain.LoanAccount) error {
	query := `
		INSERT INTO loan_accounts (id, loan_id, customer_id, total_repayment, paid, remaining, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (loan_id) DO UPDATE SET
			total_repayment = EXCLUDED.total_repayment,
			paid = EXCLUDED.paid,
			remaining = EXCLUDED.remaining,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.ext().ExecContext(ctx, query,
		account.ID,
		account.LoanID,
		account.CustomerID,
		account.TotalRepayment,
		account.Paid,
		account.Remaining,
		account.CreatedAt,
		time.Now(),
	)

	return err
}

func (s *ledgerStore) GetInstallment(ctx context.Context, id uuid.UUID) (*domain.InstallmentRecord, error) {
	query := `
		SELECT id, loan_id, customer_id, amount, remaining, memo, payment_date, created_at
		FROM installments
		WHERE id = $1
	`

	var installment domain.InstallmentRecord
	if err := sqlx.GetContext(ctx, s.ext(), &installment, query, id); err != nil {
		return nil, err
	}

	return &installment, nil
}

func (s *ledgerStore) SaveInstallment(ctx context.Context, installment *domain.InstallmentRecord) error {
	query := `
		INSERT INTO installments (id, loan_id, customer_id, amount, remaining, memo, payment_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			remaining = EXCLUDED.remaining,
			memo = EXCLUDED.memo,
			payment_date = EXCLUDED.payment_date
	`

	_, err := s.ext().ExecContext(ctx, query,
		installment.ID,
		installment.LoanID,
		installment.CustomerID,
		installment.Amount,
		installment.Remaining,
		installment.Memo,
		installment.PaymentDate,
		installment.CreatedAt,
	)

	return err
}

func (s *ledgerStore) DeleteInstallment(ctx context.Context, id uuid.UUID) error {
	_, err := s.ext().ExecContext(ctx, `DELETE FROM installments WHERE id = $1`, id)
	return err
}

func (s *ledgerStore) ListInstallmentsForLoan(ctx context.Context, loanID uuid.UUID, orderBy domain.InstallmentOrder) ([]*domain.InstallmentRecord, error) {
	query := `
		SELECT id, loan_id, customer_id, amount, remaining, memo, payment_date, created_at
		FROM installments
		WHERE loan_id = $1
		ORDER BY payment_date, created_at
	`
	if orderBy == domain.OrderByCreatedAt {
		query = `
			SELECT id, loan_id, customer_id, amount, remaining, memo, payment_date, created_at
			FROM installments
			WHERE loan_id = $1
			ORDER BY created_at
		`
	}

	var installments []*domain.InstallmentRecord
	if err := sqlx.SelectContext(ctx, s.ext(), &installments, query, loanID); err != nil {
		return nil, err
	}

	return installments, nil
}

func (s *ledgerStore) GetMirrorByInstallment(ctx context.Context, installmentID uuid.UUID) (*domain.LedgerMirrorEntry, error) {
	query := `
		SELECT id, loan_id, customer_id, installment_id, kind, credit, debit, memo, payment_date, created_at
		FROM ledger_mirror
		WHERE installment_id = $1
	`

	var mirror domain.LedgerMirrorEntry
	if err := sqlx.GetContext(ctx, s.ext(), &mirror, query, installmentID); err != nil {
		return nil, err
	}

	return &mirror, nil
}

func (s *ledgerStore) GetPrimaryMirror(ctx context.Context, loanID uuid.UUID) (*domain.LedgerMirrorEntry, error) {
	query := `
		SELECT id, loan_id, customer_id, installment_id, kind, credit, debit, memo, payment_date, created_at
		FROM ledger_mirror
		WHERE loan_id = $1 AND kind = $2
	`

	var mirror domain.LedgerMirrorEntry
	if err := sqlx.GetContext(ctx, s.ext(), &mirror, query, loanID, domain.MirrorKindPrimary); err != nil {
		return nil, err
	}

	return &mirror, nil
}

func (s *ledgerStore) SaveMirror(ctx context.Context, mirror *domain.LedgerMirrorEntry) error {
	query := `
		INSERT INTO ledger_mirror (id, loan_id, customer_id, installment_id, kind, credit, debit, memo, payment_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			credit = EXCLUDED.credit,
			debit = EXCLUDED.debit,
			memo = EXCLUDED.memo,
			payment_date = EXCLUDED.payment_date
	`

	_, err := s.ext().ExecContext(ctx, query,
		mirror.ID,
		mirror.LoanID,
		mirror.CustomerID,
		mirror.InstallmentID,
		mirror.Kind,
		mirror.Credit,
		mirror.Debit,
		mirror.Memo,
		mirror.PaymentDate,
		mirror.CreatedAt,
	)

	return err
}

func (s *ledgerStore) DeleteMirror(ctx context.Context, id uuid.UUID) error {
	_, err := s.ext().ExecContext(ctx, `DELETE FROM ledger_mirror WHERE id = $1`, id)
	return err
}

func (s *ledgerStore) ListMirrorsForLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LedgerMirrorEntry, error) {
	query := `
		SELECT id, loan_id, customer_id, installment_id, kind, credit, debit, memo, payment_date, created_at
		FROM ledger_mirror
		WHERE loan_id = $1
		ORDER BY kind = $2 DESC, payment_date, created_at
	`

	var mirrors []*domain.LedgerMirrorEntry
	if err := sqlx.SelectContext(ctx, s.ext(), &mirrors, query, loanID, domain.MirrorKindPrimary); err != nil {
		return nil, err
	}

	return mirrors, nil
}

func (s *ledgerStore) PurgeLoan(ctx context.Context, loanID uuid.UUID) error {
	return s.WithinTx(ctx, func(txStore LedgerStore) error {
		ts := txStore.(*ledgerStore)
		for _, query := range []string{
			`DELETE FROM ledger_mirror WHERE loan_id = $1`,
			`DELETE FROM installments WHERE loan_id = $1`,
			`DELETE FROM loan_accounts WHERE loan_id = $1`,
			`DELETE FROM loan_terms WHERE loan_id = $1`,
		} {
			if _, err := ts.ext().ExecContext(ctx, query, loanID); err != nil {
				return err
			}
		}
		return nil
	})
}
