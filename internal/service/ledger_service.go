package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/microlend/loan-ledger/internal/config"
	"github.com/microlend/loan-ledger/internal/domain"
	"github.com/microlend/loan-ledger/internal/repository"
	customError "github.com/microlend/loan-ledger/pkg/errors"
	"github.com/microlend/loan-ledger/pkg/utils"
)

// LedgerService coordinates the ledger-changing operations, keeping the loan
// account aggregate, the installment records, and the customer-facing mirror
// consistent across record, amend, and retract.
//
// Mutations on the same loan are serialized through a per-loan lock; every
// multi-record write runs in a single store transaction, so readers never
// observe an installment without its mirror or account update.
type LedgerService struct {
	Store  repository.LedgerStore
	config *config.Config
	locks  *loanLocks
}

func NewLedgerService(store repository.LedgerStore, config *config.Config) *LedgerService {
	return &LedgerService{
		Store:  store,
		config: config,
		locks:  newLoanLocks(),
	}
}

// InitializeLedger creates the ledger for a newly originated loan: terms, an
// account with paid=0 / remaining=totalRepayment, and the primary mirror
// entry. Called by the loan-origination collaborator.
func (s *LedgerService) InitializeLedger(ctx context.Context, loanID uuid.UUID, request *domain.InitializeLedgerRequest) (*domain.LoanAccount, error) {
	if !request.Principal.IsPositive() || request.DurationMonths <= 0 {
		return nil, customError.WrapInvalidAmount(request.Principal.String())
	}

	terms := domain.LoanTerms{
		Principal:        request.Principal,
		InterestRate:     request.InterestRate,
		DurationMonths:   request.DurationMonths,
		StartDate:        request.StartDate,
		EndDate:          request.StartDate.AddDate(0, request.DurationMonths, 0),
		TotalRepayment:   utils.CalculateTotalRepayment(request.Principal, request.InterestRate),
		MonthlyRepayment: utils.CalculateMonthlyRepayment(request.Principal, request.InterestRate, request.DurationMonths),
	}
	if !terms.TotalRepayment.IsPositive() {
		return nil, customError.WrapInvalidAmount(terms.TotalRepayment.String())
	}

	_, err := s.Store.GetLoanAccount(ctx, loanID)
	if err == nil {
		return nil, customError.WrapLedgerAlreadyExists(loanID.String())
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	now := time.Now()
	account := &domain.LoanAccount{
		ID:             uuid.New(),
		LoanID:         loanID,
		CustomerID:     request.CustomerID,
		TotalRepayment: terms.TotalRepayment,
		Paid:           decimal.Zero,
		Remaining:      terms.TotalRepayment,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	mirror := &domain.LedgerMirrorEntry{
		ID:          uuid.New(),
		LoanID:      loanID,
		CustomerID:  request.CustomerID,
		Kind:        domain.MirrorKindPrimary,
		Credit:      decimal.Zero,
		Debit:       terms.TotalRepayment,
		PaymentDate: terms.StartDate,
		CreatedAt:   now,
	}

	err = s.Store.WithinTx(ctx, func(tx repository.LedgerStore) error {
		if err := tx.SaveLoanTerms(ctx, loanID, &terms); err != nil {
			return err
		}
		if err := tx.SaveLoanAccount(ctx, account); err != nil {
			return err
		}
		return tx.SaveMirror(ctx, mirror)
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return account, nil
}

// RecordPayment creates an installment record and its mirror entry, then
// rolls the payment into the loan account aggregate.
func (s *LedgerService) RecordPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, memo string, paymentDate time.Time) (*domain.InstallmentRecord, error) {
	if err := s.validateAmount(amount); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(loanID)
	defer unlock()

	account, err := s.Store.GetLoanAccount(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	primary, err := s.Store.GetPrimaryMirror(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapMirrorNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	siblings, err := s.Store.ListInstallmentsForLoan(ctx, loanID, domain.OrderByPaymentDate)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if err := checkPaidHistory(account, siblings); err != nil {
		return nil, err
	}

	now := time.Now()
	installment := &domain.InstallmentRecord{
		ID:          uuid.New(),
		LoanID:      loanID,
		CustomerID:  account.CustomerID,
		Amount:      amount,
		Remaining:   utils.ClampBalance(account.Remaining.Sub(amount)),
		Memo:        memo,
		PaymentDate: paymentDate,
		CreatedAt:   now,
	}

	mirror := &domain.LedgerMirrorEntry{
		ID:            uuid.New(),
		LoanID:        loanID,
		CustomerID:    account.CustomerID,
		InstallmentID: &installment.ID,
		Kind:          domain.MirrorKindInstallment,
		Credit:        amount,
		Debit:         installment.Remaining,
		Memo:          memo,
		PaymentDate:   paymentDate,
		CreatedAt:     now,
	}

	account.Paid = account.Paid.Add(amount)
	account.Remaining = utils.RemainingFromPaid(account.TotalRepayment, account.Paid)
	account.UpdatedAt = now
	syncPrimaryMirror(primary, account)

	if err := verifyAccount(account); err != nil {
		return nil, err
	}

	err = s.Store.WithinTx(ctx, func(tx repository.LedgerStore) error {
		if err := tx.SaveInstallment(ctx, installment); err != nil {
			return err
		}
		if err := tx.SaveMirror(ctx, mirror); err != nil {
			return err
		}
		if err := tx.SaveMirror(ctx, primary); err != nil {
			return err
		}
		return tx.SaveLoanAccount(ctx, account)
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return installment, nil
}

// AmendPayment rewrites a single installment's amount, memo, and date. The
// account aggregate is recomputed from the paid history rather than from the
// previously stored (possibly clamped) remaining, so repeated amendments
// cannot ratchet the balance. Sibling installments are deliberately left
// untouched; their stored remaining snapshots may reference the old baseline.
func (s *LedgerService) AmendPayment(ctx context.Context, installmentID uuid.UUID, request *domain.AmendPaymentRequest) (*domain.InstallmentRecord, error) {
	if err := s.validateAmount(request.Amount); err != nil {
		return nil, err
	}

	probe, err := s.getInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(probe.LoanID)
	defer unlock()

	// Re-read under the loan lock; the probe may be stale.
	installment, err := s.getInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}

	account, err := s.Store.GetLoanAccount(ctx, installment.LoanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(installment.LoanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	mirror, err := s.Store.GetMirrorByInstallment(ctx, installmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapMirrorNotFound(installmentID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	primary, err := s.Store.GetPrimaryMirror(ctx, installment.LoanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapMirrorNotFound(installment.LoanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	remainingBeforeEdit := account.Remaining

	now := time.Now()
	account.Paid = account.Paid.Sub(installment.Amount).Add(request.Amount)
	account.Remaining = utils.RemainingFromPaid(account.TotalRepayment, account.Paid)
	account.UpdatedAt = now

	installment.Amount = request.Amount
	installment.Remaining = utils.ClampBalance(remainingBeforeEdit.Sub(request.Amount))
	installment.Memo = request.Memo
	installment.PaymentDate = request.PaymentDate

	mirror.Credit = installment.Amount
	mirror.Debit = installment.Remaining
	mirror.Memo = installment.Memo
	mirror.PaymentDate = installment.PaymentDate
	syncPrimaryMirror(primary, account)

	if err := verifyAccount(account); err != nil {
		return nil, err
	}

	err = s.Store.WithinTx(ctx, func(tx repository.LedgerStore) error {
		if err := tx.SaveInstallment(ctx, installment); err != nil {
			return err
		}
		if err := tx.SaveMirror(ctx, mirror); err != nil {
			return err
		}
		if err := tx.SaveMirror(ctx, primary); err != nil {
			return err
		}
		return tx.SaveLoanAccount(ctx, account)
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return installment, nil
}

// RetractPayment removes an installment and its mirror, reverts the account
// aggregate, and, when the retracted payment is not the loan's latest by
// payment date, repairs the remaining-balance snapshot of every later-dated
// installment (and its mirror debit). The cascade and deletes are one
// transaction: they apply fully or not at all.
func (s *LedgerService) RetractPayment(ctx context.Context, installmentID uuid.UUID) error {
	probe, err := s.getInstallment(ctx, installmentID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(probe.LoanID)
	defer unlock()

	installment, err := s.getInstallment(ctx, installmentID)
	if err != nil {
		return err
	}

	account, err := s.Store.GetLoanAccount(ctx, installment.LoanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapLoanNotFound(installment.LoanID.String())
		}
		return customError.WrapDatabaseError(err)
	}

	mirror, err := s.Store.GetMirrorByInstallment(ctx, installmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapMirrorNotFound(installmentID.String())
		}
		return customError.WrapDatabaseError(err)
	}

	primary, err := s.Store.GetPrimaryMirror(ctx, installment.LoanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapMirrorNotFound(installment.LoanID.String())
		}
		return customError.WrapDatabaseError(err)
	}

	siblings, err := s.Store.ListInstallmentsForLoan(ctx, installment.LoanID, domain.OrderByPaymentDate)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if err := checkPaidHistory(account, siblings); err != nil {
		return err
	}

	// Gather the cascade set and its mirrors before any write, so a missing
	// record aborts the whole operation untouched.
	var later []*domain.InstallmentRecord
	for _, sibling := range siblings {
		if sibling.ID == installment.ID {
			continue
		}
		if paymentOrderAfter(sibling, installment) {
			later = append(later, sibling)
		}
	}

	laterMirrors := make([]*domain.LedgerMirrorEntry, len(later))
	for i, sibling := range later {
		m, err := s.Store.GetMirrorByInstallment(ctx, sibling.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapMirrorNotFound(sibling.ID.String())
			}
			return customError.WrapDatabaseError(err)
		}
		laterMirrors[i] = m
	}

	now := time.Now()
	account.Paid = account.Paid.Sub(installment.Amount)
	account.Remaining = utils.RemainingFromPaid(account.TotalRepayment, account.Paid)
	account.UpdatedAt = now
	syncPrimaryMirror(primary, account)

	for i, sibling := range later {
		sibling.Remaining = sibling.Remaining.Add(installment.Amount)
		laterMirrors[i].Debit = sibling.Remaining
	}

	if err := verifyAccount(account); err != nil {
		return err
	}

	err = s.Store.WithinTx(ctx, func(tx repository.LedgerStore) error {
		for i, sibling := range later {
			if err := tx.SaveInstallment(ctx, sibling); err != nil {
				return err
			}
			if err := tx.SaveMirror(ctx, laterMirrors[i]); err != nil {
				return err
			}
		}
		if err := tx.SaveLoanAccount(ctx, account); err != nil {
			return err
		}
		if err := tx.SaveMirror(ctx, primary); err != nil {
			return err
		}
		// The mirror row references the installment, so it must go first.
		if err := tx.DeleteMirror(ctx, mirror.ID); err != nil {
			return err
		}
		return tx.DeleteInstallment(ctx, installment.ID)
	})
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	return nil
}

// ReviseTerms resizes the loan's total repayment after an out-of-band loan
// amendment. Remaining is recomputed from the paid history against the new
// total; the stored monthly repayment is re-derived from the new total.
func (s *LedgerService) ReviseTerms(ctx context.Context, loanID uuid.UUID, newTotalRepayment decimal.Decimal) (*domain.LoanAccount, error) {
	if !newTotalRepayment.IsPositive() {
		return nil, customError.WrapInvalidAmount(newTotalRepayment.String())
	}

	unlock := s.locks.Lock(loanID)
	defer unlock()

	terms, err := s.Store.GetLoanTerms(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	account, err := s.Store.GetLoanAccount(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	primary, err := s.Store.GetPrimaryMirror(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapMirrorNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	terms.TotalRepayment = newTotalRepayment
	terms.MonthlyRepayment = newTotalRepayment.Div(decimal.NewFromInt(int64(terms.DurationMonths))).Round(2)

	account.TotalRepayment = newTotalRepayment
	account.Remaining = utils.RemainingFromPaid(newTotalRepayment, account.Paid)
	account.UpdatedAt = time.Now()
	syncPrimaryMirror(primary, account)

	if err := verifyAccount(account); err != nil {
		return nil, err
	}

	err = s.Store.WithinTx(ctx, func(tx repository.LedgerStore) error {
		if err := tx.SaveLoanTerms(ctx, loanID, terms); err != nil {
			return err
		}
		if err := tx.SaveLoanAccount(ctx, account); err != nil {
			return err
		}
		return tx.SaveMirror(ctx, primary)
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return account, nil
}

// PurgeLedger cascade-deletes everything the ledger holds for a loan. Called
// by the loan-deletion collaborator.
func (s *LedgerService) PurgeLedger(ctx context.Context, loanID uuid.UUID) error {
	unlock := s.locks.Lock(loanID)
	defer unlock()

	if _, err := s.Store.GetLoanAccount(ctx, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapLoanNotFound(loanID.String())
		}
		return customError.WrapDatabaseError(err)
	}

	if err := s.Store.PurgeLoan(ctx, loanID); err != nil {
		return customError.WrapDatabaseError(err)
	}

	return nil
}

// Schedule loads a loan's terms and payment history and projects its monthly
// schedule as of the given date.
func (s *LedgerService) Schedule(ctx context.Context, loanID uuid.UUID, asOf time.Time) ([]*domain.PeriodStatus, error) {
	terms, err := s.Store.GetLoanTerms(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	installments, err := s.Store.ListInstallmentsForLoan(ctx, loanID, domain.OrderByPaymentDate)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	views := make([]domain.InstallmentView, 0, len(installments))
	for _, installment := range installments {
		views = append(views, installment.View())
	}

	return ProjectSchedule(terms, views, asOf), nil
}

func (s *LedgerService) getInstallment(ctx context.Context, id uuid.UUID) (*domain.InstallmentRecord, error) {
	installment, err := s.Store.GetInstallment(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapInstallmentNotFound(id.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return installment, nil
}

func (s *LedgerService) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return customError.WrapInvalidAmount(amount.String())
	}
	if amount.GreaterThan(s.config.MaxPaymentAmount()) {
		return customError.WrapInvalidAmount(amount.String())
	}
	return nil
}

// paymentOrderAfter reports whether a comes after b in schedule order:
// payment date first, insertion order as the tie-break.
func paymentOrderAfter(a, b *domain.InstallmentRecord) bool {
	if a.PaymentDate.Equal(b.PaymentDate) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.PaymentDate.After(b.PaymentDate)
}

// syncPrimaryMirror keeps the loan's primary mirror entry in lockstep with
// the account aggregate it duplicates.
func syncPrimaryMirror(primary *domain.LedgerMirrorEntry, account *domain.LoanAccount) {
	primary.Credit = account.Paid
	primary.Debit = account.Remaining
}

// verifyAccount checks the aggregate invariant before anything is written:
// remaining must equal the clamp of total minus paid, and paid can never be
// negative. A violation is surfaced, never silently repaired.
func verifyAccount(account *domain.LoanAccount) error {
	expected := utils.RemainingFromPaid(account.TotalRepayment, account.Paid)
	if account.Paid.IsNegative() || !account.Remaining.Equal(expected) {
		return customError.WrapInconsistentState(
			account.LoanID.String(),
			fmt.Sprintf("paid=%s remaining=%s total=%s", account.Paid, account.Remaining, account.TotalRepayment),
		)
	}
	return nil
}

// checkPaidHistory verifies that the account's paid total still equals the
// sum of its installment amounts before a mutation builds on it.
func checkPaidHistory(account *domain.LoanAccount, installments []*domain.InstallmentRecord) error {
	sum := decimal.Zero
	for _, installment := range installments {
		sum = sum.Add(installment.Amount)
	}
	if !sum.Equal(account.Paid) {
		return customError.WrapInconsistentState(
			account.LoanID.String(),
			fmt.Sprintf("installment sum %s does not match paid %s", sum, account.Paid),
		)
	}
	return nil
}
