package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/microlend/loan-ledger/internal/domain"
	"github.com/microlend/loan-ledger/internal/repository"
)

type MockLedgerStore struct {
	mock.Mock
}

// WithinTx runs fn against the mock itself, so expectations set on the mock
// cover writes made inside the transaction.
func (m *MockLedgerStore) WithinTx(ctx context.Context, fn func(repository.LedgerStore) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *MockLedgerStore) GetLoanTerms(ctx context.Context, loanID uuid.UUID) (*domain.LoanTerms, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanTerms), args.Error(1)
}

func (m *MockLedgerStore) SaveLoanTerms(ctx context.Context, loanID uuid.UUID, terms *domain.LoanTerms) error {
	args := m.Called(ctx, loanID, terms)
	return args.Error(0)
}

func (m *MockLedgerStore) GetLoanAccount(ctx context.Context, loanID uuid.UUID) (*domain.LoanAccount, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanAccount), args.Error(1)
}

func (m *MockLedgerStore) SaveLoanAccount(ctx context.Context, account *domain.LoanAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockLedgerStore) GetInstallment(ctx context.Context, id uuid.UUID) (*domain.InstallmentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentRecord), args.Error(1)
}

func (m *MockLedgerStore) SaveInstallment(ctx context.Context, installment *domain.InstallmentRecord) error {
	args := m.Called(ctx, installment)
	return args.Error(0)
}

func (m *MockLedgerStore) DeleteInstallment(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLedgerStore) ListInstallmentsForLoan(ctx context.Context, loanID uuid.UUID, orderBy domain.InstallmentOrder) ([]*domain.InstallmentRecord, error) {
	args := m.Called(ctx, loanID, orderBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentRecord), args.Error(1)
}

func (m *MockLedgerStore) GetMirrorByInstallment(ctx context.Context, installmentID uuid.UUID) (*domain.LedgerMirrorEntry, error) {
	args := m.Called(ctx, installmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerMirrorEntry), args.Error(1)
}

func (m *MockLedgerStore) GetPrimaryMirror(ctx context.Context, loanID uuid.UUID) (*domain.LedgerMirrorEntry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerMirrorEntry), args.Error(1)
}

func (m *MockLedgerStore) SaveMirror(ctx context.Context, mirror *domain.LedgerMirrorEntry) error {
	args := m.Called(ctx, mirror)
	return args.Error(0)
}

func (m *MockLedgerStore) DeleteMirror(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLedgerStore) ListMirrorsForLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LedgerMirrorEntry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LedgerMirrorEntry), args.Error(1)
}

func (m *MockLedgerStore) PurgeLoan(ctx context.Context, loanID uuid.UUID) error {
	args := m.Called(ctx, loanID)
	return args.Error(0)
}

type MockReportingStore struct {
	mock.Mock
}

func (m *MockReportingStore) ListAccountsForCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.LoanAccount, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanAccount), args.Error(1)
}

func (m *MockReportingStore) DashboardTotals(ctx context.Context, monthStart, monthEnd time.Time) (*domain.DashboardTotals, error) {
	args := m.Called(ctx, monthStart, monthEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardTotals), args.Error(1)
}

func (m *MockReportingStore) PaymentReport(ctx context.Context) ([]*domain.PaymentReportRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentReportRow), args.Error(1)
}
