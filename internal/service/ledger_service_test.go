package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/microlend/loan-ledger/internal/config"
	"github.com/microlend/loan-ledger/internal/domain"
	"github.com/microlend/loan-ledger/internal/repository"
	customError "github.com/microlend/loan-ledger/pkg/errors"
	"github.com/microlend/loan-ledger/tests/mocks"
)

// memStore is an in-memory LedgerStore used to exercise the full read-compute-
// write cycle of the service without a database. Gets and Saves copy values so
// the service never aliases stored state.
type memStore struct {
	terms        map[uuid.UUID]domain.LoanTerms
	accounts     map[uuid.UUID]domain.LoanAccount // keyed by loan ID
	installments map[uuid.UUID]domain.InstallmentRecord
	mirrors      map[uuid.UUID]domain.LedgerMirrorEntry
}

func newMemStore() *memStore {
	return &memStore{
		terms:        make(map[uuid.UUID]domain.LoanTerms),
		accounts:     make(map[uuid.UUID]domain.LoanAccount),
		installments: make(map[uuid.UUID]domain.InstallmentRecord),
		mirrors:      make(map[uuid.UUID]domain.LedgerMirrorEntry),
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(repository.LedgerStore) error) error {
	return fn(s)
}

func (s *memStore) GetLoanTerms(ctx context.Context, loanID uuid.UUID) (*domain.LoanTerms, error) {
	terms, ok := s.terms[loanID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &terms, nil
}

func (s *memStore) SaveLoanTerms(ctx context.Context, loanID uuid.UUID, terms *domain.LoanTerms) error {
	s.terms[loanID] = *terms
	return nil
}

func (s *memStore) GetLoanAccount(ctx context.Context, loanID uuid.UUID) (*domain.LoanAccount, error) {
	account, ok := s.accounts[loanID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &account, nil
}

func (s *memStore) SaveLoanAccount(ctx context.Context, account *domain.LoanAccount) error {
	s.accounts[account.LoanID] = *account
	return nil
}

func (s *memStore) GetInstallment(ctx context.Context, id uuid.UUID) (*domain.InstallmentRecord, error) {
	installment, ok := s.installments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &installment, nil
}

func (s *memStore) SaveInstallment(ctx context.Context, installment *domain.InstallmentRecord) error {
	s.installments[installment.ID] = *installment
	return nil
}

func (s *memStore) DeleteInstallment(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.installments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.installments, id)
	return nil
}

func (s *memStore) ListInstallmentsForLoan(ctx context.Context, loanID uuid.UUID, orderBy domain.InstallmentOrder) ([]*domain.InstallmentRecord, error) {
	var out []*domain.InstallmentRecord
	for _, installment := range s.installments {
		if installment.LoanID == loanID {
			copied := installment
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if orderBy == domain.OrderByCreatedAt {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].PaymentDate.Before(out[j].PaymentDate)
	})
	return out, nil
}

func (s *memStore) GetMirrorByInstallment(ctx context.Context, installmentID uuid.UUID) (*domain.LedgerMirrorEntry, error) {
	for _, mirror := range s.mirrors {
		if mirror.InstallmentID != nil && *mirror.InstallmentID == installmentID {
			copied := mirror
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memStore) GetPrimaryMirror(ctx context.Context, loanID uuid.UUID) (*domain.LedgerMirrorEntry, error) {
	for _, mirror := range s.mirrors {
		if mirror.LoanID == loanID && mirror.Kind == domain.MirrorKindPrimary {
			copied := mirror
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memStore) SaveMirror(ctx context.Context, mirror *domain.LedgerMirrorEntry) error {
	s.mirrors[mirror.ID] = *mirror
	return nil
}

func (s *memStore) DeleteMirror(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.mirrors[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.mirrors, id)
	return nil
}

func (s *memStore) ListMirrorsForLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LedgerMirrorEntry, error) {
	var out []*domain.LedgerMirrorEntry
	for _, mirror := range s.mirrors {
		if mirror.LoanID == loanID {
			copied := mirror
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == domain.MirrorKindPrimary
		}
		return out[i].PaymentDate.Before(out[j].PaymentDate)
	})
	return out, nil
}

func (s *memStore) PurgeLoan(ctx context.Context, loanID uuid.UUID) error {
	for id, mirror := range s.mirrors {
		if mirror.LoanID == loanID {
			delete(s.mirrors, id)
		}
	}
	for id, installment := range s.installments {
		if installment.LoanID == loanID {
			delete(s.installments, id)
		}
	}
	delete(s.accounts, loanID)
	delete(s.terms, loanID)
	return nil
}

// fkGuardStore enforces the ledger_mirror.installment_id foreign key the way
// Postgres does: an installment cannot be deleted while a mirror row still
// references it.
type fkGuardStore struct {
	*memStore
}

func (s *fkGuardStore) WithinTx(ctx context.Context, fn func(repository.LedgerStore) error) error {
	return fn(s)
}

func (s *fkGuardStore) DeleteInstallment(ctx context.Context, id uuid.UUID) error {
	for _, mirror := range s.mirrors {
		if mirror.InstallmentID != nil && *mirror.InstallmentID == id {
			return fmt.Errorf("foreign key violation: mirror %s still references installment %s", mirror.ID, id)
		}
	}
	return s.memStore.DeleteInstallment(ctx, id)
}

func testConfig() *config.Config {
	return &config.Config{
		Ledger: config.LedgerConfig{
			MaxPaymentAmount:  "1000000",
			DashboardCacheTTL: time.Minute,
		},
	}
}

func newTestService(store repository.LedgerStore) *LedgerService {
	return NewLedgerService(store, testConfig())
}

func initRequest(customerID uuid.UUID, principal int64, months int) *domain.InitializeLedgerRequest {
	return &domain.InitializeLedgerRequest{
		CustomerID:     customerID,
		Principal:      decimal.NewFromInt(principal),
		InterestRate:   decimal.Zero,
		DurationMonths: months,
		StartDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// seedLedger initializes a 300-over-3-months ledger and returns its loan ID.
func seedLedger(t *testing.T, svc *LedgerService) uuid.UUID {
	t.Helper()
	loanID := uuid.New()
	_, err := svc.InitializeLedger(context.Background(), loanID, initRequest(uuid.New(), 300, 3))
	require.NoError(t, err)
	return loanID
}

func TestInitializeLedger(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := uuid.New()
	customerID := uuid.New()

	account, err := svc.InitializeLedger(context.Background(), loanID, initRequest(customerID, 300, 3))

	require.NoError(t, err)
	assert.Equal(t, loanID, account.LoanID)
	assert.Equal(t, customerID, account.CustomerID)
	assert.True(t, account.Paid.IsZero())
	assert.True(t, account.Remaining.Equal(decimal.NewFromInt(300)))

	terms, err := store.GetLoanTerms(context.Background(), loanID)
	require.NoError(t, err)
	assert.Equal(t, 3, terms.DurationMonths)

	primary, err := store.GetPrimaryMirror(context.Background(), loanID)
	require.NoError(t, err)
	assert.True(t, primary.Credit.IsZero())
	assert.True(t, primary.Debit.Equal(decimal.NewFromInt(300)))
	assert.Nil(t, primary.InstallmentID)
}

func TestInitializeLedgerDerivesRepaymentFigures(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := uuid.New()

	request := &domain.InitializeLedgerRequest{
		CustomerID:     uuid.New(),
		Principal:      decimal.NewFromInt(5000),
		InterestRate:   decimal.NewFromFloat(0.10),
		DurationMonths: 12,
		StartDate:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	account, err := svc.InitializeLedger(context.Background(), loanID, request)

	require.NoError(t, err)
	// 5000 + 10% flat = 5500 total, 458.33 per month; end date one year out.
	assert.True(t, account.TotalRepayment.Equal(decimal.NewFromInt(5500)))
	assert.True(t, account.Remaining.Equal(decimal.NewFromInt(5500)))

	terms, err := store.GetLoanTerms(context.Background(), loanID)
	require.NoError(t, err)
	assert.True(t, terms.TotalRepayment.Equal(decimal.NewFromInt(5500)))
	assert.True(t, terms.MonthlyRepayment.Equal(decimal.NewFromFloat(458.33)), "got %s", terms.MonthlyRepayment)
	assert.Equal(t, request.StartDate.AddDate(0, 12, 0), terms.EndDate)
}

func TestInitializeLedgerAlreadyExists(t *testing.T) {
	svc := newTestService(newMemStore())
	loanID := seedLedger(t, svc)

	_, err := svc.InitializeLedger(context.Background(), loanID, initRequest(uuid.New(), 300, 3))

	assert.ErrorIs(t, err, customError.ErrLedgerAlreadyExists)
}

func TestRecordPayment(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)
	paymentDate := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	installment, err := svc.RecordPayment(context.Background(), loanID, decimal.NewFromInt(100), "january", paymentDate)

	require.NoError(t, err)
	assert.True(t, installment.Amount.Equal(decimal.NewFromInt(100)))
	assert.True(t, installment.Remaining.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, "january", installment.Memo)

	account, err := store.GetLoanAccount(context.Background(), loanID)
	require.NoError(t, err)
	assert.True(t, account.Paid.Equal(decimal.NewFromInt(100)))
	assert.True(t, account.Remaining.Equal(decimal.NewFromInt(200)))

	mirror, err := store.GetMirrorByInstallment(context.Background(), installment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MirrorKindInstallment, mirror.Kind)
	assert.True(t, mirror.Credit.Equal(decimal.NewFromInt(100)))
	assert.True(t, mirror.Debit.Equal(decimal.NewFromInt(200)))

	primary, err := store.GetPrimaryMirror(context.Background(), loanID)
	require.NoError(t, err)
	assert.True(t, primary.Credit.Equal(decimal.NewFromInt(100)))
	assert.True(t, primary.Debit.Equal(decimal.NewFromInt(200)))
}

func TestRecordPaymentClampsOverpayment(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)

	installment, err := svc.RecordPayment(context.Background(), loanID, decimal.NewFromInt(350), "", time.Now())

	require.NoError(t, err)
	// Installment snapshot never goes negative.
	assert.True(t, installment.Remaining.IsZero())

	account, err := store.GetLoanAccount(context.Background(), loanID)
	require.NoError(t, err)
	assert.True(t, account.Paid.Equal(decimal.NewFromInt(350)))
	assert.True(t, account.Remaining.IsZero())
}

func TestRecordPaymentInvalidAmount(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)

	for _, amount := range []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(-10),
		decimal.NewFromInt(2000000), // over the configured cap
	} {
		_, err := svc.RecordPayment(context.Background(), loanID, amount, "", time.Now())
		assert.ErrorIs(t, err, customError.ErrInvalidAmount, "amount %s", amount)
	}

	// Nothing was written.
	installments, err := store.ListInstallmentsForLoan(context.Background(), loanID, domain.OrderByPaymentDate)
	require.NoError(t, err)
	assert.Empty(t, installments)

	account, err := store.GetLoanAccount(context.Background(), loanID)
	require.NoError(t, err)
	assert.True(t, account.Paid.IsZero())
}

func TestRecordPaymentLoanNotFound(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.RecordPayment(context.Background(), uuid.New(), decimal.NewFromInt(100), "", time.Now())

	assert.ErrorIs(t, err, customError.ErrLoanNotFound)
}

func TestRetractPaymentRoundTrip(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)

	before, err := store.GetLoanAccount(context.Background(), loanID)
	require.NoError(t, err)

	installment, err := svc.RecordPayment(context.Background(), loanID, decimal.NewFromInt(100), "", time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.RetractPayment(context.Background(), installment.ID))

	after, err := store.GetLoanAccount(context.Background(), loanID)
	require.NoError(t, err)
	assert.True(t, after.Paid.Equal(before.Paid))
	assert.True(t, after.Remaining.Equal(before.Remaining))

	_, err = store.GetInstallment(context.Background(), installment.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = store.GetMirrorByInstallment(context.Background(), installment.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	primary, err := store.GetPrimaryMirror(context.Background(), loanID)
	require.NoError(t, err)
	assert.True(t, primary.Credit.IsZero())
	assert.True(t, primary.Debit.Equal(decimal.NewFromInt(300)))
}

func TestRetractPaymentCascadesToLaterInstallments(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }

	first, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(40), "", day(5))
	require.NoError(t, err)
	second, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(50), "", day(10))
	require.NoError(t, err)
	third, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(60), "", day(15))
	require.NoError(t, err)

	// Snapshots before: 260, 210, 150.
	require.NoError(t, svc.RetractPayment(ctx, first.ID))

	account, err := store.GetLoanAccount(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, account.Paid.Equal(decimal.NewFromInt(110)))
	assert.True(t, account.Remaining.Equal(decimal.NewFromInt(190)))

	got2, err := store.GetInstallment(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, got2.Remaining.Equal(decimal.NewFromInt(250)))

	got3, err := store.GetInstallment(ctx, third.ID)
	require.NoError(t, err)
	assert.True(t, got3.Remaining.Equal(decimal.NewFromInt(190)))

	// The final snapshot agrees with the account again.
	assert.True(t, got3.Remaining.Equal(account.Remaining))

	mirror3, err := store.GetMirrorByInstallment(ctx, third.ID)
	require.NoError(t, err)
	assert.True(t, mirror3.Debit.Equal(decimal.NewFromInt(190)))
}

func TestRetractLatestPaymentSkipsCascade(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }

	first, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(40), "", day(5))
	require.NoError(t, err)
	second, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(50), "", day(10))
	require.NoError(t, err)

	require.NoError(t, svc.RetractPayment(ctx, second.ID))

	got1, err := store.GetInstallment(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got1.Remaining.Equal(decimal.NewFromInt(260)))

	account, err := store.GetLoanAccount(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, account.Paid.Equal(decimal.NewFromInt(40)))
	assert.True(t, account.Remaining.Equal(decimal.NewFromInt(260)))
}

func TestRetractBackDatedPaymentCascadesByPaymentDate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)
	ctx := context.Background()

	// Recorded second but dated earlier: the cascade follows payment-date
	// order, so retracting it must repair the later-dated installment even
	// though that one was inserted first.
	later, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(50),
		"", time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	backDated, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(40),
		"", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, svc.RetractPayment(ctx, backDated.ID))

	got, err := store.GetInstallment(ctx, later.ID)
	require.NoError(t, err)
	assert.True(t, got.Remaining.Equal(decimal.NewFromInt(290)))

	account, err := store.GetLoanAccount(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, account.Paid.Equal(decimal.NewFromInt(50)))
	assert.True(t, account.Remaining.Equal(decimal.NewFromInt(250)))
}

func TestRetractPaymentDeletesMirrorBeforeInstallment(t *testing.T) {
	store := &fkGuardStore{memStore: newMemStore()}
	svc := newTestService(store)
	loanID := seedLedger(t, svc)
	ctx := context.Background()

	installment, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(100), "", time.Now())
	require.NoError(t, err)

	// Must succeed under the referential constraint: the mirror row goes
	// before the installment it points at.
	require.NoError(t, svc.RetractPayment(ctx, installment.ID))

	_, err = store.GetInstallment(ctx, installment.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = store.GetMirrorByInstallment(ctx, installment.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRetractPaymentNotFound(t *testing.T) {
	svc := newTestService(newMemStore())

	err := svc.RetractPayment(context.Background(), uuid.New())

	assert.ErrorIs(t, err, customError.ErrInstallmentNotFound)
}

func TestAmendPayment(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)
	ctx := context.Background()

	installment, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(100),
		"original", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	amended, err := svc.AmendPayment(ctx, installment.ID, &domain.AmendPaymentRequest{
		Amount:      decimal.NewFromInt(150),
		Memo:        "corrected",
		PaymentDate: time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.True(t, amended.Amount.Equal(decimal.NewFromInt(150)))
	assert.True(t, amended.Remaining.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "corrected", amended.Memo)

	account, err := store.GetLoanAccount(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, account.Paid.Equal(decimal.NewFromInt(150)))
	assert.True(t, account.Remaining.Equal(decimal.NewFromInt(150)))

	mirror, err := store.GetMirrorByInstallment(ctx, installment.ID)
	require.NoError(t, err)
	assert.True(t, mirror.Credit.Equal(decimal.NewFromInt(150)))
	assert.True(t, mirror.Debit.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "corrected", mirror.Memo)
	assert.Equal(t, time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC), mirror.PaymentDate)

	primary, err := store.GetPrimaryMirror(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, primary.Credit.Equal(decimal.NewFromInt(150)))
	assert.True(t, primary.Debit.Equal(decimal.NewFromInt(150)))
}

func TestAmendPaymentRecomputesFromHistory(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }

	_, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(200), "", day(5))
	require.NoError(t, err)
	second, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(100), "", day(10))
	require.NoError(t, err)

	// Amend upward past the total: paid runs over, remaining clamps to zero.
	_, err = svc.AmendPayment(ctx, second.ID, &domain.AmendPaymentRequest{
		Amount:      decimal.NewFromInt(150),
		PaymentDate: day(10),
	})
	require.NoError(t, err)

	account, err := store.GetLoanAccount(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, account.Paid.Equal(decimal.NewFromInt(350)))
	assert.True(t, account.Remaining.IsZero())

	// Amend back down: remaining is recomputed from the paid history, not
	// decremented from the clamped zero.
	_, err = svc.AmendPayment(ctx, second.ID, &domain.AmendPaymentRequest{
		Amount:      decimal.NewFromInt(50),
		PaymentDate: day(10),
	})
	require.NoError(t, err)

	account, err = store.GetLoanAccount(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, account.Paid.Equal(decimal.NewFromInt(250)))
	assert.True(t, account.Remaining.Equal(decimal.NewFromInt(50)))
}

func TestAmendPaymentNotFound(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.AmendPayment(context.Background(), uuid.New(), &domain.AmendPaymentRequest{
		Amount:      decimal.NewFromInt(50),
		PaymentDate: time.Now(),
	})

	assert.ErrorIs(t, err, customError.ErrInstallmentNotFound)
}

func TestReviseTerms(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(100), "", time.Now())
	require.NoError(t, err)

	account, err := svc.ReviseTerms(ctx, loanID, decimal.NewFromInt(400))

	require.NoError(t, err)
	assert.True(t, account.TotalRepayment.Equal(decimal.NewFromInt(400)))
	assert.True(t, account.Paid.Equal(decimal.NewFromInt(100)))
	assert.True(t, account.Remaining.Equal(decimal.NewFromInt(300)))

	terms, err := store.GetLoanTerms(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, terms.TotalRepayment.Equal(decimal.NewFromInt(400)))
	assert.True(t, terms.MonthlyRepayment.Equal(decimal.NewFromFloat(133.33)))

	primary, err := store.GetPrimaryMirror(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, primary.Credit.Equal(decimal.NewFromInt(100)))
	assert.True(t, primary.Debit.Equal(decimal.NewFromInt(300)))
}

func TestReviseTermsInvalidAmount(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.ReviseTerms(context.Background(), uuid.New(), decimal.Zero)

	assert.ErrorIs(t, err, customError.ErrInvalidAmount)
}

func TestPurgeLedger(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(100), "", time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.PurgeLedger(ctx, loanID))

	_, err = store.GetLoanAccount(ctx, loanID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = store.GetLoanTerms(ctx, loanID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	mirrors, err := store.ListMirrorsForLoan(ctx, loanID)
	require.NoError(t, err)
	assert.Empty(t, mirrors)
}

func TestPurgeLedgerNotFound(t *testing.T) {
	svc := newTestService(newMemStore())

	err := svc.PurgeLedger(context.Background(), uuid.New())

	assert.ErrorIs(t, err, customError.ErrLoanNotFound)
}

func TestScheduleProjectsFromStoredHistory(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	loanID := seedLedger(t, svc)
	ctx := context.Background()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.RecordPayment(ctx, loanID, decimal.NewFromInt(100), "", start.AddDate(0, 0, 14))
	require.NoError(t, err)

	periods, err := svc.Schedule(ctx, loanID, start.AddDate(0, 0, 20))

	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, domain.PeriodStatusPaid, periods[0].Status)
	assert.Equal(t, domain.PeriodStatusPending, periods[1].Status)
	assert.Equal(t, domain.PeriodStatusPending, periods[2].Status)
}

func TestScheduleLoanNotFound(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.Schedule(context.Background(), uuid.New(), time.Now())

	assert.ErrorIs(t, err, customError.ErrLoanNotFound)
}

func TestRecordPaymentTransactionFailure(t *testing.T) {
	store := new(mocks.MockLedgerStore)
	svc := newTestService(store)
	loanID := uuid.New()
	customerID := uuid.New()

	account := &domain.LoanAccount{
		ID:             uuid.New(),
		LoanID:         loanID,
		CustomerID:     customerID,
		TotalRepayment: decimal.NewFromInt(300),
		Paid:           decimal.Zero,
		Remaining:      decimal.NewFromInt(300),
	}
	primary := &domain.LedgerMirrorEntry{
		ID:         uuid.New(),
		LoanID:     loanID,
		CustomerID: customerID,
		Kind:       domain.MirrorKindPrimary,
		Debit:      decimal.NewFromInt(300),
	}

	store.On("GetLoanAccount", mock.Anything, loanID).Return(account, nil)
	store.On("GetPrimaryMirror", mock.Anything, loanID).Return(primary, nil)
	store.On("ListInstallmentsForLoan", mock.Anything, loanID, domain.OrderByPaymentDate).
		Return([]*domain.InstallmentRecord{}, nil)
	store.On("WithinTx", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := svc.RecordPayment(context.Background(), loanID, decimal.NewFromInt(100), "", time.Now())

	require.Error(t, err)
	var businessErr *customError.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, customError.ErrCodeDatabaseError, businessErr.Code)
	store.AssertExpectations(t)
}

func TestRecordPaymentDetectsCorruptedHistory(t *testing.T) {
	store := new(mocks.MockLedgerStore)
	svc := newTestService(store)
	loanID := uuid.New()

	// Account claims 100 paid but the history only sums to 60.
	account := &domain.LoanAccount{
		ID:             uuid.New(),
		LoanID:         loanID,
		TotalRepayment: decimal.NewFromInt(300),
		Paid:           decimal.NewFromInt(100),
		Remaining:      decimal.NewFromInt(200),
	}
	primary := &domain.LedgerMirrorEntry{
		ID:     uuid.New(),
		LoanID: loanID,
		Kind:   domain.MirrorKindPrimary,
	}
	history := []*domain.InstallmentRecord{
		{ID: uuid.New(), LoanID: loanID, Amount: decimal.NewFromInt(60)},
	}

	store.On("GetLoanAccount", mock.Anything, loanID).Return(account, nil)
	store.On("GetPrimaryMirror", mock.Anything, loanID).Return(primary, nil)
	store.On("ListInstallmentsForLoan", mock.Anything, loanID, domain.OrderByPaymentDate).
		Return(history, nil)

	_, err := svc.RecordPayment(context.Background(), loanID, decimal.NewFromInt(40), "", time.Now())

	assert.ErrorIs(t, err, customError.ErrInconsistentState)
	store.AssertNotCalled(t, "WithinTx", mock.Anything, mock.Anything)
}
