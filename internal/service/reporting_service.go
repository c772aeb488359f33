package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/microlend/loan-ledger/internal/config"
	"github.com/microlend/loan-ledger/internal/domain"
	"github.com/microlend/loan-ledger/internal/repository"
	customError "github.com/microlend/loan-ledger/pkg/errors"
)

const dashboardCacheKey = "ledger:dashboard"

// ReportingService builds the read-only rollups: customer ledgers,
// projector-backed loan summaries, and the fleet dashboard. It never mutates
// ledger state.
type ReportingService struct {
	Store     repository.ReportingStore
	Ledger    repository.LedgerStore
	redis     *redis.Client
	config    *config.Config
	projector func(*domain.LoanTerms, []domain.InstallmentView, time.Time) []*domain.PeriodStatus
}

func NewReportingService(store repository.ReportingStore, ledger repository.LedgerStore, redis *redis.Client, config *config.Config) *ReportingService {
	return &ReportingService{
		Store:     store,
		Ledger:    ledger,
		redis:     redis,
		config:    config,
		projector: ProjectSchedule,
	}
}

// CustomerLedger returns a customer's loans with their totals and the
// customer-facing mirror rows, primary entry first.
func (s *ReportingService) CustomerLedger(ctx context.Context, customerID uuid.UUID) (*domain.CustomerLedger, error) {
	accounts, err := s.Store.ListAccountsForCustomer(ctx, customerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	ledger := &domain.CustomerLedger{
		CustomerID:     customerID,
		Loans:          make([]*domain.CustomerLedgerLoan, 0, len(accounts)),
		TotalPaid:      decimal.Zero,
		TotalRemaining: decimal.Zero,
	}

	for _, account := range accounts {
		terms, err := s.Ledger.GetLoanTerms(ctx, account.LoanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, customError.WrapLoanNotFound(account.LoanID.String())
			}
			return nil, customError.WrapDatabaseError(err)
		}

		entries, err := s.Ledger.ListMirrorsForLoan(ctx, account.LoanID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}

		ledger.Loans = append(ledger.Loans, &domain.CustomerLedgerLoan{
			Account: account,
			Terms:   terms,
			Entries: entries,
		})
		ledger.TotalPaid = ledger.TotalPaid.Add(account.Paid)
		ledger.TotalRemaining = ledger.TotalRemaining.Add(account.Remaining)
	}

	return ledger, nil
}

// LoanSummary projects one loan's schedule and rolls up its period counts.
func (s *ReportingService) LoanSummary(ctx context.Context, loanID uuid.UUID, asOf time.Time) (*domain.LoanScheduleSummary, error) {
	terms, err := s.Ledger.GetLoanTerms(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	installments, err := s.Ledger.ListInstallmentsForLoan(ctx, loanID, domain.OrderByPaymentDate)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	views := make([]domain.InstallmentView, 0, len(installments))
	for _, installment := range installments {
		views = append(views, installment.View())
	}

	summary := &domain.LoanScheduleSummary{
		LoanID:        loanID,
		Terms:         terms,
		Periods:       s.projector(terms, views, asOf),
		OverdueAmount: decimal.Zero,
	}

	for _, period := range summary.Periods {
		switch period.Status {
		case domain.PeriodStatusPaid:
			summary.PaidCount++
		case domain.PeriodStatusOverdue:
			summary.OverdueCount++
			summary.OverdueAmount = summary.OverdueAmount.Add(period.RemainingAmount)
		case domain.PeriodStatusPending:
			summary.PendingCount++
		}
	}

	return summary, nil
}

// CustomerLoanSummary projects every loan a customer holds.
func (s *ReportingService) CustomerLoanSummary(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*domain.CustomerLoanSummary, error) {
	accounts, err := s.Store.ListAccountsForCustomer(ctx, customerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summary := &domain.CustomerLoanSummary{
		CustomerID: customerID,
		AsOf:       asOf,
		Loans:      make([]*domain.LoanScheduleSummary, 0, len(accounts)),
	}

	for _, account := range accounts {
		loanSummary, err := s.LoanSummary(ctx, account.LoanID, asOf)
		if err != nil {
			return nil, err
		}
		summary.Loans = append(summary.Loans, loanSummary)
	}

	return summary, nil
}

// Dashboard returns the fleet-wide rollups, cached in Redis. Monthly
// collected covers the current calendar month.
func (s *ReportingService) Dashboard(ctx context.Context) (*domain.DashboardTotals, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, dashboardCacheKey).Bytes()
		if err == nil {
			var totals domain.DashboardTotals
			if err := json.Unmarshal(cached, &totals); err == nil {
				return &totals, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("dashboard cache read: %v", customError.WrapCacheError(err))
		}
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	totals, err := s.Store.DashboardTotals(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	if s.redis != nil {
		payload, err := json.Marshal(totals)
		if err == nil {
			if err := s.redis.Set(ctx, dashboardCacheKey, payload, s.config.Ledger.DashboardCacheTTL).Err(); err != nil {
				log.Printf("dashboard cache write: %v", customError.WrapCacheError(err))
			}
		}
	}

	return totals, nil
}

// RefreshDashboard recomputes the dashboard rollups and rewrites the cache.
// Used by the scheduler.
func (s *ReportingService) RefreshDashboard(ctx context.Context) (*domain.DashboardTotals, error) {
	if s.redis != nil {
		if err := s.redis.Del(ctx, dashboardCacheKey).Err(); err != nil {
			log.Printf("dashboard cache invalidation: %v", customError.WrapCacheError(err))
		}
	}
	return s.Dashboard(ctx)
}

// PaymentReport lists every loan's aggregate joined with its terms.
func (s *ReportingService) PaymentReport(ctx context.Context) ([]*domain.PaymentReportRow, error) {
	rows, err := s.Store.PaymentReport(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return rows, nil
}
