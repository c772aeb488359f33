package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/microlend/loan-ledger/internal/config"
	"github.com/microlend/loan-ledger/internal/repository"
	"github.com/microlend/loan-ledger/internal/service"
)

func main() {
	log.Println("Starting ledger scheduler...")

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ledgerStore := repository.NewLedgerStore(db)
	reportingStore := repository.NewReportingStore(db)
	reportingService := service.NewReportingService(reportingStore, ledgerStore, redisClient, cfg)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone: %v", err)
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Daily sweep: log overdue loans and refresh the dashboard cache.
	_, err = c.AddFunc(cfg.Scheduler.OverdueSweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		sweepOverdueLoans(ctx, reportingService)

		if _, err := reportingService.RefreshDashboard(ctx); err != nil {
			log.Printf("Error refreshing dashboard rollups: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Error scheduling overdue sweep: %v", err)
	}

	c.Start()
	log.Println("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}

// sweepOverdueLoans projects every loan's schedule and logs the ones carrying
// overdue periods, so arrears show up in the daily operational log.
func sweepOverdueLoans(ctx context.Context, reporting *service.ReportingService) {
	log.Println("Running daily overdue sweep...")

	rows, err := reporting.PaymentReport(ctx)
	if err != nil {
		log.Printf("Error listing loans for overdue sweep: %v", err)
		return
	}

	now := time.Now()
	overdueLoans := 0
	for _, row := range rows {
		summary, err := reporting.LoanSummary(ctx, row.LoanID, now)
		if err != nil {
			log.Printf("Error projecting loan %s: %v", row.LoanID, err)
			continue
		}

		if summary.OverdueCount > 0 {
			overdueLoans++
			log.Printf("Loan %s (customer %s): %d overdue period(s), %s overdue",
				row.LoanID, row.CustomerID, summary.OverdueCount, summary.OverdueAmount.StringFixed(2))
		}
	}

	log.Printf("Overdue sweep finished: %d of %d loans overdue", overdueLoans, len(rows))
}
