package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/microlend/loan-ledger/internal/config"
	"github.com/microlend/loan-ledger/internal/handler"
	"github.com/microlend/loan-ledger/internal/repository"
	"github.com/microlend/loan-ledger/internal/service"
	"github.com/microlend/loan-ledger/pkg/response"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize stores
	ledgerStore := repository.NewLedgerStore(db)
	reportingStore := repository.NewReportingStore(db)

	// Initialize services
	ledgerService := service.NewLedgerService(ledgerStore, cfg)
	reportingService := service.NewReportingService(reportingStore, ledgerStore, redisClient, cfg)

	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	reportsHandler := handler.NewReportsHandler(reportingService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(ledgerHandler, reportsHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(ledgerHandler *handler.LedgerHandler, reportsHandler *handler.ReportsHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)
	router.Use(response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans/{loanId}/ledger", ledgerHandler.InitializeLedger).Methods("POST")
	api.HandleFunc("/loans/{loanId}/ledger", ledgerHandler.PurgeLedger).Methods("DELETE")
	api.HandleFunc("/loans/{loanId}/payments", ledgerHandler.RecordPayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/terms", ledgerHandler.ReviseTerms).Methods("PUT")
	api.HandleFunc("/loans/{loanId}/schedule", ledgerHandler.Schedule).Methods("GET")
	api.HandleFunc("/payments/{paymentId}", ledgerHandler.AmendPayment).Methods("PUT")
	api.HandleFunc("/payments/{paymentId}", ledgerHandler.RetractPayment).Methods("DELETE")

	api.HandleFunc("/reports/dashboard", reportsHandler.Dashboard).Methods("GET")
	api.HandleFunc("/reports/payments", reportsHandler.PaymentReport).Methods("GET")
	api.HandleFunc("/reports/customers/{customerId}/ledger", reportsHandler.CustomerLedger).Methods("GET")
	api.HandleFunc("/reports/customers/{customerId}/summary", reportsHandler.CustomerLoanSummary).Methods("GET")

	return router
}
