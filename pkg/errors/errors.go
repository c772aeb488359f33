package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound           = errors.New("loan ledger not found")
	ErrInstallmentNotFound    = errors.New("installment not found")
	ErrMirrorNotFound         = errors.New("ledger mirror entry not found")
	ErrLedgerAlreadyExists    = errors.New("loan ledger already exists")
	ErrInvalidAmount          = errors.New("invalid payment amount")
	ErrInconsistentState      = errors.New("ledger invariant violated")
	ErrConcurrentModification = errors.New("ledger modified concurrently")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound           = "LOAN_NOT_FOUND"
	ErrCodeInstallmentNotFound    = "INSTALLMENT_NOT_FOUND"
	ErrCodeMirrorNotFound         = "MIRROR_NOT_FOUND"
	ErrCodeLedgerAlreadyExists    = "LEDGER_ALREADY_EXISTS"
	ErrCodeInvalidAmount          = "INVALID_AMOUNT"
	ErrCodeInconsistentState      = "INCONSISTENT_STATE"
	ErrCodeConcurrentModification = "CONCURRENT_MODIFICATION"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeCacheError             = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Ledger for loan %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapInstallmentNotFound(installmentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		fmt.Sprintf("Installment %s not found", installmentID),
		ErrInstallmentNotFound,
	)
}

func WrapMirrorNotFound(installmentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeMirrorNotFound,
		fmt.Sprintf("Mirror entry for installment %s not found", installmentID),
		ErrMirrorNotFound,
	)
}

func WrapLedgerAlreadyExists(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLedgerAlreadyExists,
		fmt.Sprintf("Ledger for loan %s already exists", loanID),
		ErrLedgerAlreadyExists,
	)
}

func WrapInvalidAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidAmount,
	)
}

func WrapInconsistentState(loanID, detail string) *BusinessError {
	return NewBusinessError(
		ErrCodeInconsistentState,
		fmt.Sprintf("Ledger for loan %s is inconsistent: %s", loanID, detail),
		ErrInconsistentState,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
