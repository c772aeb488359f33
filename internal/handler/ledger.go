package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/microlend/loan-ledger/internal/domain"
	"github.com/microlend/loan-ledger/internal/service"
	customError "github.com/microlend/loan-ledger/pkg/errors"
	"github.com/microlend/loan-ledger/pkg/response"
)

type LedgerHandler struct {
	service   *service.LedgerService
	validator *validator.Validate
}

func NewLedgerHandler(service *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		service:   service,
		validator: validator.New(),
	}
}

// InitializeLedger handles POST /loans/{loanId}/ledger
func (h *LedgerHandler) InitializeLedger(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	var request domain.InitializeLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid request", err)
		return
	}

	account, err := h.service.InitializeLedger(r.Context(), loanID, &request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, account)
}

// RecordPayment handles POST /loans/{loanId}/payments
func (h *LedgerHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	var request domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid request", err)
		return
	}

	installment, err := h.service.RecordPayment(r.Context(), loanID, request.Amount, request.Memo, request.PaymentDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, installment)
}

// AmendPayment handles PUT /payments/{paymentId}
func (h *LedgerHandler) AmendPayment(w http.ResponseWriter, r *http.Request) {
	installmentID, err := pathUUID(r, "paymentId")
	if err != nil {
		response.BadRequest(w, "invalid payment id", err)
		return
	}

	var request domain.AmendPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid request", err)
		return
	}

	installment, err := h.service.AmendPayment(r.Context(), installmentID, &request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, installment)
}

// RetractPayment handles DELETE /payments/{paymentId}
func (h *LedgerHandler) RetractPayment(w http.ResponseWriter, r *http.Request) {
	installmentID, err := pathUUID(r, "paymentId")
	if err != nil {
		response.BadRequest(w, "invalid payment id", err)
		return
	}

	if err := h.service.RetractPayment(r.Context(), installmentID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "payment retracted"})
}

// ReviseTerms handles PUT /loans/{loanId}/terms
func (h *LedgerHandler) ReviseTerms(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	var request domain.ReviseTermsRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid request", err)
		return
	}

	account, err := h.service.ReviseTerms(r.Context(), loanID, request.TotalRepayment)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, account)
}

// PurgeLedger handles DELETE /loans/{loanId}/ledger
func (h *LedgerHandler) PurgeLedger(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	if err := h.service.PurgeLedger(r.Context(), loanID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "ledger purged"})
}

// Schedule handles GET /loans/{loanId}/schedule?as_of=YYYY-MM-DD
func (h *LedgerHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	asOf, err := asOfParam(r)
	if err != nil {
		response.BadRequest(w, "invalid as_of date", err)
		return
	}

	schedule, err := h.service.Schedule(r.Context(), loanID, asOf)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, &domain.ScheduleResponse{
		LoanID:   loanID.String(),
		AsOf:     asOf,
		Schedule: schedule,
	})
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}

func asOfParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", raw)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, customError.ErrLoanNotFound),
		errors.Is(err, customError.ErrInstallmentNotFound),
		errors.Is(err, customError.ErrMirrorNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, customError.ErrInvalidAmount):
		response.BadRequest(w, "invalid amount", err)
	case errors.Is(err, customError.ErrLedgerAlreadyExists):
		response.Conflict(w, "ledger already exists", err)
	case errors.Is(err, customError.ErrInconsistentState):
		response.UnprocessableEntity(w, "ledger invariant violated", err)
	default:
		response.InternalServerError(w, "operation failed", err)
	}
}
