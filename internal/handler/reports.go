package handler

import (
	"net/http"

	"github.com/microlend/loan-ledger/internal/service"
	"github.com/microlend/loan-ledger/pkg/response"
)

type ReportsHandler struct {
	service *service.ReportingService
}

func NewReportsHandler(service *service.ReportingService) *ReportsHandler {
	return &ReportsHandler{service: service}
}

// Dashboard handles GET /reports/dashboard
func (h *ReportsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, totals)
}

// CustomerLedger handles GET /reports/customers/{customerId}/ledger
func (h *ReportsHandler) CustomerLedger(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathUUID(r, "customerId")
	if err != nil {
		response.BadRequest(w, "invalid customer id", err)
		return
	}

	ledger, err := h.service.CustomerLedger(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, ledger)
}

// CustomerLoanSummary handles GET /reports/customers/{customerId}/summary?as_of=YYYY-MM-DD
func (h *ReportsHandler) CustomerLoanSummary(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathUUID(r, "customerId")
	if err != nil {
		response.BadRequest(w, "invalid customer id", err)
		return
	}

	asOf, err := asOfParam(r)
	if err != nil {
		response.BadRequest(w, "invalid as_of date", err)
		return
	}

	summary, err := h.service.CustomerLoanSummary(r.Context(), customerID, asOf)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, summary)
}

// PaymentReport handles GET /reports/payments
func (h *ReportsHandler) PaymentReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.PaymentReport(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, rows)
}
