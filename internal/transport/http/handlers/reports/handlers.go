package reporthandler

import (
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/reports"
	"siteledger/internal/domain/wallet"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
	"siteledger/internal/transport/http/shared"
)

type Handler struct {
	Service *reports.Service
}

func NewHandler(service *reports.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/allocations/{allocationID}/register", h.handleRegister)
		r.Get("/entries/{entryID}/receipt.pdf", h.handleReceipt)
		r.Get("/workers/{workerID}/statement.xlsx", h.handleStatement)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	rows, err := h.Service.Register(r.Context(), user, chi.URLParam(r, "allocationID"))
	if err != nil {
		h.respondError(w, r, err, "report_register_failed", "failed to build settlement register")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		h.writeRegisterCSV(w, rows)
		return
	}
	api.Success(w, rows, middleware.GetRequestID(r.Context()))
}

func (h *Handler) writeRegisterCSV(w http.ResponseWriter, rows []reports.RegisterRow) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=settlement-register.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"entry_id", "worker_id", "worker_name", "type", "category", "amount", "status", "entry_date", "paid_date"}); err != nil {
		slog.Warn("register export header failed", "err", err)
	}
	for _, row := range rows {
		paidDate := ""
		if row.PaidDate != nil {
			paidDate = row.PaidDate.Format("2006-01-02")
		}
		record := []string{
			row.EntryID,
			row.WorkerID,
			row.WorkerName,
			row.Type,
			row.Category,
			row.Amount.StringFixed(2),
			row.Status,
			row.EntryDate.Format("2006-01-02"),
			paidDate,
		}
		if err := writer.Write(record); err != nil {
			slog.Warn("register export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("register export flush failed", "err", err)
	}
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	pdf, err := h.Service.ReceiptPDF(r.Context(), user, chi.URLParam(r, "entryID"))
	if err != nil {
		h.respondError(w, r, err, "report_receipt_failed", "failed to render receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=payment-receipt.pdf")
	if _, err := w.Write(pdf); err != nil {
		slog.Warn("receipt write failed", "err", err)
	}
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	q := r.URL.Query()
	from, to, err := shared.DateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	sheet, err := h.Service.StatementXLSX(r.Context(), user, chi.URLParam(r, "workerID"), from, to)
	if err != nil {
		h.respondError(w, r, err, "report_statement_failed", "failed to render statement")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=worker-statement.xlsx")
	if _, err := w.Write(sheet); err != nil {
		slog.Warn("statement write failed", "err", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, reports.ErrNotFound), errors.Is(err, wallet.ErrAllocationNotFound), errors.Is(err, identity.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, reports.ErrForbidden), errors.Is(err, wallet.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
