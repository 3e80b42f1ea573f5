package settlementhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/audit"
	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/notifications"
	"siteledger/internal/domain/settlement"
	"siteledger/internal/domain/wallet"
	"siteledger/internal/platform/metrics"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
	"siteledger/internal/transport/http/shared"
)

type Handler struct {
	Service     *settlement.Service
	Notify      *notifications.Service
	Audit       *audit.Service
	Idempotency *middleware.IdempotencyStore
	Metrics     *metrics.Collector
}

func NewHandler(service *settlement.Service, notify *notifications.Service, auditSvc *audit.Service, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Notify: notify, Audit: auditSvc, Idempotency: idem}
}

// WithMetrics attaches the process collector; nil stays a no-op.
func (h *Handler) WithMetrics(c *metrics.Collector) *Handler {
	h.Metrics = c
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settlements", func(r chi.Router) {
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/pay", h.handlePay)
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/bulk-pay", h.handleBulkPay)
	})
}

type payRequest struct {
	WorkerID     string `json:"workerId"`
	AllocationID string `json:"allocationId"`
	SiteID       string `json:"siteId"`
	From         string `json:"from"`
	To           string `json:"to"`
}

type bulkPayRequest struct {
	WorkerIDs    []string `json:"workerIds"`
	AllocationID string   `json:"allocationId"`
	SiteID       string   `json:"siteId"`
	From         string   `json:"from"`
	To           string   `json:"to"`
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	var payload payRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.WorkerID == "" || payload.AllocationID == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "workerId and allocationId are required", middleware.GetRequestID(r.Context()))
		return
	}

	opts, err := buildOptions(payload.SiteID, payload.From, payload.To)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash(body)
	if idempotencyKey != "" {
		stored, found, err := h.Idempotency.Check(r.Context(), user.OrgID, user.UserID, "settlements.pay", idempotencyKey, requestHash)
		if err != nil {
			slog.Warn("idempotency check failed", "err", err)
		}
		if found {
			api.Success(w, stored, middleware.GetRequestID(r.Context()))
			return
		}
	}

	summary, err := h.Service.PaySalary(r.Context(), user, payload.WorkerID, payload.AllocationID, opts)
	if err != nil {
		h.recordDenial(err, false)
		h.respondError(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.SettlementCommitted(1)
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "settlement.pay", "allocation", payload.AllocationID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, summary); err != nil {
		slog.Warn("audit settlement.pay failed", "err", err)
	}
	h.notifyPaid(r, user.OrgID, summary)

	if idempotencyKey != "" {
		if raw, err := json.Marshal(summary); err == nil {
			if err := h.Idempotency.Save(r.Context(), user.OrgID, user.UserID, "settlements.pay", idempotencyKey, requestHash, raw); err != nil {
				slog.Warn("idempotency save failed", "err", err)
			}
		}
	}

	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBulkPay(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	var payload bulkPayRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.AllocationID == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "allocationId is required", middleware.GetRequestID(r.Context()))
		return
	}

	opts, err := buildOptions(payload.SiteID, payload.From, payload.To)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash(body)
	if idempotencyKey != "" {
		stored, found, err := h.Idempotency.Check(r.Context(), user.OrgID, user.UserID, "settlements.bulk-pay", idempotencyKey, requestHash)
		if err != nil {
			slog.Warn("idempotency check failed", "err", err)
		}
		if found {
			api.Success(w, stored, middleware.GetRequestID(r.Context()))
			return
		}
	}

	result, err := h.Service.BulkPaySalary(r.Context(), user, payload.WorkerIDs, payload.AllocationID, opts)
	if err != nil {
		h.recordDenial(err, true)
		h.respondError(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.SettlementCommitted(result.WorkersPaid)
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "settlement.bulk_pay", "allocation", payload.AllocationID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, result); err != nil {
		slog.Warn("audit settlement.bulk_pay failed", "err", err)
	}
	for _, summary := range result.Settled {
		h.notifyPaid(r, user.OrgID, summary)
	}

	if idempotencyKey != "" {
		if raw, err := json.Marshal(result); err == nil {
			if err := h.Idempotency.Save(r.Context(), user.OrgID, user.UserID, "settlements.bulk-pay", idempotencyKey, requestHash, raw); err != nil {
				slog.Warn("idempotency save failed", "err", err)
			}
		}
	}

	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func buildOptions(siteID, from, to string) (settlement.Options, error) {
	fromDate, toDate, err := shared.DateRange(from, to)
	if err != nil {
		return settlement.Options{}, err
	}
	return settlement.Options{SiteID: siteID, From: fromDate, To: toDate}, nil
}

func (h *Handler) notifyPaid(r *http.Request, orgID string, summary settlement.Summary) {
	if h.Notify == nil {
		return
	}
	body := fmt.Sprintf("Your salary settlement paid out %s (gross %s, advances recovered %s).",
		summary.NetPaid.StringFixed(2), summary.Gross.StringFixed(2), summary.Advances.StringFixed(2))
	if err := h.Notify.Notify(r.Context(), orgID, summary.WorkerID, notifications.TypeSalaryPaid, "Salary paid", body); err != nil {
		slog.Warn("salary notification failed", "workerId", summary.WorkerID, "err", err)
	}
}

func (h *Handler) recordDenial(err error, bulk bool) {
	if h.Metrics == nil || !errors.Is(err, wallet.ErrInsufficientFunds) {
		return
	}
	h.Metrics.SpendDenied()
	if bulk {
		h.Metrics.BulkRolledBack()
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	var insufficient *wallet.InsufficientFundsError
	switch {
	case errors.As(err, &insufficient):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "insufficient_funds", "not enough funds available", map[string]string{
			"available": insufficient.Available.StringFixed(2),
			"requested": insufficient.Requested.StringFixed(2),
		}, requestID)
	case errors.Is(err, settlement.ErrEmptySelection):
		api.Fail(w, http.StatusBadRequest, "empty_selection", err.Error(), requestID)
	case errors.Is(err, settlement.ErrNoPendingEntries):
		api.Fail(w, http.StatusUnprocessableEntity, "no_pending_entries", err.Error(), requestID)
	case errors.Is(err, settlement.ErrNotWorker):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, settlement.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, settlement.ErrEntriesChanged):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	case errors.Is(err, identity.ErrNotFound), errors.Is(err, wallet.ErrAllocationNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, wallet.ErrNotDisbursed):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "settlement_failed", "failed to run settlement", requestID)
	}
}
