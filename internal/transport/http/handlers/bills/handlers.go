package billhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/audit"
	"siteledger/internal/domain/bill"
	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/notifications"
	"siteledger/internal/domain/wallet"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
	"siteledger/internal/transport/http/shared"
)

type Handler struct {
	Service *bill.Service
	Notify  *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *bill.Service, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bills", func(r chi.Router) {
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{billID}", h.handleGet)
		r.Post("/{billID}/credit", h.handleTransition(bill.StatusCredited, "bill.credit"))
		r.Post("/{billID}/pay", h.handleTransition(bill.StatusPaid, "bill.pay"))
		r.With(middleware.RequireRole(identity.RoleDeveloper)).Delete("/{billID}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload bill.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	created, err := h.Service.Create(r.Context(), user, payload)
	if err != nil {
		h.respondError(w, r, err, "bill_create_failed", "failed to record bill")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "bill.create", "bill", created.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created); err != nil {
		slog.Warn("audit bill.create failed", "err", err)
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
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
	filter := bill.ListFilter{
		UserID: q.Get("userId"),
		SiteID: q.Get("siteId"),
		Status: q.Get("status"),
		From:   from,
		To:     to,
	}

	bills, err := h.Service.List(r.Context(), user, filter)
	if err != nil {
		h.respondError(w, r, err, "bill_list_failed", "failed to list bills")
		return
	}
	api.Success(w, bills, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	found, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "billID"))
	if err != nil {
		h.respondError(w, r, err, "bill_get_failed", "failed to load bill")
		return
	}
	api.Success(w, found, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTransition(target, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
			return
		}

		updated, err := h.Service.Transition(r.Context(), user, chi.URLParam(r, "billID"), target)
		if err != nil {
			h.respondError(w, r, err, "bill_transition_failed", "failed to update bill")
			return
		}

		if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, action, "bill", updated.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, updated); err != nil {
			slog.Warn("audit bill transition failed", "action", action, "err", err)
		}
		if target == bill.StatusCredited && h.Notify != nil && updated.UserID != user.UserID {
			body := fmt.Sprintf("Bill %s from %s was credited for %s.", updated.BillNumber, updated.VendorName, updated.TotalAmount.StringFixed(2))
			if err := h.Notify.Notify(r.Context(), updated.OrgID, updated.UserID, notifications.TypeBillCredited, "Bill credited", body); err != nil {
				slog.Warn("bill notification failed", "billId", updated.ID, "err", err)
			}
		}

		api.Success(w, updated, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	billID := chi.URLParam(r, "billID")
	if err := h.Service.Delete(r.Context(), user, billID); err != nil {
		h.respondError(w, r, err, "bill_delete_failed", "failed to delete bill")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "bill.delete", "bill", billID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit bill.delete failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	var insufficient *wallet.InsufficientFundsError
	switch {
	case errors.As(err, &insufficient):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "insufficient_funds", "not enough funds available", map[string]string{
			"available": insufficient.Available.StringFixed(2),
			"requested": insufficient.Requested.StringFixed(2),
		}, requestID)
	case errors.Is(err, bill.ErrNotFound), errors.Is(err, wallet.ErrAllocationNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, bill.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, bill.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, wallet.ErrNotDisbursed):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, bill.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
