package allocationhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/allocation"
	"siteledger/internal/domain/audit"
	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/notifications"
	"siteledger/internal/domain/wallet"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
	"siteledger/internal/transport/http/shared"
)

type Handler struct {
	Service *allocation.Service
	Wallet  *wallet.Service
	Notify  *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *allocation.Service, walletSvc *wallet.Service, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Wallet: walletSvc, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/allocations", func(r chi.Router) {
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{allocationID}", h.handleGet)
		r.Get("/{allocationID}/balance", h.handleBalance)
		r.Post("/{allocationID}/approve", h.handleTransition(allocation.StatusApproved))
		r.Post("/{allocationID}/reject", h.handleTransition(allocation.StatusRejected))
		r.Post("/{allocationID}/disburse", h.handleTransition(allocation.StatusDisbursed))
		r.With(middleware.RequireRole(identity.RoleDeveloper)).Delete("/{allocationID}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload allocation.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	created, err := h.Service.Create(r.Context(), user, payload)
	if err != nil {
		h.respondError(w, r, err, "allocation_create_failed", "failed to create allocation")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "allocation.create", "allocation", created.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created); err != nil {
		slog.Warn("audit allocation.create failed", "err", err)
	}
	h.notifyStatus(r, user, created)

	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	q := r.URL.Query()
	filter := allocation.ListFilter{
		FromUserID: q.Get("fromUserId"),
		ToUserID:   q.Get("toUserId"),
		SiteID:     q.Get("siteId"),
		Status:     q.Get("status"),
		FromPool:   q.Get("fromPool") == "true",
	}

	allocations, err := h.Service.List(r.Context(), user, filter)
	if err != nil {
		h.respondError(w, r, err, "allocation_list_failed", "failed to list allocations")
		return
	}
	api.Success(w, allocations, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	found, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "allocationID"))
	if err != nil {
		h.respondError(w, r, err, "allocation_get_failed", "failed to load allocation")
		return
	}
	api.Success(w, found, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	balance, err := h.Wallet.AllocationBalance(r.Context(), user, chi.URLParam(r, "allocationID"))
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrAllocationNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "allocation not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, wallet.ErrForbidden):
			api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "allocation_balance_failed", "failed to compute balance", middleware.GetRequestID(r.Context()))
		}
		return
	}
	api.Success(w, balance, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTransition(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
			return
		}

		id := chi.URLParam(r, "allocationID")
		updated, err := h.Service.Transition(r.Context(), user, id, target)
		if err != nil {
			h.respondError(w, r, err, "allocation_transition_failed", "failed to update allocation")
			return
		}

		if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "allocation."+target, "allocation", updated.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, updated); err != nil {
			slog.Warn("audit allocation transition failed", "action", target, "err", err)
		}
		h.notifyStatus(r, user, updated)

		api.Success(w, updated, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	id := chi.URLParam(r, "allocationID")
	if err := h.Service.Delete(r.Context(), user, id); err != nil {
		h.respondError(w, r, err, "allocation_delete_failed", "failed to delete allocation")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "allocation.delete", "allocation", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit allocation.delete failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

// notifyStatus tells the recipient where their money stands. Failures are
// logged and swallowed.
func (h *Handler) notifyStatus(r *http.Request, user identity.UserContext, a allocation.Allocation) {
	if h.Notify == nil || a.ToUserID == user.UserID {
		return
	}
	var ntype, title string
	switch a.Status {
	case allocation.StatusPending:
		ntype, title = notifications.TypeAllocationPending, "Allocation pending"
	case allocation.StatusApproved:
		ntype, title = notifications.TypeAllocationApproved, "Allocation approved"
	case allocation.StatusRejected:
		ntype, title = notifications.TypeAllocationRejected, "Allocation rejected"
	case allocation.StatusDisbursed:
		ntype, title = notifications.TypeAllocationDisbursed, "Funds disbursed"
	default:
		return
	}
	body := fmt.Sprintf("Allocation of %s is now %s.", a.Amount.StringFixed(2), a.Status)
	if err := h.Notify.Notify(r.Context(), a.OrgID, a.ToUserID, ntype, title, body); err != nil {
		slog.Warn("allocation notification failed", "allocationId", a.ID, "err", err)
	}
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
	case errors.Is(err, allocation.ErrNotFound), errors.Is(err, identity.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, allocation.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, allocation.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, allocation.ErrReferenced):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, allocation.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
