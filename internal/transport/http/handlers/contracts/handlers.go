package contracthandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/audit"
	"siteledger/internal/domain/contract"
	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/notifications"
	"siteledger/internal/domain/wallet"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
	"siteledger/internal/transport/http/shared"
)

type Handler struct {
	Service *contract.Service
	Notify  *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *contract.Service, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/contracts", func(r chi.Router) {
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{contractID}", h.handleGet)
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/{contractID}/payments", h.handlePay)
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/{contractID}/complete", h.handleTransition(contract.StatusCompleted, "contract.complete"))
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/{contractID}/terminate", h.handleTransition(contract.StatusTerminated, "contract.terminate"))
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload contract.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	created, err := h.Service.Create(r.Context(), user, payload)
	if err != nil {
		h.respondError(w, r, err, "contract_create_failed", "failed to create contract")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "contract.create", "contract", created.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created); err != nil {
		slog.Warn("audit contract.create failed", "err", err)
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
	filter := contract.ListFilter{
		WorkerID: q.Get("workerId"),
		SiteID:   q.Get("siteId"),
		Status:   q.Get("status"),
	}

	contracts, err := h.Service.List(r.Context(), user, filter)
	if err != nil {
		h.respondError(w, r, err, "contract_list_failed", "failed to list contracts")
		return
	}
	api.Success(w, contracts, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	position, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "contractID"))
	if err != nil {
		h.respondError(w, r, err, "contract_get_failed", "failed to load contract")
		return
	}
	api.Success(w, position, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	contractID := chi.URLParam(r, "contractID")
	var payload contract.PaymentInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	entry, err := h.Service.Pay(r.Context(), user, contractID, payload)
	if err != nil {
		h.respondError(w, r, err, "contract_payment_failed", "failed to record contract payment")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "contract.payment", "ledger_entry", entry.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, entry); err != nil {
		slog.Warn("audit contract.payment failed", "err", err)
	}
	if h.Notify != nil {
		body := fmt.Sprintf("A contract payment of %s was credited to your ledger.", entry.Amount.StringFixed(2))
		if err := h.Notify.Notify(r.Context(), entry.OrgID, entry.WorkerID, notifications.TypeSalaryPaid, "Contract payment", body); err != nil {
			slog.Warn("contract payment notification failed", "entryId", entry.ID, "err", err)
		}
	}

	api.Created(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTransition(target, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
			return
		}

		updated, err := h.Service.Transition(r.Context(), user, chi.URLParam(r, "contractID"), target)
		if err != nil {
			h.respondError(w, r, err, "contract_transition_failed", "failed to update contract")
			return
		}

		if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, action, "contract", updated.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, updated); err != nil {
			slog.Warn("audit contract transition failed", "action", action, "err", err)
		}
		if h.Notify != nil {
			body := fmt.Sprintf("Contract %q is now %s.", updated.Title, updated.Status)
			if err := h.Notify.Notify(r.Context(), updated.OrgID, updated.WorkerID, notifications.TypeContractClosed, "Contract closed", body); err != nil {
				slog.Warn("contract notification failed", "contractId", updated.ID, "err", err)
			}
		}

		api.Success(w, updated, middleware.GetRequestID(r.Context()))
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
	case errors.Is(err, contract.ErrNotFound), errors.Is(err, identity.ErrNotFound), errors.Is(err, wallet.ErrAllocationNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, contract.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, contract.ErrNotActive), errors.Is(err, wallet.ErrNotDisbursed):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, contract.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, contract.ErrExceedsValue):
		api.Fail(w, http.StatusUnprocessableEntity, "exceeds_contract_value", err.Error(), requestID)
	case errors.Is(err, contract.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
