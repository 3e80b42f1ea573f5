package expensehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/audit"
	"siteledger/internal/domain/expense"
	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/wallet"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
	"siteledger/internal/transport/http/shared"
)

type Handler struct {
	Service *expense.Service
	Audit   *audit.Service
}

func NewHandler(service *expense.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/expenses", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{expenseID}", h.handleGet)
		r.With(middleware.RequireRole(identity.RoleDeveloper)).Delete("/{expenseID}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload expense.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	created, err := h.Service.Create(r.Context(), user, payload)
	if err != nil {
		h.respondError(w, r, err, "expense_create_failed", "failed to record expense")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "expense.create", "expense", created.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created); err != nil {
		slog.Warn("audit expense.create failed", "err", err)
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
	filter := expense.ListFilter{
		UserID:   q.Get("userId"),
		SiteID:   q.Get("siteId"),
		Category: q.Get("category"),
		From:     from,
		To:       to,
	}

	expenses, err := h.Service.List(r.Context(), user, filter)
	if err != nil {
		h.respondError(w, r, err, "expense_list_failed", "failed to list expenses")
		return
	}
	api.Success(w, expenses, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	found, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "expenseID"))
	if err != nil {
		h.respondError(w, r, err, "expense_get_failed", "failed to load expense")
		return
	}
	api.Success(w, found, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	expenseID := chi.URLParam(r, "expenseID")
	if err := h.Service.Delete(r.Context(), user, expenseID); err != nil {
		h.respondError(w, r, err, "expense_delete_failed", "failed to delete expense")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "expense.delete", "expense", expenseID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit expense.delete failed", "err", err)
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
	case errors.Is(err, expense.ErrNotFound), errors.Is(err, wallet.ErrAllocationNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, expense.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, wallet.ErrNotDisbursed):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, expense.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
