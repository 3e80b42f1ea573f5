package ledgerhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/audit"
	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/ledger"
	"siteledger/internal/domain/notifications"
	"siteledger/internal/domain/wallet"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
	"siteledger/internal/transport/http/shared"
)

type Handler struct {
	Service *ledger.Service
	Notify  *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *ledger.Service, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/entries", h.handleCreate)
		r.Get("/entries", h.handleList)
		r.Get("/entries/{entryID}", h.handleGet)
		r.With(middleware.RequireRole(identity.RoleDeveloper)).Put("/entries/{entryID}", h.handleUpdate)
		r.With(middleware.RequireRole(identity.RoleDeveloper)).Delete("/entries/{entryID}", h.handleDelete)
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/advances", h.handleCreateAdvance)
		r.Get("/workers/{workerID}/totals", h.handleTotals)
		r.Get("/workers/{workerID}/advances", h.handleUnpaidAdvances)
		r.Get("/workers/{workerID}/pending-salary", h.handlePendingSalary)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload ledger.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	h.createEntry(w, r, user, payload)
}

// handleCreateAdvance is POST /ledger/advances: a credit of category advance
// recorded through the same path as any other manual entry.
func (h *Handler) handleCreateAdvance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload ledger.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	payload.Type = ledger.TypeCredit
	payload.Category = ledger.CategoryAdvance
	h.createEntry(w, r, user, payload)
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request, user identity.UserContext, payload ledger.CreateInput) {
	created, err := h.Service.Create(r.Context(), user, payload)
	if err != nil {
		h.respondError(w, r, err, "ledger_entry_create_failed", "failed to create ledger entry")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "ledger.entry.create", "ledger_entry", created.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created); err != nil {
		slog.Warn("audit ledger.entry.create failed", "err", err)
	}
	if created.Category == ledger.CategoryAdvance && h.Notify != nil {
		body := fmt.Sprintf("An advance of %s was recorded against your ledger.", created.Amount.StringFixed(2))
		if err := h.Notify.Notify(r.Context(), created.OrgID, created.WorkerID, notifications.TypeAdvanceRecorded, "Advance recorded", body); err != nil {
			slog.Warn("advance notification failed", "entryId", created.ID, "err", err)
		}
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
	page := shared.ParsePagination(r, 100, 500)
	filter := ledger.ListFilter{
		WorkerID: q.Get("workerId"),
		SiteID:   q.Get("siteId"),
		Type:     q.Get("type"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
		From:     from,
		To:       to,
		Limit:    page.Limit,
		Offset:   page.Offset,
	}

	entries, err := h.Service.List(r.Context(), user, filter)
	if err != nil {
		h.respondError(w, r, err, "ledger_list_failed", "failed to list ledger entries")
		return
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	entry, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "entryID"))
	if err != nil {
		h.respondError(w, r, err, "ledger_get_failed", "failed to load ledger entry")
		return
	}
	api.Success(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	entryID := chi.URLParam(r, "entryID")
	var payload ledger.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	before, err := h.Service.Get(r.Context(), user, entryID)
	if err != nil {
		h.respondError(w, r, err, "ledger_get_failed", "failed to load ledger entry")
		return
	}

	updated, err := h.Service.Update(r.Context(), user, entryID, payload)
	if err != nil {
		h.respondError(w, r, err, "ledger_update_failed", "failed to update ledger entry")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "ledger.entry.update", "ledger_entry", updated.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, updated); err != nil {
		slog.Warn("audit ledger.entry.update failed", "err", err)
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	entryID := chi.URLParam(r, "entryID")
	if err := h.Service.Delete(r.Context(), user, entryID); err != nil {
		h.respondError(w, r, err, "ledger_delete_failed", "failed to delete ledger entry")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "ledger.entry.delete", "ledger_entry", entryID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit ledger.entry.delete failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTotals(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	totals, err := h.Service.Totals(r.Context(), user, chi.URLParam(r, "workerID"))
	if err != nil {
		h.respondError(w, r, err, "ledger_totals_failed", "failed to compute worker totals")
		return
	}
	api.Success(w, totals, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUnpaidAdvances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	advances, err := h.Service.UnpaidAdvances(r.Context(), user, chi.URLParam(r, "workerID"))
	if err != nil {
		h.respondError(w, r, err, "ledger_advances_failed", "failed to list unpaid advances")
		return
	}
	api.Success(w, advances, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePendingSalary(w http.ResponseWriter, r *http.Request) {
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
	scope := ledger.Scope{SiteID: q.Get("siteId"), From: from, To: to}

	entries, err := h.Service.PendingSalary(r.Context(), user, chi.URLParam(r, "workerID"), scope)
	if err != nil {
		h.respondError(w, r, err, "ledger_pending_failed", "failed to list pending salary")
		return
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
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
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, wallet.ErrAllocationNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, ledger.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, ledger.ErrSettled), errors.Is(err, ledger.ErrAlreadyDeducted), errors.Is(err, wallet.ErrNotDisbursed):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, ledger.ErrInvalidEntry):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
