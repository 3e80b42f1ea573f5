package userhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/audit"
	"siteledger/internal/domain/identity"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
	"siteledger/internal/transport/http/shared"
)

type Handler struct {
	Service *identity.Service
	Audit   *audit.Service
}

func NewHandler(service *identity.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{userID}", h.handleGet)
		r.Put("/{userID}", h.handleUpdate)
		r.Get("/{userID}/subordinates", h.handleSubordinates)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload identity.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	created, err := h.Service.Create(r.Context(), user, payload)
	if err != nil {
		h.respondError(w, r, err, "user_create_failed", "failed to create user")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "user.create", "user", created.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created); err != nil {
		slog.Warn("audit user.create failed", "err", err)
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	filter := identity.ListFilter{
		ParentID: r.URL.Query().Get("parentId"),
		Status:   r.URL.Query().Get("status"),
	}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := strconv.Atoi(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "role must be a number", middleware.GetRequestID(r.Context()))
			return
		}
		filter.Role = role
	}

	users, err := h.Service.List(r.Context(), user, filter)
	if err != nil {
		h.respondError(w, r, err, "user_list_failed", "failed to list users")
		return
	}
	api.Success(w, users, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	found, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "userID"))
	if err != nil {
		h.respondError(w, r, err, "user_get_failed", "failed to load user")
		return
	}
	api.Success(w, found, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	targetID := chi.URLParam(r, "userID")
	var payload identity.UpdateUserInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	before, err := h.Service.Get(r.Context(), user, targetID)
	if err != nil {
		h.respondError(w, r, err, "user_get_failed", "failed to load user")
		return
	}

	updated, err := h.Service.Update(r.Context(), user, targetID, payload)
	if err != nil {
		h.respondError(w, r, err, "user_update_failed", "failed to update user")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "user.update", "user", updated.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, updated); err != nil {
		slog.Warn("audit user.update failed", "err", err)
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubordinates(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	subs, err := h.Service.Subordinates(r.Context(), user, chi.URLParam(r, "userID"))
	if err != nil {
		h.respondError(w, r, err, "user_subordinates_failed", "failed to list subordinates")
		return
	}
	api.Success(w, subs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, identity.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", requestID)
	case errors.Is(err, identity.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, identity.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", err.Error(), requestID)
	case errors.Is(err, identity.ErrInvalidRole), errors.Is(err, identity.ErrInvalidParent), errors.Is(err, identity.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
