package sitehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/audit"
	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/site"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
	"siteledger/internal/transport/http/shared"
)

type Handler struct {
	Service *site.Service
	Audit   *audit.Service
}

func NewHandler(service *site.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sites", func(r chi.Router) {
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{siteID}", h.handleGet)
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Put("/{siteID}", h.handleUpdate)
		r.Get("/{siteID}/members", h.handleMembers)
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/{siteID}/members", h.handleAddMember)
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Delete("/{siteID}/members/{userID}", h.handleRemoveMember)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload site.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	created, err := h.Service.Create(r.Context(), user, payload)
	if err != nil {
		h.respondError(w, r, err, "site_create_failed", "failed to create site")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "site.create", "site", created.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created); err != nil {
		slog.Warn("audit site.create failed", "err", err)
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	sites, err := h.Service.List(r.Context(), user, r.URL.Query().Get("status"))
	if err != nil {
		h.respondError(w, r, err, "site_list_failed", "failed to list sites")
		return
	}
	api.Success(w, sites, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	found, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "siteID"))
	if err != nil {
		h.respondError(w, r, err, "site_get_failed", "failed to load site")
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

	siteID := chi.URLParam(r, "siteID")
	var payload site.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	before, err := h.Service.Get(r.Context(), user, siteID)
	if err != nil {
		h.respondError(w, r, err, "site_get_failed", "failed to load site")
		return
	}

	updated, err := h.Service.Update(r.Context(), user, siteID, payload)
	if err != nil {
		h.respondError(w, r, err, "site_update_failed", "failed to update site")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "site.update", "site", updated.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, updated); err != nil {
		slog.Warn("audit site.update failed", "err", err)
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMembers(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	members, err := h.Service.Members(r.Context(), user, chi.URLParam(r, "siteID"))
	if err != nil {
		h.respondError(w, r, err, "site_members_failed", "failed to list members")
		return
	}
	api.Success(w, members, middleware.GetRequestID(r.Context()))
}

type memberRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	siteID := chi.URLParam(r, "siteID")
	var payload memberRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.UserID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "userId is required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.AddMember(r.Context(), user, siteID, payload.UserID); err != nil {
		h.respondError(w, r, err, "site_member_add_failed", "failed to add member")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "site.member.add", "site", siteID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit site.member.add failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "added"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	siteID := chi.URLParam(r, "siteID")
	userID := chi.URLParam(r, "userID")
	if err := h.Service.RemoveMember(r.Context(), user, siteID, userID); err != nil {
		h.respondError(w, r, err, "site_member_remove_failed", "failed to remove member")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "site.member.remove", "site", siteID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"userId": userID}, nil); err != nil {
		slog.Warn("audit site.member.remove failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "removed"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, site.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "site not found", requestID)
	case errors.Is(err, site.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
