package capitalhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/audit"
	"siteledger/internal/domain/capital"
	"siteledger/internal/domain/identity"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
	"siteledger/internal/transport/http/shared"
)

type Handler struct {
	Service *capital.Service
	Audit   *audit.Service
}

func NewHandler(service *capital.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/capital", func(r chi.Router) {
		r.Use(middleware.RequireRole(identity.RoleDeveloper))
		r.Post("/contributions", h.handleCreate)
		r.Get("/contributions", h.handleList)
		r.Get("/pool", h.handlePool)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload capital.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	created, err := h.Service.Create(r.Context(), user, payload)
	if err != nil {
		h.respondError(w, r, err, "capital_create_failed", "failed to record contribution")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "capital.contribution.create", "capital_contribution", created.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created); err != nil {
		slog.Warn("audit capital.contribution.create failed", "err", err)
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	contributions, err := h.Service.List(r.Context(), user)
	if err != nil {
		h.respondError(w, r, err, "capital_list_failed", "failed to list contributions")
		return
	}
	api.Success(w, contributions, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePool(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	balance, err := h.Service.Balance(r.Context(), user)
	if err != nil {
		h.respondError(w, r, err, "capital_pool_failed", "failed to compute pool balance")
		return
	}
	api.Success(w, balance, middleware.GetRequestID(r.Context()))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, capital.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, capital.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
