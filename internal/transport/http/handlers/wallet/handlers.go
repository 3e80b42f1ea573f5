package wallethandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/wallet"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
)

type Handler struct {
	Service *wallet.Service
}

func NewHandler(service *wallet.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/wallet", h.handleOwnBalance)
	r.Get("/wallet/{userID}", h.handleBalance)
}

func (h *Handler) handleOwnBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	h.respondBalance(w, r, user, user.UserID)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	h.respondBalance(w, r, user, chi.URLParam(r, "userID"))
}

func (h *Handler) respondBalance(w http.ResponseWriter, r *http.Request, user identity.UserContext, userID string) {
	balance, err := h.Service.WalletBalance(r.Context(), user, userID)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrForbidden):
			api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, identity.ErrNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "user not found", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "wallet_balance_failed", "failed to compute wallet balance", middleware.GetRequestID(r.Context()))
		}
		return
	}
	api.Success(w, balance, middleware.GetRequestID(r.Context()))
}
