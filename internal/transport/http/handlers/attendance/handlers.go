package attendancehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteledger/internal/domain/attendance"
	"siteledger/internal/domain/audit"
	"siteledger/internal/domain/identity"
	"siteledger/internal/transport/http/api"
	"siteledger/internal/transport/http/middleware"
	"siteledger/internal/transport/http/shared"
)

type Handler struct {
	Service *attendance.Service
	Audit   *audit.Service
}

func NewHandler(service *attendance.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.With(middleware.RequireRole(identity.RoleSupervisor)).Post("/", h.handleMark)
		r.Get("/", h.handleList)
		r.Get("/workers/{workerID}/summary", h.handleSummary)
	})
}

func (h *Handler) handleMark(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload attendance.MarkInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	record, err := h.Service.Mark(r.Context(), user, payload)
	if err != nil {
		h.respondError(w, r, err, "attendance_mark_failed", "failed to mark attendance")
		return
	}

	if err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, "attendance.mark", "attendance_record", record.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, record); err != nil {
		slog.Warn("audit attendance.mark failed", "err", err)
	}
	api.Success(w, record, middleware.GetRequestID(r.Context()))
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
	filter := attendance.ListFilter{
		WorkerID: q.Get("workerId"),
		SiteID:   q.Get("siteId"),
		From:     from,
		To:       to,
	}

	records, err := h.Service.List(r.Context(), user, filter)
	if err != nil {
		h.respondError(w, r, err, "attendance_list_failed", "failed to list attendance")
		return
	}
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
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
	filter := attendance.ListFilter{SiteID: q.Get("siteId"), From: from, To: to}

	summary, err := h.Service.Summary(r.Context(), user, chi.URLParam(r, "workerID"), filter)
	if err != nil {
		h.respondError(w, r, err, "attendance_summary_failed", "failed to summarize attendance")
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, attendance.ErrNotFound), errors.Is(err, identity.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, attendance.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, attendance.ErrSettled):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, attendance.ErrInvalidUnits), errors.Is(err, attendance.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
