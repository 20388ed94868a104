package payment

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/transport"
)

type ServiceAPI interface {
	Initiate(ctx context.Context, userID, applicationID, phone string) (*Session, error)
	Recheck(ctx context.Context, userID, sessionID string) (*Session, error)
	Get(ctx context.Context, userID, sessionID string) (*Session, error)
	ListForApplication(ctx context.Context, userID, applicationID string) ([]*Session, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     service,
	}
}

var errAuthRequired = errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken)

// Initiate handles POST /api/v1/applications/{id}/payments
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errAuthRequired)
		return
	}

	var req InitiatePaymentRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	if appErr := req.Validate(); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	applicationID := chi.URLParam(r, "id")
	session, err := h.Service.Initiate(r.Context(), user.ID, applicationID, req.Phone)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && session != nil {
			h.HandleError(w, appErr.WithDetails(session.ToResponse()))
			return
		}
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("payment initiated",
		"user_id", user.ID,
		"application_id", applicationID,
		"session_id", session.ID)

	h.WriteJSON(w, http.StatusAccepted, session.ToResponse())
}

// ListForApplication handles GET /api/v1/applications/{id}/payments
func (h *Handler) ListForApplication(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errAuthRequired)
		return
	}

	sessions, err := h.Service.ListForApplication(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp := SessionListResponse{Payments: make([]SessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Payments = append(resp.Payments, s.ToResponse())
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/payments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errAuthRequired)
		return
	}

	session, err := h.Service.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, session.ToResponse())
}

// Recheck handles POST /api/v1/payments/{id}/recheck
func (h *Handler) Recheck(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errAuthRequired)
		return
	}

	session, err := h.Service.Recheck(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusAccepted
	if session.Status.IsTerminal() {
		status = http.StatusOK
	}
	h.WriteJSON(w, status, session.ToResponse())
}
