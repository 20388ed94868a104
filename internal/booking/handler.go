package booking

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/transport"
)

type ServiceAPI interface {
	Book(ctx context.Context, userID, applicationID string, req *BookInterviewRequest) (*Booking, error)
	ListForApplication(ctx context.Context, userID, applicationID string) ([]*Booking, error)
	List(ctx context.Context, status string) ([]*Booking, error)
	UpdateStatus(ctx context.Context, id string, req *UpdateStatusRequest) (*Booking, error)
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

// Book handles POST /api/v1/applications/{id}/interviews
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errAuthRequired)
		return
	}

	var req BookInterviewRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	booking, err := h.Service.Book(r.Context(), user.ID, chi.URLParam(r, "id"), &req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, booking.ToResponse())
}

// ListForApplication handles GET /api/v1/applications/{id}/interviews
func (h *Handler) ListForApplication(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errAuthRequired)
		return
	}

	bookings, err := h.Service.ListForApplication(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, toListResponse(bookings))
}

// List handles GET /api/v1/admin/interviews
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Service.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, toListResponse(bookings))
}

// UpdateStatus handles PATCH /api/v1/admin/interviews/{id}
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	booking, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, booking.ToResponse())
}
