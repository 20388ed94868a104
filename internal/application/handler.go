package application

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/transport"
)

type ServiceAPI interface {
	Submit(ctx context.Context, userID string, req *SubmitApplicationRequest) (*Application, error)
	List(ctx context.Context, userID string) ([]*Application, error)
	Get(ctx context.Context, userID, id string) (*Application, error)
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

// Submit handles POST /api/v1/applications
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req SubmitApplicationRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	app, err := h.Service.Submit(r.Context(), user.ID, &req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, app.ToResponse())
}

// List handles GET /api/v1/applications
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	apps, err := h.Service.List(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp := ApplicationListResponse{Applications: make([]ApplicationResponse, 0, len(apps))}
	for _, app := range apps {
		resp.Applications = append(resp.Applications, app.ToResponse())
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/applications/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	app, err := h.Service.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, app.ToResponse())
}
