package user

import (
	"context"
	"log/slog"
	"net/http"

	apperrors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/transport"
)

type ServiceAPI interface {
	Profile(ctx context.Context, caller *apperrors.User) (*Profile, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     svc,
	}
}

// GetCurrentUser handles GET /api/v1/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := apperrors.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, apperrors.NewUnauthorizedError("authentication required", apperrors.ErrCodeInvalidToken))
		return
	}

	profile, err := h.Service.Profile(r.Context(), caller)
	if err != nil {
		h.Logger.Error("failed to load profile", "user_id", caller.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, profile.ToResponse())
}
