package auth

import (
	"log/slog"
	"net/http"

	apperrors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/transport"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

type Verifier interface {
	Verify(tokenString string) (*Claims, error)
}

type Middleware struct {
	*transport.BaseHandler
	verifier Verifier
}

func NewMiddleware(verifier Verifier, lg *slog.Logger) *Middleware {
	return &Middleware{
		BaseHandler: transport.NewBaseHandler(lg),
		verifier:    verifier,
	}
}

// Authenticate rejects requests without a valid bearer token and stores the caller in the context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.ExtractTokenFromHeader(r)
		if token == "" {
			m.HandleError(w, apperrors.NewUnauthorizedError("missing authorization token", apperrors.ErrCodeInvalidToken))
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			m.Logger.Warn("token validation failed", "error", err, "path", r.URL.Path)
			m.HandleServiceError(w, err)
			return
		}

		ctx := apperrors.ContextWithUser(r.Context(), claims.User())
		ctx = logger.With(ctx, "user_id", claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets through only callers whose token role is one of roles. It must run
// after Authenticate.
func (m *Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := apperrors.UserFromContext(r.Context())
			if !ok {
				m.HandleError(w, apperrors.NewUnauthorizedError("authentication required", apperrors.ErrCodeInvalidToken))
				return
			}
			if !user.HasRole(roles...) {
				m.Logger.WarnContext(r.Context(), "access denied: insufficient role",
					"user_id", user.ID,
					"role", user.Role,
					"required_roles", roles)
				m.HandleError(w, apperrors.ErrAdminOnly)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
