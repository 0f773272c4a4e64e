package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/pkg/utils"
)

type tokenKey struct{}

// AdminAuth guards the admin routes. Any non-empty bearer token is accepted
// until real credential checks exist.
type AdminAuth struct {
	log *logger.Logger
}

func NewAdminAuth(log *logger.Logger) *AdminAuth {
	return &AdminAuth{log: logger.OrNop(log).With("middleware", "admin_auth")}
}

func (a *AdminAuth) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r)
		if token == "" {
			a.log.Debug("admin request without token", "path", r.URL.Path)
			utils.RespondError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), tokenKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractToken reads a bearer token from the Authorization header, falling
// back to the token query parameter used by event streams.
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// TokenFromContext returns the token accepted by RequireToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
