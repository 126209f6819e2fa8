package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireRole ensures the authenticated caller carries role
func RequireRole(role string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, CodeForbidden, "insufficient permissions")
				return
			}

			if got != role {
				logger.Warn("Caller lacks required role",
					zap.String("role", got),
					zap.String("required", role),
				)
				RespondWithError(w, http.StatusForbidden, CodeForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
