package middleware

import (
	"context"
	"excalidraw-drawings/handlers/auth"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type contextKey string

const ClaimsContextKey = contextKey("claims")

type authError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func unauthorized(w http.ResponseWriter, r *http.Request, message, code string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, authError{Error: "Unauthorized", Message: message, Code: code})
}

// AuthBearer rejects requests without a valid bearer credential, except for
// publicPaths. When enabled is false every request passes.
func AuthBearer(verifier *auth.Verifier, enabled bool, publicPaths ...string) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled || public[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, r, "Access key required", "AUTH_REQUIRED")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				unauthorized(w, r, "Invalid authorization format. Use: Bearer <key>", "INVALID_AUTH_FORMAT")
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				logrus.WithFields(logrus.Fields{"path": r.URL.Path, "remote": r.RemoteAddr}).Warn("Rejected credential")
				unauthorized(w, r, "Invalid access key", "INVALID_ACCESS_KEY")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by AuthBearer.
func ClaimsFromContext(ctx context.Context) (*auth.AppClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*auth.AppClaims)
	return claims, ok
}
