package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/empathyai/companion/pkg/utils"
)

type contextKey string

const userIDKey contextKey = "userID"

// TokenParser validates a session token and returns the subject user id.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// RequireAuth rejects requests without a valid bearer token. Websocket
// upgrades may carry the token in the "token" query parameter instead, since
// browsers cannot set headers on websocket dials.
func RequireAuth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "missing credentials")
				return
			}

			userID, err := parser.ParseToken(token)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id stored by RequireAuth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
