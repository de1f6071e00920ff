package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/onnwee/collabmatch/internal/auth"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer access token and
// records the token subject as the request user.
func RequireAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				SetErrorCode(r.Context(), "auth_required")
				writeJSONError(w, http.StatusUnauthorized, "auth_required", "missing bearer token")
				return
			}
			claims, err := v.Verify(token)
			if err != nil {
				code, msg := "invalid_token", "invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					code, msg = "token_expired", "token has expired"
				}
				SetErrorCode(r.Context(), code)
				writeJSONError(w, http.StatusUnauthorized, code, msg)
				return
			}
			ctx := SetUserID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeJSONError writes the API error envelope. It mirrors api.WriteError,
// which middleware cannot import without a cycle.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="collabmatch"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
