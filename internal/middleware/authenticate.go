package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/myphotos/backend/internal/auth"
	"github.com/myphotos/backend/internal/logging"
)

// TokenVerifier validates bearer access tokens.
type TokenVerifier interface {
	Verify(accessToken string) (auth.Identity, error)
}

// Authenticate rejects requests without a valid bearer token and attaches the
// caller's identity to the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				logging.FromContext(r.Context()).Info("access token rejected", "error", err)
				unauthorized(w, "invalid or expired access token")
				return
			}

			ctx := auth.WithIdentity(r.Context(), identity)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", identity.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="myphotos"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
