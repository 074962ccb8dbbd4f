package middleware

import (
	"context"
	"net/http"
	"strings"

	goBroker "github.com/MrEthical07/goBroker"
)

// BearerCookie is the session cookie name shared with the httpapi handlers.
const BearerCookie = "broker_session"

type claimsContextKey struct{}

// ClaimsFromContext returns the verified claims injected by [Guard].
func ClaimsFromContext(ctx context.Context) (*goBroker.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*goBroker.Claims)
	return claims, ok
}

// Guard verifies the bearer token (session cookie first, Authorization
// header as fallback) and injects the claims into the request context.
// Rejections carry no detail beyond the status code.
func Guard(engine *goBroker.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			bearer, ok := BearerFromRequest(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.Verify(r.Context(), bearer)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerFromRequest extracts the session token from the cookie or the
// Authorization header.
func BearerFromRequest(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(BearerCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
