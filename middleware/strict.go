package middleware

import (
	"net/http"

	goBroker "github.com/MrEthical07/goBroker"
)

// CSRFHeader is the double-submit echo header.
const CSRFHeader = "X-CSRF-Token"

// RequestedWithHeader must carry "XMLHttpRequest" on mutating calls.
const RequestedWithHeader = "X-Requested-With"

// Mutating wraps a handler that changes state. On non-GET/HEAD/OPTIONS
// requests it requires X-Requested-With: XMLHttpRequest and a CSRF header
// matching the session's stored pair; either failing is a 403 regardless
// of how valid the session cookie is. Must run inside [Guard].
func Mutating(engine *goBroker.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if r.Header.Get(RequestedWithHeader) != "XMLHttpRequest" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			if err := engine.CheckCSRF(r.Context(), claims.SessionID, r.Header.Get(CSRFHeader)); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
