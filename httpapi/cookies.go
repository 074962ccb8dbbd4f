package httpapi

import (
	"net/http"
	"time"

	goBroker "github.com/MrEthical07/goBroker"
	"github.com/MrEthical07/goBroker/middleware"
)

// CSRFCookie is deliberately NOT HttpOnly: the browser page reads it and
// echoes the value back in the CSRF header on mutating calls.
const CSRFCookie = "broker_csrf"

func (s *Server) setSessionCookies(w http.ResponseWriter, result *goBroker.LoginResult) {
	maxAge := int(time.Until(result.ExpiresAt) / time.Second)

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.BearerCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    result.CSRFSecret,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.BearerCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
