package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	goBroker "github.com/MrEthical07/goBroker"
	"github.com/MrEthical07/goBroker/middleware"
)

// Verify failure reasons surfaced to clients. Machine-readable so a
// client can distinguish "log in again" from "just expired".
const (
	ReasonTokenMissing    = "TOKEN_MISSING"
	ReasonTokenExpired    = "TOKEN_EXPIRED"
	ReasonTokenInvalid    = "TOKEN_INVALID"
	ReasonVersionMismatch = "VERSION_MISMATCH"
	ReasonSecondFactor    = "SECOND_FACTOR_REQUIRED"
)

// Config tunes the handler set. SecureCookies must be true in production;
// relaxing it is an explicit per-environment decision, never a fallback.
type Config struct {
	SecureCookies bool
}

// Server carries the handler dependencies.
type Server struct {
	engine *goBroker.Engine
	logger *slog.Logger
	config Config
}

// New returns a Server around the engine. A nil logger is replaced with a
// silent one.
func New(engine *goBroker.Engine, logger *slog.Logger, cfg Config) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{engine: engine, logger: logger, config: cfg}
}

// Routes wires the authentication endpoints onto a fresh mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	guard := middleware.Guard(s.engine)
	mutating := middleware.Mutating(s.engine)

	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/verify", s.handleVerify)
	mux.HandleFunc("POST /auth/verify", s.handleVerify)
	mux.Handle("POST /auth/authorize", guard(mutating(http.HandlerFunc(s.handleAuthorize))))
	mux.HandleFunc("POST /auth/token", s.handleToken)
	mux.Handle("POST /auth/logout", guard(mutating(http.HandlerFunc(s.handleLogout))))
	mux.Handle("POST /auth/refresh", guard(mutating(http.HandlerFunc(s.handleRefresh))))

	return mux
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totpCode,omitempty"`
}

type userPayload struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	// Pre-session mutating call: the CSRF pair does not exist yet, but
	// the XHR marker is still required.
	if r.Header.Get(middleware.RequestedWithHeader) != "XMLHttpRequest" {
		writeJSON(w, http.StatusForbidden, errorPayload("forbidden"))
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload("invalid request"))
		return
	}

	result, err := s.engine.Login(r.Context(), goBroker.LoginInput{
		Identifier: req.Username,
		Password:   req.Password,
		TOTPCode:   req.TOTPCode,
		ClientIP:   clientIP(r),
	})
	if err != nil {
		s.writeLoginFailure(w, err)
		return
	}

	s.setSessionCookies(w, result)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      toUserPayload(result.User),
		"expiresAt": result.ExpiresAt.Unix(),
	})
}

func (s *Server) writeLoginFailure(w http.ResponseWriter, err error) {
	var limitErr *goBroker.RateLimitError
	switch {
	case errors.As(err, &limitErr):
		retry := limitErr.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      "too many attempts",
			"retryAfter": retry,
		})
	case errors.Is(err, goBroker.ErrSecondFactorRequired):
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":  "second factor required",
			"reason": ReasonSecondFactor,
		})
	case errors.Is(err, goBroker.ErrStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorPayload("service unavailable"))
	default:
		// Unknown user, wrong password, wrong code, disabled account:
		// one shape for all of them.
		writeJSON(w, http.StatusUnauthorized, errorPayload("invalid credentials"))
	}
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	bearer, ok := middleware.BearerFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, reasonPayload(ReasonTokenMissing))
		return
	}

	claims, err := s.engine.Verify(r.Context(), bearer)
	if err != nil {
		switch {
		case errors.Is(err, goBroker.ErrTokenExpired):
			writeJSON(w, http.StatusUnauthorized, reasonPayload(ReasonTokenExpired))
		case errors.Is(err, goBroker.ErrTokenVersionMismatch):
			writeJSON(w, http.StatusUnauthorized, reasonPayload(ReasonVersionMismatch))
		case errors.Is(err, goBroker.ErrStoreUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, errorPayload("service unavailable"))
		default:
			writeJSON(w, http.StatusUnauthorized, reasonPayload(ReasonTokenInvalid))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":        claims.UserID,
		"username":      claims.Username,
		"email":         claims.Email,
		"role":          claims.Role,
		"permissions":   claims.Permissions,
		"expiresAt":     claims.ExpiresAt.Unix(),
		"shouldRefresh": claims.ShouldRefresh,
	})
}

type authorizeRequest struct {
	UserID              string `json:"userId,omitempty"`
	CodeChallenge       string `json:"codeChallenge"`
	CodeChallengeMethod string `json:"codeChallengeMethod"`
	State               string `json:"state,omitempty"`
	RedirectURI         string `json:"redirectUri,omitempty"`
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorPayload("unauthorized"))
		return
	}

	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload("invalid request"))
		return
	}

	result, err := s.engine.Authorize(r.Context(), claims, goBroker.AuthorizeInput{
		UserID:              req.UserID,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		State:               req.State,
		RedirectURI:         req.RedirectURI,
	})
	if err != nil {
		if errors.Is(err, goBroker.ErrStoreUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, errorPayload("service unavailable"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorPayload("invalid request"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":      result.Code,
		"expiresIn": result.ExpiresIn,
	})
}

type tokenRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
	State        string `json:"state,omitempty"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload("invalid request"))
		return
	}

	grant, err := s.engine.Exchange(r.Context(), goBroker.ExchangeInput{
		Code:         req.Code,
		CodeVerifier: req.CodeVerifier,
		State:        req.State,
	})
	if err != nil {
		if errors.Is(err, goBroker.ErrStoreUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, errorPayload("service unavailable"))
			return
		}
		// Every PKCE failure collapses to one message: which check failed
		// is an oracle the relying party does not get.
		writeJSON(w, http.StatusBadRequest, errorPayload("invalid grant"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": userPayload{
			UserID:   grant.UserID,
			Username: grant.Username,
			Email:    grant.Email,
			Role:     grant.Role,
		},
		"tokenType": "Bearer",
		"scope":     "identity",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if bearer, ok := middleware.BearerFromRequest(r); ok {
		if err := s.engine.Logout(r.Context(), bearer); err != nil {
			s.logger.Warn("logout cleanup failed", "err", err)
		}
	}

	s.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]any{"loggedOut": true})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	bearer, _ := middleware.BearerFromRequest(r)

	result, err := s.engine.Refresh(r.Context(), bearer)
	if err != nil {
		switch {
		case errors.Is(err, goBroker.ErrStoreUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, errorPayload("service unavailable"))
		default:
			writeJSON(w, http.StatusUnauthorized, errorPayload("unauthorized"))
		}
		return
	}

	s.setSessionCookies(w, result)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      toUserPayload(result.User),
		"expiresAt": result.ExpiresAt.Unix(),
	})
}

func toUserPayload(u goBroker.UserSummary) userPayload {
	return userPayload{
		UserID:      u.UserID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		Permissions: u.Permissions,
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorPayload(msg string) map[string]any {
	return map[string]any{"error": msg}
}

func reasonPayload(reason string) map[string]any {
	return map[string]any{"error": "unauthorized", "reason": reason}
}
