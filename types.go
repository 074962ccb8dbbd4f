package goBroker

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountActive allows login and token verification.
	AccountActive AccountStatus = iota
	// AccountInactive blocks login without implying an administrative lock.
	AccountInactive
	// AccountLocked blocks login until an explicit unlock.
	AccountLocked
)

// String returns the canonical lower-case form stored by providers.
func (s AccountStatus) String() string {
	switch s {
	case AccountActive:
		return "active"
	case AccountInactive:
		return "inactive"
	case AccountLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// ParseAccountStatus normalizes a stored status string. Case folding
// happens here, once, at the credential-store boundary.
func ParseAccountStatus(raw string) (AccountStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return AccountActive, nil
	case "inactive":
		return AccountInactive, nil
	case "locked":
		return AccountLocked, nil
	default:
		return AccountInactive, fmt.Errorf("unknown account status %q", raw)
	}
}

// Credential is the full account record returned by [CredentialProvider].
// It never leaves the verifier boundary: Engine results expose [UserSummary]
// and [Claims], which carry no hash or secret material.
type Credential struct {
	UserID           string
	Username         string
	Email            string
	PasswordHash     string
	Status           AccountStatus
	TOTPSecret       []byte
	TwoFactorEnabled bool
	TOTPLastCounter  int64
	TokenVersion     uint32
	Role             string
	Permissions      []string

	// SessionTTL overrides the default token lifetime for this user.
	// Zero means default; the issuer clamps everything to the hard cap.
	SessionTTL time.Duration

	SecurityAnswerHashes []string
}

// CredentialProvider is the interface callers implement to integrate the
// broker with their user database. Lookups are case-sensitive exact
// matches on username OR email. All methods must honor ctx deadlines;
// the Engine applies a bounded timeout and fails closed on expiry.
type CredentialProvider interface {
	GetByIdentifier(ctx context.Context, identifier string) (*Credential, error)
	GetByID(ctx context.Context, userID string) (*Credential, error)

	// TokenVersion is the hot-path read backing token verification.
	TokenVersion(ctx context.Context, userID string) (uint32, error)

	// BumpTokenVersion atomically increments the counter, revoking every
	// outstanding token for the user, and returns the new value.
	BumpTokenVersion(ctx context.Context, userID string) (uint32, error)

	// UpdatePassword stores the new hash and bumps the token version in
	// the same mutation.
	UpdatePassword(ctx context.Context, userID string, newHash string) (uint32, error)

	UpdateStatus(ctx context.Context, userID string, status AccountStatus) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	SetTOTP(ctx context.Context, userID string, secret []byte, enabled bool) error
	UpdateTOTPLastCounter(ctx context.Context, userID string, counter int64) error
}

// Claims is the verified identity attached to a request after
// [Engine.Verify]. Role and permissions are trustworthy because the
// token version was checked against the credential store.
type Claims struct {
	UserID       string
	Username     string
	Email        string
	Role         string
	Permissions  []string
	TokenVersion uint32
	SessionID    string
	IssuedAt     time.Time
	ExpiresAt    time.Time

	// ShouldRefresh hints that the token has spent most of its lifetime
	// and the client should call Refresh soon. A hint only, never a
	// side effect of verification.
	ShouldRefresh bool
}

// UserSummary is the safe subset of a credential returned to clients.
type UserSummary struct {
	UserID      string
	Username    string
	Email       string
	Role        string
	Permissions []string
}

// LoginInput carries one login attempt. ClientIP feeds the rate limiter;
// TOTPCode may be empty on the first round trip when a second factor is
// enrolled.
type LoginInput struct {
	Identifier string
	Password   string
	TOTPCode   string
	ClientIP   string
}

// LoginResult is returned by [Engine.Login] and [Engine.Refresh] after the
// token and CSRF pair are fully persisted (store-then-respond).
type LoginResult struct {
	Token      string
	ExpiresAt  time.Time
	SessionID  string
	CSRFSecret string
	User       UserSummary
}

// AuthorizeInput is the PKCE issuance request from an authenticated caller.
type AuthorizeInput struct {
	// UserID, when set, must match the authenticated claims; anything else
	// is a token-substitution attempt.
	UserID              string
	CodeChallenge       string
	CodeChallengeMethod string
	State               string
	RedirectURI         string
}

// AuthorizeResult carries the single-use code and its TTL in seconds.
type AuthorizeResult struct {
	Code      string
	ExpiresIn int
}

// ExchangeInput is the PKCE redemption request from the relying application.
type ExchangeInput struct {
	Code         string
	CodeVerifier string
	State        string
}

// GrantClaims is the identity released by a successful PKCE exchange.
type GrantClaims struct {
	UserID   string
	Username string
	Email    string
	Role     string
}

// TOTPEnrollment holds the fresh secret and otpauth:// URI returned by
// [Engine.EnrollTOTP]. The secret is not active until proven by
// [Engine.ActivateTOTP].
type TOTPEnrollment struct {
	SecretBase32 string
	URI          string
}
