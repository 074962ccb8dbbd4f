package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with the shared server secret (default).
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrExpired reports a token past its exp claim.
	ErrExpired = errors.New("token expired")
	// ErrMalformed reports any other parse or signature failure.
	ErrMalformed = errors.New("token malformed")
)

// Config holds issuer/verifier tuning. DefaultTTL applies when the caller
// passes no per-user TTL; MaxTTL is a hard cap enforced regardless of
// per-user configuration.
type Config struct {
	DefaultTTL       time.Duration
	MaxTTL           time.Duration
	SigningMethod    SigningMethod
	Secret           []byte
	PrivateKey       []byte
	PublicKey        []byte
	Issuer           string
	Leeway           time.Duration
	RefreshThreshold float64
}

// Manager signs and validates session bearer tokens.
type Manager struct {
	config Config
}

// Claims is the identity payload carried by a session token. TokenVersion
// is compared against the credential store's current counter on every
// verification; the role and permission claims are only trustworthy after
// that comparison.
type Claims struct {
	UserID       string   `json:"uid"`
	Username     string   `json:"unm"`
	Email        string   `json:"eml"`
	Role         string   `json:"role,omitempty"`
	Permissions  []string `json:"perms,omitempty"`
	TokenVersion uint32   `json:"tv"`
	SessionID    string   `json:"sid"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a ready [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.DefaultTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.MaxTTL <= 0 || cfg.MaxTTL < cfg.DefaultTTL {
		return nil, errors.New("invalid max TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.RefreshThreshold < 0 || cfg.RefreshThreshold >= 1 {
		return nil, errors.New("invalid refresh threshold configuration")
	}
	if cfg.RefreshThreshold == 0 {
		cfg.RefreshThreshold = 0.75
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) < 32 {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// Issue signs a token for the given claims. A non-positive ttl selects the
// configured default; any ttl is clamped to MaxTTL. Returns the compact
// token plus its expiry.
func (m *Manager) Issue(claims Claims, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = m.config.DefaultTTL
	}
	if ttl > m.config.MaxTTL {
		ttl = m.config.MaxTTL
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    m.config.Issuer,
	}

	signed, err := jwt.NewWithClaims(m.getMethod(), claims).SignedString(m.signKey())
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Parse validates signature and expiry and returns the embedded claims.
// Expired tokens fail with [ErrExpired]; every other failure collapses to
// [ErrMalformed] so callers cannot probe the parser.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.getMethod().Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}

	return claims, nil
}

// ShouldRefresh reports whether the token has burned through the
// configured share of its lifetime (default 75%). It is a hint for the
// caller, never a side effect of verification.
func (m *Manager) ShouldRefresh(claims *Claims, now time.Time) bool {
	if claims == nil || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return false
	}

	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime <= 0 {
		return false
	}

	elapsed := now.Sub(claims.IssuedAt.Time)
	return float64(elapsed) >= m.config.RefreshThreshold*float64(lifetime)
}

func (m *Manager) getMethod() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) signKey() interface{} {
	switch m.config.SigningMethod {
	case MethodEd25519:
		key, _ := parseEdPrivateKey(m.config.PrivateKey)
		return key
	default:
		return m.config.Secret
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(m.config.PublicKey)
	default:
		return m.config.Secret, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
