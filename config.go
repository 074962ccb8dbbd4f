package goBroker

import (
	"errors"
	"time"
)

// Config defines every tunable of the broker. Instances are configured
// during initialization and treated as immutable after [Builder.Build].
type Config struct {
	Token     TokenConfig
	Password  PasswordConfig
	TOTP      TOTPConfig
	PKCE      PKCEConfig
	RateLimit RateLimitConfig
	Janitor   JanitorConfig

	// StoreTimeout bounds every credential-store call. On expiry the
	// request fails closed: authentication denied, never granted.
	StoreTimeout time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig tunes session-token issuance and verification.
type TokenConfig struct {
	// DefaultTTL applies when the credential carries no per-user override.
	DefaultTTL time.Duration
	// MaxTTL is the hard cap enforced regardless of per-user configuration.
	MaxTTL        time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	// RefreshThreshold is the lifetime fraction after which Verify sets
	// the ShouldRefresh hint. Zero selects 0.75.
	RefreshThreshold float64
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig tunes Argon2id costs and the hashing concurrency gate.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// MaxConcurrentHashes bounds simultaneous derivations so one burst of
	// slow hashes cannot stall unrelated requests.
	MaxConcurrentHashes int
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig tunes the second-factor verifier.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string
	Skew      int
}

/*
====================================
PKCE CONFIG
====================================
*/

// PKCEConfig tunes the authorization-code broker.
type PKCEConfig struct {
	// CodeTTL is clamped by validation to ten minutes, the protocol ceiling.
	CodeTTL time.Duration
}

const maxCodeTTL = 10 * time.Minute

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the per-IP login attempt budget.
type RateLimitConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

/*
====================================
JANITOR CONFIG
====================================
*/

// JanitorConfig tunes the advisory background sweep of expired
// authorization codes, CSRF pairs, and rate buckets.
type JanitorConfig struct {
	Interval time.Duration
}

// DefaultConfig returns the configuration a fresh [Builder] starts from.
// Callers tweak fields and pass the result to [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			DefaultTTL:       60 * time.Minute,
			MaxTTL:           24 * time.Hour,
			SigningMethod:    "hs256",
			Leeway:           30 * time.Second,
			RefreshThreshold: 0.75,
		},
		Password: PasswordConfig{
			Memory:              65536,
			Time:                3,
			Parallelism:         2,
			SaltLength:          16,
			KeyLength:           32,
			MaxConcurrentHashes: 4,
		},
		TOTP: TOTPConfig{
			Issuer:    "goBroker",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		PKCE: PKCEConfig{
			CodeTTL: 10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		Janitor: JanitorConfig{
			Interval: 5 * time.Minute,
		},
		StoreTimeout: 3 * time.Second,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the Engine cannot run safely on.
// Build calls it after the Builder applies its overrides.
func (c *Config) Validate() error {
	if c.Token.DefaultTTL <= 0 {
		return errors.New("token default TTL must be positive")
	}
	if c.Token.MaxTTL <= 0 || c.Token.MaxTTL < c.Token.DefaultTTL {
		return errors.New("token max TTL must be at least the default TTL")
	}
	switch c.Token.SigningMethod {
	case "hs256":
		if len(c.Token.Secret) < 32 {
			return errors.New("hs256 requires a secret of at least 32 bytes")
		}
	case "ed25519":
		if len(c.Token.PrivateKey) == 0 || len(c.Token.PublicKey) == 0 {
			return errors.New("ed25519 requires both keys")
		}
	default:
		return errors.New("unsupported signing method")
	}
	if c.Token.RefreshThreshold < 0 || c.Token.RefreshThreshold >= 1 {
		return errors.New("refresh threshold must be in [0,1)")
	}

	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("totp digits must be 6..8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("totp skew must be 0..2")
	}

	if c.PKCE.CodeTTL <= 0 || c.PKCE.CodeTTL > maxCodeTTL {
		return errors.New("pkce code TTL must be positive and at most ten minutes")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MaxAttempts <= 0 {
			return errors.New("rate limit max attempts must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("rate limit window must be positive")
		}
	}

	if c.Janitor.Interval <= 0 {
		return errors.New("janitor interval must be positive")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("store timeout must be positive")
	}

	return nil
}
