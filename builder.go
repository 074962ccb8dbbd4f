package goBroker

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/goBroker/internal/rate"
	"github.com/MrEthical07/goBroker/internal/stores"
	"github.com/MrEthical07/goBroker/password"
	"github.com/MrEthical07/goBroker/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Construction is allocation-only until
// Build; no I/O happens before then.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	provider CredentialProvider
	logger   *slog.Logger

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTokenSecret sets the HS256 signing secret without replacing the
// rest of the configuration.
func (b *Builder) WithTokenSecret(secret []byte) *Builder {
	b.config.Token.Secret = cloneBytes(secret)
	return b
}

// WithRedis switches the code, CSRF, and rate stores from the in-process
// maps to Redis, making the broker safe to run as multiple replicas.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialProvider injects the user database integration. Required.
func (b *Builder) WithCredentialProvider(p CredentialProvider) *Builder {
	b.provider = p
	return b
}

// WithLogger sets the structured logger for security events. Absent a
// logger the engine stays silent.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration, wires the stores, starts the
// janitor, and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.provider == nil {
		return nil, errors.New("credential provider required")
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		DefaultTTL:       cfg.Token.DefaultTTL,
		MaxTTL:           cfg.Token.MaxTTL,
		SigningMethod:    token.SigningMethod(cfg.Token.SigningMethod),
		Secret:           cfg.Token.Secret,
		PrivateKey:       cfg.Token.PrivateKey,
		PublicKey:        cfg.Token.PublicKey,
		Issuer:           cfg.Token.Issuer,
		Leeway:           cfg.Token.Leeway,
		RefreshThreshold: cfg.Token.RefreshThreshold,
	})
	if err != nil {
		return nil, err
	}

	var (
		codeStore stores.CodeStore
		pairStore stores.PairStore
		rateStore rate.Store
	)
	if b.redis != nil {
		codeStore = stores.NewRedisCodeStore(b.redis, "")
		pairStore = stores.NewRedisPairStore(b.redis, "")
		rateStore = rate.NewRedisStore(b.redis)
	} else {
		codeStore = stores.NewMemoryCodeStore()
		pairStore = stores.NewMemoryPairStore()
		rateStore = rate.NewMemoryStore()
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	engine := &Engine{
		config:   cfg,
		provider: b.provider,
		hasher:   hasher,
		hashGate: password.NewGate(cfg.Password.MaxConcurrentHashes),
		tokens:   tokens,
		totp:     newTOTPVerifier(cfg.TOTP),
		codes:    codeStore,
		csrf:     newCSRFGuard(pairStore),
		logger:   logger,
	}
	if cfg.RateLimit.Enabled {
		engine.limiter = rate.New(rateStore, rate.Config{
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			Window:      cfg.RateLimit.Window,
		})
	}

	engine.janitor = newJanitor(engine, cfg.Janitor.Interval)
	engine.janitor.Start()

	b.built = true
	return engine, nil
}
