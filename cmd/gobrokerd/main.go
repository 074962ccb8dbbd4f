// Command gobrokerd runs the authentication broker as a standalone HTTP
// service backed by Postgres credentials and, optionally, Redis session
// stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	goBroker "github.com/MrEthical07/goBroker"
	"github.com/MrEthical07/goBroker/credstore"
	"github.com/MrEthical07/goBroker/httpapi"
)

type settings struct {
	ListenAddr    string        `env:"BROKER_LISTEN" envDefault:":8080"`
	PostgresDSN   string        `env:"BROKER_POSTGRES_DSN,required"`
	RedisAddr     string        `env:"BROKER_REDIS_ADDR"`
	TokenSecret   string        `env:"BROKER_TOKEN_SECRET,required"`
	TokenIssuer   string        `env:"BROKER_TOKEN_ISSUER" envDefault:"gobrokerd"`
	TokenTTL      time.Duration `env:"BROKER_TOKEN_TTL" envDefault:"60m"`
	SecureCookies bool          `env:"BROKER_SECURE_COOKIES" envDefault:"true"`
	LogLevel      slog.Level    `env:"BROKER_LOG_LEVEL" envDefault:"info"`
	Migrate       bool          `env:"BROKER_MIGRATE" envDefault:"false"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gobrokerd:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg settings
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds, err := credstore.NewPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer creds.Close()

	if cfg.Migrate {
		if err := creds.Migrate(); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	brokerCfg := buildBrokerConfig(cfg)
	builder := goBroker.New().
		WithConfig(brokerCfg).
		WithTokenSecret([]byte(cfg.TokenSecret)).
		WithCredentialProvider(creds).
		WithLogger(logger)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		defer rdb.Close()
		builder = builder.WithRedis(rdb)
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	api := httpapi.New(engine, logger, httpapi.Config{
		SecureCookies: cfg.SecureCookies,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func buildBrokerConfig(cfg settings) goBroker.Config {
	brokerCfg := goBroker.DefaultConfig()
	brokerCfg.Token.Issuer = cfg.TokenIssuer
	brokerCfg.Token.DefaultTTL = cfg.TokenTTL
	return brokerCfg
}
