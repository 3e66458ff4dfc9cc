// @title        IAM Engine API
// @version      1.0
// @description  Multi-tenant authentication and authorization service.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/api"
	"github.com/99minutos/iam-engine/internal/api/handler"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/core/service"
	"github.com/99minutos/iam-engine/internal/infrastructure/cryptoprovider"
	mongodb "github.com/99minutos/iam-engine/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/iam-engine/internal/infrastructure/db/redis"
	"github.com/99minutos/iam-engine/internal/infrastructure/queue"
	"github.com/99minutos/iam-engine/internal/pkg/config"
	"github.com/99minutos/iam-engine/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "iam-api",
		Version: version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("iam-api stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	users := mongodb.NewUserRepository(db)
	accounts := mongodb.NewAccountRepository(db)
	roles := mongodb.NewRoleRepository(db)
	groups := mongodb.NewGroupRepository(db)
	permissions := mongodb.NewPermissionRepository(db)
	readiness := map[string]handler.CheckFunc{"mongodb": handler.MongoCheck(db)}

	var tokens ports.TrackedTokenRepository = mongodb.NewTokenRepository(db)
	if cfg.Token.Store == "redis" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			PoolSize:  cfg.Redis.PoolSize,
			OpTimeout: 3 * time.Second,
		})
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		tokens = redisdb.NewTokenRepository(rdb, cfg.Token.Retention)
		readiness["redis"] = handler.RedisCheck(rdb)
	}

	// --- Audit ---
	var publisher queue.Publisher = queue.NewLogPublisher(log)
	if cfg.AMQP.URL != "" {
		amqpPub, err := queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		defer func() { _ = amqpPub.Close() }()
		publisher = amqpPub
	}
	// Audit workers outlive the signal so events from in-flight requests are
	// still delivered during HTTP shutdown.
	audit := queue.NewDispatcher(cfg.Audit.Workers, publisher, log)
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	audit.Start(auditCtx)

	// --- Key material ---
	material, err := cfg.Keys.SystemKeyBytes()
	if err != nil {
		return err
	}
	systemKey, err := cryptoprovider.NewStaticSystemKey(material, cfg.Keys.SystemKeyVersion, cfg.Keys.SystemKeyAlgorithm)
	if err != nil {
		return err
	}
	keys, err := service.NewKeyMaterialProvider(systemKey, cryptoprovider.NewRegistry(), service.KeyAlgorithms{
		Symmetric:  cfg.Keys.Symmetric,
		Encryption: cfg.Keys.Encryption,
		Signature:  cfg.Keys.Signature,
	}, cfg.Keys.VerificationCacheSize)
	if err != nil {
		return err
	}

	// --- Services ---
	tokenOpts := service.TokenOptions{
		TTL:       cfg.Token.TTL(),
		Issuer:    cfg.Token.Issuer,
		Audience:  cfg.Token.Audience,
		ClockSkew: cfg.Token.ClockSkew,
	}
	issuer := service.NewTokenIssuer(users, accounts, tokens, keys, tokenOpts, log)
	validator := service.NewTokenValidator(users, tokens, keys, tokenOpts, log)
	revoker := service.NewTokenRevoker(tokens, log)
	resolver := service.NewPermissionResolver(users, groups, permissions)

	loginPolicy := service.LoginPolicy{
		MaxFailedAttempts: cfg.Login.MaxFailedAttempts,
		LockoutDuration:   cfg.Login.LockoutDuration,
	}
	authService := service.NewAuthService(users, cryptoprovider.NewBcryptHasher(0), keys, issuer, revoker, audit, loginPolicy, log)
	accountService := service.NewAccountService(users, accounts, roles, permissions, keys, log)
	membershipService := service.NewMembershipService(users, roles, groups, audit, log)

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Log:                log,
		Tokens:             validator,
		Resolver:           resolver,
		Audit:              audit,
		Auth:               authService,
		Accounts:           accountService,
		Membership:         membershipService,
		Readiness:          readiness,
		LoginRatePerSecond: cfg.Login.RatePerSecond,
		LoginBurst:         cfg.Login.Burst,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("iam-api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = e.Shutdown(shutdownCtx)
	stopAudit()
	audit.Wait()
	return err
}
