package bootstrap

import (
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/quizdeck/quiz-api/config"
	"github.com/quizdeck/quiz-api/internal/adapters/bcrypthash"
	"github.com/quizdeck/quiz-api/internal/adapters/mail"
	redisadapter "github.com/quizdeck/quiz-api/internal/adapters/redis"
	"github.com/quizdeck/quiz-api/internal/data"
	"github.com/quizdeck/quiz-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth     *service.AuthService
	Sessions *service.SessionService
	OTP      *service.OTPEngine
	Cache    *redisadapter.CacheRepo
	DB       *sql.DB
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildServices wires adapters and services from shared connections.
func BuildServices(deps ServiceDeps) ServiceContainer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
		cfg.Sanitize()
	}

	cache := redisadapter.NewCacheRepo(deps.RedisClient)
	sessionStore := redisadapter.NewSessionStore(deps.RedisClient, cfg.Auth.SessionTTL)
	hasher := bcrypthash.NewHasher(cfg.Auth.BcryptCost)
	mailer := mail.NewMailer(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	userRepo := data.NewUserRepo(deps.DB)

	otp := service.NewOTPEngine(cache, service.OTPConfig{
		CodeTTL:  cfg.Auth.OTPCodeTTL,
		GrantTTL: cfg.Auth.OTPGrantTTL,
	})
	sessions := service.NewSessionService(service.SessionServiceOptions{
		Store:     sessionStore,
		Cache:     cache,
		ScanCount: cfg.Auth.RevocationScanCount,
		Logger:    logger,
	})
	auth := service.NewAuthService(service.AuthServiceOptions{
		Users:    userRepo,
		Hasher:   hasher,
		OTP:      otp,
		Sessions: sessions,
		Mail:     mailer,
		Logger:   logger,
	})

	return ServiceContainer{
		Auth:     auth,
		Sessions: sessions,
		OTP:      otp,
		Cache:    cache,
		DB:       deps.DB,
	}
}
