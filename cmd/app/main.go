package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apiHttp "github.com/vibe-gaming/account-recovery/internal/api/http"
	"github.com/vibe-gaming/account-recovery/internal/cache"
	"github.com/vibe-gaming/account-recovery/internal/config"
	"github.com/vibe-gaming/account-recovery/internal/db"
	"github.com/vibe-gaming/account-recovery/internal/notification"
	"github.com/vibe-gaming/account-recovery/internal/queue/asynqserver"
	"github.com/vibe-gaming/account-recovery/internal/queue/client"
	"github.com/vibe-gaming/account-recovery/internal/repository"
	"github.com/vibe-gaming/account-recovery/internal/server"
	"github.com/vibe-gaming/account-recovery/internal/service"
	"github.com/vibe-gaming/account-recovery/internal/worker"
	"github.com/vibe-gaming/account-recovery/pkg/csrf"
	"github.com/vibe-gaming/account-recovery/pkg/email/smtp"
	"github.com/vibe-gaming/account-recovery/pkg/hash"
	"github.com/vibe-gaming/account-recovery/pkg/limiter"
	"github.com/vibe-gaming/account-recovery/pkg/logger"
	"github.com/vibe-gaming/account-recovery/pkg/otp"
)

const (
	rateLimitKeyPrefix = "reset:rl:"
	shutdownTimeout    = 5 * time.Second
)

func main() {
	// Init cfg from environment variables
	cfg := config.MustLoad()

	logger.SetupLogger(cfg.Env, cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Error("app failed", zap.Error(err), zap.String("stack", stackTrace(err)))
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("app stopped")
}

func run(cfg *config.Config) error {
	logger.Info("starting account recovery api", zap.String("env", cfg.Env))
	logger.Debug("debug messages are enabled")

	// Init database
	dbMySQL, err := db.New(cfg.Database)
	if err != nil {
		return errors.Wrap(err, "mysql connect problem")
	}
	defer func() {
		if err := dbMySQL.Close(); err != nil {
			logger.Error("error when closing mysql", zap.Error(err))
		}
	}()
	logger.Info("mysql connection done")

	// Init redis
	redisClient, err := cache.NewRedis(cfg.Cache)
	if err != nil {
		return errors.Wrap(err, "redis connect problem")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("error when closing redis", zap.Error(err))
		}
	}()
	logger.Info("redis connection done")

	windowLimiter, err := newWindowLimiter(cfg.Reset, redisClient)
	if err != nil {
		return errors.WithStack(err)
	}

	hasher := hash.NewSHA256Hasher(cfg.Reset.TokenPepper)
	otpGenerator := otp.NewGOTPGenerator()

	emailSender, err := smtp.NewSMTPSender(cfg.SMTP.From, cfg.SMTP.Pass, cfg.SMTP.Host, cfg.SMTP.Port)
	if err != nil {
		return errors.Wrap(err, "smtp sender creation failed")
	}

	csrfManager, err := csrf.NewManager(cfg.CSRF)
	if err != nil {
		return errors.Wrap(err, "csrf manager creation failed")
	}

	// Queue client
	asynqClient := asynq.NewClient(asynqserver.RedisOptions(cfg.Cache))
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("error when closing asynq client", zap.Error(err))
		}
	}()
	restoreClient := client.SetClient(asynqClient)
	defer restoreClient()

	// Repos, Workers, Services & API Handlers
	repos := repository.NewRepositories(dbMySQL)
	workers := worker.NewWorkers(worker.Deps{
		Repos:         repos,
		EmailProvider: emailSender,
		Config:        cfg,
	})

	notifier, err := notification.New(cfg, workers, nil)
	if err != nil {
		return errors.Wrap(err, "notifier creation failed")
	}

	services := service.NewServices(service.Deps{
		Config:       cfg,
		Hasher:       hasher,
		OtpGenerator: otpGenerator,
		Limiter:      windowLimiter,
		Notifier:     notifier,
		Repos:        repos,
	})
	handlers := apiHttp.NewHandlers(services, csrfManager, cfg)

	// Background processing
	asynqSrv, mux := asynqserver.New(cfg.Cache, workers)
	if err := asynqSrv.Start(mux); err != nil {
		return errors.Wrap(err, "asynq server start failed")
	}
	defer asynqSrv.Shutdown()

	scheduler, err := asynqserver.NewScheduler(cfg.Cache, cfg.Reset.CleanupSpec)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := scheduler.Start(); err != nil {
		return errors.Wrap(err, "asynq scheduler start failed")
	}
	defer scheduler.Shutdown()
	logger.Info("asynq workers started", zap.String("cleanup_spec", cfg.Reset.CleanupSpec))

	// HTTP Server
	routerCtx, stopRouter := context.WithCancel(context.Background())
	defer stopRouter()

	srv := server.NewServer(cfg, handlers.Init(routerCtx, cfg))
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Run(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logger.Info("server started", zap.String("port", cfg.HttpServer.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-quit:
	case err := <-serverErr:
		return errors.Wrap(err, "error occurred while running http server")
	}

	ctx, shutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdown()

	if err := srv.Stop(ctx); err != nil {
		return errors.Wrap(err, "failed to stop server")
	}

	return nil
}

func newWindowLimiter(cfg config.ResetConfig, redisClient redis.UniversalClient) (limiter.WindowLimiter, error) {
	switch cfg.RateLimitBackend {
	case config.RateLimitRedis:
		return limiter.NewRedisWindow(redisClient, rateLimitKeyPrefix), nil
	case config.RateLimitMemory:
		logger.Warn("in-memory reset rate limiter is per instance")
		return limiter.NewMemoryWindow(nil), nil
	default:
		return nil, errors.Errorf("unknown rate limit backend %q", cfg.RateLimitBackend)
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func stackTrace(err error) string {
	var st stackTracer
	if errors.As(err, &st) {
		return strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace()))
	}
	return ""
}
