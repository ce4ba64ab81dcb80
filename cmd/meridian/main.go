package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-lms/meridian-lms/internal/app"
	"github.com/meridian-lms/meridian-lms/internal/audit"
	"github.com/meridian-lms/meridian-lms/internal/auth"
	"github.com/meridian-lms/meridian-lms/internal/courses"
	"github.com/meridian-lms/meridian-lms/internal/enrollment"
	"github.com/meridian-lms/meridian-lms/internal/identity"
	"github.com/meridian-lms/meridian-lms/internal/observability"
	"github.com/meridian-lms/meridian-lms/internal/platform/cache"
	"github.com/meridian-lms/meridian-lms/internal/platform/db"
	"github.com/meridian-lms/meridian-lms/internal/ratelimit"
	"github.com/meridian-lms/meridian-lms/internal/token"
	"github.com/meridian-lms/meridian-lms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	codec, err := token.New(cfg.TokenSecret, cfg.IsProduction(), logger)
	if err != nil {
		logger.Error("init token codec", slog.Any("error", err))
		os.Exit(1)
	}

	cookieCfg := auth.CookieConfig{
		SessionCookie:  cfg.SessionCookieName,
		CSRFCookie:     cfg.CSRFCookieName,
		CSRFHeader:     cfg.CSRFHeaderName,
		SameSite:       cfg.SameSite(),
		Secure:         cfg.IsProduction(),
		BearerFallback: cfg.BearerFallback,
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	recorder := audit.NewQueueRecorder(asynqClient, logger)

	identityRepo := identity.NewRepository(pool)
	identityService := identity.NewService(identityRepo)
	identityHandler := identity.NewHandler(logger, identityService, recorder)

	authenticator := auth.NewAuthenticator(codec, identityService, cookieCfg, logger)
	csrfGuard := auth.NewCSRFGuard(cookieCfg)
	authHandler := auth.NewHandler(logger, identityService, codec, cookieCfg)

	courseRepo := courses.NewRepository(pool)
	courseService := courses.NewService(courseRepo, recorder)
	courseHandler := courses.NewHandler(logger, courseService)

	enrollmentRepo := enrollment.NewRepository(pool)
	enrollmentService := enrollment.NewService(enrollmentRepo, courseRepo, recorder)
	enrollmentHandler := enrollment.NewHandler(logger, enrollmentService)

	auditStore := audit.NewStore(pool)
	auditHandler := audit.NewHandler(logger, auditStore)

	loginLimiter := ratelimit.New(ratelimit.Config{
		Window:  cfg.LoginRateWindow,
		Max:     cfg.LoginRateMax,
		Message: "too many login attempts",
	}, ratelimit.NewRedisStore(redisClient), logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Authenticator:     authenticator,
		CSRFGuard:         csrfGuard,
		LoginLimiter:      loginLimiter,
		AuthHandler:       authHandler,
		CourseHandler:     courseHandler,
		EnrollmentHandler: enrollmentHandler,
		IdentityHandler:   identityHandler,
		AuditHandler:      auditHandler,
		JobsHandler:       jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
