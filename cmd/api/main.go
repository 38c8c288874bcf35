package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/medbook/medbook-api/internal/config"
	"github.com/medbook/medbook-api/internal/handler"
	authHandler "github.com/medbook/medbook-api/internal/handler/auth"
	directoryHandler "github.com/medbook/medbook-api/internal/handler/directory"
	doctorHandler "github.com/medbook/medbook-api/internal/handler/doctor"
	patientHandler "github.com/medbook/medbook-api/internal/handler/patient"
	"github.com/medbook/medbook-api/internal/middleware"
	"github.com/medbook/medbook-api/internal/repository/postgres"
	"github.com/medbook/medbook-api/internal/router"
	authService "github.com/medbook/medbook-api/internal/service/auth"
	bookingService "github.com/medbook/medbook-api/internal/service/booking"
	directoryService "github.com/medbook/medbook-api/internal/service/directory"
	scheduleService "github.com/medbook/medbook-api/internal/service/scheduleapi"
	"github.com/medbook/medbook-api/pkg/auth"
	"github.com/medbook/medbook-api/pkg/logger"
	"github.com/medbook/medbook-api/pkg/messaging/redis"
	"github.com/medbook/medbook-api/pkg/metrics"
	"github.com/medbook/medbook-api/pkg/security"
	"github.com/medbook/medbook-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("medbook")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	hasher := security.NewBcryptHasher(security.DefaultBcryptCost)
	authSvc := authService.NewService(userRepo, jwtSvc, hasher)
	bookingSvc := bookingService.NewService(appointmentRepo, userRepo, outboxRepo, appMetrics, appLogger)
	scheduleSvc := scheduleService.NewService(userRepo, appMetrics)
	directorySvc := directoryService.NewService(userRepo)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	// Handlers
	h := handler.NewHandler(db)
	authH := authHandler.NewHandler(authSvc, directorySvc)
	doctorH := doctorHandler.NewHandler(bookingSvc, scheduleSvc)
	patientH := patientHandler.NewHandler(bookingSvc)
	directoryH := directoryHandler.NewHandler(directorySvc)

	r := router.NewRouter(authMiddleware, authH, doctorH, patientH, directoryH, h, router.RouterConfig{
		RateLimitRPS:  cfg.RateLimit.RPS,
		RateBurst:     cfg.RateLimit.Burst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "medbook_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// Message broker and outbox processor
	zerologLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &zerologLogger)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	processorCtx, stopProcessor := context.WithCancel(context.Background())
	defer stopProcessor()

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, appLogger, appMetrics)
	go outboxProcessor.Start(processorCtx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	zlog.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("shutting down server...")

	stopProcessor()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal().Err(err).Msg("server forced to shutdown")
	}

	zlog.Info().Msg("server exited properly")
}
