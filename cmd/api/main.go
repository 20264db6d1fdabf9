package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	_ "github.com/lib/pq"

	"github.com/jwalitptl/notify-api/internal/config"
	eventHandler "github.com/jwalitptl/notify-api/internal/handler/event"
	"github.com/jwalitptl/notify-api/internal/handler/health"
	jobHandler "github.com/jwalitptl/notify-api/internal/handler/job"
	messageHandler "github.com/jwalitptl/notify-api/internal/handler/message"
	"github.com/jwalitptl/notify-api/internal/middleware"
	"github.com/jwalitptl/notify-api/internal/repository/postgres"
	"github.com/jwalitptl/notify-api/internal/router"
	"github.com/jwalitptl/notify-api/internal/service/composer"
	"github.com/jwalitptl/notify-api/internal/service/dispatcher"
	"github.com/jwalitptl/notify-api/internal/service/eventlog"
	"github.com/jwalitptl/notify-api/internal/service/executor"
	"github.com/jwalitptl/notify-api/internal/service/scheduler"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/messaging/redis"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("notify", "api")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Repositories
	base := postgres.NewBaseRepository(db)
	messageRepo := postgres.NewMessageRepository(base)
	jobRepo := postgres.NewJobRepository(base)
	templateRepo := postgres.NewTemplateRepository(base)
	eventLogRepo := postgres.NewEventLogRepository(base)
	providerRepo := postgres.NewProviderRepository(base)
	recipientRepo := postgres.NewRecipientRepository(base)

	// Services
	eventLogger := eventlog.NewLogger(eventLogRepo, appLogger, appMetrics)
	eventSvc := eventlog.NewService(eventLogRepo, appLogger)
	composerSvc := composer.NewService(messageRepo, templateRepo, eventLogger, appMetrics)
	schedulerClient := scheduler.NewClient(jobRepo, eventLogger, cfg.Scheduler, appLogger, appMetrics)
	dispatchSvc := dispatcher.NewService(
		dispatcher.NewCachedSelector(providerRepo, cfg.Dispatch.ProviderCacheTTL),
		dispatcher.NewSMTPSender(),
		dispatcher.NewSNSSender(),
		broker,
		eventLogger,
		appLogger,
		appMetrics,
		cfg.Dispatch.SendTimeout,
	)
	executorSvc := executor.NewService(
		jobRepo,
		messageRepo,
		templateRepo,
		recipientRepo,
		composerSvc,
		dispatchSvc,
		eventLogger,
		appLogger,
		appMetrics,
	)

	// Handlers
	healthH := health.NewHandler(db, broker.Client())
	messageH := messageHandler.NewHandler(composerSvc, schedulerClient)
	jobH := jobHandler.NewHandler(executorSvc)
	eventH := eventHandler.NewHandler(eventSvc)

	r := router.NewRouter(healthH, messageH, jobH, eventH, router.Config{
		RateLimit:     rate.Limit(100),
		RateBurst:     200,
		CORSConfig:    middleware.DefaultCORSConfig(),
		Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		MetricsPrefix: "notify_api",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
