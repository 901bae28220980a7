package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-pilot/internal/api/http"
	"github.com/spec-kit/support-pilot/internal/api/http/handlers"
	"github.com/spec-kit/support-pilot/internal/auth"
	"github.com/spec-kit/support-pilot/internal/config"
	"github.com/spec-kit/support-pilot/internal/engine"
	"github.com/spec-kit/support-pilot/internal/events"
	"github.com/spec-kit/support-pilot/internal/intent"
	"github.com/spec-kit/support-pilot/internal/knowledge"
	"github.com/spec-kit/support-pilot/internal/observability"
	"github.com/spec-kit/support-pilot/internal/persistence"
	"github.com/spec-kit/support-pilot/internal/repository"
	"github.com/spec-kit/support-pilot/internal/service"
	"github.com/spec-kit/support-pilot/internal/session"
	"github.com/spec-kit/support-pilot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	var ticketRepo repository.TicketRepository
	var traceSink observability.TraceSink
	if pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		traceSink = repository.NewTraceRepository(pool)
	} else {
		logger.Warn("running with in-memory ticket store; tickets will not survive restart")
		ticketRepo = repository.NewMemoryTicketRepository()
	}
	sessionRepo := repository.NewRedisSessionRepository(redis.Client)

	metrics := observability.NewMetrics()
	tracer := observability.NewTracer(metrics, traceSink, logger)

	dispatcher := events.NewInMemoryDispatcher()
	ticketService := service.NewTicketService(ticketRepo, dispatcher, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	sessions := session.NewStore(sessionRepo, logger)

	kb, err := knowledge.NewKeywordBase(cfg.Knowledge.Path)
	if err != nil {
		logger.Fatal("failed to load knowledge base", zap.Error(err))
	}
	lookup := knowledge.WithRetry(kb, 0, logger)

	var classifier intent.Classifier
	if cfg.Gemini.APIKey != "" {
		classifier, err = intent.NewGeminiClassifier(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
		if err != nil {
			logger.Fatal("failed to init gemini classifier", zap.Error(err))
		}
		logger.Info("using gemini intent classifier", zap.String("model", cfg.Gemini.Model))
	} else {
		classifier = intent.NewKeywordClassifier()
		logger.Info("using keyword intent classifier")
	}

	orchestrator := engine.NewOrchestrator(sessions, ticketService, classifier, lookup, tracer, dispatcher, logger)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(tokenManager, cfg.Auth),
		Turns:          handlers.NewTurnsHandler(orchestrator),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Metrics:        handlers.NewMetricsHandler(metrics, logger),
		Sessions:       handlers.NewSessionsHandler(sessions),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
