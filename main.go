package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assessment-service/internal/attempt"
	"assessment-service/internal/cache"
	"assessment-service/internal/config"
	"assessment-service/internal/db"
	"assessment-service/internal/discovery"
	"assessment-service/internal/event"
	"assessment-service/internal/handlers"
	"assessment-service/internal/logger"
	"assessment-service/internal/metrics"
	"assessment-service/internal/repository"
	"assessment-service/internal/repository/memory"
	"assessment-service/internal/repository/sqlite"
	"assessment-service/internal/selection"
	"assessment-service/internal/service"
	"assessment-service/internal/stats"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			log.Warn("Failed to close store", zap.Error(err))
		}
	}()

	if redisClient := db.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log); redisClient != nil {
		defer redisClient.Close()
		if cfg.Redis.SetCacheTTL > 0 {
			stores.QuestionSets = cache.NewQuestionSetCache(stores.QuestionSets, redisClient, cfg.Redis.SetCacheTTL, log)
		}
	}

	publisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer publisher.Close()

	// Engine
	aggregator := stats.NewAggregator(stores.Questions, log)
	tracker := attempt.NewTracker(stores, aggregator, publisher, log, cfg.TrackerConfig())
	engine := attempt.NewDeadline(tracker, stores.Attempts, time.Now)
	selector := selection.NewSelector(stores.Questions, cfg.SelectorConfig())

	sweeper := attempt.NewSweeper(engine, stores.Attempts, cfg.SweeperConfig(), log)
	go sweeper.Run(ctx)

	// Services and handlers
	examService := service.NewExamService(selector, stores.QuestionSets, publisher, log)
	questionService := service.NewQuestionService(stores.Questions)
	attemptService := service.NewAttemptService(engine, stores.Attempts)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "X-User-ID", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(metrics.MetricsMiddleware())
	r.GET("/metrics", metrics.PrometheusHandler())

	handlers.SetupRoutes(r, handlers.Handlers{
		Exams:     handlers.NewExamHandler(examService, log),
		Questions: handlers.NewQuestionHandler(questionService, log),
		Attempts:  handlers.NewAttemptHandler(attemptService, log),
	}, handlers.RateLimit(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst))

	if cfg.Consul.Address != "" {
		registry, err := discovery.NewServiceRegistry(cfg.Consul.Address, discovery.Registration{
			ServiceID:      cfg.Consul.ServiceID,
			ServiceName:    cfg.Consul.ServiceName,
			ServiceAddress: serviceAddress(cfg),
			Port:           cfg.Port,
		}, log)
		if err != nil {
			log.Fatal("Failed to create service registry", zap.Error(err))
		}
		if err := registry.Register(); err != nil {
			log.Warn("Failed to register with Consul", zap.Error(err))
		} else {
			defer func() {
				if err := registry.Deregister(); err != nil {
					log.Warn("Failed to deregister from Consul", zap.Error(err))
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		log.Info("Assessment service listening", zap.String("port", cfg.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*repository.Stores, error) {
	switch cfg.Store.Driver {
	case "mongo":
		client, err := db.ConnectMongo(ctx, cfg.Store.MongoURI, log)
		if err != nil {
			return nil, err
		}
		return repository.NewMongoStores(ctx, client, cfg.Store.MongoDB)
	case "sqlite":
		store, err := sqlite.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store.Stores(), nil
	default:
		log.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStores(), nil
	}
}

func serviceAddress(cfg *config.Config) string {
	if cfg.Consul.ServiceAddress != "" {
		return cfg.Consul.ServiceAddress
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "localhost"
}
