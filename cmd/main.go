package main

import (
	"context"
	"fmt"
	"log" // standard log for errors before zap is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/cache"
	"github.com/fathima-sithara/konga-enrollment/internal/config"
	"github.com/fathima-sithara/konga-enrollment/internal/database"
	"github.com/fathima-sithara/konga-enrollment/internal/events"
	"github.com/fathima-sithara/konga-enrollment/internal/handlers"
	"github.com/fathima-sithara/konga-enrollment/internal/logger"
	"github.com/fathima-sithara/konga-enrollment/internal/metrics"
	"github.com/fathima-sithara/konga-enrollment/internal/middleware"
	"github.com/fathima-sithara/konga-enrollment/internal/report"
	"github.com/fathima-sithara/konga-enrollment/internal/repository"
	"github.com/fathima-sithara/konga-enrollment/internal/routes"
	"github.com/fathima-sithara/konga-enrollment/internal/server"
	"github.com/fathima-sithara/konga-enrollment/internal/services"
	"github.com/fathima-sithara/konga-enrollment/internal/storage"
	"github.com/fathima-sithara/konga-enrollment/internal/utils"
	"github.com/fathima-sithara/konga-enrollment/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(logger.Config{Development: cfg.IsDevelopment(), Level: cfg.Log.Level})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() {
		_ = zl.Sync()
	}()
	sugar := zl.Sugar()
	sugar.Infof("Starting konga-enrollment in %s environment on port %d", cfg.App.Env, cfg.App.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, mongoClient, err := database.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.ConnectRetry, sugar)
	if err != nil {
		sugar.Fatal(err)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, sugar)
		if err != nil {
			sugar.Fatal(err)
		}
	} else {
		sugar.Warn("Redis not configured. Using in-process token store and rate limiter.")
	}

	metrics.Init()

	enrolleeRepo := repository.NewMongoEnrolleeRepo(db, cfg.Mongo.EnrolleeCollection)
	referralRepo := repository.NewMongoReferralRepo(db, cfg.Mongo.ReferralCollection)
	notificationRepo := repository.NewNotificationRepo(db, cfg.Mongo.NotificationCollection)
	accountRepo := repository.NewMongoAccountRepo(db, cfg.Mongo.AccountCollection)
	sequencer := repository.NewMongoSequencer(db, cfg.Mongo.CounterCollection)
	statsRepo := repository.NewMongoStatsRepo(db, cfg.Mongo.EnrolleeCollection, cfg.Mongo.ReferralCollection)

	var tokens services.TokenStore = cache.NewMemoryTokenStore()
	if rdb != nil {
		tokens = cache.NewRedisTokenStore(rdb)
	}

	hub := ws.NewHub(zl)
	notificationSvc := services.NewNotificationService(notificationRepo, hub, zl)

	var (
		publisher events.Publisher
		producer  *events.Producer
		consumer  *events.Consumer
	)
	if cfg.Kafka.Enabled {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, events.BreakerConfig{
			MaxFailures: cfg.Kafka.MaxFailures,
			OpenTimeout: time.Duration(cfg.Kafka.OpenSeconds) * time.Second,
		}, zl)
		consumer = events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, notificationSvc, zl)
		publisher = producer
		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				sugar.Errorf("Kafka consumer stopped: %v", err)
			}
		}()
		sugar.Infof("Kafka events enabled on topic %s", cfg.Kafka.Topic)
	} else {
		publisher = events.NewLocalPublisher(zl, notificationSvc)
		sugar.Info("Kafka disabled. Delivering events in process.")
	}

	opts := report.Options{
		OutputDir: cfg.Report.OutputDir,
		URLPrefix: cfg.Report.URLPrefix,
		LogoPath:  cfg.Report.LogoPath,
	}
	if cfg.S3.Enabled {
		store, err := storage.NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Endpoint, cfg.PresignTTL)
		if err != nil {
			sugar.Fatalf("S3 client: %v", err)
		}
		opts.Uploader = store
	}
	exporter, err := report.NewExporter(opts, zl)
	if err != nil {
		sugar.Fatalf("report exporter: %v", err)
	}

	validate := utils.NewValidator()
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.TokenTTL)

	authSvc := services.NewAuthService(accountRepo, enrolleeRepo, jwtManager, tokens, zl)
	enrolleeSvc := services.NewEnrolleeService(enrolleeRepo, referralRepo, sequencer, authSvc, publisher, validate, zl)
	referralSvc := services.NewReferralService(referralRepo, validate)
	statsSvc := services.NewStatsService(statsRepo)
	reportSvc := services.NewReportService(enrolleeRepo, statsRepo, exporter)

	if err := authSvc.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		sugar.Fatalf("seed admin: %v", err)
	}

	var enrollLimit fiber.Handler
	var ipLimiter *middleware.IPRateLimiter
	if rdb != nil {
		rl := middleware.NewRateLimiter(rdb, "rl:enroll", cfg.RateLimit.EnrollPerMinute, time.Minute, zl)
		enrollLimit = rl.MiddlewareByKey(middleware.ClientIP)
	} else {
		ipLimiter = middleware.NewIPRateLimiter(cfg.RateLimit.EnrollPerMinute, zl)
		enrollLimit = ipLimiter.Handler()
	}

	app := server.New(cfg, zl, routes.Handlers{
		Enrollees:     handlers.NewEnrolleeHandler(enrolleeSvc, statsSvc, reportSvc, zl),
		Referrals:     handlers.NewReferralHandler(referralSvc, zl),
		Stats:         handlers.NewStatsHandler(statsSvc, reportSvc, zl),
		Notifications: handlers.NewNotificationHandler(notificationSvc, hub, zl),
		Auth:          handlers.NewAuthHandler(authSvc, validate, zl),
	}, routes.Guards{
		Auth:        middleware.JWTMiddleware(jwtManager, tokens, zl),
		QueryAuth:   middleware.QueryTokenMiddleware(jwtManager, tokens, zl),
		EnrollLimit: enrollLimit,
	})

	go func() {
		listenAddr := fmt.Sprintf(":%d", cfg.App.Port)
		sugar.Infof("Server listening on %s", listenAddr)
		if err := app.Listen(listenAddr); err != nil {
			sugar.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("Shutting down server...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShut()

	if err := app.ShutdownWithContext(ctxShut); err != nil {
		sugar.Errorf("Fiber app shutdown error: %v", err)
	}
	if ipLimiter != nil {
		ipLimiter.Close()
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			sugar.Errorf("Kafka consumer close error: %v", err)
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			sugar.Errorf("Kafka producer close error: %v", err)
		}
	}
	if err := mongoClient.Disconnect(ctxShut); err != nil {
		sugar.Errorf("MongoDB disconnect error: %v", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			sugar.Errorf("Redis client close error: %v", err)
		}
	}

	sugar.Info("Graceful shutdown complete.")
}
