package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/caretrack/referral-platform/internal/campaigns"
	"github.com/caretrack/referral-platform/internal/fraud"
	"github.com/caretrack/referral-platform/internal/notifications"
	"github.com/caretrack/referral-platform/internal/referrals"
	"github.com/caretrack/referral-platform/internal/rewards"
	"github.com/caretrack/referral-platform/internal/signals"
	"github.com/caretrack/referral-platform/pkg/common"
	"github.com/caretrack/referral-platform/pkg/config"
	"github.com/caretrack/referral-platform/pkg/database"
	"github.com/caretrack/referral-platform/pkg/logger"
	"github.com/caretrack/referral-platform/pkg/middleware"
	"github.com/caretrack/referral-platform/pkg/ratelimit"
	"github.com/caretrack/referral-platform/pkg/redis"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load("referral-api")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Connect to PostgreSQL
	db, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	// Connect to Redis
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	// Repositories
	signalStore := signals.NewRepository(db)
	fraudRepo := fraud.NewRepository(db)
	campaignRepo := campaigns.NewRepository(db)
	referralRepo := referrals.NewRepository(db)
	rewardRepo := rewards.NewRepository(db)

	// Services
	notifier := notifications.NewService(cfg.Notifications)

	campaignService := campaigns.NewService(campaignRepo)

	scorer := fraud.NewScorer(signalStore)
	fraudController := fraud.NewController(scorer, fraudRepo, signalStore)

	rewardEngine := rewards.NewEngine(rewardRepo, campaignService,
		rewards.NewGiftCardIssuer(rewardRepo, rewards.LogGiftCardProvider{}, notifier),
		rewards.NewCreditIssuer(rewardRepo, rewards.LogAccountCreditor{}, notifier),
		rewards.NewSwagIssuer(rewardRepo, notifier),
	)

	detector := referrals.NewDetector(referralRepo, campaignService)
	registry := referrals.NewRegistry(referralRepo, campaignService)
	referralService := referrals.NewService(referralRepo, detector, rewardEngine, signalStore)

	// Handlers
	fraudHandler := fraud.NewHandler(fraudController)
	campaignHandler := campaigns.NewHandler(campaignService)
	referralHandler := referrals.NewHandler(referralService, registry)
	rewardHandler := rewards.NewHandler(rewardEngine)

	// Router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"}
	router.Use(cors.New(corsConfig))

	// Health check and metrics (no auth required)
	router.GET("/healthz", common.HealthCheckWithDeps(cfg.Server.ServiceName, version, map[string]common.Probe{
		"postgres": db.Ping,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := ratelimit.NewLimiter(redisClient.Client, cfg.RateLimit)

	api := router.Group("/api/v1")

	// Public referral link resolution, rate limited per client
	public := api.Group("/")
	public.Use(limiter.Middleware())

	// Internal endpoints are called service-to-service inside the
	// platform network
	internalGroup := api.Group("/internal")

	// Admin endpoints require an authenticated admin token
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RequireAdmin())

	// Webhooks are verified by HMAC signature
	webhooks := api.Group("/webhooks")
	webhooks.Use(middleware.WebhookSignature(cfg.Webhook.Secret))

	fraudHandler.RegisterRoutes(internalGroup, admin)
	campaignHandler.RegisterRoutes(admin)
	referralHandler.RegisterRoutes(public, internalGroup, webhooks)
	rewardHandler.RegisterRoutes(admin)

	// Background campaign expiry sweep
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	expiryWorker := campaigns.NewExpiryWorker(campaignRepo, cfg.Campaigns.ExpiryInterval)
	go expiryWorker.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("referral platform API starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
