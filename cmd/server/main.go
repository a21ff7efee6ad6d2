package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	bridgeapi "github.com/edulab-dev/lms-bridge/api/echo"
	"github.com/edulab-dev/lms-bridge/cache"
	redistore "github.com/edulab-dev/lms-bridge/cache/redis"
	"github.com/edulab-dev/lms-bridge/config"
	"github.com/edulab-dev/lms-bridge/downstream"
	"github.com/edulab-dev/lms-bridge/internal/auth"
	"github.com/edulab-dev/lms-bridge/internal/metrics"
	"github.com/edulab-dev/lms-bridge/internal/server"
	"github.com/edulab-dev/lms-bridge/mongodb"
	"github.com/edulab-dev/lms-bridge/moodle"
	"github.com/edulab-dev/lms-bridge/services"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db", cfg.MongoDBName).
		Str("moodle", cfg.MoodleBaseURL).
		Str("sync_schedule", cfg.SyncSchedule).
		Msg("starting lms-bridge")

	ctx := context.Background()

	mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	db := mongoClient.Database(cfg.MongoDBName)
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	// Repositories
	userRepo := mongodb.NewUserRepository(db)
	sessionRepo := mongodb.NewSessionRepository(db)
	tokenRepo := mongodb.NewTokenRepository(db)
	linkRepo := mongodb.NewLinkRepository(db)
	termRepo := mongodb.NewTermRepository(db)
	courseRepo := mongodb.NewCourseRepository(db)

	// Token cache: redis when configured, in-memory otherwise.
	var tokenCache cache.TokenStore
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		tokenCache = redistore.NewTokenStore(redisClient, "lms-bridge")
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis token cache")
	} else {
		tokenCache = cache.NewMemoryTokenStore()
	}

	// Remote clients
	moodleClient := moodle.NewClient(cfg.MoodleBaseURL, cfg.MoodleWSToken)
	var pushClient *downstream.Client
	if cfg.DownstreamURL != "" {
		pushClient = downstream.NewClient(cfg.DownstreamURL, cfg.DownstreamBearer)
	}

	// Services
	passwordHasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)
	tokenService := services.NewTokenService(
		userRepo, tokenRepo, tokenCache,
		cfg.TokenSecret, cfg.SharedAPIKey,
		time.Duration(cfg.TokenTTLMin)*time.Minute,
	)

	var erpPusher services.ERPUserPusher
	var coursePusher services.CoursePusher
	if pushClient != nil {
		erpPusher = pushClient
		coursePusher = pushClient
	}

	bridge := services.NewProvisioningBridge(moodleClient, linkRepo, erpPusher)
	accountService := services.NewAccountService(userRepo, sessionRepo, passwordHasher, bridge)
	reconciler := services.NewReconciler(
		moodleClient, linkRepo, termRepo, courseRepo, coursePusher,
		services.ReconcilePolicy{UpdateExisting: cfg.UpdateExisting},
	)

	scheduler, err := services.NewScheduler(cfg.SyncSchedule, reconciler)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("invalid sync schedule")
	}
	scheduler.Start()

	// Metrics + HTTP
	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	api, err := bridgeapi.NewBridgeAPI(accountService, tokenService, reconciler, cfg.MoodleBaseURL, cfg.AdminAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid moodle base url")
	}

	httpServer := server.NewHTTPServer(cfg, api, registry, func(ctx context.Context) error {
		return mongoClient.Ping(ctx, readpref.Primary())
	})
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scheduler.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongodb disconnect error")
	}
	log.Info().Msg("server gracefully stopped")
}
