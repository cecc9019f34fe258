package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	linkapi "github.com/cousinlabs/cousin-link/api/echo"
	redisstore "github.com/cousinlabs/cousin-link/cache/redis"
	"github.com/cousinlabs/cousin-link/config"
	"github.com/cousinlabs/cousin-link/internal/chain"
	"github.com/cousinlabs/cousin-link/internal/federation"
	"github.com/cousinlabs/cousin-link/internal/server"
	"github.com/cousinlabs/cousin-link/internal/token"
	"github.com/cousinlabs/cousin-link/internal/wallet"
	"github.com/cousinlabs/cousin-link/log"
	"github.com/cousinlabs/cousin-link/mongodb"
	"github.com/cousinlabs/cousin-link/services"
	"github.com/cousinlabs/cousin-link/tracing"
)

var (
	appLogger      log.Logger
	httpServer     *http.Server
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Warn().
			Str("configured_log_level", cfg.LogLevel).
			Str("fallback_log_level", logLevel.String()).
			Err(parseErr).
			Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	appLogger = log.NewZerologAdapter(logLevel, cfg.LogPretty)
	appLogger.Info(context.Background(), "Starting cousin-link server...")
	appLogger.Info(context.Background(), "Configuration loaded", map[string]interface{}{
		"http_port":     cfg.HTTPPort,
		"base_url":      cfg.BaseURL,
		"mongo_db_name": cfg.MongoDBName,
		"redis_addr":    cfg.RedisAddr,
		"log_level":     cfg.LogLevel,
		"otel_service":  cfg.OtelServiceName,
		"collection":    cfg.NFTCollectionAddress,
	})

	if !wallet.ValidAddress(cfg.NFTCollectionAddress) {
		appLogger.Fatal(context.Background(), "NFT_COLLECTION_ADDRESS is not a valid base58 address", nil, map[string]interface{}{
			"collection": cfg.NFTCollectionAddress,
		})
	}

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(context.Background(), "Failed to initialize TracerProvider", err, nil)
	}
	tracerProvider = tp

	ctx := context.Background()
	if initErr := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); initErr != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", initErr, nil)
	}
	db := mongodb.GetDB()

	identityRepo, err := mongodb.NewIdentityRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize IdentityRepository", err, nil)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
		appLogger.Fatal(ctx, "Failed to connect to Redis", pingErr, nil)
	}

	nonces := redisstore.NewNonceRegistry(redisClient, "cousin-link", 2*wallet.DefaultTolerance)
	limiter := redisstore.NewRateLimiter(redisClient, "cousin-link", cfg.RateLimitRequests, cfg.RateLimitWindow)

	verifier := wallet.NewVerifier()
	oracle := chain.NewDASOracle(cfg.SolanaRPCURL)

	xProvider, err := federation.NewXProvider(cfg.XClientID, cfg.XClientSecret)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize X OAuth provider", err, nil)
	}
	fedService := federation.NewService(xProvider, cfg.BaseURL+"/auth/x/callback", token.NewState)
	resolver := federation.NewHandleResolver(cfg.HandleResolverURL)

	verificationSvc := services.NewVerificationService(verifier, oracle, identityRepo, nonces, cfg.NFTCollectionAddress)
	bridgeSvc := services.NewTokenBridge(identityRepo)
	linkingSvc := services.NewLinkingService(identityRepo, resolver, verifier, nonces)

	api := linkapi.NewLinkAPI(
		verificationSvc,
		bridgeSvc,
		linkingSvc,
		fedService,
		limiter,
		cfg.BaseURL,
		mongodb.Ping,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)

	httpServer = server.NewHTTPServer(cfg, appLogger, api)
	go func() {
		appLogger.Info(context.Background(), fmt.Sprintf("HTTP server listening on port %s", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(context.Background(), "Failed to start HTTP server", err, nil)
		}
	}()

	appLogger.Info(context.Background(), "Server components initialized. Waiting for interrupt signal...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit

	appLogger.Info(context.Background(), fmt.Sprintf("Received signal: %v. Shutting down server...", receivedSignal))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "HTTP server shutdown error", err, nil)
		}
	}

	fedService.Stop()

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err, nil)
		}
	}

	if err := redisClient.Close(); err != nil {
		appLogger.Error(shutdownCtx, "Redis client close error", err, nil)
	}

	mongodb.CloseMongoDB(shutdownCtx)

	appLogger.Info(shutdownCtx, "Server gracefully stopped.")
}
