package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"norel-backend/internal/ai"
	"norel-backend/internal/api"
	"norel-backend/internal/auth"
	"norel-backend/internal/config"
	"norel-backend/internal/kiosk"
	"norel-backend/internal/logging"
	"norel-backend/internal/repository"
	"norel-backend/internal/service"
	"norel-backend/internal/share"
	"norel-backend/internal/storage"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// The environment may already carry every variable (Docker, K8s)
	envErr := godotenv.Load()

	var cfg config.Config
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Debug("No .env file loaded, using process environment", zap.Error(envErr))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInit()

	store, err := openStore(initCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var nonces repository.NonceStore
	if cfg.ShareSingleUse {
		nonces, err = openNonceStore(cfg, logger)
		if err != nil {
			return err
		}
		defer nonces.Close()
	}

	tokenService, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}

	catalog, err := kiosk.LoadCatalog(cfg.TemplatesFile)
	if err != nil {
		return err
	}

	var orchestrator *ai.Orchestrator
	if cfg.AIEnabled() {
		completer, err := ai.NewGenAICompleter(initCtx, cfg.GeminiAPIKey, cfg.LLMModel, cfg.LLMTimeout)
		if err != nil {
			return err
		}
		orchestrator = ai.NewOrchestrator(completer, cfg.LLMTemperature, logger.Named("ai"))
		logger.Info("AI features enabled", zap.String("model", cfg.LLMModel))
	} else {
		logger.Warn("GEMINI_API_KEY not set, AI features disabled")
	}

	var documents *storage.S3Service
	if cfg.DocumentsEnabled() {
		awsCfg, err := awsconfig.LoadDefaultConfig(initCtx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return err
		}
		documents = storage.NewS3Service(s3.NewFromConfig(awsCfg), cfg.AWSBucketName)
		logger.Info("Document storage enabled", zap.String("bucket", cfg.AWSBucketName))
	}

	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin login disabled")
	}

	codec := share.NewCodec(cfg.PublicOrigin,
		share.WithTTL(cfg.ShareTTL),
		share.WithClockSkew(cfg.ShareClockSkew),
		share.WithMaxURLBytes(cfg.ShareMaxURLBytes),
	)

	profiles := service.NewProfileService(store, logger.Named("profiles"))
	handler := api.NewHandler(api.Dependencies{
		Users:          service.NewUserService(store, tokenService, logger.Named("users")),
		Profiles:       profiles,
		Shares:         service.NewShareService(profiles, store, codec, nonces, cfg.ShareSingleUse, logger.Named("share")),
		Forms:          service.NewFormService(store, profiles, orchestrator, logger.Named("forms")),
		Documents:      service.NewDocumentService(documents, orchestrator),
		Admin:          service.NewAdminService(store, tokenService, cfg.AdminPasswordHash, logger.Named("admin")),
		Tokens:         tokenService,
		UserStore:      store,
		Catalog:        catalog,
		Logger:         logger.Named("http"),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		SecureCookies:  strings.HasPrefix(cfg.PublicOrigin, "https://"),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("origin", cfg.PublicOrigin))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repository.Store, error) {
	if cfg.StoreType != "postgres" {
		logger.Warn("Using in-memory store, data is lost on restart")
		return repository.NewInMemoryStore(), nil
	}

	store, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.RunMigrations(ctx, repository.InitMigration); err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("Connected to PostgreSQL, migrations applied")
	return store, nil
}

func openNonceStore(cfg config.Config, logger *zap.Logger) (repository.NonceStore, error) {
	if cfg.RedisAddr == "" {
		logger.Info("Single-use share codes tracked in memory")
		return repository.NewMemoryNonceStore(time.Minute), nil
	}

	nonces, err := repository.NewRedisNonceStore(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Single-use share codes tracked in Redis", zap.String("addr", cfg.RedisAddr))
	return nonces, nil
}
