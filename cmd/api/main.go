package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/orderflow-ai/internal/application"
	apporders "github.com/bryanwahyu/orderflow-ai/internal/application/orders"
	"github.com/bryanwahyu/orderflow-ai/internal/application/pipeline"
	"github.com/bryanwahyu/orderflow-ai/internal/config"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/anomaly"
	"github.com/bryanwahyu/orderflow-ai/internal/infra/ai/gateway"
	aiopenai "github.com/bryanwahyu/orderflow-ai/internal/infra/ai/openai"
	"github.com/bryanwahyu/orderflow-ai/internal/infra/db/postgres"
	"github.com/bryanwahyu/orderflow-ai/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/orderflow-ai/internal/infra/storage"
	"github.com/bryanwahyu/orderflow-ai/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	// Startup owns the degraded-config warnings; the pipeline never
	// re-checks or re-logs them per run.
	warnings, err := cfg.Validate()
	if err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	for _, wmsg := range warnings {
		logger.Warn(wmsg)
	}

	ctx := context.Background()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("postgres connect error", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}

	assets, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		logger.Fatal("minio init error", zap.Error(err))
	}

	// AI providers
	var transcribers []gateway.Transcriber
	if p := cfg.AI.Transcription.Primary; p.Configured() {
		transcribers = append(transcribers, aiopenai.NewTranscriber("primary", p.APIKey, p.BaseURL, p.Model))
	}
	if p := cfg.AI.Transcription.Fallback; p.Configured() {
		transcribers = append(transcribers, aiopenai.NewTranscriber("fallback", p.APIKey, p.BaseURL, p.Model))
	}
	var moderator gateway.Moderator
	if p := cfg.AI.Safety.Provider; p.Configured() {
		moderator = aiopenai.NewModerator(p.APIKey, p.BaseURL, p.Model)
	}
	extractor := aiopenai.NewExtractor(cfg.AI.Extraction.APIKey, cfg.AI.Extraction.BaseURL, cfg.AI.Extraction.Model)

	callTimeout := time.Duration(cfg.AI.RequestTimeoutSeconds) * time.Second
	gw := gateway.New(transcribers, moderator, extractor, callTimeout, logger)

	// repos + services
	store := postgres.NewStore(db)
	orderRepo := postgres.NewOrderRepository(db)
	orderStore := postgres.NewOrderStore(db)
	interactionRepo := postgres.NewInteractionRepository(db)
	analysisRepo := postgres.NewAnalysisRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)

	detector := anomaly.NewDetector(anomaly.DefaultRules(cfg.Pipeline.MaxReasonableQuantity))

	pipelineSvc := &pipeline.Service{
		Store:    store,
		Catalog:  catalogRepo,
		Gateway:  gw,
		Detector: detector,
		Safety: pipeline.SafetyPolicy{
			Mode:      cfg.AI.Safety.Mode,
			HasAPIKey: cfg.AI.Safety.Configured(),
		},
		Clock: application.SystemClock{},
		Log:   logger,
	}
	ordersSvc := apporders.NewService(orderRepo, orderStore, logger)

	checkers := map[string]middleware.HealthChecker{
		"database":     &middleware.DatabaseHealthChecker{DB: db},
		"object_store": middleware.CheckerFunc(assets.Check),
	}

	mux := httpserver.NewRouter(pipelineSvc, ordersSvc, interactionRepo, analysisRepo, catalogRepo, customerRepo, assets, checkers, logger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // pipeline runs synchronously within the request
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
