package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/docs"
	"github.com/BarkinBalci/attribution-relay/internal/config"
	"github.com/BarkinBalci/attribution-relay/internal/handler"
	"github.com/BarkinBalci/attribution-relay/internal/logger"
	"github.com/BarkinBalci/attribution-relay/internal/queue/sqs"
	"github.com/BarkinBalci/attribution-relay/internal/repository/clickhouse"
	"github.com/BarkinBalci/attribution-relay/internal/repository/mysql"
	"github.com/BarkinBalci/attribution-relay/internal/service"
)

// @title Attribution Relay API
// @version 1.0
// @description API for recording session attribution and relaying paid conversions to the advertising conversion API
// @host localhost:8080
// @BasePath /
// @schemes http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, cfg.Service.LogLevel, "api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting API service", zap.String("port", cfg.Service.APIPort))

	if cfg.Service.WebhookToken == "" {
		log.Warn("SERVICE_WEBHOOK_TOKEN is empty, payment webhook accepts unauthenticated requests")
	}

	// Configure Swagger host dynamically
	docs.SwaggerInfo.Host = cfg.Service.Host

	ctx := context.Background()

	// Initialize attribution store
	mysqlClient, err := mysql.NewClient(ctx, &cfg.MySQL, log)
	if err != nil {
		log.Fatal("Failed to create MySQL client", zap.Error(err))
	}
	defer func() {
		if err := mysqlClient.Close(); err != nil {
			log.Error("Failed to close MySQL client", zap.Error(err))
		}
	}()

	attributions := mysql.NewRepository(mysqlClient, cfg.Attribution.StoreTimeout, log)
	if err := attributions.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize attribution schema", zap.Error(err))
	}

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	// Initialize ClickHouse client
	clickhouseClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func(clickhouseClient *clickhouse.Client) {
		if err := clickhouseClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}(clickhouseClient)

	conversions := clickhouse.NewRepository(clickhouseClient, log)

	attributionService := service.NewAttributionService(attributions, log)
	conversionService := service.NewConversionService(sqsClient, conversions, log)

	h := handler.NewHandler(attributionService, conversionService, cfg.Service.WebhookToken, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down API server gracefully")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("API server shutdown error", zap.Error(err))
	}
}
