package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/config"
	"github.com/BarkinBalci/attribution-relay/internal/consumer"
	"github.com/BarkinBalci/attribution-relay/internal/conversion"
	"github.com/BarkinBalci/attribution-relay/internal/correlator"
	"github.com/BarkinBalci/attribution-relay/internal/dispatcher"
	"github.com/BarkinBalci/attribution-relay/internal/ledger"
	ledgermemory "github.com/BarkinBalci/attribution-relay/internal/ledger/memory"
	ledgervalkey "github.com/BarkinBalci/attribution-relay/internal/ledger/valkey"
	"github.com/BarkinBalci/attribution-relay/internal/logger"
	"github.com/BarkinBalci/attribution-relay/internal/queue"
	"github.com/BarkinBalci/attribution-relay/internal/queue/kafka"
	"github.com/BarkinBalci/attribution-relay/internal/queue/sqs"
	"github.com/BarkinBalci/attribution-relay/internal/repository/clickhouse"
	"github.com/BarkinBalci/attribution-relay/internal/repository/mysql"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := cfg.ConversionAPI.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid conversion API config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, cfg.Service.LogLevel, "consumer")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting consumer service",
		zap.String("ledger_backend", cfg.Ledger.Backend),
		zap.Int("workers", cfg.Consumer.Workers))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Initialize dedup ledger
	ledgerOptions := ledger.Options{Retention: cfg.Ledger.Retention, ClaimTTL: cfg.Ledger.ClaimTTL}
	var dedup ledger.Ledger
	var ledgerPing func(context.Context) error

	switch cfg.Ledger.Backend {
	case "valkey":
		valkeyClient, err := ledgervalkey.NewClient(ctx, cfg.Valkey, log)
		if err != nil {
			log.Fatal("Failed to create Valkey client", zap.Error(err))
		}
		l := ledgervalkey.New(valkeyClient, cfg.Ledger.KeyPrefix, ledgerOptions, log)
		defer l.Close()
		dedup = l
		ledgerPing = l.Ping
	default:
		log.Warn("Using in-process dedup ledger, duplicates are only suppressed within this process")
		l := ledgermemory.New(ledgerOptions, log)
		go l.StartSweeper(ctx, cfg.Ledger.SweepInterval)
		dedup = l
		ledgerPing = func(context.Context) error { return nil }
	}

	// Initialize conversion pipeline
	corr := correlator.New(attributions, correlator.Config{
		FallbackSource:   cfg.Attribution.FallbackSource,
		FallbackMedium:   cfg.Attribution.FallbackMedium,
		FallbackCampaign: cfg.Attribution.FallbackCampaign,
		StoreTimeout:     cfg.Attribution.StoreTimeout,
	}, log)

	builder := conversion.NewBuilder(conversion.Options{
		DefaultCountryCode: cfg.Attribution.DefaultCountryCode,
		DefaultCurrency:    cfg.Attribution.DefaultCurrency,
	})

	d := dispatcher.New(dispatcher.NewClient(cfg.ConversionAPI, log), dedup, dispatcher.Config{
		MaxAttempts:    cfg.ConversionAPI.MaxAttempts,
		InitialBackoff: cfg.ConversionAPI.InitialBackoff,
		AttemptTimeout: cfg.ConversionAPI.Timeout,
		ClaimTTL:       cfg.Ledger.ClaimTTL,
	}, log)

	processor := consumer.NewProcessor(corr, builder, d, log)

	// Initialize ClickHouse client
	chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func() {
		if err := chClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}()

	repo := clickhouse.NewRepository(chClient, log)

	// Initialize schema (create tables if not exist)
	if err := repo.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}
	log.Info("Database schema initialized")

	// Initialize outcome stream
	var outcomes queue.OutcomePublisher = kafka.NoopProducer{}
	if len(cfg.Kafka.Brokers) > 0 {
		outcomes = kafka.NewProducer(cfg.Kafka, log)
	}
	defer func() {
		if err := outcomes.Close(); err != nil {
			log.Error("Failed to close outcome producer", zap.Error(err))
		}
	}()

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	// Initialize consumer
	c := consumer.NewConsumer(cfg, sqsClient, processor, repo, outcomes, log)

	// Start health check endpoint
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := repo.Ping(r.Context()); err != nil {
				log.Warn("Health check failed", zap.String("dependency", "clickhouse"), zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			if err := attributions.Ping(r.Context()); err != nil {
				log.Warn("Health check failed", zap.String("dependency", "mysql"), zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			if err := ledgerPing(r.Context()); err != nil {
				log.Warn("Health check failed", zap.String("dependency", "ledger"), zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		mux.Handle("/metrics", promhttp.Handler())

		addr := ":" + cfg.Consumer.HealthCheckPort
		log.Info("Health check server starting", zap.String("address", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	log.Info("Consumer starting")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Start(ctx); err != nil {
			log.Error("Consumer error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info("Shutting down consumer gracefully")
		cancel()
		<-done
	case <-done:
		log.Warn("Consumer stopped unexpectedly")
	}
}
