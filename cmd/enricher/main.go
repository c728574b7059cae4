package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hmeira/order-enricher/internal/broker"
	"github.com/hmeira/order-enricher/internal/config"
	"github.com/hmeira/order-enricher/internal/db"
	"github.com/hmeira/order-enricher/internal/history"
	"github.com/hmeira/order-enricher/internal/processor"
	"github.com/hmeira/order-enricher/internal/resolver"
	"github.com/hmeira/order-enricher/internal/secrets"
	"github.com/hmeira/order-enricher/pkg/infra"
	"github.com/hmeira/order-enricher/pkg/metrics"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gocql/gocql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxConnectAttempts = 5

func main() {
	cfg := config.Load()
	logger := infra.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Initializing order enrichment pipeline...",
		"env", cfg.Env,
		"lambda", cfg.LambdaName,
	)

	manager, err := secrets.NewManager(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to initialize secrets manager", "error", err)
		os.Exit(1)
	}

	pool, session, err := connectStores(ctx, cfg, manager, logger)
	if err != nil {
		logger.Error("FATAL: Store connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	defer session.Close()

	producer := broker.NewKafkaProducer(cfg.Brokers, cfg.SuccessTopic, cfg.FailureTopic, cfg.PublishTimeout, logger)
	defer producer.Close()

	dispatcher := processor.NewDispatcher(
		resolver.NewPostgresResolver(pool, logger),
		producer,
		history.NewScyllaRecorder(session, cfg.Keyspace, logger),
		cfg.LambdaName,
		logger,
	)

	go startObservabilityServer("9091", logger)
	metrics.HealthStatus.Set(1)

	logger.Info("Pipeline ready, waiting for batch invocations")
	lambda.StartWithOptions(dispatcher.HandleBatch, lambda.WithContext(ctx))
}

// connectStores establishes both long-lived store connections, retrying with
// backoff so a cold start survives transient network hiccups
func connectStores(ctx context.Context, cfg *config.Config, manager *secrets.Manager, logger *slog.Logger) (*pgxpool.Pool, *gocql.Session, error) {
	pgCreds, err := manager.Lookup(ctx, cfg.PostgresSecret)
	if err != nil {
		return nil, nil, err
	}
	scyllaCreds, err := manager.Lookup(ctx, cfg.ScyllaSecret)
	if err != nil {
		return nil, nil, err
	}

	var pool *pgxpool.Pool
	if err := withRetry(ctx, logger, "postgres", func() error {
		pool, err = db.NewPostgresPool(ctx, pgCreds.PostgresURL(), logger)
		return err
	}); err != nil {
		return nil, nil, err
	}

	var session *gocql.Session
	if err := withRetry(ctx, logger, "scylla", func() error {
		session, err = db.NewScyllaSession(scyllaCreds.Hosts(), scyllaCreds.Username, scyllaCreds.Password, cfg.Keyspace, logger)
		return err
	}); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return pool, session, nil
}

func withRetry(ctx context.Context, logger *slog.Logger, name string, dial func() error) error {
	backoff := infra.NewBackoff(1*time.Second, 30*time.Second, 2.0)

	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		if lastErr = dial(); lastErr == nil {
			return nil
		}

		wait := backoff.Next()
		logger.Warn("Store connection failed, retrying",
			"store", name,
			"attempt", attempt,
			"wait", wait,
			"error", lastErr,
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func startObservabilityServer(port string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ENRICHER ALIVE"))
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("Observability server online", "url", "http://localhost:"+port+"/metrics")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Observability server failed", "error", err)
	}
}
