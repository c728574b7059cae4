// replay feeds a captured batch envelope file through the same pipeline the
// Lambda handler runs, against live stores. Used to reprocess batches pulled
// from the failure topic or from invocation logs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hmeira/order-enricher/internal/broker"
	"github.com/hmeira/order-enricher/internal/config"
	"github.com/hmeira/order-enricher/internal/db"
	"github.com/hmeira/order-enricher/internal/history"
	"github.com/hmeira/order-enricher/internal/models"
	"github.com/hmeira/order-enricher/internal/processor"
	"github.com/hmeira/order-enricher/internal/resolver"
	"github.com/hmeira/order-enricher/internal/secrets"
	"github.com/hmeira/order-enricher/pkg/infra"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: replay <envelope.json>")
		os.Exit(2)
	}

	cfg := config.Load()
	logger := infra.SetupLogger(cfg.LogLevel, "TEXT")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("FATAL: Failed to read envelope file", "error", err)
		os.Exit(1)
	}

	var envelope models.BatchEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		logger.Error("FATAL: Envelope file is not valid JSON", "error", err)
		os.Exit(1)
	}

	manager, err := secrets.NewManager(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to initialize secrets manager", "error", err)
		os.Exit(1)
	}

	pgCreds, err := manager.Lookup(ctx, cfg.PostgresSecret)
	if err != nil {
		logger.Error("FATAL: Postgres secret lookup failed", "error", err)
		os.Exit(1)
	}
	scyllaCreds, err := manager.Lookup(ctx, cfg.ScyllaSecret)
	if err != nil {
		logger.Error("FATAL: Scylla secret lookup failed", "error", err)
		os.Exit(1)
	}

	pool, err := db.NewPostgresPool(ctx, pgCreds.PostgresURL(), logger)
	if err != nil {
		logger.Error("FATAL: Postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	session, err := db.NewScyllaSession(scyllaCreds.Hosts(), scyllaCreds.Username, scyllaCreds.Password, cfg.Keyspace, logger)
	if err != nil {
		logger.Error("FATAL: Scylla connection failed", "error", err)
		os.Exit(1)
	}
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

	if err := dispatcher.HandleBatch(ctx, envelope); err != nil {
		logger.Error("Replay failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Replay finished", "file", os.Args[1])
}
