package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/application/factories/infrastructure"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/config"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/featuregate"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/infrastructure/kafka"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/infrastructure/postgres"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/promoter"
)

func main() {
	// Initialize structured JSON logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("promoter metrics listening on :9092")
		http.ListenAndServe(":9092", mux)
	}()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	messageRepo := postgres.NewMessageRepository(pgPool)

	redisClient, err := infraFactory.Redis(ctx)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	flags := featuregate.NewRedisProvider(redisClient, true)

	gate := kafka.NewDeadLetterGate(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic, cfg.Kafka.GroupID+"-dlq")

	loop := promoter.NewLoop(messageRepo, gate, flags, cfg.Promotion.FeatureFlag, cfg.Promotion.Interval, logger)
	if err := loop.Run(ctx); err != nil {
		logger.Error("promotion loop stopped with error", "error", err)
	}

	logger.Info("promoter exiting")
}
