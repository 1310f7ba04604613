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
	"github.com/hmcts/wa-case-event-handler-sub000/internal/calendar"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/classifier"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/config"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/decision"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/duedate"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/engine"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/handlers"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/infrastructure/kafka"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/infrastructure/postgres"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/worker"
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
		logger.Info("worker metrics listening on :9093")
		http.ListenAndServe(":9093", mux)
	}()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	messageRepo := postgres.NewMessageRepository(pgPool)

	cal, err := calendar.New(cfg.Calendar.Jurisdiction, cfg.Calendar.Holidays)
	if err != nil {
		logger.Error("failed to load working calendar", "error", err)
		os.Exit(1)
	}
	calc := duedate.NewCalculator(cal)

	evaluator := decision.NewHTTPEvaluator(cfg.Decision.BaseURL, cfg.Decision.Timeout)

	commandProducer := kafka.NewProducer(kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.CommandsTopic,
	})
	defer commandProducer.Close()
	eng := engine.New(commandProducer, cfg.Engine.BaseURL, cfg.Engine.Timeout)

	dispatcher := handlers.NewDispatcher(evaluator, eng, calc, logger)
	cls := classifier.New(messageRepo, cfg.Retry.InitialBackoff, cfg.Retry.MaxBackoff, cfg.Retry.MaxAttempts, logger)

	poller := worker.NewPoller(messageRepo, dispatcher, cls,
		cfg.Dispatch.Interval, cfg.Dispatch.BatchSize, cfg.Dispatch.Lease, logger)

	if err := poller.Run(ctx); err != nil {
		logger.Error("dispatch poller stopped with error", "error", err)
	}

	logger.Info("worker exiting")
}
