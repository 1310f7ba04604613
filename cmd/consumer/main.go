package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	segmentio "github.com/segmentio/kafka-go"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/application/factories/infrastructure"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/config"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/message"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/infrastructure/kafka"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/infrastructure/postgres"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/ingest"
)

var (
	messagesStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_messages_stored_total",
		Help: "The total number of inbound case events persisted, by channel and state",
	}, []string{"channel", "state"})
	storeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consumer_store_failures_total",
		Help: "The total number of failed message store writes",
	})
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
		logger.Info("consumer metrics listening on :9091")
		http.ListenAndServe(":9091", mux)
	}()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	messageRepo := postgres.NewMessageRepository(pgPool)

	primary := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, cfg.Kafka.GroupID)
	defer primary.Close()

	deadLetter := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic, cfg.Kafka.GroupID+"-dlq")
	defer deadLetter.Close()

	logger.Info("case event consumer started",
		"events_topic", cfg.Kafka.EventsTopic,
		"dead_letter_topic", cfg.Kafka.DeadLetterTopic,
		"group_id", cfg.Kafka.GroupID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		consume(ctx, primary, messageRepo, false, time.Second, logger.With("channel", "primary"))
	}()
	go func() {
		defer wg.Done()
		consume(ctx, deadLetter, messageRepo, true, time.Second, logger.With("channel", "dead-letter"))
	}()
	wg.Wait()

	logger.Info("consumer exiting")
}

// messageSource is the fetch/commit half of a group consumer.
type messageSource interface {
	FetchMessage(ctx context.Context) (segmentio.Message, error)
	CommitMessages(ctx context.Context, msgs ...segmentio.Message) error
}

// consume persists every delivery on one topic. The Kafka offset is only
// committed after the store accepted the message, and the loop never fetches
// the next message before the current one is saved: committing a later offset
// would advance the group past the unsaved one and lose it for good.
func consume(ctx context.Context, c messageSource, repo message.Repository, fromDeadLetter bool, storeBackoff time.Duration, logger *slog.Logger) {
	channel := "primary"
	if fromDeadLetter {
		channel = "dead-letter"
	}

	for {
		msg, err := c.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to fetch message", "error", err)
			time.Sleep(1 * time.Second)
			continue
		}

		stored, perr := ingest.FromPayload(msg.Value, messageID(msg), fromDeadLetter, headerProperties(msg), time.Now())
		if perr != nil {
			logger.Error("malformed case event, storing as unprocessable",
				"message_id", stored.MessageID, "error", perr)
		}

		// Retry the store write until it lands or shutdown is requested.
		backoff := storeBackoff
		for {
			err := repo.Save(ctx, stored)
			if err == nil {
				break
			}
			storeFailures.Inc()
			logger.Error("failed to store message, retrying",
				"message_id", stored.MessageID, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				// The offset stays uncommitted; a restart redelivers.
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}

		messagesStored.WithLabelValues(channel, string(stored.State)).Inc()
		logger.Info("message stored",
			"message_id", stored.MessageID, "sequence", stored.Sequence, "state", stored.State)

		if err := c.CommitMessages(ctx, msg); err != nil {
			logger.Error("failed to commit kafka message", "error", err)
		}
	}
}

func messageID(msg segmentio.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "message-id" && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	if len(msg.Key) > 0 {
		return string(msg.Key)
	}
	return uuid.New().String()
}

func headerProperties(msg segmentio.Message) map[string]string {
	if len(msg.Headers) == 0 {
		return nil
	}
	props := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		props[h.Key] = string(h.Value)
	}
	return props
}
