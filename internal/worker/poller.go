// Package worker polls the message store for due ready messages and drives
// each one through the handler chain. The four handlers run sequentially for
// one event; independent events in a batch are processed in sequence order.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/classifier"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/caseevent"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/message"
)

var (
	messagesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worker_messages_dispatched_total",
		Help: "The total number of dispatch attempts",
	})
	dispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worker_dispatch_failures_total",
		Help: "The total number of failed dispatch attempts",
	})
	dispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "worker_dispatch_duration_seconds",
		Help:    "Time taken to run the handler chain for one message",
		Buckets: []float64{0.1, 0.5, 1, 2, 5},
	})
)

// Dispatcher runs the handler chain for one parsed event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev *caseevent.Event) error
}

type Poller struct {
	repo       message.Repository
	dispatcher Dispatcher
	classifier *classifier.Classifier
	interval   time.Duration
	batchSize  int
	lease      time.Duration
	logger     *slog.Logger
}

func NewPoller(repo message.Repository, dispatcher Dispatcher, cls *classifier.Classifier, interval time.Duration, batchSize int, lease time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		repo:       repo,
		dispatcher: dispatcher,
		classifier: cls,
		interval:   interval,
		batchSize:  batchSize,
		lease:      lease,
		logger:     logger,
	}
}

func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("dispatch poller started", "interval", p.interval, "batch_size", p.batchSize)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error("failed to process batch", "error", err)
			}
		}
	}
}

// ProcessBatch claims one batch of due ready messages and dispatches each in
// sequence order. The outcome of every attempt is recorded through the
// classifier; a failure on one message never blocks the rest of the batch.
func (p *Poller) ProcessBatch(ctx context.Context) error {
	msgs, err := p.repo.ClaimReady(ctx, time.Now(), p.lease, p.batchSize)
	if err != nil {
		return err
	}

	for _, m := range msgs {
		started := time.Now()
		dispatchErr := p.dispatchOne(ctx, m)
		dispatchDuration.Observe(time.Since(started).Seconds())
		messagesDispatched.Inc()
		if dispatchErr != nil {
			dispatchFailures.Inc()
		}

		if err := p.classifier.Record(ctx, m, dispatchErr); err != nil {
			p.logger.Error("failed to record dispatch outcome",
				"message_id", m.MessageID, "error", err)
		}
	}
	return nil
}

func (p *Poller) dispatchOne(ctx context.Context, m *message.StoredMessage) error {
	ev, err := caseevent.Parse(m.RawContent)
	if err != nil {
		// The payload is broken for good; no retry will fix it.
		return classifier.Terminal(err)
	}
	return p.dispatcher.Dispatch(ctx, ev)
}
