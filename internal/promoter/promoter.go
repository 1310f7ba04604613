// Package promoter runs the readiness promotion loop: on a fixed cadence it
// moves durably stored new messages to ready, but only while the dead-letter
// channel is empty. A non-empty channel may mean a competing redelivery of
// the same event is in flight; holding promotion back trades freshness for
// per-case ordering safety.
package promoter

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/message"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/featuregate"
)

var (
	messagesPromoted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promoter_messages_promoted_total",
		Help: "The total number of messages promoted from new to ready",
	})
	cyclesHeld = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promoter_cycles_held_total",
		Help: "The total number of promotion cycles held back by a non-empty dead-letter queue",
	})
)

// Gate is the dead-letter peek. It is advisory: a stale answer is bounded by
// the next cycle.
type Gate interface {
	Empty(ctx context.Context) (bool, error)
}

type Loop struct {
	repo     message.Repository
	gate     Gate
	flags    featuregate.Provider
	flagName string
	interval time.Duration
	logger   *slog.Logger
}

func NewLoop(repo message.Repository, gate Gate, flags featuregate.Provider, flagName string, interval time.Duration, logger *slog.Logger) *Loop {
	return &Loop{
		repo:     repo,
		gate:     gate,
		flags:    flags,
		flagName: flagName,
		interval: interval,
		logger:   logger,
	}
}

func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("promotion loop started", "interval", l.interval, "flag", l.flagName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.RunOnce(ctx); err != nil {
				l.logger.Error("promotion cycle failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single promotion cycle. Content is never inspected
// beyond resolving the feature-gate actor identity.
func (l *Loop) RunOnce(ctx context.Context) error {
	enabled, err := l.flags.Enabled(ctx, l.flagName, "")
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	pending, err := l.repo.ListByState(ctx, message.StateNew)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	if actor := representativeActor(pending); actor != "" {
		allowed, err := l.flags.Enabled(ctx, l.flagName, actor)
		if err != nil {
			return err
		}
		if !allowed {
			l.logger.Info("promotion disabled for actor, skipping cycle", "actor", actor)
			return nil
		}
	}

	empty, err := l.gate.Empty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		// Nothing is promoted this cycle; all-or-nothing per cycle.
		cyclesHeld.Inc()
		l.logger.Info("dead-letter queue not empty, holding promotion", "pending", len(pending))
		return nil
	}

	n, err := l.repo.PromoteNew(ctx)
	if err != nil {
		return err
	}
	messagesPromoted.Add(float64(n))
	l.logger.Info("messages promoted", "count", n)
	return nil
}

// representativeActor picks the first pending message with a resolvable user
// identity.
func representativeActor(pending []*message.StoredMessage) string {
	for _, m := range pending {
		if actor := m.Properties["userId"]; actor != "" {
			return actor
		}
	}
	return ""
}
