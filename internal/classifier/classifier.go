// Package classifier decides, after a dispatch attempt, whether a message is
// processed, unprocessable, or due another retry. Dependency failures are
// retryable by default; only errors explicitly marked terminal (and retry
// exhaustion, when a limit is configured) quarantine the message.
package classifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/message"
)

// terminalError marks a failure that must not be retried.
type terminalError struct {
	err error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal wraps err so the classifier quarantines the message instead of
// scheduling a retry.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// IsTerminal reports whether err was marked non-retryable.
func IsTerminal(err error) bool {
	var te *terminalError
	return errors.As(err, &te)
}

type Classifier struct {
	repo           message.Repository
	initialBackoff time.Duration
	maxBackoff     time.Duration
	// maxAttempts 0 means another retry is always allowed.
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

func New(repo message.Repository, initialBackoff, maxBackoff time.Duration, maxAttempts int, logger *slog.Logger) *Classifier {
	return &Classifier{
		repo:           repo,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		maxAttempts:    maxAttempts,
		logger:         logger,
		now:            time.Now,
	}
}

// Record applies the outcome of one dispatch attempt. All transitions go
// through the repository's conditional updates, so a message that reached a
// terminal state concurrently is left alone.
func (c *Classifier) Record(ctx context.Context, m *message.StoredMessage, dispatchErr error) error {
	if dispatchErr == nil {
		return c.repo.MarkProcessed(ctx, m.ID)
	}

	exhausted := c.maxAttempts > 0 && m.RetryCount+1 >= c.maxAttempts
	if IsTerminal(dispatchErr) || exhausted {
		c.logger.Error("message unprocessable",
			"message_id", m.MessageID, "retry_count", m.RetryCount,
			"exhausted", exhausted, "error", dispatchErr)
		return c.repo.MarkUnprocessable(ctx, m.ID)
	}

	holdUntil := c.now().Add(c.backoff(m.RetryCount))
	c.logger.Warn("dispatch failed, retry scheduled",
		"message_id", m.MessageID, "retry_count", m.RetryCount+1,
		"hold_until", holdUntil, "error", dispatchErr)
	return c.repo.ScheduleRetry(ctx, m.ID, holdUntil)
}

// backoff doubles per attempt from the initial interval, capped at the
// configured maximum.
func (c *Classifier) backoff(retryCount int) time.Duration {
	d := c.initialBackoff
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= c.maxBackoff {
			return c.maxBackoff
		}
	}
	if d > c.maxBackoff {
		return c.maxBackoff
	}
	return d
}
