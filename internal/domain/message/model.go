package message

import (
	"context"
	"time"
)

// State is the lifecycle state of a stored message.
//
// Allowed transitions:
//
//	new -> ready            (readiness promotion loop only)
//	ready -> processed      (successful dispatch)
//	ready -> unprocessable  (non-retryable failure)
//	ready -> ready          (retry: counters bumped, hold_until pushed forward)
//
// processed and unprocessable are terminal; transitions out of them are
// silently ignored.
type State string

const (
	StateNew           State = "new"
	StateReady         State = "ready"
	StateProcessed     State = "processed"
	StateUnprocessable State = "unprocessable"
)

// Terminal reports whether s admits no further transitions.
func (s State) Terminal() bool {
	return s == StateProcessed || s == StateUnprocessable
}

// StoredMessage is the durable record of one inbound case event.
//
// MessageID is caller-supplied and not globally unique on its own; the
// composite (MessageID, FromDeadLetter) identifies a row. Sequence is assigned
// by the store at first insertion and never reassigned. RawContent preserves
// the original payload byte-for-byte even when parsing failed, so operators
// can inspect and replay malformed deliveries.
type StoredMessage struct {
	ID             string            `json:"id"`
	MessageID      string            `json:"message_id"`
	Sequence       int64             `json:"sequence"`
	CaseID         string            `json:"case_id,omitempty"` // empty when the payload never parsed
	EventTimestamp time.Time         `json:"event_timestamp"`
	FromDeadLetter bool              `json:"from_dead_letter"`
	State          State             `json:"state"`
	RawContent     []byte            `json:"raw_content"`
	Properties     map[string]string `json:"properties,omitempty"`
	Received       time.Time         `json:"received"`
	DeliveryCount  int               `json:"delivery_count"`
	RetryCount     int               `json:"retry_count"`
	HoldUntil      *time.Time        `json:"hold_until,omitempty"`
}

// Due reports whether the message may be picked up for dispatch at now.
func (m *StoredMessage) Due(now time.Time) bool {
	return m.State == StateReady && (m.HoldUntil == nil || !m.HoldUntil.After(now))
}

// Repository is the durable store for inbound messages. Every state
// transition is a single conditional update keyed on the current state, so
// concurrent writers (promotion loop, dispatch poller, classifier) cannot
// lose updates and terminal states stay sticky.
type Repository interface {
	// Save upserts by (MessageID, FromDeadLetter). On first insertion it
	// assigns Sequence and Received and writes them back into m; on conflict
	// it updates the mutable fields only (last writer wins) and leaves
	// Sequence, Received and the counters untouched.
	Save(ctx context.Context, m *StoredMessage) error

	// GetByMessageID returns every row stored under the given caller-supplied
	// id (at most one per delivery channel).
	GetByMessageID(ctx context.Context, messageID string) ([]*StoredMessage, error)

	ListByState(ctx context.Context, s State) ([]*StoredMessage, error)

	// PromoteNew moves every message currently in new to ready in one atomic
	// update and returns the number of rows promoted.
	PromoteNew(ctx context.Context) (int64, error)

	// ClaimReady returns up to limit ready messages whose hold has elapsed,
	// in sequence order, pushing each row's hold_until forward by lease so a
	// concurrent poller does not pick them up while they are being dispatched.
	// Each claim increments delivery_count: it counts dispatch attempts, while
	// retry_count counts only failed ones.
	ClaimReady(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*StoredMessage, error)

	// MarkProcessed transitions ready -> processed. A repeat call for an
	// already-processed message is a silent no-op.
	MarkProcessed(ctx context.Context, id string) error

	// MarkUnprocessable transitions ready -> unprocessable. It never
	// downgrades a processed message.
	MarkUnprocessable(ctx context.Context, id string) error

	// ScheduleRetry keeps the message in ready, increments retry_count, and
	// moves hold_until to holdUntil unless the existing hold is already
	// later. No-op when the message is terminal.
	ScheduleRetry(ctx context.Context, id string, holdUntil time.Time) error
}
