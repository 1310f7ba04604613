// Package memory provides an in-memory message.Repository with the same
// transition semantics as the Postgres implementation. It backs unit tests
// and local runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/message"
)

type key struct {
	messageID      string
	fromDeadLetter bool
}

type MessageRepository struct {
	mu      sync.Mutex
	rows    map[key]*message.StoredMessage
	nextSeq int64
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{rows: make(map[key]*message.StoredMessage), nextSeq: 1}
}

func (r *MessageRepository) Save(_ context.Context, m *message.StoredMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{messageID: m.MessageID, fromDeadLetter: m.FromDeadLetter}
	if existing, ok := r.rows[k]; ok {
		// Mutable fields only; sequence, received and counters are write-once
		// or owned by the transition methods.
		existing.CaseID = m.CaseID
		existing.EventTimestamp = m.EventTimestamp
		existing.State = m.State
		existing.RawContent = append([]byte(nil), m.RawContent...)
		existing.Properties = cloneMap(m.Properties)
		existing.HoldUntil = cloneTime(m.HoldUntil)
		*m = *clone(existing)
		return nil
	}

	stored := clone(m)
	stored.Sequence = r.nextSeq
	r.nextSeq++
	r.rows[k] = stored
	*m = *clone(stored)
	return nil
}

func (r *MessageRepository) GetByMessageID(_ context.Context, messageID string) ([]*message.StoredMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*message.StoredMessage
	for _, row := range r.rows {
		if row.MessageID == messageID {
			out = append(out, clone(row))
		}
	}
	sortBySequence(out)
	return out, nil
}

func (r *MessageRepository) ListByState(_ context.Context, s message.State) ([]*message.StoredMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*message.StoredMessage
	for _, row := range r.rows {
		if row.State == s {
			out = append(out, clone(row))
		}
	}
	sortBySequence(out)
	return out, nil
}

func (r *MessageRepository) PromoteNew(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, row := range r.rows {
		if row.State == message.StateNew {
			row.State = message.StateReady
			n++
		}
	}
	return n, nil
}

func (r *MessageRepository) ClaimReady(_ context.Context, now time.Time, lease time.Duration, limit int) ([]*message.StoredMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*message.StoredMessage
	for _, row := range r.rows {
		if row.Due(now) {
			due = append(due, row)
		}
	}
	sortBySequence(due)
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]*message.StoredMessage, 0, len(due))
	for _, row := range due {
		hold := now.Add(lease)
		row.HoldUntil = &hold
		row.DeliveryCount++
		out = append(out, clone(row))
	}
	return out, nil
}

func (r *MessageRepository) MarkProcessed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if row := r.byID(id); row != nil && row.State == message.StateReady {
		row.State = message.StateProcessed
		row.HoldUntil = nil
	}
	return nil
}

func (r *MessageRepository) MarkUnprocessable(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if row := r.byID(id); row != nil && row.State == message.StateReady {
		row.State = message.StateUnprocessable
		row.HoldUntil = nil
	}
	return nil
}

func (r *MessageRepository) ScheduleRetry(_ context.Context, id string, holdUntil time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.byID(id)
	if row == nil || row.State != message.StateReady {
		return nil
	}
	row.RetryCount++
	if row.HoldUntil == nil || holdUntil.After(*row.HoldUntil) {
		h := holdUntil
		row.HoldUntil = &h
	}
	return nil
}

func (r *MessageRepository) byID(id string) *message.StoredMessage {
	for _, row := range r.rows {
		if row.ID == id {
			return row
		}
	}
	return nil
}

func clone(m *message.StoredMessage) *message.StoredMessage {
	c := *m
	c.RawContent = append([]byte(nil), m.RawContent...)
	c.Properties = cloneMap(m.Properties)
	c.HoldUntil = cloneTime(m.HoldUntil)
	return &c
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func sortBySequence(msgs []*message.StoredMessage) {
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Sequence < msgs[j].Sequence })
}
