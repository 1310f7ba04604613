package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/message"
)

// MessageRepository is the durable message.Repository. Every lifecycle
// transition is a single conditional UPDATE keyed on the current state, so
// the promotion loop, the dispatch poller and the classifier can run
// concurrently without read-then-write races, and terminal states stay
// sticky.
type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

const messageColumns = `
	id, message_id, sequence,
	COALESCE(case_id, ''),
	COALESCE(event_timestamp, 'epoch'::timestamptz),
	from_dead_letter, state, raw_content,
	COALESCE(properties, '{}'::jsonb),
	received, delivery_count, retry_count, hold_until`

func (r *MessageRepository) Save(ctx context.Context, m *message.StoredMessage) error {
	const sql = `
		INSERT INTO case_event_messages (
			id, message_id, case_id, event_timestamp, from_dead_letter,
			state, raw_content, properties, received, hold_until
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (message_id, from_dead_letter) DO UPDATE SET
			case_id         = EXCLUDED.case_id,
			event_timestamp = EXCLUDED.event_timestamp,
			state           = EXCLUDED.state,
			raw_content     = EXCLUDED.raw_content,
			properties      = EXCLUDED.properties,
			hold_until      = EXCLUDED.hold_until
		RETURNING id, sequence, received
	`

	var eventTS any
	if !m.EventTimestamp.IsZero() {
		eventTS = m.EventTimestamp
	}

	err := r.pool.QueryRow(ctx, sql,
		m.ID, m.MessageID, nullIfEmpty(m.CaseID), eventTS, m.FromDeadLetter,
		string(m.State), m.RawContent, m.Properties, m.Received, m.HoldUntil,
	).Scan(&m.ID, &m.Sequence, &m.Received)
	if err != nil {
		return fmt.Errorf("upsert message %s: %w", m.MessageID, err)
	}

	return nil
}

func (r *MessageRepository) GetByMessageID(ctx context.Context, messageID string) ([]*message.StoredMessage, error) {
	sql := `SELECT` + messageColumns + `
		FROM case_event_messages
		WHERE message_id = $1
		ORDER BY from_dead_letter`

	rows, err := r.pool.Query(ctx, sql, messageID)
	if err != nil {
		return nil, fmt.Errorf("query message %s: %w", messageID, err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (r *MessageRepository) ListByState(ctx context.Context, s message.State) ([]*message.StoredMessage, error) {
	sql := `SELECT` + messageColumns + `
		FROM case_event_messages
		WHERE state = $1
		ORDER BY sequence`

	rows, err := r.pool.Query(ctx, sql, string(s))
	if err != nil {
		return nil, fmt.Errorf("query messages by state %s: %w", s, err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// PromoteNew moves every new message to ready in one statement; either the
// whole batch is promoted or none of it.
func (r *MessageRepository) PromoteNew(ctx context.Context) (int64, error) {
	const sql = `
		UPDATE case_event_messages
		SET state = 'ready'
		WHERE state = 'new'
	`
	tag, err := r.pool.Exec(ctx, sql)
	if err != nil {
		return 0, fmt.Errorf("promote new messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ClaimReady leases due ready messages by pushing hold_until forward, so a
// concurrent poller skips them while they are being dispatched, and counts
// the delivery attempt. Holds only ever move forward in time.
func (r *MessageRepository) ClaimReady(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*message.StoredMessage, error) {
	sql := `
		WITH due AS (
			SELECT id
			FROM case_event_messages
			WHERE state = 'ready' AND (hold_until IS NULL OR hold_until <= $1)
			ORDER BY sequence
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE case_event_messages m
		SET hold_until = $3, delivery_count = m.delivery_count + 1
		FROM due
		WHERE m.id = due.id
		RETURNING
			m.id, m.message_id, m.sequence,
			COALESCE(m.case_id, ''),
			COALESCE(m.event_timestamp, 'epoch'::timestamptz),
			m.from_dead_letter, m.state, m.raw_content,
			COALESCE(m.properties, '{}'::jsonb),
			m.received, m.delivery_count, m.retry_count, m.hold_until`

	rows, err := r.pool.Query(ctx, sql, now, limit, now.Add(lease))
	if err != nil {
		return nil, fmt.Errorf("claim ready messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// RETURNING does not guarantee order; dispatch wants sequence order.
	sortBySequence(msgs)
	return msgs, nil
}

func (r *MessageRepository) MarkProcessed(ctx context.Context, id string) error {
	const sql = `
		UPDATE case_event_messages
		SET state = 'processed', hold_until = NULL
		WHERE id = $1 AND state = 'ready'
	`
	if _, err := r.pool.Exec(ctx, sql, id); err != nil {
		return fmt.Errorf("mark message %s processed: %w", id, err)
	}
	// Zero rows affected means the message was already terminal; repeat
	// completions are a silent no-op.
	return nil
}

func (r *MessageRepository) MarkUnprocessable(ctx context.Context, id string) error {
	const sql = `
		UPDATE case_event_messages
		SET state = 'unprocessable', hold_until = NULL
		WHERE id = $1 AND state = 'ready'
	`
	if _, err := r.pool.Exec(ctx, sql, id); err != nil {
		return fmt.Errorf("mark message %s unprocessable: %w", id, err)
	}
	return nil
}

func (r *MessageRepository) ScheduleRetry(ctx context.Context, id string, holdUntil time.Time) error {
	const sql = `
		UPDATE case_event_messages
		SET retry_count = retry_count + 1,
		    hold_until  = GREATEST(COALESCE(hold_until, 'epoch'::timestamptz), $2)
		WHERE id = $1 AND state = 'ready'
	`
	if _, err := r.pool.Exec(ctx, sql, id, holdUntil); err != nil {
		return fmt.Errorf("schedule retry for message %s: %w", id, err)
	}
	return nil
}

func scanMessages(rows pgx.Rows) ([]*message.StoredMessage, error) {
	var msgs []*message.StoredMessage
	for rows.Next() {
		m := &message.StoredMessage{}
		var state string
		if err := rows.Scan(
			&m.ID, &m.MessageID, &m.Sequence, &m.CaseID, &m.EventTimestamp,
			&m.FromDeadLetter, &state, &m.RawContent, &m.Properties,
			&m.Received, &m.DeliveryCount, &m.RetryCount, &m.HoldUntil,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.State = message.State(state)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func sortBySequence(msgs []*message.StoredMessage) {
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Sequence < msgs[j].Sequence })
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
