package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const messagesSchema = `
CREATE TABLE IF NOT EXISTS case_event_messages (
	id               UUID PRIMARY KEY,
	message_id       TEXT NOT NULL,
	sequence         BIGSERIAL,
	case_id          TEXT,
	event_timestamp  TIMESTAMPTZ,
	from_dead_letter BOOLEAN NOT NULL DEFAULT FALSE,
	state            TEXT NOT NULL,
	raw_content      BYTEA NOT NULL,
	properties       JSONB,
	received         TIMESTAMPTZ NOT NULL,
	delivery_count   INTEGER NOT NULL DEFAULT 0,
	retry_count      INTEGER NOT NULL DEFAULT 0,
	hold_until       TIMESTAMPTZ,
	UNIQUE (message_id, from_dead_letter)
);

CREATE INDEX IF NOT EXISTS idx_case_event_messages_state
	ON case_event_messages (state, hold_until, sequence);
`

// EnsureSchema creates the message table when it does not exist yet. Safe to
// run from every process at startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, messagesSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
