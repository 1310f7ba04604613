// Package ingest turns one inbound delivery, from any channel, into the
// stored message record. The raw payload is always preserved byte-for-byte;
// a malformed payload is recorded directly as unprocessable so nothing is
// silently dropped.
package ingest

import (
	"time"

	"github.com/google/uuid"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/caseevent"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/message"
)

// FromPayload builds the record to persist for one delivery. The returned
// error is the parse/validation failure when the payload is malformed; the
// record is still valid for audit storage in that case, already placed in
// the unprocessable state with no case id.
func FromPayload(raw []byte, messageID string, fromDeadLetter bool, props map[string]string, now time.Time) (*message.StoredMessage, error) {
	m := &message.StoredMessage{
		ID:             uuid.New().String(),
		MessageID:      messageID,
		FromDeadLetter: fromDeadLetter,
		State:          message.StateNew,
		RawContent:     raw,
		Properties:     props,
		Received:       now,
	}

	ev, err := caseevent.Parse(raw)
	if err != nil {
		m.State = message.StateUnprocessable
		return m, err
	}

	m.CaseID = ev.CaseID
	m.EventTimestamp = ev.EventTimestamp
	if m.Properties == nil {
		m.Properties = make(map[string]string, 1)
	}
	if _, ok := m.Properties["userId"]; !ok {
		m.Properties["userId"] = ev.UserID
	}
	return m, nil
}
