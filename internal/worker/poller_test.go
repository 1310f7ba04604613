package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/classifier"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/caseevent"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/message"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/infrastructure/memory"
)

type fakeDispatcher struct {
	events []*caseevent.Event
	err    error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, ev *caseevent.Event) error {
	d.events = append(d.events, ev)
	return d.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validPayload(caseID string) []byte {
	return []byte(`{
		"eventInstanceId": "instance-` + caseID + `",
		"eventTimestamp": "2025-06-02T10:00:00Z",
		"caseId": "` + caseID + `",
		"jurisdictionId": "IA",
		"caseTypeId": "Asylum",
		"eventId": "submitCase",
		"newStateId": "caseUnderReview",
		"userId": "user-1"
	}`)
}

func storeReady(t *testing.T, repo *memory.MessageRepository, raw []byte) *message.StoredMessage {
	t.Helper()
	m := &message.StoredMessage{
		ID:         uuid.NewString(),
		MessageID:  uuid.NewString(),
		State:      message.StateReady,
		RawContent: raw,
	}
	if err := repo.Save(context.Background(), m); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return m
}

func newPoller(repo *memory.MessageRepository, d Dispatcher) *Poller {
	cls := classifier.New(repo, 30*time.Second, time.Hour, 0, testLogger())
	return NewPoller(repo, d, cls, time.Second, 10, time.Minute, testLogger())
}

func stateOf(t *testing.T, repo *memory.MessageRepository, m *message.StoredMessage) message.State {
	t.Helper()
	rows, err := repo.GetByMessageID(context.Background(), m.MessageID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByMessageID: rows=%d err=%v", len(rows), err)
	}
	return rows[0].State
}

func TestProcessBatchDispatchesInSequenceOrder(t *testing.T) {
	repo := memory.NewMessageRepository()
	first := storeReady(t, repo, validPayload("C1"))
	second := storeReady(t, repo, validPayload("C2"))
	d := &fakeDispatcher{}

	if err := newPoller(repo, d).ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if len(d.events) != 2 {
		t.Fatalf("dispatched %d events, want 2", len(d.events))
	}
	if d.events[0].CaseID != "C1" || d.events[1].CaseID != "C2" {
		t.Errorf("events out of arrival order: %s then %s", d.events[0].CaseID, d.events[1].CaseID)
	}
	if got := stateOf(t, repo, first); got != message.StateProcessed {
		t.Errorf("first message state = %v, want processed", got)
	}
	if got := stateOf(t, repo, second); got != message.StateProcessed {
		t.Errorf("second message state = %v, want processed", got)
	}
}

func TestProcessBatchMalformedPayloadQuarantined(t *testing.T) {
	repo := memory.NewMessageRepository()
	m := storeReady(t, repo, []byte(`{"caseId": 42`))
	d := &fakeDispatcher{}

	if err := newPoller(repo, d).ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if len(d.events) != 0 {
		t.Errorf("malformed payload reached the dispatcher: %d events", len(d.events))
	}
	if got := stateOf(t, repo, m); got != message.StateUnprocessable {
		t.Errorf("state = %v, want unprocessable", got)
	}
}

func TestProcessBatchMissingFieldsQuarantined(t *testing.T) {
	repo := memory.NewMessageRepository()
	m := storeReady(t, repo, []byte(`{"caseId": "C1"}`))
	d := &fakeDispatcher{}

	if err := newPoller(repo, d).ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if got := stateOf(t, repo, m); got != message.StateUnprocessable {
		t.Errorf("state = %v, want unprocessable", got)
	}
}

func TestProcessBatchFailureDoesNotBlockBatch(t *testing.T) {
	repo := memory.NewMessageRepository()
	failing := storeReady(t, repo, []byte(`not json`))
	ok := storeReady(t, repo, validPayload("C2"))
	d := &fakeDispatcher{}

	if err := newPoller(repo, d).ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if got := stateOf(t, repo, failing); got != message.StateUnprocessable {
		t.Errorf("failing message state = %v, want unprocessable", got)
	}
	if got := stateOf(t, repo, ok); got != message.StateProcessed {
		t.Errorf("healthy message state = %v, want processed", got)
	}
}

func TestProcessBatchDispatchErrorSchedulesRetry(t *testing.T) {
	repo := memory.NewMessageRepository()
	m := storeReady(t, repo, validPayload("C1"))
	d := &fakeDispatcher{err: errors.New("engine unavailable")}

	if err := newPoller(repo, d).ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	rows, err := repo.GetByMessageID(context.Background(), m.MessageID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByMessageID: rows=%d err=%v", len(rows), err)
	}
	got := rows[0]
	if got.State != message.StateReady {
		t.Errorf("state = %v, want ready for retry", got.State)
	}
	if got.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", got.RetryCount)
	}
	if got.HoldUntil == nil || !got.HoldUntil.After(time.Now()) {
		t.Errorf("retry must hold the message back, hold_until = %v", got.HoldUntil)
	}
}

func TestProcessBatchLeaseShieldsClaimedMessages(t *testing.T) {
	repo := memory.NewMessageRepository()
	storeReady(t, repo, validPayload("C1"))

	// Claim the batch but do not resolve it; a second poll inside the lease
	// window must come up empty.
	if _, err := repo.ClaimReady(context.Background(), time.Now(), time.Minute, 10); err != nil {
		t.Fatalf("ClaimReady failed: %v", err)
	}

	d := &fakeDispatcher{}
	if err := newPoller(repo, d).ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if len(d.events) != 0 {
		t.Errorf("leased message re-dispatched: %d events", len(d.events))
	}
}
