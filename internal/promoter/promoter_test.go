package promoter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/message"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/featuregate"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/infrastructure/memory"
)

type fakeGate struct {
	empty bool
	err   error
	calls int
}

func (g *fakeGate) Empty(context.Context) (bool, error) {
	g.calls++
	return g.empty, g.err
}

type actorFlags struct {
	global bool
	actors map[string]bool
}

func (f *actorFlags) Enabled(_ context.Context, _ string, actor string) (bool, error) {
	if actor == "" {
		return f.global, nil
	}
	if v, ok := f.actors[actor]; ok {
		return v, nil
	}
	return f.global, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func storeNew(t *testing.T, repo *memory.MessageRepository, userID string) *message.StoredMessage {
	t.Helper()
	m := &message.StoredMessage{
		ID:        uuid.NewString(),
		MessageID: uuid.NewString(),
		State:     message.StateNew,
	}
	if userID != "" {
		m.Properties = map[string]string{"userId": userID}
	}
	if err := repo.Save(context.Background(), m); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return m
}

func countByState(t *testing.T, repo *memory.MessageRepository, s message.State) int {
	t.Helper()
	rows, err := repo.ListByState(context.Background(), s)
	if err != nil {
		t.Fatalf("ListByState failed: %v", err)
	}
	return len(rows)
}

func TestRunOncePromotesWhenGateEmpty(t *testing.T) {
	repo := memory.NewMessageRepository()
	storeNew(t, repo, "user-1")
	storeNew(t, repo, "user-1")
	storeNew(t, repo, "")

	loop := NewLoop(repo, &fakeGate{empty: true}, featuregate.Static(true), "dlq-db-process", 0, testLogger())
	if err := loop.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if n := countByState(t, repo, message.StateReady); n != 3 {
		t.Errorf("ready count = %d, want 3", n)
	}
	if n := countByState(t, repo, message.StateNew); n != 0 {
		t.Errorf("new count = %d, want 0", n)
	}
}

func TestRunOnceHoldsWhenGateNotEmpty(t *testing.T) {
	repo := memory.NewMessageRepository()
	storeNew(t, repo, "user-1")
	storeNew(t, repo, "user-1")

	loop := NewLoop(repo, &fakeGate{empty: false}, featuregate.Static(true), "dlq-db-process", 0, testLogger())
	if err := loop.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	// All-or-nothing per cycle: nothing moves while the gate holds.
	if n := countByState(t, repo, message.StateNew); n != 2 {
		t.Errorf("new count = %d, want 2 (held back)", n)
	}
	if n := countByState(t, repo, message.StateReady); n != 0 {
		t.Errorf("ready count = %d, want 0", n)
	}
}

func TestRunOnceSkipsWhenFlagDisabled(t *testing.T) {
	repo := memory.NewMessageRepository()
	storeNew(t, repo, "user-1")
	gate := &fakeGate{empty: true}

	loop := NewLoop(repo, gate, featuregate.Static(false), "dlq-db-process", 0, testLogger())
	if err := loop.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if n := countByState(t, repo, message.StateNew); n != 1 {
		t.Errorf("new count = %d, want 1", n)
	}
	if gate.calls != 0 {
		t.Errorf("gate consulted while feature disabled, calls = %d", gate.calls)
	}
}

func TestRunOnceSkipsWhenActorDisabled(t *testing.T) {
	repo := memory.NewMessageRepository()
	storeNew(t, repo, "blocked-user")
	flags := &actorFlags{global: true, actors: map[string]bool{"blocked-user": false}}

	loop := NewLoop(repo, &fakeGate{empty: true}, flags, "dlq-db-process", 0, testLogger())
	if err := loop.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if n := countByState(t, repo, message.StateNew); n != 1 {
		t.Errorf("new count = %d, want 1", n)
	}
}

func TestRunOnceSkipsGateWhenNothingPending(t *testing.T) {
	repo := memory.NewMessageRepository()
	gate := &fakeGate{empty: true}

	loop := NewLoop(repo, gate, featuregate.Static(true), "dlq-db-process", 0, testLogger())
	if err := loop.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if gate.calls != 0 {
		t.Errorf("gate consulted with an empty backlog, calls = %d", gate.calls)
	}
}

func TestRunOnceGateErrorStopsCycle(t *testing.T) {
	repo := memory.NewMessageRepository()
	storeNew(t, repo, "user-1")
	gateErr := errors.New("broker unavailable")

	loop := NewLoop(repo, &fakeGate{err: gateErr}, featuregate.Static(true), "dlq-db-process", 0, testLogger())
	err := loop.RunOnce(context.Background())
	if !errors.Is(err, gateErr) {
		t.Fatalf("expected gate error to surface, got %v", err)
	}
	if n := countByState(t, repo, message.StateNew); n != 1 {
		t.Errorf("new count = %d, want 1 (cycle aborted)", n)
	}
}

func TestRepresentativeActor(t *testing.T) {
	msgs := []*message.StoredMessage{
		{Properties: nil},
		{Properties: map[string]string{"userId": ""}},
		{Properties: map[string]string{"userId": "u-2"}},
		{Properties: map[string]string{"userId": "u-3"}},
	}
	if got := representativeActor(msgs); got != "u-2" {
		t.Errorf("representativeActor = %q, want u-2", got)
	}
	if got := representativeActor(nil); got != "" {
		t.Errorf("representativeActor(nil) = %q, want empty", got)
	}
}
