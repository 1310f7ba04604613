package idempotency

import (
	"fmt"
	"testing"
)

func TestKeyDeterministic(t *testing.T) {
	first := Key("event-123", "checkFeeStatus")
	for i := 0; i < 10; i++ {
		if got := Key("event-123", "checkFeeStatus"); got != first {
			t.Fatalf("Key not deterministic: got %q, want %q", got, first)
		}
	}
}

func TestKeySensitiveToEitherInput(t *testing.T) {
	base := Key("event-123", "checkFeeStatus")
	if Key("event-124", "checkFeeStatus") == base {
		t.Error("changing the event instance id should change the key")
	}
	if Key("event-123", "reviewAppeal") == base {
		t.Error("changing the task id should change the key")
	}
}

func TestKeyBoundaryShift(t *testing.T) {
	// ("ab", "c") and ("a", "bc") concatenate identically; the keys must not.
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("keys collide across the input boundary")
	}
}

func TestKeyDistinctOverCorpus(t *testing.T) {
	seen := make(map[string]string, 1000)
	for i := 0; i < 1000; i++ {
		event := fmt.Sprintf("event-%d", i)
		task := fmt.Sprintf("task-%d", i%25)
		k := Key(event, task)
		if prev, ok := seen[k]; ok {
			t.Fatalf("collision: %s and %s/%s share key %s", prev, event, task, k)
		}
		seen[k] = event + "/" + task
	}
}
