package caseevent

import (
	"strings"
	"testing"
	"time"
)

func TestParseCompleteEvent(t *testing.T) {
	raw := []byte(`{
		"eventInstanceId": "instance-1",
		"eventTimestamp": "2025-06-02T10:00:00Z",
		"caseId": "C1",
		"jurisdictionId": "IA",
		"caseTypeId": "Asylum",
		"eventId": "submitCase",
		"newStateId": "caseUnderReview",
		"previousStateId": "caseStarted",
		"userId": "user-1",
		"additionalData": {"appealType": "protection"}
	}`)

	ev, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ev.CaseID != "C1" || ev.EventID != "submitCase" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if !ev.EventTimestamp.Equal(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", ev.EventTimestamp)
	}
	if ev.PreviousStateID != "caseStarted" {
		t.Errorf("previousStateId = %q", ev.PreviousStateID)
	}
	if ev.AdditionalData["appealType"] != "protection" {
		t.Errorf("additionalData lost: %v", ev.AdditionalData)
	}
}

func TestParseAllowsMissingPreviousState(t *testing.T) {
	raw := []byte(`{
		"eventInstanceId": "instance-1",
		"eventTimestamp": "2025-06-02T10:00:00Z",
		"caseId": "C1",
		"jurisdictionId": "IA",
		"caseTypeId": "Asylum",
		"eventId": "createCase",
		"newStateId": "caseStarted",
		"userId": "user-1"
	}`)

	ev, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ev.PreviousStateID != "" {
		t.Errorf("previousStateId = %q, want empty", ev.PreviousStateID)
	}
}

func TestParseRejectsBrokenJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"caseId": 42`)); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestValidateListsEveryMissingField(t *testing.T) {
	_, err := Parse([]byte(`{}`))
	if err == nil {
		t.Fatal("expected a validation error")
	}
	for _, field := range []string{
		"eventInstanceId", "eventTimestamp", "caseId", "jurisdictionId",
		"caseTypeId", "eventId", "newStateId", "userId",
	} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error does not name missing field %s: %v", field, err)
		}
	}
	if strings.Contains(err.Error(), "previousStateId") {
		t.Errorf("previousStateId wrongly treated as mandatory: %v", err)
	}
}

func TestValidateSingleMissingField(t *testing.T) {
	raw := []byte(`{
		"eventInstanceId": "instance-1",
		"eventTimestamp": "2025-06-02T10:00:00Z",
		"jurisdictionId": "IA",
		"caseTypeId": "Asylum",
		"eventId": "submitCase",
		"newStateId": "caseUnderReview",
		"userId": "user-1"
	}`)
	_, err := Parse(raw)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !strings.Contains(err.Error(), "caseId") || strings.Contains(err.Error(), "eventId,") {
		t.Errorf("error should name only caseId: %v", err)
	}
}
