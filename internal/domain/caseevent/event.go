package caseevent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is the inbound case lifecycle event, parsed from the raw payload
// delivered over the primary topic, the dead-letter topic or the HTTP
// fallback endpoint. AdditionalData is carried opaquely; the pipeline never
// interprets it.
type Event struct {
	EventInstanceID string            `json:"eventInstanceId"`
	EventTimestamp  time.Time         `json:"eventTimestamp"`
	CaseID          string            `json:"caseId"`
	JurisdictionID  string            `json:"jurisdictionId"`
	CaseTypeID      string            `json:"caseTypeId"`
	EventID         string            `json:"eventId"`
	NewStateID      string            `json:"newStateId"`
	PreviousStateID string            `json:"previousStateId,omitempty"`
	UserID          string            `json:"userId"`
	AdditionalData  map[string]string `json:"additionalData,omitempty"`
}

// Parse decodes and validates a raw event payload. The caller keeps the raw
// bytes regardless of the outcome so malformed deliveries stay auditable.
func Parse(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal case event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Validate checks the mandatory scalar fields. PreviousStateID is legitimately
// absent for events that create a case, so it is not checked.
func (e *Event) Validate() error {
	var missing []string
	if e.EventInstanceID == "" {
		missing = append(missing, "eventInstanceId")
	}
	if e.EventTimestamp.IsZero() {
		missing = append(missing, "eventTimestamp")
	}
	if e.CaseID == "" {
		missing = append(missing, "caseId")
	}
	if e.JurisdictionID == "" {
		missing = append(missing, "jurisdictionId")
	}
	if e.CaseTypeID == "" {
		missing = append(missing, "caseTypeId")
	}
	if e.EventID == "" {
		missing = append(missing, "eventId")
	}
	if e.NewStateID == "" {
		missing = append(missing, "newStateId")
	}
	if e.UserID == "" {
		missing = append(missing, "userId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("case event missing mandatory fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
