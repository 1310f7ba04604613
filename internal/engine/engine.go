// Package engine is the outbound side of the pipeline: it hands commands to
// the external process engine. Delivery is fire-and-forget from the
// handlers' perspective; a failed send surfaces as an error on the inbound
// message's dispatch attempt, not as per-command state.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/command"
	kafkainfra "github.com/hmcts/wa-case-event-handler-sub000/internal/infrastructure/kafka"
)

// Client sends work to the process engine.
type Client interface {
	// SendCommand publishes one outbound command on the commands channel.
	SendCommand(ctx context.Context, cmd command.OutboundCommand) error

	// FlagForReconfiguration asks the engine's task-lifecycle API to mark
	// every work item matching the case for later re-derivation.
	FlagForReconfiguration(ctx context.Context, caseID string) error
}

// ProcessEngine publishes commands to the engine's Kafka topic and calls its
// task-lifecycle REST API. Commands are keyed by caseId so the transport
// keeps per-case partition affinity.
type ProcessEngine struct {
	producer *kafkainfra.Producer
	baseURL  string
	client   *http.Client
}

func New(producer *kafkainfra.Producer, baseURL string, timeout time.Duration) *ProcessEngine {
	return &ProcessEngine{
		producer: producer,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
	}
}

func (e *ProcessEngine) SendCommand(ctx context.Context, cmd command.OutboundCommand) error {
	value, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command %s: %w", cmd.Name, err)
	}

	key := []byte(cmd.Name)
	if caseID, ok := cmd.CorrelationKeys["caseId"].(string); ok && caseID != "" {
		key = []byte(caseID)
	}

	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := e.producer.SendMessage(sendCtx, key, value); err != nil {
		return fmt.Errorf("send command %s: %w", cmd.Name, err)
	}
	return nil
}

func (e *ProcessEngine) FlagForReconfiguration(ctx context.Context, caseID string) error {
	body, err := json.Marshal(map[string]string{"caseId": caseID})
	if err != nil {
		return fmt.Errorf("marshal reconfiguration request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/task/operation/mark-for-reconfiguration", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build reconfiguration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("flag case %s for reconfiguration: %w", caseID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("task-lifecycle API returned %d: %s", resp.StatusCode, b)
	}
	return nil
}
