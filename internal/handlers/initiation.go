package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/decision"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/caseevent"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/command"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/duedate"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/engine"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/idempotency"
)

const createMessageName = "createTaskMessage"

// InitiationHandler creates new units of work. It is the only handler that
// performs date arithmetic and idempotency-key derivation, and the only one
// that creates new outbound state instead of correlating against existing
// instances. It runs last so freshly created work never catches a same-cycle
// cancellation or warning pass.
type InitiationHandler struct {
	evaluator decision.Evaluator
	engine    engine.Client
	calc      *duedate.Calculator
	logger    *slog.Logger
}

func NewInitiationHandler(evaluator decision.Evaluator, eng engine.Client, calc *duedate.Calculator, logger *slog.Logger) *InitiationHandler {
	return &InitiationHandler{evaluator: evaluator, engine: eng, calc: calc, logger: logger}
}

func (h *InitiationHandler) Name() string { return "initiation" }

func (h *InitiationHandler) Evaluate(ctx context.Context, ev *caseevent.Event) ([]decision.Result, error) {
	return h.evaluator.Evaluate(ctx, evaluationInputs(ev))
}

func (h *InitiationHandler) Handle(ctx context.Context, results []decision.Result, ev *caseevent.Event) error {
	for _, res := range results {
		if res.Action != decision.ActionInitiation {
			continue
		}

		delayUntil := h.calc.DelayUntil(ev.EventTimestamp, res.DelayDuration, res.DelayUntil)
		dueDate := h.calc.DueDate(delayUntil, res.WorkingDaysAllowed, res.DueDate)

		cmd := command.OutboundCommand{
			Name:            createMessageName,
			CorrelationKeys: map[string]any{"caseId": ev.CaseID},
			Variables: map[string]any{
				"idempotencyKey": idempotency.Key(ev.EventInstanceID, res.TaskID),
				"taskId":         res.TaskID,
				"taskState":      "unconfigured",
				"hasWarnings":    false,
				"warningList":    []string{},
				"delayUntil":     delayUntil.Format(time.RFC3339),
				"dueDate":        dueDate.Format(time.RFC3339),
			},
			All: false,
		}
		if res.Description != "" {
			cmd.Variables["name"] = res.Description
		}

		if err := h.engine.SendCommand(ctx, cmd); err != nil {
			return err
		}
		h.logger.Info("initiation command sent",
			"case_id", ev.CaseID, "task_id", res.TaskID, "due_date", dueDate)
	}
	return nil
}
