package handlers

import (
	"context"
	"log/slog"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/decision"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/caseevent"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/engine"
)

const warnMessageName = "warnTaskMessage"

// WarningHandler raises attention flags on still-active work. Warning
// attributes travel as payload variables, not correlation keys, and are only
// attached when both code and text are present; an attribute-less warning
// still fans out to every matching instance.
type WarningHandler struct {
	evaluator decision.Evaluator
	engine    engine.Client
	logger    *slog.Logger
}

func NewWarningHandler(evaluator decision.Evaluator, eng engine.Client, logger *slog.Logger) *WarningHandler {
	return &WarningHandler{evaluator: evaluator, engine: eng, logger: logger}
}

func (h *WarningHandler) Name() string { return "warning" }

func (h *WarningHandler) Evaluate(ctx context.Context, ev *caseevent.Event) ([]decision.Result, error) {
	return h.evaluator.Evaluate(ctx, evaluationInputs(ev))
}

func (h *WarningHandler) Handle(ctx context.Context, results []decision.Result, ev *caseevent.Event) error {
	for _, res := range results {
		if res.Action != decision.ActionWarning {
			continue
		}

		var vars map[string]any
		if res.WarningCode != "" && res.WarningText != "" {
			vars = map[string]any{
				"warningCode": res.WarningCode,
				"warningText": res.WarningText,
			}
		}

		for _, cmd := range categoryCommands(warnMessageName, ev.CaseID, res, true, vars) {
			if err := h.engine.SendCommand(ctx, cmd); err != nil {
				return err
			}
			h.logger.Info("warning command sent",
				"case_id", ev.CaseID, "warning_code", res.WarningCode)
		}
	}
	return nil
}
