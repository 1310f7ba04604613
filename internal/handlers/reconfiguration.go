package handlers

import (
	"context"
	"log/slog"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/decision"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/caseevent"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/engine"
)

// ReconfigurationHandler asks the engine's task-lifecycle API to flag every
// work item on the case for later re-derivation. It recomputes nothing
// itself. Category and warning fields are meaningless for this action;
// when the decision table supplies them anyway the misconfiguration is
// logged and ignored rather than failing the case.
type ReconfigurationHandler struct {
	evaluator decision.Evaluator
	engine    engine.Client
	logger    *slog.Logger
}

func NewReconfigurationHandler(evaluator decision.Evaluator, eng engine.Client, logger *slog.Logger) *ReconfigurationHandler {
	return &ReconfigurationHandler{evaluator: evaluator, engine: eng, logger: logger}
}

func (h *ReconfigurationHandler) Name() string { return "reconfiguration" }

func (h *ReconfigurationHandler) Evaluate(ctx context.Context, ev *caseevent.Event) ([]decision.Result, error) {
	return h.evaluator.Evaluate(ctx, evaluationInputs(ev))
}

func (h *ReconfigurationHandler) Handle(ctx context.Context, results []decision.Result, ev *caseevent.Event) error {
	for _, res := range results {
		if res.Action != decision.ActionReconfiguration {
			continue
		}
		if res.CategoryValue() != "" || res.WarningCode != "" || res.WarningText != "" {
			h.logger.Warn("reconfiguration result carries category/warning fields, ignoring them",
				"case_id", ev.CaseID, "event_id", ev.EventID)
		}
		if err := h.engine.FlagForReconfiguration(ctx, ev.CaseID); err != nil {
			return err
		}
		h.logger.Info("case flagged for reconfiguration", "case_id", ev.CaseID)
	}
	return nil
}
