package handlers

import (
	"context"
	"log/slog"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/decision"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/caseevent"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/engine"
)

const cancelMessageName = "cancelTaskMessage"

// CancellationHandler cancels work made stale by the event. It runs first in
// the chain so work about to be cancelled is never warned or reconfigured.
type CancellationHandler struct {
	evaluator decision.Evaluator
	engine    engine.Client
	logger    *slog.Logger
}

func NewCancellationHandler(evaluator decision.Evaluator, eng engine.Client, logger *slog.Logger) *CancellationHandler {
	return &CancellationHandler{evaluator: evaluator, engine: eng, logger: logger}
}

func (h *CancellationHandler) Name() string { return "cancellation" }

func (h *CancellationHandler) Evaluate(ctx context.Context, ev *caseevent.Event) ([]decision.Result, error) {
	return h.evaluator.Evaluate(ctx, evaluationInputs(ev))
}

func (h *CancellationHandler) Handle(ctx context.Context, results []decision.Result, ev *caseevent.Event) error {
	for _, res := range results {
		if res.Action != decision.ActionCancellation {
			continue
		}
		for _, cmd := range categoryCommands(cancelMessageName, ev.CaseID, res, true, nil) {
			if err := h.engine.SendCommand(ctx, cmd); err != nil {
				return err
			}
			h.logger.Info("cancellation command sent",
				"case_id", ev.CaseID, "categories", res.CategoryValue())
		}
	}
	return nil
}
