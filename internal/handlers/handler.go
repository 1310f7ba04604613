// Package handlers implements the ordered rule-evaluation chain. Each
// handler evaluates the external decision table and, for the results tagged
// with its own action, emits outbound commands to the process engine.
package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/decision"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/caseevent"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/duedate"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/engine"
)

// Handler is one link of the chain. Evaluate queries the decision table and
// returns every result; Handle filters the results down to the action this
// handler owns and dispatches the commands it derives. Errors from either
// phase propagate to the dispatcher — they are never swallowed.
type Handler interface {
	Name() string
	Evaluate(ctx context.Context, ev *caseevent.Event) ([]decision.Result, error)
	Handle(ctx context.Context, results []decision.Result, ev *caseevent.Event) error
}

// Dispatcher runs the full handler chain for one parsed event. It is the
// single dispatch call site regardless of which channel delivered the event.
//
// The order is fixed and load-bearing: cancellation first so stale work is
// never warned or reconfigured, initiation last so newly created work never
// catches a same-cycle pass meant for other items.
type Dispatcher struct {
	chain  []Handler
	logger *slog.Logger
}

func NewDispatcher(evaluator decision.Evaluator, eng engine.Client, calc *duedate.Calculator, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		chain: []Handler{
			NewCancellationHandler(evaluator, eng, logger),
			NewWarningHandler(evaluator, eng, logger),
			NewReconfigurationHandler(evaluator, eng, logger),
			NewInitiationHandler(evaluator, eng, calc, logger),
		},
		logger: logger,
	}
}

// NewDispatcherWithChain builds a dispatcher over an explicit chain. Tests
// use it to observe ordering; production code goes through NewDispatcher.
func NewDispatcherWithChain(logger *slog.Logger, chain ...Handler) *Dispatcher {
	return &Dispatcher{chain: chain, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev *caseevent.Event) error {
	for _, h := range d.chain {
		results, err := h.Evaluate(ctx, ev)
		if err != nil {
			return fmt.Errorf("%s evaluate: %w", h.Name(), err)
		}
		if err := h.Handle(ctx, results, ev); err != nil {
			return fmt.Errorf("%s handle: %w", h.Name(), err)
		}
	}
	d.logger.Info("event dispatched", "case_id", ev.CaseID, "event_id", ev.EventID)
	return nil
}

// evaluationInputs derives the correlation facts every handler feeds the
// decision table.
func evaluationInputs(ev *caseevent.Event) map[string]string {
	return map[string]string{
		"eventId":         ev.EventID,
		"newStateId":      ev.NewStateID,
		"previousStateId": ev.PreviousStateID,
		"caseTypeId":      ev.CaseTypeID,
		"jurisdictionId":  ev.JurisdictionID,
	}
}
