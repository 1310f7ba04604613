package handlers

import (
	"strings"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/decision"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/command"
)

// processCategoryPrefix namespaces the per-category boolean correlation keys
// of the current command shape.
const processCategoryPrefix = "__processCategory__"

// categoryCommands builds the command variants for one cancellation or
// warning decision result: the current shape with one boolean key per
// category, and the legacy shape with the raw unsplit string under
// taskCategory. Older decision-table configurations still produce the legacy
// single-category field, so both shapes are emitted until that path is
// retired; identical shapes collapse to a single command so the engine never
// sees doubled side effects.
func categoryCommands(name, caseID string, res decision.Result, all bool, vars map[string]any) []command.OutboundCommand {
	raw := res.CategoryValue()

	modern := map[string]any{"caseId": caseID}
	for _, c := range splitCategories(raw) {
		modern[processCategoryPrefix+c] = true
	}

	legacy := map[string]any{"caseId": caseID}
	if raw != "" {
		legacy["taskCategory"] = raw
	}

	return command.Dedupe([]command.OutboundCommand{
		{Name: name, CorrelationKeys: modern, Variables: vars, All: all},
		{Name: name, CorrelationKeys: legacy, Variables: vars, All: all},
	})
}

func splitCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if c := strings.TrimSpace(part); c != "" {
			out = append(out, c)
		}
	}
	return out
}
