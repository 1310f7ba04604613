// Package decision talks to the external decision-table service. The table
// itself is an opaque collaborator: this package only shapes requests and
// results, it never evaluates rules.
package decision

import (
	"context"
	"time"
)

// Action labels tag each decision result with the handler that owns it.
const (
	ActionCancellation    = "cancellation"
	ActionWarning         = "warning"
	ActionReconfiguration = "reconfiguration"
	ActionInitiation      = "initiation"
)

// Result is one recommendation row returned by the decision table.
//
// Categories is the current schema; TaskCategory is the field older table
// versions populated. Both are kept and consulted (Categories first) so a
// table that has not been migrated keeps working. Use CategoryValue to read
// them.
type Result struct {
	Action             string     `json:"action"`
	TaskID             string     `json:"taskId,omitempty"`
	Categories         string     `json:"processCategories,omitempty"`
	TaskCategory       string     `json:"taskCategory,omitempty"`
	WarningCode        string     `json:"warningCode,omitempty"`
	WarningText        string     `json:"warningText,omitempty"`
	WorkingDaysAllowed int        `json:"workingDaysAllowed,omitempty"`
	DelayDuration      int        `json:"delayDuration,omitempty"`
	DelayUntil         *time.Time `json:"delayUntil,omitempty"`
	DueDate            *time.Time `json:"dueDate,omitempty"`
	Description        string     `json:"description,omitempty"`
}

// CategoryValue returns the raw (possibly comma-separated) category string,
// preferring the current field over the legacy one.
func (r Result) CategoryValue() string {
	if r.Categories != "" {
		return r.Categories
	}
	return r.TaskCategory
}

// LegacyShape reports whether the result was produced by a table still
// emitting the legacy single-category field.
func (r Result) LegacyShape() bool {
	return r.Categories == "" && r.TaskCategory != ""
}

// Evaluator queries a decision table with a small set of correlation inputs
// derived from a case event. Failures propagate to the caller; they are never
// swallowed here.
type Evaluator interface {
	Evaluate(ctx context.Context, inputs map[string]string) ([]Result, error)
}
