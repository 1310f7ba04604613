package command

import "reflect"

// OutboundCommand is a single instruction handed to the external process
// engine. CorrelationKeys are matched by the engine against running
// instances; Variables travel as payload. All controls whether the command
// fans out to every matching instance or only the first. Commands are built
// fresh per handler invocation and never persisted.
type OutboundCommand struct {
	Name            string         `json:"name"`
	CorrelationKeys map[string]any `json:"correlationKeys"`
	Variables       map[string]any `json:"variables,omitempty"`
	All             bool           `json:"all"`
}

// Equal reports structural equality. Used to de-duplicate the legacy and
// namespaced command shapes before dispatch so older decision-table
// configurations do not double side effects on the engine.
func (c OutboundCommand) Equal(o OutboundCommand) bool {
	if c.Name != o.Name || c.All != o.All {
		return false
	}
	return mapsEqual(c.CorrelationKeys, o.CorrelationKeys) && mapsEqual(c.Variables, o.Variables)
}

// Dedupe returns cmds with structurally identical commands collapsed to one,
// preserving first-seen order.
func Dedupe(cmds []OutboundCommand) []OutboundCommand {
	var out []OutboundCommand
	for _, c := range cmds {
		dup := false
		for _, seen := range out {
			if c.Equal(seen) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || !reflect.DeepEqual(ov, v) {
			return false
		}
	}
	return true
}
