package handlers

import (
	"testing"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/decision"
)

func TestCategoryCommandsDualShape(t *testing.T) {
	res := decision.Result{Action: decision.ActionCancellation, Categories: "A, B"}

	cmds := categoryCommands("cancelTaskMessage", "C1", res, true, nil)
	if len(cmds) != 2 {
		t.Fatalf("expected 2 distinct commands (modern + legacy), got %d", len(cmds))
	}

	modern := cmds[0]
	if modern.CorrelationKeys["caseId"] != "C1" {
		t.Errorf("modern command missing caseId key: %v", modern.CorrelationKeys)
	}
	if modern.CorrelationKeys["__processCategory__A"] != true {
		t.Errorf("missing __processCategory__A=true: %v", modern.CorrelationKeys)
	}
	if modern.CorrelationKeys["__processCategory__B"] != true {
		t.Errorf("missing __processCategory__B=true: %v", modern.CorrelationKeys)
	}
	if _, ok := modern.CorrelationKeys["taskCategory"]; ok {
		t.Error("modern command must not carry the legacy taskCategory key")
	}

	legacy := cmds[1]
	if legacy.CorrelationKeys["taskCategory"] != "A, B" {
		t.Errorf("legacy command should carry the raw unsplit string: %v", legacy.CorrelationKeys)
	}
	if _, ok := legacy.CorrelationKeys["__processCategory__A"]; ok {
		t.Error("legacy command must not carry namespaced category keys")
	}
}

func TestCategoryCommandsLegacyFieldOnly(t *testing.T) {
	// Older decision tables populate taskCategory instead of the current
	// categories field; both shapes must still come out.
	res := decision.Result{Action: decision.ActionCancellation, TaskCategory: "A"}

	cmds := categoryCommands("cancelTaskMessage", "C1", res, true, nil)
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	if cmds[0].CorrelationKeys["__processCategory__A"] != true {
		t.Errorf("modern shape not derived from legacy field: %v", cmds[0].CorrelationKeys)
	}
	if cmds[1].CorrelationKeys["taskCategory"] != "A" {
		t.Errorf("legacy shape lost: %v", cmds[1].CorrelationKeys)
	}
}

func TestCategoryCommandsNoCategoriesDeduplicates(t *testing.T) {
	res := decision.Result{Action: decision.ActionCancellation}

	cmds := categoryCommands("cancelTaskMessage", "C1", res, true, nil)
	if len(cmds) != 1 {
		t.Fatalf("identical shapes must collapse to one command, got %d", len(cmds))
	}
	if len(cmds[0].CorrelationKeys) != 1 || cmds[0].CorrelationKeys["caseId"] != "C1" {
		t.Errorf("expected only the caseId key: %v", cmds[0].CorrelationKeys)
	}
}

func TestSplitCategories(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"A", []string{"A"}},
		{"A, B", []string{"A", "B"}},
		{" A ,, B ", []string{"A", "B"}},
	}
	for _, c := range cases {
		got := splitCategories(c.raw)
		if len(got) != len(c.want) {
			t.Errorf("splitCategories(%q) = %v, want %v", c.raw, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("splitCategories(%q)[%d] = %q, want %q", c.raw, i, got[i], c.want[i])
			}
		}
	}
}
