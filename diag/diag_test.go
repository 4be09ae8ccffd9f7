package diag

import (
	"strings"
	"testing"
)

func TestBagCounts(t *testing.T) {
	b := NewBag()
	if b.HasErrors() {
		t.Error("fresh bag has no errors")
	}
	b.Report(Warning, Pos{Line: 3}, "suspicious %s", "cast")
	if b.HasErrors() {
		t.Error("warnings are not errors")
	}
	b.Report(Fatal, Pos{Line: 4}, "division by 0")
	b.Report(OptError, Pos{Line: 5}, "numeric type expected")
	if got := b.ErrorCount(); got != 2 {
		t.Errorf("ErrorCount = %d, want 2", got)
	}
	if got := b.WarningCount(); got != 1 {
		t.Errorf("WarningCount = %d, want 1", got)
	}
	b.Report(Debug, Pos{Line: 6}, "trace")
	if got := b.ErrorCount(); got != 2 {
		t.Errorf("debug messages must not count, got %d errors", got)
	}
}

func TestMessageFormat(t *testing.T) {
	b := NewBag()
	b.Report(Fatal, Pos{File: "weapons.zs", Line: 12}, "unknown identifier %q", "ammo")
	var sb strings.Builder
	b.Dump(&sb)
	got := sb.String()
	if !strings.Contains(got, "weapons.zs:12") || !strings.Contains(got, `"ammo"`) {
		t.Errorf("unexpected dump output: %q", got)
	}
}
