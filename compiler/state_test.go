package compiler

import (
	"testing"

	"spark/sym"
	"spark/types"
	"spark/vm"
)

func TestStateLabelStringParses(t *testing.T) {
	ctx, bag := testCtx()
	n := NewTypeCast(strc("Super::Death.Fire"), types.TypeStateLabel).Resolve(ctx)
	if n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	ref, isRef := n.(*StateLabelRef)
	if !isRef {
		t.Fatalf("string cast resolved to %T, want *StateLabelRef", n)
	}
	if ref.Ref.Scope != types.InternName("Super") {
		t.Errorf("scope = %v, want Super", ref.Ref.Scope)
	}
	if ref.Ref.Path != "Death.Fire" {
		t.Errorf("path = %q, want Death.Fire", ref.Ref.Path)
	}
	if n.Type() != types.TypeStateLabel {
		t.Errorf("type = %s, want statelabel", n.Type())
	}
}

func TestStateLabelRejectsMalformedString(t *testing.T) {
	for _, text := range []string{"", "::Spawn", "A..B", "Spawn."} {
		ctx, bag := testCtx()
		if n := NewTypeCast(strc(text), types.TypeStateLabel).Resolve(ctx); n != nil {
			t.Errorf("%q: resolved to %T, want failure", text, n)
		}
		if !bag.HasErrors() {
			t.Errorf("%q: no error reported", text)
		}
	}
}

func TestStateIndexConstantFolds(t *testing.T) {
	ctx, _ := testCtx()
	ctx.StateCount = 3
	n := NewStateIndexCast(intc(2)).Resolve(ctx)
	if n == nil || !n.Constant() {
		t.Fatalf("constant index did not fold: %T", n)
	}
	if got := constValue(n).GetInt(); got != 2 {
		t.Errorf("folded to %d, want 2", got)
	}
	if n.Type() != types.TypeStateLabel {
		t.Errorf("type = %s, want statelabel", n.Type())
	}

	ctx, bag := testCtx()
	ctx.StateCount = 3
	if n := NewStateIndexCast(intc(4)).Resolve(ctx); n != nil {
		t.Error("an index past the state block must fail resolution")
	}
	if !bag.HasErrors() {
		t.Error("an index past the state block must report an error")
	}
}

func TestCompileRuntimeStateIndexPacksJump(t *testing.T) {
	x := NewLocalVariableDeclaration(Pos{}, "x", types.TypeSInt32, intc(0))
	body := NewCompoundStatement(Pos{})
	body.Add(x)
	body.Add(NewReturnStatement(Pos{}, NewStateIndexCast(NewLocalVariable(Pos{}, x))))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body, WithStateCount(5))
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	if !hasOp(prog, vm.OpMaxRK) || !hasOp(prog, vm.OpMinRK) {
		t.Error("a runtime state index must clamp into the block")
	}
	if !hasOp(prog, vm.OpOrRK) {
		t.Error("a runtime state index must fold in the jump marker")
	}
	if !hasIntConst(prog, 5) {
		t.Errorf("clamp bound 5 missing from the constant pool: %v", prog.IntConsts)
	}
}

func TestCompileStateLabelInternsReference(t *testing.T) {
	body := NewCompoundStatement(Pos{})
	body.Add(NewReturnStatement(Pos{}, NewTypeCast(strc("See"), types.TypeStateLabel)))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	found := false
	for _, k := range prog.AddrConsts {
		if k.Tag != vm.TagState {
			continue
		}
		if ref, isRef := k.Ptr.(sym.StateRef); isRef && ref.Path == "See" && ref.Scope == types.NameNone {
			found = true
		}
	}
	if !found {
		t.Errorf("state reference missing from the address pool: %v", prog.AddrConsts)
	}
}
