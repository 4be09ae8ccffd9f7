package vm

import (
	"strings"
	"testing"

	"spark/types"
)

func TestConstantDeduplication(t *testing.T) {
	b := NewBuilder()
	if b.IntConst(42) != b.IntConst(42) {
		t.Error("equal int constants must share one pool slot")
	}
	if b.IntConst(42) == b.IntConst(43) {
		t.Error("distinct int constants must not share a slot")
	}
	if b.FloatConst(1.5) != b.FloatConst(1.5) {
		t.Error("equal float constants must share one pool slot")
	}
	if b.StringConst("a") != b.StringConst("a") {
		t.Error("equal string constants must share one pool slot")
	}
	if b.AddrConst(nil, TagGeneric) != b.AddrConst(nil, TagGeneric) {
		t.Error("equal tagged addresses must share one pool slot")
	}
	if b.AddrConst(nil, TagGeneric) == b.AddrConst(nil, TagState) {
		t.Error("same pointer with different tags must not share a slot")
	}
}

func TestJumpBackpatch(t *testing.T) {
	b := NewBuilder()
	j := b.EmitJump()
	b.Emit(OpNop, 0, 0, 0)
	if b.UnpatchedJumps() != 1 {
		t.Fatalf("UnpatchedJumps = %d, want 1", b.UnpatchedJumps())
	}
	b.BackpatchToHere(j)
	if b.Code[j].A != 2 {
		t.Errorf("patched target = %d, want 2", b.Code[j].A)
	}
	if b.UnpatchedJumps() != 0 {
		t.Errorf("UnpatchedJumps = %d, want 0", b.UnpatchedJumps())
	}
}

func TestBackpatchTwicePanics(t *testing.T) {
	b := NewBuilder()
	j := b.EmitJump()
	b.BackpatchToHere(j)
	defer func() {
		if recover() == nil {
			t.Error("patching a jump twice must panic")
		}
	}()
	b.BackpatchToHere(j)
}

func TestFinishRejectsUnresolvedJumps(t *testing.T) {
	b := NewBuilder()
	b.EmitJump()
	if _, err := b.Finish("f"); err == nil {
		t.Error("Finish must fail with an unresolved jump")
	}
}

func TestFinishRejectsLeakedRegisters(t *testing.T) {
	b := NewBuilder()
	b.Temp(types.RegInt, 1)
	if _, err := b.Finish("f"); err == nil {
		t.Error("Finish must fail with a leaked temporary")
	}
}

func TestFinishReportsRegisterHighWater(t *testing.T) {
	b := NewBuilder()
	r1 := b.Temp(types.RegInt, 1)
	r2 := b.Temp(types.RegFloat, 2)
	r1.Free(b)
	r2.Free(b)
	b.Emit(OpRet, RetFinal, RegEncNil, 0)
	p, err := b.Finish("f")
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if p.NumRegs[types.RegInt] != 1 || p.NumRegs[types.RegFloat] != 2 {
		t.Errorf("NumRegs = %v", p.NumRegs)
	}
}

func TestLoadIntUsesPoolForLargeValues(t *testing.T) {
	b := NewBuilder()
	b.LoadInt(0, 7)
	b.LoadInt(0, 1<<30)
	if b.Code[0].Op != OpLI {
		t.Errorf("small value should load as immediate, got %v", b.Code[0].Op)
	}
	if b.Code[1].Op != OpLK {
		t.Errorf("large value should load from the pool, got %v", b.Code[1].Op)
	}
}

func TestDisassemble(t *testing.T) {
	b := NewBuilder()
	r := b.Temp(types.RegInt, 1)
	b.Emit(OpLK, r.Num, b.IntConst(99), 0)
	b.Emit(OpRet, RetFinal, r.Encode(), r.Num)
	r.Free(b)
	p, err := b.Finish("demo")
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	var sb strings.Builder
	p.Disassemble(&sb)
	out := sb.String()
	for _, want := range []string{"demo", "lk", "ret", "99"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}
