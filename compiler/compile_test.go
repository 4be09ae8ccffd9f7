package compiler

import (
	"testing"

	"spark/sym"
	"spark/types"
	"spark/vm"
)

func hasOp(p *vm.Program, op vm.Opcode) bool {
	for _, ins := range p.Code {
		if ins.Op == op {
			return true
		}
	}
	return false
}

func hasIntConst(p *vm.Program, v int) bool {
	for _, k := range p.IntConsts {
		if k == v {
			return true
		}
	}
	return false
}

func TestCompileFoldedExpressionReturn(t *testing.T) {
	body := NewCompoundStatement(Pos{})
	body.Add(NewReturnStatement(Pos{},
		NewAddSub(Pos{}, intc(2), NewMulDiv(Pos{}, intc(3), intc(4), '*'), false)))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	if !hasIntConst(prog, 14) {
		t.Errorf("folded result 14 missing from the constant pool: %v", prog.IntConsts)
	}
	if hasOp(prog, vm.OpMulRR) || hasOp(prog, vm.OpAddRR) {
		t.Error("a fully constant expression must not emit arithmetic")
	}
	last := prog.Code[len(prog.Code)-1]
	if last.Op != vm.OpRet || last.A&vm.RetFinal == 0 {
		t.Errorf("last instruction = %v, want a final ret", last)
	}
}

func TestCompileStringConcatFolds(t *testing.T) {
	body := NewCompoundStatement(Pos{})
	body.Add(NewReturnStatement(Pos{}, NewConcat(Pos{}, strc("a"), strc("b"))))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	found := false
	for _, s := range prog.StringConsts {
		if s == "ab" {
			found = true
		}
	}
	if !found {
		t.Errorf("folded string missing from the pool: %v", prog.StringConsts)
	}
	if hasOp(prog, vm.OpConcat) {
		t.Error("constant concatenation must not emit OpConcat")
	}
}

func TestCompileRuntimeDivide(t *testing.T) {
	decl := NewLocalVariableDeclaration(Pos{}, "x", types.TypeSInt32, intc(3))
	body := NewCompoundStatement(Pos{})
	body.Add(decl)
	body.Add(NewReturnStatement(Pos{},
		NewMulDiv(Pos{}, intc(5), NewLocalVariable(Pos{}, decl), '/')))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	if !hasOp(prog, vm.OpDivKR) {
		t.Error("konst/register divide must emit the KR form")
	}
}

func TestCompileDivisionByZeroFails(t *testing.T) {
	body := NewCompoundStatement(Pos{})
	body.Add(NewReturnStatement(Pos{}, NewMulDiv(Pos{}, intc(5), intc(0), '/')))

	_, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err == nil {
		t.Fatal("division by a constant zero must fail compilation")
	}
	if !bag.HasErrors() {
		t.Error("failure must leave a diagnostic behind")
	}
}

func TestCompileCountingLoop(t *testing.T) {
	i := NewLocalVariableDeclaration(Pos{}, "i", types.TypeSInt32, intc(0))
	s := NewLocalVariableDeclaration(Pos{}, "s", types.TypeSInt32, intc(0))
	body := NewCompoundStatement(Pos{})
	body.Add(i)
	body.Add(s)
	loopBody := NewCompoundStatement(Pos{})
	loopBody.Add(NewAssign(NewLocalVariable(Pos{}, s),
		NewAddSub(Pos{}, NewLocalVariable(Pos{}, s), NewLocalVariable(Pos{}, i), false)))
	loopBody.Add(NewIncrDecr(NewLocalVariable(Pos{}, i), false, false))
	body.Add(NewWhileLoop(Pos{},
		NewCompareRel(Pos{}, NewLocalVariable(Pos{}, i), intc(10), "<"),
		loopBody))
	body.Add(NewReturnStatement(Pos{}, NewLocalVariable(Pos{}, s)))

	prog, bag, err := CompileBody(&sym.Function{Name: "count"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	if !hasOp(prog, vm.OpJmp) {
		t.Error("a live loop needs at least one jump")
	}
	if !hasOp(prog, vm.OpAddRK) {
		t.Error("the increment must use the add-konst form")
	}
	if prog.NumRegs[types.RegInt] < 2 {
		t.Errorf("NumRegs[int] = %d, want at least the two locals", prog.NumRegs[types.RegInt])
	}
}

func TestCompileBreakContinue(t *testing.T) {
	i := NewLocalVariableDeclaration(Pos{}, "i", types.TypeSInt32, intc(0))
	body := NewCompoundStatement(Pos{})
	body.Add(i)
	loopBody := NewCompoundStatement(Pos{})
	loopBody.Add(NewIncrDecr(NewLocalVariable(Pos{}, i), false, false))
	loopBody.Add(NewIfStatement(
		NewCompareRel(Pos{}, NewLocalVariable(Pos{}, i), intc(5), ">"),
		NewBreakStatement(Pos{}),
		NewContinueStatement(Pos{})))
	body.Add(NewWhileLoop(Pos{}, boolc(true), loopBody))
	body.Add(NewReturnStatement(Pos{}, NewLocalVariable(Pos{}, i)))

	_, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
}

func TestCompileDoWhileTestsAfterBody(t *testing.T) {
	i := NewLocalVariableDeclaration(Pos{}, "i", types.TypeSInt32, intc(0))
	body := NewCompoundStatement(Pos{})
	body.Add(i)
	loopBody := NewCompoundStatement(Pos{})
	loopBody.Add(NewIncrDecr(NewLocalVariable(Pos{}, i), false, false))
	body.Add(NewDoWhileLoop(Pos{},
		NewCompareRel(Pos{}, NewLocalVariable(Pos{}, i), intc(3), "<"),
		loopBody))
	body.Add(NewReturnStatement(Pos{}, NewLocalVariable(Pos{}, i)))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	backEdge := false
	for _, ins := range prog.Code {
		if ins.Op == vm.OpTest && ins.B == 1 {
			backEdge = true
		}
	}
	if !backEdge {
		t.Error("a do-while back edge tests the condition against 1")
	}
}

func TestCompileVectorMixedAddWidens(t *testing.T) {
	a := NewLocalVariableDeclaration(Pos{}, "a", types.TypeVector3,
		NewVectorValue(Pos{}, floatc(1), floatc(2), floatc(3)))
	c := NewLocalVariableDeclaration(Pos{}, "b", types.TypeVector2,
		NewVectorValue(Pos{}, floatc(4), floatc(5)))
	body := NewCompoundStatement(Pos{})
	body.Add(a)
	body.Add(c)
	body.Add(NewReturnStatement(Pos{},
		NewAddSub(Pos{}, NewLocalVariable(Pos{}, a), NewLocalVariable(Pos{}, c), false)))

	fn := &sym.Function{Name: "f"}
	prog, bag, err := CompileBody(fn, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	if fn.Proto.ReturnTypes[0] != types.TypeVector3 {
		t.Errorf("result type = %s, want vector3", fn.Proto.ReturnTypes[0])
	}
	if !hasOp(prog, vm.OpAddV2) {
		t.Error("the shared components add with the two-wide form")
	}
	if !hasOp(prog, vm.OpMoveF) {
		t.Error("the unmatched z component must move through unchanged")
	}
}

func TestCompileVectorMixedAddBothOrders(t *testing.T) {
	v3 := NewVectorValue(Pos{}, floatc(1), floatc(2), floatc(3))
	v2 := NewVectorValue(Pos{}, floatc(4), floatc(5))
	ctx, bag := testCtx()
	n := NewAddSub(Pos{}, v3, v2, false).Resolve(ctx)
	if n == nil {
		t.Fatalf("vector3 + vector2 failed: %v", bag.Messages)
	}
	if n.Type() != types.TypeVector3 {
		t.Errorf("vector3 + vector2 = %s, want vector3", n.Type())
	}

	v3 = NewVectorValue(Pos{}, floatc(1), floatc(2), floatc(3))
	v2 = NewVectorValue(Pos{}, floatc(4), floatc(5))
	ctx, bag = testCtx()
	n = NewAddSub(Pos{}, v2, v3, true).Resolve(ctx)
	if n == nil {
		t.Fatalf("vector2 - vector3 failed: %v", bag.Messages)
	}
	if n.Type() != types.TypeVector3 {
		t.Errorf("vector2 - vector3 = %s, want vector3", n.Type())
	}
}

func TestCompileSwitchDispatch(t *testing.T) {
	x := NewLocalVariableDeclaration(Pos{}, "x", types.TypeSInt32, intc(2))
	body := NewCompoundStatement(Pos{})
	body.Add(x)
	content := []Node{
		NewCaseStatement(Pos{}, intc(1)), NewReturnStatement(Pos{}, intc(10)),
		NewCaseStatement(Pos{}, intc(2)), NewReturnStatement(Pos{}, intc(20)),
		NewCaseStatement(Pos{}, nil), NewReturnStatement(Pos{}, intc(30)),
	}
	body.Add(NewSwitchStatement(Pos{}, NewLocalVariable(Pos{}, x), content))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	tests := 0
	for _, ins := range prog.Code {
		if ins.Op == vm.OpTest {
			tests++
		}
	}
	if tests != 2 {
		t.Errorf("emitted %d TEST instructions, want one per valued case", tests)
	}
}

func TestCompileWideCaseLabelUsesComparison(t *testing.T) {
	x := NewLocalVariableDeclaration(Pos{}, "x", types.TypeSInt32, intc(0))
	body := NewCompoundStatement(Pos{})
	body.Add(x)
	content := []Node{
		NewCaseStatement(Pos{}, intc(1 << 20)), NewBreakStatement(Pos{}),
	}
	body.Add(NewSwitchStatement(Pos{}, NewLocalVariable(Pos{}, x), content))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	if !hasOp(prog, vm.OpCmpI) {
		t.Error("a case label beyond the TEST immediate must fall back to a compare")
	}
}

func TestCompileConditionalValue(t *testing.T) {
	x := NewLocalVariableDeclaration(Pos{}, "x", types.TypeSInt32, intc(1))
	body := NewCompoundStatement(Pos{})
	body.Add(x)
	body.Add(NewReturnStatement(Pos{},
		NewConditional(NewLocalVariable(Pos{}, x), intc(10), intc(20))))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	if !hasOp(prog, vm.OpTest) {
		t.Error("a runtime conditional needs a test")
	}
}

func TestCompileMethodReservesSelf(t *testing.T) {
	class := types.NewClass("Actor", nil)
	class.AddField("health", types.TypeSInt32, 0)
	fn := &sym.Function{Name: "GetHealth", Class: class}
	body := NewCompoundStatement(Pos{})
	body.Add(NewReturnStatement(Pos{}, NewIdentifier(Pos{}, "health")))

	prog, bag, err := CompileBody(fn, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	if prog.NumRegs[types.RegPointer] < 1 {
		t.Errorf("NumRegs[pointer] = %d, a method must reserve the self register", prog.NumRegs[types.RegPointer])
	}
	if !hasOp(prog, vm.OpLW) {
		t.Error("reading an int field must emit a word load")
	}
	if fn.Proto == nil || len(fn.Proto.ReturnTypes) != 1 || fn.Proto.ReturnTypes[0] != types.TypeSInt32 {
		t.Errorf("inferred proto = %+v, want a single int return", fn.Proto)
	}
}

func TestCompileRandomPickTable(t *testing.T) {
	body := NewCompoundStatement(Pos{})
	body.Add(NewReturnStatement(Pos{},
		NewRandomPick(Pos{}, []Node{intc(10), intc(20), intc(30)}, false)))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	if !hasOp(prog, vm.OpCallK) {
		t.Error("randompick draws its index through a native call")
	}
	tests := 0
	for _, ins := range prog.Code {
		if ins.Op == vm.OpTest {
			tests++
		}
	}
	if tests != 3 {
		t.Errorf("emitted %d TEST instructions, want one per choice", tests)
	}
}

func TestCompileReturnMismatchProducesNoProgram(t *testing.T) {
	body := NewCompoundStatement(Pos{})
	body.Add(NewIfStatement(NewBoolCast(nonConstInt()),
		NewReturnStatement(Pos{}, intc(1)), nil))
	body.Add(NewReturnStatement(Pos{}, nil))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err == nil {
		t.Fatal("mixing value and void returns must fail compilation")
	}
	if prog != nil {
		t.Error("no program may survive a failed compilation")
	}
	if !bag.HasErrors() {
		t.Errorf("missing diagnostic: %v", bag.Messages)
	}
}

func TestCompileArrayIndexShiftScaling(t *testing.T) {
	table := &sym.Global{Name: "table", Type: types.NewArray(types.TypeFloat64, 8), Addr: "table"}
	i := NewLocalVariableDeclaration(Pos{}, "i", types.TypeSInt32, intc(0))
	body := NewCompoundStatement(Pos{})
	body.Add(i)
	body.Add(NewReturnStatement(Pos{},
		NewArrayElement(NewGlobalVariable(Pos{}, table), NewLocalVariable(Pos{}, i))))

	prog, bag, err := CompileBody(&sym.Function{Name: "f"}, body)
	if err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
	if !hasOp(prog, vm.OpSllRI) {
		t.Error("a power-of-two element size scales the index with a shift")
	}
	if hasOp(prog, vm.OpMulRK) {
		t.Error("a power-of-two element size must not multiply")
	}
	if !hasOp(prog, vm.OpBound) {
		t.Error("a runtime index keeps its bounds check")
	}
}

func TestCallVariadicArgsAdoptLastParamType(t *testing.T) {
	fn := &sym.Function{
		Name:     "vsum",
		Proto:    sym.NewProto([]*types.Type{types.TypeFloat64}, []*types.Type{types.TypeFloat64}),
		ArgFlags: []sym.ArgFlags{sym.ArgVariadic},
		Native:   true,
	}
	ctx, bag := testCtx()
	n := NewVMFunctionCall(Pos{}, nil, fn, []Node{floatc(1), intc(2), nonConstInt()}, nil).Resolve(ctx)
	if n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	call := n.(*VMFunctionCall)
	for i, arg := range call.Args {
		if arg.Type() != types.TypeFloat64 {
			t.Errorf("argument %d has type %s, want double", i+1, arg.Type())
		}
	}
}

func TestCompileLeavesNoDanglingState(t *testing.T) {
	// Nested blocks, a loop and an early return, all in one body:
	// Finish rejects leaked registers and unresolved jumps, so a nil
	// error is the whole assertion.
	outerVar := NewLocalVariableDeclaration(Pos{}, "a", types.TypeFloat64, floatc(1.5))
	body := NewCompoundStatement(Pos{})
	body.Add(outerVar)
	inner := NewCompoundStatement(Pos{})
	innerVar := NewLocalVariableDeclaration(Pos{}, "b", types.TypeFloat64, NewLocalVariable(Pos{}, outerVar))
	inner.Add(innerVar)
	inner.Add(NewIfStatement(
		NewCompareRel(Pos{}, NewLocalVariable(Pos{}, innerVar), floatc(10), ">"),
		NewReturnStatement(Pos{}, NewLocalVariable(Pos{}, innerVar)),
		nil))
	body.Add(inner)
	body.Add(NewReturnStatement(Pos{}, NewLocalVariable(Pos{}, outerVar)))

	if _, bag, err := CompileBody(&sym.Function{Name: "f"}, body); err != nil {
		t.Fatalf("CompileBody: %v\n%v", err, bag.Messages)
	}
}
