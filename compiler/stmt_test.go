package compiler

import (
	"strings"
	"testing"

	"spark/types"
)

func TestIfConstantConditionFolds(t *testing.T) {
	thenStmt := NewNop(Pos{})
	elseStmt := NewNop(Pos{})
	ctx, bag := testCtx()
	n := NewIfStatement(boolc(true), thenStmt, elseStmt).Resolve(ctx)
	if n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	if n != Node(thenStmt) {
		t.Errorf("if(true) resolved to %T, want the taken branch", n)
	}

	ctx, _ = testCtx()
	n = NewIfStatement(boolc(false), thenStmt, nil).Resolve(ctx)
	if _, ok := n.(*Nop); !ok {
		t.Errorf("if(false) without else resolved to %T, want *Nop", n)
	}
}

func TestWhileConstantFalseEliminated(t *testing.T) {
	ctx, bag := testCtx()
	n := NewWhileLoop(Pos{}, boolc(false), NewNop(Pos{})).Resolve(ctx)
	if n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	if _, ok := n.(*Nop); !ok {
		t.Errorf("while(false) resolved to %T, want *Nop", n)
	}
}

func TestForConstantFalseKeepsInit(t *testing.T) {
	init := NewLocalVariableDeclaration(Pos{}, "i", types.TypeSInt32, intc(0))
	ctx, bag := testCtx()
	n := NewForLoop(Pos{}, init, boolc(false), nil, NewNop(Pos{})).Resolve(ctx)
	if n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	if n != Node(init) {
		t.Errorf("dead for loop resolved to %T, want its init clause", n)
	}
}

func TestBreakOutsideLoopFails(t *testing.T) {
	ctx, bag := testCtx()
	if n := NewBreakStatement(Pos{}).Resolve(ctx); n != nil {
		t.Error("break outside any loop must fail resolution")
	}
	if !bag.HasErrors() {
		t.Error("break outside any loop must report an error")
	}

	ctx, bag = testCtx()
	if n := NewContinueStatement(Pos{}).Resolve(ctx); n != nil {
		t.Error("continue outside any loop must fail resolution")
	}
	if !bag.HasErrors() {
		t.Error("continue outside any loop must report an error")
	}
}

func TestDuplicateLocalRejected(t *testing.T) {
	block := NewCompoundStatement(Pos{})
	block.Add(NewLocalVariableDeclaration(Pos{}, "x", types.TypeSInt32, nil))
	block.Add(NewLocalVariableDeclaration(Pos{}, "x", types.TypeSInt32, nil))
	ctx, bag := testCtx()
	if n := block.Resolve(ctx); n != nil {
		t.Error("redeclaring a local in the same block must fail")
	}
	if !bag.HasErrors() {
		t.Error("redeclaration must report an error")
	}
}

func TestInnerBlockMayShadow(t *testing.T) {
	outer := NewCompoundStatement(Pos{})
	outer.Add(NewLocalVariableDeclaration(Pos{}, "x", types.TypeSInt32, nil))
	inner := NewCompoundStatement(Pos{})
	inner.Add(NewLocalVariableDeclaration(Pos{}, "x", types.TypeFloat64, nil))
	outer.Add(inner)
	ctx, bag := testCtx()
	if n := outer.Resolve(ctx); n == nil {
		t.Fatalf("shadowing in an inner block must resolve: %v", bag.Messages)
	}
}

func TestIdentifierFindsInnermostLocal(t *testing.T) {
	outer := NewCompoundStatement(Pos{})
	outer.Add(NewLocalVariableDeclaration(Pos{}, "x", types.TypeSInt32, nil))
	inner := NewCompoundStatement(Pos{})
	inner.Add(NewLocalVariableDeclaration(Pos{}, "x", types.TypeFloat64, nil))
	use := NewIdentifier(Pos{}, "x")
	inner.Add(use)
	outer.Add(inner)

	ctx, bag := testCtx()
	if n := outer.Resolve(ctx); n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	// The inner block's statements were rewritten in place.
	resolved := inner.Statements[1]
	if resolved.Type() != types.TypeFloat64 {
		t.Errorf("identifier bound to %v, want the inner double", resolved.Type())
	}
}

func TestSequenceReportsEveryError(t *testing.T) {
	seq := NewSequence(Pos{})
	seq.Add(NewIdentifier(Pos{}, "nope1"))
	seq.Add(NewIdentifier(Pos{}, "nope2"))
	ctx, bag := testCtx()
	if n := seq.Resolve(ctx); n != nil {
		t.Error("sequence with failing statements must fail")
	}
	if bag.ErrorCount() != 2 {
		t.Errorf("reported %d errors, want one per failing statement", bag.ErrorCount())
	}
}

func TestSwitchConstantConditionReduces(t *testing.T) {
	picked := intc(222)
	content := []Node{
		NewCaseStatement(Pos{}, intc(1)), intc(111), NewBreakStatement(Pos{}),
		NewCaseStatement(Pos{}, intc(2)), picked, NewBreakStatement(Pos{}),
		NewCaseStatement(Pos{}, nil), intc(333),
	}
	ctx, bag := testCtx()
	n := NewSwitchStatement(Pos{}, intc(2), content).Resolve(ctx)
	if n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	sw, ok := n.(*SwitchStatement)
	if !ok {
		t.Fatalf("resolved to %T", n)
	}
	if !sw.reduced {
		t.Fatal("constant condition must reduce the switch")
	}
	if len(sw.Content) != 1 || sw.Content[0] != Node(picked) {
		t.Errorf("reduced content = %v, want just the matching case's statement", sw.Content)
	}
}

func TestSwitchConstantFallsThroughToDefault(t *testing.T) {
	def := intc(333)
	content := []Node{
		NewCaseStatement(Pos{}, intc(1)), intc(111), NewBreakStatement(Pos{}),
		NewCaseStatement(Pos{}, nil), def,
	}
	ctx, bag := testCtx()
	n := NewSwitchStatement(Pos{}, intc(9), content).Resolve(ctx)
	if n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	sw := n.(*SwitchStatement)
	if len(sw.Content) != 1 || sw.Content[0] != Node(def) {
		t.Errorf("unmatched constant switch must reduce to the default slice, got %v", sw.Content)
	}
}

func TestSwitchRejectsDuplicateLabels(t *testing.T) {
	content := []Node{
		NewCaseStatement(Pos{}, intc(1)),
		NewCaseStatement(Pos{}, intc(1)),
	}
	ctx, bag := testCtx()
	if n := NewSwitchStatement(Pos{}, NewBoolCast(nonConstInt()), content).Resolve(ctx); n != nil {
		t.Error("duplicate case labels must fail resolution")
	}
	if !bag.HasErrors() {
		t.Error("duplicate case labels must report an error")
	}
}

func TestSwitchRejectsNonConstantLabel(t *testing.T) {
	content := []Node{NewCaseStatement(Pos{}, nonConstInt())}
	ctx, bag := testCtx()
	if n := NewSwitchStatement(Pos{}, nonConstInt(), content).Resolve(ctx); n != nil {
		t.Error("non-constant case label must fail resolution")
	}
	if !bag.HasErrors() {
		t.Error("non-constant case label must report an error")
	}
}

func TestSwitchRejectsMismatchedLabelType(t *testing.T) {
	content := []Node{
		NewCaseStatement(Pos{}, NewNameConstant(Pos{}, types.InternName("open"))),
		NewBreakStatement(Pos{}),
	}
	ctx, bag := testCtx()
	if n := NewSwitchStatement(Pos{}, nonConstInt(), content).Resolve(ctx); n != nil {
		t.Error("a name label on an integer switch must fail resolution")
	}
	found := false
	for _, m := range bag.Messages {
		if strings.Contains(m.Text, "Type mismatch in case statement") {
			found = true
		}
	}
	if !found {
		t.Errorf("type mismatch not reported: %v", bag.Messages)
	}
}

func TestSwitchConstantConditionChecksLabelTypes(t *testing.T) {
	content := []Node{
		NewCaseStatement(Pos{}, NewNameConstant(Pos{}, types.InternName("open"))),
		NewBreakStatement(Pos{}),
	}
	ctx, bag := testCtx()
	if n := NewSwitchStatement(Pos{}, intc(1), content).Resolve(ctx); n != nil {
		t.Error("a name label on a reduced integer switch must fail resolution")
	}
	if !bag.HasErrors() {
		t.Error("a name label on a reduced integer switch must report an error")
	}
}

func TestWhileDeadBodyStillChecked(t *testing.T) {
	bad := NewCompoundStatement(Pos{})
	bad.Add(NewAddSub(Pos{}, strc("a"), intc(1), false))
	ctx, bag := testCtx()
	if n := NewWhileLoop(Pos{}, boolc(false), bad).Resolve(ctx); n != nil {
		t.Errorf("a dead loop with a bad body resolved to %T, want failure", n)
	}
	if !bag.HasErrors() {
		t.Error("the dead body's type error must still be reported")
	}
}

func TestWhileInfiniteEmptyWarns(t *testing.T) {
	ctx, bag := testCtx()
	n := NewWhileLoop(Pos{}, boolc(true), nil).Resolve(ctx)
	if n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	found := false
	for _, m := range bag.Messages {
		if strings.Contains(m.Text, "Infinite empty loop") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing warning: %v", bag.Messages)
	}
}

func TestReturnMismatchReported(t *testing.T) {
	body := NewCompoundStatement(Pos{})
	body.Add(NewReturnStatement(Pos{}, intc(1)))
	body.Add(NewReturnStatement(Pos{}, nil))
	ctx, bag := testCtx()
	body.Resolve(ctx)
	if !bag.HasErrors() {
		t.Error("mixing value and void returns must report an error")
	}
}

func TestCheckReturnFlow(t *testing.T) {
	ret := NewReturnStatement(Pos{}, nil)
	if !ret.CheckReturn() {
		t.Error("a return statement always returns")
	}
	cond := NewBoolCast(nonConstInt())
	oneArm := NewIfStatement(cond, NewReturnStatement(Pos{}, nil), nil)
	if oneArm.CheckReturn() {
		t.Error("an if without else cannot guarantee a return")
	}
	bothArms := NewIfStatement(cond, NewReturnStatement(Pos{}, nil), NewReturnStatement(Pos{}, nil))
	if !bothArms.CheckReturn() {
		t.Error("an if whose both arms return guarantees a return")
	}
}
