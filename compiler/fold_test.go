package compiler

import (
	"testing"

	"spark/builtins"
	"spark/diag"
	"spark/types"
)

func testCtx() (*Context, *diag.Bag) {
	bag := diag.NewBag()
	return &Context{Diag: bag, Builtins: builtins.Standard()}, bag
}

func intc(v int) Node    { return NewIntConstant(Pos{}, types.TypeSInt32, v) }
func uintc(v int) Node   { return NewIntConstant(Pos{}, types.TypeUInt32, v) }
func floatc(v float64) Node { return NewFloatConstant(Pos{}, v) }
func strc(s string) Node { return NewStringConstant(Pos{}, s) }
func boolc(v bool) Node  { return NewBoolConstant(Pos{}, v) }

// nonConstInt builds a resolved, register-backed int value.
func nonConstInt() Node {
	decl := NewLocalVariableDeclaration(Pos{}, "x", types.TypeSInt32, nil)
	return NewLocalVariable(Pos{}, decl)
}

func mustFoldInt(t *testing.T, n Node, want int) {
	t.Helper()
	ctx, bag := testCtx()
	r := n.Resolve(ctx)
	if r == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	if !r.Constant() {
		t.Fatalf("did not fold to a constant: %T", r)
	}
	if got := constValue(r).GetInt(); got != want {
		t.Errorf("folded to %d, want %d", got, want)
	}
}

func mustFoldFloat(t *testing.T, n Node, want float64) {
	t.Helper()
	ctx, bag := testCtx()
	r := n.Resolve(ctx)
	if r == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	if !r.Constant() {
		t.Fatalf("did not fold to a constant: %T", r)
	}
	if got := constValue(r).GetFloat(); got != want {
		t.Errorf("folded to %v, want %v", got, want)
	}
}

func TestArithmeticFolding(t *testing.T) {
	cases := []struct {
		name string
		node Node
		want int
	}{
		{"add", NewAddSub(Pos{}, intc(2), intc(3), false), 5},
		{"sub", NewAddSub(Pos{}, intc(2), intc(3), true), -1},
		{"mul", NewMulDiv(Pos{}, intc(6), intc(7), '*'), 42},
		{"div", NewMulDiv(Pos{}, intc(7), intc(2), '/'), 3},
		{"mod", NewMulDiv(Pos{}, intc(7), intc(2), '%'), 1},
		{"neg", NewMinusSign(intc(5)), -5},
		{"bitnot", NewUnaryNotBitwise(intc(0)), -1},
		{"and", NewBitOp(Pos{}, intc(0xf0), intc(0x3c), '&'), 0x30},
		{"or", NewBitOp(Pos{}, intc(0xf0), intc(0x0f), '|'), 0xff},
		{"xor", NewBitOp(Pos{}, intc(0xff), intc(0x0f), '^'), 0xf0},
		{"shl", NewShift(Pos{}, intc(1), intc(4), "<<"), 16},
		{"shr", NewShift(Pos{}, intc(-16), intc(2), ">>"), -4},
		{"ushr", NewShift(Pos{}, intc(-1), intc(28), ">>>"), 15},
		{"shift count masked", NewShift(Pos{}, intc(1), intc(33), "<<"), 2},
		{"add wraps", NewAddSub(Pos{}, intc(0x7fffffff), intc(1), false), -0x80000000},
		{"mul wraps", NewMulDiv(Pos{}, intc(0x10000), intc(0x10000), '*'), 0},
		{"nested", NewAddSub(Pos{}, intc(2), NewMulDiv(Pos{}, intc(3), intc(4), '*'), false), 14},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mustFoldInt(t, tc.node, tc.want)
		})
	}
}

func TestUnsignedPromotion(t *testing.T) {
	// uint / uint stays unsigned.
	ctx, _ := testCtx()
	n := NewMulDiv(Pos{}, uintc(-2), uintc(2), '/').Resolve(ctx)
	if n == nil || !n.Constant() {
		t.Fatal("resolution failed")
	}
	if n.Type() != types.TypeUInt32 {
		t.Errorf("promoted type = %v, want uint", n.Type())
	}
	if got := constValue(n).GetUInt(); got != 0x7fffffff {
		t.Errorf("unsigned divide folded to %#x, want 0x7fffffff", got)
	}
}

func TestFloatPromotion(t *testing.T) {
	mustFoldFloat(t, NewAddSub(Pos{}, intc(1), floatc(0.5), false), 1.5)
	mustFoldFloat(t, NewMulDiv(Pos{}, floatc(7), intc(2), '/'), 3.5)
	mustFoldFloat(t, NewPow(Pos{}, intc(2), intc(10)), 1024)
}

func TestDivisionByConstantZero(t *testing.T) {
	for _, tok := range []byte{'/', '%'} {
		ctx, bag := testCtx()
		if n := NewMulDiv(Pos{}, intc(5), intc(0), tok).Resolve(ctx); n != nil {
			t.Errorf("%c by zero must fail resolution", tok)
		}
		if bag.ErrorCount() != 1 {
			t.Errorf("%c by zero reported %d errors, want 1", tok, bag.ErrorCount())
		}
	}
}

func TestFloatTruncationWarning(t *testing.T) {
	ctx, bag := testCtx()
	n := NewIntCast(floatc(2.5), types.TypeSInt32, true).Resolve(ctx)
	if n == nil || !n.Constant() {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	if got := constValue(n).GetInt(); got != 2 {
		t.Errorf("truncated to %d, want 2", got)
	}
	if bag.WarningCount() != 1 {
		t.Errorf("non-integral truncation reported %d warnings, want 1", bag.WarningCount())
	}

	ctx, bag = testCtx()
	if n := NewIntCast(floatc(2.0), types.TypeSInt32, true).Resolve(ctx); n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	if bag.WarningCount() != 0 {
		t.Errorf("integral conversion reported %d warnings, want 0", bag.WarningCount())
	}
}

func TestImplicitFloatToIntDialects(t *testing.T) {
	decl := NewLocalVariableDeclaration(Pos{}, "f", types.TypeFloat64, nil)
	strict, bag := testCtx()
	if n := NewIntCast(NewLocalVariable(Pos{}, decl), types.TypeSInt32, false).Resolve(strict); n != nil {
		t.Error("strict dialect must reject an implicit float-to-int conversion")
	}
	if !bag.HasErrors() {
		t.Error("strict dialect rejection must report an error")
	}

	lax, bag := testCtx()
	lax.Lax = true
	if n := NewIntCast(NewLocalVariable(Pos{}, decl), types.TypeSInt32, false).Resolve(lax); n == nil {
		t.Error("lax dialect must accept the conversion with a warning")
	}
	if bag.WarningCount() != 1 || bag.HasErrors() {
		t.Errorf("lax dialect: %d warnings, %d errors; want 1 warning", bag.WarningCount(), bag.ErrorCount())
	}
}

func TestComparisonFolding(t *testing.T) {
	cases := []struct {
		name string
		node Node
		want bool
	}{
		{"lt", NewCompareRel(Pos{}, intc(1), intc(2), "<"), true},
		{"gt", NewCompareRel(Pos{}, intc(1), intc(2), ">"), false},
		{"ge mixed", NewCompareRel(Pos{}, floatc(2), intc(2), ">="), true},
		{"string lt", NewCompareRel(Pos{}, strc("abc"), strc("abd"), "<"), true},
		{"eq", NewCompareEq(Pos{}, intc(3), intc(3), "=="), true},
		{"ne", NewCompareEq(Pos{}, intc(3), intc(4), "!="), true},
		{"approx", NewCompareEq(Pos{}, floatc(1.0), floatc(1.0+1.0/131072), "~=="), true},
		{"unsigned compare", NewCompareRel(Pos{}, uintc(-1), uintc(1), ">"), true},
		{"bool not", NewUnaryNotBoolean(intc(0)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, bag := testCtx()
			n := tc.node.Resolve(ctx)
			if n == nil {
				t.Fatalf("resolution failed: %v", bag.Messages)
			}
			if !n.Constant() {
				t.Fatalf("did not fold: %T", n)
			}
			if got := constValue(n).GetBool(); got != tc.want {
				t.Errorf("folded to %v, want %v", got, tc.want)
			}
		})
	}
}

func TestThreeWayComparisonFolding(t *testing.T) {
	mustFoldInt(t, NewLtGtEq(Pos{}, intc(1), intc(2)), -1)
	mustFoldInt(t, NewLtGtEq(Pos{}, floatc(2), floatc(2)), 0)
	mustFoldInt(t, NewLtGtEq(Pos{}, intc(3), intc(2)), 1)
}

func TestLogicalShortCircuitFolding(t *testing.T) {
	x := NewBoolCast(nonConstInt())

	ctx, _ := testCtx()
	n := NewBinaryLogical(Pos{}, boolc(false), x, true).Resolve(ctx)
	if n == nil || !n.Constant() || constValue(n).GetBool() {
		t.Error("false && x must fold to false")
	}

	ctx, _ = testCtx()
	n = NewBinaryLogical(Pos{}, boolc(true), x, false).Resolve(ctx)
	if n == nil || !n.Constant() || !constValue(n).GetBool() {
		t.Error("true || x must fold to true")
	}

	// A neutral constant drops out and leaves the live operand.
	ctx, _ = testCtx()
	y := NewBoolCast(nonConstInt())
	n = NewBinaryLogical(Pos{}, boolc(true), y, true).Resolve(ctx)
	if n == nil || n.Constant() {
		t.Fatal("true && x must reduce to x")
	}
	if n.Type() != types.TypeBool {
		t.Errorf("reduced type = %v, want bool", n.Type())
	}
}

func TestLogicalFlattening(t *testing.T) {
	a, b, c := NewBoolCast(nonConstInt()), NewBoolCast(nonConstInt()), NewBoolCast(nonConstInt())
	inner := NewBinaryLogical(Pos{}, a, b, true)
	outer := NewBinaryLogical(Pos{}, inner, c, true)
	ctx, bag := testCtx()
	n := outer.Resolve(ctx)
	if n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	bl, ok := n.(*BinaryLogical)
	if !ok {
		t.Fatalf("resolved to %T, want *BinaryLogical", n)
	}
	if len(bl.Operands) != 3 {
		t.Errorf("flattened to %d operands, want 3", len(bl.Operands))
	}
}

func TestConcatFolding(t *testing.T) {
	ctx, bag := testCtx()
	n := NewConcat(Pos{}, strc("a"), strc("b")).Resolve(ctx)
	if n == nil || !n.Constant() {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	if got := constValue(n).GetString(); got != "ab" {
		t.Errorf("folded to %q, want %q", got, "ab")
	}

	ctx, _ = testCtx()
	n = NewConcat(Pos{}, strc("n="), intc(7)).Resolve(ctx)
	if n == nil || !n.Constant() {
		t.Fatal("string..int must fold")
	}
	if got := constValue(n).GetString(); got != "n=7" {
		t.Errorf("folded to %q, want %q", got, "n=7")
	}
}

func TestConditionalFolding(t *testing.T) {
	mustFoldInt(t, NewConditional(boolc(true), intc(1), intc(2)), 1)
	mustFoldInt(t, NewConditional(boolc(false), intc(1), intc(2)), 2)
}

func TestIntrinsicFolding(t *testing.T) {
	mustFoldInt(t, NewMinMax(Pos{}, []Node{intc(3), intc(1), intc(2)}, false), 1)
	mustFoldInt(t, NewMinMax(Pos{}, []Node{intc(3), intc(1), intc(2)}, true), 3)
	mustFoldFloat(t, NewMinMax(Pos{}, []Node{intc(1), floatc(0.5)}, false), 0.5)
	mustFoldInt(t, NewAbs(Pos{}, intc(-9)), 9)
	mustFoldFloat(t, NewAbs(Pos{}, floatc(-2.5)), 2.5)
	mustFoldFloat(t, NewATan2(Pos{}, intc(1), intc(1)), 45)
	mustFoldFloat(t, NewFlopCall(Pos{}, 0, floatc(0)), 1) // exp(0)
}

func TestNullCompareSimplification(t *testing.T) {
	decl := NewLocalVariableDeclaration(Pos{}, "p", types.NewPointer(types.NewClass("Thing", nil)), nil)
	ctx, bag := testCtx()
	n := NewCompareEq(Pos{}, NewLocalVariable(Pos{}, decl), NewNullConstant(Pos{}), "==").Resolve(ctx)
	if n == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	if _, ok := n.(*UnaryNotBoolean); !ok {
		t.Errorf("p == null resolved to %T, want *UnaryNotBoolean", n)
	}

	ctx, _ = testCtx()
	n = NewCompareEq(Pos{}, NewLocalVariable(Pos{}, decl), NewNullConstant(Pos{}), "!=").Resolve(ctx)
	if n == nil {
		t.Fatal("resolution failed")
	}
	if _, ok := n.(*BoolCast); !ok {
		t.Errorf("p != null resolved to %T, want *BoolCast", n)
	}
}

func TestResolveIdempotence(t *testing.T) {
	n := NewAddSub(Pos{}, NewBoolCast(nonConstInt()), intc(1), false)
	ctx, bag := testCtx()
	first := n.Resolve(ctx)
	if first == nil {
		t.Fatalf("resolution failed: %v", bag.Messages)
	}
	second := first.Resolve(ctx)
	if second != first {
		t.Error("resolving a resolved node must return it unchanged")
	}
	if bag.HasErrors() {
		t.Errorf("re-resolution reported errors: %v", bag.Messages)
	}
}
