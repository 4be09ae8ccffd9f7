package compiler

import (
	"math"

	"spark/types"
	"spark/vm"
)

// binaryBase is the shared shape of two-operand expression nodes.
type binaryBase struct {
	base
	Left  Node
	Right Node
}

// resolveOperands resolves both children, reporting success.
func (n *binaryBase) resolveOperands(ctx *Context) bool {
	if n.Left = n.Left.Resolve(ctx); n.Left == nil {
		return false
	}
	if n.Right = n.Right.Resolve(ctx); n.Right == nil {
		return false
	}
	return !failed(n.Left) && !failed(n.Right)
}

// promote coerces both operands to their common arithmetic type:
// uint+uint stays unsigned, integer pairs become int, anything with a
// float becomes float. forceInt contexts reject floats (the lax
// dialect truncates them with a diagnostic).
func (n *binaryBase) promote(ctx *Context, forceInt bool) *types.Type {
	lt, rt := n.Left.Type(), n.Right.Type()
	if !lt.IsNumeric() || !rt.IsNumeric() {
		ctx.Error(n.pos, "Numeric type expected")
		return nil
	}
	var common *types.Type
	switch {
	case !forceInt && (lt.IsFloat() || rt.IsFloat()):
		common = types.TypeFloat64
	case lt == types.TypeUInt32 && rt == types.TypeUInt32:
		common = types.TypeUInt32
	default:
		common = types.TypeSInt32
	}
	if common.IsFloat() {
		if n.Left = NewFloatCast(n.Left).Resolve(ctx); n.Left == nil {
			return nil
		}
		if n.Right = NewFloatCast(n.Right).Resolve(ctx); n.Right == nil {
			return nil
		}
	} else {
		if n.Left = NewIntCast(n.Left, common, false).Resolve(ctx); n.Left == nil {
			return nil
		}
		if n.Right = NewIntCast(n.Right, common, false).Resolve(ctx); n.Right == nil {
			return nil
		}
	}
	return common
}

func (n *binaryBase) bothConstant() bool {
	return n.Left.Constant() && n.Right.Constant()
}

// emitBinary emits the RR/RK/KR form matching where the operands live.
// A zero kr opcode marks a commutative operation, emitted by swapping.
func emitBinary(b *vm.Builder, rr, rk, kr vm.Opcode, l, r vm.Reg, class types.RegClass) vm.Reg {
	if l.Kind == vm.RegKonst && kr == 0 {
		l, r = r, l
	}
	l.Free(b)
	r.Free(b)
	out := b.Temp(class, 1)
	switch {
	case l.Kind == vm.RegKonst:
		b.Emit(kr, out.Num, l.Num, r.Num)
	case r.Kind == vm.RegKonst:
		b.Emit(rk, out.Num, l.Num, r.Num)
	default:
		b.Emit(rr, out.Num, l.Num, r.Num)
	}
	return out
}

// AddSub is binary '+' and '-': numbers, matching vectors, and state
// pointer plus integer (scaled by the state record size).
type AddSub struct {
	binaryBase
	Minus bool
}

func NewAddSub(pos Pos, left, right Node, minus bool) *AddSub {
	n := &AddSub{Minus: minus}
	n.base = newBase(pos)
	n.Left, n.Right = left, right
	return n
}

func (n *AddSub) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if !n.resolveOperands(ctx) {
		return nil
	}
	lt, rt := n.Left.Type(), n.Right.Type()

	if lt == types.TypeState && rt.IsInteger() && !n.Minus {
		n.valueType = types.TypeState
		return n
	}
	if lt.IsVector() || rt.IsVector() {
		switch {
		case lt == rt:
			n.valueType = lt
		case lt == types.TypeVector3 && rt == types.TypeVector2,
			lt == types.TypeVector2 && rt == types.TypeVector3:
			// Mixed sizes widen to vector3; the z component of the
			// wider operand passes through unchanged.
			n.valueType = types.TypeVector3
		default:
			ctx.Error(n.pos, "Vector operands must have the same size")
			return nil
		}
		return n
	}
	common := n.promote(ctx, false)
	if common == nil {
		return nil
	}
	n.valueType = common
	if n.bothConstant() {
		l, r := constValue(n.Left), constValue(n.Right)
		if common.IsFloat() {
			if n.Minus {
				return NewFloatConstant(n.pos, l.GetFloat()-r.GetFloat())
			}
			return NewFloatConstant(n.pos, l.GetFloat()+r.GetFloat())
		}
		if n.Minus {
			return NewIntConstant(n.pos, common, wrap32(l.GetInt()-r.GetInt()))
		}
		return NewIntConstant(n.pos, common, wrap32(l.GetInt()+r.GetInt()))
	}
	return n
}

func (n *AddSub) Emit(b *vm.Builder) vm.Reg {
	if n.valueType == types.TypeState {
		return n.emitStateOffset(b)
	}
	l := n.Left.Emit(b)
	r := n.Right.Emit(b)
	if n.valueType.IsVector() {
		// A vector2 operand narrows the arithmetic to two components.
		lw, rw := n.Left.Type().RegWidth(), n.Right.Type().RegWidth()
		opWidth := lw
		if rw < opWidth {
			opWidth = rw
		}
		op := vm.OpAddV2
		switch {
		case n.Minus && opWidth == 3:
			op = vm.OpSubV3
		case n.Minus:
			op = vm.OpSubV2
		case opWidth == 3:
			op = vm.OpAddV3
		}
		l = materialize(b, l)
		r = materialize(b, r)
		if lw == rw {
			l.Free(b)
			r.Free(b)
			out := b.Temp(types.RegFloat, n.valueType.RegWidth())
			b.Emit(op, out.Num, l.Num, r.Num)
			return out
		}
		// The z component is read after the add writes the result, so
		// the result must not alias the operands.
		out := b.Temp(types.RegFloat, 3)
		b.Emit(op, out.Num, l.Num, r.Num)
		z := l.Num + 2
		if rw == 3 {
			z = r.Num + 2
		}
		b.Emit(vm.OpMoveF, out.Num+2, z, 0)
		l.Free(b)
		r.Free(b)
		return out
	}
	if n.valueType.IsFloat() {
		if n.Minus {
			return emitBinary(b, vm.OpSubFRR, vm.OpSubFRK, vm.OpSubFKR, l, r, types.RegFloat)
		}
		return emitBinary(b, vm.OpAddFRR, vm.OpAddFRK, 0, l, r, types.RegFloat)
	}
	if n.Minus {
		return emitBinary(b, vm.OpSubRR, vm.OpSubRK, vm.OpSubKR, l, r, types.RegInt)
	}
	return emitBinary(b, vm.OpAddRR, vm.OpAddRK, 0, l, r, types.RegInt)
}

// emitStateOffset advances a state pointer by an integer count of
// state records.
func (n *AddSub) emitStateOffset(b *vm.Builder) vm.Reg {
	ptr := materialize(b, n.Left.Emit(b))
	if n.Right.Constant() {
		offset := constValue(n.Right).GetInt() * types.StateRecord.Size
		ptr.Free(b)
		out := b.Temp(types.RegPointer, 1)
		b.Emit(vm.OpAddARK, out.Num, ptr.Num, b.IntConst(offset))
		return out
	}
	idx := materialize(b, n.Right.Emit(b))
	scaled := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpMulRK, scaled.Num, idx.Num, b.IntConst(types.StateRecord.Size))
	idx.Free(b)
	ptr.Free(b)
	scaled.Free(b)
	out := b.Temp(types.RegPointer, 1)
	b.Emit(vm.OpAddARR, out.Num, ptr.Num, scaled.Num)
	return out
}

// MulDiv is '*', '/' and '%': numbers plus vector-times-scalar and
// vector-divided-by-scalar.
type MulDiv struct {
	binaryBase
	Token byte // '*', '/' or '%'
}

func NewMulDiv(pos Pos, left, right Node, token byte) *MulDiv {
	n := &MulDiv{Token: token}
	n.base = newBase(pos)
	n.Left, n.Right = left, right
	return n
}

func (n *MulDiv) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if !n.resolveOperands(ctx) {
		return nil
	}
	lt, rt := n.Left.Type(), n.Right.Type()

	if lt.IsVector() || rt.IsVector() {
		if lt.IsVector() && rt.IsVector() {
			ctx.Error(n.pos, "'%c' cannot combine two vectors", n.Token)
			return nil
		}
		if n.Token == '%' {
			ctx.Error(n.pos, "'%%' is not defined for vectors")
			return nil
		}
		if rt.IsVector() {
			if n.Token == '/' {
				// A scalar cannot be divided by a vector.
				ctx.Error(n.pos, "Vector expected on the left of '/'")
				return nil
			}
			n.Left, n.Right = n.Right, n.Left
			lt, rt = rt, lt
		}
		if !rt.IsNumeric() {
			ctx.Error(n.pos, "Numeric type expected")
			return nil
		}
		if n.Right = NewFloatCast(n.Right).Resolve(ctx); n.Right == nil {
			return nil
		}
		n.valueType = lt
		return n
	}

	common := n.promote(ctx, false)
	if common == nil {
		return nil
	}
	n.valueType = common
	if n.Right.Constant() && n.Token != '*' && constValue(n.Right).IsZero() {
		ctx.Error(n.pos, "Division by 0")
		return nil
	}
	if n.bothConstant() {
		return n.fold(common)
	}
	return n
}

func (n *MulDiv) fold(common *types.Type) Node {
	l, r := constValue(n.Left), constValue(n.Right)
	if common.IsFloat() {
		switch n.Token {
		case '*':
			return NewFloatConstant(n.pos, l.GetFloat()*r.GetFloat())
		case '/':
			return NewFloatConstant(n.pos, l.GetFloat()/r.GetFloat())
		default:
			return NewFloatConstant(n.pos, math.Mod(l.GetFloat(), r.GetFloat()))
		}
	}
	if common == types.TypeUInt32 {
		lu, ru := l.GetUInt(), r.GetUInt()
		switch n.Token {
		case '*':
			return NewIntConstant(n.pos, common, wrap32(int(lu*ru)))
		case '/':
			return NewIntConstant(n.pos, common, wrap32(int(lu/ru)))
		default:
			return NewIntConstant(n.pos, common, wrap32(int(lu%ru)))
		}
	}
	li, ri := int32(l.GetInt()), int32(r.GetInt())
	switch n.Token {
	case '*':
		return NewIntConstant(n.pos, common, wrap32(int(li)*int(ri)))
	case '/':
		return NewIntConstant(n.pos, common, int(li/ri))
	default:
		return NewIntConstant(n.pos, common, int(li%ri))
	}
}

func (n *MulDiv) Emit(b *vm.Builder) vm.Reg {
	if n.valueType.IsVector() {
		return n.emitVectorScale(b)
	}
	l := n.Left.Emit(b)
	r := n.Right.Emit(b)
	if n.valueType.IsFloat() {
		switch n.Token {
		case '*':
			return emitBinary(b, vm.OpMulFRR, vm.OpMulFRK, 0, l, r, types.RegFloat)
		case '/':
			return emitBinary(b, vm.OpDivFRR, vm.OpDivFRK, vm.OpDivFKR, l, r, types.RegFloat)
		default:
			return emitBinary(b, vm.OpModFRR, vm.OpModFRK, vm.OpModFKR, l, r, types.RegFloat)
		}
	}
	if n.valueType == types.TypeUInt32 {
		switch n.Token {
		case '*':
			return emitBinary(b, vm.OpMulRR, vm.OpMulRK, 0, l, r, types.RegInt)
		case '/':
			return emitBinary(b, vm.OpDivURR, vm.OpDivURK, vm.OpDivUKR, l, r, types.RegInt)
		default:
			return emitBinary(b, vm.OpModURR, vm.OpModURK, vm.OpModUKR, l, r, types.RegInt)
		}
	}
	switch n.Token {
	case '*':
		return emitBinary(b, vm.OpMulRR, vm.OpMulRK, 0, l, r, types.RegInt)
	case '/':
		return emitBinary(b, vm.OpDivRR, vm.OpDivRK, vm.OpDivKR, l, r, types.RegInt)
	default:
		return emitBinary(b, vm.OpModRR, vm.OpModRK, vm.OpModKR, l, r, types.RegInt)
	}
}

func (n *MulDiv) emitVectorScale(b *vm.Builder) vm.Reg {
	vec := materialize(b, n.Left.Emit(b))
	scalar := n.Right.Emit(b)
	width := n.valueType.RegWidth()

	var op vm.Opcode
	switch {
	case n.Token == '/' && width == 3:
		op = vm.OpDivVF3RR
	case n.Token == '/':
		op = vm.OpDivVF2RR
	case width == 3:
		op = vm.OpMulVF3RR
	default:
		op = vm.OpMulVF2RR
	}
	if scalar.Kind == vm.RegKonst {
		op++ // RK form follows its RR form
	} else {
		scalar = materialize(b, scalar)
	}
	vec.Free(b)
	scalar.Free(b)
	out := b.Temp(types.RegFloat, width)
	b.Emit(op, out.Num, vec.Num, scalar.Num)
	return out
}

// Pow is '**'; always float.
type Pow struct {
	binaryBase
}

func NewPow(pos Pos, left, right Node) *Pow {
	n := &Pow{}
	n.base = newBase(pos)
	n.Left, n.Right = left, right
	return n
}

func (n *Pow) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if !n.resolveOperands(ctx) {
		return nil
	}
	if !n.Left.Type().IsNumeric() || !n.Right.Type().IsNumeric() {
		ctx.Error(n.pos, "Numeric type expected")
		return nil
	}
	if n.Left = NewFloatCast(n.Left).Resolve(ctx); n.Left == nil {
		return nil
	}
	if n.Right = NewFloatCast(n.Right).Resolve(ctx); n.Right == nil {
		return nil
	}
	n.valueType = types.TypeFloat64
	if n.bothConstant() {
		return NewFloatConstant(n.pos, math.Pow(constValue(n.Left).GetFloat(), constValue(n.Right).GetFloat()))
	}
	return n
}

func (n *Pow) Emit(b *vm.Builder) vm.Reg {
	l := n.Left.Emit(b)
	r := n.Right.Emit(b)
	return emitBinary(b, vm.OpPowRR, vm.OpPowRK, vm.OpPowKR, l, r, types.RegFloat)
}

// BitOp is '&', '|' and '^'. A bool pair keeps its bool type; anything
// else promotes in an integer-only context.
type BitOp struct {
	binaryBase
	Token byte
}

func NewBitOp(pos Pos, left, right Node, token byte) *BitOp {
	n := &BitOp{Token: token}
	n.base = newBase(pos)
	n.Left, n.Right = left, right
	return n
}

func (n *BitOp) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if !n.resolveOperands(ctx) {
		return nil
	}
	lt, rt := n.Left.Type(), n.Right.Type()
	if lt == types.TypeBool && rt == types.TypeBool {
		n.valueType = types.TypeBool
	} else {
		common := n.promote(ctx, true)
		if common == nil {
			return nil
		}
		n.valueType = common
	}
	if n.bothConstant() {
		l, r := constValue(n.Left).GetInt(), constValue(n.Right).GetInt()
		var v int
		switch n.Token {
		case '&':
			v = l & r
		case '|':
			v = l | r
		default:
			v = l ^ r
		}
		return NewIntConstant(n.pos, n.valueType, wrap32(v))
	}
	return n
}

func (n *BitOp) Emit(b *vm.Builder) vm.Reg {
	l := n.Left.Emit(b)
	r := n.Right.Emit(b)
	switch n.Token {
	case '&':
		return emitBinary(b, vm.OpAndRR, vm.OpAndRK, 0, l, r, types.RegInt)
	case '|':
		return emitBinary(b, vm.OpOrRR, vm.OpOrRK, 0, l, r, types.RegInt)
	default:
		return emitBinary(b, vm.OpXorRR, vm.OpXorRK, 0, l, r, types.RegInt)
	}
}

// Shift is '<<', '>>' and '>>>'. A '>>' whose promoted left side is
// unsigned rewrites itself to the logical '>>>'.
type Shift struct {
	binaryBase
	Token string
}

func NewShift(pos Pos, left, right Node, token string) *Shift {
	n := &Shift{Token: token}
	n.base = newBase(pos)
	n.Left, n.Right = left, right
	return n
}

func (n *Shift) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if !n.resolveOperands(ctx) {
		return nil
	}
	if !n.Left.Type().IsNumeric() || !n.Right.Type().IsNumeric() {
		ctx.Error(n.pos, "Integer type expected")
		return nil
	}
	lt := intResultType(n.Left.Type())
	if n.Left = NewIntCast(n.Left, lt, false).Resolve(ctx); n.Left == nil {
		return nil
	}
	if n.Right = NewIntCast(n.Right, types.TypeSInt32, false).Resolve(ctx); n.Right == nil {
		return nil
	}
	if lt == types.TypeUInt32 && n.Token == ">>" {
		n.Token = ">>>"
	}
	n.valueType = lt
	if n.bothConstant() {
		l := constValue(n.Left)
		s := uint(constValue(n.Right).GetInt()) & 31
		var v int
		switch n.Token {
		case "<<":
			v = wrap32(l.GetInt() << s)
		case ">>":
			v = int(int32(l.GetInt()) >> s)
		default:
			v = wrap32(int(l.GetUInt() >> s))
		}
		return NewIntConstant(n.pos, lt, v)
	}
	return n
}

func (n *Shift) Emit(b *vm.Builder) vm.Reg {
	var rr, ri, kr vm.Opcode
	switch n.Token {
	case "<<":
		rr, ri, kr = vm.OpSllRR, vm.OpSllRI, vm.OpSllKR
	case ">>":
		rr, ri, kr = vm.OpSraRR, vm.OpSraRI, vm.OpSraKR
	default:
		rr, ri, kr = vm.OpSrlRR, vm.OpSrlRI, vm.OpSrlKR
	}
	l := n.Left.Emit(b)
	if n.Right.Constant() {
		l.Free(b)
		out := b.Temp(types.RegInt, 1)
		b.Emit(ri, out.Num, l.Num, constValue(n.Right).GetInt()&31)
		return out
	}
	r := n.Right.Emit(b)
	l.Free(b)
	r.Free(b)
	out := b.Temp(types.RegInt, 1)
	if l.Kind == vm.RegKonst {
		b.Emit(kr, out.Num, l.Num, r.Num)
	} else {
		b.Emit(rr, out.Num, l.Num, r.Num)
	}
	return out
}
