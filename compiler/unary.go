package compiler

import (
	"spark/types"
	"spark/vm"
)

// PlusSign is the unary plus: a type check that vanishes after
// resolution.
type PlusSign struct {
	base
	Operand Node
}

func NewPlusSign(operand Node) *PlusSign {
	return &PlusSign{base: newBase(operand.Position()), Operand: operand}
}

func (n *PlusSign) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	if !t.IsNumeric() && !t.IsVector() {
		ctx.Error(n.pos, "Numeric type expected, got a %s", t)
		return nil
	}
	return n.Operand
}

func (n *PlusSign) Emit(b *vm.Builder) vm.Reg { return n.Operand.Emit(b) }

// MinusSign is arithmetic negation.
type MinusSign struct {
	base
	Operand Node
}

func NewMinusSign(operand Node) *MinusSign {
	return &MinusSign{base: newBase(operand.Position()), Operand: operand}
}

func (n *MinusSign) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	if !t.IsNumeric() && !t.IsVector() {
		ctx.Error(n.pos, "Numeric type expected, got a %s", t)
		return nil
	}
	n.valueType = t
	if n.Operand.Constant() {
		v := constValue(n.Operand)
		if t.IsFloat() {
			return NewFloatConstant(n.pos, -v.GetFloat())
		}
		return NewIntConstant(n.pos, t, wrap32(-v.GetInt()))
	}
	return n
}

func (n *MinusSign) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	src.Free(b)
	out := b.Temp(src.Class, src.Width)
	switch {
	case src.Class == types.RegInt:
		b.Emit(vm.OpNeg, out.Num, src.Num, 0)
	case src.Width == 2:
		b.Emit(vm.OpNegV2, out.Num, src.Num, 0)
	case src.Width == 3:
		b.Emit(vm.OpNegV3, out.Num, src.Num, 0)
	default:
		b.Emit(vm.OpNegF, out.Num, src.Num, 0)
	}
	return out
}

// UnaryNotBitwise is the '~' operator; its operand must be an integer
// (the lax dialect truncates floats with a diagnostic).
type UnaryNotBitwise struct {
	base
	Operand Node
}

func NewUnaryNotBitwise(operand Node) *UnaryNotBitwise {
	return &UnaryNotBitwise{base: newBase(operand.Position()), Operand: operand}
}

func (n *UnaryNotBitwise) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	if !n.Operand.Type().IsNumeric() {
		ctx.Error(n.pos, "Integer type expected, got a %s", n.Operand.Type())
		return nil
	}
	if n.Operand = NewIntCast(n.Operand, intResultType(n.Operand.Type()), false).Resolve(ctx); n.Operand == nil {
		return nil
	}
	n.valueType = n.Operand.Type()
	if n.Operand.Constant() {
		return NewIntConstant(n.pos, n.valueType, wrap32(^constValue(n.Operand).GetInt()))
	}
	return n
}

// intResultType keeps unsignedness through integer-only operators and
// widens everything else to int.
func intResultType(t *types.Type) *types.Type {
	if t == types.TypeUInt32 {
		return t
	}
	return types.TypeSInt32
}

func (n *UnaryNotBitwise) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	src.Free(b)
	out := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpNot, out.Num, src.Num, 0)
	return out
}

// UnaryNotBoolean is the '!' operator.
type UnaryNotBoolean struct {
	base
	Operand Node
}

func NewUnaryNotBoolean(operand Node) *UnaryNotBoolean {
	n := &UnaryNotBoolean{base: newBase(operand.Position()), Operand: operand}
	n.valueType = types.TypeBool
	return n
}

func (n *UnaryNotBoolean) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = NewBoolCast(n.Operand).Resolve(ctx); n.Operand == nil {
		return nil
	}
	if n.Operand.Constant() {
		return NewBoolConstant(n.pos, !constValue(n.Operand).GetBool())
	}
	return n
}

func (n *UnaryNotBoolean) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	src.Free(b)
	out := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpXorRK, out.Num, src.Num, b.IntConst(1))
	return out
}

// SizeAlign folds sizeof/alignof on the operand's type.
type SizeAlign struct {
	base
	Operand Node
	Which   byte // 's' or 'a'
}

func NewSizeAlign(operand Node, which byte) *SizeAlign {
	n := &SizeAlign{base: newBase(operand.Position()), Operand: operand, Which: which}
	n.valueType = types.TypeSInt32
	return n
}

func (n *SizeAlign) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	if t.Size == 0 {
		ctx.Error(n.pos, "Type %s has no size", t)
		return nil
	}
	if n.Which == 'a' {
		return NewIntConstant(n.pos, types.TypeSInt32, t.Align)
	}
	return NewIntConstant(n.pos, types.TypeSInt32, t.Size)
}

func (n *SizeAlign) Emit(b *vm.Builder) vm.Reg {
	panic("sizeof/alignof always folds during resolution")
}

// IncrDecr is ++/-- applied to a modifiable numeric location. Post
// records whether the expression yields the value from before the
// update.
type IncrDecr struct {
	base
	Operand Node
	Dec     bool
	Post    bool
}

func NewIncrDecr(operand Node, dec, post bool) *IncrDecr {
	return &IncrDecr{base: newBase(operand.Position()), Operand: operand, Dec: dec, Post: post}
}

func (n *IncrDecr) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	if t.Kind != types.KindInt && !t.IsFloat() {
		ctx.Error(n.pos, "Numeric type expected, got a %s", t)
		return nil
	}
	ok, writable := n.Operand.RequestAddress(ctx)
	if !ok || !writable {
		ctx.Error(n.pos, "Expression must be a modifiable value")
		return nil
	}
	n.valueType = t
	return n
}

func (n *IncrDecr) Emit(b *vm.Builder) vm.Reg {
	loc := n.Operand.Emit(b)
	if loc.Kind == vm.RegFixed {
		return n.emitOnRegister(b, loc)
	}
	return n.emitThroughPointer(b, loc)
}

// emitOnRegister updates a register-resident local in place.
func (n *IncrDecr) emitOnRegister(b *vm.Builder, loc vm.Reg) vm.Reg {
	var old vm.Reg
	if n.Post && n.needResult {
		old = b.Temp(loc.Class, 1)
		if loc.Class == types.RegFloat {
			b.Emit(vm.OpMoveF, old.Num, loc.Num, 0)
		} else {
			b.Emit(vm.OpMove, old.Num, loc.Num, 0)
		}
	}
	n.emitStep(b, loc.Num, loc.Num)
	if n.Post && n.needResult {
		return old
	}
	return loc
}

// emitThroughPointer loads, updates and stores a memory-resident
// location through its address register.
func (n *IncrDecr) emitThroughPointer(b *vm.Builder, loc vm.Reg) vm.Reg {
	zero := b.IntConst(0)
	val := b.Temp(n.valueType.RegClass(), 1)
	b.Emit(loadOp(n.valueType), val.Num, loc.Num, zero)
	upd := val
	if n.Post && n.needResult {
		upd = b.Temp(n.valueType.RegClass(), 1)
	}
	n.emitStep(b, upd.Num, val.Num)
	b.Emit(storeOp(n.valueType), loc.Num, upd.Num, zero)
	loc.Free(b)
	if upd != val {
		upd.Free(b)
	}
	return val
}

func (n *IncrDecr) emitStep(b *vm.Builder, dest, src int) {
	one := b.IntConst(1)
	op := vm.OpAddRK
	if n.valueType.IsFloat() {
		one = b.FloatConst(1)
		op = vm.OpAddFRK
		if n.Dec {
			op = vm.OpSubFRK
		}
	} else if n.Dec {
		op = vm.OpSubRK
	}
	b.Emit(op, dest, src, one)
}
