package compiler

import (
	"spark/types"
	"spark/vm"
)

// cmpOpcode picks the comparison opcode for a promoted operand type.
func cmpOpcode(t *types.Type) vm.Opcode {
	switch {
	case t == types.TypeUInt32:
		return vm.OpCmpU
	case t.Kind == types.KindVector2:
		return vm.OpCmpV2
	case t.Kind == types.KindVector3:
		return vm.OpCmpV3
	default:
		switch t.RegClass() {
		case types.RegFloat:
			return vm.OpCmpF
		case types.RegString:
			return vm.OpCmpS
		case types.RegPointer:
			return vm.OpCmpA
		default:
			return vm.OpCmpI
		}
	}
}

// konstFlags adds the constant-operand bits for the two compare
// operands.
func konstFlags(l, r vm.Reg) int {
	flags := 0
	if l.Kind == vm.RegKonst {
		flags |= vm.CmpBK
	}
	if r.Kind == vm.RegKonst {
		flags |= vm.CmpCK
	}
	return flags
}

// emitCondValue lowers a conditional instruction into a bool register:
// the result starts at 1 and drops to 0 when the following jump is
// skipped.
func emitCondValue(b *vm.Builder, out vm.Reg, op vm.Opcode, flags, lnum, rnum int) {
	b.Emit(vm.OpLI, out.Num, 1, 0)
	b.Emit(op, flags, lnum, rnum)
	site := b.EmitJump()
	b.Emit(vm.OpLI, out.Num, 0, 0)
	b.BackpatchToHere(site)
}

// CompareRel is '<', '<=', '>', '>=' over numbers or strings.
type CompareRel struct {
	binaryBase
	Token string
}

func NewCompareRel(pos Pos, left, right Node, token string) *CompareRel {
	n := &CompareRel{Token: token}
	n.base = newBase(pos)
	n.Left, n.Right = left, right
	return n
}

// compareType is the promoted type both operands were coerced to.
func (n *CompareRel) compareType() *types.Type { return n.Left.Type() }

func (n *CompareRel) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if !n.resolveOperands(ctx) {
		return nil
	}
	n.valueType = types.TypeBool
	lt, rt := n.Left.Type(), n.Right.Type()

	if lt.RegClass() == types.RegString || rt.RegClass() == types.RegString {
		if n.Left = NewStringCast(n.Left).Resolve(ctx); n.Left == nil {
			return nil
		}
		if n.Right = NewStringCast(n.Right).Resolve(ctx); n.Right == nil {
			return nil
		}
		if n.bothConstant() {
			c := types.CompareStrings(constValue(n.Left), constValue(n.Right))
			return NewBoolConstant(n.pos, relHolds(n.Token, c))
		}
		return n
	}

	common := n.promote(ctx, false)
	if common == nil {
		return nil
	}
	if n.bothConstant() {
		l, r := constValue(n.Left), constValue(n.Right)
		var c int
		switch {
		case common.IsFloat():
			c = compareOrder(l.GetFloat(), r.GetFloat())
		case common == types.TypeUInt32:
			c = compareOrder(l.GetUInt(), r.GetUInt())
		default:
			c = compareOrder(l.GetInt(), r.GetInt())
		}
		return NewBoolConstant(n.pos, relHolds(n.Token, c))
	}
	return n
}

func compareOrder[T int | uint32 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// relHolds applies a relational token to a three-way comparison result.
func relHolds(token string, c int) bool {
	switch token {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

func (n *CompareRel) Emit(b *vm.Builder) vm.Reg {
	l := n.Left.Emit(b)
	r := n.Right.Emit(b)

	// a > b is emitted as !(a <= b) and a >= b as !(a < b), so only
	// the less-than methods exist in the instruction set.
	method := vm.CmpLT
	if n.Token == "<=" || n.Token == ">" {
		method = vm.CmpLE
	}
	check := 0
	if n.Token == ">" || n.Token == ">=" {
		check = vm.CmpCheck
	}

	out := b.Temp(types.RegInt, 1)
	emitCondValue(b, out, cmpOpcode(n.compareType()), method|check|konstFlags(l, r), l.Num, r.Num)
	l.Free(b)
	r.Free(b)
	return out
}

// CompareEq is '==', '!=' and the approximate '~=='.
type CompareEq struct {
	binaryBase
	Token string
}

func NewCompareEq(pos Pos, left, right Node, token string) *CompareEq {
	n := &CompareEq{Token: token}
	n.base = newBase(pos)
	n.Left, n.Right = left, right
	return n
}

func (n *CompareEq) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if !n.resolveOperands(ctx) {
		return nil
	}
	n.valueType = types.TypeBool
	lt, rt := n.Left.Type(), n.Right.Type()

	// Comparing a pointer against constant null is a plain truth test.
	if lt.IsPointer() && n.Right.Constant() && constValue(n.Right).IsZero() {
		return n.foldNullCompare(ctx, n.Left)
	}
	if rt.IsPointer() && n.Left.Constant() && constValue(n.Left).IsZero() {
		return n.foldNullCompare(ctx, n.Right)
	}

	switch {
	case lt.IsPointer() && rt.IsPointer():
		if !types.AreCompatiblePointerTypes(lt, rt, true) {
			ctx.Error(n.pos, "Cannot compare unrelated pointer types %s and %s", lt, rt)
			return nil
		}
		return n
	case lt == types.TypeName && rt == types.TypeName:
		if n.bothConstant() {
			return n.foldOutcome(constValue(n.Left).GetInt() == constValue(n.Right).GetInt())
		}
		return n
	case lt.RegClass() == types.RegString || rt.RegClass() == types.RegString:
		if n.Left = NewStringCast(n.Left).Resolve(ctx); n.Left == nil {
			return nil
		}
		if n.Right = NewStringCast(n.Right).Resolve(ctx); n.Right == nil {
			return nil
		}
		if n.bothConstant() {
			l, r := constValue(n.Left), constValue(n.Right)
			if n.Token == "~==" {
				return n.foldOutcome(types.ApproxEqual(l, r))
			}
			return n.foldOutcome(l.GetString() == r.GetString())
		}
		return n
	case lt.IsVector() || rt.IsVector():
		if lt != rt {
			ctx.Error(n.pos, "Vector operands must have the same size")
			return nil
		}
		return n
	default:
		common := n.promote(ctx, false)
		if common == nil {
			return nil
		}
		if n.bothConstant() {
			l, r := constValue(n.Left), constValue(n.Right)
			if n.Token == "~==" {
				return n.foldOutcome(types.ApproxEqual(l, r))
			}
			if common.IsFloat() {
				return n.foldOutcome(l.GetFloat() == r.GetFloat())
			}
			return n.foldOutcome(l.GetInt() == r.GetInt())
		}
		return n
	}
}

// foldNullCompare rewrites 'p == null' into '!p' and 'p != null' into
// a bool cast of p.
func (n *CompareEq) foldNullCompare(ctx *Context, ptr Node) Node {
	if n.Token == "!=" {
		return NewBoolCast(ptr).Resolve(ctx)
	}
	return NewUnaryNotBoolean(ptr).Resolve(ctx)
}

func (n *CompareEq) foldOutcome(equal bool) Node {
	if n.Token == "!=" {
		return NewBoolConstant(n.pos, !equal)
	}
	return NewBoolConstant(n.pos, equal)
}

func (n *CompareEq) Emit(b *vm.Builder) vm.Reg {
	l := n.Left.Emit(b)
	r := n.Right.Emit(b)
	flags := vm.CmpEQ | konstFlags(l, r)
	if n.Token == "~==" {
		flags |= vm.CmpApprox
	}
	if n.Token == "!=" {
		flags |= vm.CmpCheck
	}
	out := b.Temp(types.RegInt, 1)
	emitCondValue(b, out, cmpOpcode(n.Left.Type()), flags, l.Num, r.Num)
	l.Free(b)
	r.Free(b)
	return out
}

// LtGtEq is the '<=>' three-way comparison; its operands promote like
// arithmetic and its value is -1, 0 or 1.
type LtGtEq struct {
	binaryBase
}

func NewLtGtEq(pos Pos, left, right Node) *LtGtEq {
	n := &LtGtEq{}
	n.base = newBase(pos)
	n.Left, n.Right = left, right
	return n
}

func (n *LtGtEq) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if !n.resolveOperands(ctx) {
		return nil
	}
	common := n.promote(ctx, false)
	if common == nil {
		return nil
	}
	n.valueType = types.TypeSInt32
	if n.bothConstant() {
		l, r := constValue(n.Left), constValue(n.Right)
		switch {
		case common.IsFloat():
			return NewIntConstant(n.pos, n.valueType, compareOrder(l.GetFloat(), r.GetFloat()))
		case common == types.TypeUInt32:
			return NewIntConstant(n.pos, n.valueType, compareOrder(l.GetUInt(), r.GetUInt()))
		default:
			return NewIntConstant(n.pos, n.valueType, compareOrder(l.GetInt(), r.GetInt()))
		}
	}
	return n
}

func (n *LtGtEq) Emit(b *vm.Builder) vm.Reg {
	l := n.Left.Emit(b)
	r := n.Right.Emit(b)
	op := cmpOpcode(n.Left.Type())
	flags := konstFlags(l, r)

	out := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpLI, out.Num, -1, 0)
	b.Emit(op, vm.CmpLT|flags, l.Num, r.Num)
	ltSite := b.EmitJump()
	b.Emit(vm.OpLI, out.Num, 0, 0)
	b.Emit(op, vm.CmpEQ|flags, l.Num, r.Num)
	eqSite := b.EmitJump()
	b.Emit(vm.OpLI, out.Num, 1, 0)
	b.BackpatchToHere(ltSite)
	b.BackpatchToHere(eqSite)
	l.Free(b)
	r.Free(b)
	return out
}
