package compiler

import (
	"spark/types"
	"spark/vm"
)

// Concat is the '..' string building operator; each operand converts
// to a string with its own cast.
type Concat struct {
	binaryBase
}

func NewConcat(pos Pos, left, right Node) *Concat {
	n := &Concat{}
	n.base = newBase(pos)
	n.Left, n.Right = left, right
	return n
}

func (n *Concat) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if !n.resolveOperands(ctx) {
		return nil
	}
	if n.Left = NewStringCast(n.Left).Resolve(ctx); n.Left == nil {
		return nil
	}
	if n.Right = NewStringCast(n.Right).Resolve(ctx); n.Right == nil {
		return nil
	}
	n.valueType = types.TypeString
	if n.bothConstant() {
		return NewStringConstant(n.pos, constValue(n.Left).GetString()+constValue(n.Right).GetString())
	}
	return n
}

func (n *Concat) Emit(b *vm.Builder) vm.Reg {
	l := materialize(b, n.Left.Emit(b))
	r := materialize(b, n.Right.Emit(b))
	l.Free(b)
	r.Free(b)
	out := b.Temp(types.RegString, 1)
	b.Emit(vm.OpConcat, out.Num, l.Num, r.Num)
	return out
}
