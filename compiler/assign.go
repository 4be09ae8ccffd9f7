package compiler

import (
	"spark/vm"
)

// Assign stores the right side into the location named by the left
// side. As an expression its value is the stored value.
type Assign struct {
	base
	Left  Node
	Right Node
}

func NewAssign(left, right Node) *Assign {
	return &Assign{base: newBase(left.Position()), Left: left, Right: right}
}

func (n *Assign) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Left = n.Left.Resolve(ctx); n.Left == nil {
		return nil
	}
	if n.Right = n.Right.Resolve(ctx); n.Right == nil {
		return nil
	}
	if failed(n.Left) || failed(n.Right) {
		return nil
	}
	ok, writable := n.Left.RequestAddress(ctx)
	if !ok {
		ctx.Error(n.pos, "Expression must be an assignable value")
		return nil
	}
	if !writable {
		ctx.Error(n.pos, "Cannot assign to a read-only value")
		return nil
	}
	if n.Right = coerce(ctx, n.Right, n.Left.Type()); n.Right == nil {
		return nil
	}
	n.valueType = n.Left.Type()
	return n
}

func (n *Assign) Emit(b *vm.Builder) vm.Reg {
	val := n.Right.Emit(b)
	loc := n.Left.Emit(b)
	if loc.Kind == vm.RegFixed {
		moveInto(b, loc, val)
		if n.needResult {
			return loc
		}
		return vm.Reg{}
	}
	val = materialize(b, val)
	b.Emit(storeOp(n.valueType), loc.Num, val.Num, b.IntConst(0))
	loc.Free(b)
	if n.needResult {
		return val
	}
	val.Free(b)
	return vm.Reg{}
}
