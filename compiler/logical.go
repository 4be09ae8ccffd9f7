package compiler

import (
	"spark/types"
	"spark/vm"
)

// BinaryLogical is '&&' or '||'. Nested chains of the same operator
// flatten into one n-ary node so the short-circuit exits share a
// single jump target. A constant operand that decides the outcome
// eliminates the remaining operands entirely, including any side
// effects they may have.
type BinaryLogical struct {
	base
	And      bool
	Left     Node
	Right    Node
	Operands []Node // filled during resolution
}

func NewBinaryLogical(pos Pos, left, right Node, and bool) *BinaryLogical {
	n := &BinaryLogical{base: newBase(pos), And: and, Left: left, Right: right}
	n.valueType = types.TypeBool
	return n
}

func (n *BinaryLogical) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Left = NewBoolCast(n.Left).Resolve(ctx); n.Left == nil {
		return nil
	}
	if n.Right = NewBoolCast(n.Right).Resolve(ctx); n.Right == nil {
		return nil
	}

	n.flatten(n.Left)
	n.flatten(n.Right)
	n.Left, n.Right = nil, nil

	// A constant that forces the outcome folds the whole chain; a
	// constant that doesn't drops out of it.
	kept := n.Operands[:0]
	for _, op := range n.Operands {
		if !op.Constant() {
			kept = append(kept, op)
			continue
		}
		v := constValue(op).GetBool()
		if v != n.And {
			return NewBoolConstant(n.pos, v)
		}
	}
	n.Operands = kept
	switch len(n.Operands) {
	case 0:
		return NewBoolConstant(n.pos, n.And)
	case 1:
		return n.Operands[0]
	}
	return n
}

func (n *BinaryLogical) flatten(op Node) {
	if sub, ok := op.(*BinaryLogical); ok && sub.And == n.And {
		n.Operands = append(n.Operands, sub.Operands...)
		return
	}
	n.Operands = append(n.Operands, op)
}

func (n *BinaryLogical) Emit(b *vm.Builder) vm.Reg {
	// Each operand that decides the outcome jumps straight to the
	// shared exit.
	exit := 1
	if n.And {
		exit = 0
	}
	var sites []int
	for _, op := range n.Operands {
		r := materialize(b, op.Emit(b))
		r.Free(b)
		b.Emit(vm.OpTest, r.Num, exit, 0)
		sites = append(sites, b.EmitJump())
	}
	out := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpLI, out.Num, 1-exit, 0)
	done := b.EmitJump()
	for _, site := range sites {
		b.BackpatchToHere(site)
	}
	b.Emit(vm.OpLI, out.Num, exit, 0)
	b.BackpatchToHere(done)
	return out
}
