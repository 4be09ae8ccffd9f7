package compiler

import (
	"spark/types"
	"spark/vm"
)

// VectorValue builds a vector from scalar components, or from a
// two-component vector plus a z scalar.
type VectorValue struct {
	base
	Components []Node
}

func NewVectorValue(pos Pos, components ...Node) *VectorValue {
	return &VectorValue{base: newBase(pos), Components: components}
}

func (n *VectorValue) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	width := 0
	for i, c := range n.Components {
		c = c.Resolve(ctx)
		if c == nil {
			return nil
		}
		if failed(c) {
			return nil
		}
		switch {
		case c.Type().Kind == types.KindVector2 && i == 0:
			width += 2
		case c.Type().IsNumeric():
			if c = NewFloatCast(c).Resolve(ctx); c == nil {
				return nil
			}
			width++
		default:
			ctx.Error(n.pos, "Vector component must be numeric, got a %s", c.Type())
			return nil
		}
		n.Components[i] = c
	}
	switch width {
	case 2:
		n.valueType = types.TypeVector2
	case 3:
		n.valueType = types.TypeVector3
	default:
		ctx.Error(n.pos, "Vector of size %d is not supported", width)
		return nil
	}
	return n
}

func (n *VectorValue) Emit(b *vm.Builder) vm.Reg {
	regs := make([]vm.Reg, len(n.Components))
	for i, c := range n.Components {
		regs[i] = c.Emit(b)
	}

	// When the components already sit in consecutive temporaries they
	// merge into one vector register without any moves.
	if coalesced, ok := coalesceVector(regs, n.valueType.RegWidth()); ok {
		return coalesced
	}

	out := b.Temp(types.RegFloat, n.valueType.RegWidth())
	slot := 0
	for _, r := range regs {
		moveInto(b, vm.FixedReg(out.Num+slot, types.RegFloat, r.Width), r)
		slot += r.Width
	}
	return out
}

func coalesceVector(regs []vm.Reg, width int) (vm.Reg, bool) {
	next := regs[0].Num
	for _, r := range regs {
		if r.Kind != vm.RegTemp || r.Class != types.RegFloat || r.Num != next {
			return vm.Reg{}, false
		}
		next += r.Width
	}
	return vm.Reg{Num: regs[0].Num, Class: types.RegFloat, Width: width, Kind: vm.RegTemp}, true
}

// VectorBuiltin is the Length/Unit method of a vector value.
type VectorBuiltin struct {
	base
	Operand Node
	Unit    bool
}

func NewVectorBuiltin(operand Node, unit bool) *VectorBuiltin {
	return &VectorBuiltin{base: newBase(operand.Position()), Operand: operand, Unit: unit}
}

func (n *VectorBuiltin) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if !n.Operand.Type().IsVector() {
		ctx.Error(n.pos, "Vector expected, got a %s", n.Operand.Type())
		return nil
	}
	if n.Unit {
		n.valueType = n.Operand.Type()
	} else {
		n.valueType = types.TypeFloat64
	}
	return n
}

func (n *VectorBuiltin) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	src.Free(b)
	three := n.Operand.Type().RegWidth() == 3
	if n.Unit {
		out := b.Temp(types.RegFloat, src.Width)
		op := vm.OpUnitV2
		if three {
			op = vm.OpUnitV3
		}
		b.Emit(op, out.Num, src.Num, 0)
		return out
	}
	out := b.Temp(types.RegFloat, 1)
	op := vm.OpLenV2
	if three {
		op = vm.OpLenV3
	}
	b.Emit(op, out.Num, src.Num, 0)
	return out
}
