package compiler

import (
	"math/bits"

	"spark/types"
	"spark/vm"
)

// ArrayElement indexes a fixed-size array. Constant indices fold into
// the load offset; runtime indices get an unsigned bounds check.
type ArrayElement struct {
	base
	Operand Node
	Index   Node

	addressRequested bool
	writable         bool
}

func NewArrayElement(operand, index Node) *ArrayElement {
	return &ArrayElement{base: newBase(operand.Position()), Operand: operand, Index: index}
}

func (n *ArrayElement) RequestAddress(ctx *Context) (bool, bool) {
	n.addressRequested = true
	return true, n.writable
}

func (n *ArrayElement) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if n.Index = n.Index.Resolve(ctx); n.Index == nil {
		return nil
	}
	if failed(n.Operand) || failed(n.Index) {
		return nil
	}
	arr := n.Operand.Type()
	if arr.Kind != types.KindArray {
		ctx.Error(n.pos, "'[]' requires an array, got a %s", arr)
		return nil
	}
	if !n.Index.Type().IsInteger() {
		if n.Index = NewIntCast(n.Index, types.TypeSInt32, false).Resolve(ctx); n.Index == nil {
			return nil
		}
	}
	if n.Index.Constant() {
		idx := constValue(n.Index).GetInt()
		if idx < 0 || idx >= arr.Count {
			ctx.Error(n.pos, "Array index %d out of range", idx)
			return nil
		}
	}
	// The array itself lives in memory; reach it through its address.
	ok, writable := n.Operand.RequestAddress(ctx)
	if !ok {
		ctx.Error(n.pos, "Unable to dereference array")
		return nil
	}
	n.writable = writable
	n.valueType = arr.Elem
	return n
}

func (n *ArrayElement) Emit(b *vm.Builder) vm.Reg {
	arr := n.Operand.Type()
	loc := n.Operand.Emit(b)
	// The operand's handle addresses the array start.
	ptr := vm.Reg{Num: loc.Num, Class: types.RegPointer, Width: 1, Kind: vm.RegTemp}
	if loc.Kind != vm.RegTarget {
		ptr = materialize(b, loc)
	}

	if n.Index.Constant() {
		offset := constValue(n.Index).GetInt() * arr.Elem.Size
		if n.addressRequested {
			return addressOf(b, ptr, offset, arr.Elem)
		}
		ptr.Free(b)
		out := b.Temp(n.valueType.RegClass(), n.valueType.RegWidth())
		b.Emit(loadOp(n.valueType), out.Num, ptr.Num, b.IntConst(offset))
		return out
	}

	idx := materialize(b, n.Index.Emit(b))
	b.Emit(vm.OpBound, idx.Num, arr.Count, 0)
	if arr.Elem.Size != 1 {
		scaled := b.Temp(types.RegInt, 1)
		if size := arr.Elem.Size; size&(size-1) == 0 {
			b.Emit(vm.OpSllRI, scaled.Num, idx.Num, bits.TrailingZeros(uint(size)))
		} else {
			b.Emit(vm.OpMulRK, scaled.Num, idx.Num, b.IntConst(size))
		}
		idx.Free(b)
		idx = scaled
	}
	elem := b.Temp(types.RegPointer, 1)
	b.Emit(vm.OpAddARR, elem.Num, ptr.Num, idx.Num)
	ptr.Free(b)
	idx.Free(b)
	if n.addressRequested {
		return vm.TargetReg(elem.Num, n.valueType.RegClass(), n.valueType.RegWidth())
	}
	elem.Free(b)
	out := b.Temp(n.valueType.RegClass(), n.valueType.RegWidth())
	b.Emit(loadOp(n.valueType), out.Num, elem.Num, b.IntConst(0))
	return out
}
