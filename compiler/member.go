package compiler

import (
	"spark/types"
	"spark/vm"
)

// loadOp picks the typed load opcode for one value of t read through a
// base pointer.
func loadOp(t *types.Type) vm.Opcode {
	switch t.RegClass() {
	case types.RegInt:
		switch {
		case t.Size == 1 && t.Unsigned:
			return vm.OpLBU
		case t.Size == 1:
			return vm.OpLB
		case t.Size == 2 && t.Unsigned:
			return vm.OpLHU
		case t.Size == 2:
			return vm.OpLH
		default:
			return vm.OpLW
		}
	case types.RegFloat:
		switch t.RegWidth() {
		case 2:
			return vm.OpLV2
		case 3:
			return vm.OpLV3
		default:
			return vm.OpLF
		}
	case types.RegString:
		return vm.OpLS
	default:
		return vm.OpLO
	}
}

// storeOp picks the typed store opcode matching loadOp.
func storeOp(t *types.Type) vm.Opcode {
	switch t.RegClass() {
	case types.RegInt:
		switch t.Size {
		case 1:
			return vm.OpSB
		case 2:
			return vm.OpSH
		default:
			return vm.OpSW
		}
	case types.RegFloat:
		switch t.RegWidth() {
		case 2:
			return vm.OpSV2
		case 3:
			return vm.OpSV3
		default:
			return vm.OpSF
		}
	case types.RegString:
		return vm.OpSS
	default:
		return vm.OpSO
	}
}

// addressOf turns an emitted pointer handle plus a byte offset into an
// assignable-location handle for a value of t, reusing the pointer
// register when it is already a leased temporary.
func addressOf(b *vm.Builder, obj vm.Reg, offset int, t *types.Type) vm.Reg {
	if obj.Kind == vm.RegTemp {
		if offset != 0 {
			b.Emit(vm.OpAddARK, obj.Num, obj.Num, b.IntConst(offset))
		}
		return vm.TargetReg(obj.Num, t.RegClass(), t.RegWidth())
	}
	out := b.Temp(types.RegPointer, 1)
	if offset != 0 {
		b.Emit(vm.OpAddARK, out.Num, obj.Num, b.IntConst(offset))
	} else if obj.Kind == vm.RegKonst {
		b.Emit(vm.OpLKP, out.Num, obj.Num, 0)
	} else {
		b.Emit(vm.OpMoveA, out.Num, obj.Num, 0)
	}
	obj.Free(b)
	return vm.TargetReg(out.Num, t.RegClass(), t.RegWidth())
}

// StructMember reads or addresses one field of a struct or class
// instance reached through a pointer. Chained accesses through struct
// values fold into a single cumulative byte offset.
type StructMember struct {
	base
	Operand Node
	Field   *types.Field

	offset           int
	addressRequested bool
}

func NewStructMember(operand Node, field *types.Field) *StructMember {
	n := &StructMember{base: newBase(operand.Position()), Operand: operand, Field: field}
	n.valueType = field.Type
	n.offset = field.Offset
	return n
}

func (n *StructMember) RequestAddress(ctx *Context) (bool, bool) {
	n.addressRequested = true
	writable := n.Field.Flags&types.FieldReadOnly == 0
	return true, writable
}

func (n *StructMember) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	if n.Field.Flags&types.FieldDeprecated != 0 {
		ctx.Warn(n.pos, "Accessing deprecated member %s", n.Field.Name)
	}
	t := n.Operand.Type()
	switch {
	case t.Kind == types.KindPointer && t.Elem != nil &&
		(t.Elem.Kind == types.KindClass || t.Elem.Kind == types.KindStruct):
		// Direct access through the instance pointer.
	case t.Kind == types.KindStruct:
		// Struct value: must itself be a member chain; fold offsets.
		inner, ok := n.Operand.(*StructMember)
		if !ok {
			ctx.Error(n.pos, "Cannot access members of an unaddressable %s value", t)
			return nil
		}
		n.offset += inner.offset
		n.Operand = inner.Operand
	case t.IsVector():
		return resolveVectorComponent(ctx, n)
	default:
		ctx.Error(n.pos, "Member access requires a struct or class, got a %s", t)
		return nil
	}
	return n
}

func (n *StructMember) Emit(b *vm.Builder) vm.Reg {
	obj := n.Operand.Emit(b)
	if n.addressRequested {
		return addressOf(b, obj, n.offset, n.Field.Type)
	}
	obj = materialize(b, obj)
	obj.Free(b)
	out := b.Temp(n.valueType.RegClass(), n.valueType.RegWidth())
	b.Emit(loadOp(n.valueType), out.Num, obj.Num, b.IntConst(n.offset))
	if n.Field.BitIndex >= 0 {
		b.Emit(vm.OpAndRK, out.Num, out.Num, b.IntConst(1<<n.Field.BitIndex))
	}
	return out
}

// VectorComponent picks one scalar component out of a vector value.
// Components of register-resident vectors are themselves registers, so
// they stay assignable.
type VectorComponent struct {
	base
	Operand Node
	Index   int
}

// resolveVectorComponent rewrites v.x style member access on a vector
// operand.
func resolveVectorComponent(ctx *Context, m *StructMember) Node {
	idx := -1
	switch m.Field.Name {
	case "x":
		idx = 0
	case "y":
		idx = 1
	case "z":
		idx = 2
	}
	width := m.Operand.Type().RegWidth()
	if idx < 0 || idx >= width {
		ctx.Error(m.pos, "Vector of size %d has no component %s", width, m.Field.Name)
		return nil
	}
	n := &VectorComponent{base: newBase(m.pos), Operand: m.Operand, Index: idx}
	n.valueType = types.TypeFloat64
	n.resolved = true
	return n
}

func (n *VectorComponent) Resolve(ctx *Context) Node { return n }

func (n *VectorComponent) RequestAddress(ctx *Context) (bool, bool) {
	ok, writable := n.Operand.RequestAddress(ctx)
	return ok, writable
}

func (n *VectorComponent) Emit(b *vm.Builder) vm.Reg {
	src := n.Operand.Emit(b)
	switch src.Kind {
	case vm.RegFixed:
		return vm.FixedReg(src.Num+n.Index, types.RegFloat, 1)
	case vm.RegTarget:
		return addressOf(b, vm.Reg{Num: src.Num, Class: types.RegPointer, Width: 1, Kind: vm.RegTemp},
			n.Index*types.TypeFloat64.Size, types.TypeFloat64)
	default:
		src.Free(b)
		out := b.Temp(types.RegFloat, 1)
		b.Emit(vm.OpMoveF, out.Num, src.Num+n.Index, 0)
		return out
	}
}
