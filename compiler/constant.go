package compiler

import (
	"spark/types"
	"spark/vm"
)

// Constant is a folded compile-time value. Resolution rewrites every
// foldable expression into one of these; emission hands back a konst
// handle so consumers can pick konst-operand instruction forms.
type Constant struct {
	base
	Value types.Value
}

func NewConstant(pos Pos, v types.Value) *Constant {
	n := &Constant{base: newBase(pos), Value: v}
	n.valueType = v.Type
	n.resolved = true
	return n
}

func NewIntConstant(pos Pos, t *types.Type, v int) *Constant {
	return NewConstant(pos, types.TypedInt(t, v))
}

func NewFloatConstant(pos Pos, v float64) *Constant {
	return NewConstant(pos, types.FloatValue(v))
}

func NewStringConstant(pos Pos, s string) *Constant {
	return NewConstant(pos, types.StringValue(s))
}

func NewNameConstant(pos Pos, id types.NameID) *Constant {
	return NewConstant(pos, types.NameValue(id))
}

func NewBoolConstant(pos Pos, v bool) *Constant {
	return NewConstant(pos, types.BoolValue(v))
}

// NewNullConstant is the typed null pointer literal.
func NewNullConstant(pos Pos) *Constant {
	return NewConstant(pos, types.NullValue())
}

func (n *Constant) Constant() bool { return true }

func (n *Constant) Resolve(ctx *Context) Node { return n }

func (n *Constant) Emit(b *vm.Builder) vm.Reg {
	switch n.valueType.RegClass() {
	case types.RegInt:
		return vm.KonstReg(b.IntConst(n.Value.GetInt()), types.RegInt)
	case types.RegFloat:
		return vm.KonstReg(b.FloatConst(n.Value.GetFloat()), types.RegFloat)
	case types.RegString:
		return vm.KonstReg(b.StringConst(n.Value.GetString()), types.RegString)
	case types.RegPointer:
		tag := vm.TagGeneric
		switch n.valueType.Kind {
		case types.KindClassPtr:
			tag = vm.TagClass
		case types.KindPointer:
			if n.valueType.Elem == types.StateRecord {
				tag = vm.TagState
			}
		}
		return vm.KonstReg(b.AddrConst(n.Value.Ptr, tag), types.RegPointer)
	}
	panic("cannot emit constant of type " + n.valueType.TypeName)
}

// constValue extracts the folded value of a node known to be constant.
func constValue(n Node) types.Value {
	return n.(*Constant).Value
}

// wrap32 folds an integer result back into the 32-bit window the
// runtime registers use, keeping constant folding and execution in
// agreement on overflow.
func wrap32(v int) int { return int(int32(v)) }

// materialize copies a konst or fixed handle into a fresh temporary so
// callers that mutate or take ownership of the register can do so.
// Temp handles pass through unchanged.
func materialize(b *vm.Builder, r vm.Reg) vm.Reg {
	if r.Kind == vm.RegTemp {
		return r
	}
	out := b.Temp(r.Class, r.Width)
	op := vm.OpMove
	switch r.Class {
	case types.RegInt:
		if r.Kind == vm.RegKonst {
			b.Emit(vm.OpLK, out.Num, r.Num, 0)
			return out
		}
	case types.RegFloat:
		if r.Kind == vm.RegKonst {
			b.Emit(vm.OpLKF, out.Num, r.Num, 0)
			return out
		}
		if r.Width > 1 {
			if r.Width == 3 {
				op = vm.OpMoveV3
			} else {
				op = vm.OpMoveV2
			}
		} else {
			op = vm.OpMoveF
		}
	case types.RegString:
		if r.Kind == vm.RegKonst {
			b.Emit(vm.OpLKS, out.Num, r.Num, 0)
			return out
		}
		op = vm.OpMoveS
	case types.RegPointer:
		if r.Kind == vm.RegKonst {
			b.Emit(vm.OpLKP, out.Num, r.Num, 0)
			return out
		}
		op = vm.OpMoveA
	}
	b.Emit(op, out.Num, r.Num, 0)
	r.Free(b)
	return out
}
