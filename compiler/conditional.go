package compiler

import (
	"spark/types"
	"spark/vm"
)

// Conditional is the '?:' operator. Both branches emit into one shared
// result register.
type Conditional struct {
	base
	Condition Node
	WhenTrue  Node
	WhenFalse Node
}

func NewConditional(cond, whenTrue, whenFalse Node) *Conditional {
	return &Conditional{base: newBase(cond.Position()), Condition: cond, WhenTrue: whenTrue, WhenFalse: whenFalse}
}

func (n *Conditional) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Condition = NewBoolCast(n.Condition).Resolve(ctx); n.Condition == nil {
		return nil
	}
	if n.WhenTrue = n.WhenTrue.Resolve(ctx); n.WhenTrue == nil {
		return nil
	}
	if n.WhenFalse = n.WhenFalse.Resolve(ctx); n.WhenFalse == nil {
		return nil
	}
	if failed(n.WhenTrue) || failed(n.WhenFalse) {
		return nil
	}

	tt, ft := n.WhenTrue.Type(), n.WhenFalse.Type()
	switch {
	case tt == ft:
		n.valueType = tt
	case tt.IsNumeric() && ft.IsNumeric():
		if tt.IsFloat() || ft.IsFloat() {
			n.valueType = types.TypeFloat64
			if n.WhenTrue = NewFloatCast(n.WhenTrue).Resolve(ctx); n.WhenTrue == nil {
				return nil
			}
			if n.WhenFalse = NewFloatCast(n.WhenFalse).Resolve(ctx); n.WhenFalse == nil {
				return nil
			}
		} else {
			n.valueType = types.TypeSInt32
		}
	case tt.IsPointer() && types.AreCompatiblePointerTypes(tt, ft, false):
		n.valueType = tt
	case ft.IsPointer() && types.AreCompatiblePointerTypes(ft, tt, false):
		n.valueType = ft
	default:
		ctx.Error(n.pos, "Incompatible types %s and %s in conditional", tt, ft)
		return nil
	}

	if n.Condition.Constant() {
		if constValue(n.Condition).GetBool() {
			return n.WhenTrue
		}
		return n.WhenFalse
	}
	return n
}

func (n *Conditional) Emit(b *vm.Builder) vm.Reg {
	cond := materialize(b, n.Condition.Emit(b))
	cond.Free(b)
	b.Emit(vm.OpTest, cond.Num, 0, 0)
	elseSite := b.EmitJump()

	out := b.Temp(n.valueType.RegClass(), n.valueType.RegWidth())
	moveInto(b, vm.FixedReg(out.Num, out.Class, out.Width), n.WhenTrue.Emit(b))
	endSite := b.EmitJump()
	b.BackpatchToHere(elseSite)
	moveInto(b, vm.FixedReg(out.Num, out.Class, out.Width), n.WhenFalse.Emit(b))
	b.BackpatchToHere(endSite)
	return out
}
