package compiler

import (
	"spark/types"
	"spark/vm"
)

// LocalVariableDeclaration reserves a register-backed local for the
// rest of its compound block. The register stays fixed until the block
// releases it.
type LocalVariableDeclaration struct {
	base
	Name    string
	VarType *types.Type
	Init    Node

	// RegNum is assigned during emission; -1 until then.
	RegNum int
}

func NewLocalVariableDeclaration(pos Pos, name string, t *types.Type, init Node) *LocalVariableDeclaration {
	n := &LocalVariableDeclaration{base: newBase(pos), Name: name, VarType: t, Init: init, RegNum: -1}
	n.valueType = types.TypeVoid
	return n
}

func (n *LocalVariableDeclaration) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.VarType.RegClass() == types.RegNil {
		ctx.Error(n.pos, "Invalid type %s for a local variable", n.VarType)
		return nil
	}
	if n.Init != nil {
		if n.Init = n.Init.Resolve(ctx); n.Init == nil {
			return nil
		}
		if n.Init = coerce(ctx, n.Init, n.VarType); n.Init == nil {
			return nil
		}
	}
	if ctx.Block != nil {
		if prev := ctx.Block.addLocal(n); prev != nil {
			ctx.Error(n.pos, "Local variable %s is already defined", n.Name)
			ctx.Error(prev.pos, "Original definition is here")
			return nil
		}
	}
	return n
}

func (n *LocalVariableDeclaration) Emit(b *vm.Builder) vm.Reg {
	class := n.VarType.RegClass()
	width := n.VarType.RegWidth()
	n.RegNum = b.Regs[class].Alloc(width)
	if n.Init != nil {
		src := n.Init.Emit(b)
		moveInto(b, vm.FixedReg(n.RegNum, class, width), src)
	}
	return vm.Reg{}
}

// Release returns the local's register to the pool; called by the
// owning block after its whole body has been emitted.
func (n *LocalVariableDeclaration) Release(b *vm.Builder) {
	if n.RegNum >= 0 {
		b.Regs[n.VarType.RegClass()].Free(n.RegNum, n.VarType.RegWidth())
		n.RegNum = -1
	}
}

// moveInto copies an emitted value into a specific register and frees
// the source handle.
func moveInto(b *vm.Builder, dest, src vm.Reg) {
	switch dest.Class {
	case types.RegInt:
		if src.Kind == vm.RegKonst {
			b.Emit(vm.OpLK, dest.Num, src.Num, 0)
		} else {
			b.Emit(vm.OpMove, dest.Num, src.Num, 0)
		}
	case types.RegFloat:
		switch {
		case src.Kind == vm.RegKonst:
			b.Emit(vm.OpLKF, dest.Num, src.Num, 0)
		case dest.Width == 2:
			b.Emit(vm.OpMoveV2, dest.Num, src.Num, 0)
		case dest.Width == 3:
			b.Emit(vm.OpMoveV3, dest.Num, src.Num, 0)
		default:
			b.Emit(vm.OpMoveF, dest.Num, src.Num, 0)
		}
	case types.RegString:
		if src.Kind == vm.RegKonst {
			b.Emit(vm.OpLKS, dest.Num, src.Num, 0)
		} else {
			b.Emit(vm.OpMoveS, dest.Num, src.Num, 0)
		}
	case types.RegPointer:
		if src.Kind == vm.RegKonst {
			b.Emit(vm.OpLKP, dest.Num, src.Num, 0)
		} else {
			b.Emit(vm.OpMoveA, dest.Num, src.Num, 0)
		}
	}
	src.Free(b)
}
