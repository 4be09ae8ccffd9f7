package compiler

import (
	"spark/types"
	"spark/vm"
)

// JumpStatement is break or continue. Resolution registers it with the
// innermost construct that owns it; that construct backpatches the
// jump site once the target address is known.
type JumpStatement struct {
	base
	Continue bool

	// site is the jump's instruction address, recorded during
	// emission for the owner to patch. Stays -1 when the statement
	// turned out to be dead code and never emitted.
	site int
}

func NewBreakStatement(pos Pos) *JumpStatement {
	n := &JumpStatement{base: newBase(pos), site: -1}
	n.valueType = types.TypeVoid
	return n
}

func NewContinueStatement(pos Pos) *JumpStatement {
	n := &JumpStatement{base: newBase(pos), Continue: true, site: -1}
	n.valueType = types.TypeVoid
	return n
}

func (n *JumpStatement) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Continue {
		if ctx.Loop == nil {
			ctx.Error(n.pos, "'continue' outside of a loop")
			return nil
		}
		ctx.Loop.addContinue(n)
		return n
	}
	if ctx.Breakable == nil {
		ctx.Error(n.pos, "'break' outside of a loop or switch")
		return nil
	}
	ctx.Breakable.addBreak(n)
	return n
}

func (n *JumpStatement) Emit(b *vm.Builder) vm.Reg {
	n.site = b.EmitJump()
	return vm.Reg{}
}
