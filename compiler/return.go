package compiler

import (
	"spark/sym"
	"spark/types"
	"spark/vm"
)

// ReturnStatement hands a value (or nothing) back to the caller. A
// directly returned call becomes a VM tail call and emits no OpRet of
// its own.
type ReturnStatement struct {
	base
	Value Node

	proto *sym.Proto
}

func NewReturnStatement(pos Pos, value Node) *ReturnStatement {
	n := &ReturnStatement{base: newBase(pos), Value: value}
	n.valueType = types.TypeVoid
	return n
}

func (n *ReturnStatement) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Value == nil {
		n.proto = sym.NewProto(nil, nil)
		if !ctx.CheckReturnProto(n.proto, n.pos) {
			return nil
		}
		return n
	}
	if n.Value = n.Value.Resolve(ctx); n.Value == nil {
		return nil
	}
	if failed(n.Value) {
		return nil
	}

	if call, isCall := n.Value.(*VMFunctionCall); isCall && call.ReturnProto() != nil {
		// Returning a call's results directly: adopt its whole
		// prototype and let the call itself transfer control.
		n.proto = call.ReturnProto()
		if !ctx.CheckReturnProto(n.proto, n.pos) {
			return nil
		}
		call.MarkTailCall()
		return n
	}

	if n.Value.Type() == types.TypeVoid {
		ctx.Error(n.pos, "Void expression cannot be returned")
		return nil
	}
	if ctx.ReturnProto != nil && len(ctx.ReturnProto.ReturnTypes) > 0 {
		if n.Value = coerce(ctx, n.Value, ctx.ReturnProto.ReturnTypes[0]); n.Value == nil {
			return nil
		}
	}
	n.proto = sym.NewProto([]*types.Type{n.Value.Type()}, nil)
	if !ctx.CheckReturnProto(n.proto, n.pos) {
		return nil
	}
	return n
}

func (n *ReturnStatement) Emit(b *vm.Builder) vm.Reg {
	if n.Value == nil {
		b.Emit(vm.OpRet, vm.RetFinal, vm.RegEncNil, 0)
		return vm.Reg{}
	}
	if call, isCall := n.Value.(*VMFunctionCall); isCall && call.tailCall {
		return call.Emit(b)
	}
	r := n.Value.Emit(b)
	b.Emit(vm.OpRet, vm.RetFinal, r.Encode(), r.Num)
	r.Free(b)
	return vm.Reg{}
}

func (n *ReturnStatement) CheckReturn() bool { return true }
