package compiler

import (
	"strings"

	"spark/sym"
	"spark/types"
	"spark/vm"
)

// StateIndexCast turns an integer offset into a state-label value:
// zero means "no state", a positive N the Nth state after the current
// one in the enclosing state block. Constant indices are range-checked
// and folded; a runtime index is clamped into the block and packed
// together with the block symbol and a sign-bit marker so the host can
// tell a computed jump from a direct one.
type StateIndexCast struct {
	base
	Operand Node

	stateCount int
	blockSym   types.NameID
}

func NewStateIndexCast(operand Node) *StateIndexCast {
	n := &StateIndexCast{base: newBase(operand.Position()), Operand: operand}
	n.valueType = types.TypeStateLabel
	return n
}

func (n *StateIndexCast) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	if !n.Operand.Type().IsNumeric() {
		ctx.Error(n.pos, "Numeric type expected, got a %s", n.Operand.Type())
		return nil
	}
	if n.Operand.Type().IsFloat() {
		if n.Operand = NewIntCast(n.Operand, types.TypeSInt32, false).Resolve(ctx); n.Operand == nil {
			return nil
		}
	}
	if ctx.StateCount == 0 {
		ctx.Error(n.pos, "State index referenced outside of a state block")
		return nil
	}
	n.stateCount = ctx.StateCount
	if ctx.Func != nil {
		n.blockSym = types.InternName(ctx.Func.Name)
	}
	if n.Operand.Constant() {
		idx := constValue(n.Operand).GetInt()
		if idx < 0 {
			ctx.Error(n.pos, "State index must not be negative")
			return nil
		}
		if idx > n.stateCount {
			ctx.Error(n.pos, "State index %d out of range", idx)
			return nil
		}
		return NewIntConstant(n.pos, types.TypeStateLabel, idx)
	}
	return n
}

func (n *StateIndexCast) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	src.Free(b)
	out := b.Temp(types.RegInt, 1)
	// Clamp the offset into the block, then fold the block symbol into
	// the high half with the sign bit set. Non-negative label values
	// stay reserved for direct indices.
	b.Emit(vm.OpMaxRK, out.Num, src.Num, b.IntConst(0))
	b.Emit(vm.OpMinRK, out.Num, out.Num, b.IntConst(n.stateCount))
	b.Emit(vm.OpOrRK, out.Num, out.Num, b.IntConst(wrap32(int(n.blockSym)<<16|0x80000000)))
	return out
}

// StateLabelRef is a textual state-label target parsed at compile
// time. It emits as a negative id naming the interned reference
// record.
type StateLabelRef struct {
	base
	Ref sym.StateRef
}

func NewStateLabelRef(pos Pos, ref sym.StateRef) *StateLabelRef {
	n := &StateLabelRef{base: newBase(pos), Ref: ref}
	n.valueType = types.TypeStateLabel
	return n
}

func (n *StateLabelRef) Resolve(ctx *Context) Node {
	n.beginResolve()
	return n
}

func (n *StateLabelRef) Emit(b *vm.Builder) vm.Reg {
	out := b.Temp(types.RegInt, 1)
	b.LoadInt(out.Num, -(b.AddrConst(n.Ref, vm.TagState) + 1))
	return out
}

// stateLabelFromText resolves a compile-time string into a state-label
// reference node.
func stateLabelFromText(ctx *Context, pos Pos, text string) Node {
	ref, ok := parseStateRef(text)
	if !ok {
		ctx.Error(pos, "Invalid state name '%s'", text)
		return nil
	}
	return NewStateLabelRef(pos, ref).Resolve(ctx)
}

// parseStateRef splits a textual state target into its optional
// "Scope::" qualifier and dotted label path. Every path component must
// be non-empty.
func parseStateRef(text string) (sym.StateRef, bool) {
	var ref sym.StateRef
	rest := text
	if i := strings.Index(rest, "::"); i >= 0 {
		if i == 0 {
			return ref, false
		}
		ref.Scope = types.InternName(rest[:i])
		rest = rest[i+2:]
	}
	if rest == "" {
		return ref, false
	}
	for _, part := range strings.Split(rest, ".") {
		if part == "" {
			return ref, false
		}
	}
	ref.Path = rest
	return ref, true
}
