// Package compiler lowers a typed AST into register bytecode. Each
// node resolves itself (type checking, constant folding, possibly
// rewriting itself into a simpler node) and then emits instructions
// into a vm.Builder. Resolution and emission are two passes over the
// same node objects.
package compiler

import (
	"spark/builtins"
	"spark/diag"
	"spark/sym"
	"spark/types"
	"spark/vm"
)

// Pos is a source position carried by every node.
type Pos = diag.Pos

// Node is the contract every expression and statement implements.
type Node interface {
	Position() Pos
	Type() *types.Type

	// Resolve type-checks the node, folding constants and possibly
	// returning a different node that replaces it. A nil return means
	// resolution failed and a diagnostic was reported; the caller
	// propagates the failure without resolving further uses. Resolving
	// an already resolved node returns it unchanged.
	Resolve(ctx *Context) Node

	// Emit generates instructions for a successfully resolved node and
	// returns the register holding its result (the empty handle for
	// void-valued statements).
	Emit(b *vm.Builder) vm.Reg

	// Constant reports whether the node folded to a compile-time
	// constant (always a *Constant node).
	Constant() bool

	// RequestAddress asks whether the node denotes a storage location.
	// writable additionally reflects read-only qualifiers.
	RequestAddress(ctx *Context) (addressable, writable bool)

	// ReturnProto describes the value shape a return statement gets
	// from using this node as its value.
	ReturnProto() *sym.Proto

	// CheckReturn reports whether control cannot flow past this node
	// (it unconditionally returns).
	CheckReturn() bool

	// DiscardResult marks the node's value as unused (statement
	// position).
	DiscardResult()
}

// base carries the state shared by every node. Concrete nodes embed it
// and override the methods their semantics need.
type base struct {
	pos        Pos
	valueType  *types.Type
	resolved   bool
	needResult bool
}

func newBase(pos Pos) base {
	return base{pos: pos, needResult: true}
}

func (n *base) Position() Pos                           { return n.pos }
func (n *base) Type() *types.Type                       { return n.valueType }
func (n *base) Constant() bool                          { return false }
func (n *base) RequestAddress(*Context) (bool, bool)    { return false, false }
func (n *base) CheckReturn() bool                       { return false }
func (n *base) DiscardResult()                          { n.needResult = false }

func (n *base) ReturnProto() *sym.Proto {
	if n.valueType == nil || n.valueType == types.TypeVoid {
		return sym.NewProto(nil, nil)
	}
	return sym.NewProto([]*types.Type{n.valueType}, nil)
}

// beginResolve flips the resolved flag, returning true when the node
// was already resolved and must be returned unchanged. Setting the
// flag up front also stops cyclic re-resolution.
func (n *base) beginResolve() bool {
	if n.resolved {
		return true
	}
	n.resolved = true
	return false
}

// breakTarget is a construct a break statement can register on (loops
// and switches).
type breakTarget interface {
	addBreak(j *JumpStatement)
}

// Context is the per-function state threaded through resolution. It is
// mutated as resolution descends into nested blocks and restored on the
// way back out.
type Context struct {
	Func  *sym.Function
	Class *types.Type // enclosing class definition, nil for free functions

	// ReturnProto aggregates the return statements seen so far; they
	// must stay mutually compatible.
	ReturnProto *sym.Proto

	Block     *CompoundStatement
	Loop      *loopBase   // innermost loop
	Breakable breakTarget // innermost loop or switch

	// Lax marks the legacy dialect that downgrades several type errors
	// to warnings with best-effort coercions.
	Lax bool

	Diag     diag.Sink
	Syms     *sym.Table
	Builtins *builtins.Registry
	Classes  sym.ClassSource
	Methods  sym.MethodSource
	Specials sym.LineSpecials
	CVars    sym.CVars

	// StateCount is the number of states in the enclosing state block,
	// for index-based state-label casts. Zero means no state context.
	StateCount int

	// FunctionArgs are the declarations backing the function's
	// parameters, visible to identifier lookup below every block.
	FunctionArgs []*LocalVariableDeclaration
}

func (c *Context) Error(pos Pos, format string, args ...any) {
	c.Diag.Report(diag.Fatal, pos, format, args...)
}

// OptError reports a recoverable type error: fatal in the strict
// dialect, a warning in the lax one. Returns true when compilation may
// keep going with a coerced value.
func (c *Context) OptError(pos Pos, format string, args ...any) bool {
	if c.Lax {
		c.Diag.Report(diag.Warning, pos, format, args...)
		return true
	}
	c.Diag.Report(diag.OptError, pos, format, args...)
	return false
}

func (c *Context) Warn(pos Pos, format string, args ...any) {
	c.Diag.Report(diag.Warning, pos, format, args...)
}

func (c *Context) DebugMsg(pos Pos, format string, args ...any) {
	c.Diag.Report(diag.Debug, pos, format, args...)
}

// CheckReturnProto folds one return statement's prototype into the
// function's aggregate and reports whether they stay compatible.
// Prototypes with fewer return values are compatible with longer ones
// only as an exact prefix, and a void return forces every other return
// to be void.
func (c *Context) CheckReturnProto(proto *sym.Proto, pos Pos) bool {
	if c.ReturnProto == nil {
		c.ReturnProto = proto
		return true
	}
	have := c.ReturnProto.ReturnTypes
	got := proto.ReturnTypes
	if (len(have) == 0) != (len(got) == 0) {
		c.Error(pos, "Return type mismatch: all returns must be void or none")
		return false
	}
	short, long := have, got
	if len(short) > len(long) {
		short, long = long, short
	}
	for i, t := range short {
		if t != long[i] {
			c.Error(pos, "Return type mismatch")
			return false
		}
	}
	if len(got) > len(have) {
		c.ReturnProto = proto
	}
	return true
}

// Nop is the statement a fully optimized-away construct leaves behind.
type Nop struct {
	base
}

func NewNop(pos Pos) *Nop {
	n := &Nop{base: newBase(pos)}
	n.valueType = types.TypeVoid
	return n
}

func (n *Nop) Resolve(ctx *Context) Node { return n }

func (n *Nop) Emit(b *vm.Builder) vm.Reg { return vm.Reg{} }
