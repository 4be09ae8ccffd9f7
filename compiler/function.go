package compiler

import (
	"fmt"

	"spark/builtins"
	"spark/diag"
	"spark/sym"
	"spark/types"
	"spark/vm"
)

// implicitPointerArgs counts the pointer registers reserved ahead of
// the declared parameters: self for methods, plus the state owner and
// calling-state pointers for action functions.
func implicitPointerArgs(fn *sym.Function) int {
	n := 0
	if fn.Class != nil {
		n = 1
	}
	if fn.Flags&sym.FuncAction != 0 {
		n = 3
	}
	return n
}

// Compile resolves and emits one function body into a runnable
// program. The diagnostics land in ctx.Diag; a nil program with a
// non-nil error means resolution or emission failed.
func Compile(ctx *Context, fn *sym.Function, args []*LocalVariableDeclaration, body Node) (*vm.Program, error) {
	ctx.Func = fn
	ctx.Class = fn.Class
	if fn.Proto != nil && len(fn.Proto.ReturnTypes) > 0 {
		ctx.ReturnProto = fn.Proto
	}
	ctx.FunctionArgs = args

	ok := true
	for i := range args {
		a := args[i].Resolve(ctx)
		if a == nil {
			ok = false
			continue
		}
		args[i] = a.(*LocalVariableDeclaration)
	}
	body.DiscardResult()
	body = body.Resolve(ctx)
	if body == nil || !ok {
		return nil, fmt.Errorf("function %s: resolution failed", fn.Name)
	}
	// A node may survive resolution after reporting an error through
	// the bag; emission must not run on such a tree.
	if bag, isBag := ctx.Diag.(*diag.Bag); isBag && bag.HasErrors() {
		return nil, fmt.Errorf("function %s: %d error(s)", fn.Name, bag.ErrorCount())
	}
	if fn.Proto == nil {
		proto := ctx.ReturnProto
		if proto == nil {
			proto = sym.NewProto(nil, nil)
		}
		fn.Proto = proto
	}

	b := vm.NewBuilder()

	// Implicit pointers go first so self lands in pointer register 0.
	implicit := implicitPointerArgs(fn)
	for i := 0; i < implicit; i++ {
		if got := b.Regs[types.RegPointer].Alloc(1); got != i {
			return nil, fmt.Errorf("function %s: implicit pointer register %d allocated as %d", fn.Name, i, got)
		}
	}
	for _, a := range args {
		a.RegNum = b.Regs[a.VarType.RegClass()].Alloc(a.VarType.RegWidth())
	}

	r := body.Emit(b)
	r.Free(b)
	if !body.CheckReturn() {
		b.Emit(vm.OpRet, vm.RetFinal, vm.RegEncNil, 0)
	}

	for _, a := range args {
		a.Release(b)
	}
	for i := implicit - 1; i >= 0; i-- {
		b.Regs[types.RegPointer].Free(i, 1)
	}
	return b.Finish(fn.Name)
}

// CompileBody is the plain entry for fixtures and tools: it builds a
// fresh context around the services, compiles, and reports whether the
// diagnostics bag stayed clean.
func CompileBody(fn *sym.Function, body Node, opts ...Option) (*vm.Program, *diag.Bag, error) {
	bag := diag.NewBag()
	ctx := &Context{Diag: bag}
	for _, opt := range opts {
		opt(ctx)
	}
	if ctx.Builtins == nil {
		ctx.Builtins = builtins.Standard()
	}
	prog, err := Compile(ctx, fn, nil, body)
	if err == nil && bag.HasErrors() {
		prog, err = nil, fmt.Errorf("function %s: %d error(s)", fn.Name, bag.ErrorCount())
	}
	return prog, bag, err
}

// Option configures the compile context for CompileBody.
type Option func(*Context)

func WithLaxDialect() Option          { return func(c *Context) { c.Lax = true } }
func WithSymbols(t *sym.Table) Option { return func(c *Context) { c.Syms = t } }

func WithServices(classes sym.ClassSource, methods sym.MethodSource, specials sym.LineSpecials, cvars sym.CVars) Option {
	return func(c *Context) {
		c.Classes = classes
		c.Methods = methods
		c.Specials = specials
		c.CVars = cvars
	}
}

func WithBuiltins(r *builtins.Registry) Option {
	return func(c *Context) { c.Builtins = r }
}

func WithStateCount(n int) Option { return func(c *Context) { c.StateCount = n } }
