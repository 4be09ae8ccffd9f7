package compiler

import (
	"spark/types"
	"spark/vm"
)

// loopBase carries the break/continue bookkeeping the loop statements
// share. Jump statements register themselves here during resolution;
// the loop patches their sites once its layout is known.
type loopBase struct {
	base
	Condition Node
	Body      Node

	breaks    []*JumpStatement
	continues []*JumpStatement
}

func (n *loopBase) addBreak(j *JumpStatement)    { n.breaks = append(n.breaks, j) }
func (n *loopBase) addContinue(j *JumpStatement) { n.continues = append(n.continues, j) }

// resolveBody resolves the loop body with this loop installed as the
// innermost loop and break target.
func (n *loopBase) resolveBody(ctx *Context) bool {
	if n.Body == nil {
		return true
	}
	outerLoop, outerBrk := ctx.Loop, ctx.Breakable
	ctx.Loop, ctx.Breakable = n, n
	defer func() { ctx.Loop, ctx.Breakable = outerLoop, outerBrk }()
	n.Body.DiscardResult()
	body := n.Body.Resolve(ctx)
	if body == nil {
		return false
	}
	n.Body = body
	return true
}

// resolveCondition bool-casts the condition and reports whether the
// loop folded to a known outcome: folded is true when the condition is
// a constant, and runs carries its value.
func (n *loopBase) resolveCondition(ctx *Context) (folded, runs, ok bool) {
	if n.Condition == nil {
		return true, true, true
	}
	cond := NewBoolCast(n.Condition).Resolve(ctx)
	if cond == nil {
		return false, false, false
	}
	n.Condition = cond
	if cond.Constant() {
		return true, constValue(cond).GetBool(), true
	}
	return false, false, true
}

func (n *loopBase) patchBreaks(b *vm.Builder) {
	for _, j := range n.breaks {
		if j.site >= 0 {
			b.BackpatchToHere(j.site)
		}
	}
}

func (n *loopBase) patchContinues(b *vm.Builder, target int) {
	for _, j := range n.continues {
		if j.site >= 0 {
			b.Backpatch(j.site, target)
		}
	}
}

// WhileLoop tests its condition before every iteration. A constant
// false condition removes the loop; a constant true one removes the
// test.
type WhileLoop struct {
	loopBase
}

func NewWhileLoop(pos Pos, cond, body Node) *WhileLoop {
	n := &WhileLoop{loopBase{base: newBase(pos), Condition: cond, Body: body}}
	n.valueType = types.TypeVoid
	return n
}

func (n *WhileLoop) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	folded, runs, ok := n.resolveCondition(ctx)
	if !ok {
		return nil
	}
	// The body resolves even when the loop folds away so its
	// diagnostics still surface.
	if !n.resolveBody(ctx) {
		return nil
	}
	if folded && !runs {
		return NewNop(n.pos)
	}
	if folded {
		switch n.Body.(type) {
		case nil, *Nop:
			ctx.Warn(n.pos, "Infinite empty loop")
		}
		n.Condition = nil
	}
	return n
}

func (n *WhileLoop) Emit(b *vm.Builder) vm.Reg {
	start := b.Address()
	exitSite := -1
	if n.Condition != nil {
		cond := materialize(b, n.Condition.Emit(b))
		cond.Free(b)
		b.Emit(vm.OpTest, cond.Num, 0, 0)
		exitSite = b.EmitJump()
	}
	if n.Body != nil {
		r := n.Body.Emit(b)
		r.Free(b)
	}
	n.patchContinues(b, start)
	b.Backpatch(b.EmitJump(), start)
	if exitSite >= 0 {
		b.BackpatchToHere(exitSite)
	}
	n.patchBreaks(b)
	return vm.Reg{}
}

// DoWhileLoop runs its body before testing. The bool-cast condition is
// always 0 or 1, so the back edge is one test against 1.
type DoWhileLoop struct {
	loopBase
	once bool
}

func NewDoWhileLoop(pos Pos, cond, body Node) *DoWhileLoop {
	n := &DoWhileLoop{loopBase: loopBase{base: newBase(pos), Condition: cond, Body: body}}
	n.valueType = types.TypeVoid
	return n
}

func (n *DoWhileLoop) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	folded, runs, ok := n.resolveCondition(ctx)
	if !ok {
		return nil
	}
	if !n.resolveBody(ctx) {
		return nil
	}
	if folded {
		n.Condition = nil
		if !runs {
			// Runs exactly once; break targets still need the
			// loop's end, so the loop node stays.
			n.once = true
		}
	}
	return n
}

func (n *DoWhileLoop) Emit(b *vm.Builder) vm.Reg {
	start := b.Address()
	if n.Body != nil {
		r := n.Body.Emit(b)
		r.Free(b)
	}
	n.patchContinues(b, b.Address())
	switch {
	case n.once:
		// Fall through to the end.
	case n.Condition == nil:
		b.Backpatch(b.EmitJump(), start)
	default:
		cond := materialize(b, n.Condition.Emit(b))
		cond.Free(b)
		b.Emit(vm.OpTest, cond.Num, 1, 0)
		b.Backpatch(b.EmitJump(), start)
	}
	n.patchBreaks(b)
	return vm.Reg{}
}

// ForLoop is the classic three-clause loop. All clauses are optional;
// a missing condition loops until a break.
type ForLoop struct {
	loopBase
	Init      Node
	Iteration Node
}

func NewForLoop(pos Pos, init, cond, iter, body Node) *ForLoop {
	n := &ForLoop{
		loopBase:  loopBase{base: newBase(pos), Condition: cond, Body: body},
		Init:      init,
		Iteration: iter,
	}
	n.valueType = types.TypeVoid
	return n
}

func (n *ForLoop) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Init != nil {
		n.Init.DiscardResult()
		if n.Init = n.Init.Resolve(ctx); n.Init == nil {
			return nil
		}
	}
	folded, runs, ok := n.resolveCondition(ctx)
	if !ok {
		return nil
	}
	if folded && !runs {
		if n.Init != nil {
			return n.Init
		}
		return NewNop(n.pos)
	}
	if n.Iteration != nil {
		n.Iteration.DiscardResult()
		if n.Iteration = n.Iteration.Resolve(ctx); n.Iteration == nil {
			return nil
		}
	}
	if !n.resolveBody(ctx) {
		return nil
	}
	if folded {
		n.Condition = nil
	}
	return n
}

func (n *ForLoop) Emit(b *vm.Builder) vm.Reg {
	if n.Init != nil {
		r := n.Init.Emit(b)
		r.Free(b)
	}
	start := b.Address()
	exitSite := -1
	if n.Condition != nil {
		cond := materialize(b, n.Condition.Emit(b))
		cond.Free(b)
		b.Emit(vm.OpTest, cond.Num, 0, 0)
		exitSite = b.EmitJump()
	}
	if n.Body != nil {
		r := n.Body.Emit(b)
		r.Free(b)
	}
	n.patchContinues(b, b.Address())
	if n.Iteration != nil {
		r := n.Iteration.Emit(b)
		r.Free(b)
	}
	b.Backpatch(b.EmitJump(), start)
	if exitSite >= 0 {
		b.BackpatchToHere(exitSite)
	}
	n.patchBreaks(b)
	return vm.Reg{}
}
