package compiler

import (
	"spark/types"
	"spark/vm"
)

// Sequence is an ordered run of statements. Resolution continues past a
// failed statement so one pass can report every diagnostic in a body.
type Sequence struct {
	base
	Statements []Node
}

func NewSequence(pos Pos) *Sequence {
	n := &Sequence{base: newBase(pos)}
	n.valueType = types.TypeVoid
	return n
}

func (n *Sequence) Add(stmt Node) {
	if stmt != nil {
		n.Statements = append(n.Statements, stmt)
	}
}

func (n *Sequence) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if !n.resolveStatements(ctx) {
		return nil
	}
	return n
}

func (n *Sequence) resolveStatements(ctx *Context) bool {
	ok := true
	for i := range n.Statements {
		n.Statements[i].DiscardResult()
		s := n.Statements[i].Resolve(ctx)
		if s == nil {
			ok = false
			continue
		}
		n.Statements[i] = s
	}
	return ok
}

func (n *Sequence) Emit(b *vm.Builder) vm.Reg {
	for _, s := range n.Statements {
		r := s.Emit(b)
		r.Free(b)
	}
	return vm.Reg{}
}

func (n *Sequence) CheckReturn() bool {
	for _, s := range n.Statements {
		if s.CheckReturn() {
			return true
		}
	}
	return false
}

// CompoundStatement is a braced block. Locals declared inside it live
// in fixed registers until the whole block has been emitted.
type CompoundStatement struct {
	Sequence
	outer  *CompoundStatement
	Locals []*LocalVariableDeclaration
}

func NewCompoundStatement(pos Pos) *CompoundStatement {
	n := &CompoundStatement{Sequence: Sequence{base: newBase(pos)}}
	n.valueType = types.TypeVoid
	return n
}

// addLocal registers a declaration with the block and returns any
// previous declaration of the same name in this same block.
func (n *CompoundStatement) addLocal(decl *LocalVariableDeclaration) *LocalVariableDeclaration {
	for _, d := range n.Locals {
		if d.Name == decl.Name {
			return d
		}
	}
	n.Locals = append(n.Locals, decl)
	return nil
}

func (n *CompoundStatement) findLocal(name string) *LocalVariableDeclaration {
	for _, d := range n.Locals {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func (n *CompoundStatement) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	n.outer = ctx.Block
	ctx.Block = n
	defer func() { ctx.Block = n.outer }()
	if !n.resolveStatements(ctx) {
		return nil
	}
	return n
}

func (n *CompoundStatement) Emit(b *vm.Builder) vm.Reg {
	n.Sequence.Emit(b)
	for _, d := range n.Locals {
		d.Release(b)
	}
	return vm.Reg{}
}

// IfStatement emits the true path first and skips the trailing jump
// when that path cannot fall through.
type IfStatement struct {
	base
	Condition Node
	WhenTrue  Node
	WhenFalse Node
}

func NewIfStatement(cond, whenTrue, whenFalse Node) *IfStatement {
	n := &IfStatement{base: newBase(cond.Position()), Condition: cond, WhenTrue: whenTrue, WhenFalse: whenFalse}
	n.valueType = types.TypeVoid
	return n
}

func (n *IfStatement) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Condition = NewBoolCast(n.Condition).Resolve(ctx); n.Condition == nil {
		return nil
	}
	if n.WhenTrue != nil {
		n.WhenTrue.DiscardResult()
		if n.WhenTrue = n.WhenTrue.Resolve(ctx); n.WhenTrue == nil {
			return nil
		}
	}
	if n.WhenFalse != nil {
		n.WhenFalse.DiscardResult()
		if n.WhenFalse = n.WhenFalse.Resolve(ctx); n.WhenFalse == nil {
			return nil
		}
	}
	if n.Condition.Constant() {
		taken := n.WhenFalse
		if constValue(n.Condition).GetBool() {
			taken = n.WhenTrue
		}
		if taken == nil {
			return NewNop(n.pos)
		}
		return taken
	}
	return n
}

func (n *IfStatement) Emit(b *vm.Builder) vm.Reg {
	cond := materialize(b, n.Condition.Emit(b))
	cond.Free(b)
	b.Emit(vm.OpTest, cond.Num, 0, 0)
	elseSite := b.EmitJump()

	if n.WhenTrue != nil {
		r := n.WhenTrue.Emit(b)
		r.Free(b)
	}
	if n.WhenFalse == nil {
		b.BackpatchToHere(elseSite)
		return vm.Reg{}
	}

	endSite := -1
	if n.WhenTrue == nil || !n.WhenTrue.CheckReturn() {
		endSite = b.EmitJump()
	}
	b.BackpatchToHere(elseSite)
	r := n.WhenFalse.Emit(b)
	r.Free(b)
	if endSite >= 0 {
		b.BackpatchToHere(endSite)
	}
	return vm.Reg{}
}

func (n *IfStatement) CheckReturn() bool {
	return n.WhenTrue != nil && n.WhenFalse != nil &&
		n.WhenTrue.CheckReturn() && n.WhenFalse.CheckReturn()
}
