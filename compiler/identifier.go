package compiler

import (
	"spark/sym"
	"spark/types"
	"spark/vm"
)

// Identifier is an unresolved name. Resolution replaces it following
// the lookup order: local variable, enclosing-class default, self
// field, class or global constant, global variable, line-special
// number, console variable.
type Identifier struct {
	base
	Name string
}

func NewIdentifier(pos Pos, name string) *Identifier {
	return &Identifier{base: newBase(pos), Name: name}
}

func (n *Identifier) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if decl := findLocal(ctx, n.Name); decl != nil {
		return NewLocalVariable(n.pos, decl).Resolve(ctx)
	}
	if ctx.Class != nil {
		if f := ctx.Class.FindField(n.Name); f != nil {
			var obj Node
			if f.Flags&types.FieldMeta != 0 {
				obj = NewClassDefaults(n.pos, ctx.Class)
			} else {
				obj = NewSelf(n.pos)
			}
			return NewStructMember(obj, f).Resolve(ctx)
		}
	}
	if ctx.Syms != nil {
		switch s := ctx.Syms.Lookup(n.Name).(type) {
		case *sym.Const:
			return NewConstant(n.pos, s.Value)
		case *sym.Global:
			return NewGlobalVariable(n.pos, s).Resolve(ctx)
		case *sym.Function:
			ctx.Error(n.pos, "Function %s used as a value", n.Name)
			return nil
		}
	}
	if ctx.Specials != nil {
		if sp := ctx.Specials.FindSpecial(n.Name); sp != nil {
			return NewIntConstant(n.pos, types.TypeSInt32, sp.Number)
		}
	}
	if ctx.CVars != nil {
		if cv := ctx.CVars.FindCVar(n.Name); cv != nil {
			return NewCVarAccess(n.pos, cv).Resolve(ctx)
		}
	}
	ctx.Error(n.pos, "Unknown identifier '%s'", n.Name)
	return nil
}

// findLocal searches the enclosing blocks innermost-first, then the
// function parameters.
func findLocal(ctx *Context, name string) *LocalVariableDeclaration {
	for blk := ctx.Block; blk != nil; blk = blk.outer {
		for _, d := range blk.Locals {
			if d.Name == name {
				return d
			}
		}
	}
	for _, d := range ctx.FunctionArgs {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func (n *Identifier) Emit(b *vm.Builder) vm.Reg {
	panic("identifier survived resolution")
}

// LocalVariable reads or writes a register-backed local.
type LocalVariable struct {
	base
	Decl *LocalVariableDeclaration
}

func NewLocalVariable(pos Pos, decl *LocalVariableDeclaration) *LocalVariable {
	n := &LocalVariable{base: newBase(pos), Decl: decl}
	n.valueType = decl.VarType
	n.resolved = true
	return n
}

func (n *LocalVariable) Resolve(ctx *Context) Node { return n }

func (n *LocalVariable) RequestAddress(ctx *Context) (bool, bool) {
	return true, true
}

func (n *LocalVariable) Emit(b *vm.Builder) vm.Reg {
	return vm.FixedReg(n.Decl.RegNum, n.valueType.RegClass(), n.valueType.RegWidth())
}

// selfRegister is the pointer register the compilation entry point
// reserves for the instance pointer of methods.
const selfRegister = 0

// Self is the instance pointer of the enclosing method.
type Self struct {
	base
}

func NewSelf(pos Pos) *Self {
	return &Self{base: newBase(pos)}
}

func (n *Self) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if ctx.Class == nil {
		ctx.Error(n.pos, "'self' used outside of a class method")
		return nil
	}
	n.valueType = types.NewPointer(ctx.Class)
	return n
}

func (n *Self) Emit(b *vm.Builder) vm.Reg {
	return vm.FixedReg(selfRegister, types.RegPointer, 1)
}

// DefaultsRecord identifies the class-defaults storage of a class when
// interned as an address constant.
type DefaultsRecord struct {
	Class *types.Type
}

// ClassDefaults is the defaults record of a class, the backing storage
// of meta fields.
type ClassDefaults struct {
	base
	Class *types.Type
}

func NewClassDefaults(pos Pos, class *types.Type) *ClassDefaults {
	n := &ClassDefaults{base: newBase(pos), Class: class}
	n.valueType = types.NewPointer(class)
	n.resolved = true
	return n
}

func (n *ClassDefaults) Resolve(ctx *Context) Node { return n }

func (n *ClassDefaults) Emit(b *vm.Builder) vm.Reg {
	idx := b.AddrConst(DefaultsRecord{Class: n.Class}, vm.TagGlobal)
	return vm.KonstReg(idx, types.RegPointer)
}

// GlobalVariable reads or writes a host global through its interned
// address.
type GlobalVariable struct {
	base
	Global *sym.Global

	addressRequested bool
}

func NewGlobalVariable(pos Pos, g *sym.Global) *GlobalVariable {
	n := &GlobalVariable{base: newBase(pos), Global: g}
	n.valueType = g.Type
	n.resolved = true
	return n
}

func (n *GlobalVariable) Resolve(ctx *Context) Node { return n }

func (n *GlobalVariable) RequestAddress(ctx *Context) (bool, bool) {
	n.addressRequested = true
	return true, n.Global.Flags&types.FieldReadOnly == 0
}

func (n *GlobalVariable) Emit(b *vm.Builder) vm.Reg {
	addr := vm.KonstReg(b.AddrConst(n.Global.Addr, vm.TagGlobal), types.RegPointer)
	if n.addressRequested {
		return addressOf(b, addr, 0, n.valueType)
	}
	ptr := materialize(b, addr)
	ptr.Free(b)
	out := b.Temp(n.valueType.RegClass(), n.valueType.RegWidth())
	b.Emit(loadOp(n.valueType), out.Num, ptr.Num, b.IntConst(0))
	return out
}

// CVarAccess reads a console variable; always read-only.
type CVarAccess struct {
	base
	CVar *sym.CVar
}

func NewCVarAccess(pos Pos, cv *sym.CVar) *CVarAccess {
	n := &CVarAccess{base: newBase(pos), CVar: cv}
	n.valueType = cv.Type
	n.resolved = true
	return n
}

func (n *CVarAccess) Resolve(ctx *Context) Node { return n }

func (n *CVarAccess) Emit(b *vm.Builder) vm.Reg {
	addr := materialize(b, vm.KonstReg(b.AddrConst(n.CVar, vm.TagCVar), types.RegPointer))
	addr.Free(b)
	out := b.Temp(n.valueType.RegClass(), n.valueType.RegWidth())
	b.Emit(loadOp(n.valueType), out.Num, addr.Num, b.IntConst(0))
	return out
}
