package compiler

import (
	"math"
	"strconv"

	"spark/builtins"
	"spark/sym"
	"spark/types"
	"spark/vm"
)

// failed reports the error-sentinel type, which short-circuits further
// checks without another diagnostic.
func failed(n Node) bool { return n.Type() == types.TypeError }

// emitNativeCall emits a call to a registry helper from already
// emitted argument handles and returns its single result register.
func emitNativeCall(b *vm.Builder, fn *sym.Function, args []vm.Reg) vm.Reg {
	for _, a := range args {
		b.Emit(vm.OpParam, a.Encode(), a.Num, 0)
	}
	for _, a := range args {
		a.Free(b)
	}
	callee := b.AddrConst(fn, vm.TagFunction)
	b.Emit(vm.OpCallK, callee, len(args), 1)
	out := b.Temp(fn.Proto.ReturnTypes[0].RegClass(), 1)
	b.Emit(vm.OpResult, out.Encode(), out.Num, 0)
	return out
}

// BoolCast coerces any single-register numeric, string or pointer value
// to bool.
type BoolCast struct {
	base
	Operand Node
}

func NewBoolCast(operand Node) *BoolCast {
	n := &BoolCast{base: newBase(operand.Position()), Operand: operand}
	n.valueType = types.TypeBool
	return n
}

func (n *BoolCast) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	if t == types.TypeBool {
		return n.Operand
	}
	if !t.IsBoolCompat() && t.RegClass() != types.RegString {
		ctx.Error(n.pos, "Numeric type expected, got a %s", t)
		return nil
	}
	if n.Operand.Constant() {
		return NewBoolConstant(n.pos, constValue(n.Operand).GetBool())
	}
	return n
}

func (n *BoolCast) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	var sel int
	switch src.Class {
	case types.RegInt:
		sel = vm.CastI2B
	case types.RegFloat:
		sel = vm.CastF2B
	case types.RegString:
		sel = vm.CastS2B
	default:
		sel = vm.CastA2B
	}
	src.Free(b)
	out := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpCast, out.Num, src.Num, sel)
	return out
}

// IntCast converts to a 32-bit integer type. Explicit marks a
// source-level cast; implicit integer contexts reject floats in the
// strict dialect and truncate with a diagnostic in the lax one.
type IntCast struct {
	base
	Operand  Node
	Target   *types.Type
	NoWarn   bool
	Explicit bool
}

func NewIntCast(operand Node, target *types.Type, explicit bool) *IntCast {
	n := &IntCast{base: newBase(operand.Position()), Operand: operand, Target: target, Explicit: explicit}
	n.valueType = target
	return n
}

func (n *IntCast) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	switch {
	case t == n.Target:
		return n.Operand
	case t.IsInteger():
		if n.Operand.Constant() {
			return NewIntConstant(n.pos, n.Target, constValue(n.Operand).GetInt())
		}
		// Same register contents, different type tag.
		return n
	case t == types.TypeName:
		if !ctx.OptError(n.pos, "Cannot convert a name to an integer") {
			return nil
		}
		return NewIntConstant(n.pos, n.Target, 0)
	case t.RegClass() == types.RegInt && n.Explicit:
		// Explicit reinterpretation of sounds, colors, texture ids and
		// the other int-register scalar types.
		if n.Operand.Constant() {
			return NewIntConstant(n.pos, n.Target, constValue(n.Operand).GetInt())
		}
		return n
	case t.IsFloat():
		if n.Operand.Constant() {
			f := constValue(n.Operand).GetFloat()
			if f != math.Trunc(f) && !n.NoWarn {
				ctx.Warn(n.pos, "Truncation of floating point value %v", f)
			}
			return NewIntConstant(n.pos, n.Target, constValue(n.Operand).GetInt())
		}
		if !n.Explicit {
			if !ctx.OptError(n.pos, "Cannot convert a floating point value to an integer here") {
				return nil
			}
		}
		return n
	default:
		ctx.Error(n.pos, "Cannot convert %s to an integer", t)
		return nil
	}
}

func (n *IntCast) Emit(b *vm.Builder) vm.Reg {
	src := n.Operand.Emit(b)
	if n.Operand.Type().RegClass() == types.RegInt {
		// Register reinterpretation only.
		return src
	}
	src = materialize(b, src)
	src.Free(b)
	out := b.Temp(types.RegInt, 1)
	sel := vm.CastF2I
	if n.Target.Unsigned {
		sel = vm.CastF2U
	}
	b.Emit(vm.OpCast, out.Num, src.Num, sel)
	return out
}

// FloatCast converts integers to float64.
type FloatCast struct {
	base
	Operand Node
}

func NewFloatCast(operand Node) *FloatCast {
	n := &FloatCast{base: newBase(operand.Position()), Operand: operand}
	n.valueType = types.TypeFloat64
	return n
}

func (n *FloatCast) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	switch {
	case t.IsFloat():
		return n.Operand
	case t.IsInteger():
		if n.Operand.Constant() {
			return NewFloatConstant(n.pos, constValue(n.Operand).GetFloat())
		}
		return n
	default:
		ctx.Error(n.pos, "Cannot convert %s to a float", t)
		return nil
	}
}

func (n *FloatCast) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	src.Free(b)
	out := b.Temp(types.RegFloat, 1)
	sel := vm.CastI2F
	if n.Operand.Type().Unsigned {
		sel = vm.CastU2F
	}
	b.Emit(vm.OpCast, out.Num, src.Num, sel)
	return out
}

// NameCast converts strings to interned names.
type NameCast struct {
	base
	Operand Node
}

func NewNameCast(operand Node) *NameCast {
	n := &NameCast{base: newBase(operand.Position()), Operand: operand}
	n.valueType = types.TypeName
	return n
}

func (n *NameCast) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	switch {
	case t == types.TypeName:
		return n.Operand
	case t == types.TypeString:
		if n.Operand.Constant() {
			return NewNameConstant(n.pos, types.InternName(constValue(n.Operand).GetString()))
		}
		return n
	default:
		ctx.Error(n.pos, "Cannot convert %s to a name", t)
		return nil
	}
}

func (n *NameCast) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	src.Free(b)
	out := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpCast, out.Num, src.Num, vm.CastS2N)
	return out
}

// StringCast renders names, numbers, vectors, sounds, colors and
// pointers as strings.
type StringCast struct {
	base
	Operand Node
}

func NewStringCast(operand Node) *StringCast {
	n := &StringCast{base: newBase(operand.Position()), Operand: operand}
	n.valueType = types.TypeString
	return n
}

func (n *StringCast) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	if t == types.TypeString {
		return n.Operand
	}
	if stringCastSelector(t) < 0 {
		ctx.Error(n.pos, "Cannot convert %s to a string", t)
		return nil
	}
	if n.Operand.Constant() {
		v := constValue(n.Operand)
		switch {
		case t == types.TypeName:
			return NewStringConstant(n.pos, v.GetString())
		case t.IsFloat():
			return NewStringConstant(n.pos, strconv.FormatFloat(v.GetFloat(), 'g', -1, 64))
		case t == types.TypeUInt32:
			return NewStringConstant(n.pos, strconv.FormatUint(uint64(v.GetUInt()), 10))
		case t.Kind == types.KindInt || t.Kind == types.KindBool:
			return NewStringConstant(n.pos, strconv.Itoa(v.GetInt()))
		}
		// Sounds, colors and pointers need host tables to render.
	}
	return n
}

// stringCastSelector picks the OpCast selector rendering t as a string,
// or -1 when no conversion exists.
func stringCastSelector(t *types.Type) int {
	switch t.Kind {
	case types.KindName:
		return vm.CastN2S
	case types.KindInt, types.KindBool:
		if t.Unsigned {
			return vm.CastU2S
		}
		return vm.CastI2S
	case types.KindFloat:
		return vm.CastF2S
	case types.KindVector2:
		return vm.CastV22S
	case types.KindVector3:
		return vm.CastV32S
	case types.KindSound:
		return vm.CastSo2S
	case types.KindColor:
		return vm.CastCo2S
	case types.KindSpriteID:
		return vm.CastSID2S
	case types.KindTextureID:
		return vm.CastTID2S
	case types.KindPointer, types.KindClassPtr:
		return vm.CastP2S
	default:
		return -1
	}
}

func (n *StringCast) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	src.Free(b)
	out := b.Temp(types.RegString, 1)
	b.Emit(vm.OpCast, out.Num, src.Num, stringCastSelector(n.Operand.Type()))
	return out
}

// SoundCast reinterprets integers as sound ids and converts strings
// through the host's sound table at runtime.
type SoundCast struct {
	base
	Operand Node
}

func NewSoundCast(operand Node) *SoundCast {
	n := &SoundCast{base: newBase(operand.Position()), Operand: operand}
	n.valueType = types.TypeSound
	return n
}

func (n *SoundCast) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	switch {
	case t == types.TypeSound:
		return n.Operand
	case t.IsInteger():
		if n.Operand.Constant() {
			return NewIntConstant(n.pos, types.TypeSound, constValue(n.Operand).GetInt())
		}
		return n
	case t == types.TypeString, t == types.TypeName:
		// Needs the host sound table; always a runtime conversion.
		return n
	default:
		ctx.Error(n.pos, "Cannot convert %s to a sound", t)
		return nil
	}
}

func (n *SoundCast) Emit(b *vm.Builder) vm.Reg {
	src := n.Operand.Emit(b)
	t := n.Operand.Type()
	if t.IsInteger() {
		return src
	}
	if t == types.TypeName {
		src = materialize(b, src)
		src.Free(b)
		tmp := b.Temp(types.RegString, 1)
		b.Emit(vm.OpCast, tmp.Num, src.Num, vm.CastN2S)
		src = tmp
	}
	src = materialize(b, src)
	src.Free(b)
	out := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpCast, out.Num, src.Num, vm.CastS2So)
	return out
}

// ColorCast reinterprets integers as colors and converts strings
// through the host's color table at runtime.
type ColorCast struct {
	base
	Operand Node
}

func NewColorCast(operand Node) *ColorCast {
	n := &ColorCast{base: newBase(operand.Position()), Operand: operand}
	n.valueType = types.TypeColor
	return n
}

func (n *ColorCast) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	switch {
	case t == types.TypeColor:
		return n.Operand
	case t.IsInteger():
		if n.Operand.Constant() {
			return NewIntConstant(n.pos, types.TypeColor, constValue(n.Operand).GetInt())
		}
		return n
	case t == types.TypeString:
		return n
	default:
		ctx.Error(n.pos, "Cannot convert %s to a color", t)
		return nil
	}
}

func (n *ColorCast) Emit(b *vm.Builder) vm.Reg {
	src := n.Operand.Emit(b)
	if n.Operand.Type().IsInteger() {
		return src
	}
	src = materialize(b, src)
	src.Free(b)
	out := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpCast, out.Num, src.Num, vm.CastS2Co)
	return out
}

// TypeCast is the generic explicit cast: it delegates to the specific
// conversion node for the target type during resolution and never
// survives into emission.
type TypeCast struct {
	base
	Operand Node
	Target  *types.Type
}

func NewTypeCast(operand Node, target *types.Type) *TypeCast {
	n := &TypeCast{base: newBase(operand.Position()), Operand: operand, Target: target}
	n.valueType = target
	return n
}

func (n *TypeCast) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	if n.Operand.Type() == n.Target {
		return n.Operand
	}
	var repl Node
	switch n.Target.Kind {
	case types.KindBool:
		repl = NewBoolCast(n.Operand)
	case types.KindInt:
		repl = NewIntCast(n.Operand, n.Target, true)
	case types.KindFloat:
		repl = NewFloatCast(n.Operand)
	case types.KindName:
		repl = NewNameCast(n.Operand)
	case types.KindString:
		repl = NewStringCast(n.Operand)
	case types.KindSound:
		repl = NewSoundCast(n.Operand)
	case types.KindColor:
		repl = NewColorCast(n.Operand)
	case types.KindStateLabel:
		if n.Operand.Type().Kind == types.KindString && n.Operand.Constant() {
			return stateLabelFromText(ctx, n.pos, constValue(n.Operand).GetString())
		}
		repl = NewStateIndexCast(n.Operand)
	case types.KindClassPtr:
		repl = NewClassTypeCast(n.Operand, n.Target)
	case types.KindPointer:
		if types.AreCompatiblePointerTypes(n.Target, n.Operand.Type(), false) {
			n.valueType = n.Target
			return n // register reinterpretation
		}
		ctx.Error(n.pos, "Cannot convert %s to %s", n.Operand.Type(), n.Target)
		return nil
	default:
		ctx.Error(n.pos, "Cannot convert %s to %s", n.Operand.Type(), n.Target)
		return nil
	}
	return repl.Resolve(ctx)
}

func (n *TypeCast) Emit(b *vm.Builder) vm.Reg {
	// Only the pointer-reinterpretation case reaches emission.
	return n.Operand.Emit(b)
}

// ClassTypeCast converts a name, string or class pointer to a
// restricted class<X> value. Failed runtime lookups produce null
// instead of aborting.
type ClassTypeCast struct {
	base
	Operand Node
	Target  *types.Type // class<X> descriptor

	// castFn is the runtime lookup/downcast helper, captured during
	// resolution so emission needs no context.
	castFn *sym.Function
}

func NewClassTypeCast(operand Node, target *types.Type) *ClassTypeCast {
	n := &ClassTypeCast{base: newBase(operand.Position()), Operand: operand, Target: target}
	n.valueType = target
	return n
}

func (n *ClassTypeCast) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	if failed(n.Operand) {
		return nil
	}
	t := n.Operand.Type()
	switch {
	case t == types.TypeNullPtr:
		return NewConstant(n.pos, types.TypedPtr(n.Target, nil))
	case t.Kind == types.KindClassPtr:
		if t.Elem.IsDescendantOf(n.Target.Elem) {
			n.valueType = n.Target
			if n.Operand.Constant() {
				return NewConstant(n.pos, types.TypedPtr(n.Target, constValue(n.Operand).Ptr))
			}
			return n // wider restriction, register reinterpretation
		}
		if n.Target.Elem.IsDescendantOf(t.Elem) {
			n.castFn = ctx.Builtins.Find(builtins.BuiltinClassCast, nil)
			if n.castFn == nil {
				ctx.Error(n.pos, "No class cast helper registered")
				return nil
			}
			return n // runtime downcast, null on failure
		}
		ctx.Error(n.pos, "Cannot convert %s to %s: unrelated classes", t, n.Target)
		return nil
	case t == types.TypeName, t == types.TypeString:
		if n.Operand.Constant() {
			text := constValue(n.Operand).GetString()
			if text == "" || text == "None" {
				return NewConstant(n.pos, types.TypedPtr(n.Target, nil))
			}
			cls := findClass(ctx, text)
			if cls == nil {
				ctx.Warn(n.pos, "Unknown class name '%s'", text)
				return NewConstant(n.pos, types.TypedPtr(n.Target, nil))
			}
			if !cls.IsDescendantOf(n.Target.Elem) {
				ctx.Error(n.pos, "Class %s is not compatible with restriction %s", text, n.Target.Elem)
				return nil
			}
			return NewConstant(n.pos, types.TypedPtr(n.Target, cls))
		}
		if t == types.TypeName {
			n.Operand = NewStringCast(n.Operand)
			if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
				return nil
			}
		}
		n.castFn = ctx.Builtins.Find(builtins.BuiltinNameToClass, nil)
		if n.castFn == nil {
			ctx.Error(n.pos, "No class lookup helper registered")
			return nil
		}
		return n
	default:
		ctx.Error(n.pos, "Cannot convert %s to a class type", t)
		return nil
	}
}

// coerce applies the implicit conversion of n to target, returning the
// resolved replacement node or nil after a diagnostic. The conversions
// not listed here require a source-level cast.
func coerce(ctx *Context, n Node, target *types.Type) Node {
	t := n.Type()
	if t == target {
		return n
	}
	var repl Node
	switch {
	case target == types.TypeBool:
		repl = NewBoolCast(n)
	case target.Kind == types.KindInt && t.IsNumeric():
		repl = NewIntCast(n, target, false)
	case target.Kind == types.KindFloat && t.IsNumeric():
		repl = NewFloatCast(n)
	case target == types.TypeName && t == types.TypeString:
		repl = NewNameCast(n)
	case target == types.TypeString && t == types.TypeName:
		repl = NewStringCast(n)
	case target == types.TypeSound && (t.IsInteger() || t == types.TypeString || t == types.TypeName):
		repl = NewSoundCast(n)
	case target == types.TypeColor && (t.IsInteger() || t == types.TypeString):
		repl = NewColorCast(n)
	case target == types.TypeStateLabel && t == types.TypeString && n.Constant():
		return stateLabelFromText(ctx, n.Position(), constValue(n).GetString())
	case target == types.TypeStateLabel && t.IsNumeric():
		repl = NewStateIndexCast(n)
	case target.Kind == types.KindClassPtr && (t == types.TypeName || t == types.TypeString || t.IsPointer()):
		repl = NewClassTypeCast(n, target)
	case target.IsPointer() && t.IsPointer():
		if !types.AreCompatiblePointerTypes(target, t, false) {
			ctx.Error(n.Position(), "Cannot convert %s to %s", t, target)
			return nil
		}
		return n // register reinterpretation
	default:
		ctx.Error(n.Position(), "Cannot convert %s to %s", t, target)
		return nil
	}
	return repl.Resolve(ctx)
}

func findClass(ctx *Context, name string) *types.Type {
	if ctx.Classes == nil {
		return nil
	}
	return ctx.Classes.FindClass(name)
}

func (n *ClassTypeCast) Emit(b *vm.Builder) vm.Reg {
	src := n.Operand.Emit(b)
	if n.castFn == nil {
		// Wider restriction: register reinterpretation only.
		return src
	}
	restr := vm.KonstReg(b.AddrConst(n.Target.Elem, vm.TagClass), types.RegPointer)
	return emitNativeCall(b, n.castFn, []vm.Reg{src, restr})
}
