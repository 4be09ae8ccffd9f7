package compiler

import (
	"strings"

	"spark/builtins"
	"spark/sym"
	"spark/types"
	"spark/vm"
)

// FunctionCall is an unresolved free call: name(args...). Resolution
// dispatches it, in order, to a method of the enclosing class, a
// built-in intrinsic, a cast written in call syntax, a line special, a
// dynamic class cast, or a registered native builtin.
type FunctionCall struct {
	base
	Name     string
	Args     []Node
	ArgNames []string // parallel to Args; "" = positional
}

func NewFunctionCall(pos Pos, name string, args []Node, argNames []string) *FunctionCall {
	return &FunctionCall{base: newBase(pos), Name: name, Args: args, ArgNames: argNames}
}

func (n *FunctionCall) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	lower := strings.ToLower(n.Name)

	if ctx.Class != nil && ctx.Methods != nil {
		if fn := ctx.Methods.FindMethod(ctx.Class, n.Name); fn != nil {
			call := NewVMFunctionCall(n.pos, NewSelf(n.pos), fn, n.Args, n.ArgNames)
			return call.Resolve(ctx)
		}
	}

	if repl, handled := n.resolveIntrinsic(ctx, lower); handled {
		if repl == nil {
			return nil
		}
		return repl.Resolve(ctx)
	}

	if t := builtinTypeByName(lower); t != nil {
		if len(n.Args) != 1 {
			ctx.Error(n.pos, "Cast to %s requires exactly one argument", t)
			return nil
		}
		return NewTypeCast(n.Args[0], t).Resolve(ctx)
	}

	if ctx.Specials != nil {
		if sp := ctx.Specials.FindSpecial(n.Name); sp != nil {
			return NewLineSpecialCall(n.pos, sp, n.Args).Resolve(ctx)
		}
	}

	if cls := findClass(ctx, n.Name); cls != nil {
		if len(n.Args) != 1 {
			ctx.Error(n.pos, "Cast to %s requires exactly one argument", n.Name)
			return nil
		}
		return NewDynamicCast(n.Args[0], cls).Resolve(ctx)
	}

	if ctx.Builtins != nil {
		if fn := ctx.Builtins.Find(n.Name, nil); fn != nil {
			return NewVMFunctionCall(n.pos, nil, fn, n.Args, n.ArgNames).Resolve(ctx)
		}
	}

	ctx.Error(n.pos, "Call to unknown function '%s'", n.Name)
	return nil
}

// resolveIntrinsic maps the built-in math, random and reflection
// function names to their dedicated nodes. handled reports whether the
// name was an intrinsic at all; a handled nil node means a diagnostic
// was already reported.
func (n *FunctionCall) resolveIntrinsic(ctx *Context, lower string) (node Node, handled bool) {
	if sel, ok := flopSelectors[lower]; ok {
		if len(n.Args) != 1 {
			ctx.Error(n.pos, "%s requires exactly one argument", lower)
			return nil, true
		}
		return NewFlopCall(n.pos, sel, n.Args[0]), true
	}
	switch lower {
	case "min", "max":
		return NewMinMax(n.pos, n.Args, lower == "max"), true
	case "clamp":
		if len(n.Args) != 3 {
			ctx.Error(n.pos, "clamp requires three arguments")
			return nil, true
		}
		inner := NewMinMax(n.pos, []Node{n.Args[0], n.Args[1]}, true)
		return NewMinMax(n.pos, []Node{inner, n.Args[2]}, false), true
	case "abs":
		if len(n.Args) != 1 {
			ctx.Error(n.pos, "abs requires exactly one argument")
			return nil, true
		}
		return NewAbs(n.pos, n.Args[0]), true
	case "atan2", "vectorangle":
		if len(n.Args) != 2 {
			ctx.Error(n.pos, "%s requires two arguments", lower)
			return nil, true
		}
		y, x := n.Args[0], n.Args[1]
		if lower == "vectorangle" {
			y, x = x, y
		}
		return NewATan2(n.pos, y, x), true
	case "random":
		return NewRandom(n.pos, n.Args, false), true
	case "frandom":
		return NewRandom(n.pos, n.Args, true), true
	case "random2":
		return NewRandom2(n.pos, n.Args), true
	case "randompick":
		return NewRandomPick(n.pos, n.Args, false), true
	case "frandompick":
		return NewRandomPick(n.pos, n.Args, true), true
	case "getclass":
		if len(n.Args) != 1 {
			ctx.Error(n.pos, "getclass requires exactly one argument")
			return nil, true
		}
		return NewGetClass(n.Args[0]), true
	case "getdefaultbytype":
		if len(n.Args) != 1 {
			ctx.Error(n.pos, "getdefaultbytype requires exactly one argument")
			return nil, true
		}
		return NewGetDefaultByType(n.Args[0]), true
	}
	return nil, false
}

// builtinTypeByName maps the type names usable in call-syntax casts.
func builtinTypeByName(lower string) *types.Type {
	switch lower {
	case "int":
		return types.TypeSInt32
	case "uint":
		return types.TypeUInt32
	case "bool":
		return types.TypeBool
	case "float", "double":
		return types.TypeFloat64
	case "name":
		return types.TypeName
	case "string":
		return types.TypeString
	case "sound":
		return types.TypeSound
	case "color":
		return types.TypeColor
	case "statelabel":
		return types.TypeStateLabel
	default:
		return nil
	}
}

func (n *FunctionCall) Emit(b *vm.Builder) vm.Reg {
	panic("unresolved call survived resolution")
}

// MemberFunctionCall is obj.Method(args...). Vectors and texture ids
// have synthetic methods; everything else resolves through the method
// source.
type MemberFunctionCall struct {
	base
	Object   Node
	Method   string
	Args     []Node
	ArgNames []string
}

func NewMemberFunctionCall(obj Node, method string, args []Node, argNames []string) *MemberFunctionCall {
	return &MemberFunctionCall{base: newBase(obj.Position()), Object: obj, Method: method, Args: args, ArgNames: argNames}
}

func (n *MemberFunctionCall) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Object = n.Object.Resolve(ctx); n.Object == nil {
		return nil
	}
	if failed(n.Object) {
		return nil
	}
	t := n.Object.Type()
	lower := strings.ToLower(n.Method)

	if t.IsVector() {
		switch lower {
		case "length":
			return NewVectorBuiltin(n.Object, false).Resolve(ctx)
		case "unit":
			return NewVectorBuiltin(n.Object, true).Resolve(ctx)
		}
		ctx.Error(n.pos, "Vectors have no method %s", n.Method)
		return nil
	}
	if t == types.TypeTextureID || t == types.TypeSpriteID {
		id := NewIntCast(n.Object, types.TypeSInt32, true)
		zero := NewIntConstant(n.pos, types.TypeSInt32, 0)
		switch lower {
		case "isvalid":
			return NewCompareRel(n.pos, id, zero, ">").Resolve(ctx)
		case "isnull":
			return NewCompareEq(n.pos, id, zero, "==").Resolve(ctx)
		}
		ctx.Error(n.pos, "Texture ids have no method %s", n.Method)
		return nil
	}

	if t.Kind != types.KindPointer || t.Elem == nil || t.Elem.Kind != types.KindClass {
		ctx.Error(n.pos, "Cannot call a method on a %s", t)
		return nil
	}
	if ctx.Methods == nil {
		ctx.Error(n.pos, "Unknown method %s.%s", t.Elem, n.Method)
		return nil
	}
	fn := ctx.Methods.FindMethod(t.Elem, n.Method)
	if fn == nil {
		ctx.Error(n.pos, "Unknown method %s.%s", t.Elem, n.Method)
		return nil
	}
	return NewVMFunctionCall(n.pos, n.Object, fn, n.Args, n.ArgNames).Resolve(ctx)
}

func (n *MemberFunctionCall) Emit(b *vm.Builder) vm.Reg {
	panic("unresolved method call survived resolution")
}

// VMFunctionCall is a resolved call to a script or native function:
// implicit self, named-argument reordering, optional-parameter
// defaults, out parameters and the trailing variadic pack.
type VMFunctionCall struct {
	base
	Self     Node // nil for static calls
	Function *sym.Function
	Args     []Node
	ArgNames []string

	outArgs  []bool // parallel to Args after reordering
	tailCall bool
}

func NewVMFunctionCall(pos Pos, self Node, fn *sym.Function, args []Node, argNames []string) *VMFunctionCall {
	return &VMFunctionCall{base: newBase(pos), Self: self, Function: fn, Args: args, ArgNames: argNames}
}

func (n *VMFunctionCall) ReturnProto() *sym.Proto { return n.Function.Proto }

// MarkTailCall lets a directly returned call emit as a VM tail call.
func (n *VMFunctionCall) MarkTailCall() { n.tailCall = true }

func (n *VMFunctionCall) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	fn := n.Function
	if !fn.CallableFrom(ctx.Func) {
		ctx.Error(n.pos, "Cannot call %s from this context", fn.Name)
		return nil
	}
	if n.Self != nil {
		if n.Self = n.Self.Resolve(ctx); n.Self == nil {
			return nil
		}
		st := n.Self.Type()
		if fn.Class != nil && (st.Kind != types.KindPointer || st.Elem == nil || !st.Elem.IsDescendantOf(fn.Class)) {
			ctx.Error(n.pos, "%s is not a method of %s", fn.Name, st)
			return nil
		}
	} else if fn.Class != nil {
		ctx.Error(n.pos, "Method %s needs an object", fn.Name)
		return nil
	}

	if !n.reorderNamedArgs(ctx) {
		return nil
	}

	declared := len(fn.Proto.ArgTypes)
	if len(n.Args) > declared && !fn.HasVariadic() {
		ctx.Error(n.pos, "Too many arguments in call to %s", fn.Name)
		return nil
	}

	for i := range n.Args {
		arg := n.Args[i]
		if arg == nil {
			// Hole left by named-argument reordering: the default
			// value fills it, guarded below.
			continue
		}
		if arg = arg.Resolve(ctx); arg == nil {
			return nil
		}
		if failed(arg) {
			return nil
		}
		if i < declared {
			if i < len(fn.ArgFlags) && fn.ArgFlags[i]&sym.ArgOut != 0 {
				if arg.Type() != fn.Proto.ArgTypes[i] {
					ctx.Error(n.pos, "Out argument %d of %s must be exactly %s", i+1, fn.Name, fn.Proto.ArgTypes[i])
					return nil
				}
				ok, writable := arg.RequestAddress(ctx)
				if !ok || !writable {
					ctx.Error(n.pos, "Out argument %d of %s must be a modifiable value", i+1, fn.Name)
					return nil
				}
				n.outArgs = ensureLen(n.outArgs, len(n.Args))
				n.outArgs[i] = true
			} else if arg = coerce(ctx, arg, fn.Proto.ArgTypes[i]); arg == nil {
				return nil
			}
		} else if declared > 0 {
			// The variadic pack shares the last declared parameter's
			// type.
			if arg = coerce(ctx, arg, fn.Proto.ArgTypes[declared-1]); arg == nil {
				return nil
			}
		}
		n.Args[i] = arg
	}

	// Fill remaining holes and missing trailing parameters from the
	// declared defaults.
	for i := 0; i < declared; i++ {
		if i < len(n.Args) && n.Args[i] != nil {
			continue
		}
		if i >= len(fn.ArgFlags) || fn.ArgFlags[i]&(sym.ArgOptional|sym.ArgVariadic) == 0 {
			ctx.Error(n.pos, "Missing required argument %d in call to %s", i+1, fn.Name)
			return nil
		}
		if fn.ArgFlags[i]&sym.ArgVariadic != 0 {
			break
		}
		def := NewConstant(n.pos, fn.Defaults[i])
		if i < len(n.Args) {
			n.Args[i] = def
		} else {
			n.Args = append(n.Args, def)
		}
	}

	if len(fn.Proto.ReturnTypes) > 0 {
		n.valueType = fn.Proto.ReturnTypes[0]
	} else {
		n.valueType = types.TypeVoid
	}
	return n
}

// reorderNamedArgs moves named arguments to their declared positions,
// leaving nil holes for the defaults to fill.
func (n *VMFunctionCall) reorderNamedArgs(ctx *Context) bool {
	named := false
	for i, name := range n.ArgNames {
		if name == "" {
			if named {
				ctx.Error(n.pos, "Positional argument follows a named argument")
				return false
			}
			continue
		}
		named = true
		pos := -1
		for j, declName := range n.Function.ArgNames {
			if declName == name {
				pos = j
				break
			}
		}
		if pos < 0 {
			ctx.Error(n.pos, "%s has no parameter named '%s'", n.Function.Name, name)
			return false
		}
		if pos < i {
			ctx.Error(n.pos, "Named argument '%s' duplicates an earlier argument", name)
			return false
		}
		if pos != i {
			for len(n.Args) <= pos {
				n.Args = append(n.Args, nil)
				n.ArgNames = append(n.ArgNames, "")
			}
			if n.Args[pos] != nil {
				ctx.Error(n.pos, "Argument '%s' is already set", name)
				return false
			}
			n.Args[pos], n.Args[i] = n.Args[i], nil
			n.ArgNames[pos], n.ArgNames[i] = name, ""
		}
	}
	return true
}

func ensureLen(s []bool, n int) []bool {
	for len(s) < n {
		s = append(s, false)
	}
	return s
}

func (n *VMFunctionCall) Emit(b *vm.Builder) vm.Reg {
	argCount := 0
	var toFree []vm.Reg

	param := func(r vm.Reg) {
		b.Emit(vm.OpParam, r.Encode(), r.Num, 0)
		toFree = append(toFree, r)
		argCount++
	}

	if n.Self != nil {
		param(materialize(b, n.Self.Emit(b)))
		if n.Function.Flags&sym.FuncAction != 0 {
			// Action functions take the state owner and state info
			// after self; a direct call passes nulls.
			null := b.AddrConst(nil, vm.TagGeneric)
			b.Emit(vm.OpParam, vm.RegEncPointer|vm.RegEncKonst, null, 0)
			b.Emit(vm.OpParam, vm.RegEncPointer|vm.RegEncKonst, null, 0)
			argCount += 2
		}
	}

	for i, arg := range n.Args {
		if i < len(n.outArgs) && n.outArgs[i] {
			loc := arg.Emit(b)
			// The location handle wraps the address register.
			param(vm.Reg{Num: loc.Num, Class: types.RegPointer, Width: 1, Kind: loc.Kind})
			continue
		}
		r := arg.Emit(b)
		if arg.Constant() && r.Class == types.RegInt {
			v := constValue(arg).GetInt()
			if v >= -(1<<23) && v < 1<<23 {
				b.Emit(vm.OpParamI, v, 0, 0)
				argCount++
				continue
			}
		}
		param(r)
	}

	callee := b.AddrConst(n.Function, vm.TagFunction)
	if n.tailCall {
		for _, r := range toFree {
			r.Free(b)
		}
		b.Emit(vm.OpTailK, callee, argCount, 0)
		return vm.Reg{Final: true}
	}

	results := 0
	if n.needResult && n.valueType != types.TypeVoid {
		results = 1
	}
	b.Emit(vm.OpCallK, callee, argCount, results)
	for _, r := range toFree {
		r.Free(b)
	}
	if results == 0 {
		return vm.Reg{}
	}
	out := b.Temp(n.valueType.RegClass(), n.valueType.RegWidth())
	b.Emit(vm.OpResult, out.Encode(), out.Num, 0)
	return out
}

// LineSpecialCall invokes a numbered action special through the
// dispatch builtin; all its arguments are integers.
type LineSpecialCall struct {
	base
	Special *sym.LineSpecial
	Args    []Node

	dispatch *sym.Function
}

func NewLineSpecialCall(pos Pos, special *sym.LineSpecial, args []Node) *LineSpecialCall {
	n := &LineSpecialCall{base: newBase(pos), Special: special, Args: args}
	n.valueType = types.TypeSInt32
	return n
}

func (n *LineSpecialCall) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if len(n.Args) < n.Special.MinArgs || len(n.Args) > n.Special.MaxArgs {
		ctx.Error(n.pos, "%s expects %d to %d arguments", n.Special.Name, n.Special.MinArgs, n.Special.MaxArgs)
		return nil
	}
	for i := range n.Args {
		arg := n.Args[i].Resolve(ctx)
		if arg == nil {
			return nil
		}
		if arg = NewIntCast(arg, types.TypeSInt32, false).Resolve(ctx); arg == nil {
			return nil
		}
		n.Args[i] = arg
	}
	n.dispatch = ctx.Builtins.Find(builtins.BuiltinCallLineSpecial, nil)
	if n.dispatch == nil {
		ctx.Error(n.pos, "No line special dispatcher registered")
		return nil
	}
	return n
}

func (n *LineSpecialCall) Emit(b *vm.Builder) vm.Reg {
	b.Emit(vm.OpParamI, n.Special.Number, 0, 0)
	null := b.AddrConst(nil, vm.TagGeneric)
	b.Emit(vm.OpParam, vm.RegEncPointer|vm.RegEncKonst, null, 0)
	var toFree []vm.Reg
	for _, arg := range n.Args {
		r := arg.Emit(b)
		b.Emit(vm.OpParam, r.Encode(), r.Num, 0)
		toFree = append(toFree, r)
	}
	callee := b.AddrConst(n.dispatch, vm.TagFunction)
	b.Emit(vm.OpCallK, callee, 2+len(n.Args), 1)
	for _, r := range toFree {
		r.Free(b)
	}
	out := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpResult, out.Encode(), out.Num, 0)
	return out
}

// DynamicCast narrows an instance pointer to a class written in call
// syntax; a failed runtime check yields null instead of aborting.
type DynamicCast struct {
	base
	Operand Node
	Class   *types.Type

	check *sym.Function
}

func NewDynamicCast(operand Node, class *types.Type) *DynamicCast {
	return &DynamicCast{base: newBase(operand.Position()), Operand: operand, Class: class}
}

func (n *DynamicCast) Resolve(ctx *Context) Node {
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
	if t.Kind != types.KindPointer || t.Elem == nil || t.Elem.Kind != types.KindClass {
		ctx.Error(n.pos, "Cannot cast a %s to a class instance", t)
		return nil
	}
	n.valueType = types.NewPointer(n.Class)
	if t.Elem.IsDescendantOf(n.Class) {
		// Upcast: always succeeds, register reinterpretation.
		return n
	}
	if !n.Class.IsDescendantOf(t.Elem) {
		ctx.Error(n.pos, "Cannot cast %s to unrelated class %s", t.Elem, n.Class)
		return nil
	}
	n.check = ctx.Builtins.Find(builtins.BuiltinTypeCheck, nil)
	if n.check == nil {
		ctx.Error(n.pos, "No type check helper registered")
		return nil
	}
	return n
}

func (n *DynamicCast) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	if n.check == nil {
		return src
	}
	cls := b.AddrConst(n.Class, vm.TagClass)
	b.Emit(vm.OpParam, src.Encode(), src.Num, 0)
	b.Emit(vm.OpParam, vm.RegEncPointer|vm.RegEncKonst, cls, 0)
	callee := b.AddrConst(n.check, vm.TagFunction)
	b.Emit(vm.OpCallK, callee, 2, 1)
	res := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpResult, res.Encode(), res.Num, 0)
	res.Free(b)
	b.Emit(vm.OpTest, res.Num, 1, 0)
	okSite := b.EmitJump()
	b.Emit(vm.OpLKP, src.Num, b.AddrConst(nil, vm.TagGeneric), 0)
	b.BackpatchToHere(okSite)
	return src
}

// GetClass reads the class descriptor of an object instance; the
// descriptor pointer is the first word of every instance.
type GetClass struct {
	base
	Operand Node
}

func NewGetClass(operand Node) *GetClass {
	return &GetClass{base: newBase(operand.Position()), Operand: operand}
}

func (n *GetClass) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	t := n.Operand.Type()
	if t.Kind != types.KindPointer || t.Elem == nil || t.Elem.Kind != types.KindClass {
		ctx.Error(n.pos, "getclass requires an object, got a %s", t)
		return nil
	}
	n.valueType = types.NewClassPtr(t.Elem)
	return n
}

func (n *GetClass) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	src.Free(b)
	out := b.Temp(types.RegPointer, 1)
	b.Emit(vm.OpLO, out.Num, src.Num, b.IntConst(0))
	return out
}

// GetDefaultByType fetches the defaults record of a class value.
type GetDefaultByType struct {
	base
	Operand Node

	fetch *sym.Function
}

func NewGetDefaultByType(operand Node) *GetDefaultByType {
	return &GetDefaultByType{base: newBase(operand.Position()), Operand: operand}
}

func (n *GetDefaultByType) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = n.Operand.Resolve(ctx); n.Operand == nil {
		return nil
	}
	t := n.Operand.Type()
	if t.Kind != types.KindClassPtr {
		ctx.Error(n.pos, "getdefaultbytype requires a class value, got a %s", t)
		return nil
	}
	n.valueType = types.NewPointer(t.Elem)
	n.fetch = ctx.Builtins.Find(builtins.BuiltinGetDefault, nil)
	if n.fetch == nil {
		ctx.Error(n.pos, "No defaults helper registered")
		return nil
	}
	return n
}

func (n *GetDefaultByType) Emit(b *vm.Builder) vm.Reg {
	src := n.Operand.Emit(b)
	return emitNativeCall(b, n.fetch, []vm.Reg{src})
}
