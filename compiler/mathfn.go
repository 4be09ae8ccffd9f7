package compiler

import (
	"math"

	"spark/types"
	"spark/vm"
)

// flopSelectors maps the single-argument float intrinsics to their
// OpFlop selector.
var flopSelectors = map[string]int{
	"exp":     vm.FlopExp,
	"log":     vm.FlopLog,
	"log10":   vm.FlopLog10,
	"sqrt":    vm.FlopSqrt,
	"ceil":    vm.FlopCeil,
	"floor":   vm.FlopFloor,
	"round":   vm.FlopRound,
	"acos":    vm.FlopACosDeg,
	"asin":    vm.FlopASinDeg,
	"atan":    vm.FlopATanDeg,
	"cos":     vm.FlopCosDeg,
	"sin":     vm.FlopSinDeg,
	"tan":     vm.FlopTanDeg,
	"acosrad": vm.FlopACos,
	"asinrad": vm.FlopASin,
	"atanrad": vm.FlopATan,
	"cosrad":  vm.FlopCos,
	"sinrad":  vm.FlopSin,
	"tanrad":  vm.FlopTan,
}

const degToRad = math.Pi / 180

// flopFuncs are the fold implementations, indexed by selector.
var flopFuncs = map[int]func(float64) float64{
	vm.FlopExp:     math.Exp,
	vm.FlopLog:     math.Log,
	vm.FlopLog10:   math.Log10,
	vm.FlopSqrt:    math.Sqrt,
	vm.FlopCeil:    math.Ceil,
	vm.FlopFloor:   math.Floor,
	vm.FlopRound:   math.Round,
	vm.FlopACos:    math.Acos,
	vm.FlopASin:    math.Asin,
	vm.FlopATan:    math.Atan,
	vm.FlopCos:     math.Cos,
	vm.FlopSin:     math.Sin,
	vm.FlopTan:     math.Tan,
	vm.FlopACosDeg: func(v float64) float64 { return math.Acos(v) / degToRad },
	vm.FlopASinDeg: func(v float64) float64 { return math.Asin(v) / degToRad },
	vm.FlopATanDeg: func(v float64) float64 { return math.Atan(v) / degToRad },
	vm.FlopCosDeg:  func(v float64) float64 { return math.Cos(v * degToRad) },
	vm.FlopSinDeg:  func(v float64) float64 { return math.Sin(v * degToRad) },
	vm.FlopTanDeg:  func(v float64) float64 { return math.Tan(v * degToRad) },
	vm.FlopFabs:    math.Abs,
}

// FlopCall is a single-argument float intrinsic.
type FlopCall struct {
	base
	Selector int
	Operand  Node
}

func NewFlopCall(pos Pos, selector int, operand Node) *FlopCall {
	n := &FlopCall{base: newBase(pos), Selector: selector, Operand: operand}
	n.valueType = types.TypeFloat64
	return n
}

func (n *FlopCall) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Operand = NewFloatCast(n.Operand).Resolve(ctx); n.Operand == nil {
		return nil
	}
	if n.Operand.Constant() {
		return NewFloatConstant(n.pos, flopFuncs[n.Selector](constValue(n.Operand).GetFloat()))
	}
	return n
}

func (n *FlopCall) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	src.Free(b)
	out := b.Temp(types.RegFloat, 1)
	b.Emit(vm.OpFlop, out.Num, src.Num, n.Selector)
	return out
}

// MinMax is the n-ary min()/max() intrinsic over a common promoted
// type.
type MinMax struct {
	base
	Args []Node
	Max  bool
}

func NewMinMax(pos Pos, args []Node, max bool) *MinMax {
	return &MinMax{base: newBase(pos), Args: args, Max: max}
}

func (n *MinMax) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if len(n.Args) < 2 {
		ctx.Error(n.pos, "Too few arguments")
		return nil
	}
	anyFloat := false
	for i := range n.Args {
		arg := n.Args[i].Resolve(ctx)
		if arg == nil {
			return nil
		}
		if failed(arg) {
			return nil
		}
		if !arg.Type().IsNumeric() {
			ctx.Error(n.pos, "Numeric type expected, got a %s", arg.Type())
			return nil
		}
		anyFloat = anyFloat || arg.Type().IsFloat()
		n.Args[i] = arg
	}
	n.valueType = types.TypeSInt32
	if anyFloat {
		n.valueType = types.TypeFloat64
	}
	allConst := true
	for i := range n.Args {
		var arg Node
		if anyFloat {
			arg = NewFloatCast(n.Args[i]).Resolve(ctx)
		} else {
			arg = NewIntCast(n.Args[i], types.TypeSInt32, false).Resolve(ctx)
		}
		if arg == nil {
			return nil
		}
		n.Args[i] = arg
		allConst = allConst && arg.Constant()
	}
	if allConst {
		return n.fold()
	}
	return n
}

func (n *MinMax) fold() Node {
	if n.valueType.IsFloat() {
		best := constValue(n.Args[0]).GetFloat()
		for _, a := range n.Args[1:] {
			v := constValue(a).GetFloat()
			if (n.Max && v > best) || (!n.Max && v < best) {
				best = v
			}
		}
		return NewFloatConstant(n.pos, best)
	}
	best := constValue(n.Args[0]).GetInt()
	for _, a := range n.Args[1:] {
		v := constValue(a).GetInt()
		if (n.Max && v > best) || (!n.Max && v < best) {
			best = v
		}
	}
	return NewIntConstant(n.pos, types.TypeSInt32, best)
}

func (n *MinMax) Emit(b *vm.Builder) vm.Reg {
	var rr, rk vm.Opcode
	class := types.RegInt
	switch {
	case n.valueType.IsFloat() && n.Max:
		rr, rk, class = vm.OpMaxFRR, vm.OpMaxFRK, types.RegFloat
	case n.valueType.IsFloat():
		rr, rk, class = vm.OpMinFRR, vm.OpMinFRK, types.RegFloat
	case n.Max:
		rr, rk = vm.OpMaxRR, vm.OpMaxRK
	default:
		rr, rk = vm.OpMinRR, vm.OpMinRK
	}
	acc := n.Args[0].Emit(b)
	for _, arg := range n.Args[1:] {
		r := arg.Emit(b)
		acc = emitBinary(b, rr, rk, 0, acc, r, class)
	}
	return acc
}

// Abs is the absolute-value intrinsic. The integer form uses the
// sign-mask trick so it stays branch free.
type Abs struct {
	base
	Operand Node
}

func NewAbs(pos Pos, operand Node) *Abs {
	return &Abs{base: newBase(pos), Operand: operand}
}

func (n *Abs) Resolve(ctx *Context) Node {
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
	if !t.IsNumeric() {
		ctx.Error(n.pos, "Numeric type expected, got a %s", t)
		return nil
	}
	if t.IsFloat() {
		n.valueType = types.TypeFloat64
		if n.Operand.Constant() {
			return NewFloatConstant(n.pos, math.Abs(constValue(n.Operand).GetFloat()))
		}
		return n
	}
	if n.Operand = NewIntCast(n.Operand, types.TypeSInt32, false).Resolve(ctx); n.Operand == nil {
		return nil
	}
	n.valueType = types.TypeSInt32
	if n.Operand.Constant() {
		v := constValue(n.Operand).GetInt()
		if v < 0 {
			v = wrap32(-v)
		}
		return NewIntConstant(n.pos, types.TypeSInt32, v)
	}
	return n
}

func (n *Abs) Emit(b *vm.Builder) vm.Reg {
	src := materialize(b, n.Operand.Emit(b))
	if n.valueType.IsFloat() {
		src.Free(b)
		out := b.Temp(types.RegFloat, 1)
		b.Emit(vm.OpFlop, out.Num, src.Num, vm.FlopFabs)
		return out
	}
	// The mask register must not alias the source, which stays live
	// until the xor reads it.
	mask := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpSraRI, mask.Num, src.Num, 31)
	src.Free(b)
	out := b.Temp(types.RegInt, 1)
	b.Emit(vm.OpXorRR, out.Num, src.Num, mask.Num)
	b.Emit(vm.OpSubRR, out.Num, out.Num, mask.Num)
	mask.Free(b)
	return out
}

// ATan2 is atan2(y, x) in degrees.
type ATan2 struct {
	base
	Y, X Node
}

func NewATan2(pos Pos, y, x Node) *ATan2 {
	n := &ATan2{base: newBase(pos), Y: y, X: x}
	n.valueType = types.TypeFloat64
	return n
}

func (n *ATan2) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Y = NewFloatCast(n.Y).Resolve(ctx); n.Y == nil {
		return nil
	}
	if n.X = NewFloatCast(n.X).Resolve(ctx); n.X == nil {
		return nil
	}
	if n.Y.Constant() && n.X.Constant() {
		v := math.Atan2(constValue(n.Y).GetFloat(), constValue(n.X).GetFloat()) / degToRad
		return NewFloatConstant(n.pos, v)
	}
	return n
}

func (n *ATan2) Emit(b *vm.Builder) vm.Reg {
	y := materialize(b, n.Y.Emit(b))
	x := materialize(b, n.X.Emit(b))
	y.Free(b)
	x.Free(b)
	out := b.Temp(types.RegFloat, 1)
	b.Emit(vm.OpATan2, out.Num, y.Num, x.Num)
	return out
}
