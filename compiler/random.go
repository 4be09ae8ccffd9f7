package compiler

import (
	"spark/builtins"
	"spark/sym"
	"spark/types"
	"spark/vm"
)

// RNGStream identifies a named random-number stream. Every call naming
// the same stream shares one generator at runtime.
type RNGStream struct {
	Name string
}

const defaultRNGStream = "default"

func rngStreamReg(b *vm.Builder, name string) vm.Reg {
	if name == "" {
		name = defaultRNGStream
	}
	return vm.KonstReg(b.AddrConst(RNGStream{Name: name}, vm.TagRNG), types.RegPointer)
}

// Random is random(min, max) or frandom(min, max). The no-argument int
// form yields the full 0..255 range.
type Random struct {
	base
	Stream string
	Min    Node
	Max    Node
	Float  bool
	fn     *sym.Function
}

func NewRandom(pos Pos, args []Node, float bool) *Random {
	n := &Random{base: newBase(pos), Float: float}
	if len(args) > 0 {
		n.Min = args[0]
	}
	if len(args) > 1 {
		n.Max = args[1]
	}
	if len(args) == 1 || len(args) > 2 {
		n.Min, n.Max = badArgCount, badArgCount
	}
	return n
}

// badArgCount marks a constructor-time arity failure for Resolve to
// report with position context.
var badArgCount = NewNop(Pos{})

func (n *Random) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Min == badArgCount {
		ctx.Error(n.pos, "Random number functions take 0 or 2 parameters")
		return nil
	}
	n.valueType = types.TypeSInt32
	if n.Float {
		n.valueType = types.TypeFloat64
	}
	if n.Min == nil {
		if n.Float {
			ctx.Error(n.pos, "Random number functions take 0 or 2 parameters")
			return nil
		}
		return n
	}
	if n.Float {
		if n.Min = NewFloatCast(n.Min).Resolve(ctx); n.Min == nil {
			return nil
		}
		if n.Max = NewFloatCast(n.Max).Resolve(ctx); n.Max == nil {
			return nil
		}
	} else {
		if n.Min = NewIntCast(n.Min, types.TypeSInt32, false).Resolve(ctx); n.Min == nil {
			return nil
		}
		if n.Max = NewIntCast(n.Max, types.TypeSInt32, false).Resolve(ctx); n.Max == nil {
			return nil
		}
	}
	n.fn = ctx.Builtins.Find(builtins.BuiltinRandom, nil)
	if n.Float {
		n.fn = ctx.Builtins.Find(builtins.BuiltinFRandom, nil)
	}
	return n
}

func (n *Random) Emit(b *vm.Builder) vm.Reg {
	args := []vm.Reg{rngStreamReg(b, n.Stream)}
	if n.Min != nil {
		args = append(args, n.Min.Emit(b), n.Max.Emit(b))
	} else {
		args = append(args,
			vm.KonstReg(b.IntConst(0), types.RegInt),
			vm.KonstReg(b.IntConst(255), types.RegInt))
	}
	return emitNativeCall(b, n.fn, args)
}

// Random2 is random2(mask): a balanced random delta in
// [-mask, mask]. The mask defaults to all bits.
type Random2 struct {
	base
	Stream string
	Mask   Node
	fn     *sym.Function
}

func NewRandom2(pos Pos, args []Node) *Random2 {
	n := &Random2{base: newBase(pos)}
	if len(args) > 0 {
		n.Mask = args[0]
	}
	if len(args) > 1 {
		n.Mask = badArgCount
	}
	n.valueType = types.TypeSInt32
	return n
}

func (n *Random2) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Mask == badArgCount {
		ctx.Error(n.pos, "random2 takes at most one parameter")
		return nil
	}
	if n.Mask == nil {
		n.Mask = NewIntConstant(n.pos, types.TypeSInt32, -1)
	}
	if n.Mask = NewIntCast(n.Mask, types.TypeSInt32, false).Resolve(ctx); n.Mask == nil {
		return nil
	}
	n.fn = ctx.Builtins.Find(builtins.BuiltinRandom2, nil)
	return n
}

func (n *Random2) Emit(b *vm.Builder) vm.Reg {
	return emitNativeCall(b, n.fn, []vm.Reg{rngStreamReg(b, n.Stream), n.Mask.Emit(b)})
}

// RandomPick is randompick(...)/frandompick(...): one choice selected
// uniformly at random. Choices dispatch through a test table on the
// drawn index, all branches landing in one shared result register.
type RandomPick struct {
	base
	Stream  string
	Choices []Node
	Float   bool
	fn      *sym.Function
}

func NewRandomPick(pos Pos, args []Node, float bool) *RandomPick {
	return &RandomPick{base: newBase(pos), Choices: args, Float: float}
}

func (n *RandomPick) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if len(n.Choices) == 0 {
		ctx.Error(n.pos, "randompick requires at least one choice")
		return nil
	}
	n.valueType = types.TypeSInt32
	if n.Float {
		n.valueType = types.TypeFloat64
	}
	for i := range n.Choices {
		var c Node
		if n.Float {
			c = NewFloatCast(n.Choices[i]).Resolve(ctx)
		} else {
			c = NewIntCast(n.Choices[i], types.TypeSInt32, false).Resolve(ctx)
		}
		if c == nil {
			return nil
		}
		n.Choices[i] = c
	}
	if len(n.Choices) == 1 {
		return n.Choices[0]
	}
	n.fn = ctx.Builtins.Find(builtins.BuiltinRandom, nil)
	return n
}

func (n *RandomPick) Emit(b *vm.Builder) vm.Reg {
	idx := emitNativeCall(b, n.fn, []vm.Reg{
		rngStreamReg(b, n.Stream),
		vm.KonstReg(b.IntConst(0), types.RegInt),
		vm.KonstReg(b.IntConst(len(n.Choices)-1), types.RegInt),
	})

	// Dispatch table: the drawn index is always in range, so exactly
	// one test matches.
	sites := make([]int, len(n.Choices))
	for i := range n.Choices {
		b.Emit(vm.OpTest, idx.Num, i, 0)
		sites[i] = b.EmitJump()
	}
	idx.Free(b)

	out := b.Temp(n.valueType.RegClass(), 1)
	ends := make([]int, 0, len(n.Choices)-1)
	for i, c := range n.Choices {
		b.BackpatchToHere(sites[i])
		moveInto(b, vm.FixedReg(out.Num, out.Class, out.Width), c.Emit(b))
		if i < len(n.Choices)-1 {
			ends = append(ends, b.EmitJump())
		}
	}
	for _, site := range ends {
		b.BackpatchToHere(site)
	}
	return out
}
