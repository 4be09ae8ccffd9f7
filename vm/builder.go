package vm

import (
	"fmt"

	"spark/types"
)

// Instruction is one emitted register-machine instruction.
type Instruction struct {
	Op      Opcode
	A, B, C int
}

// AddrTag distinguishes what an interned address constant points at.
type AddrTag int

const (
	TagGeneric AddrTag = iota
	TagState
	TagClass
	TagFunction
	TagRNG
	TagCVar
	TagGlobal
)

// TaggedAddr is an address constant plus its tag. The pointer payload
// must be comparable; it is only ever handed back to the host.
type TaggedAddr struct {
	Ptr any
	Tag AddrTag
}

const jumpPlaceholder = -1

// Builder is the instruction emission target for one function: it owns
// the instruction buffer, the per-class constant pools (deduplicated by
// value), the register pools, and the jump bookkeeping.
type Builder struct {
	Code []Instruction
	Regs [types.NumRegClasses]RegPool

	IntConsts    []int
	FloatConsts  []float64
	StringConsts []string
	AddrConsts   []TaggedAddr

	intMap    map[int]int
	floatMap  map[float64]int
	stringMap map[string]int
	addrMap   map[TaggedAddr]int

	unpatched int
}

func NewBuilder() *Builder {
	return &Builder{
		intMap:    make(map[int]int),
		floatMap:  make(map[float64]int),
		stringMap: make(map[string]int),
		addrMap:   make(map[TaggedAddr]int),
	}
}

// Emit appends one instruction and returns its index.
func (b *Builder) Emit(op Opcode, a, bb, c int) int {
	pos := len(b.Code)
	b.Code = append(b.Code, Instruction{Op: op, A: a, B: bb, C: c})
	return pos
}

// Address is the index the next instruction will get.
func (b *Builder) Address() int { return len(b.Code) }

// EmitJump appends an unconditional jump with an unresolved target and
// returns its index for later backpatching.
func (b *Builder) EmitJump() int {
	b.unpatched++
	return b.Emit(OpJmp, jumpPlaceholder, 0, 0)
}

// Backpatch resolves a previously emitted jump to an absolute target.
// Each jump site resolves exactly once.
func (b *Builder) Backpatch(site, target int) {
	if b.Code[site].Op != OpJmp {
		panic(fmt.Sprintf("backpatch of non-jump at %d", site))
	}
	if b.Code[site].A != jumpPlaceholder {
		panic(fmt.Sprintf("jump at %d patched twice", site))
	}
	b.Code[site].A = target
	b.unpatched--
}

// BackpatchToHere resolves a jump to the current address.
func (b *Builder) BackpatchToHere(site int) {
	b.Backpatch(site, b.Address())
}

// UnpatchedJumps counts emitted jumps whose target is still unknown;
// it must be zero when a function finishes.
func (b *Builder) UnpatchedJumps() int { return b.unpatched }

// Temp leases a temporary register handle.
func (b *Builder) Temp(class types.RegClass, width int) Reg {
	return Reg{
		Num:   b.Regs[class].Alloc(width),
		Class: class,
		Width: width,
		Kind:  RegTemp,
	}
}

// IntConst interns v into the integer constant pool.
func (b *Builder) IntConst(v int) int {
	if idx, ok := b.intMap[v]; ok {
		return idx
	}
	idx := len(b.IntConsts)
	b.IntConsts = append(b.IntConsts, v)
	b.intMap[v] = idx
	return idx
}

// FloatConst interns v into the float constant pool.
func (b *Builder) FloatConst(v float64) int {
	if idx, ok := b.floatMap[v]; ok {
		return idx
	}
	idx := len(b.FloatConsts)
	b.FloatConsts = append(b.FloatConsts, v)
	b.floatMap[v] = idx
	return idx
}

// StringConst interns v into the string constant pool.
func (b *Builder) StringConst(v string) int {
	if idx, ok := b.stringMap[v]; ok {
		return idx
	}
	idx := len(b.StringConsts)
	b.StringConsts = append(b.StringConsts, v)
	b.stringMap[v] = idx
	return idx
}

// AddrConst interns a tagged address into the pointer constant pool.
func (b *Builder) AddrConst(ptr any, tag AddrTag) int {
	key := TaggedAddr{Ptr: ptr, Tag: tag}
	if idx, ok := b.addrMap[key]; ok {
		return idx
	}
	idx := len(b.AddrConsts)
	b.AddrConsts = append(b.AddrConsts, key)
	b.addrMap[key] = idx
	return idx
}

// loadImmediateMax bounds what OpLI can carry; larger values go
// through the constant pool.
const loadImmediateMax = 1 << 23

// LoadInt loads an integer into a register, preferring the immediate
// form.
func (b *Builder) LoadInt(reg, v int) {
	if v >= -loadImmediateMax && v < loadImmediateMax {
		b.Emit(OpLI, reg, v, 0)
	} else {
		b.Emit(OpLK, reg, b.IntConst(v), 0)
	}
}

// Finish seals the builder into a Program. It fails when any jump is
// still unresolved or any temporary register leaked.
func (b *Builder) Finish(name string) (*Program, error) {
	if b.unpatched != 0 {
		return nil, fmt.Errorf("function %s: %d unresolved jump site(s)", name, b.unpatched)
	}
	var numRegs [types.NumRegClasses]int
	for class := range b.Regs {
		if n := b.Regs[class].Outstanding(); n != 0 {
			return nil, fmt.Errorf("function %s: %d leaked %s register(s)", name, n, types.RegClass(class))
		}
		numRegs[class] = b.Regs[class].MostUsed()
	}
	return &Program{
		Name:         name,
		Code:         b.Code,
		IntConsts:    b.IntConsts,
		FloatConsts:  b.FloatConsts,
		StringConsts: b.StringConsts,
		AddrConsts:   b.AddrConsts,
		NumRegs:      numRegs,
	}, nil
}
