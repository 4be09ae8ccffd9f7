package vm

import "spark/types"

// RegKind says what a register handle denotes. One case per kind so
// that illegal flag combinations cannot be expressed.
type RegKind uint8

const (
	// RegNone is the empty handle, returned by void-valued nodes.
	RegNone RegKind = iota
	// RegTemp is a pool-leased register: freed exactly once after its
	// last use.
	RegTemp
	// RegKonst indexes a constant pool; never freed.
	RegKonst
	// RegFixed is stable storage (a named local, the self pointer):
	// never freed, may be read but not clobbered by expression code.
	RegFixed
	// RegTarget holds the address of a value in a leased pointer
	// register: the handle denotes an assignable location. Freeing
	// releases the pointer register.
	RegTarget
)

// Reg describes where a value lives during emission.
type Reg struct {
	Num   int
	Class types.RegClass
	Width int
	Kind  RegKind

	// Final marks the result of a call that was emitted as a VM tail
	// call; the enclosing return emits nothing further.
	Final bool
}

// KonstReg makes a constant-pool handle.
func KonstReg(num int, class types.RegClass) Reg {
	return Reg{Num: num, Class: class, Width: 1, Kind: RegKonst}
}

// FixedReg makes a stable-storage handle.
func FixedReg(num int, class types.RegClass, width int) Reg {
	return Reg{Num: num, Class: class, Width: width, Kind: RegFixed}
}

// TargetReg wraps a leased pointer register holding an address into an
// assignable-location handle for a value of the given class.
func TargetReg(ptr int, class types.RegClass, width int) Reg {
	return Reg{Num: ptr, Class: class, Width: width, Kind: RegTarget}
}

// Void reports the empty handle.
func (r Reg) Void() bool { return r.Kind == RegNone }

// Konst reports a constant-pool handle.
func (r Reg) Konst() bool { return r.Kind == RegKonst }

// Fixed reports stable storage.
func (r Reg) Fixed() bool { return r.Kind == RegFixed }

// Free returns a leased register to its pool. No-op for constants,
// fixed storage and the empty handle.
func (r Reg) Free(b *Builder) {
	switch r.Kind {
	case RegTemp:
		b.Regs[r.Class].Free(r.Num, r.Width)
	case RegTarget:
		b.Regs[types.RegPointer].Free(r.Num, 1)
	}
}

// Reuse re-marks a previously freed single-slot temporary as in-use
// without re-acquiring, so a later phase can write to the same slot.
func (r Reg) Reuse(b *Builder) {
	if r.Kind == RegTemp {
		b.Regs[r.Class].Reuse(r.Num)
	}
}

// Encode maps a handle to the wire encoding used by OpParam, OpResult
// and OpRet.
func (r Reg) Encode() int {
	enc := int(r.Class)
	if r.Kind == RegKonst {
		enc |= RegEncKonst
	}
	return enc
}
