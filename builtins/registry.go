// Package builtins is the native-function registry the compiler uses
// for synthesized helper calls (random number generation, runtime type
// checks, line-special dispatch, name-to-class resolution). The
// registry is an explicit object handed to the compile context at
// construction, populated during setup and read-only afterwards.
package builtins

import (
	"sync"

	"spark/sym"
	"spark/types"
)

// Names of the helpers the compiler synthesizes calls to.
const (
	BuiltinRandom          = "BuiltinRandom"
	BuiltinFRandom         = "BuiltinFRandom"
	BuiltinRandom2         = "BuiltinRandom2"
	BuiltinCallLineSpecial = "BuiltinCallLineSpecial"
	BuiltinClassCast       = "BuiltinClassCast"
	BuiltinNameToClass     = "BuiltinNameToClass"
	BuiltinTypeCheck       = "BuiltinTypeCheck"
	BuiltinGetDefault      = "BuiltinGetDefault"
)

// Registry maps stable names to callable function symbols. Lookup
// registers on first use, and re-registration of the same name is
// idempotent, so concurrent compilations sharing one registry stay
// consistent.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*sym.Function
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*sym.Function)}
}

// Register adds a callable under its stable name. The first
// registration wins; registering the same name again returns the
// existing symbol.
func (r *Registry) Register(fn *sym.Function) *sym.Function {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.funcs[fn.Name]; ok {
		return old
	}
	fn.Native = true
	r.funcs[fn.Name] = fn
	return fn
}

// Find returns a registered callable, creating a default descriptor on
// first use when make is non-nil.
func (r *Registry) Find(name string, make func() *sym.Function) *sym.Function {
	r.mu.RLock()
	fn := r.funcs[name]
	r.mu.RUnlock()
	if fn != nil || make == nil {
		return fn
	}
	return r.Register(make())
}

// Standard returns a registry preloaded with the helper descriptors the
// compiler can synthesize calls to.
func Standard() *Registry {
	r := NewRegistry()
	intT := types.TypeSInt32
	floatT := types.TypeFloat64
	ptrT := types.TypeNullPtr
	strT := types.TypeString

	r.Register(&sym.Function{
		Name:  BuiltinRandom,
		Proto: sym.NewProto([]*types.Type{intT}, []*types.Type{ptrT, intT, intT}),
	})
	r.Register(&sym.Function{
		Name:  BuiltinFRandom,
		Proto: sym.NewProto([]*types.Type{floatT}, []*types.Type{ptrT, floatT, floatT}),
	})
	r.Register(&sym.Function{
		Name:  BuiltinRandom2,
		Proto: sym.NewProto([]*types.Type{intT}, []*types.Type{ptrT, intT}),
	})
	r.Register(&sym.Function{
		Name:     BuiltinCallLineSpecial,
		Proto:    sym.NewProto([]*types.Type{intT}, []*types.Type{intT, ptrT, intT, intT, intT, intT, intT}),
		ArgFlags: []sym.ArgFlags{0, 0, sym.ArgOptional, sym.ArgOptional, sym.ArgOptional, sym.ArgOptional, sym.ArgOptional},
	})
	r.Register(&sym.Function{
		Name:  BuiltinClassCast,
		Proto: sym.NewProto([]*types.Type{ptrT}, []*types.Type{ptrT, ptrT}),
	})
	r.Register(&sym.Function{
		Name:  BuiltinNameToClass,
		Proto: sym.NewProto([]*types.Type{ptrT}, []*types.Type{strT, ptrT}),
	})
	r.Register(&sym.Function{
		Name:  BuiltinTypeCheck,
		Proto: sym.NewProto([]*types.Type{intT}, []*types.Type{ptrT, ptrT}),
	})
	r.Register(&sym.Function{
		Name:  BuiltinGetDefault,
		Proto: sym.NewProto([]*types.Type{ptrT}, []*types.Type{ptrT}),
	})
	return r
}
