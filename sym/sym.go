// Package sym is the symbol service the compiler resolves names
// against: constants, fields, functions, globals and the auxiliary
// name spaces (line specials, console variables). The compiler treats
// everything here as read-only after the setup phase.
package sym

import "spark/types"

// Symbol is anything a name can resolve to.
type Symbol interface {
	SymbolName() string
}

// Const is a named compile-time constant.
type Const struct {
	Name  string
	Value types.Value
}

func (c *Const) SymbolName() string { return c.Name }

// Global is a named global variable with stable storage. Addr is the
// opaque host address interned into the pointer constant pool at
// emission.
type Global struct {
	Name  string
	Type  *types.Type
	Addr  any
	Flags types.FieldFlags
}

func (g *Global) SymbolName() string { return g.Name }

// StateRef is a parsed textual state-label target: an optional scope
// qualifier and a dotted label path. The compiler interns one record
// per distinct reference; the host resolves it against the target's
// state lists when the jump is taken.
type StateRef struct {
	Scope types.NameID
	Path  string
}

// FuncFlags describe a function's calling contract.
type FuncFlags uint16

const (
	FuncAction FuncFlags = 1 << iota // takes the three implicit action pointers
	FuncStatic
	FuncVirtual
	FuncFinal
	FuncUI   // callable from UI context only
	FuncPlay // callable from play context only
)

// ArgFlags qualify one declared parameter.
type ArgFlags uint8

const (
	ArgOptional ArgFlags = 1 << iota
	ArgOut               // reference parameter, exact type match, address taken
	ArgVariadic          // trailing args share this parameter's type
)

// Proto is a function signature: the inferred or declared return types
// and the argument types. Prototypes with fewer return types are
// compatible with longer ones only as an exact prefix.
type Proto struct {
	ReturnTypes []*types.Type
	ArgTypes    []*types.Type
}

// NewProto builds a prototype.
func NewProto(rets, args []*types.Type) *Proto {
	return &Proto{ReturnTypes: rets, ArgTypes: args}
}

// Function is a callable symbol: a script method, a native builtin or
// a compiler-synthesized helper.
type Function struct {
	Name     string
	Class    *types.Type // owning class definition, nil for free functions
	Proto    *Proto
	ArgNames []string
	ArgFlags []ArgFlags
	Defaults []types.Value // indexed like ArgTypes; meaningful for optional args
	Flags    FuncFlags
	Native   bool

	// VMSlot is the opaque callable the emitter interns as an address
	// constant.
	VMSlot any
}

func (f *Function) SymbolName() string { return f.Name }

// MinArgs counts the required leading parameters.
func (f *Function) MinArgs() int {
	n := 0
	for i := range f.Proto.ArgTypes {
		if i < len(f.ArgFlags) && f.ArgFlags[i]&(ArgOptional|ArgVariadic) != 0 {
			break
		}
		n++
	}
	return n
}

// HasVariadic reports a trailing variadic parameter.
func (f *Function) HasVariadic() bool {
	n := len(f.ArgFlags)
	return n > 0 && f.ArgFlags[n-1]&ArgVariadic != 0
}

// CallableFrom checks caller/callee usage-context compatibility: a
// callee restricted to a narrower context than its caller cannot be
// called.
func (f *Function) CallableFrom(caller *Function) bool {
	if caller == nil {
		return true
	}
	if f.Flags&FuncUI != 0 && caller.Flags&FuncUI == 0 {
		return false
	}
	if f.Flags&FuncPlay != 0 && caller.Flags&FuncUI != 0 {
		return false
	}
	return true
}

// Table is a lexically chained symbol table.
type Table struct {
	Parent  *Table
	symbols map[string]Symbol
}

func NewTable(parent *Table) *Table {
	return &Table{Parent: parent, symbols: make(map[string]Symbol)}
}

// Add registers a symbol; the last registration of a name wins within
// one table.
func (t *Table) Add(s Symbol) {
	t.symbols[s.SymbolName()] = s
}

// Find looks a name up in this table only.
func (t *Table) Find(name string) Symbol {
	return t.symbols[name]
}

// Lookup walks the parent chain.
func (t *Table) Lookup(name string) Symbol {
	for tab := t; tab != nil; tab = tab.Parent {
		if s := tab.symbols[name]; s != nil {
			return s
		}
	}
	return nil
}
