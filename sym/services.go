package sym

import "spark/types"

// LineSpecial is a host "action special": a numbered dispatch entry
// callable by name with up to MaxArgs integer arguments.
type LineSpecial struct {
	Name    string
	Number  int
	MinArgs int
	MaxArgs int
}

func (l *LineSpecial) SymbolName() string { return l.Name }

// LineSpecials resolves action-special names. A nil provider means the
// host registered none.
type LineSpecials interface {
	FindSpecial(name string) *LineSpecial
}

// CVar is a console variable the host exposes to scripts as a typed
// read-only value.
type CVar struct {
	Name string
	Type *types.Type
	Slot any
}

// CVars resolves console-variable names.
type CVars interface {
	FindCVar(name string) *CVar
}

// ClassSource resolves class names for class-type casts and
// GetDefaultByType.
type ClassSource interface {
	FindClass(name string) *types.Type // class definition or nil
}

// MethodSource resolves callable methods on a class definition,
// searching parent classes too.
type MethodSource interface {
	FindMethod(class *types.Type, name string) *Function
}

// MethodList is a map-backed MethodSource keyed "Class.Method".
type MethodList map[string]*Function

func (m MethodList) FindMethod(class *types.Type, name string) *Function {
	for c := class; c != nil; c = c.Parent {
		if fn := m[c.TypeName+"."+name]; fn != nil {
			return fn
		}
	}
	return nil
}

// SpecialList is a plain map-backed LineSpecials implementation.
type SpecialList map[string]*LineSpecial

func (s SpecialList) FindSpecial(name string) *LineSpecial { return s[name] }

// CVarList is a plain map-backed CVars implementation.
type CVarList map[string]*CVar

func (c CVarList) FindCVar(name string) *CVar { return c[name] }

// ClassList is a plain map-backed ClassSource implementation.
type ClassList map[string]*types.Type

func (c ClassList) FindClass(name string) *types.Type { return c[name] }
