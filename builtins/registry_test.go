package builtins

import (
	"testing"

	"spark/sym"
	"spark/types"
)

func TestRegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	a := r.Register(&sym.Function{Name: "X", Proto: sym.NewProto(nil, nil)})
	b := r.Register(&sym.Function{Name: "X", Proto: sym.NewProto(nil, nil)})
	if a != b {
		t.Error("second registration of the same name must return the first symbol")
	}
}

func TestFindRegistersOnFirstUse(t *testing.T) {
	r := NewRegistry()
	if r.Find("Y", nil) != nil {
		t.Error("unknown name without a maker should be nil")
	}
	made := 0
	mk := func() *sym.Function {
		made++
		return &sym.Function{Name: "Y", Proto: sym.NewProto(nil, nil)}
	}
	a := r.Find("Y", mk)
	b := r.Find("Y", mk)
	if a == nil || a != b {
		t.Error("first-use registration must be stable")
	}
	if made != 1 {
		t.Errorf("maker ran %d times, want 1", made)
	}
}

func TestStandardHelpers(t *testing.T) {
	r := Standard()
	for _, name := range []string{BuiltinRandom, BuiltinFRandom, BuiltinRandom2, BuiltinCallLineSpecial, BuiltinClassCast, BuiltinNameToClass, BuiltinTypeCheck} {
		fn := r.Find(name, nil)
		if fn == nil {
			t.Errorf("%s missing from standard registry", name)
			continue
		}
		if !fn.Native {
			t.Errorf("%s should be native", name)
		}
		if len(fn.Proto.ReturnTypes) != 1 {
			t.Errorf("%s should return one value", name)
		}
	}
	if got := r.Find(BuiltinRandom, nil).Proto.ReturnTypes[0]; got != types.TypeSInt32 {
		t.Errorf("BuiltinRandom returns %v, want int", got)
	}
}
