package types

import "testing"

func TestRegClassMapping(t *testing.T) {
	cases := []struct {
		typ   *Type
		class RegClass
		width int
	}{
		{TypeSInt32, RegInt, 1},
		{TypeUInt32, RegInt, 1},
		{TypeBool, RegInt, 1},
		{TypeName, RegInt, 1},
		{TypeFloat64, RegFloat, 1},
		{TypeVector2, RegFloat, 2},
		{TypeVector3, RegFloat, 3},
		{TypeString, RegString, 1},
		{TypeNullPtr, RegPointer, 1},
		{TypeState, RegPointer, 1},
		{TypeVoid, RegNil, 1},
		{TypeError, RegNil, 1},
	}
	for _, c := range cases {
		if got := c.typ.RegClass(); got != c.class {
			t.Errorf("%s: RegClass = %v, want %v", c.typ, got, c.class)
		}
		if got := c.typ.RegWidth(); got != c.width {
			t.Errorf("%s: RegWidth = %d, want %d", c.typ, got, c.width)
		}
	}
}

func TestDescendantChecks(t *testing.T) {
	actor := NewClass("Actor", nil)
	monster := NewClass("Monster", actor)
	imp := NewClass("Imp", monster)
	other := NewClass("Inventory", actor)

	if !imp.IsDescendantOf(actor) {
		t.Error("Imp should descend from Actor")
	}
	if !imp.IsDescendantOf(imp) {
		t.Error("a class descends from itself")
	}
	if actor.IsDescendantOf(imp) {
		t.Error("Actor must not descend from Imp")
	}
	if imp.IsDescendantOf(other) {
		t.Error("Imp must not descend from Inventory")
	}
}

func TestPointerCompatibility(t *testing.T) {
	actor := NewClass("Actor", nil)
	monster := NewClass("Monster", actor)
	pActor := NewPointer(actor)
	pMonster := NewPointer(monster)

	// Upcast is fine as a value.
	if !AreCompatiblePointerTypes(pActor, pMonster, false) {
		t.Error("Monster* should convert to Actor*")
	}
	// Downcast only passes when comparing.
	if AreCompatiblePointerTypes(pMonster, pActor, false) {
		t.Error("Actor* must not silently convert to Monster*")
	}
	if !AreCompatiblePointerTypes(pMonster, pActor, true) {
		t.Error("Actor* == Monster* comparison should be allowed")
	}
	// Null converts to anything.
	if !AreCompatiblePointerTypes(pMonster, TypeNullPtr, false) {
		t.Error("null should convert to any pointer")
	}
}

func TestFieldLayout(t *testing.T) {
	s := NewStruct("vec")
	a := s.AddField("a", TypeUInt8, 0)
	b := s.AddField("b", TypeSInt32, 0)
	c := s.AddField("c", TypeFloat64, 0)

	if a.Offset != 0 {
		t.Errorf("a.Offset = %d, want 0", a.Offset)
	}
	if b.Offset != 4 {
		t.Errorf("b.Offset = %d, want 4 (aligned)", b.Offset)
	}
	if c.Offset != 8 {
		t.Errorf("c.Offset = %d, want 8", c.Offset)
	}
	if s.Size != 16 {
		t.Errorf("struct size = %d, want 16", s.Size)
	}
	if s.FindField("b") != b {
		t.Error("FindField(b) mismatch")
	}
	if s.FindField("missing") != nil {
		t.Error("FindField(missing) should be nil")
	}
}

func TestFieldLookupThroughParent(t *testing.T) {
	actor := NewClass("Actor", nil)
	health := actor.AddField("health", TypeSInt32, 0)
	monster := NewClass("Monster", actor)
	monster.AddField("rage", TypeSInt32, 0)

	if monster.FindField("health") != health {
		t.Error("field lookup should walk parents")
	}
}
