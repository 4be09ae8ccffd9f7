package types

import "testing"

func TestValueConversions(t *testing.T) {
	if got := FloatValue(2.75).GetInt(); got != 2 {
		t.Errorf("GetInt(2.75) = %d, want 2 (truncation toward zero)", got)
	}
	if got := FloatValue(-2.75).GetInt(); got != -2 {
		t.Errorf("GetInt(-2.75) = %d, want -2 (truncation toward zero)", got)
	}
	if got := IntValue(-1).GetUInt(); got != 0xffffffff {
		t.Errorf("GetUInt(-1) = %#x, want 0xffffffff", got)
	}
	if got := UIntValue(0xffffffff).GetFloat(); got != 4294967295.0 {
		t.Errorf("GetFloat(uint 0xffffffff) = %v, want 4294967295", got)
	}
	if got := IntValue(-1).GetFloat(); got != -1.0 {
		t.Errorf("GetFloat(int -1) = %v, want -1", got)
	}
}

func TestValueBool(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{IntValue(0), false},
		{IntValue(3), true},
		{FloatValue(0), false},
		{FloatValue(0.5), true},
		{StringValue(""), false},
		{StringValue("x"), true},
		{NullValue(), false},
		{BoolValue(true), true},
	}
	for _, c := range cases {
		if got := c.v.GetBool(); got != c.want {
			t.Errorf("GetBool(%s) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestNameInterning(t *testing.T) {
	a := InternName("Spawn")
	b := InternName("Spawn")
	c := InternName("See")
	if a != b {
		t.Error("interning the same string twice must return the same id")
	}
	if a == c {
		t.Error("distinct strings must not share an id")
	}
	if a.String() != "Spawn" {
		t.Errorf("round trip = %q, want Spawn", a.String())
	}
	if NameNone.String() != "" {
		t.Error("NameNone must render empty")
	}
}

func TestApproxEqual(t *testing.T) {
	if !ApproxEqual(StringValue("Hello"), StringValue("hELLO")) {
		t.Error("string ~== must be case-insensitive")
	}
	if ApproxEqual(StringValue("Hello"), StringValue("world")) {
		t.Error("different strings are not ~==")
	}
	if !ApproxEqual(FloatValue(1.0), FloatValue(1.0+Epsilon/2)) {
		t.Error("floats within epsilon are ~==")
	}
	if ApproxEqual(FloatValue(1.0), FloatValue(1.0+Epsilon*2)) {
		t.Error("floats beyond epsilon are not ~==")
	}
}

func TestCompareStrings(t *testing.T) {
	if CompareStrings(StringValue("abc"), StringValue("abd")) >= 0 {
		t.Error("abc < abd")
	}
	n := NameValue(InternName("abc"))
	if CompareStrings(n, StringValue("abc")) != 0 {
		t.Error("names compare by their text")
	}
}
