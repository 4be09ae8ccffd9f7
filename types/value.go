package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Epsilon is the tolerance of approximate float equality (~==).
const Epsilon = 1.0 / 65536.0

// Value is a compile-time constant: a tagged union whose tag is the
// type descriptor. The tag always agrees with the owning node's
// resolved type's storage class.
type Value struct {
	Type *Type

	// One of these carries the payload, selected by Type.RegClass.
	Int   int
	Float float64
	Str   string
	Ptr   any
}

func IntValue(v int) Value       { return Value{Type: TypeSInt32, Int: v} }
func UIntValue(v uint32) Value   { return Value{Type: TypeUInt32, Int: int(int32(v))} }
func FloatValue(v float64) Value { return Value{Type: TypeFloat64, Float: v} }
func StringValue(s string) Value { return Value{Type: TypeString, Str: s} }
func BoolValue(b bool) Value {
	v := Value{Type: TypeBool}
	if b {
		v.Int = 1
	}
	return v
}
func NameValue(n NameID) Value { return Value{Type: TypeName, Int: int(n)} }
func NullValue() Value         { return Value{Type: TypeNullPtr} }

// TypedInt builds an int-register constant of a specific type (sound,
// color, statelabel, ...).
func TypedInt(t *Type, v int) Value { return Value{Type: t, Int: v} }

// TypedPtr builds a pointer constant carrying its type tag.
func TypedPtr(t *Type, p any) Value { return Value{Type: t, Ptr: p} }

// GetInt converts to a signed integer, truncating floats toward zero.
func (v Value) GetInt() int {
	switch v.Type.RegClass() {
	case RegInt:
		return v.Int
	case RegFloat:
		return int(int32(v.Float))
	default:
		return 0
	}
}

// GetUInt is GetInt through an unsigned 32-bit window.
func (v Value) GetUInt() uint32 {
	switch v.Type.RegClass() {
	case RegInt:
		return uint32(int32(v.Int))
	case RegFloat:
		return uint32(v.Float)
	default:
		return 0
	}
}

func (v Value) GetFloat() float64 {
	switch v.Type.RegClass() {
	case RegInt:
		if v.Type == TypeUInt32 {
			return float64(uint32(int32(v.Int)))
		}
		return float64(v.Int)
	case RegFloat:
		return v.Float
	default:
		return 0
	}
}

func (v Value) GetBool() bool {
	switch v.Type.RegClass() {
	case RegInt:
		return v.Int != 0
	case RegFloat:
		return v.Float != 0
	case RegString:
		return v.Str != ""
	case RegPointer:
		return v.Ptr != nil
	default:
		return false
	}
}

func (v Value) GetName() NameID {
	if v.Type == TypeName {
		return NameID(v.Int)
	}
	return NameNone
}

// GetString renders string-compatible constants: strings verbatim and
// names by their interned text.
func (v Value) GetString() string {
	switch v.Type.Kind {
	case KindString:
		return v.Str
	case KindName:
		return NameID(v.Int).String()
	default:
		return ""
	}
}

// IsZero reports a zero/null payload regardless of type.
func (v Value) IsZero() bool {
	switch v.Type.RegClass() {
	case RegInt:
		return v.Int == 0
	case RegFloat:
		return v.Float == 0 && v.Type.RegWidth() == 1
	case RegPointer:
		return v.Ptr == nil
	default:
		return false
	}
}

// CompareStrings orders two string-compatible constants bytewise.
func CompareStrings(a, b Value) int {
	return strings.Compare(a.GetString(), b.GetString())
}

// ApproxEqual implements '~==': case-insensitive for strings,
// epsilon-based for floats.
func ApproxEqual(a, b Value) bool {
	if a.Type.RegClass() == RegString {
		return strings.EqualFold(a.GetString(), b.GetString())
	}
	return math.Abs(a.GetFloat()-b.GetFloat()) < Epsilon
}

func (v Value) String() string {
	switch v.Type.Kind {
	case KindString:
		return strconv.Quote(v.Str)
	case KindName:
		return "'" + NameID(v.Int).String() + "'"
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		if v.Int != 0 {
			return "true"
		}
		return "false"
	case KindPointer, KindClassPtr:
		if v.Ptr == nil {
			return "null"
		}
		return fmt.Sprintf("%s(%v)", v.Type, v.Ptr)
	default:
		if v.Type == TypeUInt32 {
			return strconv.FormatUint(uint64(uint32(int32(v.Int))), 10)
		}
		return strconv.Itoa(v.Int)
	}
}
