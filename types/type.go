package types

// RegClass says which register file a value of some type occupies at
// runtime. Void and aggregate types that never fit a register map to
// RegNil.
type RegClass int

const (
	RegNil RegClass = iota - 1
	RegInt
	RegFloat
	RegString
	RegPointer
)

// NumRegClasses counts the real register files (RegNil excluded).
const NumRegClasses = 4

func (r RegClass) String() string {
	switch r {
	case RegInt:
		return "int"
	case RegFloat:
		return "float"
	case RegString:
		return "string"
	case RegPointer:
		return "pointer"
	default:
		return "nil"
	}
}

// Kind is the storage class of a type descriptor.
type Kind int

const (
	KindError Kind = iota // failed resolution sentinel
	KindVoid
	KindBool
	KindInt // all integer subtypes, signedness/width on the descriptor
	KindFloat
	KindString
	KindName
	KindSound
	KindColor
	KindSpriteID
	KindTextureID
	KindStateLabel
	KindPointer  // instance/state pointers, incl. the null pointer
	KindClassPtr // class<X> metaclass values
	KindStruct
	KindClass // class definition itself (pointed-to by Pointer/ClassPtr)
	KindVector2
	KindVector3
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindName:
		return "name"
	case KindSound:
		return "sound"
	case KindColor:
		return "color"
	case KindSpriteID:
		return "spriteid"
	case KindTextureID:
		return "textureid"
	case KindStateLabel:
		return "statelabel"
	case KindPointer:
		return "pointer"
	case KindClassPtr:
		return "classptr"
	case KindStruct:
		return "struct"
	case KindClass:
		return "class"
	case KindVector2:
		return "vector2"
	case KindVector3:
		return "vector3"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Type describes the shape of a value. Descriptors are shared and
// immutable after construction; identity comparison (==) decides
// "same type".
type Type struct {
	Kind     Kind
	TypeName string
	Size     int // byte size of one value
	Align    int

	// Integers only.
	Unsigned bool

	// Pointer/ClassPtr: pointed-to type. Array: element type.
	Elem *Type

	// Array only.
	Count int

	// Class only.
	Parent *Type
	Fields []*Field

	// Struct only.
	// (struct fields share the Fields slice above)
}

func (t *Type) String() string {
	if t.TypeName != "" {
		return t.TypeName
	}
	return t.Kind.String()
}

// Singletons for the built-in types. Compared by identity everywhere.
var (
	TypeError      = &Type{Kind: KindError, TypeName: "<error>"}
	TypeVoid       = &Type{Kind: KindVoid, TypeName: "void"}
	TypeBool       = &Type{Kind: KindBool, TypeName: "bool", Size: 1, Align: 1, Unsigned: true}
	TypeSInt8      = &Type{Kind: KindInt, TypeName: "int8", Size: 1, Align: 1}
	TypeUInt8      = &Type{Kind: KindInt, TypeName: "uint8", Size: 1, Align: 1, Unsigned: true}
	TypeSInt16     = &Type{Kind: KindInt, TypeName: "int16", Size: 2, Align: 2}
	TypeUInt16     = &Type{Kind: KindInt, TypeName: "uint16", Size: 2, Align: 2, Unsigned: true}
	TypeSInt32     = &Type{Kind: KindInt, TypeName: "int", Size: 4, Align: 4}
	TypeUInt32     = &Type{Kind: KindInt, TypeName: "uint", Size: 4, Align: 4, Unsigned: true}
	TypeFloat64    = &Type{Kind: KindFloat, TypeName: "double", Size: 8, Align: 8}
	TypeString     = &Type{Kind: KindString, TypeName: "string", Size: 16, Align: 8}
	TypeName       = &Type{Kind: KindName, TypeName: "name", Size: 4, Align: 4}
	TypeSound      = &Type{Kind: KindSound, TypeName: "sound", Size: 4, Align: 4}
	TypeColor      = &Type{Kind: KindColor, TypeName: "color", Size: 4, Align: 4, Unsigned: true}
	TypeSpriteID   = &Type{Kind: KindSpriteID, TypeName: "spriteid", Size: 4, Align: 4}
	TypeTextureID  = &Type{Kind: KindTextureID, TypeName: "textureid", Size: 4, Align: 4}
	TypeStateLabel = &Type{Kind: KindStateLabel, TypeName: "statelabel", Size: 4, Align: 4}
	TypeVector2    = &Type{Kind: KindVector2, TypeName: "vector2", Size: 16, Align: 8}
	TypeVector3    = &Type{Kind: KindVector3, TypeName: "vector3", Size: 24, Align: 8}
	TypeNullPtr    = &Type{Kind: KindPointer, TypeName: "null", Size: 8, Align: 8}

	// StateRecord is the opaque per-state record of the host's state
	// tables; TypeState points at it. Its size scales raw state-pointer
	// arithmetic.
	StateRecord = &Type{Kind: KindStruct, TypeName: "state", Size: 72, Align: 8}
	TypeState   = NewPointer(StateRecord)
)

// NewPointer returns a pointer descriptor for the given pointed-to
// type. Pointers to the same descriptor are still distinct objects;
// callers that need identity must cache.
func NewPointer(elem *Type) *Type {
	return &Type{Kind: KindPointer, TypeName: "pointer<" + elem.String() + ">", Size: 8, Align: 8, Elem: elem}
}

// NewClassPtr returns a class<restriction> metaclass descriptor.
func NewClassPtr(restriction *Type) *Type {
	return &Type{Kind: KindClassPtr, TypeName: "class<" + restriction.String() + ">", Size: 8, Align: 8, Elem: restriction}
}

// NewClass creates a class definition descriptor. The instance pointer
// type is created separately with NewPointer.
func NewClass(name string, parent *Type) *Type {
	size := 0
	if parent != nil {
		size = parent.Size
	}
	return &Type{Kind: KindClass, TypeName: name, Size: size, Align: 8, Parent: parent}
}

// NewStruct creates a struct descriptor. Size is accumulated by
// AddField.
func NewStruct(name string) *Type {
	return &Type{Kind: KindStruct, TypeName: name, Align: 8}
}

// NewArray creates a fixed-size array descriptor.
func NewArray(elem *Type, count int) *Type {
	return &Type{
		Kind:     KindArray,
		TypeName: elem.String() + "[]",
		Size:     elem.Size * count,
		Align:    elem.Align,
		Elem:     elem,
		Count:    count,
	}
}

// RegClass maps a type to the register file its values live in.
func (t *Type) RegClass() RegClass {
	switch t.Kind {
	case KindBool, KindInt, KindName, KindSound, KindColor, KindSpriteID, KindTextureID, KindStateLabel:
		return RegInt
	case KindFloat, KindVector2, KindVector3:
		return RegFloat
	case KindString:
		return RegString
	case KindPointer, KindClassPtr:
		return RegPointer
	default:
		return RegNil
	}
}

// RegWidth is the number of contiguous registers one value occupies.
func (t *Type) RegWidth() int {
	switch t.Kind {
	case KindVector2:
		return 2
	case KindVector3:
		return 3
	default:
		return 1
	}
}

// IsInteger reports whether the type belongs to the integer family
// (bool excluded; it converts, but does not promote, like an integer).
func (t *Type) IsInteger() bool {
	return t.Kind == KindInt || t.Kind == KindBool
}

func (t *Type) IsFloat() bool {
	return t.Kind == KindFloat
}

// IsNumeric covers the types the arithmetic operators accept.
func (t *Type) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

func (t *Type) IsVector() bool {
	return t.Kind == KindVector2 || t.Kind == KindVector3
}

func (t *Type) IsPointer() bool {
	return t.Kind == KindPointer || t.Kind == KindClassPtr
}

// IsBoolCompat reports whether a value can stand in a boolean context:
// anything occupying a single int, float or pointer register.
func (t *Type) IsBoolCompat() bool {
	switch t.RegClass() {
	case RegInt, RegFloat, RegPointer:
		return t.RegWidth() == 1
	default:
		return false
	}
}

// IsDescendantOf walks the class parent chain.
func (t *Type) IsDescendantOf(ancestor *Type) bool {
	for c := t; c != nil; c = c.Parent {
		if c == ancestor {
			return true
		}
	}
	return false
}

// AddField appends a field to a struct or class descriptor, assigning
// its byte offset with natural alignment, and returns the field.
// Construction-time only; descriptors are immutable afterwards.
func (t *Type) AddField(name string, ftype *Type, flags FieldFlags) *Field {
	ofs := t.Size
	if ftype.Align > 0 && ofs%ftype.Align != 0 {
		ofs += ftype.Align - ofs%ftype.Align
	}
	f := &Field{Name: name, Type: ftype, Offset: ofs, Flags: flags, BitIndex: -1}
	t.Fields = append(t.Fields, f)
	t.Size = ofs + ftype.Size
	return f
}

// FindField looks a field up by name, searching class parents too.
func (t *Type) FindField(name string) *Field {
	for c := t; c != nil; c = c.Parent {
		for _, f := range c.Fields {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}

// FieldFlags qualify a field's storage.
type FieldFlags uint16

const (
	FieldReadOnly FieldFlags = 1 << iota
	FieldDeprecated
	FieldPrivate
	FieldStatic
	FieldMeta // lives on class defaults, not the instance
	FieldOut  // reference/out parameter storage
)

// Field describes one member of a struct or class. Immutable after
// construction; access chains fold offsets on the access node instead
// of mutating the descriptor.
type Field struct {
	Name     string
	Type     *Type
	Offset   int
	Flags    FieldFlags
	BitIndex int // bit number for bit-packed fields, -1 otherwise
}

// AreCompatiblePointerTypes decides pointer assignment/comparison
// compatibility. For equality comparisons either side may be the
// descendant; as a value the source class must descend from the
// destination's.
func AreCompatiblePointerTypes(dest, source *Type, forCompare bool) bool {
	if !dest.IsPointer() || !source.IsPointer() {
		return false
	}
	if dest == source || source == TypeNullPtr || dest == TypeNullPtr {
		return true
	}
	fromClass := source.Elem
	toClass := dest.Elem
	if fromClass == nil || toClass == nil {
		return false
	}
	if fromClass.IsDescendantOf(toClass) {
		return true
	}
	return forCompare && toClass.IsDescendantOf(fromClass)
}
