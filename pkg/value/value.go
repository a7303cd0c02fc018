// Package value implements the Ovum VM's tagged runtime value and the two
// LIFO stacks (operand stack and call-frame stack) that execution drives.
//
// A Value is a closed tagged union of exactly six alternatives: int64,
// float64, bool, char (a byte of text data), byte, and an opaque object
// reference. Values are small and copyable; only the object-reference
// alternative participates in garbage collection.
package value

import "fmt"

// Kind identifies which alternative of the tagged union a Value holds.
type Kind uint8

const (
	// KindInt holds a signed 64-bit integer.
	KindInt Kind = iota
	// KindFloat holds an IEEE-754 double.
	KindFloat
	// KindBool holds a boolean.
	KindBool
	// KindChar holds an unsigned 8-bit byte of text data.
	KindChar
	// KindByte holds an unsigned 8-bit byte.
	KindByte
	// KindObject holds an opaque pointer to a heap object, or nil.
	KindObject
)

// String returns a human-readable name for a Kind, used in error
// messages.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindByte:
		return "byte"
	case KindObject:
		return "Object"
	default:
		return "unknown"
	}
}

// Value is the tagged union the VM pushes, pops, stores in locals and
// statics, and places into object fields. Exactly one of the payload
// fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	i   int64
	f   float64
	b   bool
	ch  byte
	by  byte
	obj unsafePointer
}

// unsafePointer is an opaque, comparable handle to a heap object. It is
// defined as an interface{} alias so pkg/value has no dependency on
// pkg/runtime's concrete object representation; pkg/runtime stores
// *runtime.Object pointers here.
type unsafePointer = interface{}

// Int constructs an int64 Value.
func Int(i int64) Value { return Value{Kind: KindInt, i: i} }

// Float constructs a float64 Value.
func Float(f float64) Value { return Value{Kind: KindFloat, f: f} }

// Bool constructs a bool Value.
func Bool(b bool) Value { return Value{Kind: KindBool, b: b} }

// Char constructs a char Value.
func Char(c byte) Value { return Value{Kind: KindChar, ch: c} }

// Byte constructs a byte Value.
func Byte(b byte) Value { return Value{Kind: KindByte, by: b} }

// Object constructs an object-reference Value. ptr may be nil.
func Object(ptr interface{}) Value { return Value{Kind: KindObject, obj: ptr} }

// IsInt reports whether v holds an int64.
func (v Value) IsInt() bool { return v.Kind == KindInt }

// IsFloat reports whether v holds a float64.
func (v Value) IsFloat() bool { return v.Kind == KindFloat }

// IsBool reports whether v holds a bool.
func (v Value) IsBool() bool { return v.Kind == KindBool }

// IsChar reports whether v holds a char.
func (v Value) IsChar() bool { return v.Kind == KindChar }

// IsByte reports whether v holds a byte.
func (v Value) IsByte() bool { return v.Kind == KindByte }

// IsObject reports whether v holds an object reference.
func (v Value) IsObject() bool { return v.Kind == KindObject }

// Int returns the int64 payload. Callers must check IsInt first.
func (v Value) Int() int64 { return v.i }

// Float returns the float64 payload. Callers must check IsFloat first.
func (v Value) Float() float64 { return v.f }

// Bool returns the bool payload. Callers must check IsBool first.
func (v Value) Bool() bool { return v.b }

// Char returns the char payload. Callers must check IsChar first.
func (v Value) Char() byte { return v.ch }

// Byte returns the byte payload. Callers must check IsByte first.
func (v Value) Byte() byte { return v.by }

// Obj returns the object-reference payload, or nil. Callers must check
// IsObject first.
func (v Value) Obj() interface{} { return v.obj }

// IsNilObject reports whether v is an object reference whose payload is
// nil (the Ovum "null" sentinel).
func (v Value) IsNilObject() bool { return v.Kind == KindObject && v.obj == nil }

// String renders v for diagnostics.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindChar:
		return fmt.Sprintf("%q", rune(v.ch))
	case KindByte:
		return fmt.Sprintf("0x%02x", v.by)
	case KindObject:
		if v.obj == nil {
			return "<null>"
		}
		return fmt.Sprintf("<object %p>", v.obj)
	default:
		return "<invalid>"
	}
}
