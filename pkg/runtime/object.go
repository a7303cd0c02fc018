package runtime

import (
	"github.com/kristofer/ovum/pkg/value"
	"github.com/pkg/errors"
)

// Object is a heap-allocated instance of some installed vtable.
//
// Spec §3 describes an object as a contiguous byte region with an 8-byte
// descriptor prefix and payload fields placed at declared byte offsets.
// This implementation keeps the descriptor literally, but represents the
// payload with typed Go storage instead of raw bytes: Fields holds
// positionally-addressed field values (GetField/SetField opcodes index by
// vtable-field-index, not byte offset, so this is a faithful and more
// idiomatic rendition -- see DESIGN.md). Elements, Str and File hold the
// payloads of the built-in container/string/file classes, which are not
// expressed as declared fields.
type Object struct {
	Descriptor ObjectDescriptor

	// Fields holds one Value per declared field, in vtable.Fields() order.
	Fields []value.Value

	// Elements holds the payload of a built-in array class
	// (IntArray, FloatArray, ..., ObjectArray, StringArray, PointerArray).
	Elements []value.Value

	// Str holds the payload of a String instance.
	Str string

	// File holds the payload of a File instance. Nil until Open succeeds.
	File FileHandle
}

// FileHandle is the narrow interface the File built-in class needs from
// an open file; *os.File satisfies it. Kept as an interface so tests can
// substitute an in-memory fake.
type FileHandle interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

// NewObject allocates a zero-valued Object for vt: Fields sized to the
// vtable's declared field count, all other payloads empty.
func NewObject(vtableIndex uint32, vt *VirtualTable) *Object {
	return &Object{
		Descriptor: ObjectDescriptor{VTableIndex: vtableIndex},
		Fields:     make([]value.Value, len(vt.Fields())),
	}
}

// GetField reads the field at positional index i.
func (o *Object) GetField(i int) (value.Value, error) {
	if i < 0 || i >= len(o.Fields) {
		return value.Value{}, fieldIndexError(i, len(o.Fields))
	}
	return o.Fields[i], nil
}

// SetField writes the field at positional index i.
func (o *Object) SetField(i int, v value.Value) error {
	if i < 0 || i >= len(o.Fields) {
		return fieldIndexError(i, len(o.Fields))
	}
	o.Fields[i] = v
	return nil
}

func fieldIndexError(i, n int) error {
	return errors.Errorf("field index %d out of range (have %d fields)", i, n)
}
