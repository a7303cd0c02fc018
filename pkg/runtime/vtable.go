package runtime

import "github.com/pkg/errors"

// FieldValueType is the declared type tag of a vtable field entry.
type FieldValueType uint8

const (
	FieldInt FieldValueType = iota
	FieldFloat
	FieldBool
	FieldChar
	FieldByte
	FieldObject
)

// FieldInfo describes one declared field of a class: its value-type tag,
// its byte offset (kept for ABI fidelity with the original implementation;
// GetField/SetField address fields positionally, not by offset), and an
// optional name used only for diagnostics (spec §9 open question: the
// runtime's field table is indexed positionally, the name is never used
// for lookup).
type FieldInfo struct {
	Name   string
	Type   FieldValueType
	Offset int64
}

// ScannerKind selects which of the three reference-scanner strategies a
// vtable uses during GC marking.
type ScannerKind uint8

const (
	// ScannerEmpty visits no outgoing references (Int, Float, Char, Byte,
	// Bool, String, and fundamental primitive arrays).
	ScannerEmpty ScannerKind = iota
	// ScannerDefault iterates declared fields whose value-type is Object
	// and visits the pointer stored there, if non-null.
	ScannerDefault
	// ScannerArray interprets the payload as a vector of object
	// references and visits every non-null entry (ObjectArray,
	// StringArray, PointerArray).
	ScannerArray
)

// VirtualTable is a class descriptor: its name, the byte size required to
// allocate one instance (including the 8-byte descriptor), its field
// table, its interface set, its virtual-to-real method map, and its
// reference-scanner strategy. A VirtualTable is immutable after
// installation into a VirtualTableRepository.
type VirtualTable struct {
	name       string
	size       int64
	fields     []FieldInfo
	interfaces map[string]struct{}
	methods    map[string]string
	scanner    ScannerKind
}

// NewVirtualTable creates a vtable for the given class name and instance
// size (including the descriptor).
func NewVirtualTable(name string, size int64) *VirtualTable {
	return &VirtualTable{
		name:       name,
		size:       size,
		interfaces: make(map[string]struct{}),
		methods:    make(map[string]string),
		scanner:    ScannerEmpty,
	}
}

// Name returns the class name.
func (vt *VirtualTable) Name() string { return vt.name }

// Size returns the instance size in bytes, including the descriptor.
func (vt *VirtualTable) Size() int64 { return vt.size }

// SetSize overrides the declared instance size. Used by the `size : N`
// vtable directive.
func (vt *VirtualTable) SetSize(size int64) { vt.size = size }

// Fields returns the declared field table, in declaration order.
func (vt *VirtualTable) Fields() []FieldInfo { return vt.fields }

// AddField appends a field entry. Duplicate (type, offset) pairs are
// accepted silently and not deduplicated, per spec §9's open question.
func (vt *VirtualTable) AddField(name string, t FieldValueType, offset int64) {
	vt.fields = append(vt.fields, FieldInfo{Name: name, Type: t, Offset: offset})
}

// Field returns the field at positional index i.
func (vt *VirtualTable) Field(i int) (FieldInfo, error) {
	if i < 0 || i >= len(vt.fields) {
		return FieldInfo{}, errors.Errorf("field index %d out of range for %s (have %d fields)", i, vt.name, len(vt.fields))
	}
	return vt.fields[i], nil
}

// AddInterface adds an interface name to the vtable's interface set.
func (vt *VirtualTable) AddInterface(name string) {
	vt.interfaces[name] = struct{}{}
}

// Interfaces returns the set of interface names the class declares,
// excluding the implicit type-name membership handled by IsType.
func (vt *VirtualTable) Interfaces() map[string]struct{} { return vt.interfaces }

// IsType reports whether name matches the vtable's own type name or one
// of its declared interfaces.
func (vt *VirtualTable) IsType(name string) bool {
	if name == vt.name {
		return true
	}
	_, ok := vt.interfaces[name]
	return ok
}

// AddMethod installs a virtual-method-id -> real-function-id mapping.
func (vt *VirtualTable) AddMethod(virtualID, realID string) {
	vt.methods[virtualID] = realID
}

// RealFunctionID resolves a virtual method id to the real function id
// that implements it.
func (vt *VirtualTable) RealFunctionID(virtualID string) (string, error) {
	real, ok := vt.methods[virtualID]
	if !ok {
		return "", errors.Errorf("vtable %s has no method mapping for %q", vt.name, virtualID)
	}
	return real, nil
}

// SetScanner sets the reference-scanner strategy used during GC marking.
func (vt *VirtualTable) SetScanner(kind ScannerKind) { vt.scanner = kind }

// Scanner returns the reference-scanner strategy.
func (vt *VirtualTable) Scanner() ScannerKind { return vt.scanner }
