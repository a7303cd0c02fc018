// Package builtin installs the seventeen reserved classes (Int, Float,
// Char, Byte, Bool, Nullable, String, File, the seven typed array
// classes IntArray through StringArray, Pointer, PointerArray) into a vtable repository and function store, and
// exposes the full opcode catalog as Executable builders for the
// bytecode parser.
//
// Every builtin method reachable through CallVirtual leaves exactly one
// value on the operand stack, matching Context.CallVirtual's contract.
// Mutating ("<M>") methods that have no natural result push a null
// object reference as a placeholder; callers discard it the same way a
// caller of a void function discards nothing in a language with real
// void returns.
package builtin

import (
	"strings"

	"github.com/kristofer/ovum/pkg/exec"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
)

// pushNull pushes the placeholder result of a void-returning method.
func pushNull(ctx *exec.Context) (exec.Outcome, error) {
	ctx.Stack.Push(value.Object(nil))
	return exec.Normal, nil
}

// methodDef is one function-store entry plus its optional virtual
// dispatch name. virtualName is empty for constructors and destructors;
// install maps a destructor under the vtable's `_destructor_<M>` name so
// that the garbage collector can find it.
type methodDef struct {
	virtualName string
	realID      string
	arity       int
	fn          func(ctx *exec.Context) (exec.Outcome, error)
}

func install(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore, vt *runtime.VirtualTable, defs []methodDef) error {
	for _, d := range defs {
		body := exec.NewCommand(d.realID, d.fn)
		fn := exec.NewFunction(d.realID, d.arity, body)
		if _, err := functions.Add(fn); err != nil {
			return err
		}
		if d.virtualName != "" {
			vt.AddMethod(d.virtualName, d.realID)
		} else if strings.HasSuffix(d.realID, "_destructor_<M>") {
			vt.AddMethod("_destructor_<M>", d.realID)
		}
	}
	_, err := vtables.Add(vt)
	return err
}

// Install registers every built-in class's vtable and functions into
// vtables and functions. It must run once, before any user bytecode is
// loaded, since user `vtable` declarations are added after these at
// fixed low indices (spec §4.2, §6).
func Install(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore) error {
	installers := []func(*runtime.VirtualTableRepository, *exec.FunctionStore) error{
		installInt,
		installFloat,
		installChar,
		installByte,
		installBool,
		installNullable,
		installString,
		installFile,
		installArray(arrayKindSpec{className: "IntArray", elementKind: value.KindInt, ctorArgType: "int"}),
		installArray(arrayKindSpec{className: "FloatArray", elementKind: value.KindFloat, ctorArgType: "float"}),
		installArray(arrayKindSpec{className: "CharArray", elementKind: value.KindChar, ctorArgType: "char"}),
		installArray(arrayKindSpec{className: "ByteArray", elementKind: value.KindByte, ctorArgType: "byte"}),
		installArray(arrayKindSpec{className: "BoolArray", elementKind: value.KindBool, ctorArgType: "bool"}),
		installArray(arrayKindSpec{className: "ObjectArray", elementKind: value.KindObject, ctorArgType: "Object"}),
		installArray(arrayKindSpec{className: "StringArray", elementKind: value.KindObject, ctorArgType: "String"}),
		installPointer,
		installArray(arrayKindSpec{className: "PointerArray", elementKind: value.KindObject, ctorArgType: "Pointer"}),
	}
	for _, step := range installers {
		if err := step(vtables, functions); err != nil {
			return err
		}
	}
	return nil
}

// receiverObject loads the method's receiver (always local 0) as an object.
func receiverObject(ctx *exec.Context, realID string) (*runtime.Object, error) {
	frame, err := ctx.Frames.Top()
	if err != nil {
		return nil, exec.Newf("%s: %s", realID, err.Error())
	}
	recv, err := frame.Local(0)
	if err != nil {
		return nil, exec.Newf("%s: %s", realID, err.Error())
	}
	if !recv.IsObject() || recv.Obj() == nil {
		return nil, exec.Newf("%s: receiver is not a live object", realID)
	}
	obj, ok := recv.Obj().(*runtime.Object)
	if !ok {
		return nil, exec.Newf("%s: receiver does not hold a runtime object", realID)
	}
	return obj, nil
}

func allocateString(ctx *exec.Context, s string) (value.Value, error) {
	idx, err := ctx.VTables.IndexOf("String")
	if err != nil {
		return value.Value{}, err
	}
	obj, err := ctx.Heap.Allocate(uint32(idx))
	if err != nil {
		return value.Value{}, err
	}
	obj.Str = s
	return value.Object(obj), nil
}

func allocateArray(ctx *exec.Context, className string, elements []value.Value) (value.Value, error) {
	idx, err := ctx.VTables.IndexOf(className)
	if err != nil {
		return value.Value{}, err
	}
	obj, err := ctx.Heap.Allocate(uint32(idx))
	if err != nil {
		return value.Value{}, err
	}
	obj.Elements = elements
	return value.Object(obj), nil
}
