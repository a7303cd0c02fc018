package builtin

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/kristofer/ovum/pkg/exec"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
)

// arrayKindSpec names a built-in array class and the Kind its elements
// must hold. ObjectArray, StringArray and PointerArray all store object
// references; they differ only in which class their elements are
// expected to point at, a constraint this package does not enforce
// (spec §4.5 does not require runtime element-type checking beyond the
// Kind match).
type arrayKindSpec struct {
	className   string
	elementKind value.Kind
	// ctorArgType is the lowercase-or-class spelling the original
	// built-in factory uses for this element type in the constructor and
	// SetAt ids (e.g. "int", "float", "Object", "String"), matching
	// builtin_factory.cpp's "_IntArray_int_int" / "_StringArray_int_String"
	// and "_StringArray_SetAt_<M>_int_String".
	ctorArgType string
}

func normalizeIndex(i, n int) (int, error) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, exec.Newf("index %d out of range for length %d", i, n)
	}
	return i, nil
}

func valuesEqual(a, b value.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case value.KindInt:
		return a.Int() == b.Int()
	case value.KindFloat:
		return a.Float() == b.Float()
	case value.KindBool:
		return a.Bool() == b.Bool()
	case value.KindChar:
		return a.Char() == b.Char()
	case value.KindByte:
		return a.Byte() == b.Byte()
	case value.KindObject:
		if a.Obj() == nil || b.Obj() == nil {
			return a.Obj() == b.Obj()
		}
		aObj, aOK := a.Obj().(*runtime.Object)
		bObj, bOK := b.Obj().(*runtime.Object)
		if aOK && bOK && (aObj.Str != "" || bObj.Str != "") {
			return aObj.Str == bObj.Str
		}
		return a.Obj() == b.Obj()
	default:
		return false
	}
}

func valuesLess(a, b value.Value) bool {
	switch a.Kind {
	case value.KindInt:
		return a.Int() < b.Int()
	case value.KindFloat:
		return a.Float() < b.Float()
	case value.KindBool:
		return !a.Bool() && b.Bool()
	case value.KindChar:
		return a.Char() < b.Char()
	case value.KindByte:
		return a.Byte() < b.Byte()
	case value.KindObject:
		aObj, aOK := a.Obj().(*runtime.Object)
		bObj, bOK := b.Obj().(*runtime.Object)
		if aOK && bOK {
			return aObj.Str < bObj.Str
		}
		return false
	default:
		return false
	}
}

func pointerHash(v value.Value) int64 {
	if !v.IsObject() || v.Obj() == nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%p", v.Obj())
	return int64(h.Sum64())
}

func valueFingerprint(v value.Value) int64 {
	switch v.Kind {
	case value.KindInt:
		return v.Int()
	case value.KindFloat:
		return int64(math.Float64bits(v.Float()))
	case value.KindBool:
		if v.Bool() {
			return 1
		}
		return 0
	case value.KindChar:
		return int64(v.Char())
	case value.KindByte:
		return int64(v.Byte())
	case value.KindObject:
		if obj, ok := v.Obj().(*runtime.Object); ok && obj != nil && obj.Str != "" {
			h := fnv.New64a()
			_, _ = h.Write([]byte(obj.Str))
			return int64(h.Sum64())
		}
		return pointerHash(v)
	default:
		return 0
	}
}

// installArray returns an installer for one of the eight array classes,
// sharing a single implementation over runtime.Object.Elements across
// every element Kind (spec §4.5's Arrays group: "per-element-type
// methods... invoked as virtual methods").
func installArray(spec arrayKindSpec) func(*runtime.VirtualTableRepository, *exec.FunctionStore) error {
	return func(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore) error {
		vt := runtime.NewVirtualTable(spec.className, 16)
		vt.AddField("Object", runtime.FieldObject, 8)
		vt.AddInterface("IComparable")
		vt.AddInterface("IHashable")
		if spec.elementKind == value.KindObject {
			vt.SetScanner(runtime.ScannerArray)
		} else {
			vt.SetScanner(runtime.ScannerEmpty)
		}

		prefix := "_" + spec.className
		checkElement := func(v value.Value, op string) error {
			if v.Kind != spec.elementKind {
				return exec.Newf("%s: expected element of kind %s, got %s", op, spec.elementKind, v.Kind)
			}
			return nil
		}

		ctorID := prefix + "_int_" + spec.ctorArgType
		return install(vtables, functions, vt, []methodDef{
			{realID: ctorID, arity: 3, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, ctorID)
				if err != nil {
					return 0, err
				}
				args, err := locals(ctx, ctorID, 3)
				if err != nil {
					return 0, err
				}
				size := args[1].Int()
				if size < 0 {
					return 0, exec.Newf("%s: negative size %d", ctorID, size)
				}
				if err := checkElement(args[2], ctorID); err != nil {
					return 0, err
				}
				elements := make([]value.Value, size)
				for i := range elements {
					elements[i] = args[2]
				}
				self.Elements = elements
				return exec.Normal, nil
			}},
			{realID: prefix + "_destructor_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) { return exec.Normal, nil }},
			{virtualName: "Add", realID: prefix + "_Add_<M>_" + spec.className, arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_Add")
				if err != nil {
					return 0, err
				}
				args, err := locals(ctx, prefix+"_Add", 2)
				if err != nil {
					return 0, err
				}
				if err := checkElement(args[1], prefix+"_Add"); err != nil {
					return 0, err
				}
				self.Elements = append(self.Elements, args[1])
				return pushNull(ctx)
			}},
			{virtualName: "GetAt", realID: prefix + "_GetAt_<C>_int", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_GetAt")
				if err != nil {
					return 0, err
				}
				args, err := locals(ctx, prefix+"_GetAt", 2)
				if err != nil {
					return 0, err
				}
				i, err := normalizeIndex(int(args[1].Int()), len(self.Elements))
				if err != nil {
					return 0, exec.Newf("%s_GetAt: %s", prefix, err.Error())
				}
				ctx.Stack.Push(self.Elements[i])
				return exec.Normal, nil
			}},
			{virtualName: "SetAt", realID: prefix + "_SetAt_<M>_int_" + spec.ctorArgType, arity: 3, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_SetAt")
				if err != nil {
					return 0, err
				}
				args, err := locals(ctx, prefix+"_SetAt", 3)
				if err != nil {
					return 0, err
				}
				if err := checkElement(args[2], prefix+"_SetAt"); err != nil {
					return 0, err
				}
				i, err := normalizeIndex(int(args[1].Int()), len(self.Elements))
				if err != nil {
					return 0, exec.Newf("%s_SetAt: %s", prefix, err.Error())
				}
				self.Elements[i] = args[2]
				return pushNull(ctx)
			}},
			{virtualName: "InsertAt", realID: prefix + "_InsertAt_<M>_int_" + spec.className, arity: 3, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_InsertAt")
				if err != nil {
					return 0, err
				}
				args, err := locals(ctx, prefix+"_InsertAt", 3)
				if err != nil {
					return 0, err
				}
				if err := checkElement(args[2], prefix+"_InsertAt"); err != nil {
					return 0, err
				}
				i := int(args[1].Int())
				if i < 0 {
					i += len(self.Elements)
				}
				if i < 0 || i > len(self.Elements) {
					return 0, exec.Newf("%s_InsertAt: index %d out of range for length %d", prefix, i, len(self.Elements))
				}
				self.Elements = append(self.Elements, value.Value{})
				copy(self.Elements[i+1:], self.Elements[i:])
				self.Elements[i] = args[2]
				return pushNull(ctx)
			}},
			{virtualName: "RemoveAt", realID: prefix + "_RemoveAt_<M>_int", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_RemoveAt")
				if err != nil {
					return 0, err
				}
				args, err := locals(ctx, prefix+"_RemoveAt", 2)
				if err != nil {
					return 0, err
				}
				i, err := normalizeIndex(int(args[1].Int()), len(self.Elements))
				if err != nil {
					return 0, exec.Newf("%s_RemoveAt: %s", prefix, err.Error())
				}
				self.Elements = append(self.Elements[:i], self.Elements[i+1:]...)
				return pushNull(ctx)
			}},
			{virtualName: "Length", realID: prefix + "_Length_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_Length")
				if err != nil {
					return 0, err
				}
				ctx.Stack.Push(value.Int(int64(len(self.Elements))))
				return exec.Normal, nil
			}},
			{virtualName: "Reserve", realID: prefix + "_Reserve_<M>_int", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_Reserve")
				if err != nil {
					return 0, err
				}
				args, err := locals(ctx, prefix+"_Reserve", 2)
				if err != nil {
					return 0, err
				}
				n := int(args[1].Int())
				if n > cap(self.Elements) {
					grown := make([]value.Value, len(self.Elements), n)
					copy(grown, self.Elements)
					self.Elements = grown
				}
				return pushNull(ctx)
			}},
			{virtualName: "Capacity", realID: prefix + "_Capacity_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_Capacity")
				if err != nil {
					return 0, err
				}
				ctx.Stack.Push(value.Int(int64(cap(self.Elements))))
				return exec.Normal, nil
			}},
			{virtualName: "Clear", realID: prefix + "_Clear_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_Clear")
				if err != nil {
					return 0, err
				}
				self.Elements = self.Elements[:0]
				return pushNull(ctx)
			}},
			{virtualName: "ShrinkToFit", realID: prefix + "_ShrinkToFit_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_ShrinkToFit")
				if err != nil {
					return 0, err
				}
				shrunk := make([]value.Value, len(self.Elements))
				copy(shrunk, self.Elements)
				self.Elements = shrunk
				return pushNull(ctx)
			}},
			{virtualName: "_Equals_<C>_IComparable", realID: prefix + "_Equals_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_Equals")
				if err != nil {
					return 0, err
				}
				other, err := receiverArgObject(ctx, prefix+"_Equals", 1)
				if err != nil {
					return 0, err
				}
				ctx.Stack.Push(value.Bool(elementsEqual(self.Elements, other.Elements)))
				return exec.Normal, nil
			}},
			{virtualName: "_IsLess_<C>_IComparable", realID: prefix + "_IsLess_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_IsLess")
				if err != nil {
					return 0, err
				}
				other, err := receiverArgObject(ctx, prefix+"_IsLess", 1)
				if err != nil {
					return 0, err
				}
				ctx.Stack.Push(value.Bool(elementsLess(self.Elements, other.Elements)))
				return exec.Normal, nil
			}},
			{virtualName: "_GetHash_<C>", realID: prefix + "_GetHash_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
				self, err := receiverObject(ctx, prefix+"_GetHash")
				if err != nil {
					return 0, err
				}
				fp := int64(1469598103934665603)
				for _, v := range self.Elements {
					fp = (fp ^ valueFingerprint(v)) * 1099511628211
				}
				ctx.Stack.Push(value.Int(fp))
				return exec.Normal, nil
			}},
		})
	}
}

func receiverArgObject(ctx *exec.Context, opName string, localIdx int) (*runtime.Object, error) {
	frame, err := ctx.Frames.Top()
	if err != nil {
		return nil, exec.Newf("%s: %s", opName, err.Error())
	}
	v, err := frame.Local(localIdx)
	if err != nil {
		return nil, exec.Newf("%s: %s", opName, err.Error())
	}
	return objectPayload(v, opName)
}

func elementsEqual(a, b []value.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func elementsLess(a, b []value.Value) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if valuesLess(a[i], b[i]) {
			return true
		}
		if valuesLess(b[i], a[i]) {
			return false
		}
	}
	return len(a) < len(b)
}
