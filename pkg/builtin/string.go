package builtin

import (
	"hash/fnv"
	"strings"

	"github.com/kristofer/ovum/pkg/exec"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
)

func installNullable(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore) error {
	vt := runtime.NewVirtualTable("Nullable", 16)
	vt.AddField("Object", runtime.FieldObject, 8)
	vt.SetScanner(runtime.ScannerDefault)
	return install(vtables, functions, vt, []methodDef{
		{realID: "_Nullable_Object", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_Nullable_Object")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_Nullable_Object", 2)
			if err != nil {
				return 0, err
			}
			self.Fields[0] = args[1]
			return exec.Normal, nil
		}},
		{realID: "_Nullable_destructor_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) { return exec.Normal, nil }},
	})
}

func installString(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore) error {
	vt := runtime.NewVirtualTable("String", 16)
	vt.AddField("Object", runtime.FieldObject, 8)
	vt.AddInterface("IComparable")
	vt.AddInterface("IHashable")
	vt.AddInterface("IStringConvertible")
	vt.SetScanner(runtime.ScannerEmpty)

	other := func(ctx *exec.Context, realID string) (*runtime.Object, error) {
		frame, err := ctx.Frames.Top()
		if err != nil {
			return nil, exec.Newf("%s: %s", realID, err.Error())
		}
		v, err := frame.Local(1)
		if err != nil {
			return nil, exec.Newf("%s: %s", realID, err.Error())
		}
		if !v.IsObject() || v.Obj() == nil {
			return nil, exec.Newf("%s: argument is not a live String", realID)
		}
		obj, ok := v.Obj().(*runtime.Object)
		if !ok {
			return nil, exec.Newf("%s: argument does not hold a runtime object", realID)
		}
		return obj, nil
	}

	return install(vtables, functions, vt, []methodDef{
		{realID: "_String_String", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_String_String")
			if err != nil {
				return 0, err
			}
			o, err := other(ctx, "_String_String")
			if err != nil {
				return 0, err
			}
			self.Str = o.Str
			return exec.Normal, nil
		}},
		{realID: "_String_destructor_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) { return exec.Normal, nil }},
		{virtualName: "_Equals_<C>_IComparable", realID: "_String_Equals_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_String_Equals_<C>_IComparable")
			if err != nil {
				return 0, err
			}
			o, err := other(ctx, "_String_Equals_<C>_IComparable")
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(self.Str == o.Str))
			return exec.Normal, nil
		}},
		{virtualName: "_IsLess_<C>_IComparable", realID: "_String_IsLess_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_String_IsLess_<C>_IComparable")
			if err != nil {
				return 0, err
			}
			o, err := other(ctx, "_String_IsLess_<C>_IComparable")
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(self.Str < o.Str))
			return exec.Normal, nil
		}},
		{virtualName: "_ToString_<C>", realID: "_String_ToString_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_String_ToString_<C>")
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Object(self))
			return exec.Normal, nil
		}},
		{virtualName: "_GetHash_<C>", realID: "_String_GetHash_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_String_GetHash_<C>")
			if err != nil {
				return 0, err
			}
			h := fnv.New64a()
			_, _ = h.Write([]byte(self.Str))
			ctx.Stack.Push(value.Int(int64(h.Sum64())))
			return exec.Normal, nil
		}},
		{virtualName: "_Length_<C>", realID: "_String_Length_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_String_Length_<C>")
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Int(int64(len(self.Str))))
			return exec.Normal, nil
		}},
		{virtualName: "_ToUtf8Bytes_<C>", realID: "_String_ToUtf8Bytes_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_String_ToUtf8Bytes_<C>")
			if err != nil {
				return 0, err
			}
			bytes := []byte(self.Str)
			elements := make([]value.Value, len(bytes))
			for i, b := range bytes {
				elements[i] = value.Byte(b)
			}
			arr, err := allocateArray(ctx, "ByteArray", elements)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(arr)
			return exec.Normal, nil
		}},
	})
}

// stringConcat is exposed as the StringConcat opcode, not a virtual
// method: it takes its two String operands straight off the operand
// stack rather than through a frame (spec §4.5's Strings group).
func stringConcat(ctx *exec.Context) (exec.Outcome, error) {
	b, err := ctx.Stack.Pop()
	if err != nil {
		return 0, err
	}
	a, err := ctx.Stack.Pop()
	if err != nil {
		return 0, err
	}
	aObj, err := objectPayload(a, "StringConcat")
	if err != nil {
		return 0, err
	}
	bObj, err := objectPayload(b, "StringConcat")
	if err != nil {
		return 0, err
	}
	var sb strings.Builder
	sb.WriteString(aObj.Str)
	sb.WriteString(bObj.Str)
	result, err := allocateString(ctx, sb.String())
	if err != nil {
		return 0, err
	}
	ctx.Stack.Push(result)
	return exec.Normal, nil
}

func stringLength(ctx *exec.Context) (exec.Outcome, error) {
	v, err := ctx.Stack.Pop()
	if err != nil {
		return 0, err
	}
	obj, err := objectPayload(v, "StringLength")
	if err != nil {
		return 0, err
	}
	ctx.Stack.Push(value.Int(int64(len(obj.Str))))
	return exec.Normal, nil
}

func stringSubstring(ctx *exec.Context) (exec.Outcome, error) {
	length, err := ctx.Stack.Pop()
	if err != nil {
		return 0, err
	}
	start, err := ctx.Stack.Pop()
	if err != nil {
		return 0, err
	}
	s, err := ctx.Stack.Pop()
	if err != nil {
		return 0, err
	}
	obj, err := objectPayload(s, "StringSubstring")
	if err != nil {
		return 0, err
	}
	lo, n := int(start.Int()), int(length.Int())
	if lo < 0 || n < 0 || lo+n > len(obj.Str) {
		return 0, exec.Newf("StringSubstring: range [%d, %d) out of bounds for length %d", lo, lo+n, len(obj.Str))
	}
	result, err := allocateString(ctx, obj.Str[lo:lo+n])
	if err != nil {
		return 0, err
	}
	ctx.Stack.Push(result)
	return exec.Normal, nil
}

func stringCompare(ctx *exec.Context) (exec.Outcome, error) {
	b, err := ctx.Stack.Pop()
	if err != nil {
		return 0, err
	}
	a, err := ctx.Stack.Pop()
	if err != nil {
		return 0, err
	}
	aObj, err := objectPayload(a, "StringCompare")
	if err != nil {
		return 0, err
	}
	bObj, err := objectPayload(b, "StringCompare")
	if err != nil {
		return 0, err
	}
	ctx.Stack.Push(value.Int(int64(strings.Compare(aObj.Str, bObj.Str))))
	return exec.Normal, nil
}

func objectPayload(v value.Value, opName string) (*runtime.Object, error) {
	if !v.IsObject() || v.Obj() == nil {
		return nil, exec.Newf("%s: expected a live object, got %s", opName, v.Kind)
	}
	obj, ok := v.Obj().(*runtime.Object)
	if !ok {
		return nil, exec.Newf("%s: value does not hold a runtime object", opName)
	}
	return obj, nil
}
