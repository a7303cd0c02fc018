package builtin

import (
	"math"
	"strconv"

	"github.com/kristofer/ovum/pkg/exec"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
)

// locals reads the current frame's locals 0..n-1, failing with realID in
// the message if the frame or an index is unavailable.
func locals(ctx *exec.Context, realID string, n int) ([]value.Value, error) {
	frame, err := ctx.Frames.Top()
	if err != nil {
		return nil, exec.Newf("%s: %s", realID, err.Error())
	}
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		v, err := frame.Local(i)
		if err != nil {
			return nil, exec.Newf("%s: %s", realID, err.Error())
		}
		out[i] = v
	}
	return out, nil
}

// primitiveClass bundles the field shape shared by Int/Float/Char/Byte/
// Bool: a single scalar payload, no outgoing references, full
// IComparable/IHashable/IStringConvertible support.
func primitiveClass(name string, fieldName string, fieldType runtime.FieldValueType, size int64) *runtime.VirtualTable {
	vt := runtime.NewVirtualTable(name, size)
	vt.AddField(fieldName, fieldType, 8)
	vt.AddInterface("IComparable")
	vt.AddInterface("IHashable")
	vt.AddInterface("IStringConvertible")
	vt.SetScanner(runtime.ScannerEmpty)
	return vt
}

func installInt(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore) error {
	vt := primitiveClass("Int", "int", runtime.FieldInt, 16)
	return install(vtables, functions, vt, []methodDef{
		{realID: "_Int_int", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_Int_int")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_Int_int", 2)
			if err != nil {
				return 0, err
			}
			self.Fields[0] = args[1]
			return exec.Normal, nil
		}},
		{realID: "_Int_destructor_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) { return exec.Normal, nil }},
		{virtualName: "_Equals_<C>_IComparable", realID: "_Int_Equals_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Int_Equals_<C>_IComparable", 2)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(args[0].Int() == args[1].Int()))
			return exec.Normal, nil
		}},
		{virtualName: "_IsLess_<C>_IComparable", realID: "_Int_IsLess_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Int_IsLess_<C>_IComparable", 2)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(args[0].Int() < args[1].Int()))
			return exec.Normal, nil
		}},
		{virtualName: "_ToString_<C>", realID: "_Int_ToString_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Int_ToString_<C>", 1)
			if err != nil {
				return 0, err
			}
			s, err := allocateString(ctx, strconv.FormatInt(args[0].Int(), 10))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		}},
		{virtualName: "_GetHash_<C>", realID: "_Int_GetHash_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Int_GetHash_<C>", 1)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Int(args[0].Int()))
			return exec.Normal, nil
		}},
	})
}

func installFloat(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore) error {
	vt := primitiveClass("Float", "float", runtime.FieldFloat, 16)
	return install(vtables, functions, vt, []methodDef{
		{realID: "_Float_float", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_Float_float")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_Float_float", 2)
			if err != nil {
				return 0, err
			}
			self.Fields[0] = args[1]
			return exec.Normal, nil
		}},
		{realID: "_Float_destructor_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) { return exec.Normal, nil }},
		{virtualName: "_Equals_<C>_IComparable", realID: "_Float_Equals_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Float_Equals_<C>_IComparable", 2)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(args[0].Float() == args[1].Float()))
			return exec.Normal, nil
		}},
		{virtualName: "_IsLess_<C>_IComparable", realID: "_Float_IsLess_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Float_IsLess_<C>_IComparable", 2)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(args[0].Float() < args[1].Float()))
			return exec.Normal, nil
		}},
		{virtualName: "_ToString_<C>", realID: "_Float_ToString_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Float_ToString_<C>", 1)
			if err != nil {
				return 0, err
			}
			s, err := allocateString(ctx, strconv.FormatFloat(args[0].Float(), 'f', 6, 64))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		}},
		{virtualName: "_GetHash_<C>", realID: "_Float_GetHash_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Float_GetHash_<C>", 1)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Int(int64(math.Float64bits(args[0].Float()))))
			return exec.Normal, nil
		}},
	})
}

func installChar(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore) error {
	vt := primitiveClass("Char", "char", runtime.FieldChar, 9)
	return install(vtables, functions, vt, []methodDef{
		{realID: "_Char_char", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_Char_char")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_Char_char", 2)
			if err != nil {
				return 0, err
			}
			self.Fields[0] = args[1]
			return exec.Normal, nil
		}},
		{realID: "_Char_destructor_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) { return exec.Normal, nil }},
		{virtualName: "_Equals_<C>_IComparable", realID: "_Char_Equals_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Char_Equals_<C>_IComparable", 2)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(args[0].Char() == args[1].Char()))
			return exec.Normal, nil
		}},
		{virtualName: "_IsLess_<C>_IComparable", realID: "_Char_IsLess_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Char_IsLess_<C>_IComparable", 2)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(args[0].Char() < args[1].Char()))
			return exec.Normal, nil
		}},
		{virtualName: "_ToString_<C>", realID: "_Char_ToString_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Char_ToString_<C>", 1)
			if err != nil {
				return 0, err
			}
			s, err := allocateString(ctx, string(rune(args[0].Char())))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		}},
		{virtualName: "_GetHash_<C>", realID: "_Char_GetHash_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Char_GetHash_<C>", 1)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Int(int64(args[0].Char())))
			return exec.Normal, nil
		}},
	})
}

func installByte(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore) error {
	vt := primitiveClass("Byte", "byte", runtime.FieldByte, 9)
	return install(vtables, functions, vt, []methodDef{
		{realID: "_Byte_byte", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_Byte_byte")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_Byte_byte", 2)
			if err != nil {
				return 0, err
			}
			self.Fields[0] = args[1]
			return exec.Normal, nil
		}},
		{realID: "_Byte_destructor_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) { return exec.Normal, nil }},
		{virtualName: "_Equals_<C>_IComparable", realID: "_Byte_Equals_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Byte_Equals_<C>_IComparable", 2)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(args[0].Byte() == args[1].Byte()))
			return exec.Normal, nil
		}},
		{virtualName: "_IsLess_<C>_IComparable", realID: "_Byte_IsLess_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Byte_IsLess_<C>_IComparable", 2)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(args[0].Byte() < args[1].Byte()))
			return exec.Normal, nil
		}},
		{virtualName: "_ToString_<C>", realID: "_Byte_ToString_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Byte_ToString_<C>", 1)
			if err != nil {
				return 0, err
			}
			s, err := allocateString(ctx, strconv.Itoa(int(args[0].Byte())))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		}},
		{virtualName: "_GetHash_<C>", realID: "_Byte_GetHash_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Byte_GetHash_<C>", 1)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Int(int64(args[0].Byte())))
			return exec.Normal, nil
		}},
	})
}

func installBool(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore) error {
	vt := primitiveClass("Bool", "bool", runtime.FieldBool, 9)
	return install(vtables, functions, vt, []methodDef{
		{realID: "_Bool_bool", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_Bool_bool")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_Bool_bool", 2)
			if err != nil {
				return 0, err
			}
			self.Fields[0] = args[1]
			return exec.Normal, nil
		}},
		{realID: "_Bool_destructor_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) { return exec.Normal, nil }},
		{virtualName: "_Equals_<C>_IComparable", realID: "_Bool_Equals_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Bool_Equals_<C>_IComparable", 2)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(args[0].Bool() == args[1].Bool()))
			return exec.Normal, nil
		}},
		{virtualName: "_IsLess_<C>_IComparable", realID: "_Bool_IsLess_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Bool_IsLess_<C>_IComparable", 2)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(!args[0].Bool() && args[1].Bool()))
			return exec.Normal, nil
		}},
		{virtualName: "_ToString_<C>", realID: "_Bool_ToString_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Bool_ToString_<C>", 1)
			if err != nil {
				return 0, err
			}
			s, err := allocateString(ctx, strconv.FormatBool(args[0].Bool()))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		}},
		{virtualName: "_GetHash_<C>", realID: "_Bool_GetHash_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Bool_GetHash_<C>", 1)
			if err != nil {
				return 0, err
			}
			h := int64(0)
			if args[0].Bool() {
				h = 1
			}
			ctx.Stack.Push(value.Int(h))
			return exec.Normal, nil
		}},
	})
}
