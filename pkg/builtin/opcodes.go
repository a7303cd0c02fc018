package builtin

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"os/user"
	goruntime "runtime"
	"strconv"
	"strings"
	"time"

	"github.com/kristofer/ovum/pkg/exec"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
)

// NewSimpleCommand builds the Executable for a zero-argument opcode.
func NewSimpleCommand(name string) (exec.Executable, error) {
	fn, ok := simpleOpcodes[name]
	if !ok {
		return nil, exec.Newf("unknown zero-argument opcode %q", name)
	}
	return exec.NewCommand(name, fn), nil
}

// NewIntCommand builds the Executable for an opcode taking one integer
// literal (spec §4.5's int-arg group: PushInt, PushByte, Rotate,
// LoadLocal, SetLocal, LoadStatic, SetStatic, GetField, SetField).
func NewIntCommand(name string, n int64) (exec.Executable, error) {
	switch name {
	case "PushInt":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Int(n))
			return exec.Normal, nil
		}), nil
	case "PushByte":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Byte(byte(n)))
			return exec.Normal, nil
		}), nil
	case "Rotate":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			if err := ctx.Stack.Rotate(int(n)); err != nil {
				return 0, err
			}
			return exec.Normal, nil
		}), nil
	case "LoadLocal":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			frame, err := ctx.Frames.Top()
			if err != nil {
				return 0, err
			}
			v, err := frame.Local(int(n))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(v)
			return exec.Normal, nil
		}), nil
	case "SetLocal":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			frame, err := ctx.Frames.Top()
			if err != nil {
				return 0, err
			}
			v, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			if err := frame.SetLocal(int(n), v); err != nil {
				return 0, err
			}
			return exec.Normal, nil
		}), nil
	case "LoadStatic":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			v, err := ctx.StaticAt(int(n))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(v)
			return exec.Normal, nil
		}), nil
	case "SetStatic":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			v, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			if err := ctx.SetStaticAt(int(n), v); err != nil {
				return 0, err
			}
			return exec.Normal, nil
		}), nil
	case "GetField":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			recv, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			obj, err := objectPayload(recv, "GetField")
			if err != nil {
				return 0, err
			}
			v, err := obj.GetField(int(n))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(v)
			return exec.Normal, nil
		}), nil
	case "SetField":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			v, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			recv, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			obj, err := objectPayload(recv, "SetField")
			if err != nil {
				return 0, err
			}
			if err := obj.SetField(int(n), v); err != nil {
				return 0, err
			}
			return exec.Normal, nil
		}), nil
	default:
		return nil, exec.Newf("unknown integer-argument opcode %q", name)
	}
}

// NewFloatCommand builds the Executable for PushFloat.
func NewFloatCommand(name string, f float64) (exec.Executable, error) {
	if name != "PushFloat" {
		return nil, exec.Newf("unknown float-argument opcode %q", name)
	}
	return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
		ctx.Stack.Push(value.Float(f))
		return exec.Normal, nil
	}), nil
}

// NewBoolCommand builds the Executable for PushBool.
func NewBoolCommand(name string, b bool) (exec.Executable, error) {
	if name != "PushBool" {
		return nil, exec.Newf("unknown bool-argument opcode %q", name)
	}
	return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
		ctx.Stack.Push(value.Bool(b))
		return exec.Normal, nil
	}), nil
}

// NewStringCommand builds the Executable for an opcode taking one string
// literal (PushString, PushChar).
func NewStringCommand(name, s string) (exec.Executable, error) {
	switch name {
	case "PushString":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			obj, err := allocateString(ctx, s)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(obj)
			return exec.Normal, nil
		}), nil
	case "PushChar":
		if len(s) != 1 {
			return nil, exec.Newf("PushChar literal must be exactly one byte, got %q", s)
		}
		c := s[0]
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Char(c))
			return exec.Normal, nil
		}), nil
	default:
		return nil, exec.Newf("unknown string-argument opcode %q", name)
	}
}

// NewIdentCommand builds the Executable for an opcode taking one bare
// identifier (NewArray, Call, CallVirtual, CallConstructor, GetVTable,
// SetVTable, SafeCall, IsType, SizeOf).
func NewIdentCommand(name, ident string) (exec.Executable, error) {
	switch name {
	case "NewArray":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			idx, err := ctx.VTables.IndexOf(ident)
			if err != nil {
				return 0, err
			}
			obj, err := ctx.Heap.Allocate(uint32(idx))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Object(obj))
			return exec.Normal, nil
		}), nil
	case "Call":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			fn, err := ctx.Functions.ByID(ident)
			if err != nil {
				return 0, err
			}
			return fn.Execute(ctx)
		}), nil
	case "CallVirtual":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			recv, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			obj, err := objectPayload(recv, "CallVirtual")
			if err != nil {
				return 0, err
			}
			result, err := ctx.CallVirtual(obj, ident)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(result)
			return exec.Normal, nil
		}), nil
	case "CallConstructor":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			className, ok := constructorClassName(ident)
			if !ok {
				return 0, exec.Newf("CallConstructor: %q is not a well-formed constructor id", ident)
			}
			fn, err := ctx.Functions.ByID(ident)
			if err != nil {
				return 0, err
			}
			argc := fn.Arity() - 1
			if argc < 0 {
				return 0, exec.Newf("CallConstructor %s: constructor has no receiver slot", ident)
			}
			args, err := ctx.Stack.PopN(argc)
			if err != nil {
				return 0, err
			}
			idx, err := ctx.VTables.IndexOf(className)
			if err != nil {
				return 0, err
			}
			obj, err := ctx.Heap.Allocate(uint32(idx))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Object(obj))
			for _, a := range args {
				ctx.Stack.Push(a)
			}
			if _, err := fn.Execute(ctx); err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Object(obj))
			return exec.Normal, nil
		}), nil
	case "GetVTable":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			recv, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			obj, err := objectPayload(recv, "GetVTable")
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Int(int64(obj.Descriptor.VTableIndex)))
			return exec.Normal, nil
		}), nil
	case "SetVTable":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			idx, err := ctx.VTables.IndexOf(ident)
			if err != nil {
				return 0, err
			}
			recv, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			obj, err := objectPayload(recv, "SetVTable")
			if err != nil {
				return 0, err
			}
			obj.Descriptor.VTableIndex = uint32(idx)
			return exec.Normal, nil
		}), nil
	case "SafeCall":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			recv, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			if !recv.IsObject() {
				return 0, exec.Newf("SafeCall requires a nullable receiver")
			}
			if recv.Obj() == nil {
				ctx.Stack.Push(value.Object(nil))
				return exec.Normal, nil
			}
			obj, err := objectPayload(recv, "SafeCall")
			if err != nil {
				return 0, err
			}
			result, err := ctx.CallVirtual(obj, ident)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(result)
			return exec.Normal, nil
		}), nil
	case "IsType":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			recv, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			if !recv.IsObject() || recv.Obj() == nil {
				ctx.Stack.Push(value.Bool(primitiveClassName(recv.Kind) == ident))
				return exec.Normal, nil
			}
			vt, err := vtableOf(ctx, recv, "IsType")
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(vt.IsType(ident)))
			return exec.Normal, nil
		}), nil
	case "SizeOf":
		return exec.NewCommand(name, func(ctx *exec.Context) (exec.Outcome, error) {
			if vt, err := ctx.VTables.ByName(ident); err == nil {
				ctx.Stack.Push(value.Int(vt.Size()))
				return exec.Normal, nil
			}
			ctx.Stack.Push(value.Int(primitiveSize(ident)))
			return exec.Normal, nil
		}), nil
	default:
		return nil, exec.Newf("unknown identifier-argument opcode %q", name)
	}
}

// constructorClassName extracts the class name from a constructor
// function id of the form "_<Class>_<ArgType>_<ArgType>..." (e.g.
// "_IntArray_int_int", "_StringArray_int_String", or the bare
// no-argument "_File"), the convention the bytecode parser uses when it
// binds a CallConstructor site to a specific overload (spec §4.5: "the
// parser binds a specific constructor id when lowering"). No class name
// used by Install contains an underscore, so the class is always the
// first "_"-delimited segment.
func constructorClassName(id string) (string, bool) {
	if !strings.HasPrefix(id, "_") {
		return "", false
	}
	rest := id[1:]
	if rest == "" {
		return "", false
	}
	if i := strings.IndexByte(rest, '_'); i != -1 {
		return rest[:i], true
	}
	return rest, true
}

func vtableOf(ctx *exec.Context, v value.Value, opName string) (*runtime.VirtualTable, error) {
	obj, err := objectPayload(v, opName)
	if err != nil {
		return nil, err
	}
	return ctx.Heap.VTableOf(obj)
}

// primitiveClassName maps a primitive Kind to the built-in class name
// TypeOf and IsType compare against ("Int", "Float", ... match the
// vtable names installed by Install, not value.Kind.String()'s
// lowercase diagnostic spelling).
func primitiveClassName(k value.Kind) string {
	switch k {
	case value.KindInt:
		return "Int"
	case value.KindFloat:
		return "Float"
	case value.KindBool:
		return "Bool"
	case value.KindChar:
		return "Char"
	case value.KindByte:
		return "Byte"
	case value.KindObject:
		return "Object"
	default:
		return "unknown"
	}
}

func primitiveSize(name string) int64 {
	switch name {
	case "int", "Int":
		return 8
	case "float", "Float":
		return 8
	case "bool", "Bool":
		return 1
	case "char", "Char":
		return 1
	case "byte", "Byte":
		return 1
	default:
		return 0
	}
}

func intArith(op func(a, b int64) (int64, error)) func(ctx *exec.Context) (exec.Outcome, error) {
	return func(ctx *exec.Context) (exec.Outcome, error) {
		b, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		a, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		r, err := op(a.Int(), b.Int())
		if err != nil {
			return 0, err
		}
		ctx.Stack.Push(value.Int(r))
		return exec.Normal, nil
	}
}

func floatArith(op func(a, b float64) (float64, error)) func(ctx *exec.Context) (exec.Outcome, error) {
	return func(ctx *exec.Context) (exec.Outcome, error) {
		b, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		a, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		r, err := op(a.Float(), b.Float())
		if err != nil {
			return 0, err
		}
		ctx.Stack.Push(value.Float(r))
		return exec.Normal, nil
	}
}

func byteArith(op func(a, b byte) (byte, error)) func(ctx *exec.Context) (exec.Outcome, error) {
	return func(ctx *exec.Context) (exec.Outcome, error) {
		b, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		a, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		r, err := op(a.Byte(), b.Byte())
		if err != nil {
			return 0, err
		}
		ctx.Stack.Push(value.Byte(r))
		return exec.Normal, nil
	}
}

func intCompare(op func(a, b int64) bool) func(ctx *exec.Context) (exec.Outcome, error) {
	return func(ctx *exec.Context) (exec.Outcome, error) {
		b, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		a, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		ctx.Stack.Push(value.Bool(op(a.Int(), b.Int())))
		return exec.Normal, nil
	}
}

func floatCompare(op func(a, b float64) bool) func(ctx *exec.Context) (exec.Outcome, error) {
	return func(ctx *exec.Context) (exec.Outcome, error) {
		b, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		a, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		ctx.Stack.Push(value.Bool(op(a.Float(), b.Float())))
		return exec.Normal, nil
	}
}

func byteCompare(op func(a, b byte) bool) func(ctx *exec.Context) (exec.Outcome, error) {
	return func(ctx *exec.Context) (exec.Outcome, error) {
		b, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		a, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		ctx.Stack.Push(value.Bool(op(a.Byte(), b.Byte())))
		return exec.Normal, nil
	}
}

func unaryInt(op func(a int64) int64) func(ctx *exec.Context) (exec.Outcome, error) {
	return func(ctx *exec.Context) (exec.Outcome, error) {
		a, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		ctx.Stack.Push(value.Int(op(a.Int())))
		return exec.Normal, nil
	}
}

func unaryFloat(op func(a float64) (float64, error)) func(ctx *exec.Context) (exec.Outcome, error) {
	return func(ctx *exec.Context) (exec.Outcome, error) {
		a, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		r, err := op(a.Float())
		if err != nil {
			return 0, err
		}
		ctx.Stack.Push(value.Float(r))
		return exec.Normal, nil
	}
}

func unaryByte(op func(a byte) byte) func(ctx *exec.Context) (exec.Outcome, error) {
	return func(ctx *exec.Context) (exec.Outcome, error) {
		a, err := ctx.Stack.Pop()
		if err != nil {
			return 0, err
		}
		ctx.Stack.Push(value.Byte(op(a.Byte())))
		return exec.Normal, nil
	}
}

var simpleOpcodes = buildSimpleOpcodes()

func buildSimpleOpcodes() map[string]func(ctx *exec.Context) (exec.Outcome, error) {
	m := map[string]func(ctx *exec.Context) (exec.Outcome, error){
		"PushNull": func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Object(nil))
			return exec.Normal, nil
		},
		"Pop": func(ctx *exec.Context) (exec.Outcome, error) {
			_, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			return exec.Normal, nil
		},
		"Dup": func(ctx *exec.Context) (exec.Outcome, error) {
			if err := ctx.Stack.Dup(); err != nil {
				return 0, err
			}
			return exec.Normal, nil
		},
		"Swap": func(ctx *exec.Context) (exec.Outcome, error) {
			if err := ctx.Stack.Swap(); err != nil {
				return 0, err
			}
			return exec.Normal, nil
		},
		"Return": func(ctx *exec.Context) (exec.Outcome, error) {
			return exec.Return, nil
		},
		"CallIndirect": func(ctx *exec.Context) (exec.Outcome, error) {
			idxVal, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			fn, err := ctx.Functions.ByIndex(int(idxVal.Int()))
			if err != nil {
				return 0, err
			}
			return fn.Execute(ctx)
		},

		// Int arithmetic
		"IntAdd": intArith(func(a, b int64) (int64, error) { return a + b, nil }),
		"IntSubtract": intArith(func(a, b int64) (int64, error) { return a - b, nil }),
		"IntMultiply": intArith(func(a, b int64) (int64, error) { return a * b, nil }),
		"IntDivide": intArith(func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, exec.Newf("IntDivide: division by zero")
			}
			return a / b, nil
		}),
		"IntModulo": intArith(func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, exec.Newf("IntModulo: division by zero")
			}
			return a % b, nil
		}),
		"IntNegate": unaryInt(func(a int64) int64 { return -a }),
		"IntIncrement": unaryInt(func(a int64) int64 { return a + 1 }),
		"IntDecrement": unaryInt(func(a int64) int64 { return a - 1 }),

		// Int bitwise
		"IntAnd": intArith(func(a, b int64) (int64, error) { return a & b, nil }),
		"IntOr": intArith(func(a, b int64) (int64, error) { return a | b, nil }),
		"IntXor": intArith(func(a, b int64) (int64, error) { return a ^ b, nil }),
		"IntNot": unaryInt(func(a int64) int64 { return ^a }),
		"IntLeftShift": intArith(func(a, b int64) (int64, error) { return a << uint64(b), nil }),
		"IntRightShift": intArith(func(a, b int64) (int64, error) { return a >> uint64(b), nil }),

		// Int comparisons
		"IntEqual": intCompare(func(a, b int64) bool { return a == b }),
		"IntNotEqual": intCompare(func(a, b int64) bool { return a != b }),
		"IntLessThan": intCompare(func(a, b int64) bool { return a < b }),
		"IntLessEqual": intCompare(func(a, b int64) bool { return a <= b }),
		"IntGreaterThan": intCompare(func(a, b int64) bool { return a > b }),
		"IntGreaterEqual": intCompare(func(a, b int64) bool { return a >= b }),

		// Float arithmetic
		"FloatAdd": floatArith(func(a, b float64) (float64, error) { return a + b, nil }),
		"FloatSubtract": floatArith(func(a, b float64) (float64, error) { return a - b, nil }),
		"FloatMultiply": floatArith(func(a, b float64) (float64, error) { return a * b, nil }),
		"FloatDivide": floatArith(func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, exec.Newf("FloatDivide: division by zero")
			}
			return a / b, nil
		}),
		"FloatNegate": unaryFloat(func(a float64) (float64, error) { return -a, nil }),
		"FloatIncrement": unaryFloat(func(a float64) (float64, error) { return a + 1, nil }),
		"FloatDecrement": unaryFloat(func(a float64) (float64, error) { return a - 1, nil }),
		"FloatSqrt": unaryFloat(floatSqrt),

		// Float comparisons
		"FloatEqual": floatCompare(func(a, b float64) bool { return a == b }),
		"FloatNotEqual": floatCompare(func(a, b float64) bool { return a != b }),
		"FloatLessThan": floatCompare(func(a, b float64) bool { return a < b }),
		"FloatLessEqual": floatCompare(func(a, b float64) bool { return a <= b }),
		"FloatGreaterThan": floatCompare(func(a, b float64) bool { return a > b }),
		"FloatGreaterEqual": floatCompare(func(a, b float64) bool { return a >= b }),

		// Byte arithmetic (wraps modulo 256)
		"ByteAdd": byteArith(func(a, b byte) (byte, error) { return a + b, nil }),
		"ByteSubtract": byteArith(func(a, b byte) (byte, error) { return a - b, nil }),
		"ByteMultiply": byteArith(func(a, b byte) (byte, error) { return a * b, nil }),
		"ByteDivide": byteArith(func(a, b byte) (byte, error) {
			if b == 0 {
				return 0, exec.Newf("ByteDivide: division by zero")
			}
			return a / b, nil
		}),
		"ByteModulo": byteArith(func(a, b byte) (byte, error) {
			if b == 0 {
				return 0, exec.Newf("ByteModulo: division by zero")
			}
			return a % b, nil
		}),
		"ByteNegate": unaryByte(func(a byte) byte { return -a }),
		"ByteIncrement": unaryByte(func(a byte) byte { return a + 1 }),
		"ByteDecrement": unaryByte(func(a byte) byte { return a - 1 }),

		// Byte bitwise
		"ByteAnd": byteArith(func(a, b byte) (byte, error) { return a & b, nil }),
		"ByteOr": byteArith(func(a, b byte) (byte, error) { return a | b, nil }),
		"ByteXor": byteArith(func(a, b byte) (byte, error) { return a ^ b, nil }),
		"ByteNot": unaryByte(func(a byte) byte { return ^a }),
		"ByteLeftShift": byteArith(func(a, b byte) (byte, error) { return a << b, nil }),
		"ByteRightShift": byteArith(func(a, b byte) (byte, error) { return a >> b, nil }),

		// Byte comparisons
		"ByteEqual": byteCompare(func(a, b byte) bool { return a == b }),
		"ByteNotEqual": byteCompare(func(a, b byte) bool { return a != b }),
		"ByteLessThan": byteCompare(func(a, b byte) bool { return a < b }),
		"ByteLessEqual": byteCompare(func(a, b byte) bool { return a <= b }),
		"ByteGreaterThan": byteCompare(func(a, b byte) bool { return a > b }),
		"ByteGreaterEqual": byteCompare(func(a, b byte) bool { return a >= b }),

		// Bool logic
		"BoolAnd": func(ctx *exec.Context) (exec.Outcome, error) {
			b, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(a.Bool() && b.Bool()))
			return exec.Normal, nil
		},
		"BoolOr": func(ctx *exec.Context) (exec.Outcome, error) {
			b, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(a.Bool() || b.Bool()))
			return exec.Normal, nil
		},
		"BoolXor": func(ctx *exec.Context) (exec.Outcome, error) {
			b, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(a.Bool() != b.Bool()))
			return exec.Normal, nil
		},
		"BoolNot": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(!a.Bool()))
			return exec.Normal, nil
		},

		// Conversions
		"IntToFloat": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Float(float64(a.Int())))
			return exec.Normal, nil
		},
		"FloatToInt": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Int(int64(a.Float())))
			return exec.Normal, nil
		},
		"ByteToInt": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Int(int64(a.Byte())))
			return exec.Normal, nil
		},
		"CharToByte": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Byte(a.Char()))
			return exec.Normal, nil
		},
		"ByteToChar": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Char(a.Byte()))
			return exec.Normal, nil
		},
		"BoolToByte": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			var b byte
			if a.Bool() {
				b = 1
			}
			ctx.Stack.Push(value.Byte(b))
			return exec.Normal, nil
		},
		"StringToInt": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			obj, err := objectPayload(a, "StringToInt")
			if err != nil {
				return 0, err
			}
			n, err := strconv.ParseInt(obj.Str, 10, 64)
			if err != nil {
				return 0, exec.Newf("StringToInt: %s", err.Error())
			}
			ctx.Stack.Push(value.Int(n))
			return exec.Normal, nil
		},
		"StringToFloat": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			obj, err := objectPayload(a, "StringToFloat")
			if err != nil {
				return 0, err
			}
			f, err := strconv.ParseFloat(obj.Str, 64)
			if err != nil {
				return 0, exec.Newf("StringToFloat: %s", err.Error())
			}
			ctx.Stack.Push(value.Float(f))
			return exec.Normal, nil
		},
		"IntToString": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			s, err := allocateString(ctx, strconv.FormatInt(a.Int(), 10))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		},
		"FloatToString": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			s, err := allocateString(ctx, strconv.FormatFloat(a.Float(), 'f', 6, 64))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		},

		// Strings
		"StringConcat":    stringConcat,
		"StringLength":    stringLength,
		"StringSubstring": stringSubstring,
		"StringCompare":   stringCompare,

		// Nullable & safe
		"IsNull": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(a.IsNilObject()))
			return exec.Normal, nil
		},
		"NullCoalesce": func(ctx *exec.Context) (exec.Outcome, error) {
			def, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			nullable, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			if nullable.IsNilObject() {
				ctx.Stack.Push(def)
			} else {
				ctx.Stack.Push(nullable)
			}
			return exec.Normal, nil
		},
		"Unwrap": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			if a.IsNilObject() {
				return 0, exec.Newf("Unwrap: value is null")
			}
			ctx.Stack.Push(a)
			return exec.Normal, nil
		},

		// Introspection
		"TypeOf": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			name := primitiveClassName(a.Kind)
			if a.IsObject() && a.Obj() != nil {
				if vt, verr := vtableName(ctx, a); verr == nil {
					name = vt
				}
			}
			s, err := allocateString(ctx, name)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		},

		// I/O & environment
		"Print": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			fmt.Fprint(ctx.Stdout, renderValue(ctx, a))
			return exec.Normal, nil
		},
		"PrintLine": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			fmt.Fprintln(ctx.Stdout, renderValue(ctx, a))
			return exec.Normal, nil
		},
		"ReadLine": func(ctx *exec.Context) (exec.Outcome, error) {
			line, err := bufio.NewReader(ctx.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return 0, exec.Newf("ReadLine: %s", err.Error())
			}
			s, err := allocateString(ctx, trimNewline(line))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		},
		"ReadChar": func(ctx *exec.Context) (exec.Outcome, error) {
			buf := make([]byte, 1)
			if _, err := ctx.Stdin.Read(buf); err != nil {
				return 0, exec.Newf("ReadChar: %s", err.Error())
			}
			ctx.Stack.Push(value.Char(buf[0]))
			return exec.Normal, nil
		},
		"ReadInt": func(ctx *exec.Context) (exec.Outcome, error) {
			line, err := bufio.NewReader(ctx.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return 0, exec.Newf("ReadInt: %s", err.Error())
			}
			n, err := strconv.ParseInt(trimNewline(line), 10, 64)
			if err != nil {
				return 0, exec.Newf("ReadInt: %s", err.Error())
			}
			ctx.Stack.Push(value.Int(n))
			return exec.Normal, nil
		},
		"ReadFloat": func(ctx *exec.Context) (exec.Outcome, error) {
			line, err := bufio.NewReader(ctx.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return 0, exec.Newf("ReadFloat: %s", err.Error())
			}
			f, err := strconv.ParseFloat(trimNewline(line), 64)
			if err != nil {
				return 0, exec.Newf("ReadFloat: %s", err.Error())
			}
			ctx.Stack.Push(value.Float(f))
			return exec.Normal, nil
		},
		"UnixTime": func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Int(time.Now().Unix()))
			return exec.Normal, nil
		},
		"UnixTimeMs": func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Int(time.Now().UnixMilli()))
			return exec.Normal, nil
		},
		"UnixTimeNs": func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Int(time.Now().UnixNano()))
			return exec.Normal, nil
		},
		"NanoTime": func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Int(time.Now().UnixNano()))
			return exec.Normal, nil
		},
		"Sleep": func(ctx *exec.Context) (exec.Outcome, error) {
			n, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			time.Sleep(time.Duration(n.Int()) * time.Second)
			return exec.Normal, nil
		},
		"SleepMs": func(ctx *exec.Context) (exec.Outcome, error) {
			n, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			time.Sleep(time.Duration(n.Int()) * time.Millisecond)
			return exec.Normal, nil
		},
		"Random": func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Int(ctx.Rand.Int63()))
			return exec.Normal, nil
		},
		"RandomRange": func(ctx *exec.Context) (exec.Outcome, error) {
			hi, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			lo, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			span := hi.Int() - lo.Int()
			if span <= 0 {
				return 0, exec.Newf("RandomRange: empty range [%d, %d)", lo.Int(), hi.Int())
			}
			ctx.Stack.Push(value.Int(lo.Int() + ctx.Rand.Int63n(span)))
			return exec.Normal, nil
		},
		"RandomFloat": func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Float(ctx.Rand.Float64()))
			return exec.Normal, nil
		},
		"RandomFloatRange": func(ctx *exec.Context) (exec.Outcome, error) {
			hi, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			lo, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Float(lo.Float() + ctx.Rand.Float64()*(hi.Float()-lo.Float())))
			return exec.Normal, nil
		},
		"SeedRandom": func(ctx *exec.Context) (exec.Outcome, error) {
			n, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			ctx.Rand.Seed(n.Int())
			return exec.Normal, nil
		},
		"GetOsName": func(ctx *exec.Context) (exec.Outcome, error) {
			s, err := allocateString(ctx, goruntime.GOOS)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		},
		"GetOsVersion": func(ctx *exec.Context) (exec.Outcome, error) {
			s, err := allocateString(ctx, goruntime.Version())
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		},
		"GetArchitecture": func(ctx *exec.Context) (exec.Outcome, error) {
			s, err := allocateString(ctx, goruntime.GOARCH)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		},
		"GetUserName": func(ctx *exec.Context) (exec.Outcome, error) {
			name := "unknown"
			if u, err := user.Current(); err == nil {
				name = u.Username
			}
			s, err := allocateString(ctx, name)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		},
		"GetHomeDirectory": func(ctx *exec.Context) (exec.Outcome, error) {
			home, _ := os.UserHomeDir()
			s, err := allocateString(ctx, home)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		},
		"GetProcessId": func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Int(int64(os.Getpid())))
			return exec.Normal, nil
		},
		"FileExists": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			path, err := objectPayload(a, "FileExists")
			if err != nil {
				return 0, err
			}
			info, statErr := os.Stat(path.Str)
			ctx.Stack.Push(value.Bool(statErr == nil && !info.IsDir()))
			return exec.Normal, nil
		},
		"DirectoryExists": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			path, err := objectPayload(a, "DirectoryExists")
			if err != nil {
				return 0, err
			}
			info, statErr := os.Stat(path.Str)
			ctx.Stack.Push(value.Bool(statErr == nil && info.IsDir()))
			return exec.Normal, nil
		},
		"CreateDirectory": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			path, err := objectPayload(a, "CreateDirectory")
			if err != nil {
				return 0, err
			}
			if err := os.MkdirAll(path.Str, 0755); err != nil {
				return 0, exec.Newf("CreateDirectory: %s", err.Error())
			}
			return exec.Normal, nil
		},
		"DeleteFile": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			path, err := objectPayload(a, "DeleteFile")
			if err != nil {
				return 0, err
			}
			if err := os.Remove(path.Str); err != nil {
				return 0, exec.Newf("DeleteFile: %s", err.Error())
			}
			return exec.Normal, nil
		},
		"DeleteDirectory": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			path, err := objectPayload(a, "DeleteDirectory")
			if err != nil {
				return 0, err
			}
			if err := os.RemoveAll(path.Str); err != nil {
				return 0, exec.Newf("DeleteDirectory: %s", err.Error())
			}
			return exec.Normal, nil
		},
		"GetEnvironmentVariable": func(ctx *exec.Context) (exec.Outcome, error) {
			a, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			obj, err := objectPayload(a, "GetEnvironmentVariable")
			if err != nil {
				return 0, err
			}
			s, err := allocateString(ctx, os.Getenv(obj.Str))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(s)
			return exec.Normal, nil
		},
		"SetEnvironmentVariable": func(ctx *exec.Context) (exec.Outcome, error) {
			val, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			key, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			keyObj, err := objectPayload(key, "SetEnvironmentVariable")
			if err != nil {
				return 0, err
			}
			valObj, err := objectPayload(val, "SetEnvironmentVariable")
			if err != nil {
				return 0, err
			}
			if err := os.Setenv(keyObj.Str, valObj.Str); err != nil {
				return 0, exec.Newf("SetEnvironmentVariable: %s", err.Error())
			}
			return exec.Normal, nil
		},
		"Exit": func(ctx *exec.Context) (exec.Outcome, error) {
			n, err := ctx.Stack.Pop()
			if err != nil {
				return 0, err
			}
			os.Exit(int(n.Int()))
			return exec.Normal, nil
		},
	}
	return m
}

func floatSqrt(a float64) (float64, error) {
	if a < 0 {
		return 0, exec.Newf("FloatSqrt: negative argument %g", a)
	}
	return math.Sqrt(a), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func renderValue(ctx *exec.Context, v value.Value) string {
	if !v.IsObject() {
		return v.String()
	}
	if v.Obj() == nil {
		return "null"
	}
	obj, ok := v.Obj().(*runtime.Object)
	if !ok {
		return v.String()
	}
	if vt, err := ctx.Heap.VTableOf(obj); err == nil && vt.Name() == "String" {
		return obj.Str
	}
	return v.String()
}

func vtableName(ctx *exec.Context, v value.Value) (string, error) {
	obj, err := objectPayload(v, "TypeOf")
	if err != nil {
		return "", err
	}
	vt, err := ctx.Heap.VTableOf(obj)
	if err != nil {
		return "", err
	}
	return vt.Name(), nil
}
