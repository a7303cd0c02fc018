package builtin

import (
	"github.com/kristofer/ovum/pkg/exec"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
)

// installPointer registers the unsafe Pointer class. Ovum bytecode has no
// opcode that dereferences a Pointer; it exists only so that native
// built-ins (e.g. a future FFI boundary) have somewhere to stash an
// opaque handle. Equality compares by the Go object identity of the
// referenced runtime.Object; IsLess always reports false.
func installPointer(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore) error {
	vt := runtime.NewVirtualTable("Pointer", 16)
	vt.AddField("Object", runtime.FieldObject, 8)
	vt.AddInterface("IComparable")
	vt.AddInterface("IHashable")
	vt.SetScanner(runtime.ScannerDefault)

	return install(vtables, functions, vt, []methodDef{
		{realID: "_Pointer_pointer", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_Pointer_pointer")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_Pointer_pointer", 2)
			if err != nil {
				return 0, err
			}
			self.Fields[0] = args[1]
			return exec.Normal, nil
		}},
		{realID: "_Pointer_destructor_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) { return exec.Normal, nil }},
		{virtualName: "_Equals_<C>_IComparable", realID: "_Pointer_Equals_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Pointer_Equals_<C>_IComparable", 2)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(args[0].Obj() == args[1].Obj()))
			return exec.Normal, nil
		}},
		{virtualName: "_IsLess_<C>_IComparable", realID: "_Pointer_IsLess_<C>_IComparable", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			ctx.Stack.Push(value.Bool(false))
			return exec.Normal, nil
		}},
		{virtualName: "_GetHash_<C>", realID: "_Pointer_GetHash_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			args, err := locals(ctx, "_Pointer_GetHash_<C>", 1)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Int(pointerHash(args[0])))
			return exec.Normal, nil
		}},
	})
}
