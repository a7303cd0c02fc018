package builtin

import (
	"os"

	"github.com/kristofer/ovum/pkg/exec"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
)

func installFile(vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore) error {
	vt := runtime.NewVirtualTable("File", 16)
	vt.AddField("Object", runtime.FieldObject, 8)
	vt.SetScanner(runtime.ScannerEmpty)

	return install(vtables, functions, vt, []methodDef{
		{realID: "_File", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) { return exec.Normal, nil }},
		{realID: "_File_destructor_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_File_destructor_<M>")
			if err != nil {
				return 0, err
			}
			if self.File != nil {
				_ = self.File.Close()
				self.File = nil
			}
			return exec.Normal, nil
		}},
		{virtualName: "_Open_<M>_String_String", realID: "_File_Open_<M>_String_String", arity: 3, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_File_Open_<M>_String_String")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_File_Open_<M>_String_String", 3)
			if err != nil {
				return 0, err
			}
			pathObj, err := objectPayload(args[1], "_File_Open_<M>_String_String")
			if err != nil {
				return 0, err
			}
			modeObj, err := objectPayload(args[2], "_File_Open_<M>_String_String")
			if err != nil {
				return 0, err
			}
			flag, err := openFlag(modeObj.Str)
			if err != nil {
				return 0, err
			}
			f, err := os.OpenFile(pathObj.Str, flag, 0644)
			if err != nil {
				return 0, exec.Newf("_File_Open_<M>_String_String: %s", err.Error())
			}
			self.File = f
			return pushNull(ctx)
		}},
		{virtualName: "_Close_<M>", realID: "_File_Close_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_File_Close_<M>")
			if err != nil {
				return 0, err
			}
			if self.File != nil {
				if err := self.File.Close(); err != nil {
					return 0, exec.Newf("_File_Close_<M>: %s", err.Error())
				}
				self.File = nil
			}
			return pushNull(ctx)
		}},
		{virtualName: "_IsOpen_<C>", realID: "_File_IsOpen_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_File_IsOpen_<C>")
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(value.Bool(self.File != nil))
			return exec.Normal, nil
		}},
		{virtualName: "_Read_<M>_Int", realID: "_File_Read_<M>_Int", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_File_Read_<M>_Int")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_File_Read_<M>_Int", 2)
			if err != nil {
				return 0, err
			}
			if self.File == nil {
				return 0, exec.Newf("_File_Read_<M>_Int: file is not open")
			}
			n := args[1].Int()
			buf := make([]byte, n)
			read, err := self.File.Read(buf)
			if err != nil && read == 0 {
				return 0, exec.Newf("_File_Read_<M>_Int: %s", err.Error())
			}
			elements := make([]value.Value, read)
			for i := 0; i < read; i++ {
				elements[i] = value.Byte(buf[i])
			}
			arr, err := allocateArray(ctx, "ByteArray", elements)
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(arr)
			return exec.Normal, nil
		}},
		{virtualName: "_Write_<M>_ByteArray", realID: "_File_Write_<M>_ByteArray", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_File_Write_<M>_ByteArray")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_File_Write_<M>_ByteArray", 2)
			if err != nil {
				return 0, err
			}
			if self.File == nil {
				return 0, exec.Newf("_File_Write_<M>_ByteArray: file is not open")
			}
			payload, err := objectPayload(args[1], "_File_Write_<M>_ByteArray")
			if err != nil {
				return 0, err
			}
			buf := make([]byte, len(payload.Elements))
			for i, v := range payload.Elements {
				buf[i] = v.Byte()
			}
			if _, err := self.File.Write(buf); err != nil {
				return 0, exec.Newf("_File_Write_<M>_ByteArray: %s", err.Error())
			}
			return pushNull(ctx)
		}},
		{virtualName: "_ReadLine_<M>", realID: "_File_ReadLine_<M>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_File_ReadLine_<M>")
			if err != nil {
				return 0, err
			}
			if self.File == nil {
				return 0, exec.Newf("_File_ReadLine_<M>: file is not open")
			}
			var line []byte
			one := make([]byte, 1)
			for {
				n, err := self.File.Read(one)
				if n == 1 {
					if one[0] == '\n' {
						break
					}
					line = append(line, one[0])
				}
				if err != nil {
					break
				}
			}
			result, err := allocateString(ctx, string(line))
			if err != nil {
				return 0, err
			}
			ctx.Stack.Push(result)
			return exec.Normal, nil
		}},
		{virtualName: "_WriteLine_<M>_String", realID: "_File_WriteLine_<M>_String", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_File_WriteLine_<M>_String")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_File_WriteLine_<M>_String", 2)
			if err != nil {
				return 0, err
			}
			if self.File == nil {
				return 0, exec.Newf("_File_WriteLine_<M>_String: file is not open")
			}
			line, err := objectPayload(args[1], "_File_WriteLine_<M>_String")
			if err != nil {
				return 0, err
			}
			if _, err := self.File.Write([]byte(line.Str + "\n")); err != nil {
				return 0, exec.Newf("_File_WriteLine_<M>_String: %s", err.Error())
			}
			return pushNull(ctx)
		}},
		{virtualName: "_Seek_<M>_Int", realID: "_File_Seek_<M>_Int", arity: 2, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_File_Seek_<M>_Int")
			if err != nil {
				return 0, err
			}
			args, err := locals(ctx, "_File_Seek_<M>_Int", 2)
			if err != nil {
				return 0, err
			}
			if self.File == nil {
				return 0, exec.Newf("_File_Seek_<M>_Int: file is not open")
			}
			if _, err := self.File.Seek(args[1].Int(), os.SEEK_SET); err != nil {
				return 0, exec.Newf("_File_Seek_<M>_Int: %s", err.Error())
			}
			return pushNull(ctx)
		}},
		{virtualName: "_Tell_<C>", realID: "_File_Tell_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_File_Tell_<C>")
			if err != nil {
				return 0, err
			}
			if self.File == nil {
				return 0, exec.Newf("_File_Tell_<C>: file is not open")
			}
			pos, err := self.File.Seek(0, os.SEEK_CUR)
			if err != nil {
				return 0, exec.Newf("_File_Tell_<C>: %s", err.Error())
			}
			ctx.Stack.Push(value.Int(pos))
			return exec.Normal, nil
		}},
		{virtualName: "_Eof_<C>", realID: "_File_Eof_<C>", arity: 1, fn: func(ctx *exec.Context) (exec.Outcome, error) {
			self, err := receiverObject(ctx, "_File_Eof_<C>")
			if err != nil {
				return 0, err
			}
			if self.File == nil {
				ctx.Stack.Push(value.Bool(true))
				return exec.Normal, nil
			}
			one := make([]byte, 1)
			pos, _ := self.File.Seek(0, os.SEEK_CUR)
			n, err := self.File.Read(one)
			_, _ = self.File.Seek(pos, os.SEEK_SET)
			ctx.Stack.Push(value.Bool(n == 0 || err != nil))
			return exec.Normal, nil
		}},
	})
}

func openFlag(mode string) (int, error) {
	switch mode {
	case "r":
		return os.O_RDONLY, nil
	case "w":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "a":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "r+", "rw":
		return os.O_RDWR, nil
	default:
		return 0, exec.Newf("unknown file mode %q", mode)
	}
}
