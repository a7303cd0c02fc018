package exec

import (
	"math"

	"github.com/kristofer/ovum/pkg/value"
)

// PureFunction wraps an inner Callable and memoizes its result by a
// fingerprint computed over the argument list, on the assumption that the
// wrapped function is referentially transparent (spec §4.3). The VM does
// not verify purity beyond the declared argument-type check below.
type PureFunction struct {
	Inner    Callable
	ArgTypes []string

	cache map[int64]value.Value
}

// NewPureFunction wraps inner, checking each call's actual argument types
// against argTypes (one expected type name per arity slot).
func NewPureFunction(inner Callable, argTypes []string) *PureFunction {
	return &PureFunction{Inner: inner, ArgTypes: argTypes, cache: make(map[int64]value.Value)}
}

// ID, Arity, ExecutionCount and TotalActionCount delegate to Inner, so
// wrappers transparently expose the wrapped function's identity and
// counters (spec §4.3: "All wrappers expose the inner's id, arity, and
// counters").
func (p *PureFunction) ID() string              { return p.Inner.ID() }
func (p *PureFunction) Arity() int              { return p.Inner.Arity() }
func (p *PureFunction) ExecutionCount() int64   { return p.Inner.ExecutionCount() }
func (p *PureFunction) TotalActionCount() int64 { return p.Inner.TotalActionCount() }

// Execute implements the five-step PureFunction protocol from spec §4.3.
func (p *PureFunction) Execute(ctx *Context) (Outcome, error) {
	arity := p.Inner.Arity()
	if len(p.ArgTypes) != arity {
		return 0, Newf("%s: pure function declares %d argument types for arity %d", p.Inner.ID(), len(p.ArgTypes), arity)
	}
	if ctx.Stack.Depth() < arity {
		return 0, Newf("%s: insufficient arguments: need %d, have %d", p.Inner.ID(), arity, ctx.Stack.Depth())
	}

	args, err := ctx.Stack.PopN(arity)
	if err != nil {
		return 0, Newf("%s: %s", p.Inner.ID(), err.Error())
	}

	fingerprint := int64(1469598103934665603) // FNV offset basis
	for i, arg := range args {
		actual, err := ctx.typeName(arg)
		if err != nil {
			return 0, err
		}
		expected := p.ArgTypes[i]
		if !ctx.typeMatches(arg, actual, expected) {
			return 0, Newf("%s: argument %d has type %s, expected %s", p.Inner.ID(), i, actual, expected)
		}

		h, err := ctx.fingerprintOf(arg)
		if err != nil {
			return 0, err
		}
		fingerprint = (fingerprint ^ h) * 1099511628211
	}

	if cached, ok := p.cache[fingerprint]; ok {
		ctx.Stack.Push(cached)
		return Normal, nil
	}

	for _, arg := range args {
		ctx.Stack.Push(arg)
	}
	depthBefore := ctx.Stack.Depth() - arity
	outcome, err := p.Inner.Execute(ctx)
	if err != nil {
		return 0, err
	}
	if outcome != Normal {
		return outcome, nil
	}
	if ctx.Stack.Depth() != depthBefore+1 {
		return 0, Newf("%s: pure function body must leave exactly one result on the stack", p.Inner.ID())
	}
	result, err := ctx.Stack.Pop()
	if err != nil {
		return 0, err
	}

	p.cache[fingerprint] = result
	ctx.Stack.Push(result)
	return Normal, nil
}

// typeName returns v's actual type name for PureFunction's compatibility
// check: the primitive tag name, or the referenced object's vtable name.
func (c *Context) typeName(v value.Value) (string, error) {
	if !v.IsObject() {
		return primitiveTypeName(v.Kind), nil
	}
	if v.IsNilObject() {
		return "", Newf("cannot determine the type of a null object reference")
	}
	vt, err := c.vtableOfValue(v)
	if err != nil {
		return "", err
	}
	return vt.Name(), nil
}

// primitiveTypeName maps a primitive Kind to the lowercase tag name a
// `pure(...)` declaration spells it with ("int", "float", ...). Boxed
// built-in objects are matched by their vtable name ("Int") instead.
func primitiveTypeName(k value.Kind) string {
	switch k {
	case value.KindInt:
		return "int"
	case value.KindFloat:
		return "float"
	case value.KindBool:
		return "bool"
	case value.KindChar:
		return "char"
	case value.KindByte:
		return "byte"
	default:
		return k.String()
	}
}

// typeMatches checks spec §4.3 step 3: primitives must match exactly;
// object references must satisfy is-type against expected.
func (c *Context) typeMatches(v value.Value, actual, expected string) bool {
	if !v.IsObject() {
		return actual == expected
	}
	vt, err := c.vtableOfValue(v)
	if err != nil {
		return false
	}
	return vt.IsType(expected)
}

// fingerprintOf computes the memoization-key contribution of a single
// argument: a hash of its value for primitives, or the result of its
// `_GetHash_<C>` virtual method for an object reference.
func (c *Context) fingerprintOf(v value.Value) (int64, error) {
	switch v.Kind {
	case value.KindInt:
		return v.Int(), nil
	case value.KindFloat:
		return int64(math.Float64bits(v.Float())), nil
	case value.KindBool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	case value.KindChar:
		return int64(v.Char()), nil
	case value.KindByte:
		return int64(v.Byte()), nil
	case value.KindObject:
		obj, err := c.objectOfValue(v)
		if err != nil {
			return 0, err
		}
		result, err := c.CallVirtual(obj, "_GetHash_<C>")
		if err != nil {
			return 0, err
		}
		if !result.IsInt() {
			return 0, Newf("_GetHash_<C> must return int, got %s", result.Kind)
		}
		return result.Int(), nil
	default:
		return 0, Newf("cannot fingerprint value of kind %s", v.Kind)
	}
}
