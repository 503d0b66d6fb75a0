package machine

import (
	"fmt"

	"github.com/kaelith/lang/lang/value"
)

// DefineStdlib registers the host-provided functions every program sees as
// globals: log, str, len, and type (§6.1). It must be called before Run.
func (th *Thread) DefineStdlib() {
	th.Define("log", 1, th.nativeLog)
	th.Define("str", 1, nativeStr)
	th.Define("len", 1, nativeLen)
	th.Define("type", 1, nativeType)
}

// nativeLog prints v's string form followed by a newline to the thread's
// output writer, and returns v unchanged.
func (th *Thread) nativeLog(args []value.Value) (value.Value, error) {
	v := args[0]
	fmt.Fprintln(th.stdout, v.String())
	return v, nil
}

// nativeStr converts v to its string representation.
func nativeStr(args []value.Value) (value.Value, error) {
	return value.NewStr(args[0].String()), nil
}

// nativeLen reports the length of an array, object, or string.
func nativeLen(args []value.Value) (value.Value, error) {
	switch v := args[0].(type) {
	case *value.Array:
		return value.Num(len(v.Elems)), nil
	case *value.Object:
		return value.Num(v.Len()), nil
	case value.Str:
		return value.Num(len(v.String())), nil
	default:
		return nil, fmt.Errorf("len: unsupported operand of type %s", v.Type())
	}
}

// nativeType names v's runtime type.
func nativeType(args []value.Value) (value.Value, error) {
	return value.NewStr(args[0].Type()), nil
}
