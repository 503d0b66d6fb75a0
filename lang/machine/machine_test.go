package machine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kaelith/lang/lang/compiler"
	"github.com/kaelith/lang/lang/machine"
	"github.com/kaelith/lang/lang/parser"
	"github.com/kaelith/lang/lang/value"
)

// runSrc compiles and runs src on a fresh Thread, returning its captured
// stdout and the top-level script's return value.
func runSrc(t *testing.T, src string) (string, value.Value) {
	t.Helper()
	ch, err := parser.Parse("test", []byte(src))
	require.NoError(t, err)
	proto, err := compiler.Compile("test", ch)
	require.NoError(t, err)

	var out strings.Builder
	th := machine.NewThread()
	th.Stdout = &out
	th.DefineStdlib()

	result, err := th.Run(proto)
	require.NoError(t, err)
	return out.String(), result
}

func TestArithmetic(t *testing.T) {
	out, _ := runSrc(t, `x := 2 + 3 * 4; log(x)`)
	require.Equal(t, "14\n", out)
}

func TestIfElifElse(t *testing.T) {
	out, _ := runSrc(t, `n := 2; if n == 1 { log("a") } elif n == 2 { log("b") } else { log("c") }`)
	require.Equal(t, "b\n", out)
}

func TestForLoopWithRange(t *testing.T) {
	out, _ := runSrc(t, `total := 0; for i : 1..5 { total = total + i }; log(total)`)
	require.Equal(t, "10\n", out)
}

func TestClosureCapture(t *testing.T) {
	out, _ := runSrc(t, `
make_counter : -> {
  c := 0
  : -> { c = c + 1; c }
}
f := make_counter()
log(f()); log(f()); log(f())
`)
	require.Equal(t, "1\n2\n3\n", out)
}

func TestOperatorOverload(t *testing.T) {
	out, _ := runSrc(t, `
v := [| x=1, "+" : a b -> [| x = a.x + b.x |] |]
w := [| x=2 |]
log((v + w).x)
`)
	require.Equal(t, "3\n", out)
}

func TestArrayAndWith(t *testing.T) {
	out, _ := runSrc(t, `a := [| k=1 |] with [| k=9, j=2 |]; log(a.k); log(a.j)`)
	require.Equal(t, "9\n2\n", out)
}

// TestGlobalRoundTrip pins the "write then read a global" equivalence law
// of §8: a program that only writes and reads a single global through
// glob_d/glob_g yields the written value back through log.
func TestGlobalRoundTrip(t *testing.T) {
	out, _ := runSrc(t, `g := 42; log(g)`)
	require.Equal(t, "42\n", out)
}

// TestIndexAssignRoundTrip pins §8's `a[i] = v; a[i]` equivalence law.
func TestIndexAssignRoundTrip(t *testing.T) {
	out, _ := runSrc(t, `a := [1, 2, 3]; a[1] = 99; log(a[1])`)
	require.Equal(t, "99\n", out)
}

func TestDivisionByZeroProducesInfNotError(t *testing.T) {
	out, _ := runSrc(t, `log(1 / 0)`)
	require.Equal(t, "+Inf\n", out)
}

func TestModuloByZeroProducesNaNNotError(t *testing.T) {
	out, _ := runSrc(t, `log(1 % 0)`)
	require.Equal(t, "NaN\n", out)
}

func TestCallingNonCallableIsRuntimeError(t *testing.T) {
	ch, err := parser.Parse("test", []byte(`x := 1; x()`))
	require.NoError(t, err)
	proto, err := compiler.Compile("test", ch)
	require.NoError(t, err)
	th := machine.NewThread()
	th.DefineStdlib()
	_, runErr := th.Run(proto)
	require.Error(t, runErr)
	require.Contains(t, runErr.Error(), "attempt to call a")
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	ch, err := parser.Parse("test", []byte(`f : a -> { a }; f()`))
	require.NoError(t, err)
	proto, err := compiler.Compile("test", ch)
	require.NoError(t, err)
	th := machine.NewThread()
	th.DefineStdlib()
	_, runErr := th.Run(proto)
	require.Error(t, runErr)
	require.Contains(t, runErr.Error(), "expects 1 argument")
}

func TestByRefParamIsCompileError(t *testing.T) {
	ch, err := parser.Parse("test", []byte(`f : a* -> { a }`))
	require.NoError(t, err)
	_, cerr := compiler.Compile("test", ch)
	require.Error(t, cerr)
	require.Contains(t, cerr.Error(), "by-reference parameter")
}
