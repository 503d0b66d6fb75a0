package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kaelith/lang/lang/compiler"
	"github.com/kaelith/lang/lang/parser"
)

func mustCompile(t *testing.T, src string) *compiler.FuncProto {
	t.Helper()
	ch, err := parser.Parse("test", []byte(src))
	require.NoError(t, err)
	proto, err := compiler.Compile("test", ch)
	require.NoError(t, err)
	require.NotNil(t, proto)
	return proto
}

func TestArithmeticCompiles(t *testing.T) {
	proto := mustCompile(t, `x := 2 + 3 * 4`)
	require.Greater(t, len(proto.Chunk.Code), 0)
	require.Contains(t, proto.Chunk.Literals, "x")
}

func TestIfElseCompiles(t *testing.T) {
	proto := mustCompile(t, `n := 2; if n == 1 { 1 } elif n == 2 { 2 } else { 3 }`)
	require.Greater(t, len(proto.Chunk.Code), 0)
}

func TestForLoopCompiles(t *testing.T) {
	proto := mustCompile(t, `total := 0; for i : 1..5 { total = total + i }`)
	code := proto.Chunk.Code
	var sawJmpbPop bool
	for _, b := range code {
		if compiler.Opcode(b) == compiler.OpJmpbPop {
			sawJmpbPop = true
		}
	}
	require.True(t, sawJmpbPop, "for loop must emit a jmpb_pop trampoline")
}

func TestClosureCompiles(t *testing.T) {
	proto := mustCompile(t, `
make_counter : -> {
  c := 0
  : -> { c = c + 1; c }
}
f := make_counter()
`)
	var foundNested *compiler.FuncProto
	for _, lit := range proto.Chunk.Literals {
		if fp, ok := lit.(*compiler.FuncProto); ok {
			foundNested = fp
		}
	}
	require.NotNil(t, foundNested)
}

func TestDuplicateLocalIsCompileError(t *testing.T) {
	ch, err := parser.Parse("test", []byte(`f : -> { a := 1; a := 2; a }`))
	require.NoError(t, err)
	_, cerr := compiler.Compile("test", ch)
	require.Error(t, cerr)
	require.Contains(t, cerr.Error(), "duplicate local")
}

func TestRetAtScriptLevelIsCompileError(t *testing.T) {
	ch, err := parser.Parse("test", []byte(`ret 1`))
	require.NoError(t, err)
	_, cerr := compiler.Compile("test", ch)
	require.Error(t, cerr)
	require.Contains(t, cerr.Error(), "ret is not valid at script level")
}

func TestForOverNonRangeIsParseError(t *testing.T) {
	_, err := parser.Parse("test", []byte(`for i : 5 { total = total + i }`))
	require.Error(t, err)
}

func TestWithMergeCompiles(t *testing.T) {
	proto := mustCompile(t, `a := [| k=1 |] with [| k=9, j=2 |]`)
	var sawWith bool
	for _, b := range proto.Chunk.Code {
		if compiler.Opcode(b) == compiler.OpWith {
			sawWith = true
		}
	}
	require.True(t, sawWith)
}

func TestDecoratorDesugarsToCall(t *testing.T) {
	proto := mustCompile(t, `@memoize(max=10) slow : n -> n`)
	var sawCall bool
	for _, b := range proto.Chunk.Code {
		if compiler.Opcode(b) == compiler.OpCall {
			sawCall = true
		}
	}
	require.True(t, sawCall)
}
