package disasm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kaelith/lang/lang/compiler"
	"github.com/kaelith/lang/lang/disasm"
	"github.com/kaelith/lang/lang/parser"
)

func mustCompile(t *testing.T, src string) *compiler.FuncProto {
	t.Helper()
	ch, err := parser.Parse("test", []byte(src))
	require.NoError(t, err)
	proto, err := compiler.Compile("test", ch)
	require.NoError(t, err)
	return proto
}

func TestDisassembleArithmetic(t *testing.T) {
	proto := mustCompile(t, `x := 2 + 3 * 4`)
	var sb strings.Builder
	require.NoError(t, disasm.Disassemble(&sb, proto))
	out := sb.String()
	require.Contains(t, out, "== <script> ==")
	require.Contains(t, out, "lit_8")
	require.Contains(t, out, "mul")
	require.Contains(t, out, "add")
	require.Contains(t, out, "glob_d")
}

func TestDisassembleJumpTargets(t *testing.T) {
	proto := mustCompile(t, `total := 0; for i : 1..5 { total = total + i }`)
	var sb strings.Builder
	require.NoError(t, disasm.Disassemble(&sb, proto))
	out := sb.String()
	require.Contains(t, out, "jmpb_pop")
	require.Contains(t, out, "->")
}

func TestDisassembleNestedClosure(t *testing.T) {
	proto := mustCompile(t, `adder : n { ret : x { ret x + n } }`)
	var sb strings.Builder
	require.NoError(t, disasm.Disassemble(&sb, proto))
	out := sb.String()
	require.Contains(t, out, "closure")
	require.Contains(t, out, "upvalue(s)")
	// the nested anonymous function's own listing follows the outer one
	require.Contains(t, out, "== <anon>")
}
