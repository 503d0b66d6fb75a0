package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kaelith/lang/lang/ast"
	"github.com/kaelith/lang/lang/parser"
	"github.com/kaelith/lang/lang/token"
)

func parse(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	ch, err := parser.Parse("test", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, ch)
	return ch
}

func TestArithmeticPrecedence(t *testing.T) {
	ch := parse(t, `x := 2 + 3 * 4`)
	require.Len(t, ch.Block.Stmts, 1)
	def, ok := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.VarDef)
	require.True(t, ok)
	require.Equal(t, "x", def.Name)
	add, ok := def.Value.(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, token.PLUS, add.Op)
	mul, ok := add.Rhs.(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, token.STAR, mul.Op)
}

func TestIfElifElse(t *testing.T) {
	ch := parse(t, `if n == 1 { a } elif n == 2 { b } else { c }`)
	stmt := ch.Block.Stmts[0].(*ast.ExprStmt)
	ifExpr, ok := stmt.X.(*ast.If)
	require.True(t, ok)
	require.Len(t, ifExpr.Cases, 2)
	require.NotNil(t, ifExpr.Else)
}

func TestForRequiresRange(t *testing.T) {
	ch := parse(t, `for i : 1..5 { total = total + i }`)
	forStmt, ok := ch.Block.Stmts[0].(*ast.For)
	require.True(t, ok)
	require.Equal(t, "i", forStmt.Id)
	_, ok = forStmt.Iterable.(*ast.Range)
	require.True(t, ok)
}

func TestForRejectsNonRange(t *testing.T) {
	_, err := parser.Parse("test", []byte(`for i : 5 { total = total + i }`))
	require.Error(t, err)
}

func TestClosureExample(t *testing.T) {
	src := `
make_counter : -> {
  c := 0
  : -> { c = c + 1; c }
}
f := make_counter()
log(f())
`
	ch := parse(t, src)
	require.Len(t, ch.Block.Stmts, 3)
	fn, ok := ch.Block.Stmts[0].(*ast.FnDef)
	require.True(t, ok)
	require.Equal(t, "make_counter", fn.Name)
	require.Empty(t, fn.Args)
	block, ok := fn.Body.(*ast.Block)
	require.True(t, ok)
	require.Len(t, block.Stmts, 2)
	_, ok = block.Stmts[1].(*ast.ExprStmt).X.(*ast.AnonFnDef)
	require.True(t, ok)
}

func TestObjectWithOverloadedOperator(t *testing.T) {
	src := `v := [| x=1, "+" : a b -> [| x = a.x + b.x |] |]`
	ch := parse(t, src)
	def := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.VarDef)
	obj, ok := def.Value.(*ast.Object)
	require.True(t, ok)
	require.Len(t, obj.Fields, 2)
	require.Equal(t, "x", obj.Fields[0].Name)
	require.Equal(t, "+", obj.Fields[1].Name)
	_, ok = obj.Fields[1].Value.(*ast.AnonFnDef)
	require.True(t, ok)
}

func TestWithRequiresObjectRhs(t *testing.T) {
	_, err := parser.Parse("test", []byte(`a := [| k=1 |] with 5`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Expected object on rhs of with expr")
}

func TestWithMerge(t *testing.T) {
	ch := parse(t, `a := [| k=1 |] with [| k=9, j=2 |]`)
	def := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.VarDef)
	bin, ok := def.Value.(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, token.WITH, bin.Op)
}

func TestArrayAndSizedArray(t *testing.T) {
	ch := parse(t, `a := [1, 2, 3]; b := [3; 0]`)
	arr := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.VarDef).Value.(*ast.Array)
	require.Len(t, arr.Elems, 3)
	sized := ch.Block.Stmts[1].(*ast.ExprStmt).X.(*ast.VarDef).Value.(*ast.SizedArray)
	require.NotNil(t, sized.Size)
	require.NotNil(t, sized.Elem)
}

func TestIndexAssign(t *testing.T) {
	ch := parse(t, `a[i] = v`)
	bin := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.BinOp)
	require.Equal(t, token.ASSIGN, bin.Op)
	idx, ok := bin.Lhs.(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, token.LBRACK, idx.Op)
}

func TestMemberCall(t *testing.T) {
	ch := parse(t, `x:foo(1, 2)`)
	mc, ok := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.MemberCall)
	require.True(t, ok)
	require.Equal(t, "foo", mc.Field)
	require.Len(t, mc.Args, 2)
}

func TestDecoratorWrapsFnDef(t *testing.T) {
	ch := parse(t, `@memoize(max=10) slow : n -> n`)
	dec, ok := ch.Block.Stmts[0].(*ast.Decorated)
	require.True(t, ok)
	require.Len(t, dec.Decos, 1)
	require.Equal(t, "memoize", dec.Decos[0].Name)
	require.Len(t, dec.Decos[0].Fields, 1)
	_, ok = dec.Target.(*ast.FnDef)
	require.True(t, ok)
}

func TestMulUnaryBacktrack(t *testing.T) {
	// `x*` at the end of an expression statement: '*' cannot find a valid
	// range operand (statement ends), so it reinterprets as a unary
	// dereference on x rather than a binary multiplication.
	ch := parse(t, `y := x*`)
	def := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.VarDef)
	unop, ok := def.Value.(*ast.UnOp)
	require.True(t, ok)
	require.Equal(t, token.STAR, unop.Op)
}

func TestBacktickIdentInDefine(t *testing.T) {
	ch := parse(t, "`weird name` := 1")
	def := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.VarDef)
	require.Equal(t, "weird name", def.Name)
}

func TestRetBareAndWithValue(t *testing.T) {
	ch := parse(t, `f : -> { ret 1 }`)
	fn := ch.Block.Stmts[0].(*ast.FnDef)
	body := fn.Body.(*ast.Block)
	ret, ok := body.Stmts[0].(*ast.Ret)
	require.True(t, ok)
	require.NotNil(t, ret.Value)

	ch2 := parse(t, `f : -> { ret }`)
	fn2 := ch2.Block.Stmts[0].(*ast.FnDef)
	body2 := fn2.Body.(*ast.Block)
	ret2 := body2.Stmts[0].(*ast.Ret)
	require.Nil(t, ret2.Value)
}

func TestByRefParam(t *testing.T) {
	ch := parse(t, `f : a b* -> a`)
	fn := ch.Block.Stmts[0].(*ast.FnDef)
	require.Len(t, fn.Args, 2)
	require.False(t, fn.Args[0].ByRef)
	require.True(t, fn.Args[1].ByRef)
}
