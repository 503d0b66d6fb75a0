// Package compiler implements the single-pass bytecode compiler: a tree
// walk over lang/ast that emits directly into a function's Chunk, resolving
// identifiers to locals, upvalues, or globals as it goes (clox-style), with
// no separate resolution pass over the tree.
package compiler

import (
	"fmt"

	"github.com/kaelith/lang/lang/ast"
	"github.com/kaelith/lang/lang/token"
)

const (
	maxLocals   = 65535
	maxUpvalues = 255
	maxArgs     = 255
	maxJump     = 65535
)

// local is one entry of a funcState's locals vector.
type local struct {
	name       string
	depth      int
	isCaptured bool
}

// loopState tracks the patch lists for `next`/`break` inside one active
// `for` loop; `next` jumps are patched to the loop's step block, which
// increments the induction variable and re-checks the bound.
type loopState struct {
	stepPatches  []int // placeholders to patch to the step block's address
	breakPatches []int // placeholders to patch to the loop's exit address
}

// funcState holds the compiler state for one function (or the script),
// mirroring §4.3's per-function locals/upvals/depth/enclosing/fn_type.
type funcState struct {
	enclosing *funcState
	proto     *FuncProto
	locals    []local
	depth     int
	loops     []loopState
	line      int32
}

// Compiler drives compilation of a single chunk into a script FuncProto.
type Compiler struct {
	fs *funcState
}

// Compile compiles a parsed chunk into the top-level script function.
func Compile(name string, ch *ast.Chunk) (proto *FuncProto, err error) {
	c := &Compiler{}
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			err = ce
		}
	}()

	proto = &FuncProto{Name: name, IsScript: true}
	c.fs = &funcState{proto: proto}
	// Slot 0 is reserved for the closure itself (§4.3); the script has no
	// name to self-reference by, so it is simply unnamed and unreachable.
	c.fs.locals = append(c.fs.locals, local{name: "", depth: 0})

	if ch.Block != nil {
		c.compileStmtList(ch.Block.Stmts)
	}
	c.emit(OpNil)
	c.emit(OpRet)
	return proto, nil
}

// --- emission helpers -----------------------------------------------------

func (c *Compiler) chunk() *Chunk { return &c.fs.proto.Chunk }

func (c *Compiler) emit(op Opcode) int {
	return c.chunk().emitOp(op, c.fs.line)
}

func (c *Compiler) emitU8(b byte) { c.chunk().emitU8(b, c.fs.line) }

func (c *Compiler) emitU16(v uint16) { c.chunk().emitU16(v, c.fs.line) }

func (c *Compiler) at(pos token.Position) { c.fs.line = int32(pos.Line) }

// emitJump emits op followed by a placeholder u16 offset and returns the
// offset of the placeholder's first byte, to be patched later.
func (c *Compiler) emitJump(op Opcode) int {
	c.emit(op)
	pos := len(c.chunk().Code)
	c.emitU16(0xFFFF)
	return pos
}

// patchJump backpatches a forward jump at placeholder so it lands on the
// current emission offset.
func (c *Compiler) patchJump(placeholder int) {
	dist := len(c.chunk().Code) - (placeholder + 2)
	if dist < 0 || dist > maxJump {
		c.fs.fail(token.Position{}, "jump distance %d exceeds 16 bits", dist)
	}
	code := c.chunk().Code
	code[placeholder] = byte(uint16(dist))
	code[placeholder+1] = byte(uint16(dist) >> 8)
}

// emitLoop emits a jmpb_pop back to target (the start of the loop body).
func (c *Compiler) emitLoop(op Opcode, target int) {
	c.emit(op)
	dist := len(c.chunk().Code) + 2 - target
	if dist > maxJump {
		c.fs.fail(token.Position{}, "loop body exceeds 16-bit jump range")
	}
	c.emitU16(uint16(dist))
}

// emitLiteral interns v and emits the narrowest lit_8/lit_16 push for it.
func (c *Compiler) emitLiteral(v any) {
	idx := c.chunk().addLiteral(v)
	if idx <= 0xFF {
		c.emit(OpLit8)
		c.emitU8(byte(idx))
	} else if idx <= 0xFFFF {
		c.emit(OpLit16)
		c.emitU16(uint16(idx))
	} else {
		c.fs.fail(token.Position{}, "literal pool exceeds 65535 entries")
	}
}

func (c *Compiler) emitNameLiteral(op Opcode, name string) {
	idx := c.chunk().addLiteral(name)
	if idx > 0xFFFF {
		c.fs.fail(token.Position{}, "literal pool exceeds 65535 entries")
	}
	c.emit(op)
	c.emitU16(uint16(idx))
}

// --- scopes and locals -----------------------------------------------------

func (c *Compiler) beginBlock() { c.fs.depth++ }

// endBlock pops locals that belong to the scope just exited, emitting
// upval_c for any that were captured (closing them) and pop_loc otherwise
// (§4.3.2).
func (c *Compiler) endBlock() {
	fs := c.fs
	fs.depth--
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.depth {
		top := fs.locals[len(fs.locals)-1]
		if top.isCaptured {
			c.emit(OpUpvalClose)
		} else {
			c.emit(OpPopLoc)
		}
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

func (c *Compiler) addLocal(pos token.Position, name string) int {
	fs := c.fs
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].depth < fs.depth {
			break
		}
		if fs.locals[i].name == name {
			fs.fail(pos, "duplicate local %q in this scope", name)
		}
	}
	if len(fs.locals) >= maxLocals {
		fs.fail(pos, "too many locals in this function (> %d)", maxLocals)
	}
	fs.locals = append(fs.locals, local{name: name, depth: fs.depth})
	return len(fs.locals) - 1
}

func resolveLocal(fs *funcState, name string) (int, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i, true
		}
	}
	return 0, false
}

func addUpvalue(fs *funcState, index int, isLocal bool) int {
	for i, uv := range fs.proto.Upvals {
		if uv.Index == uint16(index) && uv.IsLocal == isLocal {
			return i
		}
	}
	if len(fs.proto.Upvals) >= maxUpvalues {
		fs.fail(token.Position{}, "too many upvalues in this function (> %d)", maxUpvalues)
	}
	fs.proto.Upvals = append(fs.proto.Upvals, UpvalDesc{IsLocal: isLocal, Index: uint16(index)})
	return len(fs.proto.Upvals) - 1
}

func resolveUpvalue(fs *funcState, name string) (int, bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if idx, ok := resolveLocal(fs.enclosing, name); ok {
		fs.enclosing.locals[idx].isCaptured = true
		return addUpvalue(fs, idx, true), true
	}
	if idx, ok := resolveUpvalue(fs.enclosing, name); ok {
		return addUpvalue(fs, idx, false), true
	}
	return 0, false
}

// varKind identifies how an identifier resolves (§4.3.1).
type varKind int

const (
	varGlobal varKind = iota
	varLocal
	varUpvalue
)

func (c *Compiler) resolveVariable(name string) (varKind, int) {
	if idx, ok := resolveLocal(c.fs, name); ok {
		return varLocal, idx
	}
	if idx, ok := resolveUpvalue(c.fs, name); ok {
		return varUpvalue, idx
	}
	return varGlobal, 0
}

func (c *Compiler) emitVariableGet(name string) {
	switch kind, idx := c.resolveVariable(name); kind {
	case varLocal:
		c.emit(OpLocGet)
		c.emitU16(uint16(idx))
	case varUpvalue:
		c.emit(OpUpvalGet)
		c.emitU16(uint16(idx))
	default:
		c.emitNameLiteral(OpGlobGet, name)
	}
}

// emitVariableSet writes the stack top into name's binding, leaving the
// value on the stack (assignment is an expression, §4.4.5/§4.4.6).
func (c *Compiler) emitVariableSet(name string) {
	switch kind, idx := c.resolveVariable(name); kind {
	case varLocal:
		c.emit(OpLocSet)
		c.emitU16(uint16(idx))
	case varUpvalue:
		c.emit(OpUpvalSet)
		c.emitU16(uint16(idx))
	default:
		c.emitNameLiteral(OpGlobSet, name)
	}
}

// --- statements -------------------------------------------------------------

func (c *Compiler) compileStmtList(stmts []ast.Stmt) {
	for _, s := range stmts {
		c.compileStmt(s)
	}
}

// compileStmt compiles one statement for its side effects, popping any
// produced value except after VarDef/FnDef/For/Decorated(function) (§4.3.8).
func (c *Compiler) compileStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.FnDef:
		c.compileFnDef(n)
	case *ast.For:
		c.compileFor(n)
	case *ast.Ret:
		c.compileRet(n)
	case *ast.Next:
		c.compileNext(n)
	case *ast.Break:
		c.compileBreak(n)
	case *ast.Decorated:
		c.compileDecorated(n, true)
	case *ast.ExprStmt:
		if vd, ok := n.X.(*ast.VarDef); ok {
			c.compileVarDef(vd)
			return
		}
		c.compileExpr(n.X)
		c.emit(OpPop)
	default:
		panic(fmt.Sprintf("compiler: unhandled statement %T", s))
	}
}

// compileBlockValue compiles a block in expression position: every
// statement but the last is compiled (and popped) normally; the last
// statement, if an ExprStmt, leaves its value on the stack instead of
// popping it, and if it is a no-value form, a trailing key_nil is pushed so
// the block always yields a well-defined value (DESIGN.md open-question
// resolution for §4.3.8).
func (c *Compiler) compileBlockValue(b *ast.Block) {
	c.beginBlock()
	n := len(b.Stmts)
	for i, s := range b.Stmts {
		if i == n-1 {
			if es, ok := s.(*ast.ExprStmt); ok {
				c.compileExpr(es.X)
			} else {
				c.compileStmt(s)
				c.emit(OpNil)
			}
			continue
		}
		c.compileStmt(s)
	}
	if n == 0 {
		c.emit(OpNil)
	}
	c.endBlock()
}

// compileBlockVoid compiles a block used purely for effect (a for-loop
// body): every statement, including the last, follows the normal popping
// rule and no value is left on the stack.
func (c *Compiler) compileBlockVoid(b *ast.Block) {
	c.beginBlock()
	c.compileStmtList(b.Stmts)
	c.endBlock()
}

// bodyAsExpr compiles a function/if-arm body (either `-> expr` or `{
// block }`) so that it leaves exactly one value on the stack.
func (c *Compiler) bodyAsExpr(body ast.Expr) {
	if blk, ok := body.(*ast.Block); ok {
		c.compileBlockValue(blk)
		return
	}
	c.compileExpr(body)
}

func (c *Compiler) compileVarDef(n *ast.VarDef) {
	c.at(n.Start)
	c.compileExpr(n.Value)
	c.defineVariable(n.Start, n.Name)
}

// defineVariable binds the value currently on top of the stack to name: a
// global define at depth 0, or (implicitly, by leaving the value in its
// freshly reserved slot) a local at any deeper depth.
func (c *Compiler) defineVariable(pos token.Position, name string) {
	if c.fs.depth == 0 {
		c.emitNameLiteral(OpGlobDef, name)
		return
	}
	c.addLocal(pos, name)
}

func (c *Compiler) compileRet(n *ast.Ret) {
	c.at(n.Start)
	if c.fs.enclosing == nil && c.fs.proto.IsScript {
		c.fs.fail(n.Start, "ret is not valid at script level")
	}
	if n.Value != nil {
		c.compileExpr(n.Value)
	} else {
		c.emit(OpNil)
	}
	c.emit(OpRet)
}

func (c *Compiler) compileNext(n *ast.Next) {
	c.at(n.Start)
	if len(c.fs.loops) == 0 {
		c.fs.fail(n.Start, "next outside of a for loop")
	}
	lp := &c.fs.loops[len(c.fs.loops)-1]
	lp.stepPatches = append(lp.stepPatches, c.emitJump(OpJmp))
}

func (c *Compiler) compileBreak(n *ast.Break) {
	c.at(n.Start)
	if len(c.fs.loops) == 0 {
		c.fs.fail(n.Start, "break outside of a for loop")
	}
	lp := &c.fs.loops[len(c.fs.loops)-1]
	lp.breakPatches = append(lp.breakPatches, c.emitJump(OpJmp))
}

// compileFor compiles `for id : range body` per the desugaring in §4.3.3.
func (c *Compiler) compileFor(n *ast.For) {
	c.at(n.Start)
	rng, ok := n.Iterable.(*ast.Range)
	if !ok {
		c.fs.fail(n.Start, "for loop requires a range expression")
	}

	c.beginBlock()
	c.compileExpr(rng.Lo)
	idSlot := c.addLocal(n.Start, n.Id)
	c.compileExpr(rng.Hi)
	endSlot := c.addLocal(n.Start, "@tmp_end")

	c.fs.loops = append(c.fs.loops, loopState{})

	loopStart := len(c.chunk().Code)
	body, isBlock := n.Body.(*ast.Block)
	if isBlock {
		c.compileBlockVoid(body)
	} else {
		c.compileExpr(n.Body)
		c.emit(OpPop)
	}

	lp := c.fs.loops[len(c.fs.loops)-1]
	stepAddr := len(c.chunk().Code)
	for _, p := range lp.stepPatches {
		c.patchJumpTo(p, stepAddr)
	}

	c.emit(OpLocGet)
	c.emitU16(uint16(idSlot))
	c.emit(OpLd1)
	c.emit(OpAdd)
	c.emit(OpLocSet)
	c.emitU16(uint16(idSlot))
	c.emit(OpPop)

	c.emit(OpLocGet)
	c.emitU16(uint16(idSlot))
	c.emit(OpLocGet)
	c.emitU16(uint16(endSlot))
	c.emit(OpLt)

	c.emitLoop(OpJmpbPop, loopStart)

	exitAddr := len(c.chunk().Code)
	for _, p := range lp.breakPatches {
		c.patchJumpTo(p, exitAddr)
	}

	c.fs.loops = c.fs.loops[:len(c.fs.loops)-1]
	c.endBlock()
}

func (c *Compiler) patchJumpTo(placeholder, target int) {
	dist := target - (placeholder + 2)
	if dist < 0 || dist > maxJump {
		c.fs.fail(token.Position{}, "jump distance %d exceeds 16 bits", dist)
	}
	code := c.chunk().Code
	code[placeholder] = byte(uint16(dist))
	code[placeholder+1] = byte(uint16(dist) >> 8)
}

// compileDecorated desugars `@D1(...) @D2(...) target` into a left fold of
// calls, each decorator wrapping the previous result (§4.2): acc := target;
// for each listed decorator, acc = D(acc, {fields}). When the target is a
// named function definition, the final result is bound back to that name
// as a variable definition (isStmt indicates statement position, where a
// decorated function definition leaves nothing to pop).
func (c *Compiler) compileDecorated(n *ast.Decorated, isStmt bool) {
	c.at(n.Start)

	fnDef, isFnDef := n.Target.(*ast.FnDef)
	var acc ast.Expr
	if isFnDef {
		acc = &ast.AnonFnDef{Start: fnDef.Start, End: fnDef.End, Args: fnDef.Args, Body: fnDef.Body}
	} else {
		expr, ok := n.Target.(ast.Expr)
		if !ok {
			c.fs.fail(n.Start, "decorator target is not an expression")
		}
		acc = expr
	}

	for _, d := range n.Decos {
		fields := append([]ast.ObjectField(nil), d.Fields...)
		acc = &ast.Call{
			Start:  d.Start,
			End:    n.End,
			Callee: &ast.FieldGet{Start: d.Start, End: d.Start, Field: d.Name},
			Args:   []ast.Expr{acc, &ast.Object{Start: d.Start, End: d.Start, Fields: fields}},
		}
	}

	if isFnDef {
		c.compileExpr(acc)
		c.defineVariable(n.Start, fnDef.Name)
		return
	}

	c.compileExpr(acc)
	if isStmt {
		c.emit(OpPop)
	}
}

// --- expressions -------------------------------------------------------------

func (c *Compiler) compileExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.Number:
		c.at(n.Start)
		c.compileNumber(n.Value)
	case *ast.String:
		c.at(n.Start)
		c.emitLiteral(n.Value)
	case *ast.KwLiteral:
		c.at(n.Start)
		switch n.Kind {
		case token.TRUE:
			c.emit(OpTrue)
		case token.FALSE:
			c.emit(OpFalse)
		case token.NIL:
			c.emit(OpNil)
		}
	case *ast.FieldGet:
		c.at(n.Start)
		if n.Target == nil {
			c.emitVariableGet(n.Field)
			return
		}
		c.compileExpr(n.Target)
		c.emitNameLiteral(OpPropGet, n.Field)
	case *ast.Array:
		c.at(n.Start)
		if len(n.Elems) > 0xFFFF {
			c.fs.fail(n.Start, "array literal exceeds 65535 elements")
		}
		for _, el := range n.Elems {
			c.compileExpr(el)
		}
		c.emit(OpArray)
		c.emitU16(uint16(len(n.Elems)))
	case *ast.SizedArray:
		c.at(n.Start)
		c.compileExpr(n.Size)
		c.compileExpr(n.Elem)
		c.emit(OpSzdArr)
	case *ast.Object:
		c.at(n.Start)
		c.compileObject(n)
	case *ast.Call:
		c.at(n.Start)
		c.compileCall(n)
	case *ast.MemberCall:
		c.at(n.Start)
		c.compileMemberCall(n)
	case *ast.UnOp:
		c.at(n.Start)
		c.compileExpr(n.Target)
		switch n.Op {
		case token.MINUS:
			c.emit(OpNeg)
		case token.BANG:
			c.emit(OpInv)
		case token.STAR:
			// dereference/splat of a Ref value; the VM's neg/inv family has
			// no dedicated opcode for this, so it is modeled as a no-op
			// pass-through: the operand value is used as-is.
		}
	case *ast.BinOp:
		c.at(n.Start)
		c.compileBinOp(n)
	case *ast.Range:
		c.fs.fail(n.Start_, "range expression is only valid as a for-loop iterable")
	case *ast.If:
		c.at(n.Start)
		c.compileIf(n)
	case *ast.AnonFnDef:
		c.at(n.Start)
		c.compileFunction("", n.Args, n.Body, n.Start)
	case *ast.VarDef:
		// A define chain (`a := b := 5`) nests a VarDef inside another's
		// Value, so this must yield a usable value, not just bind one. A
		// local definition keeps its value in its reserved stack slot and a
		// global definition consumes it via glob_d, so either way it is read
		// back (loc_get/glob_g) to make it available to the outer expression.
		c.at(n.Start)
		c.compileExpr(n.Value)
		c.defineVariable(n.Start, n.Name)
		c.emitVariableGet(n.Name)
	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", e))
	}
}

func (c *Compiler) compileNumber(v float64) {
	switch v {
	case 0:
		c.emit(OpLd0)
	case 1:
		c.emit(OpLd1)
	default:
		c.emitLiteral(v)
	}
}

func (c *Compiler) compileObject(n *ast.Object) {
	c.emit(OpNewObj)
	for _, fld := range n.Fields {
		c.compileExpr(fld.Value)
		c.emitNameLiteral(OpPropDef, fld.Name)
	}
}

func (c *Compiler) compileCall(n *ast.Call) {
	if len(n.Args) > maxArgs {
		c.fs.fail(n.Start, "call has more than %d arguments", maxArgs)
	}
	c.compileExpr(n.Callee)
	for _, a := range n.Args {
		c.compileExpr(a)
	}
	c.emit(OpCall)
	c.emitU8(byte(len(n.Args)))
}

// compileMemberCall compiles `receiver:field(args...)`: push receiver,
// prop_g field, push receiver again as arg 0, push remaining args, call
// nargs+1 (§4.3.4).
func (c *Compiler) compileMemberCall(n *ast.MemberCall) {
	if len(n.Args)+1 > maxArgs {
		c.fs.fail(n.Start, "call has more than %d arguments", maxArgs)
	}
	c.compileExpr(n.Receiver)
	c.emitNameLiteral(OpPropGet, n.Field)
	c.compileExpr(n.Receiver)
	for _, a := range n.Args {
		c.compileExpr(a)
	}
	c.emit(OpCall)
	c.emitU8(byte(len(n.Args) + 1))
}

func (c *Compiler) compileIf(n *ast.If) {
	var endPatches []int
	for _, ifCase := range n.Cases {
		c.compileExpr(ifCase.Cond)
		next := c.emitJump(OpJmpfPop)
		c.bodyAsExpr(ifCase.Body)
		endPatches = append(endPatches, c.emitJump(OpJmp))
		c.patchJump(next)
	}
	if n.Else != nil {
		c.bodyAsExpr(n.Else)
	} else {
		c.emit(OpNil)
	}
	for _, p := range endPatches {
		c.patchJump(p)
	}
}

// compileBinOp dispatches plain binary operators, indexing, `with`, the
// short-circuit logical operators, and the assignment family.
func (c *Compiler) compileBinOp(n *ast.BinOp) {
	switch {
	case n.Op.IsAssignOp():
		c.compileAssign(n)
		return
	case n.Op == token.LBRACK:
		c.compileExpr(n.Lhs)
		c.compileExpr(n.Rhs)
		c.emit(OpIdxGet)
		return
	case n.Op == token.WITH:
		c.compileExpr(n.Lhs)
		c.compileExpr(n.Rhs)
		c.emit(OpWith)
		return
	case n.Op == token.PIPE:
		c.compileSymOr(n)
		return
	case n.Op == token.AMP:
		c.compileSymAnd(n)
		return
	}

	c.compileExpr(n.Lhs)
	c.compileExpr(n.Rhs)
	switch n.Op {
	case token.PLUS:
		c.emit(OpAdd)
	case token.MINUS:
		c.emit(OpSub)
	case token.STAR:
		c.emit(OpMul)
	case token.SLASH:
		c.emit(OpDiv)
	case token.PERCENT:
		c.emit(OpMod)
	case token.EQ:
		c.emit(OpEq)
	case token.NEQ:
		c.emit(OpEq)
		c.emit(OpInv)
	case token.LT:
		c.emit(OpLt)
	case token.GT:
		c.emit(OpGt)
	case token.LE:
		c.emit(OpGt)
		c.emit(OpInv)
	case token.GE:
		c.emit(OpLt)
		c.emit(OpInv)
	default:
		panic(fmt.Sprintf("compiler: unhandled binop %s", n.Op))
	}
}

// compileSymOr compiles `lhs | rhs` with short-circuit evaluation using
// only the jmpf/jmp primitives already in the opcode set (§6.2 has no
// dedicated logical-or instruction): a truthy lhs skips rhs entirely.
func (c *Compiler) compileSymOr(n *ast.BinOp) {
	c.compileExpr(n.Lhs)
	toRhs := c.emitJump(OpJmpf)
	toEnd := c.emitJump(OpJmp)
	c.patchJump(toRhs)
	c.emit(OpPop)
	c.compileExpr(n.Rhs)
	c.patchJump(toEnd)
}

// compileSymAnd compiles `lhs & rhs`: a falsy lhs short-circuits, keeping
// its (falsy) value as the result.
func (c *Compiler) compileSymAnd(n *ast.BinOp) {
	c.compileExpr(n.Lhs)
	toEnd := c.emitJump(OpJmpf)
	c.emit(OpPop)
	c.compileExpr(n.Rhs)
	c.patchJump(toEnd)
}

// compileAssign compiles `lhs = rhs` and its compound forms. The assignment
// target's storage location is re-evaluated for both the read (for compound
// forms) and the write half since the opcode set has no stack-duplicate
// instruction; this means a receiver/index sub-expression with side effects
// is evaluated twice for `a.b += e` / `a[i] += e` (documented in DESIGN.md).
func (c *Compiler) compileAssign(n *ast.BinOp) {
	arith := n.Op.ArithOp()

	switch lhs := n.Lhs.(type) {
	case *ast.FieldGet:
		if lhs.Target != nil {
			c.compileMemberAssign(lhs, n.Rhs, arith)
			return
		}
		if arith != token.ILLEGAL {
			c.emitVariableGet(lhs.Field)
			c.compileExpr(n.Rhs)
			c.emitArith(arith)
		} else {
			c.compileExpr(n.Rhs)
		}
		c.emitVariableSet(lhs.Field)

	case *ast.BinOp:
		if lhs.Op != token.LBRACK {
			c.fs.fail(n.Start, "invalid assignment target")
		}
		c.compileIndexAssign(lhs, n.Rhs, arith)

	default:
		c.fs.fail(n.Start, "invalid assignment target")
	}
}

// compileMemberAssign compiles `target.field (op)= rhs`. For the compound
// form, the receiver is pushed once for the eventual prop_s (kept at the
// bottom of this subexpression's stack slice) and a second time, nested
// above it, purely to read the current value via prop_g; since prop_g
// consumes only its own receiver, the first (set) receiver is undisturbed
// and ends up directly below the computed result, which is exactly the
// [receiver, value] order prop_s expects — avoiding any need for a
// stack-duplicate instruction (the opcode set has none).
func (c *Compiler) compileMemberAssign(lhs *ast.FieldGet, rhs ast.Expr, arith token.Token) {
	if arith != token.ILLEGAL {
		c.compileExpr(lhs.Target) // receiver kept for prop_s
		c.compileExpr(lhs.Target) // receiver consumed by prop_g
		c.emitNameLiteral(OpPropGet, lhs.Field)
		c.compileExpr(rhs)
		c.emitArith(arith)
		c.emitNameLiteral(OpPropSet, lhs.Field)
		return
	}
	c.compileExpr(lhs.Target)
	c.compileExpr(rhs)
	c.emitNameLiteral(OpPropSet, lhs.Field)
}

// compileIndexAssign compiles `a[i] (op)= rhs`, using the same nested
// double-evaluation trick as compileMemberAssign to land array and index in
// the right order for idx_s without a stack-duplicate instruction.
func (c *Compiler) compileIndexAssign(idx *ast.BinOp, rhs ast.Expr, arith token.Token) {
	if arith != token.ILLEGAL {
		c.compileExpr(idx.Lhs) // array kept for idx_s
		c.compileExpr(idx.Rhs) // index kept for idx_s
		c.compileExpr(idx.Lhs) // array consumed by idx_g
		c.compileExpr(idx.Rhs) // index consumed by idx_g
		c.emit(OpIdxGet)
		c.compileExpr(rhs)
		c.emitArith(arith)
		c.emit(OpIdxSet)
		return
	}
	c.compileExpr(idx.Lhs)
	c.compileExpr(idx.Rhs)
	c.compileExpr(rhs)
	c.emit(OpIdxSet)
}

func (c *Compiler) emitArith(op token.Token) {
	switch op {
	case token.PLUS:
		c.emit(OpAdd)
	case token.MINUS:
		c.emit(OpSub)
	case token.STAR:
		c.emit(OpMul)
	case token.SLASH:
		c.emit(OpDiv)
	case token.PERCENT:
		c.emit(OpMod)
	}
}

// --- functions and closures --------------------------------------------------

func (c *Compiler) compileFnDef(n *ast.FnDef) {
	c.at(n.Start)
	c.compileFunction(n.Name, n.Args, n.Body, n.Start)
	c.defineVariable(n.Start, n.Name)
}

// compileFunction compiles a function (named or anonymous) into a nested
// FuncProto, then emits `closure` in the enclosing chunk with its upvalue
// descriptor pairs (§4.3.5).
func (c *Compiler) compileFunction(name string, params []ast.Param, body ast.Expr, pos token.Position) {
	proto := &FuncProto{Name: name, Arity: len(params), Pos: pos}
	for _, p := range params {
		if p.ByRef {
			c.fs.fail(pos, "by-reference parameter %q is not supported: the machine never boxes arguments into a Ref cell, so a by-ref parameter would silently behave as pass-by-value", p.Name)
		}
		proto.ByRef = append(proto.ByRef, p.ByRef)
	}

	inner := &funcState{enclosing: c.fs, proto: proto}
	// Slot 0 is reserved for the closure itself; naming it after the
	// function lets the body call itself recursively by name without
	// needing an upvalue round-trip through the enclosing scope.
	inner.locals = append(inner.locals, local{name: name, depth: 0})
	inner.depth = 1 // parameters and the body's own statements are locals

	outer := c.fs
	c.fs = inner
	for _, p := range params {
		c.addLocal(pos, p.Name)
	}
	c.bodyAsExprAtDepth1(body)
	c.emit(OpRet)
	c.fs = outer

	litIdx := c.chunk().addLiteral(proto)
	if litIdx > 0xFFFF {
		c.fs.fail(pos, "literal pool exceeds 65535 entries")
	}
	c.emit(OpClosure)
	c.emitU16(uint16(litIdx))
	c.emitU16(uint16(len(proto.Upvals)))
	for _, uv := range proto.Upvals {
		c.emitU8(boolToU8(uv.IsLocal))
		c.emitU16(uv.Index)
	}
}

// bodyAsExprAtDepth1 compiles a function's body, which must leave its
// result on the stack for the implicit `ret` that follows (functions
// compiled via `->` yield the expression's value; `{ block }` bodies yield
// their last statement's value per the same rule as if-arms).
func (c *Compiler) bodyAsExprAtDepth1(body ast.Expr) {
	if blk, ok := body.(*ast.Block); ok {
		n := len(blk.Stmts)
		for i, s := range blk.Stmts {
			if i == n-1 {
				if es, ok := s.(*ast.ExprStmt); ok {
					c.compileExpr(es.X)
				} else {
					c.compileStmt(s)
					c.emit(OpNil)
				}
				continue
			}
			c.compileStmt(s)
		}
		if n == 0 {
			c.emit(OpNil)
		}
		return
	}
	c.compileExpr(body)
}

func boolToU8(b bool) byte {
	if b {
		return 1
	}
	return 0
}
