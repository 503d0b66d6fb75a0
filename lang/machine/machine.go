package machine

import (
	"fmt"
	"math"

	"github.com/kaelith/lang/lang/compiler"
	"github.com/kaelith/lang/lang/intern"
	"github.com/kaelith/lang/lang/value"
)

// maxCallDepth bounds nested Lang function calls; exceeding it is a
// runtime failure rather than a Go stack overflow.
const maxCallDepth = 4096

// Run executes proto (the compiled top-level script function) to
// completion and returns its result value, per §6.1's `run` entry point.
func (th *Thread) Run(proto *compiler.FuncProto) (value.Value, error) {
	th.init()
	if th.stack == nil {
		th.stack = make([]value.Value, stackSize)
	}
	if th.globals == nil {
		th.globals = make(map[intern.Str]value.Value)
	}

	script := &value.Function{Proto: proto}
	th.sp = 0
	th.push(script)
	th.frames = append(th.frames[:0], &Frame{closure: script, ip: 0, base: 0})

	return th.loop()
}

func (th *Thread) push(v value.Value) {
	th.stack[th.sp] = v
	th.sp++
}

func (th *Thread) pop() value.Value {
	th.sp--
	return th.stack[th.sp]
}

// loop is the single dispatch loop shared by every nested call: a Lang
// function call pushes a Frame and the very next iteration starts
// executing it, and `ret` pops back to the caller's Frame and resumes it
// exactly where its own `call` instruction left off. This is also how
// operator-overload re-dispatch (§4.4.2) composes for free: it only needs
// to stage the synthetic call's stack layout and push a Frame, never drive
// its own sub-loop.
func (th *Thread) loop() (value.Value, error) {
	for {
		fr := th.frames[len(th.frames)-1]
		code := fr.closure.Proto.Chunk.Code

		th.steps++
		if th.steps >= th.maxSteps {
			return nil, &RuntimeError{Msg: "step limit exceeded"}
		}
		if th.cancelled.Load() {
			return nil, &RuntimeError{Msg: "execution cancelled"}
		}

		op := compiler.Opcode(code[fr.ip])
		fr.ip++

		switch op {
		case compiler.OpRet:
			result := th.pop()
			th.closeUpvalsFrom(fr.base)
			th.sp = fr.base
			th.frames = th.frames[:len(th.frames)-1]
			if len(th.frames) == 0 {
				return result, nil
			}
			th.push(result)

		case compiler.OpPop, compiler.OpPopLoc:
			th.sp--

		case compiler.OpLd0:
			th.push(value.Num(0))
		case compiler.OpLd1:
			th.push(value.Num(1))

		case compiler.OpLit8:
			idx := int(code[fr.ip])
			fr.ip++
			th.push(litNum(fr, idx))
		case compiler.OpLit16:
			idx := int(readU16(code, fr.ip))
			fr.ip += 2
			th.push(litNum(fr, idx))

		case compiler.OpNeg:
			n, ok := th.stack[th.sp-1].(value.Num)
			if !ok {
				return nil, th.rt(fr, "cannot negate a %s value", th.stack[th.sp-1].Type())
			}
			th.stack[th.sp-1] = -n
		case compiler.OpInv:
			th.stack[th.sp-1] = value.Bool(!value.Truthy(th.stack[th.sp-1]))

		case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod,
			compiler.OpEq, compiler.OpLt, compiler.OpGt:
			if err := th.execBinary(fr, op); err != nil {
				return nil, err
			}

		case compiler.OpTrue:
			th.push(value.Bool(true))
		case compiler.OpFalse:
			th.push(value.Bool(false))
		case compiler.OpNil:
			th.push(value.Nil{})

		case compiler.OpWith:
			y := th.pop()
			x := th.pop()
			xo, xok := x.(*value.Object)
			yo, yok := y.(*value.Object)
			if !xok || !yok {
				return nil, th.rt(fr, "with requires two objects, got %s and %s", x.Type(), y.Type())
			}
			th.push(xo.With(yo))

		case compiler.OpGlobDef:
			idx := int(readU16(code, fr.ip))
			fr.ip += 2
			name := intern.Intern(litName(fr, idx))
			th.globals[name] = th.pop()

		case compiler.OpGlobGet:
			idx := int(readU16(code, fr.ip))
			fr.ip += 2
			name := litName(fr, idx)
			v, ok := th.globals[intern.Intern(name)]
			if !ok {
				return nil, th.rt(fr, "undefined global %q", name)
			}
			th.push(v)

		case compiler.OpGlobSet:
			idx := int(readU16(code, fr.ip))
			fr.ip += 2
			key := intern.Intern(litName(fr, idx))
			if _, ok := th.globals[key]; !ok {
				return nil, th.rt(fr, "undefined global %q", litName(fr, idx))
			}
			th.globals[key] = th.stack[th.sp-1]

		case compiler.OpLocGet:
			idx := int(readU16(code, fr.ip))
			fr.ip += 2
			th.push(th.stack[fr.base+idx])
		case compiler.OpLocSet:
			idx := int(readU16(code, fr.ip))
			fr.ip += 2
			th.stack[fr.base+idx] = th.stack[th.sp-1]

		case compiler.OpUpvalGet:
			idx := int(readU16(code, fr.ip))
			fr.ip += 2
			th.push(*fr.closure.Upvals[idx].Loc)
		case compiler.OpUpvalSet:
			idx := int(readU16(code, fr.ip))
			fr.ip += 2
			*fr.closure.Upvals[idx].Loc = th.stack[th.sp-1]
		case compiler.OpUpvalClose:
			th.closeUpvalAt(th.sp - 1)
			th.sp--

		case compiler.OpJmp:
			off := int(readU16(code, fr.ip))
			fr.ip += 2
			fr.ip += off
		case compiler.OpJmpf:
			off := int(readU16(code, fr.ip))
			fr.ip += 2
			if !value.Truthy(th.stack[th.sp-1]) {
				fr.ip += off
			}
		case compiler.OpJmpfPop:
			off := int(readU16(code, fr.ip))
			fr.ip += 2
			v := th.pop()
			if !value.Truthy(v) {
				fr.ip += off
			}
		case compiler.OpJmpbPop:
			off := int(readU16(code, fr.ip))
			fr.ip += 2
			v := th.pop()
			if value.Truthy(v) {
				fr.ip -= off
			}

		case compiler.OpCall:
			nargs := int(code[fr.ip])
			fr.ip++
			calleeIdx := th.sp - nargs - 1
			if err := th.callValue(fr, th.stack[calleeIdx], calleeIdx, nargs); err != nil {
				return nil, err
			}

		case compiler.OpNewObj:
			th.push(value.NewObject())

		case compiler.OpPropDef:
			idx := int(readU16(code, fr.ip))
			fr.ip += 2
			name := litName(fr, idx)
			v := th.pop()
			obj := th.stack[th.sp-1].(*value.Object)
			obj.Set(intern.Intern(name), v)

		case compiler.OpPropGet:
			idx := int(readU16(code, fr.ip))
			fr.ip += 2
			name := litName(fr, idx)
			recv := th.pop()
			obj, ok := recv.(*value.Object)
			if !ok {
				return nil, th.rt(fr, "cannot read field %q of a %s value", name, recv.Type())
			}
			v, ok := obj.Get(intern.Intern(name))
			if !ok {
				return nil, th.rt(fr, "object has no field %q", name)
			}
			th.push(v)

		case compiler.OpPropSet:
			idx := int(readU16(code, fr.ip))
			fr.ip += 2
			name := litName(fr, idx)
			v := th.pop()
			recv := th.pop()
			obj, ok := recv.(*value.Object)
			if !ok {
				return nil, th.rt(fr, "cannot set field %q of a %s value", name, recv.Type())
			}
			obj.Set(intern.Intern(name), v)
			th.push(v)

		case compiler.OpArray:
			n := int(readU16(code, fr.ip))
			fr.ip += 2
			elems := make([]value.Value, n)
			copy(elems, th.stack[th.sp-n:th.sp])
			th.sp -= n
			th.push(value.NewArray(elems))

		case compiler.OpSzdArr:
			v := th.pop()
			sizeV := th.pop()
			sizeN, ok := sizeV.(value.Num)
			if !ok {
				return nil, th.rt(fr, "sized array size must be a number, got %s", sizeV.Type())
			}
			elems := make([]value.Value, int(sizeN))
			for i := range elems {
				elems[i] = v
			}
			th.push(value.NewArray(elems))

		case compiler.OpIdxGet:
			idxV := th.pop()
			arrV := th.pop()
			arr, ok := arrV.(*value.Array)
			if !ok {
				return nil, th.rt(fr, "cannot index a %s value", arrV.Type())
			}
			i, err := indexOf(idxV, len(arr.Elems))
			if err != nil {
				return nil, th.rt(fr, "%s", err)
			}
			th.push(arr.Elems[i])

		case compiler.OpIdxSet:
			v := th.pop()
			idxV := th.pop()
			arrV := th.pop()
			arr, ok := arrV.(*value.Array)
			if !ok {
				return nil, th.rt(fr, "cannot index-assign a %s value", arrV.Type())
			}
			i, err := indexOf(idxV, len(arr.Elems))
			if err != nil {
				return nil, th.rt(fr, "%s", err)
			}
			arr.Elems[i] = v
			th.push(v)

		case compiler.OpClosure:
			litIdx := int(readU16(code, fr.ip))
			fr.ip += 2
			nUp := int(readU16(code, fr.ip))
			fr.ip += 2
			proto := fr.closure.Proto.Chunk.Literals[litIdx].(*compiler.FuncProto)
			upvals := make([]*value.Upvalue, nUp)
			for i := 0; i < nUp; i++ {
				isLocal := code[fr.ip]
				fr.ip++
				slot := int(readU16(code, fr.ip))
				fr.ip += 2
				if isLocal != 0 {
					upvals[i] = th.captureUpvalAt(fr.base + slot)
				} else {
					upvals[i] = fr.closure.Upvals[slot]
				}
			}
			th.push(&value.Function{Proto: proto, Upvals: upvals})

		default:
			return nil, th.rt(fr, "unimplemented opcode %s", op)
		}
	}
}

func readU16(code []byte, pc int) uint16 {
	return uint16(code[pc]) | uint16(code[pc+1])<<8
}

func litNum(fr *Frame, idx int) value.Value {
	if s, ok := fr.closure.Proto.Chunk.Literals[idx].(string); ok {
		return value.NewStr(s)
	}
	return value.Num(fr.closure.Proto.Chunk.Literals[idx].(float64))
}

func litName(fr *Frame, idx int) string {
	return fr.closure.Proto.Chunk.Literals[idx].(string)
}

// indexOf floors idxV to an int and bounds-checks it against n, per §4.4.7
// ("pops index (must be Num, floored)").
func indexOf(idxV value.Value, n int) (int, error) {
	idxN, ok := idxV.(value.Num)
	if !ok {
		return 0, fmt.Errorf("array index must be a number, got %s", idxV.Type())
	}
	i := int(math.Floor(float64(idxN)))
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %d out of range (length %d)", i, n)
	}
	return i, nil
}

// operatorSymbol returns the method-field name the VM looks up on a
// non-numeric left operand for operator-overload re-dispatch (§4.4.2: only
// the five arithmetic operators support this, not eq/lt/gt).
func operatorSymbol(op compiler.Opcode) (string, bool) {
	switch op {
	case compiler.OpAdd:
		return "+", true
	case compiler.OpSub:
		return "-", true
	case compiler.OpMul:
		return "*", true
	case compiler.OpDiv:
		return "/", true
	case compiler.OpMod:
		return "%", true
	}
	return "", false
}

// execBinary implements add/sub/mul/div/mod/eq/lt/gt, including the
// string-concatenation special case of `add` and the operator-overload
// re-dispatch to a left-operand object's method field (§4.4.2).
func (th *Thread) execBinary(fr *Frame, op compiler.Opcode) error {
	y := th.stack[th.sp-1]
	x := th.stack[th.sp-2]

	if op == compiler.OpEq {
		th.sp -= 2
		th.push(value.Bool(value.Equal(x, y)))
		return nil
	}

	xn, xIsNum := x.(value.Num)
	yn, yIsNum := y.(value.Num)
	if xIsNum && yIsNum {
		th.sp -= 2
		switch op {
		case compiler.OpAdd:
			th.push(xn + yn)
		case compiler.OpSub:
			th.push(xn - yn)
		case compiler.OpMul:
			th.push(xn * yn)
		case compiler.OpDiv:
			th.push(xn / yn)
		case compiler.OpMod:
			th.push(value.Num(math.Mod(float64(xn), float64(yn))))
		case compiler.OpLt:
			th.push(value.Bool(xn < yn))
		case compiler.OpGt:
			th.push(value.Bool(xn > yn))
		}
		return nil
	}

	if op == compiler.OpAdd {
		if xs, ok := x.(value.Str); ok {
			if ys, ok := y.(value.Str); ok {
				th.sp -= 2
				th.push(value.NewStr(xs.String() + ys.String()))
				return nil
			}
		}
	}

	if sym, overloadable := operatorSymbol(op); overloadable && !yIsNum {
		if xo, ok := x.(*value.Object); ok {
			if method, ok := xo.HasMethod(intern.Intern(sym)); ok {
				th.sp -= 2
				calleeIdx := th.sp
				th.push(method)
				th.push(x)
				th.push(y)
				return th.callValue(fr, method, calleeIdx, 2)
			}
		}
	}

	return th.rt(fr, "unsupported operand types for %s: %s and %s", op, x.Type(), y.Type())
}

// callValue dispatches `call nargs` (§4.4.4) for both Lang functions (push
// a new Frame; the shared loop runs it to completion) and native functions
// (invoked synchronously, since they never grow the Lang call stack).
func (th *Thread) callValue(fr *Frame, callee value.Value, calleeIdx, nargs int) error {
	switch c := callee.(type) {
	case *value.Function:
		if nargs != c.Proto.Arity {
			return th.rt(fr, "function %s expects %d argument(s), got %d", c.Proto.Name, c.Proto.Arity, nargs)
		}
		if len(th.frames) >= maxCallDepth {
			return th.rt(fr, "call stack overflow")
		}
		th.frames = append(th.frames, &Frame{closure: c, ip: 0, base: calleeIdx})
		return nil

	case *value.NativeFunction:
		if nargs != c.Arity {
			return th.rt(fr, "native function %s expects %d argument(s), got %d", c.Name, c.Arity, nargs)
		}
		args := make([]value.Value, nargs)
		copy(args, th.stack[calleeIdx+1:calleeIdx+1+nargs])
		result, err := c.Handler(args)
		if err != nil {
			return th.rt(fr, "%s", err)
		}
		th.sp = calleeIdx
		th.push(result)
		return nil

	default:
		return th.rt(fr, "attempt to call a %s value", callee.Type())
	}
}
