package compiler

import "github.com/kaelith/lang/lang/token"

// UpvalDesc describes one upvalue captured by a closure: either a slot in the
// immediately enclosing function's locals (IsLocal true) or an index into
// that enclosing function's own upvalue array (IsLocal false).
type UpvalDesc struct {
	IsLocal bool
	Index   uint16
}

// FuncProto is the compiled, immutable form of a function or the top-level
// script. The VM never mutates a FuncProto; a running closure pairs one with
// a freshly allocated upvalue array.
type FuncProto struct {
	Name      string // for disassembly and Value printing; "" for an anonymous function
	Arity     int
	ByRef     []bool // per-parameter by-reference marker
	Chunk     Chunk
	Upvals    []UpvalDesc
	IsScript  bool
	Pos       token.Position // definition site, for diagnostics
}

// Chunk is one function's compiled bytecode plus its literal pool.
type Chunk struct {
	Code     []byte
	Literals []any // float64 | string | *FuncProto
	lines    []int32
}

// addLiteral interns v into the literal pool, returning its index. Identical
// float64 and string literals are deduplicated; *FuncProto values are never
// deduplicated (each function definition produces a distinct proto).
func (c *Chunk) addLiteral(v any) int {
	if _, isProto := v.(*FuncProto); !isProto {
		for i, existing := range c.Literals {
			if existing == v {
				return i
			}
		}
	}
	c.Literals = append(c.Literals, v)
	return len(c.Literals) - 1
}

func (c *Chunk) emitByte(b byte, line int32) {
	c.Code = append(c.Code, b)
	c.lines = append(c.lines, line)
}

func (c *Chunk) emitOp(op Opcode, line int32) int {
	pos := len(c.Code)
	c.emitByte(byte(op), line)
	return pos
}

func (c *Chunk) emitU8(b byte, line int32) {
	c.emitByte(b, line)
}

func (c *Chunk) emitU16(v uint16, line int32) {
	c.emitByte(byte(v), line)
	c.emitByte(byte(v>>8), line)
}

// LineAt returns the source line recorded for the instruction at byte offset
// pc, or 0 if pc is out of range.
func (c *Chunk) LineAt(pc int) int32 {
	if pc < 0 || pc >= len(c.lines) {
		return 0
	}
	return c.lines[pc]
}

func readU16(code []byte, pc int) uint16 {
	return uint16(code[pc]) | uint16(code[pc+1])<<8
}
