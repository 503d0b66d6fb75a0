package compiler

import "fmt"

// Opcode identifies a bytecode instruction. Unlike the variable-length
// varint-operand scheme this package used to share with a CFG-based
// compiler, every opcode here has a fixed operand width so the VM can read
// operands without a length decode step.
type Opcode uint8

//nolint:revive
const (
	OpRet     Opcode = iota // -    ret            ; return top, close frame
	OpPop                   // x -  pop            ; discard top
	OpPopLoc                // x -  pop_loc        ; discard top (local-scope exit)
	OpLd0                   // -  x ld_0           ; push 0.0
	OpLd1                   // -  x ld_1           ; push 1.0
	OpLit8                  // -  x lit_8  u8      ; push literal[u8]
	OpLit16                 // -  x lit_16 u16     ; push literal[u16]

	OpNeg // x  x neg             ; arithmetic negate
	OpInv // x  x inv             ; logical not

	OpAdd // x y  x add
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpLt
	OpGt

	OpTrue  // -  x key_true
	OpFalse // -  x key_false
	OpNil   // -  x key_nil
	OpWith  // x y  x key_with    ; object merge

	OpGlobDef // x -  glob_d u16   ; pop, install global
	OpGlobGet // -  x glob_g u16   ; push global
	OpGlobSet // x  x glob_s u16   ; write global, keep value on stack

	OpLocGet // -  x loc_g u16
	OpLocSet // x  x loc_s u16

	OpUpvalGet   // -  x upval_g u16
	OpUpvalSet   // x  x upval_s u16
	OpUpvalClose // x -  upval_c     ; close top local into its upvalue cell, pop

	OpJmp     // -  -  jmp      u16  ; unconditional forward jump
	OpJmpf    // x  x  jmpf     u16  ; jump if top falsy, keep top
	OpJmpfPop // x  -  jmpf_pop u16  ; pop, jump if popped falsy
	OpJmpbPop // x  -  jmpb_pop u16  ; pop, jump backwards if popped truthy

	OpCall // callee a1..an  result   call u8

	OpNewObj // -  x  new_obj
	OpPropDef
	OpPropGet
	OpPropSet

	OpArray  // a1..an  arr   array u16
	OpSzdArr // size value  arr  szd_arr

	OpIdxGet // arr idx  x   idx_g
	OpIdxSet // arr idx val  val  idx_s

	OpClosure // -  fn  closure u16 u16 (u8,u16)*

	maxOpcode
)

var opcodeNames = [...]string{
	OpRet:        "ret",
	OpPop:        "pop",
	OpPopLoc:     "pop_loc",
	OpLd0:        "ld_0",
	OpLd1:        "ld_1",
	OpLit8:       "lit_8",
	OpLit16:      "lit_16",
	OpNeg:        "neg",
	OpInv:        "inv",
	OpAdd:        "add",
	OpSub:        "sub",
	OpMul:        "mul",
	OpDiv:        "div",
	OpMod:        "mod",
	OpEq:         "eq",
	OpLt:         "lt",
	OpGt:         "gt",
	OpTrue:       "key_true",
	OpFalse:      "key_false",
	OpNil:        "key_nil",
	OpWith:       "key_with",
	OpGlobDef:    "glob_d",
	OpGlobGet:    "glob_g",
	OpGlobSet:    "glob_s",
	OpLocGet:     "loc_g",
	OpLocSet:     "loc_s",
	OpUpvalGet:   "upval_g",
	OpUpvalSet:   "upval_s",
	OpUpvalClose: "upval_c",
	OpJmp:        "jmp",
	OpJmpf:       "jmpf",
	OpJmpfPop:    "jmpf_pop",
	OpJmpbPop:    "jmpb_pop",
	OpCall:       "call",
	OpNewObj:     "new_obj",
	OpPropDef:    "prop_d",
	OpPropGet:    "prop_g",
	OpPropSet:    "prop_s",
	OpArray:      "array",
	OpSzdArr:     "szd_arr",
	OpIdxGet:     "idx_g",
	OpIdxSet:     "idx_s",
	OpClosure:    "closure",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("opcode(%d)", byte(op))
}

// OperandWidth is the number of fixed-width operand bytes that follow the
// opcode byte itself (not counting the variable-length closure upvalue
// descriptors, which OperandWidth reports as 4 — lit16+k16 — and the
// compiler/disassembler special-case separately).
func (op Opcode) OperandWidth() int {
	switch op {
	case OpLit8, OpCall:
		return 1
	case OpLit16, OpGlobDef, OpGlobGet, OpGlobSet,
		OpLocGet, OpLocSet, OpUpvalGet, OpUpvalSet,
		OpJmp, OpJmpf, OpJmpfPop, OpJmpbPop,
		OpPropDef, OpPropGet, OpPropSet, OpArray:
		return 2
	case OpClosure:
		return 4 // lit16 idx, k16 count; per-upvalue pairs follow and are variable
	}
	return 0
}

// stackEffect reports the net change in stack depth caused by op; opcodes
// whose effect depends on a runtime operand count (call, array, closure)
// report 0.
func (op Opcode) stackEffect() int {
	switch op {
	case OpPop, OpPopLoc, OpGlobDef, OpUpvalClose, OpJmpfPop, OpJmpbPop:
		return -1
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpLt, OpGt, OpWith:
		return -1
	case OpLd0, OpLd1, OpLit8, OpLit16, OpTrue, OpFalse, OpNil,
		OpGlobGet, OpLocGet, OpUpvalGet, OpNewObj:
		return +1
	case OpNeg, OpInv, OpGlobSet, OpLocSet, OpUpvalSet, OpJmpf:
		return 0
	case OpPropDef:
		return -1
	case OpPropGet:
		return 0
	case OpPropSet:
		return -1
	case OpIdxGet:
		return -1
	case OpIdxSet:
		return -2
	case OpSzdArr:
		return -1
	case OpRet, OpJmp:
		return 0
	}
	return 0
}
