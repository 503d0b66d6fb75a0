// Package disasm renders compiled chunks back into readable bytecode
// listings, per §4.5: one instruction per line, a 4-digit address, the
// mnemonic, and decoded operands — literal values inline for lit ops, jump
// targets as "(src -> dst)", and nested function literals disassembled
// recursively after their enclosing chunk.
package disasm

import (
	"fmt"
	"io"

	"github.com/kaelith/lang/lang/compiler"
)

// Disassemble writes proto's bytecode listing to w, followed by the
// listings of every function literal proto's chunk contains, depth-first.
func Disassemble(w io.Writer, proto *compiler.FuncProto) error {
	name := proto.Name
	switch {
	case proto.IsScript:
		name = "<script>"
	case name == "":
		name = "<anon>"
	}
	if _, err := fmt.Fprintf(w, "== %s ==\n", name); err != nil {
		return err
	}
	return disassembleChunk(w, &proto.Chunk)
}

func disassembleChunk(w io.Writer, ch *compiler.Chunk) error {
	code := ch.Code
	var nested []*compiler.FuncProto

	for pc := 0; pc < len(code); {
		op := compiler.Opcode(code[pc])
		next, line, err := disasmInstr(w, ch, pc, op)
		if err != nil {
			return err
		}
		if op == compiler.OpLit8 || op == compiler.OpLit16 {
			if fp, ok := litAt(ch, code, pc, op); ok {
				nested = append(nested, fp)
			}
		}
		if op == compiler.OpClosure {
			idx := readU16(code, pc+1)
			if int(idx) < len(ch.Literals) {
				if fp, ok := ch.Literals[idx].(*compiler.FuncProto); ok {
					nested = append(nested, fp)
				}
			}
		}
		_ = line
		pc = next
	}

	for _, fp := range nested {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := Disassemble(w, fp); err != nil {
			return err
		}
	}
	return nil
}

// litAt returns the *FuncProto a lit_8/lit_16 instruction at pc pushes, if
// its literal happens to be a function (this doesn't normally occur — closures
// use OpClosure — but is handled for completeness of the literal pool).
func litAt(ch *compiler.Chunk, code []byte, pc int, op compiler.Opcode) (*compiler.FuncProto, bool) {
	var idx int
	if op == compiler.OpLit8 {
		idx = int(code[pc+1])
	} else {
		idx = int(readU16(code, pc+1))
	}
	if idx < 0 || idx >= len(ch.Literals) {
		return nil, false
	}
	fp, ok := ch.Literals[idx].(*compiler.FuncProto)
	return fp, ok
}

// disasmInstr writes one instruction's line and returns the pc of the
// instruction that follows it.
func disasmInstr(w io.Writer, ch *compiler.Chunk, pc int, op compiler.Opcode) (next int, line int32, err error) {
	line = ch.LineAt(pc)
	mnem := op.String()

	switch op {
	case compiler.OpLit8:
		idx := int(ch.Code[pc+1])
		_, err = fmt.Fprintf(w, "%04d %-12s %4d '%s'\n", pc, mnem, idx, litText(ch, idx))
		next = pc + 2

	case compiler.OpLit16:
		idx := int(readU16(ch.Code, pc+1))
		_, err = fmt.Fprintf(w, "%04d %-12s %4d '%s'\n", pc, mnem, idx, litText(ch, idx))
		next = pc + 3

	case compiler.OpCall:
		argc := int(ch.Code[pc+1])
		_, err = fmt.Fprintf(w, "%04d %-12s %4d\n", pc, mnem, argc)
		next = pc + 2

	case compiler.OpGlobDef, compiler.OpGlobGet, compiler.OpGlobSet:
		idx := int(readU16(ch.Code, pc+1))
		_, err = fmt.Fprintf(w, "%04d %-12s %4d '%s'\n", pc, mnem, idx, litText(ch, idx))
		next = pc + 3

	case compiler.OpLocGet, compiler.OpLocSet, compiler.OpUpvalGet, compiler.OpUpvalSet:
		slot := int(readU16(ch.Code, pc+1))
		_, err = fmt.Fprintf(w, "%04d %-12s %4d\n", pc, mnem, slot)
		next = pc + 3

	case compiler.OpJmp, compiler.OpJmpf, compiler.OpJmpfPop, compiler.OpJmpbPop:
		offset := int(readU16(ch.Code, pc+1))
		next = pc + 3
		dst := next + offset
		if op == compiler.OpJmpbPop {
			dst = next - offset
		}
		_, err = fmt.Fprintf(w, "%04d %-12s %4d (%04d -> %04d)\n", pc, mnem, offset, pc, dst)

	case compiler.OpPropDef, compiler.OpPropGet, compiler.OpPropSet:
		idx := int(readU16(ch.Code, pc+1))
		_, err = fmt.Fprintf(w, "%04d %-12s %4d '%s'\n", pc, mnem, idx, litText(ch, idx))
		next = pc + 3

	case compiler.OpArray:
		n := int(readU16(ch.Code, pc+1))
		_, err = fmt.Fprintf(w, "%04d %-12s %4d\n", pc, mnem, n)
		next = pc + 3

	case compiler.OpClosure:
		litIdx := int(readU16(ch.Code, pc+1))
		nup := int(readU16(ch.Code, pc+3))
		_, err = fmt.Fprintf(w, "%04d %-12s %4d '%s' (%d upvalue(s))\n", pc, mnem, litIdx, litText(ch, litIdx), nup)
		cursor := pc + 5
		for i := 0; i < nup && err == nil; i++ {
			isLocal := ch.Code[cursor] != 0
			idx := readU16(ch.Code, cursor+1)
			kind := "upvalue"
			if isLocal {
				kind = "local"
			}
			_, err = fmt.Fprintf(w, "%04d      |                     %s %d\n", pc, kind, idx)
			cursor += 3
		}
		next = cursor

	default:
		width := op.OperandWidth()
		_, err = fmt.Fprintf(w, "%04d %-12s\n", pc, mnem)
		next = pc + 1 + width
	}

	return next, line, err
}

func litText(ch *compiler.Chunk, idx int) string {
	if idx < 0 || idx >= len(ch.Literals) {
		return "?"
	}
	switch v := ch.Literals[idx].(type) {
	case float64:
		return fmt.Sprintf("%g", v)
	case string:
		return v
	case *compiler.FuncProto:
		name := v.Name
		if name == "" {
			name = "<anon>"
		}
		return fmt.Sprintf("<function %s>", name)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func readU16(code []byte, pc int) uint16 {
	return uint16(code[pc]) | uint16(code[pc+1])<<8
}
