package compiler

import (
	"fmt"

	"github.com/kaelith/lang/lang/token"
)

// Error is a compile-time diagnostic: duplicate local, too many locals,
// jump overflow, `ret` at script level, and the other named compile errors
// of the error-handling design.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

func (fc *funcState) fail(pos token.Position, format string, args ...any) {
	panic(&Error{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}
