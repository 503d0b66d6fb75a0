// Package machine implements the virtual machine that executes compiled
// chunks: a value stack, a call-frame stack, the open-upvalue list, and the
// globals table described by the VM semantics.
package machine

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/kaelith/lang/lang/intern"
	"github.com/kaelith/lang/lang/value"
)

// stackSize is the minimum value-stack capacity the VM semantics require.
const stackSize = 65536

// Thread owns one VM instance: its value stack, call-frame stack, globals,
// and open-upvalue list. A Thread is not safe for concurrent use; the model
// is single-threaded and synchronous.
type Thread struct {
	// Stdout is where the `log` native and friends write program output. If
	// nil, os.Stdout is used.
	Stdout io.Writer

	// MaxSteps bounds the number of dispatched instructions before the run is
	// cancelled. A value <= 0 means no limit.
	MaxSteps int

	stack     []value.Value
	sp        int
	frames    []*Frame
	globals   map[intern.Str]value.Value
	openUpval *value.Upvalue // head of the open-upvalue list, sorted by descending stack address

	natives map[intern.Str]*value.NativeFunction

	ctx       context.Context
	ctxCancel context.CancelFunc
	cancelled atomic.Bool
	steps     uint64
	maxSteps  uint64

	stdout io.Writer
}

// NewThread allocates a Thread ready to run a compiled script.
func NewThread() *Thread {
	return &Thread{
		stack:   make([]value.Value, stackSize),
		globals: make(map[intern.Str]value.Value),
		natives: make(map[intern.Str]*value.NativeFunction),
	}
}

func (th *Thread) init() {
	if th.ctx == nil {
		th.ctx, th.ctxCancel = context.WithCancel(context.Background())
	}
	if th.MaxSteps <= 0 {
		th.maxSteps--
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
}

// Define registers a native function under name, callable from Lang source
// as a global. It must be called before Run.
func (th *Thread) Define(name string, arity int, handler value.NativeHandler) {
	nf := &value.NativeFunction{Name: name, Arity: arity, Handler: handler}
	key := intern.Intern(name)
	if th.natives == nil {
		th.natives = make(map[intern.Str]*value.NativeFunction)
	}
	th.natives[key] = nf
	if th.globals == nil {
		th.globals = make(map[intern.Str]value.Value)
	}
	th.globals[key] = nf
}

// Global returns the current binding of name, if any.
func (th *Thread) Global(name string) (value.Value, bool) {
	v, ok := th.globals[intern.Intern(name)]
	return v, ok
}
