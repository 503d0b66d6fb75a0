// Package value implements the runtime value model of §3.4: a closed sum
// over Num, Bool, Nil, Str, Object, Array, Function, NativeFunction, and
// Ref. Following the machine package's interface-based value design, each
// variant is its own concrete type implementing the Value interface rather
// than a single struct with a discriminant tag.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dolthub/swiss"

	"github.com/kaelith/lang/lang/compiler"
	"github.com/kaelith/lang/lang/intern"
)

// Value is implemented by every runtime value.
type Value interface {
	// String renders the value per §6.3's printing rules.
	String() string
	// Type names the value's kind, for diagnostics.
	Type() string
}

// Num is an IEEE-754 double.
type Num float64

func (n Num) Type() string { return "num" }
func (n Num) String() string {
	f := float64(n)
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Bool is a boolean.
type Bool bool

func (b Bool) Type() string { return "bool" }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Nil is the unit/absent value.
type Nil struct{}

func (Nil) Type() string   { return "nil" }
func (Nil) String() string { return "nil" }

// Str is an interned string value.
type Str intern.Str

func (s Str) Type() string   { return "str" }
func (s Str) String() string { return intern.Str(s).Text() }

// NewStr interns text and wraps it as a Str value.
func NewStr(text string) Str { return Str(intern.Intern(text)) }

// Object is a shared, mutable mapping from interned field name to value,
// backed by a swiss-table hash map (insertion order is not significant per
// §3.4).
type Object struct {
	fields *swiss.Map[intern.Str, Value]
}

func NewObject() *Object {
	return &Object{fields: swiss.NewMap[intern.Str, Value](8)}
}

func (o *Object) Type() string { return "object" }

func (o *Object) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	it := o.fields.Iter()
	first := true
	for it.Next() {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		k, v := it.Pair()
		sb.WriteString(k.Text())
		sb.WriteByte('=')
		sb.WriteString(v.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// Get returns the field named name, or (nil, false) if absent.
func (o *Object) Get(name intern.Str) (Value, bool) {
	return o.fields.Get(name)
}

// Set installs or overwrites the field named name.
func (o *Object) Set(name intern.Str, v Value) {
	o.fields.Put(name, v)
}

// HasMethod reports whether name (an operator symbol such as "+", or a
// regular field name) resolves to a Function or NativeFunction, the
// mechanism behind operator overloading (§4.4.2).
func (o *Object) HasMethod(name intern.Str) (Value, bool) {
	v, ok := o.fields.Get(name)
	if !ok {
		return nil, false
	}
	switch v.(type) {
	case *Function, *NativeFunction:
		return v, true
	}
	return nil, false
}

// Len returns the number of fields o carries, for the `len` native.
func (o *Object) Len() int {
	n := 0
	it := o.fields.Iter()
	for it.Next() {
		n++
	}
	return n
}

// With produces a fresh object containing o's fields overlaid by other's
// (§4.4.6): other's fields win on key collision.
func (o *Object) With(other *Object) *Object {
	merged := NewObject()
	it := o.fields.Iter()
	for it.Next() {
		k, v := it.Pair()
		merged.fields.Put(k, v)
	}
	it = other.fields.Iter()
	for it.Next() {
		k, v := it.Pair()
		merged.fields.Put(k, v)
	}
	return merged
}

// Array is a shared, mutable, ordered sequence of values.
type Array struct {
	Elems []Value
}

func NewArray(elems []Value) *Array { return &Array{Elems: elems} }

func (a *Array) Type() string { return "array" }
func (a *Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a.Elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// Upvalue is one captured-variable cell, open (pointing at a live stack
// slot) or closed (owning its value inline), per §3.5.
type Upvalue struct {
	Loc   *Value // points into the stack while open, at &closed once closed
	Index int    // stack slot Loc was captured from; only meaningful while open
	closed Value
	Next  *Upvalue // open-list link, sorted by descending Index
}

func (u *Upvalue) Close() {
	u.closed = *u.Loc
	u.Loc = &u.closed
}

// Function is a closure: a shared function descriptor plus its own
// upvalue-slot array (§3.5).
type Function struct {
	Proto  *compiler.FuncProto
	Upvals []*Upvalue
}

func (f *Function) Type() string   { return "function" }
func (f *Function) String() string { return fmt.Sprintf("<function %s>", f.Proto.Name) }

// NativeHandler implements a host-provided function: it receives exactly
// Arity argument values and returns a result or a failure message (§6.1).
type NativeHandler func(args []Value) (Value, error)

// NativeFunction wraps a host function exposed to Lang programs.
type NativeFunction struct {
	Name    string
	Arity   int
	Handler NativeHandler
}

func (n *NativeFunction) Type() string   { return "native-function" }
func (n *NativeFunction) String() string { return "<native function>" }

// Ref is a boxed mutable cell, used for by-reference parameter passing.
type Ref struct {
	Val Value
}

func (r *Ref) Type() string   { return "ref" }
func (r *Ref) String() string { return r.Val.String() }

// Truthy implements §3.4's truthiness rule: false and nil are falsy, every
// other value (including 0 and "") is truthy.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case Bool:
		return bool(x)
	case Nil:
		return false
	}
	return true
}

// Equal implements §3.4's same-kind equality: numbers compare with epsilon
// tolerance, bools/nils/strings structurally, and objects/arrays/functions
// by identity (false unless the same reference).
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Num:
		y, ok := b.(Num)
		return ok && numEqual(float64(x), float64(y))
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case *Object:
		y, ok := b.(*Object)
		return ok && x == y
	case *Array:
		y, ok := b.(*Array)
		return ok && x == y
	case *Function:
		y, ok := b.(*Function)
		return ok && x == y
	case *NativeFunction:
		y, ok := b.(*NativeFunction)
		return ok && x == y
	case *Ref:
		y, ok := b.(*Ref)
		return ok && x == y
	}
	return false
}

// numEpsilon is the machine epsilon: the absolute tolerance two Nums may
// differ by and still compare equal.
const numEpsilon = 2.220446049250313e-16

func numEqual(a, b float64) bool {
	return math.Abs(a-b) < numEpsilon
}
