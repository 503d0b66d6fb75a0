package machine

import "github.com/kaelith/lang/lang/value"

// Frame records one call to a Lang function: the running closure, the
// instruction pointer into its chunk, and the stack base the closure's
// locals and working values are offset from.
type Frame struct {
	closure *value.Function
	ip      int
	base    int
}

// captureUpvalAt returns the open upvalue cell for stack slot index,
// creating and inserting one (sorted by descending index, so the common
// case of closing from the top of the stack only ever touches a prefix of
// the list) if none exists yet. Multiple closures capturing the same local
// share the returned cell.
func (th *Thread) captureUpvalAt(index int) *value.Upvalue {
	var prev *value.Upvalue
	cur := th.openUpval
	for cur != nil && cur.Index > index {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.Index == index {
		return cur
	}
	fresh := &value.Upvalue{Loc: &th.stack[index], Index: index}
	fresh.Next = cur
	if prev == nil {
		th.openUpval = fresh
	} else {
		prev.Next = fresh
	}
	return fresh
}

// closeUpvalsFrom closes every open upvalue captured at or above stack
// index from, unlinking it from the open list. Called on `ret`, which
// closes every upvalue rooted anywhere in the returning frame.
func (th *Thread) closeUpvalsFrom(from int) {
	for th.openUpval != nil && th.openUpval.Index >= from {
		up := th.openUpval
		th.openUpval = up.Next
		up.Close()
		up.Next = nil
	}
}

// closeUpvalAt closes the single open upvalue captured at stack index,
// if one exists, unlinking it from the open list. Called on `upval_c`,
// which closes exactly the topmost local being popped out of scope.
func (th *Thread) closeUpvalAt(index int) {
	var prev *value.Upvalue
	cur := th.openUpval
	for cur != nil && cur.Index > index {
		prev = cur
		cur = cur.Next
	}
	if cur == nil || cur.Index != index {
		return
	}
	if prev == nil {
		th.openUpval = cur.Next
	} else {
		prev.Next = cur.Next
	}
	cur.Close()
	cur.Next = nil
}
