package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaelith/lang/lang/intern"
	"github.com/kaelith/lang/lang/value"
)

func TestNumString(t *testing.T) {
	assert.Equal(t, "2", value.Num(2).String())
	assert.Equal(t, "2.5", value.Num(2.5).String())
	assert.Equal(t, "0", value.Num(0).String())
	assert.Equal(t, "-3", value.Num(-3).String())
}

func TestBoolString(t *testing.T) {
	assert.Equal(t, "true", value.Bool(true).String())
	assert.Equal(t, "false", value.Bool(false).String())
}

func TestNilString(t *testing.T) {
	assert.Equal(t, "nil", value.Nil{}.String())
}

func TestTruthy(t *testing.T) {
	assert.True(t, value.Truthy(value.Num(0)))
	assert.True(t, value.Truthy(value.NewStr("")))
	assert.False(t, value.Truthy(value.Bool(false)))
	assert.False(t, value.Truthy(value.Nil{}))
	assert.True(t, value.Truthy(value.Bool(true)))
}

func TestEqualNumbersToleratesRoundingNoise(t *testing.T) {
	a := value.Num(0.1 + 0.2)
	b := value.Num(0.3)
	assert.True(t, value.Equal(a, b))
	assert.False(t, value.Equal(value.Num(1), value.Num(2)))
}

func TestEqualNumbersUseAbsoluteEpsilon(t *testing.T) {
	// a difference far larger than machine epsilon must not compare equal,
	// even when it is tiny relative to the operands' own magnitude.
	assert.False(t, value.Equal(value.Num(1000000), value.Num(1000000.000001)))
}

func TestEqualStrAndNilAreStructural(t *testing.T) {
	assert.True(t, value.Equal(value.NewStr("hi"), value.NewStr("hi")))
	assert.False(t, value.Equal(value.NewStr("hi"), value.NewStr("bye")))
	assert.True(t, value.Equal(value.Nil{}, value.Nil{}))
}

func TestEqualObjectsAreByIdentity(t *testing.T) {
	o1 := value.NewObject()
	o2 := value.NewObject()
	assert.False(t, value.Equal(o1, o2), "distinct objects with the same (empty) contents must not compare equal")
	assert.True(t, value.Equal(o1, o1))
}

func TestObjectGetSet(t *testing.T) {
	o := value.NewObject()
	name := intern.Intern("count")
	_, ok := o.Get(name)
	require.False(t, ok)

	o.Set(name, value.Num(3))
	v, ok := o.Get(name)
	require.True(t, ok)
	assert.Equal(t, value.Num(3), v)
}

func TestObjectHasMethod(t *testing.T) {
	o := value.NewObject()
	plus := intern.Intern("+")
	o.Set(plus, &value.NativeFunction{Name: "+", Arity: 2, Handler: func(args []value.Value) (value.Value, error) {
		return args[0], nil
	}})
	o.Set(intern.Intern("x"), value.Num(1))

	_, ok := o.HasMethod(plus)
	assert.True(t, ok)
	_, ok = o.HasMethod(intern.Intern("x"))
	assert.False(t, ok, "a plain field is not a method even if present")
}

func TestObjectWithMergeFavorsOther(t *testing.T) {
	k, j := intern.Intern("k"), intern.Intern("j")
	base := value.NewObject()
	base.Set(k, value.Num(1))

	overlay := value.NewObject()
	overlay.Set(k, value.Num(9))
	overlay.Set(j, value.Num(2))

	merged := base.With(overlay)

	v, ok := merged.Get(k)
	require.True(t, ok)
	assert.Equal(t, value.Num(9), v, "overlay's field wins on collision")

	v, ok = merged.Get(j)
	require.True(t, ok)
	assert.Equal(t, value.Num(2), v)

	_, ok = base.Get(j)
	assert.False(t, ok, "with must not mutate the receiver")
}

func TestArrayString(t *testing.T) {
	a := value.NewArray([]value.Value{value.Num(1), value.Num(2), value.NewStr("x")})
	assert.Equal(t, "[1, 2, x]", a.String())
}

func TestUpvalueCloseCapturesCurrentValue(t *testing.T) {
	var slot value.Value = value.Num(1)
	up := &value.Upvalue{Loc: &slot}
	slot = value.Num(2)
	require.Equal(t, value.Num(2), *up.Loc)

	up.Close()
	slot = value.Num(99)
	assert.Equal(t, value.Num(2), *up.Loc, "closing must snapshot the value at close time, not track the old slot")
}

func TestNativeFunctionString(t *testing.T) {
	nf := &value.NativeFunction{Name: "print", Arity: 1}
	assert.Equal(t, "<native function>", nf.String())
}
