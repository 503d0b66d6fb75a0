package intern

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternStability(t *testing.T) {
	Reset()

	a := Intern("foo")
	b := Intern("bar")
	c := Intern("foo")

	require.Equal(t, a, c)
	require.NotEqual(t, a, b)
	require.Equal(t, "foo", a.Text())
	require.Equal(t, "bar", b.Text())
}
