package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContainer(t *testing.T) (*Kind, *Container) {
	t.Helper()
	k := MustKind("note", []Field{{Name: "title", Type: TypeString}})
	return k, NewContainer(k)
}

func mustEntity(t *testing.T, k *Kind, name string) *Entity {
	t.Helper()
	e, err := k.New(name)
	require.NoError(t, err)
	return e
}

func TestContainerAddRejectsDuplicates(t *testing.T) {
	k, c := newTestContainer(t)

	require.NoError(t, c.Add(mustEntity(t, k, "a")))
	err := c.Add(mustEntity(t, k, "a"))
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, 1, c.Len())
}

func TestContainerPutOverwritesInPlace(t *testing.T) {
	k, c := newTestContainer(t)

	require.NoError(t, c.Add(mustEntity(t, k, "a")))
	require.NoError(t, c.Add(mustEntity(t, k, "b")))

	replacement := mustEntity(t, k, "a")
	require.NoError(t, replacement.Set("title", "updated"))
	require.NoError(t, c.Put(replacement))

	// Position preserved, value replaced.
	assert.Equal(t, []string{"a", "b"}, c.Names())
	got, err := c.Get("a")
	require.NoError(t, err)
	assert.Same(t, replacement, got)
}

func TestContainerRejectsWrongKind(t *testing.T) {
	_, c := newTestContainer(t)
	other := MustKind("task", []Field{{Name: "done", Type: TypeBool}})

	assert.ErrorIs(t, c.Add(mustEntity(t, other, "x")), ErrTypeMismatch)
	assert.ErrorIs(t, c.Put(mustEntity(t, other, "x")), ErrTypeMismatch)
}

func TestContainerInsertionOrder(t *testing.T) {
	k, c := newTestContainer(t)
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(t, c.Add(mustEntity(t, k, name)))
	}
	assert.Equal(t, []string{"charlie", "alpha", "bravo"}, c.Names())
}

func TestContainerRemove(t *testing.T) {
	k, c := newTestContainer(t)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, c.Add(mustEntity(t, k, name)))
	}

	require.NoError(t, c.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, c.Names())
	assert.False(t, c.Has("b"))

	// Index stays consistent after the shift.
	got, err := c.Get("c")
	require.NoError(t, err)
	assert.Equal(t, "c", got.Name())

	assert.ErrorIs(t, c.Remove("b"), ErrNotFound)
	_, err = c.Get("b")
	assert.ErrorIs(t, err, ErrNotFound)
}
