package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// testRegistry builds the kinds shared across codec tests.
func testRegistry(t *testing.T) *types.Registry {
	t.Helper()
	reg := types.NewRegistry()
	kinds := []*types.Kind{
		types.MustKind("X", []types.Field{
			{Name: "value", Type: types.TypeInt},
		}),
		types.MustKind("person", []types.Field{
			{Name: "title", Type: types.TypeString},
			{Name: "age", Type: types.TypeInt},
			{Name: "friend", Type: types.TypeEntity, ElemKind: "person"},
			{Name: "left", Type: types.TypeEntity, ElemKind: "person"},
			{Name: "right", Type: types.TypeEntity, ElemKind: "person"},
		}),
		types.MustKind("team", []types.Field{
			{Name: "label", Type: types.TypeString},
			{Name: "members", Type: types.TypeContainer, ElemKind: "person"},
		}),
		types.MustKind("crew", []types.Field{
			{Name: "members", Type: types.TypeContainer, ElemKind: "crew"},
		}),
	}
	for _, k := range kinds {
		require.NoError(t, reg.Register(k))
	}
	return reg
}

func mustKind(t *testing.T, reg *types.Registry, name string) *types.Kind {
	t.Helper()
	k, err := reg.Lookup(name)
	require.NoError(t, err)
	return k
}

func newPerson(t *testing.T, reg *types.Registry, name string) *types.Entity {
	t.Helper()
	e, err := mustKind(t, reg, "person").New(name)
	require.NoError(t, err)
	return e
}

// countRefs walks a form and counts "$ref" markers.
func countRefs(v any) int {
	switch val := v.(type) {
	case Form:
		n := 0
		if _, ok := val[keyRef]; ok {
			n++
		}
		for _, sub := range val {
			n += countRefs(sub)
		}
		return n
	case map[string]any:
		return countRefs(Form(val))
	case []any:
		n := 0
		for _, sub := range val {
			n += countRefs(sub)
		}
		return n
	default:
		return 0
	}
}

func TestEncodeExampleForm(t *testing.T) {
	reg := testRegistry(t)
	e, err := mustKind(t, reg, "X").New("x")
	require.NoError(t, err)
	require.NoError(t, e.Set("value", 42))

	f, err := NewEncoder(Options{}).Encode(e)
	require.NoError(t, err)
	assert.Equal(t, Form{
		"name":     "x",
		"isactive": true,
		"value":    int64(42),
		"type":     "X",
	}, f)
}

func TestEncodeSkipsUnsetAttributes(t *testing.T) {
	reg := testRegistry(t)
	e := newPerson(t, reg, "alice")
	require.NoError(t, e.Set("title", "captain"))

	f, err := NewEncoder(Options{}).Encode(e)
	require.NoError(t, err)
	assert.Contains(t, f, "title")
	assert.NotContains(t, f, "age")
	assert.NotContains(t, f, "friend")
}

func TestEncodeNestedEntity(t *testing.T) {
	reg := testRegistry(t)
	alice := newPerson(t, reg, "alice")
	bob := newPerson(t, reg, "bob")
	require.NoError(t, bob.Set("age", 44))
	require.NoError(t, alice.Set("friend", bob))

	f, err := NewEncoder(Options{}).Encode(alice)
	require.NoError(t, err)

	sub, ok := f["friend"].(Form)
	require.True(t, ok)
	assert.Equal(t, "bob", sub["name"])
	assert.Equal(t, "person", sub["type"])
	assert.Equal(t, int64(44), sub["age"])
}

func TestEncodeContainerAttribute(t *testing.T) {
	reg := testRegistry(t)
	team, err := mustKind(t, reg, "team").New("away")
	require.NoError(t, err)

	members := types.NewContainer(mustKind(t, reg, "person"))
	require.NoError(t, members.Add(newPerson(t, reg, "bob")))
	require.NoError(t, members.Add(newPerson(t, reg, "alice")))
	require.NoError(t, team.Set("members", members))

	f, err := NewEncoder(Options{}).Encode(team)
	require.NoError(t, err)

	entries, ok := f["members"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 2)
	// Insertion order is preserved.
	assert.Equal(t, "bob", entries[0].(Form)["name"])
	assert.Equal(t, "alice", entries[1].(Form)["name"])
}

func TestEncodeTopLevelContainer(t *testing.T) {
	reg := testRegistry(t)
	c := types.NewContainer(mustKind(t, reg, "person"))
	require.NoError(t, c.Add(newPerson(t, reg, "alice")))

	f, err := NewEncoder(Options{}).EncodeContainer(c)
	require.NoError(t, err)
	assert.Equal(t, "container", f["type"])
	assert.Equal(t, "person", f["of"])
	require.Len(t, f["entries"], 1)
}

func TestEncodeCycleEmitsSingleMarker(t *testing.T) {
	reg := testRegistry(t)
	alice := newPerson(t, reg, "alice")
	bob := newPerson(t, reg, "bob")
	require.NoError(t, alice.Set("friend", bob))
	require.NoError(t, bob.Set("friend", alice))

	f, err := NewEncoder(Options{}).Encode(alice)
	require.NoError(t, err)

	assert.Equal(t, 1, countRefs(f))
	marker := f["friend"].(Form)["friend"].(Form)
	assert.Equal(t, "person/alice", marker[keyRef])
}

func TestEncodeSelfReference(t *testing.T) {
	reg := testRegistry(t)
	alice := newPerson(t, reg, "alice")
	require.NoError(t, alice.Set("friend", alice))

	f, err := NewEncoder(Options{}).Encode(alice)
	require.NoError(t, err)
	assert.Equal(t, Form{keyRef: "person/alice"}, f["friend"])
}

func TestEncodeCycleErrorPolicy(t *testing.T) {
	reg := testRegistry(t)
	alice := newPerson(t, reg, "alice")
	bob := newPerson(t, reg, "bob")
	require.NoError(t, alice.Set("friend", bob))
	require.NoError(t, bob.Set("friend", alice))

	_, err := NewEncoder(Options{OnCycle: types.CycleError}).Encode(alice)
	assert.ErrorIs(t, err, ErrCyclicReference)
	// The error names the object path down to the cycle.
	assert.Contains(t, err.Error(), "person/alice.friend")
}

func TestEncodeDiamond(t *testing.T) {
	reg := testRegistry(t)
	mk := func() *types.Entity {
		a := newPerson(t, reg, "a")
		b := newPerson(t, reg, "b")
		c := newPerson(t, reg, "c")
		d := newPerson(t, reg, "d")
		require.NoError(t, b.Set("friend", d))
		require.NoError(t, c.Set("friend", d))
		require.NoError(t, a.Set("left", b))
		require.NoError(t, a.Set("right", c))
		return a
	}

	t.Run("default serializes shared entity twice", func(t *testing.T) {
		f, err := NewEncoder(Options{}).Encode(mk())
		require.NoError(t, err)
		assert.Equal(t, 0, countRefs(f))
		assert.Equal(t, "d", f["left"].(Form)["friend"].(Form)["name"])
		assert.Equal(t, "d", f["right"].(Form)["friend"].(Form)["name"])
	})

	t.Run("dedup serializes shared entity once", func(t *testing.T) {
		f, err := NewEncoder(Options{DedupShared: true}).Encode(mk())
		require.NoError(t, err)
		assert.Equal(t, 1, countRefs(f))
	})
}

func TestEncodeDepthLimit(t *testing.T) {
	reg := testRegistry(t)
	// A chain deeper than the limit; distinct entities, no cycle.
	head := newPerson(t, reg, "p0")
	cur := head
	for i := 1; i < 20; i++ {
		next := newPerson(t, reg, "p"+strings.Repeat("x", i))
		require.NoError(t, cur.Set("friend", next))
		cur = next
	}

	_, err := NewEncoder(Options{MaxDepth: 5}).Encode(head)
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestEncodeNodeLimit(t *testing.T) {
	reg := testRegistry(t)
	a := newPerson(t, reg, "a")
	b := newPerson(t, reg, "b")
	c := newPerson(t, reg, "c")
	require.NoError(t, a.Set("left", b))
	require.NoError(t, a.Set("right", c))

	_, err := NewEncoder(Options{MaxNodes: 2}).Encode(a)
	assert.ErrorIs(t, err, ErrLimitExceeded)
}
