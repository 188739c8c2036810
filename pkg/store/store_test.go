package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

func testRegistry(t *testing.T) *types.Registry {
	t.Helper()
	reg := types.NewRegistry()
	require.NoError(t, reg.Register(types.MustKind("note", []types.Field{
		{Name: "title", Type: types.TypeString},
	})))
	return reg
}

func TestNewKnownBackends(t *testing.T) {
	reg := testRegistry(t)
	for _, backend := range []string{
		types.BackendMemory,
		types.BackendSQLite,
		types.BackendRedis,
		types.BackendMongo,
	} {
		t.Run(backend, func(t *testing.T) {
			st, err := New(reg, backend)
			require.NoError(t, err)
			require.NotNil(t, st)
			// Detached until Attach is called.
			_, err = st.Bucket("note")
			assert.ErrorIs(t, err, types.ErrStoreDetached)
		})
	}
}

func TestNewUnknownBackend(t *testing.T) {
	st, err := New(testRegistry(t), "etcd")
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
	assert.Nil(t, st)
}

func TestOpenMemory(t *testing.T) {
	reg := testRegistry(t)
	st, err := Open(reg, types.Config{Backend: types.BackendMemory})
	require.NoError(t, err)
	defer st.Detach()

	bucket, err := st.Bucket("note")
	require.NoError(t, err)

	k, err := reg.Lookup("note")
	require.NoError(t, err)
	e, err := k.New("hello")
	require.NoError(t, err)
	_, err = bucket.Put(e)
	require.NoError(t, err)

	got, err := bucket.Get("hello")
	require.NoError(t, err)
	assert.True(t, e.Equal(got))
}

func TestOpenSQLite(t *testing.T) {
	st, err := Open(testRegistry(t), types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.NoError(t, st.Detach())
}
