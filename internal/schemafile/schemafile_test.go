package schemafile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlSchema = `kinds:
  - name: note
    fields:
      - name: title
        type: string
        required: true
      - name: pinned
        type: bool
        default: false
  - name: tagset
    fields:
      - name: tags
        type: list
`

const tomlSchema = `[[kinds]]
name = "note"

[[kinds.fields]]
name = "title"
type = "string"
required = true

[[kinds.fields]]
name = "pinned"
type = "bool"
default = false
`

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "schema.yaml", yamlSchema)

	kinds, err := Load(path)
	require.NoError(t, err)
	require.Len(t, kinds, 2)

	assert.Equal(t, "note", kinds[0].Name())
	assert.Equal(t, "tagset", kinds[1].Name())

	fields := kinds[0].Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "title", fields[0].Name)
	assert.Equal(t, types.TypeString, fields[0].Type)
	assert.True(t, fields[0].Required)
	assert.Equal(t, false, fields[1].Default)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "schema.toml", tomlSchema)

	kinds, err := Load(path)
	require.NoError(t, err)
	require.Len(t, kinds, 1)
	assert.Equal(t, "note", kinds[0].Name())
	assert.Len(t, kinds[0].Fields(), 2)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, dir, "schema.json", "{}")
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("invalid declaration", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yaml", "kinds:\n  - name: \"9lives\"\n")
		_, err := Load(path)
		assert.ErrorIs(t, err, types.ErrInvalidField)
	})
}

func TestLoadDir(t *testing.T) {
	t.Run("missing directory is not an error", func(t *testing.T) {
		reg := types.NewRegistry()
		require.NoError(t, LoadDir(filepath.Join(t.TempDir(), "nope"), reg))
		assert.Empty(t, reg.Kinds())
	})

	t.Run("loads files in sorted order", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "b.yaml", "kinds:\n  - name: second\n")
		writeFile(t, dir, "a.yaml", "kinds:\n  - name: first\n")
		writeFile(t, dir, "readme.txt", "not a schema")

		reg := types.NewRegistry()
		require.NoError(t, LoadDir(dir, reg))

		kinds := reg.Kinds()
		require.Len(t, kinds, 2)
		assert.Equal(t, "first", kinds[0].Name())
		assert.Equal(t, "second", kinds[1].Name())
	})

	t.Run("duplicate kind across files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.yaml", "kinds:\n  - name: note\n")
		writeFile(t, dir, "b.yaml", "kinds:\n  - name: note\n")

		err := LoadDir(dir, types.NewRegistry())
		assert.ErrorIs(t, err, types.ErrDuplicateKind)
	})
}
