package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exerrors "github.com/randalmurphal/dashexport/internal/errors"
	"github.com/randalmurphal/dashexport/internal/pylit"
)

func writeStore(t *testing.T, storeDir, user, content string) string {
	t.Helper()
	dir := filepath.Join(storeDir, user)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	storeDir := t.TempDir()
	path := writeStore(t, storeDir, "bob", `{'my_view': {'title': u'My View',
 'dashlets': [{'type': 'hoststats'}]},
 'main': {'title': 'Main'}}
`)

	s, err := Load(storeDir, "bob")
	require.NoError(t, err)

	assert.Equal(t, "bob", s.Owner)
	assert.Equal(t, path, s.Path)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"main", "my_view"}, s.Names())

	def, ok := s.Get("my_view")
	require.True(t, ok)
	assert.Equal(t, "My View", Title(def))
}

func TestLoad_MissingStoreIsNothingToDo(t *testing.T) {
	_, err := Load(t.TempDir(), "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, exerrors.ErrStoreNotFound)
	assert.Equal(t, 0, exerrors.AsExportError(err).Category().ExitCode())
}

func TestLoad_MalformedStore(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not a literal", "{not valid python literal ???"},
		{"code", "__import__('os').system('true')"},
		{"list instead of dict", "['main']"},
		{"non string key", "{1: {}}"},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storeDir := t.TempDir()
			writeStore(t, storeDir, "bob", tt.content)

			_, err := Load(storeDir, "bob")
			require.Error(t, err)
			assert.ErrorIs(t, err, exerrors.ErrStoreFormat)
		})
	}
}

func TestLoad_RejectsBadUser(t *testing.T) {
	_, err := Load(t.TempDir(), "../etc")
	assert.ErrorIs(t, err, exerrors.ErrInvalidName)
}

func TestParse_StripsLineBreaks(t *testing.T) {
	d, err := Parse("{'a':\r\n 1,\n 'b': [2,\n 3]}")
	require.NoError(t, err)

	b, ok := d.Get("b")
	require.True(t, ok)
	assert.True(t, pylit.Equal(pylit.List{int64(2), int64(3)}, b))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "", Title(nil))
	assert.Equal(t, "", Title(pylit.NewDict()))

	d := pylit.NewDict()
	require.NoError(t, d.Set("title", int64(3)))
	assert.Equal(t, "", Title(d))
}
