// internal/storage/file_storage_test.go
package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *FileStorage {
	t.Helper()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestSaveAndLoadTextFile(t *testing.T) {
	fs := newTestStorage(t)

	require.NoError(t, fs.SaveTextFile("games", "a.txt", []byte("ahoj")))

	content, err := fs.LoadTextFile("games", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "ahoj", string(content))
}

func TestSaveTextFileOverwrites(t *testing.T) {
	fs := newTestStorage(t)

	require.NoError(t, fs.SaveTextFile("games", "a.txt", []byte("stara")))
	require.NoError(t, fs.SaveTextFile("games", "a.txt", []byte("nowa")))

	content, err := fs.LoadTextFile("games", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "nowa", string(content))

	// The temp file from the atomic write does not linger.
	_, err = os.Stat(filepath.Join(fs.BaseDir, "games", "a.txt.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveAndLoadJSONFile(t *testing.T) {
	fs := newTestStorage(t)

	type doc struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}

	require.NoError(t, fs.SaveJSONFile("games", "g.json", doc{Name: "Kapitan", Score: 40}))

	var loaded doc
	require.NoError(t, fs.LoadJSONFile("games", "g.json", &loaded))
	assert.Equal(t, doc{Name: "Kapitan", Score: 40}, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	fs := newTestStorage(t)

	_, err := fs.LoadTextFile("games", "missing.txt")
	assert.Error(t, err)

	var v map[string]string
	assert.Error(t, fs.LoadJSONFile("games", "missing.json", &v))
}

func TestFileExists(t *testing.T) {
	fs := newTestStorage(t)

	assert.False(t, fs.FileExists("games", "a.txt"))
	require.NoError(t, fs.SaveTextFile("games", "a.txt", []byte("x")))
	assert.True(t, fs.FileExists("games", "a.txt"))
}

func TestListFiles(t *testing.T) {
	fs := newTestStorage(t)

	require.NoError(t, fs.SaveTextFile("games", "b.json", []byte("{}")))
	require.NoError(t, fs.SaveTextFile("games", "a.json", []byte("{}")))
	require.NoError(t, fs.SaveTextFile("games", "notes.txt", []byte("x")))

	names, err := fs.ListFiles("games", ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, names)

	all, err := fs.ListFiles("games", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListFilesMissingDirectory(t *testing.T) {
	fs := newTestStorage(t)

	names, err := fs.ListFiles("nonexistent", ".json")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDeleteFile(t *testing.T) {
	fs := newTestStorage(t)

	require.NoError(t, fs.SaveTextFile("games", "a.txt", []byte("x")))
	require.NoError(t, fs.DeleteFile("games", "a.txt"))
	assert.False(t, fs.FileExists("games", "a.txt"))

	// Deleting a missing file is not an error.
	assert.NoError(t, fs.DeleteFile("games", "a.txt"))
}
