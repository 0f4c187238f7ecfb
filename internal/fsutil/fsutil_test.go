package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	for _, name := range []string{"b.inputs", "a.inputs", "other.txt", "sub/c.inputs"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := FindFilesByExtension(dir, ".inputs")
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "a.inputs"), files[0])
	assert.Equal(t, filepath.Join(dir, "b.inputs"), files[1])
	assert.Equal(t, filepath.Join(dir, "sub", "c.inputs"), files[2])
}

func TestWriteFileNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")

	require.NoError(t, WriteFileNew(path, []byte("first")))

	err := WriteFileNew(path, []byte("second"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrExist)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))
}

func TestMkdirAllNew(t *testing.T) {
	dir := t.TempDir()

	nested := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, MkdirAllNew(nested))

	err := MkdirAllNew(nested)
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrExist)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "program.ex")
	require.NoError(t, os.WriteFile(src, []byte("binary"), 0o755))

	t.Run("preserves contents and mode", func(t *testing.T) {
		dst := filepath.Join(dir, "copy.ex")
		require.NoError(t, CopyFile(src, dst))

		content, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "binary", string(content))

		info, err := os.Stat(dst)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	})

	t.Run("into directory keeps base name", func(t *testing.T) {
		sub := filepath.Join(dir, "run_0")
		require.NoError(t, os.Mkdir(sub, 0o755))
		require.NoError(t, CopyFileInto(src, sub))

		_, err := os.Stat(filepath.Join(sub, "program.ex"))
		assert.NoError(t, err)
	})

	t.Run("follows symlinks", func(t *testing.T) {
		link := filepath.Join(dir, "link.ex")
		require.NoError(t, os.Symlink(src, link))

		dst := filepath.Join(dir, "from_link.ex")
		require.NoError(t, CopyFile(link, dst))

		content, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "binary", string(content))
	})

	t.Run("error - missing source", func(t *testing.T) {
		err := CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "out"))
		require.Error(t, err)
	})
}

func TestRotateBounded(t *testing.T) {
	t.Run("missing file is a no-op", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.json")
		require.NoError(t, RotateBounded(path, 5))
		_, err := os.Lstat(path + ".1")
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("shifts existing backups", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "index.json")

		for _, round := range []string{"one", "two", "three"} {
			require.NoError(t, RotateBounded(path, 5))
			require.NoError(t, os.WriteFile(path, []byte(round), 0o644))
		}

		current, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "three", string(current))

		first, err := os.ReadFile(path + ".1")
		require.NoError(t, err)
		assert.Equal(t, "two", string(first))

		second, err := os.ReadFile(path + ".2")
		require.NoError(t, err)
		assert.Equal(t, "one", string(second))
	})

	t.Run("oldest backup drops off", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "state")

		for i := 0; i < 4; i++ {
			require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
			require.NoError(t, RotateBounded(path, 2))
		}

		// only two backups survive
		_, err := os.Lstat(path + ".3")
		assert.True(t, os.IsNotExist(err))

		first, err := os.ReadFile(path + ".1")
		require.NoError(t, err)
		assert.Equal(t, "d", string(first))

		second, err := os.ReadFile(path + ".2")
		require.NoError(t, err)
		assert.Equal(t, "c", string(second))
	})
}
