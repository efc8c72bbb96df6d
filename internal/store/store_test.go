package store

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenReadMissingFile(t *testing.T) {
	s := New(t.TempDir())

	_, _, err := s.OpenRead("nope.bin")
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}

func TestOpenReadReturnsSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.bin"), []byte("hello world"), 0o644))

	s := New(dir)

	blob, size, err := s.OpenRead("f.bin")
	require.NoError(t, err)
	defer blob.Close()

	require.EqualValues(t, 11, size)

	data, err := io.ReadAll(blob)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func TestOpenWriteTruncatesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, []byte("old contents here"), 0o644))

	s := New(dir)

	blob, err := s.OpenWrite("f.bin")
	require.NoError(t, err)

	_, err = blob.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, blob.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "new", string(data))
}

func TestPathJoinNoTraversalSanitization(t *testing.T) {
	s := New("/srv/tftp")
	require.Equal(t, "/srv/tftp/../../etc/passwd", s.path("../../etc/passwd"))
}

func TestPathJoinInsertsSeparatorOnce(t *testing.T) {
	s1 := New("/srv/tftp")
	s2 := New("/srv/tftp/")

	require.Equal(t, s1.path("f.bin"), s2.path("f.bin"))
}
