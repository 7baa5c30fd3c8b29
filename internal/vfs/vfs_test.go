package vfs

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSCreateThenOpenRoundTrip(t *testing.T) {
	var fs OS
	path := filepath.Join(t.TempDir(), "f.txt")

	w, err := fs.Create(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := fs.Open(path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestOSMkdirAllCreatesNestedDirectories(t *testing.T) {
	var fs OS
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, fs.MkdirAll(dir))
	assert.True(t, fs.Exists(dir))
}

func TestOSExistsFalseForAbsentPath(t *testing.T) {
	var fs OS
	assert.False(t, fs.Exists(filepath.Join(t.TempDir(), "nope")))
}

func TestOSOpenOfMissingFileFails(t *testing.T) {
	var fs OS
	_, err := fs.Open(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
