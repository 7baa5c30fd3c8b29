package blockdevice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecd-go/onecd/internal/onecderr"
)

func TestCreateThenWriteReadRoundTrip(t *testing.T) {
	path := t.TempDir() + "/dev.dat"
	dev, err := Create(path)
	require.NoError(t, err)
	defer dev.Close()

	require.NoError(t, dev.SetSize(4096))
	want := []byte("hello block device")
	require.NoError(t, dev.Write(0, want))

	got := make([]byte, len(want))
	require.NoError(t, dev.Read(0, got))
	assert.Equal(t, want, got)
}

func TestReadPastEndOfFileIsOutOfBounds(t *testing.T) {
	path := t.TempDir() + "/dev.dat"
	dev, err := Create(path)
	require.NoError(t, err)
	defer dev.Close()
	require.NoError(t, dev.SetSize(10))

	buf := make([]byte, 100)
	err = dev.Read(0, buf)
	require.Error(t, err)
	assert.True(t, onecderr.Is(err, onecderr.OutOfBounds))
}

func TestWriteOnReadSharedDeviceFailsReadOnly(t *testing.T) {
	path := t.TempDir() + "/dev.dat"
	creator, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, creator.SetSize(4096))
	require.NoError(t, creator.Close())

	dev, err := Open(path, ReadShared)
	require.NoError(t, err)
	defer dev.Close()

	err = dev.Write(0, []byte("x"))
	require.Error(t, err)
	assert.True(t, onecderr.Is(err, onecderr.ReadOnly))

	err = dev.SetSize(8192)
	require.Error(t, err)
	assert.True(t, onecderr.Is(err, onecderr.ReadOnly))
}

func TestSetSizeGrowsAndShrinksReportedSize(t *testing.T) {
	path := t.TempDir() + "/dev.dat"
	dev, err := Create(path)
	require.NoError(t, err)
	defer dev.Close()

	require.NoError(t, dev.SetSize(8192))
	sz, err := dev.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 8192, sz)

	require.NoError(t, dev.SetSize(4096))
	sz, err = dev.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 4096, sz)
}

func TestCreateRefusesToOverwriteExistingFile(t *testing.T) {
	path := t.TempDir() + "/dev.dat"
	dev, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, dev.Close())

	_, err = Create(path)
	require.Error(t, err)
}

func TestOpenExclusiveExcludesSecondWriter(t *testing.T) {
	path := t.TempDir() + "/dev.dat"
	first, err := Create(path)
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.SetSize(4096))

	_, err = Open(path, ReadWriteExclusive)
	require.Error(t, err, "a second exclusive lock on the same file must fail")
}

func TestClosedDevicePathAndModeAccessors(t *testing.T) {
	path := t.TempDir() + "/dev.dat"
	dev, err := Create(path)
	require.NoError(t, err)
	assert.Equal(t, path, dev.Path())
	assert.Equal(t, ReadWriteExclusive, dev.Mode())
	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close(), "Close must be idempotent")
}
