package pagecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecd-go/onecd/internal/blockdevice"
)

const testPageSize = 4096

func newTestDevice(t *testing.T, pages int) *blockdevice.Device {
	t.Helper()
	path := t.TempDir() + "/cache.dat"
	dev, err := blockdevice.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	require.NoError(t, dev.SetSize(int64(testPageSize)*int64(pages)))
	return dev
}

func TestGetIsReadThroughOnMiss(t *testing.T) {
	dev := newTestDevice(t, 4)
	want := make([]byte, testPageSize)
	want[0] = 0xAB
	require.NoError(t, dev.Write(0, want))

	c := New(dev, testPageSize, Config{})
	buf, err := c.Get(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), buf[0])
	assert.EqualValues(t, 1, c.Statistics().Misses)
}

func TestGetForWriteMarksDirtyAndFlushPersists(t *testing.T) {
	dev := newTestDevice(t, 4)
	c := New(dev, testPageSize, Config{})

	buf, err := c.GetForWrite(1, false)
	require.NoError(t, err)
	buf[0] = 0x42
	require.NoError(t, c.Flush())

	raw := make([]byte, testPageSize)
	require.NoError(t, dev.Read(int64(testPageSize), raw))
	assert.Equal(t, byte(0x42), raw[0])
}

func TestGarbageNonAggressiveRespectsTTL(t *testing.T) {
	dev := newTestDevice(t, 4)
	c := New(dev, testPageSize, Config{TTL: time.Millisecond})
	_, err := c.Get(0)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	c.Garbage(false)
	c.mu.Lock()
	_, stillPresent := c.pages[0]
	c.mu.Unlock()
	assert.False(t, stillPresent, "an expired clean page must be dropped by a non-aggressive pass")
}

func TestGarbageNeverDropsDirtyPages(t *testing.T) {
	dev := newTestDevice(t, 4)
	c := New(dev, testPageSize, Config{TTL: time.Millisecond})
	_, err := c.GetForWrite(0, false)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	c.Garbage(true)
	c.mu.Lock()
	_, stillPresent := c.pages[0]
	c.mu.Unlock()
	assert.True(t, stillPresent, "a dirty page must never be dropped, even by an aggressive pass")
}

func TestEvictionKeepsCacheAtCapacity(t *testing.T) {
	dev := newTestDevice(t, 4)
	c := New(dev, testPageSize, Config{CapacityBytes: 2 * testPageSize})
	for _, p := range []uint32{0, 1, 2, 3} {
		_, err := c.Get(p)
		require.NoError(t, err)
	}
	c.mu.Lock()
	n := len(c.pages)
	c.mu.Unlock()
	assert.LessOrEqual(t, n, 2)
	assert.Greater(t, c.Statistics().Evictions, uint64(0))
}

func TestFingerprintDetectsContentChange(t *testing.T) {
	a := make([]byte, testPageSize)
	b := make([]byte, testPageSize)
	b[0] = 1
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	assert.Equal(t, Fingerprint(a), Fingerprint(a))
}
