package textenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectUTF8BOM(t *testing.T) {
	enc, n := Detect([]byte{0xEF, 0xBB, 0xBF, 'h', 'i'})
	assert.Equal(t, UTF8Encoding, enc)
	assert.Equal(t, 3, n)
}

func TestDetectUTF16LEBOM(t *testing.T) {
	enc, n := Detect([]byte{0xFF, 0xFE, 'h', 0, 'i', 0})
	assert.Equal(t, UTF16LE, enc)
	assert.Equal(t, 2, n)
}

func TestDetectDefaultsToCP1251(t *testing.T) {
	enc, n := Detect([]byte("plain ascii"))
	assert.Equal(t, CP1251, enc)
	assert.Equal(t, 0, n)
}

func TestToUTF8UTF16LERoundTrip(t *testing.T) {
	raw := []byte{'h', 0, 'i', 0}
	s, err := ToUTF8(raw, 0, UTF16LE)
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
}

func TestToUTF8PlainUTF8PassesThrough(t *testing.T) {
	s, err := ToUTF8([]byte("hello"), 0, UTF8Encoding)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestToUTF8CP1251DecodesCyrillic(t *testing.T) {
	// 0xCF 0xF0 0xE8 0xE2 0xE5 0xF2 is "Привет" in CP1251.
	raw := []byte{0xCF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2}
	s, err := ToUTF8(raw, 0, CP1251)
	require.NoError(t, err)
	assert.Equal(t, "Привет", s)
}

func TestToUTF8RespectsOffsetPastBOM(t *testing.T) {
	raw := []byte{0xFF, 0xFE, 'o', 0, 'k', 0}
	s, err := ToUTF8(raw, 2, UTF16LE)
	require.NoError(t, err)
	assert.Equal(t, "ok", s)
}
