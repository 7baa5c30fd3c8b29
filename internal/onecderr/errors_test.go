package onecderr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorRendersOpKindAndDetails(t *testing.T) {
	err := New(CorruptRecord, "table.GetRecord", D("index", 3), D("reason", "tombstone"))
	msg := err.Error()
	assert.Contains(t, msg, "table.GetRecord")
	assert.Contains(t, msg, "CorruptRecord")
	assert.Contains(t, msg, "index=3")
	assert.Contains(t, msg, "reason=tombstone")
}

func TestWrapRendersCauseAndUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(IoError, "blockdevice.Write", cause)
	assert.Contains(t, err.Error(), "disk full")
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestIsMatchesKindThroughStdlibErrorsIs(t *testing.T) {
	err := New(OutOfBounds, "object.Read")
	assert.True(t, errors.Is(err, SentinelFor(OutOfBounds)))
	assert.False(t, errors.Is(err, SentinelFor(IoError)))
}

func TestPackageIsHelperMatchesKindAndUnwrapsChain(t *testing.T) {
	inner := New(CorruptBlob, "table.ReadChain")
	outer := Wrap(IoError, "database.Open", inner)
	assert.True(t, Is(outer, IoError))
	assert.False(t, Is(outer, CorruptBlob), "Is only inspects the outermost *Error, it does not walk to a wrapped *Error cause")
	assert.True(t, Is(fmt.Errorf("context: %w", inner), CorruptBlob), "non-*Error wrappers are unwrapped to reach the first *Error")
}

func TestKindStringCoversAllValues(t *testing.T) {
	kinds := []Kind{Unavailable, OutOfBounds, CorruptHeader, CorruptObject, CorruptBlob,
		CorruptRecord, SchemaMismatch, ReadOnly, IoError}
	for _, k := range kinds {
		assert.NotEqual(t, "Unknown", k.String())
	}
	assert.Equal(t, "Unknown", Kind(999).String())
}
