package layout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVersionTupleTouchBumpsStagedV1FirstThenV2(t *testing.T) {
	var vt VersionTuple
	vt.CommittedV1, vt.CommittedV2 = 5, 9

	first := vt.Touch()
	assert.True(t, first)
	assert.EqualValues(t, 6, vt.StagedV1)
	assert.EqualValues(t, 9, vt.StagedV2)

	second := vt.Touch()
	assert.False(t, second)
	assert.EqualValues(t, 6, vt.StagedV1, "staged_v1 must not bump again within the same session")
	assert.EqualValues(t, 10, vt.StagedV2)
}

func TestVersionTupleCommitFoldsStagedIntoCommitted(t *testing.T) {
	var vt VersionTuple
	vt.CommittedV1, vt.CommittedV2 = 1, 1
	vt.Touch()
	vt.Touch()
	vt.Commit()
	assert.EqualValues(t, 2, vt.CommittedV1)
	assert.EqualValues(t, 2, vt.CommittedV2)
}

func TestVersionTupleCommitNoopWithoutTouch(t *testing.T) {
	var vt VersionTuple
	vt.CommittedV1, vt.CommittedV2 = 3, 4
	vt.Commit()
	assert.EqualValues(t, 3, vt.CommittedV1)
	assert.EqualValues(t, 4, vt.CommittedV2)
}

func TestPackUnpackTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2023, time.November, 7, 13, 45, 30, 0, time.Local)
	packed := PackTimestamp(ts)
	got := UnpackTimestamp(packed[:])
	assert.Equal(t, ts.Year(), got.Year())
	assert.Equal(t, ts.Month(), got.Month())
	assert.Equal(t, ts.Day(), got.Day())
	assert.Equal(t, ts.Hour(), got.Hour())
	assert.Equal(t, ts.Minute(), got.Minute())
	assert.Equal(t, ts.Second(), got.Second())
}

func TestParseFormatVersionUnknownFailsOpen(t *testing.T) {
	assert.Equal(t, FormatUnknown, ParseFormatVersion(0xDEADBEEF))
	assert.Equal(t, Format8_3_8_0, ParseFormatVersion(uint32(Format8_3_8_0)))
}

func TestLegacyRootInlineCapacityBoundedByAllocTableCapacity(t *testing.T) {
	cap := LegacyRootInlineCapacity(4096)
	assert.LessOrEqual(t, cap, LegacyAllocTableCapacity)
	assert.Greater(t, cap, 0)
}

func TestWideFatlevelCapacitiesScaleWithPageSize(t *testing.T) {
	f0 := WideFatlevel0Capacity(4096)
	f1 := WideFatlevel1Capacity(4096)
	assert.Greater(t, f1, f0, "fatlevel 1 must address strictly more pages than fatlevel 0")
	assert.Greater(t, WideFatlevel0Capacity(8192), f0, "a larger page holds more fatlevel 0 entries")
}
