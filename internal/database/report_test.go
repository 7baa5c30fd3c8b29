package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLostObjectsYAMLRendersEachEntry(t *testing.T) {
	out, err := LostObjectsYAML([]LostObject{{Page: 42, Wide: true}, {Page: 7, Wide: false}})
	require.NoError(t, err)
	assert.Contains(t, out, "page: 42")
	assert.Contains(t, out, "wide: true")
	assert.Contains(t, out, "page: 7")
	assert.Contains(t, out, "wide: false")
}

func TestRecoveryReportYAML(t *testing.T) {
	r := RecoveryReport{TableName: "CONFIG", CandidatePages: []uint32{10, 11}}
	out, err := r.YAML()
	require.NoError(t, err)
	assert.Contains(t, out, "table: CONFIG")
	assert.Contains(t, out, "- 10")
	assert.Contains(t, out, "- 11")
}
