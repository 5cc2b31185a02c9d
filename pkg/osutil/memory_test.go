package osutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCgroupMemoryLimit(t *testing.T) {
	for _, tc := range []struct {
		contents string
		limit    uint64
		ok       bool
	}{
		{"536870912\n", 536870912, true},
		{"9223372036854771712\n", 0, false},
		{"max\n", 0, false},
		{"", 0, false},
		{"not a number", 0, false},
	} {
		limit, ok := parseCgroupMemoryLimit(tc.contents)
		assert.Equal(t, tc.ok, ok, tc.contents)
		assert.Equal(t, tc.limit, limit, tc.contents)
	}
}

func TestGetTotalMemory(t *testing.T) {
	assert.NotZero(t, GetTotalMemory())
}
