package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointers(t *testing.T) {
	assert.Equal(t, "value", *String("value"))
	assert.EqualValues(t, 6, *Uint8(6))
	assert.EqualValues(t, 42, *Uint64(42))

	assert.EqualValues(t, 42, Uint64OrDefault(Uint64(42), 1))
	assert.EqualValues(t, 1, Uint64OrDefault(nil, 1))
}
