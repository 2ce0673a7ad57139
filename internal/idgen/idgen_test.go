package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithPrefix(t *testing.T) {
	id := WithPrefix("ivn_")

	assert.True(t, strings.HasPrefix(id, "ivn_"))
	assert.Len(t, id, 4+24)
}

func TestWithPrefix_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := WithPrefix("evt_")
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestHex(t *testing.T) {
	assert.Len(t, Hex(16), 32)
	assert.NotEqual(t, Hex(16), Hex(16))
}
