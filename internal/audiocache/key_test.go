package audiocache_test

import (
	"testing"

	"github.com/nyaru/annil-go/internal/audiocache"
	"github.com/stretchr/testify/assert"
)

func TestHashKeyDeterministic(t *testing.T) {
	a := audiocache.HashKey("some-album", 1, 1)
	b := audiocache.HashKey("some-album", 1, 1)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashKeyDiffersByInput(t *testing.T) {
	base := audiocache.HashKey("A", 1, 1)

	assert.NotEqual(t, base, audiocache.HashKey("B", 1, 1))
	assert.NotEqual(t, base, audiocache.HashKey("A", 2, 1))
	assert.NotEqual(t, base, audiocache.HashKey("A", 1, 2))
}

func TestHashKeyIsLowercaseHex(t *testing.T) {
	key := audiocache.HashKey("A", 1, 1)
	for _, r := range key {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'), "unexpected rune %q", r)
	}
}
