package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerator_UniqueAndIncreasing(t *testing.T) {
	g := NewGenerator(7)
	seen := make(map[int64]struct{}, 10000)
	var last int64
	for i := 0; i < 10000; i++ {
		id := g.Next()
		require.Greater(t, id, last)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
		last = id
	}
}

func TestGenerator_EncodesNode(t *testing.T) {
	g := NewGenerator(513)
	id := g.Next()
	require.Equal(t, int64(513), (id>>seqBits)&maxNode)
}

func TestNewGenerator_OutOfRangeNode(t *testing.T) {
	require.Equal(t, int64(1), NewGenerator(-3).node)
	require.Equal(t, int64(1), NewGenerator(4096).node)
}
