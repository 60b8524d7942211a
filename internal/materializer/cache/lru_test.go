package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCache_MissThenHit(t *testing.T) {
	c, err := New[string](2)
	require.NoError(t, err)

	_, ok := c.Get("a")
	require.False(t, ok)

	c.Put("a", "value-a")
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, "value-a", v)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New[string](2)
	require.NoError(t, err)

	c.Put("a", "A")
	c.Put("b", "B")
	c.Put("c", "C") // capacity 2: inserting c evicts a, the least recently touched

	_, ok := c.Get("a")
	require.False(t, ok, "a should have been evicted")

	v, ok := c.Get("b")
	require.True(t, ok)
	require.Equal(t, "B", v)

	v, ok = c.Get("c")
	require.True(t, ok)
	require.Equal(t, "C", v)
}

func TestCache_HitRefreshesRecency(t *testing.T) {
	c, err := New[string](2)
	require.NoError(t, err)

	c.Put("a", "A")
	c.Put("b", "B")

	_, ok := c.Get("a") // touch a so b becomes least recently used
	require.True(t, ok)

	c.Put("c", "C")

	_, ok = c.Get("b")
	require.False(t, ok, "b should have been evicted")

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, "A", v)
}

func TestCache_RespectsCapacity(t *testing.T) {
	c, err := New[int](3)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		c.Put(string(rune('a'+i)), i)
	}

	require.LessOrEqual(t, c.Len(), 3)
}
