package cpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalQueue_pushTryPopIsFIFOPerHandle(t *testing.T) {
	g := NewGlobalQueue(GlobalQueueOptions{Shards: 1})

	a, b, c := newTestHandle("a"), newTestHandle("b"), newTestHandle("c")
	g.Push(a)
	g.Push(b)
	g.Push(c)

	got, ok := g.TryPop(0)
	require.True(t, ok)
	require.Same(t, a, got)

	got, ok = g.TryPop(0)
	require.True(t, ok)
	require.Same(t, b, got)

	got, ok = g.TryPop(0)
	require.True(t, ok)
	require.Same(t, c, got)

	_, ok = g.TryPop(0)
	require.False(t, ok)
}

func TestGlobalQueue_tryPopRotatesAcrossShardsOnMiss(t *testing.T) {
	g := NewGlobalQueue(GlobalQueueOptions{Shards: 4})

	h := newTestHandle("only")
	g.Push(h)

	// A TryPop whose preferred shard (by threadID) is empty must still find
	// the handle by rotating through the remaining shards.
	got, ok := g.TryPop(999)
	require.True(t, ok)
	require.Same(t, h, got)
}

func TestGlobalQueue_tryPopHandlesNegativeThreadID(t *testing.T) {
	g := NewGlobalQueue(GlobalQueueOptions{Shards: 4})
	h := newTestHandle("x")
	g.Push(h)

	got, ok := g.TryPop(-7)
	require.True(t, ok)
	require.Same(t, h, got)
}

func TestGlobalQueue_lenCountsAcrossAllShards(t *testing.T) {
	g := NewGlobalQueue(GlobalQueueOptions{Shards: 4})
	for i := 0; i < 10; i++ {
		g.Push(newTestHandle("h"))
	}
	require.Equal(t, 10, g.Len())
}

func TestGlobalQueue_pushPastMaxLenInvokesOnFull(t *testing.T) {
	var fired int
	g := NewGlobalQueue(GlobalQueueOptions{
		Shards: 1,
		MaxLen: 2,
		OnFull: func() { fired++ },
	})

	g.Push(newTestHandle("a"))
	g.Push(newTestHandle("b"))
	g.Push(newTestHandle("c")) // exceeds MaxLen

	require.Equal(t, 1, fired)
	require.Equal(t, 2, g.Len())
}

func TestGlobalQueue_drainEmptiesEveryShard(t *testing.T) {
	g := NewGlobalQueue(GlobalQueueOptions{Shards: 4})
	for i := 0; i < 6; i++ {
		g.Push(newTestHandle("h"))
	}

	drained := g.Drain()
	require.Len(t, drained, 6)
	require.Equal(t, 0, g.Len())
}

func TestGlobalQueue_nilHandleRoundTrips(t *testing.T) {
	g := NewGlobalQueue(GlobalQueueOptions{Shards: 1})
	g.Push(nil)

	got, ok := g.TryPop(0)
	require.True(t, ok)
	require.Nil(t, got)
}
