package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestCacheExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(5*time.Minute, WithClock(clock.Now))

	c.Put("k", []int{1, 2})

	clock.Advance(5*time.Minute - time.Nanosecond)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, v)

	clock.Advance(time.Nanosecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is dropped on lookup")
}

func TestCachePutRefreshesAge(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := New(time.Minute, WithClock(clock.Now))

	c.Put("k", "old")
	clock.Advance(50 * time.Second)
	c.Put("k", "new")
	clock.Advance(50 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestCacheClear(t *testing.T) {
	c := New(time.Minute)
	c.Put(ValuesKey("s1", "A!A:B"), 1)
	c.Put(HeadersKey("s2", "B"), 2)

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(ValuesKey("s1", "A!A:B"))
	assert.False(t, ok)
}

func TestBatchKeyIgnoresOrder(t *testing.T) {
	a := BatchKey("s1", []string{"People!A:C", "Teams!A:B"})
	b := BatchKey("s1", []string{"Teams!A:B", "People!A:C"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, BatchKey("s2", []string{"Teams!A:B", "People!A:C"}))

	ranges := []string{"b", "a"}
	BatchKey("s", ranges)
	assert.Equal(t, []string{"b", "a"}, ranges, "input slice is not reordered")
}
