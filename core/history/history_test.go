package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingOverwrite(t *testing.T) {
	r := NewRing(512)
	for i := 1; i <= 600; i++ {
		r.Add(fmt.Sprintf("line-%d", i))
	}

	assert.Equal(t, 512, r.Len())

	newest, ok := r.Get(0)
	require.True(t, ok)
	assert.Equal(t, "line-600", newest)

	oldest, ok := r.Get(511)
	require.True(t, ok)
	assert.Equal(t, "line-89", oldest, "the oldest 88 lines should be evicted")

	_, ok = r.Get(512)
	assert.False(t, ok)
}

func TestRingPartiallyFull(t *testing.T) {
	r := NewRing(4)
	r.Add("a")
	r.Add("b")

	got, ok := r.Get(0)
	require.True(t, ok)
	assert.Equal(t, "b", got)

	got, ok = r.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a", got)

	_, ok = r.Get(2)
	assert.False(t, ok, "ages beyond the fill level are absent")

	_, ok = r.Get(-1)
	assert.False(t, ok)
}

func TestRingClear(t *testing.T) {
	r := NewRing(2)
	r.Add("a")
	r.Add("b")
	r.Clear()

	assert.Equal(t, 0, r.Len())
	_, ok := r.Get(0)
	assert.False(t, ok)
}

func ExampleRing_Get() {
	r := NewRing(2)
	r.Add("first")
	r.Add("second")
	r.Add("third") // overwrites "first"

	newest, _ := r.Get(0)
	oldest, _ := r.Get(1)
	fmt.Println(newest, oldest)

	// Output: third second
}
