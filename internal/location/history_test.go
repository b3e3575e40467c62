package location

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_PushIsSilent(t *testing.T) {
	t.Parallel()

	h := NewHistory("https://example.com/app")
	var calls atomic.Int32
	h.Subscribe(func() { calls.Add(1) })

	require.NoError(t, h.Push("/app/users/1"))

	assert.Equal(t, "https://example.com/app/users/1", h.Current())
	assert.Equal(t, 2, h.Len())
	assert.Zero(t, calls.Load())
}

func TestHistory_FragmentChangesNotify(t *testing.T) {
	t.Parallel()

	h := NewHistory("/app/#/home")
	var calls atomic.Int32
	h.Subscribe(func() { calls.Add(1) })

	require.NoError(t, h.Push("#/users"))
	assert.Equal(t, "/app/#/users", h.Current())
	assert.Equal(t, int32(1), calls.Load())

	// Same fragment again is not a change.
	require.NoError(t, h.Replace("#/users"))
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, h.Replace("#/about"))
	assert.Equal(t, "/app/#/about", h.Current())
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, int32(2), calls.Load())
}

func TestHistory_BackForward(t *testing.T) {
	t.Parallel()

	h := NewHistory("/a")
	require.NoError(t, h.Push("/b"))
	require.NoError(t, h.Push("/c"))

	var seen []string
	h.Subscribe(func() { seen = append(seen, h.Current()) })

	assert.True(t, h.Back())
	assert.True(t, h.Back())
	assert.False(t, h.Back())
	assert.True(t, h.Forward())

	assert.Equal(t, []string{"/b", "/a", "/b"}, seen)

	// Pushing from the middle drops forward entries.
	require.NoError(t, h.Push("/d"))
	assert.False(t, h.Forward())
	assert.Equal(t, 3, h.Len())
	assert.False(t, h.Go(0))
}

func TestHistory_SetAndUnsubscribe(t *testing.T) {
	t.Parallel()

	h := NewHistory("/")
	var calls atomic.Int32
	cancel := h.Subscribe(func() { calls.Add(1) })

	h.Set("/typed")
	assert.Equal(t, "/typed", h.Current())
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	h.Set("/again")
	assert.Equal(t, int32(1), calls.Load())
}

func TestJoin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current string
		target  string
		want    string
	}{
		{name: "path keeps origin", current: "https://x.io/a?q=1#f", target: "/b", want: "https://x.io/b"},
		{name: "relative path", current: "/a", target: "b", want: "/b"},
		{name: "fragment", current: "/a?q=1#old", target: "#new", want: "/a?q=1#new"},
		{name: "absolute url", current: "/a", target: "http://y.io/c", want: "http://y.io/c"},
		{name: "origin only current", current: "https://x.io", target: "/c", want: "https://x.io/c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, join(tt.current, tt.target))
		})
	}
}
