package location

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/navroute/internal/util"
)

func TestThrottle_RejectsBurst(t *testing.T) {
	t.Parallel()

	h := NewHistory("/")
	th := NewThrottle(h, 0.001, 2)

	require.NoError(t, th.Push("/a"))
	require.NoError(t, th.Replace("/b"))

	err := th.Push("/c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrNavigationThrottled))

	var te *util.ThrottleError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "/c", te.Target)
	assert.Positive(t, te.RetryAfter)

	assert.Equal(t, "/b", h.Current())
	assert.Equal(t, 2, h.Len())
}

func TestThrottle_ZeroBurstIsOne(t *testing.T) {
	t.Parallel()

	th := NewThrottle(NewHistory("/"), 0.001, 0)
	require.NoError(t, th.Push("/a"))
	assert.Error(t, th.Push("/b"))
}
