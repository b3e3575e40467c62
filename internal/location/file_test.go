package location

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/navroute/internal/observability"
	"github.com/vyrodovalexey/navroute/internal/retry"
)

func TestFileSource_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	f, err := NewFileSource(filepath.Join(t.TempDir(), "location"))
	require.NoError(t, err)
	defer func() { _ = f.Stop() }()

	assert.Empty(t, f.Current())
}

func TestFileSource_PushWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "location")
	require.NoError(t, os.WriteFile(path, []byte("https://x.io/app\nignored\n"), 0o600))

	f, err := NewFileSource(path)
	require.NoError(t, err)
	defer func() { _ = f.Stop() }()

	assert.Equal(t, "https://x.io/app", f.Current())

	require.NoError(t, f.Push("/app/users/1"))
	assert.Equal(t, "https://x.io/app/users/1", f.Current())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://x.io/app/users/1\n", string(data))

	require.NoError(t, f.Replace("#frag"))
	assert.Equal(t, "https://x.io/app/users/1#frag", f.Current())
}

func TestFileSource_ExternalEditNotifies(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "location")
	require.NoError(t, os.WriteFile(path, []byte("/a\n"), 0o600))

	f, err := NewFileSource(path, WithFileDebounce(10*time.Millisecond))
	require.NoError(t, err)

	var calls atomic.Int32
	f.Subscribe(func() { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.Start(ctx))
	require.NoError(t, f.Start(ctx))
	defer func() { _ = f.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("/b\n"), 0o600))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "/b", f.Current())
}

func TestFileSource_ReadWithPoller(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "location")
	require.NoError(t, os.WriteFile(path, []byte("/a\n"), 0o600))

	f, err := NewFileSource(path)
	require.NoError(t, err)
	defer func() { _ = f.Stop() }()

	var calls atomic.Int32
	p := NewPoller(ReaderFunc(f.Read), WithPollInterval(5*time.Millisecond))
	cancel := p.Subscribe(func() { calls.Add(1) })
	defer cancel()

	require.NoError(t, os.WriteFile(path, []byte("/b\n"), 0o600))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, "/b", f.Current())
	assert.Equal(t, "/b", p.Current())
}

func TestFileSource_PushRetriesThenFails(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	path := filepath.Join(t.TempDir(), "missing", "location")

	f, err := NewFileSource(path,
		WithFileLogger(observability.NewLoggerFromZap(zap.New(core))),
		WithFileRetry(retry.Policy{Attempts: 3, Initial: time.Millisecond, Max: time.Millisecond}),
	)
	require.NoError(t, err)
	defer func() { _ = f.Stop() }()

	err = f.Push("/a")
	require.Error(t, err)
	assert.Empty(t, f.Current())
	assert.Equal(t, 2, logs.FilterMessage("retrying location file write").Len())
}
