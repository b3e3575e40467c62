package location

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/navroute/internal/observability"
	"github.com/vyrodovalexey/navroute/internal/retry"
)

// FileSource keeps the current location in a file. The first line of the
// file is the location. External edits are picked up through fsnotify and
// announced to subscribers; Push and Replace rewrite the file without
// announcing, the way pushState does not fire popstate.
type FileSource struct {
	path          string
	watcher       *fsnotify.Watcher
	logger        observability.Logger
	debounceDelay time.Duration
	retry         retry.Policy

	mu      sync.Mutex
	current string
	subs    subscribers
	running bool

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// FileOption configures a FileSource.
type FileOption func(*FileSource)

// WithFileLogger sets the logger.
func WithFileLogger(logger observability.Logger) FileOption {
	return func(f *FileSource) { f.logger = logger }
}

// WithFileDebounce sets how long events are coalesced before the file is
// read again.
func WithFileDebounce(d time.Duration) FileOption {
	return func(f *FileSource) { f.debounceDelay = d }
}

// WithFileRetry sets how failed reads and writes of the file are retried.
func WithFileRetry(p retry.Policy) FileOption {
	return func(f *FileSource) { f.retry = p }
}

// NewFileSource creates a source backed by path. A missing file reads as
// the empty location.
func NewFileSource(path string, opts ...FileOption) (*FileSource, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	f := &FileSource{
		path:          absPath,
		watcher:       fsWatcher,
		logger:        observability.NopLogger(),
		debounceDelay: 50 * time.Millisecond,
		retry:         retry.DefaultPolicy(),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	current, err := readLocation(absPath)
	if err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	f.current = current

	return f, nil
}

// Start begins watching the file's directory, so atomic renames are seen.
func (f *FileSource) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = true
	f.mu.Unlock()

	if err := f.watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", f.path, err)
	}

	f.logger.Info("watching location file", observability.String("path", f.path))

	go f.watch(ctx)
	return nil
}

// Stop stops watching and releases the watcher.
func (f *FileSource) Stop() error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return f.watcher.Close()
	}
	f.running = false
	f.mu.Unlock()

	close(f.stopCh)
	<-f.stoppedCh

	return f.watcher.Close()
}

// Current returns the last location read or written.
func (f *FileSource) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Read re-reads the file without notifying subscribers and returns the
// location. Read errors keep the last known location. It lets a Poller
// drive the file when fsnotify is unavailable.
func (f *FileSource) Read() string {
	loc, err := readLocation(f.path)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.logger.Warn("failed to read location file",
			observability.String("path", f.path),
			observability.Error(err),
		)
		return f.current
	}
	f.current = loc
	return loc
}

// Subscribe registers fn for external changes to the file.
func (f *FileSource) Subscribe(fn func()) func() {
	f.mu.Lock()
	id := f.subs.add(fn)
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		f.subs.remove(id)
		f.mu.Unlock()
	}
}

// Push writes target as the new location.
func (f *FileSource) Push(target string) error {
	f.mu.Lock()
	next := join(f.current, target)
	f.mu.Unlock()

	err := f.withRetry("write", func() error { return writeLocation(f.path, next) })
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.current = next
	f.mu.Unlock()
	return nil
}

// Replace is Push: a file holds a single entry.
func (f *FileSource) Replace(target string) error {
	return f.Push(target)
}

func (f *FileSource) watch(ctx context.Context) {
	defer close(f.stoppedCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case <-f.stopCh:
			return

		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path ||
				event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(f.debounceDelay)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			f.reload()

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Error("location file watcher error", observability.Error(err))
		}
	}
}

func (f *FileSource) reload() {
	var loc string
	err := f.withRetry("read", func() error {
		var err error
		loc, err = readLocation(f.path)
		return err
	})
	if err != nil {
		f.logger.Error("failed to read location file",
			observability.String("path", f.path),
			observability.Error(err),
		)
		return
	}

	f.mu.Lock()
	if loc == f.current {
		f.mu.Unlock()
		return
	}
	f.current = loc
	fns := f.subs.snapshot()
	f.mu.Unlock()

	f.logger.Debug("location file changed", observability.String("location", loc))
	for _, fn := range fns {
		fn()
	}
}

// withRetry retries op unless the file is not accessible at all.
func (f *FileSource) withRetry(op string, fn func() error) error {
	return retry.Do(context.Background(), f.retry, fn,
		retry.If(func(err error) bool { return !errors.Is(err, fs.ErrPermission) }),
		retry.OnRetry(func(attempt int, err error, wait time.Duration) {
			f.logger.Debug("retrying location file "+op,
				observability.Int("attempt", attempt),
				observability.Duration("wait", wait),
				observability.Error(err),
			)
		}),
	)
}

func readLocation(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read location file: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

func writeLocation(path, loc string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".location-*")
	if err != nil {
		return fmt.Errorf("write location file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(loc + "\n"); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write location file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write location file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write location file: %w", err)
	}
	return nil
}
