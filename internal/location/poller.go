package location

import (
	"sync"
	"time"

	"github.com/vyrodovalexey/navroute/internal/observability"
)

// DefaultPollInterval is the polling period used when none is configured.
const DefaultPollInterval = 200 * time.Millisecond

// Poller turns any Reader into a Source by comparing the location at a
// fixed interval. It is the fallback when nothing announces changes.
type Poller struct {
	reader   Reader
	interval time.Duration
	logger   observability.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollInterval sets the polling period.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPollerLogger sets the logger.
func WithPollerLogger(logger observability.Logger) PollerOption {
	return func(p *Poller) { p.logger = logger }
}

// NewPoller creates a poller over reader.
func NewPoller(reader Reader, opts ...PollerOption) *Poller {
	p := &Poller{
		reader:   reader,
		interval: DefaultPollInterval,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Current delegates to the wrapped reader.
func (p *Poller) Current() string {
	return p.reader.Current()
}

// Subscribe starts a polling goroutine that calls fn whenever the location
// differs from the previous observation.
func (p *Poller) Subscribe(fn func()) func() {
	stop := make(chan struct{})
	var once sync.Once

	cached := p.reader.Current()
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				current := p.reader.Current()
				if current == cached {
					continue
				}
				p.logger.Debug("location changed",
					observability.String("from", cached),
					observability.String("to", current),
				)
				cached = current
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() { close(stop) })
	}
}
