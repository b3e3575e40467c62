package location

import (
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/navroute/internal/util"
)

// Throttle limits the rate of navigation through a Navigator. Rejected
// navigations return a *util.ThrottleError.
type Throttle struct {
	next    Navigator
	limiter *rate.Limiter
}

// NewThrottle wraps next with a token bucket of perSecond navigations and
// the given burst.
func NewThrottle(next Navigator, perSecond float64, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Push forwards to the wrapped navigator when a token is available.
func (t *Throttle) Push(target string) error {
	if err := t.take(target); err != nil {
		return err
	}
	return t.next.Push(target)
}

// Replace forwards to the wrapped navigator when a token is available.
func (t *Throttle) Replace(target string) error {
	if err := t.take(target); err != nil {
		return err
	}
	return t.next.Replace(target)
}

func (t *Throttle) take(target string) error {
	r := t.limiter.Reserve()
	if !r.OK() {
		return util.NewThrottleError(target, 0)
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return util.NewThrottleError(target, delay)
	}
	return nil
}
