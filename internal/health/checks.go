package health

import (
	"fmt"
	"sync"

	"github.com/vyrodovalexey/navroute/internal/router"
)

// RouterCheck reports a router's lifecycle. A paused router is degraded and
// a destroyed one is unhealthy.
func RouterCheck(r *router.Router) CheckFunc {
	return func() Check {
		switch state := r.State(); state {
		case router.StateIdle:
			return Check{Status: StatusHealthy, Message: fmt.Sprintf("%d routes", r.Len())}
		case router.StatePaused:
			return Check{Status: StatusDegraded, Message: "resolution paused"}
		default:
			return Check{Status: StatusUnhealthy, Message: state.String()}
		}
	}
}

// ReloadTracker remembers the outcome of the latest configuration reload.
type ReloadTracker struct {
	mu      sync.RWMutex
	lastErr error
}

// Observe records a reload outcome. A nil error clears a previous failure.
func (t *ReloadTracker) Observe(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastErr = err
}

// Check reports degraded while the latest reload was rejected. The previous
// configuration keeps serving, so a failed reload never makes the process
// unready.
func (t *ReloadTracker) Check() Check {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastErr != nil {
		return Check{Status: StatusDegraded, Message: t.lastErr.Error()}
	}
	return Check{Status: StatusHealthy}
}
