package location

import (
	"strings"
	"sync"
)

// History is an in-memory session history. It implements Reader, Source
// and Navigator. Subscribers are notified synchronously when the user
// moves through the history (Back, Forward, Go, Set) and when a push or
// replace changes only the fragment; a regular Push is silent, matching
// browser pushState.
type History struct {
	mu      sync.Mutex
	entries []string
	index   int
	subs    subscribers
}

// NewHistory creates a history holding a single entry.
func NewHistory(initial string) *History {
	return &History{entries: []string{initial}}
}

// Current returns the location of the active entry.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Push adds target after the active entry, discarding forward entries.
func (h *History) Push(target string) error {
	h.mu.Lock()
	prev := h.entries[h.index]
	next := join(prev, target)
	h.entries = append(h.entries[:h.index+1], next)
	h.index++
	h.mu.Unlock()

	if fragmentOnly(prev, next) {
		h.notify()
	}
	return nil
}

// Replace overwrites the active entry.
func (h *History) Replace(target string) error {
	h.mu.Lock()
	prev := h.entries[h.index]
	next := join(prev, target)
	h.entries[h.index] = next
	h.mu.Unlock()

	if fragmentOnly(prev, next) {
		h.notify()
	}
	return nil
}

// Set replaces the active entry as if typed into the address bar and
// notifies subscribers.
func (h *History) Set(loc string) {
	h.mu.Lock()
	h.entries[h.index] = loc
	h.mu.Unlock()
	h.notify()
}

// Back moves one entry back. It reports false at the first entry.
func (h *History) Back() bool { return h.Go(-1) }

// Forward moves one entry forward. It reports false at the last entry.
func (h *History) Forward() bool { return h.Go(1) }

// Go moves delta entries and notifies subscribers. Out of range moves are
// ignored.
func (h *History) Go(delta int) bool {
	h.mu.Lock()
	i := h.index + delta
	if delta == 0 || i < 0 || i >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.index = i
	h.mu.Unlock()

	h.notify()
	return true
}

// Subscribe registers fn for location changes.
func (h *History) Subscribe(fn func()) func() {
	h.mu.Lock()
	id := h.subs.add(fn)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		h.subs.remove(id)
		h.mu.Unlock()
	}
}

func (h *History) notify() {
	h.mu.Lock()
	fns := h.subs.snapshot()
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// join resolves target against the current location. Fragment targets
// replace the fragment; everything else replaces the path while keeping
// the origin of current.
func join(current, target string) string {
	if strings.HasPrefix(target, "#") {
		base, _, _ := strings.Cut(current, "#")
		return base + target
	}
	if strings.Contains(target, "://") {
		return target
	}
	origin := originOf(current)
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return origin + target
}

func originOf(loc string) string {
	i := strings.Index(loc, "://")
	if i <= 0 {
		return ""
	}
	rest := loc[i+3:]
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		return loc[:i+3+j]
	}
	return loc
}

// fragmentOnly reports whether prev and next differ only after "#".
func fragmentOnly(prev, next string) bool {
	pb, pf, _ := strings.Cut(prev, "#")
	nb, nf, hasHash := strings.Cut(next, "#")
	return hasHash && pb == nb && pf != nf
}
