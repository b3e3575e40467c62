// Package location provides the location collaborators a router resolves
// against: where the current location is read from, how changes are
// announced, and how navigation is recorded.
package location

// Reader reports the current location, such as "/app/users/7?tab=a" or a
// full "https://host/app/#/users/7".
type Reader interface {
	Current() string
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func() string

// Current calls f.
func (f ReaderFunc) Current() string { return f() }

// Source announces location changes. Subscribe returns a function that
// cancels the subscription. Cancel never blocks on a running callback.
type Source interface {
	Subscribe(fn func()) (cancel func())
}

// Navigator records navigation. Push adds an entry; Replace overwrites the
// current one. A target starting with "#" changes only the fragment.
type Navigator interface {
	Push(target string) error
	Replace(target string) error
}

// subscribers is a registry of change callbacks shared by sources.
type subscribers struct {
	next int
	fns  map[int]func()
}

func (s *subscribers) add(fn func()) int {
	if s.fns == nil {
		s.fns = make(map[int]func())
	}
	s.next++
	s.fns[s.next] = fn
	return s.next
}

func (s *subscribers) remove(id int) {
	delete(s.fns, id)
}

// snapshot returns the callbacks in subscription order.
func (s *subscribers) snapshot() []func() {
	out := make([]func(), 0, len(s.fns))
	for id := 1; id <= s.next; id++ {
		if fn, ok := s.fns[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
