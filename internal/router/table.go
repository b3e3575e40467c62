package router

import (
	"context"
	"sort"
)

// Params holds named path parameters. It is nil for patterns without
// :name tokens.
type Params map[string]string

// Handler handles a literal route match.
type Handler func(ctx context.Context, params Params, query string)

// CaptureHandler handles a raw route match with positional captures.
type CaptureHandler func(ctx context.Context, captures ...string)

// QueryHandler handles the default and not-found outcomes.
type QueryHandler func(ctx context.Context, query string)

// Route is a registered route. Routes are immutable after registration.
type Route struct {
	pattern  Pattern
	matcher  *compiledMatcher
	handler  Handler
	captures CaptureHandler
	name     string
	hooks    *Hooks
}

// Pattern returns the pattern the route was registered with.
func (r *Route) Pattern() Pattern { return r.pattern }

// Name returns the route name, or "".
func (r *Route) Name() string { return r.name }

// Hooks returns the route hooks, or nil.
func (r *Route) Hooks() *Hooks { return r.hooks }

// RouteOption configures a route at registration.
type RouteOption func(*Route)

// As names a route for Generate.
func As(name string) RouteOption {
	return func(r *Route) { r.name = name }
}

// WithHooks attaches lifecycle hooks to a route.
func WithHooks(h Hooks) RouteOption {
	return func(r *Route) { r.hooks = &h }
}

// Target is one entry of a bulk registration.
type Target struct {
	Uses  Handler
	As    string
	Hooks *Hooks
}

// fallback is the default or not-found handler.
type fallback struct {
	handler QueryHandler
	hooks   *Hooks
}

func newFallback(h QueryHandler, hooks []Hooks) *fallback {
	f := &fallback{handler: h}
	if len(hooks) > 0 {
		f.hooks = &hooks[0]
	}
	return f
}

func newRoute(p Pattern, opts []RouteOption) *Route {
	r := &Route{pattern: p, matcher: compilePattern(p)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a literal pattern such as "/users/:id" or "/files/*".
func (r *Router) Add(pattern string, h Handler, opts ...RouteOption) *Router {
	route := newRoute(Literal(pattern), opts)
	route.handler = h
	r.register(route)
	return r
}

// AddRaw registers a raw expression. The handler receives the capture groups
// in order.
func (r *Router) AddRaw(expr Expression, h CaptureHandler, opts ...RouteOption) *Router {
	route := newRoute(Raw(expr), opts)
	route.captures = h
	r.register(route)
	return r
}

// On registers several literal routes at once. Deeper patterns are
// registered first so "/a/:id" is tried before "/a"; equal depths are
// ordered by pattern.
func (r *Router) On(routes map[string]Target) *Router {
	keys := make([]string, 0, len(routes))
	for k := range routes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := Depth(keys[i]), Depth(keys[j])
		if di != dj {
			return di > dj
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		t := routes[k]
		route := newRoute(Literal(k), nil)
		route.handler = t.Uses
		route.name = t.As
		route.hooks = t.Hooks
		r.register(route)
	}
	return r
}

// OnDefault sets the handler for the root path when no route matches it.
func (r *Router) OnDefault(h QueryHandler, hooks ...Hooks) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateDestroyed {
		r.defaultRoute = newFallback(h, hooks)
	}
	return r
}

// NotFound sets the handler for paths that match nothing.
func (r *Router) NotFound(h QueryHandler, hooks ...Hooks) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateDestroyed {
		r.notFound = newFallback(h, hooks)
	}
	return r
}

func (r *Router) register(route *Route) {
	r.mu.Lock()
	if r.state == StateDestroyed {
		r.mu.Unlock()
		return
	}
	r.routes = append(r.routes, route)
	n := len(r.routes)
	r.mu.Unlock()

	r.metrics.SetRoutes(n)
}

// Clear drops every route together with the last resolution and any
// inferred root. An explicit root is kept.
func (r *Router) Clear() {
	r.mu.Lock()
	r.routes = nil
	r.memo = nil
	if !r.explicitRoot {
		r.rootKnown = false
		r.root = ""
	}
	r.mu.Unlock()

	r.metrics.SetRoutes(0)
}

// Routes returns a snapshot of the registered routes in table order.
func (r *Router) Routes() []*Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Len returns the number of registered routes.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.routes)
}
