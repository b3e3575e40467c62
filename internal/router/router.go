package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/navroute/internal/location"
	"github.com/vyrodovalexey/navroute/internal/observability"
	"github.com/vyrodovalexey/navroute/internal/util"
)

// ErrNoNavigator is returned by Navigate when no Navigator is configured.
var ErrNoNavigator = errors.New("no navigator configured")

// State is the lifecycle state of a Router.
type State int

// Router states.
const (
	StateIdle State = iota
	StatePaused
	StateDestroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is the outcome of a resolution.
type Status int

// Resolution outcomes.
const (
	StatusUnmatched Status = iota
	StatusMatched
	StatusDefault
	StatusNotFound
	StatusDuplicate
	StatusPaused
	StatusDestroyed
)

// String returns the outcome label used in logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusUnmatched:
		return observability.OutcomeUnmatched
	case StatusMatched:
		return observability.OutcomeMatched
	case StatusDefault:
		return observability.OutcomeDefault
	case StatusNotFound:
		return observability.OutcomeNotFound
	case StatusDuplicate:
		return observability.OutcomeDuplicate
	case StatusPaused:
		return observability.OutcomePaused
	case StatusDestroyed:
		return observability.OutcomeDestroyed
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result reports what a resolution did.
type Result struct {
	Status       Status
	Match        *MatchResult
	Path         string
	Query        string
	ResolutionID string
	// Pending is set when an async hook holds the dispatch.
	Pending bool
	// Vetoed is set when a Before hook cancelled the dispatch.
	Vetoed bool
}

// OK reports whether the resolution dispatched a route or the default
// handler.
func (r Result) OK() bool {
	return r.Status == StatusMatched || r.Status == StatusDefault
}

type memo struct {
	path  string
	query string
}

// Router maps locations to handlers.
type Router struct {
	mu sync.Mutex
	// asyncMu serializes async continuations from their generation check
	// through After.
	asyncMu sync.Mutex

	routes       []*Route
	defaultRoute *fallback
	notFound     *fallback

	root         string
	rootKnown    bool
	explicitRoot bool
	hash         bool

	memo          *memo
	state         State
	generation    uint64
	pendingCancel context.CancelFunc

	base        context.Context
	baseCancel  context.CancelFunc
	unsubscribe func()

	reader    location.Reader
	navigator location.Navigator
	source    location.Source

	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// Option configures a Router.
type Option func(*Router)

// WithRoot sets an explicit root, disabling root inference. Trailing
// slashes are dropped; in hash mode a trailing slash becomes "/#".
func WithRoot(root string) Option {
	return func(r *Router) {
		r.root = root
		r.rootKnown = true
		r.explicitRoot = true
	}
}

// WithHashMode resolves the fragment of the location instead of its path.
func WithHashMode() Option {
	return func(r *Router) { r.hash = true }
}

// WithReader sets where Resolve reads the current location from.
func WithReader(reader location.Reader) Option {
	return func(r *Router) { r.reader = reader }
}

// WithNavigator sets the history used by Navigate.
func WithNavigator(nav location.Navigator) Option {
	return func(r *Router) { r.navigator = nav }
}

// WithSource subscribes the router to location changes on construction.
func WithSource(src location.Source) Option {
	return func(r *Router) { r.source = src }
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

// New creates a router.
func New(opts ...Option) *Router {
	r := &Router{logger: observability.NopLogger()}
	r.base, r.baseCancel = context.WithCancel(context.Background())

	for _, opt := range opts {
		opt(r)
	}

	if r.explicitRoot {
		if r.hash {
			if strings.HasSuffix(r.root, "/") {
				r.root = strings.TrimSuffix(r.root, "/") + "/#"
			}
		} else {
			r.root = strings.TrimRight(r.root, "/")
		}
	}

	if r.source != nil {
		r.Listen(r.source)
	}

	return r
}

// Resolve resolves the location reported by the configured Reader.
func (r *Router) Resolve(ctx context.Context) Result {
	return r.ResolveLocation(ctx, "")
}

// ResolveLocation resolves loc, or the Reader's location when loc is empty.
// Handlers and hooks run on the calling goroutine without the router lock
// held, so they may call back into the router.
func (r *Router) ResolveLocation(ctx context.Context, loc string) Result {
	if loc == "" && r.reader != nil {
		loc = r.reader.Current()
	}

	id := uuid.NewString()
	ctx = observability.ContextWithResolutionID(ctx, id)
	ctx, span := r.tracer.StartResolveSpan(ctx, loc)

	p := r.plan(loc)
	res := Result{
		Status:       p.status,
		Match:        p.match,
		Path:         p.path,
		Query:        p.query,
		ResolutionID: id,
	}
	if p.call != nil {
		res.Pending, res.Vetoed = r.run(ctx, p)
	}

	observability.EndResolveSpan(span, p.path, p.routeLabel(), p.status.String(), nil)
	r.metrics.RecordResolution(p.status.String())

	fields := []observability.Field{
		observability.String("location", loc),
		observability.String("outcome", p.status.String()),
		observability.String("path", p.path),
	}
	if label := p.routeLabel(); label != "" {
		fields = append(fields, observability.String("route", label))
	}
	if res.Vetoed {
		fields = append(fields, observability.Bool("vetoed", true))
	}
	r.logger.WithContext(ctx).Debug("location resolved", fields...)

	return res
}

// plan decides the outcome of resolving loc and records the memo.
func (r *Router) plan(loc string) *plan {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateDestroyed:
		return &plan{status: StatusDestroyed}
	case StatePaused:
		return &plan{status: StatusPaused}
	}

	path, query := r.normalizeLocked(loc)
	p := &plan{path: path, query: query}

	if r.memo != nil && r.memo.path == path && r.memo.query == query {
		p.status = StatusDuplicate
		return p
	}

	if m, ok := MatchFirst(path, r.routes); ok {
		r.memo = &memo{path: path, query: query}
		p.status = StatusMatched
		p.match = &m
		p.hooks = m.Route.hooks
		p.call = routeCall(m, query)
		r.beginLocked(p)
		return p
	}

	// The default dispatch is remembered only once its handler runs, so a
	// vetoed default can be retried.
	if r.defaultRoute != nil && Clean(path) == "" {
		p.status = StatusDefault
		p.hooks = r.defaultRoute.hooks
		call := fallbackCall(r.defaultRoute, query)
		p.call = func(ctx context.Context) {
			r.remember(path, query)
			call(ctx)
		}
		r.beginLocked(p)
		return p
	}

	if r.notFound != nil {
		p.status = StatusNotFound
		p.hooks = r.notFound.hooks
		p.call = fallbackCall(r.notFound, query)
		r.beginLocked(p)
		return p
	}

	p.status = StatusUnmatched
	return p
}

// remember records path and query as the last resolved location.
func (r *Router) remember(path, query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateDestroyed {
		r.memo = &memo{path: path, query: query}
	}
}

func routeCall(m MatchResult, query string) func(context.Context) {
	route := m.Route
	if route.pattern.IsRaw() {
		captures := m.Captures
		return func(ctx context.Context) {
			if route.captures != nil {
				route.captures(ctx, captures...)
			}
		}
	}
	params := m.Params
	return func(ctx context.Context) {
		if route.handler != nil {
			route.handler(ctx, params, query)
		}
	}
}

func fallbackCall(f *fallback, query string) func(context.Context) {
	return func(ctx context.Context) {
		if f.handler != nil {
			f.handler(ctx, query)
		}
	}
}

// beginLocked starts a new dispatch generation, superseding any async wait.
func (r *Router) beginLocked(p *plan) {
	r.generation++
	p.gen = r.generation
	if r.pendingCancel != nil {
		r.pendingCancel()
		r.pendingCancel = nil
	}

	p.dispatch = Dispatch{
		Status: p.status,
		Path:   p.path,
		Query:  p.query,
	}
	if p.match != nil {
		p.dispatch.Route = p.match.Route
		p.dispatch.Params = p.match.Params
		p.dispatch.Captures = p.match.Captures
	}
}

// normalizeLocked turns a raw location into the path and query matched
// against the table.
func (r *Router) normalizeLocked(loc string) (path, query string) {
	loc = r.scopeLocked(loc)
	r.ensureRootLocked(loc)
	loc = stripRoot(loc, r.root)
	if r.hash {
		loc = hashPath(loc)
	}
	return SplitQuery(loc)
}

// scopeLocked drops the parts of loc the router never looks at.
func (r *Router) scopeLocked(loc string) string {
	loc = StripOrigin(loc)
	if !r.hash {
		loc = StripFragment(loc)
	}
	return loc
}

// ensureRootLocked infers and memoizes the root from a scoped location.
func (r *Router) ensureRootLocked(loc string) string {
	if !r.rootKnown {
		path, _ := SplitQuery(loc)
		r.root = InferRoot(path, r.routes)
		r.rootKnown = true
		r.logger.Debug("root inferred", observability.String("root", r.root))
	}
	return r.root
}

// Match returns the first route matching path without dispatching.
func (r *Router) Match(path string) (MatchResult, bool) {
	return MatchFirst(path, r.Routes())
}

// Root infers the root of loc from the registered routes without
// memoizing it.
func (r *Router) Root(loc string) string {
	return InferRoot(loc, r.Routes())
}

// ResetRoot forgets an inferred root so the next resolution infers it again.
// An explicit root is kept.
func (r *Router) ResetRoot() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.explicitRoot {
		r.root = ""
		r.rootKnown = false
	}
}

// Generate builds a path from the first route named name, substituting
// :key tokens from params. Tokens without a value are left in place. It
// returns "" for unknown names and raw routes.
func (r *Router) Generate(name string, params map[string]string) string {
	path, _ := r.URLFor(name, params)
	return path
}

// URLFor is Generate with an error for unknown names and raw routes.
func (r *Router) URLFor(name string, params map[string]string) (string, error) {
	r.mu.Lock()
	var route *Route
	for _, rt := range r.routes {
		if rt.name == name {
			route = rt
			break
		}
	}
	r.mu.Unlock()

	if route == nil {
		return "", util.NewNamedRouteNotFoundError(name)
	}
	if route.pattern.IsRaw() {
		return "", fmt.Errorf("route %q has a raw pattern: %w", name, util.ErrInvalidInput)
	}
	return Expand(route.pattern.literal, params), nil
}

// Expand replaces the :key tokens of a literal pattern with params. Tokens
// without a value are left in place.
func Expand(pattern string, params map[string]string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] != ':' {
			b.WriteByte(pattern[i])
			i++
			continue
		}
		j := i + 1
		for j < len(pattern) && isWordChar(pattern[j]) {
			j++
		}
		if v, ok := params[pattern[i+1:j]]; ok && j > i+1 {
			b.WriteString(v)
		} else {
			b.WriteString(pattern[i:j])
		}
		i = j
	}
	return b.String()
}

// Link prefixes path with the router root.
func (r *Router) Link(path string) string {
	current := r.currentLocation()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureRootLocked(r.scopeLocked(current)) + path
}

func (r *Router) currentLocation() string {
	if r.reader == nil {
		return ""
	}
	return r.reader.Current()
}

type navigateOptions struct {
	absolute bool
}

// NavigateOption configures Navigate.
type NavigateOption func(*navigateOptions)

// Absolute navigates to the path as given instead of below the root.
func Absolute() NavigateOption {
	return func(o *navigateOptions) { o.absolute = true }
}

// Navigate moves to path. In history mode the entry is pushed, or replaced
// while paused, and the router resolves it. In hash mode the fragment is
// changed and resolution is left to the location source.
func (r *Router) Navigate(ctx context.Context, path string, opts ...NavigateOption) error {
	var o navigateOptions
	for _, opt := range opts {
		opt(&o)
	}

	current := r.currentLocation()

	r.mu.Lock()
	if r.state == StateDestroyed {
		r.mu.Unlock()
		return util.ErrRouterDestroyed
	}
	nav, hash, paused := r.navigator, r.hash, r.state == StatePaused

	var target string
	switch {
	case hash:
		target = "#" + path
	case o.absolute:
		target = collapseSlashes(Clean(path))
	default:
		root := r.ensureRootLocked(r.scopeLocked(current))
		target = collapseSlashes(root + "/" + strings.TrimLeft(Clean(path), "/"))
	}
	r.mu.Unlock()

	mode := "history"
	if hash {
		mode = "hash"
	}

	if nav == nil {
		r.metrics.RecordNavigation(mode, "error")
		return fmt.Errorf("navigate to %s: %w", target, ErrNoNavigator)
	}

	action := "pushed"
	var err error
	if paused && !hash {
		action = "replaced"
		err = nav.Replace(target)
	} else {
		err = nav.Push(target)
	}
	if err != nil {
		result := "error"
		if errors.Is(err, util.ErrNavigationThrottled) {
			result = "throttled"
		}
		r.metrics.RecordNavigation(mode, result)
		r.logger.WithContext(ctx).Warn("navigation failed",
			observability.String("target", target),
			observability.Error(err),
		)
		return fmt.Errorf("navigate to %s: %w", target, err)
	}
	r.metrics.RecordNavigation(mode, action)

	if !hash {
		if r.reader != nil {
			r.Resolve(ctx)
		} else {
			r.ResolveLocation(ctx, target)
		}
	}
	return nil
}

// Listen resolves on every change reported by src, replacing any previous
// subscription.
func (r *Router) Listen(src location.Source) {
	r.mu.Lock()
	if r.state == StateDestroyed {
		r.mu.Unlock()
		return
	}
	prev := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if prev != nil {
		prev()
	}

	cancel := src.Subscribe(func() {
		r.Resolve(r.base)
	})

	r.mu.Lock()
	if r.state == StateDestroyed {
		r.mu.Unlock()
		cancel()
		return
	}
	r.unsubscribe = cancel
	r.mu.Unlock()
}

// Pause suspends resolution while status is true.
func (r *Router) Pause(status bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateDestroyed {
		return
	}
	if status {
		r.state = StatePaused
	} else {
		r.state = StateIdle
	}
}

// Destroy permanently stops the router: routes are dropped, the location
// subscription is cancelled and pending async dispatches never run. Later
// calls on the router are safe no-ops.
func (r *Router) Destroy() {
	r.mu.Lock()
	if r.state == StateDestroyed {
		r.mu.Unlock()
		return
	}
	r.state = StateDestroyed
	r.routes = nil
	r.defaultRoute = nil
	r.notFound = nil
	r.memo = nil
	if r.pendingCancel != nil {
		r.pendingCancel()
		r.pendingCancel = nil
	}
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	r.baseCancel()
	if unsubscribe != nil {
		unsubscribe()
	}
	r.metrics.SetRoutes(0)
	r.logger.Debug("router destroyed")
}

// LastResolved returns the path and query of the last dispatched
// resolution.
func (r *Router) LastResolved() (path, query string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.memo == nil {
		return "", "", false
	}
	return r.memo.path, r.memo.query, true
}

// State returns the lifecycle state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
