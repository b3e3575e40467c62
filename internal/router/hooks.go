package router

import (
	"context"
	"time"

	"github.com/vyrodovalexey/navroute/internal/util"
)

// Dispatch describes a pending handler invocation as seen by hooks.
type Dispatch struct {
	Status   Status
	Route    *Route
	Params   Params
	Captures []string
	Path     string
	Query    string
}

// Hooks wrap a handler. Before runs first; returning false cancels the
// dispatch. BeforeAsync, when set, suspends the dispatch until its channel
// yields: true runs the handler, false or a closed channel cancels it. The
// context passed to BeforeAsync is cancelled when the router is destroyed or
// a newer resolution dispatches, and a cancelled wait never runs the
// handler. After runs once the handler returns.
//
// Async continuations run one at a time, so a continuation superseded after
// its check waits for the earlier handler to return. A synchronous
// resolution that starts while an async handler is running is not held
// back: handlers re-enter the router, so the two may overlap.
type Hooks struct {
	Before      func(ctx context.Context, d Dispatch) bool
	BeforeAsync func(ctx context.Context, d Dispatch) <-chan bool
	After       func(ctx context.Context, d Dispatch)
}

// plan is a resolution decided under the router lock and carried out
// without it.
type plan struct {
	status   Status
	path     string
	query    string
	match    *MatchResult
	hooks    *Hooks
	call     func(ctx context.Context)
	gen      uint64
	dispatch Dispatch
}

func (p *plan) routeLabel() string {
	if p.match == nil {
		return ""
	}
	return p.match.Route.pattern.String()
}

// dispatchContext exposes the resolved path and matched route to hooks and
// handlers through ctx.
func dispatchContext(ctx context.Context, p *plan, start time.Time) context.Context {
	ctx = util.ContextWithStartTime(ctx, start)
	ctx = util.ContextWithLocation(ctx, p.path)
	if p.match == nil {
		return ctx
	}
	ctx = util.ContextWithRoute(ctx, p.routeLabel())
	if name := p.match.Route.Name(); name != "" {
		ctx = util.ContextWithRouteName(ctx, name)
	}
	if p.match.Params != nil {
		ctx = util.ContextWithPathParams(ctx, p.match.Params)
	}
	return ctx
}

// run invokes the planned handler inside its hooks. It reports whether the
// dispatch was deferred to an async hook or vetoed by Before.
func (r *Router) run(ctx context.Context, p *plan) (pending, vetoed bool) {
	ctx = dispatchContext(ctx, p, time.Now())
	defer func() { r.metrics.RecordDispatch(p.routeLabel(), util.ElapsedTime(ctx)) }()

	h := p.hooks
	if h == nil {
		p.call(ctx)
		return false, false
	}

	if h.Before != nil && !h.Before(ctx, p.dispatch) {
		return false, true
	}

	if h.BeforeAsync != nil {
		if r.await(ctx, p) {
			return true, false
		}
		return false, true
	}

	p.call(ctx)
	if h.After != nil {
		h.After(ctx, p.dispatch)
	}
	return false, false
}

// await hands the dispatch to the async hook and completes it on a separate
// goroutine once the hook allows it, unless the wait was superseded. It
// reports false when the dispatch was dropped before waiting.
func (r *Router) await(ctx context.Context, p *plan) bool {
	actx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(r.base, cancel)

	r.mu.Lock()
	if r.generation != p.gen || r.state == StateDestroyed {
		r.mu.Unlock()
		stop()
		cancel()
		return false
	}
	r.pendingCancel = cancel
	r.mu.Unlock()

	ch := p.hooks.BeforeAsync(actx, p.dispatch)
	if ch == nil {
		stop()
		cancel()
		return false
	}

	go func() {
		defer stop()
		defer cancel()

		var allowed bool
		select {
		case allowed = <-ch:
		case <-actx.Done():
			return
		}

		r.asyncMu.Lock()
		defer r.asyncMu.Unlock()

		if !allowed || actx.Err() != nil || !r.current(p.gen) {
			r.logger.WithContext(actx).Debug("async dispatch dropped")
			return
		}

		p.call(actx)
		if p.hooks.After != nil {
			p.hooks.After(actx, p.dispatch)
		}
	}()
	return true
}

// current reports whether gen is still the latest dispatch.
func (r *Router) current(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation == gen && r.state != StateDestroyed
}
