package main

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/vyrodovalexey/navroute/internal/config"
	"github.com/vyrodovalexey/navroute/internal/guard"
	"github.com/vyrodovalexey/navroute/internal/location"
	"github.com/vyrodovalexey/navroute/internal/observability"
	"github.com/vyrodovalexey/navroute/internal/router"
)

// Dispatch kinds.
const (
	kindRoute    = "route"
	kindRedirect = "redirect"
	kindDefault  = "default"
	kindNotFound = "not_found"
)

// dispatch is one handler invocation as reported by the CLI.
type dispatch struct {
	Kind         string            `json:"kind"`
	Route        string            `json:"route,omitempty"`
	Name         string            `json:"name,omitempty"`
	Params       map[string]string `json:"params,omitempty"`
	Captures     []string          `json:"captures,omitempty"`
	Query        string            `json:"query,omitempty"`
	Redirect     string            `json:"redirect,omitempty"`
	ResolutionID string            `json:"resolutionId,omitempty"`
}

// recorder collects dispatches, or hands them to sink when one is set. It
// is safe for concurrent use.
type recorder struct {
	mu     sync.Mutex
	events []dispatch
	sink   func(dispatch)
}

func (r *recorder) add(ctx context.Context, d dispatch) {
	d.ResolutionID = observability.ResolutionIDFromContext(ctx)

	r.mu.Lock()
	sink := r.sink
	if sink == nil {
		r.events = append(r.events, d)
	}
	r.mu.Unlock()

	if sink != nil {
		sink(d)
	}
}

// drain returns and forgets the recorded dispatches.
func (r *recorder) drain() []dispatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// builder turns a configuration into a populated router.
type builder struct {
	cfg     *config.Config
	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
	rec     *recorder
}

// newBuilder falls back to the global logger when logger is nil.
func newBuilder(cfg *config.Config, logger observability.Logger) *builder {
	if logger == nil {
		logger = observability.L()
	}
	return &builder{
		cfg:    cfg,
		logger: logger,
		rec:    &recorder{},
	}
}

// navigator applies the configured navigation rate limit to nav.
func (b *builder) navigator(nav location.Navigator) location.Navigator {
	if nav == nil || b.cfg.Router.Navigation.Rate <= 0 {
		return nav
	}
	return location.NewThrottle(nav, b.cfg.Router.Navigation.Rate, b.cfg.Router.Navigation.Burst)
}

// build creates a router from the configuration. opts are applied after the
// configured ones.
func (b *builder) build(opts ...router.Option) (*router.Router, error) {
	base := []router.Option{
		router.WithLogger(b.logger),
		router.WithMetrics(b.metrics),
		router.WithTracer(b.tracer),
	}
	if root := b.cfg.Router.Root; root != nil {
		base = append(base, router.WithRoot(*root))
	}
	if b.cfg.Router.Hash {
		base = append(base, router.WithHashMode())
	}

	r := router.New(append(base, opts...)...)
	if err := b.register(r, b.cfg); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

// register adds the routes of cfg to r, then the default and not-found
// handlers.
func (b *builder) register(r *router.Router, cfg *config.Config) error {
	for i := range cfg.Routes {
		if err := b.registerRoute(r, cfg.Routes[i]); err != nil {
			return fmt.Errorf("routes[%d]: %w", i, err)
		}
	}

	if len(cfg.RouteMap) > 0 {
		targets := make(map[string]router.Target, len(cfg.RouteMap))
		for key, entry := range cfg.RouteMap {
			hooks, err := b.hooks(entry.Guard)
			if err != nil {
				return fmt.Errorf("routeMap[%s]: %w", key, err)
			}
			spec := config.RouteSpec{Path: key, Name: entry.Name, Redirect: entry.Redirect}
			targets[key] = router.Target{Uses: b.handler(r, spec), As: entry.Name, Hooks: hooks}
		}
		r.On(targets)
	}

	r.OnDefault(func(ctx context.Context, query string) {
		b.rec.add(ctx, dispatch{Kind: kindDefault, Query: query})
	})
	r.NotFound(func(ctx context.Context, query string) {
		b.rec.add(ctx, dispatch{Kind: kindNotFound, Query: query})
	})
	return nil
}

func (b *builder) registerRoute(r *router.Router, spec config.RouteSpec) error {
	hooks, err := b.hooks(spec.Guard)
	if err != nil {
		return err
	}
	opts := []router.RouteOption{router.As(spec.Name)}
	if hooks != nil {
		opts = append(opts, router.WithHooks(*hooks))
	}

	if !spec.Raw {
		r.Add(spec.Path, b.handler(r, spec), opts...)
		return nil
	}

	expr, err := rawExpression(spec)
	if err != nil {
		return err
	}
	r.AddRaw(expr, func(ctx context.Context, captures ...string) {
		b.rec.add(ctx, dispatch{Kind: kindRoute, Route: spec.Path, Name: spec.Name, Captures: captures})
	}, opts...)
	return nil
}

func rawExpression(spec config.RouteSpec) (router.Expression, error) {
	if spec.RawSyntax() == config.SyntaxRE2 {
		re, err := regexp.Compile(spec.Path)
		if err != nil {
			return nil, err
		}
		return router.RawRegexp(re), nil
	}
	return router.RawECMAScript(spec.Path)
}

// handler records the dispatch and follows a configured redirect. Redirect
// targets may use the :key tokens of the matched route.
func (b *builder) handler(r *router.Router, spec config.RouteSpec) router.Handler {
	return func(ctx context.Context, params router.Params, query string) {
		d := dispatch{Kind: kindRoute, Route: spec.Path, Name: spec.Name, Params: params, Query: query}
		if spec.Redirect == "" {
			b.rec.add(ctx, d)
			return
		}

		d.Kind = kindRedirect
		d.Redirect = router.Expand(spec.Redirect, params)
		b.rec.add(ctx, d)

		if err := r.Navigate(ctx, d.Redirect); err != nil {
			b.logger.WithContext(ctx).Warn("redirect failed",
				observability.String("from", spec.Path),
				observability.String("to", d.Redirect),
				observability.Error(err),
			)
		}
	}
}

func (b *builder) hooks(expr string) (*router.Hooks, error) {
	if expr == "" {
		return nil, nil
	}
	g, err := guard.Compile(expr, guard.WithLogger(b.logger), guard.WithMetrics(b.metrics))
	if err != nil {
		return nil, err
	}
	hooks := g.Hooks()
	return &hooks, nil
}
