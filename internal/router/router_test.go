package router

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/navroute/internal/location"
	"github.com/vyrodovalexey/navroute/internal/observability"
	"github.com/vyrodovalexey/navroute/internal/util"
)

// recorder collects handler invocations.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) handler(name string) Handler {
	return func(_ context.Context, params Params, query string) {
		r.add(name + " " + params["id"] + " " + query)
	}
}

func (r *recorder) query(name string) QueryHandler {
	return func(_ context.Context, query string) {
		r.add(name + " " + query)
	}
}

func TestRouter_ResolveMatch(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := New(WithRoot(""))
	r.Add("/users/:id", rec.handler("user"))

	res := r.ResolveLocation(context.Background(), "/users/42?tab=posts")

	assert.Equal(t, StatusMatched, res.Status)
	assert.True(t, res.OK())
	require.NotNil(t, res.Match)
	assert.Equal(t, Params{"id": "42"}, res.Match.Params)
	assert.Equal(t, "/users/42", res.Path)
	assert.Equal(t, "tab=posts", res.Query)
	assert.NotEmpty(t, res.ResolutionID)
	assert.Equal(t, []string{"user 42 tab=posts"}, rec.all())

	path, query, ok := r.LastResolved()
	assert.True(t, ok)
	assert.Equal(t, "/users/42", path)
	assert.Equal(t, "tab=posts", query)
}

func TestRouter_RedundantSlashes(t *testing.T) {
	t.Parallel()

	for _, loc := range []string{"/a", "/a/", "//a", "/a//", "///a/"} {
		t.Run(loc, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{}
			r := New(WithRoot(""))
			r.Add("/a", rec.handler("a"))

			_, ok := r.Match(loc)
			assert.True(t, ok)
			assert.Equal(t, StatusMatched, r.ResolveLocation(context.Background(), loc).Status)
			assert.Len(t, rec.all(), 1)
		})
	}
}

func TestRouter_DuplicateSuppressed(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := New(WithRoot(""))
	r.Add("/users/:id", rec.handler("user"))
	ctx := context.Background()

	assert.Equal(t, StatusMatched, r.ResolveLocation(ctx, "/users/1").Status)
	dup := r.ResolveLocation(ctx, "/users/1")
	assert.Equal(t, StatusDuplicate, dup.Status)
	assert.False(t, dup.OK())

	assert.Equal(t, StatusMatched, r.ResolveLocation(ctx, "/users/1?x=1").Status)
	assert.Len(t, rec.all(), 2)
}

func TestRouter_DefaultHandler(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := New(WithRoot("/app"))
	r.OnDefault(rec.query("home"))
	r.Add("/about", rec.handler("about"))
	ctx := context.Background()

	res := r.ResolveLocation(ctx, "https://example.com/app?lang=en")
	assert.Equal(t, StatusDefault, res.Status)
	assert.True(t, res.OK())
	assert.Nil(t, res.Match)

	assert.Equal(t, StatusDuplicate, r.ResolveLocation(ctx, "/app?lang=en").Status)
	assert.Equal(t, StatusDefault, r.ResolveLocation(ctx, "/app/").Status)
	assert.Equal(t, []string{"home lang=en", "home "}, rec.all())
}

func TestRouter_NotFoundIsNotMemoized(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := New(WithRoot(""))
	r.Add("/users/:id", rec.handler("user"))
	r.NotFound(rec.query("missing"))
	ctx := context.Background()

	first := r.ResolveLocation(ctx, "/nope?a=1")
	second := r.ResolveLocation(ctx, "/nope?a=1")

	assert.Equal(t, StatusNotFound, first.Status)
	assert.Equal(t, StatusNotFound, second.Status)
	assert.False(t, first.OK())
	assert.Equal(t, []string{"missing a=1", "missing a=1"}, rec.all())

	_, _, ok := r.LastResolved()
	assert.False(t, ok)
}

func TestRouter_Unmatched(t *testing.T) {
	t.Parallel()

	r := New(WithRoot(""))
	r.Add("/users/:id", nil)

	res := r.ResolveLocation(context.Background(), "/nothing")
	assert.Equal(t, StatusUnmatched, res.Status)
	assert.False(t, res.OK())

	// A nil handler is tolerated.
	assert.Equal(t, StatusMatched, r.ResolveLocation(context.Background(), "/users/1").Status)
}

func TestRouter_DefaultOnlyForRoot(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := New(WithRoot(""))
	r.OnDefault(rec.query("home"))

	assert.Equal(t, StatusUnmatched, r.ResolveLocation(context.Background(), "/other").Status)
	assert.Empty(t, rec.all())
}

func TestRouter_RawCaptures(t *testing.T) {
	t.Parallel()

	var got []string
	r := New(WithRoot(""))
	r.AddRaw(RawRegexp(regexp.MustCompile(`^/legacy/(\d+)/(\w+)$`)), func(_ context.Context, captures ...string) {
		got = captures
	})
	r.AddRaw(MustECMAScript(`^/post/(?!new$)(\w+)$`), func(_ context.Context, captures ...string) {
		got = captures
	})

	res := r.ResolveLocation(context.Background(), "/legacy/12/ab")
	require.Equal(t, StatusMatched, res.Status)
	assert.Nil(t, res.Match.Params)
	assert.Equal(t, []string{"12", "ab"}, got)

	res = r.ResolveLocation(context.Background(), "/post/hello")
	require.Equal(t, StatusMatched, res.Status)
	assert.Equal(t, []string{"hello"}, got)

	assert.Equal(t, StatusUnmatched, r.ResolveLocation(context.Background(), "/post/new").Status)
}

func TestRouter_OnSortsByDepth(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := New(WithRoot(""))
	r.On(map[string]Target{
		"/a":     {Uses: rec.handler("a")},
		"/a/:id": {Uses: rec.handler("a-item"), As: "item"},
		"/b":     {Uses: rec.handler("b")},
	})

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, "/a/:id", routes[0].Pattern().String())
	assert.Equal(t, "item", routes[0].Name())
	assert.Equal(t, "/a", routes[1].Pattern().String())
	assert.Equal(t, "/b", routes[2].Pattern().String())

	ctx := context.Background()
	r.ResolveLocation(ctx, "/a/5")
	r.ResolveLocation(ctx, "/a")
	assert.Equal(t, []string{"a-item 5 ", "a  "}, rec.all())
}

func TestRouter_RootInference(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := New()
	r.Add("/users/:id", rec.handler("user"))
	ctx := context.Background()

	assert.Equal(t, "/app", r.Root("/app/users/5"))

	res := r.ResolveLocation(ctx, "https://example.com/app/users/5#frag")
	require.Equal(t, StatusMatched, res.Status)
	assert.Equal(t, "/users/5", res.Path)

	// The inferred root is kept for later resolutions.
	res = r.ResolveLocation(ctx, "/app/users/6")
	assert.Equal(t, "/users/6", res.Path)
	assert.Equal(t, "/app/x", r.Link("/x"))

	r.ResetRoot()
	res = r.ResolveLocation(ctx, "/users/7")
	assert.Equal(t, StatusMatched, res.Status)
	assert.Equal(t, "/users/7", res.Path)
}

func TestRouter_HashMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     []Option
		location string
		wantPath string
	}{
		{name: "explicit root with slash", opts: []Option{WithRoot("/app/")}, location: "https://x.io/app/#/users/3?tab=a", wantPath: "/users/3"},
		{name: "explicit root without slash", opts: []Option{WithRoot("/app")}, location: "/app/#/users/3", wantPath: "/users/3"},
		{name: "empty root", opts: []Option{WithRoot("")}, location: "/#/users/3", wantPath: "/users/3"},
		{name: "inferred root", location: "/app/#/users/3", wantPath: "/users/3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := New(append(tt.opts, WithHashMode())...)
			r.Add("/users/:id", nil)

			res := r.ResolveLocation(context.Background(), tt.location)
			require.Equal(t, StatusMatched, res.Status)
			assert.Equal(t, tt.wantPath, res.Path)
			assert.Equal(t, Params{"id": "3"}, res.Match.Params)
		})
	}
}

func TestRouter_PauseAndResume(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := New(WithRoot(""))
	r.Add("/users/:id", rec.handler("user"))
	ctx := context.Background()

	r.Pause(true)
	assert.Equal(t, StatePaused, r.State())
	assert.Equal(t, StatusPaused, r.ResolveLocation(ctx, "/users/1").Status)
	_, _, ok := r.LastResolved()
	assert.False(t, ok)

	r.Pause(false)
	assert.Equal(t, StateIdle, r.State())
	assert.Equal(t, StatusMatched, r.ResolveLocation(ctx, "/users/1").Status)
	assert.Len(t, rec.all(), 1)
}

func TestRouter_Destroy(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	h := location.NewHistory("/users/1")
	r := New(WithRoot(""), WithReader(h), WithNavigator(h), WithSource(h))
	r.Add("/users/:id", rec.handler("user"))

	r.Destroy()
	r.Destroy()

	assert.Equal(t, StateDestroyed, r.State())
	assert.Equal(t, StatusDestroyed, r.Resolve(context.Background()).Status)
	assert.ErrorIs(t, r.Navigate(context.Background(), "/users/2"), util.ErrRouterDestroyed)

	r.Add("/late", rec.handler("late"))
	r.OnDefault(rec.query("home"))
	r.NotFound(rec.query("missing"))
	r.Pause(true)
	r.Listen(h)
	assert.Zero(t, r.Len())
	assert.Equal(t, StateDestroyed, r.State())

	h.Set("/users/3")
	assert.Empty(t, rec.all())
}

func TestRouter_ClearDropsMemo(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := New()
	r.Add("/users/:id", rec.handler("user"))
	ctx := context.Background()

	r.ResolveLocation(ctx, "/app/users/1")
	r.Clear()
	assert.Zero(t, r.Len())
	_, _, ok := r.LastResolved()
	assert.False(t, ok)

	r.Add("/users/:id", rec.handler("user2"))
	res := r.ResolveLocation(ctx, "/app/users/1")
	assert.Equal(t, StatusMatched, res.Status)
	assert.Equal(t, []string{"user 1 ", "user2 1 "}, rec.all())
}

func TestRouter_Generate(t *testing.T) {
	t.Parallel()

	r := New(WithRoot(""))
	r.Add("/u/:id", nil, As("profile"))
	r.Add("/other/:id", nil, As("profile"))
	r.Add("/t/:id/:idx", nil, As("pair"))
	r.AddRaw(RawRegexp(regexp.MustCompile(`^/r$`)), nil, As("raw"))

	tests := []struct {
		name   string
		route  string
		params map[string]string
		want   string
	}{
		{name: "first named route wins", route: "profile", params: map[string]string{"id": "7"}, want: "/u/7"},
		{name: "missing value kept", route: "profile", params: nil, want: "/u/:id"},
		{name: "prefix names distinct", route: "pair", params: map[string]string{"id": "1", "idx": "2"}, want: "/t/1/2"},
		{name: "unknown name", route: "nope", want: ""},
		{name: "raw route", route: "raw", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.Generate(tt.route, tt.params))
		})
	}
}

func TestRouter_URLForErrors(t *testing.T) {
	t.Parallel()

	r := New()
	r.AddRaw(RawRegexp(regexp.MustCompile(`^/r$`)), nil, As("raw"))

	_, err := r.URLFor("nope", nil)
	assert.True(t, util.IsNotFound(err))

	_, err = r.URLFor("raw", nil)
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestExpand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		params  map[string]string
		want    string
	}{
		{pattern: "/users/:id", params: map[string]string{"id": "1"}, want: "/users/1"},
		{pattern: "/a/:x/b/:x", params: map[string]string{"x": "y"}, want: "/a/y/b/y"},
		{pattern: "/a/:id", params: map[string]string{"i": "no"}, want: "/a/:id"},
		{pattern: "/time/10:30", params: map[string]string{}, want: "/time/10:30"},
		{pattern: "/colon/:", params: map[string]string{"": "x"}, want: "/colon/:"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Expand(tt.pattern, tt.params))
		})
	}
}

func TestRouter_Navigate(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	h := location.NewHistory("https://x.io/app")
	r := New(WithRoot("/app"), WithReader(h), WithNavigator(h))
	r.Add("/users/:id", rec.handler("user"))
	ctx := context.Background()

	require.NoError(t, r.Navigate(ctx, "users/9"))
	assert.Equal(t, "https://x.io/app/users/9", h.Current())
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []string{"user 9 "}, rec.all())

	require.NoError(t, r.Navigate(ctx, "//users//10/"))
	assert.Equal(t, "https://x.io/app/users/10", h.Current())
	assert.Equal(t, []string{"user 9 ", "user 10 "}, rec.all())

	require.NoError(t, r.Navigate(ctx, "/elsewhere", Absolute()))
	assert.Equal(t, "https://x.io/elsewhere", h.Current())
}

func TestRouter_NavigateWhilePausedReplaces(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	h := location.NewHistory("/app")
	r := New(WithRoot("/app"), WithReader(h), WithNavigator(h))
	r.Add("/users/:id", rec.handler("user"))

	r.Pause(true)
	require.NoError(t, r.Navigate(context.Background(), "/users/1"))

	assert.Equal(t, "/app/users/1", h.Current())
	assert.Equal(t, 1, h.Len())
	assert.Empty(t, rec.all())
}

func TestRouter_NavigateWithoutReaderResolvesTarget(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := New(WithRoot(""), WithNavigator(location.NewHistory("/")))
	r.Add("/users/:id", rec.handler("user"))

	require.NoError(t, r.Navigate(context.Background(), "/users/4"))
	assert.Equal(t, []string{"user 4 "}, rec.all())
}

func TestRouter_NavigateErrors(t *testing.T) {
	t.Parallel()

	r := New(WithRoot(""))
	assert.ErrorIs(t, r.Navigate(context.Background(), "/x"), ErrNoNavigator)

	h := location.NewHistory("/")
	throttled := New(WithRoot(""), WithReader(h), WithNavigator(location.NewThrottle(h, 0.001, 1)))
	require.NoError(t, throttled.Navigate(context.Background(), "/a"))
	err := throttled.Navigate(context.Background(), "/b")
	assert.True(t, errors.Is(err, util.ErrNavigationThrottled))
}

func TestRouter_HashNavigateResolvesThroughSource(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	h := location.NewHistory("/app/#/")
	r := New(WithHashMode(), WithRoot("/app/"), WithReader(h), WithNavigator(h))
	r.Add("/users/:id", rec.handler("user"))
	r.Listen(h)

	require.NoError(t, r.Navigate(context.Background(), "/users/2"))
	assert.Equal(t, "/app/#/users/2", h.Current())
	assert.Equal(t, []string{"user 2 "}, rec.all())
}

func TestRouter_ListenResolvesOnPopState(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	h := location.NewHistory("/users/1")
	r := New(WithRoot(""), WithReader(h), WithNavigator(h), WithSource(h))
	r.Add("/users/:id", rec.handler("user"))

	require.NoError(t, r.Navigate(context.Background(), "/users/2"))
	assert.True(t, h.Back())
	assert.Equal(t, []string{"user 2 ", "user 1 "}, rec.all())

	// Re-subscribing replaces the previous subscription.
	r.Listen(h)
	assert.True(t, h.Forward())
	assert.Equal(t, []string{"user 2 ", "user 1 ", "user 2 "}, rec.all())
}

func TestRouter_HandlerMayRedirect(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	h := location.NewHistory("/")
	r := New(WithRoot(""), WithReader(h), WithNavigator(h))
	r.Add("/old", func(ctx context.Context, _ Params, _ string) {
		rec.add("old")
		_ = r.Navigate(ctx, "/new")
	})
	r.Add("/new", rec.handler("new"))

	require.NoError(t, r.Navigate(context.Background(), "/old"))
	assert.Equal(t, []string{"old", "new  "}, rec.all())
	assert.Equal(t, "/new", h.Current())
}

func findMetric(families []*dto.MetricFamily, name, label, value string) *dto.Metric {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m
				}
			}
		}
	}
	return nil
}

func TestRouter_Observability(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("rt")
	spans := tracetest.NewSpanRecorder()
	tracer := observability.NewTracerWithProvider(
		sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)), "router-test")
	core, logs := observer.New(zap.DebugLevel)

	r := New(
		WithRoot(""),
		WithMetrics(metrics),
		WithTracer(tracer),
		WithLogger(observability.NewLoggerFromZap(zap.New(core))),
	)
	r.Add("/users/:id", nil)
	ctx := context.Background()

	res := r.ResolveLocation(ctx, "/users/1")
	r.ResolveLocation(ctx, "/users/1")

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	matched := findMetric(families, "rt_resolutions_total", "outcome", "matched")
	require.NotNil(t, matched)
	assert.Equal(t, 1.0, matched.GetCounter().GetValue())
	dup := findMetric(families, "rt_resolutions_total", "outcome", "duplicate")
	require.NotNil(t, dup)
	assert.Equal(t, 1.0, dup.GetCounter().GetValue())
	assert.NotNil(t, findMetric(families, "rt_dispatch_duration_seconds", "route", "/users/:id"))

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, observability.SpanResolve, ended[0].Name())

	entries := logs.FilterMessage("location resolved").All()
	require.Len(t, entries, 2)
	assert.Equal(t, res.ResolutionID, entries[0].ContextMap()["resolution_id"])
	assert.Equal(t, "/users/:id", entries[0].ContextMap()["route"])

	require.NoError(t, metrics.RegisterCollector(prometheus.NewCounter(prometheus.CounterOpts{Name: "x_total", Help: "x"})))
}
